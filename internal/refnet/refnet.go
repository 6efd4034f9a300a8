// Package refnet reads the network section shared by the reference
// simulators' input files: numbered nodes, branches (quadripoles),
// couplings, generators, loads and shunts.
package refnet

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/beevik/etree"

	"gridcontg/internal/model"
	"gridcontg/internal/xmldoc"
)

// Disconnected is the node reference of an unconnected end.
const Disconnected = "-1"

// Container and element tag of each device table.
const (
	Quadripoles = "donneesQuadripoles"
	Couplages   = "donneesCouplages"
	Groupes     = "donneesGroupes"
	Consos      = "donneesConsos"
	Shunts      = "donneesShunts"
	Noeuds      = "donneesNoeuds"
)

var tables = map[model.Class]struct{ container, tag string }{
	model.Branch:    {Quadripoles, "quadripole"},
	model.Bus:       {Noeuds, "noeud"},
	model.Generator: {Groupes, "groupe"},
	model.Load:      {Consos, "conso"},
	model.Shunt:     {Shunts, "shunt"},
}

// Network indexes a reference file. The index holds strings only; the
// element tree is looked up afresh on every access so that restoring a
// snapshot of the document never leaves stale pointers behind.
type Network struct {
	doc *xmldoc.Document

	nodeName  map[string]string // num -> nom
	nodeNum   map[string]string // nom -> num
	posteName map[string]string // num -> nom

	log *slog.Logger
}

// Load reads and indexes the reference file at path. role names the file
// in a MissingFileError.
func Load(path, role string, log *slog.Logger) (*Network, error) {
	doc, err := xmldoc.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &model.MissingFileError{Role: role, Path: path}
		}
		return nil, err
	}
	return New(doc, log)
}

// New indexes doc.
func New(doc *xmldoc.Document, log *slog.Logger) (*Network, error) {
	n := &Network{
		doc:       doc,
		nodeName:  map[string]string{},
		nodeNum:   map[string]string{},
		posteName: map[string]string{},
		log:       log,
	}
	reseau := n.Reseau()
	if reseau == nil {
		return nil, fmt.Errorf("refnet: %s: no entrees/reseau section", doc.Path)
	}
	for _, p := range xmldoc.Descendants(xmldoc.Child(reseau, "donneesPostes"), "poste") {
		n.posteName[xmldoc.Attr(p, "num")] = xmldoc.Attr(p, "nom")
	}
	for _, e := range xmldoc.Children(xmldoc.Child(reseau, Noeuds), "noeud") {
		num, nom := xmldoc.Attr(e, "num"), xmldoc.Attr(e, "nom")
		n.nodeName[num] = nom
		n.nodeNum[nom] = num
	}
	return n, nil
}

// Document returns the underlying document.
func (n *Network) Document() *xmldoc.Document { return n.doc }

// Reseau returns the network section of the current tree.
func (n *Network) Reseau() *etree.Element {
	return xmldoc.Path(n.doc.Root(), "entrees", "reseau")
}

// NodeName resolves a node reference. Disconnected or unknown references
// do not resolve.
func (n *Network) NodeName(num string) (string, bool) {
	if num == "" || num == Disconnected {
		return "", false
	}
	name, ok := n.nodeName[num]
	return name, ok
}

// NodeNum returns the number of the node named name.
func (n *Network) NodeNum(name string) (string, bool) {
	num, ok := n.nodeNum[name]
	return num, ok
}

// BusCatalog returns every node name.
func (n *Network) BusCatalog() model.Catalog {
	c := make(model.Catalog, len(n.nodeNum))
	for name := range n.nodeNum {
		c[name] = struct{}{}
	}
	return c
}

// Elements returns the elements of a device table in document order.
func (n *Network) Elements(container, tag string) []*etree.Element {
	return xmldoc.Children(xmldoc.Child(n.Reseau(), container), tag)
}

// Find returns the element of class named name, or nil.
func (n *Network) Find(class model.Class, name string) *etree.Element {
	t := tables[class]
	for _, e := range n.Elements(t.container, t.tag) {
		if xmldoc.Attr(e, "nom") == name {
			return e
		}
	}
	return nil
}

func variables(e *etree.Element) *etree.Element {
	if v := xmldoc.Child(e, "variables"); v != nil {
		return v
	}
	return e
}

// Extract returns the active devices of class, sorted by name.
func (n *Network) Extract(class model.Class) ([]model.Record, error) {
	var recs []model.Record
	switch class {
	case model.Branch:
		recs = n.branches()
	case model.Bus:
		recs = n.buses()
	case model.Generator:
		recs = n.injections(class, model.Gen, Groupes, "groupe", "pc", "qc", true)
	case model.Load:
		recs = n.injections(class, model.SingleLoad, Consos, "conso", "peci", "reci", false)
	case model.Shunt:
		recs = n.injections(class, model.ShuntComp, Shunts, "shunt", "p", "q", false)
	default:
		return nil, fmt.Errorf("refnet: extract: unsupported class %v", class)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
	return recs, nil
}

func branchSubtype(e *etree.Element) model.Subtype {
	switch {
	case xmldoc.Child(e, "dephaseur") != nil:
		return model.PhaseShifter
	case xmldoc.Child(e, "regleur") != nil:
		return model.Transformer
	}
	return model.Line
}

func (n *Network) branches() []model.Record {
	var out []model.Record
	for _, e := range n.Elements(Quadripoles, "quadripole") {
		v := variables(e)
		p1, p2 := xmldoc.FloatOr0(v, "por"), xmldoc.FloatOr0(v, "pex")
		if p1 == 0 || p2 == 0 {
			continue
		}
		name := xmldoc.Attr(e, "nom")
		bus1, ok1 := n.NodeName(xmldoc.Attr(e, "nor"))
		bus2, ok2 := n.NodeName(xmldoc.Attr(e, "nex"))
		if !ok1 || !ok2 {
			n.log.Warn("branch skipped", "element", name, "err", model.ErrUnresolved)
			continue
		}
		out = append(out, model.Record{
			Name:     name,
			Class:    model.Branch,
			Subtype:  branchSubtype(e),
			P:        p1,
			Q:        xmldoc.FloatOr0(v, "qor"),
			P2:       p2,
			Q2:       xmldoc.FloatOr0(v, "qex"),
			Bus1:     bus1,
			Bus2:     bus2,
			Topology: model.Numbered,
		})
	}
	return out
}

// buses returns the nodes touching at least one connected branch.
func (n *Network) buses() []model.Record {
	neighbors := map[string]map[string]struct{}{}
	for _, e := range n.Elements(Quadripoles, "quadripole") {
		a, ok1 := n.NodeName(xmldoc.Attr(e, "nor"))
		b, ok2 := n.NodeName(xmldoc.Attr(e, "nex"))
		if !ok1 || !ok2 {
			continue
		}
		for _, pair := range [][2]string{{a, b}, {b, a}} {
			if neighbors[pair[0]] == nil {
				neighbors[pair[0]] = map[string]struct{}{}
			}
			if pair[0] != pair[1] {
				neighbors[pair[0]][pair[1]] = struct{}{}
			}
		}
	}
	var out []model.Record
	for _, e := range n.Elements(Noeuds, "noeud") {
		name := xmldoc.Attr(e, "nom")
		set, ok := neighbors[name]
		if !ok {
			continue
		}
		ns := make([]string, 0, len(set))
		for nb := range set {
			ns = append(ns, nb)
		}
		sort.Strings(ns)
		v := variables(e)
		out = append(out, model.Record{
			Name:         name,
			Class:        model.Bus,
			Subtype:      model.BusBar,
			P:            xmldoc.FloatOr0(v, "u"),
			Q:            xmldoc.FloatOr0(v, "ph"),
			Bus1:         name,
			Topology:     model.Numbered,
			VoltageLevel: n.posteName[xmldoc.Attr(e, "poste")],
			Neighbors:    ns,
		})
	}
	return out
}

// injections reads a single-node device table. Connected devices are
// kept; with needFlow, devices with no output at all are dropped too.
func (n *Network) injections(class model.Class, sub model.Subtype, container, tag, pKey, qKey string, needFlow bool) []model.Record {
	var out []model.Record
	for _, e := range n.Elements(container, tag) {
		name := xmldoc.Attr(e, "nom")
		node := xmldoc.Attr(e, "noeud")
		if node == Disconnected {
			continue
		}
		v := variables(e)
		p, q := xmldoc.FloatOr0(v, pKey), xmldoc.FloatOr0(v, qKey)
		if needFlow && p == 0 && q == 0 {
			continue
		}
		bus, ok := n.NodeName(node)
		if !ok {
			n.log.Warn(tag+" skipped", "element", name, "err", model.ErrUnresolved)
			continue
		}
		out = append(out, model.Record{
			Name:         name,
			Class:        class,
			Subtype:      sub,
			P:            p,
			Q:            q,
			Bus1:         bus,
			Topology:     model.Numbered,
			VoltageLevel: n.posteName[xmldoc.Attr(e, "poste")],
		})
	}
	return out
}

// Touch is a quadripole with an end on some node, and which ends.
type Touch struct {
	Element *etree.Element
	From    bool
	To      bool
}

// BranchesAt returns the quadripoles with at least one end on node num,
// in document order.
func (n *Network) BranchesAt(num string) []Touch {
	var out []Touch
	for _, e := range n.Elements(Quadripoles, "quadripole") {
		t := Touch{Element: e, From: xmldoc.Attr(e, "nor") == num, To: xmldoc.Attr(e, "nex") == num}
		if t.From || t.To {
			out = append(out, t)
		}
	}
	return out
}

// CouplingsAt returns the couplings with an end on node num.
func (n *Network) CouplingsAt(num string) []*etree.Element {
	var out []*etree.Element
	for _, e := range n.Elements(Couplages, "couplage") {
		if xmldoc.Attr(e, "nor") == num || xmldoc.Attr(e, "nex") == num {
			out = append(out, e)
		}
	}
	return out
}
