// Package astre edits the time-domain reference simulator's input file:
// disconnections are topological events in the scenario section and
// voltage curves are courbe entries next to them.
package astre

import (
	"fmt"
	"path/filepath"

	"github.com/beevik/etree"

	"gridcontg/internal/logging"
	"gridcontg/internal/model"
	"gridcontg/internal/refnet"
	"gridcontg/internal/xmldoc"
)

// File is the input file's location relative to the base case.
const File = "Astre/donneesModelesEntree.xml"

// Event type codes of evtouvrtopo.
const (
	TypeNode       = "1"
	TypeGenerator  = "2"
	TypeLoad       = "3"
	TypeShunt      = "4"
	TypeCoupling   = "5"
	TypeQuadripole = "9"
)

// Sides of a quadripole opened by an event.
const (
	SideBoth = "0"
	SideFrom = "1"
	SideTo   = "2"
)

// Model is the reference input file of one base case.
type Model struct {
	base string
	net  *refnet.Network
}

// Open loads <base>/Astre/donneesModelesEntree.xml.
func Open(base string) (*Model, error) {
	net, err := refnet.Load(filepath.Join(base, File), "astre", logging.New("astre"))
	if err != nil {
		return nil, err
	}
	return &Model{base: base, net: net}, nil
}

// Label names the model in logs and summaries.
func (m *Model) Label() string { return "astre" }

// Network returns the indexed network section.
func (m *Model) Network() *refnet.Network { return m.net }

// Extract returns the active devices of class.
func (m *Model) Extract(class model.Class) ([]model.Record, error) {
	return m.net.Extract(class)
}

// BusCatalog returns every node name.
func (m *Model) BusCatalog() model.Catalog { return m.net.BusCatalog() }

// Documents returns the tree edited per contingency.
func (m *Model) Documents() []*xmldoc.Document {
	return []*xmldoc.Document{m.net.Document()}
}

// MutableFiles returns the input file's base-relative path.
func (m *Model) MutableFiles() []string { return []string{filepath.FromSlash(File)} }

// Write serializes the edited file into caseDir.
func (m *Model) Write(caseDir string) error {
	return m.net.Document().WriteFile(filepath.Join(caseDir, filepath.FromSlash(File)))
}

func (m *Model) scenario() *etree.Element {
	return xmldoc.Path(m.net.Document().Root(), "entrees", "scenario")
}

// topoEvent is one evtouvrtopo to emit.
type topoEvent struct {
	num, typ, side string
}

// Disconnect replaces the scenario's topological events with those that
// disconnect rec, timed like the first purged event. It returns the number
// of events written.
func (m *Model) Disconnect(rec model.Record, mode model.Mode) (int, error) {
	evs, err := m.events(rec, mode)
	if err != nil {
		return 0, err
	}
	sc := m.scenario()
	if sc == nil {
		return 0, &model.NoBaseEventError{Model: m.Label(), File: m.net.Document().Path}
	}
	var instant string
	found := false
	for _, e := range xmldoc.Children(sc, "evtouvrtopo") {
		if !found {
			instant, found = xmldoc.Attr(e, "instant"), true
		}
		xmldoc.Remove(e)
	}
	if !found {
		return 0, &model.NoBaseEventError{Model: m.Label(), File: m.net.Document().Path}
	}
	for _, ev := range evs {
		xmldoc.NewChild(sc, "evtouvrtopo",
			"instant", instant, "ouvrage", ev.num, "type", ev.typ, "cote", ev.side,
			"ouvrir", "true", "typeevt", "1")
	}
	return len(evs), nil
}

func modeSide(mode model.Mode) string {
	switch mode {
	case model.From:
		return SideFrom
	case model.To:
		return SideTo
	}
	return SideBoth
}

func (m *Model) num(class model.Class, name string) (string, error) {
	e := m.net.Find(class, name)
	if e == nil {
		return "", fmt.Errorf("astre: %v %s not found", class, name)
	}
	return xmldoc.Attr(e, "num"), nil
}

// events lists what disconnecting rec takes. A bus opens every
// quadripole end and coupling on it.
func (m *Model) events(rec model.Record, mode model.Mode) ([]topoEvent, error) {
	switch rec.Subtype {
	case model.Line, model.Transformer, model.PhaseShifter:
		num, err := m.num(model.Branch, rec.Name)
		if err != nil {
			return nil, err
		}
		return []topoEvent{{num, TypeQuadripole, modeSide(mode)}}, nil
	case model.BusBar:
		node, ok := m.net.NodeNum(rec.Name)
		if !ok {
			return nil, fmt.Errorf("astre: node %s not found", rec.Name)
		}
		var out []topoEvent
		for _, t := range m.net.BranchesAt(node) {
			side := SideBoth
			switch {
			case t.From && !t.To:
				side = SideFrom
			case t.To && !t.From:
				side = SideTo
			}
			out = append(out, topoEvent{xmldoc.Attr(t.Element, "num"), TypeQuadripole, side})
		}
		for _, c := range m.net.CouplingsAt(node) {
			out = append(out, topoEvent{xmldoc.Attr(c, "num"), TypeCoupling, SideBoth})
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("astre: node %s has nothing to open", rec.Name)
		}
		return out, nil
	case model.Gen:
		num, err := m.num(model.Generator, rec.Name)
		if err != nil {
			return nil, err
		}
		return []topoEvent{{num, TypeGenerator, SideBoth}}, nil
	case model.SingleLoad:
		num, err := m.num(model.Load, rec.Name)
		if err != nil {
			return nil, err
		}
		return []topoEvent{{num, TypeLoad, SideBoth}}, nil
	case model.LoadGroup:
		var out []topoEvent
		for _, mem := range rec.Members {
			num, err := m.num(model.Load, mem.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, topoEvent{num, TypeLoad, SideBoth})
		}
		return out, nil
	case model.ShuntComp:
		num, err := m.num(model.Shunt, rec.Name)
		if err != nil {
			return nil, err
		}
		return []topoEvent{{num, TypeShunt, SideBoth}}, nil
	}
	return nil, fmt.Errorf("astre: cannot disconnect %s %s", rec.Subtype, rec.Name)
}

// AddCurves requests the voltage curve of each bus known to the file.
func (m *Model) AddCurves(buses []string) (int, error) {
	sc := m.scenario()
	if sc == nil {
		return 0, fmt.Errorf("astre: %s: no scenario section", m.net.Document().Path)
	}
	n := 0
	for _, b := range buses {
		num, ok := m.net.NodeNum(b)
		if !ok {
			continue
		}
		xmldoc.NewChild(sc, "courbe",
			"nom", b+"_Upu_value", "typecourbe", "63", "ouvrage", num, "type", "7")
		n++
	}
	return n, nil
}
