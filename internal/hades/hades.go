// Package hades edits the static reference simulator's input file. A
// device is disconnected by pointing its node reference(s) at -1; a
// coupling is opened by setting its etat to 0. The file has no timing and
// no curves.
package hades

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
const File = "Hades/donneesEntreeHADES2.xml"

// Model is the static reference input file of one base case.
type Model struct {
	net *refnet.Network
}

// Open loads <base>/Hades/donneesEntreeHADES2.xml.
func Open(base string) (*Model, error) {
	net, err := refnet.Load(filepath.Join(base, File), "hades", logging.New("hades"))
	if err != nil {
		return nil, err
	}
	return &Model{net: net}, nil
}

// Label names the model in logs and summaries.
func (m *Model) Label() string { return "hades" }

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

// Disconnect rewrites the node references of rec. It returns the number of
// elements disconnected: one for a branch whatever the ends opened.
func (m *Model) Disconnect(rec model.Record, mode model.Mode) (int, error) {
	switch rec.Subtype {
	case model.Line, model.Transformer, model.PhaseShifter:
		e, err := m.find(model.Branch, rec.Name)
		if err != nil {
			return 0, err
		}
		if mode.Opens(model.SideFrom) {
			e.CreateAttr("nor", refnet.Disconnected)
		}
		if mode.Opens(model.SideTo) {
			e.CreateAttr("nex", refnet.Disconnected)
		}
		return 1, nil
	case model.BusBar:
		return m.isolate(rec.Name)
	case model.Gen:
		return m.unplug(model.Generator, rec.Name)
	case model.SingleLoad:
		return m.unplug(model.Load, rec.Name)
	case model.LoadGroup:
		total := 0
		for _, mem := range rec.Members {
			n, err := m.unplug(model.Load, mem.Name)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	case model.ShuntComp:
		return m.unplug(model.Shunt, rec.Name)
	}
	return 0, fmt.Errorf("hades: cannot disconnect %s %s", rec.Subtype, rec.Name)
}

func (m *Model) find(class model.Class, name string) (*etree.Element, error) {
	e := m.net.Find(class, name)
	if e == nil {
		return nil, fmt.Errorf("hades: %v %s not found", class, name)
	}
	return e, nil
}

func (m *Model) unplug(class model.Class, name string) (int, error) {
	e, err := m.find(class, name)
	if err != nil {
		return 0, err
	}
	e.CreateAttr("noeud", refnet.Disconnected)
	return 1, nil
}

// isolate opens every quadripole end and coupling on the node.
func (m *Model) isolate(bus string) (int, error) {
	node, ok := m.net.NodeNum(bus)
	if !ok {
		return 0, fmt.Errorf("hades: node %s not found", bus)
	}
	n := 0
	for _, t := range m.net.BranchesAt(node) {
		if t.From {
			t.Element.CreateAttr("nor", refnet.Disconnected)
		}
		if t.To {
			t.Element.CreateAttr("nex", refnet.Disconnected)
		}
		n++
	}
	for _, c := range m.net.CouplingsAt(node) {
		c.CreateAttr("etat", "0")
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("hades: node %s has nothing to open", bus)
	}
	return n, nil
}

// AddCurves is a no-op: the static simulator produces no curves.
func (m *Model) AddCurves([]string) (int, error) { return 0, nil }
