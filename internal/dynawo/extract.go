package dynawo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"gridcontg/internal/model"
	"gridcontg/internal/xmldoc"
)

// LoadLibPrefix starts the library name of every dynamic load model.
const LoadLibPrefix = "Load"

// Extract returns the active devices of class, sorted by name. Devices
// whose bus cannot be resolved are skipped with a warning.
func (m *Model) Extract(class model.Class) ([]model.Record, error) {
	var recs []model.Record
	switch class {
	case model.Branch:
		recs = m.activeBranches()
	case model.Bus:
		recs = m.buses()
	case model.Generator:
		recs = m.generators()
	case model.Load:
		recs = m.loads()
	case model.Shunt:
		recs = m.shunts()
	default:
		return nil, fmt.Errorf("dynawo: extract: unsupported class %v", class)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
	return recs, nil
}

// BusCatalog returns every bus name the network defines.
func (m *Model) BusCatalog() model.Catalog { return m.topo.Buses() }

func (m *Model) branchElements() []*etree.Element {
	root := m.network.Root()
	out := xmldoc.Children(root, "line")
	for _, sub := range xmldoc.Children(root, "substation") {
		out = append(out, xmldoc.Children(sub, "twoWindingsTransformer")...)
	}
	// Transformers written at network level by newer exporters.
	out = append(out, xmldoc.Children(root, "twoWindingsTransformer")...)
	return out
}

func branchSubtype(e *etree.Element) model.Subtype {
	if e.Tag == "line" {
		return model.Line
	}
	if xmldoc.Child(e, "phaseTapChanger") != nil {
		return model.PhaseShifter
	}
	return model.Transformer
}

// branch resolves both ends of a branch element. ok is false when either
// end has no bus.
func (m *Model) branch(e *etree.Element, scope Scope) (model.Record, bool) {
	bus1, k1, ok1 := m.topo.Resolve(terminalOf(e, model.SideFrom, true), scope)
	bus2, k2, ok2 := m.topo.Resolve(terminalOf(e, model.SideTo, true), scope)
	if !ok1 || !ok2 {
		return model.Record{}, false
	}
	kind := model.Direct
	if k1 == model.Indirect || k2 == model.Indirect {
		kind = model.Indirect
	}
	return model.Record{
		Name:         xmldoc.Attr(e, "id"),
		Class:        model.Branch,
		Subtype:      branchSubtype(e),
		P:            xmldoc.FloatOr0(e, "p1"),
		Q:            xmldoc.FloatOr0(e, "q1"),
		P2:           xmldoc.FloatOr0(e, "p2"),
		Q2:           xmldoc.FloatOr0(e, "q2"),
		Bus1:         bus1,
		Bus2:         bus2,
		Topology:     kind,
		VoltageLevel: xmldoc.Attr(e, "voltageLevelId1"),
	}, true
}

// activeBranches keeps branches with flow at both ends.
func (m *Model) activeBranches() []model.Record {
	var out []model.Record
	for _, e := range m.branchElements() {
		if xmldoc.FloatOr0(e, "p1") == 0 || xmldoc.FloatOr0(e, "p2") == 0 {
			continue
		}
		r, ok := m.branch(e, ScopeVoltageLevel)
		if !ok {
			m.log.Warn("branch skipped", "element", xmldoc.Attr(e, "id"), "err", model.ErrUnresolved)
			continue
		}
		out = append(out, r)
	}
	return out
}

// buses returns the buses touching at least one connected branch whose
// own topology and every neighbor's are bus-breaker.
func (m *Model) buses() []model.Record {
	neighbors := map[string]map[string]struct{}{}
	link := func(a, b string) {
		if neighbors[a] == nil {
			neighbors[a] = map[string]struct{}{}
		}
		if a != b {
			neighbors[a][b] = struct{}{}
		}
	}
	for _, e := range m.branchElements() {
		r, ok := m.branch(e, ScopeSubstation)
		if !ok {
			continue
		}
		link(r.Bus1, r.Bus2)
		link(r.Bus2, r.Bus1)
	}
	var out []model.Record
	for bus, set := range neighbors {
		if !m.topo.IsDirect(bus) {
			continue
		}
		ns := make([]string, 0, len(set))
		direct := true
		for n := range set {
			direct = direct && m.topo.IsDirect(n)
			ns = append(ns, n)
		}
		if !direct {
			m.log.Debug("bus skipped: neighbor behind node-breaker topology", "element", bus)
			continue
		}
		sort.Strings(ns)
		v, angle := m.topo.Voltage(bus)
		out = append(out, model.Record{
			Name:         bus,
			Class:        model.Bus,
			Subtype:      model.BusBar,
			P:            v,
			Q:            angle,
			Bus1:         bus,
			Topology:     model.Direct,
			VoltageLevel: m.topo.VoltageLevelOf(bus),
			Neighbors:    ns,
		})
	}
	return out
}

// injection resolves a single-port device.
func (m *Model) injection(e *etree.Element, class model.Class, sub model.Subtype) (model.Record, bool) {
	term := terminalOf(e, model.SideFrom, false)
	bus, kind, ok := m.topo.Resolve(term, ScopeVoltageLevel)
	if !ok {
		return model.Record{}, false
	}
	return model.Record{
		Name:         xmldoc.Attr(e, "id"),
		Class:        class,
		Subtype:      sub,
		Bus1:         bus,
		Topology:     kind,
		VoltageLevel: term.VoltageLevel,
	}, true
}

// generators keeps generators with any output. Flows are reported in
// generation convention, the opposite sign of the network file.
func (m *Model) generators() []model.Record {
	var out []model.Record
	for _, e := range xmldoc.Descendants(m.network.Root(), "generator") {
		p, q := xmldoc.FloatOr0(e, "p"), xmldoc.FloatOr0(e, "q")
		if p == 0 && q == 0 {
			continue
		}
		r, ok := m.injection(e, model.Generator, model.Gen)
		if !ok {
			m.log.Warn("generator skipped", "element", xmldoc.Attr(e, "id"), "err", model.ErrUnresolved)
			continue
		}
		r.P, r.Q = -p, -q
		r.DynModel = m.dynModels[r.Name]
		out = append(out, r)
	}
	return out
}

// loads enumerates the dynamic load models and reads the static load each
// one drives.
func (m *Model) loads() []model.Record {
	static := map[string]*etree.Element{}
	for _, e := range xmldoc.Descendants(m.network.Root(), "load") {
		static[xmldoc.Attr(e, "id")] = e
	}
	var out []model.Record
	seen := map[string]bool{}
	for _, bbm := range xmldoc.Children(m.dyd.Root(), "blackBoxModel") {
		if !strings.HasPrefix(xmldoc.Attr(bbm, "lib"), LoadLibPrefix) {
			continue
		}
		id := xmldoc.Attr(bbm, "staticId")
		e, ok := static[id]
		if !ok {
			m.log.Warn("load model without static load", "model", xmldoc.Attr(bbm, "id"), "staticId", id)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		r, ok := m.injection(e, model.Load, model.SingleLoad)
		if !ok {
			m.log.Warn("load skipped", "element", id, "err", model.ErrUnresolved)
			continue
		}
		r.P, r.Q = xmldoc.FloatOr0(e, "p"), xmldoc.FloatOr0(e, "q")
		r.DynModel = xmldoc.Attr(bbm, "id")
		out = append(out, r)
	}
	return out
}

// shunts keeps connected shunts: a bus attribute, or a node other than
// the disconnected one.
func (m *Model) shunts() []model.Record {
	var out []model.Record
	for _, e := range xmldoc.Descendants(m.network.Root(), "shunt") {
		node := xmldoc.Attr(e, "node")
		if !xmldoc.HasAttr(e, "bus") && (node == "" || node == disconnectedNode) {
			continue
		}
		r, ok := m.injection(e, model.Shunt, model.ShuntComp)
		if !ok {
			m.log.Warn("shunt skipped", "element", xmldoc.Attr(e, "id"), "err", model.ErrUnresolved)
			continue
		}
		r.P, r.Q = xmldoc.FloatOr0(e, "p"), xmldoc.FloatOr0(e, "q")
		out = append(out, r)
	}
	return out
}
