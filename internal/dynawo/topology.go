package dynawo

import (
	"github.com/beevik/etree"

	"gridcontg/internal/model"
	"gridcontg/internal/xmldoc"
)

// busbar is a node-breaker busbar section with its solved voltage.
type busbar struct {
	id string
	v  float64
}

// Topology indexes the network file once. It holds strings and numbers
// only, never elements, so it stays valid across snapshot restores.
type Topology struct {
	busbars    map[string][]busbar // voltage level -> sections, document order
	substation map[string]string   // voltage level -> substation
	levels     map[string][]string // substation -> voltage levels, document order
	voltage    map[string][2]float64
	direct     map[string]string // bus-breaker bus -> voltage level
}

// disconnectedNode is the node of a terminal attached to nothing.
const disconnectedNode = "-1"

// Scope is the search area of indirect resolution.
type Scope int

const (
	ScopeVoltageLevel Scope = iota
	ScopeSubstation
)

func newTopology(network *etree.Element) *Topology {
	t := &Topology{
		busbars:    map[string][]busbar{},
		substation: map[string]string{},
		levels:     map[string][]string{},
		voltage:    map[string][2]float64{},
		direct:     map[string]string{},
	}
	for _, sub := range xmldoc.Children(network, "substation") {
		subID := xmldoc.Attr(sub, "id")
		for _, vl := range xmldoc.Children(sub, "voltageLevel") {
			vlID := xmldoc.Attr(vl, "id")
			t.substation[vlID] = subID
			t.levels[subID] = append(t.levels[subID], vlID)
			for _, b := range xmldoc.Descendants(xmldoc.Child(vl, "busBreakerTopology"), "bus") {
				id := xmldoc.Attr(b, "id")
				t.direct[id] = vlID
				t.voltage[id] = [2]float64{xmldoc.FloatOr0(b, "v"), xmldoc.FloatOr0(b, "angle")}
			}
			for _, bbs := range xmldoc.Descendants(xmldoc.Child(vl, "nodeBreakerTopology"), "busbarSection") {
				id := xmldoc.Attr(bbs, "id")
				v := xmldoc.FloatOr0(bbs, "v")
				t.busbars[vlID] = append(t.busbars[vlID], busbar{id: id, v: v})
				t.voltage[id] = [2]float64{v, xmldoc.FloatOr0(bbs, "angle")}
			}
		}
	}
	return t
}

// Terminal is one connection point of a device as written in the network
// file.
type Terminal struct {
	VoltageLevel   string
	Bus            string
	ConnectableBus string
	Node           string
}

// terminalOf reads the terminal of e at side. Single-port devices use the
// unsuffixed attributes and their parent voltage level.
func terminalOf(e *etree.Element, side model.Side, twoPort bool) Terminal {
	if !twoPort {
		var vl string
		if p := e.Parent(); p != nil && p.Tag == "voltageLevel" {
			vl = xmldoc.Attr(p, "id")
		}
		return Terminal{
			VoltageLevel:   vl,
			Bus:            xmldoc.Attr(e, "bus"),
			ConnectableBus: xmldoc.Attr(e, "connectableBus"),
			Node:           xmldoc.Attr(e, "node"),
		}
	}
	s := "1"
	if side == model.SideTo {
		s = "2"
	}
	return Terminal{
		VoltageLevel:   xmldoc.Attr(e, "voltageLevelId"+s),
		Bus:            xmldoc.Attr(e, "bus"+s),
		ConnectableBus: xmldoc.Attr(e, "connectableBus"+s),
		Node:           xmldoc.Attr(e, "node"+s),
	}
}

// Resolve returns the bus name of a terminal. A named bus (or, failing
// that, connectable bus) resolves directly; a node-breaker terminal
// resolves to the first busbar section with non-zero voltage in scope.
func (t *Topology) Resolve(term Terminal, scope Scope) (string, model.TopologyKind, bool) {
	if term.Bus != "" {
		return term.Bus, model.Direct, true
	}
	if term.ConnectableBus != "" {
		return term.ConnectableBus, model.Direct, true
	}
	if term.Node == "" || term.VoltageLevel == "" {
		return "", model.Indirect, false
	}
	levels := []string{term.VoltageLevel}
	if scope == ScopeSubstation {
		if sub, ok := t.substation[term.VoltageLevel]; ok {
			levels = t.levels[sub]
		}
	}
	for _, vl := range levels {
		for _, b := range t.busbars[vl] {
			if b.v != 0 {
				return b.id, model.Indirect, true
			}
		}
	}
	return "", model.Indirect, false
}

// IsDirect reports whether bus is a bus-breaker bus.
func (t *Topology) IsDirect(bus string) bool {
	_, ok := t.direct[bus]
	return ok
}

// Voltage returns the solved magnitude and angle of a bus or busbar
// section.
func (t *Topology) Voltage(bus string) (float64, float64) {
	v := t.voltage[bus]
	return v[0], v[1]
}

// VoltageLevelOf returns the voltage level of a bus-breaker bus.
func (t *Topology) VoltageLevelOf(bus string) string {
	return t.direct[bus]
}

// Buses returns every bus-breaker bus and busbar section of the network.
func (t *Topology) Buses() model.Catalog {
	c := model.Catalog{}
	for id := range t.voltage {
		c[id] = struct{}{}
	}
	return c
}
