// Package match pairs the devices of two models by name.
package match

import (
	"sort"

	"gridcontg/internal/model"
)

// ByName keeps the names active in both a and b.
func ByName(a, b []model.Record) model.MatchSet {
	idx := make(map[string]model.Record, len(b))
	for _, r := range b {
		idx[r.Name] = r
	}
	out := model.MatchSet{}
	for _, r := range a {
		if rb, ok := idx[r.Name]; ok {
			out[r.Name] = model.Match{Name: r.Name, A: r, B: rb}
		}
	}
	return out
}

// Buses matches buses by name and additionally requires every neighbor
// of the bus in a to exist in catalogB, so that the neighborhood the
// contingency disturbs is comparable.
func Buses(a, b []model.Record, catalogB model.Catalog) model.MatchSet {
	out := ByName(a, b)
	for name, m := range out {
		if !catalogB.HasAll(m.A.Neighbors) {
			delete(out, name)
		}
	}
	return out
}

// Loads matches loads by name. With aggregate, loads left unmatched on
// both sides are grouped and the groups matched by name. The group key is
// the resolved bus (Bus1), not the voltage level: two buses of one voltage
// level give two groups, each named after its bus.
func Loads(a, b []model.Record, aggregate bool) model.MatchSet {
	out := ByName(a, b)
	if !aggregate {
		return out
	}
	var restA, restB []model.Record
	for _, r := range a {
		if _, ok := out[r.Name]; !ok {
			restA = append(restA, r)
		}
	}
	for _, r := range b {
		if _, ok := out[r.Name]; !ok {
			restB = append(restB, r)
		}
	}
	for name, m := range ByName(GroupByBus(restA), GroupByBus(restB)) {
		if _, taken := out[name]; taken {
			continue
		}
		out[name] = m
	}
	return out
}

// GroupByBus aggregates loads sharing a bus into LoadGroup records named
// after the bus, with summed flows and members sorted by name.
func GroupByBus(loads []model.Record) []model.Record {
	groups := map[string]*model.Record{}
	var order []string
	for _, l := range loads {
		g, ok := groups[l.Bus1]
		if !ok {
			g = &model.Record{
				Name:         l.Bus1,
				Class:        model.Load,
				Subtype:      model.LoadGroup,
				Bus1:         l.Bus1,
				Topology:     l.Topology,
				VoltageLevel: l.VoltageLevel,
			}
			groups[l.Bus1] = g
			order = append(order, l.Bus1)
		}
		g.P += l.P
		g.Q += l.Q
		g.Members = append(g.Members, l)
	}
	sort.Strings(order)
	out := make([]model.Record, 0, len(order))
	for _, bus := range order {
		g := groups[bus]
		sort.Slice(g.Members, func(i, j int) bool { return g.Members[i].Name < g.Members[j].Name })
		out = append(out, *g)
	}
	return out
}

// Records dispatches to the matcher of class.
func Records(class model.Class, a, b []model.Record, catalogB model.Catalog, aggregateLoads bool) model.MatchSet {
	switch class {
	case model.Bus:
		return Buses(a, b, catalogB)
	case model.Load:
		return Loads(a, b, aggregateLoads)
	}
	return ByName(a, b)
}
