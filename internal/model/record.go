package model

import "sort"

// Record is a read-only snapshot of one electrically active device as seen
// by one simulator model.
type Record struct {
	Name    string
	Class   Class
	Subtype Subtype

	// P and Q are the steady-state flows at the origin end (or the
	// device's only end). For buses they hold the voltage magnitude and
	// angle.
	P, Q float64
	// P2 and Q2 are the extremity-end flows of a branch.
	P2, Q2 float64

	Bus1, Bus2 string
	Topology   TopologyKind

	// DynModel is the id of the dynamic sub-model driving this static
	// device, empty when the device has none.
	DynModel string

	// VoltageLevel is the owning voltage level (reference: substation).
	VoltageLevel string

	// Neighbors lists, sorted, the buses one branch away from a bus.
	Neighbors []string
	// Members lists, sorted, the loads aggregated into a LoadGroup.
	Members []Record
}

// HasDynModel reports whether a dynamic sub-model drives the device.
func (r Record) HasDynModel() bool { return r.DynModel != "" }

// Kind returns the dispatch discriminator of the record.
func (r Record) Kind() Kind {
	return Kind{Subtype: r.Subtype, HasDynModel: r.HasDynModel()}
}

// Buses returns the distinct resolved buses of the device, origin first.
func (r Record) Buses() []string {
	var out []string
	if r.Bus1 != "" {
		out = append(out, r.Bus1)
	}
	if r.Bus2 != "" && r.Bus2 != r.Bus1 {
		out = append(out, r.Bus2)
	}
	return out
}

// Values returns the pair of quantities compared for the device when it is
// opened with mode m: the extremity flows for a branch opened at TO only,
// the origin values otherwise.
func (r Record) Values(m Mode) (float64, float64) {
	if r.Class == Branch && m == To {
		return r.P2, r.Q2
	}
	return r.P, r.Q
}

// Kind is the {subtype, dynamic model} discriminator used to pick an
// injection strategy.
type Kind struct {
	Subtype     Subtype
	HasDynModel bool
}

// Catalog is the set of device names present in one model for one class.
type Catalog map[string]struct{}

// NewCatalog builds a catalog from names.
func NewCatalog(names ...string) Catalog {
	c := make(Catalog, len(names))
	for _, n := range names {
		c[n] = struct{}{}
	}
	return c
}

// Has reports whether name is in the catalog.
func (c Catalog) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// HasAll reports whether every name is in the catalog.
func (c Catalog) HasAll(names []string) bool {
	for _, n := range names {
		if !c.Has(n) {
			return false
		}
	}
	return true
}

// Sorted returns the catalog names in lexical order.
func (c Catalog) Sorted() []string {
	out := make([]string, 0, len(c))
	for n := range c {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Match pairs the records of one element in both models.
type Match struct {
	Name string
	A    Record
	B    Record
}

// MatchSet maps element names to their pair of records. Every key is
// active and present in both models.
type MatchSet map[string]Match

// Names returns the keys of the set in lexical order.
func (m MatchSet) Names() []string {
	out := make([]string, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
