package match

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"gridcontg/internal/model"
)

func rec(name string) model.Record { return model.Record{Name: name} }

func TestByName(t *testing.T) {
	a := []model.Record{rec("L1"), rec("L2"), rec("L3")}
	b := []model.Record{rec("L2"), rec("L3"), rec("L4")}
	got := ByName(a, b)
	assert.Equal(t, []string{"L2", "L3"}, got.Names())
	assert.Equal(t, "L2", got["L2"].B.Name)
}

func TestByName_Empty(t *testing.T) {
	assert.Empty(t, ByName(nil, []model.Record{rec("X")}))
	assert.Empty(t, ByName([]model.Record{rec("X")}, nil))
}

func TestBuses_NeighborContainment(t *testing.T) {
	a := []model.Record{
		{Name: "B1", Neighbors: []string{"B2", "B3"}},
		{Name: "B2", Neighbors: []string{"B1", "B9"}},
	}
	b := []model.Record{rec("B1"), rec("B2")}
	cat := model.NewCatalog("B1", "B2", "B3")
	got := Buses(a, b, cat)
	assert.Equal(t, []string{"B1"}, got.Names())
}

func TestLoads_Aggregation(t *testing.T) {
	a := []model.Record{
		{Name: "LD1", Bus1: "B1", P: 80, Q: 20},
		{Name: "LD2X", Bus1: "B2", P: 15, Q: 3},
		{Name: "LD2", Bus1: "B2", P: 40, Q: 10},
		{Name: "LD9", Bus1: "B9", P: 1, Q: 1},
	}
	b := []model.Record{
		{Name: "LD1", Bus1: "B1", P: 80, Q: 20},
		{Name: "LD2_MERGED", Bus1: "B2", P: 55, Q: 13},
	}

	plain := Loads(a, b, false)
	assert.Equal(t, []string{"LD1"}, plain.Names())

	agg := Loads(a, b, true)
	assert.Equal(t, []string{"B2", "LD1"}, agg.Names())
	g := agg["B2"]
	assert.Equal(t, model.LoadGroup, g.A.Subtype)
	assert.Equal(t, 55.0, g.A.P)
	assert.Equal(t, 13.0, g.A.Q)
	var members []string
	for _, m := range g.A.Members {
		members = append(members, m.Name)
	}
	if diff := cmp.Diff([]string{"LD2", "LD2X"}, members); diff != "" {
		t.Errorf("members (-want +got):\n%s", diff)
	}
	assert.Equal(t, "LD2_MERGED", g.B.Members[0].Name)
}

func TestGroupByBus_Sorted(t *testing.T) {
	got := GroupByBus([]model.Record{
		{Name: "b", Bus1: "Z"},
		{Name: "a", Bus1: "A"},
	})
	assert.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, "Z", got[1].Name)
}

func TestGroupByBus_KeyIsBusNotVoltageLevel(t *testing.T) {
	got := GroupByBus([]model.Record{
		{Name: "LA", Bus1: "BBS1", VoltageLevel: "VL"},
		{Name: "LB", Bus1: "BBS2", VoltageLevel: "VL"},
		{Name: "LC", Bus1: "BBS1", VoltageLevel: "VL"},
	})
	if len(got) != 2 {
		t.Fatalf("got %d groups, want 2", len(got))
	}
	if diff := cmp.Diff([]string{"BBS1", "BBS2"}, []string{got[0].Name, got[1].Name}); diff != "" {
		t.Fatalf("groups (-want +got):\n%s", diff)
	}
	assert.Len(t, got[0].Members, 2)
	assert.Len(t, got[1].Members, 1)
}

func TestRecords_Dispatch(t *testing.T) {
	a := []model.Record{{Name: "B1", Neighbors: []string{"MISSING"}}}
	b := []model.Record{rec("B1")}
	assert.Empty(t, Records(model.Bus, a, b, model.NewCatalog("B1"), false))
	assert.Len(t, Records(model.Branch, a, b, nil, false), 1)
}
