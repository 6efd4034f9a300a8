package dynawo

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gridcontg/internal/model"
	"gridcontg/internal/testutil"
	"gridcontg/internal/xmldoc"
)

func openFixture(t *testing.T) *Model {
	t.Helper()
	base := testutil.BaseCase(t, "astre")
	m, err := Open(context.Background(), "A", base, base)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return m
}

func names(recs []model.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func extract(t *testing.T, m *Model, c model.Class) []model.Record {
	t.Helper()
	recs, err := m.Extract(c)
	if err != nil {
		t.Fatalf("Extract(%v): %v", c, err)
	}
	return recs
}

func TestExtract_Branches(t *testing.T) {
	m := openFixture(t)
	recs := extract(t, m, model.Branch)
	if diff := cmp.Diff([]string{"L12", "L1B2B", "L2B3", "PS2", "TR1"}, names(recs)); diff != "" {
		t.Fatalf("branches (-want +got):\n%s", diff)
	}
	byName := map[string]model.Record{}
	for _, r := range recs {
		byName[r.Name] = r
	}
	if got := byName["PS2"].Subtype; got != model.PhaseShifter {
		t.Errorf("PS2 subtype = %v", got)
	}
	if got := byName["TR1"].Subtype; got != model.Transformer {
		t.Errorf("TR1 subtype = %v", got)
	}
	l := byName["L2B3"]
	if l.Bus2 != "BBS3B" || l.Topology != model.Indirect {
		t.Errorf("L2B3 far end = %q (%v), want BBS3B indirect", l.Bus2, l.Topology)
	}
	if l12 := byName["L12"]; l12.P != 100 || l12.P2 != -99 {
		t.Errorf("L12 flows = %v/%v", l12.P, l12.P2)
	}
}

func TestExtract_Buses(t *testing.T) {
	m := openFixture(t)
	recs := extract(t, m, model.Bus)
	if diff := cmp.Diff([]string{"B1", "B1B", "B2"}, names(recs)); diff != "" {
		t.Fatalf("buses (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B1B", "B2"}, recs[0].Neighbors); diff != "" {
		t.Errorf("B1 neighbors (-want +got):\n%s", diff)
	}
	if recs[0].P != 402 || recs[0].VoltageLevel != "VL1" {
		t.Errorf("B1 = %+v", recs[0])
	}
}

func TestExtract_Generators(t *testing.T) {
	m := openFixture(t)
	recs := extract(t, m, model.Generator)
	if diff := cmp.Diff([]string{"G1", "G3"}, names(recs)); diff != "" {
		t.Fatalf("generators (-want +got):\n%s", diff)
	}
	g1, g3 := recs[0], recs[1]
	if g1.P != 150 || g1.Q != 20 || g1.DynModel != "GEN_G1" {
		t.Errorf("G1 = %+v", g1)
	}
	if g3.HasDynModel() || g3.Bus1 != "BBS3B" {
		t.Errorf("G3 = %+v", g3)
	}
}

func TestExtract_LoadsAndShunts(t *testing.T) {
	m := openFixture(t)
	loads := extract(t, m, model.Load)
	if diff := cmp.Diff([]string{"LD1", "LD2", "LD2X", "LD3"}, names(loads)); diff != "" {
		t.Errorf("loads (-want +got):\n%s", diff)
	}
	shunts := extract(t, m, model.Shunt)
	if diff := cmp.Diff([]string{"SH2", "SH3"}, names(shunts)); diff != "" {
		t.Errorf("shunts (-want +got):\n%s", diff)
	}
	for _, r := range shunts {
		if r.Name == "SH3" && (r.Bus1 != "BBS3B" || r.Topology != model.Indirect) {
			t.Errorf("SH3 resolved to %s (%v), want BBS3B indirect", r.Bus1, r.Topology)
		}
	}
}

func TestResolve(t *testing.T) {
	m := openFixture(t)
	tests := []struct {
		name     string
		term     Terminal
		scope    Scope
		wantBus  string
		wantKind model.TopologyKind
		wantOK   bool
	}{
		{"bus", Terminal{Bus: "B1"}, ScopeVoltageLevel, "B1", model.Direct, true},
		{"connectable", Terminal{ConnectableBus: "B2"}, ScopeVoltageLevel, "B2", model.Direct, true},
		{"node skips dead section", Terminal{VoltageLevel: "VL3", Node: "4"}, ScopeVoltageLevel, "BBS3B", model.Indirect, true},
		{"node in bus-breaker level", Terminal{VoltageLevel: "VL1", Node: "4"}, ScopeVoltageLevel, "", model.Indirect, false},
		{"nothing", Terminal{}, ScopeVoltageLevel, "", model.Indirect, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, kind, ok := m.Topology().Resolve(tt.term, tt.scope)
			if bus != tt.wantBus || kind != tt.wantKind || ok != tt.wantOK {
				t.Errorf("Resolve = %q, %v, %v", bus, kind, ok)
			}
		})
	}
}

func TestDisconnect_Branch(t *testing.T) {
	m := openFixture(t)
	rec := model.Record{Name: "L12", Class: model.Branch, Subtype: model.Line}
	n, err := m.Disconnect(rec, model.From)
	if err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if n != 1 || m.EventCount() != 1 {
		t.Errorf("events = %d / %d, want 1", n, m.EventCount())
	}
	dyd := m.dyd.String()
	for _, want := range []string{
		`<dyn:blackBoxModel id="Disconnect my branch" lib="EventQuadripoleDisconnection" parFile="case.par" parId="99991234"/>`,
		`<dyn:connect id1="Disconnect my branch" var1="event_state1_value" id2="NETWORK" var2="L12_state_value"/>`,
	} {
		if !strings.Contains(dyd, want) {
			t.Errorf("dyd lacks %s:\n%s", want, dyd)
		}
	}
	if strings.Count(dyd, `id1="Disconnect my branch"`) != 1 {
		t.Errorf("seed connection not purged:\n%s", dyd)
	}
	par := m.par.String()
	for _, want := range []string{
		`<par type="DOUBLE" name="event_tEvent" value="300"/>`,
		`<par type="BOOL" name="event_disconnectOrigin" value="true"/>`,
		`<par type="BOOL" name="event_disconnectExtremity" value="false"/>`,
	} {
		if !strings.Contains(par, want) {
			t.Errorf("par lacks %s:\n%s", want, par)
		}
	}
	if strings.Count(par, `id="99991234"`) != 1 {
		t.Errorf("expected one event parameter set:\n%s", par)
	}
}

func TestDisconnect_Dispatch(t *testing.T) {
	tests := []struct {
		name    string
		rec     model.Record
		lib     string
		connect string
	}{
		{
			name:    "generator with model",
			rec:     model.Record{Name: "G1", Class: model.Generator, Subtype: model.Gen, DynModel: "GEN_G1"},
			lib:     "EventSetPointBoolean",
			connect: `id2="GEN_G1" var2="generator_switchOffSignal2"`,
		},
		{
			name:    "generator without model",
			rec:     model.Record{Name: "G3", Class: model.Generator, Subtype: model.Gen},
			lib:     "EventConnectedStatus",
			connect: `id2="NETWORK" var2="G3_state_value"`,
		},
		{
			name:    "load",
			rec:     model.Record{Name: "LD1", Class: model.Load, Subtype: model.SingleLoad, DynModel: "LOAD_LD1"},
			lib:     "EventSetPointBoolean",
			connect: `id2="LOAD_LD1" var2="load_switchOffSignal2"`,
		},
		{
			name:    "bus",
			rec:     model.Record{Name: "B1", Class: model.Bus, Subtype: model.BusBar},
			lib:     "EventConnectedStatus",
			connect: `id2="NETWORK" var2="B1_state_value"`,
		},
		{
			name:    "shunt",
			rec:     model.Record{Name: "SH2", Class: model.Shunt, Subtype: model.ShuntComp},
			lib:     "EventConnectedStatus",
			connect: `id2="NETWORK" var2="SH2_state_value"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := openFixture(t)
			if _, err := m.Disconnect(tt.rec, model.Both); err != nil {
				t.Fatalf("Disconnect: %v", err)
			}
			dyd := m.dyd.String()
			if !strings.Contains(dyd, `lib="`+tt.lib+`"`) || !strings.Contains(dyd, tt.connect) {
				t.Errorf("dyd:\n%s", dyd)
			}
		})
	}
}

func TestDisconnect_LoadGroup(t *testing.T) {
	m := openFixture(t)
	group := model.Record{
		Name: "B2", Class: model.Load, Subtype: model.LoadGroup,
		Members: []model.Record{
			{Name: "LD2", DynModel: "LOAD_LD2"},
			{Name: "LD2X", DynModel: "LOAD_LD2X"},
		},
	}
	if _, err := m.Disconnect(group, model.Both); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	root := m.dyd.Root()
	var connects []string
	for _, c := range xmldoc.Children(root, "connect") {
		if xmldoc.Attr(c, "id1") == "Disconnect my load" {
			connects = append(connects, xmldoc.Attr(c, "id2"))
		}
	}
	if diff := cmp.Diff([]string{"LOAD_LD2", "LOAD_LD2X"}, connects); diff != "" {
		t.Errorf("group connects (-want +got):\n%s", diff)
	}
	if m.EventCount() != 1 {
		t.Errorf("EventCount = %d", m.EventCount())
	}
}

func TestDisconnect_NoBaseEvent(t *testing.T) {
	base := testutil.BaseCase(t, "astre")
	dyd := strings.ReplaceAll(testutil.Dyd, `lib="EventQuadripoleDisconnection"`, `lib="Custom"`)
	testutil.WriteFiles(t, base, map[string]string{testutil.DydFile: dyd})
	m, err := Open(context.Background(), "A", base, base)
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Disconnect(model.Record{Name: "L12", Class: model.Branch, Subtype: model.Line}, model.Both)
	var nb *model.NoBaseEventError
	if !errors.As(err, &nb) {
		t.Fatalf("expected NoBaseEventError, got %v", err)
	}
}

// eventsInOwnFile moves the seed event's parameter set out of the network
// parameter file into events.par, firing at 250.
func eventsInOwnFile(t *testing.T, base string) {
	t.Helper()
	start := strings.Index(testutil.Par, `  <set id="99991234">`)
	end := strings.Index(testutil.Par, `</parametersSet>`)
	set := strings.Replace(testutil.Par[start:end], `value="300"/>`, `value="250"/>`, 1)
	events := "<?xml version='1.0' encoding='UTF-8'?>\n" +
		`<parametersSet xmlns="http://www.rte-france.com/dynawo">` + "\n" + set + "</parametersSet>\n"
	testutil.WriteFiles(t, base, map[string]string{
		testutil.ParFile: testutil.Par[:start] + testutil.Par[end:],
		"events.par":     events,
		testutil.DydFile: strings.Replace(testutil.Dyd,
			`parFile="case.par" parId="99991234"`, `parFile="events.par" parId="99991234"`, 1),
	})
}

func TestDisconnect_SeedEventInOwnParFile(t *testing.T) {
	base := testutil.BaseCase(t, "astre")
	eventsInOwnFile(t, base)
	m, err := Open(context.Background(), "A", base, base)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if diff := cmp.Diff([]string{testutil.DydFile, testutil.ParFile, testutil.CurveFile, "events.par"}, m.MutableFiles()); diff != "" {
		t.Errorf("MutableFiles (-want +got):\n%s", diff)
	}

	n, err := m.Disconnect(model.Record{Name: "L12", Class: model.Branch, Subtype: model.Line}, model.Both)
	if err != nil || n != 1 {
		t.Fatalf("Disconnect = %d, %v", n, err)
	}
	par := m.par.String()
	if !strings.Contains(par, `name="event_tEvent" value="250"`) {
		t.Errorf("event instant not taken from events.par:\n%s", par)
	}
	if events := m.eventPars[0].String(); strings.Contains(events, "99991234") {
		t.Errorf("seed event set left in events.par:\n%s", events)
	}
}

func TestOpen_MissingEventParFile(t *testing.T) {
	base := testutil.BaseCase(t, "astre")
	testutil.WriteFiles(t, base, map[string]string{
		testutil.DydFile: strings.Replace(testutil.Dyd,
			`parFile="case.par" parId="99991234"`, `parFile="gone.par" parId="99991234"`, 1),
	})
	_, err := Open(context.Background(), "A", base, base)
	var missing *model.MissingFileError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFileError, got %v", err)
	}
	if missing.Path != filepath.Join(base, "gone.par") {
		t.Errorf("missing path = %s", missing.Path)
	}
}

func TestDisconnect_UnknownKind(t *testing.T) {
	m := openFixture(t)
	_, err := m.Disconnect(model.Record{Name: "SH2", Subtype: model.ShuntComp, DynModel: "X"}, model.Both)
	if err == nil {
		t.Fatal("expected an error for a kind without strategy")
	}
}

func TestAddCurvesAndWrite(t *testing.T) {
	m := openFixture(t)
	n, err := m.AddCurves([]string{"B1", "B2"})
	if err != nil || n != 2 {
		t.Fatalf("AddCurves = %d, %v", n, err)
	}
	if diff := cmp.Diff([]string{testutil.DydFile, testutil.ParFile, testutil.CurveFile}, m.MutableFiles()); diff != "" {
		t.Errorf("MutableFiles (-want +got):\n%s", diff)
	}
	out := t.TempDir()
	if err := m.Write(out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	tree := testutil.Tree(t, out)
	crv := tree[testutil.CurveFile]
	if !strings.Contains(crv, `  <curve model="NETWORK" variable="B2_Upu_value"/>`+"\n</curvesInput>") {
		t.Errorf("curve file:\n%s", crv)
	}
	if _, ok := tree[filepath.ToSlash(testutil.NetworkFile)]; ok {
		t.Error("network file must not be rewritten")
	}
}

func TestSnapshotRestore_NoLeak(t *testing.T) {
	m := openFixture(t)
	before := map[string]string{}
	for _, d := range m.Documents() {
		before[d.Path] = d.String()
	}
	snaps := make([]xmldoc.Snapshot, 0, 3)
	for _, d := range m.Documents() {
		snaps = append(snaps, d.Snapshot())
	}
	if _, err := m.Disconnect(model.Record{Name: "G1", Class: model.Generator, Subtype: model.Gen, DynModel: "GEN_G1"}, model.Both); err != nil {
		t.Fatal(err)
	}
	for i, d := range m.Documents() {
		d.Restore(snaps[i])
	}
	for _, d := range m.Documents() {
		if diff := cmp.Diff(before[d.Path], d.String()); diff != "" {
			t.Errorf("%s leaked (-want +got):\n%s", d.Path, diff)
		}
	}
}
