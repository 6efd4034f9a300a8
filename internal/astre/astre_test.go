package astre

import (
	"errors"
	"os"
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
	m, err := Open(testutil.BaseCase(t, "astre"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return m
}

// scenarioEvents renders each evtouvrtopo as "instant/ouvrage/type/cote".
func scenarioEvents(m *Model) []string {
	var out []string
	for _, e := range xmldoc.Children(m.scenario(), "evtouvrtopo") {
		out = append(out, strings.Join([]string{
			xmldoc.Attr(e, "instant"), xmldoc.Attr(e, "ouvrage"),
			xmldoc.Attr(e, "type"), xmldoc.Attr(e, "cote"),
		}, "/"))
	}
	return out
}

func TestDisconnect(t *testing.T) {
	tests := []struct {
		name string
		rec  model.Record
		mode model.Mode
		want []string
	}{
		{"branch both", model.Record{Name: "TR1", Subtype: model.Transformer}, model.Both, []string{"300/5/9/0"}},
		{"branch from", model.Record{Name: "L12", Subtype: model.Line}, model.From, []string{"300/1/9/1"}},
		{"branch to", model.Record{Name: "L12", Subtype: model.Line}, model.To, []string{"300/1/9/2"}},
		{"generator", model.Record{Name: "G3", Subtype: model.Gen}, model.Both, []string{"300/2/2/0"}},
		{"load", model.Record{Name: "LD1", Subtype: model.SingleLoad}, model.Both, []string{"300/1/3/0"}},
		{"shunt", model.Record{Name: "SH2", Subtype: model.ShuntComp}, model.Both, []string{"300/1/4/0"}},
		{
			"bus opens every end on it",
			model.Record{Name: "B2", Subtype: model.BusBar}, model.Both,
			[]string{"300/1/9/2", "300/2/9/2", "300/6/9/1", "300/1/5/0"},
		},
		{
			"load group",
			model.Record{Name: "B2", Subtype: model.LoadGroup, Members: []model.Record{{Name: "LD2_MERGED"}}}, model.Both,
			[]string{"300/2/3/0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := openFixture(t)
			n, err := m.Disconnect(tt.rec, tt.mode)
			if err != nil {
				t.Fatalf("Disconnect: %v", err)
			}
			if n != len(tt.want) {
				t.Errorf("count = %d, want %d", n, len(tt.want))
			}
			if diff := cmp.Diff(tt.want, scenarioEvents(m)); diff != "" {
				t.Errorf("events (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDisconnect_NoBaseEvent(t *testing.T) {
	base := testutil.BaseCase(t, "astre")
	content := strings.Replace(testutil.Astre,
		`      <evtouvrtopo instant="300" ouvrage="1" type="9" cote="0" ouvrir="true" typeevt="1"/>`+"\n", "", 1)
	testutil.WriteFiles(t, base, map[string]string{testutil.AstreFile: content})
	m, err := Open(base)
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Disconnect(model.Record{Name: "L12", Subtype: model.Line}, model.Both)
	var nb *model.NoBaseEventError
	if !errors.As(err, &nb) {
		t.Fatalf("expected NoBaseEventError, got %v", err)
	}
}

func TestDisconnect_UnknownElement(t *testing.T) {
	m := openFixture(t)
	if _, err := m.Disconnect(model.Record{Name: "NOPE", Subtype: model.Line}, model.Both); err == nil {
		t.Fatal("expected an error")
	}
	if got := scenarioEvents(m); len(got) != 1 {
		t.Errorf("a failed disconnection must leave the scenario alone, got %v", got)
	}
}

func TestAddCurvesAndWrite(t *testing.T) {
	m := openFixture(t)
	n, err := m.AddCurves([]string{"B2", "UNKNOWN"})
	if err != nil || n != 1 {
		t.Fatalf("AddCurves = %d, %v", n, err)
	}
	dir := t.TempDir()
	if err := m.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, File))
	if err != nil {
		t.Fatal(err)
	}
	s := string(got)
	if !strings.HasPrefix(s, `<?xml version="1.0" encoding="ISO-8859-1"?>`) {
		t.Errorf("declaration changed: %q", s[:60])
	}
	if !strings.Contains(s, `<courbe nom="B2_Upu_value" typecourbe="63" ouvrage="3" type="7"/>`) {
		t.Errorf("curve missing:\n%s", s)
	}
	if !strings.Contains(s, "CH\xc2TEAU") {
		t.Error("latin-1 name not written back as latin-1")
	}
}

func TestMutableFiles(t *testing.T) {
	m := openFixture(t)
	if diff := cmp.Diff([]string{filepath.FromSlash(File)}, m.MutableFiles()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
