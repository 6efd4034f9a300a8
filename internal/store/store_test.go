package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// Compile-time interface checks.
var (
	_ Store = (*SqlStore)(nil)
	_ Store = (*MemStore)(nil)
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := Open(filepath.Join(t.TempDir(), DefaultDBPath))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"sqlite": sq, "memory": NewMemStore()}
}

func TestStore_RunLifecycle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.CreateRun(&Run{
				BaseCase: "/cases/base", OutputRoot: "/cases", Pairing: "astre",
				Class: "branch", Mode: "both", Seed: 42, MaxCases: 20,
			})
			if err != nil {
				t.Fatalf("CreateRun: %v", err)
			}
			if _, err := uuid.Parse(id); err != nil {
				t.Errorf("run id %q is not a uuid: %v", id, err)
			}

			r, err := s.GetRun(id)
			if err != nil || r == nil {
				t.Fatalf("GetRun: got %+v err %v", r, err)
			}
			if r.Status != StatusRunning || r.FinishedAt != "" || r.Seed != 42 {
				t.Errorf("fresh run: %+v", r)
			}

			want := Counts{Found: 3, Matched: 3, Selected: 2, Generated: 1, Skipped: 1}
			if err := s.FinishRun(id, StatusDone, want); err != nil {
				t.Fatalf("FinishRun: %v", err)
			}
			r, _ = s.GetRun(id)
			if r.Status != StatusDone || r.FinishedAt == "" || r.Counts != want {
				t.Errorf("finished run: %+v", r)
			}

			if err := s.FinishRun("nope", StatusDone, Counts{}); err == nil {
				t.Error("FinishRun on unknown id: want error")
			}
			missing, err := s.GetRun("nope")
			if err != nil || missing != nil {
				t.Errorf("GetRun unknown: got %+v err %v", missing, err)
			}
		})
	}
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var ids []string
			for _, class := range []string{"branch", "bus", "load"} {
				id, err := s.CreateRun(&Run{Class: class, StartedAt: "2026-10-16T10:00:00Z"})
				if err != nil {
					t.Fatalf("CreateRun: %v", err)
				}
				ids = append(ids, id)
			}
			all, err := s.ListRuns(0)
			if err != nil || len(all) != 3 {
				t.Fatalf("ListRuns(0): got %d err %v", len(all), err)
			}
			if all[0].ID != ids[2] || all[2].ID != ids[0] {
				t.Errorf("order: got %s,%s,%s", all[0].Class, all[1].Class, all[2].Class)
			}
			two, _ := s.ListRuns(2)
			if len(two) != 2 {
				t.Errorf("ListRuns(2): got %d", len(two))
			}
		})
	}
}

func TestStore_CasesByScore(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			runID, err := s.CreateRun(&Run{Class: "branch"})
			if err != nil {
				t.Fatalf("CreateRun: %v", err)
			}
			for _, c := range []*Case{
				{Name: "L12", Dir: "/o/astre#L12", EventsA: 1, EventsB: 1, Score: 1.5},
				{Name: "TR1", Dir: "/o/astre#TR1", EventsA: 1, EventsB: 1, Score: 12},
				{Name: "L2B3", Dir: "/o/astre#L2B3", EventsA: 1, EventsB: 1, Score: 1.5, CurvesA: 2, CurvesB: 2},
			} {
				c.RunID = runID
				if _, err := s.AddCase(c); err != nil {
					t.Fatalf("AddCase: %v", err)
				}
			}
			got, err := s.ListCases(runID)
			if err != nil {
				t.Fatalf("ListCases: %v", err)
			}
			var names []string
			for _, c := range got {
				names = append(names, c.Name)
			}
			want := []string{"TR1", "L12", "L2B3"}
			if len(names) != len(want) {
				t.Fatalf("got %v, want %v", names, want)
			}
			for i := range want {
				if names[i] != want[i] {
					t.Errorf("case %d: got %s, want %s", i, names[i], want[i])
				}
			}
			if got[2].CurvesA != 2 || got[2].CreatedAt == "" {
				t.Errorf("L2B3 case: %+v", got[2])
			}
			empty, err := s.ListCases("other")
			if err != nil || len(empty) != 0 {
				t.Errorf("ListCases other: got %d err %v", len(empty), err)
			}
		})
	}
}

func TestSqlStore_MigratesV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec(schemaV1); err != nil {
		t.Fatalf("create v1: %v", err)
	}
	if _, err := db.Exec("INSERT INTO schema_version(version) VALUES(1)"); err != nil {
		t.Fatalf("set v1: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO runs(id, base_case, output_root, pairing, class, mode, seed, max_cases, status, started_at)
		 VALUES('r1', 'b', 'o', 'hades', 'bus', 'both', 1, 5, 'done', '2026-01-01T00:00:00Z')`,
	); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO cases(run_id, name, dir, events_a, events_b, created_at)
		 VALUES('r1', 'B1', 'o/hades#B1', 1, 2, '2026-01-01T00:00:00Z')`,
	); err != nil {
		t.Fatalf("seed case: %v", err)
	}
	_ = db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open v1: %v", err)
	}
	defer s.Close()

	var v int
	if err := s.db.QueryRow("SELECT version FROM schema_version").Scan(&v); err != nil || v != schemaVersionV2 {
		t.Fatalf("version after migration: %d err %v", v, err)
	}
	cases, err := s.ListCases("r1")
	if err != nil || len(cases) != 1 {
		t.Fatalf("ListCases after migration: got %d err %v", len(cases), err)
	}
	if c := cases[0]; c.Name != "B1" || c.EventsB != 2 || c.Score != 0 || c.CurvesA != 0 {
		t.Errorf("migrated case: %+v", c)
	}
}

func TestSqlStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := s.CreateRun(&Run{Class: "gen"})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	r, err := s.GetRun(id)
	if err != nil || r == nil || r.Class != "gen" {
		t.Errorf("GetRun after reopen: %+v err %v", r, err)
	}
}
