package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullFloat converts a sql.NullFloat64 to a plain float64 (0 if null).
func nullFloat(nf sql.NullFloat64) float64 {
	if nf.Valid {
		return nf.Float64
	}
	return 0
}

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersionV2

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .gridcontg) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		// schema_version exists but is empty: treat as v1.
		v = schemaVersionV1
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", v); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}

	switch v {
	case currentSchemaVersion:
		return nil
	case schemaVersionV1:
		return s.migrateV1ToV2()
	default:
		return fmt.Errorf("unknown schema version %d", v)
	}
}

func (s *SqlStore) freshInstall() error {
	if _, err := s.db.Exec(schemaV2); err != nil {
		return fmt.Errorf("create v2 schema: %w", err)
	}
	if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// migrateV1ToV2 runs inside a transaction.
func (s *SqlStore) migrateV1ToV2() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(migrationV1ToV2); err != nil {
		return fmt.Errorf("v1→v2 migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration tx: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// --- Runs ---

func (s *SqlStore) CreateRun(r *Run) (string, error) {
	if r == nil {
		return "", errors.New("run is nil")
	}
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := r.Status
	if status == "" {
		status = StatusRunning
	}
	started := r.StartedAt
	if started == "" {
		started = nowUTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs(id, base_case, output_root, pairing, class, mode, seed, max_cases, status, started_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.BaseCase, r.OutputRoot, r.Pairing, r.Class, r.Mode, r.Seed, r.MaxCases, status, started,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

func (s *SqlStore) FinishRun(id, status string, c Counts) error {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, finished_at = ?,
		   found = ?, matched = ?, selected = ?, generated = ?, skipped = ?
		 WHERE id = ?`,
		status, nowUTC(), c.Found, c.Matched, c.Selected, c.Generated, c.Skipped, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: run %s not found", id)
	}
	return nil
}

const runColumns = `id, base_case, output_root, pairing, class, mode, seed, max_cases, status,
	started_at, finished_at, found, matched, selected, generated, skipped`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var finished sql.NullString
	err := row.Scan(
		&r.ID, &r.BaseCase, &r.OutputRoot, &r.Pairing, &r.Class, &r.Mode, &r.Seed, &r.MaxCases, &r.Status,
		&r.StartedAt, &finished,
		&r.Counts.Found, &r.Counts.Matched, &r.Counts.Selected, &r.Counts.Generated, &r.Counts.Skipped,
	)
	if err != nil {
		return nil, err
	}
	r.FinishedAt = nullStr(finished)
	return &r, nil
}

func (s *SqlStore) GetRun(id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first; limit <= 0 returns all.
func (s *SqlStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Cases ---

func (s *SqlStore) AddCase(c *Case) (int64, error) {
	if c == nil {
		return 0, errors.New("case is nil")
	}
	created := c.CreatedAt
	if created == "" {
		created = nowUTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO cases(run_id, name, dir, events_a, events_b, curves_a, curves_b, diff1, diff2, score, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.Name, c.Dir, c.EventsA, c.EventsB, c.CurvesA, c.CurvesB, c.Diff1, c.Diff2, c.Score, created,
	)
	if err != nil {
		return 0, fmt.Errorf("insert case: %w", err)
	}
	return res.LastInsertId()
}

// ListCases returns the cases of a run by decreasing score, ties by name.
func (s *SqlStore) ListCases(runID string) ([]*Case, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, name, dir, events_a, events_b, curves_a, curves_b, diff1, diff2, score, created_at
		 FROM cases WHERE run_id = ? ORDER BY score DESC, name`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()
	var out []*Case
	for rows.Next() {
		var c Case
		var d1, d2, score sql.NullFloat64
		if err := rows.Scan(
			&c.ID, &c.RunID, &c.Name, &c.Dir, &c.EventsA, &c.EventsB, &c.CurvesA, &c.CurvesB,
			&d1, &d2, &score, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		c.Diff1, c.Diff2, c.Score = nullFloat(d1), nullFloat(d2), nullFloat(score)
		out = append(out, &c)
	}
	return out, rows.Err()
}
