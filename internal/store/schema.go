package store

// schemaVersionV1 tracked runs and case directories only.
const schemaVersionV1 = 1

// schemaVersionV2 adds the outcome columns to cases.
const schemaVersionV2 = 2

// schemaV1 is kept to build v1 databases in migration tests.
var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	base_case   TEXT NOT NULL,
	output_root TEXT NOT NULL,
	pairing     TEXT NOT NULL,
	class       TEXT NOT NULL,
	mode        TEXT NOT NULL,
	seed        INTEGER NOT NULL,
	max_cases   INTEGER NOT NULL,
	status      TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	found       INTEGER NOT NULL DEFAULT 0,
	matched     INTEGER NOT NULL DEFAULT 0,
	selected    INTEGER NOT NULL DEFAULT 0,
	generated   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS cases (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	dir        TEXT NOT NULL,
	events_a   INTEGER NOT NULL,
	events_b   INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
`

// schemaV2 is the fresh-install DDL.
var schemaV2 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	base_case   TEXT NOT NULL,
	output_root TEXT NOT NULL,
	pairing     TEXT NOT NULL,
	class       TEXT NOT NULL,
	mode        TEXT NOT NULL,
	seed        INTEGER NOT NULL,
	max_cases   INTEGER NOT NULL,
	status      TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	found       INTEGER NOT NULL DEFAULT 0,
	matched     INTEGER NOT NULL DEFAULT 0,
	selected    INTEGER NOT NULL DEFAULT 0,
	generated   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS cases (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	dir        TEXT NOT NULL,
	events_a   INTEGER NOT NULL,
	events_b   INTEGER NOT NULL,
	curves_a   INTEGER NOT NULL DEFAULT 0,
	curves_b   INTEGER NOT NULL DEFAULT 0,
	diff1      REAL,
	diff2      REAL,
	score      REAL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cases_run ON cases(run_id);
`

// migrationV1ToV2 adds the outcome columns.
var migrationV1ToV2 = `
ALTER TABLE cases ADD COLUMN curves_a INTEGER NOT NULL DEFAULT 0;
ALTER TABLE cases ADD COLUMN curves_b INTEGER NOT NULL DEFAULT 0;
ALTER TABLE cases ADD COLUMN diff1 REAL;
ALTER TABLE cases ADD COLUMN diff2 REAL;
ALTER TABLE cases ADD COLUMN score REAL;
CREATE INDEX IF NOT EXISTS idx_cases_run ON cases(run_id);
UPDATE schema_version SET version = 2;
`
