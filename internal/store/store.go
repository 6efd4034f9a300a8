// Package store keeps a ledger of generation runs and the cases each one
// wrote, so that a later session can tell which contingencies already
// exist and how they scored.
package store

// DefaultDBPath is the ledger location relative to an output root. Open
// creates the parent directory.
const DefaultDBPath = ".gridcontg/ledger.db"

// Run statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusAborted = "aborted"
)

// Counts are the per-stage element counts of a run.
type Counts struct {
	Found     int
	Matched   int
	Selected  int
	Generated int
	Skipped   int
}

// Run is one invocation of the generator.
type Run struct {
	ID         string // uuid, assigned by CreateRun
	BaseCase   string
	OutputRoot string
	Pairing    string
	Class      string
	Mode       string
	Seed       int64
	MaxCases   int
	Status     string
	StartedAt  string
	FinishedAt string
	Counts     Counts
}

// Case is one generated contingency directory.
type Case struct {
	ID        int64
	RunID     string
	Name      string
	Dir       string
	EventsA   int
	EventsB   int
	CurvesA   int
	CurvesB   int
	Diff1     float64
	Diff2     float64
	Score     float64
	CreatedAt string
}

// Store is the persistence facade of the ledger. The engine and the CLI
// use only this interface; the implementation is SQLite or in-memory.
type Store interface {
	CreateRun(r *Run) (string, error)
	FinishRun(id, status string, c Counts) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	AddCase(c *Case) (int64, error)
	ListCases(runID string) ([]*Case, error)

	Close() error
}
