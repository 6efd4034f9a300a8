package contingency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"gridcontg/internal/casefs"
	"gridcontg/internal/logging"
	"gridcontg/internal/match"
	"gridcontg/internal/model"
	"gridcontg/internal/outcome"
	"gridcontg/internal/sample"
	"gridcontg/internal/store"
)

// Reserved names under the output root.
const (
	StagingDir = ".contg_staging"
	LockFile   = ".gridcontg.lock"
)

// ErrLocked is returned when another run holds the output root.
var ErrLocked = errors.New("contingency: output directory is locked by another run")

// Options configure Run.
type Options struct {
	Class          model.Class
	Mode           model.Mode
	Sample         sample.Options
	AggregateLoads bool
	// OutputRoot receives the case directories and the summary CSV.
	OutputRoot string
	// Ledger records the run; nil disables it.
	Ledger store.Store
}

// Stats are the running counts shown to the user.
type Stats struct {
	Found     int
	Matched   int
	Selected  int
	Generated int
	Skipped   int
}

func (s Stats) counts() store.Counts {
	return store.Counts{
		Found:     s.Found,
		Matched:   s.Matched,
		Selected:  s.Selected,
		Generated: s.Generated,
		Skipped:   s.Skipped,
	}
}

// Case is one generated case.
type Case struct {
	Name    string
	Dir     string
	EventsA int
	EventsB int
	CurvesA int
	CurvesB int
	Outcome outcome.Row
}

// Skip is a selected device for which no case was written.
type Skip struct {
	Name string
	Err  error
}

// Result summarizes a run.
type Result struct {
	RunID   string
	Stats   Stats
	Cases   []Case
	Skipped []Skip
	// Report is the path of the summary CSV.
	Report string
}

// Prefix is the case directory prefix of class opened with mode.
func Prefix(class model.Class, mode model.Mode) string {
	if class != model.Branch {
		return class.String()
	}
	switch mode {
	case model.From:
		return "branchF"
	case model.To:
		return "branchT"
	}
	return "branchB"
}

// Run generates the contingency cases of opts.Class. Failures specific to
// one device skip that device; a filesystem failure stops the run, as does
// cancelling ctx.
func Run(ctx context.Context, ws *WorkingSet, opts Options) (*Result, error) {
	log := logging.New("contingency").With("class", opts.Class.String(), "pairing", string(ws.Pairing))
	mode := opts.Mode
	if opts.Class != model.Branch {
		mode = model.Both
	}

	if err := os.MkdirAll(opts.OutputRoot, 0o755); err != nil {
		return nil, &casefs.FSError{Op: "mkdir", Path: opts.OutputRoot, Err: err}
	}
	lock := flock.New(filepath.Join(opts.OutputRoot, LockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, &casefs.FSError{Op: "lock", Path: lock.Path(), Err: err}
	}
	if !locked {
		return nil, ErrLocked
	}
	defer func() { _ = lock.Unlock() }()

	res := &Result{}
	recsA, err := ws.A.Extract(opts.Class)
	if err != nil {
		return nil, err
	}
	recsB, err := ws.B.Extract(opts.Class)
	if err != nil {
		return nil, err
	}
	res.Stats.Found = len(recsA)

	matches := match.Records(opts.Class, recsA, recsB, ws.B.BusCatalog(), opts.AggregateLoads)
	res.Stats.Matched = len(matches)
	selected := sample.Select(matches.Names(), opts.Sample)
	res.Stats.Selected = len(selected)
	log.Info("devices matched",
		"found", res.Stats.Found, "in_"+ws.B.Label(), len(recsB),
		"matched", res.Stats.Matched, "selected", res.Stats.Selected)

	if opts.Ledger != nil {
		id, err := opts.Ledger.CreateRun(&store.Run{
			BaseCase:   ws.Base,
			OutputRoot: opts.OutputRoot,
			Pairing:    string(ws.Pairing),
			Class:      opts.Class.String(),
			Mode:       mode.String(),
			Seed:       opts.Sample.Seed,
			MaxCases:   opts.Sample.Max,
		})
		if err != nil {
			return nil, fmt.Errorf("contingency: record run: %w", err)
		}
		res.RunID = id
	}

	g := &generator{
		ws:       ws,
		mode:     mode,
		prefix:   Prefix(opts.Class, mode),
		out:      opts.OutputRoot,
		staging:  filepath.Join(opts.OutputRoot, StagingDir),
		mutable:  ws.MutableFiles(),
		catalogA: ws.A.BusCatalog(),
		catalogB: ws.B.BusCatalog(),
		recorder: outcome.NewRecorder(opts.Class),
		log:      log,
	}

	runErr := func() error {
		for _, name := range selected {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := g.generate(matches[name])
			var fsErr *casefs.FSError
			switch {
			case errors.As(err, &fsErr):
				return err
			case err != nil:
				res.Stats.Skipped++
				res.Skipped = append(res.Skipped, Skip{Name: name, Err: err})
				log.Warn("device skipped", "name", name, "error", err,
					"generated", res.Stats.Generated, "skipped", res.Stats.Skipped)
				continue
			}
			res.Stats.Generated++
			res.Cases = append(res.Cases, c)
			log.Info("case generated", "name", name, "dir", c.Dir,
				"generated", res.Stats.Generated, "skipped", res.Stats.Skipped,
				"remaining", len(selected)-res.Stats.Generated-res.Stats.Skipped)
			if opts.Ledger != nil {
				if _, err := opts.Ledger.AddCase(&store.Case{
					RunID:   res.RunID,
					Name:    c.Name,
					Dir:     c.Dir,
					EventsA: c.EventsA,
					EventsB: c.EventsB,
					CurvesA: c.CurvesA,
					CurvesB: c.CurvesB,
					Diff1:   c.Outcome.Diff1,
					Diff2:   c.Outcome.Diff2,
					Score:   c.Outcome.Score,
				}); err != nil {
					log.Warn("ledger case not recorded", "name", name, "error", err)
				}
			}
		}
		if err := casefs.Teardown(g.staging); err != nil {
			return err
		}
		report, err := g.recorder.WriteFile(opts.OutputRoot)
		if err != nil {
			return err
		}
		res.Report = report
		return nil
	}()

	if opts.Ledger != nil {
		status := store.StatusDone
		if runErr != nil {
			status = store.StatusAborted
		}
		if err := opts.Ledger.FinishRun(res.RunID, status, res.Stats.counts()); err != nil {
			log.Warn("ledger run not closed", "run", res.RunID, "error", err)
		}
	}
	if runErr != nil {
		log.Error("run aborted", "error", runErr,
			"generated", res.Stats.Generated, "skipped", res.Stats.Skipped)
		return res, runErr
	}
	log.Info("run complete",
		"found", res.Stats.Found, "matched", res.Stats.Matched,
		"generated", res.Stats.Generated, "skipped", res.Stats.Skipped,
		"report", res.Report)
	return res, nil
}

// generator writes the case of one match at a time.
type generator struct {
	ws       *WorkingSet
	mode     model.Mode
	prefix   string
	out      string
	staging  string
	mutable  []string
	catalogA model.Catalog
	catalogB model.Catalog
	recorder *outcome.Recorder
	log      *slog.Logger
}

// generate stages, edits, writes and saves one case. The working set is
// back in its prior state when generate returns, whatever the outcome.
func (g *generator) generate(m model.Match) (Case, error) {
	c := Case{Name: m.Name, Dir: filepath.Join(g.out, casefs.DirName(g.prefix, m.Name))}
	if err := casefs.Stage(g.ws.Base, g.staging, g.mutable); err != nil {
		return c, err
	}

	snap := g.ws.Snapshot()
	err := g.inject(m, &c)
	if err == nil {
		err = g.ws.Write(g.staging)
	}
	g.ws.Restore(snap)
	if err != nil {
		if terr := casefs.Teardown(g.staging); terr != nil {
			return c, terr
		}
		return c, err
	}

	if err := casefs.Save(g.staging, c.Dir); err != nil {
		return c, err
	}
	c.Outcome = g.recorder.Add(m, g.mode)
	return c, nil
}

func (g *generator) inject(m model.Match, c *Case) error {
	var err error
	if c.EventsA, err = g.ws.A.Disconnect(m.A, g.mode); err != nil {
		return fmt.Errorf("%s: %w", g.ws.A.Label(), err)
	}
	if c.EventsB, err = g.ws.B.Disconnect(m.B, g.mode); err != nil {
		return fmt.Errorf("%s: %w", g.ws.B.Label(), err)
	}
	buses := g.curveBuses(m.A)
	if c.CurvesA, err = g.ws.A.AddCurves(buses); err != nil {
		return fmt.Errorf("%s: %w", g.ws.A.Label(), err)
	}
	if c.CurvesB, err = g.ws.B.AddCurves(buses); err != nil {
		return fmt.Errorf("%s: %w", g.ws.B.Label(), err)
	}
	g.log.Debug("events injected", "name", m.Name,
		"events_a", c.EventsA, "events_b", c.EventsB, "curves", len(buses))
	return nil
}

// curveBuses returns the buses around rec known to both models: its own
// buses, then, for a bus, its neighbors.
func (g *generator) curveBuses(rec model.Record) []string {
	cands := rec.Buses()
	if rec.Class == model.Bus {
		cands = append(cands, rec.Neighbors...)
	}
	seen := map[string]bool{}
	var out []string
	for _, b := range cands {
		if seen[b] || !g.catalogA.Has(b) || !g.catalogB.Has(b) {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}
