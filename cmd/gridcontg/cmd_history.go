package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gridcontg/internal/display"
	"gridcontg/internal/format"
	"gridcontg/internal/store"
)

var historyFlags struct {
	db       string
	runID    string
	limit    int
	markdown bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded generation runs, or the cases of one run",
	Args:  exactArgs(0),
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.db, "db", "", "Run ledger path (default from config, else ./"+store.DefaultDBPath+")")
	f.StringVar(&historyFlags.runID, "run", "", "Show the cases of this run")
	f.IntVar(&historyFlags.limit, "limit", 20, "Runs to list, newest first; 0 lists all")
	f.BoolVar(&historyFlags.markdown, "markdown", false, "Print as Markdown")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	path := historyFlags.db
	if path == "" {
		root := cfg.OutputDir
		if root == "" {
			root = "."
		}
		path = cfg.LedgerPath(root)
	}
	if path == "" {
		return usageErrorf("history: the run ledger is disabled")
	}
	if _, err := os.Stat(path); err != nil {
		return usageErrorf("history: no ledger at %s", filepath.Clean(path))
	}
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer st.Close()

	mode := format.ASCII
	if historyFlags.markdown {
		mode = format.Markdown
	}
	if historyFlags.runID != "" {
		return printRunCases(cmd.OutOrStdout(), st, historyFlags.runID, mode)
	}
	return printRuns(cmd.OutOrStdout(), st, historyFlags.limit, mode)
}

func printRuns(w io.Writer, st store.Store, limit int, mode format.Mode) error {
	runs, err := st.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	tb := format.NewTable(mode)
	tb.Header("Run", "Started", "Class", "Mode", "Pairing", "Status", "Found", "Matched", "Generated", "Skipped")
	for _, r := range runs {
		tb.Row(r.ID, r.StartedAt, display.Class(r.Class), display.Mode(r.Mode), r.Pairing,
			display.Status(r.Status), r.Counts.Found, r.Counts.Matched, r.Counts.Generated, r.Counts.Skipped)
	}
	tb.Columns(
		format.Column{Number: 7, Align: format.AlignRight},
		format.Column{Number: 8, Align: format.AlignRight},
		format.Column{Number: 9, Align: format.AlignRight},
		format.Column{Number: 10, Align: format.AlignRight},
	)
	fmt.Fprintln(w, tb.String())
	return nil
}

func printRunCases(w io.Writer, st store.Store, id string, mode format.Mode) error {
	run, err := st.GetRun(id)
	if err != nil {
		return err
	}
	if run == nil {
		return usageErrorf("history: no run %s", id)
	}
	cases, err := st.ListCases(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Run:     %s\n", run.ID)
	fmt.Fprintf(w, "Base:    %s\n", run.BaseCase)
	fmt.Fprintf(w, "Class:   %s, %s\n", display.ClassWithCode(run.Class), display.Mode(run.Mode))
	fmt.Fprintf(w, "Pairing: %s\n", display.PairingWithCode(run.Pairing))
	fmt.Fprintf(w, "Status:  %s\n", display.Status(run.Status))
	if len(cases) == 0 {
		fmt.Fprintln(w, "No cases recorded.")
		return nil
	}
	tb := format.NewTable(mode)
	tb.Header("Case", "Events A", "Events B", "Diff 1", "Diff 2", "Score")
	for _, c := range cases {
		tb.Row(display.CaseDir(filepath.Base(c.Dir)), c.EventsA, c.EventsB,
			format.Percent(c.Diff1), format.Percent(c.Diff2), format.Value(c.Score))
	}
	tb.Columns(
		format.Column{Number: 2, Align: format.AlignRight},
		format.Column{Number: 3, Align: format.AlignRight},
		format.Column{Number: 4, Align: format.AlignRight},
		format.Column{Number: 5, Align: format.AlignRight},
		format.Column{Number: 6, Align: format.AlignRight},
	)
	fmt.Fprintln(w, tb.String())
	return nil
}
