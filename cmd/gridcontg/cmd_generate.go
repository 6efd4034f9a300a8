package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"gridcontg/internal/contingency"
	"gridcontg/internal/display"
	"gridcontg/internal/format"
	"gridcontg/internal/model"
	"gridcontg/internal/sample"
	"gridcontg/internal/store"
)

var generateFlags struct {
	pairing        string
	filters        []string
	all            bool
	seed           int64
	maxCases       int
	mode           string
	outputDir      string
	db             string
	aggregateLoads bool
	markdown       bool
}

var generateCmd = &cobra.Command{
	Use:   "generate <class> <base_case>",
	Short: "Generate one contingency case per selected element",
	Long: "Generate disconnects each selected element of <class> (branch, branchF,\n" +
		"branchT, branchB, bus, gen, load, shunt) in both models of <base_case> and\n" +
		"writes one case directory per element next to the base case, plus the\n" +
		"contg_<class>_pq_diffs.csv mismatch report.",
	Args: exactArgs(2),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.pairing, "pairing", "", "Simulator pairing: astre, hades, dynawo (default from config, else astre)")
	f.StringSliceVar(&generateFlags.filters, "filter", nil, "Regular expressions selecting element names; ignores --max-cases")
	f.BoolVar(&generateFlags.all, "all", false, "Generate every matched element")
	f.Int64Var(&generateFlags.seed, "random-seed", 0, "Seed of the random selection (default from config, else 42)")
	f.IntVar(&generateFlags.maxCases, "max-cases", 0, "Expected number of randomly selected cases (default from config, else 20)")
	f.StringVar(&generateFlags.mode, "mode", "", "Branch ends to open: from, to, both")
	f.StringVar(&generateFlags.outputDir, "output-dir", "", "Where case directories go (default: the base case's parent)")
	f.StringVar(&generateFlags.db, "db", "", "Run ledger path; empty disables it (default <output-dir>/"+store.DefaultDBPath+")")
	f.BoolVar(&generateFlags.aggregateLoads, "aggregate-loads", false, "Match loads left unmatched by name as per-bus groups")
	f.BoolVar(&generateFlags.markdown, "markdown", false, "Print the summary as Markdown")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	class, mode, err := model.ParseClass(args[0])
	if err != nil {
		return usageError{err}
	}
	flags := cmd.Flags()
	if flags.Changed("mode") {
		if mode, err = model.ParseMode(generateFlags.mode); err != nil {
			return usageError{err}
		}
	}

	base := args[1]
	info, err := os.Stat(base)
	if err != nil {
		return usageErrorf("base case: %w", err)
	}
	if !info.IsDir() {
		return usageErrorf("base case %s is not a directory", base)
	}

	pairingName := cfg.Pairing
	if flags.Changed("pairing") {
		pairingName = generateFlags.pairing
	}
	pairing, err := contingency.ParsePairing(pairingName)
	if err != nil {
		return usageError{err}
	}

	filters, err := sample.CompileFilters(generateFlags.filters)
	if err != nil {
		return usageError{err}
	}
	sel := sample.Options{
		Filters: filters,
		All:     generateFlags.all,
		Seed:    cfg.Seed(),
		Max:     cfg.MaxCases,
	}
	if flags.Changed("random-seed") {
		sel.Seed = generateFlags.seed
	}
	if flags.Changed("max-cases") {
		sel.Max = generateFlags.maxCases
	}
	if sel.Max < 0 {
		return usageErrorf("--max-cases must not be negative")
	}

	outRoot := cfg.OutputRoot(base)
	if flags.Changed("output-dir") {
		outRoot = generateFlags.outputDir
	}
	ledgerPath := cfg.LedgerPath(outRoot)
	if flags.Changed("db") {
		ledgerPath = generateFlags.db
	}

	opts := contingency.Options{
		Class:          class,
		Mode:           mode,
		Sample:         sel,
		AggregateLoads: cfg.AggregateLoads || generateFlags.aggregateLoads,
		OutputRoot:     outRoot,
	}
	if ledgerPath != "" {
		st, err := store.Open(ledgerPath)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer st.Close()
		opts.Ledger = st
	}

	start := time.Now()
	ws, err := contingency.Open(cmd.Context(), pairing, base)
	if err != nil {
		return err
	}
	res, err := contingency.Run(cmd.Context(), ws, opts)
	if res != nil {
		printSummary(cmd.OutOrStdout(), ws, res, contingency.Prefix(class, mode), time.Since(start))
	}
	return err
}

func printSummary(w io.Writer, ws *contingency.WorkingSet, res *contingency.Result, prefix string, elapsed time.Duration) {
	mode := format.ASCII
	if generateFlags.markdown {
		mode = format.Markdown
	}

	tb := format.NewTable(mode)
	tb.Title(fmt.Sprintf("%s, %s", display.Class(prefix), display.PairingWithCode(string(ws.Pairing))))
	tb.Header("Case", "Events "+ws.A.Label(), "Events "+ws.B.Label(), "Curves", "Score")
	for _, c := range res.Cases {
		tb.Row(filepath.Base(c.Dir), c.EventsA, c.EventsB, c.CurvesA, format.Value(c.Outcome.Score))
	}
	tb.Columns(
		format.Column{Number: 2, Align: format.AlignRight},
		format.Column{Number: 3, Align: format.AlignRight},
		format.Column{Number: 4, Align: format.AlignRight},
		format.Column{Number: 5, Align: format.AlignRight},
	)
	if len(res.Cases) > 0 {
		fmt.Fprintln(w, tb.String())
	}

	s := res.Stats
	fmt.Fprintf(w, "Found %d, matched %d, selected %d, generated %d, skipped %d in %s\n",
		s.Found, s.Matched, s.Selected, s.Generated, s.Skipped, format.Duration(elapsed))
	for _, sk := range res.Skipped {
		fmt.Fprintf(w, "  skipped %s: %v\n", sk.Name, sk.Err)
	}
	if res.Report != "" {
		fmt.Fprintf(w, "Report: %s\n", res.Report)
	}
	if res.RunID != "" {
		fmt.Fprintf(w, "Run:    %s\n", res.RunID)
	}
}
