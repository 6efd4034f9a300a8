package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gridcontg/internal/format"
	"gridcontg/internal/outcome"
)

var reportFlags struct {
	top      int
	markdown bool
}

var reportCmd = &cobra.Command{
	Use:   "report <summary.csv>",
	Short: "Render a mismatch report written by generate",
	Args:  exactArgs(1),
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.IntVar(&reportFlags.top, "top", 20, "Rows to show, worst first; 0 shows all")
	f.BoolVar(&reportFlags.markdown, "markdown", false, "Print as Markdown")
}

func runReport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return usageErrorf("report: %w", err)
	}
	defer f.Close()
	rep, err := outcome.ReadCSV(f)
	if err != nil {
		return err
	}
	mode := format.ASCII
	if reportFlags.markdown {
		mode = format.Markdown
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, rep.Table(mode, reportFlags.top))
	if reportFlags.top > 0 && len(rep.Rows) > reportFlags.top {
		fmt.Fprintf(out, "%d of %d elements shown\n", reportFlags.top, len(rep.Rows))
	}
	return nil
}
