package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gridcontg/internal/format"
	"gridcontg/internal/jobs"
)

var pathsFlags struct {
	markdown bool
}

var pathsCmd = &cobra.Command{
	Use:   "paths <case_dir>",
	Short: "Show the files and timing a dynamic case's job descriptor names",
	Args:  exactArgs(1),
	RunE:  runPaths,
}

func init() {
	pathsCmd.Flags().BoolVar(&pathsFlags.markdown, "markdown", false, "Print as Markdown")
}

func runPaths(cmd *cobra.Command, args []string) error {
	dir := args[0]
	paths, err := jobs.GetPaths(dir)
	if err != nil {
		return err
	}
	tp, err := jobs.GetTimeParams(dir)
	if err != nil {
		return err
	}

	mode := format.ASCII
	if pathsFlags.markdown {
		mode = format.Markdown
	}
	tb := format.NewTable(mode)
	tb.Header("Item", "Value")
	tb.Row("Job descriptor", paths.JobFile)
	tb.Row("Network", paths.NetworkFile)
	tb.Row("Dynamic models", paths.DydFile)
	tb.Row("Parameters", paths.ParFile)
	tb.Row("Curves", paths.CurveFile)
	tb.Row("Start time", formatTime(tp.Start))
	tb.Row("Stop time", formatTime(tp.Stop))
	event := "none"
	if tp.HasEvent {
		event = formatTime(tp.EventTime)
	}
	tb.Row("Seed event time", event)
	fmt.Fprintln(cmd.OutOrStdout(), tb.String())
	return nil
}

func formatTime(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
