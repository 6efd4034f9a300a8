package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gridcontg/internal/config"
	"gridcontg/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// invocationPrefix marks the alias binaries that imply "generate".
const invocationPrefix = "gridcontg_"

var rootFlags struct {
	config    string
	logLevel  string
	logFormat string
	verbose   bool
}

// cfg is the configuration loaded before any subcommand runs.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "gridcontg",
	Short: "Cross-model power-grid contingency generator",
	Long: "gridcontg disconnects one grid element at a time in two simulators' models of\n" +
		"the same base case, writes one case directory per element, and reports the\n" +
		"pre-disconnection mismatch between the two models.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.config, "config", "", "Config file (default ./"+config.DefaultFile+" when present)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text, json, console")
	pf.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Shorthand for --log-level=debug")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.Version = version

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
}

func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.LoadFromPath(rootFlags.config)
	if err != nil {
		return usageError{err}
	}
	cfg = c
	level := cfg.Log.Level
	if rootFlags.logLevel != "" {
		level = rootFlags.logLevel
	}
	if rootFlags.verbose {
		level = "debug"
	}
	format := cfg.Log.Format
	if rootFlags.logFormat != "" {
		format = rootFlags.logFormat
	}
	logging.Init(logging.ParseLevel(level), format, cmd.ErrOrStderr())
	return nil
}

// usageError marks invalid or missing arguments; the process exits with 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// invocationArgs rewrites the arguments of an alias binary into a
// generate call: "gridcontg_branchF base" -> "generate branchF base".
func invocationArgs(argv0 string, args []string) []string {
	name := strings.TrimSuffix(filepath.Base(argv0), filepath.Ext(argv0))
	alias, ok := strings.CutPrefix(name, invocationPrefix)
	if !ok || alias == "" {
		return args
	}
	return append([]string{"generate", alias}, args...)
}

// execute runs the CLI with argv and returns the process exit code.
func execute(argv []string, stdout, stderr io.Writer) int {
	args := []string{}
	if len(argv) > 1 {
		args = argv[1:]
	}
	if len(argv) > 0 {
		args = invocationArgs(argv[0], args)
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "gridcontg:", err)
	var ue usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}
