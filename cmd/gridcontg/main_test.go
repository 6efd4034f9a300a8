package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gridcontg/internal/testutil"
)

// resetFlags puts every flag back to its default so that tests sharing
// the package-level commands do not see each other's values.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func runCLI(t *testing.T, argv ...string) (int, string, string) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	code := execute(argv, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestInvocationArgs(t *testing.T) {
	tests := []struct {
		argv0 string
		args  []string
		want  []string
	}{
		{"gridcontg", []string{"report", "x.csv"}, []string{"report", "x.csv"}},
		{"/usr/local/bin/gridcontg_branchF", []string{"base"}, []string{"generate", "branchF", "base"}},
		{"gridcontg_branchT.exe", []string{"base", "--all"}, []string{"generate", "branchT", "base", "--all"}},
		{"gridcontg_", []string{"base"}, []string{"base"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, invocationArgs(tt.argv0, tt.args)); diff != "" {
			t.Errorf("invocationArgs(%q) (-want +got):\n%s", tt.argv0, diff)
		}
	}
}

func TestExitCodes(t *testing.T) {
	base := testutil.BaseCase(t, "astre")
	empty := t.TempDir()
	tests := []struct {
		name string
		argv []string
		want int
	}{
		{"missing arguments", []string{"gridcontg", "generate", "branch"}, 2},
		{"unknown class", []string{"gridcontg", "generate", "valve", base}, 2},
		{"unknown flag", []string{"gridcontg", "generate", "bus", base, "--bogus"}, 2},
		{"missing base case", []string{"gridcontg", "generate", "bus", filepath.Join(empty, "nope")}, 2},
		{"bad mode", []string{"gridcontg", "generate", "branch", base, "--mode", "sideways"}, 2},
		{"bad pairing", []string{"gridcontg", "generate", "bus", base, "--pairing", "eurostag"}, 2},
		{"bad filter", []string{"gridcontg", "generate", "bus", base, "--filter", "("}, 2},
		{"unknown command", []string{"gridcontg", "simulate"}, 2},
		{"base case without job descriptor", []string{"gridcontg", "generate", "bus", empty, "--db", ""}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.argv...)
			if code != tt.want {
				t.Errorf("exit code = %d, want %d; stderr:\n%s", code, tt.want, stderr)
			}
		})
	}
}

func TestGenerate_AllBranches(t *testing.T) {
	base := testutil.BaseCase(t, "astre")
	out := t.TempDir()
	code, stdout, stderr := runCLI(t, "gridcontg", "generate", "branch", base,
		"--all", "--output-dir", out, "--db", "")
	if code != 0 {
		t.Fatalf("exit %d; stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "generated 5, skipped 0") {
		t.Errorf("summary missing counts:\n%s", stdout)
	}
	for _, name := range []string{"L12", "L1B2B", "L2B3", "PS2", "TR1"} {
		if _, err := os.Stat(filepath.Join(out, "branchB#"+name)); err != nil {
			t.Errorf("case %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "contg_branch_pq_diffs.csv")); err != nil {
		t.Errorf("report: %v", err)
	}
}

func TestGenerate_InvocationNameSelectsMode(t *testing.T) {
	base := testutil.BaseCase(t, "hades")
	code, _, stderr := runCLI(t, "/opt/bin/gridcontg_branchT", base,
		"--filter", "^L12$", "--pairing", "hades", "--db", "")
	if code != 0 {
		t.Fatalf("exit %d; stderr:\n%s", code, stderr)
	}
	caseDir := filepath.Join(filepath.Dir(base), "branchT#L12")
	data, err := os.ReadFile(filepath.Join(caseDir, filepath.FromSlash(testutil.HadesFile)))
	if err != nil {
		t.Fatalf("read hades file: %v", err)
	}
	if !strings.Contains(string(data), `nom="L12" nor="1" nex="-1"`) {
		t.Errorf("L12 extremity not opened")
	}
}

func TestReportAndHistory(t *testing.T) {
	base := testutil.BaseCase(t, "astre")
	out := t.TempDir()
	db := filepath.Join(t.TempDir(), "ledger.db")
	code, stdout, stderr := runCLI(t, "gridcontg", "generate", "shunt", base,
		"--all", "--output-dir", out, "--db", db)
	if code != 0 {
		t.Fatalf("generate exit %d; stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "Run:") {
		t.Errorf("run id not printed:\n%s", stdout)
	}

	code, stdout, stderr = runCLI(t, "gridcontg", "report", filepath.Join(out, "contg_shunt_pq_diffs.csv"), "--markdown")
	if code != 0 {
		t.Fatalf("report exit %d; stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "| SH2 ") || !strings.Contains(stdout, "DIFF_P(%)") {
		t.Errorf("report output:\n%s", stdout)
	}

	code, stdout, stderr = runCLI(t, "gridcontg", "history", "--db", db)
	if code != 0 {
		t.Fatalf("history exit %d; stderr:\n%s", code, stderr)
	}
	if !strings.Contains(stdout, "Shunt") || !strings.Contains(stdout, "Done") {
		t.Errorf("history output:\n%s", stdout)
	}

	code, _, _ = runCLI(t, "gridcontg", "history", "--db", filepath.Join(out, "missing.db"))
	if code != 2 {
		t.Errorf("history on a missing ledger: exit %d, want 2", code)
	}
}

func TestPaths(t *testing.T) {
	base := testutil.BaseCase(t, "astre")
	code, stdout, stderr := runCLI(t, "gridcontg", "paths", base)
	if code != 0 {
		t.Fatalf("exit %d; stderr:\n%s", code, stderr)
	}
	for _, want := range []string{testutil.NetworkFile, testutil.DydFile, "1200", "300"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("paths output lacks %q:\n%s", want, stdout)
		}
	}
}
