package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_LayersOverDefaults(t *testing.T) {
	data := []byte("pairing: hades\nrandom_seed: 7\nlog:\n  format: json\n")
	c, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Pairing != "hades" {
		t.Errorf("Pairing = %q, want hades", c.Pairing)
	}
	if c.Seed() != 7 {
		t.Errorf("Seed = %d, want 7", c.Seed())
	}
	if c.MaxCases != DefaultMaxCases {
		t.Errorf("MaxCases = %d, want default %d", c.MaxCases, DefaultMaxCases)
	}
	if c.Log.Format != "json" || c.Log.Level != "info" {
		t.Errorf("Log = %+v", c.Log)
	}
}

func TestLoad_ZeroSeedIsKept(t *testing.T) {
	c, err := Load([]byte("random_seed: 0\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Seed() != 0 {
		t.Errorf("Seed = %d, want 0", c.Seed())
	}
}

func TestLoadFromPath_MissingDefaultFile(t *testing.T) {
	wd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFromPath("")
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if c.Pairing != DefaultPairing {
		t.Errorf("Pairing = %q", c.Pairing)
	}
}

func TestLoadFromPath_MissingExplicitFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLedgerPath(t *testing.T) {
	c := Default()
	if got := c.LedgerPath("/out"); got != filepath.Join("/out", ".gridcontg", "ledger.db") {
		t.Errorf("LedgerPath = %q", got)
	}
	c, err := Load([]byte("db: \"\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.LedgerPath("/out"); got != "" {
		t.Errorf("disabled ledger path = %q, want empty", got)
	}
}

func TestOutputRoot(t *testing.T) {
	c := Default()
	if got := c.OutputRoot("/data/cases/base"); got != "/data/cases" {
		t.Errorf("OutputRoot = %q", got)
	}
	c.OutputDir = "/elsewhere"
	if got := c.OutputRoot("/data/cases/base"); got != "/elsewhere" {
		t.Errorf("OutputRoot = %q", got)
	}
}
