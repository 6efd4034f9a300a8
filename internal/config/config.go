// Package config loads the optional gridcontg.yaml settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no --config flag
// is given.
const DefaultFile = "gridcontg.yaml"

// Defaults applied when neither the file nor a flag sets a value.
const (
	DefaultPairing  = "astre"
	DefaultMaxCases = 20
	DefaultSeed     = 42
)

// Log holds logger settings.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the file-level configuration. Zero values mean "not set".
type Config struct {
	Pairing        string  `yaml:"pairing"`
	MaxCases       int     `yaml:"max_cases"`
	RandomSeed     *int64  `yaml:"random_seed"`
	OutputDir      string  `yaml:"output_dir"`
	DB             *string `yaml:"db"`
	AggregateLoads bool    `yaml:"aggregate_loads"`
	Log            Log     `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	seed := int64(DefaultSeed)
	return &Config{
		Pairing:    DefaultPairing,
		MaxCases:   DefaultMaxCases,
		RandomSeed: &seed,
		Log:        Log{Level: "info", Format: "text"},
	}
}

// LoadFromPath reads a YAML config file and layers it over Default.
// A missing file at DefaultFile is not an error; an explicitly named
// missing file is.
func LoadFromPath(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data)
}

// Load parses YAML bytes and layers them over Default.
func Load(data []byte) (*Config, error) {
	cfg := Default()
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.merge(&file)
	return cfg, nil
}

func (c *Config) merge(o *Config) {
	if o.Pairing != "" {
		c.Pairing = o.Pairing
	}
	if o.MaxCases != 0 {
		c.MaxCases = o.MaxCases
	}
	if o.RandomSeed != nil {
		c.RandomSeed = o.RandomSeed
	}
	if o.OutputDir != "" {
		c.OutputDir = o.OutputDir
	}
	if o.DB != nil {
		c.DB = o.DB
	}
	if o.AggregateLoads {
		c.AggregateLoads = true
	}
	if o.Log.Level != "" {
		c.Log.Level = o.Log.Level
	}
	if o.Log.Format != "" {
		c.Log.Format = o.Log.Format
	}
}

// Seed returns the configured random seed.
func (c *Config) Seed() int64 {
	if c.RandomSeed == nil {
		return DefaultSeed
	}
	return *c.RandomSeed
}

// OutputRoot returns where case directories go for baseCase: the
// configured output dir, else the base case's parent directory.
func (c *Config) OutputRoot(baseCase string) string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	abs, err := filepath.Abs(baseCase)
	if err != nil {
		return filepath.Dir(baseCase)
	}
	return filepath.Dir(abs)
}

// LedgerPath returns the run ledger database path under outRoot, or ""
// when the ledger is disabled with an empty db setting.
func (c *Config) LedgerPath(outRoot string) string {
	if c.DB != nil {
		return *c.DB
	}
	return filepath.Join(outRoot, ".gridcontg", "ledger.db")
}
