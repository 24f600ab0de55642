// Package config loads the HuJSON workload configuration file that
// parameterizes a rbvbench run: thread count, record/operation counts,
// the target request rate, and the operation mix.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
	"golang.org/x/mod/semver"
)

// SchemaVersion is the only schema this build understands. Bumping it is
// a breaking change to the config file format.
const SchemaVersion = "v1.0.0"

// Mix is the operation-type distribution for a workload, as percentages
// that must sum to 100.
type Mix struct {
	InsertPct int `json:"insertPct"`
	ReadPct   int `json:"readPct"`
	UpdatePct int `json:"updatePct"`
	ScanPct   int `json:"scanPct"`
}

// WorkloadConfig is the full set of parameters for one rbvbench run.
type WorkloadConfig struct {
	SchemaVersion     string `json:"schemaVersion"`
	Threads           int    `json:"threads"`
	RecordCount       int    `json:"recordCount"`
	OperationCount    int    `json:"operationCount"`
	RequestsPerSecond int    `json:"requestsPerSecond"`
	Mix               Mix    `json:"mix"`
	ScanMin           int    `json:"scanMin"`
	ScanMax           int    `json:"scanMax"`
}

// Default returns the parameters rbvbench uses when no config file is
// given, matching the reference workload's compile-time constants.
func Default() WorkloadConfig {
	return WorkloadConfig{
		SchemaVersion:     SchemaVersion,
		Threads:           8,
		RecordCount:       1_000_000,
		OperationCount:    2_000_000,
		RequestsPerSecond: 2_000_000,
		Mix:               Mix{InsertPct: 0, ReadPct: 0, UpdatePct: 50, ScanPct: 50},
		ScanMin:           50,
		ScanMax:           450,
	}
}

var (
	ErrUnsupportedSchema = errors.New("config: unsupported schemaVersion")
	ErrInvalidMix        = errors.New("config: operation mix percentages must sum to 100")
	ErrInvalidScanRange  = errors.New("config: scanMin must be <= scanMax")
)

// Load reads and validates a HuJSON workload config file at path.
func Load(path string) (WorkloadConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WorkloadConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse validates and decodes a HuJSON document into a WorkloadConfig.
func Parse(raw []byte) (WorkloadConfig, error) {
	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return WorkloadConfig{}, fmt.Errorf("config: invalid JSONC: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return WorkloadConfig{}, fmt.Errorf("config: invalid JSON: %w", err)
	}

	if err := validate(cfg); err != nil {
		return WorkloadConfig{}, err
	}
	return cfg, nil
}

func validate(cfg WorkloadConfig) error {
	if !semver.IsValid(cfg.SchemaVersion) {
		return fmt.Errorf("%w: %q is not a valid semver", ErrUnsupportedSchema, cfg.SchemaVersion)
	}
	if semver.Major(cfg.SchemaVersion) != semver.Major(SchemaVersion) {
		return fmt.Errorf("%w: got %s, want %s.x", ErrUnsupportedSchema, cfg.SchemaVersion, semver.Major(SchemaVersion))
	}
	sum := cfg.Mix.InsertPct + cfg.Mix.ReadPct + cfg.Mix.UpdatePct + cfg.Mix.ScanPct
	if sum != 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidMix, sum)
	}
	if cfg.ScanMin > cfg.ScanMax {
		return ErrInvalidScanRange
	}
	return nil
}

// Save writes cfg to path as indented JSON (HuJSON is a superset of JSON,
// so this round-trips through Load/Parse unchanged).
func Save(path string, cfg WorkloadConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
