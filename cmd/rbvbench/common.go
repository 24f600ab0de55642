package main

import (
	"fmt"

	"github.com/kolkov/rbv/internal/rbv/config"
	"github.com/kolkov/rbv/internal/rbv/harness"
	"github.com/kolkov/rbv/internal/rbv/loader"
)

// loadConfig reads a workload config from path, or returns config.Default
// when path is empty.
func loadConfig(path string) (config.WorkloadConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// loadKeys reads the binary key population from path, or synthesizes
// cfg.RecordCount sequential keys when path is empty — a convenience
// default for trying rbvbench without first producing a key file, not a
// reproduction of any particular reference key distribution.
func loadKeys(path string, cfg config.WorkloadConfig) ([]uint64, error) {
	if path != "" {
		return loader.Load(path)
	}
	n := cfg.RecordCount
	if n <= 0 {
		return nil, fmt.Errorf("rbvbench: recordCount must be positive to synthesize a key population")
	}
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = uint64(i)
	}
	return keys, nil
}

// buildPlan loads config+keys and builds a deterministic Plan from them.
func buildPlan(configPath, keysPath string, seed int64) (config.WorkloadConfig, *harness.Plan, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return config.WorkloadConfig{}, nil, err
	}
	keys, err := loadKeys(keysPath, cfg)
	if err != nil {
		return config.WorkloadConfig{}, nil, err
	}
	plan, err := harness.BuildPlan(cfg, keys, seed)
	if err != nil {
		return config.WorkloadConfig{}, nil, err
	}
	return cfg, plan, nil
}
