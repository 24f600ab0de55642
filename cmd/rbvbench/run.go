// run.go implements the 'rbvbench run' command.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kolkov/rbv/internal/rbv/harness"
	"github.com/kolkov/rbv/internal/rbv/index"
	"github.com/kolkov/rbv/internal/rbv/orderedmutex"
	"github.com/kolkov/rbv/internal/rbv/rbvlog"
	"github.com/kolkov/rbv/internal/rbv/reclaim"
)

// runCommand drives a paired primary/validator workload and persists the
// primary's digest stream for later re-checking with 'verify'.
func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a HuJSON workload config (default: built-in defaults)")
	keysPath := fs.String("keys", "", "path to a binary key population file (default: synthesized sequential keys)")
	digestPath := fs.String("digest", "streams.txt", "path to write the persisted digest stream")
	seed := fs.Int64("seed", 1, "seed for deterministic plan generation")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := rbvlog.Default()

	cfg, plan, err := buildPlan(*configPath, *keysPath, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rbvbench run: %v\n", err)
		os.Exit(1)
	}

	registry := orderedmutex.NewRegistry()
	reclaimer := reclaim.New()
	primary := index.NewStore(false, registry, reclaimer)
	validator := index.NewStore(true, registry, reclaimer)

	result, err := harness.Run(cfg, plan, primary, validator, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rbvbench run: %v\n", err)
		os.Exit(1)
	}

	if err := harness.WriteStreams(*digestPath, result.Streams); err != nil {
		fmt.Fprintf(os.Stderr, "rbvbench run: %v\n", err)
		os.Exit(1)
	}

	log.Infof("wrote digest stream for %d lanes to %s", cfg.Threads, *digestPath)
}
