// bench.go implements the 'rbvbench bench' command.
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

// benchCommand drives a throughput-only, unpaired workload against a
// single store. This is the only command that accepts --retry, since
// fault-injected key perturbation has no safe home in a digest-checked
// run (see harness.RunThroughput).
func benchCommand(args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a HuJSON workload config (default: built-in defaults)")
	keysPath := fs.String("keys", "", "path to a binary key population file (default: synthesized sequential keys)")
	seed := fs.Int64("seed", 1, "seed for deterministic plan generation")
	retry := fs.Bool("retry", false, "fault-inject key-reshuffling retries, matching the reference workload's parity benchmark")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := rbvlog.Default()

	cfg, plan, err := buildPlan(*configPath, *keysPath, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rbvbench bench: %v\n", err)
		os.Exit(1)
	}

	var policy harness.RetryPolicy = harness.AlwaysCommit{}
	if *retry {
		policy = harness.FaultInjectingRetryPolicy{}
	}

	store := index.NewStore(false, orderedmutex.NewRegistry(), reclaim.New())

	if _, err := harness.RunThroughput(cfg, plan, store, policy, log); err != nil {
		fmt.Fprintf(os.Stderr, "rbvbench bench: %v\n", err)
		os.Exit(1)
	}
}
