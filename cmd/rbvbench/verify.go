// verify.go implements the 'rbvbench verify' command.
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

// verifyCommand re-checks a digest stream written by 'run' against a
// freshly built validator replay, without re-executing the primary phase.
func verifyCommand(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a HuJSON workload config (default: built-in defaults)")
	keysPath := fs.String("keys", "", "path to a binary key population file (default: synthesized sequential keys)")
	digestPath := fs.String("digest", "streams.txt", "path to the digest stream file written by 'run'")
	seed := fs.Int64("seed", 1, "seed used to regenerate the original plan (must match the 'run' invocation)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := rbvlog.Default()

	cfg, plan, err := buildPlan(*configPath, *keysPath, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rbvbench verify: %v\n", err)
		os.Exit(1)
	}

	streams, err := harness.ReadStreams(*digestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rbvbench verify: %v\n", err)
		os.Exit(1)
	}

	validator := index.NewStore(true, orderedmutex.NewRegistry(), reclaim.New())

	if _, err := harness.Verify(cfg, plan, validator, streams, log); err != nil {
		fmt.Fprintf(os.Stderr, "rbvbench verify: digest divergence: %v\n", err)
		os.Exit(1)
	}

	log.Infof("verify: %d lanes agree with the recorded digest stream", cfg.Threads)
}
