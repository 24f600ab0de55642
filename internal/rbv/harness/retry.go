package harness

import "math/rand"

// RetryPolicy decides, before committing operation i in a throughput-only
// run, whether to fault-inject a retry: reshuffle the key an operation
// targets and replay the same index rather than advancing.
//
// RetryPolicy only has a safe home in RunThroughput. A paired primary/
// validator Run replays a fixed recorded digest stream, and perturbing a
// key there would desynchronize the validator from what the primary
// already committed — so Run never takes one.
//
// The production default never retries. FaultInjectingRetryPolicy
// reproduces the reference workload's `rand() % 4` retry behavior and is
// wired only from rbvbench's benchmarking subcommand.
type RetryPolicy interface {
	ShouldRetry(rng *rand.Rand) bool
}

// AlwaysCommit never retries. It is the default RetryPolicy for every
// production run.
type AlwaysCommit struct{}

func (AlwaysCommit) ShouldRetry(*rand.Rand) bool { return false }

// FaultInjectingRetryPolicy retries with probability 3/4, matching the
// reference workload's benchmarking fault-injection loop.
type FaultInjectingRetryPolicy struct{}

func (FaultInjectingRetryPolicy) ShouldRetry(rng *rand.Rand) bool {
	return rng.Intn(4) != 0
}
