package harness

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kolkov/rbv/internal/rbv/config"
	"github.com/kolkov/rbv/internal/rbv/hashchain"
	"github.com/kolkov/rbv/internal/rbv/index"
	"github.com/kolkov/rbv/internal/rbv/rbvlog"
	"github.com/kolkov/rbv/internal/rbv/replica"
)

// RunThroughput drives plan against a single store with no paired
// validator and no hash-chain digest check, purely to measure raw
// throughput under a RetryPolicy's fault injection.
//
// This is the only place retry's key perturbation is safe to exercise:
// there is no second replica replaying a fixed recorded stream for it to
// desynchronize from, unlike Run.
func RunThroughput(cfg config.WorkloadConfig, plan *Plan, store *index.Store, retry RetryPolicy, log *rbvlog.Logger) (Summary, error) {
	if log == nil {
		log = rbvlog.Default()
	}
	if retry == nil {
		retry = AlwaysCommit{}
	}
	nThreads := cfg.Threads
	if nThreads <= 0 {
		nThreads = 1
	}

	eval := NewEvaluation(log, len(plan.Ops), nThreads, "throughput")

	var g errgroup.Group
	for t := 0; t < nThreads; t++ {
		t := t
		g.Go(func() error {
			return runThroughputLane(t, plan, store, retry, nThreads, eval)
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("harness: throughput run: %w", err)
	}
	return eval.Finish(), nil
}

func runThroughputLane(laneID int, plan *Plan, store *index.Store, retry RetryPolicy, nThreads int, eval *Evaluation) error {
	// A throughput-only Chain in the Primary role never blocks and never
	// gets deserialized or finalized against a reference: it exists only
	// because applyOp's Store calls unconditionally combine evidence into
	// ctx.Chain, not because this run checks any digest.
	ctx := replica.New(replica.Primary, hashchain.New(replica.Primary, laneID))
	rng := rand.New(rand.NewSource(int64(987654321 + laneID)))

	for i := laneID; i < len(plan.Ops); i += nThreads {
		op := plan.Ops[i]
		for retry.ShouldRetry(rng) {
			op.KeyIn = plan.Ops[rng.Intn(len(plan.Ops))].KeyIn
			time.Sleep(10 * time.Microsecond)
		}

		opStart := time.Now()
		if err := applyOp(ctx, store, op); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		eval.RecordOp(laneID, i, time.Since(opStart))
	}
	return nil
}
