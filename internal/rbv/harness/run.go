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

// Result is the outcome of one paired primary/validator workload run.
type Result struct {
	Primary   Summary
	Validator Summary
	// Streams holds each lane's serialized primary digest stream, in lane
	// order, suitable for persisting and later replaying with Verify.
	Streams []string
}

// Run executes plan against primary and validator in a two-phase
// barrier: every lane's primary phase runs to completion (rate-limited,
// evaluated, hash-chained), then every lane's validator phase replays the
// identical ops against validator and checks digest agreement.
//
// Run always replays the exact key/value plan the primary committed: any
// key perturbation here would desynchronize the validator's hash chain
// from the primary's already-finalized one, so fault injection has no
// place in this path. Use RunThroughput for a retry-perturbed,
// digest-unchecked benchmarking run instead.
func Run(cfg config.WorkloadConfig, plan *Plan, primary, validator *index.Store, log *rbvlog.Logger) (Result, error) {
	if log == nil {
		log = rbvlog.Default()
	}
	nThreads := cfg.Threads
	if nThreads <= 0 {
		nThreads = 1
	}
	lanes := make([]*Lane, nThreads)
	for i := range lanes {
		lanes[i] = NewLane(i)
	}

	primaryEval := NewEvaluation(log, len(plan.Ops), nThreads, "primary")
	primaryChains := make([]*hashchain.Chain, nThreads)

	var g errgroup.Group
	for t := 0; t < nThreads; t++ {
		t := t
		g.Go(func() error {
			chain := hashchain.New(replica.Primary, t)
			primaryChains[t] = chain
			return runPrimaryLane(lanes[t], plan, primary, chain, cfg.RequestsPerSecond, nThreads, primaryEval)
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("harness: primary phase: %w", err)
	}
	primarySummary := primaryEval.Finish()

	streams := make([]string, nThreads)
	for t, chain := range primaryChains {
		s, err := chain.Finalize()
		if err != nil {
			return Result{}, fmt.Errorf("harness: primary lane %d finalize: %w", t, err)
		}
		streams[t] = s
	}

	// The validator phase starts from a cold order counter on every node,
	// exactly as a standalone Verify does against a fresh validator Store:
	// the live counters the primary phase left behind have nothing to do
	// with the validator's own upcoming replay.
	validator.ResetOrdering()

	validatorSummary, err := Verify(cfg, plan, validator, streams, log)
	if err != nil {
		return Result{}, err
	}

	return Result{Primary: primarySummary, Validator: validatorSummary, Streams: streams}, nil
}

// Verify replays plan against validator, checking each lane's ops against
// the matching entry of a previously recorded digest stream (one per
// lane, in lane order, as produced by Run's Streams or persisted to
// disk). It is the standalone form of Run's validator phase, usable to
// re-check a recorded run without re-executing its primary phase.
func Verify(cfg config.WorkloadConfig, plan *Plan, validator *index.Store, streams []string, log *rbvlog.Logger) (Summary, error) {
	if log == nil {
		log = rbvlog.Default()
	}
	nThreads := cfg.Threads
	if nThreads <= 0 {
		nThreads = 1
	}
	if len(streams) != nThreads {
		return Summary{}, fmt.Errorf("harness: Verify: expected %d lane streams, got %d", nThreads, len(streams))
	}
	lanes := make([]*Lane, nThreads)
	for i := range lanes {
		lanes[i] = NewLane(i)
	}

	eval := NewEvaluation(log, len(plan.Ops), nThreads, "validator")
	var vg errgroup.Group
	for t := 0; t < nThreads; t++ {
		t := t
		vg.Go(func() error {
			chain := hashchain.New(replica.Validator, t)
			if err := chain.Deserialize(streams[t]); err != nil {
				return fmt.Errorf("harness: validator lane %d: %w", t, err)
			}
			return runValidatorLane(lanes[t], plan, validator, chain, nThreads, eval)
		})
	}
	if err := vg.Wait(); err != nil {
		return Summary{}, fmt.Errorf("harness: validator phase: %w", err)
	}
	return eval.Finish(), nil
}

// runPrimaryLane executes this lane's share of plan against primary,
// rate-limited to rps/nThreads ops/sec via exponential inter-arrival
// sampling.
func runPrimaryLane(lane *Lane, plan *Plan, store *index.Store, chain *hashchain.Chain, rps, nThreads int, eval *Evaluation) error {
	ctx := replica.New(replica.Primary, chain)
	rng := rand.New(rand.NewSource(int64(1235467 + lane.ID)))
	rate := float64(rps) / float64(nThreads)
	if rate <= 0 {
		rate = 1
	}
	start := time.Now()
	var targetElapsed time.Duration

	for i := lane.ID; i < len(plan.Ops); i += nThreads {
		targetElapsed += time.Duration(rng.ExpFloat64() / rate * float64(time.Second))
		if wait := targetElapsed - time.Since(start); wait > 0 {
			time.Sleep(wait)
		}

		opStart := time.Now()
		if err := applyOp(ctx, store, plan.Ops[i]); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		eval.RecordOp(lane.ID, i, time.Since(opStart))
		lane.step.Store(int64(i))
	}
	return nil
}

// runValidatorLane replays this lane's share of plan against validator,
// checking digest agreement op by op.
func runValidatorLane(lane *Lane, plan *Plan, store *index.Store, chain *hashchain.Chain, nThreads int, eval *Evaluation) error {
	ctx := replica.New(replica.Validator, chain)

	for i := lane.ID; i < len(plan.Ops); i += nThreads {
		opStart := time.Now()
		if err := applyOp(ctx, store, plan.Ops[i]); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		eval.RecordOp(lane.ID, i, time.Since(opStart))
		lane.sstep.Store(int64(i))
	}
	_, err := chain.Finalize()
	return err
}

func applyOp(ctx *replica.Context, store *index.Store, op Op) error {
	switch op.Kind {
	case OpInsert:
		_, err := store.Insert(ctx, op.KeyOut, op.Value)
		return err
	case OpRead:
		_, _, err := store.Lookup(ctx, op.KeyIn)
		return err
	case OpUpdate:
		_, err := store.Update(ctx, op.KeyIn, op.Value)
		return err
	case OpScan:
		_, err := store.ScanSum(ctx, op.KeyIn, op.ScanSize)
		return err
	default:
		return fmt.Errorf("harness: unknown op kind %d", op.Kind)
	}
}
