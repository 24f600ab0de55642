// Package harness drives a paired primary/validator workload against two
// index.Store replicas, replaying the exact same operation sequence
// through both and reconciling them via a per-lane hash chain.
package harness

import (
	"fmt"
	"math/rand"

	"github.com/kolkov/rbv/internal/rbv/config"
)

// OpKind selects which index.Store operation a workload.Op invokes.
type OpKind int

const (
	OpInsert OpKind = iota
	OpRead
	OpUpdate
	OpScan
)

// Op is one precomputed operation in a workload plan. Precomputing the
// full sequence up front (key, value, scan length, op kind) before any
// goroutine starts lets the primary and validator replay byte-identical
// inputs, matching the reference workload's array-of-structs plan.
type Op struct {
	Kind     OpKind
	KeyIn    uint64 // key to read/update/scan from
	KeyOut   uint64 // key to insert
	Value    []byte
	ScanSize int
}

// zipfSkew is the Zipf exponent used for key-popularity sampling.
// math/rand.Zipf requires s strictly greater than 1; the reference
// workload's custom zipf table allows s=0.99. 1.01 is the closest
// idiomatic stdlib approximation and is pinned here rather than exposed
// as a config knob, since the stdlib constructor would otherwise panic
// on out-of-range input.
const zipfSkew = 1.01

// Plan is a fully precomputed, reproducible workload: one Op per logical
// operation index, deterministic given cfg and seed.
type Plan struct {
	Ops []Op
}

// BuildPlan generates a Plan of cfg.OperationCount ops against the given
// sorted key population, using seed to make the sequence reproducible
// across a primary/validator pair run from the same plan.
func BuildPlan(cfg config.WorkloadConfig, keys []uint64, seed int64) (*Plan, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("harness: BuildPlan: empty key population")
	}
	rng := rand.New(rand.NewSource(seed))

	var kmin, kmax uint64 = ^uint64(0), 0
	for _, k := range keys {
		if k < kmin {
			kmin = k
		}
		if k > kmax {
			kmax = k
		}
	}
	span := kmax - kmin + 1

	zipf := rand.NewZipf(rng, zipfSkew, 1, uint64(len(keys)-1))

	ops := make([]Op, cfg.OperationCount)
	thresholdRead := cfg.Mix.InsertPct + cfg.Mix.ReadPct
	thresholdUpdate := thresholdRead + cfg.Mix.UpdatePct

	for i := range ops {
		roll := rng.Intn(100)
		var kind OpKind
		switch {
		case roll < cfg.Mix.InsertPct:
			kind = OpInsert
		case roll < thresholdRead:
			kind = OpRead
		case roll < thresholdUpdate:
			kind = OpUpdate
		default:
			kind = OpScan
		}

		keyIn := keys[zipf.Uint64()]
		keyOut := (uint64(rng.Uint32())<<32 ^ uint64(rng.Uint32()))%span + kmin
		scanSize := cfg.ScanMin
		if cfg.ScanMax > cfg.ScanMin {
			scanSize += rng.Intn(cfg.ScanMax - cfg.ScanMin + 1)
		}

		ops[i] = Op{
			Kind:     kind,
			KeyIn:    keyIn,
			KeyOut:   keyOut,
			Value:    synthesizeValue(rng.Uint64()),
			ScanSize: scanSize,
		}
	}
	return &Plan{Ops: ops}, nil
}

// valueDigits is the value length used by synthesizeValue, matching the
// reference workload's fixed-width Value type.
const valueDigits = 16

// valuePrimes are the first valueDigits primes, used to turn a uint64
// seed into printable pseudo-random bytes one digit at a time.
var valuePrimes = [...]uint64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53,
}

// synthesizeValue turns seed into a deterministic, printable byte slice,
// matching the reference workload's uint64_to_value prime-modulo scheme.
func synthesizeValue(seed uint64) []byte {
	v := make([]byte, valueDigits)
	for i := range v {
		v[i] = byte('a' + (seed%valuePrimes[i])%26)
	}
	return v
}
