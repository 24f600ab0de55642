package orderedmutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/rbv/internal/rbv/hashchain"
	"github.com/kolkov/rbv/internal/rbv/replica"
)

func TestLockGuardUnlocksOnEveryExitPath(t *testing.T) {
	mtx := New()
	chain := hashchain.New(replica.Primary, 0)
	ctx := replica.New(replica.Primary, chain)

	g, err := Acquire(mtx, ctx, chain)
	require.NoError(t, err)
	require.NoError(t, g.Close())
	// Calling Close again must be a no-op, not a double-unlock panic.
	require.NoError(t, g.Close())

	assert.Equal(t, uint64(2), mtx.Order().Load())
}

func TestPrimaryValidatorAgreeOnOrderedSection(t *testing.T) {
	mtx := New()
	pChain := hashchain.New(replica.Primary, 0)
	pCtx := replica.New(replica.Primary, pChain)

	g, err := Acquire(mtx, pCtx, pChain)
	require.NoError(t, err)
	pChain.Combine(uint64(7))
	require.NoError(t, g.Close())
	stream, err := pChain.Finalize()
	require.NoError(t, err)

	vChain := hashchain.New(replica.Validator, 0)
	require.NoError(t, vChain.Deserialize(stream))
	vCtx := replica.New(replica.Validator, vChain)

	vMtx := New() // validator's own OrderedMutex, sharing no OS state with mtx
	vg, err := Acquire(vMtx, vCtx, vChain)
	require.NoError(t, err)
	vChain.Combine(uint64(7))
	require.NoError(t, vg.Close())

	_, err = vChain.Finalize()
	assert.NoError(t, err)
}

// TestOrderedMutexEnforcesGlobalOrder runs two primary goroutines each
// acquiring an OrderedMutex 100 times, combining a goroutine-unique value.
// Every pair of entries from the same critical section must be adjacent.
func TestOrderedMutexEnforcesGlobalOrder(t *testing.T) {
	mtx := New()
	const iterations = 100

	type result struct {
		entries []hashchain.Entry
	}
	results := make([]result, 2)

	var wg sync.WaitGroup
	for tid := 0; tid < 2; tid++ {
		wg.Add(1)
		go func(tid int) {
			defer wg.Done()
			chain := hashchain.New(replica.Primary, tid)
			ctx := replica.New(replica.Primary, chain)
			for i := 0; i < iterations; i++ {
				g, err := Acquire(mtx, ctx, chain)
				require.NoError(t, err)
				chain.Combine(uint64(tid))
				require.NoError(t, g.Close())
			}
			results[tid] = result{entries: append([]hashchain.Entry(nil), chain.Entries()...)}
		}(tid)
	}
	wg.Wait()

	total := len(results[0].entries) + len(results[1].entries)
	assert.Equal(t, 4*iterations, total)

	// Merge by timestamp and verify every adjacent pair (2k, 2k+1) came
	// from the same thread's critical section.
	type stamped struct {
		ts  uint64
		tid int
	}
	var all []stamped
	for _, e := range results[0].entries {
		all = append(all, stamped{e.Timestamp, 0})
	}
	for _, e := range results[1].entries {
		all = append(all, stamped{e.Timestamp, 1})
	}
	require.Len(t, all, 4*iterations)

	byTS := make(map[uint64]stamped, len(all))
	for _, s := range all {
		byTS[s.ts] = s
	}
	for k := uint64(0); k < uint64(2*iterations); k++ {
		a, aok := byTS[2*k]
		b, bok := byTS[2*k+1]
		require.True(t, aok && bok, "missing timestamp pair at %d", k)
		assert.Equal(t, a.tid, b.tid, "entries %d and %d must come from the same critical section", 2*k, 2*k+1)
	}
}

func TestRegistrySharesOneMutexAcrossReplicas(t *testing.T) {
	reg := NewRegistry()
	a := reg.GetOrCreate(42)
	b := reg.GetOrCreate(42)
	assert.Same(t, a, b)

	c := reg.GetOrCreate(43)
	assert.NotSame(t, a, c)

	reg.Reset()
	d := reg.GetOrCreate(42)
	assert.NotSame(t, a, d)
}
