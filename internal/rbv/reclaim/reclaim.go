// Package reclaim implements epoch-based memory reclamation for an
// arena+epoch ownership discipline: objects are never freed in place
// while a reader might still be dereferencing them.
//
// A Reclaimer tracks a global epoch counter and the set of readers
// currently pinned to some epoch (via Guard). Deletions never free
// synchronously: they Retire a cleanup function, which only actually runs
// once the global epoch has advanced past every guard that was active when
// the object was retired — guaranteeing no reader can still hold a stale
// pointer into a retired node.
//
// On the validator replica, Retire/Guard are no-ops: the validator
// replays the same structural changes against its own independent tree,
// but its replay is already fully serialized by the hash chain, so it
// never needs epoch bookkeeping to protect a concurrent reader from a
// retired node.
//
// This is deliberately simple relative to a production epoch-based
// reclaimer: no per-CPU free lists, no batched epoch advancement, just
// enough machinery to exercise the ownership discipline end to end.
package reclaim

import (
	"sync"
	"sync/atomic"
)

// Epoch is a global logical clock for memory reclamation. It is distinct
// from any FastTrack-style logical-time epoch; see SPEC_FULL.md's
// glossary addition.
type Epoch = uint64

// pending is one retired cleanup, tagged with the epoch at which it was
// retired.
type pending struct {
	epoch   Epoch
	cleanup func()
}

// Reclaimer owns the global epoch and the retirement queue.
type Reclaimer struct {
	epoch       atomic.Uint64
	activeCount atomic.Int64 // number of currently outstanding guards
	mu          sync.Mutex
	queue       []pending
}

// New returns a Reclaimer with its epoch starting at zero.
func New() *Reclaimer {
	return &Reclaimer{}
}

// Guard pins the current epoch for the lifetime of one index operation.
// Release must be called exactly once, typically via defer.
type Guard struct {
	r         *Reclaimer
	validator bool
}

// Acquire pins r's current epoch. On the validator replica Acquire
// returns a Guard whose Release is inert.
func (r *Reclaimer) Acquire(isValidator bool) *Guard {
	if isValidator {
		return &Guard{validator: true}
	}
	r.activeCount.Add(1)
	return &Guard{r: r}
}

// Release unpins the guard and, if this was the last outstanding guard,
// flushes any retired cleanups whose retirement epoch has been passed.
func (g *Guard) Release() {
	if g == nil || g.validator || g.r == nil {
		return
	}
	r := g.r
	g.r = nil
	if r.activeCount.Add(-1) == 0 {
		r.flush()
	}
}

// Retire enqueues cleanup to run once no guard predating the current
// epoch remains outstanding. On the validator this is a no-op: no real
// memory was ever allocated.
func (r *Reclaimer) Retire(isValidator bool, cleanup func()) {
	if isValidator || cleanup == nil {
		return
	}
	r.mu.Lock()
	r.queue = append(r.queue, pending{epoch: r.epoch.Load(), cleanup: cleanup})
	r.mu.Unlock()
	r.epoch.Add(1)
	if r.activeCount.Load() == 0 {
		r.flush()
	}
}

// flush runs and drops every retired cleanup, since by construction it is
// only called when activeCount observed zero (no reader could be holding
// a pointer predating any retirement).
func (r *Reclaimer) flush() {
	r.mu.Lock()
	due := r.queue
	r.queue = nil
	r.mu.Unlock()
	for _, p := range due {
		p.cleanup()
	}
}

// CurrentEpoch returns the reclaimer's current epoch, for diagnostics and
// tests.
func (r *Reclaimer) CurrentEpoch() Epoch {
	return r.epoch.Load()
}
