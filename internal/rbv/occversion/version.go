// Package occversion implements the optimistic-concurrency-control version
// word carried by every index node.
//
// A Version is a single atomic 64-bit word packing four status bits and a
// monotonically increasing structure-change counter:
//
//	bit 0   LOCK       advisory "a writer is holding this node"
//	bit 1   INSERT     a point insert into the slot array is in flight
//	bit 2   SPLIT      a node split is in flight
//	bit 3   DELETED    terminal: node has been unlinked from the tree
//	bits 4..63 INSERTCNT  generation counter, unit = 1<<4, incremented once
//	                      per completed structural change
//
// Readers snapshot a Version with StableVersion, read node state without
// holding any lock, then re-read with Load and accept the read only if
// both reads agree and DELETED is clear. Writers toggle LOCK under a
// higher-level exclusion protocol (internal/rbv/orderedmutex) and bracket
// structural changes with the Do*/Done* pairs below.
package occversion

import "sync/atomic"

// Bit layout, matching control.hpp's OCCControl enum exactly.
const (
	LOCK      uint64 = 1
	INSERT    uint64 = LOCK << 1
	SPLIT     uint64 = INSERT << 1
	DELETED   uint64 = SPLIT << 1
	INSERTCNT uint64 = DELETED << 1

	// WRITING is the set of bits a stable read must wait to see clear.
	WRITING = INSERT | SPLIT
)

// Version is the OCC version word owned by exactly one index node.
//
// The zero Version is not valid; use New to construct one with a seed.
type Version struct {
	ver atomic.Uint64
}

// New allocates a Version seeded with the given initial word. On the
// validator replica (isValidator true) the returned Version is an opaque
// handle: no real atomic state is ever mutated through it, matching
// control.hpp's create()/destroy() no-ops for the validator side.
func New(seed uint64, isValidator bool) *Version {
	v := &Version{}
	if !isValidator {
		v.ver.Store(seed)
	}
	return v
}

// Destroy is the validator-aware counterpart of New. On the primary this
// hands the node to the caller's reclaimer (internal/rbv/reclaim); on the
// validator it is inert, as no real memory was ever touched.
//
// Destroy itself performs no reclamation — callers retire the owning node
// through a reclaim.Guard/Retire pair instead, so deletions never free
// immediately.
func (v *Version) Destroy(isValidator bool) {
	_ = isValidator // symmetry with New; no atomic state to clear
}

// Load performs a raw atomic load with no spin, useful when the caller
// only wants to check DELETED quickly.
func (v *Version) Load() uint64 {
	return v.ver.Load()
}

// StableVersion returns a version snapshot for which neither INSERT nor
// SPLIT is set. LOCK alone never blocks a reader: a writer may hold LOCK
// before it has actually begun mutating structure.
func (v *Version) StableVersion() uint64 {
	for {
		cur := v.ver.Load()
		if cur&WRITING == 0 {
			return cur
		}
	}
}

// xor flips mask in the version word as one compare-and-swap RMW.
func (v *Version) xor(mask uint64) {
	for {
		old := v.ver.Load()
		if v.ver.CompareAndSwap(old, old^mask) {
			return
		}
	}
}

// Lock sets the LOCK bit. The caller must already hold exclusion through a
// higher-level protocol (OrderedMutex or a parent-node lock) — LOCK here is
// advisory signaling to readers and nested operations, not itself mutual
// exclusion. On the validator this is a no-op: it never mutates real node
// state.
func (v *Version) Lock(isValidator bool) {
	if isValidator {
		return
	}
	v.ver.Or(LOCK)
}

// Unlock clears the LOCK bit by XOR, matching control.hpp's `ver ^= LOCK`.
func (v *Version) Unlock(isValidator bool) {
	if isValidator {
		return
	}
	v.xor(LOCK)
}

// DoInsert marks the start of a point insert into the node's slot array.
func (v *Version) DoInsert(isValidator bool) {
	if isValidator {
		return
	}
	v.ver.Or(INSERT)
}

// DoneInsert marks the insert linearizable: the new key is visible to any
// reader whose StableVersion/Load pair would observe it. Must be called
// only after the slot write itself is visible, and performs both the
// INSERTCNT bump and INSERT clear as a single atomic step per update, in
// this exact order.
func (v *Version) DoneInsert(isValidator bool) {
	if isValidator {
		return
	}
	v.ver.Add(INSERTCNT)
	v.xor(INSERT)
}

// DoSplit marks the start of a structural split on this (the original)
// node.
func (v *Version) DoSplit(isValidator bool) {
	if isValidator {
		return
	}
	v.ver.Or(SPLIT)
}

// DoneCreate ends construction of the newly created sibling half of a
// split: clears SPLIT, advances INSERTCNT. Call this on the sibling's
// Version, never on the original.
func (v *Version) DoneCreate(isValidator bool) {
	if isValidator {
		return
	}
	v.ver.Add(INSERTCNT)
	v.xor(SPLIT)
}

// DoneSplitAndDelete ends the original node's half of a split: sets
// DELETED (terminal, never cleared), clears SPLIT, advances INSERTCNT.
// Call this on the original node's Version, never on the sibling.
func (v *Version) DoneSplitAndDelete(isValidator bool) {
	if isValidator {
		return
	}
	v.ver.Add(INSERTCNT)
	v.ver.Or(DELETED)
	v.xor(SPLIT)
}

// IsDeleted reports whether DELETED is set in the given version word. Once
// observed set it remains set for all subsequent loads — callers should
// treat this as terminal.
func IsDeleted(version uint64) bool {
	return version&DELETED != 0
}

// InsertCount extracts the generation counter in units of one completed
// structural change (the bits above INSERTCNT's unit value, i.e. version
// divided by the unit).
func InsertCount(version uint64) uint64 {
	return version / INSERTCNT
}

// Accept implements the reader's optimistic read discipline: given the
// stable version v1 observed by StableVersion before the read, and v2
// observed by Load after it, the read is valid iff v1 == v2 and DELETED
// is clear in v2.
func Accept(v1, v2 uint64) bool {
	return v1 == v2 && !IsDeleted(v2)
}
