package index

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/kolkov/rbv/internal/rbv/occversion"
	"github.com/kolkov/rbv/internal/rbv/orderedmutex"
	"github.com/kolkov/rbv/internal/rbv/reclaim"
	"github.com/kolkov/rbv/internal/rbv/replica"
)

// Store is a flat, singly linked chain of LeafNode values ordered by
// MinKey, found via a snapshot of per-leaf lower bounds published behind
// an atomic pointer — a "snapshot array, no lock for navigation" idiom
// matching LeafNode's own lock-free slot publication.
//
// Store gives the OCC version word, hash chain, and ordered mutex a real
// ordered structure to exercise end to end.
type Store struct {
	isValidator bool
	registry    *orderedmutex.Registry
	reclaimer   *reclaim.Reclaimer

	bounds atomic.Pointer[[]uint64] // bounds[i] is leaves[i].MinKey() at publish time (0 for the initial empty root)
	leaves atomic.Pointer[[]*LeafNode]
	nextID atomic.Uint64
}

// NewStore returns a Store with one empty leaf, id 0.
//
// registry and reclaimer are shared with the caller so a primary Store and
// its validator counterpart (built in lockstep by the workload harness)
// can agree on OrderedMutex identity via matching leaf ids.
func NewStore(isValidator bool, registry *orderedmutex.Registry, reclaimer *reclaim.Reclaimer) *Store {
	s := &Store{
		isValidator: isValidator,
		registry:    registry,
		reclaimer:   reclaimer,
	}
	root := NewLeafNode(0, isValidator)
	s.nextID.Store(1)
	leaves := []*LeafNode{root}
	bounds := []uint64{0}
	s.leaves.Store(&leaves)
	s.bounds.Store(&bounds)
	return s
}

// structuralMutexID is reserved (never a real leaf id) for the Store-level
// OrderedMutex guarding boundary-table mutation.
const structuralMutexID = ^uint64(0)

// ResetOrdering discards every OrderedMutex this Store's registry has
// handed out so far, including the structural one. A node id touched
// again after this call gets a brand new Mutex with its shared order
// counter back at zero.
//
// A primary Store and its validator counterpart share one registry so
// their matching nodes agree on OrderedMutex identity; that identity is
// what lets the validator's own concurrent replay block on the exact
// counter values the primary recorded. But a harness that runs the
// primary phase to completion before the validator phase starts must
// call ResetOrdering between the two: otherwise the validator's first
// checkpoint on any node the primary touched observes a counter already
// past the timestamp it is waiting for and reports a false divergence.
func (s *Store) ResetOrdering() {
	s.registry.Reset()
}

func (s *Store) leafFor(key uint64) (idx int, leaf *LeafNode) {
	bounds := *s.bounds.Load()
	leaves := *s.leaves.Load()
	idx = sort.Search(len(bounds), func(i int) bool { return bounds[i] > key }) - 1
	if idx < 0 {
		idx = 0
	}
	return idx, leaves[idx]
}

// Lookup combines the observed stable version and the branch choice
// before scanning, re-validates with Load, and retries on a transient OCC
// conflict.
func (s *Store) Lookup(ctx *replica.Context, key uint64) ([]byte, bool, error) {
	g := s.reclaimer.Acquire(s.isValidator)
	defer g.Release()

	for {
		idx, leaf := s.leafFor(key)
		ctx.Chain.Combine(uint64(idx))

		v1 := leaf.occ.StableVersion()
		ctx.Chain.Combine(v1)
		snap := leaf.slots.Load()
		value, ok := snap.find(key)
		v2 := leaf.occ.Load()
		if !occversion.Accept(v1, v2) {
			continue
		}
		ctx.Chain.Combine(valueBytes(value, ok))
		return value, ok, nil
	}
}

// Insert opens an OrderedMutex guard, transitions DoInsert/DoneInsert
// around the slot-array swap, splitting first if the target leaf is
// full, and combines the logical result (whether the key was newly
// created) at commit.
//
// The existence check and the overflow check both happen while holding
// the leaf's own OrderedMutex, not against a pre-lock snapshot: two
// lanes racing to insert into the same leaf must serialize on which one
// observes it full and triggers the split, or they could both see room
// and both insert, growing the leaf past MaxLeafSlots unnoticed.
func (s *Store) Insert(ctx *replica.Context, key uint64, value []byte) (created bool, err error) {
	g := s.reclaimer.Acquire(s.isValidator)
	defer g.Release()

	for {
		idx, leaf := s.leafFor(key)
		ctx.Chain.Combine(uint64(idx))

		mtx := s.registry.GetOrCreate(leaf.ID)
		guard, err := orderedmutex.Acquire(mtx, ctx, ctx.Chain)
		if err != nil {
			return false, err
		}

		cur := leaf.slots.Load()
		if _, exists := cur.find(key); exists {
			closeErr := guard.Close()
			if closeErr != nil {
				return false, closeErr
			}
			ok, err := s.Update(ctx, key, value)
			return !ok, err // key already existed: not newly created
		}

		if len(cur.keys) >= MaxLeafSlots {
			if err := guard.Close(); err != nil {
				return false, err
			}
			if err := s.split(ctx, idx, leaf); err != nil {
				return false, err
			}
			continue
		}

		leaf.occ.DoInsert(s.isValidator)
		leaf.slots.Store(cloneInsert(cur, key, value))
		leaf.occ.DoneInsert(s.isValidator)
		ctx.Chain.Combine(uint64(1)) // logical result: key newly created

		if err := guard.Close(); err != nil {
			return false, err
		}
		return true, nil
	}
}

// Update mutates an existing key's value in place (no structural change,
// so no OCC bit transition is needed), still serialized through the
// leaf's OrderedMutex and combining the before/after values at commit.
func (s *Store) Update(ctx *replica.Context, key uint64, value []byte) (found bool, err error) {
	g := s.reclaimer.Acquire(s.isValidator)
	defer g.Release()

	idx, leaf := s.leafFor(key)
	ctx.Chain.Combine(uint64(idx))

	mtx := s.registry.GetOrCreate(leaf.ID)
	guard, err := orderedmutex.Acquire(mtx, ctx, ctx.Chain)
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := guard.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cur := leaf.slots.Load()
	prev, ok := cur.find(key)
	ctx.Chain.Combine(valueBytes(prev, ok))
	if !ok {
		ctx.Chain.Combine(uint64(0))
		return false, nil
	}
	updated, _ := cloneUpdate(cur, key, value)
	leaf.slots.Store(updated)
	ctx.Chain.Combine(value)
	return true, nil
}

// ScanSum traverses count keys starting at start across sibling links,
// combining each visited key/value plus the running sum at commit.
func (s *Store) ScanSum(ctx *replica.Context, start uint64, count int) (uint64, error) {
	g := s.reclaimer.Acquire(s.isValidator)
	defer g.Release()

	idx, leaf := s.leafFor(start)
	ctx.Chain.Combine(uint64(idx))

	var sum uint64
	visited := 0
	for leaf != nil && visited < count {
		v1 := leaf.occ.StableVersion()
		snap := leaf.slots.Load()
		for i, k := range snap.keys {
			if k < start && leaf.MinKey() < start {
				continue
			}
			if visited >= count {
				break
			}
			ctx.Chain.Combine(k)
			val := snap.values[i]
			ctx.Chain.Combine(valueBytes(val, true))
			sum += uint64(len(val))
			for _, b := range val {
				sum += uint64(b)
			}
			visited++
		}
		v2 := leaf.occ.Load()
		if !occversion.Accept(v1, v2) {
			return 0, fmt.Errorf("index: ScanSum: transient OCC conflict on leaf %d", leaf.ID)
		}
		leaf = leaf.Next()
	}
	ctx.Chain.Combine(sum)
	return sum, nil
}

// split structurally splits leaves[idx] into two halves, following the
// DoSplit/DoneCreate/DoneSplitAndDelete sequence, and publishes a new
// boundary table under the Store's structural OrderedMutex.
func (s *Store) split(ctx *replica.Context, idx int, leaf *LeafNode) error {
	structMtx := s.registry.GetOrCreate(structuralMutexID)
	guard, err := orderedmutex.Acquire(structMtx, ctx, ctx.Chain)
	if err != nil {
		return err
	}
	defer func() { _ = guard.Close() }()

	nodeMtx := s.registry.GetOrCreate(leaf.ID)
	nodeGuard, err := orderedmutex.Acquire(nodeMtx, ctx, ctx.Chain)
	if err != nil {
		return err
	}

	cur := leaf.slots.Load()
	mid := len(cur.keys) / 2
	left := NewLeafNode(s.nextID.Add(1)-1, s.isValidator)
	sibling := NewLeafNode(s.nextID.Add(1)-1, s.isValidator)

	leaf.occ.DoSplit(s.isValidator)
	left.occ.DoSplit(s.isValidator)
	sibling.occ.DoSplit(s.isValidator)

	sibling.slots.Store(&slots{
		keys:   append([]uint64(nil), cur.keys[mid:]...),
		values: append([][]byte(nil), cur.values[mid:]...),
	})
	sibling.occ.DoneCreate(s.isValidator)
	sibling.next.Store(leaf.Next())

	left.slots.Store(&slots{
		keys:   append([]uint64(nil), cur.keys[:mid]...),
		values: append([][]byte(nil), cur.values[:mid]...),
	})
	left.next.Store(sibling)
	left.occ.DoneCreate(s.isValidator)

	oldLeaves := *s.leaves.Load()
	if idx > 0 {
		oldLeaves[idx-1].next.Store(left)
	}
	leaf.occ.DoneSplitAndDelete(s.isValidator)

	s.reclaimer.Retire(s.isValidator, func() {})

	ctx.Chain.Combine(sibling.MinKey())

	if err := nodeGuard.Close(); err != nil {
		return err
	}

	newLeaves := make([]*LeafNode, 0, len(oldLeaves)+1)
	newLeaves = append(newLeaves, oldLeaves[:idx]...)
	newLeaves = append(newLeaves, left, sibling)
	newLeaves = append(newLeaves, oldLeaves[idx+1:]...)

	newBounds := make([]uint64, len(newLeaves))
	for i, l := range newLeaves {
		newBounds[i] = l.MinKey()
	}

	s.leaves.Store(&newLeaves)
	s.bounds.Store(&newBounds)
	return nil
}
