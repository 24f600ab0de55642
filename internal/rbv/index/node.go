// Package index provides a minimal ordered index exercising the OCC
// version word, hash chain, and ordered mutex end to end, standing in for
// a full Masstree-style node layout.
//
// A LeafNode holds a sorted run of key/value slots guarded by an
// occversion.Version. Slot contents are published behind an
// atomic.Pointer, matching internal/race/shadowmem's CAS-based shadow-cell
// idiom: readers take a lock-free snapshot of the pointer and validate it
// against the version word instead of taking any lock.
package index

import (
	"sort"
	"sync/atomic"

	"github.com/kolkov/rbv/internal/rbv/occversion"
)

// MaxLeafSlots bounds how many keys a single LeafNode holds before an
// Insert must Split it first.
const MaxLeafSlots = 8

// slots is the immutable, atomically-published content of a LeafNode.
// Writers always build a new slots value and swap the pointer; they never
// mutate one in place, so concurrent readers never observe a torn slice.
type slots struct {
	keys   []uint64
	values [][]byte
}

func (s *slots) find(key uint64) ([]byte, bool) {
	i := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= key })
	if i < len(s.keys) && s.keys[i] == key {
		return s.values[i], true
	}
	return nil, false
}

// LeafNode is one leaf in the index.Store's singly linked chain of leaves.
type LeafNode struct {
	// ID is the stable logical identifier shared between a primary node
	// and its structurally distinct validator counterpart, used as the
	// key into an orderedmutex.Registry.
	ID uint64

	occ   *occversion.Version
	slots atomic.Pointer[slots]
	next  atomic.Pointer[LeafNode]
}

// NewLeafNode returns an empty leaf with the given stable id.
func NewLeafNode(id uint64, isValidator bool) *LeafNode {
	n := &LeafNode{ID: id, occ: occversion.New(0, isValidator)}
	n.slots.Store(&slots{})
	return n
}

// Next returns the leaf's right sibling, or nil if it is the rightmost
// leaf.
func (n *LeafNode) Next() *LeafNode {
	return n.next.Load()
}

// Len reports the number of populated slots. Intended for tests; it reads
// the published snapshot, not a version-validated one, since callers
// needing a validated read use lookup/scan instead. Store's own
// split-threshold check reads the snapshot directly under the leaf's
// OrderedMutex instead of calling Len, so that the decision is made under
// lock rather than against a racy pre-lock snapshot.
func (n *LeafNode) Len() int {
	return len(n.slots.Load().keys)
}

// MinKey returns the smallest key in the node, or math.MaxUint64 if empty.
func (n *LeafNode) MinKey() uint64 {
	s := n.slots.Load()
	if len(s.keys) == 0 {
		return ^uint64(0)
	}
	return s.keys[0]
}

func cloneInsert(s *slots, key uint64, value []byte) *slots {
	i := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= key })
	newKeys := make([]uint64, len(s.keys)+1)
	newValues := make([][]byte, len(s.values)+1)
	copy(newKeys, s.keys[:i])
	copy(newValues, s.values[:i])
	newKeys[i] = key
	newValues[i] = value
	copy(newKeys[i+1:], s.keys[i:])
	copy(newValues[i+1:], s.values[i:])
	return &slots{keys: newKeys, values: newValues}
}

func cloneUpdate(s *slots, key uint64, value []byte) (*slots, bool) {
	i := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= key })
	if i >= len(s.keys) || s.keys[i] != key {
		return s, false
	}
	newValues := make([][]byte, len(s.values))
	copy(newValues, s.values)
	newValues[i] = value
	return &slots{keys: s.keys, values: newValues}, true
}

// valueBytes encodes value for hash-chain combination; []byte already
// satisfies hashchain.Chain.Combine's accepted shapes, this just guards
// against nil so a miss and an empty value never collide in the digest.
func valueBytes(value []byte, ok bool) []byte {
	if !ok {
		return []byte("\x00miss")
	}
	if len(value) == 0 {
		return []byte("\x00empty")
	}
	return value
}
