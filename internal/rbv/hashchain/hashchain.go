// Package hashchain implements the per-thread digest that a replay-by-
// validation run uses to prove the primary and validator executions
// observed the same globally-ordered sequence of evidence.
//
// Every observable quantity a replay must agree on — a version snapshot, a
// branch choice, a value read or written — is folded into a running
// 64-bit accumulator via Combine. CheckOrder is the checkpoint: on the
// primary it timestamps and records the accumulator, on the validator it
// blocks until the expected timestamp arrives and then verifies the
// accumulator matches what the primary recorded.
package hashchain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kolkov/rbv/internal/rbv/futex"
	"github.com/kolkov/rbv/internal/rbv/replica"
)

// FNV-1a seed constants, pinned by the digest wire format below.
const (
	fnvOffsetBasis uint64 = 0xcbf29ce484222325
	fnvPrime       uint64 = 0x100000001b3
)

// Entry is one recorded (digest, timestamp) pair in the chain.
type Entry struct {
	Digest    uint64
	Timestamp uint64
}

// DivergenceKind distinguishes the two fatal validator-side failure modes.
type DivergenceKind int

const (
	// DigestMismatch: the locally computed digest disagrees with the
	// primary's recorded digest at the current cursor, or the final
	// digest disagrees with the deserialized reference.
	DigestMismatch DivergenceKind = iota
	// TimestampRegression: the validator observed the shared order
	// counter already past the entry it was supposed to verify.
	TimestampRegression
)

// DivergenceError reports a fatal replay divergence, identifying the lane,
// cursor, and the expected vs. observed digest.
type DivergenceError struct {
	Kind     DivergenceKind
	Lane     int
	Cursor   int
	Expected uint64
	Observed uint64
}

func (e *DivergenceError) Error() string {
	switch e.Kind {
	case TimestampRegression:
		return fmt.Sprintf("rbv: lane %d: timestamp regression at cursor %d (missed checkpoint)", e.Lane, e.Cursor)
	default:
		return fmt.Sprintf("rbv: lane %d: digest divergence at cursor %d: expected %d, observed %d",
			e.Lane, e.Cursor, e.Expected, e.Observed)
	}
}

// Chain is the per-goroutine running digest. It is strictly thread-local:
// exactly one goroutine combines into and checkpoints a given Chain.
//
// Chain satisfies replica.Checkpointer.
type Chain struct {
	role    replica.Role
	lane    int
	entries []Entry
	latest  uint64
	// reference is the validator's expected final digest, loaded from the
	// primary's serialized stream.
	reference uint64
	cursor    int
}

// New returns a Chain for the given role and lane (the lane id is only
// used to annotate DivergenceError; it has no effect on the digest).
func New(role replica.Role, lane int) *Chain {
	return &Chain{role: role, lane: lane}
}

// combineBytes is the FNV-1a stage: bytes -> 64-bit hash.
func combineBytes(data []byte) uint64 {
	h := fnvOffsetBasis
	for _, b := range data {
		h ^= uint64(b)
		h *= fnvPrime
	}
	return h
}

// combine is the hash-combine stage: 64-bit hash -> latest accumulator.
func (c *Chain) combine(h uint64) {
	c.latest ^= h + 0x9e3779b9 + (c.latest << 6) + (c.latest >> 2)
}

// Combine folds x into the running digest. x must be a uint64, string, or
// []byte — the three shapes the operations adapter needs (a version word
// or index, a key, or an encoded value); an int is folded as its uint64
// conversion.
func (c *Chain) Combine(x any) {
	switch v := x.(type) {
	case uint64:
		var buf [8]byte
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		c.combine(combineBytes(buf[:]))
	case int:
		c.Combine(uint64(v))
	case string:
		c.combine(combineBytes([]byte(v)))
	case []byte:
		c.combine(combineBytes(v))
	default:
		panic(fmt.Sprintf("hashchain: Combine: unsupported type %T", x))
	}
}

// Latest returns the current (not yet checkpointed) accumulator value.
// Exposed for tests; production callers checkpoint via CheckOrder.
func (c *Chain) Latest() uint64 {
	return c.latest
}

// CheckOrder is the checkpoint primitive. On the primary it
// fetch-and-increments order, records (latest, timestamp), and resets
// latest. On the validator it blocks until order reaches the cursor's
// expected timestamp, verifies the recorded digest, advances order and
// the cursor, and wakes other waiters.
//
// CheckOrder returns a *DivergenceError on validator-side mismatch; it is
// nil in all primary-side and successful validator-side cases.
func (c *Chain) CheckOrder(order *futex.Word) error {
	if c.role == replica.Primary {
		timestamp := order.Add(1) - 1
		c.entries = append(c.entries, Entry{Digest: c.latest, Timestamp: timestamp})
		c.latest = 0
		return nil
	}
	return c.checkOrderValidator(order)
}

func (c *Chain) checkOrderValidator(order *futex.Word) error {
	if c.cursor >= len(c.entries) {
		return &DivergenceError{Kind: DigestMismatch, Lane: c.lane, Cursor: c.cursor}
	}
	want := c.entries[c.cursor]

	timenow := order.Load()
	for timenow != want.Timestamp {
		if timenow > want.Timestamp {
			return &DivergenceError{
				Kind: TimestampRegression, Lane: c.lane, Cursor: c.cursor,
				Expected: want.Timestamp, Observed: timenow,
			}
		}
		timenow = order.Wait(timenow)
	}

	if want.Digest != c.latest {
		return &DivergenceError{
			Kind: DigestMismatch, Lane: c.lane, Cursor: c.cursor,
			Expected: want.Digest, Observed: c.latest,
		}
	}

	c.latest = 0
	order.Add(1)
	c.cursor++
	order.Broadcast()
	return nil
}

// Serialize emits the primary's digest stream as "N latest entries..."
// where each entry is "digest timestamp", whitespace-separated, with a
// trailing space.
func (c *Chain) Serialize() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %d ", len(c.entries), c.latest)
	for _, e := range c.entries {
		fmt.Fprintf(&b, "%d %d ", e.Digest, e.Timestamp)
	}
	return b.String()
}

// Deserialize parses the wire format produced by Serialize into this
// (validator-side) Chain, setting reference to the embedded latest value
// and resetting the read cursor to zero.
func (c *Chain) Deserialize(s string) error {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return fmt.Errorf("hashchain: deserialize: truncated header")
	}
	n, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return fmt.Errorf("hashchain: deserialize: entry count: %w", err)
	}
	reference, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("hashchain: deserialize: reference digest: %w", err)
	}
	fields = fields[2:]
	if uint64(len(fields)) < 2*n {
		return fmt.Errorf("hashchain: deserialize: expected %d entries, got %d fields", n, len(fields))
	}

	entries := make([]Entry, n)
	for i := uint64(0); i < n; i++ {
		digest, err := strconv.ParseUint(fields[2*i], 10, 64)
		if err != nil {
			return fmt.Errorf("hashchain: deserialize: entry %d digest: %w", i, err)
		}
		timestamp, err := strconv.ParseUint(fields[2*i+1], 10, 64)
		if err != nil {
			return fmt.Errorf("hashchain: deserialize: entry %d timestamp: %w", i, err)
		}
		entries[i] = Entry{Digest: digest, Timestamp: timestamp}
	}

	c.entries = entries
	c.reference = reference
	c.latest = 0
	c.cursor = 0
	return nil
}

// Finalize ends a workload run. On the primary it serializes the stream
// and resets; on the validator it checks the final accumulator against the
// reference loaded by Deserialize and resets, returning a DivergenceError
// on mismatch.
func (c *Chain) Finalize() (string, error) {
	if c.role == replica.Primary {
		s := c.Serialize()
		c.Reset()
		return s, nil
	}
	if c.latest != c.reference {
		err := &DivergenceError{
			Kind: DigestMismatch, Lane: c.lane, Cursor: c.cursor,
			Expected: c.reference, Observed: c.latest,
		}
		c.Reset()
		return "", err
	}
	c.Reset()
	return "", nil
}

// Reset clears the chain back to its just-constructed state. Two
// successive calls are equivalent to one.
func (c *Chain) Reset() {
	c.entries = nil
	c.reference = 0
	c.latest = 0
	c.cursor = 0
}

// Entries returns a read-only view of the recorded entries, for tests and
// for harness-level cross-replica comparisons.
func (c *Chain) Entries() []Entry {
	return c.entries
}
