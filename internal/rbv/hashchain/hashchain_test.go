package hashchain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/rbv/internal/rbv/futex"
	"github.com/kolkov/rbv/internal/rbv/replica"
)

func digestOf(values ...uint64) uint64 {
	c := New(replica.Primary, 0)
	for _, v := range values {
		c.Combine(v)
	}
	return c.Latest()
}

// TestSingleThreadedPrimary checks a single-threaded primary assigns
// sequential timestamps starting at zero, one per CheckOrder call.
func TestSingleThreadedPrimary(t *testing.T) {
	order := futex.New(0)
	c := New(replica.Primary, 0)

	c.Combine(uint64(42))
	require.NoError(t, c.CheckOrder(order))
	c.Combine(uint64(7))
	require.NoError(t, c.CheckOrder(order))

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(0), entries[0].Timestamp)
	assert.Equal(t, uint64(1), entries[1].Timestamp)
	assert.Equal(t, digestOf(42), entries[0].Digest)
	assert.Equal(t, digestOf(7), entries[1].Digest)

	s, err := c.Finalize()
	require.NoError(t, err)
	assert.NotEmpty(t, s)
}

// TestPrimaryValidatorAgreement checks a validator replaying the same
// combines against a serialized primary stream sees no divergence.
func TestPrimaryValidatorAgreement(t *testing.T) {
	primaryOrder := futex.New(0)
	p := New(replica.Primary, 0)
	p.Combine(uint64(42))
	require.NoError(t, p.CheckOrder(primaryOrder))
	p.Combine(uint64(7))
	require.NoError(t, p.CheckOrder(primaryOrder))
	stream, err := p.Finalize()
	require.NoError(t, err)

	validatorOrder := futex.New(0)
	v := New(replica.Validator, 0)
	require.NoError(t, v.Deserialize(stream))

	v.Combine(uint64(42))
	require.NoError(t, v.CheckOrder(validatorOrder))
	v.Combine(uint64(7))
	require.NoError(t, v.CheckOrder(validatorOrder))

	_, err = v.Finalize()
	assert.NoError(t, err)
}

// TestDivergenceDetection checks a validator that combines a different
// value than the primary did reports a DigestMismatch.
func TestDivergenceDetection(t *testing.T) {
	primaryOrder := futex.New(0)
	p := New(replica.Primary, 0)
	p.Combine(uint64(42))
	require.NoError(t, p.CheckOrder(primaryOrder))
	p.Combine(uint64(7))
	require.NoError(t, p.CheckOrder(primaryOrder))
	stream, err := p.Finalize()
	require.NoError(t, err)

	validatorOrder := futex.New(0)
	v := New(replica.Validator, 3)
	require.NoError(t, v.Deserialize(stream))

	v.Combine(uint64(42))
	require.NoError(t, v.CheckOrder(validatorOrder))

	v.Combine(uint64(8)) // diverges from the primary's 7
	err = v.CheckOrder(validatorOrder)
	require.Error(t, err)

	var divErr *DivergenceError
	require.ErrorAs(t, err, &divErr)
	assert.Equal(t, DigestMismatch, divErr.Kind)
	assert.Equal(t, 3, divErr.Lane)
	assert.Equal(t, 1, divErr.Cursor)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	order := futex.New(0)
	p := New(replica.Primary, 0)
	p.Combine(uint64(1))
	require.NoError(t, p.CheckOrder(order))
	p.Combine("hello")
	require.NoError(t, p.CheckOrder(order))
	p.Combine([]byte{1, 2, 3})
	require.NoError(t, p.CheckOrder(order))
	stream, err := p.Finalize()
	require.NoError(t, err)

	v := New(replica.Validator, 0)
	require.NoError(t, v.Deserialize(stream))

	want := []Entry{{Digest: digestOf(1), Timestamp: 0}}
	assert.Len(t, v.Entries(), 3)
	if diff := cmp.Diff(want[0], v.Entries()[0]); diff != "" {
		t.Errorf("entry 0 mismatch (-want +got):\n%s", diff)
	}
}

func TestDoubleResetIsIdempotent(t *testing.T) {
	c := New(replica.Primary, 0)
	c.Combine(uint64(9))
	c.Reset()
	first := *c
	c.Reset()
	assert.Equal(t, first, *c)
}

func TestCombineOrderSensitive(t *testing.T) {
	a := New(replica.Primary, 0)
	a.Combine(uint64(1))
	a.Combine(uint64(2))

	b := New(replica.Primary, 0)
	b.Combine(uint64(2))
	b.Combine(uint64(1))

	assert.NotEqual(t, a.Latest(), b.Latest())
}

func TestDeserializeParseError(t *testing.T) {
	v := New(replica.Validator, 0)
	err := v.Deserialize("not-a-number")
	assert.Error(t, err)
}
