// Package replica carries the per-goroutine primary/validator role used
// throughout internal/rbv, as an explicit value rather than thread-local
// globals.
//
// Role never changes once a goroutine starts a workload, so a Context is
// created once at goroutine entry and threaded through every call instead
// of reading process-wide state: index.Store operations take a *Context
// as their first argument, OrderedMutex Lock/Unlock take one, and the OCC
// helpers take the role as an explicit isValidator flag.
package replica

import "github.com/kolkov/rbv/internal/rbv/futex"

// Role selects primary-vs-validator behavior.
type Role int

const (
	// Primary performs real work and records the digest.
	Primary Role = iota
	// Validator replays the digest and verifies it.
	Validator
)

// String implements fmt.Stringer for diagnostics.
func (r Role) String() string {
	if r == Primary {
		return "primary"
	}
	return "validator"
}

// IsValidator reports whether r is the Validator role.
func (r Role) IsValidator() bool {
	return r == Validator
}

// Context bundles a goroutine's role with its hash chain. Chain is
// intentionally typed as an interface here (Checkpointer) to avoid an
// import cycle with internal/rbv/hashchain — see that package's Chain
// type, which satisfies it.
type Context struct {
	Role  Role
	Chain Checkpointer
}

// Checkpointer is the narrow capability internal/rbv/hashchain.Chain
// exposes to consumers: combine evidence, checkpoint it, and reset it. A
// single concrete implementation branches its behavior on Role instead of
// dispatching between separate primary/validator types — callers here
// only need the capability, not the concrete type.
type Checkpointer interface {
	Combine(x any)
	CheckOrder(order *futex.Word) error
	Reset()
}

// New returns a Context for a goroutine about to start a workload lane.
func New(role Role, chain Checkpointer) *Context {
	return &Context{Role: role, Chain: chain}
}

// IsValidator is a convenience forwarding to ctx.Role.IsValidator.
func (ctx *Context) IsValidator() bool {
	return ctx.Role.IsValidator()
}
