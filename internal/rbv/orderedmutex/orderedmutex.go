// Package orderedmutex implements a critical section that, on the
// primary, assigns two monotonically increasing timestamps (enter and
// exit) to a hash chain while holding an OS mutex, and on the validator,
// waits for those same timestamps to be produced before and after holding
// the mutex, so the validator never blocks other validators on the OS
// mutex while it is waiting on the digest stream.
package orderedmutex

import (
	"sync"

	"github.com/kolkov/rbv/internal/rbv/futex"
	"github.com/kolkov/rbv/internal/rbv/replica"
)

// Mutex is a shared, totally-ordered critical section.
type Mutex struct {
	os    sync.Mutex
	order *futex.Word
}

// New returns an unlocked Mutex with its order counter at zero.
func New() *Mutex {
	return &Mutex{order: futex.New(0)}
}

// Order returns the shared order counter backing this mutex, primarily so
// tests can assert on it directly: it increments exactly twice per
// completed lock/unlock pair.
func (m *Mutex) Order() *futex.Word {
	return m.order
}

// checkpointer is the minimal capability Lock/Unlock need from a hash
// chain; internal/rbv/hashchain.Chain satisfies it.
type checkpointer interface {
	CheckOrder(*futex.Word) error
}

// Lock acquires the critical section for ctx's role. On the primary this
// acquires the OS mutex and then checkpoints (records an "enter" digest
// entry). On the validator this checkpoints first (waiting for the
// primary's matching enter timestamp) and only then acquires the OS mutex.
func (m *Mutex) Lock(ctx *replica.Context, chain checkpointer) error {
	if ctx.Role == replica.Primary {
		m.os.Lock()
		return chain.CheckOrder(m.order)
	}
	if err := chain.CheckOrder(m.order); err != nil {
		return err
	}
	m.os.Lock()
	return nil
}

// Unlock releases the critical section for ctx's role. On the primary
// this checkpoints (records an "exit" digest entry) and then releases the
// OS mutex. On the validator this releases the OS mutex first and then
// checkpoints (waiting for the primary's matching exit timestamp).
func (m *Mutex) Unlock(ctx *replica.Context, chain checkpointer) error {
	if ctx.Role == replica.Primary {
		err := chain.CheckOrder(m.order)
		m.os.Unlock()
		return err
	}
	m.os.Unlock()
	return chain.CheckOrder(m.order)
}

// LockGuard provides scoped acquisition: construct with Acquire, always
// call Close (typically via defer) to guarantee Unlock runs on every exit
// path, including an error return or a panic.
type LockGuard struct {
	mtx   *Mutex
	ctx   *replica.Context
	chain checkpointer
}

// Acquire locks mtx for ctx/chain and returns a guard whose Close unlocks
// it. If Lock itself fails (a validator-side divergence), the returned
// error is non-nil and the guard's Close is a no-op — the caller must not
// use the guard in that case.
func Acquire(mtx *Mutex, ctx *replica.Context, chain checkpointer) (*LockGuard, error) {
	if err := mtx.Lock(ctx, chain); err != nil {
		return nil, err
	}
	return &LockGuard{mtx: mtx, ctx: ctx, chain: chain}, nil
}

// Close unlocks the guarded section. It is safe to defer and safe to call
// at most once; the error should be checked by callers that care about
// validator-side divergence on unlock.
func (g *LockGuard) Close() error {
	if g == nil || g.mtx == nil {
		return nil
	}
	mtx := g.mtx
	g.mtx = nil
	return mtx.Unlock(g.ctx, g.chain)
}
