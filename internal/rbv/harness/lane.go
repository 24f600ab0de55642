package harness

import "sync/atomic"

// window is the reference workload's back-pressure threshold, 16 *
// n_threads operations. No lane in this package stalls on it: Run
// finishes every primary phase before any validator phase starts.
func window(nThreads int) int64 {
	return int64(16 * nThreads)
}

// Lane is one worker's shared progress state between its primary and
// validator phases: step tracks the highest primary-committed operation
// index, sstep the highest validator-committed one.
type Lane struct {
	ID    int
	step  atomic.Int64
	sstep atomic.Int64
}

// NewLane returns a Lane with both counters at -1 (nothing committed).
func NewLane(id int) *Lane {
	l := &Lane{ID: id}
	l.step.Store(-1)
	l.sstep.Store(-1)
	return l
}

// Step returns the highest operation index this lane's primary phase has
// committed.
func (l *Lane) Step() int64 { return l.step.Load() }

// SStep returns the highest operation index this lane's validator phase
// has committed.
func (l *Lane) SStep() int64 { return l.sstep.Load() }
