package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/rbv/internal/rbv/rbvlog"
)

func TestEvaluationFinishComputesPercentilesOverInnerWindow(t *testing.T) {
	log := rbvlog.New(nilWriter{}, rbvlog.Info)
	const n = 800
	e := NewEvaluation(log, n, 4, "test")

	for i := 0; i < n; i++ {
		e.RecordOp(i%4, i, time.Duration(i+1)*time.Millisecond)
	}

	summary := e.Finish()
	require.Equal(t, "test", summary.Task)
	// The inner 75% window drops the first and last 1/8 of latencies
	// (index order), so p99 must stay comfortably below the max latency.
	assert.Less(t, summary.P99, time.Duration(n)*time.Millisecond)
	assert.Greater(t, summary.AvgLatency, time.Duration(0))
	assert.GreaterOrEqual(t, summary.P99, summary.P95)
	assert.GreaterOrEqual(t, summary.P95, summary.P90)
}

func TestEvaluationFinishHandlesEmptyRun(t *testing.T) {
	log := rbvlog.New(nilWriter{}, rbvlog.Info)
	e := NewEvaluation(log, 0, 1, "empty")
	summary := e.Finish()
	assert.Equal(t, "empty", summary.Task)
	assert.Equal(t, time.Duration(0), summary.P99)
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }
