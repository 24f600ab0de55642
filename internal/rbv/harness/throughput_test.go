package harness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kolkov/rbv/internal/rbv/config"
	"github.com/kolkov/rbv/internal/rbv/index"
	"github.com/kolkov/rbv/internal/rbv/orderedmutex"
	"github.com/kolkov/rbv/internal/rbv/reclaim"
)

func newSingleStore() *index.Store {
	return index.NewStore(false, orderedmutex.NewRegistry(), reclaim.New())
}

func TestRunThroughputWithFaultInjection(t *testing.T) {
	cfg := config.Default()
	cfg.Threads = 4
	cfg.OperationCount = 400
	cfg.Mix = config.Mix{InsertPct: 30, ReadPct: 30, UpdatePct: 20, ScanPct: 20}
	cfg.RequestsPerSecond = 1_000_000

	keys := sequentialKeys(100)
	plan, err := BuildPlan(cfg, keys, 17)
	require.NoError(t, err)

	store := newSingleStore()
	summary, err := RunThroughput(cfg, plan, store, FaultInjectingRetryPolicy{}, nil)
	require.NoError(t, err)
	require.Equal(t, "throughput", summary.Task)
}

func TestRunThroughputDefaultsToAlwaysCommit(t *testing.T) {
	cfg := config.Default()
	cfg.Threads = 2
	cfg.OperationCount = 100
	cfg.RequestsPerSecond = 1_000_000

	keys := sequentialKeys(50)
	plan, err := BuildPlan(cfg, keys, 4)
	require.NoError(t, err)

	store := newSingleStore()
	_, err = RunThroughput(cfg, plan, store, nil, nil)
	require.NoError(t, err)
}
