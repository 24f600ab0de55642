package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/rbv/internal/rbv/config"
	"github.com/kolkov/rbv/internal/rbv/index"
	"github.com/kolkov/rbv/internal/rbv/orderedmutex"
	"github.com/kolkov/rbv/internal/rbv/reclaim"
)

func newStorePair() (primary, validator *index.Store) {
	registry := orderedmutex.NewRegistry()
	reclaimer := reclaim.New()
	primary = index.NewStore(false, registry, reclaimer)
	validator = index.NewStore(true, registry, reclaimer)
	return primary, validator
}

func TestRunAgreesAcrossPrimaryAndValidator(t *testing.T) {
	cfg := config.Default()
	cfg.Threads = 2
	cfg.OperationCount = 300
	cfg.Mix = config.Mix{InsertPct: 40, ReadPct: 20, UpdatePct: 20, ScanPct: 20}
	cfg.RequestsPerSecond = 1_000_000

	keys := sequentialKeys(200)
	plan, err := BuildPlan(cfg, keys, 99)
	require.NoError(t, err)

	primary, validator := newStorePair()

	result, err := Run(cfg, plan, primary, validator, nil)
	require.NoError(t, err)
	assert.Len(t, result.Streams, cfg.Threads)
	for _, s := range result.Streams {
		assert.NotEmpty(t, s)
	}
	assert.Equal(t, "primary", result.Primary.Task)
	assert.Equal(t, "validator", result.Validator.Task)
}

func TestRunSingleThreaded(t *testing.T) {
	cfg := config.Default()
	cfg.Threads = 1
	cfg.OperationCount = 50
	cfg.RequestsPerSecond = 1_000_000

	keys := sequentialKeys(20)
	plan, err := BuildPlan(cfg, keys, 5)
	require.NoError(t, err)

	primary, validator := newStorePair()
	_, err = Run(cfg, plan, primary, validator, nil)
	require.NoError(t, err)
}
