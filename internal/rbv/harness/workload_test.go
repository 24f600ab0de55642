package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/rbv/internal/rbv/config"
)

func sequentialKeys(n int) []uint64 {
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = uint64(i) * 2
	}
	return keys
}

func TestBuildPlanIsReproducibleGivenSameSeed(t *testing.T) {
	cfg := config.Default()
	cfg.OperationCount = 500
	keys := sequentialKeys(100)

	a, err := BuildPlan(cfg, keys, 42)
	require.NoError(t, err)
	b, err := BuildPlan(cfg, keys, 42)
	require.NoError(t, err)

	require.Equal(t, len(a.Ops), len(b.Ops))
	for i := range a.Ops {
		assert.Equal(t, a.Ops[i], b.Ops[i])
	}
}

func TestBuildPlanDifferentSeedsDiverge(t *testing.T) {
	cfg := config.Default()
	cfg.OperationCount = 200
	keys := sequentialKeys(100)

	a, err := BuildPlan(cfg, keys, 1)
	require.NoError(t, err)
	b, err := BuildPlan(cfg, keys, 2)
	require.NoError(t, err)

	diverged := false
	for i := range a.Ops {
		if !assert.ObjectsAreEqual(a.Ops[i], b.Ops[i]) {
			diverged = true
			break
		}
	}
	assert.True(t, diverged, "expected different seeds to produce different plans")
}

func TestBuildPlanRejectsEmptyKeyPopulation(t *testing.T) {
	_, err := BuildPlan(config.Default(), nil, 1)
	assert.Error(t, err)
}

func TestBuildPlanRespectsMixPercentages(t *testing.T) {
	cfg := config.Default()
	cfg.OperationCount = 4000
	cfg.Mix = config.Mix{InsertPct: 100, ReadPct: 0, UpdatePct: 0, ScanPct: 0}
	keys := sequentialKeys(50)

	plan, err := BuildPlan(cfg, keys, 7)
	require.NoError(t, err)
	for _, op := range plan.Ops {
		assert.Equal(t, OpInsert, op.Kind)
	}
}

func TestBuildPlanScanSizeWithinRange(t *testing.T) {
	cfg := config.Default()
	cfg.OperationCount = 1000
	cfg.Mix = config.Mix{InsertPct: 0, ReadPct: 0, UpdatePct: 0, ScanPct: 100}
	cfg.ScanMin, cfg.ScanMax = 10, 20
	keys := sequentialKeys(50)

	plan, err := BuildPlan(cfg, keys, 3)
	require.NoError(t, err)
	for _, op := range plan.Ops {
		require.Equal(t, OpScan, op.Kind)
		assert.GreaterOrEqual(t, op.ScanSize, cfg.ScanMin)
		assert.LessOrEqual(t, op.ScanSize, cfg.ScanMax)
	}
}

func TestSynthesizeValueIsDeterministicAndFixedLength(t *testing.T) {
	a := synthesizeValue(123456789)
	b := synthesizeValue(123456789)
	assert.Equal(t, a, b)
	assert.Len(t, a, valueDigits)

	c := synthesizeValue(987654321)
	assert.NotEqual(t, a, c)
}
