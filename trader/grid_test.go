package trader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot/config"
)

func testGridConfig() *config.Config {
	return &config.Config{
		GridLevels:         5,
		GridSpacingPercent: 0.3,
		SpacingDivisor:     10,
		BaseRangePercent:   1.5,
		RangeDivisor:       100,
		Distribution:       config.DistributionLinear,
		ConcentrationPower: 3,
		PricePrecision:     2,
		GridUpdateHorizon:  12 * time.Hour,
		GridDriftEpsilon:   0.01,
	}
}

// closes with mean 50000 and population stddev 500, i.e. exactly 1.0%
// close-price volatility.
var onePercentCloses = []float64{49500, 50500}

func TestRecomputeVolatilityAdjustedRange(t *testing.T) {
	calc := NewCalculator(testGridConfig())

	snap, err := calc.Recompute(50000, onePercentCloses, time.Now())
	require.NoError(t, err)

	// range = 1.5 * (1 + 1/100) = 1.515% of 50000 on each side
	assert.InDelta(t, 1.0, snap.Volatility, 1e-9)
	assert.InDelta(t, 49242.50, snap.LowerPrice, 0.01)
	assert.InDelta(t, 50757.50, snap.UpperPrice, 0.01)

	// configured spacing 0.3 beats volatility/divisor = 0.1
	assert.InDelta(t, 0.3, snap.Spacing, 1e-9)

	require.Len(t, snap.Levels, 5)
	assert.InDelta(t, 50000, snap.Levels[2].Price, 0.01)
}

func TestRecomputeLevelsAscendingAndPositive(t *testing.T) {
	tests := []struct {
		name         string
		distribution config.Distribution
		levels       int
	}{
		{"linear 5", config.DistributionLinear, 5},
		{"linear 7", config.DistributionLinear, 7},
		{"concentrated 7", config.DistributionConcentrated, 7},
		{"concentrated 11", config.DistributionConcentrated, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testGridConfig()
			cfg.Distribution = tt.distribution
			cfg.GridLevels = tt.levels
			calc := NewCalculator(cfg)

			snap, err := calc.Recompute(50000, onePercentCloses, time.Now())
			require.NoError(t, err)
			require.Len(t, snap.Levels, tt.levels)

			for i, level := range snap.Levels {
				assert.Equal(t, i, level.Index)
				assert.Greater(t, level.Price, 0.0)
				if i > 0 {
					assert.Greater(t, level.Price, snap.Levels[i-1].Price,
						"levels must be strictly ascending")
				}
			}
		})
	}
}

func TestRecomputeConcentratedCentersOnPrice(t *testing.T) {
	cfg := testGridConfig()
	cfg.Distribution = config.DistributionConcentrated
	cfg.GridLevels = 7
	calc := NewCalculator(cfg)

	snap, err := calc.Recompute(50000, onePercentCloses, time.Now())
	require.NoError(t, err)

	// the middle level of an odd power curve sits exactly at the midpoint
	assert.InDelta(t, 50000, snap.Levels[3].Price, 0.01)

	// inner gaps are tighter than outer gaps
	inner := snap.Levels[4].Price - snap.Levels[3].Price
	outer := snap.Levels[6].Price - snap.Levels[5].Price
	assert.Less(t, inner, outer)
}

func TestRecomputeTickDerivedPrecision(t *testing.T) {
	cfg := testGridConfig()
	cfg.PricePrecision = 2 // two decimals would collapse every sub-cent level
	calc := NewCalculator(cfg)
	calc.SetTickPrecision(0.00001)

	snap, err := calc.Recompute(0.123, []float64{0.122, 0.124}, time.Now())
	require.NoError(t, err)
	require.Len(t, snap.Levels, 5)

	for i := 1; i < len(snap.Levels); i++ {
		assert.Greater(t, snap.Levels[i].Price, snap.Levels[i-1].Price,
			"low-priced symbols keep distinct levels")
	}
}

func TestRecomputeInsufficientData(t *testing.T) {
	calc := NewCalculator(testGridConfig())

	_, err := calc.Recompute(50000, []float64{50000}, time.Now())
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = calc.Recompute(0, onePercentCloses, time.Now())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestShouldUpdate(t *testing.T) {
	calc := NewCalculator(testGridConfig())
	now := time.Now()

	snap, err := calc.Recompute(50000, onePercentCloses, now)
	require.NoError(t, err)

	assert.True(t, calc.ShouldUpdate(nil, now, 50000), "missing grid is stale")
	assert.False(t, calc.ShouldUpdate(snap, now.Add(time.Hour), 50000))
	assert.True(t, calc.ShouldUpdate(snap, now.Add(13*time.Hour), 50000), "horizon elapsed")

	beyondUpper := snap.UpperPrice * 1.02
	assert.True(t, calc.ShouldUpdate(snap, now.Add(time.Hour), beyondUpper), "price drifted above")

	beyondLower := snap.LowerPrice * 0.98
	assert.True(t, calc.ShouldUpdate(snap, now.Add(time.Hour), beyondLower), "price drifted below")

	withinTolerance := snap.UpperPrice * 1.005
	assert.False(t, calc.ShouldUpdate(snap, now.Add(time.Hour), withinTolerance))
}
