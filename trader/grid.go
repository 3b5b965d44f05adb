package trader

import (
	"math"
	"sort"
	"time"

	"gridbot/config"
	"gridbot/logger"
	"gridbot/market"
)

// Calculator derives volatility-adjusted grid levels from market snapshots.
// It is stateless; the resulting GridSnapshot carries everything the loop
// needs to decide when to regenerate.
type Calculator struct {
	levels         int
	spacing        float64
	spacingDivisor float64
	baseRange      float64
	rangeDivisor   float64
	distribution   config.Distribution
	power          int
	precision      int32
	horizon        time.Duration
	driftEpsilon   float64
}

// NewCalculator builds a Calculator from run configuration.
func NewCalculator(cfg *config.Config) *Calculator {
	return &Calculator{
		levels:         cfg.GridLevels,
		spacing:        cfg.GridSpacingPercent,
		spacingDivisor: cfg.SpacingDivisor,
		baseRange:      cfg.BaseRangePercent,
		rangeDivisor:   cfg.RangeDivisor,
		distribution:   cfg.Distribution,
		power:          cfg.ConcentrationPower,
		precision:      cfg.PricePrecision,
		horizon:        cfg.GridUpdateHorizon,
		driftEpsilon:   cfg.GridDriftEpsilon,
	}
}

// SetTickPrecision aligns level rounding with the symbol's tick size. The
// configured precision is only the fallback: a fixed two-decimal default
// collapses adjacent levels on low-priced symbols.
func (c *Calculator) SetTickPrecision(tick float64) {
	if tick > 0 {
		c.precision = stepPrecision(tick)
	}
}

// Recompute regenerates the full grid around currentPrice.
// The grid is always rebuilt wholesale; there is no incremental diffing.
func (c *Calculator) Recompute(currentPrice float64, closes []float64, now time.Time) (*GridSnapshot, error) {
	if currentPrice <= 0 {
		return nil, ErrInsufficientData
	}
	if len(closes) < 2 {
		return nil, ErrInsufficientData
	}

	volatility := market.CloseVolatility(closes)
	spacing := math.Max(c.spacing, volatility/c.spacingDivisor)
	rangePercent := c.baseRange * (1 + volatility/c.rangeDivisor)

	upper := currentPrice * (1 + rangePercent/100)
	lower := currentPrice * (1 - rangePercent/100)

	levels := make([]GridLevel, 0, c.levels)
	n := float64(c.levels - 1)
	for i := 0; i < c.levels; i++ {
		var t float64
		switch c.distribution {
		case config.DistributionConcentrated:
			// Odd power curve: dense near the center, sparse at the edges.
			raw := math.Pow(2*float64(i)/n-1, float64(c.power))
			t = (raw + 1) / 2
		default:
			t = float64(i) / n
		}
		price := lower + (upper-lower)*t
		levels = append(levels, GridLevel{Price: RoundToTick(price, c.precision)})
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].Price < levels[j].Price })
	for i := range levels {
		levels[i].Index = i
	}

	snap := &GridSnapshot{
		Levels:     levels,
		LowerPrice: levels[0].Price,
		UpperPrice: levels[len(levels)-1].Price,
		Volatility: volatility,
		Spacing:    spacing,
		CreatedAt:  now,
	}

	logger.Infof("[Grid] Recomputed %d levels: %.2f - %.2f (volatility %.2f%%, spacing %.2f%%)",
		len(levels), snap.LowerPrice, snap.UpperPrice, volatility, spacing)
	return snap, nil
}

// ShouldUpdate reports whether the grid is stale: the update horizon has
// elapsed, or price has drifted beyond the grid bounds plus tolerance.
// Side-effect free.
func (c *Calculator) ShouldUpdate(snap *GridSnapshot, now time.Time, price float64) bool {
	if snap == nil || len(snap.Levels) == 0 {
		return true
	}
	if now.Sub(snap.CreatedAt) >= c.horizon {
		return true
	}
	if price < snap.LowerPrice*(1-c.driftEpsilon) || price > snap.UpperPrice*(1+c.driftEpsilon) {
		return true
	}
	return false
}
