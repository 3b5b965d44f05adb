package trader

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gridbot/store"
)

func tradesWithPnL(pnls ...float64) []*store.TradeRecord {
	now := time.Now()
	out := make([]*store.TradeRecord, len(pnls))
	for i, pnl := range pnls {
		out[i] = &store.TradeRecord{
			Symbol:   "BTCUSDT",
			Side:     "LONG",
			PnL:      pnl,
			ClosedAt: now.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestComputeMetricsBasics(t *testing.T) {
	m := ComputeMetrics(tradesWithPnL(10, -5, 10, -5), 100)

	assert.Equal(t, 4, m.TotalTrades)
	assert.InDelta(t, 10.0, m.TotalPnL, 1e-9)
	assert.InDelta(t, 50.0, m.WinRate, 1e-9)
	assert.InDelta(t, 2.0, m.ProfitFactor, 1e-9)
}

func TestComputeMetricsEmptyWindow(t *testing.T) {
	m := ComputeMetrics(nil, 100)
	assert.Zero(t, m.TotalTrades)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitFactor)
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.SharpeRatio)
}

func TestProfitFactorSentinel(t *testing.T) {
	// no losing trades: +Inf, never NaN
	m := ComputeMetrics(tradesWithPnL(10, 5, 3), 100)
	assert.True(t, math.IsInf(m.ProfitFactor, 1))

	// only losing trades: 0
	m = ComputeMetrics(tradesWithPnL(-10, -5), 100)
	assert.Zero(t, m.ProfitFactor)
	assert.False(t, math.IsNaN(m.ProfitFactor))
}

func TestMaxDrawdown(t *testing.T) {
	// cumulative: 10, 5, 15 -> trough 5 off peak 10 = 50%
	m := ComputeMetrics(tradesWithPnL(10, -5, 10), 100)
	assert.InDelta(t, 50.0, m.MaxDrawdown, 1e-9)

	// monotone gains have zero drawdown
	m = ComputeMetrics(tradesWithPnL(1, 2, 3), 100)
	assert.Zero(t, m.MaxDrawdown)

	// all-loss curve never establishes a positive peak
	m = ComputeMetrics(tradesWithPnL(-1, -2), 100)
	assert.Zero(t, m.MaxDrawdown)
}

func TestSharpeRatioSentinels(t *testing.T) {
	// fewer than two trades
	assert.Zero(t, ComputeMetrics(tradesWithPnL(10), 100).SharpeRatio)

	// flat returns have zero stddev
	assert.Zero(t, ComputeMetrics(tradesWithPnL(5, 5, 5), 100).SharpeRatio)

	m := ComputeMetrics(tradesWithPnL(10, -5, 10, -5), 100)
	assert.False(t, math.IsNaN(m.SharpeRatio))
	assert.NotZero(t, m.SharpeRatio)
}

func TestAdjustGrowsInvestmentOnGoodRun(t *testing.T) {
	baseline := ParameterSet{InvestmentAmount: 100, TakeProfitPercent: 0.7, StopLossPercent: 0.3}
	tuner := NewTuner(baseline)

	// winRate 75%, PF 30, drawdown 3.3%
	m := ComputeMetrics(tradesWithPnL(10, 10, 10, -1), 100)
	adjusted := tuner.Adjust(baseline, m)
	assert.InDelta(t, 110.0, adjusted.InvestmentAmount, 1e-9)

	// repeated application is capped at 2x baseline
	params := baseline
	for i := 0; i < 20; i++ {
		params = tuner.Adjust(params, m)
	}
	assert.InDelta(t, 200.0, params.InvestmentAmount, 1e-9)
}

func TestAdjustShrinksInvestmentOnBadRun(t *testing.T) {
	baseline := ParameterSet{InvestmentAmount: 100, TakeProfitPercent: 0.7, StopLossPercent: 0.3}
	tuner := NewTuner(baseline)

	// winRate 33% trips the shrink rule
	m := ComputeMetrics(tradesWithPnL(-10, -10, 5), 100)
	adjusted := tuner.Adjust(baseline, m)
	assert.InDelta(t, 80.0, adjusted.InvestmentAmount, 1e-9)

	// repeated application is floored at 0.5x baseline
	params := baseline
	for i := 0; i < 20; i++ {
		params = tuner.Adjust(params, m)
	}
	assert.InDelta(t, 50.0, params.InvestmentAmount, 1e-9)
	assert.Greater(t, params.TakeProfitPercent, 0.0)
	assert.Greater(t, params.StopLossPercent, 0.0)
}

func TestAdjustShrinksTakeProfit(t *testing.T) {
	baseline := ParameterSet{InvestmentAmount: 100, TakeProfitPercent: 1.0, StopLossPercent: 0.3}
	tuner := NewTuner(baseline)

	// winRate 33% < 45 and TP 1.0 > 0.7
	m := ComputeMetrics(tradesWithPnL(-10, -10, 5), 100)
	adjusted := tuner.Adjust(baseline, m)
	assert.InDelta(t, 0.9, adjusted.TakeProfitPercent, 1e-9)
}

func TestAdjustShrinksStopLossOnDrawdown(t *testing.T) {
	baseline := ParameterSet{InvestmentAmount: 100, TakeProfitPercent: 0.7, StopLossPercent: 0.3}
	tuner := NewTuner(baseline)

	// cumulative 10, 2 -> drawdown 80% > 15, SL 0.3 < 0.7
	m := ComputeMetrics(tradesWithPnL(10, -8, 1), 100)
	adjusted := tuner.Adjust(baseline, m)
	assert.InDelta(t, 0.27, adjusted.StopLossPercent, 1e-9)
}

func TestAdjustNoTradesNoChange(t *testing.T) {
	baseline := ParameterSet{InvestmentAmount: 100, TakeProfitPercent: 0.7, StopLossPercent: 0.3}
	tuner := NewTuner(baseline)

	adjusted := tuner.Adjust(baseline, ComputeMetrics(nil, 100))
	assert.Equal(t, baseline, adjusted)
}
