package trader

import (
	"math"

	"gridbot/logger"
	"gridbot/store"
)

// Metrics are the realized performance numbers the tuner and the status
// snapshot work from.
type Metrics struct {
	TotalTrades  int
	TotalPnL     float64
	WinRate      float64 // percent
	ProfitFactor float64 // +Inf when there are wins and no losses
	MaxDrawdown  float64 // peak-to-trough, percent of peak
	SharpeRatio  float64 // annualized, 0 when undefined
}

const (
	annualRiskFree = 0.02
	tradingDays    = 365
)

// Tuner rewrites strategy parameters from trailing performance. Adjustments
// are multiplicative and bounded against the original baseline, so
// re-applying them is safe.
type Tuner struct {
	baseline ParameterSet
}

// NewTuner remembers the baseline the investment bounds are measured against.
func NewTuner(baseline ParameterSet) *Tuner {
	return &Tuner{baseline: baseline}
}

// ComputeMetrics derives the performance metrics from a trade window.
// Degenerate inputs yield documented sentinels instead of NaN: empty window
// gives zeroes, a loss-free profitable window gives +Inf profit factor.
func ComputeMetrics(trades []*store.TradeRecord, investment float64) Metrics {
	m := Metrics{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return m
	}

	var wins int
	var grossProfit, grossLoss float64
	for _, t := range trades {
		m.TotalPnL += t.PnL
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
	}
	m.WinRate = float64(wins) / float64(len(trades)) * 100

	switch {
	case grossLoss > 0:
		m.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}

	m.MaxDrawdown = maxDrawdown(trades)
	m.SharpeRatio = sharpeRatio(trades, investment)
	return m
}

// maxDrawdown walks the cumulative PnL curve and returns the largest
// peak-to-trough decline as a percentage of the peak.
func maxDrawdown(trades []*store.TradeRecord) float64 {
	var cumulative, peak, maxDD float64
	for _, t := range trades {
		cumulative += t.PnL
		if cumulative > peak {
			peak = cumulative
		}
		if peak > 0 {
			dd := (peak - cumulative) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio annualizes per-trade returns (PnL relative to the invested
// notional) against a 2% annual risk-free rate. Returns 0 for fewer than
// two trades or a flat return series.
func sharpeRatio(trades []*store.TradeRecord, investment float64) float64 {
	if len(trades) < 2 || investment <= 0 {
		return 0
	}

	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.PnL / investment
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	// a flat series leaves a tiny float residue rather than an exact zero
	if std < 1e-12 {
		return 0
	}

	dailyRiskFree := annualRiskFree / tradingDays
	return (mean - dailyRiskFree) / std * math.Sqrt(tradingDays)
}

// Adjust applies the tuning rules to the current parameters and returns the
// new set. Investment stays within [0.5x, 2x] of the baseline; TP/SL only
// ever shrink multiplicatively and can never reach zero.
func (t *Tuner) Adjust(params ParameterSet, m Metrics) ParameterSet {
	if m.TotalTrades == 0 {
		return params
	}

	adjusted := params

	if m.WinRate > 60 && m.ProfitFactor > 1.5 && m.MaxDrawdown < 10 {
		adjusted.InvestmentAmount = math.Min(params.InvestmentAmount*1.1, t.baseline.InvestmentAmount*2)
	} else if m.WinRate < 40 || m.ProfitFactor < 1 || m.MaxDrawdown > 20 {
		adjusted.InvestmentAmount = math.Max(params.InvestmentAmount*0.8, t.baseline.InvestmentAmount*0.5)
	}

	if m.WinRate < 45 && adjusted.TakeProfitPercent > 0.7 {
		adjusted.TakeProfitPercent *= 0.9
	}
	if m.MaxDrawdown > 15 && adjusted.StopLossPercent < 0.7 {
		adjusted.StopLossPercent *= 0.9
	}

	if adjusted != params {
		logger.Infof("[Tuner] Parameters adjusted: investment %.2f -> %.2f, TP %.3f%% -> %.3f%%, SL %.3f%% -> %.3f%% (winRate %.1f%%, PF %.2f, DD %.1f%%)",
			params.InvestmentAmount, adjusted.InvestmentAmount,
			params.TakeProfitPercent, adjusted.TakeProfitPercent,
			params.StopLossPercent, adjusted.StopLossPercent,
			m.WinRate, m.ProfitFactor, m.MaxDrawdown)
	}
	return adjusted
}
