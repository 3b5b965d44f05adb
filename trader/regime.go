package trader

import (
	"gridbot/logger"
	"gridbot/market"
)

const (
	regimeShortWindow = 6
	regimeLongWindow  = 12

	bullishRatio = 1.005
	bearishRatio = 0.995
)

// Classifier labels the market regime from moving averages over 4h candles.
type Classifier struct {
	current Regime
}

// NewClassifier starts in the NEUTRAL regime.
func NewClassifier() *Classifier {
	return &Classifier{current: RegimeNeutral}
}

// Classify computes the regime from 4h closes: SMA6 vs SMA12 with 0.5%
// thresholds. Fewer than 12 candles yields NEUTRAL without error.
// Transitions are logged; the caller applies the new regime at the next
// grid recompute, never mid-tick.
func (c *Classifier) Classify(closes []float64) Regime {
	regime := RegimeNeutral
	if len(closes) >= regimeLongWindow {
		short := market.SMA(closes, regimeShortWindow)
		long := market.SMA(closes, regimeLongWindow)
		switch {
		case short > long*bullishRatio:
			regime = RegimeBullish
		case short < long*bearishRatio:
			regime = RegimeBearish
		}
	}

	if regime != c.current {
		logger.Infof("[Regime] Transition %s -> %s", c.current, regime)
		c.current = regime
	}
	return regime
}

// Current returns the last classified regime.
func (c *Classifier) Current() Regime {
	return c.current
}

// BiasParameters applies the regime bias to TP/SL: a bullish market widens
// take-profit and tightens stop-loss, a bearish one does the inverse.
// Neutral leaves the parameters untouched.
func BiasParameters(params ParameterSet, regime Regime) ParameterSet {
	switch regime {
	case RegimeBullish:
		params.TakeProfitPercent *= 1.2
		params.StopLossPercent *= 0.8
	case RegimeBearish:
		params.TakeProfitPercent *= 0.8
		params.StopLossPercent *= 1.2
	}
	return params
}
