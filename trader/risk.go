package trader

import (
	"fmt"
	"math"

	"gridbot/config"
	"gridbot/market"
)

// Gate evaluates pause conditions and computes position size caps.
// It is stateless; the accounting it reads lives in the ledger's RiskState.
type Gate struct {
	maxDailyLossPercent float64
	reservePercent      float64
	maxPositionPercent  float64
	maxOpenPositions    int
	volatilityThreshold float64
}

// NewGate builds a Gate from run configuration.
func NewGate(cfg *config.Config) *Gate {
	return &Gate{
		maxDailyLossPercent: cfg.MaxDailyLossPercent,
		reservePercent:      cfg.MinBalanceReservePercent,
		maxPositionPercent:  cfg.MaxPositionPercent,
		maxOpenPositions:    cfg.MaxOpenPositions,
		volatilityThreshold: cfg.VolatilityPauseThreshold,
	}
}

// PositionSize returns the notional budget for one grid batch. It scales the
// post-reserve balance down as volatility rises and caps the result at the
// configured investment. Never negative or NaN; falls back to half the
// investment when the computation degenerates.
func (g *Gate) PositionSize(balance, volatility, investment float64) float64 {
	fallback := investment / 2

	if balance <= 0 || math.IsNaN(balance) || math.IsNaN(volatility) {
		return fallback
	}

	available := balance * (1 - g.reservePercent/100)
	volatilityFactor := math.Max(0.2, 1-volatility/20)
	size := available * g.maxPositionPercent / 100 * volatilityFactor
	size = math.Min(size, investment)

	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return fallback
	}
	return size
}

// AnnualizedVolatility annualizes the short-horizon return volatility of a
// 15-minute close series (4 15m bars per hour).
func (g *Gate) AnnualizedVolatility(closes []float64) float64 {
	return market.ReturnVolatility(closes) * 4
}

// ShouldPause evaluates the pause conditions in priority order: daily loss
// limit, short-horizon volatility spike, open-position cap. Returns the
// pause decision with its reason; an empty reason means trading may proceed.
func (g *Gate) ShouldPause(risk RiskState, openPositions int, annualizedVol float64) (bool, string) {
	if risk.DailyPnL < 0 {
		limit := risk.InitialDailyBalance * g.maxDailyLossPercent / 100
		if -risk.DailyPnL > limit {
			return true, fmt.Sprintf("daily loss limit reached: %.2f exceeds %.2f", -risk.DailyPnL, limit)
		}
	}
	if annualizedVol > g.volatilityThreshold {
		return true, fmt.Sprintf("high volatility: %.2f%% above threshold %.2f%%", annualizedVol, g.volatilityThreshold)
	}
	if openPositions >= g.maxOpenPositions {
		return true, fmt.Sprintf("position cap: %d open positions at limit %d", openPositions, g.maxOpenPositions)
	}
	return false, ""
}
