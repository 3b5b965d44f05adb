// Package config holds the immutable run configuration for the grid engine.
// Values are loaded once from environment variables (a .env file is loaded by
// main before this runs) and are never mutated afterwards; runtime parameter
// tuning operates on a separate ParameterSet value, not on this struct.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Distribution selects how grid levels are spread across the price range.
type Distribution string

const (
	// DistributionLinear spaces levels evenly between the bounds.
	DistributionLinear Distribution = "linear"
	// DistributionConcentrated concentrates levels near the current price
	// using an odd power curve.
	DistributionConcentrated Distribution = "concentrated"
)

// Config is the full configuration surface of the engine.
type Config struct {
	// Exchange credentials
	APIKey     string
	APISecret  string
	UseTestnet bool

	// Trading parameters
	Symbol            string
	QuoteAsset        string
	InvestmentAmount  float64 // USDT per grid batch
	TakeProfitPercent float64
	StopLossPercent   float64
	MaxTradesPerDay   int
	RiskPercentage    float64 // % of balance risked per batch

	// Grid parameters
	GridLevels         int
	GridSpacingPercent float64
	SpacingDivisor     float64 // volatility/divisor competes with configured spacing
	BaseRangePercent   float64 // grid half-range before volatility widening
	RangeDivisor       float64 // volatility/divisor widens the range
	Distribution       Distribution
	ConcentrationPower int     // odd power for the concentrated distribution
	SizeFloor          float64 // minimum edge-order size fraction, in [0,1)
	GridUpdateHorizon  time.Duration
	GridDriftEpsilon   float64 // price drift tolerance beyond grid bounds
	PricePrecision     int32

	// Risk parameters
	MaxDailyLossPercent      float64
	MinBalanceReservePercent float64
	MaxPositionPercent       float64 // max position size as % of available balance
	MaxOpenPositions         int
	VolatilityPauseThreshold float64
	TrailingStopPercent      float64

	// Cadence
	PollInterval   time.Duration
	TunerInterval  time.Duration
	StatusInterval time.Duration

	// When true, a risk pause also freezes the grid staleness clock so the
	// grid is not considered stale purely because trading was paused.
	PauseFreezesGridClock bool

	// Persistence
	DBPath string

	// Logging
	LogLevel string
}

// Load builds a Config from environment variables, falling back to the
// defaults of the original deployment for anything unset.
func Load() *Config {
	cfg := &Config{
		APIKey:     envString("BINANCE_API_KEY", ""),
		APISecret:  envString("BINANCE_API_SECRET", ""),
		UseTestnet: envBool("BINANCE_TESTNET", true),

		Symbol:            envString("TRADING_SYMBOL", "BTCUSDT"),
		QuoteAsset:        envString("QUOTE_ASSET", "USDT"),
		InvestmentAmount:  envFloat("INVESTMENT_AMOUNT", 100.0),
		TakeProfitPercent: envFloat("TAKE_PROFIT_PERCENT", 0.7),
		StopLossPercent:   envFloat("STOP_LOSS_PERCENT", 0.3),
		MaxTradesPerDay:   envInt("MAX_TRADES_PER_DAY", 8),
		RiskPercentage:    envFloat("RISK_PERCENTAGE", 0.8),

		GridLevels:         envInt("GRID_LEVELS", 7),
		GridSpacingPercent: envFloat("GRID_SPACING_PERCENT", 0.3),
		SpacingDivisor:     envFloat("GRID_SPACING_DIVISOR", 10.0),
		BaseRangePercent:   envFloat("GRID_BASE_RANGE_PERCENT", 1.5),
		RangeDivisor:       envFloat("GRID_RANGE_DIVISOR", 100.0),
		Distribution:       Distribution(envString("GRID_DISTRIBUTION", string(DistributionLinear))),
		ConcentrationPower: envInt("GRID_CONCENTRATION_POWER", 3),
		SizeFloor:          envFloat("GRID_SIZE_FLOOR", 0.4),
		GridUpdateHorizon:  envDuration("GRID_UPDATE_HORIZON", 12*time.Hour),
		GridDriftEpsilon:   envFloat("GRID_DRIFT_EPSILON", 0.01),
		PricePrecision:     int32(envInt("PRICE_PRECISION", 2)),

		MaxDailyLossPercent:      envFloat("MAX_DAILY_LOSS_PERCENT", 1.5),
		MinBalanceReservePercent: envFloat("MIN_BALANCE_RESERVE", 30.0),
		MaxPositionPercent:       envFloat("MAX_POSITION_PERCENT", 5.0),
		MaxOpenPositions:         envInt("MAX_OPEN_POSITIONS", 10),
		VolatilityPauseThreshold: envFloat("VOLATILITY_PAUSE_THRESHOLD", 4.0),
		TrailingStopPercent:      envFloat("TRAILING_STOP_PERCENT", 0.2),

		PollInterval:   envDuration("CHECK_INTERVAL", 180*time.Second),
		TunerInterval:  envDuration("TUNER_INTERVAL", 12*time.Hour),
		StatusInterval: envDuration("STATUS_INTERVAL", 4*time.Hour),

		PauseFreezesGridClock: envBool("PAUSE_FREEZES_GRID_CLOCK", false),

		DBPath: envString("DB_PATH", "data/trades.db"),

		LogLevel: envString("LOG_LEVEL", "info"),
	}
	return cfg
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("trading symbol must not be empty")
	}
	if c.GridLevels < 2 {
		return fmt.Errorf("grid levels must be >= 2, got %d", c.GridLevels)
	}
	if c.InvestmentAmount <= 0 {
		return fmt.Errorf("investment amount must be positive, got %.2f", c.InvestmentAmount)
	}
	if c.TakeProfitPercent <= 0 || c.StopLossPercent <= 0 {
		return fmt.Errorf("take profit and stop loss percents must be positive")
	}
	if c.TrailingStopPercent <= 0 {
		return fmt.Errorf("trailing stop percent must be positive, got %.2f", c.TrailingStopPercent)
	}
	if c.SizeFloor < 0 || c.SizeFloor >= 1 {
		return fmt.Errorf("size floor must be in [0,1), got %.2f", c.SizeFloor)
	}
	if c.Distribution != DistributionLinear && c.Distribution != DistributionConcentrated {
		return fmt.Errorf("unknown grid distribution %q", c.Distribution)
	}
	if c.ConcentrationPower < 1 || c.ConcentrationPower%2 == 0 {
		return fmt.Errorf("concentration power must be a positive odd integer, got %d", c.ConcentrationPower)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.MaxDailyLossPercent <= 0 {
		return fmt.Errorf("max daily loss percent must be positive")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.ToLower(strings.TrimSpace(v)) == "true"
	}
	return def
}

// envDuration reads a duration expressed in seconds (matching the original
// CHECK_INTERVAL convention) or as a Go duration string like "12h".
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return def
}
