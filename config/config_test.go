package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, "USDT", cfg.QuoteAsset)
	assert.Equal(t, 100.0, cfg.InvestmentAmount)
	assert.Equal(t, 0.7, cfg.TakeProfitPercent)
	assert.Equal(t, 0.3, cfg.StopLossPercent)
	assert.Equal(t, 8, cfg.MaxTradesPerDay)
	assert.Equal(t, 7, cfg.GridLevels)
	assert.Equal(t, 0.3, cfg.GridSpacingPercent)
	assert.Equal(t, DistributionLinear, cfg.Distribution)
	assert.Equal(t, 1.5, cfg.MaxDailyLossPercent)
	assert.Equal(t, 4.0, cfg.VolatilityPauseThreshold)
	assert.Equal(t, 0.2, cfg.TrailingStopPercent)
	assert.Equal(t, 180*time.Second, cfg.PollInterval)
	assert.Equal(t, 12*time.Hour, cfg.TunerInterval)
	assert.Equal(t, 4*time.Hour, cfg.StatusInterval)
	assert.False(t, cfg.PauseFreezesGridClock)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TRADING_SYMBOL", "ETHUSDT")
	t.Setenv("INVESTMENT_AMOUNT", "250.5")
	t.Setenv("GRID_LEVELS", "11")
	t.Setenv("GRID_DISTRIBUTION", "concentrated")
	t.Setenv("CHECK_INTERVAL", "60")
	t.Setenv("TUNER_INTERVAL", "24h")
	t.Setenv("PAUSE_FREEZES_GRID_CLOCK", "true")

	cfg := Load()

	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, 250.5, cfg.InvestmentAmount)
	assert.Equal(t, 11, cfg.GridLevels)
	assert.Equal(t, DistributionConcentrated, cfg.Distribution)
	assert.Equal(t, 60*time.Second, cfg.PollInterval, "bare integers are seconds")
	assert.Equal(t, 24*time.Hour, cfg.TunerInterval, "duration strings work too")
	assert.True(t, cfg.PauseFreezesGridClock)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("INVESTMENT_AMOUNT", "not-a-number")
	t.Setenv("GRID_LEVELS", "many")
	t.Setenv("CHECK_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 100.0, cfg.InvestmentAmount)
	assert.Equal(t, 7, cfg.GridLevels)
	assert.Equal(t, 180*time.Second, cfg.PollInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errHas string
	}{
		{"empty symbol", func(c *Config) { c.Symbol = "" }, "symbol"},
		{"single level", func(c *Config) { c.GridLevels = 1 }, "grid levels"},
		{"zero investment", func(c *Config) { c.InvestmentAmount = 0 }, "investment"},
		{"negative take profit", func(c *Config) { c.TakeProfitPercent = -1 }, "take profit"},
		{"zero trailing", func(c *Config) { c.TrailingStopPercent = 0 }, "trailing"},
		{"size floor too large", func(c *Config) { c.SizeFloor = 1 }, "size floor"},
		{"unknown distribution", func(c *Config) { c.Distribution = "parabolic" }, "distribution"},
		{"even concentration power", func(c *Config) { c.ConcentrationPower = 2 }, "power"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "poll interval"},
		{"zero daily loss limit", func(c *Config) { c.MaxDailyLossPercent = 0 }, "daily loss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errHas)
		})
	}
}
