package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/joho/godotenv"

	"gridbot/config"
	"gridbot/logger"
	"gridbot/market"
	"gridbot/store"
	"gridbot/trader"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	cfg := config.Load()
	if err := logger.Init(&logger.Config{Level: cfg.LogLevel}); err != nil {
		logger.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to open trade store: %v", err)
	}
	defer st.Close()

	binance.UseTestnet = cfg.UseTestnet
	client := binance.NewClient(cfg.APIKey, cfg.APISecret)

	md := market.NewBinanceData(client)
	executor := trader.NewBinanceExecutor(client, cfg.PricePrecision)
	engine := trader.NewEngine(cfg, md, executor, st.Trade())

	// A restart mid-day must not forget realized losses, or the daily loss
	// limit would reset with the process.
	now := time.Now()
	if pnl, err := st.Trade().DailyPnL(cfg.Symbol, now); err != nil {
		logger.Warnf("Could not restore daily PnL: %v", err)
	} else if pnl != 0 {
		balance, err := md.Balance(cfg.QuoteAsset)
		if err != nil {
			logger.Warnf("Could not fetch balance for daily restore: %v", err)
		} else {
			engine.Ledger().RestoreDaily(pnl, balance-pnl, now)
			logger.Infof("Restored daily PnL %.4f from trade history", pnl)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		logger.Fatalf("Engine stopped with error: %v", err)
	}
	logger.Infof("Engine stopped")
}
