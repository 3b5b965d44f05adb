package trader

import (
	"context"
	"fmt"
	"math"
	"time"

	"gridbot/config"
	"gridbot/logger"
	"gridbot/market"
)

const (
	volatilityInterval = "1h"
	volatilityLookback = 24

	shortVolInterval = "15m"
	shortVolLookback = 16

	regimeInterval = "4h"
	regimeLookback = 12

	tunerWindow = 7 * 24 * time.Hour
)

// trackedOrder is a grid order the engine placed and is watching for fills.
type trackedOrder struct {
	Side     string
	Price    float64
	Quantity float64
}

// Engine is the control loop: it polls market data, maintains the grid,
// detects fills, evaluates exits and runs the periodic regime/tuner checks.
// A single goroutine drives the tick sequence; there are no background
// timers, every cadence is a now-vs-last-timestamp comparison.
type Engine struct {
	cfg      *config.Config
	market   market.Data
	executor OrderExecutor
	history  HistoryStore

	ledger     *Ledger
	calc       *Calculator
	trailing   *TrailingEngine
	gate       *Gate
	classifier *Classifier
	tuner      *Tuner

	params    ParameterSet // current tuned parameters
	effective ParameterSet // regime-biased copy, refreshed at grid recompute
	regime    Regime
	grid      *GridSnapshot
	rules     SymbolRules
	tracked   map[string]trackedOrder

	lastTune   time.Time
	lastStatus time.Time
	lastTick   time.Time
	lastPrice  float64

	now func() time.Time
}

// NewEngine wires the decision engine from configuration and its ports.
func NewEngine(cfg *config.Config, md market.Data, exec OrderExecutor, history HistoryStore) *Engine {
	params := ParameterSet{
		InvestmentAmount:  cfg.InvestmentAmount,
		TakeProfitPercent: cfg.TakeProfitPercent,
		StopLossPercent:   cfg.StopLossPercent,
	}
	ledger := NewLedger(cfg.Symbol, history)
	return &Engine{
		cfg:        cfg,
		market:     md,
		executor:   exec,
		history:    history,
		ledger:     ledger,
		calc:       NewCalculator(cfg),
		trailing:   NewTrailingEngine(cfg.TrailingStopPercent, ledger),
		gate:       NewGate(cfg),
		classifier: NewClassifier(),
		tuner:      NewTuner(params),
		params:     params,
		effective:  params,
		regime:     RegimeNeutral,
		tracked:    make(map[string]trackedOrder),
		now:        time.Now,
	}
}

// Ledger exposes the position ledger, mainly so the bootstrap can seed
// restored daily accounting before the loop starts.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// Params returns the current tuned parameter set.
func (e *Engine) Params() ParameterSet {
	return e.params
}

// Run drives the tick loop until ctx is cancelled, then cancels all open
// orders best-effort and returns. A panic inside a tick is treated as fatal:
// orders are cancelled and the error is returned.
func (e *Engine) Run(ctx context.Context) (err error) {
	if initErr := e.init(); initErr != nil {
		return initErr
	}
	logger.Infof("[Loop] Engine started: %s, %d levels, poll %s",
		e.cfg.Symbol, e.cfg.GridLevels, e.cfg.PollInterval)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fatal error in control loop: %v", r)
			logger.Errorf("[Loop] %v", err)
		}
		e.shutdown()
	}()

	for {
		e.Tick(e.now())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(e.cfg.PollInterval):
		}
	}
}

func (e *Engine) init() error {
	rules, err := e.executor.SymbolRules(e.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("load symbol rules: %w", err)
	}
	e.rules = rules
	e.calc.SetTickPrecision(rules.TickSize)
	logger.Infof("[Loop] Symbol rules for %s: step=%g minQty=%g tick=%g minNotional=%g",
		e.cfg.Symbol, rules.StepSize, rules.MinQty, rules.TickSize, rules.MinNotional)
	return nil
}

func (e *Engine) shutdown() {
	logger.Infof("[Loop] Shutting down, cancelling open orders")
	if err := e.executor.CancelAll(e.cfg.Symbol); err != nil {
		logger.Errorf("[Loop] Failed to cancel orders on shutdown: %v", err)
	}
	e.tracked = make(map[string]trackedOrder)

	// realize remaining positions at the last seen price so the trade
	// history stays complete across restarts
	if e.lastPrice <= 0 {
		if e.ledger.OpenCount() > 0 {
			logger.Warnf("[Loop] No price seen, leaving %d positions unrecorded", e.ledger.OpenCount())
		}
		return
	}
	for _, p := range e.ledger.OpenPositions() {
		if _, err := e.ledger.Close(p.ID, e.lastPrice, CloseManual, e.now()); err != nil {
			logger.Errorf("[Loop] Manual close of %s failed: %v", p.ID, err)
		}
	}
}

// Tick runs one full pass of the decision sequence. Transient data failures
// skip the dependent action and leave the rest of the tick intact.
func (e *Engine) Tick(now time.Time) {
	defer func() { e.lastTick = now }()

	e.maybeResetDaily(now)

	price, err := e.market.CurrentPrice(e.cfg.Symbol)
	if err != nil {
		logger.Warnf("[Loop] Price unavailable, skipping tick: %v", err)
		return
	}
	e.lastPrice = price

	paused := e.evaluatePause(now)
	if paused {
		// While paused the loop keeps polling so it can un-pause, and keeps
		// managing existing positions, but places no new grid orders.
		if e.cfg.PauseFreezesGridClock && e.grid != nil && !e.lastTick.IsZero() {
			e.grid.CreatedAt = e.grid.CreatedAt.Add(now.Sub(e.lastTick))
		}
	} else {
		e.maintainGrid(now, price)
	}

	e.detectFills(now)
	e.evaluateExits(now, price)

	if e.lastTune.IsZero() {
		e.lastTune = now
	} else if now.Sub(e.lastTune) >= e.cfg.TunerInterval {
		e.runTuner(now)
	}

	if e.lastStatus.IsZero() {
		e.lastStatus = now
	} else if now.Sub(e.lastStatus) >= e.cfg.StatusInterval {
		e.logStatus(now, price)
	}
}

// maybeResetDaily starts a fresh trading day when the calendar day changes.
func (e *Engine) maybeResetDaily(now time.Time) {
	risk := e.ledger.Risk()
	last := risk.LastDailyReset
	if !last.IsZero() && last.Year() == now.Year() && last.YearDay() == now.YearDay() {
		return
	}
	balance, err := e.market.Balance(e.cfg.QuoteAsset)
	if err != nil {
		logger.Warnf("[Risk] Balance unavailable for daily reset: %v", err)
		return
	}
	e.ledger.ResetDaily(balance, now)
}

// evaluatePause runs the risk gate and updates the pause state, logging
// transitions. Pause is a normal operating state, not an error.
func (e *Engine) evaluatePause(now time.Time) bool {
	annVol := 0.0
	closes, err := e.market.RecentCloses(e.cfg.Symbol, shortVolInterval, shortVolLookback)
	if err != nil {
		logger.Warnf("[Risk] Short-horizon closes unavailable: %v", err)
	} else {
		annVol = e.gate.AnnualizedVolatility(closes)
	}

	// the cap counts resting exchange orders; ledger exposure is the
	// degraded stand-in when the exchange cannot answer
	openCount := e.ledger.OpenCount()
	if orders, err := e.market.OpenOrders(e.cfg.Symbol); err != nil {
		logger.Warnf("[Risk] Open orders unavailable for cap check: %v", err)
	} else {
		openCount = len(orders)
	}

	wasPaused := e.ledger.Risk().TradingPaused
	paused, reason := e.gate.ShouldPause(e.ledger.Risk(), openCount, annVol)
	e.ledger.SetPaused(paused, reason)

	if paused && !wasPaused {
		logger.Warnf("[Risk] Trading paused: %s", reason)
	} else if !paused && wasPaused {
		logger.Infof("[Risk] Trading resumed")
	}
	return paused
}

// maintainGrid regenerates and re-places the grid when it has gone stale.
// The daily trade cap suspends placement until the next daily reset.
func (e *Engine) maintainGrid(now time.Time, price float64) {
	if risk := e.ledger.Risk(); risk.DailyTradeCount >= e.cfg.MaxTradesPerDay {
		logger.Debugf("[Grid] Daily trade cap reached (%d), holding placement", risk.DailyTradeCount)
		return
	}
	if !e.calc.ShouldUpdate(e.grid, now, price) {
		return
	}

	closes, err := e.market.RecentCloses(e.cfg.Symbol, volatilityInterval, volatilityLookback)
	if err != nil {
		logger.Warnf("[Grid] Closes unavailable, keeping current grid: %v", err)
		return
	}

	// Regime bias is applied here, at the recompute boundary, never mid-tick.
	if fourHour, err := e.market.RecentCloses(e.cfg.Symbol, regimeInterval, regimeLookback); err != nil {
		logger.Warnf("[Regime] 4h closes unavailable, keeping %s: %v", e.regime, err)
	} else {
		e.regime = e.classifier.Classify(fourHour)
	}
	e.effective = BiasParameters(e.params, e.regime)

	snap, err := e.calc.Recompute(price, closes, now)
	if err != nil {
		logger.Warnf("[Grid] Recompute failed: %v", err)
		return
	}

	// Fills that happened since the last pass must be claimed before the
	// cancel-and-replace wipes the tracking set.
	e.detectFills(now)

	e.grid = snap
	e.placeGrid(price)
}

// placeGrid cancels all open orders and places the new batch (full-replace
// semantics). Individual order failures are logged and skipped, never
// aborting the batch.
func (e *Engine) placeGrid(price float64) {
	balance, err := e.market.Balance(e.cfg.QuoteAsset)
	if err != nil {
		logger.Warnf("[Grid] Balance unavailable, skipping placement: %v", err)
		return
	}

	budget := e.gate.PositionSize(balance, e.grid.Volatility, e.effective.InvestmentAmount)
	if riskCap := balance * e.cfg.RiskPercentage / 100; riskCap > 0 && budget > riskCap {
		budget = riskCap
	}

	if err := e.executor.CancelAll(e.cfg.Symbol); err != nil {
		logger.Errorf("[Grid] Cancel-all failed, placing anyway: %v", err)
	}
	e.tracked = make(map[string]trackedOrder)

	n := len(e.grid.Levels)
	center := float64(n-1) / 2
	placed := 0
	for _, level := range e.grid.Levels {
		side := "SELL"
		if level.Price < price {
			side = "BUY"
		}

		distanceFactor := 1 - math.Abs(float64(level.Index)-center)/float64(n-1)
		notional := budget * (e.cfg.SizeFloor + (1-e.cfg.SizeFloor)*distanceFactor)
		qty := SnapToStep(notional/level.Price, e.rules.StepSize)

		if qty < e.rules.MinQty || qty*level.Price < e.rules.MinNotional {
			logger.Infof("[Grid] Skipping level %d @ %.4f: qty %.8f below exchange minimum",
				level.Index, level.Price, qty)
			continue
		}

		orderID, err := e.executor.PlaceLimit(e.cfg.Symbol, side, qty, level.Price)
		if err != nil {
			logger.Errorf("[Grid] Failed to place level %d @ %.4f: %v", level.Index, level.Price, err)
			continue
		}
		e.tracked[orderID] = trackedOrder{Side: side, Price: level.Price, Quantity: qty}
		placed++
	}
	logger.Infof("[Grid] Placed %d/%d orders, budget %.2f", placed, n, budget)
}

// detectFills compares tracked orders against the exchange's open order set:
// a tracked order that has disappeared without being cancelled by us is
// treated as filled at its limit price.
func (e *Engine) detectFills(now time.Time) {
	if len(e.tracked) == 0 {
		return
	}
	open, err := e.market.OpenOrders(e.cfg.Symbol)
	if err != nil {
		logger.Warnf("[Loop] Open orders unavailable, deferring fill detection: %v", err)
		return
	}

	live := make(map[string]struct{}, len(open))
	for _, o := range open {
		live[o.OrderID] = struct{}{}
	}

	for id, order := range e.tracked {
		if _, ok := live[id]; ok {
			continue
		}
		delete(e.tracked, id)

		side := SideShort
		if order.Side == "BUY" {
			side = SideLong
		}
		e.ledger.OpenFromFill(side, order.Price, order.Quantity,
			e.effective.TakeProfitPercent, e.effective.StopLossPercent, now)
	}
}

// evaluateExits walks every open position and fires at most one close per
// position per tick, trailing stop first, then take-profit, then stop-loss.
func (e *Engine) evaluateExits(now time.Time, price float64) {
	for _, p := range e.ledger.OpenPositions() {
		e.trailing.Update(p, price)

		var reason CloseReason
		switch {
		case e.trailing.Triggered(p, price):
			reason = CloseTrailingStop
		case p.Side == SideLong && price >= p.TakeProfit,
			p.Side == SideShort && price <= p.TakeProfit:
			reason = CloseTakeProfit
		case p.Side == SideLong && price <= p.StopLoss,
			p.Side == SideShort && price >= p.StopLoss:
			reason = CloseStopLoss
		default:
			continue
		}

		if _, err := e.ledger.Close(p.ID, price, reason, now); err != nil {
			logger.Errorf("[Ledger] Close %s failed: %v", p.ID, err)
		}
	}
}

// runTuner recomputes performance metrics over the trailing window and
// applies the adjustment rules. The new ParameterSet takes effect at the
// next grid recompute.
func (e *Engine) runTuner(now time.Time) {
	e.lastTune = now

	trades, err := e.history.LoadSince(e.cfg.Symbol, now.Add(-tunerWindow))
	if err != nil {
		logger.Warnf("[Tuner] Trade history unavailable: %v", err)
		return
	}
	metrics := ComputeMetrics(trades, e.params.InvestmentAmount)
	e.params = e.tuner.Adjust(e.params, metrics)
}

// logStatus emits the periodic status snapshot.
func (e *Engine) logStatus(now time.Time, price float64) {
	e.lastStatus = now

	risk := e.ledger.Risk()
	var metrics Metrics
	if trades, err := e.history.LoadSince(e.cfg.Symbol, now.Add(-tunerWindow)); err == nil {
		metrics = ComputeMetrics(trades, e.params.InvestmentAmount)
	}

	logger.Infof("[Status] %s price=%.2f regime=%s open=%d dailyPnL=%.2f trades=%d/%d paused=%v | 7d: winRate=%.1f%% PF=%.2f DD=%.1f%% sharpe=%.2f | investment=%.2f TP=%.3f%% SL=%.3f%%",
		e.cfg.Symbol, price, e.regime, e.ledger.OpenCount(), risk.DailyPnL,
		risk.DailyTradeCount, e.cfg.MaxTradesPerDay, risk.TradingPaused,
		metrics.WinRate, metrics.ProfitFactor, metrics.MaxDrawdown, metrics.SharpeRatio,
		e.params.InvestmentAmount, e.params.TakeProfitPercent, e.params.StopLossPercent)
}
