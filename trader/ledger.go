package trader

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"gridbot/logger"
	"gridbot/store"
)

// Ledger owns the authoritative set of open positions and the daily risk
// accounting. All mutation goes through its methods; the trailing engine
// never holds a private copy of a position.
type Ledger struct {
	mu        sync.RWMutex
	symbol    string
	positions map[string]*Position
	closed    map[string]*Position
	history   HistoryStore
	risk      RiskState
}

// NewLedger creates an empty ledger for one symbol.
func NewLedger(symbol string, history HistoryStore) *Ledger {
	return &Ledger{
		symbol:    symbol,
		positions: make(map[string]*Position),
		closed:    make(map[string]*Position),
		history:   history,
	}
}

// OpenFromFill records a new position from a filled grid order. TP/SL prices
// are derived from the entry and the (regime-biased) percents.
func (l *Ledger) OpenFromFill(side Side, fillPrice, fillQty, tpPercent, slPercent float64, now time.Time) *Position {
	p := &Position{
		ID:         uuid.New().String(),
		Symbol:     l.symbol,
		Side:       side,
		Status:     StatusFilled,
		EntryPrice: fillPrice,
		Quantity:   fillQty,
		OpenedAt:   now,
	}
	if side == SideLong {
		p.TakeProfit = fillPrice * (1 + tpPercent/100)
		p.StopLoss = fillPrice * (1 - slPercent/100)
	} else {
		p.TakeProfit = fillPrice * (1 - tpPercent/100)
		p.StopLoss = fillPrice * (1 + slPercent/100)
	}

	l.mu.Lock()
	l.positions[p.ID] = p
	l.mu.Unlock()

	logger.Infof("[Ledger] Opened %s %s: entry=%.4f qty=%.6f TP=%.4f SL=%.4f",
		side, l.symbol, fillPrice, fillQty, p.TakeProfit, p.StopLoss)
	return p
}

// Close transitions a position to CLOSED exactly once: computes pnl, appends
// the completed trade to history, bumps the daily counters and removes the
// position from the open set, all under one lock so no partial state is
// visible. Closing an already-closed position returns ErrPositionClosed.
func (l *Ledger) Close(id string, exitPrice float64, reason CloseReason, now time.Time) (*store.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, done := l.closed[id]; done {
		return nil, ErrPositionClosed
	}
	p, ok := l.positions[id]
	if !ok {
		return nil, ErrPositionNotFound
	}

	var pnl float64
	if p.Side == SideLong {
		pnl = (exitPrice - p.EntryPrice) * p.Quantity
	} else {
		pnl = (p.EntryPrice - exitPrice) * p.Quantity
	}

	p.Status = StatusClosed
	p.CloseReason = reason
	p.ExitPrice = exitPrice
	p.ClosedAt = now
	delete(l.positions, id)
	l.closed[id] = p

	trade := &store.TradeRecord{
		PositionID:  p.ID,
		Symbol:      p.Symbol,
		Side:        string(p.Side),
		EntryPrice:  p.EntryPrice,
		ExitPrice:   exitPrice,
		Quantity:    p.Quantity,
		PnL:         pnl,
		CloseReason: string(reason),
		OpenedAt:    p.OpenedAt,
		ClosedAt:    now,
	}
	if l.history != nil {
		if err := l.history.Append(trade); err != nil {
			logger.Errorf("[Ledger] Failed to persist completed trade %s: %v", p.ID, err)
		}
	}

	l.risk.DailyPnL += pnl
	l.risk.DailyTradeCount++

	logger.Infof("[Ledger] Closed %s %s (%s): entry=%.4f exit=%.4f pnl=%.4f dailyPnL=%.4f",
		p.Side, p.Symbol, reason, p.EntryPrice, exitPrice, pnl, l.risk.DailyPnL)
	return trade, nil
}

// SetTrailing arms or advances the trailing stop of an open position.
func (l *Ledger) SetTrailing(id string, stopPrice float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[id]
	if !ok {
		return ErrPositionNotFound
	}
	p.TrailingArmed = true
	p.TrailingStop = stopPrice
	return nil
}

// OpenPositions returns a snapshot of all open positions.
func (l *Ledger) OpenPositions() []*Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Position, 0, len(l.positions))
	for _, p := range l.positions {
		cp := *p
		result = append(result, &cp)
	}
	return result
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// Risk returns a copy of the current risk state.
func (l *Ledger) Risk() RiskState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.risk
}

// SetPaused updates the pause flag and reason.
func (l *Ledger) SetPaused(paused bool, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.risk.TradingPaused = paused
	l.risk.PauseReason = reason
}

// ResetDaily starts a fresh trading day: zeroes the daily counters and
// snapshots the starting balance the loss limit is measured against.
func (l *Ledger) ResetDaily(balance float64, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.risk.DailyPnL = 0
	l.risk.DailyTradeCount = 0
	l.risk.InitialDailyBalance = balance
	l.risk.LastDailyReset = now
	logger.Infof("[Risk] Daily counters reset, starting balance %.2f", balance)
}

// RestoreDaily seeds the daily accounting after a restart mid-day.
func (l *Ledger) RestoreDaily(dailyPnL float64, balance float64, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.risk.DailyPnL = dailyPnL
	l.risk.InitialDailyBalance = balance
	l.risk.LastDailyReset = now
}
