// Package trader implements the grid trading decision engine: grid
// computation, position lifecycle, trailing stops, risk gating, regime
// classification, parameter tuning and the control loop that drives them.
package trader

import (
	"time"

	"gridbot/store"
)

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// PositionStatus tracks the lifecycle of a position.
type PositionStatus string

const (
	StatusFilled PositionStatus = "FILLED"
	StatusClosed PositionStatus = "CLOSED"
)

// CloseReason records why a position was closed.
type CloseReason string

const (
	CloseTakeProfit   CloseReason = "TAKE_PROFIT"
	CloseStopLoss     CloseReason = "STOP_LOSS"
	CloseTrailingStop CloseReason = "TRAILING_STOP"
	CloseManual       CloseReason = "MANUAL"
)

// Regime is the coarse market-trend classification.
type Regime string

const (
	RegimeBullish Regime = "BULLISH"
	RegimeBearish Regime = "BEARISH"
	RegimeNeutral Regime = "NEUTRAL"
)

// Position is one filled grid order tracked by the ledger.
// Mutated only through Ledger methods.
type Position struct {
	ID         string
	Symbol     string
	Side       Side
	Status     PositionStatus
	EntryPrice float64
	Quantity   float64

	TakeProfit float64
	StopLoss   float64

	TrailingArmed bool
	TrailingStop  float64

	CloseReason CloseReason
	ExitPrice   float64
	OpenedAt    time.Time
	ClosedAt    time.Time
}

// GridLevel is a single price rung of the grid.
type GridLevel struct {
	Index int
	Price float64
}

// GridSnapshot is the result of one grid recompute. Regenerated wholesale;
// never patched incrementally.
type GridSnapshot struct {
	Levels     []GridLevel
	LowerPrice float64
	UpperPrice float64
	Volatility float64 // close-price volatility in percent
	Spacing    float64 // adjusted spacing, diagnostics only
	CreatedAt  time.Time
}

// ParameterSet is the tunable strategy parameter bundle. It is a value:
// the tuner returns a new one, the loop swaps it in at a tick boundary.
type ParameterSet struct {
	InvestmentAmount  float64
	TakeProfitPercent float64
	StopLossPercent   float64
}

// RiskState is the mutable daily risk accounting, owned by the ledger and
// the risk gate, reset on calendar-day change.
type RiskState struct {
	DailyPnL            float64
	InitialDailyBalance float64
	DailyTradeCount     int
	TradingPaused       bool
	PauseReason         string
	LastDailyReset      time.Time
}

// SymbolRules are the exchange trading filters for one symbol.
type SymbolRules struct {
	StepSize    float64 // lot size step
	MinQty      float64
	TickSize    float64
	MinNotional float64
}

// OrderExecutor is the order execution port of the engine.
type OrderExecutor interface {
	// PlaceLimit submits a limit order and returns the exchange order id.
	PlaceLimit(symbol, side string, qty, price float64) (string, error)

	// Cancel cancels a single order.
	Cancel(symbol, orderID string) error

	// CancelAll cancels every open order for the symbol.
	CancelAll(symbol string) error

	// SymbolRules returns the trading filters for the symbol.
	SymbolRules(symbol string) (SymbolRules, error)
}

// HistoryStore is the append-only completed-trade persistence port.
type HistoryStore interface {
	Append(t *store.TradeRecord) error
	LoadSince(symbol string, cutoff time.Time) ([]*store.TradeRecord, error)
}
