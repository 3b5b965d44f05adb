package trader

import "errors"

var (
	// ErrInsufficientData is returned when a computation needs more candles
	// than the market could supply.
	ErrInsufficientData = errors.New("trader: insufficient market data")

	// ErrPositionNotFound is returned when a ledger operation references an
	// unknown position id.
	ErrPositionNotFound = errors.New("trader: position not found")

	// ErrPositionClosed is returned when closing a position that is already
	// closed. Callers treat it as a no-op signal, never as a double close.
	ErrPositionClosed = errors.New("trader: position already closed")
)
