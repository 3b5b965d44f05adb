// Package market supplies the engine with exchange market data: prices,
// candle closes, balances and open orders. The Data interface is the only
// thing the decision engine depends on; the Binance implementation lives
// alongside it.
package market

import "errors"

// ErrPriceUnavailable is returned when the exchange cannot supply a current
// price for the requested symbol.
var ErrPriceUnavailable = errors.New("market: price unavailable")

// OpenOrder is a pending order reported by the exchange.
type OpenOrder struct {
	OrderID  string
	Symbol   string
	Side     string // BUY/SELL
	Price    float64
	Quantity float64
}

// Data is the market data port of the decision engine.
// Implementations block; the control loop treats failures as transient and
// retries on the next tick.
type Data interface {
	// CurrentPrice returns the latest trade price for the symbol.
	CurrentPrice(symbol string) (float64, error)

	// RecentCloses returns up to lookback close prices for the given kline
	// interval, oldest first.
	RecentCloses(symbol, interval string, lookback int) ([]float64, error)

	// Balance returns the free balance of an asset.
	Balance(asset string) (float64, error)

	// OpenOrders returns all pending orders for the symbol.
	OpenOrders(symbol string) ([]OpenOrder, error)
}
