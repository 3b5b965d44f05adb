package trader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
)

const executorRequestTimeout = 10 * time.Second

// BinanceExecutor implements OrderExecutor on the Binance spot REST API.
type BinanceExecutor struct {
	client         *binance.Client
	pricePrecision int32
	stepSize       float64
	timeout        time.Duration
}

// NewBinanceExecutor creates an executor backed by the given client.
// Call LoadSymbolRules before placing orders so quantities and prices are
// formatted at the exchange's precision.
func NewBinanceExecutor(client *binance.Client, pricePrecision int32) *BinanceExecutor {
	return &BinanceExecutor{
		client:         client,
		pricePrecision: pricePrecision,
		timeout:        executorRequestTimeout,
	}
}

func (e *BinanceExecutor) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.timeout)
}

// PlaceLimit submits a GTC limit order and returns the exchange order id.
func (e *BinanceExecutor) PlaceLimit(symbol, side string, qty, price float64) (string, error) {
	ctx, cancel := e.ctx()
	defer cancel()

	sideType := binance.SideTypeBuy
	if side == "SELL" {
		sideType = binance.SideTypeSell
	}

	order, err := e.client.NewCreateOrderService().
		Symbol(symbol).
		Side(sideType).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(FormatQty(qty, e.stepSize)).
		Price(FormatPrice(price, e.pricePrecision)).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("place %s limit %s qty=%.8f price=%.4f: %w", side, symbol, qty, price, err)
	}
	return strconv.FormatInt(order.OrderID, 10), nil
}

// Cancel cancels a single order by id.
func (e *BinanceExecutor) Cancel(symbol, orderID string) error {
	ctx, cancel := e.ctx()
	defer cancel()

	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", orderID, err)
	}
	if _, err := e.client.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx); err != nil {
		return fmt.Errorf("cancel order %s on %s: %w", orderID, symbol, err)
	}
	return nil
}

// CancelAll cancels every open order for the symbol.
func (e *BinanceExecutor) CancelAll(symbol string) error {
	ctx, cancel := e.ctx()
	defer cancel()

	if _, err := e.client.NewCancelOpenOrdersService().Symbol(symbol).Do(ctx); err != nil {
		return fmt.Errorf("cancel all orders on %s: %w", symbol, err)
	}
	return nil
}

// SymbolRules fetches the symbol's trading filters from exchange info.
// The filters are iterated by filterType rather than through typed helpers
// so a missing filter degrades to a zero value instead of a panic.
func (e *BinanceExecutor) SymbolRules(symbol string) (SymbolRules, error) {
	ctx, cancel := e.ctx()
	defer cancel()

	info, err := e.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return SymbolRules{}, fmt.Errorf("get exchange info for %s: %w", symbol, err)
	}

	var rules SymbolRules
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		for _, f := range s.Filters {
			switch f["filterType"] {
			case "LOT_SIZE":
				rules.StepSize = filterFloat(f, "stepSize")
				rules.MinQty = filterFloat(f, "minQty")
			case "PRICE_FILTER":
				rules.TickSize = filterFloat(f, "tickSize")
			case "NOTIONAL", "MIN_NOTIONAL":
				if v := filterFloat(f, "minNotional"); v > 0 {
					rules.MinNotional = v
				}
			}
		}
	}
	if rules.StepSize <= 0 {
		return SymbolRules{}, fmt.Errorf("no LOT_SIZE filter for %s", symbol)
	}

	e.stepSize = rules.StepSize
	return rules, nil
}

func filterFloat(filter map[string]interface{}, key string) float64 {
	s, ok := filter[key].(string)
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
