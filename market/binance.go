package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
)

// defaultRequestTimeout bounds every REST call so a stalled request cannot
// wedge the control loop; the loop retries on the next tick.
const defaultRequestTimeout = 10 * time.Second

// BinanceData implements Data on top of the Binance spot REST API.
type BinanceData struct {
	client  *binance.Client
	timeout time.Duration
}

// NewBinanceData creates a market data source backed by the given client.
func NewBinanceData(client *binance.Client) *BinanceData {
	return &BinanceData{client: client, timeout: defaultRequestTimeout}
}

func (b *BinanceData) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

// CurrentPrice returns the latest ticker price for the symbol.
func (b *BinanceData) CurrentPrice(symbol string) (float64, error) {
	ctx, cancel := b.ctx()
	defer cancel()

	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("get ticker price for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, ErrPriceUnavailable
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil || price <= 0 {
		return 0, ErrPriceUnavailable
	}
	return price, nil
}

// RecentCloses returns the close prices of the last lookback klines,
// oldest first.
func (b *BinanceData) RecentCloses(symbol, interval string, lookback int) ([]float64, error) {
	ctx, cancel := b.ctx()
	defer cancel()

	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(lookback).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get %s klines for %s: %w", interval, symbol, err)
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		c, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			continue
		}
		closes = append(closes, c)
	}
	return closes, nil
}

// Balance returns the free balance of an asset on the spot account.
func (b *BinanceData) Balance(asset string) (float64, error) {
	ctx, cancel := b.ctx()
	defer cancel()

	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	for _, bal := range account.Balances {
		if bal.Asset == asset {
			free, err := strconv.ParseFloat(bal.Free, 64)
			if err != nil {
				return 0, fmt.Errorf("parse %s balance %q: %w", asset, bal.Free, err)
			}
			return free, nil
		}
	}
	return 0, nil
}

// OpenOrders returns all pending orders for the symbol.
func (b *BinanceData) OpenOrders(symbol string) ([]OpenOrder, error) {
	ctx, cancel := b.ctx()
	defer cancel()

	orders, err := b.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open orders for %s: %w", symbol, err)
	}

	result := make([]OpenOrder, 0, len(orders))
	for _, o := range orders {
		price, _ := strconv.ParseFloat(o.Price, 64)
		qty, _ := strconv.ParseFloat(o.OrigQuantity, 64)
		result = append(result, OpenOrder{
			OrderID:  strconv.FormatInt(o.OrderID, 10),
			Symbol:   o.Symbol,
			Side:     string(o.Side),
			Price:    price,
			Quantity: qty,
		})
	}
	return result, nil
}
