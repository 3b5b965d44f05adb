package trader

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot/store"
)

// memHistory is an in-memory HistoryStore for tests.
type memHistory struct {
	records []*store.TradeRecord
	fail    bool
}

func (m *memHistory) Append(t *store.TradeRecord) error {
	if m.fail {
		return errors.New("append failed")
	}
	m.records = append(m.records, t)
	return nil
}

func (m *memHistory) LoadSince(symbol string, cutoff time.Time) ([]*store.TradeRecord, error) {
	var out []*store.TradeRecord
	for _, r := range m.records {
		if r.Symbol == symbol && !r.ClosedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestOpenFromFillSetsExitLevels(t *testing.T) {
	ledger := NewLedger("BTCUSDT", &memHistory{})

	long := ledger.OpenFromFill(SideLong, 100, 2, 0.7, 0.3, time.Now())
	assert.Equal(t, StatusFilled, long.Status)
	assert.InDelta(t, 100.7, long.TakeProfit, 1e-9)
	assert.InDelta(t, 99.7, long.StopLoss, 1e-9)
	assert.True(t, long.StopLoss < long.EntryPrice && long.EntryPrice < long.TakeProfit)

	short := ledger.OpenFromFill(SideShort, 100, 2, 0.7, 0.3, time.Now())
	assert.InDelta(t, 99.3, short.TakeProfit, 1e-9)
	assert.InDelta(t, 100.3, short.StopLoss, 1e-9)
	assert.True(t, short.TakeProfit < short.EntryPrice && short.EntryPrice < short.StopLoss)

	assert.Equal(t, 2, ledger.OpenCount())
}

func TestCloseComputesPnL(t *testing.T) {
	history := &memHistory{}
	ledger := NewLedger("BTCUSDT", history)
	now := time.Now()

	long := ledger.OpenFromFill(SideLong, 100, 2, 0.7, 0.3, now)
	trade, err := ledger.Close(long.ID, 101, CloseTakeProfit, now)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, trade.PnL, 1e-9)
	assert.Equal(t, "TAKE_PROFIT", trade.CloseReason)

	short := ledger.OpenFromFill(SideShort, 100, 2, 0.7, 0.3, now)
	trade, err = ledger.Close(short.ID, 99, CloseStopLoss, now)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, trade.PnL, 1e-9)

	assert.Equal(t, 0, ledger.OpenCount())
	assert.Len(t, history.records, 2)
	assert.InDelta(t, 4.0, ledger.Risk().DailyPnL, 1e-9)
	assert.Equal(t, 2, ledger.Risk().DailyTradeCount)
}

func TestCloseExactlyOnce(t *testing.T) {
	history := &memHistory{}
	ledger := NewLedger("BTCUSDT", history)
	now := time.Now()

	p := ledger.OpenFromFill(SideLong, 100, 1, 0.7, 0.3, now)

	_, err := ledger.Close(p.ID, 101, CloseTakeProfit, now)
	require.NoError(t, err)

	_, err = ledger.Close(p.ID, 102, CloseTakeProfit, now)
	assert.ErrorIs(t, err, ErrPositionClosed)

	// the second attempt must not double-count anything
	assert.Len(t, history.records, 1)
	assert.InDelta(t, 1.0, ledger.Risk().DailyPnL, 1e-9)
	assert.Equal(t, 1, ledger.Risk().DailyTradeCount)
}

func TestCloseUnknownPosition(t *testing.T) {
	ledger := NewLedger("BTCUSDT", &memHistory{})
	_, err := ledger.Close("nope", 100, CloseManual, time.Now())
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestCloseSurvivesHistoryFailure(t *testing.T) {
	history := &memHistory{fail: true}
	ledger := NewLedger("BTCUSDT", history)
	now := time.Now()

	p := ledger.OpenFromFill(SideLong, 100, 1, 0.7, 0.3, now)
	trade, err := ledger.Close(p.ID, 101, CloseTakeProfit, now)
	require.NoError(t, err)
	assert.NotNil(t, trade)
	assert.Equal(t, 0, ledger.OpenCount())
}

func TestResetDaily(t *testing.T) {
	ledger := NewLedger("BTCUSDT", &memHistory{})
	now := time.Now()

	p := ledger.OpenFromFill(SideLong, 100, 1, 0.7, 0.3, now)
	_, err := ledger.Close(p.ID, 95, CloseStopLoss, now)
	require.NoError(t, err)
	assert.InDelta(t, -5.0, ledger.Risk().DailyPnL, 1e-9)

	ledger.ResetDaily(1000, now.Add(24*time.Hour))
	risk := ledger.Risk()
	assert.Zero(t, risk.DailyPnL)
	assert.Zero(t, risk.DailyTradeCount)
	assert.Equal(t, 1000.0, risk.InitialDailyBalance)
}

func TestOpenPositionsReturnsCopies(t *testing.T) {
	ledger := NewLedger("BTCUSDT", &memHistory{})
	ledger.OpenFromFill(SideLong, 100, 1, 0.7, 0.3, time.Now())

	snapshot := ledger.OpenPositions()
	require.Len(t, snapshot, 1)
	snapshot[0].TakeProfit = 0

	fresh := ledger.OpenPositions()
	assert.InDelta(t, 100.7, fresh[0].TakeProfit, 1e-9)
}
