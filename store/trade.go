package store

import (
	"database/sql"
	"fmt"
	"time"
)

// TradeStore completed-trade storage (fuels the parameter tuner and the
// daily loss accounting across restarts).
type TradeStore struct {
	db *sql.DB
}

// TradeRecord is one fully closed position.
type TradeRecord struct {
	ID          int64     `json:"id"`
	PositionID  string    `json:"position_id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"` // LONG/SHORT
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	Quantity    float64   `json:"quantity"`
	PnL         float64   `json:"pnl"`
	CloseReason string    `json:"close_reason"` // TAKE_PROFIT/STOP_LOSS/TRAILING_STOP/MANUAL
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at"`
}

func (s *TradeStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS completed_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position_id TEXT NOT NULL UNIQUE,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			quantity REAL NOT NULL,
			pnl REAL NOT NULL DEFAULT 0,
			close_reason TEXT NOT NULL,
			opened_at DATETIME NOT NULL,
			closed_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol_closed ON completed_trades(symbol, closed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_closed ON completed_trades(closed_at DESC)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
	}
	return nil
}

// Append persists a completed trade. The position_id uniqueness constraint
// makes a double close a visible error instead of a silent duplicate row.
func (s *TradeStore) Append(trade *TradeRecord) error {
	result, err := s.db.Exec(`
		INSERT INTO completed_trades (
			position_id, symbol, side, entry_price, exit_price,
			quantity, pnl, close_reason, opened_at, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		trade.PositionID,
		trade.Symbol,
		trade.Side,
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Quantity,
		trade.PnL,
		trade.CloseReason,
		trade.OpenedAt.UTC().Format(time.RFC3339),
		trade.ClosedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save completed trade: %w", err)
	}

	id, _ := result.LastInsertId()
	trade.ID = id
	return nil
}

// LoadSince returns all trades for the symbol closed at or after cutoff,
// oldest first.
func (s *TradeStore) LoadSince(symbol string, cutoff time.Time) ([]*TradeRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, position_id, symbol, side, entry_price, exit_price,
		       quantity, pnl, close_reason, opened_at, closed_at
		FROM completed_trades
		WHERE symbol = ? AND closed_at >= ?
		ORDER BY closed_at ASC
	`, symbol, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query completed trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// LoadRecent returns the latest N trades for the symbol, oldest first.
func (s *TradeStore) LoadRecent(symbol string, limit int) ([]*TradeRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, position_id, symbol, side, entry_price, exit_price,
		       quantity, pnl, close_reason, opened_at, closed_at
		FROM completed_trades
		WHERE symbol = ?
		ORDER BY closed_at DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTrades(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}
	return trades, nil
}

// DailyPnL sums the realized PnL of trades closed on the given calendar day
// (in the day's location). Used to restore daily loss accounting after a
// restart.
func (s *TradeStore) DailyPnL(symbol string, day time.Time) (float64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var pnl sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT SUM(pnl) FROM completed_trades
		WHERE symbol = ? AND closed_at >= ? AND closed_at < ?
	`, symbol, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339)).Scan(&pnl)
	if err != nil {
		return 0, fmt.Errorf("failed to sum daily pnl: %w", err)
	}
	return pnl.Float64, nil
}

// Count returns the number of stored trades for the symbol.
func (s *TradeStore) Count(symbol string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM completed_trades WHERE symbol = ?
	`, symbol).Scan(&count)
	return count, err
}

func scanTrades(rows *sql.Rows) ([]*TradeRecord, error) {
	var trades []*TradeRecord
	for rows.Next() {
		t := &TradeRecord{}
		var openedStr, closedStr string
		err := rows.Scan(
			&t.ID, &t.PositionID, &t.Symbol, &t.Side, &t.EntryPrice,
			&t.ExitPrice, &t.Quantity, &t.PnL, &t.CloseReason,
			&openedStr, &closedStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan completed trade: %w", err)
		}
		if t.OpenedAt, err = time.Parse(time.RFC3339, openedStr); err != nil {
			return nil, fmt.Errorf("failed to parse opened_at %q: %w", openedStr, err)
		}
		if t.ClosedAt, err = time.Parse(time.RFC3339, closedStr); err != nil {
			return nil, fmt.Errorf("failed to parse closed_at %q: %w", closedStr, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
