// Package store provides the database storage layer.
// All database operations should go through this package.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"gridbot/logger"
)

// Store is the unified data storage entry point.
type Store struct {
	db *sql.DB

	// Sub-stores (lazy initialization)
	trade *TradeStore

	mu sync.Mutex
}

// New opens (or creates) the SQLite database at dbPath and prepares all
// tables.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite tolerates a single writer only.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize table structure: %w", err)
	}

	logger.Infof("✅ Database initialized (path: %s)", dbPath)
	return s, nil
}

// NewFromDB creates a Store from an existing database connection.
// Used by tests.
func NewFromDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize table structure: %w", err)
	}
	return s, nil
}

func (s *Store) initTables() error {
	if err := s.Trade().initTables(); err != nil {
		return fmt.Errorf("failed to initialize trade tables: %w", err)
	}
	return nil
}

// Trade gets completed-trade storage.
func (s *Store) Trade() *TradeStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trade == nil {
		s.trade = &TradeStore{db: s.db}
	}
	return s.trade
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB gets the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}
