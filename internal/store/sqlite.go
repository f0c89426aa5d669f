package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"options-engine/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Append-only trade log
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		category TEXT NOT NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		quantity REAL,
		price REAL,
		delta REAL,
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_category ON trades(category);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);

	-- Market-wide readings (e.g. VIX per cycle)
	CREATE TABLE IF NOT EXISTS market_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		value REAL,
		notes TEXT
	);

	-- Earnings calendar cache
	CREATE TABLE IF NOT EXISTS earnings_cache (
		symbol TEXT PRIMARY KEY,
		earnings_date TEXT,
		cached_at DATETIME NOT NULL
	);

	-- Learned parameter overrides per strategy mode
	CREATE TABLE IF NOT EXISTS param_overrides (
		mode TEXT NOT NULL,
		name TEXT NOT NULL,
		value REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (mode, name)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendTrade writes a trade record. Records are never updated or deleted.
func (s *SQLiteStore) AppendTrade(ctx context.Context, trade *models.TradeRecord) error {
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	if trade.Timestamp.IsZero() {
		trade.Timestamp = time.Now().UTC()
	}
	var delta sql.NullFloat64
	if trade.Delta != nil {
		delta = sql.NullFloat64{Float64: *trade.Delta, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, timestamp, category, symbol, action, quantity, price, delta, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.Timestamp, string(trade.Category), trade.Symbol,
		trade.Action, trade.Quantity, trade.Price, delta, trade.Notes)
	if err != nil {
		return fmt.Errorf("appending trade: %w", err)
	}
	return nil
}

// Trades returns trade records matching the filter, newest first.
func (s *SQLiteStore) Trades(ctx context.Context, filter TradeFilter) ([]models.TradeRecord, error) {
	query := `SELECT id, timestamp, category, symbol, action, quantity, price, delta, notes FROM trades WHERE 1=1`
	var args []interface{}
	if filter.Symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, filter.Symbol)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	if !filter.StartDate.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, filter.EndDate)
	}
	query += ` ORDER BY timestamp DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var trades []models.TradeRecord
	for rows.Next() {
		var t models.TradeRecord
		var category string
		var delta sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.Timestamp, &category, &t.Symbol, &t.Action, &t.Quantity, &t.Price, &delta, &t.Notes); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		t.Category = models.TradeCategory(category)
		if delta.Valid {
			v := delta.Float64
			t.Delta = &v
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// TradeDeltas returns all recorded execution deltas for a trade category.
// Records with no delta are skipped.
func (s *SQLiteStore) TradeDeltas(ctx context.Context, category models.TradeCategory) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT delta FROM trades WHERE category = ? AND delta IS NOT NULL`, string(category))
	if err != nil {
		return nil, fmt.Errorf("querying trade deltas: %w", err)
	}
	defer rows.Close()

	var deltas []float64
	for rows.Next() {
		var d float64
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning delta: %w", err)
		}
		deltas = append(deltas, d)
	}
	return deltas, rows.Err()
}

// SaveSnapshot records a market-wide reading.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot *models.MarketSnapshot) error {
	ts := snapshot.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_snapshots (timestamp, symbol, value, notes)
		VALUES (?, ?, ?, ?)`,
		ts, snapshot.Symbol, snapshot.Value, snapshot.Notes)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// CachedEarnings returns the cached earnings entry for a symbol if it is
// younger than ttl, else nil.
func (s *SQLiteStore) CachedEarnings(ctx context.Context, symbol string, ttl time.Duration) (*EarningsEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol, earnings_date, cached_at FROM earnings_cache WHERE symbol = ?`, symbol)
	var entry EarningsEntry
	var date sql.NullString
	if err := row.Scan(&entry.Symbol, &date, &entry.CachedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying earnings cache: %w", err)
	}
	if time.Since(entry.CachedAt) > ttl {
		return nil, nil
	}
	entry.EarningsDate = date.String
	return &entry, nil
}

// CacheEarnings replaces the cached earnings date for a symbol.
func (s *SQLiteStore) CacheEarnings(ctx context.Context, symbol, earningsDate string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO earnings_cache (symbol, earnings_date, cached_at)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET earnings_date = excluded.earnings_date, cached_at = excluded.cached_at`,
		symbol, earningsDate, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("caching earnings: %w", err)
	}
	return nil
}

// LoadOverrides returns the persisted parameter overrides for a mode.
func (s *SQLiteStore) LoadOverrides(ctx context.Context, mode string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value FROM param_overrides WHERE mode = ?`, mode)
	if err != nil {
		return nil, fmt.Errorf("querying overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning override: %w", err)
		}
		overrides[name] = value
	}
	return overrides, rows.Err()
}

// SaveOverrides merges the given overrides into the mode's persisted set.
// Keys not present in the argument are left untouched.
func (s *SQLiteStore) SaveOverrides(ctx context.Context, mode string, overrides map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning override tx: %w", err)
	}
	for name, value := range overrides {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO param_overrides (mode, name, value, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(mode, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			mode, name, value, time.Now().UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("saving override %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
