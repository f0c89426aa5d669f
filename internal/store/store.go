// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"options-engine/internal/models"
)

// Store defines the persistence surface the engine depends on. Trade
// records are append-only; overrides are merged per mode.
type Store interface {
	// Trade log
	AppendTrade(ctx context.Context, trade *models.TradeRecord) error
	Trades(ctx context.Context, filter TradeFilter) ([]models.TradeRecord, error)
	TradeDeltas(ctx context.Context, category models.TradeCategory) ([]float64, error)

	// Market snapshots
	SaveSnapshot(ctx context.Context, snapshot *models.MarketSnapshot) error

	// Earnings cache
	CachedEarnings(ctx context.Context, symbol string, ttl time.Duration) (*EarningsEntry, error)
	CacheEarnings(ctx context.Context, symbol, earningsDate string) error

	// Learned parameter overrides, keyed by strategy mode
	LoadOverrides(ctx context.Context, mode string) (map[string]float64, error)
	SaveOverrides(ctx context.Context, mode string, overrides map[string]float64) error

	// Lifecycle
	Close() error
}

// TradeFilter restricts a trade log query.
type TradeFilter struct {
	Symbol    string
	Category  models.TradeCategory
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// EarningsEntry is a cached earnings calendar lookup. An empty
// EarningsDate means the provider reported no upcoming earnings.
type EarningsEntry struct {
	Symbol       string
	EarningsDate string
	CachedAt     time.Time
}
