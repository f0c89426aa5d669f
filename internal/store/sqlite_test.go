package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-engine/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestAppendAndQueryTrades(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	delta := 0.15
	trade := &models.TradeRecord{
		Category: models.CategoryCoveredCall,
		Symbol:   "GOOG",
		Action:   "OPEN",
		Quantity: 1,
		Price:    1.02,
		Delta:    &delta,
		Notes:    "weekly open",
	}
	require.NoError(t, st.AppendTrade(ctx, trade))
	assert.NotEmpty(t, trade.ID, "an id is assigned on write")
	assert.False(t, trade.Timestamp.IsZero())

	require.NoError(t, st.AppendTrade(ctx, &models.TradeRecord{
		Category: models.CategorySpread,
		Symbol:   "SPX",
		Action:   "OPEN",
		Quantity: 1,
	}))

	all, err := st.Trades(ctx, TradeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bySymbol, err := st.Trades(ctx, TradeFilter{Symbol: "GOOG"})
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
	assert.Equal(t, models.CategoryCoveredCall, bySymbol[0].Category)
	require.NotNil(t, bySymbol[0].Delta)
	assert.InDelta(t, 0.15, *bySymbol[0].Delta, 1e-9)
	assert.Equal(t, "weekly open", bySymbol[0].Notes)

	byCategory, err := st.Trades(ctx, TradeFilter{Category: models.CategorySpread})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Nil(t, byCategory[0].Delta)
}

func TestTradesTimeWindowAndLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, st.AppendTrade(ctx, &models.TradeRecord{
			Timestamp: base.AddDate(0, 0, i),
			Category:  models.CategoryCoveredCall,
			Symbol:    "GOOG",
			Action:    "OPEN",
		}))
	}

	windowed, err := st.Trades(ctx, TradeFilter{
		StartDate: base.AddDate(0, 0, 1),
		EndDate:   base.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	assert.Len(t, windowed, 3)

	limited, err := st.Trades(ctx, TradeFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	// Newest first.
	assert.True(t, limited[0].Timestamp.After(limited[1].Timestamp))
}

func TestTradeDeltasSkipRecordsWithoutDelta(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	d1, d2 := 0.10, 0.20
	require.NoError(t, st.AppendTrade(ctx, &models.TradeRecord{Category: models.CategoryCoveredCall, Symbol: "GOOG", Action: "OPEN", Delta: &d1}))
	require.NoError(t, st.AppendTrade(ctx, &models.TradeRecord{Category: models.CategoryCoveredCall, Symbol: "GOOG", Action: "OPEN"}))
	require.NoError(t, st.AppendTrade(ctx, &models.TradeRecord{Category: models.CategoryCoveredCall, Symbol: "GOOG", Action: "OPEN", Delta: &d2}))
	require.NoError(t, st.AppendTrade(ctx, &models.TradeRecord{Category: models.CategoryRoll, Symbol: "GOOG", Action: "ROLL", Delta: &d1}))

	deltas, err := st.TradeDeltas(ctx, models.CategoryCoveredCall)
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{0.10, 0.20}, deltas)
}

func TestEarningsCacheTTL(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CacheEarnings(ctx, "GOOG", "2024-07-23"))

	entry, err := st.CachedEarnings(ctx, "GOOG", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "2024-07-23", entry.EarningsDate)

	// A zero TTL makes everything stale.
	stale, err := st.CachedEarnings(ctx, "GOOG", 0)
	require.NoError(t, err)
	assert.Nil(t, stale)

	miss, err := st.CachedEarnings(ctx, "MSFT", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestCacheEarningsReplacesExistingEntry(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CacheEarnings(ctx, "GOOG", "2024-07-23"))
	require.NoError(t, st.CacheEarnings(ctx, "GOOG", "2024-10-22"))

	entry, err := st.CachedEarnings(ctx, "GOOG", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "2024-10-22", entry.EarningsDate)
}

func TestSaveOverridesMergesPerMode(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveOverrides(ctx, "income", map[string]float64{
		"cc_delta_target": 0.12,
		"pcs_sell_delta":  0.06,
	}))
	require.NoError(t, st.SaveOverrides(ctx, "income", map[string]float64{
		"cc_delta_target": 0.14,
	}))
	require.NoError(t, st.SaveOverrides(ctx, "aggressive", map[string]float64{
		"cc_delta_target": 0.30,
	}))

	income, err := st.LoadOverrides(ctx, "income")
	require.NoError(t, err)
	assert.InDelta(t, 0.14, income["cc_delta_target"], 1e-9, "later writes win")
	assert.InDelta(t, 0.06, income["pcs_sell_delta"], 1e-9, "absent keys survive a merge")

	aggressive, err := st.LoadOverrides(ctx, "aggressive")
	require.NoError(t, err)
	assert.Len(t, aggressive, 1)
	assert.InDelta(t, 0.30, aggressive["cc_delta_target"], 1e-9)

	empty, err := st.LoadOverrides(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSaveSnapshot(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.SaveSnapshot(context.Background(), &models.MarketSnapshot{
		Symbol: "VIX",
		Value:  18.5,
	}))
}
