package models

import "time"

// TradeCategory classifies an executed trade in the log.
type TradeCategory string

const (
	CategoryCoveredCall TradeCategory = "COVERED_CALL"
	CategoryRoll        TradeCategory = "ROLLING"
	CategorySpread      TradeCategory = "SPREAD"
	CategoryEmergency   TradeCategory = "EMERGENCY"
)

// TradeRecord is an immutable append-only record of an executed trade.
// Written once at execution time and read in aggregate by the tuner; never
// updated or deleted.
type TradeRecord struct {
	ID        string        `csv:"id"`
	Timestamp time.Time     `csv:"timestamp"`
	Category  TradeCategory `csv:"category"`
	Symbol    string        `csv:"symbol"`
	Action    string        `csv:"action"`
	Quantity  float64       `csv:"quantity"`
	Price     float64       `csv:"price"`
	Delta     *float64      `csv:"delta"`
	Notes     string        `csv:"notes"`
}

// MarketSnapshot records a market-wide reading, e.g. the VIX level for a
// cycle.
type MarketSnapshot struct {
	Timestamp time.Time
	Symbol    string
	Value     float64
	Notes     string
}
