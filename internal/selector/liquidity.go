package selector

import (
	"context"

	"options-engine/internal/broker"
	"options-engine/internal/models"
)

// IsLiquid reports whether a quoted contract is tradable: both sides
// present, a positive price, and a bid/ask spread no wider than
// spreadThreshold as a fraction of price.
func IsLiquid(q *models.OptionQuote, spreadThreshold float64) bool {
	if q == nil {
		return false
	}
	price := q.Price()
	if price <= 0 || q.Bid <= 0 || q.Ask <= 0 {
		return false
	}
	return (q.Ask-q.Bid)/price <= spreadThreshold
}

// IsContractLiquid fetches a fresh quote for the contract and applies
// IsLiquid. A quote failure counts as illiquid.
func IsContractLiquid(ctx context.Context, gw broker.Gateway, contract models.OptionContract, spreadThreshold float64) bool {
	q, err := gw.Quote(ctx, contract)
	if err != nil {
		return false
	}
	return IsLiquid(q, spreadThreshold)
}
