package models

import (
	"fmt"
	"time"
)

// OptionChain describes the expirations and strikes an exchange lists for an
// underlying. Fetched fresh on every selection; never cached across cycles.
type OptionChain struct {
	Symbol      string
	Exchange    Exchange
	Expirations []time.Time
	Strikes     []float64
}

// HasExpiration reports whether the chain lists the given expiry date.
func (c *OptionChain) HasExpiration(expiry time.Time) bool {
	want := expiry.Format(ExpiryFormat)
	for _, e := range c.Expirations {
		if e.Format(ExpiryFormat) == want {
			return true
		}
	}
	return false
}

// OptionContract identifies a single option. Immutable once qualified.
// Uniquely identified by (symbol, expiry, strike, right, exchange).
type OptionContract struct {
	Symbol   string
	Expiry   time.Time
	Strike   float64
	Right    Right
	Exchange Exchange

	// ContractID is assigned by the gateway during qualification and is
	// empty for contracts that have not resolved yet.
	ContractID string
}

// LocalSymbol renders the conventional short form, e.g. AAPL 20240119 190 C.
func (c OptionContract) LocalSymbol() string {
	return fmt.Sprintf("%s %s %g %s", c.Symbol, c.Expiry.Format(ExpiryFormat), c.Strike, c.Right)
}

// Key returns a map key that uniquely identifies the contract.
func (c OptionContract) Key() string {
	return fmt.Sprintf("%s|%s|%g|%s|%s", c.Symbol, c.Expiry.Format(ExpiryFormat), c.Strike, c.Right, c.Exchange)
}

// Greeks holds model-computed option sensitivities. Delta is signed, with
// magnitude in [0,1] for single options.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// OptionQuote is a transient market quote for a contract. Refreshed per
// query and never persisted as-is. A side priced at or below zero means the
// side is missing.
type OptionQuote struct {
	Contract OptionContract
	Bid      float64
	Ask      float64
	Last     float64

	ModelGreeks  *Greeks
	MarketGreeks *Greeks
}

// Price returns the midpoint when both sides are present, else the last
// trade price.
func (q *OptionQuote) Price() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.Last
}

// Delta returns the usable delta for the quote: the model delta when
// present, else the market delta. The second return is false when neither
// is available.
func (q *OptionQuote) Delta() (float64, bool) {
	if q.ModelGreeks != nil {
		return q.ModelGreeks.Delta, true
	}
	if q.MarketGreeks != nil {
		return q.MarketGreeks.Delta, true
	}
	return 0, false
}
