package models

import "time"

// OrderIntent represents a single-contract market order proposed by the
// engine. The engine never mutates position state directly; the effect of a
// submitted intent is observed on the next position refresh.
type OrderIntent struct {
	ID       string
	Contract OptionContract
	Side     OrderSide
	Quantity int
	PlacedAt time.Time
}

// ComboLeg is one leg of a combined order.
type ComboLeg struct {
	Contract OptionContract
	Side     OrderSide
	Ratio    int
}

// ComboOrder represents a multi-leg order submitted as a single unit, used
// for rolls (close old, open new) and credit spreads.
type ComboOrder struct {
	ID       string
	Symbol   string
	Legs     []ComboLeg
	Side     OrderSide
	Quantity int
	PlacedAt time.Time
}

// Position is an open position as reported by the brokerage account.
// Quantity is signed; negative means short. Option fields are zero for
// equity positions.
type Position struct {
	Symbol   string
	SecType  SecurityType
	Exchange Exchange
	Quantity float64
	AvgPrice float64

	Right  Right
	Expiry time.Time
	Strike float64
}

// IsOption reports whether the position is an option position.
func (p Position) IsOption() bool {
	return p.SecType == SecurityOption
}

// Option returns the option contract for an option position.
func (p Position) Option() OptionContract {
	return OptionContract{
		Symbol:   p.Symbol,
		Expiry:   p.Expiry,
		Strike:   p.Strike,
		Right:    p.Right,
		Exchange: p.Exchange,
	}
}
