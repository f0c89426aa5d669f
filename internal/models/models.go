// Package models provides domain models for the options engine.
package models

import "time"

// Exchange represents an exchange or routing destination.
type Exchange string

const (
	ExchangeSmart  Exchange = "SMART"
	ExchangeCBOE   Exchange = "CBOE"
	ExchangeNasdaq Exchange = "NASDAQ"
	ExchangeNYSE   Exchange = "NYSE"
)

// SecurityType represents the type of a tradeable instrument.
type SecurityType string

const (
	SecurityStock  SecurityType = "STK"
	SecurityIndex  SecurityType = "IND"
	SecurityOption SecurityType = "OPT"
)

// Right represents an option right.
type Right string

const (
	RightCall Right = "C"
	RightPut  Right = "P"
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Reverse returns the opposite side. Used when flattening positions.
func (s OrderSide) Reverse() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// Underlying identifies an equity or index instrument. Immutable identity.
type Underlying struct {
	Symbol   string
	SecType  SecurityType
	Exchange Exchange
	Currency string
}

// Stock returns an equity underlying routed through SMART.
func Stock(symbol string) Underlying {
	return Underlying{Symbol: symbol, SecType: SecurityStock, Exchange: ExchangeSmart, Currency: "USD"}
}

// Index returns an index underlying on the given exchange.
func Index(symbol string, exchange Exchange) Underlying {
	return Underlying{Symbol: symbol, SecType: SecurityIndex, Exchange: exchange, Currency: "USD"}
}

// ExpiryFormat is the wire format for option expiration dates.
const ExpiryFormat = "20060102"

// DaysToExpiry returns whole days between now and the expiry date.
func DaysToExpiry(expiry, now time.Time) int {
	return int(expiry.Sub(now).Hours() / 24)
}
