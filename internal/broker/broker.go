// Package broker provides the market/execution gateway interface and
// implementations.
package broker

import (
	"context"

	"options-engine/internal/models"
)

// Gateway defines the capability interface the engine consumes. A live
// brokerage adapter maps provider-specific shapes into the models types at
// this boundary; components never reach past it.
type Gateway interface {
	// Session
	Connect(ctx context.Context) error
	Close() error

	// Market data
	OptionChains(ctx context.Context, underlying models.Underlying) ([]models.OptionChain, error)
	UnderlyingPrice(ctx context.Context, underlying models.Underlying) (float64, error)
	Qualify(ctx context.Context, contracts []models.OptionContract) ([]models.OptionContract, error)
	Quotes(ctx context.Context, contracts []models.OptionContract) ([]models.OptionQuote, error)
	Quote(ctx context.Context, contract models.OptionContract) (*models.OptionQuote, error)

	// Orders
	PlaceOrder(ctx context.Context, intent models.OrderIntent) (*OrderResult, error)
	PlaceCombo(ctx context.Context, combo models.ComboOrder) (*OrderResult, error)
	CancelAllOrders(ctx context.Context) error

	// Account
	Positions(ctx context.Context) ([]models.Position, error)
	AccountValue(ctx context.Context, tag string) (float64, error)
}

// AccountTagNetLiquidation is the account summary tag for net asset value.
const AccountTagNetLiquidation = "NetLiquidation"

// OrderResult represents the result of an order submission.
type OrderResult struct {
	OrderID string
	Status  string
	Message string
}
