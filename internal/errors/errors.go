// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors. NotFound and StaleData variants are non-fatal:
// the cycle moves on to the next underlying. SafetyViolation aborts a single
// action; TransientIO is retried at the cycle boundary.
var (
	ErrNoChain           = errors.New("no option chain for exchange")
	ErrNoExpiry          = errors.New("expiry not listed in chain")
	ErrNoStrikes         = errors.New("no strikes within price band")
	ErrNoUsableDelta     = errors.New("no quote with usable delta")
	ErrNoLiquidCandidate = errors.New("no liquid candidate")
	ErrStalePrice        = errors.New("missing or non-positive price")
	ErrNetCredit         = errors.New("net credit check failed")
	ErrIlliquid          = errors.New("liquidity check failed")
	ErrCircuitBreaker    = errors.New("drawdown circuit breaker tripped")
	ErrNotConnected      = errors.New("gateway not connected")
)

// IsNotFound reports whether err is any of the non-fatal selection
// failures. StaleData is folded in here: a missing price is handled the
// same way as a missing chain.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoChain) ||
		errors.Is(err, ErrNoExpiry) ||
		errors.Is(err, ErrNoStrikes) ||
		errors.Is(err, ErrNoUsableDelta) ||
		errors.Is(err, ErrNoLiquidCandidate) ||
		errors.Is(err, ErrStalePrice)
}

// IsSafetyViolation reports whether err aborted a single proposed action.
// The prior position is retained and the condition re-evaluated next cycle.
func IsSafetyViolation(err error) bool {
	return errors.Is(err, ErrNetCredit) || errors.Is(err, ErrIlliquid)
}

// GatewayError represents a transient failure talking to the market or
// execution gateway.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError wraps err as a transient gateway failure.
func NewGatewayError(op string, err error) *GatewayError {
	return &GatewayError{Op: op, Err: err}
}

// IsTransient reports whether err is a transient gateway failure that
// should be retried at the cycle boundary.
func IsTransient(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
