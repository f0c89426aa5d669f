// Package trading implements the strategy engine: position lifecycle,
// risk monitoring and the per-cycle orchestration loop.
package trading

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"options-engine/internal/broker"
	"options-engine/internal/models"
	"options-engine/internal/store"
)

// RiskAction is the verdict of a drawdown check.
type RiskAction string

const (
	ActionContinue      RiskAction = "CONTINUE"
	ActionEmergencyExit RiskAction = "EMERGENCY_EXIT"
)

// RiskMonitor computes drawdown against a baseline net asset value
// captured once per session. The monitor is stateless beyond the baseline:
// it keeps reporting ActionEmergencyExit for as long as the drawdown
// persists.
type RiskMonitor struct {
	baselineNAV float64
}

// NewRiskMonitor captures the session baseline NAV.
func NewRiskMonitor(baselineNAV float64) (*RiskMonitor, error) {
	if baselineNAV <= 0 {
		return nil, fmt.Errorf("baseline NAV must be positive, got %g", baselineNAV)
	}
	return &RiskMonitor{baselineNAV: baselineNAV}, nil
}

// Baseline returns the session baseline NAV.
func (m *RiskMonitor) Baseline() float64 {
	return m.baselineNAV
}

// Drawdown returns the fractional decline of currentNAV from the baseline.
func (m *RiskMonitor) Drawdown(currentNAV float64) float64 {
	return (m.baselineNAV - currentNAV) / m.baselineNAV
}

// Check returns ActionEmergencyExit when the drawdown strictly exceeds
// maxDrawdown. Exactly at the threshold it does not trigger.
func (m *RiskMonitor) Check(currentNAV, maxDrawdown float64) RiskAction {
	if m.Drawdown(currentNAV) > maxDrawdown {
		return ActionEmergencyExit
	}
	return ActionContinue
}

// EmergencyExit cancels all outstanding orders and flattens every open
// option position at market. Fire-and-forget per position: one order
// failure never blocks liquidation attempts on the others. Each
// liquidation is logged best-effort.
func EmergencyExit(ctx context.Context, gw broker.Gateway, st store.Store, log zerolog.Logger) {
	if err := gw.CancelAllOrders(ctx); err != nil {
		log.Error().Err(err).Msg("Global order cancel failed")
	}

	positions, err := gw.Positions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Position query failed during emergency exit")
		return
	}

	for _, pos := range positions {
		if !pos.IsOption() || pos.Quantity == 0 {
			continue
		}
		contract := pos.Option()
		side := models.OrderSideSell
		if pos.Quantity < 0 {
			side = models.OrderSideBuy
		}
		qty := int(pos.Quantity)
		if qty < 0 {
			qty = -qty
		}
		if _, err := gw.PlaceOrder(ctx, models.OrderIntent{
			Contract: contract,
			Side:     side,
			Quantity: qty,
		}); err != nil {
			log.Error().Err(err).Str("contract", contract.LocalSymbol()).Msg("Emergency liquidation order failed")
			continue
		}
		log.Warn().Str("contract", contract.LocalSymbol()).Int("quantity", qty).Msg("Emergency liquidation submitted")

		if st != nil {
			record := &models.TradeRecord{
				Category: models.CategoryEmergency,
				Symbol:   contract.Symbol,
				Action:   "EXIT",
				Quantity: float64(qty),
				Notes:    fmt.Sprintf("Emergency liquidation of %s", contract.LocalSymbol()),
			}
			if err := st.AppendTrade(ctx, record); err != nil {
				log.Warn().Err(err).Msg("Trade log write failed")
			}
		}
	}
}
