package trading

import (
	"options-engine/internal/config"
	"options-engine/pkg/utils"
)

// ShouldRoll reports whether a held option position meets the roll
// trigger. The conditions are an OR: a delta past the threshold or an
// expiry inside the DTE window each suffice on their own.
func ShouldRoll(absDelta float64, dte int, params config.StrategyParams) bool {
	return absDelta > params.RollDeltaThreshold || dte < params.RollDTEThreshold
}

// RollCheck holds the net-credit guard configuration. With the cost model
// disabled the guard is the raw comparison newBid > oldAsk; enabled, the
// credit must additionally cover round-trip commission and a slippage
// buffer.
type RollCheck struct {
	UseCostModel          bool
	CommissionPerContract float64
	SlippagePerContract   float64
}

// NetCreditOK reports whether rolling into the replacement collects an
// acceptable net credit: the proceeds from the new short leg must exceed
// the cost of closing the old one.
func (c RollCheck) NetCreditOK(newBid, oldAsk float64, contracts int) bool {
	if !c.UseCostModel {
		return newBid > oldAsk
	}
	ok, _ := utils.ValidateNetCredit(newBid, oldAsk, contracts, c.CommissionPerContract, c.SlippagePerContract)
	return ok
}
