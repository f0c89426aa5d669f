package trading

import (
	"context"
	"fmt"
	"math"

	apperrors "options-engine/internal/errors"
	"options-engine/internal/logging"
	"options-engine/internal/models"
	"options-engine/internal/selector"
	"options-engine/pkg/utils"
)

// manageCoveredCalls evaluates the stock candidate pool: open a new
// covered call on the first qualifying holding, or monitor and roll an
// existing one. NotFound outcomes are non-fatal; the state is retried
// next cycle.
func (e *Engine) manageCoveredCalls(ctx context.Context) error {
	if e.forceExit {
		return nil
	}

	positions, err := e.gw.Positions(ctx)
	if err != nil {
		return fmt.Errorf("querying positions: %w", err)
	}

	candidate, stockPos, optPos := selectStockCandidate(positions, e.cfg.Stocks)
	if candidate == nil {
		e.log.Info().Msg("No stock candidate with sufficient holding, skipping covered calls")
		return nil
	}

	symbol := candidate.Symbol
	if e.earnings.IsNearEarnings(ctx, symbol, e.cfg.Engine.EarningsWindowDays) {
		e.log.Info().Str("symbol", symbol).Msg("Earnings approaching, skipping covered call")
		return nil
	}

	if optPos == nil || math.Abs(optPos.Quantity) < 1 {
		return e.openCoveredCall(ctx, symbol, stockPos)
	}
	return e.checkAndRoll(ctx, *optPos)
}

func (e *Engine) openCoveredCall(ctx context.Context, symbol string, stockPos *models.Position) error {
	log := logging.WithSymbol(e.log, symbol)
	params := e.params.Params()
	effectiveDelta := e.effectiveCallDelta(params)

	qty := int(stockPos.Quantity / 100)
	if qty < 1 {
		return nil
	}

	expiry := utils.NextFriday(e.now(), 0)
	contract, err := e.sel.FindByDelta(ctx, models.Stock(symbol), expiry, effectiveDelta, models.RightCall, selector.DefaultOptions())
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Warn().Err(err).Msg("No covered-call contract found, retrying next cycle")
			return nil
		}
		return err
	}

	if _, err := e.gw.PlaceOrder(ctx, models.OrderIntent{
		Contract: *contract,
		Side:     models.OrderSideSell,
		Quantity: qty,
	}); err != nil {
		return fmt.Errorf("placing covered-call order: %w", err)
	}

	log.Info().
		Str("contract", contract.LocalSymbol()).
		Int("quantity", qty).
		Msg("Covered call opened")
	e.logTrade(ctx, &models.TradeRecord{
		Category: models.CategoryCoveredCall,
		Symbol:   symbol,
		Action:   "OPEN",
		Quantity: float64(qty),
		Delta:    &effectiveDelta,
		Notes:    fmt.Sprintf("Contract: %s, VIX: %s", contract.LocalSymbol(), vixNote(e.vix)),
	})
	return nil
}

// checkAndRoll monitors a held call and rolls it one expiration cycle out
// when the delta or DTE trigger fires. The roll executes as a single combo
// only when the replacement is liquid and its bid exceeds the current
// contract's ask; otherwise the old position is retained and the roll is
// re-evaluated next cycle.
func (e *Engine) checkAndRoll(ctx context.Context, pos models.Position) error {
	contract := pos.Option()
	quote, err := e.gw.Quote(ctx, contract)
	if err != nil {
		return fmt.Errorf("quoting %s: %w", contract.LocalSymbol(), err)
	}
	delta, ok := quote.Delta()
	if !ok {
		e.log.Warn().Str("contract", contract.LocalSymbol()).Msg("No greeks available, skipping roll check")
		return nil
	}
	absDelta := math.Abs(delta)
	dte := models.DaysToExpiry(contract.Expiry, e.now())

	params := e.params.Params()
	if !ShouldRoll(absDelta, dte, params) {
		return nil
	}
	e.log.Info().
		Str("contract", contract.LocalSymbol()).
		Float64("delta", absDelta).
		Int("dte", dte).
		Msg("Roll triggered")

	// The replacement is always targeted at the base delta, not the
	// volatility-adjusted one.
	newExpiry := utils.NextFriday(e.now(), 1)
	replacement, err := e.sel.FindByDelta(ctx, models.Stock(contract.Symbol), newExpiry, params.CCDeltaTarget, models.RightCall, selector.DefaultOptions())
	if err != nil {
		if apperrors.IsNotFound(err) {
			e.log.Warn().Err(err).Msg("No replacement contract found, roll deferred")
			return nil
		}
		return err
	}

	opts := selector.DefaultOptions()
	if !selector.IsContractLiquid(ctx, e.gw, *replacement, opts.SpreadThreshold) {
		e.log.Warn().Err(apperrors.ErrIlliquid).Str("contract", replacement.LocalSymbol()).Msg("Roll deferred")
		return nil
	}

	newQuote, err := e.gw.Quote(ctx, *replacement)
	if err != nil {
		return fmt.Errorf("quoting replacement %s: %w", replacement.LocalSymbol(), err)
	}

	qty := int(math.Abs(pos.Quantity))
	check := RollCheck{
		UseCostModel:          e.cfg.Engine.UseCostModel,
		CommissionPerContract: e.cfg.Engine.CommissionPerLot,
		SlippagePerContract:   e.cfg.Engine.SlippagePerLot,
	}
	if !check.NetCreditOK(newQuote.Bid, quote.Ask, qty) {
		e.log.Warn().Err(apperrors.ErrNetCredit).
			Float64("new_bid", newQuote.Bid).
			Float64("old_ask", quote.Ask).
			Msg("Roll deferred")
		return nil
	}

	combo := models.ComboOrder{
		Symbol: contract.Symbol,
		Legs: []models.ComboLeg{
			{Contract: contract, Side: models.OrderSideBuy, Ratio: 1},
			{Contract: *replacement, Side: models.OrderSideSell, Ratio: 1},
		},
		Side:     models.OrderSideSell,
		Quantity: qty,
	}
	if _, err := e.gw.PlaceCombo(ctx, combo); err != nil {
		return fmt.Errorf("placing roll combo: %w", err)
	}

	e.log.Info().
		Str("from", contract.LocalSymbol()).
		Str("to", replacement.LocalSymbol()).
		Msg("Rolled position")
	e.logTrade(ctx, &models.TradeRecord{
		Category: models.CategoryRoll,
		Symbol:   contract.Symbol,
		Action:   "ROLL",
		Quantity: float64(qty),
		Delta:    &absDelta,
		Notes:    fmt.Sprintf("From %s to %s", contract.LocalSymbol(), replacement.LocalSymbol()),
	})
	return nil
}

func vixNote(vix *float64) string {
	if vix == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *vix)
}
