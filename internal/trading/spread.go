package trading

import (
	"context"
	"fmt"

	apperrors "options-engine/internal/errors"
	"options-engine/internal/models"
	"options-engine/internal/selector"
)

// manageIndexSpreads opens a put credit spread on the configured index
// candidate: short leg selected by delta, long leg one width below, both
// legs submitted as a single combo. Opening is suspended globally while
// the volatility snapshot is above the panic threshold, and skipped when
// any option position already exists on the underlying.
func (e *Engine) manageIndexSpreads(ctx context.Context) error {
	if e.forceExit {
		return nil
	}
	if len(e.cfg.Indexes) == 0 {
		e.log.Warn().Msg("No index candidate configured, skipping spreads")
		return nil
	}
	if e.vix != nil && *e.vix > e.cfg.Engine.VIXPanicThreshold {
		e.log.Warn().Float64("vix", *e.vix).Msg("Panic volatility, spread opening suspended")
		return nil
	}

	candidate := e.cfg.Indexes[0]
	symbol := candidate.Symbol
	exchange := models.Exchange(candidate.Exchange)
	if exchange == "" {
		exchange = models.ExchangeCBOE
	}

	positions, err := e.gw.Positions(ctx)
	if err != nil {
		return fmt.Errorf("querying positions: %w", err)
	}
	if hasOptionPosition(positions, symbol) {
		e.log.Info().Str("symbol", symbol).Msg("Existing spread position, monitoring")
		return nil
	}

	params := e.params.Params()
	underlying := models.Index(symbol, exchange)
	expiry := e.now() // same-day expiration

	opts := selector.DefaultOptions()
	shortLeg, err := e.sel.FindByDelta(ctx, underlying, expiry, params.PCSSellDelta, models.RightPut, opts)
	if err != nil {
		if apperrors.IsNotFound(err) {
			e.log.Warn().Err(err).Str("symbol", symbol).Msg("No spread short leg found")
			return nil
		}
		return err
	}

	longContract := models.OptionContract{
		Symbol:   symbol,
		Expiry:   shortLeg.Expiry,
		Strike:   shortLeg.Strike - params.PCSWidth,
		Right:    models.RightPut,
		Exchange: exchange,
	}
	qualified, err := e.gw.Qualify(ctx, []models.OptionContract{longContract})
	if err != nil {
		return fmt.Errorf("qualifying long leg: %w", err)
	}
	if len(qualified) == 0 {
		e.log.Warn().Str("contract", longContract.LocalSymbol()).Msg("Long leg did not qualify, skipping spread")
		return nil
	}
	longLeg := qualified[0]

	if !selector.IsContractLiquid(ctx, e.gw, longLeg, opts.SpreadThreshold) {
		e.log.Warn().Str("contract", longLeg.LocalSymbol()).Msg("Long leg illiquid, skipping spread")
		return nil
	}

	combo := models.ComboOrder{
		Symbol: symbol,
		Legs: []models.ComboLeg{
			{Contract: *shortLeg, Side: models.OrderSideSell, Ratio: 1},
			{Contract: longLeg, Side: models.OrderSideBuy, Ratio: 1},
		},
		Side:     models.OrderSideSell,
		Quantity: 1,
	}
	if _, err := e.gw.PlaceCombo(ctx, combo); err != nil {
		return fmt.Errorf("placing spread combo: %w", err)
	}

	sellDelta := params.PCSSellDelta
	e.log.Info().
		Str("symbol", symbol).
		Float64("short_strike", shortLeg.Strike).
		Float64("long_strike", longLeg.Strike).
		Msg("Credit spread opened")
	e.logTrade(ctx, &models.TradeRecord{
		Category: models.CategorySpread,
		Symbol:   symbol,
		Action:   "OPEN",
		Quantity: 1,
		Delta:    &sellDelta,
		Notes:    fmt.Sprintf("Sell %gP, Buy %gP, VIX: %s", shortLeg.Strike, longLeg.Strike, vixNote(e.vix)),
	})
	return nil
}
