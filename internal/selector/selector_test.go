package selector

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-engine/internal/broker"
	apperrors "options-engine/internal/errors"
	"options-engine/internal/models"
)

var testExpiry = time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)

func newTestGateway(symbol string, spot float64, strikes []float64) *broker.PaperGateway {
	gw := broker.NewPaperGateway()
	gw.SetChain(symbol, models.OptionChain{
		Symbol:      symbol,
		Exchange:    models.ExchangeSmart,
		Expirations: []time.Time{testExpiry},
		Strikes:     strikes,
	})
	gw.SetPrice(symbol, spot)
	return gw
}

func callContract(symbol string, strike float64) models.OptionContract {
	return models.OptionContract{
		Symbol:   symbol,
		Expiry:   testExpiry,
		Strike:   strike,
		Right:    models.RightCall,
		Exchange: models.ExchangeSmart,
	}
}

func liquidQuote(c models.OptionContract, delta float64) models.OptionQuote {
	return models.OptionQuote{
		Contract:    c,
		Bid:         1.00,
		Ask:         1.05,
		Last:        1.02,
		ModelGreeks: &models.Greeks{Delta: delta},
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.BatchDelay = 0
	return opts
}

func TestFindByDeltaSelectsClosestLiquidContract(t *testing.T) {
	gw := newTestGateway("GOOG", 155, []float64{150, 160, 170})
	gw.SetQuote(liquidQuote(callContract("GOOG", 160), 0.15))
	gw.SetQuote(liquidQuote(callContract("GOOG", 170), 0.05))

	sel := New(gw, zerolog.Nop())
	contract, err := sel.FindByDelta(context.Background(), models.Stock("GOOG"), testExpiry, 0.15, models.RightCall, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 160.0, contract.Strike)
}

func TestFindByDeltaCallNeverReturnsInTheMoneyStrike(t *testing.T) {
	// Strike 150 is below spot; even with a perfect delta it must never
	// be a candidate for a call.
	gw := newTestGateway("GOOG", 155, []float64{150, 160, 170})
	gw.SetQuote(liquidQuote(callContract("GOOG", 150), 0.15))
	gw.SetQuote(liquidQuote(callContract("GOOG", 160), 0.30))

	sel := New(gw, zerolog.Nop())
	contract, err := sel.FindByDelta(context.Background(), models.Stock("GOOG"), testExpiry, 0.15, models.RightCall, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 160.0, contract.Strike)
}

func TestFindByDeltaPutReturnsStrikeBelowSpot(t *testing.T) {
	gw := newTestGateway("SPY", 500, []float64{480, 490, 510})
	put480 := models.OptionContract{Symbol: "SPY", Expiry: testExpiry, Strike: 480, Right: models.RightPut, Exchange: models.ExchangeSmart}
	put490 := models.OptionContract{Symbol: "SPY", Expiry: testExpiry, Strike: 490, Right: models.RightPut, Exchange: models.ExchangeSmart}
	gw.SetQuote(liquidQuote(put480, -0.07))
	gw.SetQuote(liquidQuote(put490, -0.20))

	sel := New(gw, zerolog.Nop())
	contract, err := sel.FindByDelta(context.Background(), models.Stock("SPY"), testExpiry, 0.07, models.RightPut, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 480.0, contract.Strike)
	assert.Less(t, contract.Strike, 500.0)
}

func TestFindByDeltaLiquidityIsHardFilter(t *testing.T) {
	// 160 is the delta-closest candidate but trades at a 50% spread; the
	// liquid 170 must win despite its larger delta diff.
	gw := newTestGateway("GOOG", 155, []float64{160, 170})
	wide := models.OptionQuote{
		Contract:    callContract("GOOG", 160),
		Bid:         0.50,
		Ask:         1.50,
		Last:        1.00,
		ModelGreeks: &models.Greeks{Delta: 0.15},
	}
	gw.SetQuote(wide)
	gw.SetQuote(liquidQuote(callContract("GOOG", 170), 0.05))

	sel := New(gw, zerolog.Nop())
	contract, err := sel.FindByDelta(context.Background(), models.Stock("GOOG"), testExpiry, 0.15, models.RightCall, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 170.0, contract.Strike)
}

func TestFindByDeltaAllIlliquid(t *testing.T) {
	gw := newTestGateway("GOOG", 155, []float64{160, 170})
	for _, strike := range []float64{160, 170} {
		gw.SetQuote(models.OptionQuote{
			Contract:    callContract("GOOG", strike),
			Bid:         0.10,
			Ask:         2.00,
			Last:        1.00,
			ModelGreeks: &models.Greeks{Delta: 0.15},
		})
	}

	sel := New(gw, zerolog.Nop())
	_, err := sel.FindByDelta(context.Background(), models.Stock("GOOG"), testExpiry, 0.15, models.RightCall, testOptions())
	assert.ErrorIs(t, err, apperrors.ErrNoLiquidCandidate)
}

func TestFindByDeltaFailureModes(t *testing.T) {
	ctx := context.Background()
	sel := New(newTestGateway("GOOG", 155, []float64{160}), zerolog.Nop())

	t.Run("no chain for exchange", func(t *testing.T) {
		gw := broker.NewPaperGateway()
		s := New(gw, zerolog.Nop())
		_, err := s.FindByDelta(ctx, models.Stock("MSFT"), testExpiry, 0.15, models.RightCall, testOptions())
		assert.ErrorIs(t, err, apperrors.ErrNoChain)
	})

	t.Run("expiry not listed", func(t *testing.T) {
		_, err := sel.FindByDelta(ctx, models.Stock("GOOG"), testExpiry.AddDate(0, 0, 7), 0.15, models.RightCall, testOptions())
		assert.ErrorIs(t, err, apperrors.ErrNoExpiry)
	})

	t.Run("stale underlying price", func(t *testing.T) {
		gw := newTestGateway("GOOG", 0, []float64{160})
		s := New(gw, zerolog.Nop())
		_, err := s.FindByDelta(ctx, models.Stock("GOOG"), testExpiry, 0.15, models.RightCall, testOptions())
		assert.ErrorIs(t, err, apperrors.ErrStalePrice)
	})

	t.Run("no strikes in band", func(t *testing.T) {
		gw := newTestGateway("GOOG", 155, []float64{50, 60})
		s := New(gw, zerolog.Nop())
		_, err := s.FindByDelta(ctx, models.Stock("GOOG"), testExpiry, 0.15, models.RightCall, testOptions())
		assert.ErrorIs(t, err, apperrors.ErrNoStrikes)
	})

	t.Run("no usable delta", func(t *testing.T) {
		gw := newTestGateway("GOOG", 155, []float64{160})
		gw.SetQuote(models.OptionQuote{
			Contract: callContract("GOOG", 160),
			Bid:      1.00,
			Ask:      1.05,
			Last:     1.02,
		})
		s := New(gw, zerolog.Nop())
		_, err := s.FindByDelta(ctx, models.Stock("GOOG"), testExpiry, 0.15, models.RightCall, testOptions())
		assert.ErrorIs(t, err, apperrors.ErrNoUsableDelta)
	})
}

func TestFindByDeltaEarlyExitStopsBatches(t *testing.T) {
	strikes := make([]float64, 0, 10)
	for s := 160.0; s < 170; s++ {
		strikes = append(strikes, s)
	}
	gw := newTestGateway("GOOG", 155, strikes)
	for _, strike := range strikes {
		// Every candidate is within the early-exit window.
		gw.SetQuote(liquidQuote(callContract("GOOG", strike), 0.15))
	}

	opts := testOptions()
	opts.BatchSize = 2
	sel := New(gw, zerolog.Nop())
	_, err := sel.FindByDelta(context.Background(), models.Stock("GOOG"), testExpiry, 0.15, models.RightCall, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.QuoteBatches(), "early exit should stop after the first batch")
}

func TestIsLiquid(t *testing.T) {
	c := callContract("GOOG", 160)

	assert.False(t, IsLiquid(nil, 0.10))
	assert.False(t, IsLiquid(&models.OptionQuote{Contract: c}, 0.10), "zero price")
	assert.False(t, IsLiquid(&models.OptionQuote{Contract: c, Ask: 1.05, Last: 1.0}, 0.10), "missing bid")
	assert.False(t, IsLiquid(&models.OptionQuote{Contract: c, Bid: 1.00, Last: 1.0}, 0.10), "missing ask")

	tight := liquidQuote(c, 0.15)
	assert.True(t, IsLiquid(&tight, 0.10))

	wide := models.OptionQuote{Contract: c, Bid: 0.50, Ask: 1.50, Last: 1.00}
	assert.False(t, IsLiquid(&wide, 0.10))
	assert.True(t, IsLiquid(&wide, 1.00))
}
