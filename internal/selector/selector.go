// Package selector implements delta-targeted option contract selection.
package selector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"options-engine/internal/broker"
	apperrors "options-engine/internal/errors"
	"options-engine/internal/models"
)

// Options tune a single selection run.
type Options struct {
	// PriceBand bounds candidate strikes as fractions of the spot price.
	PriceBand [2]float64
	// BatchSize is how many contracts are quoted per gateway request.
	BatchSize int
	// EarlyExitDiff stops issuing further batches once a candidate is
	// already this close to the target delta.
	EarlyExitDiff float64
	// SpreadThreshold is the maximum tolerated (ask-bid)/price ratio.
	SpreadThreshold float64
	// MaxStrikes caps the candidate list to bound query volume.
	MaxStrikes int
	// BatchDelay is the pause between quote batches, respecting provider
	// rate limits.
	BatchDelay time.Duration
}

// DefaultOptions returns the standard selection options.
func DefaultOptions() Options {
	return Options{
		PriceBand:       [2]float64{0.85, 1.15},
		BatchSize:       50,
		EarlyExitDiff:   0.02,
		SpreadThreshold: 0.10,
		MaxStrikes:      120,
		BatchDelay:      100 * time.Millisecond,
	}
}

func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.PriceBand[0] <= 0 || o.PriceBand[1] <= o.PriceBand[0] {
		o.PriceBand = def.PriceBand
	}
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.MaxStrikes <= 0 {
		o.MaxStrikes = def.MaxStrikes
	}
	if o.SpreadThreshold <= 0 {
		o.SpreadThreshold = def.SpreadThreshold
	}
	return o
}

// Selector searches option chains for the contract closest to a target
// delta, subject to price-band and liquidity constraints.
type Selector struct {
	gw  broker.Gateway
	log zerolog.Logger
}

// New creates a Selector backed by the given gateway.
func New(gw broker.Gateway, log zerolog.Logger) *Selector {
	return &Selector{gw: gw, log: log.With().Str("component", "selector").Logger()}
}

type scored struct {
	diff  float64
	quote models.OptionQuote
}

// FindByDelta returns the liquid contract whose absolute delta is closest
// to targetDelta among in-band out-of-the-money strikes for the given
// expiry. Liquidity is a hard filter applied in delta-diff order: an
// illiquid contract is never returned, however close its delta.
func (s *Selector) FindByDelta(ctx context.Context, underlying models.Underlying, expiry time.Time, targetDelta float64, right models.Right, opts Options) (*models.OptionContract, error) {
	opts = opts.normalize()
	log := s.log.With().
		Str("symbol", underlying.Symbol).
		Str("expiry", expiry.Format(models.ExpiryFormat)).
		Str("right", string(right)).
		Float64("target_delta", targetDelta).
		Logger()

	chains, err := s.gw.OptionChains(ctx, underlying)
	if err != nil {
		return nil, apperrors.NewGatewayError("option chains", err)
	}
	var chain *models.OptionChain
	for i := range chains {
		if chains[i].Exchange == underlying.Exchange {
			chain = &chains[i]
			break
		}
	}
	if chain == nil {
		log.Warn().Msg("No option chain for exchange")
		return nil, fmt.Errorf("%s %s: %w", underlying.Symbol, underlying.Exchange, apperrors.ErrNoChain)
	}
	if !chain.HasExpiration(expiry) {
		log.Warn().Msg("Expiry not listed in chain")
		return nil, fmt.Errorf("%s: %w", expiry.Format(models.ExpiryFormat), apperrors.ErrNoExpiry)
	}

	spot, err := s.gw.UnderlyingPrice(ctx, underlying)
	if err != nil {
		return nil, apperrors.NewGatewayError("underlying price", err)
	}
	if spot <= 0 {
		log.Warn().Float64("price", spot).Msg("No valid underlying price")
		return nil, fmt.Errorf("%s: %w", underlying.Symbol, apperrors.ErrStalePrice)
	}

	strikes := candidateStrikes(chain.Strikes, spot, opts.PriceBand, right, opts.MaxStrikes)
	if len(strikes) == 0 {
		log.Warn().Float64("spot", spot).Msg("No strikes within price band")
		return nil, fmt.Errorf("%s: %w", underlying.Symbol, apperrors.ErrNoStrikes)
	}

	contracts := make([]models.OptionContract, 0, len(strikes))
	for _, strike := range strikes {
		contracts = append(contracts, models.OptionContract{
			Symbol:   underlying.Symbol,
			Expiry:   expiry,
			Strike:   strike,
			Right:    right,
			Exchange: underlying.Exchange,
		})
	}
	qualified, err := s.gw.Qualify(ctx, contracts)
	if err != nil {
		return nil, apperrors.NewGatewayError("qualify", err)
	}

	candidates, err := s.scoreInBatches(ctx, qualified, targetDelta, opts)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		log.Warn().Msg("No quote yielded a usable delta")
		return nil, fmt.Errorf("%s: %w", underlying.Symbol, apperrors.ErrNoUsableDelta)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].diff < candidates[j].diff })

	for _, c := range candidates {
		q := c.quote
		price := q.Price()
		if price <= 0 || q.Bid <= 0 || q.Ask <= 0 {
			continue
		}
		spreadRatio := (q.Ask - q.Bid) / price
		if spreadRatio > opts.SpreadThreshold {
			log.Debug().
				Str("contract", q.Contract.LocalSymbol()).
				Float64("spread_ratio", spreadRatio).
				Msg("Skipping illiquid candidate")
			continue
		}
		log.Info().
			Str("contract", q.Contract.LocalSymbol()).
			Float64("delta_diff", c.diff).
			Msg("Selected contract")
		contract := q.Contract
		return &contract, nil
	}

	log.Warn().Msg("All candidates failed liquidity check")
	return nil, fmt.Errorf("%s: %w", underlying.Symbol, apperrors.ErrNoLiquidCandidate)
}

// scoreInBatches quotes the qualified contracts in sequential batches,
// scoring each usable delta against the target. Batches stop early once the
// best diff so far is below EarlyExitDiff.
func (s *Selector) scoreInBatches(ctx context.Context, qualified []models.OptionContract, targetDelta float64, opts Options) ([]scored, error) {
	var candidates []scored
	best := -1.0

	for i := 0; i < len(qualified); i += opts.BatchSize {
		end := i + opts.BatchSize
		if end > len(qualified) {
			end = len(qualified)
		}
		quotes, err := s.gw.Quotes(ctx, qualified[i:end])
		if err != nil {
			return nil, apperrors.NewGatewayError("quotes", err)
		}
		for _, q := range quotes {
			delta, ok := q.Delta()
			if !ok {
				continue
			}
			diff := abs(abs(delta) - targetDelta)
			candidates = append(candidates, scored{diff: diff, quote: q})
			if best < 0 || diff < best {
				best = diff
			}
		}
		if best >= 0 && best < opts.EarlyExitDiff {
			break
		}
		if end < len(qualified) && opts.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.BatchDelay):
			}
		}
	}
	return candidates, nil
}

// candidateStrikes filters strikes to the in-band out-of-the-money set,
// ordered nearest to the spot price first, capped at maxStrikes. For calls
// that is ascending strikes strictly above spot; for puts descending
// strikes strictly below.
func candidateStrikes(strikes []float64, spot float64, band [2]float64, right models.Right, maxStrikes int) []float64 {
	lower := spot * band[0]
	upper := spot * band[1]

	var out []float64
	for _, strike := range strikes {
		if strike < lower || strike > upper {
			continue
		}
		if right == models.RightCall && strike > spot {
			out = append(out, strike)
		} else if right == models.RightPut && strike < spot {
			out = append(out, strike)
		}
	}
	if right == models.RightCall {
		sort.Float64s(out)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	}
	if len(out) > maxStrikes {
		out = out[:maxStrikes]
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
