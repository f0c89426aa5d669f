// Package tuner recomputes strategy parameters from historical trade
// statistics.
package tuner

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"options-engine/internal/config"
	"options-engine/internal/models"
	"options-engine/internal/store"
)

// MaxTargetDrift bounds how far the learned covered-call target may rise
// above the configured base, keeping the tuner away from high-delta,
// high-assignment-risk strikes.
const MaxTargetDrift = 0.05

// Tuner derives parameter overrides from executed-trade deltas.
type Tuner struct {
	store store.Store
	log   zerolog.Logger
}

// New creates a Tuner over the given trade log store.
func New(s store.Store, log zerolog.Logger) *Tuner {
	return &Tuner{store: s, log: log.With().Str("component", "tuner").Logger()}
}

// Tune computes parameter overrides for the mode from the mean executed
// delta per trade category and persists any non-empty result, merged into
// the mode's existing overrides. Categories with no recorded deltas leave
// their parameter untouched. The result takes effect on the next
// parameter reload, not retroactively.
func (t *Tuner) Tune(ctx context.Context, mode string, base config.StrategyParams) (map[string]float64, error) {
	tuned := make(map[string]float64)

	if mean, ok, err := t.meanDelta(ctx, models.CategoryCoveredCall); err != nil {
		return nil, err
	} else if ok {
		target := math.Min(mean, base.CCDeltaTarget+MaxTargetDrift)
		tuned[config.ParamCCDeltaTarget] = round3(target)
	}

	if mean, ok, err := t.meanDelta(ctx, models.CategoryRoll); err != nil {
		return nil, err
	} else if ok {
		tuned[config.ParamRollDeltaThreshold] = round3(math.Min(mean+0.05, 1.0))
	}

	if mean, ok, err := t.meanDelta(ctx, models.CategorySpread); err != nil {
		return nil, err
	} else if ok {
		tuned[config.ParamPCSSellDelta] = round3(mean)
	}

	if len(tuned) == 0 {
		return tuned, nil
	}

	if err := t.store.SaveOverrides(ctx, mode, tuned); err != nil {
		return nil, fmt.Errorf("persisting tuned parameters: %w", err)
	}
	t.log.Info().Str("mode", mode).Interface("params", tuned).Msg("Tuned parameters persisted")
	return tuned, nil
}

func (t *Tuner) meanDelta(ctx context.Context, category models.TradeCategory) (float64, bool, error) {
	deltas, err := t.store.TradeDeltas(ctx, category)
	if err != nil {
		return 0, false, fmt.Errorf("reading %s deltas: %w", category, err)
	}
	if len(deltas) == 0 {
		return 0, false, nil
	}
	mean, err := stats.Mean(deltas)
	if err != nil {
		return 0, false, fmt.Errorf("averaging %s deltas: %w", category, err)
	}
	return mean, true, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
