package config

import (
	"context"
	"fmt"
	"sync"
)

// Override parameter names. These are the keys the tuner persists and the
// mode sections accept.
const (
	ParamCCDeltaTarget      = "cc_delta_target"
	ParamPCSSellDelta       = "pcs_sell_delta"
	ParamPCSWidth           = "pcs_width"
	ParamRollDeltaThreshold = "roll_delta_threshold"
	ParamRollDTEThreshold   = "roll_dte_threshold"
	ParamMaxDailyDrawdown   = "max_daily_drawdown"
)

// StrategyParams is the tunable parameter set for one strategy mode.
type StrategyParams struct {
	// CCDeltaTarget is the target delta for new covered-call opens.
	CCDeltaTarget float64 `mapstructure:"cc_delta_target"`
	// PCSSellDelta is the target delta for the credit-spread short leg.
	PCSSellDelta float64 `mapstructure:"pcs_sell_delta"`
	// PCSWidth is the strike distance between spread legs, in dollars.
	PCSWidth float64 `mapstructure:"pcs_width"`
	// RollDeltaThreshold triggers a roll when the held delta exceeds it.
	RollDeltaThreshold float64 `mapstructure:"roll_delta_threshold"`
	// RollDTEThreshold triggers a roll when days-to-expiry drops below it.
	RollDTEThreshold int `mapstructure:"roll_dte_threshold"`
	// MaxDailyDrawdown is the tolerated intraday drawdown fraction.
	MaxDailyDrawdown float64 `mapstructure:"max_daily_drawdown"`
}

// Validate enforces the parameter invariants: deltas in (0,1), width
// positive, drawdown fraction in (0,1].
func (p StrategyParams) Validate() error {
	for name, d := range map[string]float64{
		ParamCCDeltaTarget:      p.CCDeltaTarget,
		ParamPCSSellDelta:       p.PCSSellDelta,
		ParamRollDeltaThreshold: p.RollDeltaThreshold,
	} {
		if d <= 0 || d >= 1 {
			return fmt.Errorf("%s must be in (0,1), got %g", name, d)
		}
	}
	if p.PCSWidth <= 0 {
		return fmt.Errorf("%s must be positive, got %g", ParamPCSWidth, p.PCSWidth)
	}
	if p.MaxDailyDrawdown <= 0 || p.MaxDailyDrawdown > 1 {
		return fmt.Errorf("%s must be in (0,1], got %g", ParamMaxDailyDrawdown, p.MaxDailyDrawdown)
	}
	return nil
}

func (p StrategyParams) withOverrides(overrides map[string]float64) StrategyParams {
	for name, value := range overrides {
		switch name {
		case ParamCCDeltaTarget:
			p.CCDeltaTarget = value
		case ParamPCSSellDelta:
			p.PCSSellDelta = value
		case ParamPCSWidth:
			p.PCSWidth = value
		case ParamRollDeltaThreshold:
			p.RollDeltaThreshold = value
		case ParamRollDTEThreshold:
			p.RollDTEThreshold = int(value)
		case ParamMaxDailyDrawdown:
			p.MaxDailyDrawdown = value
		}
	}
	return p
}

// OverrideStore is the read side of learned-parameter persistence.
type OverrideStore interface {
	LoadOverrides(ctx context.Context, mode string) (map[string]float64, error)
}

// ParamSource provides the currently effective strategy parameters.
// Reload replaces the set wholesale, so readers always observe either the
// old or the new complete set.
type ParamSource struct {
	mu      sync.RWMutex
	base    StrategyParams
	mode    string
	store   OverrideStore
	current StrategyParams
}

// NewParamSource builds a source over the given base parameters and
// learned-override store. The store may be nil, in which case only the
// base parameters apply.
func NewParamSource(base StrategyParams, mode string, store OverrideStore) *ParamSource {
	return &ParamSource{base: base, mode: mode, store: store, current: base}
}

// Params returns a snapshot of the effective parameters.
func (s *ParamSource) Params() StrategyParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Base returns the configured base parameters, before learned overrides.
func (s *ParamSource) Base() StrategyParams {
	return s.base
}

// Mode returns the strategy mode this source serves.
func (s *ParamSource) Mode() string {
	return s.mode
}

// Reload merges persisted learned overrides over the base parameters and
// swaps the effective set. An invalid merged set is rejected and the
// previous set kept.
func (s *ParamSource) Reload(ctx context.Context) error {
	merged := s.base
	if s.store != nil {
		overrides, err := s.store.LoadOverrides(ctx, s.mode)
		if err != nil {
			return fmt.Errorf("loading overrides for mode %s: %w", s.mode, err)
		}
		merged = merged.withOverrides(overrides)
	}
	if err := merged.Validate(); err != nil {
		return fmt.Errorf("rejecting learned parameters: %w", err)
	}
	s.mu.Lock()
	s.current = merged
	s.mu.Unlock()
	return nil
}
