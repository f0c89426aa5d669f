package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))
	return dir
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultMode, cfg.Mode)
	assert.Equal(t, 10*time.Minute, cfg.Engine.CycleInterval)
	assert.Equal(t, "@hourly", cfg.Engine.TuneSchedule)
	assert.Equal(t, 30.0, cfg.Engine.VIXAlarmThreshold)
	assert.Equal(t, 40.0, cfg.Engine.VIXPanicThreshold)
	assert.False(t, cfg.Engine.UseCostModel)
	assert.True(t, cfg.Engine.TradingHoursOnly)

	assert.InDelta(t, 0.15, cfg.Strategy.CCDeltaTarget, 1e-9)
	assert.InDelta(t, 0.07, cfg.Strategy.PCSSellDelta, 1e-9)
	assert.Equal(t, 30.0, cfg.Strategy.PCSWidth)
	assert.Equal(t, 1, cfg.Strategy.RollDTEThreshold)

	require.NotEmpty(t, cfg.Stocks)
	assert.Equal(t, "GOOG", cfg.Stocks[0].Symbol)
	require.NotEmpty(t, cfg.Indexes)
	assert.Equal(t, "SPX", cfg.Indexes[0].Symbol)
	assert.Equal(t, "CBOE", cfg.Indexes[0].Exchange)
}

func TestLoadReadsFileAndOverridesDefaults(t *testing.T) {
	dir := writeConfig(t, `
mode = "aggressive"

[engine]
cycle_interval = "5m"
vix_alarm_threshold = 25.0

[strategy]
cc_delta_target = 0.25

[[stock_candidates]]
symbol = "NVDA"
min_shares = 200
`)
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "aggressive", cfg.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Engine.CycleInterval)
	assert.Equal(t, 25.0, cfg.Engine.VIXAlarmThreshold)
	assert.InDelta(t, 0.25, cfg.Strategy.CCDeltaTarget, 1e-9)
	// Untouched keys keep their defaults.
	assert.InDelta(t, 0.07, cfg.Strategy.PCSSellDelta, 1e-9)

	require.Len(t, cfg.Stocks, 1)
	assert.Equal(t, "NVDA", cfg.Stocks[0].Symbol)
	assert.Equal(t, 200, cfg.Stocks[0].MinShares)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("STRATEGY_MODE", "aggressive")
	t.Setenv("FINNHUB_API_KEY", "test-key")
	t.Setenv("OPTIONS_ENGINE_DB", "/tmp/override.db")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "aggressive", cfg.Mode)
	assert.Equal(t, "test-key", cfg.Credentials.FinnhubAPIKey)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := writeConfig(t, `
[engine]
vix_delta_scale = 1.5
`)
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestBaseParamsAppliesModeOverrides(t *testing.T) {
	dir := writeConfig(t, `
[modes.aggressive]
cc_delta_target = 0.30
pcs_width = 50.0
roll_dte_threshold = 2
`)
	cfg, err := Load(dir)
	require.NoError(t, err)

	income := cfg.BaseParams("income")
	assert.InDelta(t, 0.15, income.CCDeltaTarget, 1e-9)

	aggressive := cfg.BaseParams("aggressive")
	assert.InDelta(t, 0.30, aggressive.CCDeltaTarget, 1e-9)
	assert.Equal(t, 50.0, aggressive.PCSWidth)
	assert.Equal(t, 2, aggressive.RollDTEThreshold)
	// Keys the mode does not name fall through to the base section.
	assert.InDelta(t, 0.07, aggressive.PCSSellDelta, 1e-9)
}

func TestStrategyParamsValidate(t *testing.T) {
	valid := StrategyParams{
		CCDeltaTarget:      0.15,
		PCSSellDelta:       0.07,
		PCSWidth:           30,
		RollDeltaThreshold: 0.45,
		RollDTEThreshold:   1,
		MaxDailyDrawdown:   0.01,
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*StrategyParams)
	}{
		{"zero delta target", func(p *StrategyParams) { p.CCDeltaTarget = 0 }},
		{"delta target at one", func(p *StrategyParams) { p.CCDeltaTarget = 1 }},
		{"negative sell delta", func(p *StrategyParams) { p.PCSSellDelta = -0.07 }},
		{"zero width", func(p *StrategyParams) { p.PCSWidth = 0 }},
		{"zero drawdown", func(p *StrategyParams) { p.MaxDailyDrawdown = 0 }},
		{"drawdown above one", func(p *StrategyParams) { p.MaxDailyDrawdown = 1.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

type fakeOverrideStore struct {
	overrides map[string]float64
	err       error
}

func (f *fakeOverrideStore) LoadOverrides(ctx context.Context, mode string) (map[string]float64, error) {
	return f.overrides, f.err
}

func TestParamSourceReloadMergesOverrides(t *testing.T) {
	base := StrategyParams{
		CCDeltaTarget:      0.15,
		PCSSellDelta:       0.07,
		PCSWidth:           30,
		RollDeltaThreshold: 0.45,
		RollDTEThreshold:   1,
		MaxDailyDrawdown:   0.01,
	}
	store := &fakeOverrideStore{overrides: map[string]float64{
		ParamCCDeltaTarget:      0.12,
		ParamRollDeltaThreshold: 0.50,
	}}
	src := NewParamSource(base, "income", store)

	// Before the first reload the base set is effective.
	assert.InDelta(t, 0.15, src.Params().CCDeltaTarget, 1e-9)

	require.NoError(t, src.Reload(context.Background()))
	params := src.Params()
	assert.InDelta(t, 0.12, params.CCDeltaTarget, 1e-9)
	assert.InDelta(t, 0.50, params.RollDeltaThreshold, 1e-9)
	assert.InDelta(t, 0.07, params.PCSSellDelta, 1e-9)

	// Base stays pristine.
	assert.InDelta(t, 0.15, src.Base().CCDeltaTarget, 1e-9)
}

func TestParamSourceRejectsInvalidLearnedSet(t *testing.T) {
	base := StrategyParams{
		CCDeltaTarget:      0.15,
		PCSSellDelta:       0.07,
		PCSWidth:           30,
		RollDeltaThreshold: 0.45,
		RollDTEThreshold:   1,
		MaxDailyDrawdown:   0.01,
	}
	store := &fakeOverrideStore{overrides: map[string]float64{
		ParamCCDeltaTarget: 1.5, // out of range
	}}
	src := NewParamSource(base, "income", store)

	assert.Error(t, src.Reload(context.Background()))
	assert.InDelta(t, 0.15, src.Params().CCDeltaTarget, 1e-9, "previous set stays in force")
}

func TestParamSourceReloadPropagatesStoreError(t *testing.T) {
	store := &fakeOverrideStore{err: fmt.Errorf("db locked")}
	src := NewParamSource(StrategyParams{
		CCDeltaTarget:      0.15,
		PCSSellDelta:       0.07,
		PCSWidth:           30,
		RollDeltaThreshold: 0.45,
		RollDTEThreshold:   1,
		MaxDailyDrawdown:   0.01,
	}, "income", store)

	assert.Error(t, src.Reload(context.Background()))
}

func TestParamSourceWithoutStore(t *testing.T) {
	base := StrategyParams{
		CCDeltaTarget:      0.15,
		PCSSellDelta:       0.07,
		PCSWidth:           30,
		RollDeltaThreshold: 0.45,
		RollDTEThreshold:   1,
		MaxDailyDrawdown:   0.01,
	}
	src := NewParamSource(base, "income", nil)
	require.NoError(t, src.Reload(context.Background()))
	assert.Equal(t, base, src.Params())
}
