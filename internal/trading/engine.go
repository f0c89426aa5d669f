package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"options-engine/internal/broker"
	"options-engine/internal/config"
	"options-engine/internal/earnings"
	apperrors "options-engine/internal/errors"
	"options-engine/internal/logging"
	"options-engine/internal/models"
	"options-engine/internal/selector"
	"options-engine/internal/store"
	"options-engine/internal/tuner"
	"options-engine/pkg/utils"
)

// vixUnderlying is the market-wide volatility gauge refreshed each cycle.
var vixUnderlying = models.Index("VIX", models.ExchangeCBOE)

// Engine composes the selector, lifecycle logic, risk monitor and tuner
// into the per-cycle decision loop. One logical worker: no two cycles
// overlap, and all market queries and order submissions within a cycle run
// sequentially.
type Engine struct {
	gw       broker.Gateway
	sel      *selector.Selector
	store    store.Store
	earnings *earnings.Gate
	params   *config.ParamSource
	tuner    *tuner.Tuner
	cfg      *config.Config
	log      zerolog.Logger

	risk      *RiskMonitor
	forceExit bool // write-once-true; never reset within a session
	vix       *float64
	cron      *cron.Cron
	now       func() time.Time
}

// NewEngine wires an engine from its collaborators.
func NewEngine(gw broker.Gateway, st store.Store, gate *earnings.Gate, params *config.ParamSource, cfg *config.Config, log zerolog.Logger) *Engine {
	return &Engine{
		gw:       gw,
		sel:      selector.New(gw, log),
		store:    st,
		earnings: gate,
		params:   params,
		tuner:    tuner.New(st, log),
		cfg:      cfg,
		log:      log.With().Str("component", "engine").Logger(),
		now:      time.Now,
	}
}

// Start connects the gateway and captures the session baseline NAV. A
// connection failure here is fatal: the caller is expected to terminate.
func (e *Engine) Start(ctx context.Context) error {
	if err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		return e.gw.Connect(ctx)
	}); err != nil {
		return fmt.Errorf("connecting gateway: %w", err)
	}

	nav, err := e.gw.AccountValue(ctx, broker.AccountTagNetLiquidation)
	if err != nil {
		return fmt.Errorf("reading initial NAV: %w", err)
	}
	monitor, err := NewRiskMonitor(nav)
	if err != nil {
		return fmt.Errorf("initializing risk monitor: %w", err)
	}
	e.risk = monitor

	if err := e.params.Reload(ctx); err != nil {
		e.log.Warn().Err(err).Msg("Initial parameter reload failed, using base parameters")
	}

	e.cron = cron.New()
	if _, err := e.cron.AddFunc(e.cfg.Engine.TuneSchedule, func() { e.runTuning(context.Background()) }); err != nil {
		return fmt.Errorf("scheduling tuner: %w", err)
	}
	e.cron.Start()

	e.log.Info().
		Float64("baseline_nav", nav).
		Str("mode", e.params.Mode()).
		Msg("Session started")
	return nil
}

// Run starts the engine and loops until the context is cancelled.
// Recoverable cycle errors are logged and followed by a shorter retry
// delay; cancellation is honored only at the sleep boundary.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	defer e.Stop()

	for cycle := 1; ; cycle++ {
		log := logging.WithCycle(e.log, cycle)
		delay := e.cfg.Engine.CycleInterval
		if err := e.RunCycle(ctx); err != nil {
			log.Error().Err(err).Msg("Cycle failed")
			delay = e.cfg.Engine.RetryDelay
		} else {
			log.Debug().Msg("Cycle complete")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Stop stops background jobs and closes the gateway.
func (e *Engine) Stop() {
	if e.cron != nil {
		<-e.cron.Stop().Done()
	}
	if err := e.gw.Close(); err != nil {
		e.log.Warn().Err(err).Msg("Gateway close failed")
	}
}

// RunCycle executes one decision cycle: volatility refresh, risk check,
// covered-call evaluation, index spread evaluation.
func (e *Engine) RunCycle(ctx context.Context) error {
	e.refreshVolatility(ctx)

	if e.cfg.Engine.TradingHoursOnly && !utils.IsTradingHours(e.now()) {
		e.log.Info().Msg("Outside trading hours, idling")
		return nil
	}

	if err := e.checkRisk(ctx); err != nil {
		return err
	}
	if err := e.manageCoveredCalls(ctx); err != nil {
		return err
	}
	return e.manageIndexSpreads(ctx)
}

// refreshVolatility updates the cycle's VIX snapshot. A missing or
// non-positive reading clears the snapshot, which suppresses all
// volatility-based adjustments for the cycle.
func (e *Engine) refreshVolatility(ctx context.Context) {
	level, err := e.gw.UnderlyingPrice(ctx, vixUnderlying)
	if err != nil || level <= 0 {
		if err != nil {
			e.log.Warn().Err(err).Msg("VIX refresh failed")
		}
		e.vix = nil
		return
	}
	e.vix = &level
	e.log.Info().Float64("vix", level).Msg("Volatility snapshot")

	if err := e.store.SaveSnapshot(ctx, &models.MarketSnapshot{Symbol: "VIX", Value: level}); err != nil {
		e.log.Warn().Err(err).Msg("Snapshot write failed")
	}
}

// checkRisk evaluates the drawdown circuit breaker. Once tripped, the
// force-exit flag stays set for the rest of the session and every
// subsequent cycle re-runs the liquidation procedure for whatever is
// still open.
func (e *Engine) checkRisk(ctx context.Context) error {
	nav, err := e.gw.AccountValue(ctx, broker.AccountTagNetLiquidation)
	if err != nil {
		return fmt.Errorf("reading NAV: %w", err)
	}

	params := e.params.Params()
	if e.risk.Check(nav, params.MaxDailyDrawdown) == ActionEmergencyExit {
		e.log.Error().Err(apperrors.ErrCircuitBreaker).
			Float64("drawdown", e.risk.Drawdown(nav)).
			Float64("limit", params.MaxDailyDrawdown).
			Msg("Daily drawdown limit breached, liquidating")
		e.forceExit = true
		EmergencyExit(ctx, e.gw, e.store, e.log)
	}
	return nil
}

// runTuning recomputes learned parameters from the trade log and reloads
// the effective set. Scheduled via cron; failures are logged and the
// previous parameters stay in force.
func (e *Engine) runTuning(ctx context.Context) {
	tuned, err := e.tuner.Tune(ctx, e.params.Mode(), e.params.Base())
	if err != nil {
		e.log.Error().Err(err).Msg("Parameter tuning failed")
		return
	}
	if len(tuned) > 0 {
		e.log.Info().Interface("params", tuned).Msg("New tuned parameters")
	}
	if err := e.params.Reload(ctx); err != nil {
		e.log.Error().Err(err).Msg("Parameter reload failed")
	}
}

// effectiveCallDelta returns the covered-call target delta for new opens,
// reduced proportionally when the volatility snapshot exceeds the alarm
// threshold. Roll targeting always uses the base value.
func (e *Engine) effectiveCallDelta(params config.StrategyParams) float64 {
	target := params.CCDeltaTarget
	if e.vix != nil && *e.vix > e.cfg.Engine.VIXAlarmThreshold {
		target *= e.cfg.Engine.VIXDeltaScale
		e.log.Info().
			Float64("vix", *e.vix).
			Float64("effective_delta", target).
			Msg("High volatility, lowering target delta")
	}
	return target
}

// logTrade appends to the trade log, swallowing failures: telemetry must
// never block a trading decision.
func (e *Engine) logTrade(ctx context.Context, record *models.TradeRecord) {
	if err := e.store.AppendTrade(ctx, record); err != nil {
		e.log.Warn().Err(err).Msg("Trade log write failed")
	}
}
