package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"options-engine/internal/broker"
	"options-engine/internal/config"
	"options-engine/internal/earnings"
	"options-engine/internal/trading"
)

func newRunCmd(app *App) *cobra.Command {
	var mode string
	var paper bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the decision loop",
		Long: `Runs the engine until interrupted: each cycle refreshes the volatility
snapshot, checks the drawdown circuit breaker, and evaluates covered-call
and credit-spread opportunities. Parameters are re-tuned and reloaded on a
schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable, cannot run")
			}
			if mode == "" {
				mode = app.Config.Mode
			}

			var gw broker.Gateway
			if paper {
				gw = broker.NewPaperGateway()
			} else {
				// A live gateway adapter is wired here when one is
				// configured; until then only paper mode is runnable.
				return fmt.Errorf("no live gateway configured, use --paper")
			}

			gate := earnings.New(app.Store, app.Config.Credentials.FinnhubAPIKey,
				app.Config.Engine.EarningsCacheTTL, app.Logger)
			params := config.NewParamSource(app.Config.BaseParams(mode), mode, app.Store)
			engine := trading.NewEngine(gw, app.Store, gate, params, app.Config, app.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err := engine.Run(ctx)
			if err == context.Canceled {
				app.Logger.Info().Msg("Stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "strategy mode (default from config)")
	cmd.Flags().BoolVar(&paper, "paper", false, "run against the simulated paper gateway")
	return cmd
}
