package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"options-engine/internal/config"
)

func newParamsCmd(app *App) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show the effective strategy parameters",
		Long: `Prints the parameter set a run in the given mode would use: built-in
defaults, the mode's configured overrides, and persisted learned values
merged in that order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode == "" {
				mode = app.Config.Mode
			}

			source := config.NewParamSource(app.Config.BaseParams(mode), mode, app.Store)
			if app.Store != nil {
				if err := source.Reload(cmd.Context()); err != nil {
					return err
				}
			}

			params := source.Params()
			out, err := json.MarshalIndent(map[string]interface{}{
				"mode":                 mode,
				"cc_delta_target":      params.CCDeltaTarget,
				"pcs_sell_delta":       params.PCSSellDelta,
				"pcs_width":            params.PCSWidth,
				"roll_delta_threshold": params.RollDeltaThreshold,
				"roll_dte_threshold":   params.RollDTEThreshold,
				"max_daily_drawdown":   params.MaxDailyDrawdown,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "strategy mode (default from config)")
	return cmd
}
