package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"options-engine/internal/tuner"
)

func newTuneCmd(app *App) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Recompute learned parameters from the trade log",
		Long: `Computes the mean executed delta per trade category and persists the
derived parameter overrides for the mode. The running engine picks them up
on its next scheduled reload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable, cannot tune")
			}
			if mode == "" {
				mode = app.Config.Mode
			}

			t := tuner.New(app.Store, app.Logger)
			tuned, err := t.Tune(cmd.Context(), mode, app.Config.BaseParams(mode))
			if err != nil {
				return err
			}

			out, _ := json.MarshalIndent(tuned, "", "  ")
			fmt.Printf("Tuned parameters: %s\n", out)

			learned, err := app.Store.LoadOverrides(cmd.Context(), mode)
			if err != nil {
				return err
			}
			out, _ = json.MarshalIndent(learned, "", "  ")
			fmt.Printf("Current learned config: %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "strategy mode (default from config)")
	return cmd
}
