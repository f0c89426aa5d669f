package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"options-engine/internal/models"
	"options-engine/internal/store"
)

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the trade log",
	}
	cmd.AddCommand(newJournalListCmd(app))
	cmd.AddCommand(newJournalExportCmd(app))
	return cmd
}

func newJournalListCmd(app *App) *cobra.Command {
	var symbol, category string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			trades, err := queryTrades(app, cmd, symbol, category, limit)
			if err != nil {
				return err
			}
			for _, t := range trades {
				delta := "-"
				if t.Delta != nil {
					delta = fmt.Sprintf("%.3f", *t.Delta)
				}
				fmt.Printf("%s  %-12s %-6s %-6s qty=%-4g delta=%-6s %s\n",
					t.Timestamp.Format(time.RFC3339), t.Category, t.Symbol, t.Action, t.Quantity, delta, t.Notes)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().StringVar(&category, "category", "", "filter by trade category")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of trades")
	return cmd
}

func newJournalExportCmd(app *App) *cobra.Command {
	var symbol, category, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the trade log as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			trades, err := queryTrades(app, cmd, symbol, category, 0)
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			defer f.Close()

			if err := gocsv.MarshalFile(&trades, f); err != nil {
				return fmt.Errorf("writing csv: %w", err)
			}
			fmt.Printf("Exported %d trades to %s\n", len(trades), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().StringVar(&category, "category", "", "filter by trade category")
	cmd.Flags().StringVar(&outPath, "out", "trades.csv", "output file path")
	return cmd
}

func queryTrades(app *App, cmd *cobra.Command, symbol, category string, limit int) ([]models.TradeRecord, error) {
	if app.Store == nil {
		return nil, fmt.Errorf("store unavailable")
	}
	return app.Store.Trades(cmd.Context(), store.TradeFilter{
		Symbol:   symbol,
		Category: models.TradeCategory(category),
		Limit:    limit,
	})
}
