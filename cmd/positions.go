package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/forecastd/forecastd/pkg/config"
	"github.com/forecastd/forecastd/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Display persisted positions with P&L",
	Long: `Reads positions from storage and displays them with live prices
from the demo catalog. Active positions show mark-to-market P&L; settled
positions show realized P&L.

Requires STORAGE_MODE=sqlite or postgres; with console storage there is
nothing to read back.`,
	RunE: runPositions,
}

//nolint:gochecknoglobals // Cobra flags
var positionsActiveOnly bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().BoolVar(&positionsActiveOnly, "active-only", false, "Show only active positions")
}

func runPositions(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	sim, err := newSimulator(cfg, logger)
	if err != nil {
		return err
	}
	defer sim.close()

	if err := sim.restore(cmd.Context()); err != nil {
		return err
	}

	positions := sim.ledger.Positions()
	if len(positions) == 0 {
		fmt.Println("no positions")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Market", "Option", "Shares", "Avg price", "Invested", "P&L", "Status")

	for _, pos := range positions {
		if positionsActiveOnly && pos.Status != types.PositionStatusActive {
			continue
		}

		pnl := pos.RealizedPnL
		if pos.Status == types.PositionStatusActive {
			if price, ok := sim.registry.OptionPrice(pos.MarketID, pos.OptionID); ok {
				pnl = pos.MarkToMarket(price)
			}
		}

		table.Append(
			pos.MarketID,
			pos.OptionID,
			fmt.Sprintf("%.4f", pos.Shares),
			fmt.Sprintf("%.4f", pos.AvgPrice),
			fmt.Sprintf("$%.2f", pos.Amount),
			fmt.Sprintf("$%.2f", pnl),
			string(pos.Status),
		)
	}

	table.Render()

	fmt.Printf("total P&L: $%.2f\n", sim.ledger.TotalPnL(sim.registry.OptionPrice))

	return nil
}
