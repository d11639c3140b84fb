package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/forecastd/forecastd/internal/engine"
	"github.com/forecastd/forecastd/pkg/config"
	"github.com/forecastd/forecastd/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Execute a single simulated trade",
	Long: `Executes one simulated trade against the demo market catalog and
prints the settled transaction.

Examples:
  # Buy $100 of YES on the bitcoin market
  forecastd trade --market btc-120k-2026 --option yes --amount 100

  # Sell 50 shares
  forecastd trade --market btc-120k-2026 --option yes --side sell --shares 50`,
	RunE: runTrade,
}

//nolint:gochecknoglobals // Cobra flags
var (
	tradeMarket string
	tradeOption string
	tradeSide   string
	tradeAmount float64
	tradeShares float64
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.Flags().StringVar(&tradeMarket, "market", "", "Market ID (required)")
	tradeCmd.Flags().StringVar(&tradeOption, "option", "", "Option ID (required)")
	tradeCmd.Flags().StringVar(&tradeSide, "side", "buy", "Trade side: buy or sell")
	tradeCmd.Flags().Float64Var(&tradeAmount, "amount", 0, "USD amount to spend (buy)")
	tradeCmd.Flags().Float64Var(&tradeShares, "shares", 0, "Shares to liquidate (sell)")
	_ = tradeCmd.MarkFlagRequired("market")
	_ = tradeCmd.MarkFlagRequired("option")
}

func runTrade(cmd *cobra.Command, args []string) error {
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

	if _, err := sim.wallet.Connect(cmd.Context()); err != nil {
		return fmt.Errorf("connect wallet: %w", err)
	}

	tx, err := sim.executor.ExecuteTrade(cmd.Context(), &engine.TradeRequest{
		MarketID: tradeMarket,
		OptionID: tradeOption,
		Side:     types.Side(tradeSide),
		Amount:   tradeAmount,
		Shares:   tradeShares,
	})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	table.Append("Transaction", tx.ID)
	table.Append("Market", tx.MarketID)
	table.Append("Option", tx.OptionID)
	table.Append("Side", string(tx.Side))
	table.Append("Amount", fmt.Sprintf("$%.2f", tx.Amount))
	table.Append("Shares", fmt.Sprintf("%.4f", tx.Shares))
	table.Append("Price", fmt.Sprintf("%.4f", tx.Price))
	table.Append("Fee", fmt.Sprintf("$%.2f", tx.Fee))
	table.Append("Status", string(tx.Status))
	table.Append("Balance", fmt.Sprintf("$%.2f", sim.wallet.Balance()))
	table.Render()

	return nil
}
