package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/forecastd/forecastd/internal/engine"
	"github.com/forecastd/forecastd/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Preview a trade without executing it",
	Long: `Quotes a trade against the LMSR cost curve: the exact shares a
budget buys (or the proceeds of a sale) and the resulting option price.

Examples:
  forecastd quote --market btc-120k-2026 --option yes --amount 100
  forecastd quote --market btc-120k-2026 --option yes --side sell --shares 50`,
	RunE: runQuote,
}

//nolint:gochecknoglobals // Cobra flags
var (
	quoteMarket string
	quoteOption string
	quoteSide   string
	quoteAmount float64
	quoteShares float64
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().StringVar(&quoteMarket, "market", "", "Market ID (required)")
	quoteCmd.Flags().StringVar(&quoteOption, "option", "", "Option ID (required)")
	quoteCmd.Flags().StringVar(&quoteSide, "side", "buy", "Trade side: buy or sell")
	quoteCmd.Flags().Float64Var(&quoteAmount, "amount", 0, "USD budget (buy)")
	quoteCmd.Flags().Float64Var(&quoteShares, "shares", 0, "Shares to liquidate (sell)")
	_ = quoteCmd.MarkFlagRequired("market")
	_ = quoteCmd.MarkFlagRequired("option")
}

func runQuote(cmd *cobra.Command, args []string) error {
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

	var quote *engine.Quote
	if quoteSide == "sell" {
		quote, err = sim.executor.QuoteSell(quoteMarket, quoteOption, quoteShares)
	} else {
		quote, err = sim.executor.QuoteBuy(quoteMarket, quoteOption, quoteAmount)
	}
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	table.Append("Market", quote.MarketID)
	table.Append("Option", quote.OptionID)
	table.Append("Side", string(quote.Side))
	table.Append("Amount", fmt.Sprintf("$%.2f", quote.Amount))
	table.Append("Shares", fmt.Sprintf("%.4f", quote.Shares))
	table.Append("Fee", fmt.Sprintf("$%.2f", quote.Fee))
	table.Append("Total", fmt.Sprintf("$%.2f", quote.Total))
	table.Append("Price before", fmt.Sprintf("%.4f", quote.PriceBefore))
	table.Append("Price after", fmt.Sprintf("%.4f", quote.PriceAfter))
	table.Render()

	return nil
}
