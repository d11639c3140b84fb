package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forecastd/forecastd/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a market and settle positions",
	Long: `Resolves a market with the given winning option. Every persisted
position in the market settles winner-takes-all: winning shares pay out
$1 each, losing positions realize their full stake as a loss.

Example:
  forecastd resolve --market btc-120k-2026 --winner yes`,
	RunE: runResolve,
}

//nolint:gochecknoglobals // Cobra flags
var (
	resolveMarket string
	resolveWinner string
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&resolveMarket, "market", "", "Market ID (required)")
	resolveCmd.Flags().StringVar(&resolveWinner, "winner", "", "Winning option ID (required)")
	_ = resolveCmd.MarkFlagRequired("market")
	_ = resolveCmd.MarkFlagRequired("winner")
}

func runResolve(cmd *cobra.Command, args []string) error {
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

	balanceBefore := sim.wallet.Balance()

	m, err := sim.executor.Settle(resolveMarket, resolveWinner)
	if err != nil {
		return err
	}

	payout := sim.wallet.Balance() - balanceBefore

	fmt.Printf("market %s resolved: winner %s\n", m.ID, m.WinnerOptionID)
	fmt.Printf("payout: $%.2f\n", payout)

	return nil
}
