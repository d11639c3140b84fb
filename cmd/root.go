package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "forecastd",
	Short: "Prediction market trading simulator",
	Long: `forecastd simulates trading on prediction markets: an LMSR market
maker prices every option, a mock wallet funds the trades, and positions
and P&L are tracked across buys, sells and market resolution.

All trading is simulated. No real funds or exchanges are involved.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; environment variables still apply.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
