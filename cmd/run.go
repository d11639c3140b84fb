package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forecastd/forecastd/internal/app"
	"github.com/forecastd/forecastd/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the trading simulator",
	Long: `Starts the simulator as a long-running service:
1. Seeds the demo market catalog
2. Connects the simulated wallet
3. Serves the trading API, the price stream, metrics and health probes

The portfolio is restored from storage when STORAGE_MODE is sqlite or
postgres, so positions survive restarts.`,
	RunE: runSimulator,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runSimulator(cmd *cobra.Command, args []string) error {
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

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	return application.Run()
}
