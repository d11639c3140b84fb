package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/forecastd/forecastd/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "List the demo market catalog",
	RunE:  runMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(marketsCmd)
}

func runMarkets(cmd *cobra.Command, args []string) error {
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

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Title", "Status", "Options", "Volume", "Participants")

	for _, m := range sim.registry.List() {
		options := make([]string, 0, len(m.Options))
		for _, opt := range m.Options {
			options = append(options, fmt.Sprintf("%s %.2f", opt.ID, opt.Price))
		}

		table.Append(
			m.ID,
			m.Title,
			string(m.Status),
			strings.Join(options, ", "),
			fmt.Sprintf("$%.0f", m.TotalVolume),
			fmt.Sprintf("%d", m.Participants),
		)
	}

	table.Render()

	return nil
}
