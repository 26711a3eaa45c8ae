package cmd

import (
	"log/slog"

	"github.com/origins-network/sale-engine/internal/config"
	"github.com/origins-network/sale-engine/pkg/logger"
	"github.com/origins-network/sale-engine/pkg/logger/slogx"
	"github.com/spf13/cobra"
)

var cmd = &cobra.Command{
	Use:  "origins",
	Long: `Origins settlement engine: a deterministic simulation service for tiered token sales and locked-fund vesting`,
}

func init() {
	var configFile string

	// Add global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file, E.g. `./config.yaml`")
	flags.String("network", "mainnet", "network to derive wallet addresses on, E.g. `mainnet` or `testnet`")

	// Bind flags to configuration
	config.BindPFlag("network", flags.Lookup("network"))

	// Initialize configuration and logger on start command
	cobra.OnInitialize(func() {
		config := config.Parse(configFile)

		if err := logger.Init(config.Logger); err != nil {
			logger.Panic("Failed to initialize logger: %v", slogx.Error(err), slog.Any("config", config.Logger))
		}
	})
}

func Execute() {
	cmd.AddCommand(
		NewRunCommand(),
		NewVersionCommand(),
		NewMigrateCommand(),
		NewGenerateKeypairCommand(),
	)

	if err := cmd.Execute(); err != nil {
		logger.Panic("Failed to execute root command")
	}
}
