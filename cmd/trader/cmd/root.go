package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradeledger/config"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Order/position ledger and bar-driven backtester",
	Long: `Trader replays OHLC bars through a strategy and an order/position ledger.

It provides tools for:
  - Backtesting strategies against CSV or Parquet bar files
  - Journaling every close to CSV or SQLite, with Parquet export
  - Querying the journal as Org-mode blocks
  - Generating and validating run configurations`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log, err := config.LoggingConfig{Level: logLevel, Format: logFormat}.NewLogger(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		slog.SetDefault(log)
		return nil
	},
}

var (
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}
