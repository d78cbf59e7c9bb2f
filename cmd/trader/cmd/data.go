package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradeledger/backtest"
	"github.com/rustyeddy/tradeledger/market"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Bar file utilities",
}

var dataConvertCmd = &cobra.Command{
	Use:   "convert <bars.csv> <bars.parquet>",
	Short: "Convert a CSV bar file to Parquet",
	Long: `Convert reads time,instrument,open,high,low,close[,volume] rows, checks
every bar and writes them in the Parquet layout the backtester reads.

Example:
  trader data convert eurusd-m1.csv eurusd-m1.parquet`,
	Args: cobra.ExactArgs(2),
	RunE: runDataConvert,
}

var dataSkipBad bool

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataConvertCmd)

	dataConvertCmd.Flags().BoolVar(&dataSkipBad, "skip-bad", false, "drop malformed bars instead of failing")
}

func runDataConvert(cmd *cobra.Command, args []string) error {
	feed, err := backtest.NewCSVBarFeed(args[0], time.Time{}, time.Time{})
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer feed.Close()

	var bars []market.Bar
	skipped := 0
	for {
		b, ok, err := feed.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := b.Validate(); err != nil {
			if !dataSkipBad {
				return err
			}
			skipped++
			continue
		}
		bars = append(bars, b)
	}

	if err := backtest.WriteParquetBars(args[1], bars); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d bars to %s", len(bars), args[1])
	if skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " (%d skipped)", skipped)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
