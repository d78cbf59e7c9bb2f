package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradeledger/backtest"
	"github.com/rustyeddy/tradeledger/strategies"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run ema-cross over a grid of fast/slow periods",
	Long: `Sweep runs one backtest per fast/slow pair in parallel, each with its
own engine, and prints a summary table. Runs are not journaled.

Example:
  trader sweep -c run.yaml --fasts 10,20,30 --slows 50,100 --jobs 4`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var (
	sweepFasts []int
	sweepSlows []int
	sweepJobs  int
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	f := sweepCmd.Flags()
	f.StringVarP(&btConfigPath, "config", "c", "", "config file (YAML or JSON)")
	f.IntSliceVar(&sweepFasts, "fasts", []int{10, 20}, "fast EMA periods")
	f.IntSliceVar(&sweepSlows, "slows", []int{50, 100}, "slow EMA periods")
	f.IntVar(&sweepJobs, "jobs", 0, "max concurrent runs (0 = unlimited)")
	addRunFlags(f)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	ec, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	opts, err := cfg.RunnerOptions()
	if err != nil {
		return err
	}

	var jobs []backtest.Job
	for _, fast := range sweepFasts {
		for _, slow := range sweepSlows {
			if fast >= slow {
				continue
			}
			c := *cfg
			c.Strategy.Name = "ema-cross"
			c.Strategy.Fast, c.Strategy.Slow = fast, slow
			jobs = append(jobs, backtest.Job{
				Name:     fmt.Sprintf("ema-cross %d/%d", fast, slow),
				Engine:   ec,
				Feed:     c.OpenFeed,
				Strategy: func() (strategies.Strategy, error) { return c.NewStrategy() },
				Options:  opts,
			})
		}
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no fast < slow pairs in the grid")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := backtest.Sweep(ctx, jobs, sweepJobs, slog.Default())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tBARS\tTRADES\tWIN%\tNET P/L")
	for i, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", jobs[i].Name, r.Bars, r.Trades, r.WinRate().StringFixed(2), r.NetPnL.StringFixed(2))
	}
	return tw.Flush()
}
