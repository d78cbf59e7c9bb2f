package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rustyeddy/tradeledger/backtest"
	"github.com/rustyeddy/tradeledger/config"
	"github.com/rustyeddy/tradeledger/journal"
	"github.com/rustyeddy/tradeledger/pkg/id"
	"github.com/rustyeddy/tradeledger/sim"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy over a bar file",
	Long: `Backtest replays OHLC bars through a strategy and the ledger engine.

Settings come from a config file (trader config init), and any flag given
on the command line overrides the file.

Supported strategies:
  - noop: Does nothing (baseline test)
  - open-once: Opens a single position on the first bar
  - ema-cross: EMA crossover with optional risk sizing
  - ema-cross-adx: ema-cross that only trades when ADX shows a trend

Example:
  trader backtest -c run.yaml
  trader backtest --data bars.csv --strategy ema-cross --fast 20 --slow 50`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var btConfigPath string

func init() {
	rootCmd.AddCommand(backtestCmd)

	f := backtestCmd.Flags()
	f.StringVarP(&btConfigPath, "config", "c", "", "config file (YAML or JSON)")
	addRunFlags(f)
}

// addRunFlags registers the flags that override config values. Defaults
// are display-only; only flags the user sets are applied.
func addRunFlags(f *pflag.FlagSet) {
	def := config.Default()

	f.String("data", def.Backtest.Data, "bar file (time,instrument,open,high,low,close[,volume])")
	f.String("format", "", "bar file format (csv, parquet; default by extension)")
	f.String("from", "", "first bar time (RFC3339)")
	f.String("to", "", "stop before this bar time (RFC3339)")
	f.Bool("close-end", def.Backtest.CloseEnd, "close everything at the end of the data")
	f.String("on-error", def.Backtest.OnError, "what a failed bar does (halt, skip)")

	f.Float64P("balance", "b", def.Account.Balance, "starting balance")
	f.Float64("leverage", def.Engine.Leverage, "leverage (0 = none)")
	f.String("mode", def.Engine.PositionMode, "position mode (netting, hedging)")
	f.String("tie-break", def.Engine.TieBreak, "SL/TP on the same bar (stop_first, take_first)")
	f.Int64("seed", def.Engine.Seed, "ID generator seed")

	f.StringP("strategy", "s", def.Strategy.Name, "strategy name (noop, open-once, ema-cross, ema-cross-adx)")
	f.StringP("instrument", "i", def.Strategy.Instrument, "strategy instrument")
	f.Float64P("quantity", "q", def.Strategy.Quantity, "order quantity")
	f.Int("fast", def.Strategy.Fast, "ema-cross: fast EMA period")
	f.Int("slow", def.Strategy.Slow, "ema-cross: slow EMA period")
	f.Float64("risk", def.Strategy.RiskPercent, "ema-cross: risk per trade (0.01 = 1%)")
	f.Float64("stop-distance", def.Strategy.StopDistance, "ema-cross: stop distance in price units")
	f.Float64("rr", def.Strategy.RR, "ema-cross: take profit as R multiple")
	f.Int("adx", def.Strategy.ADX, "ema-cross-adx: ADX period (default 14)")
	f.Float64("min-adx", def.Strategy.MinADX, "ema-cross-adx: minimum ADX to take a cross (default 25)")

	f.String("journal", def.Journal.Type, "journal type (csv, sqlite, none)")
	f.String("db", "./backtest.sqlite", "SQLite journal path")
	f.String("closes", def.Journal.ClosesFile, "CSV journal closes file")
	f.String("equity", def.Journal.EquityFile, "CSV journal equity file")
	f.String("parquet-out", "", "also export the close history as Parquet")
	f.String("org", "", "write an Org-mode run report here")
}

func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if btConfigPath != "" {
		loaded, err := config.LoadFromFile(btConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && f.Changed(name) {
			err = apply()
		}
	}
	str := func(name string, dst *string) { set(name, func() (e error) { *dst, e = f.GetString(name); return }) }
	flt := func(name string, dst *float64) { set(name, func() (e error) { *dst, e = f.GetFloat64(name); return }) }
	num := func(name string, dst *int) { set(name, func() (e error) { *dst, e = f.GetInt(name); return }) }

	str("data", &cfg.Backtest.Data)
	str("format", &cfg.Backtest.Format)
	str("from", &cfg.Backtest.From)
	str("to", &cfg.Backtest.To)
	set("close-end", func() (e error) { cfg.Backtest.CloseEnd, e = f.GetBool("close-end"); return })
	str("on-error", &cfg.Backtest.OnError)

	flt("balance", &cfg.Account.Balance)
	flt("leverage", &cfg.Engine.Leverage)
	str("mode", &cfg.Engine.PositionMode)
	str("tie-break", &cfg.Engine.TieBreak)
	set("seed", func() (e error) { cfg.Engine.Seed, e = f.GetInt64("seed"); return })

	str("strategy", &cfg.Strategy.Name)
	str("instrument", &cfg.Strategy.Instrument)
	flt("quantity", &cfg.Strategy.Quantity)
	num("fast", &cfg.Strategy.Fast)
	num("slow", &cfg.Strategy.Slow)
	flt("risk", &cfg.Strategy.RiskPercent)
	flt("stop-distance", &cfg.Strategy.StopDistance)
	flt("rr", &cfg.Strategy.RR)
	num("adx", &cfg.Strategy.ADX)
	flt("min-adx", &cfg.Strategy.MinADX)

	str("journal", &cfg.Journal.Type)
	str("db", &cfg.Journal.DBPath)
	str("closes", &cfg.Journal.ClosesFile)
	str("equity", &cfg.Journal.EquityFile)
	str("parquet-out", &cfg.Journal.ParquetPath)
	str("org", &cfg.Journal.OrgPath)
	if err != nil {
		return nil, err
	}

	// --db alone means a SQLite journal
	if f.Changed("db") && !f.Changed("journal") && btConfigPath == "" {
		cfg.Journal.Type = "sqlite"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := applyLogging(cmd, cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyLogging replaces the default logger with one built from the
// config's logging section. --log-level and --log-format still win.
func applyLogging(cmd *cobra.Command, lc config.LoggingConfig) error {
	f := cmd.Flags()
	if f.Changed("log-level") {
		lc.Level = logLevel
	}
	if f.Changed("log-format") {
		lc.Format = logFormat
	}
	log, err := lc.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(log)
	return nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	ec, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	engine, err := sim.NewEngine(ec)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	j, err := cfg.OpenJournal()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	// Seeded position IDs repeat between runs; the run ID keeps their
	// journal rows apart.
	runID := id.NewGenerator(time.Now().UnixNano()).New(time.Now())
	rec := journal.NewRecorder(j, runID)
	engine.SetListener(sim.Listeners{rec, sim.LogListener(slog.Default())})

	feed, err := cfg.OpenFeed()
	if err != nil {
		return fmt.Errorf("open data: %w", err)
	}
	strat, err := cfg.NewStrategy()
	if err != nil {
		feed.Close()
		return fmt.Errorf("strategy: %w", err)
	}
	opts, err := cfg.RunnerOptions()
	if err != nil {
		feed.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("backtest starting",
		"run", runID, "strategy", strat.Name(), "data", cfg.Backtest.Data, "journal", cfg.Journal.Type)

	r := &backtest.Runner{Engine: engine, Feed: feed, Strategy: strat, Options: opts}
	res, runErr := r.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		slog.Warn("backtest interrupted", "bars", res.Bars)
	}

	if err := rec.Err(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("journal: %w", err))
	}

	if path := cfg.Journal.ParquetPath; path != "" {
		rows := journal.Rows(append(engine.ClosedPositions(), engine.OpenPositions()...))
		for i := range rows {
			rows[i].RunID = runID
		}
		if err := journal.WriteParquet(path, rows); err != nil {
			runErr = errors.Join(runErr, err)
		} else {
			slog.Info("close history exported", "path", path, "rows", len(rows))
		}
	}

	if path := cfg.Journal.OrgPath; path != "" {
		run := res.Run(runID, cfg.Backtest.Data, cfg.Strategy.Instrument, ec)
		if err := run.WriteOrgFile(path); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	backtest.PrintResult(cmd.OutOrStdout(), res)
	fmt.Fprintf(cmd.OutOrStdout(), "Run ID:        %s\n", runID)
	return runErr
}
