package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradeledger/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the close journal",
	Long: `Query and display close records from a SQLite journal.

Every backtest writes its rows under a run ID (printed at the end of the
run). --run limits a query to one run; without it every run matches.

Subcommands:
  runs     - Run IDs in the journal
  position - Every close of one position
  closes   - Closes in a time range, or all of them
  equity   - Equity snapshots of one UTC day

Examples:
  trader journal runs
  trader journal position 01HQ3Z8Y4N1K8C6W7V0Q2R5T9X --run 01HQ3Z8Y4M...
  trader journal closes --day 2024-01-15
  trader journal closes --parquet out/closes.parquet
  trader journal equity --day 2024-01-15`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the run IDs in the journal",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalPositionCmd = &cobra.Command{
	Use:   "position <position-id>",
	Short: "Show every close of a position",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPosition,
}

var journalClosesCmd = &cobra.Command{
	Use:   "closes",
	Short: "List closes, optionally for one UTC day",
	Args:  cobra.NoArgs,
	RunE:  runJournalCloses,
}

var journalEquityCmd = &cobra.Command{
	Use:   "equity",
	Short: "List equity snapshots of one UTC day",
	Args:  cobra.NoArgs,
	RunE:  runJournalEquity,
}

var (
	journalDBPath  string
	journalRunID   string
	journalDay     string
	journalParquet string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalPositionCmd)
	journalCmd.AddCommand(journalClosesCmd)
	journalCmd.AddCommand(journalEquityCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./backtest.sqlite", "path to SQLite journal DB")
	journalCmd.PersistentFlags().StringVarP(&journalRunID, "run", "r", "", "only rows of this run")
	journalClosesCmd.Flags().StringVar(&journalDay, "day", "", "only closes on this day (YYYY-MM-DD, UTC)")
	journalClosesCmd.Flags().StringVar(&journalParquet, "parquet", "", "read closes from a Parquet export instead of the DB")
	journalEquityCmd.Flags().StringVar(&journalDay, "day", "", "day to list (YYYY-MM-DD, UTC)")
	_ = journalEquityCmd.MarkFlagRequired("day")
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runs, err := j.Runs()
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	for _, r := range runs {
		fmt.Fprintln(cmd.OutOrStdout(), r)
	}
	return nil
}

func runJournalPosition(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.PositionCloses(journalRunID, args[0])
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatClosesOrg(recs))
	return nil
}

func runJournalCloses(cmd *cobra.Command, args []string) error {
	var (
		start, end time.Time
		err        error
	)
	if journalDay != "" {
		if start, end, err = dayBounds(time.UTC, journalDay); err != nil {
			return fmt.Errorf("date: %w", err)
		}
	}

	var recs []journal.CloseRecord
	if journalParquet != "" {
		recs, err = parquetCloses(journalParquet, journalRunID, start, end)
	} else {
		recs, err = dbCloses(journalRunID, start, end)
	}
	if err != nil {
		return fmt.Errorf("query closes: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatClosesOrg(recs))
	return nil
}

func dbCloses(runID string, start, end time.Time) ([]journal.CloseRecord, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	if start.IsZero() {
		return j.ListCloses(runID)
	}
	return j.ListClosesBetween(runID, start, end)
}

// parquetCloses filters an exported close table the way the DB queries do.
func parquetCloses(path, runID string, start, end time.Time) ([]journal.CloseRecord, error) {
	all, err := journal.ReadParquet(path)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if runID != "" && r.RunID != runID {
			continue
		}
		if !start.IsZero() && (r.CloseTime.Before(start) || !r.CloseTime.Before(end)) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func runJournalEquity(cmd *cobra.Command, args []string) error {
	start, end, err := dayBounds(time.UTC, journalDay)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	snaps, err := j.ListEquityBetween(journalRunID, start, end)
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tBALANCE\tUNREALIZED\tEQUITY\tMARGIN\tFREE")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Time.UTC().Format(time.RFC3339),
			s.Balance.StringFixed(2), s.UnrealizedPnL.StringFixed(2), s.Equity.StringFixed(2),
			s.MarginUsed.StringFixed(2), s.FreeMargin.StringFixed(2))
	}
	return tw.Flush()
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
