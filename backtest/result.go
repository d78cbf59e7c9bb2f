package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/journal"
	"github.com/rustyeddy/tradeledger/sim"
)

// Result is a lightweight summary of a backtest run.
type Result struct {
	Strategy string

	Start   time.Time
	End     time.Time
	Bars    int
	Skipped int

	// Trades counts fully closed positions; Wins and Losses split them by
	// the sign of their realized PnL.
	Trades int
	Wins   int
	Losses int
	Open   int

	StartBalance decimal.Decimal
	Balance      decimal.Decimal
	Equity       decimal.Decimal
	NetPnL       decimal.Decimal
}

func (r *Result) tally(e *sim.Engine) {
	r.Trades, r.Wins, r.Losses = 0, 0, 0
	for _, p := range e.ClosedPositions() {
		r.Trades++
		switch p.RealizedPnL.Sign() {
		case 1:
			r.Wins++
		case -1:
			r.Losses++
		}
	}
	r.Open = len(e.OpenPositions())
	acct := e.Account()
	r.Balance = acct.Balance
	r.Equity = acct.Equity
	r.NetPnL = acct.Balance.Sub(r.StartBalance)
}

// WinRate is wins over trades, in percent.
func (r Result) WinRate() decimal.Decimal {
	if r.Trades == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(r.Wins)).Div(decimal.NewFromInt(int64(r.Trades))).Mul(decimal.NewFromInt(100))
}

// Run converts the result into a journal run report.
func (r Result) Run(runID, dataset, instrument string, cfg sim.Config) journal.Run {
	return journal.Run{
		RunID:        runID,
		Created:      time.Now().UTC(),
		Dataset:      dataset,
		Instrument:   instrument,
		Strategy:     r.Strategy,
		Mode:         cfg.Mode.String(),
		TieBreak:     cfg.TieBreak.String(),
		Start:        r.Start,
		End:          r.End,
		Bars:         r.Bars,
		Trades:       r.Trades,
		Wins:         r.Wins,
		Losses:       r.Losses,
		StartBalance: r.StartBalance,
		EndBalance:   r.Balance,
		NetPnL:       r.NetPnL,
	}
}

func PrintResult(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", fmtTime(r.Start))
	fmt.Fprintf(w, "End:           %s\n", fmtTime(r.End))
	fmt.Fprintf(w, "Bars:          %d\n", r.Bars)
	if r.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:       %d\n", r.Skipped)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %s%%\n", r.WinRate().StringFixed(2))
	if r.Open > 0 {
		fmt.Fprintf(w, "Still Open:    %d\n", r.Open)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %s\n", r.StartBalance.StringFixed(2))
	fmt.Fprintf(w, "End Balance:   %s\n", r.Balance.StringFixed(2))
	fmt.Fprintf(w, "Equity:        %s\n", r.Equity.StringFixed(2))
	fmt.Fprintf(w, "Net P/L:       %s\n", r.NetPnL.StringFixed(2))
	fmt.Fprintln(w)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
