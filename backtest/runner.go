// Package backtest replays bar data through a strategy and a ledger
// engine.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rustyeddy/tradeledger/market"
	"github.com/rustyeddy/tradeledger/sim"
	"github.com/rustyeddy/tradeledger/strategies"
)

// ErrorPolicy says what the runner does when a bar fails.
type ErrorPolicy string

const (
	// Halt stops the run and returns the error.
	Halt ErrorPolicy = "halt"
	// Skip logs the failure and moves on to the next bar.
	Skip ErrorPolicy = "skip"
)

func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Halt, nil
	case Halt, Skip:
		return p, nil
	default:
		return "", fmt.Errorf("unknown on_error %q (want halt or skip)", s)
	}
}

// Options controls how the runner behaves.
type Options struct {
	// CloseEnd closes everything still open at the last prices once the
	// feed is exhausted, with CloseReason (default "end_of_run").
	CloseEnd    bool
	CloseReason string

	OnError ErrorPolicy

	// ResetOnGap resets a strategy implementing strategies.Resetter when
	// two consecutive bars are at least this far apart. 0 disables.
	ResetOnGap time.Duration
}

// Runner drives an engine forward using a feed and a strategy.
type Runner struct {
	Engine   *sim.Engine
	Feed     BarFeed
	Strategy strategies.Strategy
	Options  Options
	Logger   *slog.Logger
}

// Run executes the backtest loop. For every bar:
//  1. strategy preprocessing (may drop the bar)
//  2. indicator update, entry and exit signals
//  3. engine.Step
//  4. strategy position monitoring
//
// The context is checked between bars; on cancellation the partial
// result is returned together with ctx.Err().
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Engine == nil {
		return Result{}, errors.New("backtest: Engine is required")
	}
	if r.Feed == nil {
		return Result{}, errors.New("backtest: Feed is required")
	}
	if r.Strategy == nil {
		return Result{}, errors.New("backtest: Strategy is required")
	}
	defer r.Feed.Close()

	policy := r.Options.OnError
	if policy == "" {
		policy = Halt
	}
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	res := Result{
		Strategy:     r.Strategy.Name(),
		StartBalance: r.Engine.Config().InitialBalance,
	}
	var prev time.Time

	for {
		if err := ctx.Err(); err != nil {
			return r.finish(res), err
		}

		b, ok, err := r.Feed.Next()
		if err != nil {
			return r.finish(res), fmt.Errorf("backtest: feed: %w", err)
		}
		if !ok {
			break
		}

		if p, ok := r.Strategy.(strategies.Preprocessor); ok {
			var keep bool
			if b, keep = p.PreprocessData(b); !keep {
				continue
			}
		}

		if rs, ok := r.Strategy.(strategies.Resetter); ok && r.Options.ResetOnGap > 0 &&
			!prev.IsZero() && b.Time.Sub(prev) >= r.Options.ResetOnGap {
			log.Debug("data gap, resetting strategy", "from", prev, "to", b.Time)
			rs.Reset()
		}
		prev = b.Time

		if err := r.step(b); err != nil {
			if policy == Halt {
				return r.finish(res), fmt.Errorf("backtest: bar %s %s: %w", b.Instrument, b.Time.Format(time.RFC3339), err)
			}
			log.Warn("step failed, skipping",
				"instrument", b.Instrument, "time", b.Time, "err", err)
			res.Skipped++
			continue
		}

		res.Bars++
		if res.Start.IsZero() {
			res.Start = b.Time
		}
		res.End = b.Time
	}

	if r.Options.CloseEnd {
		reason := r.Options.CloseReason
		if reason == "" {
			reason = sim.ReasonEndOfRun
		}
		if _, err := r.Engine.CloseAll(reason); err != nil {
			return r.finish(res), fmt.Errorf("backtest: close at end: %w", err)
		}
	}

	return r.finish(res), nil
}

// step runs one bar. Signal errors don't stop the engine from seeing
// the bar; everything that failed comes back joined.
func (r *Runner) step(b market.Bar) error {
	s := r.Strategy
	s.InitializeIndicators(b)

	entries, entryErr := s.IdentifyEntrySignals(b, r.Engine)
	exits, exitErr := s.IdentifyExitSignals(b, r.Engine)
	stepErr := r.Engine.Step(b, entries, exits)

	var monErr error
	if m, ok := s.(strategies.Monitor); ok && b.Validate() == nil {
		monErr = m.MonitorPositions(b, r.Engine)
	}
	return errors.Join(entryErr, exitErr, stepErr, monErr)
}

func (r *Runner) finish(res Result) Result {
	res.tally(r.Engine)
	return res
}
