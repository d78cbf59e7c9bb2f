package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradeledger/sim"
	"github.com/rustyeddy/tradeledger/strategies"
)

// Job is one run of a sweep. Every job gets its own engine, feed and
// strategy so runs share no state.
type Job struct {
	Name     string
	Engine   sim.Config
	Feed     func() (BarFeed, error)
	Strategy func() (strategies.Strategy, error)
	Options  Options
	// Listener, when set, is attached to the job's engine.
	Listener sim.Listener
}

// Sweep runs jobs concurrently, at most limit at a time (limit <= 0
// means no limit). Results come back in job order. The first failure
// cancels the jobs that haven't finished.
func Sweep(ctx context.Context, jobs []Job, limit int, log *slog.Logger) ([]Result, error) {
	if log == nil {
		log = slog.Default()
	}
	results := make([]Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			res, err := runJob(ctx, job, log.With("job", job.Name))
			if err != nil {
				return fmt.Errorf("sweep %s: %w", job.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func runJob(ctx context.Context, job Job, log *slog.Logger) (Result, error) {
	eng, err := sim.NewEngine(job.Engine)
	if err != nil {
		return Result{}, err
	}
	if job.Listener != nil {
		eng.SetListener(job.Listener)
	}
	feed, err := job.Feed()
	if err != nil {
		return Result{}, err
	}
	strat, err := job.Strategy()
	if err != nil {
		feed.Close()
		return Result{}, err
	}
	r := &Runner{Engine: eng, Feed: feed, Strategy: strat, Options: job.Options, Logger: log}
	return r.Run(ctx)
}
