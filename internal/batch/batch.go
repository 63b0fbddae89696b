// Package batch runs one job per input file on a bounded pool of
// goroutines. Each job owns its own collection; jobs share nothing.
package batch

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/arbor/pkg/logger"
)

// Config configures a Runner.
type Config struct {
	// Workers bounds concurrent jobs. 0 means runtime.NumCPU().
	Workers int
	// FailFast cancels the remaining jobs after the first failure.
	FailFast bool
}

// Result is the outcome of one job.
type Result[T any] struct {
	Input    string
	Value    T
	Err      error
	Duration time.Duration
}

// Runner runs jobs over inputs.
type Runner struct {
	workers  int
	failFast bool
	logger   *zap.Logger

	completed atomic.Int64
	failed    atomic.Int64
}

// NewRunner creates a runner. A nil logger uses the global logger.
func NewRunner(config Config, log *zap.Logger) *Runner {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Get()
	}
	return &Runner{
		workers:  config.Workers,
		failFast: config.FailFast,
		logger:   log.Named("batch"),
	}
}

// Workers returns the concurrency bound.
func (r *Runner) Workers() int {
	return r.workers
}

// Stats returns the number of jobs completed and failed so far.
func (r *Runner) Stats() (completed, failed int64) {
	return r.completed.Load(), r.failed.Load()
}

// Run calls job once per input and returns the results in input order,
// with every job error combined into the returned error. With FailFast,
// jobs that had not started when a job failed are skipped and report the
// context error.
func Run[T any](ctx context.Context, r *Runner, inputs []string, job func(ctx context.Context, input string) (T, error)) ([]Result[T], error) {
	results := make([]Result[T], len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	jobCtx := ctx
	if r.failFast {
		jobCtx = gctx
	}

	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			res := &results[i]
			res.Input = input
			if err := jobCtx.Err(); err != nil {
				res.Err = err
				return nil
			}

			start := time.Now()
			ctx := logger.ContextWith(jobCtx, logger.FileKey, input)
			res.Value, res.Err = job(ctx, input)
			res.Duration = time.Since(start)

			if res.Err != nil {
				r.failed.Add(1)
				r.logger.Warn("job failed",
					zap.String("input", input),
					zap.Duration("duration", res.Duration),
					zap.Error(res.Err))
				if r.failFast {
					return res.Err
				}
				return nil
			}
			r.completed.Add(1)
			r.logger.Debug("job completed",
				zap.String("input", input),
				zap.Duration("duration", res.Duration))
			return nil
		})
	}
	_ = g.Wait()

	var err error
	for i := range results {
		err = multierr.Append(err, results[i].Err)
	}
	return results, err
}
