// Package background runs best-effort side effects (push registration,
// navigation resets, prefetches) off the caller's path and records how each
// one ended, so failures are logged and observable instead of discarded.
package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"prema-client/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxResults bounds how many finished results a runner keeps. Older ones
// are dropped first.
const MaxResults = 256

// Task is a best-effort unit of work.
type Task func(ctx context.Context) error

// Result records how a task ended.
type Result struct {
	Name     string
	Err      error
	Started  time.Time
	Finished time.Time
}

// OK reports whether the task succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Runner executes tasks concurrently and keeps their results.
type Runner struct {
	ctx     context.Context
	logger  zerolog.Logger
	wg      sync.WaitGroup
	mu      sync.Mutex
	results []Result
}

// NewRunner creates a runner. Tasks get a context derived from ctx with
// cancellation removed, so they outlive the request that spawned them.
func NewRunner(ctx context.Context, logger *zerolog.Logger) *Runner {
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	return &Runner{ctx: context.WithoutCancel(ctx), logger: l}
}

// Go starts fn in its own goroutine.
func (r *Runner) Go(name string, fn Task) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		res := Result{Name: name, Started: time.Now()}
		res.Err = r.run(fn)
		res.Finished = time.Now()

		if res.Err != nil {
			metrics.BackgroundFailure(name)
			r.logger.Warn().Err(res.Err).Str("task", name).Msg("Background task failed")
		} else {
			r.logger.Debug().Str("task", name).Dur("took", res.Finished.Sub(res.Started)).Msg("Background task done")
		}

		r.mu.Lock()
		r.results = append(r.results, res)
		if over := len(r.results) - MaxResults; over > 0 {
			r.results = append(r.results[:0], r.results[over:]...)
		}
		r.mu.Unlock()
	}()
}

func (r *Runner) run(fn Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(r.ctx)
}

// Wait blocks until every started task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Results returns a copy of the most recent finished task results in
// completion order.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

// Failures returns only the failed results.
func (r *Runner) Failures() []Result {
	var out []Result
	for _, res := range r.Results() {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Find returns the latest result recorded for name.
func (r *Runner) Find(name string) (Result, bool) {
	results := r.Results()
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Name == name {
			return results[i], true
		}
	}
	return Result{}, false
}
