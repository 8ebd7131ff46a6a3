// Package parallel runs independent differentiation tasks on worker goroutines.
//
// A Tape is confined to one goroutine, so every worker owns its own tape,
// created on the worker's first task. Each task runs inside a checkpoint on
// that tape and only the values it returns survive, which keeps memory
// bounded no matter how many tasks a worker processes.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/born-ml/tape/internal/autodiff"
	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool            // Whether parallel execution is enabled.
	NumWorkers   int             // Number of worker goroutines to use.
	MinChunkSize int             // Minimum task count before fanning out.
	Tape         autodiff.Config // Arena sizing for each worker's tape.

	// Observe, if set, is called by a worker after each of its tasks with a
	// snapshot of its tape. It runs on the worker goroutine.
	Observe func(worker int, s autodiff.Stats)
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4,
		Tape:         autodiff.DefaultConfig(),
	}
}

// workers returns how many goroutines to start for n tasks.
func (c Config) workers(n int) int {
	if !c.Enabled || n < c.MinChunkSize || c.NumWorkers <= 1 {
		return 1
	}
	return min(c.NumWorkers, n)
}

// Map calls f(tape, i) for every i in [0, n) and returns the results in order.
//
// The first error cancels the remaining work and is returned. Cancelling ctx
// stops workers from picking up new tasks.
func Map[T any](ctx context.Context, n int, cfg Config, f func(tape *autodiff.Tape, i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	if n == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	var next atomic.Int64

	for w := 0; w < cfg.workers(n); w++ {
		g.Go(func() error {
			var tape *autodiff.Tape
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}
				if tape == nil {
					tape = autodiff.New(autodiff.WithConfig(cfg.Tape))
				}

				err := tape.Nested(func() error {
					r, err := f(tape, i)
					results[i] = r
					return err
				})
				if err != nil {
					return fmt.Errorf("task %d: %w", i, err)
				}
				if cfg.Observe != nil {
					cfg.Observe(w, tape.Stats())
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Result is the value and gradient of a function at one point.
type Result struct {
	Value    float64
	Gradient []float64
}

// Gradients evaluates f and its gradient at every point.
func Gradients(ctx context.Context, f autodiff.Func, points [][]float64, cfg Config) ([]Result, error) {
	return Map(ctx, len(points), cfg, func(tape *autodiff.Tape, i int) (Result, error) {
		fx, grad, err := tape.Gradient(f, points[i])
		if err != nil {
			return Result{}, err
		}
		return Result{Value: fx, Gradient: grad}, nil
	})
}
