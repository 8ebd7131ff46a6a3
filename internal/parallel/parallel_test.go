package parallel

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/born-ml/tape/internal/autodiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(_ *autodiff.Tape, xs []autodiff.Var) autodiff.Var {
	return xs[0].Mul(xs[0]).Add(xs[1].Sin())
}

func TestGradients(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.NumWorkers = 4

	points := make([][]float64, 100)
	for i := range points {
		points[i] = []float64{float64(i) / 10, float64(i) / 7}
	}

	results, err := Gradients(context.Background(), square, points, cfg)
	require.NoError(t, err)
	require.Len(t, results, len(points))

	for i, r := range results {
		x, y := points[i][0], points[i][1]
		assert.InDelta(t, x*x+math.Sin(y), r.Value, 1e-12)
		assert.InDelta(t, 2*x, r.Gradient[0], 1e-12)
		assert.InDelta(t, math.Cos(y), r.Gradient[1], 1e-12)
	}
}

func TestMap_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var tapes sync.Map
	results, err := Map(context.Background(), 10, cfg, func(tape *autodiff.Tape, i int) (int, error) {
		tapes.Store(tape, true)
		return i * i, nil
	})
	require.NoError(t, err)

	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
	count := 0
	tapes.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 1, count, "sequential execution reuses a single tape")
}

func TestMap_SmallChunk(t *testing.T) {
	// Test that small work units fall back to one worker.
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.NumWorkers = 8
	cfg.MinChunkSize = 100

	assert.Equal(t, 1, cfg.workers(10))
	assert.Equal(t, 8, cfg.workers(100))
	assert.Equal(t, 3, Config{Enabled: true, NumWorkers: 8}.workers(3))
}

func TestMap_Empty(t *testing.T) {
	results, err := Map(context.Background(), 0, DefaultConfig(), func(*autodiff.Tape, int) (int, error) {
		t.Fatal("f must not be called")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestMap_TapeStaysBounded tests that tasks do not accumulate nodes on a worker's tape.
func TestMap_TapeStaysBounded(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 2, MinChunkSize: 1}

	var maxNodes atomic.Int64
	cfg.Observe = func(_ int, s autodiff.Stats) {
		if int64(s.Nodes) > maxNodes.Load() {
			maxNodes.Store(int64(s.Nodes))
		}
		assert.Equal(t, 0, s.Depth)
	}

	_, err := Map(context.Background(), 50, cfg, func(tape *autodiff.Tape, i int) (float64, error) {
		x := tape.Var(float64(i))
		for k := 0; k < 100; k++ {
			x = x.AddScalar(1)
		}
		return x.Value(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), maxNodes.Load())
}

func TestMap_Error(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}
	boom := errors.New("boom")

	_, err := Map(context.Background(), 30, cfg, func(_ *autodiff.Tape, i int) (int, error) {
		if i == 17 {
			return 0, boom
		}
		return i, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "task 17")
}

func TestMap_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	_, err := Map(ctx, 100, DefaultConfig(), func(*autodiff.Tape, int) (int, error) {
		calls.Add(1)
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), calls.Load())
}
