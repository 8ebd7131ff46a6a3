// Package gradcheck verifies analytic gradients recorded on a tape against
// central finite differences.
package gradcheck

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/tape/internal/autodiff"
	"gonum.org/v1/gonum/diff/fd"
)

// ErrMismatch is returned when an analytic partial derivative disagrees with
// its finite-difference estimate.
var ErrMismatch = errors.New("gradcheck: gradient mismatch")

// Settings controls the finite-difference estimate and the accepted error.
type Settings struct {
	Step   float64 // finite-difference step
	AbsTol float64 // accepted absolute error
	RelTol float64 // accepted error relative to the numeric estimate
}

// DefaultSettings suits functions of moderate curvature around unit scale.
func DefaultSettings() Settings {
	return Settings{
		Step:   1e-5,
		AbsTol: 1e-7,
		RelTol: 1e-6,
	}
}

// Result holds both gradients and the largest disagreement.
type Result struct {
	Value    float64
	Analytic []float64
	Numeric  []float64
	MaxError float64 // largest |analytic - numeric|
	Worst    int     // coordinate of MaxError
}

// Check compares the gradient of f at x computed by reverse mode on tape with
// a central-difference estimate. Every evaluation runs inside a checkpoint,
// so the tape is left as it was found.
func Check(tape *autodiff.Tape, f autodiff.Func, x []float64, s Settings) (Result, error) {
	fx, analytic, err := tape.Gradient(f, x)
	if err != nil {
		return Result{}, fmt.Errorf("gradcheck: %w", err)
	}

	var evalErr error
	eval := func(p []float64) float64 {
		var v float64
		err := tape.Nested(func() error {
			y := f(tape, tape.Vars(p...))
			if err := y.Err(); err != nil {
				return err
			}
			v = y.Value()
			return nil
		})
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return v
	}

	// The tape is single-goroutine, so evaluations must not run concurrently.
	numeric := fd.Gradient(nil, eval, x, &fd.Settings{
		Formula: fd.Central,
		Step:    s.Step,
	})
	if evalErr != nil {
		return Result{}, fmt.Errorf("gradcheck: evaluate: %w", evalErr)
	}

	res := Result{Value: fx, Analytic: analytic, Numeric: numeric}
	bad := -1
	for i := range analytic {
		diff := math.Abs(analytic[i] - numeric[i])
		if diff > res.MaxError || math.IsNaN(diff) {
			res.MaxError = diff
			res.Worst = i
		}
		if bad < 0 && !(diff <= s.AbsTol+s.RelTol*math.Abs(numeric[i])) {
			bad = i
		}
	}
	if bad >= 0 {
		return res, fmt.Errorf("%w: coordinate %d: analytic %g, numeric %g",
			ErrMismatch, bad, analytic[bad], numeric[bad])
	}
	return res, nil
}
