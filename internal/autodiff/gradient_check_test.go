package autodiff_test

import (
	"math"
	"testing"

	"github.com/born-ml/tape/internal/autodiff"
	"github.com/stretchr/testify/require"
)

// numericalGradient computes the partial derivative of f along coordinate i
// using central differences.
func numericalGradient(f func([]float64) float64, x []float64, i int, epsilon float64) float64 {
	xp := append([]float64(nil), x...)
	xm := append([]float64(nil), x...)
	xp[i] += epsilon
	xm[i] -= epsilon
	return (f(xp) - f(xm)) / (2 * epsilon)
}

// evaluate builds f on a fresh tape and returns its value.
func evaluate(f autodiff.Func, x []float64) float64 {
	tape := autodiff.New()
	return f(tape, tape.Vars(x...)).Value()
}

// TestNumericalGradient_Primitives checks every primitive against central differences.
func TestNumericalGradient_Primitives(t *testing.T) {
	tests := []struct {
		name string
		f    autodiff.Func
		x    []float64
	}{
		{"add", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Add(v[1]) }, []float64{1.3, -0.4}},
		{"sub", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Sub(v[1]) }, []float64{1.3, -0.4}},
		{"mul", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Mul(v[1]) }, []float64{1.3, -0.4}},
		{"div", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Div(v[1]) }, []float64{1.3, -0.4}},
		{"neg", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Neg() }, []float64{0.7}},
		{"add_scalar", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].AddScalar(2.5) }, []float64{0.7}},
		{"mul_scalar", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].MulScalar(-3) }, []float64{0.7}},
		{"pow_scalar", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].PowScalar(2.5) }, []float64{1.7}},
		{"pow", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Pow(v[1]) }, []float64{1.7, 0.8}},
		{"exp", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Exp() }, []float64{0.3}},
		{"log", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Log() }, []float64{2.2}},
		{"sqrt", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Sqrt() }, []float64{2.2}},
		{"sin", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Sin() }, []float64{0.9}},
		{"cos", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Cos() }, []float64{0.9}},
		{"tanh", func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var { return v[0].Tanh() }, []float64{0.9}},
		{"sum", func(t *autodiff.Tape, v []autodiff.Var) autodiff.Var { return t.Sum(v) }, []float64{0.1, 0.2, 0.3}},
		{"dot", func(t *autodiff.Tape, v []autodiff.Var) autodiff.Var {
			return t.Dot(v, []float64{2, -1, 0.5})
		}, []float64{0.1, 0.2, 0.3}},
		{"variance", func(t *autodiff.Tape, v []autodiff.Var) autodiff.Var { return t.Variance(v) }, []float64{0.1, 1.2, -0.3, 2}},
		{"composite", func(t *autodiff.Tape, v []autodiff.Var) autodiff.Var {
			// (x³ - 2x² + x) * exp(y) / sqrt(x + y)
			x, y := v[0], v[1]
			poly := x.PowScalar(3).Sub(x.PowScalar(2).MulScalar(2)).Add(x)
			return poly.Mul(y.Exp()).Div(x.Add(y).Sqrt())
		}, []float64{2, 0.5}},
		{"logistic", func(t *autodiff.Tape, v []autodiff.Var) autodiff.Var {
			// log(1 + exp(-(w*x + b)))
			w, b := v[0], v[1]
			z := w.MulScalar(1.5).Add(b)
			return z.Neg().Exp().AddScalar(1).Log()
		}, []float64{0.4, -0.2}},
	}

	const epsilon = 1e-5
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tape := autodiff.New()
			xs := tape.Vars(tt.x...)
			y := tt.f(tape, xs)

			grads, err := tape.Grad(y, xs...)
			require.NoError(t, err)

			f := func(x []float64) float64 { return evaluate(tt.f, x) }
			for i := range tt.x {
				numerical := numericalGradient(f, tt.x, i, epsilon)
				// Central differences are accurate to O(h²); leave room for rounding.
				tol := 1e-6 * math.Max(1, math.Abs(numerical))
				if math.Abs(grads[i]-numerical) > tol {
					t.Errorf("d/dx%d: autodiff %v, numerical %v (diff %g)",
						i, grads[i], numerical, grads[i]-numerical)
				}
			}
		})
	}
}

// TestGradient_Functional tests Gradient on a Rosenbrock function.
func TestGradient_Functional(t *testing.T) {
	rosenbrock := func(_ *autodiff.Tape, v []autodiff.Var) autodiff.Var {
		x, y := v[0], v[1]
		a := x.Neg().AddScalar(1).PowScalar(2)
		b := y.Sub(x.PowScalar(2)).PowScalar(2).MulScalar(100)
		return a.Add(b)
	}

	tape := autodiff.New()
	outer := tape.Var(7)
	before := tape.Len()

	fx, grad, err := tape.Gradient(rosenbrock, []float64{-1.2, 1})
	require.NoError(t, err)
	require.Equal(t, before, tape.Len(), "Gradient leaves the tape as it found it")
	require.NoError(t, outer.Err())

	// f = (1-x)² + 100(y-x²)²
	x, y := -1.2, 1.0
	wantF := (1-x)*(1-x) + 100*(y-x*x)*(y-x*x)
	wantDx := -2*(1-x) - 400*x*(y-x*x)
	wantDy := 200 * (y - x*x)

	require.InDelta(t, wantF, fx, 1e-12)
	require.InDelta(t, wantDx, grad[0], 1e-9)
	require.InDelta(t, wantDy, grad[1], 1e-9)
}

// TestGradNested_Scope tests scope-limited gradients.
func TestGradNested_Scope(t *testing.T) {
	tape := autodiff.New()
	outerX := tape.Var(2)
	outerY := outerX.Mul(outerX)
	_, err := tape.Grad(outerY, outerX)
	require.NoError(t, err)
	require.Equal(t, 4.0, outerX.Adj())

	err = tape.Nested(func() error {
		x := tape.Var(3)
		y := x.Mul(x).Mul(x)

		grads, err := tape.GradNested(y, x)
		require.NoError(t, err)
		require.Equal(t, []float64{27}, grads)

		_, err = tape.GradNested(y, outerX)
		require.ErrorIs(t, err, autodiff.ErrOutOfScope)
		_, err = tape.GradNested(outerY, x)
		require.ErrorIs(t, err, autodiff.ErrOutOfScope)

		// w reads outerX and outerY, so the backward step reaches outer nodes.
		z := tape.Var(5)
		w := outerX.MulScalar(10).Add(z.Mul(outerY))
		grads, err = tape.GradNested(w, z)
		require.NoError(t, err)
		require.Equal(t, []float64{4}, grads)
		return nil
	})
	require.NoError(t, err)

	// Outer adjoints survive the nested gradient.
	require.Equal(t, 4.0, outerX.Adj())
	require.Equal(t, 1.0, outerY.Adj())
}

// TestZeroAdjoints tests the explicit zeroing helpers.
func TestZeroAdjoints(t *testing.T) {
	tape := autodiff.New()
	x := tape.Var(2)
	y := x.Exp()
	require.NoError(t, tape.Backward(y))

	cp := tape.Open()
	z := x.MulScalar(3)
	_, err := tape.Grad(z, x)
	require.NoError(t, err)
	tape.ZeroAdjointsNested()
	require.Equal(t, 0.0, z.Adj())
	require.Equal(t, 3.0, x.Adj())
	require.NoError(t, tape.Close(cp))

	tape.ZeroAdjoints()
	require.Equal(t, 0.0, x.Adj())
	require.Equal(t, 0.0, y.Adj())
}
