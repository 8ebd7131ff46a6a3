package autodiff

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Var creates an independent variable. Leaves go on the non-chaining
// sequence: they have no operands to propagate into.
func (t *Tape) Var(x float64) Var {
	return t.push(node{val: x, op: OpLeaf, a: noOperand, b: noOperand})
}

// Vars creates one independent variable per value.
func (t *Tape) Vars(xs ...float64) []Var {
	vs := make([]Var, len(xs))
	for i, x := range xs {
		vs[i] = t.Var(x)
	}
	return vs
}

// Unary records a node with value val and one operand x whose partial
// derivative d(val)/dx is dx. It is the building block for functions whose
// derivative the caller computes in closed form.
func (t *Tape) Unary(val float64, x Var, dx float64) Var {
	t.mustNode(x)
	return t.push(node{val: val, op: OpUnary, a: x.id, b: noOperand, c: dx})
}

// Binary records a node with value val, operands a and b, and partials da and db.
func (t *Tape) Binary(val float64, a, b Var, da, db float64) Var {
	t.mustNode(a)
	t.mustNode(b)
	return t.push(node{val: val, op: OpBinary, a: a.id, b: b.id, c: da, d: db})
}

// Precomputed records a node with value val over any number of operands,
// each with its precomputed partial derivative. With no operands the node is
// a constant.
func (t *Tape) Precomputed(val float64, operands []Var, partials []float64) Var {
	if len(operands) != len(partials) {
		panic(fmt.Sprintf("autodiff: precomputed: %d operands but %d partials", len(operands), len(partials)))
	}
	for _, v := range operands {
		t.mustNode(v)
	}
	edges := t.allocEdges(len(operands))
	for i, v := range operands {
		edges[i] = edge{operand: v.id, partial: partials[i]}
	}
	return t.push(node{val: val, op: OpPartials, a: noOperand, b: noOperand, edges: edges})
}

func (t *Tape) unary(op Op, val float64, x Var, c float64) Var {
	t.mustNode(x)
	return t.push(node{val: val, op: op, a: x.id, b: noOperand, c: c})
}

func (t *Tape) binary(op Op, val float64, a, b Var) Var {
	return t.push(node{val: val, op: op, a: a.id, b: b.id})
}

// Add returns a + b.
func (t *Tape) Add(a, b Var) Var {
	return t.binary(OpAdd, t.mustNode(a).val+t.mustNode(b).val, a, b)
}

// Sub returns a - b.
func (t *Tape) Sub(a, b Var) Var {
	return t.binary(OpSub, t.mustNode(a).val-t.mustNode(b).val, a, b)
}

// Mul returns a * b.
func (t *Tape) Mul(a, b Var) Var {
	return t.binary(OpMul, t.mustNode(a).val*t.mustNode(b).val, a, b)
}

// Div returns a / b.
func (t *Tape) Div(a, b Var) Var {
	return t.binary(OpDiv, t.mustNode(a).val/t.mustNode(b).val, a, b)
}

// Pow returns a^b.
func (t *Tape) Pow(a, b Var) Var {
	return t.binary(OpPow, math.Pow(t.mustNode(a).val, t.mustNode(b).val), a, b)
}

// Neg returns -x.
func (t *Tape) Neg(x Var) Var {
	return t.unary(OpNeg, -t.mustNode(x).val, x, 0)
}

// AddScalar returns x + c.
func (t *Tape) AddScalar(x Var, c float64) Var {
	return t.unary(OpAddScalar, t.mustNode(x).val+c, x, c)
}

// MulScalar returns x * c.
func (t *Tape) MulScalar(x Var, c float64) Var {
	return t.unary(OpMulScalar, t.mustNode(x).val*c, x, c)
}

// PowScalar returns x^c.
func (t *Tape) PowScalar(x Var, c float64) Var {
	return t.unary(OpPowScalar, math.Pow(t.mustNode(x).val, c), x, c)
}

// Exp returns e^x.
func (t *Tape) Exp(x Var) Var {
	return t.unary(OpExp, math.Exp(t.mustNode(x).val), x, 0)
}

// Log returns the natural logarithm of x.
func (t *Tape) Log(x Var) Var {
	return t.unary(OpLog, math.Log(t.mustNode(x).val), x, 0)
}

// Sqrt returns the square root of x.
func (t *Tape) Sqrt(x Var) Var {
	return t.unary(OpSqrt, math.Sqrt(t.mustNode(x).val), x, 0)
}

// Sin returns sin(x).
func (t *Tape) Sin(x Var) Var {
	return t.unary(OpSin, math.Sin(t.mustNode(x).val), x, 0)
}

// Cos returns cos(x).
func (t *Tape) Cos(x Var) Var {
	return t.unary(OpCos, math.Cos(t.mustNode(x).val), x, 0)
}

// Tanh returns tanh(x).
func (t *Tape) Tanh(x Var) Var {
	return t.unary(OpTanh, math.Tanh(t.mustNode(x).val), x, 0)
}

// values collects the forward values of xs.
func (t *Tape) values(xs []Var) []float64 {
	vals := make([]float64, len(xs))
	for i, x := range xs {
		vals[i] = t.mustNode(x).val
	}
	return vals
}

// Sum returns the sum of xs as a single n-ary node. The sum of nothing is
// the constant 0.
func (t *Tape) Sum(xs []Var) Var {
	vals := t.values(xs)
	edges := t.allocEdges(len(xs))
	for i, x := range xs {
		edges[i] = edge{operand: x.id, partial: 1}
	}
	return t.push(node{val: floats.Sum(vals), op: OpSum, a: noOperand, b: noOperand, edges: edges})
}

// Dot returns the weighted sum of xs with constant weights ws.
func (t *Tape) Dot(xs []Var, ws []float64) Var {
	if len(xs) != len(ws) {
		panic(fmt.Sprintf("autodiff: dot: %d variables but %d weights", len(xs), len(ws)))
	}
	return t.Precomputed(floats.Dot(t.values(xs), ws), xs, ws)
}

// Variance returns the sample variance of xs (denominator n-1).
//
//	d(var)/dx_i = 2 (x_i - mean) / (n-1)
//
// A single element has variance 0, recorded as a constant. Variance panics
// on an empty slice.
func (t *Tape) Variance(xs []Var) Var {
	switch len(xs) {
	case 0:
		panic("autodiff: variance: empty input")
	case 1:
		t.mustNode(xs[0])
		return t.Precomputed(0, nil, nil)
	}

	vals := t.values(xs)
	mean := stat.Mean(vals, nil)
	partials := make([]float64, len(vals))
	denom := float64(len(vals) - 1)
	for i, v := range vals {
		partials[i] = 2 * (v - mean) / denom
	}
	return t.Precomputed(stat.Variance(vals, nil), xs, partials)
}
