package autodiff

import (
	"math"
	"strconv"
)

// Op identifies the kind of a tape node. The set is closed: the backward
// step of every kind lives in the switch in chain.
type Op uint8

// Node kinds. In the derivative notes r is the node's value and g its adjoint.
const (
	OpLeaf      Op = iota // independent variable or constant, no operands
	OpAdd                 // r = a + b: da += g, db += g
	OpSub                 // r = a - b: da += g, db -= g
	OpMul                 // r = a * b: da += g*b, db += g*a
	OpDiv                 // r = a / b: da += g/b, db -= g*r/b
	OpNeg                 // r = -a: da -= g
	OpAddScalar           // r = a + c: da += g
	OpMulScalar           // r = a * c: da += g*c
	OpPowScalar           // r = a^c: da += g*c*a^(c-1)
	OpPow                 // r = a^b: da += g*b*a^(b-1), db += g*r*log(a)
	OpExp                 // r = exp(a): da += g*r
	OpLog                 // r = log(a): da += g/a
	OpSqrt                // r = sqrt(a): da += g/(2r)
	OpSin                 // r = sin(a): da += g*cos(a)
	OpCos                 // r = cos(a): da -= g*sin(a)
	OpTanh                // r = tanh(a): da += g*(1-r^2)
	OpUnary               // caller-supplied partial: da += g*c
	OpBinary              // caller-supplied partials: da += g*c, db += g*d
	OpSum                 // r = sum(edges): each operand += g
	OpPartials            // precomputed n-ary partials: each operand += g*partial
)

var opNames = [...]string{
	OpLeaf:      "leaf",
	OpAdd:       "add",
	OpSub:       "sub",
	OpMul:       "mul",
	OpDiv:       "div",
	OpNeg:       "neg",
	OpAddScalar: "add_scalar",
	OpMulScalar: "mul_scalar",
	OpPowScalar: "pow_scalar",
	OpPow:       "pow",
	OpExp:       "exp",
	OpLog:       "log",
	OpSqrt:      "sqrt",
	OpSin:       "sin",
	OpCos:       "cos",
	OpTanh:      "tanh",
	OpUnary:     "unary",
	OpBinary:    "binary",
	OpSum:       "sum",
	OpPartials:  "partials",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// noOperand marks an unused operand slot.
const noOperand int32 = -1

// edge is one operand of an n-ary node together with its partial derivative.
type edge struct {
	operand int32
	partial float64
}

// node is one operation record. Nodes are stored by value in the tape's
// arena and refer to their operands by index.
type node struct {
	val   float64
	adj   float64
	c, d  float64 // kind-specific coefficients
	edges []edge  // operands of OpSum and OpPartials, allocated in the edge arena
	epoch uint64  // tape epoch at creation, see Var
	a, b  int32   // operand indices or noOperand
	op    Op
}

// chaining reports whether the node has operands to propagate into.
func (n *node) chaining() bool {
	return n.a != noOperand || len(n.edges) > 0
}

// chain runs the backward step of n: it adds n's adjoint, weighted by the
// local partial derivatives, into the adjoints of its operands.
func (t *Tape) chain(n *node) {
	g := n.adj
	switch n.op {
	case OpLeaf:
	case OpAdd:
		t.at(n.a).adj += g
		t.at(n.b).adj += g
	case OpSub:
		t.at(n.a).adj += g
		t.at(n.b).adj -= g
	case OpMul:
		a, b := t.at(n.a), t.at(n.b)
		a.adj += g * b.val
		b.adj += g * a.val
	case OpDiv:
		b := t.at(n.b)
		t.at(n.a).adj += g / b.val
		b.adj -= g * n.val / b.val
	case OpNeg:
		t.at(n.a).adj -= g
	case OpAddScalar:
		t.at(n.a).adj += g
	case OpMulScalar, OpUnary:
		t.at(n.a).adj += g * n.c
	case OpPowScalar:
		a := t.at(n.a)
		a.adj += g * n.c * math.Pow(a.val, n.c-1)
	case OpPow:
		a, b := t.at(n.a), t.at(n.b)
		a.adj += g * b.val * math.Pow(a.val, b.val-1)
		b.adj += g * n.val * math.Log(a.val)
	case OpExp:
		t.at(n.a).adj += g * n.val
	case OpLog:
		a := t.at(n.a)
		a.adj += g / a.val
	case OpSqrt:
		t.at(n.a).adj += g / (2 * n.val)
	case OpSin:
		a := t.at(n.a)
		a.adj += g * math.Cos(a.val)
	case OpCos:
		a := t.at(n.a)
		a.adj -= g * math.Sin(a.val)
	case OpTanh:
		t.at(n.a).adj += g * (1 - n.val*n.val)
	case OpBinary:
		t.at(n.a).adj += g * n.c
		t.at(n.b).adj += g * n.d
	case OpSum:
		for _, e := range n.edges {
			t.at(e.operand).adj += g
		}
	case OpPartials:
		for _, e := range n.edges {
			t.at(e.operand).adj += g * e.partial
		}
	default:
		panic("autodiff: unknown node kind " + n.op.String())
	}
}
