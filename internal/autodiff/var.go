package autodiff

import "fmt"

// Var is a handle to a node on a Tape. It is a small value: copy it freely.
// Several handles may refer to the same node; the tape owns the node.
//
// A Var remembers the tape epoch it was created in. Once the checkpoint
// holding its node is closed (or the tape is reset) the handle is stale:
// Err reports ErrStaleVar and Value, Adj and arithmetic panic with it.
type Var struct {
	tape  *Tape
	id    int32
	epoch uint64
}

// lookup resolves v against t.
func (t *Tape) lookup(v Var) (*node, error) {
	switch {
	case v.tape == nil:
		return nil, ErrNilVar
	case v.tape != t:
		return nil, ErrForeignVar
	case t.nodes == nil || int(v.id) >= t.nodes.Len():
		return nil, fmt.Errorf("%w: node %d was rewound (tape holds %d nodes)", ErrStaleVar, v.id, t.Len())
	}
	n := t.at(v.id)
	if n.epoch != v.epoch {
		return nil, fmt.Errorf("%w: node %d created in epoch %d, slot now holds epoch %d",
			ErrStaleVar, v.id, v.epoch, n.epoch)
	}
	return n, nil
}

// mustNode resolves v against t and panics on misuse.
func (t *Tape) mustNode(v Var) *node {
	n, err := t.lookup(v)
	if err != nil {
		panic(err)
	}
	return n
}

func (v Var) node() *node {
	if v.tape == nil {
		panic(ErrNilVar)
	}
	return v.tape.mustNode(v)
}

// Err returns nil if v refers to a live node, and the reason otherwise.
func (v Var) Err() error {
	if v.tape == nil {
		return ErrNilVar
	}
	_, err := v.tape.lookup(v)
	return err
}

// Value returns the forward value.
func (v Var) Value() float64 {
	return v.node().val
}

// Adj returns the adjoint accumulated by the last backward pass.
func (v Var) Adj() float64 {
	return v.node().adj
}

// Op returns the kind of operation that produced v.
func (v Var) Op() Op {
	return v.node().op
}

// ID returns the node's index on the tape.
func (v Var) ID() int {
	return int(v.id)
}

// Tape returns the tape that owns v.
func (v Var) Tape() *Tape {
	return v.tape
}

func (v Var) String() string {
	if err := v.Err(); err != nil {
		return "Var(invalid)"
	}
	n := v.tape.at(v.id)
	return fmt.Sprintf("Var(%s #%d val=%g adj=%g)", n.op, v.id, n.val, n.adj)
}

// Add returns v + w.
func (v Var) Add(w Var) Var { return v.tape.Add(v, w) }

// Sub returns v - w.
func (v Var) Sub(w Var) Var { return v.tape.Sub(v, w) }

// Mul returns v * w.
func (v Var) Mul(w Var) Var { return v.tape.Mul(v, w) }

// Div returns v / w.
func (v Var) Div(w Var) Var { return v.tape.Div(v, w) }

// Neg returns -v.
func (v Var) Neg() Var { return v.tape.Neg(v) }

// AddScalar returns v + c.
func (v Var) AddScalar(c float64) Var { return v.tape.AddScalar(v, c) }

// MulScalar returns v * c.
func (v Var) MulScalar(c float64) Var { return v.tape.MulScalar(v, c) }

// PowScalar returns v^c.
func (v Var) PowScalar(c float64) Var { return v.tape.PowScalar(v, c) }

// Pow returns v^w.
func (v Var) Pow(w Var) Var { return v.tape.Pow(v, w) }

// Exp returns e^v.
func (v Var) Exp() Var { return v.tape.Exp(v) }

// Log returns the natural logarithm of v.
func (v Var) Log() Var { return v.tape.Log(v) }

// Sqrt returns the square root of v.
func (v Var) Sqrt() Var { return v.tape.Sqrt(v) }

// Sin returns sin(v).
func (v Var) Sin() Var { return v.tape.Sin(v) }

// Cos returns cos(v).
func (v Var) Cos() Var { return v.tape.Cos(v) }

// Tanh returns tanh(v).
func (v Var) Tanh() Var { return v.tape.Tanh(v) }
