package autodiff

import "fmt"

// Func is a scalar function built on a tape from independent variables.
type Func func(t *Tape, xs []Var) Var

// Backward computes the adjoint of every node on the tape with respect to out:
// it zeroes all adjoints, seeds out with 1 and runs the backward step of every
// chaining node from the newest to the oldest. Read the results with Var.Adj.
//
// An out with no recorded operations is a constant: the traversal does
// nothing and every other adjoint stays zero.
func (t *Tape) Backward(out Var) error {
	n, err := t.lookup(out)
	if err != nil {
		return fmt.Errorf("backward: output: %w", err)
	}
	t.zeroFrom(0)
	n.adj = 1
	t.chainFrom(0)
	t.gradients++
	return nil
}

// Grad runs Backward for out and returns the adjoints of inputs in order.
func (t *Tape) Grad(out Var, inputs ...Var) ([]float64, error) {
	if err := t.checkInputs(inputs, 0); err != nil {
		return nil, err
	}
	if err := t.Backward(out); err != nil {
		return nil, err
	}
	return t.collect(inputs), nil
}

// GradNested is Grad restricted to the innermost open checkpoint: only nodes
// created since it are zeroed and traversed. Nodes of the enclosing
// computation that the scope reads from keep the adjoints they had before the
// call. out and inputs must have been created inside the scope; older handles
// are rejected with ErrOutOfScope.
func (t *Tape) GradNested(out Var, inputs ...Var) ([]float64, error) {
	s := t.scope()
	n, err := t.lookup(out)
	if err != nil {
		return nil, fmt.Errorf("grad nested: output: %w", err)
	}
	if out.ID() < s.nodes {
		return nil, fmt.Errorf("grad nested: output node %d: %w", out.id, ErrOutOfScope)
	}
	if err := t.checkInputs(inputs, s.nodes); err != nil {
		return nil, err
	}

	saved := t.saveOuter(s)
	t.zeroFrom(s.nodes)
	n.adj = 1
	t.chainFrom(s.chain)
	for id, adj := range saved {
		t.at(id).adj = adj
	}
	t.gradients++
	return t.collect(inputs), nil
}

// saveOuter returns the adjoints of nodes older than s that chaining nodes
// created inside s use as operands.
func (t *Tape) saveOuter(s frame) map[int32]float64 {
	var saved map[int32]float64
	keep := func(id int32) {
		if id == noOperand || int(id) >= s.nodes {
			return
		}
		if _, ok := saved[id]; ok {
			return
		}
		if saved == nil {
			saved = make(map[int32]float64)
		}
		saved[id] = t.at(id).adj
	}
	for _, ix := range t.chainIx[s.chain:] {
		n := t.at(ix)
		keep(n.a)
		keep(n.b)
		for _, e := range n.edges {
			keep(e.operand)
		}
	}
	return saved
}

// Gradient evaluates f at x on fresh independent variables inside a nested
// scope and returns f(x) and its gradient. The tape is left as it was found.
func (t *Tape) Gradient(f Func, x []float64) (float64, []float64, error) {
	var (
		fx   float64
		grad []float64
	)
	err := t.Nested(func() error {
		xs := t.Vars(x...)
		y := f(t, xs)
		if err := y.Err(); err != nil {
			return fmt.Errorf("gradient: result: %w", err)
		}
		g, err := t.GradNested(y, xs...)
		if err != nil {
			return fmt.Errorf("gradient: %w", err)
		}
		fx, grad = y.Value(), g
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return fx, grad, nil
}

// ZeroAdjoints sets every adjoint on the tape to zero.
func (t *Tape) ZeroAdjoints() {
	t.zeroFrom(0)
}

// ZeroAdjointsNested sets the adjoints of nodes created since the innermost
// open checkpoint to zero.
func (t *Tape) ZeroAdjointsNested() {
	t.zeroFrom(t.scope().nodes)
}

// zeroFrom clears the adjoints of nodes with id >= from. Every node sits on
// exactly one of the two sequences, so this covers both.
func (t *Tape) zeroFrom(from int) {
	for i := from; i < t.Len(); i++ {
		t.nodes.At(i).adj = 0
	}
}

// chainFrom runs the backward step of chaining entries from the last down to
// index from, each exactly once.
func (t *Tape) chainFrom(from int) {
	for i := len(t.chainIx) - 1; i >= from; i-- {
		t.chain(t.at(t.chainIx[i]))
	}
}

func (t *Tape) checkInputs(inputs []Var, minID int) error {
	for i, in := range inputs {
		if _, err := t.lookup(in); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		if in.ID() < minID {
			return fmt.Errorf("input %d (node %d): %w", i, in.id, ErrOutOfScope)
		}
	}
	return nil
}

func (t *Tape) collect(inputs []Var) []float64 {
	grads := make([]float64, len(inputs))
	for i, in := range inputs {
		grads[i] = t.at(in.id).adj
	}
	return grads
}
