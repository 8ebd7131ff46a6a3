// Package autodiff implements reverse-mode automatic differentiation over
// scalars.
//
// Architecture:
//   - arena.Pool: nodes are stored by value; operands are node indices
//   - Tape: records nodes in creation order on a chaining sequence (nodes
//     with operands) and a non-chaining sequence (leaves, constants)
//   - Op: closed set of node kinds, each with its backward step in one switch
//   - Checkpoint: Open/Close roll the tape and arenas back to a saved length
//   - Backward/Grad: zero adjoints, seed the output, walk the chaining
//     sequence in reverse
//
// Usage:
//
//	tape := autodiff.New()
//	x, y := tape.Var(3), tape.Var(4)
//	z := x.Add(y).Mul(x) // z = (x + y) * x = 21
//
//	grads, err := tape.Grad(z, x, y)
//	// grads == []float64{10, 3}
//
// Nested scopes reclaim the memory of inner computations:
//
//	cp := tape.Open()
//	ll := model(tape, params) // builds many nodes
//	value := ll.Value()
//	if err := tape.Close(cp); err != nil { ... } // ll is now stale
//
// Collaborators with closed-form derivatives build nodes with Unary, Binary
// and Precomputed instead of composing primitive operations.
package autodiff
