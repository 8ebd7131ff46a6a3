package autodiff

import "unsafe"

// Stats is a snapshot of a tape's size.
type Stats struct {
	Nodes       int    // nodes on the tape
	Chaining    int    // length of the chaining sequence
	NonChaining int    // length of the non-chaining sequence
	Edges       int    // operand slots used by n-ary nodes
	Blocks      int    // arena blocks held, node and edge arenas together
	Bytes       int    // arena bytes in use
	CapBytes    int    // arena bytes held
	PeakBytes   int    // high-water mark of Bytes
	Depth       int    // open checkpoints
	Gradients   uint64 // completed backward passes
}

var (
	nodeSize = int(unsafe.Sizeof(node{}))
	edgeSize = int(unsafe.Sizeof(edge{}))
)

// Stats returns the current sizes.
func (t *Tape) Stats() Stats {
	t.lazyInit()
	na, ea := t.nodes.Arena(), t.edges
	return Stats{
		Nodes:       na.Len(),
		Chaining:    len(t.chainIx),
		NonChaining: len(t.nochain),
		Edges:       ea.Len(),
		Blocks:      na.Blocks() + ea.Blocks(),
		Bytes:       na.Len()*nodeSize + ea.Len()*edgeSize,
		CapBytes:    na.Cap()*nodeSize + ea.Cap()*edgeSize,
		PeakBytes:   na.Peak()*nodeSize + ea.Peak()*edgeSize,
		Depth:       len(t.frames),
		Gradients:   t.gradients,
	}
}
