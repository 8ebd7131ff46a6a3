package autodiff

import (
	"errors"
	"fmt"

	"github.com/born-ml/tape/internal/arena"
)

// Checkpoint identifies an open nested scope. It is returned by Open and
// must be passed back to Close in strict LIFO order.
type Checkpoint struct {
	tape  *Tape
	id    uint64
	depth int // 1 for the outermost checkpoint
}

// Depth returns the nesting depth of the checkpoint, starting at 1.
func (c Checkpoint) Depth() int {
	return c.depth
}

// frame records the tape's lengths when a checkpoint was opened.
type frame struct {
	id      uint64
	chain   int // len(chaining)
	nochain int // len(non-chaining)
	nodes   int // node arena length
	edges   arena.Mark
}

// Open records the current lengths of both sequences and both arenas on the
// checkpoint stack.
//
// Everything created until the matching Close is discarded by it. Use this to
// run repeated sub-computations (one likelihood evaluation per sampler step,
// say) without growing the tape: open, compute, read the scalars you need,
// close.
func (t *Tape) Open() Checkpoint {
	t.lazyInit()
	t.nextFrame++
	f := frame{
		id:      t.nextFrame,
		chain:   len(t.chainIx),
		nochain: len(t.nochain),
		nodes:   t.nodes.Len(),
		edges:   t.edges.Mark(),
	}
	t.frames = append(t.frames, f)
	t.logger.Debug("checkpoint opened", "depth", len(t.frames), "nodes", f.nodes)
	return Checkpoint{tape: t, id: f.id, depth: len(t.frames)}
}

// Close pops cp and rewinds the tape to the state recorded by Open. Handles
// created since are invalidated.
//
// Close fails with ErrNoCheckpoint when nothing is open and with
// ErrCheckpointOrder when cp is not the innermost open checkpoint of this tape.
// A rejected Close leaves the tape untouched.
func (t *Tape) Close(cp Checkpoint) error {
	t.lazyInit()
	if len(t.frames) == 0 {
		t.logger.Warn("checkpoint close rejected", "reason", "none open", "depth", cp.depth)
		return fmt.Errorf("close checkpoint at depth %d: %w", cp.depth, ErrNoCheckpoint)
	}
	if cp.tape != t {
		t.logger.Warn("checkpoint close rejected", "reason", "foreign checkpoint", "depth", cp.depth)
		return fmt.Errorf("close checkpoint at depth %d: opened on another tape: %w",
			cp.depth, ErrCheckpointOrder)
	}
	top := t.frames[len(t.frames)-1]
	if top.id != cp.id {
		t.logger.Warn("checkpoint close rejected", "reason", "out of order",
			"depth", cp.depth, "innermost", len(t.frames))
		return fmt.Errorf("close checkpoint at depth %d, innermost is depth %d: %w",
			cp.depth, len(t.frames), ErrCheckpointOrder)
	}

	discarded := t.nodes.Len() - top.nodes
	t.frames = t.frames[:len(t.frames)-1]
	t.rewind(top)
	t.logger.Debug("checkpoint closed", "depth", cp.depth, "discarded_nodes", discarded)
	return nil
}

// Nested runs fn inside a checkpoint and closes it afterwards, also when fn
// panics. Values needed after Nested returns must be copied out of the
// handles inside fn.
func (t *Tape) Nested(fn func() error) (err error) {
	cp := t.Open()
	defer func() {
		if cerr := t.Close(cp); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn()
}

// Depth returns the number of open checkpoints.
func (t *Tape) Depth() int {
	return len(t.frames)
}

// EmptyNested reports whether no checkpoint is open.
func (t *Tape) EmptyNested() bool {
	return len(t.frames) == 0
}

// NestedLen returns the number of nodes created since the innermost open
// checkpoint, or since the start of the tape when none is open.
func (t *Tape) NestedLen() int {
	return t.Len() - t.scope().nodes
}

// scope returns the innermost frame, or the zero frame at depth 0.
func (t *Tape) scope() frame {
	if len(t.frames) == 0 {
		return frame{}
	}
	return t.frames[len(t.frames)-1]
}
