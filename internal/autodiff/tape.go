package autodiff

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/tape/internal/arena"
)

// Tape records every differentiable operation of a forward computation and
// replays it backward to compute adjoints.
//
// Nodes live by value in an arena and are listed in two append-only
// sequences: chaining nodes, whose backward step must run, and non-chaining
// nodes (leaves and constants), which have nothing to propagate. Creation
// order is a topological order, so the backward pass is a plain reverse walk.
//
// The zero Tape is ready to use with DefaultConfig. A Tape must not be shared
// between goroutines; give every goroutine its own.
//
// Usage:
//
//	var tape autodiff.Tape
//	x, y := tape.Var(3), tape.Var(4)
//	z := x.Add(y).Mul(x)
//	grads, err := tape.Grad(z, x, y) // [10, 3]
type Tape struct {
	cfg    Config
	logger *slog.Logger

	nodes   *arena.Pool[node]  // node arena, indexed by Var.id
	edges   *arena.Arena[edge] // operand lists of n-ary nodes
	chainIx []int32            // chaining sequence (creation order)
	nochain []int32            // non-chaining sequence (creation order)

	frames    []frame // checkpoint stack
	nextFrame uint64
	epoch     uint64 // bumped on every rewind; stale handles carry an older one
	gradients uint64 // completed backward passes
}

// Option configures a Tape.
type Option func(*Tape)

// WithConfig sizes the tape's arenas. Zero fields fall back to DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(t *Tape) {
		t.cfg = cfg
	}
}

// WithLogger sets the logger used for checkpoint and arena events.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tape) {
		t.logger = logger
	}
}

// New creates a tape. Arena blocks are allocated on first use.
func New(opts ...Option) *Tape {
	t := &Tape{}
	for _, opt := range opts {
		opt(t)
	}
	t.init()
	return t
}

// init prepares the arenas. It runs from New, or lazily on the first
// operation of a zero Tape.
func (t *Tape) init() {
	t.cfg = t.cfg.withDefaults()
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}

	t.nodes = arena.NewPool[node](t.cfg.BlockSize, t.cfg.MaxNodes)
	t.nodes.Arena().OnGrow = func(blocks, capacity int) {
		t.logger.Debug("node arena grew", "blocks", blocks, "capacity", capacity)
	}
	t.edges = arena.New[edge](t.cfg.EdgeBlockSize, t.cfg.MaxEdges)
	t.edges.OnGrow = func(blocks, capacity int) {
		t.logger.Debug("edge arena grew", "blocks", blocks, "capacity", capacity)
	}
	t.chainIx = make([]int32, 0, t.cfg.InitialCapacity)
	t.nochain = make([]int32, 0, t.cfg.InitialCapacity)
}

func (t *Tape) lazyInit() {
	if t.nodes == nil {
		t.init()
	}
}

// Config returns the effective configuration.
func (t *Tape) Config() Config {
	t.lazyInit()
	return t.cfg
}

// push stores n in the arena and appends it to the chaining or non-chaining
// sequence. Every node passes through here exactly once.
func (t *Tape) push(n node) Var {
	t.lazyInit()
	n.epoch = t.epoch
	id := int32(t.nodes.Append(n))
	if n.chaining() {
		t.pushChaining(id)
	} else {
		t.pushNonChaining(id)
	}
	return Var{tape: t, id: id, epoch: t.epoch}
}

func (t *Tape) pushChaining(id int32) {
	t.chainIx = append(t.chainIx, id)
}

func (t *Tape) pushNonChaining(id int32) {
	t.nochain = append(t.nochain, id)
}

// at returns the node with the given id.
func (t *Tape) at(id int32) *node {
	return t.nodes.At(int(id))
}

// allocEdges returns n zeroed edges from the edge arena.
func (t *Tape) allocEdges(n int) []edge {
	t.lazyInit()
	return t.edges.Alloc(n)
}

// Len returns the number of nodes on the tape.
func (t *Tape) Len() int {
	if t.nodes == nil {
		return 0
	}
	return t.nodes.Len()
}

// ChainingLen returns the length of the chaining sequence.
func (t *Tape) ChainingLen() int {
	return len(t.chainIx)
}

// NonChainingLen returns the length of the non-chaining sequence.
func (t *Tape) NonChainingLen() int {
	return len(t.nochain)
}

// Reset discards every node and rewinds both arenas to empty, keeping their
// blocks for reuse. Use it before a fresh top-level computation. Reset fails
// with ErrNestedOpen while checkpoints are open.
func (t *Tape) Reset() error {
	if len(t.frames) > 0 {
		return fmt.Errorf("reset: %w (depth %d)", ErrNestedOpen, len(t.frames))
	}
	t.lazyInit()
	n := t.nodes.Len()
	t.rewind(frame{})
	t.logger.Debug("tape reset", "discarded_nodes", n)
	return nil
}

// Release is Reset followed by dropping the arenas' blocks.
func (t *Tape) Release() error {
	if err := t.Reset(); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	t.nodes.Release()
	t.edges.Release()
	t.logger.Debug("tape released")
	return nil
}

// rewind truncates both sequences and both arenas to the lengths in f and
// invalidates every handle created after them.
func (t *Tape) rewind(f frame) {
	t.chainIx = t.chainIx[:f.chain]
	t.nochain = t.nochain[:f.nochain]
	t.nodes.Truncate(f.nodes)
	t.edges.Rewind(f.edges)
	t.epoch++
}
