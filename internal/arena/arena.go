// Package arena provides bump allocators for the autodiff tape.
//
// An Arena hands out zeroed, contiguous slices from fixed-size blocks. Blocks
// are chained, never reallocated, so memory returned by Alloc never moves.
// Nothing is freed individually: Rewind invalidates everything allocated after
// a Mark, and the space is reused by later allocations.
//
// Arenas are not safe for concurrent use.
package arena

import (
	"errors"
	"fmt"
)

// ErrExhausted is raised (as a panic value) when an arena cannot grow.
var ErrExhausted = errors.New("arena: exhausted")

// Mark is a position in an Arena returned by Mark and consumed by Rewind.
type Mark struct {
	block  int // index of the active block
	offset int // offset within the active block
	used   int // elements handed out before this position
}

// Used returns the number of elements allocated before the mark.
func (m Mark) Used() int {
	return m.used
}

// Arena is a multi-block bump allocator for values of type T.
type Arena[T any] struct {
	blocks    [][]T // all blocks, retained across rewinds
	current   int   // index of the active block
	offset    int   // offset within the active block
	blockSize int   // elements per regular block
	maxLen    int   // cap on total capacity, 0 means unlimited
	total     int   // capacity across all blocks
	used      int   // elements handed out (gaps at block tails excluded)
	peak      int   // high-water mark of used

	// OnGrow is called after a new block has been added.
	OnGrow func(blocks, capacity int)
}

// New creates an empty arena. No block is allocated until the first Alloc.
// maxLen bounds the total capacity in elements; 0 disables the bound.
func New[T any](blockSize, maxLen int) *Arena[T] {
	if blockSize <= 0 {
		panic(fmt.Sprintf("arena: block size must be positive, got %d", blockSize))
	}
	return &Arena[T]{
		blockSize: blockSize,
		maxLen:    maxLen,
	}
}

// Alloc returns a zeroed slice of n elements. The slice's capacity is n, so
// appending to it never writes into neighbouring allocations.
// Alloc panics with ErrExhausted if the arena would exceed its bound.
func (a *Arena[T]) Alloc(n int) []T {
	if n <= 0 {
		return nil
	}
	if len(a.blocks) == 0 || a.offset+n > len(a.blocks[a.current]) {
		a.advance(n)
	}

	block := a.blocks[a.current]
	start := a.offset
	end := start + n
	clear(block[start:end])

	a.offset = end
	a.used += n
	if a.used > a.peak {
		a.peak = a.used
	}
	return block[start:end:end]
}

// advance moves to the next block with room for n elements, allocating one if
// no retained block fits.
func (a *Arena[T]) advance(n int) {
	next := a.current + 1
	if len(a.blocks) == 0 {
		next = 0
	}
	for ; next < len(a.blocks); next++ {
		if len(a.blocks[next]) >= n {
			a.current = next
			a.offset = 0
			return
		}
	}

	size := max(a.blockSize, n)
	if a.maxLen > 0 && a.total+size > a.maxLen {
		panic(fmt.Errorf("%w: need %d more elements, capacity %d of %d in use",
			ErrExhausted, size, a.total, a.maxLen))
	}
	a.blocks = append(a.blocks, make([]T, size))
	a.total += size
	a.current = len(a.blocks) - 1
	a.offset = 0
	if a.OnGrow != nil {
		a.OnGrow(len(a.blocks), a.total)
	}
}

// Mark returns the current position.
func (a *Arena[T]) Mark() Mark {
	return Mark{block: a.current, offset: a.offset, used: a.used}
}

// Rewind invalidates every allocation made after m. Blocks are kept for reuse.
// Rewinding to a position past the current one is a contract violation and panics.
func (a *Arena[T]) Rewind(m Mark) {
	if m.block > a.current || (m.block == a.current && m.offset > a.offset) || m.used > a.used {
		panic(fmt.Sprintf("arena: rewind to mark %+v beyond current position {block:%d offset:%d used:%d}",
			m, a.current, a.offset, a.used))
	}
	a.current = m.block
	a.offset = m.offset
	a.used = m.used
}

// Reset rewinds the arena to empty.
func (a *Arena[T]) Reset() {
	a.Rewind(Mark{})
}

// Release drops every block, returning their memory to the garbage collector.
// The peak is kept.
func (a *Arena[T]) Release() {
	a.blocks = nil
	a.current = 0
	a.offset = 0
	a.used = 0
	a.total = 0
}

// Len returns the number of elements currently allocated.
func (a *Arena[T]) Len() int {
	return a.used
}

// Cap returns the capacity across all blocks.
func (a *Arena[T]) Cap() int {
	return a.total
}

// Peak returns the high-water mark of Len. It survives Reset and Rewind.
func (a *Arena[T]) Peak() int {
	return a.peak
}

// Blocks returns the number of blocks allocated.
func (a *Arena[T]) Blocks() int {
	return len(a.blocks)
}
