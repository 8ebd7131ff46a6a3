package arena

import "fmt"

// Pool is an append-only sequence of T addressed by index. Elements live in
// an Arena, one at a time, so element i always sits at block i/blockSize,
// offset i%blockSize and its address is stable until it is truncated away.
type Pool[T any] struct {
	arena *Arena[T]
}

// NewPool creates an empty pool. maxLen bounds the number of elements; 0
// disables the bound.
func NewPool[T any](blockSize, maxLen int) *Pool[T] {
	return &Pool[T]{arena: New[T](blockSize, maxLen)}
}

// Append stores v and returns its index.
func (p *Pool[T]) Append(v T) int {
	p.arena.Alloc(1)[0] = v
	return p.arena.used - 1
}

// At returns a pointer to element i.
func (p *Pool[T]) At(i int) *T {
	if i < 0 || i >= p.arena.used {
		panic(fmt.Sprintf("arena: pool index %d out of range [0, %d)", i, p.arena.used))
	}
	bs := p.arena.blockSize
	return &p.arena.blocks[i/bs][i%bs]
}

// Len returns the number of elements.
func (p *Pool[T]) Len() int {
	return p.arena.used
}

// Truncate drops every element at index n or above.
func (p *Pool[T]) Truncate(n int) {
	p.arena.Rewind(p.markAt(n))
}

// markAt maps a length onto the arena position reached after n appends.
func (p *Pool[T]) markAt(n int) Mark {
	if n < 0 || n > p.arena.used {
		panic(fmt.Sprintf("arena: truncate to %d outside [0, %d]", n, p.arena.used))
	}
	if n == 0 {
		return Mark{}
	}
	bs := p.arena.blockSize
	if n%bs == 0 {
		return Mark{block: n/bs - 1, offset: bs, used: n}
	}
	return Mark{block: n / bs, offset: n % bs, used: n}
}

// Reset empties the pool, keeping its blocks.
func (p *Pool[T]) Reset() {
	p.arena.Reset()
}

// Release empties the pool and drops its blocks.
func (p *Pool[T]) Release() {
	p.arena.Release()
}

// Arena exposes the backing arena for accounting.
func (p *Pool[T]) Arena() *Arena[T] {
	return p.arena
}
