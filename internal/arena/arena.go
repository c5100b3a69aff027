// Package arena implements a typed bump allocator.
//
// Slices handed out by Alloc stay valid until the next Reset, after which the
// same memory is handed out again. There is no per-slice free.
package arena

// DefaultBlockLen is the number of elements per block when New is given a
// non-positive length.
const DefaultBlockLen = 1 << 16

// Arena carves zeroed slices out of large blocks.
type Arena[T any] struct {
	blockLen int
	blocks   [][]T
	cur      int // index of the block being carved
	used     int // elements used in blocks[cur]
	live     int // elements handed out since the last Reset
}

// New returns an arena that allocates blocks of blockLen elements.
func New[T any](blockLen int) *Arena[T] {
	if blockLen <= 0 {
		blockLen = DefaultBlockLen
	}
	return &Arena[T]{blockLen: blockLen}
}

// Alloc returns a zeroed slice of length n. Its capacity is exactly n, so
// appending to it never tramples a neighbouring allocation.
func (a *Arena[T]) Alloc(n int) []T {
	if n <= 0 {
		return nil
	}
	a.live += n
	if n > a.blockLen {
		// Oversized requests get their own storage and are left to the GC.
		return make([]T, n)
	}
	if len(a.blocks) == 0 {
		a.blocks = append(a.blocks, make([]T, a.blockLen))
	}
	if a.used+n > a.blockLen {
		a.cur++
		a.used = 0
		if a.cur == len(a.blocks) {
			a.blocks = append(a.blocks, make([]T, a.blockLen))
		}
	}
	s := a.blocks[a.cur][a.used : a.used+n : a.used+n]
	clear(s)
	a.used += n
	return s
}

// Reset releases every allocation at once, keeping the blocks for reuse.
func (a *Arena[T]) Reset() {
	a.cur = 0
	a.used = 0
	a.live = 0
}

// Len returns the number of elements handed out since the last Reset.
func (a *Arena[T]) Len() int { return a.live }

// Blocks returns how many blocks the arena currently holds.
func (a *Arena[T]) Blocks() int { return len(a.blocks) }
