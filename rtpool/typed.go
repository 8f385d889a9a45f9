package rtpool

import (
	"sync"
	"sync/atomic"
)

// SlicePool is the typed counterpart of Pool: a size-classed free list of
// []T rather than []byte, so callers that need a pointer-bearing slice
// (dspqueue's job and successor vectors) get
// the same "pre-sized, no per-block heap traffic" guarantee without an
// unsafe byte-slice reinterpretation. Classes are indexed by element
// count rather than byte size.
type SlicePool[T any] struct {
	classes []*sliceClass[T]
	grow    bool
}

type sliceClass[T any] struct {
	mu        sync.Mutex
	cap       int
	free      [][]T
	allocated atomic.Int64
	highWater atomic.Int64
	failures  atomic.Int64
}

// NewSlicePool builds a pool with one free-list class per entry in
// capClasses (which must be ascending). grow controls the same
// exhausted-class fallback behaviour as Pool.
func NewSlicePool[T any](capClasses []int, grow bool) *SlicePool[T] {
	p := &SlicePool[T]{grow: grow}
	for _, c := range capClasses {
		p.classes = append(p.classes, &sliceClass[T]{cap: c})
	}
	return p
}

func (p *SlicePool[T]) classFor(n int) (*sliceClass[T], bool) {
	for _, c := range p.classes {
		if n <= c.cap {
			return c, true
		}
	}
	return nil, false
}

// Alloc returns a zero-valued []T of length n, reusing a free block from
// the smallest class that fits when one is available.
func (p *SlicePool[T]) Alloc(n int) ([]T, error) {
	c, ok := p.classFor(n)
	if !ok {
		if p.grow {
			return make([]T, n), nil
		}
		return nil, ErrPoolExhausted
	}

	c.mu.Lock()
	m := len(c.free)
	var blk []T
	if m > 0 {
		blk = c.free[m-1]
		c.free = c.free[:m-1]
	}
	c.mu.Unlock()

	if blk != nil {
		var zero T
		for i := range blk {
			blk[i] = zero
		}
	} else if p.grow {
		blk = make([]T, c.cap)
	} else {
		c.failures.Add(1)
		return nil, ErrPoolExhausted
	}

	allocated := c.allocated.Add(1)
	for {
		hw := c.highWater.Load()
		if allocated <= hw || c.highWater.CompareAndSwap(hw, allocated) {
			break
		}
	}
	return blk[:n], nil
}

// Free returns a block to its class, keyed by cap(s) as Pool.Free does for
// byte blocks.
func (p *SlicePool[T]) Free(s []T) {
	c, ok := p.classFor(cap(s))
	if !ok {
		return
	}
	c.mu.Lock()
	c.free = append(c.free, s[:cap(s)])
	c.mu.Unlock()
	c.allocated.Add(-1)
}

// Idle reports whether every class has returned to zero outstanding
// blocks.
func (p *SlicePool[T]) Idle() bool {
	for _, c := range p.classes {
		if c.allocated.Load() != 0 {
			return false
		}
	}
	return true
}
