// Package rtpool implements a real-time-safe memory pool: a pre-sized
// arena with a free list per size class, usable for allocation and
// deallocation from the audio thread without blocking.
//
// Allocations never call into the Go allocator on the hot path once a size
// class's free list is primed; when a class is exhausted the pool returns
// ErrPoolExhausted rather than growing, so a caller on the audio thread can
// treat failure as "abandon this rebuild, retry next block" per the error
// taxonomy in the scheduler design.
package rtpool

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPoolExhausted is returned when a size class has no free blocks left
// and the pool is configured not to grow past its pre-sized watermark.
var ErrPoolExhausted = errors.New("rtpool: pool exhausted")

// sizeClasses mirrors a typical power-of-two slab allocator: enough classes
// to cover a queue item, a successor-edge slice, and small scratch vectors
// without ever falling back to a raw make() on the audio thread.
var sizeClasses = [...]int{32, 64, 128, 256, 512, 1024, 2048, 4096}

func classFor(size int) (idx int, ok bool) {
	for i, c := range sizeClasses {
		if size <= c {
			return i, true
		}
	}
	return 0, false
}

// class is one free list. blocks are raw byte slices; callers reinterpret
// them via the typed helpers below (Get/Put).
type class struct {
	mu       sync.Mutex
	free     [][]byte
	blockLen int

	allocated atomic.Int64 // blocks currently checked out
	highWater atomic.Int64 // max allocated seen
	failures  atomic.Int64 // exhaustion count, for diagnostics
}

// Pool is a size-classed real-time memory pool. The zero value is not
// usable; construct with New.
type Pool struct {
	classes  [len(sizeClasses)]*class
	grow     bool // if true, a miss allocates from the Go heap instead of failing
	watermark int
}

// Option configures a Pool at construction time.
type Option func(*poolConfig)

type poolConfig struct {
	prefill   int
	grow      bool
	watermark int
}

// WithPrefill pre-populates every size class's free list with n blocks at
// construction, so the first real-time block never pays allocation cost.
func WithPrefill(n int) Option {
	return func(c *poolConfig) { c.prefill = n }
}

// WithGrowth allows a class miss to fall back to a heap allocation instead
// of returning ErrPoolExhausted. Not recommended for the audio thread; it
// exists for non-RT callers (e.g. tests, or the control-intake path) that
// share a Pool with RT code but don't need the hard real-time guarantee.
func WithGrowth(enabled bool) Option {
	return func(c *poolConfig) { c.grow = enabled }
}

// New constructs a Pool with the given options.
func New(opts ...Option) *Pool {
	cfg := poolConfig{prefill: 0, grow: false}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pool{grow: cfg.grow, watermark: cfg.watermark}
	for i, size := range sizeClasses {
		c := &class{blockLen: size}
		for j := 0; j < cfg.prefill; j++ {
			c.free = append(c.free, make([]byte, size))
		}
		p.classes[i] = c
	}
	return p
}

// global is the optional process-wide pool, explicitly managed via
// Init/Teardown rather than lazily constructed, per the design note that a
// global pool must be initialized before the first node exists and torn
// down only once the tree is empty.
var global struct {
	mu   sync.Mutex
	pool *Pool
}

// Init installs the process-wide pool. Calling Init twice without an
// intervening Teardown panics: this is a host wiring bug, not a runtime
// condition.
func Init(opts ...Option) *Pool {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.pool != nil {
		panic("rtpool: Init called twice without Teardown")
	}
	global.pool = New(opts...)
	return global.pool
}

// Teardown clears the process-wide pool. The caller is responsible for
// ensuring the node tree is already empty.
func Teardown() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.pool = nil
}

// Global returns the process-wide pool, or nil if Init was never called.
func Global() *Pool {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.pool
}

// Alloc returns a zeroed byte slice of at least size bytes from the
// matching size class, or ErrPoolExhausted if the class has no free blocks
// and growth is disabled.
func (p *Pool) Alloc(size int) ([]byte, error) {
	idx, ok := classFor(size)
	if !ok {
		if p.grow {
			return make([]byte, size), nil
		}
		return nil, ErrPoolExhausted
	}
	c := p.classes[idx]

	c.mu.Lock()
	var blk []byte
	if n := len(c.free); n > 0 {
		blk = c.free[n-1]
		c.free = c.free[:n-1]
	}
	c.mu.Unlock()

	if blk != nil {
		for i := range blk {
			blk[i] = 0
		}
	} else if p.grow {
		blk = make([]byte, c.blockLen)
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
	return blk[:size], nil
}

// Free returns a block to its size class's free list. The slice's
// capacity must have come from a prior Alloc of a size mapping to the same
// class; Free re-derives the class from cap(blk), not len(blk), so the
// caller may have shrunk the slice via slicing.
func (p *Pool) Free(blk []byte) {
	idx, ok := classFor(cap(blk))
	if !ok {
		return // came from the growth fallback; let the GC reclaim it
	}
	c := p.classes[idx]
	full := blk[:cap(blk)]

	c.mu.Lock()
	c.free = append(c.free, full)
	c.mu.Unlock()

	c.allocated.Add(-1)
}

// ClassStats reports the state of one size class.
type ClassStats struct {
	BlockSize int
	Free      int
	Allocated int64
	HighWater int64
	Failures  int64
}

// Stats returns a snapshot of every size class, for diagnostics and the
// round-trip watermark test: after a full tree teardown, Allocated must
// return to zero for every class.
func (p *Pool) Stats() []ClassStats {
	out := make([]ClassStats, len(p.classes))
	for i, c := range p.classes {
		c.mu.Lock()
		free := len(c.free)
		c.mu.Unlock()
		out[i] = ClassStats{
			BlockSize: c.blockLen,
			Free:      free,
			Allocated: c.allocated.Load(),
			HighWater: c.highWater.Load(),
			Failures:  c.failures.Load(),
		}
	}
	return out
}

// Idle reports whether every size class currently has zero blocks checked
// out, i.e. the pool is back at its initial watermark.
func (p *Pool) Idle() bool {
	for _, c := range p.classes {
		if c.allocated.Load() != 0 {
			return false
		}
	}
	return true
}
