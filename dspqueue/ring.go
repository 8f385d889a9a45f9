package dspqueue

import (
	"sync"
	"sync/atomic"
)

// ringSlot is one cell of the bounded MPMC ring. seq tracks which
// generation (enqueue/dequeue pass) currently owns the cell, the same
// technique as the teacher's lock-free ring buffer: a slot is safe to
// claim exactly when its sequence matches the producer or consumer's
// expected value.
type ringSlot struct {
	seq atomic.Uint64
	val *Item
}

// runnableRing is a bounded multi-producer multi-consumer queue of
// runnable items, backed by a power-of-two ring so index math is a mask
// rather than a modulo. When the ring is momentarily full (more items
// become runnable in one instant than the ring holds) pushes spill into a
// mutex-guarded overflow slice rather than blocking the caller, mirroring
// the teacher's ring-plus-overflow-slice design.
type runnableRing struct {
	mask uint64
	buf  []ringSlot

	enqPos atomic.Uint64
	deqPos atomic.Uint64

	overflowMu sync.Mutex
	overflow   []*Item
}

func newRunnableRing(capacity int) *runnableRing {
	n := 1
	for n < capacity {
		n <<= 1
	}
	if n < 2 {
		n = 2
	}
	r := &runnableRing{mask: uint64(n - 1), buf: make([]ringSlot, n)}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return r
}

// push enqueues it, falling back to the overflow slice if the ring is
// currently full.
func (r *runnableRing) push(it *Item) {
	for {
		pos := r.enqPos.Load()
		slot := &r.buf[pos&r.mask]
		seq := slot.seq.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if r.enqPos.CompareAndSwap(pos, pos+1) {
				slot.val = it
				slot.seq.Store(pos + 1)
				return
			}
		case diff < 0:
			r.pushOverflow(it)
			return
		default:
			// another producer has already advanced enqPos past our read; retry
		}
	}
}

// reset returns the ring to its freshly constructed state without
// reallocating its backing array, so the steady-state per-block drain
// never touches the Go allocator.
func (r *runnableRing) reset() {
	r.enqPos.Store(0)
	r.deqPos.Store(0)
	for i := range r.buf {
		r.buf[i].val = nil
		r.buf[i].seq.Store(uint64(i))
	}
	r.overflowMu.Lock()
	r.overflow = r.overflow[:0]
	r.overflowMu.Unlock()
}

func (r *runnableRing) pushOverflow(it *Item) {
	r.overflowMu.Lock()
	r.overflow = append(r.overflow, it)
	r.overflowMu.Unlock()
}

// pop dequeues the next runnable item. Overflow is drained first (it only
// ever holds items that arrived after the ring was briefly full, so
// draining it first keeps FIFO order intact for that burst).
func (r *runnableRing) pop() (*Item, bool) {
	r.overflowMu.Lock()
	if n := len(r.overflow); n > 0 {
		it := r.overflow[0]
		r.overflow = r.overflow[1:]
		r.overflowMu.Unlock()
		return it, true
	}
	r.overflowMu.Unlock()

	for {
		pos := r.deqPos.Load()
		slot := &r.buf[pos&r.mask]
		seq := slot.seq.Load()
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if r.deqPos.CompareAndSwap(pos, pos+1) {
				it := slot.val
				slot.val = nil
				slot.seq.Store(pos + uint64(len(r.buf)))
				return it, true
			}
		case diff < 0:
			return nil, false
		default:
			// another consumer has already advanced deqPos past our read; retry
		}
	}
}
