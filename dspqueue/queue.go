// Package dspqueue holds the compiled work queue a block's audio workers
// drain: a flat list of items wired together by activation counts and
// successor edges, plus the bounded runnable ring workers pop from.
//
// A Queue is built once per topology change by graphgen and then reused,
// block after block, by calling Reset between drains — no reallocation on
// the steady-state audio-thread path.
package dspqueue

import (
	"fmt"

	"github.com/novasynth/novaserver/nodegraph"
	"github.com/novasynth/novaserver/rtpool"
)

// Queue is a compiled dependency graph: every item graphgen produced for
// the current tree topology, plus the ring workers drain from each block.
type Queue struct {
	items  []*Item
	ring   *runnableRing
	synths int // sum of len(item.job) across every item

	jobPool  *rtpool.SlicePool[*nodegraph.Synth]
	succPool *rtpool.SlicePool[*Item]
}

// NewQueue preallocates storage for up to capacityHint items, matching the
// original's practice of sizing the queue's backing storage from the
// tree's synth count up front rather than growing it during generation.
// Jobs and successor slices allocated through AllocateItem come from the
// ordinary Go heap; use NewQueueWithPools to draw them from the real-time
// pool instead.
func NewQueue(capacityHint int) *Queue {
	if capacityHint < 1 {
		capacityHint = 1
	}
	return &Queue{
		items: make([]*Item, 0, capacityHint),
		ring:  newRunnableRing(capacityHint),
	}
}

// NewQueueWithPools is NewQueue, but every item's job and successor
// slices are drawn from jobPool/succPool rather than allocated directly —
// the "all queue items, successor arrays ... come from this pool"
// requirement on the real-time memory pool. A nil pool argument falls
// back to plain allocation for that slice kind. AllocateItem panics with
// rtpool.ErrPoolExhausted if a configured pool (with growth disabled)
// cannot satisfy a request; callers generating on the audio thread should
// recover and treat it as "abandon this rebuild, retry next block," per
// the transient-resource error policy.
func NewQueueWithPools(capacityHint int, jobPool *rtpool.SlicePool[*nodegraph.Synth], succPool *rtpool.SlicePool[*Item]) *Queue {
	q := NewQueue(capacityHint)
	q.jobPool, q.succPool = jobPool, succPool
	return q
}

// AllocateItem appends a new item for the given job (a packed run of
// synths), wired directly to its successors and its resting activation
// count. The generator computes activationLimit structurally (from
// sibling and satellite counts, per the dependency-graph construction
// rules) rather than by tallying incoming edges as they're added — the
// predecessor item that lists this one in its own successors slice and
// the activationLimit the generator hands this item are two independent
// computations that must agree, which is exactly what Validate checks.
func (q *Queue) AllocateItem(job []*nodegraph.Synth, successors []*Item, activationLimit int32) *Item {
	if q.jobPool != nil {
		job = pooledCopy(q.jobPool, job)
	}
	if q.succPool != nil {
		successors = pooledCopy(q.succPool, successors)
	}
	it := &Item{job: job, successors: successors, initialActivation: activationLimit}
	q.items = append(q.items, it)
	q.synths += len(job)
	return it
}

// pooledCopy allocates a pool-backed slice sized for src and copies it in.
// A generator running on the audio thread holds no fallback path for a
// pool that can't satisfy the request, so failure panics with the pool's
// own error rather than returning one — callers on that path (nova's
// rebuild) already recover panics carrying an error and treat them as a
// transient-resource failure.
func pooledCopy[T any](pool *rtpool.SlicePool[T], src []T) []T {
	dst, err := pool.Alloc(len(src))
	if err != nil {
		panic(err)
	}
	copy(dst, src)
	return dst
}

// Finalize must be called once generation has finished wiring every item
// and edge. It snapshots every item's resting activation count and seeds
// the runnable ring with the items that start the block already
// unblocked.
func (q *Queue) Finalize() {
	for _, it := range q.items {
		it.reset()
		if it.Activation() == 0 {
			q.ring.push(it)
		}
	}
}

// AddInitiallyRunnable pushes it onto the runnable ring directly, for
// generator paths (a bare synth with no predecessors, the head of a
// sequential run) that know an item is runnable before Finalize's blanket
// sweep runs. Finalize pushes every item whose activation is zero without
// checking whether it was already pushed here, so an item passed to both
// is queued twice; avoiding that is the generator's responsibility.
func (q *Queue) AddInitiallyRunnable(it *Item) {
	q.ring.push(it)
}

// Release returns every item's job and successor slices to their pools, if
// any are configured. Call it on a queue being discarded — an old topology
// superseded by a rebuild, or one abandoned after failing validation —
// never on a queue still in use by workers.
func (q *Queue) Release() {
	if q.jobPool == nil && q.succPool == nil {
		return
	}
	for _, it := range q.items {
		if q.jobPool != nil {
			q.jobPool.Free(it.job)
		}
		if q.succPool != nil {
			q.succPool.Free(it.successors)
		}
	}
}

// Items returns every item in the queue, in generation order.
func (q *Queue) Items() []*Item { return q.items }

// SynthCount returns the sum of every item's job length.
func (q *Queue) SynthCount() int { return q.synths }

// GetJob pops the next runnable item and returns its job, or ok=false if
// the ring (and overflow) are currently empty. This is the call a worker
// makes in its inner loop.
func (q *Queue) GetJob() (*Item, bool) {
	return q.ring.pop()
}

// SignalFinished must be called by a worker once it has finished
// processing an item's job. It decrements every successor's activation
// and pushes any that just became runnable onto the ring.
func (q *Queue) SignalFinished(it *Item) {
	for _, succ := range it.finish() {
		q.ring.push(succ)
	}
}

// Reset restores every item's activation to its resting value and
// reseeds the runnable ring, readying the queue for the next block's
// drain without any allocation.
func (q *Queue) Reset() {
	q.ring.reset()
	for _, it := range q.items {
		it.reset()
		if it.Activation() == 0 {
			q.ring.push(it)
		}
	}
}

// Drain runs every item on the calling goroutine until the queue is
// exhausted, invoking process for each job. It exists as a reference,
// single-threaded implementation of the drain loop workers.Pool
// parallelizes, and is what the package's own tests use to check
// topological-order invariants deterministically.
func (q *Queue) Drain(process func(*Item)) {
	remaining := len(q.items)
	for remaining > 0 {
		it, ok := q.GetJob()
		if !ok {
			panic(fmt.Sprintf("dspqueue: drain stalled with %d items left runnable=0, possible cycle", remaining))
		}
		process(it)
		q.SignalFinished(it)
		remaining--
	}
}
