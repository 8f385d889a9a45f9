// Package workers implements the DSP worker pool: a fixed set of
// goroutines plus one helper that drains a dspqueue.Queue once per
// control-rate block, under the real-time constraints the scheduler
// design imposes (no blocking, no per-block allocation on the worker
// path).
package workers

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/novasynth/novaserver/dspqueue"
	"github.com/novasynth/novaserver/nodegraph"
)

// Option configures a Pool at construction time.
type Option func(*config)

type config struct {
	workerCount int
	realtime    bool
	spinLimit   int
	onGlitch    func(elapsed time.Duration)
}

// WithWorkerCount sets the number of worker goroutines. Defaults to
// runtime.NumCPU()-1 (leaving one core for the helper), floored at 1.
func WithWorkerCount(n int) Option {
	return func(c *config) { c.workerCount = n }
}

// WithRealtimeScheduling enables the platform-specific attempt to pin
// worker goroutines to their OS thread and raise their scheduling class.
// Best-effort: see affinity_linux.go / affinity_other.go.
func WithRealtimeScheduling(enabled bool) Option {
	return func(c *config) { c.realtime = enabled }
}

// WithSpinLimit sets how many empty-ring polls a worker performs before
// yielding the processor while waiting for more runnable items within a
// block. Workers never block on the runnable queue itself, per the
// suspension design note; they spin bounded, then runtime.Gosched.
func WithSpinLimit(n int) Option {
	return func(c *config) { c.spinLimit = n }
}

// WithGlitchHandler installs a callback invoked (off the RT path, from
// RunBlock's caller goroutine) after every block with its elapsed time.
// Pool itself knows no deadline; the handler decides what an overrun is.
// GlitchHandler adapts a rate-limited GlitchTracker to this shape, and the
// nova package installs one here.
func WithGlitchHandler(f func(elapsed time.Duration)) Option {
	return func(c *config) { c.onGlitch = f }
}

// Pool is a fixed set of worker goroutines that drain a dspqueue.Queue
// cooperatively, started once and reused block after block.
type Pool struct {
	cfg    config
	queue  *dspqueue.Queue
	remain atomic.Int64

	// generation counts RunBlock invocations. Idle workers wait on wakeCond
	// until it advances, which Broadcast wakes every one of them for —
	// unlike a single-slot channel send, this doesn't starve all but one
	// waiter when workerCount > 1.
	wakeMu     sync.Mutex
	wakeCond   *sync.Cond
	generation uint64

	// block holds the *blockHolder for the block currently being drained.
	// Workers read it via Load after observing a new generation, so the
	// wakeCond's Lock/Wait pairing (or, for the helper goroutine, the plain
	// program order within RunBlock) is what makes the store visible —
	// atomic.Value is used here only because Block is declared as any, and
	// a plain field would need its own synchronization anyway.
	block atomic.Value

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// blockHolder lets block be stored in an atomic.Value despite Block being
// declared as any: atomic.Value panics if the concrete type stored varies
// between calls, so every Store wraps the block in this same pointer type.
type blockHolder struct {
	b nodegraph.Block
}

// New constructs a Pool bound to queue. The pool's goroutines are started
// by Start and must be stopped with Stop once the embedding host shuts
// down.
func New(queue *dspqueue.Queue, opts ...Option) *Pool {
	cfg := config{workerCount: runtime.NumCPU() - 1, spinLimit: 64}
	if cfg.workerCount < 1 {
		cfg.workerCount = 1
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Pool{
		cfg:   cfg,
		queue: queue,
		stop:  make(chan struct{}),
	}
	p.wakeCond = sync.NewCond(&p.wakeMu)
	return p
}

// SetQueue swaps the queue the pool drains from the next RunBlock on.
// Called by the helper thread after a topology rebuild, between blocks;
// must not be called while workers are mid-block.
func (p *Pool) SetQueue(q *dspqueue.Queue) { p.queue = q }

// Start launches the worker goroutines. Safe to call once.
func (p *Pool) Start() {
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.cfg.workerCount; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
}

// Stop signals every worker goroutine to exit and waits for them.
func (p *Pool) Stop() {
	if !p.started {
		return
	}
	close(p.stop)
	p.wakeMu.Lock()
	p.wakeCond.Broadcast()
	p.wakeMu.Unlock()
	p.wg.Wait()
}

// WorkerCount reports how many worker goroutines the pool runs.
func (p *Pool) WorkerCount() int { return p.cfg.workerCount }

// RunBlock drains the pool's current queue to completion: the helper
// (calling goroutine) resets per-item activation counters, seeds the
// runnable ring, wakes the workers, and waits for the completion counter
// to reach zero. It returns the elapsed time, so the caller can compare
// against a soft deadline and report a glitch without RunBlock itself
// needing to know the block period.
func (p *Pool) RunBlock(block nodegraph.Block) time.Duration {
	start := time.Now()

	p.block.Store(&blockHolder{b: block})
	p.queue.Reset()
	p.remain.Store(int64(len(p.queue.Items())))

	p.wakeMu.Lock()
	p.generation++
	p.wakeCond.Broadcast()
	p.wakeMu.Unlock()

	p.drainOnCallingGoroutine()

	elapsed := time.Since(start)
	if p.cfg.onGlitch != nil {
		p.cfg.onGlitch(elapsed)
	}
	return elapsed
}

// drainOnCallingGoroutine lets the helper thread itself participate as an
// extra worker while waiting, rather than blocking idle — matching the
// "+1 helper thread" design note, which has the helper join the drain
// once it has finished seeding.
func (p *Pool) drainOnCallingGoroutine() {
	spins := 0
	for p.remain.Load() > 0 {
		it, ok := p.queue.GetJob()
		if !ok {
			spins++
			if spins > p.cfg.spinLimit {
				runtime.Gosched()
				spins = 0
			}
			continue
		}
		p.runItem(it)
	}
}

func (p *Pool) workerLoop(index int) {
	defer p.wg.Done()
	if p.cfg.realtime {
		pinRealtime(index)
	}

	lastSeen := uint64(0)
	spins := 0
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		if p.remain.Load() <= 0 {
			p.waitForNextBlock(&lastSeen)
			if p.stopped() {
				return
			}
			continue
		}

		it, ok := p.queue.GetJob()
		if !ok {
			spins++
			if spins > p.cfg.spinLimit {
				runtime.Gosched()
				spins = 0
			}
			continue
		}
		p.runItem(it)
	}
}

// waitForNextBlock blocks the calling worker until RunBlock advances the
// generation counter past lastSeen, or Stop is called.
func (p *Pool) waitForNextBlock(lastSeen *uint64) {
	p.wakeMu.Lock()
	for p.generation == *lastSeen && !p.stopped() {
		p.wakeCond.Wait()
	}
	*lastSeen = p.generation
	p.wakeMu.Unlock()
}

func (p *Pool) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *Pool) runItem(it *dspqueue.Item) {
	block := p.block.Load().(*blockHolder).b
	for _, s := range it.Job() {
		s.Process(block)
	}
	p.queue.SignalFinished(it)
	p.remain.Add(-int64(1))
}
