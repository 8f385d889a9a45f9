// Package nova wires the scheduler's components — node tree, RT memory
// pool, control intake, dependency-graph generator, and worker pool —
// into a single embeddable Server, and drives the per-block lifecycle:
// drain pending mutations, rebuild the work queue if the tree went
// dirty, then run one block.
package nova

import (
	"time"

	"github.com/novasynth/novaserver/control"
	"github.com/novasynth/novaserver/dspqueue"
	"github.com/novasynth/novaserver/graphgen"
	"github.com/novasynth/novaserver/nodegraph"
	"github.com/novasynth/novaserver/rtlog"
	"github.com/novasynth/novaserver/rtpool"
	"github.com/novasynth/novaserver/workers"
)

// Option configures a Server at construction time.
type Option func(*config)

type config struct {
	deadline     time.Duration
	workerOpts   []workers.Option
	pool         *rtpool.Pool
	glitchWindow time.Duration
	glitchMax    int
}

// WithBlockDeadline sets the soft per-block deadline used for glitch
// detection. Defaults to a conservative 10ms (a 512-sample block at
// 48kHz), adjust to match the embedding host's actual buffer period.
func WithBlockDeadline(d time.Duration) Option {
	return func(c *config) { c.deadline = d }
}

// WithWorkerOptions forwards options to the underlying workers.Pool.
func WithWorkerOptions(opts ...workers.Option) Option {
	return func(c *config) { c.workerOpts = append(c.workerOpts, opts...) }
}

// WithPool supplies a pre-constructed RT memory pool, for example the
// process-wide one returned by rtpool.Init. Without it, NewServer builds a
// private pool of its own.
func WithPool(p *rtpool.Pool) Option {
	return func(c *config) { c.pool = p }
}

// WithGlitchRateLimit configures how often block-overrun warnings are
// logged: at most maxPerWindow times per window.
func WithGlitchRateLimit(window time.Duration, maxPerWindow int) Option {
	return func(c *config) { c.glitchWindow, c.glitchMax = window, maxPerWindow }
}

// Server is the embeddable scheduler facade: a node tree, the RT pools
// backing its generated queues' job and successor slices, the control
// intake non-RT threads push mutations into, and the worker pool that
// drains each block.
type Server struct {
	tree     *nodegraph.Tree
	intake   *control.Intake
	pool     *rtpool.Pool
	queue    *dspqueue.Queue
	workers  *workers.Pool
	tracker  *workers.GlitchTracker
	deadline time.Duration

	jobPool  *rtpool.SlicePool[*nodegraph.Synth]
	succPool *rtpool.SlicePool[*dspqueue.Item]
}

// NewServer constructs a Server with an empty tree rooted at rootID.
func NewServer(rootID int32, opts ...Option) *Server {
	cfg := config{deadline: 10 * time.Millisecond, glitchWindow: time.Second, glitchMax: 5}
	for _, opt := range opts {
		opt(&cfg)
	}

	pool := cfg.pool
	if pool == nil {
		pool = rtpool.New(rtpool.WithPrefill(64))
	}

	tree := nodegraph.NewTree(rootID)
	tracker := workers.NewGlitchTracker(cfg.glitchWindow, cfg.glitchMax)

	// Size classes span a single satellite through a large packed run or a
	// wide parallel group's fan-out, without ever growing past them —
	// exhaustion on the audio thread is a rebuild failure, not a heap
	// allocation, per the real-time memory pool's design.
	jobPool := rtpool.NewSlicePool[*nodegraph.Synth]([]int{1, 2, 4, 8, 16, 32, 64, 128}, false)
	succPool := rtpool.NewSlicePool[*dspqueue.Item]([]int{1, 2, 4, 8, 16, 32, 64, 128}, false)
	queue := dspqueue.NewQueueWithPools(1, jobPool, succPool)

	workerOpts := append([]workers.Option{workers.WithGlitchHandler(workers.GlitchHandler(tracker, cfg.deadline))}, cfg.workerOpts...)

	s := &Server{
		tree:     tree,
		intake:   control.NewIntake(),
		pool:     pool,
		queue:    queue,
		workers:  workers.New(queue, workerOpts...),
		tracker:  tracker,
		deadline: cfg.deadline,
		jobPool:  jobPool,
		succPool: succPool,
	}
	s.rebuild()
	return s
}

// Start launches the worker pool's goroutines.
func (s *Server) Start() { s.workers.Start() }

// Stop halts the worker pool.
func (s *Server) Stop() { s.workers.Stop() }

// Submit pushes a mutation command onto the control intake, to be applied
// on the next RunBlock call. Safe to call from any non-RT thread.
func (s *Server) Submit(c control.Command) { s.intake.Push(c) }

// Tree returns the server's node tree. Callers outside the RT thread
// must route mutations through Submit, never call Tree methods directly,
// per the concurrency model (Tree is not internally synchronized).
func (s *Server) Tree() *nodegraph.Tree { return s.tree }

// Pool returns the byte-sized RT memory pool the server was built with.
// Generated queues do not allocate from it: their job and successor
// slices come from the server's own typed slice pools.
func (s *Server) Pool() *rtpool.Pool { return s.pool }

// GlitchTracker returns the tracker counting block-deadline overruns.
func (s *Server) GlitchTracker() *workers.GlitchTracker { return s.tracker }

// RunBlock is the per-control-rate-tick entry point. It drains pending
// control commands, rebuilds the work queue if the tree went dirty, drains
// the current queue through the worker pool, and returns the block's
// elapsed processing time. block is the embedding host's per-tick audio
// buffer, passed through unexamined to every synth's Process call.
func (s *Server) RunBlock(block nodegraph.Block) time.Duration {
	s.intake.Drain(func(c control.Command) error {
		return control.Apply(s.tree, c)
	})
	if s.tree.Dirty() {
		s.rebuild()
	}
	return s.workers.RunBlock(block)
}

// rebuild regenerates the work queue from the tree's current topology.
// On a pool-exhaustion failure mid-generation, the previous queue is
// retained and rebuild is skipped for this tick — the transient-resource
// recovery policy in the error-handling design. The tree stays dirty, so
// the next RunBlock retries the rebuild.
//
// dspqueue.Validate runs outside generateWithPool's recover, deliberately:
// a DAG invariant violation is a generator bug, not a transient resource
// failure, and is meant to panic the process in a debug build rather than
// be swallowed and retried like pool exhaustion.
func (s *Server) rebuild() {
	queue, err := s.generateWithPool()
	if err != nil {
		rtlog.Warnf("nova", "queue rebuild abandoned, retaining previous queue: %v", err)
		return
	}
	dspqueue.Validate(queue, s.tree.SynthCount())

	old := s.queue
	s.queue = queue
	s.workers.SetQueue(queue)
	s.tree.ClearDirty()
	if old != nil {
		old.Release()
	}
}

// generateWithPool runs the generator, sizing the new queue's capacity
// hint from the tree's synth count so it rarely needs to grow — the
// "pessimistic pre-sizing" behavior carried over from the original
// generator's up-front queue allocation.
func (s *Server) generateWithPool() (q *dspqueue.Queue, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	q = dspqueue.NewQueueWithPools(s.tree.SynthCount(), s.jobPool, s.succPool)
	graphgen.Generate(s.tree.Root(), q)
	return q, nil
}
