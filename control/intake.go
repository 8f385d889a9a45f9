package control

import "sync"

// chunkSize is the number of commands per chunk node. Non-RT command
// traffic (OSC-bridge-style bursts of node_new_synth/node_set calls) is
// bursty but not enormous, so a modest chunk keeps per-chunk allocation
// rare without the memory cost of the teacher's 128-task microtask chunks.
const chunkSize = 64

var chunkPool = sync.Pool{
	New: func() any { return &chunk{} },
}

// chunk is a fixed-size node in Intake's chunked linked-list buffer,
// recycled through chunkPool rather than freed, so a steady stream of
// commands doesn't thrash the allocator.
type chunk struct {
	cmds    [chunkSize]Command
	next    *chunk
	readPos int
	pos     int
}

func newChunk() *chunk {
	c := chunkPool.Get().(*chunk)
	c.pos, c.readPos, c.next = 0, 0, nil
	return c
}

func returnChunk(c *chunk) {
	var zero Command
	for i := 0; i < c.pos; i++ {
		c.cmds[i] = zero
	}
	c.pos, c.readPos, c.next = 0, 0, nil
	chunkPool.Put(c)
}

// Intake is the non-RT-to-RT command queue: any number of producer
// threads push commands under Intake's own mutex; the helper thread
// drains it once per control tick without holding the lock across
// individual pops, and without allocating once steady state is reached
// (a chunk is only allocated the first time the queue grows past the
// current tail's capacity, and recycled — not freed — once drained).
type Intake struct {
	mu         sync.Mutex
	head, tail *chunk
	length     int
}

// NewIntake creates an empty command intake.
func NewIntake() *Intake {
	return &Intake{}
}

// Push enqueues a command. Safe to call concurrently from any number of
// non-RT threads.
func (q *Intake) Push(c Command) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.tail == nil {
		q.tail = newChunk()
		q.head = q.tail
	}
	if q.tail.pos == len(q.tail.cmds) {
		next := newChunk()
		q.tail.next = next
		q.tail = next
	}
	q.tail.cmds[q.tail.pos] = c
	q.tail.pos++
	q.length++
}

// Len reports the number of commands currently queued.
func (q *Intake) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// Drain applies every currently queued command, in FIFO order, via
// apply, and reports whether any of them mutated the tree (so the caller
// knows to rebuild the work queue). Commands pushed concurrently with a
// Drain call may or may not be observed in that call, by design: the
// helper thread calls Drain once per control tick and will see them next
// time.
func (q *Intake) Drain(apply func(Command) error) (mutated bool) {
	for {
		c, ok := q.pop()
		if !ok {
			return mutated
		}
		if err := apply(c); err == nil {
			mutated = true
			if c.Result != nil {
				c.Result <- nil
			}
		} else if c.Result != nil {
			c.Result <- err
		}
	}
}

func (q *Intake) pop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == nil {
		return Command{}, false
	}
	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos, q.head.readPos = 0, 0
			return Command{}, false
		}
		old := q.head
		q.head = q.head.next
		returnChunk(old)
	}
	if q.head.readPos >= q.head.pos {
		return Command{}, false
	}

	c := q.head.cmds[q.head.readPos]
	var zero Command
	q.head.cmds[q.head.readPos] = zero
	q.head.readPos++
	q.length--

	if q.head.readPos >= q.head.pos && q.head == q.tail {
		q.head.pos, q.head.readPos = 0, 0
	}
	return c, true
}
