package workers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/novasynth/novaserver/dspqueue"
	"github.com/novasynth/novaserver/nodegraph"
)

func buildLinearQueue(n int) (*dspqueue.Queue, *int64) {
	q := dspqueue.NewQueue(n)
	var executed int64

	var prev *dspqueue.Item
	items := make([]*dspqueue.Item, n)
	for i := n - 1; i >= 0; i-- {
		id := int32(i)
		process := func(nodegraph.Block) { atomic.AddInt64(&executed, 1) }
		var succs []*dspqueue.Item
		limit := int32(0)
		if prev != nil {
			succs = []*dspqueue.Item{prev}
		}
		if i > 0 {
			limit = 1
		}
		it := q.AllocateItem([]*nodegraph.Synth{nodegraph.NewSynth(id, process)}, succs, limit)
		items[i] = it
		prev = it
	}
	q.Finalize()
	return q, &executed
}

func TestPool_RunBlockDrainsEveryItemExactlyOnce(t *testing.T) {
	q, executed := buildLinearQueue(20)
	dspqueue.Validate(q, 20)

	p := New(q, WithWorkerCount(4), WithSpinLimit(4))
	p.Start()
	defer p.Stop()

	p.RunBlock(nil)
	assert.Equal(t, int64(20), atomic.LoadInt64(executed))
}

func TestPool_RunBlockIsRepeatableAfterReset(t *testing.T) {
	q, executed := buildLinearQueue(8)
	p := New(q, WithWorkerCount(2))
	p.Start()
	defer p.Stop()

	for block := 0; block < 5; block++ {
		p.RunBlock(nil)
	}
	assert.Equal(t, int64(8*5), atomic.LoadInt64(executed))
}

func TestPool_GlitchHandlerFiresOnOverrun(t *testing.T) {
	q, _ := buildLinearQueue(1)
	tracker := NewGlitchTracker(time.Second, 10)

	p := New(q, WithWorkerCount(1), WithGlitchHandler(GlitchHandler(tracker, -1*time.Nanosecond)))
	p.Start()
	defer p.Stop()

	p.RunBlock(nil)
	assert.Equal(t, int64(1), tracker.Total())
}

func TestPool_WorkerCountDefaultsToAtLeastOne(t *testing.T) {
	q, _ := buildLinearQueue(1)
	p := New(q)
	assert.GreaterOrEqual(t, p.WorkerCount(), 1)
}
