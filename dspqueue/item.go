package dspqueue

import (
	"sync/atomic"

	"github.com/novasynth/novaserver/nodegraph"
)

// Item is one unit of scheduled work: a contiguous run of synths to
// process back-to-back (a sequential-group packing run, or a singleton for
// a lone synth), an activation counter that gates when it becomes
// runnable, and the set of items it wakes on completion.
//
// An Item's fields other than activation are fixed at generation time and
// read-only for the lifetime of the block; only activation is touched
// concurrently, by whichever workers finish the items that name this one
// as a successor.
type Item struct {
	job        []*nodegraph.Synth
	successors []*Item

	initialActivation int32
	activation         atomic.Int32
}

// Job returns the synths this item must process, in order.
func (it *Item) Job() []*nodegraph.Synth { return it.job }

// Successors returns the items to notify when this item finishes.
func (it *Item) Successors() []*Item { return it.successors }

// Activation returns the item's current activation count: the number of
// not-yet-finished predecessors still blocking it.
func (it *Item) Activation() int32 { return it.activation.Load() }

// Runnable reports whether the item's activation has reached zero.
func (it *Item) Runnable() bool { return it.activation.Load() == 0 }

// reset restores activation to its resting value, ready for the next
// block. Called only between blocks, never concurrently with a drain.
func (it *Item) reset() {
	it.activation.Store(it.initialActivation)
}

// finish decrements the activation of every successor and returns those
// that just became runnable (activation reached zero). Safe to call
// concurrently from multiple workers finishing distinct items, because
// each successor's counter is only ever decremented, never read-then-acted
// on by more than one caller at the instant it hits zero.
func (it *Item) finish() []*Item {
	var woken []*Item
	for _, succ := range it.successors {
		if succ.activation.Add(-1) == 0 {
			woken = append(woken, succ)
		}
	}
	return woken
}
