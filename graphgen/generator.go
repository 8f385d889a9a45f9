// Package graphgen compiles a node tree into a dspqueue.Queue: a reverse
// walk from the tail of the tree to its head that packs consecutive
// sequential synths into single items, treats parallel-group children as
// mutually independent, and wires satellite predecessors/successors in as
// extra edges around whatever position they're attached to.
//
// The walk direction matters: a queue item is allocated with its
// successor list already filled in, and its successors are whatever sits
// later in execution order, so those items must already exist — hence
// building back to front. Activation counts (how many predecessors must
// finish first) are computed structurally from whatever sits earlier.
package graphgen

import (
	"github.com/novasynth/novaserver/dspqueue"
	"github.com/novasynth/novaserver/nodegraph"
)

// Generate compiles root's current topology into q. q should be freshly
// constructed (or reused via a new Queue — Generate does not reset an
// existing one) with capacity sized from the tree's synth count.
func Generate(root *nodegraph.Group, q *dspqueue.Queue) {
	if root.HasSynthChildren() {
		fillGroupRecursive(root, nil, 0, q)
	}
	q.Finalize()
}

func fillGroupRecursive(g *nodegraph.Group, successors []*dspqueue.Item, activationLimit int32, q *dspqueue.Queue) []*dspqueue.Item {
	if g.IsParallel() {
		return collectParallelNodes(g.Children(), successors, activationLimit, q)
	}
	return fillGroupSequential(g, successors, activationLimit, q)
}

// fillGroupSequential walks g's children tail to head, packing runs of
// plain consecutive synths into single items and recursing into child
// groups, threading the "successors" a position should wake through the
// walk as it goes. It returns the successors the node immediately before
// g (in its own parent) should use, i.e. the items representing g's head
// position.
func fillGroupSequential(g *nodegraph.Group, successors []*dspqueue.Item, prevActivationLimit int32, q *dspqueue.Queue) []*dspqueue.Item {
	cur := g.LastChild()
	for cur != nil {
		if cur.Kind() == nodegraph.KindSynth {
			firstNode, next := sequentialHandleSynth(cur, prevActivationLimit, successors, q)
			successors = next
			cur = firstNode.Prev()
		} else {
			successors = sequentialHandleGroupNode(cur, prevActivationLimit, successors, q)
			cur = cur.Prev()
		}
	}
	return successors
}

// sequentialHandleSynth finds the maximal run of plain consecutive synths
// ending at lastNode, allocates one item for the whole run, and returns
// the run's head node (so the caller's reverse walk can skip past it) and
// the successors the run's predecessor should use.
func sequentialHandleSynth(lastNode nodegraph.Node, prevActivationLimit int32, successors []*dspqueue.Item, q *dspqueue.Queue) (nodegraph.Node, []*dspqueue.Item) {
	tailToHead, firstNode := findSynthSequenceStart(lastNode)

	activationLimit := previousActivationLimit(firstNode, prevActivationLimit)
	if firstNode.HasSatellitePredecessor() {
		activationLimit += satellitePredecessorContribution(firstNode)
	}

	job := make([]*nodegraph.Synth, len(tailToHead))
	for i, n := range tailToHead {
		job[len(tailToHead)-1-i] = n.(*nodegraph.Synth)
	}

	var item *dspqueue.Item
	if lastNode.HasSatelliteSuccessor() {
		combined := concatSuccessors(fillSatelliteSuccessors(lastNode, tailItemCount(lastNode), q), successors)
		item = q.AllocateItem(job, combined, activationLimit)
	} else {
		item = q.AllocateItem(job, successors, activationLimit)
	}

	next := []*dspqueue.Item{item}
	if firstNode.HasSatellitePredecessor() {
		fillSatellitePredecessors(firstNode, next, q)
	}
	return firstNode, next
}

// findSynthSequenceStart walks from start toward the head of its sibling
// list, collecting consecutive plain synths into one run. Only the head of
// a run may carry a satellite predecessor and only the tail may carry a
// satellite successor, so the walk stops growing past (a) a node that
// itself has a satellite predecessor — it must be the run's head — and
// (b) a candidate sibling with a satellite successor, which belongs to
// the previously built item instead. Returns the run tail-to-head, and
// the run's head node.
func findSynthSequenceStart(start nodegraph.Node) ([]nodegraph.Node, nodegraph.Node) {
	seq := []nodegraph.Node{start}
	cur := start
	for {
		if cur.HasSatellitePredecessor() {
			return seq, cur
		}
		prev := cur.Prev()
		if prev == nil {
			return seq, cur
		}
		if prev.Kind() != nodegraph.KindSynth {
			return seq, cur
		}
		if prev.HasSatelliteSuccessor() {
			return seq, cur
		}
		seq = append(seq, prev)
		cur = prev
	}
}

// sequentialHandleGroupNode processes one child group encountered during a
// sequential walk, returning the successors the preceding sibling should
// use.
func sequentialHandleGroupNode(node nodegraph.Node, prevActivationLimit int32, successors []*dspqueue.Item, q *dspqueue.Queue) []*dspqueue.Item {
	grp := node.(*nodegraph.Group)
	if !grp.HasSynthChildren() {
		return attachGroupSatellites(node, prevActivationLimit, successors, q)
	}

	activationLimit := previousActivationLimit(node, prevActivationLimit) + satellitePredecessorContribution(node)

	var result []*dspqueue.Item
	if node.HasSatelliteSuccessor() {
		result = fillGroupRecursive(grp, concatSuccessors(fillSatelliteSuccessors(node, tailItemCount(node), q), successors), activationLimit, q)
	} else {
		result = fillGroupRecursive(grp, successors, activationLimit, q)
	}

	if node.HasSatellitePredecessor() {
		fillSatellitePredecessors(node, result, q)
	}
	return result
}

// attachGroupSatellites handles a group that has no synth descendants of
// its own: there is no item to allocate for it, but its satellites still
// need wiring. Its satellite successors fold into the successors set
// whatever sits before it inherits, and its satellite predecessors still
// depend on that same merged set — the empty group is otherwise
// transparent to the chain running through it.
//
// Because the group produces no item of its own, anything depending on
// "the group finishing" really depends on two separate, uncombined
// things: its own satellite predecessors, and whatever preceded the
// group in its parent's chain (found by continuing the walk past it).
// transparentActivationLimit sums both, since both end up as independent
// edges into whatever sits downstream — a single combined edge the way a
// non-empty group's own tail item would otherwise provide.
func attachGroupSatellites(node nodegraph.Node, prevActivationLimit int32, successors []*dspqueue.Item, q *dspqueue.Queue) []*dspqueue.Item {
	result := successors
	if node.HasSatelliteSuccessor() {
		limit := transparentActivationLimit(node, prevActivationLimit)
		result = concatSuccessors(fillSatelliteSuccessors(node, limit, q), successors)
	}
	if node.HasSatellitePredecessor() {
		fillSatellitePredecessors(node, result, q)
	}
	return result
}

// transparentActivationLimit computes the activation an empty group's
// satellite successors (and, transitively, whatever sits after the group
// in its parent's chain) should see: the group's own satellite
// predecessors' contribution, plus whatever would have fed the group's
// position had it not been empty.
func transparentActivationLimit(node nodegraph.Node, prevActivationLimit int32) int32 {
	return satellitePredecessorContribution(node) + previousActivationLimit(node, prevActivationLimit)
}

// collectParallelNodes processes a list of mutually-independent nodes
// (a parallel group's children, or a satellite list) and returns every
// item produced across all of them.
func collectParallelNodes(nodes []nodegraph.Node, successors []*dspqueue.Item, activationLimit int32, q *dspqueue.Queue) []*dspqueue.Item {
	var collected []*dspqueue.Item
	for _, n := range nodes {
		thisLimit := activationLimit + satellitePredecessorContribution(n)
		if n.Kind() == nodegraph.KindSynth {
			collected = append(collected, parallelHandleSynthNode(n, successors, thisLimit, q)...)
		} else {
			collected = append(collected, parallelHandleGroupNode(n, successors, thisLimit, q)...)
		}
	}
	return collected
}

func parallelHandleSynthNode(n nodegraph.Node, successors []*dspqueue.Item, activationLimit int32, q *dspqueue.Queue) []*dspqueue.Item {
	job := []*nodegraph.Synth{n.(*nodegraph.Synth)}

	var item *dspqueue.Item
	if n.HasSatelliteSuccessor() {
		item = q.AllocateItem(job, concatSuccessors(successors, fillSatelliteSuccessors(n, tailItemCount(n), q)), activationLimit)
	} else {
		item = q.AllocateItem(job, successors, activationLimit)
	}

	if n.HasSatellitePredecessor() {
		fillSatellitePredecessors(n, []*dspqueue.Item{item}, q)
	}
	return []*dspqueue.Item{item}
}

// parallelHandleGroupNode processes one group child of a parallel group.
// Unlike the sequential case, an empty group here has no "position" its
// satellites could meaningfully attach to — nothing is before or after it
// in an unordered group — so its satellites are dropped, matching the
// reference implementation.
func parallelHandleGroupNode(n nodegraph.Node, successors []*dspqueue.Item, activationLimit int32, q *dspqueue.Queue) []*dspqueue.Item {
	grp := n.(*nodegraph.Group)
	if !grp.HasSynthChildren() {
		return nil
	}

	var result []*dspqueue.Item
	if n.HasSatelliteSuccessor() {
		result = fillGroupRecursive(grp, concatSuccessors(successors, fillSatelliteSuccessors(n, tailItemCount(n), q)), activationLimit, q)
	} else {
		result = fillGroupRecursive(grp, successors, activationLimit, q)
	}

	if n.HasSatellitePredecessor() {
		fillSatellitePredecessors(n, result, q)
	}
	return result
}

// fillSatelliteSuccessors builds items for node's satellite successors,
// activated once limit predecessor edges finish. limit is usually
// node's own tail item count, except for a satellite-bearing empty group
// (see transparentActivationLimit), where node produces no tail of its
// own to count.
func fillSatelliteSuccessors(node nodegraph.Node, limit int32, q *dspqueue.Queue) []*dspqueue.Item {
	return collectParallelNodes(node.SatelliteSuccessors(), nil, limit, q)
}

// fillSatellitePredecessors builds items for node's satellite
// predecessors. They have no predecessor of their own (activation 0,
// always initially runnable) and feed directly into successors.
func fillSatellitePredecessors(node nodegraph.Node, successors []*dspqueue.Item, q *dspqueue.Queue) {
	for _, p := range node.SatellitePredecessors() {
		if p.Kind() == nodegraph.KindSynth {
			q.AllocateItem([]*nodegraph.Synth{p.(*nodegraph.Synth)}, successors, 0)
		} else if grp := p.(*nodegraph.Group); grp.HasSynthChildren() {
			fillGroupRecursive(grp, successors, 0, q)
		}
	}
}

// satellitePredecessorContribution sums the activation a node's satellite
// predecessors add: 1 per synth, or its tail item count per group.
func satellitePredecessorContribution(n nodegraph.Node) int32 {
	var sum int32
	for _, p := range n.SatellitePredecessors() {
		if p.Kind() == nodegraph.KindSynth {
			sum++
		} else {
			sum += tailItemCount(p)
		}
	}
	return sum
}

// directTailItemCount is tailItemCount without the empty-group fallback:
// 1 for a synth; for a sequential group, the tail count of its last
// child whose tail count is nonzero (trailing children counting zero are
// skipped); for a parallel group, the sum of every child's tail count,
// where a child group with no synth beneath it counts zero because
// parallelHandleGroupNode drops it, satellites included. Zero means n produces no
// item of its own to depend on — either it has no children, or every
// child is itself empty with nothing of its own either.
func directTailItemCount(n nodegraph.Node) int32 {
	if n.Kind() == nodegraph.KindSynth {
		return 1
	}

	g := n.(*nodegraph.Group)
	if g.IsParallel() {
		var sum int32
		for _, c := range g.Children() {
			if cg, ok := c.(*nodegraph.Group); ok && !cg.HasSynthChildren() {
				continue
			}
			sum += tailItemCount(c)
		}
		return sum
	}
	for c := g.LastChild(); c != nil; c = c.Prev() {
		if c.Kind() == nodegraph.KindSynth {
			return 1
		}
		if t := tailItemCount(c); t != 0 {
			return t
		}
	}
	return 0
}

// tailItemCount returns the number of queue items whose completion marks
// n as finished. If n's direct tail count is zero (every child is empty,
// or it has none), its own satellite predecessors' contribution stands
// in instead — an empty group with neither contributes zero.
func tailItemCount(n nodegraph.Node) int32 {
	if d := directTailItemCount(n); d != 0 {
		return d
	}
	return satellitePredecessorContribution(n)
}

// previousActivationLimit finds the activation count whatever sits
// immediately before it (within its own parent's child list) contributes.
// A preceding synth always contributes 1. A preceding group with a
// direct tail contributes that tail count and stops there, since that
// tail is a single real item already carrying its own satellite
// predecessors' contribution internally. A preceding group with no
// direct tail is transparent: its own satellite predecessors' contribution
// is added as a separate edge and the walk continues past it toward the
// head, accumulating every such empty group's contribution along the
// way. Running off the head of the list falls back to parentLimit, the
// count inherited from the enclosing context.
func previousActivationLimit(it nodegraph.Node, parentLimit int32) int32 {
	var sum int32
	for {
		prev := it.Prev()
		if prev == nil {
			return sum + parentLimit
		}
		if prev.Kind() == nodegraph.KindSynth {
			return sum + 1
		}
		if t := directTailItemCount(prev); t != 0 {
			return sum + t
		}
		sum += satellitePredecessorContribution(prev)
		it = prev
	}
}

func concatSuccessors(a, b []*dspqueue.Item) []*dspqueue.Item {
	out := make([]*dspqueue.Item, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
