package nodegraph

import "sync/atomic"

// Node is the common surface of Synth and Group. It is implemented by
// *Synth and *Group; callers type-switch (or check Kind()) to dispatch,
// per the tagged-variant design note rather than virtual dispatch.
type Node interface {
	ID() int32
	Kind() Kind
	IsRunning() bool
	Parent() *Group

	// Prev and Next walk the list that currently owns this node: either a
	// parent group's child list, or a satellite-reference node's
	// predecessor/successor list. graphgen's reverse walk follows Prev().
	Prev() Node
	Next() Node

	HasSatellite() bool
	HasSatellitePredecessor() bool
	HasSatelliteSuccessor() bool
	SatellitePredecessors() []Node
	SatelliteSuccessors() []Node

	addRef()
	release() bool // true if this call dropped the count to zero

	base() *nodeBase
}

// nodeBase holds every field common to Synth and Group: identity, the
// parent back-reference, the satellite machinery, and the intrusive
// sibling linkage. A node is a member of exactly one owner list at a
// time — its parent's child list, or a satellite-reference's
// predecessor/successor list — realized via the single prev/next pair
// below, per the "intrusive linkage" design note.
type nodeBase struct {
	id      int32
	running atomic.Bool
	refs    atomic.Int32

	parent *Group // weak: the parent owns us through its child list

	// self is set by Synth/Group constructors so nodeBase methods that
	// need to hand back the owning Node (e.g. when walking the satellite
	// lists) can do so without requiring every caller to pass it in.
	self Node

	// owner-list membership: the list we currently belong to (nil/nil if
	// we are the sole member or unlinked).
	prev, next Node

	// satellite-reference: the node we are a satellite of, weak (cleared
	// on detach). nil if this node is not a satellite of anything.
	satRef  Node
	satSide satSide

	// satellite lists this node owns: other nodes attached to us.
	satPredHead, satPredTail Node
	satPredCount             int
	satSuccHead, satSuccTail Node
	satSuccCount             int
}

func (b *nodeBase) ID() int32        { return b.id }
func (b *nodeBase) IsRunning() bool  { return b.running.Load() }
func (b *nodeBase) Parent() *Group   { return b.parent }
func (b *nodeBase) Prev() Node       { return b.prev }
func (b *nodeBase) Next() Node       { return b.next }
func (b *nodeBase) base() *nodeBase  { return b }

func (b *nodeBase) HasSatellite() bool {
	return b.satPredCount+b.satSuccCount != 0
}

func (b *nodeBase) HasSatellitePredecessor() bool { return b.satPredCount != 0 }
func (b *nodeBase) HasSatelliteSuccessor() bool    { return b.satSuccCount != 0 }

func (b *nodeBase) SatellitePredecessors() []Node {
	return collectList(b.satPredHead)
}

func (b *nodeBase) SatelliteSuccessors() []Node {
	return collectList(b.satSuccHead)
}

func collectList(head Node) []Node {
	var out []Node
	for n := head; n != nil; n = n.base().next {
		out = append(out, n)
	}
	return out
}

func (b *nodeBase) addRef() { b.refs.Add(1) }

// release decrements the reference count and reports whether it reached
// zero. The caller (Tree.Remove) is responsible for actually destroying
// the node once every owner has released it and it has been unlinked from
// every list.
func (b *nodeBase) release() bool {
	return b.refs.Add(-1) == 0
}

// --- intrusive list primitives, shared by child lists and satellite lists ---

// listAppend links n onto the tail of the list described by (head, tail).
func listAppend(head, tail *Node, n Node) {
	nb := n.base()
	nb.prev, nb.next = nil, nil
	if *tail == nil {
		*head, *tail = n, n
		return
	}
	(*tail).base().next = n
	nb.prev = *tail
	*tail = n
}

// listPrepend links n onto the head of the list described by (head, tail).
func listPrepend(head, tail *Node, n Node) {
	nb := n.base()
	nb.prev, nb.next = nil, nil
	if *head == nil {
		*head, *tail = n, n
		return
	}
	(*head).base().prev = n
	nb.next = *head
	*head = n
}

// listInsertBefore inserts n immediately before ref in the list described
// by (head, tail).
func listInsertBefore(head, tail *Node, ref, n Node) {
	rb := ref.base()
	nb := n.base()
	nb.prev, nb.next = rb.prev, ref
	if rb.prev != nil {
		rb.prev.base().next = n
	} else {
		*head = n
	}
	rb.prev = n
}

// listInsertAfter inserts n immediately after ref in the list described by
// (head, tail).
func listInsertAfter(head, tail *Node, ref, n Node) {
	rb := ref.base()
	nb := n.base()
	nb.prev, nb.next = ref, rb.next
	if rb.next != nil {
		rb.next.base().prev = n
	} else {
		*tail = n
	}
	rb.next = n
}

// listUnlink removes n from the list described by (head, tail). O(1), no
// heap traffic.
func listUnlink(head, tail *Node, n Node) {
	nb := n.base()
	if nb.prev != nil {
		nb.prev.base().next = nb.next
	} else if *head == n {
		*head = nb.next
	}
	if nb.next != nil {
		nb.next.base().prev = nb.prev
	} else if *tail == n {
		*tail = nb.prev
	}
	nb.prev, nb.next = nil, nil
}

// satSide records which of a reference node's two satellite lists a node
// currently belongs to, so detachSatellite can unlink it without scanning
// either list to find out.
type satSide int8

const (
	satSideNone satSide = iota
	satSidePred
	satSideSucc
)

// attachSatelliteBefore makes n a satellite-predecessor of ref: n hangs off
// ref's predecessor list rather than being a child of ref's parent.
func attachSatelliteBefore(ref, n Node) {
	rb := ref.base()
	listPrepend(&rb.satPredHead, &rb.satPredTail, n)
	rb.satPredCount++
	initSatellite(n, ref, satSidePred)
}

// attachSatelliteAfter makes n a satellite-successor of ref.
func attachSatelliteAfter(ref, n Node) {
	rb := ref.base()
	listPrepend(&rb.satSuccHead, &rb.satSuccTail, n)
	rb.satSuccCount++
	initSatellite(n, ref, satSideSucc)
}

func initSatellite(n, ref Node, side satSide) {
	nb := n.base()
	nb.satRef = ref
	nb.satSide = side
	nb.parent = ref.base().parent
	nb.addRef()
}

// detachSatellite removes n from whichever satellite list of its reference
// node currently owns it. O(1): satSide records which list that is, so no
// scan is needed to tell predecessor from successor.
func detachSatellite(n Node) {
	nb := n.base()
	ref := nb.satRef
	if ref == nil {
		return
	}
	rb := ref.base()
	switch nb.satSide {
	case satSidePred:
		listUnlink(&rb.satPredHead, &rb.satPredTail, n)
		rb.satPredCount--
	case satSideSucc:
		listUnlink(&rb.satSuccHead, &rb.satSuccTail, n)
		rb.satSuccCount--
	}
	nb.satRef = nil
	nb.satSide = satSideNone
	nb.parent = nil
}

// IsSatellite reports whether n is currently attached as a satellite of
// some reference node.
func IsSatellite(n Node) bool {
	return n.base().satRef != nil
}

// SatelliteReference returns the node n is a satellite of, or nil.
func SatelliteReference(n Node) Node {
	return n.base().satRef
}
