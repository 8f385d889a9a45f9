package nodegraph

// Tree is the server's node tree: a root group, an id index for O(1)
// lookup, and a dirty flag set whenever the topology changes so the
// embedding host knows to ask graphgen for a fresh work queue.
//
// Tree is not internally synchronized. Per the concurrency model, it is
// owned by a single helper thread; any other goroutine must route
// mutations through a control-intake queue rather than calling Tree
// methods directly.
type Tree struct {
	root       *Group
	nodes      map[int32]Node
	synthCount int
	dirty      bool
}

// NewTree creates a tree with an empty, running, sequential root group at
// the given id.
func NewTree(rootID int32) *Tree {
	root := NewGroup(rootID, Sequential)
	return &Tree{
		root:  root,
		nodes: map[int32]Node{rootID: root},
	}
}

func (t *Tree) Root() *Group     { return t.root }
func (t *Tree) SynthCount() int  { return t.synthCount }
func (t *Tree) Dirty() bool      { return t.dirty }
func (t *Tree) ClearDirty()      { t.dirty = false }

// Lookup finds a node by id.
func (t *Tree) Lookup(id int32) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Add inserts n at the given position. On any validation error the tree is
// left completely unchanged.
func (t *Tree) Add(n Node, pos Position) error {
	ref, ok := t.nodes[pos.Reference]
	if !ok {
		return ErrUnknownNode
	}

	newIDs := make(map[int32]Node)
	if err := t.collectSubtreeIDs(n, newIDs); err != nil {
		return err
	}

	switch pos.Placement {
	case PlaceHead:
		g, ok := ref.(*Group)
		if !ok {
			return ErrBadPlacement
		}
		g.PrependChild(n)
	case PlaceTail, PlaceInsert:
		g, ok := ref.(*Group)
		if !ok {
			return ErrBadPlacement
		}
		g.AppendChild(n)
	case PlaceBefore:
		parent := ref.Parent()
		if parent == nil {
			return ErrBadPlacement
		}
		parent.InsertChildBefore(ref, n)
	case PlaceAfter:
		parent := ref.Parent()
		if parent == nil {
			return ErrBadPlacement
		}
		parent.InsertChildAfter(ref, n)
	case PlaceReplace:
		parent := ref.Parent()
		if parent == nil {
			return ErrBadPlacement
		}
		parent.InsertChildBefore(ref, n)
		parent.RemoveChild(ref)
		ref.base().release()
		t.destroySubtree(ref)
	case PlaceSatelliteBefore:
		attachSatelliteBefore(ref, n)
	case PlaceSatelliteAfter:
		attachSatelliteAfter(ref, n)
	default:
		return ErrBadPlacement
	}

	for id, node := range newIDs {
		t.nodes[id] = node
		if node.Kind() == KindSynth {
			t.synthCount++
		}
	}
	t.dirty = true
	return nil
}

// Remove unlinks id's node (and recursively releases its subtree and
// satellites) from the tree.
func (t *Tree) Remove(id int32) error {
	n, ok := t.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	if n == Node(t.root) {
		return ErrBadPlacement
	}

	t.detachFromOwner(n)
	t.destroySubtree(n)
	t.dirty = true
	return nil
}

// RemoveAll frees every child of the group at id (group_free_all).
func (t *Tree) RemoveAll(id int32) error {
	n, ok := t.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	g, ok := n.(*Group)
	if !ok {
		return ErrBadPlacement
	}
	for c := g.FirstChild(); c != nil; {
		next := c.Next()
		g.RemoveChild(c)
		c.base().release()
		t.destroySubtree(c)
		c = next
	}
	t.dirty = true
	return nil
}

// Set forwards a scalar parameter write to the node at id, propagating to
// every synth descendant when id names a group. When id names a Synth
// directly, an out-of-range index or undeclared name is reported back as
// ErrInvalidSlot; propagated through a group, a descendant missing the
// slot is silently skipped rather than failing the whole command, since
// each descendant may declare its own distinct parameter schema.
func (t *Tree) Set(id int32, slot Slot, value float64) error {
	n, ok := t.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	if s, ok := n.(*Synth); ok {
		return s.Set(slot, value)
	}
	applySet(n, slot, value)
	return nil
}

// Run toggles the running flag on the node at id, propagating to children
// and satellites.
func (t *Tree) Run(id int32, running bool) error {
	n, ok := t.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	applyRunning(n, running)
	return nil
}

// --- internal helpers ---

func (t *Tree) collectSubtreeIDs(n Node, out map[int32]Node) error {
	if _, dup := out[n.ID()]; dup {
		return ErrDuplicateID
	}
	if _, exists := t.nodes[n.ID()]; exists {
		return ErrDuplicateID
	}
	out[n.ID()] = n

	if g, ok := n.(*Group); ok {
		for c := g.FirstChild(); c != nil; c = c.Next() {
			if err := t.collectSubtreeIDs(c, out); err != nil {
				return err
			}
		}
	}
	for _, s := range collectList(n.base().satPredHead) {
		if err := t.collectSubtreeIDs(s, out); err != nil {
			return err
		}
	}
	for _, s := range collectList(n.base().satSuccHead) {
		if err := t.collectSubtreeIDs(s, out); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) detachFromOwner(n Node) {
	nb := n.base()
	switch {
	case nb.satRef != nil:
		detachSatellite(n)
	case nb.parent != nil:
		nb.parent.RemoveChild(n)
	}
	n.base().release()
}

// destroySubtree recursively releases n's children and satellites and
// removes every id from the index. n itself must already be detached from
// its owner by the caller.
func (t *Tree) destroySubtree(n Node) {
	if g, ok := n.(*Group); ok {
		for c := g.FirstChild(); c != nil; {
			next := c.Next()
			g.RemoveChild(c)
			c.base().release()
			t.destroySubtree(c)
			c = next
		}
	}

	nb := n.base()
	for _, s := range collectList(nb.satPredHead) {
		detachSatellite(s)
		s.base().release()
		t.destroySubtree(s)
	}
	for _, s := range collectList(nb.satSuccHead) {
		detachSatellite(s)
		s.base().release()
		t.destroySubtree(s)
	}

	delete(t.nodes, n.ID())
	if n.Kind() == KindSynth {
		t.synthCount--
	}
}

func applySet(n Node, slot Slot, value float64) {
	switch v := n.(type) {
	case *Synth:
		_ = v.Set(slot, value) // best-effort while propagating through a group
	case *Group:
		for c := v.FirstChild(); c != nil; c = c.Next() {
			applySet(c, slot, value)
		}
	}
}

func applyRunning(n Node, running bool) {
	n.base().running.Store(running)
	if g, ok := n.(*Group); ok {
		for c := g.FirstChild(); c != nil; c = c.Next() {
			applyRunning(c, running)
		}
	}
	nb := n.base()
	for s := nb.satPredHead; s != nil; s = s.Next() {
		applyRunning(s, running)
	}
	for s := nb.satSuccHead; s != nil; s = s.Next() {
		applyRunning(s, running)
	}
}
