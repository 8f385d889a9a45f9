package nodegraph

// Group is an internal node with an ordered list of child nodes, either
// Sequential (children run head-to-tail) or Parallel (children run with
// no mutual ordering).
type Group struct {
	nodeBase
	groupKind            GroupKind
	childHead, childTail Node
	childCount           int
}

// NewGroup creates an empty, running group of the given variant.
func NewGroup(id int32, kind GroupKind) *Group {
	g := &Group{groupKind: kind}
	g.id = id
	g.running.Store(true)
	g.self = g
	return g
}

func (g *Group) Kind() Kind           { return KindGroup }
func (g *Group) GroupKind() GroupKind { return g.groupKind }
func (g *Group) IsParallel() bool     { return g.groupKind == Parallel }
func (g *Group) ChildCount() int      { return g.childCount }

// FirstChild and LastChild expose the intrusive child list's ends; callers
// walk it via Node.Next()/Node.Prev(). graphgen's reverse tree walk starts
// at LastChild and follows Prev().
func (g *Group) FirstChild() Node { return g.childHead }
func (g *Group) LastChild() Node  { return g.childTail }

// Children materializes the child list head to tail. Used by code that
// wants to iterate a parallel group's children independently of the
// intrusive list (graphgen's parallel-node collection), at the cost of
// one slice allocation.
func (g *Group) Children() []Node {
	return collectList(g.childHead)
}

// HasSynthChildren reports whether this subtree contains at least one
// synth anywhere beneath it — an empty group, or a group containing only
// other empty groups, returns false.
func (g *Group) HasSynthChildren() bool {
	for n := g.childHead; n != nil; n = n.Next() {
		switch n.Kind() {
		case KindSynth:
			return true
		case KindGroup:
			if n.(*Group).HasSynthChildren() {
				return true
			}
		}
	}
	return false
}

// AppendChild links n as the new tail child (placement "tail").
func (g *Group) AppendChild(n Node) {
	listAppend(&g.childHead, &g.childTail, n)
	g.adopt(n)
}

// PrependChild links n as the new head child (placement "head").
func (g *Group) PrependChild(n Node) {
	listPrepend(&g.childHead, &g.childTail, n)
	g.adopt(n)
}

// InsertChildBefore links n immediately before ref (placement "before").
func (g *Group) InsertChildBefore(ref, n Node) {
	listInsertBefore(&g.childHead, &g.childTail, ref, n)
	g.adopt(n)
}

// InsertChildAfter links n immediately after ref (placement "after").
func (g *Group) InsertChildAfter(ref, n Node) {
	listInsertAfter(&g.childHead, &g.childTail, ref, n)
	g.adopt(n)
}

func (g *Group) adopt(n Node) {
	nb := n.base()
	nb.parent = g
	nb.addRef()
	g.childCount++
}

// RemoveChild unlinks n from this group's child list. The caller is
// responsible for releasing the reference the group held.
func (g *Group) RemoveChild(n Node) {
	listUnlink(&g.childHead, &g.childTail, n)
	n.base().parent = nil
	g.childCount--
}
