package graphgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novasynth/novaserver/dspqueue"
	"github.com/novasynth/novaserver/nodegraph"
)

func noop(nodegraph.Block) {}

func add(t *testing.T, tree *nodegraph.Tree, n nodegraph.Node, ref int32, placement nodegraph.Placement) {
	t.Helper()
	require.NoError(t, tree.Add(n, nodegraph.Position{Reference: ref, Placement: placement}))
}

func TestGenerate_OneSynth(t *testing.T) {
	tree := nodegraph.NewTree(0)
	s := nodegraph.NewSynth(1000, noop)
	add(t, tree, s, 0, nodegraph.PlaceTail)

	q := dspqueue.NewQueue(tree.SynthCount())
	Generate(tree.Root(), q)

	require.Len(t, q.Items(), 1)
	item := q.Items()[0]
	assert.Equal(t, []*nodegraph.Synth{s}, item.Job())
	assert.Equal(t, int32(0), item.Activation())
	assert.Empty(t, item.Successors())

	executed := 0
	q.Drain(func(it *dspqueue.Item) { executed += len(it.Job()) })
	assert.Equal(t, 1, executed)
}

func TestGenerate_TwoSatellitesAroundOneSynth(t *testing.T) {
	tree := nodegraph.NewTree(0)
	s1 := nodegraph.NewSynth(1000, noop)
	add(t, tree, s1, 0, nodegraph.PlaceTail)
	s2 := nodegraph.NewSynth(1001, noop)
	add(t, tree, s2, 1000, nodegraph.PlaceSatelliteBefore)
	s3 := nodegraph.NewSynth(1002, noop)
	add(t, tree, s3, 1000, nodegraph.PlaceSatelliteAfter)

	q := dspqueue.NewQueue(tree.SynthCount())
	Generate(tree.Root(), q)
	require.Len(t, q.Items(), 3)

	byJob := indexByFirstSynth(q.Items())
	item1, item2, item3 := byJob[s1], byJob[s2], byJob[s3]

	assert.Equal(t, int32(0), item2.Activation())
	assert.Equal(t, []*dspqueue.Item{item1}, item2.Successors())

	assert.Equal(t, int32(1), item1.Activation())
	assert.Equal(t, []*dspqueue.Item{item3}, item1.Successors())

	assert.Equal(t, int32(1), item3.Activation())

	executed := 0
	q.Drain(func(it *dspqueue.Item) { executed += len(it.Job()) })
	assert.Equal(t, 3, executed)
}

func TestGenerate_RealAndSatellitePredecessorsSuccessors(t *testing.T) {
	tree := nodegraph.NewTree(0)
	s1 := nodegraph.NewSynth(1000, noop)
	add(t, tree, s1, 0, nodegraph.PlaceTail)
	s2 := nodegraph.NewSynth(999, noop)
	add(t, tree, s2, 1000, nodegraph.PlaceBefore)
	s3 := nodegraph.NewSynth(1001, noop)
	add(t, tree, s3, 1000, nodegraph.PlaceAfter)
	sat1 := nodegraph.NewSynth(1009, noop)
	add(t, tree, sat1, 1000, nodegraph.PlaceSatelliteBefore)
	sat2 := nodegraph.NewSynth(1011, noop)
	add(t, tree, sat2, 1000, nodegraph.PlaceSatelliteAfter)

	q := dspqueue.NewQueue(tree.SynthCount())
	Generate(tree.Root(), q)
	require.Len(t, q.Items(), 5)

	byJob := indexByFirstSynth(q.Items())
	itemS1, itemS2, itemSat1 := byJob[s1], byJob[s2], byJob[sat1]

	assert.Equal(t, int32(0), itemS2.Activation())
	assert.Equal(t, int32(0), itemSat1.Activation())
	assert.Equal(t, int32(2), itemS1.Activation())
	assert.ElementsMatch(t, []*dspqueue.Item{itemS2, itemSat1}, predecessorsOf(q.Items(), itemS1))

	woken := itemS1.Successors()
	assert.Len(t, woken, 2)
}

func TestGenerate_ParallelGroup(t *testing.T) {
	const n = 4
	tree := nodegraph.NewTree(0)
	p := nodegraph.NewSynth(1, noop)
	add(t, tree, p, 0, nodegraph.PlaceTail)

	pg := nodegraph.NewGroup(2, nodegraph.Parallel)
	add(t, tree, pg, 1, nodegraph.PlaceAfter)

	synths := make([]*nodegraph.Synth, n)
	for i := 0; i < n; i++ {
		synths[i] = nodegraph.NewSynth(int32(100+i), noop)
		add(t, tree, synths[i], 2, nodegraph.PlaceTail)
	}

	qNode := nodegraph.NewSynth(3, noop)
	add(t, tree, qNode, 2, nodegraph.PlaceAfter)

	q := dspqueue.NewQueue(tree.SynthCount())
	Generate(tree.Root(), q)
	require.Len(t, q.Items(), n+2)

	byJob := indexByFirstSynth(q.Items())
	itemP, itemQ := byJob[p], byJob[qNode]

	assert.Equal(t, int32(0), itemP.Activation())
	assert.Equal(t, int32(n), itemQ.Activation())
	for _, s := range synths {
		assert.Equal(t, int32(1), byJob[s].Activation())
	}

	dspqueue.Validate(q, tree.SynthCount())

	executed := make([]int32, 0, n+2)
	q.Drain(func(it *dspqueue.Item) {
		for _, s := range it.Job() {
			executed = append(executed, s.ID())
		}
	})
	assert.Len(t, executed, n+2)
	assert.Equal(t, int32(1), executed[0])
	assert.Equal(t, int32(3), executed[len(executed)-1])
}

func TestGenerate_GroupWithTwoSynthsPlusNeighborsAndSatellites(t *testing.T) {
	tree := nodegraph.NewTree(0)
	g := nodegraph.NewGroup(1000, nodegraph.Sequential)
	add(t, tree, g, 0, nodegraph.PlaceTail)
	s1a := nodegraph.NewSynth(2000, noop)
	add(t, tree, s1a, 1000, nodegraph.PlaceTail)
	s1b := nodegraph.NewSynth(2001, noop)
	add(t, tree, s1b, 1000, nodegraph.PlaceTail)
	s2 := nodegraph.NewSynth(999, noop)
	add(t, tree, s2, 1000, nodegraph.PlaceBefore)
	s3 := nodegraph.NewSynth(1001, noop)
	add(t, tree, s3, 1000, nodegraph.PlaceAfter)
	sat1 := nodegraph.NewSynth(1900, noop)
	add(t, tree, sat1, 1000, nodegraph.PlaceSatelliteBefore)
	sat2 := nodegraph.NewSynth(2100, noop)
	add(t, tree, sat2, 1000, nodegraph.PlaceSatelliteAfter)

	q := dspqueue.NewQueue(tree.SynthCount())
	Generate(tree.Root(), q)
	require.Len(t, q.Items(), 5)
	dspqueue.Validate(q, tree.SynthCount())

	byJob := indexByFirstSynth(q.Items())
	itemG, itemS2, itemS3, itemSat1, itemSat2 := byJob[s1a], byJob[s2], byJob[s3], byJob[sat1], byJob[sat2]

	assert.Equal(t, []*nodegraph.Synth{s1a, s1b}, itemG.Job())
	assert.Equal(t, int32(2), itemG.Activation())
	assert.ElementsMatch(t, []*dspqueue.Item{itemS2, itemSat1}, predecessorsOf(q.Items(), itemG))

	// s3's activation depends only on g's single tail item, regardless of
	// how many synths that item packs.
	assert.Equal(t, int32(1), itemS3.Activation())
	assert.ElementsMatch(t, []*dspqueue.Item{itemG}, predecessorsOf(q.Items(), itemS3))
	assert.Equal(t, int32(1), itemSat2.Activation())

	executed := 0
	q.Drain(func(it *dspqueue.Item) { executed += len(it.Job()) })
	assert.Equal(t, 6, executed)
}

func TestGenerate_EmptyGroupWithNeighborsAndSatellites(t *testing.T) {
	tree := nodegraph.NewTree(0)
	g := nodegraph.NewGroup(1000, nodegraph.Sequential)
	add(t, tree, g, 0, nodegraph.PlaceTail)
	s2 := nodegraph.NewSynth(999, noop)
	add(t, tree, s2, 1000, nodegraph.PlaceBefore)
	s3 := nodegraph.NewSynth(1001, noop)
	add(t, tree, s3, 1000, nodegraph.PlaceAfter)
	sat1 := nodegraph.NewSynth(1900, noop)
	add(t, tree, sat1, 1000, nodegraph.PlaceSatelliteBefore)
	sat2 := nodegraph.NewSynth(2100, noop)
	add(t, tree, sat2, 1000, nodegraph.PlaceSatelliteAfter)

	q := dspqueue.NewQueue(tree.SynthCount())
	Generate(tree.Root(), q)
	require.Len(t, q.Items(), 4)
	dspqueue.Validate(q, tree.SynthCount())

	byJob := indexByFirstSynth(q.Items())
	itemS2, itemS3, itemSat1, itemSat2 := byJob[s2], byJob[s3], byJob[sat1], byJob[sat2]

	// g is empty, so s2 (the real predecessor) and sat1 (g's satellite
	// predecessor) both become independent edges into whatever sits after
	// g, rather than being combined through a single item for g.
	assert.Equal(t, int32(0), itemS2.Activation())
	assert.Equal(t, int32(0), itemSat1.Activation())
	assert.Equal(t, int32(2), itemS3.Activation())
	assert.Equal(t, int32(2), itemSat2.Activation())
	assert.ElementsMatch(t, []*dspqueue.Item{itemS2, itemSat1}, predecessorsOf(q.Items(), itemS3))
	assert.ElementsMatch(t, []*dspqueue.Item{itemS2, itemSat1}, predecessorsOf(q.Items(), itemSat2))

	// sat2 is reachable through the same chain that would have been g's
	// tail — s2's item explicitly lists it as a successor.
	assert.Contains(t, itemS2.Successors(), itemSat2)

	executed := 0
	q.Drain(func(it *dspqueue.Item) { executed += len(it.Job()) })
	assert.Equal(t, 4, executed)
}

func TestGenerate_SequentialRunPacking(t *testing.T) {
	tree := nodegraph.NewTree(0)
	s1 := nodegraph.NewSynth(1, noop)
	add(t, tree, s1, 0, nodegraph.PlaceTail)
	s2 := nodegraph.NewSynth(2, noop)
	add(t, tree, s2, 1, nodegraph.PlaceAfter)
	s3 := nodegraph.NewSynth(3, noop)
	add(t, tree, s3, 2, nodegraph.PlaceAfter)

	q := dspqueue.NewQueue(tree.SynthCount())
	Generate(tree.Root(), q)

	require.Len(t, q.Items(), 1)
	assert.Equal(t, []*nodegraph.Synth{s1, s2, s3}, q.Items()[0].Job())
}

func TestGenerate_SynthCountMatchesTree(t *testing.T) {
	tree := nodegraph.NewTree(0)
	g := nodegraph.NewGroup(1, nodegraph.Sequential)
	add(t, tree, g, 0, nodegraph.PlaceTail)
	a := nodegraph.NewSynth(10, noop)
	add(t, tree, a, 1, nodegraph.PlaceTail)
	b := nodegraph.NewSynth(11, noop)
	add(t, tree, b, 1, nodegraph.PlaceTail)

	q := dspqueue.NewQueue(tree.SynthCount())
	Generate(tree.Root(), q)

	assert.Equal(t, tree.SynthCount(), q.SynthCount())
	dspqueue.Validate(q, tree.SynthCount())
}

func indexByFirstSynth(items []*dspqueue.Item) map[*nodegraph.Synth]*dspqueue.Item {
	out := make(map[*nodegraph.Synth]*dspqueue.Item, len(items))
	for _, it := range items {
		if len(it.Job()) > 0 {
			out[it.Job()[0]] = it
		}
	}
	return out
}

func predecessorsOf(items []*dspqueue.Item, target *dspqueue.Item) []*dspqueue.Item {
	var out []*dspqueue.Item
	for _, it := range items {
		for _, s := range it.Successors() {
			if s == target {
				out = append(out, it)
			}
		}
	}
	return out
}
