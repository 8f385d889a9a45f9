package control

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novasynth/novaserver/nodegraph"
)

func TestIntake_DrainAppliesInFIFOOrder(t *testing.T) {
	tree := nodegraph.NewTree(0)
	intake := NewIntake()

	intake.Push(NewSynthCommandWithParams(1, nil, []string{"gain"}, nodegraph.Position{Reference: 0, Placement: nodegraph.PlaceTail}))
	intake.Push(NewSynthCommand(2, nil, nodegraph.Position{Reference: 1, Placement: nodegraph.PlaceAfter}))
	intake.Push(SetCommand(1, nodegraph.SlotIndex(0), 0.25))

	mutated := intake.Drain(func(c Command) error { return Apply(tree, c) })
	assert.True(t, mutated)
	assert.Equal(t, 0, intake.Len())
	assert.Equal(t, 2, tree.SynthCount())

	n, ok := tree.Lookup(1)
	require.True(t, ok)
	s := n.(*nodegraph.Synth)
	v, _ := s.Param(nodegraph.SlotIndex(0))
	assert.Equal(t, 0.25, v)
}

func TestIntake_DrainReportsCommandErrorsWithoutStopping(t *testing.T) {
	tree := nodegraph.NewTree(0)
	intake := NewIntake()

	result := make(chan error, 1)
	intake.Push(Command{Kind: KindFree, ID: 999, Result: result})
	intake.Push(NewSynthCommand(1, nil, nodegraph.Position{Reference: 0, Placement: nodegraph.PlaceTail}))

	mutated := intake.Drain(func(c Command) error { return Apply(tree, c) })
	assert.True(t, mutated)
	assert.ErrorIs(t, <-result, nodegraph.ErrUnknownNode)
	assert.Equal(t, 1, tree.SynthCount())
}

func TestIntake_DrainReportsInvalidSlotOnSetCommand(t *testing.T) {
	tree := nodegraph.NewTree(0)
	intake := NewIntake()

	intake.Push(NewSynthCommandWithParams(1, nil, []string{"gain"}, nodegraph.Position{Reference: 0, Placement: nodegraph.PlaceTail}))

	result := make(chan error, 1)
	cmd := SetCommand(1, nodegraph.SlotIndex(5), 0.25)
	cmd.Result = result
	intake.Push(cmd)

	mutated := intake.Drain(func(c Command) error { return Apply(tree, c) })
	assert.True(t, mutated)
	assert.ErrorIs(t, <-result, nodegraph.ErrInvalidSlot)
}

func TestIntake_PushIsSafeFromMultipleProducers(t *testing.T) {
	intake := NewIntake()
	var wg sync.WaitGroup
	const producers, perProducer = 8, 50
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				intake.Push(FreeCommand(int32(base*perProducer + i)))
			}
		}(p)
	}
	wg.Wait()
	assert.Equal(t, producers*perProducer, intake.Len())

	count := 0
	intake.Drain(func(Command) error { count++; return nil })
	assert.Equal(t, producers*perProducer, count)
}

func TestIntake_DrainOnEmptyQueueIsNoop(t *testing.T) {
	intake := NewIntake()
	mutated := intake.Drain(func(Command) error { t.Fatal("apply should not be called"); return nil })
	assert.False(t, mutated)
}
