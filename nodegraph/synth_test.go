package nodegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynth_SetAcceptsDeclaredIndexAndName(t *testing.T) {
	s := NewSynth(1, nil, "freq", "gain")

	require.NoError(t, s.Set(SlotIndex(0), 440))
	require.NoError(t, s.Set(SlotName("gain"), 0.5))

	freq, ok := s.Param(SlotName("freq"))
	require.True(t, ok)
	assert.Equal(t, 440.0, freq)

	gain, ok := s.Param(SlotIndex(1))
	require.True(t, ok)
	assert.Equal(t, 0.5, gain)
}

func TestSynth_SetRejectsOutOfRangeIndex(t *testing.T) {
	s := NewSynth(1, nil, "freq")
	assert.ErrorIs(t, s.Set(SlotIndex(1), 1), ErrInvalidSlot)
	assert.ErrorIs(t, s.Set(SlotIndex(-1), 1), ErrInvalidSlot)
}

func TestSynth_SetRejectsUndeclaredName(t *testing.T) {
	s := NewSynth(1, nil, "freq")
	assert.ErrorIs(t, s.Set(SlotName("gain"), 1), ErrInvalidSlot)
}

func TestSynth_SetRejectsAnySlotWhenNoneDeclared(t *testing.T) {
	s := NewSynth(1, nil)
	assert.ErrorIs(t, s.Set(SlotIndex(0), 1), ErrInvalidSlot)
	assert.ErrorIs(t, s.Set(SlotName("freq"), 1), ErrInvalidSlot)
}

func TestSynth_SetArrayRejectsInvalidSlotAndLeavesStoreUntouched(t *testing.T) {
	s := NewSynth(1, nil, "freq")
	require.NoError(t, s.SetArray(SlotIndex(0), []float64{1, 2, 3}))

	err := s.SetArray(SlotIndex(1), []float64{4, 5})
	assert.ErrorIs(t, err, ErrInvalidSlot)

	arr, ok := s.ParamArray(SlotIndex(0))
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, arr)
}
