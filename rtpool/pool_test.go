package rtpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_AllocReturnsZeroedBlockFromMatchingClass(t *testing.T) {
	p := New(WithPrefill(2))

	blk, err := p.Alloc(50)
	require.NoError(t, err)
	assert.Equal(t, 50, len(blk))
	assert.Equal(t, 64, cap(blk))
	for _, b := range blk {
		assert.Equal(t, byte(0), b)
	}
}

func TestPool_FreeReusesBlockWithoutGrowingFreeList(t *testing.T) {
	p := New(WithPrefill(1))

	blk, err := p.Alloc(32)
	require.NoError(t, err)
	for i := range blk {
		blk[i] = 0xFF
	}
	p.Free(blk)

	blk2, err := p.Alloc(32)
	require.NoError(t, err)
	for _, b := range blk2 {
		assert.Equal(t, byte(0), b, "reused block must be zeroed")
	}
	p.Free(blk2)
	assert.True(t, p.Idle())
}

func TestPool_AllocFailsWhenClassExhaustedAndGrowthDisabled(t *testing.T) {
	p := New(WithPrefill(1))

	_, err := p.Alloc(32)
	require.NoError(t, err)
	_, err = p.Alloc(32)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestPool_WithGrowthFallsBackToHeapOnExhaustion(t *testing.T) {
	p := New(WithPrefill(1), WithGrowth(true))

	_, err := p.Alloc(32)
	require.NoError(t, err)
	blk, err := p.Alloc(32)
	require.NoError(t, err)
	assert.Equal(t, 32, len(blk))
}

func TestPool_AllocAboveLargestClassFailsWithoutGrowth(t *testing.T) {
	p := New()
	_, err := p.Alloc(1 << 20)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestPool_StatsTracksHighWaterAcrossAllocAndFree(t *testing.T) {
	p := New(WithPrefill(4))

	a, err := p.Alloc(32)
	require.NoError(t, err)
	b, err := p.Alloc(32)
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, int64(2), stats[0].HighWater)
	assert.Equal(t, int64(2), stats[0].Allocated)

	p.Free(a)
	p.Free(b)
	assert.True(t, p.Idle())
}

func TestInitTwiceWithoutTeardownPanics(t *testing.T) {
	Init()
	defer Teardown()
	assert.Panics(t, func() { Init() })
}

func TestGlobalReturnsNilBeforeInit(t *testing.T) {
	assert.Nil(t, Global())
}

func TestGlobalReturnsInstalledPoolAfterInit(t *testing.T) {
	installed := Init()
	defer Teardown()
	assert.Same(t, installed, Global())
}
