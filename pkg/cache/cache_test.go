package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheAcquireCreatesOnce(t *testing.T) {
	calls := 0
	c := New(func(k int) (string, error) {
		calls++
		return "v", nil
	}, nil)

	v1, err := c.Acquire(1, 0)
	require.NoError(t, err)
	v2, err := c.Acquire(1, 1)
	require.NoError(t, err)

	assert.Equal(t, "v", v1)
	assert.Equal(t, "v", v2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestCacheCollectEvictsStale(t *testing.T) {
	destroyed := []int{}
	c := New(func(k int) (int, error) { return k * 10, nil }, func(v int) {
		destroyed = append(destroyed, v)
	})

	_, _ = c.Acquire(1, 0)
	_, _ = c.Acquire(2, 5)

	evicted := c.Collect(10, 3)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, []int{10}, destroyed)
	assert.Equal(t, 1, c.Len())
}

func TestCacheCollectKeepsRecentlyUsed(t *testing.T) {
	c := New(func(k int) (int, error) { return k, nil }, nil)
	_, _ = c.Acquire(1, 8)
	evicted := c.Collect(10, 3)
	assert.Equal(t, 0, evicted)
	assert.Equal(t, 1, c.Len())
}

func TestUnboundedCollectIsNoop(t *testing.T) {
	destroyed := 0
	u := NewUnbounded(func(k int) (int, error) { return k, nil }, func(v int) { destroyed++ })
	_, _ = u.Acquire(1, 0)
	evicted := u.Collect(100000, 0)
	assert.Equal(t, 0, evicted)
	assert.Equal(t, 0, destroyed)
	assert.Equal(t, 1, u.Len())
}

func TestBuildGraphicsPipelineKeyOverflowTracksPayload(t *testing.T) {
	stages := make([]StageKey, maxInlineStages+2)
	for i := range stages {
		stages[i] = StageKey{EntryPoint: "main"}
	}
	k1 := BuildGraphicsPipelineKey(stages, nil, nil, nil, nil)
	k2 := BuildGraphicsPipelineKey(stages, nil, nil, nil, nil)

	require.NotZero(t, k1.Overflow)
	assert.Equal(t, k1.Overflow, k2.Overflow, "identical overflow content hashes the same")

	ReleaseOverflow(k1)
	overflowMu.Lock()
	_, ok := overflowStore[k1.Overflow]
	overflowMu.Unlock()
	assert.False(t, ok)
}

func TestBuildGraphicsPipelineKeyNoOverflowWhenWithinCapacity(t *testing.T) {
	stages := []StageKey{{EntryPoint: "main"}}
	k := BuildGraphicsPipelineKey(stages, nil, nil, nil, nil)
	assert.Zero(t, k.Overflow)
	assert.Equal(t, 1, k.StageCount)
}

func TestDescriptorSetLayoutKeyComparable(t *testing.T) {
	a := BuildDescriptorSetLayoutKey([]DescriptorBindingKey{{Binding: 0}})
	b := BuildDescriptorSetLayoutKey([]DescriptorBindingKey{{Binding: 0}})
	c := BuildDescriptorSetLayoutKey([]DescriptorBindingKey{{Binding: 1}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
