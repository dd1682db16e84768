package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/resource"
)

func TestSubAllocatorFirstFitsIntoExistingBlock(t *testing.T) {
	up := &fakeBufferUpstream{}
	sa := NewSubAllocator(up, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryGPUOnly, 1024)

	dst := make([]resource.Buffer, 2)
	require.NoError(t, sa.AllocateBuffers(dst, []BufferCreateInfo{{Size: 100}, {Size: 100}}))

	assert.Equal(t, 1, up.allocCalls, "both requests fit the same 1024-byte block")
	assert.Equal(t, vk.DeviceSize(0), dst[0].Offset)
	assert.Equal(t, vk.DeviceSize(256), dst[1].Offset, "requests are 256-aligned")
}

func TestSubAllocatorGrowsNewBlockWhenNothingFits(t *testing.T) {
	up := &fakeBufferUpstream{}
	sa := NewSubAllocator(up, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryGPUOnly, 256)

	dst := make([]resource.Buffer, 1)
	require.NoError(t, sa.AllocateBuffers(dst, []BufferCreateInfo{{Size: 200}}))
	require.NoError(t, sa.AllocateBuffers(dst, []BufferCreateInfo{{Size: 200}}))

	assert.Equal(t, 2, up.allocCalls, "the first block has no room left after one 256-aligned allocation")
}

func TestSubAllocatorDeallocateReturnsRangeForReuse(t *testing.T) {
	up := &fakeBufferUpstream{}
	sa := NewSubAllocator(up, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryGPUOnly, 1024)

	dst := make([]resource.Buffer, 1)
	require.NoError(t, sa.AllocateBuffers(dst, []BufferCreateInfo{{Size: 100}}))
	freed := dst[0]

	sa.DeallocateBuffers([]resource.Buffer{freed})

	dst2 := make([]resource.Buffer, 1)
	require.NoError(t, sa.AllocateBuffers(dst2, []BufferCreateInfo{{Size: 100}}))
	assert.Equal(t, 1, up.allocCalls, "the freed range is reused instead of growing a new block")
	assert.Equal(t, freed.Offset, dst2[0].Offset)
}

func TestSubAllocatorDeallocateCoalescesAdjacentFreeRanges(t *testing.T) {
	up := &fakeBufferUpstream{}
	sa := NewSubAllocator(up, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryGPUOnly, 1024)

	dst := make([]resource.Buffer, 3)
	require.NoError(t, sa.AllocateBuffers(dst, []BufferCreateInfo{{Size: 256}, {Size: 256}, {Size: 256}}))

	sa.DeallocateBuffers([]resource.Buffer{dst[0], dst[1], dst[2]})

	// A coalesced free-list should now satisfy a request spanning all three
	// original 256-byte slots without growing a second block.
	dst2 := make([]resource.Buffer, 1)
	require.NoError(t, sa.AllocateBuffers(dst2, []BufferCreateInfo{{Size: 768}}))
	assert.Equal(t, 1, up.allocCalls)
	assert.Equal(t, vk.DeviceSize(0), dst2[0].Offset)
}

func TestSubAllocatorDestroyFreesEveryBlockUpstream(t *testing.T) {
	up := &fakeBufferUpstream{}
	sa := NewSubAllocator(up, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryGPUOnly, 256)

	dst := make([]resource.Buffer, 1)
	require.NoError(t, sa.AllocateBuffers(dst, []BufferCreateInfo{{Size: 200}}))
	require.NoError(t, sa.AllocateBuffers(dst, []BufferCreateInfo{{Size: 200}}))
	require.Equal(t, 2, up.allocCalls)

	sa.Destroy()
	assert.Len(t, up.deallocated, 2)
}
