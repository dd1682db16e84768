package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/resource"
)

// fakeFrameUpstream extends fakeBufferUpstream with the fence/image calls
// PerFrame needs, so NewPerFrame and DeallocateImages never touch vk.*.
type fakeFrameUpstream struct {
	fakeBufferUpstream

	fenceCount      int
	deallocatedImgs []resource.ImageAttachment
}

func (f *fakeFrameUpstream) AllocateFences(dst []vk.Fence) error {
	for i := range dst {
		f.fenceCount++
		dst[i] = vk.Fence(f.fenceCount)
	}
	return nil
}

func (f *fakeFrameUpstream) DeallocateImages(src []resource.ImageAttachment) {
	f.deallocatedImgs = append(f.deallocatedImgs, src...)
}

func TestNewPerFrameAllocatesOneFencePerSlot(t *testing.T) {
	up := &fakeFrameUpstream{}
	pf, err := NewPerFrame(up, 3, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryGPUOnly, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, up.fenceCount)
	require.Len(t, pf.frames, 3)
	assert.NotEqual(t, pf.frames[0].Fence, pf.frames[1].Fence)
}

func TestPerFrameAllocateBuffersRoutesToActiveFrame(t *testing.T) {
	up := &fakeFrameUpstream{}
	pf, err := NewPerFrame(up, 2, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryGPUOnly, 0)
	require.NoError(t, err)

	dst := make([]resource.Buffer, 1)
	require.NoError(t, pf.AllocateBuffers(dst, []BufferCreateInfo{{Size: 64}}))

	assert.Equal(t, 1, up.allocCalls, "the active frame's own LinearBuffer grows its block from upstream")
	assert.Equal(t, vk.DeviceSize(0), dst[0].Offset)
}

func TestPerFrameDeallocateBuffersDefersRatherThanForwarding(t *testing.T) {
	up := &fakeFrameUpstream{}
	pf, err := NewPerFrame(up, 2, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryGPUOnly, 0)
	require.NoError(t, err)

	buf := resource.Buffer{Handle: vk.Buffer(1), Size: 64}
	pf.DeallocateBuffers([]resource.Buffer{buf})

	assert.Empty(t, up.deallocated, "a transient buffer must not reach upstream before its frame's fence signals")
	require.Len(t, pf.active().deferred, 1)
	assert.Equal(t, buf, pf.active().deferred[0].buffers[0])
}

func TestPerFrameDeallocateImagesDefersToActiveFrame(t *testing.T) {
	up := &fakeFrameUpstream{}
	pf, err := NewPerFrame(up, 2, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryGPUOnly, 0)
	require.NoError(t, err)

	img := resource.ImageAttachment{Image: vk.Image(1)}
	pf.DeallocateImages([]resource.ImageAttachment{img})

	assert.Empty(t, up.deallocatedImgs)
	require.Len(t, pf.active().deferred, 1)
	assert.Equal(t, img, pf.active().deferred[0].images[0])
}

func TestPerFrameEachSlotGetsItsOwnLinearBuffer(t *testing.T) {
	up := &fakeFrameUpstream{}
	pf, err := NewPerFrame(up, 2, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), MemoryGPUOnly, 0)
	require.NoError(t, err)

	assert.NotSame(t, pf.frames[0].linear, pf.frames[1].linear)
}
