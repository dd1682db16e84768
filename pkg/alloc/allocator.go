package alloc

import (
	"github.com/andewx/vukgo/pkg/resource"
	vk "github.com/vulkan-go/vulkan"
)

// Allocator is the application-facing facade composing the DeviceResource
// chain: a Direct base, an optional sub-allocating buffer pool for
// long-lived resources, a PerFrame rotation for transient per-frame
// resources, and a LinearDescriptors pool for descriptor sets. Callers
// normally talk to Allocator rather than constructing the chain by hand.
type Allocator struct {
	Direct      *Direct
	Sub         *SubAllocator
	Frames      *PerFrame
	Descriptors *LinearDescriptors
}

// Config configures the façade's constituent allocators.
type Config struct {
	Device           vk.Device
	PhysicalDevice   vk.PhysicalDevice
	MemoryProperties vk.PhysicalDeviceMemoryProperties

	FrameCount       int
	FrameLinearUsage vk.BufferUsageFlags
	FrameLinearMem   MemoryUsage
	FrameBlockSize   vk.DeviceSize

	SubUsage     vk.BufferUsageFlags
	SubMem       MemoryUsage
	SubBlockSize vk.DeviceSize

	DescriptorLimits Limits
}

// NewAllocator wires the full chain per spec.md §4.1: Direct at the root,
// SubAllocator and PerFrame each nested directly on Direct (siblings, not a
// chain, since long-lived and per-frame resources have independent
// lifetimes), and a LinearDescriptors pool for descriptor-set allocation.
func NewAllocator(cfg Config) (*Allocator, error) {
	direct := NewDirect(cfg.Device, cfg.PhysicalDevice, cfg.MemoryProperties)

	frames, err := NewPerFrame(direct, cfg.FrameCount, cfg.FrameLinearUsage, cfg.FrameLinearMem, cfg.FrameBlockSize)
	if err != nil {
		return nil, err
	}

	sub := NewSubAllocator(direct, cfg.SubUsage, cfg.SubMem, cfg.SubBlockSize)

	descriptors, err := NewLinearDescriptors(direct, cfg.DescriptorLimits)
	if err != nil {
		frames.Destroy()
		return nil, err
	}

	return &Allocator{Direct: direct, Sub: sub, Frames: frames, Descriptors: descriptors}, nil
}

// AllocateTransient allocates a per-frame buffer from the PerFrame
// rotation — freed automatically when that frame's slot next rotates
// around, never requiring an explicit deallocate call from the caller.
func (a *Allocator) AllocateTransient(info BufferCreateInfo) (resource.Buffer, error) {
	dst := make([]resource.Buffer, 1)
	if err := a.Frames.AllocateBuffers(dst, []BufferCreateInfo{info}); err != nil {
		return resource.Buffer{}, err
	}
	return dst[0], nil
}

// AllocatePersistent sub-allocates a long-lived buffer that the caller is
// responsible for returning via DeallocatePersistent.
func (a *Allocator) AllocatePersistent(info BufferCreateInfo) (resource.Buffer, error) {
	dst := make([]resource.Buffer, 1)
	if err := a.Sub.AllocateBuffers(dst, []BufferCreateInfo{info}); err != nil {
		return resource.Buffer{}, err
	}
	return dst[0], nil
}

// DeallocatePersistent returns a sub-allocated buffer's range to the free
// list.
func (a *Allocator) DeallocatePersistent(buf resource.Buffer) {
	a.Sub.DeallocateBuffers([]resource.Buffer{buf})
}

// NextFrame advances the PerFrame rotation (spec.md §4.1/§5 per-frame
// contract). The LinearDescriptors pool is shared by all frames and is not
// reset here.
func (a *Allocator) NextFrame() error {
	if err := a.Frames.NextFrame(); err != nil {
		return err
	}
	return nil
}

// Device returns the logical device every constituent allocator ultimately
// targets.
func (a *Allocator) Device() vk.Device { return a.Direct.Device() }

// Destroy tears down every constituent allocator. Order matters: frames and
// descriptors may reference buffers/sets that outlive sub-allocated memory,
// so they are torn down before Sub, which is torn down before Direct
// implicitly releases nothing (Direct owns no aggregate state to free).
func (a *Allocator) Destroy() {
	a.Descriptors.Destroy()
	a.Frames.Destroy()
	a.Sub.Destroy()
}
