// Package alloc implements the DeviceResource hierarchy (C3): a polymorphic
// resource provider with a fixed allocate_*/deallocate_* capability set,
// and the concrete providers that compose to form an application's
// Allocator facade (direct-Vulkan, linear, sub-allocating, per-frame,
// nested-delegating).
//
// Grounded on original_source/include/vuk/Allocator.hpp (the capability
// list) and the teacher's direct vk.* call idiom
// (pkg/legacy/dieselvk/device.go, pkg/legacy/asche/context.go).
package alloc

import (
	"github.com/andewx/vukgo/pkg/resource"
	vk "github.com/vulkan-go/vulkan"
)

// MemoryUsage selects which Vulkan memory type class a buffer/image
// allocation should come from (spec.md §4.1 expansion).
type MemoryUsage int

const (
	MemoryGPUOnly MemoryUsage = iota
	MemoryCPUOnly
	MemoryCPUToGPU
	MemoryGPUToCPU
)

// BufferCreateInfo is the create_info_t<Buffer> key: everything needed to
// allocate a buffer plus the memory class it should live in.
type BufferCreateInfo struct {
	Size  vk.DeviceSize
	Usage vk.BufferUsageFlags
	Mem   MemoryUsage
}

// ImageCreateInfo is the create_info_t<Image> key.
type ImageCreateInfo struct {
	ImageType   vk.ImageType
	Format      vk.Format
	Extent      vk.Extent3D
	MipLevels   uint32
	ArrayLayers uint32
	Samples     vk.SampleCountFlagBits
	Usage       vk.ImageUsageFlags
	Mem         MemoryUsage
}

// ImageViewCreateInfo is the create_info_t<ImageView> key.
type ImageViewCreateInfo struct {
	Image     vk.Image
	ViewType  vk.ImageViewType
	Format    vk.Format
	BaseLevel uint32
	Levels    uint32
	BaseLayer uint32
	Layers    uint32
}

// CommandPoolCreateInfo is the create_info_t<CommandPool> key.
type CommandPoolCreateInfo struct {
	QueueFamilyIndex uint32
	Flags            vk.CommandPoolCreateFlags
}

// CommandBufferAllocateInfo is the create_info_t<CommandBuffer> key.
type CommandBufferAllocateInfo struct {
	Pool  vk.CommandPool
	Level vk.CommandBufferLevel
}

// DescriptorSetAllocateInfo allocates one descriptor set either by an
// explicit layout, or (when Layout is the zero value and Bindings is
// non-empty) by an ad-hoc binding set the allocator builds a layout for —
// spec.md §4.1's "allocate_descriptor_sets (by layout or by binding set)".
type DescriptorSetAllocateInfo struct {
	Pool     vk.DescriptorPool
	Layout   vk.DescriptorSetLayout
	Bindings []vk.DescriptorSetLayoutBinding
}

// DescriptorPoolCreateInfo is the create_info_t<DescriptorPool> key.
type DescriptorPoolCreateInfo struct {
	MaxSets   uint32
	PoolSizes []vk.DescriptorPoolSize
	Flags     vk.DescriptorPoolCreateFlags
}

// PipelineCreateInfo is a thin wrapper distinguishing which of the three
// pipeline kinds a create call targets; the cache package holds the real
// create_info_t<GraphicsPipelineInfo> (with its small-buffer payload).
type PipelineCreateInfo struct {
	Graphics *vk.GraphicsPipelineCreateInfo
	Compute  *vk.ComputePipelineCreateInfo
}

// AccelerationStructureCreateInfo is the create_info_t<AccelerationStructure> key.
type AccelerationStructureCreateInfo struct {
	Size vk.DeviceSize
	Type uint32 // vk.AccelerationStructureTypeKHR, kept as uint32 to avoid a hard optional-extension dependency
}

// TimestampQueryPoolCreateInfo is the create_info_t<QueryPool> key for
// timestamp queries.
type TimestampQueryPoolCreateInfo struct {
	Count uint32
}

// SwapchainCreateInfo is the create_info_t<Swapchain> key, narrowed to what
// the allocator needs (the full surface/present-mode negotiation lives in
// pkg/swapchain).
type SwapchainCreateInfo struct {
	Surface     vk.Surface
	ImageFormat vk.Format
	ImageExtent vk.Extent2D
	ImageCount  uint32
	OldSwapchain vk.Swapchain
}

// DeviceResource is the fixed capability set every resource provider in the
// chain implements (spec.md §4.1). Every allocate_* has batch signature
// (dst, info) -> error; every deallocate_* takes the previously-returned
// src span. Implementations must roll back any already-filled dst entries
// before returning a non-nil error (spec.md §7 policy).
type DeviceResource interface {
	AllocateSemaphores(dst []vk.Semaphore) error
	DeallocateSemaphores(src []vk.Semaphore)

	AllocateTimelineSemaphores(dst []vk.Semaphore, initialValues []uint64) error
	DeallocateTimelineSemaphores(src []vk.Semaphore)

	AllocateFences(dst []vk.Fence) error
	DeallocateFences(src []vk.Fence)

	AllocateCommandPools(dst []vk.CommandPool, info []CommandPoolCreateInfo) error
	DeallocateCommandPools(src []vk.CommandPool)

	AllocateCommandBuffers(dst []vk.CommandBuffer, info []CommandBufferAllocateInfo) error
	DeallocateCommandBuffers(pool vk.CommandPool, src []vk.CommandBuffer)

	AllocateBuffers(dst []resource.Buffer, info []BufferCreateInfo) error
	DeallocateBuffers(src []resource.Buffer)

	AllocateImages(dst []resource.ImageAttachment, info []ImageCreateInfo) error
	DeallocateImages(src []resource.ImageAttachment)

	AllocateImageViews(dst []resource.ImageView, info []ImageViewCreateInfo) error
	DeallocateImageViews(src []resource.ImageView)

	AllocateTimestampQueryPools(dst []vk.QueryPool, info []TimestampQueryPoolCreateInfo) error
	DeallocateTimestampQueryPools(src []vk.QueryPool)

	AllocateTimestampQueries(dst []uint32, pool vk.QueryPool, count uint32) error
	DeallocateTimestampQueries(pool vk.QueryPool, src []uint32)

	AllocateAccelerationStructures(dst []vk.AccelerationStructure, info []AccelerationStructureCreateInfo) error
	DeallocateAccelerationStructures(src []vk.AccelerationStructure)

	AllocateGraphicsPipelines(dst []vk.Pipeline, info []vk.GraphicsPipelineCreateInfo) error
	AllocateComputePipelines(dst []vk.Pipeline, info []vk.ComputePipelineCreateInfo) error
	AllocateRayTracingPipelines(dst []vk.Pipeline, info []vk.RayTracingPipelineCreateInfo) error
	DeallocatePipelines(src []vk.Pipeline)

	AllocateDescriptorSets(dst []vk.DescriptorSet, info []DescriptorSetAllocateInfo) error
	AllocatePersistentDescriptorSets(dst []resource.PersistentDescriptorSet, info []DescriptorSetAllocateInfo) error
	DeallocateDescriptorSets(pool vk.DescriptorPool, src []vk.DescriptorSet)

	AllocateDescriptorPools(dst []vk.DescriptorPool, info []DescriptorPoolCreateInfo) error
	DeallocateDescriptorPools(src []vk.DescriptorPool)

	AllocateSwapchains(dst []vk.Swapchain, info []SwapchainCreateInfo) error
	DeallocateSwapchains(src []vk.Swapchain)

	// Device returns the logical device this resource ultimately allocates
	// against, used by callers that need the raw handle for calls the
	// DeviceResource interface doesn't cover (e.g. vkCmdBeginRenderPass).
	Device() vk.Device
}
