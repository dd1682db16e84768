package alloc

import (
	"unsafe"

	"github.com/andewx/vukgo/pkg/resource"
	vk "github.com/vulkan-go/vulkan"
)

// Direct allocates straight against the Vulkan device, the way the
// teacher's device.go/context.go call vk.Create*/vk.Allocate* directly. It
// is the root of every DeviceResource chain; every Nested resource
// eventually bottoms out here.
type Direct struct {
	device      vk.Device
	physical    vk.PhysicalDevice
	memProps    vk.PhysicalDeviceMemoryProperties
}

// NewDirect constructs the root DeviceResource for a logical device. The
// caller supplies the already-queried memory properties (teacher's
// device.go selected_device_memory_properties) rather than re-querying them
// here, since the physical device query is an external-collaborator
// concern (instance/device selection, spec.md §1 out of scope).
func NewDirect(device vk.Device, physical vk.PhysicalDevice, memProps vk.PhysicalDeviceMemoryProperties) *Direct {
	return &Direct{device: device, physical: physical, memProps: memProps}
}

func (d *Direct) Device() vk.Device { return d.device }

func (d *Direct) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlags) (uint32, bool) {
	d.memProps.Deref()
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		d.memProps.MemoryTypes[i].Deref()
		if typeBits&(1<<i) != 0 && (vk.MemoryPropertyFlags(d.memProps.MemoryTypes[i].PropertyFlags)&props) == props {
			return i, true
		}
	}
	return 0, false
}

func memoryUsageFlags(u MemoryUsage) vk.MemoryPropertyFlags {
	switch u {
	case MemoryCPUOnly, MemoryCPUToGPU:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	case MemoryGPUToCPU:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit)
	default:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}
}

// allocateMemory is the single memory-type-selection path shared by every
// buffer/image allocation (spec.md §4.1 expansion): it picks the memory
// type for reqs+usage, allocates, and optionally maps.
func (d *Direct) allocateMemory(reqs vk.MemoryRequirements, usage MemoryUsage) (*resource.Allocation, error) {
	reqs.Deref()
	props := memoryUsageFlags(usage)
	typeIndex, ok := d.findMemoryType(reqs.MemoryTypeBits, props)
	if !ok {
		return nil, &AllocateException{Op: "findMemoryType"}
	}
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(d.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	if err := NewAllocateException("AllocateMemory", ret); err != nil {
		return nil, err
	}
	alloc := &resource.Allocation{Memory: mem, Size: reqs.Size, MemoryTypeIndex: typeIndex}
	if usage != MemoryGPUOnly {
		var data unsafePointer
		vk.MapMemory(d.device, mem, 0, reqs.Size, 0, &data.p)
		alloc.Mapped = data.bytes(int(reqs.Size))
	}
	return alloc, nil
}

// unsafePointer is a tiny indirection that keeps the pointer-to-slice
// conversion in one place; vk.MapMemory writes a raw pointer which we turn
// into a byte slice the caller can read/write.
type unsafePointer struct{ p unsafe.Pointer }

func (u unsafePointer) bytes(n int) []byte {
	if u.p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(u.p), n)
}

func (d *Direct) AllocateSemaphores(dst []vk.Semaphore) error {
	for i := range dst {
		ret := vk.CreateSemaphore(d.device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &dst[i])
		if err := NewAllocateException("AllocateSemaphores", ret); err != nil {
			d.DeallocateSemaphores(dst[:i])
			return err
		}
	}
	return nil
}

func (d *Direct) DeallocateSemaphores(src []vk.Semaphore) {
	for _, s := range src {
		vk.DestroySemaphore(d.device, s, nil)
	}
}

func (d *Direct) AllocateTimelineSemaphores(dst []vk.Semaphore, initialValues []uint64) error {
	for i := range dst {
		typeInfo := vk.SemaphoreTypeCreateInfo{
			SType:         vk.StructureTypeSemaphoreTypeCreateInfo,
			SemaphoreType: vk.SemaphoreTypeTimeline,
			InitialValue:  initialValues[i],
		}
		ret := vk.CreateSemaphore(d.device, &vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
			PNext: unsafe.Pointer(&typeInfo),
		}, nil, &dst[i])
		if err := NewAllocateException("AllocateTimelineSemaphores", ret); err != nil {
			d.DeallocateTimelineSemaphores(dst[:i])
			return err
		}
	}
	return nil
}

func (d *Direct) DeallocateTimelineSemaphores(src []vk.Semaphore) { d.DeallocateSemaphores(src) }

func (d *Direct) AllocateFences(dst []vk.Fence) error {
	for i := range dst {
		ret := vk.CreateFence(d.device, &vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}, nil, &dst[i])
		if err := NewAllocateException("AllocateFences", ret); err != nil {
			d.DeallocateFences(dst[:i])
			return err
		}
	}
	return nil
}

func (d *Direct) DeallocateFences(src []vk.Fence) {
	for _, f := range src {
		vk.DestroyFence(d.device, f, nil)
	}
}

func (d *Direct) AllocateCommandPools(dst []vk.CommandPool, info []CommandPoolCreateInfo) error {
	for i := range dst {
		ret := vk.CreateCommandPool(d.device, &vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: info[i].QueueFamilyIndex,
			Flags:            info[i].Flags,
		}, nil, &dst[i])
		if err := NewAllocateException("AllocateCommandPools", ret); err != nil {
			d.DeallocateCommandPools(dst[:i])
			return err
		}
	}
	return nil
}

func (d *Direct) DeallocateCommandPools(src []vk.CommandPool) {
	for _, p := range src {
		vk.DestroyCommandPool(d.device, p, nil)
	}
}

func (d *Direct) AllocateCommandBuffers(dst []vk.CommandBuffer, info []CommandBufferAllocateInfo) error {
	byPool := map[vk.CommandPool][]int{}
	for i, ci := range info {
		byPool[ci.Pool] = append(byPool[ci.Pool], i)
	}
	var done []vk.CommandPool
	for pool, idxs := range byPool {
		level := info[idxs[0]].Level
		bufs := make([]vk.CommandBuffer, len(idxs))
		ret := vk.AllocateCommandBuffers(d.device, &vk.CommandBufferAllocateInfo{
			SType:              vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        pool,
			Level:              level,
			CommandBufferCount: uint32(len(idxs)),
		}, &bufs[0])
		if err := NewAllocateException("AllocateCommandBuffers", ret); err != nil {
			for _, p := range done {
				filled := make([]vk.CommandBuffer, 0, len(byPool[p]))
				for _, idx := range byPool[p] {
					filled = append(filled, dst[idx])
				}
				d.DeallocateCommandBuffers(p, filled)
			}
			return err
		}
		for j, idx := range idxs {
			dst[idx] = bufs[j]
		}
		done = append(done, pool)
	}
	return nil
}

func (d *Direct) DeallocateCommandBuffers(pool vk.CommandPool, src []vk.CommandBuffer) {
	if len(src) == 0 {
		return
	}
	vk.FreeCommandBuffers(d.device, pool, uint32(len(src)), src)
}

func (d *Direct) AllocateBuffers(dst []resource.Buffer, info []BufferCreateInfo) error {
	for i := range dst {
		var handle vk.Buffer
		ret := vk.CreateBuffer(d.device, &vk.BufferCreateInfo{
			SType:       vk.StructureTypeBufferCreateInfo,
			Size:        info[i].Size,
			Usage:       info[i].Usage,
			SharingMode: vk.SharingModeExclusive,
		}, nil, &handle)
		if err := NewAllocateException("AllocateBuffers", ret); err != nil {
			d.DeallocateBuffers(dst[:i])
			return err
		}
		var reqs vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(d.device, handle, &reqs)
		allocation, err := d.allocateMemory(reqs, info[i].Mem)
		if err != nil {
			vk.DestroyBuffer(d.device, handle, nil)
			d.DeallocateBuffers(dst[:i])
			return err
		}
		if ret := vk.BindBufferMemory(d.device, handle, allocation.Memory, 0); ret != vk.Success {
			vk.DestroyBuffer(d.device, handle, nil)
			d.DeallocateBuffers(dst[:i])
			return NewAllocateException("BindBufferMemory", ret)
		}
		dst[i] = resource.Buffer{Handle: handle, Size: info[i].Size, Usage: info[i].Usage, Mapped: allocation.Mapped, Allocation: allocation}
	}
	return nil
}

func (d *Direct) DeallocateBuffers(src []resource.Buffer) {
	for _, b := range src {
		vk.DestroyBuffer(d.device, b.Handle, nil)
		if b.Allocation != nil {
			vk.FreeMemory(d.device, b.Allocation.Memory, nil)
		}
	}
}

func (d *Direct) AllocateImages(dst []resource.ImageAttachment, info []ImageCreateInfo) error {
	for i := range dst {
		var handle vk.Image
		ret := vk.CreateImage(d.device, &vk.ImageCreateInfo{
			SType:         vk.StructureTypeImageCreateInfo,
			ImageType:     info[i].ImageType,
			Format:        info[i].Format,
			Extent:        info[i].Extent,
			MipLevels:     info[i].MipLevels,
			ArrayLayers:   info[i].ArrayLayers,
			Samples:       info[i].Samples,
			Tiling:        vk.ImageTilingOptimal,
			Usage:         info[i].Usage,
			SharingMode:   vk.SharingModeExclusive,
			InitialLayout: vk.ImageLayoutUndefined,
		}, nil, &handle)
		if err := NewAllocateException("AllocateImages", ret); err != nil {
			d.DeallocateImages(dst[:i])
			return err
		}
		var reqs vk.MemoryRequirements
		vk.GetImageMemoryRequirements(d.device, handle, &reqs)
		allocation, err := d.allocateMemory(reqs, info[i].Mem)
		if err != nil {
			vk.DestroyImage(d.device, handle, nil)
			d.DeallocateImages(dst[:i])
			return err
		}
		if ret := vk.BindImageMemory(d.device, handle, allocation.Memory, 0); ret != vk.Success {
			vk.DestroyImage(d.device, handle, nil)
			d.DeallocateImages(dst[:i])
			return NewAllocateException("BindImageMemory", ret)
		}
		dst[i] = resource.ImageAttachment{
			Image: handle, Layout: vk.ImageLayoutUndefined, Format: info[i].Format,
			Extent: info[i].Extent, SampleCount: info[i].Samples,
			Levels: info[i].MipLevels, Layers: info[i].ArrayLayers, Usage: info[i].Usage,
			Allocation: allocation,
		}
	}
	return nil
}

func (d *Direct) DeallocateImages(src []resource.ImageAttachment) {
	for _, img := range src {
		if img.ImageView != vk.NullImageView {
			vk.DestroyImageView(d.device, img.ImageView, nil)
		}
		vk.DestroyImage(d.device, img.Image, nil)
		if img.Allocation != nil {
			vk.FreeMemory(d.device, img.Allocation.Memory, nil)
		}
	}
}

func (d *Direct) AllocateImageViews(dst []resource.ImageView, info []ImageViewCreateInfo) error {
	for i := range dst {
		var handle vk.ImageView
		ret := vk.CreateImageView(d.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    info[i].Image,
			ViewType: info[i].ViewType,
			Format:   info[i].Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   info[i].BaseLevel,
				LevelCount:     info[i].Levels,
				BaseArrayLayer: info[i].BaseLayer,
				LayerCount:     info[i].Layers,
			},
		}, nil, &handle)
		if err := NewAllocateException("AllocateImageViews", ret); err != nil {
			d.DeallocateImageViews(dst[:i])
			return err
		}
		dst[i] = resource.ImageView{
			Handle: handle, Image: info[i].Image, Format: info[i].Format,
			BaseLevel: info[i].BaseLevel, Levels: info[i].Levels,
			BaseLayer: info[i].BaseLayer, Layers: info[i].Layers, ViewType: info[i].ViewType,
		}
	}
	return nil
}

func (d *Direct) DeallocateImageViews(src []resource.ImageView) {
	for _, v := range src {
		vk.DestroyImageView(d.device, v.Handle, nil)
	}
}

func (d *Direct) AllocateTimestampQueryPools(dst []vk.QueryPool, info []TimestampQueryPoolCreateInfo) error {
	for i := range dst {
		ret := vk.CreateQueryPool(d.device, &vk.QueryPoolCreateInfo{
			SType:      vk.StructureTypeQueryPoolCreateInfo,
			QueryType:  vk.QueryTypeTimestamp,
			QueryCount: info[i].Count,
		}, nil, &dst[i])
		if err := NewAllocateException("AllocateTimestampQueryPools", ret); err != nil {
			d.DeallocateTimestampQueryPools(dst[:i])
			return err
		}
	}
	return nil
}

func (d *Direct) DeallocateTimestampQueryPools(src []vk.QueryPool) {
	for _, p := range src {
		vk.DestroyQueryPool(d.device, p, nil)
	}
}

// AllocateTimestampQueries hands out consecutive query indices from an
// existing pool; indices aren't Vulkan objects so there's nothing to
// create, only bookkeeping, matching original_source's treatment of
// queries as caller-assigned IDs (spec.md §6.4 create_timestamp_query).
func (d *Direct) AllocateTimestampQueries(dst []uint32, pool vk.QueryPool, count uint32) error {
	for i := range dst {
		dst[i] = count + uint32(i)
	}
	return nil
}

func (d *Direct) DeallocateTimestampQueries(pool vk.QueryPool, src []uint32) {}

func (d *Direct) AllocateAccelerationStructures(dst []vk.AccelerationStructure, info []AccelerationStructureCreateInfo) error {
	return &AllocateException{Op: "AllocateAccelerationStructures", Result: vk.ErrorFeatureNotPresent}
}

func (d *Direct) DeallocateAccelerationStructures(src []vk.AccelerationStructure) {}

func (d *Direct) AllocateGraphicsPipelines(dst []vk.Pipeline, info []vk.GraphicsPipelineCreateInfo) error {
	if len(info) == 0 {
		return nil
	}
	ret := vk.CreateGraphicsPipelines(d.device, nil, uint32(len(info)), info, nil, dst)
	return NewAllocateException("AllocateGraphicsPipelines", ret)
}

func (d *Direct) AllocateComputePipelines(dst []vk.Pipeline, info []vk.ComputePipelineCreateInfo) error {
	if len(info) == 0 {
		return nil
	}
	ret := vk.CreateComputePipelines(d.device, nil, uint32(len(info)), info, nil, dst)
	return NewAllocateException("AllocateComputePipelines", ret)
}

func (d *Direct) AllocateRayTracingPipelines(dst []vk.Pipeline, info []vk.RayTracingPipelineCreateInfo) error {
	return &AllocateException{Op: "AllocateRayTracingPipelines", Result: vk.ErrorFeatureNotPresent}
}

func (d *Direct) DeallocatePipelines(src []vk.Pipeline) {
	for _, p := range src {
		vk.DestroyPipeline(d.device, p, nil)
	}
}

func (d *Direct) AllocateDescriptorSets(dst []vk.DescriptorSet, info []DescriptorSetAllocateInfo) error {
	byPool := map[vk.DescriptorPool][]int{}
	for i, ci := range info {
		byPool[ci.Pool] = append(byPool[ci.Pool], i)
	}
	var done []vk.DescriptorPool
	for pool, idxs := range byPool {
		layouts := make([]vk.DescriptorSetLayout, len(idxs))
		for j, idx := range idxs {
			layouts[j] = info[idx].Layout
		}
		sets := make([]vk.DescriptorSet, len(idxs))
		ret := vk.AllocateDescriptorSets(d.device, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool,
			DescriptorSetCount: uint32(len(idxs)),
			PSetLayouts:        layouts,
		}, &sets[0])
		if err := NewAllocateException("AllocateDescriptorSets", ret); err != nil {
			for _, p := range done {
				filled := make([]vk.DescriptorSet, 0, len(byPool[p]))
				for _, idx := range byPool[p] {
					filled = append(filled, dst[idx])
				}
				d.DeallocateDescriptorSets(p, filled)
			}
			return err
		}
		for j, idx := range idxs {
			dst[idx] = sets[j]
		}
		done = append(done, pool)
	}
	return nil
}

func (d *Direct) AllocatePersistentDescriptorSets(dst []resource.PersistentDescriptorSet, info []DescriptorSetAllocateInfo) error {
	sets := make([]vk.DescriptorSet, len(info))
	if err := d.AllocateDescriptorSets(sets, info); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = resource.PersistentDescriptorSet{Handle: sets[i], Layout: info[i].Layout, Pool: info[i].Pool}
	}
	return nil
}

func (d *Direct) DeallocateDescriptorSets(pool vk.DescriptorPool, src []vk.DescriptorSet) {
	if len(src) == 0 {
		return
	}
	vk.FreeDescriptorSets(d.device, pool, uint32(len(src)), src)
}

func (d *Direct) AllocateDescriptorPools(dst []vk.DescriptorPool, info []DescriptorPoolCreateInfo) error {
	for i := range dst {
		ret := vk.CreateDescriptorPool(d.device, &vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			MaxSets:       info[i].MaxSets,
			PoolSizeCount: uint32(len(info[i].PoolSizes)),
			PPoolSizes:    info[i].PoolSizes,
			Flags:         info[i].Flags,
		}, nil, &dst[i])
		if err := NewAllocateException("AllocateDescriptorPools", ret); err != nil {
			d.DeallocateDescriptorPools(dst[:i])
			return err
		}
	}
	return nil
}

func (d *Direct) DeallocateDescriptorPools(src []vk.DescriptorPool) {
	for _, p := range src {
		vk.DestroyDescriptorPool(d.device, p, nil)
	}
}

func (d *Direct) AllocateSwapchains(dst []vk.Swapchain, info []SwapchainCreateInfo) error {
	for i := range dst {
		ret := vk.CreateSwapchain(d.device, &vk.SwapchainCreateInfo{
			SType:            vk.StructureTypeSwapchainCreateInfo,
			Surface:          info[i].Surface,
			MinImageCount:    info[i].ImageCount,
			ImageFormat:      info[i].ImageFormat,
			ImageExtent:      info[i].ImageExtent,
			ImageArrayLayers: 1,
			ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
			ImageSharingMode: vk.SharingModeExclusive,
			PresentMode:      vk.PresentModeFifo,
			Clipped:          vk.True,
			OldSwapchain:     info[i].OldSwapchain,
		}, nil, &dst[i])
		if err := NewAllocateException("AllocateSwapchains", ret); err != nil {
			d.DeallocateSwapchains(dst[:i])
			return err
		}
	}
	return nil
}

func (d *Direct) DeallocateSwapchains(src []vk.Swapchain) {
	for _, s := range src {
		vk.DestroySwapchain(d.device, s, nil)
	}
}
