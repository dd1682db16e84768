// Package resource holds the typed handle structs the IR and executor pass
// around on edges and in CONSTRUCT initial values (C2 of the render graph
// runtime): ImageAttachment, Buffer, BufferView, ImageView,
// PersistentDescriptorSet, Sampler.
//
// These mirror the teacher's ad-hoc Texture/Depth structs
// (pkg/legacy/asche/context.go) generalized into the builtin types the IR
// module preallocates on construction (spec.md §3.1).
package resource

import vk "github.com/vulkan-go/vulkan"

// Unknown marks a field the compiler's reify-inference pass (spec.md §4.4
// pass 5) is expected to fill in from a chain ancestor.
const Unknown = ^uint32(0)

// ImageAttachment is the builtin "image" Type payload: everything a
// render-pass attachment or a sampled/storage image binding needs.
type ImageAttachment struct {
	Image     vk.Image
	ImageView vk.ImageView
	Layout    vk.ImageLayout

	Format      vk.Format
	Extent      vk.Extent3D
	SampleCount vk.SampleCountFlagBits
	BaseLevel   uint32
	Levels      uint32
	BaseLayer   uint32
	Layers      uint32

	Usage vk.ImageUsageFlags

	// Allocation is non-nil once the compiler/executor has materialized
	// backing memory for this attachment (nil in a CONSTRUCT's initial
	// value prior to ALLOCATE).
	Allocation *Allocation
}

// Unknown2D builds an ImageAttachment with width, height, format and
// sample count marked Unknown and depth, levels and layers set to 1, the
// starting point for a placeholder attachment the reify pass
// will complete (spec.md §4.4 pass 5, testable property 6).
func Unknown2D() ImageAttachment {
	return ImageAttachment{
		Format:      vk.Format(Unknown),
		Extent:      vk.Extent3D{Width: Unknown, Height: Unknown, Depth: 1},
		SampleCount: vk.SampleCountFlagBits(Unknown),
		Levels:      1,
		Layers:      1,
	}
}

// IsExtentKnown reports whether width/height/depth are all resolved.
func (a ImageAttachment) IsExtentKnown() bool {
	return a.Extent.Width != Unknown && a.Extent.Height != Unknown && a.Extent.Depth != Unknown
}

// IsFormatKnown reports whether Format has been resolved.
func (a ImageAttachment) IsFormatKnown() bool { return uint32(a.Format) != Unknown }

// IsSampleCountKnown reports whether SampleCount has been resolved.
func (a ImageAttachment) IsSampleCountKnown() bool { return uint32(a.SampleCount) != Unknown }

// Buffer is the builtin "buffer-like" Type payload.
type Buffer struct {
	Handle     vk.Buffer
	Offset     vk.DeviceSize
	Size       vk.DeviceSize
	Usage      vk.BufferUsageFlags
	Mapped     []byte // non-nil when host-visible and currently mapped
	Allocation *Allocation
}

// Unknown1D builds a Buffer with Size marked Unknown.
func Unknown1D() Buffer {
	return Buffer{Size: vk.DeviceSize(Unknown)}
}

// IsSizeKnown reports whether Size has been resolved.
func (b Buffer) IsSizeKnown() bool { return uint64(b.Size) != uint64(Unknown) }

// BufferView is a typed view over a Buffer subrange (e.g. for texel buffers).
type BufferView struct {
	Handle vk.BufferView
	Buffer Buffer
	Format vk.Format
	Offset vk.DeviceSize
	Range  vk.DeviceSize
}

// ImageView is a standalone view handle distinct from the attachment's own
// ImageView field, used when a CALL argument needs a view into a subrange
// of a larger image (mip/layer slice) without owning the base image.
type ImageView struct {
	Handle      vk.ImageView
	Image       vk.Image
	Format      vk.Format
	BaseLevel   uint32
	Levels      uint32
	BaseLayer   uint32
	Layers      uint32
	ViewType    vk.ImageViewType
}

// Sampler is the builtin "sampler" Type payload.
type Sampler struct {
	Handle vk.Sampler
	Info   vk.SamplerCreateInfo
}

// DescriptorBinding is one binding inside a PersistentDescriptorSet: the
// backing resource plus the binding/array-index it was written to.
type DescriptorBinding struct {
	Binding    uint32
	ArrayIndex uint32
	Type       vk.DescriptorType
	Image      *ImageAttachment
	BufferInfo *Buffer
	Sampler    *Sampler
}

// PersistentDescriptorSet is a long-lived descriptor set the application
// writes into directly (bypassing the per-frame CommandBuffer assembly
// path, C7 §4.6). Pending writes accumulate in Pending and are drained
// atomically by Commit, matching spec.md §5's "writer set of pending writes
// is owned by the set and drained atomically in commit" rule.
type PersistentDescriptorSet struct {
	Handle  vk.DescriptorSet
	Layout  vk.DescriptorSetLayout
	Pool    vk.DescriptorPool
	Pending []DescriptorBinding
}

// Update queues a binding write; it is not visible to the GPU until Commit
// runs.
func (s *PersistentDescriptorSet) Update(b DescriptorBinding) {
	s.Pending = append(s.Pending, b)
}

// Commit drains Pending and issues a single vkUpdateDescriptorSets call.
// The caller-supplied write function performs the actual Vulkan call so
// this package stays decoupled from the device handle.
func (s *PersistentDescriptorSet) Commit(write func(pending []DescriptorBinding) error) error {
	if len(s.Pending) == 0 {
		return nil
	}
	pending := s.Pending
	s.Pending = nil
	return write(pending)
}

// Allocation describes the backing device memory of a Buffer or
// ImageAttachment, produced by the alloc package's DeviceResource
// implementations (C3).
type Allocation struct {
	Memory       vk.DeviceMemory
	Offset       vk.DeviceSize
	Size         vk.DeviceSize
	MemoryTypeIndex uint32
	Mapped       []byte
}
