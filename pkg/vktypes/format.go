package vktypes

import vk "github.com/vulkan-go/vulkan"

// FormatInfo captures the per-texel block size, aspect mask and component
// count the compiler and executor need without re-deriving it from the raw
// vk.Format every time (testable property 9 in spec.md §8).
type FormatInfo struct {
	BlockSize  uint32 // bytes per texel block
	Components uint32
	BitsPerComponent uint32
	Aspect     vk.ImageAspectFlags
}

var formatTable = map[vk.Format]FormatInfo{
	vk.FormatR8Unorm:          {1, 1, 8, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
	vk.FormatR8g8Unorm:        {2, 2, 8, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
	vk.FormatR8g8b8a8Unorm:    {4, 4, 8, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
	vk.FormatR8g8b8a8Srgb:     {4, 4, 8, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
	vk.FormatB8g8r8a8Unorm:    {4, 4, 8, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
	vk.FormatR16g16b16a16Sfloat: {8, 4, 16, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
	vk.FormatR32g32b32a32Sfloat: {16, 4, 32, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
	vk.FormatR32Sfloat:        {4, 1, 32, vk.ImageAspectFlags(vk.ImageAspectColorBit)},
	vk.FormatD32Sfloat:        {4, 1, 32, vk.ImageAspectFlags(vk.ImageAspectDepthBit)},
	// Packed depth+stencil shares one 32-bit block; modeled as a single
	// 32-bit component so the per-block bit budget stays consistent.
	vk.FormatD24UnormS8Uint: {4, 1, 32, vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)},
	vk.FormatD32SfloatS8Uint: {8, 2, 32, vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)},
	vk.FormatD16Unorm:        {2, 1, 16, vk.ImageAspectFlags(vk.ImageAspectDepthBit)},
}

// FormatToTexelBlockSize returns the byte size of one texel block of f, or
// 0 if f is not in the table.
func FormatToTexelBlockSize(f vk.Format) uint32 {
	return formatTable[f].BlockSize
}

// FormatToAspect returns the image aspect mask implied by f.
func FormatToAspect(f vk.Format) vk.ImageAspectFlags {
	if info, ok := formatTable[f]; ok {
		return info.Aspect
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// FormatComponents returns the component count of f.
func FormatComponents(f vk.Format) uint32 { return formatTable[f].Components }

// FormatBitsPerComponent returns the bit width of a single component of f.
func FormatBitsPerComponent(f vk.Format) uint32 { return formatTable[f].BitsPerComponent }

// PackUnorm8 quantizes a normalized float to an 8-bit unorm texel
// component, saturating outside [0, 1].
func PackUnorm8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// UnpackUnorm8 reverses PackUnorm8: 255 reads back as exactly 1.0, 128 as
// ~0.502 (testable property 10 in spec.md §8).
func UnpackUnorm8(b uint8) float32 {
	return float32(b) / 255
}

// FormatIsDepthStencil reports whether f carries a depth or stencil aspect.
func FormatIsDepthStencil(f vk.Format) bool {
	a := FormatToAspect(f)
	return a&vk.ImageAspectFlags(vk.ImageAspectDepthBit) != 0 || a&vk.ImageAspectFlags(vk.ImageAspectStencilBit) != 0
}

// Domain is a scheduling target: graphics / compute / transfer / host /
// constant / placeholder / device (= any). spec.md §4.4 pass 8 and GLOSSARY.
type Domain uint32

const (
	DomainAny Domain = 0
	DomainHost Domain = 1 << iota
	DomainGraphicsQueue
	DomainComputeQueue
	DomainTransferQueue
	DomainConstant
	DomainPlaceholder
)

// DomainDevice is the "any device queue" domain used before queue
// inference (pass 8) narrows a node to a concrete queue family.
const DomainDevice = DomainGraphicsQueue | DomainComputeQueue | DomainTransferQueue

func (d Domain) String() string {
	switch d {
	case DomainAny:
		return "any"
	case DomainHost:
		return "host"
	case DomainGraphicsQueue:
		return "graphics"
	case DomainComputeQueue:
		return "compute"
	case DomainTransferQueue:
		return "transfer"
	case DomainConstant:
		return "constant"
	case DomainPlaceholder:
		return "placeholder"
	default:
		return "mixed"
	}
}

// IsSingleQueue reports whether d names exactly one concrete queue domain.
func (d Domain) IsSingleQueue() bool {
	return d == DomainGraphicsQueue || d == DomainComputeQueue || d == DomainTransferQueue
}
