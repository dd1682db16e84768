package cache

import vk "github.com/vulkan-go/vulkan"

// SamplerKey is the create_info_t<Sampler> key, mirrored field-by-field
// from vk.SamplerCreateInfo rather than embedding it, for the same
// comparability reasons as GraphicsPipelineKey's sub-keys.
type SamplerKey struct {
	MagFilter        vk.Filter
	MinFilter        vk.Filter
	MipmapMode       vk.SamplerMipmapMode
	AddressModeU     vk.SamplerAddressMode
	AddressModeV     vk.SamplerAddressMode
	AddressModeW     vk.SamplerAddressMode
	MipLodBias       float32
	AnisotropyEnable vk.Bool32
	MaxAnisotropy    float32
	CompareEnable    vk.Bool32
	CompareOp        vk.CompareOp
	MinLod           float32
	MaxLod           float32
	BorderColor      vk.BorderColor
}

// NewSamplerCache constructs an unbounded cache of vk.Sampler handles:
// the number of distinct samplers an application needs is small and fixed
// at content-authoring time, so like shader modules and layouts these
// never expire on their own.
func NewSamplerCache(dev vk.Device, build Create[SamplerKey, vk.Sampler]) Unbounded[SamplerKey, vk.Sampler] {
	return NewUnbounded(build, func(s vk.Sampler) {
		vk.DestroySampler(dev, s, nil)
	})
}

// DescriptorPoolKey is the create_info_t<DescriptorPool> key used by the
// pool cache that backs non-linear (per-draw-call-varying) descriptor set
// allocation, as distinct from alloc.LinearDescriptors' single bump pool.
type DescriptorPoolKey struct {
	MaxSets uint32
	Sizes   [maxInlineBindings]vk.DescriptorPoolSize
	SizeCount int
}

// BuildDescriptorPoolKey packs pool sizes into a DescriptorPoolKey.
func BuildDescriptorPoolKey(maxSets uint32, sizes []vk.DescriptorPoolSize) DescriptorPoolKey {
	var k DescriptorPoolKey
	k.MaxSets = maxSets
	k.SizeCount = copy(k.Sizes[:], sizes)
	return k
}

// NewDescriptorPoolCache constructs an unbounded cache of vk.DescriptorPool
// handles keyed by their size/layout shape, so repeated requests for "a
// pool shaped like X" reuse the same pool rather than allocating a fresh
// one every time.
func NewDescriptorPoolCache(dev vk.Device, build Create[DescriptorPoolKey, vk.DescriptorPool]) Unbounded[DescriptorPoolKey, vk.DescriptorPool] {
	return NewUnbounded(build, func(p vk.DescriptorPool) {
		vk.DestroyDescriptorPool(dev, p, nil)
	})
}
