package cache

import vk "github.com/vulkan-go/vulkan"

// Unbounded wraps a Cache whose entries never expire (ShaderModule,
// PipelineBaseInfo and the layout caches below, per the source's note
// that only GraphicsPipelineInfo needs the frame-LRU treatment — layouts
// and shader modules are small and few, so holding them for the runtime's
// whole lifetime costs nothing). Collect is a no-op; eviction only
// happens via Clear at shutdown.
type Unbounded[K comparable, V any] struct {
	*Cache[K, V]
}

// NewUnbounded constructs an Unbounded cache.
func NewUnbounded[K comparable, V any](create Create[K, V], destroy Destroy[V]) Unbounded[K, V] {
	return Unbounded[K, V]{New(create, destroy)}
}

// Collect overrides Cache.Collect as a no-op: unbounded caches are only
// ever fully torn down via Clear, never partially aged out.
func (u Unbounded[K, V]) Collect(uint64, uint64) int { return 0 }

// DescriptorSetLayoutKey is the comparable create_info_t<DescriptorSetLayout>
// key: a fixed-capacity inline binding table, since a descriptor set
// layout's binding count is bounded by the device's
// maxPerSetDescriptors limit in practice and rarely exceeds a handful.
const maxInlineBindings = 16

type DescriptorBindingKey struct {
	Binding         uint32
	DescriptorType  vk.DescriptorType
	DescriptorCount uint32
	StageFlags      vk.ShaderStageFlags
}

type DescriptorSetLayoutKey struct {
	Bindings     [maxInlineBindings]DescriptorBindingKey
	BindingCount int
}

// BuildDescriptorSetLayoutKey packs bindings into a DescriptorSetLayoutKey,
// truncating silently beyond maxInlineBindings — callers exceeding this are
// expected to split into multiple sets, which is the normal Vulkan
// descriptor-budget discipline anyway.
func BuildDescriptorSetLayoutKey(bindings []DescriptorBindingKey) DescriptorSetLayoutKey {
	var k DescriptorSetLayoutKey
	k.BindingCount = copy(k.Bindings[:], bindings)
	return k
}

// PipelineLayoutKey is the create_info_t<PipelineLayout> key: the set of
// descriptor set layouts plus any push-constant ranges.
const maxInlineSetLayouts = 8
const maxInlinePushConstantRanges = 4

type PushConstantRangeKey struct {
	StageFlags vk.ShaderStageFlags
	Offset     uint32
	Size       uint32
}

type PipelineLayoutKey struct {
	SetLayouts     [maxInlineSetLayouts]vk.DescriptorSetLayout
	SetLayoutCount int
	PushConstants  [maxInlinePushConstantRanges]PushConstantRangeKey
	PushConstantCount int
}

// BuildPipelineLayoutKey packs set layouts and push-constant ranges into a
// PipelineLayoutKey.
func BuildPipelineLayoutKey(setLayouts []vk.DescriptorSetLayout, pushConstants []PushConstantRangeKey) PipelineLayoutKey {
	var k PipelineLayoutKey
	k.SetLayoutCount = copy(k.SetLayouts[:], setLayouts)
	k.PushConstantCount = copy(k.PushConstants[:], pushConstants)
	return k
}

// NewDescriptorSetLayoutCache constructs an unbounded cache of
// vk.DescriptorSetLayout handles.
func NewDescriptorSetLayoutCache(dev vk.Device, build Create[DescriptorSetLayoutKey, vk.DescriptorSetLayout]) Unbounded[DescriptorSetLayoutKey, vk.DescriptorSetLayout] {
	return NewUnbounded(build, func(l vk.DescriptorSetLayout) {
		vk.DestroyDescriptorSetLayout(dev, l, nil)
	})
}

// NewPipelineLayoutCache constructs an unbounded cache of
// vk.PipelineLayout handles.
func NewPipelineLayoutCache(dev vk.Device, build Create[PipelineLayoutKey, vk.PipelineLayout]) Unbounded[PipelineLayoutKey, vk.PipelineLayout] {
	return NewUnbounded(build, func(l vk.PipelineLayout) {
		vk.DestroyPipelineLayout(dev, l, nil)
	})
}
