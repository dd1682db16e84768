package cache

import (
	"sync"

	"github.com/andewx/vukgo/pkg/vktypes"
	"github.com/jinzhu/copier"
	vk "github.com/vulkan-go/vulkan"
)

// Small-buffer-optimization capacities for GraphicsPipelineKey: most
// pipelines in a single render graph use a handful of stages, vertex
// bindings/attributes, color attachments and dynamic states, so these sit
// inline in the key (keeping it comparable, hence usable as a Cache map
// key directly); pipelines that exceed a capacity spill into an overflow
// store instead of growing the key itself (Cache.hpp's GraphicsPipelineInfo
// "extended data is deep-copied if not inline" rule, §4.2 expansion).
const (
	maxInlineStages       = 6
	maxInlineVertexInputs = 8
	maxInlineAttachments  = 4
	maxInlineDynamic      = 16
)

// StageKey is the comparable slice of a shader stage the key cares about.
type StageKey struct {
	Stage      vk.ShaderStageFlagBits
	Module     vk.ShaderModule
	EntryPoint string
}

// VertexBinding/VertexAttribute mirror the corresponding vk create-info
// fields as plain comparable values, rather than embedding the vk structs
// directly, so GraphicsPipelineKey's comparability never depends on
// assumptions about fields vulkan-go/vulkan's bindings happen to add.
type VertexBinding struct {
	Binding   uint32
	Stride    uint32
	InputRate vk.VertexInputRate
}

type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   vk.Format
	Offset   uint32
}

type ColorBlendAttachment struct {
	BlendEnable         vk.Bool32
	SrcColorBlendFactor vk.BlendFactor
	DstColorBlendFactor vk.BlendFactor
	ColorBlendOp        vk.BlendOp
	SrcAlphaBlendFactor vk.BlendFactor
	DstAlphaBlendFactor vk.BlendFactor
	AlphaBlendOp        vk.BlendOp
	ColorWriteMask      vk.ColorComponentFlags
}

// overflowPayload holds the portion of a pipeline's creation info that did
// not fit inline. It is heap-owned and deep-copied on insert via
// jinzhu/copier rather than aliasing the caller's slices, since the
// caller's backing arrays may be reused (e.g. a stack-allocated builder)
// after the create call returns.
type overflowPayload struct {
	Stages                []StageKey
	VertexBindings        []VertexBinding
	VertexAttributes      []VertexAttribute
	ColorBlendAttachments []ColorBlendAttachment
	DynamicStates         []vk.DynamicState
}

var (
	overflowMu    sync.Mutex
	overflowStore = map[vktypes.Hash]overflowPayload{}
)

// GraphicsPipelineKey is the create_info_t<GraphicsPipelineInfo> cache key:
// comparable, so it can be used directly as a Cache[GraphicsPipelineKey, V]
// key with no separate hashing step, matching Cache.hpp's
// unordered_map<create_info_t<T>, LRUEntry> but without needing a custom
// std::hash specialization since Go derives struct equality structurally.
type GraphicsPipelineKey struct {
	Stages     [maxInlineStages]StageKey
	StageCount int

	VertexBindings     [maxInlineVertexInputs]VertexBinding
	VertexBindingCount int
	VertexAttributes   [maxInlineVertexInputs]VertexAttribute
	VertexAttribCount  int

	Topology               vk.PrimitiveTopology
	PrimitiveRestartEnable vk.Bool32

	PolygonMode vk.PolygonMode
	CullMode    vk.CullModeFlags
	FrontFace   vk.FrontFace
	LineWidth   float32

	RasterizationSamples vk.SampleCountFlagBits

	DepthTestEnable  vk.Bool32
	DepthWriteEnable vk.Bool32
	DepthCompareOp   vk.CompareOp

	ColorBlendAttachments     [maxInlineAttachments]ColorBlendAttachment
	ColorBlendAttachmentCount int

	DynamicStates     [maxInlineDynamic]vk.DynamicState
	DynamicStateCount int

	Layout     vk.PipelineLayout
	RenderPass vk.RenderPass
	Subpass    uint32

	// Overflow is non-zero when any of the lists above was truncated to
	// its inline capacity; its value identifies the overflowPayload
	// holding the rest, so two pipelines whose overflow content differs
	// still compare unequal even though their inline fields match.
	Overflow vktypes.Hash
}

// BuildGraphicsPipelineKey packs stages/vertex state/dynamic states into a
// GraphicsPipelineKey, spilling anything beyond inline capacity into the
// overflow store.
func BuildGraphicsPipelineKey(
	stages []StageKey,
	bindings []VertexBinding,
	attribs []VertexAttribute,
	blends []ColorBlendAttachment,
	dynamic []vk.DynamicState,
) GraphicsPipelineKey {
	var k GraphicsPipelineKey

	k.StageCount = copy(k.Stages[:], stages)
	k.VertexBindingCount = copy(k.VertexBindings[:], bindings)
	k.VertexAttribCount = copy(k.VertexAttributes[:], attribs)
	k.ColorBlendAttachmentCount = copy(k.ColorBlendAttachments[:], blends)
	k.DynamicStateCount = copy(k.DynamicStates[:], dynamic)

	overflowed := len(stages) > maxInlineStages ||
		len(bindings) > maxInlineVertexInputs ||
		len(attribs) > maxInlineVertexInputs ||
		len(blends) > maxInlineAttachments ||
		len(dynamic) > maxInlineDynamic

	if !overflowed {
		return k
	}

	var payload overflowPayload
	copier.CopyWithOption(&payload.Stages, stages, copier.Option{DeepCopy: true})
	copier.CopyWithOption(&payload.VertexBindings, bindings, copier.Option{DeepCopy: true})
	copier.CopyWithOption(&payload.VertexAttributes, attribs, copier.Option{DeepCopy: true})
	copier.CopyWithOption(&payload.ColorBlendAttachments, blends, copier.Option{DeepCopy: true})
	copier.CopyWithOption(&payload.DynamicStates, dynamic, copier.Option{DeepCopy: true})

	h := vktypes.Hash(0)
	h = vktypes.Combine(h, uint64(len(stages)), uint64(len(bindings)), uint64(len(attribs)), uint64(len(blends)), uint64(len(dynamic)))
	for _, s := range stages {
		h = vktypes.HashString(h, s.EntryPoint)
		h = vktypes.Combine(h, uint64(s.Stage), uint64(s.Module))
	}
	for _, b := range bindings {
		h = vktypes.Combine(h, uint64(b.Binding), uint64(b.Stride), uint64(b.InputRate))
	}
	for _, a := range attribs {
		h = vktypes.Combine(h, uint64(a.Location), uint64(a.Binding), uint64(a.Format), uint64(a.Offset))
	}
	for _, b := range blends {
		h = vktypes.Combine(h, uint64(b.BlendEnable), uint64(b.SrcColorBlendFactor), uint64(b.DstColorBlendFactor), uint64(b.ColorBlendOp),
			uint64(b.SrcAlphaBlendFactor), uint64(b.DstAlphaBlendFactor), uint64(b.AlphaBlendOp), uint64(b.ColorWriteMask))
	}
	for _, d := range dynamic {
		h = vktypes.Combine(h, uint64(d))
	}
	k.Overflow = h
	overflowMu.Lock()
	overflowStore[h] = payload
	overflowMu.Unlock()
	return k
}

// ReleaseOverflow drops an overflow payload from the side store once a
// GraphicsPipelineKey carrying it is evicted from its owning Cache; a
// no-op for keys that never overflowed.
func ReleaseOverflow(k GraphicsPipelineKey) {
	if k.Overflow == 0 {
		return
	}
	overflowMu.Lock()
	delete(overflowStore, k.Overflow)
	overflowMu.Unlock()
}
