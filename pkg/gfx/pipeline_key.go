package gfx

import (
	"github.com/andewx/vukgo/pkg/cache"
	vk "github.com/vulkan-go/vulkan"
)

// BuildPipelineInstanceKey assembles the cache.GraphicsPipelineKey for the
// currently-bound base pipeline plus render pass and fixed-function state,
// per spec.md §4.6 step 1: any field whose corresponding DynamicState bit
// is set is omitted from the key (it is flushed as a vkCmdSet* call
// instead of baked into the pipeline), so two draws that differ only in a
// dynamic viewport still share one cached pipeline instance.
func BuildPipelineInstanceKey(base *PipelineBaseInfo, ff FixedFunctionState, dyn DynamicState, renderPass vk.RenderPass, subpass uint32) cache.GraphicsPipelineKey {
	stages := make([]cache.StageKey, len(base.Stages))
	for i, s := range base.Stages {
		stages[i] = cache.StageKey{Stage: s.Stage, Module: s.Module, EntryPoint: s.EntryPoint}
	}

	bindings := make([]cache.VertexBinding, len(ff.VertexBindings))
	for i, b := range ff.VertexBindings {
		bindings[i] = cache.VertexBinding{Binding: b.Binding, Stride: b.Stride, InputRate: b.InputRate}
	}
	attribs := make([]cache.VertexAttribute, len(ff.VertexAttributes))
	for i, a := range ff.VertexAttributes {
		attribs[i] = cache.VertexAttribute{Location: a.Location, Binding: a.Binding, Format: a.Format, Offset: a.Offset}
	}
	blends := make([]cache.ColorBlendAttachment, len(ff.ColorBlendAttachments))
	for i, b := range ff.ColorBlendAttachments {
		blends[i] = cache.ColorBlendAttachment{
			BlendEnable:         vkBool(b.BlendEnable),
			SrcColorBlendFactor: b.SrcColorBlendFactor,
			DstColorBlendFactor: b.DstColorBlendFactor,
			ColorBlendOp:        b.ColorBlendOp,
			SrcAlphaBlendFactor: b.SrcAlphaBlendFactor,
			DstAlphaBlendFactor: b.DstAlphaBlendFactor,
			AlphaBlendOp:        b.AlphaBlendOp,
			ColorWriteMask:      b.ColorWriteMask,
		}
	}

	var dynStates []vk.DynamicState
	if dyn.Has(DynamicViewport) {
		dynStates = append(dynStates, vk.DynamicStateViewport)
	}
	if dyn.Has(DynamicScissor) {
		dynStates = append(dynStates, vk.DynamicStateScissor)
	}
	if dyn.Has(DynamicLineWidth) {
		dynStates = append(dynStates, vk.DynamicStateLineWidth)
	}
	if dyn.Has(DynamicDepthBias) {
		dynStates = append(dynStates, vk.DynamicStateDepthBias)
	}
	if dyn.Has(DynamicBlendConstants) {
		dynStates = append(dynStates, vk.DynamicStateBlendConstants)
	}
	if dyn.Has(DynamicDepthBounds) {
		dynStates = append(dynStates, vk.DynamicStateDepthBounds)
	}

	k := cache.BuildGraphicsPipelineKey(stages, bindings, attribs, blends, dynStates)

	k.Topology = ff.Topology
	k.PrimitiveRestartEnable = vkBool(ff.PrimitiveRestartEnable)
	k.PolygonMode = ff.PolygonMode
	k.CullMode = ff.CullMode
	k.FrontFace = ff.FrontFace
	k.RasterizationSamples = ff.RasterizationSamples
	k.DepthTestEnable = vkBool(ff.DepthTestEnable)
	k.DepthWriteEnable = vkBool(ff.DepthWriteEnable)
	k.DepthCompareOp = ff.DepthCompareOp
	k.Layout = base.Layout
	k.RenderPass = renderPass
	k.Subpass = subpass

	// LineWidth is baked into the key only when it is not dynamically set;
	// a dynamic line width is flushed via vkCmdSetLineWidth instead and
	// must not make otherwise-identical pipelines compare unequal.
	if !dyn.Has(DynamicLineWidth) {
		k.LineWidth = ff.LineWidth
	}

	return k
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
