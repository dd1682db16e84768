package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestBuildPipelineInstanceKeyOmitsDynamicLineWidth(t *testing.T) {
	base := &PipelineBaseInfo{Layout: vk.PipelineLayout(1)}

	withoutDynamic := BuildPipelineInstanceKey(base, FixedFunctionState{LineWidth: 2.0}, 0, vk.RenderPass(1), 0)
	assert.Equal(t, float32(2.0), withoutDynamic.LineWidth)

	withDynamic := BuildPipelineInstanceKey(base, FixedFunctionState{LineWidth: 2.0}, DynamicLineWidth, vk.RenderPass(1), 0)
	assert.Equal(t, float32(0), withDynamic.LineWidth, "a dynamically-set line width must not be baked into the key")
}

func TestBuildPipelineInstanceKeyTwoDrawsDifferingOnlyInDynamicViewportShareAKey(t *testing.T) {
	base := &PipelineBaseInfo{Layout: vk.PipelineLayout(1)}
	ff := FixedFunctionState{Topology: vk.PrimitiveTopologyTriangleList}

	a := BuildPipelineInstanceKey(base, ff, DynamicViewport, vk.RenderPass(1), 0)
	b := BuildPipelineInstanceKey(base, ff, DynamicViewport, vk.RenderPass(1), 0)

	assert.Equal(t, a, b, "identical inputs with the same dynamic-state set must produce an identical, comparable key")
}

func TestBuildPipelineInstanceKeyCarriesLayoutRenderPassAndSubpass(t *testing.T) {
	base := &PipelineBaseInfo{Layout: vk.PipelineLayout(42)}
	k := BuildPipelineInstanceKey(base, FixedFunctionState{}, 0, vk.RenderPass(7), 3)

	assert.Equal(t, vk.PipelineLayout(42), k.Layout)
	assert.Equal(t, vk.RenderPass(7), k.RenderPass)
	assert.Equal(t, uint32(3), k.Subpass)
}

func TestBuildPipelineInstanceKeyEncodesEveryDynamicStateBit(t *testing.T) {
	base := &PipelineBaseInfo{}
	all := DynamicViewport | DynamicScissor | DynamicLineWidth | DynamicDepthBias | DynamicBlendConstants | DynamicDepthBounds
	k := BuildPipelineInstanceKey(base, FixedFunctionState{}, all, vk.RenderPass(0), 0)

	assert.Equal(t, 6, k.DynamicStateCount)
}
