package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/cache"
)

type stubPipelines struct {
	calls int
	keys  []cache.GraphicsPipelineKey
}

func (s *stubPipelines) Acquire(key cache.GraphicsPipelineKey, frame uint64) (vk.Pipeline, error) {
	s.calls++
	s.keys = append(s.keys, key)
	return vk.Pipeline(uintptr(s.calls)), nil
}

type stubDescriptors struct {
	allocated int
	written   [][]vk.WriteDescriptorSet
}

func (s *stubDescriptors) Allocate(layout vk.DescriptorSetLayout, strategy DescriptorStrategy) (vk.DescriptorSet, error) {
	s.allocated++
	return vk.DescriptorSet(uintptr(s.allocated)), nil
}

func (s *stubDescriptors) Write(set vk.DescriptorSet, writes []vk.WriteDescriptorSet) {
	s.written = append(s.written, writes)
}

func newTestCommandBuffer() (*CommandBuffer, *stubPipelines, *stubDescriptors) {
	p := &stubPipelines{}
	d := &stubDescriptors{}
	return NewCommandBuffer(vk.CommandBuffer(nil), p, d, 1), p, d
}

func TestDrawAcquiresPipelineOnce(t *testing.T) {
	cb, p, _ := newTestCommandBuffer()
	base := &PipelineBaseInfo{Name: "tri", BindPoint: vk.PipelineBindPointGraphics}
	cb.BindBase(base, vk.RenderPass(1), 0)

	require.NoError(t, cb.Draw(3, 1, 0, 0))
	require.NoError(t, cb.Draw(3, 1, 0, 0))

	assert.Equal(t, 1, p.calls, "repeated draws with unchanged state reuse the cached pipeline instance")
}

func TestChangingFixedFunctionStateRebuildsKey(t *testing.T) {
	cb, p, _ := newTestCommandBuffer()
	base := &PipelineBaseInfo{Name: "tri", BindPoint: vk.PipelineBindPointGraphics}
	cb.BindBase(base, vk.RenderPass(1), 0)

	require.NoError(t, cb.Draw(3, 1, 0, 0))
	cb.SetFixedFunctionState(FixedFunctionState{CullMode: vk.CullModeFlags(vk.CullModeBackBit)})
	require.NoError(t, cb.Draw(3, 1, 0, 0))

	assert.Equal(t, 2, p.calls)
	assert.NotEqual(t, p.keys[0], p.keys[1])
}

func TestDynamicViewportExcludedFromKey(t *testing.T) {
	cb, p, _ := newTestCommandBuffer()
	base := &PipelineBaseInfo{Name: "tri", BindPoint: vk.PipelineBindPointGraphics}
	cb.BindBase(base, vk.RenderPass(1), 0)
	cb.SetDynamicState(DynamicViewport)

	cb.SetViewport(vk.Viewport{Width: 100, Height: 100, MaxDepth: 1})
	require.NoError(t, cb.Draw(3, 1, 0, 0))
	cb.SetViewport(vk.Viewport{Width: 200, Height: 200, MaxDepth: 1})
	require.NoError(t, cb.Draw(3, 1, 0, 0))

	assert.Equal(t, 1, p.calls, "a dynamic viewport change must not invalidate the cached pipeline instance")
}

func TestDrawWithNoPipelineBoundErrors(t *testing.T) {
	cb, _, _ := newTestCommandBuffer()
	err := cb.Draw(3, 1, 0, 0)
	require.Error(t, err)
}

func TestBindDescriptorSetSkipsUndisturbedSlot(t *testing.T) {
	cb, _, d := newTestCommandBuffer()
	cb.BindBase(&PipelineBaseInfo{Name: "tri", BindPoint: vk.PipelineBindPointGraphics}, vk.RenderPass(1), 0)
	layout := vk.DescriptorSetLayout(1)
	decls := []BindingDecl{{Set: 0, Binding: 0, Type: vk.DescriptorTypeUniformBuffer}}
	values := map[uint32]BindingValue{0: {Binding: 0, Type: vk.DescriptorTypeUniformBuffer, HasBuffer: true}}

	require.NoError(t, cb.BindDescriptorSet(0, layout, decls, values))
	require.NoError(t, cb.BindDescriptorSet(0, layout, decls, values))

	assert.Equal(t, 1, d.allocated, "rebinding the same layout into the same slot must not reallocate")
}

func TestBindDescriptorSetReallocatesOnDisturbance(t *testing.T) {
	cb, _, d := newTestCommandBuffer()
	cb.BindBase(&PipelineBaseInfo{Name: "tri", BindPoint: vk.PipelineBindPointGraphics}, vk.RenderPass(1), 0)
	decls := []BindingDecl{{Set: 0, Binding: 0, Type: vk.DescriptorTypeUniformBuffer}}
	values := map[uint32]BindingValue{0: {Binding: 0, Type: vk.DescriptorTypeUniformBuffer, HasBuffer: true}}

	require.NoError(t, cb.BindDescriptorSet(0, vk.DescriptorSetLayout(1), decls, values))
	require.NoError(t, cb.BindDescriptorSet(0, vk.DescriptorSetLayout(2), decls, values))

	assert.Equal(t, 2, d.allocated)
}

func TestBindDescriptorSetMissingRequiredBindingErrors(t *testing.T) {
	cb, _, _ := newTestCommandBuffer()
	decls := []BindingDecl{{Set: 0, Binding: 0, Type: vk.DescriptorTypeUniformBuffer}}
	err := cb.BindDescriptorSet(0, vk.DescriptorSetLayout(1), decls, map[uint32]BindingValue{})
	require.Error(t, err)
}

func TestResolveWritesDropsUnsetOptionalBinding(t *testing.T) {
	decls := []BindingDecl{{Set: 0, Binding: 0, Type: vk.DescriptorTypeSampler, Optional: true}}
	writes, errs := ResolveWrites(decls, map[uint32]BindingValue{})
	assert.Empty(t, errs)
	assert.Empty(t, writes)
}

func TestResolveWritesUpgradesSamplerToCombined(t *testing.T) {
	decls := []BindingDecl{{Set: 0, Binding: 0, Type: vk.DescriptorTypeCombinedImageSampler}}
	values := map[uint32]BindingValue{0: {Binding: 0, Type: vk.DescriptorTypeSampledImage, HasImage: true}}
	writes, errs := ResolveWrites(decls, values)
	require.Empty(t, errs)
	require.Len(t, writes, 1)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, writes[0].DescriptorType)
}

func TestResolveWritesReportsMismatch(t *testing.T) {
	decls := []BindingDecl{{Set: 2, Binding: 5, Type: vk.DescriptorTypeUniformBuffer}}
	values := map[uint32]BindingValue{5: {Binding: 5, Type: vk.DescriptorTypeSampler}}
	_, errs := ResolveWrites(decls, values)
	require.Len(t, errs, 1)
	var mismatch *DescriptorMismatchError
	require.ErrorAs(t, errs[0], &mismatch)
	assert.Equal(t, uint32(2), mismatch.Set)
	assert.Equal(t, uint32(5), mismatch.Binding)
}
