package gfx

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/cache"
)

// PipelineAcquirer resolves a pipeline instance key to a live vk.Pipeline,
// building it on first use. Satisfied by *cache.GraphicsPipelineCache; a
// narrow interface here keeps CommandBuffer testable without a real
// device.
type PipelineAcquirer interface {
	Acquire(key cache.GraphicsPipelineKey, frame uint64) (vk.Pipeline, error)
}

// DescriptorAllocator allocates and writes descriptor sets for one layout
// under the CommandBuffer's chosen DescriptorStrategy (spec.md §4.6 step
// 5). pkg/runtime supplies the concrete implementation, since the pool
// backing a set lives alongside the runtime's other per-frame state.
type DescriptorAllocator interface {
	Allocate(layout vk.DescriptorSetLayout, strategy DescriptorStrategy) (vk.DescriptorSet, error)
	Write(set vk.DescriptorSet, writes []vk.WriteDescriptorSet)
}

const maxBoundSets = 8

// CommandBuffer is the C7 state tracker: it materializes one recording,
// binding pipelines, descriptor sets and dynamic state before each
// draw/dispatch (spec.md §4.6). It does not itself issue vkBeginCommandBuffer
// / vkEndCommandBuffer — those bracket a recording at the runtime level,
// outside this tracker's concern.
type CommandBuffer struct {
	Handle   vk.CommandBuffer
	Strategy DescriptorStrategy

	pipelines PipelineAcquirer
	descs     DescriptorAllocator
	frame     uint64

	base       *PipelineBaseInfo
	dynamic    DynamicState
	fixed      FixedFunctionState
	renderPass vk.RenderPass
	subpass    uint32

	boundPipeline vk.Pipeline
	boundKey      cache.GraphicsPipelineKey
	hasPipeline   bool

	boundSets [maxBoundSets]SetBinding

	viewport       vk.Viewport
	scissor        vk.Rect2D
	lineWidth      float32
	depthBias      [3]float32
	blendConstants [4]float32
	depthBounds    [2]float32
	hasState       DynamicState // which of the above have been set at least once
}

// NewCommandBuffer wraps handle with the caches/allocators it needs to
// resolve pipelines and descriptor sets, recording against the given
// frame counter (Cache's LRU stamp).
func NewCommandBuffer(handle vk.CommandBuffer, pipelines PipelineAcquirer, descs DescriptorAllocator, frame uint64) *CommandBuffer {
	return &CommandBuffer{Handle: handle, Strategy: StrategyCommon, pipelines: pipelines, descs: descs, frame: frame}
}

// BindBase sets the shader stages/layout the next draw will use, and the
// render pass/subpass it records into; it does not itself emit a
// vkCmdBindPipeline — that happens lazily at draw time once the full
// pipeline instance key is known (spec.md §4.6 steps 1-2).
func (cb *CommandBuffer) BindBase(base *PipelineBaseInfo, renderPass vk.RenderPass, subpass uint32) {
	if cb.base != base || cb.renderPass != renderPass || cb.subpass != subpass {
		cb.hasPipeline = false
	}
	cb.base = base
	cb.renderPass = renderPass
	cb.subpass = subpass
}

// SetFixedFunctionState replaces the non-dynamic pipeline state
// participating in the next instance key.
func (cb *CommandBuffer) SetFixedFunctionState(ff FixedFunctionState) {
	cb.fixed = ff
	cb.hasPipeline = false
}

// SetDynamicState marks which pipeline state is flushed via vkCmdSet*
// rather than baked into the instance key.
func (cb *CommandBuffer) SetDynamicState(flags DynamicState) {
	if cb.dynamic != flags {
		cb.hasPipeline = false
	}
	cb.dynamic = flags
}

// SetViewport flushes a vkCmdSetViewport if v differs from the
// last-flushed viewport (math32 comparison per spec.md §4.6's "[EXPANSION]
// Math" note), a no-op when dynamic viewport state is off for the bound
// pipeline.
func (cb *CommandBuffer) SetViewport(v vk.Viewport) {
	if !cb.dynamic.Has(DynamicViewport) {
		return
	}
	if cb.hasState.Has(DynamicViewport) && viewportEqual(cb.viewport, v) {
		return
	}
	cb.viewport = v
	cb.hasState |= DynamicViewport
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{v})
}

// SetScissor flushes a vkCmdSetScissor if r differs from the
// last-flushed scissor rect.
func (cb *CommandBuffer) SetScissor(r vk.Rect2D) {
	if !cb.dynamic.Has(DynamicScissor) {
		return
	}
	if cb.hasState.Has(DynamicScissor) && cb.scissor == r {
		return
	}
	cb.scissor = r
	cb.hasState |= DynamicScissor
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{r})
}

// SetLineWidth flushes a vkCmdSetLineWidth if w differs from the last
// value by 1e-6 or more.
func (cb *CommandBuffer) SetLineWidth(w float32) {
	if !cb.dynamic.Has(DynamicLineWidth) {
		return
	}
	if cb.hasState.Has(DynamicLineWidth) && math32.Abs(cb.lineWidth-w) < 1e-6 {
		return
	}
	cb.lineWidth = w
	cb.hasState |= DynamicLineWidth
	vk.CmdSetLineWidth(cb.Handle, w)
}

// SetDepthBias flushes a vkCmdSetDepthBias if any component changed.
func (cb *CommandBuffer) SetDepthBias(constant, clamp, slope float32) {
	if !cb.dynamic.Has(DynamicDepthBias) {
		return
	}
	next := [3]float32{constant, clamp, slope}
	if cb.hasState.Has(DynamicDepthBias) && vec3Equal(cb.depthBias, next) {
		return
	}
	cb.depthBias = next
	cb.hasState |= DynamicDepthBias
	vk.CmdSetDepthBias(cb.Handle, constant, clamp, slope)
}

// SetBlendConstants flushes a vkCmdSetBlendConstants if c differs.
func (cb *CommandBuffer) SetBlendConstants(c [4]float32) {
	if !cb.dynamic.Has(DynamicBlendConstants) {
		return
	}
	if cb.hasState.Has(DynamicBlendConstants) && vec4Equal(cb.blendConstants, c) {
		return
	}
	cb.blendConstants = c
	cb.hasState |= DynamicBlendConstants
	vk.CmdSetBlendConstants(cb.Handle, c)
}

// SetDepthBounds flushes a vkCmdSetDepthBounds if the range differs.
func (cb *CommandBuffer) SetDepthBounds(min, max float32) {
	if !cb.dynamic.Has(DynamicDepthBounds) {
		return
	}
	next := [2]float32{min, max}
	if cb.hasState.Has(DynamicDepthBounds) && math32.Abs(cb.depthBounds[0]-next[0]) < 1e-6 && math32.Abs(cb.depthBounds[1]-next[1]) < 1e-6 {
		return
	}
	cb.depthBounds = next
	cb.hasState |= DynamicDepthBounds
	vk.CmdSetDepthBounds(cb.Handle, min, max)
}

func viewportEqual(a, b vk.Viewport) bool {
	const eps = 1e-6
	return math32.Abs(a.X-b.X) < eps && math32.Abs(a.Y-b.Y) < eps &&
		math32.Abs(a.Width-b.Width) < eps && math32.Abs(a.Height-b.Height) < eps &&
		math32.Abs(a.MinDepth-b.MinDepth) < eps && math32.Abs(a.MaxDepth-b.MaxDepth) < eps
}

func vec3Equal(a, b [3]float32) bool {
	const eps = 1e-6
	return math32.Abs(a[0]-b[0]) < eps && math32.Abs(a[1]-b[1]) < eps && math32.Abs(a[2]-b[2]) < eps
}

func vec4Equal(a, b [4]float32) bool {
	const eps = 1e-6
	for i := range a {
		if math32.Abs(a[i]-b[i]) >= eps {
			return false
		}
	}
	return true
}

// ensurePipeline implements spec.md §4.6 steps 1-2: build the instance key
// from the currently-bound base + fixed-function state, acquire it from
// the cache, and bind it if it's not already the bound pipeline.
func (cb *CommandBuffer) ensurePipeline() error {
	if cb.base == nil {
		return errors.New("gfx: draw with no pipeline bound")
	}
	key := BuildPipelineInstanceKey(cb.base, cb.fixed, cb.dynamic, cb.renderPass, cb.subpass)
	if cb.hasPipeline && key == cb.boundKey {
		return nil
	}
	p, err := cb.pipelines.Acquire(key, cb.frame)
	if err != nil {
		return errors.Wrap(err, "gfx: acquire pipeline instance")
	}
	vk.CmdBindPipeline(cb.Handle, cb.base.BindPoint, p)
	cb.boundPipeline = p
	cb.boundKey = key
	cb.hasPipeline = true
	return nil
}

// BindDescriptorSet implements spec.md §4.6 steps 3-5 for one set index:
// decls/values describe what the layout declares and what the
// application supplied; the set is only reallocated/rewritten if it was
// disturbed (bound to a different layout since last use) or this is its
// first binding this recording.
func (cb *CommandBuffer) BindDescriptorSet(setIndex uint32, layout vk.DescriptorSetLayout, decls []BindingDecl, values map[uint32]BindingValue) error {
	if int(setIndex) >= maxBoundSets {
		return errors.Errorf("gfx: set index %d exceeds maxBoundSets %d", setIndex, maxBoundSets)
	}

	slot := &cb.boundSets[setIndex]
	if !slot.Disturbed(layout) {
		return nil
	}

	writes, errs := ResolveWrites(decls, values)
	if len(errs) > 0 {
		return errors.Wrapf(errs[0], "gfx: set %d descriptor resolution failed (%d error(s))", setIndex, len(errs))
	}

	set, err := cb.descs.Allocate(layout, cb.Strategy)
	if err != nil {
		return errors.Wrapf(err, "gfx: allocate descriptor set %d", setIndex)
	}
	for i := range writes {
		writes[i].DstSet = set
	}
	cb.descs.Write(set, writes)

	vk.CmdBindDescriptorSets(cb.Handle, cb.base.BindPoint, cb.base.Layout, setIndex, 1, []vk.DescriptorSet{set}, 0, nil)
	*slot = SetBinding{Layout: layout, Set: set, Bound: true}
	return nil
}

// Draw resolves the pending pipeline and records vkCmdDraw.
func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if err := cb.ensurePipeline(); err != nil {
		return err
	}
	vk.CmdDraw(cb.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

// DrawIndexed resolves the pending pipeline and records vkCmdDrawIndexed.
func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	if err := cb.ensurePipeline(); err != nil {
		return err
	}
	vk.CmdDrawIndexed(cb.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

// Dispatch resolves the pending pipeline and records vkCmdDispatch.
func (cb *CommandBuffer) Dispatch(groupsX, groupsY, groupsZ uint32) error {
	if err := cb.ensurePipeline(); err != nil {
		return err
	}
	vk.CmdDispatch(cb.Handle, groupsX, groupsY, groupsZ)
	return nil
}

// Reset clears per-recording state so the CommandBuffer can be reused for
// a fresh vkBeginCommandBuffer against a new frame counter.
func (cb *CommandBuffer) Reset(frame uint64) {
	*cb = CommandBuffer{Handle: cb.Handle, Strategy: cb.Strategy, pipelines: cb.pipelines, descs: cb.descs, frame: frame}
}
