package exec

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/alloc"
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/queue"
	"github.com/andewx/vukgo/pkg/resource"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// Recorder abstracts the raw command-buffer calls Execute emits around
// each scheduled item, so the record loop can be exercised without a live
// device (the same injected-dependency idiom pkg/queue's Submit uses for
// vkQueueSubmit).
type Recorder interface {
	Begin(cb vk.CommandBuffer) error
	End(cb vk.CommandBuffer) error
	ImageBarrier(cb vk.CommandBuffer, img *resource.ImageAttachment, old vk.ImageLayout, use vktypes.ResourceUse)
	ClearColorImage(cb vk.CommandBuffer, img *resource.ImageAttachment, color [4]float32)
}

// VkRecorder is the production Recorder, calling straight into the Vulkan
// binding the way the teacher's render loop does.
type VkRecorder struct{}

func (VkRecorder) Begin(cb vk.CommandBuffer) error {
	ret := vk.BeginCommandBuffer(cb, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if ret != vk.Success {
		return errors.Errorf("exec: vkBeginCommandBuffer failed: %d", ret)
	}
	return nil
}

func (VkRecorder) End(cb vk.CommandBuffer) error {
	if ret := vk.EndCommandBuffer(cb); ret != vk.Success {
		return errors.Errorf("exec: vkEndCommandBuffer failed: %d", ret)
	}
	return nil
}

func (VkRecorder) ImageBarrier(cb vk.CommandBuffer, img *resource.ImageAttachment, old vk.ImageLayout, use vktypes.ResourceUse) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask:       use.Access,
		OldLayout:           old,
		NewLayout:           use.Layout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vktypes.FormatToAspect(img.Format),
			BaseMipLevel:   img.BaseLevel,
			LevelCount:     img.Levels,
			BaseArrayLayer: img.BaseLayer,
			LayerCount:     img.Layers,
		},
	}
	stages := use.Stages
	if stages == 0 {
		stages = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), stages,
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (VkRecorder) ClearColorImage(cb vk.CommandBuffer, img *resource.ImageAttachment, color [4]float32) {
	rng := vk.ImageSubresourceRange{
		AspectMask:     vktypes.FormatToAspect(img.Format),
		BaseMipLevel:   img.BaseLevel,
		LevelCount:     img.Levels,
		BaseArrayLayer: img.BaseLayer,
		LayerCount:     img.Layers,
	}
	// The color member is first in the VkClearValue union, so the
	// ClearValue the binding's constructor fills reinterprets directly.
	cv := vk.NewClearValue(color[:])
	vk.CmdClearColorImage(cb, img.Image, img.Layout,
		(*vk.ClearColorValue)(unsafe.Pointer(&cv)), 1, []vk.ImageSubresourceRange{rng})
}

// CommandContext is what a CALL callback receives as its
// ir.CommandBufferStub: the raw handle for direct vk.Cmd* recording.
// Callbacks that want the C7 state tracker wrap Handle in a
// gfx.CommandBuffer themselves, supplying their own pipeline/descriptor
// collaborators.
type CommandContext struct {
	Handle vk.CommandBuffer
}

// Record implements ir.CommandBufferStub. Named command playback is the
// callback's job; the stub only carries the handle across the pkg/ir
// boundary.
func (c CommandContext) Record(name string, args []any) {}

// vkSubmitFn builds the production submit function for one executor's
// timeline: the batch signals timeline=value on completion, which is what
// stamps the SyncPoint the executor hands back (spec.md §4.7).
func vkSubmitFn(timeline vk.Semaphore) func(vk.Queue, queue.Submission, uint64) vk.Result {
	return func(q vk.Queue, sub queue.Submission, value uint64) vk.Result {
		signalSems := append(append([]vk.Semaphore{}, sub.SignalSemaphores...), timeline)
		signalValues := append(append([]uint64{}, sub.SignalValues...), value)

		timelineInfo := vk.TimelineSemaphoreSubmitInfo{
			SType:                     vk.StructureTypeTimelineSemaphoreSubmitInfo,
			WaitSemaphoreValueCount:   uint32(len(sub.WaitValues)),
			PWaitSemaphoreValues:      sub.WaitValues,
			SignalSemaphoreValueCount: uint32(len(signalValues)),
			PSignalSemaphoreValues:    signalValues,
		}
		info := vk.SubmitInfo{
			SType:                vk.StructureTypeSubmitInfo,
			PNext:                unsafe.Pointer(&timelineInfo),
			WaitSemaphoreCount:   uint32(len(sub.WaitSemaphores)),
			PWaitSemaphores:      sub.WaitSemaphores,
			PWaitDstStageMask:    sub.WaitStages,
			CommandBufferCount:   uint32(len(sub.CommandBuffers)),
			PCommandBuffers:      sub.CommandBuffers,
			SignalSemaphoreCount: uint32(len(signalSems)),
			PSignalSemaphores:    signalSems,
		}
		return vk.QueueSubmit(q, 1, []vk.SubmitInfo{info}, vk.NullFence)
	}
}

// recordNode dispatches one scheduled item: emit its owed layout
// transitions, acquire backing resources on first device use, then record
// or host-evaluate the node itself.
func (g *ExecutableRenderGraph) recordNode(rec *recording, n *ir.Node) error {
	switch p := n.Payload.(type) {
	case ir.CallPayload:
		args := make([]any, len(p.Args))
		for i, a := range p.Args {
			if err := g.prepareOperand(rec, a, n); err != nil {
				return err
			}
			v, err := g.eval(a)
			if err != nil {
				return err
			}
			args[i] = v
		}
		var results []any
		if p.Callback != nil {
			results = p.Callback(CommandContext{Handle: rec.cb}, args)
		}
		for i := range n.ResultTypes {
			r := ir.Ref{Node: n, Index: i}
			switch {
			case i < len(results):
				g.env[r] = results[i]
			case n.ResultTypes[i].Kind == ir.AliasedTy && n.ResultTypes[i].RefIndex < len(args):
				// Aliased returns carry the argument they alias forward.
				g.env[r] = args[n.ResultTypes[i].RefIndex]
			}
		}
		return nil

	case ir.ClearPayload:
		if err := g.prepareOperand(rec, p.Dst, n); err != nil {
			return err
		}
		v, err := g.eval(p.Dst)
		if err != nil {
			return err
		}
		img, ok := v.(*resource.ImageAttachment)
		if !ok {
			return errors.Errorf("exec: CLEAR of non-image value (node %d)", n.Index)
		}
		use := vktypes.ToUse(vktypes.AccessClear)
		if img.Layout != use.Layout {
			g.cfg.Recorder.ImageBarrier(rec.cb, img, img.Layout, use)
			img.Layout = use.Layout
		}
		g.cfg.Recorder.ClearColorImage(rec.cb, img, clearValue(p.Value))
		g.env[n.Ref0()] = img
		return nil

	case ir.UsePayload:
		if err := g.prepareOperand(rec, p.Src, n); err != nil {
			return err
		}
		v, err := g.eval(p.Src)
		if err != nil {
			return err
		}
		g.env[n.Ref0()] = v
		return nil

	case ir.AcquirePayload:
		for i, v := range p.Values {
			g.env[ir.Ref{Node: n, Index: i}] = v
		}
		if n.RelAcq != nil && n.RelAcq.Status == ir.Synchronizable {
			rec.addWait(n.RelAcq.Source)
		}
		return nil

	case ir.ReleasePayload:
		for _, s := range p.Src {
			if err := g.prepareOperand(rec, s, n); err != nil {
				return err
			}
		}
		if n.RelAcq != nil {
			rec.toArm = append(rec.toArm, n.RelAcq)
		}
		return nil

	case ir.AcquireNextImagePayload:
		swv, err := g.eval(p.Swapchain)
		if err != nil {
			return err
		}
		src, ok := swv.(SwapchainSource)
		if !ok {
			return errors.Errorf("exec: ACQUIRE_NEXT_IMAGE over non-swapchain value (node %d)", n.Index)
		}
		att, sem, ret := src.AcquireNextAttachment(^uint64(0))
		if ret != vk.Success && ret != vk.Suboptimal {
			return errors.Errorf("exec: vkAcquireNextImage failed: %d", ret)
		}
		if sem != vk.NullSemaphore {
			rec.binaryWaits = append(rec.binaryWaits, sem)
		}
		g.env[n.Ref0()] = &att
		return nil

	case ir.AllocatePayload:
		return g.recordAllocate(n, p)

	case ir.CompilePipelinePayload:
		g.env[n.Ref0()] = p.Info
		return nil

	default:
		// Remaining schedulable kinds (CONVERGE, LOGICAL_COPY, CAST,
		// MATH_BINARY, SET, GET_ALLOCATION_SIZE, GET_CI) emit no device
		// commands; their value is host-evaluated on demand.
		_, err := g.eval(n.Ref0())
		return err
	}
}

// prepareOperand makes one consumed operand device-ready: backing memory
// is allocated on first use, and the layout transition pass 10 computed
// for this consumer is recorded if the image is not already there.
func (g *ExecutableRenderGraph) prepareOperand(rec *recording, arg ir.Ref, consumer *ir.Node) error {
	v, err := g.eval(arg)
	if err != nil {
		return err
	}
	if err := g.materialize(v); err != nil {
		return err
	}

	img, ok := v.(*resource.ImageAttachment)
	if !ok {
		return nil
	}
	use := syncFor(arg.Link(), consumer)
	if use == nil || use.Layout == vk.ImageLayoutUndefined || img.Layout == use.Layout {
		return nil
	}
	g.cfg.Recorder.ImageBarrier(rec.cb, img, img.Layout, *use)
	img.Layout = use.Layout
	return nil
}

// syncFor picks the materialized barrier parameters pass 10 attached to
// the link for this consumer: UndefSync when the consumer invalidates the
// subrange, the merged ReadSync when it is one of the parallel readers.
func syncFor(l *ir.ChainLink, consumer *ir.Node) *vktypes.ResourceUse {
	if l == nil {
		return nil
	}
	if l.Undef.Node == consumer {
		return l.UndefSync
	}
	for _, r := range l.Reads {
		if r.Node == consumer {
			return l.ReadSync
		}
	}
	return nil
}

// materialize allocates device backing for an evaluated image or buffer
// that has none yet — "per-scheduled item: acquire resources from C3"
// (spec.md §2's data flow). Values that are already backed, or are not
// device resources at all, pass through untouched.
func (g *ExecutableRenderGraph) materialize(v any) error {
	switch x := v.(type) {
	case *resource.ImageAttachment:
		if x.Image != vk.NullImage || x.Allocation != nil {
			return nil
		}
		if !x.IsExtentKnown() || !x.IsFormatKnown() {
			return errors.New("exec: image reached execution with unresolved extent/format (unattached resource)")
		}
		if !x.IsSampleCountKnown() {
			x.SampleCount = vk.SampleCount1Bit
		}
		usage := x.Usage
		if usage == 0 {
			usage = vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) |
				vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) |
				vk.ImageUsageFlags(vk.ImageUsageSampledBit) |
				vk.ImageUsageFlags(vk.ImageUsageStorageBit) |
				vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		}
		dst := make([]resource.ImageAttachment, 1)
		info := []alloc.ImageCreateInfo{{
			ImageType:   vk.ImageType2d,
			Format:      x.Format,
			Extent:      x.Extent,
			MipLevels:   x.Levels,
			ArrayLayers: x.Layers,
			Samples:     x.SampleCount,
			Usage:       usage,
			Mem:         alloc.MemoryGPUOnly,
		}}
		if err := g.cfg.Resource.AllocateImages(dst, info); err != nil {
			return err
		}
		x.Image = dst[0].Image
		x.ImageView = dst[0].ImageView
		x.Allocation = dst[0].Allocation
		x.Layout = vk.ImageLayoutUndefined
		return nil

	case *resource.Buffer:
		if x.Handle != vk.NullBuffer || x.Allocation != nil {
			return nil
		}
		if !x.IsSizeKnown() {
			return errors.New("exec: buffer reached execution with unresolved size (unattached resource)")
		}
		usage := x.Usage
		if usage == 0 {
			usage = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit) |
				vk.BufferUsageFlags(vk.BufferUsageTransferDstBit) |
				vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit) |
				vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
		}
		dst := make([]resource.Buffer, 1)
		info := []alloc.BufferCreateInfo{{Size: x.Size, Usage: usage, Mem: alloc.MemoryGPUOnly}}
		if err := g.cfg.Resource.AllocateBuffers(dst, info); err != nil {
			return err
		}
		x.Handle = dst[0].Handle
		x.Offset = dst[0].Offset
		x.Mapped = dst[0].Mapped
		x.Allocation = dst[0].Allocation
		return nil

	default:
		return nil
	}
}

// recordAllocate handles an explicit ALLOCATE node: its Info names the
// exact create-info to allocate from the chain, and the node's result is
// the backed resource.
func (g *ExecutableRenderGraph) recordAllocate(n *ir.Node, p ir.AllocatePayload) error {
	switch info := p.Info.(type) {
	case alloc.BufferCreateInfo:
		dst := make([]resource.Buffer, 1)
		if err := g.cfg.Resource.AllocateBuffers(dst, []alloc.BufferCreateInfo{info}); err != nil {
			return err
		}
		g.env[n.Ref0()] = &dst[0]
		return nil
	case alloc.ImageCreateInfo:
		dst := make([]resource.ImageAttachment, 1)
		if err := g.cfg.Resource.AllocateImages(dst, []alloc.ImageCreateInfo{info}); err != nil {
			return err
		}
		g.env[n.Ref0()] = &dst[0]
		return nil
	default:
		return errors.Errorf("exec: ALLOCATE with unsupported info %T", p.Info)
	}
}

// clearValue normalizes a CLEAR node's host value to RGBA floats.
func clearValue(v any) [4]float32 {
	switch x := v.(type) {
	case [4]float32:
		return x
	case []float32:
		var c [4]float32
		copy(c[:], x)
		return c
	default:
		return [4]float32{}
	}
}
