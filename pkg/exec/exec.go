// Package exec materializes a compiled render graph: per scheduled item
// it acquires backing resources through the DeviceResource chain, records
// the synthesized layout transitions and the node's commands into a
// per-queue command buffer, then submits each queue partition through its
// QueueExecutor — arming the originating AcquireRelease signals and
// wiring cross-queue timeline-semaphore waits.
//
// Grounded on original_source/src/RenderGraph.cpp's
// ExecutableRenderGraph::execute (the per-scheduled-item record loop and
// the partition-at-a-time submit) and the teacher's render loop
// (pkg/legacy/asche/context.go), which performs the same
// begin/record/end/submit sequence by hand for its single hardcoded pass.
package exec

import (
	"context"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/alloc"
	"github.com/andewx/vukgo/pkg/compiler"
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/queue"
	"github.com/andewx/vukgo/pkg/resource"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// SwapchainSource is what an ACQUIRE_NEXT_IMAGE node's swapchain operand
// must evaluate to at execution time (spec.md §6.3: "reads the swapchain
// pointer at execution time and materializes to the current-image
// ImageAttachment"). Implemented by pkg/swapchain.Swapchain.
type SwapchainSource interface {
	AcquireNextAttachment(timeout uint64) (resource.ImageAttachment, vk.Semaphore, vk.Result)
}

// Config wires an ExecutableRenderGraph to the device-facing collaborators
// it drives. Recorder and SubmitFn default to the real Vulkan calls when
// nil; tests inject fakes the same way pkg/queue's tests inject a submit
// function.
type Config struct {
	Resource  alloc.DeviceResource
	Executors map[vktypes.Domain]*queue.QueueExecutor

	Recorder Recorder
	SubmitFn func(vk.Queue, queue.Submission, uint64) vk.Result

	// Frame stamps pipeline-cache acquisitions made during recording.
	Frame uint64
}

// ExecutableRenderGraph drives one compiled schedule to submission. It is
// single-use: Execute consumes the compiler's pass state and the value
// environment it builds is read back by Result/Get afterwards.
type ExecutableRenderGraph struct {
	comp *compiler.Compiler
	cfg  Config

	env   map[ir.Ref]any
	pools map[uint32]vk.CommandPool
	cbs   map[uint32][]vk.CommandBuffer

	submitted []ir.SyncPoint
}

// NewExecutable binds a compiled graph to its execution collaborators.
func NewExecutable(comp *compiler.Compiler, cfg Config) *ExecutableRenderGraph {
	if cfg.Recorder == nil {
		cfg.Recorder = VkRecorder{}
	}
	return &ExecutableRenderGraph{
		comp:  comp,
		cfg:   cfg,
		env:   make(map[ir.Ref]any),
		pools: make(map[uint32]vk.CommandPool),
		cbs:   make(map[uint32][]vk.CommandBuffer),
	}
}

// SyncPoints returns the sync point of every submission Execute performed,
// in submit order (transfer, compute, graphics).
func (g *ExecutableRenderGraph) SyncPoints() []ir.SyncPoint { return g.submitted }

// recording accumulates per-partition submit state while the partition's
// items are recorded: the timeline waits owed to earlier partitions and
// external acquires, the binary-semaphore waits owed to swapchain image
// acquisition, and the signals this submission must arm.
type recording struct {
	cb          vk.CommandBuffer
	waits       map[ir.Executor]uint64
	waitOrder   []ir.Executor
	binaryWaits []vk.Semaphore
	toArm       []*ir.AcquireRelease
}

func (r *recording) addWait(sp ir.SyncPoint) {
	if sp.Executor == nil {
		return
	}
	if v, ok := r.waits[sp.Executor]; !ok {
		r.waitOrder = append(r.waitOrder, sp.Executor)
		r.waits[sp.Executor] = sp.Value
	} else if sp.Value > v {
		r.waits[sp.Executor] = sp.Value
	}
}

// Execute records and submits every non-empty queue partition in span
// order. Cross-queue reads wait on the producing partition's timeline
// value (spec.md §4.4: "a read between two disjoint queues must insert a
// semaphore wait on the target queue (materialized at execution)").
func (g *ExecutableRenderGraph) Execute(ctx context.Context) ([]ir.SyncPoint, error) {
	type partition struct {
		domain vktypes.Domain
		span   [2]int
	}
	parts := []partition{
		{vktypes.DomainTransferQueue, g.comp.TransferSpan},
		{vktypes.DomainComputeQueue, g.comp.ComputeSpan},
		{vktypes.DomainGraphicsQueue, g.comp.GraphicsSpan},
	}

	sched := g.comp.Scheduled()
	nodePart := make(map[*ir.Node]int)
	partSP := make(map[int]ir.SyncPoint)

	for pi, part := range parts {
		if part.span[0] >= part.span[1] {
			continue
		}
		items := sched[part.span[0]:part.span[1]]

		qe := g.executorFor(part.domain)
		if qe == nil {
			return nil, errors.Errorf("exec: no executor serves domain %s", part.domain)
		}

		cb, err := g.commandBuffer(qe.Family())
		if err != nil {
			return nil, err
		}
		if err := g.cfg.Recorder.Begin(cb); err != nil {
			return nil, err
		}

		rec := &recording{cb: cb, waits: make(map[ir.Executor]uint64)}
		for _, it := range items {
			nodePart[it.Node] = pi
			for _, dep := range payloadRefs(it.Node) {
				if dpi, ok := nodePart[dep.Node]; ok && dpi != pi {
					rec.addWait(partSP[dpi])
				}
			}
			if err := g.recordNode(rec, it.Node); err != nil {
				return nil, err
			}
		}

		if err := g.cfg.Recorder.End(cb); err != nil {
			return nil, err
		}

		sub := queue.Submission{CommandBuffers: []vk.CommandBuffer{cb}}
		for _, ex := range rec.waitOrder {
			qex, ok := ex.(*queue.QueueExecutor)
			if !ok {
				continue
			}
			sub.WaitSemaphores = append(sub.WaitSemaphores, qex.Timeline)
			sub.WaitValues = append(sub.WaitValues, rec.waits[ex])
			sub.WaitStages = append(sub.WaitStages, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit))
		}
		for _, sem := range rec.binaryWaits {
			sub.WaitSemaphores = append(sub.WaitSemaphores, sem)
			sub.WaitValues = append(sub.WaitValues, 0)
			sub.WaitStages = append(sub.WaitStages, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit))
		}

		submitFn := g.cfg.SubmitFn
		if submitFn == nil {
			submitFn = vkSubmitFn(qe.Timeline)
		}
		sp, err := qe.Submit(ctx, sub, submitFn, rec.toArm)
		if err != nil {
			return nil, err
		}
		partSP[pi] = sp
		g.submitted = append(g.submitted, sp)
	}
	return g.submitted, nil
}

// executorFor resolves the executor serving domain, falling back to the
// graphics executor when a device exposes no dedicated compute/transfer
// queue — queue inference (pass 8) assumes a graphics queue always exists.
func (g *ExecutableRenderGraph) executorFor(domain vktypes.Domain) *queue.QueueExecutor {
	if qe, ok := g.cfg.Executors[domain]; ok {
		return qe
	}
	return g.cfg.Executors[vktypes.DomainGraphicsQueue]
}

// commandBuffer allocates a primary command buffer from a per-family pool
// created on first use. Pools and buffers are owned by the graph until
// Release is called; submission lifetime is the caller's concern (a
// PerFrame resource upstream defers the actual free).
func (g *ExecutableRenderGraph) commandBuffer(family uint32) (vk.CommandBuffer, error) {
	pool, ok := g.pools[family]
	if !ok {
		dst := make([]vk.CommandPool, 1)
		info := []alloc.CommandPoolCreateInfo{{QueueFamilyIndex: family}}
		if err := g.cfg.Resource.AllocateCommandPools(dst, info); err != nil {
			return nil, errors.Wrap(err, "exec: command pool")
		}
		pool = dst[0]
		g.pools[family] = pool
	}

	dst := make([]vk.CommandBuffer, 1)
	info := []alloc.CommandBufferAllocateInfo{{Pool: pool, Level: vk.CommandBufferLevelPrimary}}
	if err := g.cfg.Resource.AllocateCommandBuffers(dst, info); err != nil {
		return nil, errors.Wrap(err, "exec: command buffer")
	}
	g.cbs[family] = append(g.cbs[family], dst[0])
	return dst[0], nil
}

// Release returns every command buffer and pool the graph allocated to the
// DeviceResource it came from. Callers must not Release before the
// submissions in SyncPoints have completed (or without an intervening
// PerFrame upstream deferring the free).
func (g *ExecutableRenderGraph) Release() {
	for family, cbs := range g.cbs {
		g.cfg.Resource.DeallocateCommandBuffers(g.pools[family], cbs)
	}
	for _, pool := range g.pools {
		g.cfg.Resource.DeallocateCommandPools([]vk.CommandPool{pool})
	}
	g.cbs = make(map[uint32][]vk.CommandBuffer)
	g.pools = make(map[uint32]vk.CommandPool)
}

// payloadRefs returns every Ref a node's payload holds, for cross-queue
// dependency detection. Mirrors pass 2/3's refsOf but lives here so
// pkg/exec does not reach into compiler internals.
func payloadRefs(n *ir.Node) []ir.Ref {
	switch p := n.Payload.(type) {
	case ir.ConstructPayload:
		return p.Args
	case ir.CallPayload:
		return p.Args
	case ir.SlicePayload:
		return []ir.Ref{p.Src, p.Start, p.Count}
	case ir.ConvergePayload:
		return append([]ir.Ref{p.Base}, p.Diverged...)
	case ir.ClearPayload:
		return []ir.Ref{p.Dst}
	case ir.UsePayload:
		return []ir.Ref{p.Src}
	case ir.LogicalCopyPayload:
		return []ir.Ref{p.Src, p.Dst}
	case ir.SetPayload:
		return []ir.Ref{p.Target, p.Value}
	case ir.CastPayload:
		return []ir.Ref{p.Src}
	case ir.MathBinaryPayload:
		return []ir.Ref{p.A, p.B}
	case ir.ReleasePayload:
		return p.Src
	case ir.AcquireNextImagePayload:
		return []ir.Ref{p.Swapchain}
	case ir.GetAllocationSizePayload:
		return []ir.Ref{p.Src}
	case ir.GetCIPayload:
		return []ir.Ref{p.Src}
	default:
		return nil
	}
}
