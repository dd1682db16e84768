package alloc

import (
	"sync"

	"github.com/andewx/vukgo/pkg/resource"
	vk "github.com/vulkan-go/vulkan"
)

// deferredDealloc records a deallocation an in-flight frame must not
// perform yet, so it can be replayed once that frame's fence signals.
type deferredDealloc struct {
	buffers []resource.Buffer
	images  []resource.ImageAttachment
	pools   []vk.CommandPool
	sets    struct {
		pool vk.DescriptorPool
		sets []vk.DescriptorSet
	}
}

// FrameResource is the per-rotation-slot state a PerFrame holds: its own
// linear sub-allocators (reset wholesale each rotation) plus a fence the
// application signals when that frame's GPU work completes.
type FrameResource struct {
	Fence     vk.Fence
	linear    *LinearBuffer
	deferred  []deferredDealloc
}

// PerFrame ("SuperFrame" in spec.md §4.1) holds N rotating FrameResources.
// An allocator handed out to a frame's recording must survive until that
// frame's submission completes on the GPU (spec.md §4.1 contract); PerFrame
// enforces this for buffers and images by deferring their deallocation in
// frame slot K until NextFrame comes back round to slot K (N rotations
// later), not by forwarding immediately. Other deallocations are not
// overridden and go upstream at once.
type PerFrame struct {
	Nested

	mu      sync.Mutex
	frames  []*FrameResource
	current int
}

// NewPerFrame constructs a PerFrame with n rotating frames, each holding a
// LinearBuffer of linearUsage/linearMem/blockSize for transient per-frame
// allocations.
func NewPerFrame(upstream DeviceResource, n int, linearUsage vk.BufferUsageFlags, linearMem MemoryUsage, blockSize vk.DeviceSize) (*PerFrame, error) {
	pf := &PerFrame{Nested: NewNested(upstream), frames: make([]*FrameResource, n)}
	for i := 0; i < n; i++ {
		fences := make([]vk.Fence, 1)
		if err := upstream.AllocateFences(fences); err != nil {
			return nil, err
		}
		pf.frames[i] = &FrameResource{
			Fence:  fences[0],
			linear: NewLinearBuffer(upstream, linearUsage, linearMem, blockSize),
		}
	}
	return pf, nil
}

func (p *PerFrame) active() *FrameResource {
	return p.frames[p.current]
}

// AllocateBuffers routes through the active frame's LinearBuffer, so
// transient per-frame buffers never outlive the frame that allocated them
// without an explicit NextFrame.
func (p *PerFrame) AllocateBuffers(dst []resource.Buffer, info []BufferCreateInfo) error {
	p.mu.Lock()
	fr := p.active()
	p.mu.Unlock()
	return fr.linear.AllocateBuffers(dst, info)
}

// DeallocateBuffers defers the deallocation to this frame's slot rather
// than returning it to upstream immediately (spec.md §4.1 contract).
func (p *PerFrame) DeallocateBuffers(src []resource.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fr := p.active()
	fr.deferred = append(fr.deferred, deferredDealloc{buffers: src})
}

// DeallocateImages defers to the active frame like DeallocateBuffers.
func (p *PerFrame) DeallocateImages(src []resource.ImageAttachment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fr := p.active()
	fr.deferred = append(fr.deferred, deferredDealloc{images: src})
}

// NextFrame waits the about-to-be-reused frame's fence, drains its deferred
// deallocations to upstream, resets its linear sub-allocator, and advances
// the rotation counter — spec.md §4.1's next_frame contract and §5's
// "per-frame next_frame (may wait on up to N-frames-ago fences)".
func (p *PerFrame) NextFrame() error {
	p.mu.Lock()
	next := (p.current + 1) % len(p.frames)
	p.current = next
	fr := p.frames[next]
	p.mu.Unlock()

	dev := p.Device()
	ret := vk.WaitForFences(dev, 1, []vk.Fence{fr.Fence}, vk.True, vk.MaxUint64)
	if err := NewAllocateException("NextFrame.WaitForFences", ret); err != nil {
		return err
	}
	vk.ResetFences(dev, 1, []vk.Fence{fr.Fence})

	upstream := p.Upstream()
	for _, d := range fr.deferred {
		if len(d.buffers) > 0 {
			upstream.DeallocateBuffers(d.buffers)
		}
		if len(d.images) > 0 {
			upstream.DeallocateImages(d.images)
		}
		if len(d.pools) > 0 {
			upstream.DeallocateCommandPools(d.pools)
		}
		if len(d.sets.sets) > 0 {
			upstream.DeallocateDescriptorSets(d.sets.pool, d.sets.sets)
		}
	}
	fr.deferred = nil
	fr.linear.Reset()
	return nil
}

// Destroy tears down every frame's fence and linear allocator.
func (p *PerFrame) Destroy() {
	dev := p.Device()
	for _, fr := range p.frames {
		fr.linear.Destroy()
		vk.DestroyFence(dev, fr.Fence, nil)
	}
}
