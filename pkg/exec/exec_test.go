package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/alloc"
	"github.com/andewx/vukgo/pkg/compiler"
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/queue"
	"github.com/andewx/vukgo/pkg/resource"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// fakeResource hands out numbered handles without touching vk.*, the same
// shape pkg/alloc's fakeBufferUpstream uses. Methods Execute never reaches
// stay on the embedded nil interface and would panic loudly if hit.
type fakeResource struct {
	alloc.DeviceResource

	nextHandle uint64
	images     []alloc.ImageCreateInfo
	buffers    []alloc.BufferCreateInfo
	cbAllocs   int
}

func (f *fakeResource) AllocateCommandPools(dst []vk.CommandPool, info []alloc.CommandPoolCreateInfo) error {
	for i := range dst {
		f.nextHandle++
		dst[i] = vk.CommandPool(f.nextHandle)
	}
	return nil
}

func (f *fakeResource) DeallocateCommandPools(src []vk.CommandPool) {}

func (f *fakeResource) AllocateCommandBuffers(dst []vk.CommandBuffer, info []alloc.CommandBufferAllocateInfo) error {
	f.cbAllocs++
	return nil
}

func (f *fakeResource) DeallocateCommandBuffers(pool vk.CommandPool, src []vk.CommandBuffer) {}

func (f *fakeResource) AllocateImages(dst []resource.ImageAttachment, info []alloc.ImageCreateInfo) error {
	for i := range dst {
		f.nextHandle++
		f.images = append(f.images, info[i])
		dst[i] = resource.ImageAttachment{
			Image:       vk.Image(f.nextHandle),
			Format:      info[i].Format,
			Extent:      info[i].Extent,
			SampleCount: info[i].Samples,
			Levels:      info[i].MipLevels,
			Layers:      info[i].ArrayLayers,
			Allocation:  &resource.Allocation{},
		}
	}
	return nil
}

func (f *fakeResource) AllocateBuffers(dst []resource.Buffer, info []alloc.BufferCreateInfo) error {
	for i := range dst {
		f.nextHandle++
		f.buffers = append(f.buffers, info[i])
		dst[i] = resource.Buffer{
			Handle:     vk.Buffer(f.nextHandle),
			Size:       info[i].Size,
			Allocation: &resource.Allocation{},
		}
	}
	return nil
}

func (f *fakeResource) Device() vk.Device { return vk.Device(vk.NullHandle) }

// fakeRecorder captures the recording surface instead of calling vk.Cmd*.
type fakeRecorder struct {
	begins, ends int
	barriers     []vktypes.ResourceUse
	clears       [][4]float32
}

func (r *fakeRecorder) Begin(cb vk.CommandBuffer) error { r.begins++; return nil }
func (r *fakeRecorder) End(cb vk.CommandBuffer) error   { r.ends++; return nil }
func (r *fakeRecorder) ImageBarrier(cb vk.CommandBuffer, img *resource.ImageAttachment, old vk.ImageLayout, use vktypes.ResourceUse) {
	r.barriers = append(r.barriers, use)
}
func (r *fakeRecorder) ClearColorImage(cb vk.CommandBuffer, img *resource.ImageAttachment, color [4]float32) {
	r.clears = append(r.clears, color)
}

func testExecutors(domains ...vktypes.Domain) map[vktypes.Domain]*queue.QueueExecutor {
	out := make(map[vktypes.Domain]*queue.QueueExecutor, len(domains))
	for i, d := range domains {
		out[d] = queue.NewQueueExecutor(vk.Device(vk.NullHandle), vk.Queue(vk.NullHandle),
			uint32(i), vk.Semaphore(uintptr(i+1)), queue.Limits{})
	}
	return out
}

func makeCall(m *ir.IRModule, domain vktypes.Domain, args []ir.Ref, tags []vktypes.Access, cb func(ir.CommandBufferStub, []any) []any) *ir.Node {
	callee := m.OpaqueFnType(nil, []*ir.Type{m.IntegerType(32)}, domain, uint64(len(args))<<8|uint64(domain))
	n := m.MakeCall(callee, args, tags)
	m.SetCallCallback(n, cb)
	return n
}

func compileRoots(t *testing.T, m *ir.IRModule, roots ...*ir.ExtNode) *compiler.Compiler {
	t.Helper()
	c := compiler.NewCompiler(m)
	require.NoError(t, c.Compile(roots))
	return c
}

// TestExecuteRecordsAndSubmitsSingleQueue drives one compute pass over a
// buffer end to end: backing allocated through the DeviceResource, the
// callback invoked with the evaluated buffer, one begin/end bracket, one
// submission armed on the serving executor.
func TestExecuteRecordsAndSubmitsSingleQueue(t *testing.T) {
	m := ir.NewIRModule()
	buf := m.MakeConstruct(m.BufferLike, []ir.Ref{
		m.MakePlaceholder(m.PointerType(m.MemoryType(0))).Ref0(),
		m.MakeConstant(m.IntegerType(64), uint64(16)).Ref0(),
	})

	var gotArg any
	pass := makeCall(m, vktypes.DomainComputeQueue,
		[]ir.Ref{buf.Ref0()}, []vktypes.Access{vktypes.AccessComputeWrite},
		func(cb ir.CommandBufferStub, args []any) []any {
			gotArg = args[0]
			return []any{uint64(7)}
		})

	c := compileRoots(t, m, ir.NewExtNode(pass))

	res := &fakeResource{}
	rec := &fakeRecorder{}
	var submissions []queue.Submission
	g := NewExecutable(c, Config{
		Resource:  res,
		Executors: testExecutors(vktypes.DomainComputeQueue),
		Recorder:  rec,
		SubmitFn: func(q vk.Queue, sub queue.Submission, value uint64) vk.Result {
			submissions = append(submissions, sub)
			return vk.Success
		},
	})

	sps, err := g.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, sps, 1)
	assert.Equal(t, uint64(1), sps[0].Value)

	require.Len(t, submissions, 1)
	assert.Equal(t, 1, rec.begins)
	assert.Equal(t, 1, rec.ends)

	bufVal, ok := gotArg.(*resource.Buffer)
	require.True(t, ok, "callback must receive the evaluated buffer, got %T", gotArg)
	assert.Equal(t, vk.DeviceSize(16), bufVal.Size)
	assert.NotEqual(t, vk.NullBuffer, bufVal.Handle, "backing must be materialized before the callback runs")
	require.Len(t, res.buffers, 1)

	got, err := g.Result(pass.Ref0())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got)
}

// TestExecuteCrossQueueWaitLinksTimelines is scenario S4 at the execution
// layer: the graphics partition's submission must wait on the transfer
// executor's timeline at the transfer submission's value.
func TestExecuteCrossQueueWaitLinksTimelines(t *testing.T) {
	m := ir.NewIRModule()
	buf := m.MakeConstruct(m.BufferLike, []ir.Ref{
		m.MakePlaceholder(m.PointerType(m.MemoryType(0))).Ref0(),
		m.MakeConstant(m.IntegerType(64), uint64(64)).Ref0(),
	})

	writer := makeCall(m, vktypes.DomainTransferQueue,
		[]ir.Ref{buf.Ref0()}, []vktypes.Access{vktypes.AccessTransferWrite},
		func(cb ir.CommandBufferStub, args []any) []any { return []any{args[0]} })
	reader := makeCall(m, vktypes.DomainGraphicsQueue,
		[]ir.Ref{writer.Ref0()}, []vktypes.Access{vktypes.AccessFragmentRead},
		func(cb ir.CommandBufferStub, args []any) []any { return []any{args[0]} })

	c := compileRoots(t, m, ir.NewExtNode(reader))

	executors := testExecutors(vktypes.DomainTransferQueue, vktypes.DomainGraphicsQueue)
	var submissions []queue.Submission
	g := NewExecutable(c, Config{
		Resource:  &fakeResource{},
		Executors: executors,
		Recorder:  &fakeRecorder{},
		SubmitFn: func(q vk.Queue, sub queue.Submission, value uint64) vk.Result {
			submissions = append(submissions, sub)
			return vk.Success
		},
	})

	sps, err := g.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, sps, 2, "one submission per non-empty partition")

	require.Len(t, submissions, 2)
	transferSub, graphicsSub := submissions[0], submissions[1]
	assert.Empty(t, transferSub.WaitSemaphores, "the producing partition waits on nothing")

	require.Len(t, graphicsSub.WaitSemaphores, 1, "the consuming partition must wait on the producer's timeline")
	assert.Equal(t, executors[vktypes.DomainTransferQueue].Timeline, graphicsSub.WaitSemaphores[0])
	require.Len(t, graphicsSub.WaitValues, 1)
	assert.Equal(t, sps[0].Value, graphicsSub.WaitValues[0], "wait value must match the transfer submission's sync point")
}

// TestExecuteClearTransitionsAndClears is scenario S2's first half: a CLEAR
// of a freshly declared image materializes backing, transitions it to
// TRANSFER_DST and records the clear with the requested color.
func TestExecuteClearTransitionsAndClears(t *testing.T) {
	m := ir.NewIRModule()
	img := m.MakeConstruct(m.Image, []ir.Ref{
		m.MakeConstant(m.IntegerType(32), uint32(4)).Ref0(),
		m.MakeConstant(m.IntegerType(32), vk.FormatR8g8b8a8Unorm).Ref0(),
	})
	clear := m.MakeClear(img.Ref0(), [4]float32{1, 0, 0, 1})

	c := compileRoots(t, m, ir.NewExtNode(clear))

	res := &fakeResource{}
	rec := &fakeRecorder{}
	g := NewExecutable(c, Config{
		Resource:  res,
		Executors: testExecutors(vktypes.DomainGraphicsQueue),
		Recorder:  rec,
		SubmitFn: func(q vk.Queue, sub queue.Submission, value uint64) vk.Result {
			return vk.Success
		},
	})

	_, err := g.Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, res.images, 1, "the cleared image must be materialized through the DeviceResource")
	assert.Equal(t, uint32(4), res.images[0].Extent.Width)
	assert.Equal(t, uint32(4), res.images[0].Extent.Height)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, res.images[0].Format)

	require.Len(t, rec.barriers, 1)
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, rec.barriers[0].Layout)
	require.Len(t, rec.clears, 1)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, rec.clears[0])
}

// TestExecuteArmsReleaseSignal checks the C8 handoff: a RELEASE node's
// AcquireRelease must come out of Execute Synchronizable, stamped with the
// submission's sync point.
func TestExecuteArmsReleaseSignal(t *testing.T) {
	m := ir.NewIRModule()
	buf := m.MakeConstruct(m.BufferLike, []ir.Ref{
		m.MakePlaceholder(m.PointerType(m.MemoryType(0))).Ref0(),
		m.MakeConstant(m.IntegerType(64), uint64(32)).Ref0(),
	})
	pass := makeCall(m, vktypes.DomainComputeQueue,
		[]ir.Ref{buf.Ref0()}, []vktypes.Access{vktypes.AccessComputeWrite},
		func(cb ir.CommandBufferStub, args []any) []any { return []any{args[0]} })

	rel := &ir.AcquireRelease{}
	release := m.MakeRelease([]ir.Ref{pass.Ref0()}, vktypes.AccessNone, uint32(vktypes.DomainHost), rel)

	c := compileRoots(t, m, ir.NewExtNode(release))

	g := NewExecutable(c, Config{
		Resource:  &fakeResource{},
		Executors: testExecutors(vktypes.DomainComputeQueue),
		Recorder:  &fakeRecorder{},
		SubmitFn: func(q vk.Queue, sub queue.Submission, value uint64) vk.Result {
			return vk.Success
		},
	})

	sps, err := g.Execute(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sps)

	assert.Equal(t, ir.Synchronizable, rel.Status)
	assert.Equal(t, sps[len(sps)-1].Value, rel.Source.Value)
}

// TestSubmitWaitGetRoundTrip drives the Value-facing surface: Get submits,
// waits through the injected wait function, and returns the callback's
// result for the wrapped slot.
func TestSubmitWaitGetRoundTrip(t *testing.T) {
	m := ir.NewIRModule()
	pass := makeCall(m, vktypes.DomainComputeQueue, nil, nil,
		func(cb ir.CommandBufferStub, args []any) []any { return []any{uint64(42)} })

	waited := 0
	dev := &Device{
		Module: m,
		Config: Config{
			Resource:  &fakeResource{},
			Executors: testExecutors(vktypes.DomainComputeQueue),
			Recorder:  &fakeRecorder{},
			SubmitFn: func(q vk.Queue, sub queue.Submission, value uint64) vk.Result {
				return vk.Success
			},
		},
		WaitFn: func(executors []ir.Executor, values []uint64) vk.Result {
			waited++
			return vk.Success
		},
	}

	v := ir.NewValue[uint64](ir.NewExtNode(pass), 0)
	got, err := Get(context.Background(), dev, v)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)
	assert.Equal(t, 1, waited, "Get must block through the host wait exactly once")
}
