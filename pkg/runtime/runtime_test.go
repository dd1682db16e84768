package runtime

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/alloc"
	"github.com/andewx/vukgo/pkg/gfx"
	"github.com/andewx/vukgo/pkg/resource"
)

// stubDeviceResource implements alloc.DeviceResource, handing back
// incrementing fake handles without touching a real device, so pkg/runtime
// can be exercised without a Vulkan instance.
type stubDeviceResource struct {
	nextQueryPool uint64
	queriesErr    error
}

func (s *stubDeviceResource) AllocateSemaphores(dst []vk.Semaphore) error { return nil }
func (s *stubDeviceResource) DeallocateSemaphores(src []vk.Semaphore)     {}

func (s *stubDeviceResource) AllocateTimelineSemaphores(dst []vk.Semaphore, initialValues []uint64) error {
	return nil
}
func (s *stubDeviceResource) DeallocateTimelineSemaphores(src []vk.Semaphore) {}

func (s *stubDeviceResource) AllocateFences(dst []vk.Fence) error { return nil }
func (s *stubDeviceResource) DeallocateFences(src []vk.Fence)     {}

func (s *stubDeviceResource) AllocateCommandPools(dst []vk.CommandPool, info []alloc.CommandPoolCreateInfo) error {
	return nil
}
func (s *stubDeviceResource) DeallocateCommandPools(src []vk.CommandPool) {}

func (s *stubDeviceResource) AllocateCommandBuffers(dst []vk.CommandBuffer, info []alloc.CommandBufferAllocateInfo) error {
	return nil
}
func (s *stubDeviceResource) DeallocateCommandBuffers(pool vk.CommandPool, src []vk.CommandBuffer) {}

func (s *stubDeviceResource) AllocateBuffers(dst []resource.Buffer, info []alloc.BufferCreateInfo) error {
	return nil
}
func (s *stubDeviceResource) DeallocateBuffers(src []resource.Buffer) {}

func (s *stubDeviceResource) AllocateImages(dst []resource.ImageAttachment, info []alloc.ImageCreateInfo) error {
	return nil
}
func (s *stubDeviceResource) DeallocateImages(src []resource.ImageAttachment) {}

func (s *stubDeviceResource) AllocateImageViews(dst []resource.ImageView, info []alloc.ImageViewCreateInfo) error {
	return nil
}
func (s *stubDeviceResource) DeallocateImageViews(src []resource.ImageView) {}

func (s *stubDeviceResource) AllocateTimestampQueryPools(dst []vk.QueryPool, info []alloc.TimestampQueryPoolCreateInfo) error {
	for i := range dst {
		s.nextQueryPool++
		dst[i] = vk.QueryPool(s.nextQueryPool)
	}
	return s.queriesErr
}
func (s *stubDeviceResource) DeallocateTimestampQueryPools(src []vk.QueryPool) {}

func (s *stubDeviceResource) AllocateTimestampQueries(dst []uint32, pool vk.QueryPool, count uint32) error {
	return nil
}
func (s *stubDeviceResource) DeallocateTimestampQueries(pool vk.QueryPool, src []uint32) {}

func (s *stubDeviceResource) AllocateAccelerationStructures(dst []vk.AccelerationStructure, info []alloc.AccelerationStructureCreateInfo) error {
	return nil
}
func (s *stubDeviceResource) DeallocateAccelerationStructures(src []vk.AccelerationStructure) {}

func (s *stubDeviceResource) AllocateGraphicsPipelines(dst []vk.Pipeline, info []vk.GraphicsPipelineCreateInfo) error {
	return nil
}
func (s *stubDeviceResource) AllocateComputePipelines(dst []vk.Pipeline, info []vk.ComputePipelineCreateInfo) error {
	return nil
}
func (s *stubDeviceResource) AllocateRayTracingPipelines(dst []vk.Pipeline, info []vk.RayTracingPipelineCreateInfo) error {
	return nil
}
func (s *stubDeviceResource) DeallocatePipelines(src []vk.Pipeline) {}

func (s *stubDeviceResource) AllocateDescriptorSets(dst []vk.DescriptorSet, info []alloc.DescriptorSetAllocateInfo) error {
	return nil
}
func (s *stubDeviceResource) AllocatePersistentDescriptorSets(dst []resource.PersistentDescriptorSet, info []alloc.DescriptorSetAllocateInfo) error {
	return nil
}
func (s *stubDeviceResource) DeallocateDescriptorSets(pool vk.DescriptorPool, src []vk.DescriptorSet) {
}

func (s *stubDeviceResource) AllocateDescriptorPools(dst []vk.DescriptorPool, info []alloc.DescriptorPoolCreateInfo) error {
	return nil
}
func (s *stubDeviceResource) DeallocateDescriptorPools(src []vk.DescriptorPool) {}

func (s *stubDeviceResource) AllocateSwapchains(dst []vk.Swapchain, info []alloc.SwapchainCreateInfo) error {
	return nil
}
func (s *stubDeviceResource) DeallocateSwapchains(src []vk.Swapchain) {}

func (s *stubDeviceResource) Device() vk.Device { return vk.Device(vk.NullHandle) }

func newTestRuntime(t *testing.T) (*Runtime, *stubDeviceResource) {
	t.Helper()
	res := &stubDeviceResource{}
	rt, err := NewRuntime(vk.Device(vk.NullHandle), res, nil, nil, Config{
		InfoLog:         io.Discard,
		ErrorLog:        io.Discard,
		WarnLog:         io.Discard,
		TimestampPeriod: 1.0,
	})
	require.NoError(t, err)
	return rt, res
}

func TestNewRuntimeBindsRequiredPFNsAtConstruction(t *testing.T) {
	rt, _ := newTestRuntime(t)
	assert.NotNil(t, rt)
}

func TestCreateAndGetNamedPipelineRoundTrips(t *testing.T) {
	rt, _ := newTestRuntime(t)
	base := &gfx.PipelineBaseInfo{Name: "lit"}
	rt.CreateNamedPipeline("lit", base)

	got, ok := rt.GetNamedPipeline("lit")
	require.True(t, ok)
	assert.Same(t, base, got)
}

func TestGetNamedPipelineMissingReturnsFalse(t *testing.T) {
	rt, _ := newTestRuntime(t)
	_, ok := rt.GetNamedPipeline("missing")
	assert.False(t, ok)
}

func TestCompileShaderNeverCompilesSource(t *testing.T) {
	rt, _ := newTestRuntime(t)
	_, err := rt.CompileShader([]byte("#version 450\n"), "shader.frag")
	require.Error(t, err)

	var exc *ShaderCompilationException
	require.ErrorAs(t, err, &exc)
	assert.Equal(t, "shader.frag", exc.Path)
}

func TestCreateTimestampQueryAllocatesPoolOnFirstUse(t *testing.T) {
	rt, res := newTestRuntime(t)
	q1, err := rt.CreateTimestampQuery()
	require.NoError(t, err)
	q2, err := rt.CreateTimestampQuery()
	require.NoError(t, err)

	assert.Equal(t, q1.pool, q2.pool)
	assert.NotEqual(t, q1.index, q2.index)
	assert.EqualValues(t, 1, res.nextQueryPool)
}

func TestCreateTimestampQueryPropagatesAllocationError(t *testing.T) {
	rt, res := newTestRuntime(t)
	res.queriesErr = assert.AnError
	_, err := rt.CreateTimestampQuery()
	require.Error(t, err)
}
