package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/resource"
)

// fakeDescriptorUpstream records the pool every allocate/deallocate call
// was routed through, so LinearDescriptors's "ignore the caller's pool,
// always use mine" rewrite can be asserted on directly.
type fakeDescriptorUpstream struct {
	DeviceResource

	createdPool    vk.DescriptorPool
	seenSetPools   []vk.DescriptorPool
	seenPersistPools []vk.DescriptorPool
	destroyedPools []vk.DescriptorPool
}

func (f *fakeDescriptorUpstream) AllocateDescriptorPools(dst []vk.DescriptorPool, info []DescriptorPoolCreateInfo) error {
	f.createdPool = vk.DescriptorPool(1)
	dst[0] = f.createdPool
	return nil
}

func (f *fakeDescriptorUpstream) DeallocateDescriptorPools(src []vk.DescriptorPool) {
	f.destroyedPools = append(f.destroyedPools, src...)
}

func (f *fakeDescriptorUpstream) AllocateDescriptorSets(dst []vk.DescriptorSet, info []DescriptorSetAllocateInfo) error {
	for _, in := range info {
		f.seenSetPools = append(f.seenSetPools, in.Pool)
	}
	return nil
}

func (f *fakeDescriptorUpstream) AllocatePersistentDescriptorSets(dst []resource.PersistentDescriptorSet, info []DescriptorSetAllocateInfo) error {
	for _, in := range info {
		f.seenPersistPools = append(f.seenPersistPools, in.Pool)
	}
	return nil
}

func TestLinearDescriptorsRewritesCallerPoolToItsOwn(t *testing.T) {
	up := &fakeDescriptorUpstream{}
	ld, err := NewLinearDescriptors(up, Limits{MaxSets: 64})
	require.NoError(t, err)

	dst := make([]vk.DescriptorSet, 1)
	require.NoError(t, ld.AllocateDescriptorSets(dst, []DescriptorSetAllocateInfo{{Pool: vk.DescriptorPool(999)}}))

	require.Len(t, up.seenSetPools, 1)
	assert.Equal(t, up.createdPool, up.seenSetPools[0], "the caller's pool is discarded in favor of the linear allocator's own")
}

func TestLinearDescriptorsRewritesPersistentSetPool(t *testing.T) {
	up := &fakeDescriptorUpstream{}
	ld, err := NewLinearDescriptors(up, Limits{MaxSets: 64})
	require.NoError(t, err)

	dst := make([]resource.PersistentDescriptorSet, 1)
	require.NoError(t, ld.AllocatePersistentDescriptorSets(dst, []DescriptorSetAllocateInfo{{Pool: vk.DescriptorPool(999)}}))

	require.Len(t, up.seenPersistPools, 1)
	assert.Equal(t, up.createdPool, up.seenPersistPools[0])
}

func TestLinearDescriptorsDeallocateIsNoOp(t *testing.T) {
	up := &fakeDescriptorUpstream{}
	ld, err := NewLinearDescriptors(up, Limits{MaxSets: 64})
	require.NoError(t, err)

	ld.DeallocateDescriptorSets(up.createdPool, []vk.DescriptorSet{1, 2, 3})
	assert.Empty(t, up.destroyedPools, "sets are reclaimed only by resetting the whole pool")
}

func TestLinearDescriptorsDestroyReleasesThePool(t *testing.T) {
	up := &fakeDescriptorUpstream{}
	ld, err := NewLinearDescriptors(up, Limits{MaxSets: 64})
	require.NoError(t, err)

	ld.Destroy()
	require.Len(t, up.destroyedPools, 1)
	assert.Equal(t, up.createdPool, up.destroyedPools[0])
}
