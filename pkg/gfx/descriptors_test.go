package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestResolveWritesDropsUnsetOptionalBindings(t *testing.T) {
	decls := []BindingDecl{{Set: 0, Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Optional: true}}
	writes, errs := ResolveWrites(decls, nil)
	assert.Empty(t, writes)
	assert.Empty(t, errs)
}

func TestResolveWritesReportsMissingRequiredBinding(t *testing.T) {
	decls := []BindingDecl{{Set: 0, Binding: 2, Type: vk.DescriptorTypeUniformBuffer}}
	writes, errs := ResolveWrites(decls, nil)
	assert.Empty(t, writes)
	require.Len(t, errs, 1)
	var mismatch *DescriptorMismatchError
	require.ErrorAs(t, errs[0], &mismatch)
	assert.Equal(t, uint32(2), mismatch.Binding)
}

func TestResolveWritesUpgradesSamplerAndSampledImageToCombined(t *testing.T) {
	decls := []BindingDecl{{Set: 0, Binding: 0, Type: vk.DescriptorTypeCombinedImageSampler}}
	values := map[uint32]BindingValue{0: {Binding: 0, Type: vk.DescriptorTypeSampledImage, HasImage: true}}
	writes, errs := ResolveWrites(decls, values)
	require.Empty(t, errs)
	require.Len(t, writes, 1)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, writes[0].DescriptorType)

	values[0] = BindingValue{Binding: 0, Type: vk.DescriptorTypeSampler, HasImage: true}
	writes, errs = ResolveWrites(decls, values)
	require.Empty(t, errs)
	require.Len(t, writes, 1)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, writes[0].DescriptorType)
}

func TestResolveWritesUpgradesUniformToStorageBuffer(t *testing.T) {
	decls := []BindingDecl{{Set: 0, Binding: 0, Type: vk.DescriptorTypeStorageBuffer}}
	values := map[uint32]BindingValue{0: {Binding: 0, Type: vk.DescriptorTypeUniformBuffer, HasBuffer: true}}
	writes, errs := ResolveWrites(decls, values)
	require.Empty(t, errs)
	require.Len(t, writes, 1)
	assert.Equal(t, vk.DescriptorTypeStorageBuffer, writes[0].DescriptorType)
}

func TestResolveWritesReportsIncompatibleTypeMismatch(t *testing.T) {
	decls := []BindingDecl{{Set: 1, Binding: 3, Type: vk.DescriptorTypeUniformBuffer}}
	values := map[uint32]BindingValue{3: {Binding: 3, Type: vk.DescriptorTypeSampler}}
	writes, errs := ResolveWrites(decls, values)
	assert.Empty(t, writes)
	require.Len(t, errs, 1)
	var mismatch *DescriptorMismatchError
	require.ErrorAs(t, errs[0], &mismatch)
	assert.Equal(t, uint32(1), mismatch.Set)
	assert.Equal(t, uint32(3), mismatch.Binding)
}

func TestSetBindingDisturbedWhenUnboundOrLayoutDiffers(t *testing.T) {
	var unbound SetBinding
	assert.True(t, unbound.Disturbed(vk.DescriptorSetLayout(1)))

	bound := SetBinding{Layout: vk.DescriptorSetLayout(1), Bound: true}
	assert.False(t, bound.Disturbed(vk.DescriptorSetLayout(1)))
	assert.True(t, bound.Disturbed(vk.DescriptorSetLayout(2)))
}
