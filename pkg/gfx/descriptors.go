package gfx

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// BindingDecl is one binding slot a pipeline layout declares, as produced
// by SPIR-V reflection (spec.md §6.2): the type the shader expects, its
// array size and the stages that reference it. Optional bindings are
// allowed to stay unset.
type BindingDecl struct {
	Set      uint32
	Binding  uint32
	Type     vk.DescriptorType
	Count    uint32
	Stages   vk.ShaderStageFlags
	Optional bool
}

// BindingValue is an application-supplied binding: at most one of Image /
// Buffer is populated, selected by HasImage/HasBuffer.
type BindingValue struct {
	Binding   uint32
	Type      vk.DescriptorType
	Image     vk.DescriptorImageInfo
	Buffer    vk.DescriptorBufferInfo
	HasImage  bool
	HasBuffer bool
}

// DescriptorMismatchError reports a binding whose supplied type cannot
// satisfy what the layout declares, named by set+binding index per
// spec.md §4.6 step 4 ("mismatches are reported with set+binding index").
type DescriptorMismatchError struct {
	Set     uint32
	Binding uint32
	Want    vk.DescriptorType
	Got     vk.DescriptorType
}

func (e *DescriptorMismatchError) Error() string {
	return fmt.Sprintf("gfx: set %d binding %d: shader expects %d, got %d", e.Set, e.Binding, e.Want, e.Got)
}

// upgradeDescriptorType applies spec.md §4.6 step 4's per-binding type
// upgrades, returning the type to actually write and whether got is
// acceptable for want at all.
func upgradeDescriptorType(want, got vk.DescriptorType) (vk.DescriptorType, bool) {
	if want == got {
		return got, true
	}
	switch {
	case (got == vk.DescriptorTypeSampler || got == vk.DescriptorTypeSampledImage) && want == vk.DescriptorTypeCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler, true
	case got == vk.DescriptorTypeUniformBuffer && want == vk.DescriptorTypeStorageBuffer:
		return vk.DescriptorTypeStorageBuffer, true
	case got == vk.DescriptorTypeUniformBufferDynamic && want == vk.DescriptorTypeStorageBufferDynamic:
		return vk.DescriptorTypeStorageBufferDynamic, true
	default:
		return got, false
	}
}

// ResolveWrites matches decls (what the layout/shader declares for one
// set) against values (what the application bound), applying type
// upgrades, dropping unset optional bindings, and reporting every
// mismatch it finds rather than failing on the first one.
func ResolveWrites(decls []BindingDecl, values map[uint32]BindingValue) ([]vk.WriteDescriptorSet, []error) {
	var writes []vk.WriteDescriptorSet
	var errs []error

	for _, d := range decls {
		v, ok := values[d.Binding]
		if !ok {
			if !d.Optional {
				errs = append(errs, &DescriptorMismatchError{Set: d.Set, Binding: d.Binding, Want: d.Type})
			}
			continue
		}

		resolved, ok := upgradeDescriptorType(d.Type, v.Type)
		if !ok {
			errs = append(errs, &DescriptorMismatchError{Set: d.Set, Binding: d.Binding, Want: d.Type, Got: v.Type})
			continue
		}

		w := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstBinding:      d.Binding,
			DescriptorCount: 1,
			DescriptorType:  resolved,
		}
		if v.HasImage {
			w.PImageInfo = []vk.DescriptorImageInfo{v.Image}
		}
		if v.HasBuffer {
			w.PBufferInfo = []vk.DescriptorBufferInfo{v.Buffer}
		}
		writes = append(writes, w)
	}
	return writes, errs
}

// SetBinding is the last-bound state for one descriptor set slot, used to
// detect "disturbance" per spec.md §4.6 step 3.
type SetBinding struct {
	Layout vk.DescriptorSetLayout
	Set    vk.DescriptorSet
	Bound  bool
}

// Disturbed reports whether rebinding want on top of the currently-bound
// state requires a fresh vkCmdBindDescriptorSets call: true unless the
// slot is already bound to an identical layout (spec.md: "the previously
// bound layout must be identical; otherwise the set is disturbed").
func (s SetBinding) Disturbed(want vk.DescriptorSetLayout) bool {
	return !s.Bound || s.Layout != want
}
