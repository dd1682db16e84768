package alloc

import (
	vk "github.com/vulkan-go/vulkan"
)

// Nested delegates every DeviceResource method upstream by default. It
// replaces the "deep inheritance" the original C++ hierarchy used (spec.md
// §9 design note): instead of each nested provider subclassing the one
// below it, we embed the DeviceResource interface itself, so forwarding
// comes for free from Go's method-set promotion, and a concrete type that
// wants to override one call (e.g. LinearBuffer overriding AllocateBuffers)
// simply defines its own method of that name, shadowing the embedded one.
type Nested struct {
	DeviceResource
}

// NewNested wraps upstream with a Nested that forwards every call.
func NewNested(upstream DeviceResource) Nested {
	return Nested{DeviceResource: upstream}
}

// Upstream exposes the wrapped resource, used by implementations that need
// to reach further up the chain than the blanket forward (e.g. PerFrame
// draining deferred deallocations to upstream on next_frame).
func (n Nested) Upstream() DeviceResource { return n.DeviceResource }

// AllocateCommandPools overrides the blanket forward: a nested resource
// creates its own pools rather than delegating, because pools are
// queue-family-scoped and a nested resource may narrow the family set the
// upstream was built with (DESIGN.md Open Question decision 3 — the
// source's high-level-pools-on-nested-resources NYI path).
func (n Nested) AllocateCommandPools(dst []vk.CommandPool, info []CommandPoolCreateInfo) error {
	dev := n.Device()
	for i := range dst {
		ret := vk.CreateCommandPool(dev, &vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: info[i].QueueFamilyIndex,
			Flags:            info[i].Flags,
		}, nil, &dst[i])
		if err := NewAllocateException("AllocateCommandPools", ret); err != nil {
			n.DeallocateCommandPools(dst[:i])
			return err
		}
	}
	return nil
}

// DeallocateCommandPools frees pools this Nested created itself, mirroring
// AllocateCommandPools's decision to own pools rather than forward them.
func (n Nested) DeallocateCommandPools(src []vk.CommandPool) {
	dev := n.Device()
	for _, p := range src {
		vk.DestroyCommandPool(dev, p, nil)
	}
}
