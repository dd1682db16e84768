package alloc

import (
	"sync"

	"github.com/andewx/vukgo/pkg/resource"
	vk "github.com/vulkan-go/vulkan"
)

// LinearDescriptors is a bump allocator over a single large descriptor
// pool (DESIGN.md Open Question decision 2, standing in for the source's
// NYI LinearResourceAllocator descriptor path): the pool is sized once from
// the caller's Limits, sets are allocated out of it until exhausted, and
// DeallocateDescriptorSets is a no-op — the pool itself is reset or torn
// down wholesale, matching the linear-allocator idiom used elsewhere in
// this package (LinearBuffer) rather than vkFreeDescriptorSets bookkeeping.
type LinearDescriptors struct {
	Nested

	mu   sync.Mutex
	pool vk.DescriptorPool
}

// Limits bounds how many descriptor sets (and of which binding types) the
// backing pool can satisfy; once the pool is exhausted,
// AllocateDescriptorSets returns the upstream allocation error.
type Limits struct {
	MaxSets   uint32
	PoolSizes []vk.DescriptorPoolSize
}

// NewLinearDescriptors creates the one pool this allocator bumps sets out
// of, sized to limits.
func NewLinearDescriptors(upstream DeviceResource, limits Limits) (*LinearDescriptors, error) {
	pools := make([]vk.DescriptorPool, 1)
	err := upstream.AllocateDescriptorPools(pools, []DescriptorPoolCreateInfo{{
		MaxSets:   limits.MaxSets,
		PoolSizes: limits.PoolSizes,
	}})
	if err != nil {
		return nil, err
	}
	return &LinearDescriptors{Nested: NewNested(upstream), pool: pools[0]}, nil
}

// AllocateDescriptorSets bumps sets out of the single backing pool,
// ignoring whatever pool the caller's info specifies (the point of a
// linear allocator is that callers never manage pool lifetime themselves).
func (l *LinearDescriptors) AllocateDescriptorSets(dst []vk.DescriptorSet, info []DescriptorSetAllocateInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rewritten := make([]DescriptorSetAllocateInfo, len(info))
	for i, in := range info {
		rewritten[i] = in
		rewritten[i].Pool = l.pool
	}
	return l.Upstream().AllocateDescriptorSets(dst, rewritten)
}

// AllocatePersistentDescriptorSets mirrors AllocateDescriptorSets for the
// persistent-set path.
func (l *LinearDescriptors) AllocatePersistentDescriptorSets(dst []resource.PersistentDescriptorSet, info []DescriptorSetAllocateInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rewritten := make([]DescriptorSetAllocateInfo, len(info))
	for i, in := range info {
		rewritten[i] = in
		rewritten[i].Pool = l.pool
	}
	return l.Upstream().AllocatePersistentDescriptorSets(dst, rewritten)
}

// DeallocateDescriptorSets is a no-op: individual sets are never returned
// to the pool, only the pool as a whole via Reset.
func (l *LinearDescriptors) DeallocateDescriptorSets(pool vk.DescriptorPool, src []vk.DescriptorSet) {}

// Reset resets the backing pool, invalidating every set allocated from it
// since the last reset — callers must not touch those sets afterward.
func (l *LinearDescriptors) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	vk.ResetDescriptorPool(l.Device(), l.pool, 0)
}

// Destroy releases the backing pool upstream.
func (l *LinearDescriptors) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Upstream().DeallocateDescriptorPools([]vk.DescriptorPool{l.pool})
}
