package alloc

import (
	"sort"
	"sync"

	"github.com/andewx/vukgo/pkg/resource"
	vk "github.com/vulkan-go/vulkan"
)

// subBlock is one large backing buffer a SubAllocator carves sub-ranges
// from, plus its free-list (offset, size), kept sorted and coalesced —
// spec.md §4.1's "virtual-block allocator atop large buffers".
type subBlock struct {
	buffer resource.Buffer
	free   []freeRange
}

type freeRange struct {
	offset, size vk.DeviceSize
}

// SubAllocator is a free-list sub-allocating buffer allocator. Unlike
// LinearBuffer, DeallocateBuffers actually returns the range to the
// free-list (coalescing neighbors), since sub-allocations here are expected
// to live and die independently rather than all at once per frame.
type SubAllocator struct {
	Nested

	mu        sync.Mutex
	blockSize vk.DeviceSize
	usage     vk.BufferUsageFlags
	mem       MemoryUsage
	blocks    []*subBlock
}

// NewSubAllocator constructs a SubAllocator over upstream with the given
// block growth size (defaults to 16 MiB like LinearBuffer when zero, since
// the source shares the same block-growth story for both).
func NewSubAllocator(upstream DeviceResource, usage vk.BufferUsageFlags, mem MemoryUsage, blockSize vk.DeviceSize) *SubAllocator {
	if blockSize == 0 {
		blockSize = defaultBlockSize
	}
	return &SubAllocator{Nested: NewNested(upstream), blockSize: blockSize, usage: usage, mem: mem}
}

func align(v, a vk.DeviceSize) vk.DeviceSize {
	if a <= 1 {
		return v
	}
	return (v + a - 1) / a * a
}

func (s *SubAllocator) findFit(size vk.DeviceSize) (int, vk.DeviceSize, bool) {
	for bi, b := range s.blocks {
		for _, fr := range b.free {
			if fr.size >= size {
				return bi, fr.offset, true
			}
		}
	}
	return 0, 0, false
}

func (s *SubAllocator) takeRange(bi int, offset, size vk.DeviceSize) {
	b := s.blocks[bi]
	out := b.free[:0]
	for _, fr := range b.free {
		if fr.offset == offset {
			if fr.size > size {
				out = append(out, freeRange{offset: offset + size, size: fr.size - size})
			}
			continue
		}
		out = append(out, fr)
	}
	b.free = out
}

func (s *SubAllocator) growBlock(minSize vk.DeviceSize) (int, error) {
	sz := s.blockSize
	if minSize > sz {
		sz = minSize
	}
	bufs := make([]resource.Buffer, 1)
	if err := s.Upstream().AllocateBuffers(bufs, []BufferCreateInfo{{Size: sz, Usage: s.usage, Mem: s.mem}}); err != nil {
		return 0, err
	}
	s.blocks = append(s.blocks, &subBlock{buffer: bufs[0], free: []freeRange{{offset: 0, size: sz}}})
	return len(s.blocks) - 1, nil
}

// AllocateBuffers first-fits each request against existing blocks, growing
// a new backing block when nothing fits.
func (s *SubAllocator) AllocateBuffers(dst []resource.Buffer, info []BufferCreateInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range dst {
		size := align(info[i].Size, 256)
		bi, offset, ok := s.findFit(size)
		if !ok {
			var err error
			bi, err = s.growBlock(size)
			if err != nil {
				return err
			}
			offset = 0
		}
		s.takeRange(bi, offset, size)
		blk := s.blocks[bi]
		dst[i] = resource.Buffer{Handle: blk.buffer.Handle, Offset: offset, Size: info[i].Size, Usage: info[i].Usage}
		if blk.buffer.Mapped != nil {
			dst[i].Mapped = blk.buffer.Mapped[offset : offset+info[i].Size]
		}
	}
	return nil
}

// DeallocateBuffers returns each buffer's range to its block's free-list
// and coalesces adjacent free ranges.
func (s *SubAllocator) DeallocateBuffers(src []resource.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, buf := range src {
		for _, b := range s.blocks {
			if b.buffer.Handle != buf.Handle {
				continue
			}
			size := align(buf.Size, 256)
			b.free = append(b.free, freeRange{offset: buf.Offset, size: size})
			sort.Slice(b.free, func(i, j int) bool { return b.free[i].offset < b.free[j].offset })
			coalesced := b.free[:0]
			for _, fr := range b.free {
				if n := len(coalesced); n > 0 && coalesced[n-1].offset+coalesced[n-1].size == fr.offset {
					coalesced[n-1].size += fr.size
				} else {
					coalesced = append(coalesced, fr)
				}
			}
			b.free = coalesced
			break
		}
	}
}

// Destroy releases every backing block to upstream.
func (s *SubAllocator) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.blocks {
		s.Upstream().DeallocateBuffers([]resource.Buffer{b.buffer})
	}
	s.blocks = nil
}
