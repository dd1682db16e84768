package alloc

import (
	"sync"

	"github.com/andewx/vukgo/pkg/resource"
	vk "github.com/vulkan-go/vulkan"
)

// defaultBlockSize is the 16 MiB default growth increment for a
// LinearBuffer (spec.md §4.1).
const defaultBlockSize = 16 << 20

// linearBlock is one arena block backing the bump allocator.
type linearBlock struct {
	buffer resource.Buffer
	offset vk.DeviceSize
}

// LinearBuffer is an arena-bumping buffer allocator: AllocateBuffers bumps
// a cursor inside the current block (or grows a new one), and
// DeallocateBuffers is a no-op until Reset — spec.md §4.1's LinearBuffer
// contract.
type LinearBuffer struct {
	Nested

	mu        sync.Mutex
	blockSize vk.DeviceSize
	usage     vk.BufferUsageFlags
	mem       MemoryUsage
	blocks    []*linearBlock
}

// NewLinearBuffer constructs a LinearBuffer over upstream. blockSize
// defaults to 16 MiB when zero.
func NewLinearBuffer(upstream DeviceResource, usage vk.BufferUsageFlags, mem MemoryUsage, blockSize vk.DeviceSize) *LinearBuffer {
	if blockSize == 0 {
		blockSize = defaultBlockSize
	}
	return &LinearBuffer{Nested: NewNested(upstream), blockSize: blockSize, usage: usage, mem: mem}
}

func (l *LinearBuffer) growBlock(size vk.DeviceSize) (*linearBlock, error) {
	sz := l.blockSize
	if size > sz {
		sz = size
	}
	bufs := make([]resource.Buffer, 1)
	if err := l.Upstream().AllocateBuffers(bufs, []BufferCreateInfo{{Size: sz, Usage: l.usage, Mem: l.mem}}); err != nil {
		return nil, err
	}
	blk := &linearBlock{buffer: bufs[0]}
	l.blocks = append(l.blocks, blk)
	return blk, nil
}

// AllocateBuffers bumps the cursor of the current block for each requested
// size, growing a new block (spec.md default 16 MiB, configurable) when the
// current one cannot fit the request.
func (l *LinearBuffer) AllocateBuffers(dst []resource.Buffer, info []BufferCreateInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range dst {
		var blk *linearBlock
		if n := len(l.blocks); n > 0 {
			cand := l.blocks[n-1]
			if cand.offset+info[i].Size <= cand.buffer.Size {
				blk = cand
			}
		}
		if blk == nil {
			var err error
			blk, err = l.growBlock(info[i].Size)
			if err != nil {
				return err
			}
		}
		dst[i] = resource.Buffer{
			Handle: blk.buffer.Handle,
			Offset: blk.offset,
			Size:   info[i].Size,
			Usage:  info[i].Usage,
		}
		if blk.buffer.Mapped != nil {
			dst[i].Mapped = blk.buffer.Mapped[blk.offset : blk.offset+info[i].Size]
		}
		blk.offset += info[i].Size
	}
	return nil
}

// DeallocateBuffers is a no-op: sub-allocations inside an arena block are
// reclaimed in bulk by Reset, never individually (spec.md §4.1).
func (l *LinearBuffer) DeallocateBuffers(src []resource.Buffer) {}

// Reset bumps every block's cursor back to zero. The blocks themselves are
// kept and reused rather than returned upstream, matching "grows in blocks"
// rather than reallocating from scratch each frame.
func (l *LinearBuffer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.blocks {
		b.offset = 0
	}
}

// Destroy releases every block back to upstream.
func (l *LinearBuffer) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.blocks {
		l.Upstream().DeallocateBuffers([]resource.Buffer{b.buffer})
	}
	l.blocks = nil
}
