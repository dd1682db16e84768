package runtime

import (
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/alloc"
	"github.com/andewx/vukgo/pkg/cache"
	"github.com/andewx/vukgo/pkg/gfx"
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/queue"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// Query is the host-facing handle create_timestamp_query returns (spec.md
// §6.4), opaque to callers beyond retrieve_timestamp/retrieve_duration.
type Query struct {
	pool  vk.QueryPool
	index uint32
}

// Executors maps each concrete queue domain to the executor that serves
// it, set once at construction since queue family selection does not
// change after device creation.
type Executors map[vktypes.Domain]*queue.QueueExecutor

// Runtime ties the per-frame allocator, pipeline caches, queue executors
// and PFN capability table into the application contract spec.md §6.4
// names. Grounded on the teacher's NewBaseCore construction sequence
// (pkg/legacy/dieselvk/core.go: three log files, one opened per severity)
// and original_source/include/vuk/runtime/vk/VkRuntime.hpp's Runtime class,
// which plays the same role (named pipelines, timestamp queries, device-wide
// waits) over a raw PFN table instead of this module's typed one.
type Runtime struct {
	device vk.Device
	pfn    *PFNTable

	allocator *alloc.Allocator
	resource  alloc.DeviceResource
	executors Executors

	graphicsPipelines *cache.GraphicsPipelineCache
	computePipelines  *cache.ComputePipelineCache

	mu            sync.Mutex
	namedBases    map[string]*gfx.PipelineBaseInfo
	pipelineCache vk.PipelineCache
	queryPool     vk.QueryPool
	queryCount    uint32
	freeQueries   []uint32
	timestampPeriod float64

	infoLog  *log.Logger
	errorLog *log.Logger
	warnLog  *log.Logger
}

// Config collects what NewRuntime needs beyond the handles it is handed:
// the three severity sinks (keeping the teacher's info/error/warn logger
// split, but on caller-supplied io.Writers — a library must not open
// process-global log files; pass an opened file to get the teacher's
// on-disk behavior) and the nanoseconds-per-tick conversion the device
// reports for timestamp queries.
type Config struct {
	InfoLog            io.Writer
	ErrorLog           io.Writer
	WarnLog            io.Writer
	TimestampPeriod    float64
	OptionalExtensions []string
}

func newLogger(w io.Writer, prefix string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.New(w, prefix, log.Ldate|log.Ltime|log.Lshortfile)
}

// NewRuntime wires the allocator, resource provider, queue executors and
// pipeline caches into one Runtime, binding the PFN table and asserting
// its required subset (spec.md §6.1: "check_pfns must pass on all required
// entries").
func NewRuntime(device vk.Device, resource alloc.DeviceResource, allocator *alloc.Allocator, executors Executors, cfg Config) (*Runtime, error) {
	pfn := NewPFNTable(cfg.OptionalExtensions)
	if err := pfn.CheckRequired(); err != nil {
		return nil, err
	}

	infoLog := newLogger(cfg.InfoLog, "INFO: ")
	errorLog := newLogger(cfg.ErrorLog, "ERROR: ")
	warnLog := newLogger(cfg.WarnLog, "WARNING: ")

	r := &Runtime{
		device:          device,
		pfn:             pfn,
		allocator:       allocator,
		resource:        resource,
		executors:       executors,
		namedBases:      make(map[string]*gfx.PipelineBaseInfo),
		timestampPeriod: cfg.TimestampPeriod,
		infoLog:         infoLog,
		errorLog:        errorLog,
		warnLog:         warnLog,
	}

	r.graphicsPipelines = cache.NewGraphicsPipelineCache(device, r.buildGraphicsPipeline)
	r.computePipelines = cache.NewComputePipelineCache(device, r.buildComputePipeline)

	r.infoLog.Printf("runtime initialized, optional extensions: %v", cfg.OptionalExtensions)
	return r, nil
}

func (r *Runtime) buildGraphicsPipeline(key cache.GraphicsPipelineKey) (vk.Pipeline, error) {
	cis := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		RenderPass: key.RenderPass,
		Subpass:    key.Subpass,
		Layout:     key.Layout,
	}}
	dst := make([]vk.Pipeline, 1)
	if err := r.resource.AllocateGraphicsPipelines(dst, cis); err != nil {
		return vk.NullPipeline, err
	}
	return dst[0], nil
}

func (r *Runtime) buildComputePipeline(key cache.ComputePipelineKey) (vk.Pipeline, error) {
	cis := []vk.ComputePipelineCreateInfo{{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Layout: key.Layout,
	}}
	dst := make([]vk.Pipeline, 1)
	if err := r.resource.AllocateComputePipelines(dst, cis); err != nil {
		return vk.NullPipeline, err
	}
	return dst[0], nil
}

// Acquire implements gfx.PipelineAcquirer over the graphics pipeline cache,
// letting a gfx.CommandBuffer built against this Runtime resolve pipeline
// instances without depending on pkg/cache directly.
func (r *Runtime) Acquire(key cache.GraphicsPipelineKey, frame uint64) (vk.Pipeline, error) {
	return r.graphicsPipelines.Acquire(key, frame)
}

// CreateNamedPipeline registers base under name, so later command-buffer
// recording can look it up by name instead of threading a PipelineBaseInfo
// value through every call site (spec.md §6.4).
func (r *Runtime) CreateNamedPipeline(name string, base *gfx.PipelineBaseInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namedBases[name] = base
}

// GetNamedPipeline looks up a pipeline base previously registered with
// CreateNamedPipeline.
func (r *Runtime) GetNamedPipeline(name string) (*gfx.PipelineBaseInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	base, ok := r.namedBases[name]
	return base, ok
}

// CompileShader never compiles source languages (spec.md §6.2, §7): it
// always returns a ShaderCompilationException naming path. Front-ends that
// already produce SPIR-V should call Reflect directly instead.
func (r *Runtime) CompileShader(source []byte, path string) ([]uint32, error) {
	return nil, &ShaderCompilationException{Path: path, Reason: "source compilation is a front-end responsibility"}
}

// LoadPipelineCache creates the runtime's device pipeline cache object from
// a previously saved blob (testable property 8: round-trip with
// SavePipelineCache). The graphics and compute pipeline caches build their
// pipelines through the DeviceResource and do not pass this object to
// pipeline creation.
func (r *Runtime) LoadPipelineCache(data []byte) error {
	ci := vk.PipelineCacheCreateInfo{
		SType:           vk.StructureTypePipelineCacheCreateInfo,
		InitialDataSize: uint(len(data)),
	}
	if len(data) > 0 {
		ci.PInitialData = unsafe.Pointer(&data[0])
	}
	var handle vk.PipelineCache
	ret := vk.CreatePipelineCache(r.device, &ci, nil, &handle)
	if ret != vk.Success {
		return newVkError("vkCreatePipelineCache", ret)
	}
	r.pipelineCache = handle
	return nil
}

// SavePipelineCache serializes the device pipeline cache object to bytes
// suitable for a later LoadPipelineCache call on the same device/driver.
func (r *Runtime) SavePipelineCache() ([]byte, error) {
	var size uint
	ret := vk.GetPipelineCacheData(r.device, r.pipelineCache, &size, nil)
	if ret != vk.Success {
		return nil, newVkError("vkGetPipelineCacheData (size query)", ret)
	}
	data := make([]byte, size)
	if size > 0 {
		ret = vk.GetPipelineCacheData(r.device, r.pipelineCache, &size, unsafe.Pointer(&data[0]))
		if ret != vk.Success {
			return nil, newVkError("vkGetPipelineCacheData", ret)
		}
	}
	return data[:size], nil
}

// NextFrame advances the per-frame allocator (waiting the rotating frame's
// fences, draining deferred deallocations, resetting linear sub-allocators)
// and collects stale entries from both pipeline caches.
func (r *Runtime) NextFrame(frame uint64, threshold uint64) error {
	if err := r.allocator.NextFrame(); err != nil {
		return err
	}
	r.graphicsPipelines.Collect(frame, threshold)
	r.computePipelines.Collect(frame, threshold)
	return nil
}

// WaitIdle drains the device, holding every queue executor's submit lock
// across the vkDeviceWaitIdle so no submission races the drain (spec.md
// §6.4: "device-wide drain, takes all queue locks"). Locks are taken in
// executor-id order — two domains may share one executor, and concurrent
// WaitIdle callers must agree on an order.
func (r *Runtime) WaitIdle() error {
	seen := make(map[*queue.QueueExecutor]bool, len(r.executors))
	executors := make([]*queue.QueueExecutor, 0, len(r.executors))
	for _, qe := range r.executors {
		if !seen[qe] {
			seen[qe] = true
			executors = append(executors, qe)
		}
	}
	sort.Slice(executors, func(i, j int) bool {
		return executors[i].ExecutorID() < executors[j].ExecutorID()
	})
	for _, qe := range executors {
		qe.Lock()
	}
	defer func() {
		for _, qe := range executors {
			qe.Unlock()
		}
	}()

	ret := vk.DeviceWaitIdle(r.device)
	if ret != vk.Success {
		return newVkError("vkDeviceWaitIdle", ret)
	}
	return nil
}

// CreateTimestampQuery hands out one slot from the runtime's timestamp
// query pool, allocating a fresh pool on first use.
func (r *Runtime) CreateTimestampQuery() (Query, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.queryPool == vk.QueryPool(vk.NullHandle) {
		pools := make([]vk.QueryPool, 1)
		infos := []alloc.TimestampQueryPoolCreateInfo{{Count: 256}}
		if err := r.resource.AllocateTimestampQueryPools(pools, infos); err != nil {
			return Query{}, err
		}
		r.queryPool = pools[0]
		r.queryCount = 256
		r.freeQueries = make([]uint32, r.queryCount)
		for i := range r.freeQueries {
			r.freeQueries[i] = uint32(i)
		}
	}

	if len(r.freeQueries) == 0 {
		return Query{}, errors.New("vuk: timestamp query pool exhausted")
	}
	idx := r.freeQueries[len(r.freeQueries)-1]
	r.freeQueries = r.freeQueries[:len(r.freeQueries)-1]
	return Query{pool: r.queryPool, index: idx}, nil
}

// RetrieveTimestamp reads back one query's raw tick value (host-mapped
// acquire per spec.md §4.8: "Runtime::make_timestamp_results_available").
func (r *Runtime) RetrieveTimestamp(q Query) (uint64, error) {
	var value uint64
	ret := vk.GetQueryPoolResults(r.device, q.pool, q.index, 1, 8, unsafe.Pointer(&value), 8, vk.QueryResultFlags(vk.QueryResult64Bit)|vk.QueryResultFlags(vk.QueryResultWaitBit))
	if ret != vk.Success {
		return 0, newVkError("vkGetQueryPoolResults", ret)
	}
	return value, nil
}

// RetrieveDuration converts two timestamps into a nanosecond duration using
// the device's reported timestampPeriod.
func (r *Runtime) RetrieveDuration(a, b Query) (float64, error) {
	ta, err := r.RetrieveTimestamp(a)
	if err != nil {
		return 0, err
	}
	tb, err := r.RetrieveTimestamp(b)
	if err != nil {
		return 0, err
	}
	return float64(tb-ta) * r.timestampPeriod, nil
}

// WaitForDomains blocks until every sync point in sps is reached, grouping
// waits by executor the way pkg/queue.WaitSyncPoints does, and invoking the
// real vkWaitSemaphores through the PFN table entry check_pfns already
// verified is present.
func (r *Runtime) WaitForDomains(sps []ir.SyncPoint) error {
	return queue.WaitSyncPoints(sps, func(executors []ir.Executor, values []uint64) vk.Result {
		semaphores := make([]vk.Semaphore, len(executors))
		for i, ex := range executors {
			qe, ok := ex.(*queue.QueueExecutor)
			if !ok {
				continue
			}
			semaphores[i] = qe.Timeline
		}
		info := vk.SemaphoreWaitInfo{
			SType:          vk.StructureTypeSemaphoreWaitInfo,
			SemaphoreCount: uint32(len(semaphores)),
			PSemaphores:    semaphores,
			PValues:        values,
		}
		return r.pfn.WaitSemaphores(r.device, &info, ^uint64(0))
	})
}

func newVkError(op string, ret vk.Result) error {
	return errors.Errorf("vuk: %s failed: %d", op, ret)
}
