// Package queue implements the per-queue timeline-semaphore submit loop and
// Signal/SyncPoint machinery (C8): one QueueExecutor per Vulkan queue,
// arming the AcquireRelease signals a compiled graph produces, plus the
// host-facing wait helpers spec.md §6.4/§4.7 describe.
//
// Grounded on original_source/include/vuk/SyncPoint.hpp (referenced by
// spec.md but not present in the retrieved original_source tree — this
// package's submit/arm loop is built from spec.md §4.7/§5's description
// directly) and the teacher's CoreQueue (pkg/legacy/dieselvk/queue.go),
// which this supersedes with a timeline-semaphore submit path instead of
// binary-semaphore/fence bookkeeping.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/ir"
)

// Limits bounds a QueueExecutor's concurrency (spec.md §4.7 expansion).
type Limits struct {
	// MaxInFlight caps the number of submissions allowed to be outstanding
	// (submitted but not yet observed complete) at once. Zero means
	// unbounded.
	MaxInFlight int64
}

// Submission carries one submit batch: command buffers plus the
// wait/signal timeline semaphore (semaphore, value) pairs spec.md §4.7
// describes. The actual vkQueueSubmit2 call is supplied by the caller (see
// Submit's fn parameter) since this package has no PFN table of its own —
// pkg/runtime owns that (spec.md §6.1).
type Submission struct {
	CommandBuffers   []vk.CommandBuffer
	WaitSemaphores   []vk.Semaphore
	WaitValues       []uint64
	WaitStages       []vk.PipelineStageFlags
	SignalSemaphores []vk.Semaphore
	SignalValues     []uint64
}

var executorCounter uint32

// QueueExecutor owns one Vulkan queue and its timeline semaphore,
// serializing submissions behind a per-queue mutex (spec.md §5) and
// optionally bounding in-flight submissions with a weighted semaphore
// (spec.md §4.7 expansion, grounded on golang.org/x/sync/semaphore — the
// pack's only concurrency-primitive dependency beyond errgroup).
type QueueExecutor struct {
	id       uint32
	device   vk.Device
	queue    vk.Queue
	family   uint32
	Timeline vk.Semaphore

	mu        sync.Mutex
	nextValue uint64
	pending   []uint64

	inFlight *semaphore.Weighted
}

// NewQueueExecutor wraps queue (belonging to family) with a
// caller-created timeline semaphore.
func NewQueueExecutor(device vk.Device, q vk.Queue, family uint32, timeline vk.Semaphore, limits Limits) *QueueExecutor {
	id := atomic.AddUint32(&executorCounter, 1)
	qe := &QueueExecutor{id: id, device: device, queue: q, family: family, Timeline: timeline}
	if limits.MaxInFlight > 0 {
		qe.inFlight = semaphore.NewWeighted(limits.MaxInFlight)
	}
	return qe
}

// ExecutorID implements ir.Executor, letting a QueueExecutor be stamped
// into an AcquireRelease's SyncPoint.
func (qe *QueueExecutor) ExecutorID() uint32 { return qe.id }

// Family returns the queue family index this executor submits to
// (spec.md §4.4 pass 9's partition spans key off this).
func (qe *QueueExecutor) Family() uint32 { return qe.family }

// Lock takes the executor's submit mutex, blocking new submissions until
// Unlock. Runtime::wait_idle holds every queue's lock across its
// device-wide drain so no submission races the vkDeviceWaitIdle.
func (qe *QueueExecutor) Lock() { qe.mu.Lock() }

// Unlock releases the submit mutex taken by Lock.
func (qe *QueueExecutor) Unlock() { qe.mu.Unlock() }

// Submit stamps the next timeline value, calls fn to perform the actual
// vkQueueSubmit2, and — on success — arms every signal in sigs with the
// resulting SyncPoint (spec.md §4.7: "the executor stamps source =
// (this, value_at_submit) and sets status to Synchronizable").
//
// If Limits.MaxInFlight was configured, Submit blocks (respecting ctx)
// until a slot is free; the slot is released once ReleaseCompleted
// observes this submission's value has finished on the GPU, not when
// Submit itself returns — submissions are in flight until the device says
// otherwise.
func (qe *QueueExecutor) Submit(ctx context.Context, sub Submission, fn func(vk.Queue, Submission, uint64) vk.Result, sigs []*ir.AcquireRelease) (ir.SyncPoint, error) {
	if qe.inFlight != nil {
		if err := qe.inFlight.Acquire(ctx, 1); err != nil {
			return ir.SyncPoint{}, err
		}
	}

	qe.mu.Lock()
	qe.nextValue++
	value := qe.nextValue
	ret := fn(qe.queue, sub, value)
	if ret == vk.Success {
		qe.pending = append(qe.pending, value)
	}
	qe.mu.Unlock()

	if err := newVkException("vkQueueSubmit2", ret); err != nil {
		if qe.inFlight != nil {
			qe.inFlight.Release(1)
		}
		return ir.SyncPoint{}, err
	}

	sp := ir.SyncPoint{Executor: qe, Value: value}
	for _, s := range sigs {
		s.Arm(sp)
	}
	return sp, nil
}

// ReleaseCompleted frees in-flight slots for every pending submission whose
// value has been reached by current (the executor's last-observed
// vkGetSemaphoreCounterValue), called by the runtime's host-wait /
// sync_point_ready loop once it polls the timeline forward.
func (qe *QueueExecutor) ReleaseCompleted(current uint64) {
	if qe.inFlight == nil {
		return
	}
	qe.mu.Lock()
	kept := qe.pending[:0]
	released := 0
	for _, v := range qe.pending {
		if v <= current {
			released++
		} else {
			kept = append(kept, v)
		}
	}
	qe.pending = kept
	qe.mu.Unlock()
	if released > 0 {
		qe.inFlight.Release(int64(released))
	}
}

// WaitSyncPoints blocks the host until every sp in sps has been reached,
// collapsing to one max value per executor before calling waitFn
// (Runtime::wait_for_domains, spec.md §4.7: "waits on the union of queue-
// timeline semaphores at the max required value per queue").
func WaitSyncPoints(sps []ir.SyncPoint, waitFn func(executors []ir.Executor, values []uint64) vk.Result) error {
	if len(sps) == 0 {
		return nil
	}
	byExecutor := map[ir.Executor]uint64{}
	var order []ir.Executor
	for _, sp := range sps {
		if v, ok := byExecutor[sp.Executor]; !ok || sp.Value > v {
			if !ok {
				order = append(order, sp.Executor)
			}
			byExecutor[sp.Executor] = sp.Value
		}
	}
	values := make([]uint64, len(order))
	for i, ex := range order {
		values[i] = byExecutor[ex]
	}
	return newVkException("vkWaitSemaphores", waitFn(order, values))
}

// SyncPointReady polls whether sp has been reached given the executor's
// last-observed completed value (Runtime::sync_point_ready).
func SyncPointReady(sp ir.SyncPoint, currentValue uint64) bool {
	return sp.Ready(currentValue)
}
