package ir

// SignalStatus is a Signal's arming state (spec.md §3.5).
type SignalStatus uint8

const (
	Disarmed SignalStatus = iota
	Synchronizable
	HostAvailable
)

// Executor identifies whatever queue executor a SyncPoint is stamped
// against. Defined as an interface here (rather than importing
// pkg/queue's concrete QueueExecutor) so pkg/ir has no dependency on
// pkg/queue; pkg/queue.QueueExecutor implements it.
type Executor interface {
	ExecutorID() uint32
}

// SyncPoint is (executor, value) on a timeline semaphore — the point in
// time a consumer must wait for (spec.md §3.5, §4.7).
type SyncPoint struct {
	Executor Executor
	Value    uint64
}

// Ready reports whether current (the executor's last-observed completed
// value) has reached sp's value — Runtime::sync_point_ready's contract.
func (sp SyncPoint) Ready(current uint64) bool { return current >= sp.Value }

// AcquireRelease is a Signal carrying a SyncPoint and the per-result last
// use, attached to ACQUIRE/RELEASE nodes (spec.md §3.5).
type AcquireRelease struct {
	Status  SignalStatus
	Source  SyncPoint
	LastUse []SyncPoint
}

// Arm stamps the signal with source and marks it Synchronizable — the
// executor's post-submit bookkeeping (spec.md §4.7: "for each
// AcquireRelease that must be armed, the executor stamps source =
// (this, value_at_submit) and sets status to Synchronizable").
func (ar *AcquireRelease) Arm(source SyncPoint) {
	ar.Source = source
	ar.Status = Synchronizable
}
