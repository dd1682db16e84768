package exec

import (
	"context"

	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/compiler"
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/queue"
)

// Device bundles everything submitting a Value needs: the module its
// nodes live in and the execution Config. It is cheap to construct and
// safe to share across goroutines — per-submission state lives in the
// ExecutableRenderGraph each Submit call creates.
type Device struct {
	Module *ir.IRModule
	Config Config

	// WaitFn overrides the host-side semaphore wait, for tests; nil uses
	// vkWaitSemaphores against the Config.Resource's device.
	WaitFn func(executors []ir.Executor, values []uint64) vk.Result
}

func (d *Device) waitFn() func([]ir.Executor, []uint64) vk.Result {
	if d.WaitFn != nil {
		return d.WaitFn
	}
	device := d.Config.Resource.Device()
	return func(executors []ir.Executor, values []uint64) vk.Result {
		semaphores := make([]vk.Semaphore, len(executors))
		for i, ex := range executors {
			if qe, ok := ex.(*queue.QueueExecutor); ok {
				semaphores[i] = qe.Timeline
			}
		}
		info := vk.SemaphoreWaitInfo{
			SType:          vk.StructureTypeSemaphoreWaitInfo,
			SemaphoreCount: uint32(len(semaphores)),
			PSemaphores:    semaphores,
			PValues:        values,
		}
		return vk.WaitSemaphores(device, &info, ^uint64(0))
	}
}

// Submit compiles roots and executes the resulting schedule — the body of
// Value::submit. The returned graph holds the evaluated results for Get.
func Submit(ctx context.Context, dev *Device, roots ...*ir.ExtNode) (*ExecutableRenderGraph, []ir.SyncPoint, error) {
	comp := compiler.NewCompiler(dev.Module)
	if err := comp.Compile(roots); err != nil {
		return nil, nil, err
	}
	g := NewExecutable(comp, dev.Config)
	sps, err := g.Execute(ctx)
	if err != nil {
		return nil, nil, err
	}
	return g, sps, nil
}

// Wait blocks the host until v's producing work has completed, submitting
// it first if it never was (Value::wait). An already-armed signal short
// circuits to a plain semaphore wait.
func Wait[T any](ctx context.Context, dev *Device, v ir.Value[T]) (*ExecutableRenderGraph, error) {
	n := v.ExtNode().Node()
	rel := n.RelAcq

	if rel != nil && rel.Status == ir.HostAvailable {
		return nil, nil
	}

	var g *ExecutableRenderGraph
	var sps []ir.SyncPoint
	if rel != nil && rel.Status == ir.Synchronizable {
		sps = []ir.SyncPoint{rel.Source}
	} else {
		var err error
		g, sps, err = Submit(ctx, dev, v.ExtNode())
		if err != nil {
			return nil, err
		}
		rel = n.RelAcq
	}

	if err := queue.WaitSyncPoints(sps, dev.waitFn()); err != nil {
		return g, err
	}
	if rel != nil {
		rel.Status = ir.HostAvailable
	}
	return g, nil
}

// Get waits for v and returns its evaluated runtime value (Value::get):
// the mapped *resource.Buffer / *resource.ImageAttachment for the builtin
// types, or whatever the producing CALL returned for it.
func Get[T any](ctx context.Context, dev *Device, v ir.Value[T]) (any, error) {
	g, err := Wait(ctx, dev, v)
	if err != nil {
		return nil, err
	}
	if g == nil {
		// Already host-available: the value was produced by a prior
		// submission whose graph is gone; re-evaluate host-side.
		g = NewExecutable(compiler.NewCompiler(dev.Module), dev.Config)
	}
	return g.Result(v.Ref())
}
