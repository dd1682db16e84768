package alloc

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// AllocateException wraps the underlying Vulkan error code for any
// allocator path (spec.md §7). Every allocate_* call that fails returns one
// of these, and the destination span is rolled back before the error
// propagates (spec.md §7 policy).
type AllocateException struct {
	Op     string
	Result vk.Result
}

func (e *AllocateException) Error() string {
	return fmt.Sprintf("vuk: allocate %s: vulkan result %d", e.Op, e.Result)
}

// NewAllocateException builds an AllocateException if ret signals failure,
// or returns nil otherwise — mirrors the teacher's orPanic(NewError(ret))
// idiom (pkg/legacy/asche/errors.go) but returns instead of panicking, since
// allocator errors are part of the public Result contract.
func NewAllocateException(op string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return &AllocateException{Op: op, Result: ret}
}

// Wrap attaches op context to an arbitrary error the way
// pkg/legacy/asche/errors.go's newStackFrame attaches a call site, but using
// github.com/pkg/errors instead of a hand-rolled runtime.Caller frame.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, op)
}
