package queue

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// VkException wraps a Vulkan error code returned from the submission or
// wait path (spec.md §7).
type VkException struct {
	Op     string
	Result vk.Result
}

func (e *VkException) Error() string {
	return fmt.Sprintf("vuk: %s: vulkan result %d", e.Op, e.Result)
}

// newVkException builds a VkException if ret signals failure, or nil
// otherwise, wrapped with a stack trace at the call site.
func newVkException(op string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return errors.WithStack(&VkException{Op: op, Result: ret})
}
