// Package runtime ties the other packages together into the application
// contract spec.md §6.4 describes: named pipelines, shader ingest, the
// PFN capability table, pipeline-cache persistence and the blocking
// host-facing operations (next_frame, wait_idle, timestamp queries).
//
// Grounded on the teacher's BaseCore construction sequence
// (pkg/legacy/dieselvk/core.go's three-log-file NewBaseCore) and
// original_source/include/vuk/runtime/vk/VkRuntime.hpp.
package runtime

import (
	"fmt"

	"github.com/pkg/errors"
)

// RequiredPFNMissing is raised when a Vulkan function pointer the
// required subset names is absent and dynamic loading was disallowed
// (spec.md §7).
type RequiredPFNMissing struct {
	Name string
}

func (e *RequiredPFNMissing) Error() string {
	return fmt.Sprintf("vuk: required function pointer %q is missing", e.Name)
}

func newRequiredPFNMissing(name string) error {
	return errors.WithStack(&RequiredPFNMissing{Name: name})
}

// ShaderCompilationException completes spec.md §7's taxonomy. Source
// language compilation is an external front-end's job (§6.2: "It does not
// compile source languages"), so the only place this module constructs one
// is Runtime.CompileShader, which returns it for every call.
type ShaderCompilationException struct {
	Path   string
	Reason string
}

func (e *ShaderCompilationException) Error() string {
	return fmt.Sprintf("vuk: shader compilation failed for %q: %s", e.Path, e.Reason)
}
