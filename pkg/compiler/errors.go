// Package compiler implements the ten-pass compile pipeline (C6): implicit
// convergence, node collection, bridge elimination, link building, reify
// inference, chain collection, intra-queue topological sort, queue
// inference, queue-family partitioning, and sync synthesis.
//
// Grounded on original_source/src/IRPasses.cpp and
// original_source/include/vuk/IRProcess.hpp.
package compiler

import (
	"fmt"

	"github.com/pkg/errors"
)

// RenderGraphException is raised for compiler-time violations: unattached
// resources, undeclared references, dominance violations at CONVERGE,
// non-partial-ordering in the topo sort (spec.md §7).
type RenderGraphException struct {
	Reason string
}

func (e *RenderGraphException) Error() string {
	return fmt.Sprintf("vuk: render graph error: %s", e.Reason)
}

func newRenderGraphException(format string, args ...any) error {
	return errors.WithStack(&RenderGraphException{Reason: fmt.Sprintf(format, args...)})
}

// cannotBeConstantEvaluated names a field that cannot be evaluated at
// compile time. No pass returns it: pass 5 leaves such a field as a
// PLACEHOLDER and tries again on its next fixpoint sweep.
type cannotBeConstantEvaluated struct{ field string }

func (e *cannotBeConstantEvaluated) Error() string {
	return "vuk: cannot be constant evaluated: " + e.field
}
