package compiler

import (
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// passImplicitConvergence is pass 1 (spec.md §4.4): for each base resource
// with outstanding SLICE children, synthesize a CONVERGE node over the
// current tail of every sub-chain, then rewrite every unrelated
// downstream use of the base to point at the CONVERGE output instead
// (spec.md §4.4 pass 1: "rewrite every unrelated downstream use of the
// base to point at the CONVERGE output").
//
// Grounded on original_source/src/IRPasses.cpp's implicit_convergence
// pass description in spec.md (the original uses INDIRECT_DEPEND
// wrappers to avoid binding a specific user-Ref). Pass 1 runs before
// pass 4 builds the real ChainLink.Next chain (spec.md §4.4 numbers
// convergence first), so "the current tail of every sub-chain" cannot
// be read off link state that does not exist yet: instead findWriteTail
// below walks the write edges a node's payload expresses directly
// (the same write/read classification pass 4 will later apply), which
// needs only the payloads reached by pass 1's own walk from the roots,
// not any link or pass 2 state.
func passImplicitConvergence(m *ir.IRModule, roots []*ir.Node) error {
	visited := map[*ir.Node]bool{}
	var order []*ir.Node
	var walk func(n *ir.Node)
	walk = func(n *ir.Node) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		for _, arg := range refsOf(n) {
			walk(arg.Node)
		}
		order = append(order, n)
	}
	for _, r := range roots {
		walk(r)
	}

	redirect := map[*ir.Node]ir.Ref{}
	for _, n := range order {
		for _, link := range n.Links {
			if len(link.ChildChains) == 0 {
				continue
			}
			tails := make([]ir.Ref, 0, len(link.ChildChains))
			writes := make([]bool, 0, len(link.ChildChains))
			for _, child := range link.ChildChains {
				base := child.Def
				tail := findWriteTail(base, order)
				if !dominates(tail, base) {
					return newRenderGraphException("slice tail does not dominate converge point")
				}
				tails = append(tails, tail)
				writes = append(writes, tail != base)
			}
			conv := m.MakeConverge(link.Def, tails, writes)
			redirect[n] = conv.Ref0()
		}
	}
	if len(redirect) == 0 {
		return nil
	}

	resolve := func(r ir.Ref) ir.Ref {
		if repl, ok := redirect[r.Node]; ok {
			return repl
		}
		return r
	}
	for _, n := range order {
		if n.Kind == ir.Slice || n.Kind == ir.Converge {
			continue
		}
		rewriteRefs(n, resolve)
	}
	return nil
}

// findWriteTail walks forward from ref, following whichever node in
// candidates writes it next (CALL arg imbued with a write Access, a
// CLEAR/LOGICAL_COPY destination, or a CAST source — the same write
// classification pass 4's advance() applies), until no further writer is
// found. The result is the last writer in the chain, or ref itself if
// nothing ever wrote it.
func findWriteTail(ref ir.Ref, candidates []*ir.Node) ir.Ref {
	seen := map[ir.Ref]bool{}
	for {
		if seen[ref] {
			return ref // defensive: a write cycle should not happen, but never loop forever
		}
		seen[ref] = true
		writer, ok := findWriter(ref, candidates)
		if !ok {
			return ref
		}
		ref = writer
	}
}

func findWriter(ref ir.Ref, candidates []*ir.Node) (ir.Ref, bool) {
	for _, n := range candidates {
		switch p := n.Payload.(type) {
		case ir.CallPayload:
			for i, a := range p.Args {
				if a != ref {
					continue
				}
				tag := vktypes.AccessNone
				if i < len(p.ImbuedTags) {
					tag = p.ImbuedTags[i]
				}
				if vktypes.IsWriteAccess(tag) {
					return n.Ref0(), true
				}
			}
		case ir.ClearPayload:
			if p.Dst == ref {
				return n.Ref0(), true
			}
		case ir.LogicalCopyPayload:
			if p.Dst == ref {
				return n.Ref0(), true
			}
		case ir.CastPayload:
			if p.Src == ref {
				return n.Ref0(), true
			}
		}
	}
	return ir.Ref{}, false
}

// dominates is a conservative stand-in for the source's dominance check:
// every tail reachable from a SLICE must have been produced before (or
// at) the converge point it feeds, which in this arena-ordered
// construction holds whenever the tail's def node has an index no lower
// than the base's own — index order follows construction order
// (spec.md §3.2's monotonic index).
func dominates(tail, base ir.Ref) bool {
	if tail.Node == nil || base.Node == nil {
		return true
	}
	return tail.Node.Index >= base.Node.Index
}
