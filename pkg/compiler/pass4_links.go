package compiler

import (
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// passBuildLinks is pass 4 (spec.md §4.4): for every node, attach its
// produced results to the def/use/undef chain of whatever it reads or
// writes, then propagate urdef head-to-tail once a chain is complete.
//
// Grounded on original_source/src/IRPasses.cpp's build_links pass; the
// per-kind rules mirror its switch over Node::Kind:
//   - CONSTRUCT/IMPORT/ACQUIRE/ALLOCATE originate a new chain (their own
//     Links[i] is already a fresh head from newNode).
//   - SLICE hangs its own link on the parent's ChildChains (done at
//     construction time in module.go's MakeSlice) and does not itself
//     advance the parent chain.
//   - CONVERGE advances the base chain onto itself; each diverged tail
//     whose Write flag (captured at MakeConverge time) is set gets the
//     CONVERGE as its Undef, every other tail records it as a read.
//   - USE records a read or, for a write access, becomes the next link
//     in its source's chain.
//   - CALL's CallPayload.Args carry per-arg ImbuedTags; a write-classed
//     tag advances the chain onto the result slot whose aliased return
//     names that arg (ties prev = args[ref_idx].link, next = self), a
//     read-only tag records a read.
//   - CLEAR/LOGICAL_COPY/CAST act as a write on their destination chain.
//   - RELEASE marks every source Ref as the chain's Undef.
func passBuildLinks(nodes []*ir.Node) error {
	// advance makes writer's own pre-existing link (allocated by newNode
	// when writer's node was created) the new tail of src's chain, rather
	// than allocating a fresh link — a node's link IS its def site. The
	// link being superseded is also stamped with Undef = writer: per
	// spec.md §3.3, a write both closes out the previous subrange (so its
	// prior reads are known complete, §4.4 pass 10's UndefSync) and opens
	// a new one headed by the writer's own link.
	advance := func(src ir.Ref, writer ir.Ref) *ir.ChainLink {
		cur := src.Link()
		next := writer.Link()
		if cur == nil || next == nil {
			return next
		}
		for cur.Next != nil {
			cur = cur.Next
		}
		cur.Undef = writer
		ir.LinkNext(cur, next)
		return next
	}

	for _, n := range nodes {
		switch p := n.Payload.(type) {
		case ir.UsePayload:
			if vktypes.IsWriteAccess(p.Access) {
				advance(p.Src, n.Ref0())
			} else if l := p.Src.Link(); l != nil {
				l.AddRead(n.Ref0())
			}

		case ir.CallPayload:
			for i, a := range p.Args {
				tag := vktypes.AccessNone
				if i < len(p.ImbuedTags) {
					tag = p.ImbuedTags[i]
				}
				if vktypes.IsWriteAccess(tag) {
					// The write advances onto the result slot whose
					// aliased return names this arg, so a multi-output
					// CALL (color + depth) keeps one chain per
					// attachment instead of collapsing both onto slot 0.
					advance(a, ir.Ref{Node: n, Index: aliasedSlotFor(n, i)})
				} else if l := a.Link(); l != nil {
					l.AddRead(n.Ref0())
				}
			}

		case ir.ClearPayload:
			advance(p.Dst, n.Ref0())

		case ir.LogicalCopyPayload:
			advance(p.Dst, n.Ref0())
			if l := p.Src.Link(); l != nil {
				l.AddRead(n.Ref0())
			}

		case ir.CastPayload:
			advance(p.Src, n.Ref0())

		case ir.ReleasePayload:
			for _, s := range p.Src {
				if l := s.Link(); l != nil {
					l.Undef = n.Ref0()
				}
			}

		case ir.ConvergePayload:
			// The base is the first (undef) arg: the converge supersedes
			// the base's pre-slice version, merging the child chains back
			// into one chain the parent participates in again.
			advance(p.Base, n.Ref0())
			for i, d := range p.Diverged {
				l := d.Link()
				if l == nil {
					continue
				}
				if i < len(p.Write) && p.Write[i] {
					l.Undef = n.Ref0()
				} else {
					l.AddRead(n.Ref0())
				}
			}
		}
	}

	for _, head := range ir.CollectChains(nodes) {
		ir.PropagateUrdef(head)
	}
	return nil
}

// aliasedSlotFor returns the result slot of n whose aliased return type
// names arg index ai, or slot 0 when no return aliases it (the
// single-output case, where result 0 is the write's def site).
func aliasedSlotFor(n *ir.Node, ai int) int {
	for ri, t := range n.ResultTypes {
		if t != nil && t.Kind == ir.AliasedTy && t.RefIndex == ai {
			return ri
		}
	}
	return 0
}
