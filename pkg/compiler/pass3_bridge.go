package compiler

import "github.com/andewx/vukgo/pkg/ir"

// passBridgeElimination is pass 3 (spec.md §4.4): GARBAGE/SPLICE nodes
// produced by an earlier compile (or left over from a rewrite) are
// removed from the collected set so later passes never see them — a
// SPLICE is transparently replaced by its single source Ref wherever it
// is used, and a GARBAGE node is simply dropped.
//
// Grounded on original_source/src/IRPasses.cpp's bridge elimination,
// which exists because the C++ implementation rewrites nodes in place
// (a SPLICE is a tombstone left at an old node's address so existing
// Refs keep resolving). This implementation's arena never moves or
// reuses a *ir.Node address, so bridging only has to fix up payload
// Refs that point at a SPLICE, not relocate memory.
func passBridgeElimination(nodes []*ir.Node) []*ir.Node {
	redirect := map[*ir.Node]ir.Ref{}
	for _, n := range nodes {
		if n.Kind == ir.Splice {
			if src, ok := n.Payload.(ir.CastPayload); ok {
				redirect[n] = src.Src
			}
		}
	}

	resolve := func(r ir.Ref) ir.Ref {
		for r.Node != nil {
			next, ok := redirect[r.Node]
			if !ok {
				break
			}
			r = next
		}
		return r
	}

	for _, n := range nodes {
		rewriteRefs(n, resolve)
	}

	out := make([]*ir.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == ir.Splice || n.Kind == ir.Garbage {
			continue
		}
		out = append(out, n)
	}
	return out
}

// rewriteRefs applies resolve to every Ref held in n's payload, in place.
func rewriteRefs(n *ir.Node, resolve func(ir.Ref) ir.Ref) {
	switch p := n.Payload.(type) {
	case ir.ConstructPayload:
		for i := range p.Args {
			p.Args[i] = resolve(p.Args[i])
		}
		n.Payload = p
	case ir.SlicePayload:
		p.Src = resolve(p.Src)
		p.Start = resolve(p.Start)
		p.Count = resolve(p.Count)
		n.Payload = p
	case ir.ConvergePayload:
		p.Base = resolve(p.Base)
		for i := range p.Diverged {
			p.Diverged[i] = resolve(p.Diverged[i])
		}
		n.Payload = p
	case ir.CallPayload:
		for i := range p.Args {
			p.Args[i] = resolve(p.Args[i])
		}
		n.Payload = p
	case ir.ClearPayload:
		p.Dst = resolve(p.Dst)
		n.Payload = p
	case ir.ReleasePayload:
		for i := range p.Src {
			p.Src[i] = resolve(p.Src[i])
		}
		n.Payload = p
	case ir.AcquireNextImagePayload:
		p.Swapchain = resolve(p.Swapchain)
		n.Payload = p
	case ir.UsePayload:
		p.Src = resolve(p.Src)
		n.Payload = p
	case ir.LogicalCopyPayload:
		p.Src = resolve(p.Src)
		p.Dst = resolve(p.Dst)
		n.Payload = p
	case ir.SetPayload:
		p.Target = resolve(p.Target)
		p.Value = resolve(p.Value)
		n.Payload = p
	case ir.CastPayload:
		p.Src = resolve(p.Src)
		n.Payload = p
	case ir.MathBinaryPayload:
		p.A = resolve(p.A)
		p.B = resolve(p.B)
		n.Payload = p
	case ir.GetAllocationSizePayload:
		p.Src = resolve(p.Src)
		n.Payload = p
	case ir.GetCIPayload:
		p.Src = resolve(p.Src)
		n.Payload = p
	}
}
