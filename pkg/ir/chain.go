package ir

import "github.com/andewx/vukgo/pkg/vktypes"

// ChainLink records the def/use/undef tree for one contiguous resource
// subrange (spec.md §3.3). prev/next form the doubly linked list of
// successive writes to the same subrange; child_chains hang off a SLICE's
// parent link and are merged back by CONVERGE.
type ChainLink struct {
	Prev *ChainLink
	Next *ChainLink

	Def   Ref
	Urdef Ref
	Reads []Ref
	Undef Ref

	ChildChains []*ChainLink

	ReadSync  *vktypes.ResourceUse
	UndefSync *vktypes.ResourceUse
}

// IsHead reports whether l is the head of its chain (spec.md §4.4 pass 6:
// "Chains are head links (those with prev == null)").
func (l *ChainLink) IsHead() bool { return l.Prev == nil }

// AddRead appends a read Ref to the link, matching the CALL build-links
// rule for non-write imbued args.
func (l *ChainLink) AddRead(r Ref) { l.Reads = append(l.Reads, r) }

// LinkNext chains l to following, the doubly-linked append used whenever
// a new write subrange follows an existing one.
func LinkNext(l, following *ChainLink) {
	l.Next = following
	following.Prev = l
}

// PropagateUrdef walks head-to-tail through the chain starting at head,
// stamping every link's Urdef with the head's Def — spec.md §3.3's
// invariant "urdef is stable along the whole chain (propagated
// head-to-tail)", and §4.4 pass 4's final step.
func PropagateUrdef(head *ChainLink) {
	if head == nil {
		return
	}
	urdef := head.Def
	for l := head; l != nil; l = l.Next {
		l.Urdef = urdef
	}
}

// CollectChains walks every node in nodes and returns the head links
// (spec.md §4.4 pass 6).
func CollectChains(nodes []*Node) []*ChainLink {
	var heads []*ChainLink
	for _, n := range nodes {
		for _, l := range n.Links {
			if l.IsHead() {
				heads = append(heads, l)
			}
		}
	}
	return heads
}
