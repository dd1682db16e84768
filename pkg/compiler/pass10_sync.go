package compiler

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// passSyncSynthesis is pass 10 (spec.md §4.4): for every chain link,
// resolve UndefSync from the single write/consume access and ReadSync from
// the merged access of every parallel reader between def and undef.
//
// Grounded on original_source/src/IRPasses.cpp's sync synthesis stage and
// spec.md §4.4 pass 10's merge rule: TRANSFER_SRC if every reader is a
// transfer-read, GENERAL if any reader is a storage access or the readers
// mix transfer and non-transfer reads, READ_ONLY_OPTIMAL otherwise;
// accesses and stages are OR'd across all readers (testable property 7:
// "at most one read→undef barrier per queue").
func passSyncSynthesis(chains []*ir.ChainLink) error {
	for _, head := range chains {
		for l := head; l != nil; l = l.Next {
			if l.Undef.IsValid() {
				if tag, ok := callAccessFor(l.Undef.Node, l); ok && !isResolvePair(tag) {
					use := vktypes.ToUse(tag)
					l.UndefSync = &use
				}
			}
			if merged, ok := mergeReadSync(l); ok {
				l.ReadSync = &merged
			}
		}
	}
	return nil
}

// isResolvePair reports whether tag marks a resolve-attachment access: a
// resolve writer is always paired with its multisample source pass inside
// one render pass, so no barrier is synthesized between them (spec.md
// §4.4 tie-break rules).
func isResolvePair(tag vktypes.Access) bool {
	return tag == vktypes.AccessColorResolveWrite || tag == vktypes.AccessColorResolveRead ||
		tag == vktypes.AccessDepthStencilResolveWrite || tag == vktypes.AccessDepthStencilResolveRead
}

// callAccessFor recovers the Access tag a CALL node used for the argument
// whose Link() is l — the same (node, argIndex) correspondence pass 4 used
// to file l's read/undef in the first place (it called l := arg.Link()
// before appending to l.Reads or setting l.Undef).
func callAccessFor(n *ir.Node, l *ir.ChainLink) (vktypes.Access, bool) {
	if n == nil {
		return vktypes.AccessNone, false
	}
	cp, ok := n.Payload.(ir.CallPayload)
	if !ok {
		return vktypes.AccessNone, false
	}
	for i, a := range cp.Args {
		if a.Link() == l && i < len(cp.ImbuedTags) {
			return cp.ImbuedTags[i], true
		}
	}
	return vktypes.AccessNone, false
}

// mergeReadSync folds every reader of l into one ResourceUse per spec.md
// §4.4 pass 10's merge rule.
func mergeReadSync(l *ir.ChainLink) (vktypes.ResourceUse, bool) {
	var merged vktypes.ResourceUse
	found := false
	allTransfer := true
	anyStorage := false
	anyTransfer := false
	anyNonTransferRead := false

	for _, r := range l.Reads {
		tag, ok := callAccessFor(r.Node, l)
		if !ok {
			continue
		}
		found = true
		use := vktypes.ToUse(tag)
		merged.Stages |= use.Stages
		merged.Access |= use.Access

		if vktypes.IsTransferAccess(tag) {
			anyTransfer = true
		} else {
			allTransfer = false
			anyNonTransferRead = true
		}
		if vktypes.IsStorageAccess(tag) {
			anyStorage = true
		}
	}
	if !found {
		return merged, false
	}

	switch {
	case allTransfer:
		merged.Layout = vk.ImageLayoutTransferSrcOptimal
	case anyStorage || (anyTransfer && anyNonTransferRead):
		merged.Layout = vk.ImageLayoutGeneral
	default:
		merged.Layout = vk.ImageLayoutShaderReadOnlyOptimal
	}
	return merged, true
}
