package compiler

import (
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// passQueueInference is pass 8 (spec.md §4.4): forward and backward passes
// along every chain propagate the last non-Any/Device domain through
// scheduling info; nodes still undecided after stabilizing default to
// eGraphicsQueue.
//
// Grounded on original_source/src/IRPasses.cpp's queue_inference, which
// repeats the forward/backward sweep until no chain changes — here bounded
// to a fixed small number of sweeps since a domain can propagate at most
// once per chain position per direction.
func passQueueInference(chains []*ir.ChainLink, scheduled []*ScheduledItem) {
	domain := make(map[*ir.Node]vktypes.Domain, len(scheduled))
	for _, item := range scheduled {
		if cp, ok := item.Node.Payload.(ir.CallPayload); ok {
			d := vktypes.Domain(cp.Domain)
			if d.IsSingleQueue() {
				domain[item.Node] = d
			}
		}
	}

	const maxSweeps = 8
	for sweep := 0; sweep < maxSweeps; sweep++ {
		changed := false
		for _, head := range chains {
			seq := chainSequence(head)

			var last vktypes.Domain
			for _, n := range seq {
				if d, ok := domain[n]; ok && d.IsSingleQueue() {
					last = d
					continue
				}
				if last.IsSingleQueue() && domain[n] != last {
					domain[n] = last
					changed = true
				}
			}

			last = vktypes.DomainAny
			for i := len(seq) - 1; i >= 0; i-- {
				n := seq[i]
				if d, ok := domain[n]; ok && d.IsSingleQueue() {
					last = d
					continue
				}
				if last.IsSingleQueue() && domain[n] != last {
					domain[n] = last
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	for _, item := range scheduled {
		d, ok := domain[item.Node]
		if !ok || !d.IsSingleQueue() {
			d = vktypes.DomainGraphicsQueue
		}
		item.Domain = d
	}
}

// chainSequence linearizes a chain (head to tail, each link's def then
// reads then undef) into the node order queue inference sweeps over.
func chainSequence(head *ir.ChainLink) []*ir.Node {
	var seq []*ir.Node
	for l := head; l != nil; l = l.Next {
		if l.Def.Node != nil {
			seq = append(seq, l.Def.Node)
		}
		for _, r := range l.Reads {
			if r.Node != nil {
				seq = append(seq, r.Node)
			}
		}
		if l.Undef.Node != nil {
			seq = append(seq, l.Undef.Node)
		}
	}
	return seq
}
