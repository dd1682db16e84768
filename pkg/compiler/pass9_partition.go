package compiler

import (
	"sort"

	"github.com/andewx/vukgo/pkg/vktypes"
)

// passPartition is pass 9 (spec.md §4.4): split the scheduled items into
// three contiguous spans by queue family — transfer, compute, graphics —
// so pkg/queue's per-queue executors (C8) can submit each span as one
// queue's command buffer without re-scanning the whole schedule.
//
// Grounded on original_source/src/RenderGraph.cpp's partition step, which
// stable-sorts scheduled items by queue family; sort.SliceStable preserves
// the pass-7 topological order within each family, which is required for
// correctness (partitioning must not reorder same-queue work).
func passPartition(scheduled []*ScheduledItem) (transfer, compute, graphics [2]int) {
	sort.SliceStable(scheduled, func(i, j int) bool {
		return queueRank(scheduled[i].Domain) < queueRank(scheduled[j].Domain)
	})

	transferEnd, computeEnd := 0, 0
	for i, item := range scheduled {
		switch queueRank(item.Domain) {
		case 0:
			transferEnd = i + 1
			computeEnd = i + 1
		case 1:
			computeEnd = i + 1
		}
	}

	transfer = [2]int{0, transferEnd}
	compute = [2]int{transferEnd, computeEnd}
	graphics = [2]int{computeEnd, len(scheduled)}
	return
}

// queueRank orders domains transfer < compute < graphics for the
// partition's stable sort; anything else (host, constant, placeholder)
// was already forced to eGraphicsQueue by pass 8 and ranks with graphics.
func queueRank(d vktypes.Domain) int {
	switch d {
	case vktypes.DomainTransferQueue:
		return 0
	case vktypes.DomainComputeQueue:
		return 1
	default:
		return 2
	}
}
