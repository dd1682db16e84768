package compiler

import (
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// passTopoSort is pass 7 (spec.md §4.4): treat every collected node as a
// vertex, with edges def→undef, def→read, read→undef drawn from each
// result slot's ChainLink, and emit a topological order with Kahn's
// algorithm. CONSTRUCT (and every other non-schedulable kind — PLACEHOLDER,
// CONSTANT, SLICE, GARBAGE, NOP, SPLICE, IMPORT) participates in the graph
// only to establish ordering; it is filtered out of the returned
// ScheduledItem list rather than emitted.
//
// Grounded on original_source/src/IRPasses.cpp's schedule_intra_queue,
// which builds the same adjacency over an explicit vertex set and asserts
// indegree==0 for every vertex once the queue drains — "Indegree > 0 after
// processing ⇒ bug (assert)" in spec.md becomes a RenderGraphException
// here rather than a process abort, matching §7's no-exceptions-across-
// the-public-API discipline.
func passTopoSort(nodes []*ir.Node) ([]*ScheduledItem, error) {
	type edge struct{ from, to *ir.Node }

	present := make(map[*ir.Node]bool, len(nodes))
	for _, n := range nodes {
		present[n] = true
	}

	indegree := make(map[*ir.Node]int, len(nodes))
	adj := make(map[*ir.Node][]*ir.Node, len(nodes))
	seenEdge := map[edge]bool{}

	addEdge := func(from, to *ir.Node) {
		if from == nil || to == nil || from == to {
			return
		}
		if !present[from] || !present[to] {
			return
		}
		e := edge{from, to}
		if seenEdge[e] {
			return
		}
		seenEdge[e] = true
		adj[from] = append(adj[from], to)
		indegree[to]++
	}

	for _, n := range nodes {
		for _, l := range n.Links {
			if l == nil {
				continue
			}
			defNode := l.Def.Node
			undefNode := l.Undef.Node
			addEdge(defNode, undefNode)
			for _, r := range l.Reads {
				addEdge(defNode, r.Node)
				addEdge(r.Node, undefNode)
			}
		}
	}

	queue := make([]*ir.Node, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	// Two ready nodes with no edge between them are tie-broken by the
	// user-supplied auxiliary order, then by arena index (spec.md §4.4:
	// "their user-supplied auxiliary_order decides").
	pop := func() *ir.Node {
		best := 0
		for i := 1; i < len(queue); i++ {
			a, b := queue[i], queue[best]
			if a.AuxOrder < b.AuxOrder || (a.AuxOrder == b.AuxOrder && a.Index < b.Index) {
				best = i
			}
		}
		n := queue[best]
		queue = append(queue[:best], queue[best+1:]...)
		return n
	}

	order := make([]*ir.Node, 0, len(nodes))
	for len(queue) > 0 {
		n := pop()
		order = append(order, n)
		for _, to := range adj[n] {
			indegree[to]--
			if indegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	for _, n := range nodes {
		if indegree[n] > 0 {
			return nil, newRenderGraphException("topo sort: cycle through node index %d (kind %s)", n.Index, n.Kind)
		}
	}

	scheduled := make([]*ScheduledItem, 0, len(order))
	for _, n := range order {
		if !isSchedulableKind(n.Kind) {
			continue
		}
		scheduled = append(scheduled, &ScheduledItem{Node: n, Domain: vktypes.DomainDevice})
	}
	return scheduled, nil
}

// isSchedulableKind reports whether a node kind is emitted into a command
// buffer, as opposed to existing purely to carry dependency edges.
func isSchedulableKind(k ir.NodeKind) bool {
	switch k {
	case ir.Placeholder, ir.Constant, ir.Construct, ir.Slice, ir.Garbage, ir.Nop, ir.Splice, ir.Import:
		return false
	default:
		return true
	}
}
