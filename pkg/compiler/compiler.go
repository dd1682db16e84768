package compiler

import (
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// ScheduledItem is one vertex of the intra-queue schedule (pass 7):
// a node selected for emission into a command buffer, plus the queue
// domain queue inference (pass 8) assigns it.
type ScheduledItem struct {
	Node   *ir.Node
	Domain vktypes.Domain
}

// Compiler runs the ten-pass pipeline over a module's reachable subgraph
// and holds each pass's output for the next (spec.md §4.4).
type Compiler struct {
	Module *ir.IRModule

	nodes     []*ir.Node
	chains    []*ir.ChainLink
	scheduled []*ScheduledItem

	// Partition spans into scheduled, set by pass 9.
	TransferSpan [2]int
	ComputeSpan  [2]int
	GraphicsSpan [2]int
}

// NewCompiler constructs a Compiler bound to m.
func NewCompiler(m *ir.IRModule) *Compiler {
	return &Compiler{Module: m}
}

// Nodes returns pass 2's BFS-collected node set.
func (c *Compiler) Nodes() []*ir.Node { return c.nodes }

// Chains returns pass 6's collected chain heads.
func (c *Compiler) Chains() []*ir.ChainLink { return c.chains }

// Scheduled returns pass 7/8/9's final ordered, domain-assigned,
// queue-partitioned schedule.
func (c *Compiler) Scheduled() []*ScheduledItem { return c.scheduled }

// Compile runs all ten passes over roots (spec.md §4.4). It does not
// retain nodes between compilations (spec.md §3.6): each call starts a
// fresh pass-state though the underlying IRModule arena persists across
// calls until CollectGarbage is invoked by the caller.
func (c *Compiler) Compile(roots []*ir.ExtNode) error {
	rootNodes := make([]*ir.Node, len(roots))
	for i, r := range roots {
		rootNodes[i] = r.Node()
	}

	if err := passImplicitConvergence(c.Module, rootNodes); err != nil {
		return err
	}

	nodes, err := passBuildNodes(rootNodes)
	if err != nil {
		return err
	}
	c.nodes = nodes

	c.nodes = passBridgeElimination(c.nodes)

	if err := passBuildLinks(c.nodes); err != nil {
		return err
	}

	if err := passReifyInference(c.Module, c.nodes); err != nil {
		return err
	}

	c.chains = ir.CollectChains(c.nodes)

	scheduled, err := passTopoSort(c.nodes)
	if err != nil {
		return err
	}

	passQueueInference(c.chains, scheduled)

	transfer, compute, graphics := passPartition(scheduled)
	c.scheduled = scheduled
	c.TransferSpan = transfer
	c.ComputeSpan = compute
	c.GraphicsSpan = graphics

	if err := passSyncSynthesis(c.chains); err != nil {
		return err
	}

	return nil
}
