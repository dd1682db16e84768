package compiler

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/andewx/vukgo/pkg/ir"
)

// passBuildNodes is pass 2 (spec.md §4.4): BFS from every root, marking
// visited nodes and collecting them. Independent roots are traversed
// concurrently with golang.org/x/sync/errgroup before the collected set
// is merged, matching spec.md §5's note that "IR construction by
// different threads using different IRModules is safe" — here the roots
// share one module but traverse disjoint (or overlapping-but-idempotent)
// subgraphs, so concurrent BFS is safe behind the shared visited-set
// mutex below.
func passBuildNodes(roots []*ir.Node) ([]*ir.Node, error) {
	var mu sync.Mutex
	visited := map[*ir.Node]bool{}
	var collected []*ir.Node

	var g errgroup.Group
	for _, root := range roots {
		root := root
		g.Go(func() error {
			queue := []*ir.Node{root}
			var local []*ir.Node
			for len(queue) > 0 {
				n := queue[0]
				queue = queue[1:]

				mu.Lock()
				already := visited[n]
				if !already {
					visited[n] = true
				}
				mu.Unlock()
				if already {
					continue
				}

				local = append(local, n)
				for _, arg := range refsOf(n) {
					if arg.Node != nil {
						queue = append(queue, arg.Node)
					}
				}
			}
			mu.Lock()
			collected = append(collected, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return collected, nil
}

// refsOf returns every Ref a node's payload references, used to walk the
// dependency graph backward from a root to its producers.
func refsOf(n *ir.Node) []ir.Ref {
	switch p := n.Payload.(type) {
	case ir.ConstructPayload:
		return p.Args
	case ir.SlicePayload:
		return []ir.Ref{p.Src, p.Start, p.Count}
	case ir.ConvergePayload:
		return append([]ir.Ref{p.Base}, p.Diverged...)
	case ir.CallPayload:
		return p.Args
	case ir.ClearPayload:
		return []ir.Ref{p.Dst}
	case ir.ReleasePayload:
		return p.Src
	case ir.AcquireNextImagePayload:
		return []ir.Ref{p.Swapchain}
	case ir.UsePayload:
		return []ir.Ref{p.Src}
	case ir.LogicalCopyPayload:
		return []ir.Ref{p.Src, p.Dst}
	case ir.SetPayload:
		return []ir.Ref{p.Target, p.Value}
	case ir.CastPayload:
		return []ir.Ref{p.Src}
	case ir.MathBinaryPayload:
		return []ir.Ref{p.A, p.B}
	case ir.GetAllocationSizePayload:
		return []ir.Ref{p.Src}
	case ir.GetCIPayload:
		return []ir.Ref{p.Src}
	default:
		return nil
	}
}
