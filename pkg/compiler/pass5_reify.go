package compiler

import (
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/vktypes"
)

// passReifyInference is pass 5 (spec.md §4.4): replace PLACEHOLDER args of
// an image/buffer CONSTRUCT with a reference to an already-known value, in
// two ways:
//
//  1. Chain-ancestor inference: a CONSTRUCT that sits downstream of an
//     earlier write to the same subrange (its own link has a Prev) inherits
//     any field still unresolved from that earlier write's CONSTRUCT.
//  2. Framebuffer-attachment inference: image args a CALL imbues with a
//     framebuffer-attachment Access (spec.md §3.4 IsFramebufferAttachment)
//     share one extent/sample-count/layer-count across the whole group,
//     including an ACQUIRE_NEXT_IMAGE argument, which is always already
//     resolved at compile time (its extent comes from the live swapchain).
//
// Both rules run to a fixpoint (bounded by len(nodes)+1 sweeps, since
// each successful rewrite strictly reduces the remaining PLACEHOLDER
// count) — grounded on original_source/src/IRPasses.cpp's reify_inference
// "propagating until a fixed point" description.
func passReifyInference(m *ir.IRModule, nodes []*ir.Node) error {
	imageFields := []int{ir.ImageFieldExtent, ir.ImageFieldFormat, ir.ImageFieldSampleCount, ir.ImageFieldLayers, ir.ImageFieldLevels}

	for iter := 0; iter <= len(nodes); iter++ {
		changed := false

		// Rule 1: chain-ancestor inference.
		for _, n := range nodes {
			if n.Kind != ir.Construct {
				continue
			}
			cp, ok := n.Payload.(ir.ConstructPayload)
			if !ok || len(n.Links) == 0 {
				continue
			}
			link := n.Links[0]
			if link.Prev == nil || !link.Prev.Def.IsValid() {
				continue
			}
			ancestor := link.Prev.Def.Node
			if ancestor == nil || ancestor.Kind != ir.Construct {
				continue
			}
			ap, ok := ancestor.Payload.(ir.ConstructPayload)
			if !ok {
				continue
			}
			fields := fieldsFor(n.ResultTypes, cp.Args)
			for _, idx := range fields {
				if idx >= len(cp.Args) || idx >= len(ap.Args) {
					continue
				}
				if cp.Args[idx].Node == nil || cp.Args[idx].Node.Kind != ir.Placeholder {
					continue
				}
				if ap.Args[idx].Node == nil || ap.Args[idx].Node.Kind == ir.Placeholder {
					continue
				}
				if err := m.SetValue(n, idx, ap.Args[idx]); err != nil {
					return newRenderGraphException("reify: %v", err)
				}
				cp = n.Payload.(ir.ConstructPayload)
				changed = true
			}
		}

		// Rule 2: framebuffer-attachment group inference.
		for _, n := range nodes {
			cp, ok := n.Payload.(ir.CallPayload)
			if !ok {
				continue
			}
			group := make([]ir.Ref, 0, len(cp.Args))
			for i, a := range cp.Args {
				if i < len(cp.ImbuedTags) && vktypes.IsFramebufferAttachment(cp.ImbuedTags[i]) {
					group = append(group, a)
				}
			}
			if len(group) < 2 {
				continue
			}
			for _, idx := range imageFields {
				if propagateFieldAcrossGroup(m, group, idx) {
					changed = true
				}
			}
		}

		if !changed {
			break
		}
	}
	return nil
}

// fieldsFor reports which field-index set applies to a CONSTRUCT's result
// type: image fields for the builtin image type, the single size field for
// the builtin buffer-like type, or none for anything else (application
// composites are not subject to reify inference).
func fieldsFor(resultTypes []*ir.Type, args []ir.Ref) []int {
	if len(resultTypes) == 0 {
		return nil
	}
	switch {
	case ir.IsImageType(resultTypes[0]):
		return []int{ir.ImageFieldExtent, ir.ImageFieldFormat, ir.ImageFieldSampleCount, ir.ImageFieldLayers, ir.ImageFieldLevels}
	case ir.IsBufferLikeType(resultTypes[0]):
		return []int{ir.BufferFieldSize}
	default:
		return nil
	}
}

// propagateFieldAcrossGroup finds a resolved value for field idx among
// group's image-typed members (a CONSTRUCT with a non-PLACEHOLDER arg at
// idx, or any non-CONSTRUCT node such as ACQUIRE_NEXT_IMAGE — those are
// always resolved) and rewrites every other member's PLACEHOLDER at idx to
// reference it via GET_CI, the same rewiring Value[ImageRef]'s
// SameExtentAs/SameFormatAs family uses at IR-build time.
func propagateFieldAcrossGroup(m *ir.IRModule, group []ir.Ref, idx int) bool {
	var known ir.Ref
	for _, r := range group {
		if r.Node == nil {
			continue
		}
		if r.Node.Kind != ir.Construct {
			known = r
			break
		}
		cp, ok := r.Node.Payload.(ir.ConstructPayload)
		if !ok || idx >= len(cp.Args) {
			continue
		}
		if cp.Args[idx].Node != nil && cp.Args[idx].Node.Kind != ir.Placeholder {
			known = r
			break
		}
	}
	if known.Node == nil {
		return false
	}

	changed := false
	for _, r := range group {
		if r.Node == nil || r.Node == known.Node || r.Node.Kind != ir.Construct {
			continue
		}
		cp, ok := r.Node.Payload.(ir.ConstructPayload)
		if !ok || idx >= len(cp.Args) {
			continue
		}
		if cp.Args[idx].Node != nil && cp.Args[idx].Node.Kind != ir.Placeholder {
			continue
		}
		fieldType := cp.Args[idx].Type()
		if fieldType == nil {
			fieldType = m.IntegerType(32)
		}
		ciNode := m.MakeGetCI(known, fieldType)
		if err := m.SetValue(r.Node, idx, ciNode.Ref0()); err != nil {
			continue
		}
		changed = true
	}
	return changed
}
