package exec

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/resource"
)

// eval resolves a Ref to its runtime value, memoized per Ref. Device-side
// producers (CALL, CLEAR, ALLOCATE, ACQUIRE_NEXT_IMAGE) are stored into
// the environment by recordNode as the schedule runs; everything evaluable
// on the host (constants, imports, constructs, slices, arithmetic) is
// computed here on demand.
func (g *ExecutableRenderGraph) eval(r ir.Ref) (any, error) {
	if v, ok := g.env[r]; ok {
		return v, nil
	}
	if r.Node == nil {
		return nil, errors.New("exec: eval of invalid Ref")
	}

	var v any
	var err error
	switch p := r.Node.Payload.(type) {
	case ir.ConstantPayload:
		v = p.Value
	case ir.ImportPayload:
		v = p.Value
	case ir.AcquirePayload:
		if r.Index < len(p.Values) {
			v = p.Values[r.Index]
		}
	case ir.ConstructPayload:
		v, err = g.evalConstruct(r.Node, p)
	case ir.SlicePayload:
		v, err = g.evalSlice(p)
	case ir.ConvergePayload:
		v, err = g.eval(p.Base)
	case ir.UsePayload:
		v, err = g.eval(p.Src)
	case ir.LogicalCopyPayload:
		v, err = g.eval(p.Src)
	case ir.CastPayload:
		v, err = g.eval(p.Src)
	case ir.SetPayload:
		v, err = g.eval(p.Target)
	case ir.MathBinaryPayload:
		v, err = g.evalMathBinary(p)
	case ir.GetAllocationSizePayload:
		v, err = g.evalAllocationSize(p.Src)
	case ir.GetCIPayload:
		// The creation-info carrier is the evaluated source itself;
		// consumers (evalConstruct field fill-in) project the field
		// their arg slot names.
		v, err = g.eval(p.Src)
	default:
		return nil, errors.Errorf("exec: node %s (index %d) has no value before it is recorded",
			r.Node.Kind, r.Node.Index)
	}
	if err != nil {
		return nil, err
	}
	g.env[r] = v
	return v, nil
}

// Result reads back the runtime value of r after Execute has run —
// Value::get's final step once the host wait completes.
func (g *ExecutableRenderGraph) Result(r ir.Ref) (any, error) { return g.eval(r) }

// argValue evaluates a CONSTRUCT arg, treating a still-unresolved
// PLACEHOLDER as absent rather than an error (the field stays Unknown).
func (g *ExecutableRenderGraph) argValue(r ir.Ref) (any, error) {
	if r.Node == nil || r.Node.Kind == ir.Placeholder {
		return nil, nil
	}
	return g.eval(r)
}

// evalConstruct materializes the initial value of a CONSTRUCT: an
// ImageAttachment or Buffer descriptor for the builtin types (fields
// filled from whichever args are resolved), or the plain arg values for
// application composites.
func (g *ExecutableRenderGraph) evalConstruct(n *ir.Node, p ir.ConstructPayload) (any, error) {
	if len(n.ResultTypes) == 0 {
		return nil, nil
	}
	switch {
	case ir.IsImageType(n.ResultTypes[0]):
		att := resource.Unknown2D()
		for idx, arg := range p.Args {
			v, err := g.argValue(arg)
			if err != nil {
				return nil, err
			}
			if v != nil {
				applyImageField(&att, idx, v)
			}
		}
		return &att, nil

	case ir.IsBufferLikeType(n.ResultTypes[0]):
		buf := resource.Unknown1D()
		for _, arg := range p.Args {
			v, err := g.argValue(arg)
			if err != nil {
				return nil, err
			}
			switch x := v.(type) {
			case uint64:
				buf.Size = vk.DeviceSize(x)
			case vk.DeviceSize:
				buf.Size = x
			case *resource.Buffer:
				buf.Size = x.Size
			}
		}
		return &buf, nil

	default:
		vals := make([]any, len(p.Args))
		for i, arg := range p.Args {
			v, err := g.argValue(arg)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return vals, nil
	}
}

// applyImageField fills one positional CONSTRUCT field of an image
// attachment. A source that is itself an attachment (the arg was a GET_CI
// or GET_ALLOCATION_SIZE over a sibling image, the same_*_as rewiring)
// contributes the matching field of that sibling.
func applyImageField(att *resource.ImageAttachment, idx int, v any) {
	if src, ok := v.(*resource.ImageAttachment); ok {
		switch idx {
		case ir.ImageFieldExtent:
			att.Extent = src.Extent
		case ir.ImageFieldFormat:
			att.Format = src.Format
		case ir.ImageFieldSampleCount:
			att.SampleCount = src.SampleCount
		case ir.ImageFieldLayers:
			att.Layers = src.Layers
		case ir.ImageFieldLevels:
			att.Levels = src.Levels
		}
		return
	}
	switch idx {
	case ir.ImageFieldExtent:
		switch e := v.(type) {
		case vk.Extent3D:
			att.Extent = e
		case vk.Extent2D:
			att.Extent = vk.Extent3D{Width: e.Width, Height: e.Height, Depth: 1}
		case uint32:
			att.Extent = vk.Extent3D{Width: e, Height: e, Depth: 1}
		}
	case ir.ImageFieldFormat:
		switch f := v.(type) {
		case vk.Format:
			att.Format = f
		case uint32:
			att.Format = vk.Format(f)
		}
	case ir.ImageFieldSampleCount:
		switch s := v.(type) {
		case vk.SampleCountFlagBits:
			att.SampleCount = s
		case uint32:
			att.SampleCount = vk.SampleCountFlagBits(s)
		}
	case ir.ImageFieldLayers:
		if l, ok := v.(uint32); ok {
			att.Layers = l
		}
	case ir.ImageFieldLevels:
		if l, ok := v.(uint32); ok {
			att.Levels = l
		}
	}
}

// evalSlice narrows an image attachment to the sliced mip/layer subrange.
// Non-image sources pass through whole: buffer slicing is expressed via
// Buffer.Offset/Size at CALL-argument level, not through SLICE nodes.
func (g *ExecutableRenderGraph) evalSlice(p ir.SlicePayload) (any, error) {
	src, err := g.eval(p.Src)
	if err != nil {
		return nil, err
	}
	att, ok := src.(*resource.ImageAttachment)
	if !ok {
		return src, nil
	}
	start, err := g.evalUint(p.Start)
	if err != nil {
		return nil, err
	}
	count, err := g.evalUint(p.Count)
	if err != nil {
		return nil, err
	}
	sub := *att
	switch p.Axis {
	case ir.AxisMip:
		sub.BaseLevel += uint32(start)
		sub.Levels = uint32(count)
	case ir.AxisLayer:
		sub.BaseLayer += uint32(start)
		sub.Layers = uint32(count)
	}
	return &sub, nil
}

func (g *ExecutableRenderGraph) evalAllocationSize(src ir.Ref) (any, error) {
	v, err := g.eval(src)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case *resource.Buffer:
		return uint64(x.Size), nil
	case *resource.ImageAttachment:
		// For images the "allocation size" reference carries the whole
		// attachment so construct-field fill-in can project extent.
		return x, nil
	default:
		return v, nil
	}
}

func (g *ExecutableRenderGraph) evalMathBinary(p ir.MathBinaryPayload) (any, error) {
	av, err := g.evalUint(p.A)
	if err != nil {
		return nil, err
	}
	bv, err := g.evalUint(p.B)
	if err != nil {
		return nil, err
	}
	switch p.Op {
	case ir.Add:
		return av + bv, nil
	case ir.Sub:
		return av - bv, nil
	case ir.Mul:
		return av * bv, nil
	case ir.Div:
		if bv == 0 {
			return nil, errors.New("exec: MATH_BINARY division by zero")
		}
		return av / bv, nil
	case ir.Mod:
		if bv == 0 {
			return nil, errors.New("exec: MATH_BINARY modulo by zero")
		}
		return av % bv, nil
	default:
		return nil, errors.Errorf("exec: unknown binary op %d", p.Op)
	}
}

// evalUint coerces an evaluated scalar to uint64.
func (g *ExecutableRenderGraph) evalUint(r ir.Ref) (uint64, error) {
	v, err := g.eval(r)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case uint64:
		return x, nil
	case uint32:
		return uint64(x), nil
	case int:
		return uint64(x), nil
	case int64:
		return uint64(x), nil
	case int32:
		return uint64(x), nil
	case vk.DeviceSize:
		return uint64(x), nil
	default:
		return 0, errors.Errorf("exec: expected integer value, got %T", v)
	}
}
