package ir

import "sync/atomic"

// ExtNode is a reference-counted holder keeping a Node alive outside the
// module arena (spec.md §3.5). held = true marks the node uncollectible;
// deps keep transitively required producer ExtNodes alive alongside it.
type ExtNode struct {
	refs int32
	node *Node
	deps []*ExtNode
}

// NewExtNode wraps n with a starting refcount of 1 and marks it held.
func NewExtNode(n *Node, deps ...*ExtNode) *ExtNode {
	n.Held = true
	return &ExtNode{refs: 1, node: n, deps: deps}
}

// Node returns the wrapped node.
func (e *ExtNode) Node() *Node { return e.node }

// Retain increments the refcount and returns e, for callers that want to
// hand out another owning reference (e.g. Value.Clone).
func (e *ExtNode) Retain() *ExtNode {
	atomic.AddInt32(&e.refs, 1)
	return e
}

// Release decrements the refcount; at zero it un-holds the node (and
// recursively releases its deps) so a later CollectGarbage can reclaim it
// — spec.md §5's "A Value whose ExtNode use-count drops to 1 without ever
// being submitted decays silently on compile" describes the same
// mechanism from the compiler's perspective.
func (e *ExtNode) Release() {
	if atomic.AddInt32(&e.refs, -1) > 0 {
		return
	}
	e.node.Held = false
	for _, d := range e.deps {
		d.Release()
	}
}

// RefCount reports the current reference count, mainly for tests.
func (e *ExtNode) RefCount() int32 { return atomic.LoadInt32(&e.refs) }

// Value wraps (ExtNode, result_index), the typed handle application code
// builds IR through (spec.md §3.5/§4.5). T is a phantom type parameter —
// Go generics give us the same compile-time typing the source's
// Value<T> template does, without needing a second untyped base class.
type Value[T any] struct {
	ext   *ExtNode
	index int
}

// NewValue wraps ext's result at index as a Value[T].
func NewValue[T any](ext *ExtNode, index int) Value[T] {
	return Value[T]{ext: ext, index: index}
}

// Ref returns the underlying (node, result_index) pair.
func (v Value[T]) Ref() Ref { return Ref{Node: v.ext.node, Index: v.index} }

// ExtNode returns the owning ExtNode.
func (v Value[T]) ExtNode() *ExtNode { return v.ext }

// Release drops this Value's ownership reference.
func (v Value[T]) Release() { v.ext.Release() }

// mutateConstructArg rewrites the index'th arg of v's CONSTRUCT node,
// shared by the same_*_as/similar_to family below (spec.md §4.5: "each
// rewrites the underlying CONSTRUCT's arg at the corresponding index").
func mutateConstructArg[T any](m *IRModule, v Value[T], argIndex int, value Ref) {
	_ = m.SetValue(v.ext.node, argIndex, value)
}

// Image-specific field indices into an ImageAttachment CONSTRUCT's args,
// matching the field order pkg/resource.ImageAttachment documents.
const (
	imgFieldExtent      = 0
	imgFieldFormat      = 1
	imgFieldSampleCount = 2
	imgFieldLayers      = 3
	imgFieldLevels      = 4
)

// Exported mirrors of the field-index constants above, for pkg/compiler's
// reify-inference pass (spec.md §4.4 pass 5), which needs to address the
// same CONSTRUCT arg slots without pkg/ir importing pkg/resource.
const (
	ImageFieldExtent      = imgFieldExtent
	ImageFieldFormat      = imgFieldFormat
	ImageFieldSampleCount = imgFieldSampleCount
	ImageFieldLayers      = imgFieldLayers
	ImageFieldLevels      = imgFieldLevels

	// BufferFieldSize is the sole inferable field on a buffer-like
	// CONSTRUCT (see SameSize/SetSize below, which both mutate arg 0).
	BufferFieldSize = 0
)

// IsImageType reports whether t is the builtin image Type (or a Type with
// ImageTy kind interned equal to it), used by reify inference to decide
// which CONSTRUCT nodes carry ImageAttachment-shaped args.
func IsImageType(t *Type) bool { return t != nil && t.Kind == ImageTy }

// IsBufferLikeType reports whether t is the builtin buffer-like composite
// Type (Tag 1, see NewIRModule), as opposed to sampled_image (Tag 2) or an
// application-defined composite.
func IsBufferLikeType(t *Type) bool {
	return t != nil && t.Kind == CompositeTy && t.Tag == 1
}

// SameExtentAs rewrites this image Value's extent field to reference
// other's extent (spec.md §4.5 Value<ImageAttachment>::same_extent_as).
func SameExtentAs(m *IRModule, v Value[ImageRef], other Value[ImageRef]) {
	mutateConstructArg(m, v, imgFieldExtent, m.MakeGetAllocationSize(other.Ref(), m.IntegerType(32)).Ref0())
}

// SameFormatAs rewrites this image Value's format field to reference
// other's format.
func SameFormatAs(m *IRModule, v Value[ImageRef], other Value[ImageRef]) {
	mutateConstructArg(m, v, imgFieldFormat, m.MakeGetCI(other.Ref(), m.IntegerType(32)).Ref0())
}

// SameShapeAs rewrites extent, format and sample count together.
func SameShapeAs(m *IRModule, v Value[ImageRef], other Value[ImageRef]) {
	SameExtentAs(m, v, other)
	SameFormatAs(m, v, other)
	mutateConstructArg(m, v, imgFieldSampleCount, m.MakeGetCI(other.Ref(), m.IntegerType(32)).Ref0())
}

// SimilarTo rewrites every shape-determining field (extent, format,
// sample count, layers, levels) to reference other — the union of
// SameShapeAs plus layer/level count.
func SimilarTo(m *IRModule, v Value[ImageRef], other Value[ImageRef]) {
	SameShapeAs(m, v, other)
	mutateConstructArg(m, v, imgFieldLayers, m.MakeGetCI(other.Ref(), m.IntegerType(32)).Ref0())
	mutateConstructArg(m, v, imgFieldLevels, m.MakeGetCI(other.Ref(), m.IntegerType(32)).Ref0())
}

// ImageRef is the phantom type parameter for Value[ImageRef], mirroring
// Value<ImageAttachment> without pkg/ir importing pkg/resource (which
// would cycle back through pkg/alloc -> pkg/ir in a full build).
type ImageRef struct{}

// BufferRef is the phantom type parameter for Value[BufferRef].
type BufferRef struct{}

// Named slice axes, matching original_source's Node::NamedAxis.
const (
	AxisMip     uint8 = 253
	AxisLayer   uint8 = 252
	AxisField   uint8 = 254
	AxisComponent uint8 = 251
)

// Mip returns a Value sliced to mip level n (spec.md §4.5
// Value<ImageAttachment>::mip(n)).
func Mip(m *IRModule, v Value[ImageRef], n uint32) Value[ImageRef] {
	start := m.MakeConstant(m.IntegerType(32), n)
	count := m.MakeConstant(m.IntegerType(32), uint32(1))
	sl := m.MakeSlice(v.Ref(), start.Ref0(), count.Ref0(), AxisMip)
	return NewValue[ImageRef](NewExtNode(sl, v.ExtNode()), 0)
}

// Layer returns a Value sliced to array layer n.
func Layer(m *IRModule, v Value[ImageRef], n uint32) Value[ImageRef] {
	start := m.MakeConstant(m.IntegerType(32), n)
	count := m.MakeConstant(m.IntegerType(32), uint32(1))
	sl := m.MakeSlice(v.Ref(), start.Ref0(), count.Ref0(), AxisLayer)
	return NewValue[ImageRef](NewExtNode(sl, v.ExtNode()), 0)
}

// SameSize rewrites this buffer Value's size field to reference other's
// size (spec.md §4.5 Value<Buffer>::same_size).
func SameSize(m *IRModule, v Value[BufferRef], other Value[BufferRef]) {
	mutateConstructArg(m, v, 0, m.MakeGetAllocationSize(other.Ref(), m.IntegerType(64)).Ref0())
}

// GetSize returns a Value wrapping a GET_ALLOCATION_SIZE node over v.
func GetSize(m *IRModule, v Value[BufferRef]) Value[uint64] {
	n := m.MakeGetAllocationSize(v.Ref(), m.IntegerType(64))
	return NewValue[uint64](NewExtNode(n, v.ExtNode()), 0)
}

// SetSize rewrites this buffer Value's size field to a constant.
func SetSize(m *IRModule, v Value[BufferRef], size uint64) {
	c := m.MakeConstant(m.IntegerType(64), size)
	mutateConstructArg(m, v, 0, c.Ref0())
}

// Index returns a Value for the i'th element of an array-typed Value
// (spec.md §4.5's Value<T[]>::operator[]), expressed as a 1-wide SLICE
// starting at i.
func Index[T any](m *IRModule, v Value[T], i int) Value[T] {
	idx := m.MakeConstant(m.IntegerType(64), uint64(i))
	one := m.MakeConstant(m.IntegerType(64), uint64(1))
	n := m.MakeSlice(v.Ref(), idx.Ref0(), one.Ref0(), 0)
	return NewValue[T](NewExtNode(n, v.ExtNode()), 0)
}
