// Package ir implements the IR module (C5): Type interning, the node
// arena, def/use/undef chain links, and the builder methods applications
// use to construct a render graph.
//
// Grounded on original_source/include/vuk/ir/IR.hpp's Type/Node/ChainLink
// triad, translated from a C++ tagged union + shared_ptr graph into Go's
// idiom of a kind enum plus a small set of payload structs, and
// []*Node/[]*Type arenas instead of plf::colony.
package ir

import (
	"fmt"

	"github.com/andewx/vukgo/pkg/vktypes"
)

// TypeKind discriminates the Type union (spec.md §3.1).
type TypeKind uint8

const (
	VoidTy TypeKind = iota
	MemoryTy
	IntegerTy
	FloatTy
	PointerTy
	CompositeTy
	ArrayTy
	UnionTy
	ImbuedTy
	AliasedTy
	OpaqueFnTy
	ShaderFnTy
	EnumTy
	EnumValueTy
	ImageTy
	OpaqueTy
)

func (k TypeKind) String() string {
	names := [...]string{
		"void", "memory", "integer", "float", "pointer", "composite", "array",
		"union", "imbued", "aliased", "opaque_fn", "shader_fn", "enum",
		"enum_value", "image", "opaque",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Type is a tagged, interned record describing the shape of a value
// flowing on an IR edge. Types are deduplicated by structural hash within
// a module (spec.md §3.1 invariant: "equal types have equal addresses").
type Type struct {
	Kind TypeKind
	Size uint64
	Name string

	// Scalar
	Width uint32

	// Pointer / Imbued / Aliased / Array element type
	Elem *Type

	// Imbued
	Access vktypes.Access

	// Aliased
	RefIndex int

	// Array
	Count  uint64
	Stride uint64

	// Composite / Union
	Fields      []*Type
	Offsets     []uint64
	MemberNames []string
	Tag         uint64

	// Enum / EnumValue
	EnumTag   uint64
	EnumType  *Type
	EnumValue uint64

	// Opaque
	OpaqueTag uint64

	// Callables
	Args        []*Type
	Returns     []*Type
	ExecuteOn   vktypes.Domain
	HashCode    uint64 // OpaqueFn: caller-supplied identity
	ShaderWords []uint32

	hash vktypes.Hash
}

// Hash returns the interned structural hash, computed once at
// construction time and cached (original_source's Type::hash, computed
// lazily; here it is computed once since Go values are immutable after
// intern()).
func (t *Type) Hash() vktypes.Hash { return t.hash }

// Stripped peels Imbued/Aliased qualifiers to reach the underlying type,
// matching Type::stripped.
func Stripped(t *Type) *Type {
	switch t.Kind {
	case ImbuedTy, AliasedTy:
		return Stripped(t.Elem)
	default:
		return t
	}
}

// IsBufferlikeView reports whether t is a {pointer, u64} pair, the shape
// used for buffer-like device views (Type::is_bufferlike_view).
func (t *Type) IsBufferlikeView() bool {
	return t.Kind == CompositeTy && len(t.Fields) == 2 &&
		t.Fields[0].Kind == PointerTy && t.Fields[1].Kind == IntegerTy && t.Fields[1].Width == 64
}

// IsImageView reports whether t is a pointer to an enum-valued handle,
// the shape used for image view handles (Type::is_imageview).
func (t *Type) IsImageView() bool {
	return t.Kind == PointerTy && t.Elem != nil && t.Elem.Kind == EnumValueTy
}

func (t *Type) String() string {
	switch t.Kind {
	case VoidTy:
		return "void"
	case ImbuedTy:
		return fmt.Sprintf("%s:%d", t.Elem, t.Access)
	case AliasedTy:
		return fmt.Sprintf("%s@%d", t.Elem, t.RefIndex)
	case MemoryTy:
		return "mem"
	case IntegerTy:
		if t.Width == 32 {
			return "i32"
		}
		return "i64"
	case FloatTy:
		if t.Width == 32 {
			return "f32"
		}
		return "f64"
	case ArrayTy:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Count)
	case CompositeTy:
		if t.Name != "" {
			return t.Name
		}
		return fmt.Sprintf("composite:%d", t.Tag)
	case UnionTy:
		if t.Name != "" {
			return t.Name
		}
		return fmt.Sprintf("union:%d", t.Tag)
	case PointerTy:
		return t.Elem.String() + "*"
	case ImageTy:
		return "image"
	case OpaqueTy:
		return fmt.Sprintf("opaque:%d", t.OpaqueTag)
	case OpaqueFnTy:
		return "ofn"
	case ShaderFnTy:
		return "sfn"
	default:
		return "?"
	}
}

// hashOf computes a structural hash over t, recursing into child types —
// the Go equivalent of Type::hash(Type const*) (spec.md §3.1's "canonical
// 32-bit hash combining kind + child-type hashes").
func hashOf(t *Type) vktypes.Hash {
	h := vktypes.Hash(t.Kind)
	switch t.Kind {
	case VoidTy:
		return h
	case MemoryTy:
		return vktypes.Combine(h, t.Size)
	case IntegerTy, FloatTy:
		return vktypes.Combine(h, uint64(t.Width))
	case PointerTy, ImageTy:
		return vktypes.Combine(h, uint64(hashOf(t.Elem)))
	case ArrayTy:
		return vktypes.Combine(h, uint64(hashOf(t.Elem)), t.Count, t.Stride)
	case CompositeTy, UnionTy:
		for _, f := range t.Fields {
			h = vktypes.Combine(h, uint64(hashOf(f)))
		}
		return vktypes.Combine(h, t.Tag)
	case ImbuedTy:
		return vktypes.Combine(h, uint64(hashOf(t.Elem)), uint64(t.Access))
	case AliasedTy:
		return vktypes.Combine(h, uint64(hashOf(t.Elem)), uint64(t.RefIndex))
	case OpaqueFnTy:
		return vktypes.Combine(h, t.HashCode)
	case ShaderFnTy:
		h = vktypes.CombineBytes(h, uint32sToBytes(t.ShaderWords))
		return h
	case EnumTy:
		return vktypes.Combine(h, t.EnumTag)
	case EnumValueTy:
		return vktypes.Combine(h, uint64(hashOf(t.EnumType)), t.EnumValue)
	case OpaqueTy:
		return vktypes.Combine(h, t.OpaqueTag)
	default:
		return h
	}
}

func uint32sToBytes(ws []uint32) []byte {
	b := make([]byte, len(ws)*4)
	for i, w := range ws {
		b[i*4] = byte(w)
		b[i*4+1] = byte(w >> 8)
		b[i*4+2] = byte(w >> 16)
		b[i*4+3] = byte(w >> 24)
	}
	return b
}
