package ir

import "github.com/andewx/vukgo/pkg/vktypes"

// NodeKind discriminates the Node union (spec.md §3.2). SPLICE and NOP
// from the source's kind list are folded into the compiler's bridge
// elimination pass (pkg/compiler) rather than kept as first-class IR
// builder entry points, since nothing in this module ever constructs one
// directly — they only ever appear as a rewrite target.
type NodeKind uint8

const (
	Placeholder NodeKind = iota
	Constant
	Construct
	Slice
	Converge
	Import
	Call
	Clear
	Acquire
	Release
	AcquireNextImage
	Use
	LogicalCopy
	Set
	Cast
	MathBinary
	CompilePipeline
	Allocate
	GetAllocationSize
	GetCI
	Splice
	Garbage
	Nop
)

func (k NodeKind) String() string {
	names := [...]string{
		"PLACEHOLDER", "CONSTANT", "CONSTRUCT", "SLICE", "CONVERGE", "IMPORT",
		"CALL", "CLEAR", "ACQUIRE", "RELEASE", "ACQUIRE_NEXT_IMAGE", "USE",
		"LOGICAL_COPY", "SET", "CAST", "MATH_BINARY", "COMPILE_PIPELINE",
		"ALLOCATE", "GET_ALLOCATION_SIZE", "GET_CI", "SPLICE", "GARBAGE", "NOP",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "UNKNOWN"
}

// BinOp is Node::BinOp for MATH_BINARY nodes.
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
)

// Ref addresses a single result slot of a Node — (node, result index),
// spec.md §3.2's "Ref = (node*, result_index)".
type Ref struct {
	Node  *Node
	Index int
}

// IsValid reports whether r addresses a real node.
func (r Ref) IsValid() bool { return r.Node != nil }

// Type returns the Type of the referenced result slot.
func (r Ref) Type() *Type {
	if r.Node == nil || r.Index >= len(r.Node.ResultTypes) {
		return nil
	}
	return r.Node.ResultTypes[r.Index]
}

// Link returns the ChainLink for the referenced result slot.
func (r Ref) Link() *ChainLink {
	if r.Node == nil || r.Index >= len(r.Node.Links) {
		return nil
	}
	return r.Node.Links[r.Index]
}

// DebugInfo carries result names and a build-time source location trace,
// spec.md §3.2's optional debug info.
type DebugInfo struct {
	ResultNames []string
	Trace       []string
}

// SchedulingInfo holds the domain set a node is restricted to run on
// before queue inference (pass 8) assigns a concrete queue.
type SchedulingInfo struct {
	RequiredDomains uint32
}

// Payload kinds — one struct per Node kind that needs operands beyond the
// generic Args slice. Unlike the source's anonymous union members, these
// are ordinary Go structs referenced through Node's single Payload field
// via a type switch, since Go has no tagged unions.

type ConstantPayload struct {
	Value any
	Owned bool
}

type ConstructPayload struct {
	Args []Ref
}

type SlicePayload struct {
	Src   Ref
	Start Ref
	Count Ref
	Axis  uint8
}

type ConvergePayload struct {
	Base     Ref
	Diverged []Ref
	Write    []bool
}

type ImportPayload struct {
	Value any
}

type CallPayload struct {
	Args       []Ref
	ImbuedTags []vktypes.Access
	Callback   func(cb CommandBufferStub, args []any) []any
	Domain     uint32
}

type ClearPayload struct {
	Dst   Ref
	Value any
}

type AcquirePayload struct {
	Values []any
}

type ReleasePayload struct {
	Src       []Ref
	DstAccess vktypes.Access
	DstDomain uint32
}

type AcquireNextImagePayload struct {
	Swapchain Ref
}

type UsePayload struct {
	Src    Ref
	Access vktypes.Access
}

type LogicalCopyPayload struct {
	Src Ref
	Dst Ref
}

type SetPayload struct {
	Target Ref
	Index  int
	Value  Ref
}

type CastPayload struct {
	Src Ref
}

type MathBinaryPayload struct {
	A, B Ref
	Op   BinOp
}

type CompilePipelinePayload struct {
	Info any
}

type AllocatePayload struct {
	Info any
}

type GetAllocationSizePayload struct {
	Src Ref
}

type GetCIPayload struct {
	Src Ref
}

// CommandBufferStub is the minimal hook CALL callbacks close over; the
// real recording surface lives in pkg/gfx and is supplied by the runtime
// at execution time. It is declared here only so CallPayload's callback
// signature can be expressed without pkg/ir importing pkg/gfx (which
// itself will depend on pkg/ir's Ref/Type — importing back would cycle).
type CommandBufferStub interface {
	Record(name string, args []any)
}

// Node is an arena-allocated, kind-discriminated record (spec.md §3.2).
// MAX_ARGS-inline-vs-heap from the source collapses to a plain Go slice:
// append already small-buffer-optimizes nothing, but the distinction
// mattered for cache-line packing in C++ and has no equivalent payoff in
// a garbage-collected runtime.
type Node struct {
	Kind        NodeKind
	Flag        uint8
	ResultTypes []*Type
	Debug       *DebugInfo
	Scheduling  *SchedulingInfo
	Links       []*ChainLink
	RelAcq      *AcquireRelease
	Index       uint64
	Held        bool
	ComputeClass uint32

	// AuxOrder breaks scheduling ties between two otherwise-unordered
	// nodes (spec.md §4.4: "their user-supplied auxiliary_order decides").
	// Zero for every node that never calls SetAuxiliaryOrder.
	AuxOrder uint32

	Payload any
}

// SetAuxiliaryOrder sets the user-supplied scheduling tie-break order.
func (n *Node) SetAuxiliaryOrder(order uint32) { n.AuxOrder = order }

// newNode allocates a Node with nresults result slots and a matching
// Links slice, used by every Make* builder in module.go.
func newNode(kind NodeKind, types []*Type) *Node {
	n := &Node{Kind: kind, ResultTypes: types, Links: make([]*ChainLink, len(types))}
	for i := range n.Links {
		n.Links[i] = &ChainLink{Def: Ref{Node: n, Index: i}}
	}
	return n
}

// Ref0 is shorthand for the node's first (and typically only) result Ref.
func (n *Node) Ref0() Ref { return Ref{Node: n, Index: 0} }
