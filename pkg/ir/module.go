package ir

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/andewx/vukgo/pkg/vktypes"
)

// Builtin opaque tags, matching original_source's Type::Tags enum
// (TAG_IMAGE = 3, TAG_SWAPCHAIN = 4).
const (
	tagImage     = 3
	tagSwapchain = 4
)

// moduleCounter assigns each IRModule a distinct id, stamped into the top
// bits of every node index it allocates (spec.md §3.2: "a monotonic
// per-module index, top 32 bits = module id").
var moduleCounter uint32

// IRModule owns a node arena and a type intern table. Nodes live in a
// stable-address colony in the source (plf::colony); here a []*Node arena
// gives the same pointer stability without unsafe code, since Go never
// moves the pointee of an existing pointer (DESIGN.md Open Question
// decision 1).
type IRModule struct {
	id uint32

	mu        sync.Mutex
	nodes     []*Node
	nextIndex uint32

	types map[vktypes.Hash][]*Type

	// Builtins preallocated on construction (spec.md §3.1).
	Image        *Type
	BufferLike   *Type
	Swapchain    *Type
	Sampler      *Type
	SampledImage *Type
}

// NewIRModule constructs a fresh module with its builtin types
// preallocated.
func NewIRModule() *IRModule {
	id := atomic.AddUint32(&moduleCounter, 1)
	m := &IRModule{id: id, types: make(map[vktypes.Hash][]*Type)}

	m.Image = m.intern(&Type{Kind: ImageTy, Elem: m.intern(&Type{Kind: OpaqueTy, OpaqueTag: tagImage})})
	m.BufferLike = m.intern(&Type{
		Kind: CompositeTy,
		Tag:  1,
		Name: "buffer",
		Fields: []*Type{
			m.intern(&Type{Kind: PointerTy, Elem: m.intern(&Type{Kind: MemoryTy})}),
			m.intern(&Type{Kind: IntegerTy, Width: 64}),
		},
	})
	m.Swapchain = m.intern(&Type{Kind: OpaqueTy, OpaqueTag: tagSwapchain, Name: "swapchain"})
	m.Sampler = m.intern(&Type{Kind: OpaqueTy, OpaqueTag: 5, Name: "sampler"})
	m.SampledImage = m.intern(&Type{
		Kind: CompositeTy,
		Tag:  2,
		Name: "sampled_image",
		Fields: []*Type{m.Image, m.Sampler},
	})
	return m
}

// ID returns the module's stamped id (top bits of every node index).
func (m *IRModule) ID() uint32 { return m.id }

// Nodes returns the current arena contents. Callers must not retain the
// slice across a CollectGarbage call.
func (m *IRModule) Nodes() []*Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Node, len(m.nodes))
	copy(out, m.nodes)
	return out
}

// intern deduplicates t against the module's type table by structural
// hash, recursing into child types first (spec.md §4.3: "child types are
// unified recursively before the parent"). Child type fields (Elem,
// Fields, Args, Returns, EnumType) must already be interned by the time
// intern is called on their parent — every NewXxxType helper below
// enforces this by calling intern on children before constructing the
// parent literal.
func (m *IRModule) intern(t *Type) *Type {
	t.hash = hashOf(t)
	bucket := m.types[t.hash]
	for _, existing := range bucket {
		if typesEqual(existing, t) {
			return existing
		}
	}
	m.types[t.hash] = append(bucket, t)
	return t
}

func typesEqual(a, b *Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case VoidTy:
		return true
	case MemoryTy:
		return a.Size == b.Size
	case IntegerTy, FloatTy:
		return a.Width == b.Width
	case PointerTy, ImageTy:
		return a.Elem == b.Elem
	case ArrayTy:
		return a.Elem == b.Elem && a.Count == b.Count && a.Stride == b.Stride
	case CompositeTy, UnionTy:
		if a.Tag != b.Tag || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i] != b.Fields[i] {
				return false
			}
		}
		return true
	case ImbuedTy:
		return a.Elem == b.Elem && a.Access == b.Access
	case AliasedTy:
		return a.Elem == b.Elem && a.RefIndex == b.RefIndex
	case OpaqueFnTy:
		return a.HashCode == b.HashCode
	case ShaderFnTy:
		return string(uint32sToBytes(a.ShaderWords)) == string(uint32sToBytes(b.ShaderWords))
	case EnumTy:
		return a.EnumTag == b.EnumTag
	case EnumValueTy:
		return a.EnumType == b.EnumType && a.EnumValue == b.EnumValue
	case OpaqueTy:
		return a.OpaqueTag == b.OpaqueTag
	default:
		return false
	}
}

// Type constructors. Each interns its result (and, where relevant, its
// children) so identical requests return the same *Type pointer.

func (m *IRModule) VoidType() *Type                  { return m.intern(&Type{Kind: VoidTy}) }
func (m *IRModule) IntegerType(width uint32) *Type    { return m.intern(&Type{Kind: IntegerTy, Width: width}) }
func (m *IRModule) FloatType(width uint32) *Type      { return m.intern(&Type{Kind: FloatTy, Width: width}) }
func (m *IRModule) MemoryType(size uint64) *Type      { return m.intern(&Type{Kind: MemoryTy, Size: size}) }
func (m *IRModule) PointerType(elem *Type) *Type      { return m.intern(&Type{Kind: PointerTy, Elem: elem}) }
func (m *IRModule) ArrayType(elem *Type, count, stride uint64) *Type {
	return m.intern(&Type{Kind: ArrayTy, Elem: elem, Count: count, Stride: stride})
}
func (m *IRModule) ImbuedType(elem *Type, access vktypes.Access) *Type {
	return m.intern(&Type{Kind: ImbuedTy, Elem: elem, Access: access})
}
func (m *IRModule) AliasedType(elem *Type, refIndex int) *Type {
	return m.intern(&Type{Kind: AliasedTy, Elem: elem, RefIndex: refIndex})
}
func (m *IRModule) CompositeType(name string, tag uint64, fields []*Type) *Type {
	return m.intern(&Type{Kind: CompositeTy, Name: name, Tag: tag, Fields: fields})
}
func (m *IRModule) OpaqueFnType(args, returns []*Type, domain vktypes.Domain, hashCode uint64) *Type {
	return m.intern(&Type{Kind: OpaqueFnTy, Args: args, Returns: returns, ExecuteOn: domain, HashCode: hashCode})
}
func (m *IRModule) ShaderFnType(args, returns []*Type, domain vktypes.Domain, words []uint32) *Type {
	return m.intern(&Type{Kind: ShaderFnTy, Args: args, Returns: returns, ExecuteOn: domain, ShaderWords: words})
}

// addNode appends n to the arena, stamping its module-prefixed index.
func (m *IRModule) addNode(n *Node) *Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextIndex++
	n.Index = uint64(m.id)<<32 | uint64(m.nextIndex)
	m.nodes = append(m.nodes, n)
	return n
}

// MakePlaceholder creates an unresolved value of type t, later filled in
// by SetValue or reify inference (pass 5).
func (m *IRModule) MakePlaceholder(t *Type) *Node {
	return m.addNode(newNode(Placeholder, []*Type{t}))
}

// MakeConstant creates a CONSTANT node owning value.
func (m *IRModule) MakeConstant(t *Type, value any) *Node {
	n := newNode(Constant, []*Type{t})
	n.Payload = ConstantPayload{Value: value, Owned: true}
	return m.addNode(n)
}

// MakeConstruct creates a CONSTRUCT node of type t from args (one per
// field of t, PLACEHOLDER refs permitted for fields reify inference will
// later fill in).
func (m *IRModule) MakeConstruct(t *Type, args []Ref) *Node {
	n := newNode(Construct, []*Type{t})
	n.Payload = ConstructPayload{Args: args}
	return m.addNode(n)
}

// MakeSlice creates a SLICE node of src along axis, [start, start+count).
func (m *IRModule) MakeSlice(src Ref, start, count Ref, axis uint8) *Node {
	t := src.Type()
	n := newNode(Slice, []*Type{t})
	n.Payload = SlicePayload{Src: src, Start: start, Count: count, Axis: axis}
	// Hangs on the parent's child_chains (spec.md §4.4 pass 4 "SLICE").
	if l := src.Link(); l != nil {
		l.ChildChains = append(l.ChildChains, n.Links[0])
	}
	return m.addNode(n)
}

// MakeConverge merges diverged tails back into a single chain the parent
// participates in again. write[i] marks whether diverged[i] is a write
// (undef) rather than a read.
func (m *IRModule) MakeConverge(base Ref, diverged []Ref, write []bool) *Node {
	t := base.Type()
	n := newNode(Converge, []*Type{t})
	n.Payload = ConvergePayload{Base: base, Diverged: diverged, Write: write}
	return m.addNode(n)
}

// MakeImport wraps an externally-owned value as an IMPORT node.
func (m *IRModule) MakeImport(t *Type, value any) *Node {
	n := newNode(Import, []*Type{t})
	n.Payload = ImportPayload{Value: value}
	return m.addNode(n)
}

// MakeCall creates a CALL node invoking a shader_fn/opaque_fn type with
// args; resultTypes comes from the callee type's Returns.
func (m *IRModule) MakeCall(callee *Type, args []Ref, imbuedTags []vktypes.Access) *Node {
	n := newNode(Call, callee.Returns)
	n.Payload = CallPayload{Args: args, ImbuedTags: imbuedTags, Domain: uint32(callee.ExecuteOn)}
	return m.addNode(n)
}

// SetCallCallback attaches the recording callback a CALL node runs at
// execution time. Separate from MakeCall since the callee type is often
// built (and interned) long before the recording closure exists.
func (m *IRModule) SetCallCallback(n *Node, fn func(CommandBufferStub, []any) []any) {
	cp, ok := n.Payload.(CallPayload)
	if !ok {
		return
	}
	cp.Callback = fn
	n.Payload = cp
}

// MakeClear creates a CLEAR node writing value into dst.
func (m *IRModule) MakeClear(dst Ref, value any) *Node {
	n := newNode(Clear, []*Type{dst.Type()})
	n.Payload = ClearPayload{Dst: dst, Value: value}
	return m.addNode(n)
}

// MakeAcquire creates an ACQUIRE node for externally-synchronized values.
func (m *IRModule) MakeAcquire(types []*Type, values []any, rel *AcquireRelease) *Node {
	n := newNode(Acquire, types)
	n.Payload = AcquirePayload{Values: values}
	n.RelAcq = rel
	return m.addNode(n)
}

// MakeRelease creates a RELEASE node handing src back to an external
// domain/access.
func (m *IRModule) MakeRelease(src []Ref, dstAccess vktypes.Access, dstDomain uint32, rel *AcquireRelease) *Node {
	n := newNode(Release, nil)
	n.Payload = ReleasePayload{Src: src, DstAccess: dstAccess, DstDomain: dstDomain}
	n.RelAcq = rel
	return m.addNode(n)
}

// MakeAcquireNextImage creates an ACQUIRE_NEXT_IMAGE node over swapchain.
func (m *IRModule) MakeAcquireNextImage(swapchain Ref, imageType *Type) *Node {
	n := newNode(AcquireNextImage, []*Type{imageType})
	n.Payload = AcquireNextImagePayload{Swapchain: swapchain}
	return m.addNode(n)
}

// MakeUse creates a USE node tagging src with access without consuming it
// into a CALL.
func (m *IRModule) MakeUse(src Ref, access vktypes.Access) *Node {
	n := newNode(Use, []*Type{src.Type()})
	n.Payload = UsePayload{Src: src, Access: access}
	return m.addNode(n)
}

// MakeLogicalCopy creates a LOGICAL_COPY node from src into dst's shape.
func (m *IRModule) MakeLogicalCopy(src, dst Ref) *Node {
	n := newNode(LogicalCopy, []*Type{dst.Type()})
	n.Payload = LogicalCopyPayload{Src: src, Dst: dst}
	return m.addNode(n)
}

// MakeCast reinterprets src as t without a conversion.
func (m *IRModule) MakeCast(t *Type, src Ref) *Node {
	n := newNode(Cast, []*Type{t})
	n.Payload = CastPayload{Src: src}
	return m.addNode(n)
}

// MakeMathBinary creates a MATH_BINARY node computing a OP b.
func (m *IRModule) MakeMathBinary(t *Type, a, b Ref, op BinOp) *Node {
	n := newNode(MathBinary, []*Type{t})
	n.Payload = MathBinaryPayload{A: a, B: b, Op: op}
	return m.addNode(n)
}

// MakeCompilePipeline creates a COMPILE_PIPELINE node.
func (m *IRModule) MakeCompilePipeline(t *Type, info any) *Node {
	n := newNode(CompilePipeline, []*Type{t})
	n.Payload = CompilePipelinePayload{Info: info}
	return m.addNode(n)
}

// MakeAllocate creates an ALLOCATE node.
func (m *IRModule) MakeAllocate(t *Type, info any) *Node {
	n := newNode(Allocate, []*Type{t})
	n.Payload = AllocatePayload{Info: info}
	return m.addNode(n)
}

// MakeGetAllocationSize creates a GET_ALLOCATION_SIZE node over src.
func (m *IRModule) MakeGetAllocationSize(src Ref, sizeType *Type) *Node {
	n := newNode(GetAllocationSize, []*Type{sizeType})
	n.Payload = GetAllocationSizePayload{Src: src}
	return m.addNode(n)
}

// MakeGetCI creates a GET_CI node retrieving src's creation info.
func (m *IRModule) MakeGetCI(src Ref, ciType *Type) *Node {
	n := newNode(GetCI, []*Type{ciType})
	n.Payload = GetCIPayload{Src: src}
	return m.addNode(n)
}

// SetValue attaches a later-bound value to a CONSTRUCT slot, used for
// runtime inference overrides (spec.md §4.3).
func (m *IRModule) SetValue(construct *Node, argIndex int, value Ref) error {
	cp, ok := construct.Payload.(ConstructPayload)
	if !ok {
		return fmt.Errorf("ir: SetValue on non-CONSTRUCT node %s", construct.Kind)
	}
	if argIndex < 0 || argIndex >= len(cp.Args) {
		return fmt.Errorf("ir: SetValue index %d out of range for %d args", argIndex, len(cp.Args))
	}
	cp.Args[argIndex] = value
	construct.Payload = cp
	return nil
}

// SetValueOnAllocateSrc is SetValue specialized for the source argument of
// an ALLOCATE-backed CONSTRUCT, the pattern the source uses to bind a
// deferred allocation result back into its construct site.
func (m *IRModule) SetValueOnAllocateSrc(construct *Node, value Ref) error {
	return m.SetValue(construct, 0, value)
}

// DestroyNode releases a node's owned payload storage and either erases
// it from the arena or marks it GARBAGE, matching
// original_source's destroy_node (spec.md §4.3). erase removes it from
// the arena outright; otherwise it is retagged in place so existing Refs
// observe GARBAGE rather than dangling.
func (m *IRModule) DestroyNode(n *Node, erase bool) {
	if cp, ok := n.Payload.(ConstantPayload); ok {
		_ = cp
		n.Payload = nil
	}
	if !erase {
		n.Kind = Garbage
		n.Payload = nil
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.nodes {
		if existing == n {
			m.nodes = append(m.nodes[:i], m.nodes[i+1:]...)
			return
		}
	}
}

// CollectGarbage walks every node unreachable from a held ExtNode root and
// destroys it (spec.md §4.3/§3.6). held roots are supplied by the caller
// (normally the set of live ExtNodes); args are not rewritten here since
// bridge elimination (pkg/compiler pass 3) already resolves SPLICE
// indirection before a graph reaches compile — CollectGarbage is strictly
// a mark-and-sweep over the current arena.
func (m *IRModule) CollectGarbage(roots []*Node) int {
	reachable := make(map[*Node]bool, len(roots))
	var mark func(n *Node)
	mark = func(n *Node) {
		if n == nil || reachable[n] {
			return
		}
		reachable[n] = true
		for _, ref := range nodeArgs(n) {
			mark(ref.Node)
		}
	}
	for _, r := range roots {
		r.Held = true
		mark(r)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.nodes[:0]
	collected := 0
	for _, n := range m.nodes {
		if n.Held || reachable[n] {
			kept = append(kept, n)
			continue
		}
		collected++
	}
	m.nodes = kept
	return collected
}

// nodeArgs returns every Ref a node's payload depends on, used by
// CollectGarbage's reachability walk (pkg/compiler's pass 2 walks with
// its own refsOf).
func nodeArgs(n *Node) []Ref {
	switch p := n.Payload.(type) {
	case ConstructPayload:
		return p.Args
	case SlicePayload:
		return []Ref{p.Src, p.Start, p.Count}
	case ConvergePayload:
		return append([]Ref{p.Base}, p.Diverged...)
	case CallPayload:
		return p.Args
	case ClearPayload:
		return []Ref{p.Dst}
	case ReleasePayload:
		return p.Src
	case AcquireNextImagePayload:
		return []Ref{p.Swapchain}
	case UsePayload:
		return []Ref{p.Src}
	case LogicalCopyPayload:
		return []Ref{p.Src, p.Dst}
	case SetPayload:
		return []Ref{p.Target, p.Value}
	case CastPayload:
		return []Ref{p.Src}
	case MathBinaryPayload:
		return []Ref{p.A, p.B}
	case GetAllocationSizePayload:
		return []Ref{p.Src}
	case GetCIPayload:
		return []Ref{p.Src}
	default:
		return nil
	}
}
