package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeInterningDedupes(t *testing.T) {
	m := NewIRModule()
	a := m.IntegerType(32)
	b := m.IntegerType(32)
	c := m.IntegerType(64)

	assert.Same(t, a, b, "identical scalar types intern to the same pointer")
	assert.NotSame(t, a, c)
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestTypeInterningRecursesIntoChildren(t *testing.T) {
	m := NewIRModule()
	i32 := m.IntegerType(32)
	p1 := m.PointerType(i32)
	p2 := m.PointerType(m.IntegerType(32))

	assert.Same(t, p1, p2)
}

func TestCompositeTypeTagDistinguishesOtherwiseEqualFields(t *testing.T) {
	m := NewIRModule()
	i32 := m.IntegerType(32)
	a := m.CompositeType("a", 1, []*Type{i32})
	b := m.CompositeType("b", 2, []*Type{i32})
	assert.NotSame(t, a, b)
}

func TestNodeIndexStampedWithModuleID(t *testing.T) {
	m := NewIRModule()
	n := m.MakePlaceholder(m.IntegerType(32))
	assert.Equal(t, uint64(m.ID())<<32|1, n.Index)

	n2 := m.MakePlaceholder(m.IntegerType(32))
	assert.Equal(t, n.Index+1, n2.Index)
}

func TestChainUrdefPropagatesHeadToTail(t *testing.T) {
	m := NewIRModule()
	t1 := m.IntegerType(32)
	n1 := m.MakePlaceholder(t1)
	n2 := m.MakePlaceholder(t1)
	n3 := m.MakePlaceholder(t1)

	l1, l2, l3 := n1.Links[0], n2.Links[0], n3.Links[0]
	LinkNext(l1, l2)
	LinkNext(l2, l3)

	PropagateUrdef(l1)

	assert.Equal(t, l1.Def, l1.Urdef)
	assert.Equal(t, l1.Def, l2.Urdef)
	assert.Equal(t, l1.Def, l3.Urdef)
	assert.True(t, l1.IsHead())
	assert.False(t, l2.IsHead())
}

func TestCollectChainsReturnsOnlyHeads(t *testing.T) {
	m := NewIRModule()
	t1 := m.IntegerType(32)
	n1 := m.MakePlaceholder(t1)
	n2 := m.MakePlaceholder(t1)
	LinkNext(n1.Links[0], n2.Links[0])

	heads := CollectChains(m.Nodes())
	require.Len(t, heads, 1)
	assert.Same(t, n1.Links[0], heads[0])
}

func TestCollectGarbageKeepsOnlyReachableFromHeldRoots(t *testing.T) {
	m := NewIRModule()
	t1 := m.IntegerType(32)

	leaf := m.MakeConstant(t1, uint32(1))
	root := m.MakeConstruct(t1, []Ref{leaf.Ref0()})
	orphan := m.MakePlaceholder(t1)
	_ = orphan

	require.Len(t, m.Nodes(), 3)

	collected := m.CollectGarbage([]*Node{root})
	assert.Equal(t, 1, collected)
	assert.Len(t, m.Nodes(), 2)
}

func TestExtNodeRefCounting(t *testing.T) {
	m := NewIRModule()
	n := m.MakePlaceholder(m.IntegerType(32))
	ext := NewExtNode(n)
	assert.True(t, n.Held)
	assert.EqualValues(t, 1, ext.RefCount())

	ext.Retain()
	assert.EqualValues(t, 2, ext.RefCount())

	ext.Release()
	assert.True(t, n.Held)

	ext.Release()
	assert.False(t, n.Held)
}

func TestSetValueRewritesConstructArg(t *testing.T) {
	m := NewIRModule()
	t1 := m.IntegerType(32)
	ph := m.MakePlaceholder(t1)
	construct := m.MakeConstruct(t1, []Ref{ph.Ref0()})

	replacement := m.MakeConstant(t1, uint32(7))
	err := m.SetValue(construct, 0, replacement.Ref0())
	require.NoError(t, err)

	cp := construct.Payload.(ConstructPayload)
	assert.Same(t, replacement, cp.Args[0].Node)
}

func TestSyncPointReady(t *testing.T) {
	sp := SyncPoint{Value: 5}
	assert.False(t, sp.Ready(4))
	assert.True(t, sp.Ready(5))
	assert.True(t, sp.Ready(6))
}
