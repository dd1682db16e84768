package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknown2DMarksEveryInferableFieldUnknown(t *testing.T) {
	a := Unknown2D()
	assert.False(t, a.IsExtentKnown())
	assert.False(t, a.IsFormatKnown())
	assert.False(t, a.IsSampleCountKnown())
	assert.Equal(t, uint32(1), a.Levels)
	assert.Equal(t, uint32(1), a.Layers)
	assert.Equal(t, uint32(1), a.Extent.Depth)
}

func TestImageAttachmentKnownOnceFieldsResolved(t *testing.T) {
	a := Unknown2D()
	a.Extent.Width = 1920
	assert.False(t, a.IsExtentKnown(), "height is still unresolved")

	a.Extent.Height = 1080
	assert.True(t, a.IsExtentKnown())
}

func TestUnknown1DMarksSizeUnknown(t *testing.T) {
	b := Unknown1D()
	assert.False(t, b.IsSizeKnown())

	b.Size = 256
	assert.True(t, b.IsSizeKnown())
}

func TestPersistentDescriptorSetCommitDrainsPendingAtomically(t *testing.T) {
	s := &PersistentDescriptorSet{}
	s.Update(DescriptorBinding{Binding: 0, ArrayIndex: 0})
	s.Update(DescriptorBinding{Binding: 1, ArrayIndex: 0})
	require.Len(t, s.Pending, 2)

	var got []DescriptorBinding
	err := s.Commit(func(pending []DescriptorBinding) error {
		got = pending
		return nil
	})

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Empty(t, s.Pending, "Commit drains Pending before the write callback is observed again")
}

func TestPersistentDescriptorSetCommitIsNoOpWhenEmpty(t *testing.T) {
	s := &PersistentDescriptorSet{}
	called := false
	err := s.Commit(func(pending []DescriptorBinding) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.False(t, called, "Commit with nothing pending must not issue a write call")
}
