package alloc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestNewAllocateExceptionNilOnSuccess(t *testing.T) {
	assert.NoError(t, NewAllocateException("AllocateBuffers", vk.Success))
}

func TestNewAllocateExceptionWrapsFailure(t *testing.T) {
	err := NewAllocateException("AllocateBuffers", vk.ErrorOutOfDeviceMemory)
	require := assert.New(t)
	require.Error(err)

	var ae *AllocateException
	require.True(errors.As(err, &ae))
	require.Equal("AllocateBuffers", ae.Op)
	require.Equal(vk.ErrorOutOfDeviceMemory, ae.Result)
}

func TestWrapReturnsNilForNilError(t *testing.T) {
	assert.NoError(t, Wrap(nil, "op"))
}

func TestWrapAttachesOpContext(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(base, "AllocateBuffers")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "AllocateBuffers")
	assert.Contains(t, err.Error(), "boom")
}
