package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPFNTableBindsRequiredSubset(t *testing.T) {
	table := NewPFNTable(nil)
	require.NoError(t, table.CheckRequired())
}

func TestNewPFNTableRecordsOptionalExtensions(t *testing.T) {
	table := NewPFNTable([]string{"VK_KHR_swapchain", "VK_EXT_debug_utils"})
	assert.True(t, table.HasSwapchain)
	assert.True(t, table.HasDebugUtils)
	assert.False(t, table.HasRayTracing)
	assert.False(t, table.HasCalibratedTimestamps)
	assert.False(t, table.HasPushDescriptor)
}

func TestCheckRequiredReportsMissingEntry(t *testing.T) {
	table := NewPFNTable(nil)
	table.SignalSemaphore = nil

	err := table.CheckRequired()
	require.Error(t, err)

	var missing *RequiredPFNMissing
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "SignalSemaphore", missing.Name)
}

func TestCheckRequiredReportsFirstMissingInDeclaredOrder(t *testing.T) {
	table := NewPFNTable(nil)
	table.DeviceWaitIdle = nil
	table.SignalSemaphore = nil

	err := table.CheckRequired()
	require.Error(t, err)

	var missing *RequiredPFNMissing
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "DeviceWaitIdle", missing.Name)
}
