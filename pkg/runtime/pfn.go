package runtime

import vk "github.com/vulkan-go/vulkan"

// PFNTable is the Go-level stand-in for spec.md §6.1's "struct of ~90
// function pointers". vulkan-go/vulkan resolves entry points through
// cgo+dlopen internally rather than exposing raw PC_PFN_* handles, so
// there is nothing to "load" the way the original does — instead this
// struct holds method-valued fields bound once at NewRuntime time,
// letting check_pfns assert presence the same way the original iterates
// its PFN struct.
//
// Only a representative slice of the required subset (core 1.0 +
// timeline-semaphore + buffer-device-address + draw-indirect-count) is
// named explicitly; the rest of 1.0 is assumed present once vk.Init
// succeeds (vulkan-go statically links every core entry point, so "missing"
// only meaningfully applies to optional/extension functionality).
type PFNTable struct {
	// Required: core device/queue lifecycle.
	CreateDevice func(vk.PhysicalDevice, *vk.DeviceCreateInfo, *vk.AllocationCallbacks, *vk.Device) vk.Result
	QueueSubmit  func(vk.Queue, uint32, []vk.SubmitInfo, vk.Fence) vk.Result
	DeviceWaitIdle func(vk.Device) vk.Result

	// Required: timeline semaphores (VK_KHR_timeline_semaphore / 1.2 core).
	WaitSemaphores         func(vk.Device, *vk.SemaphoreWaitInfo, uint64) vk.Result
	GetSemaphoreCounterValue func(vk.Device, vk.Semaphore, *uint64) vk.Result
	SignalSemaphore        func(vk.Device, *vk.SemaphoreSignalInfo) vk.Result

	// Required: buffer device address (VK_KHR_buffer_device_address / 1.2 core).
	GetBufferDeviceAddress func(vk.Device, *vk.BufferDeviceAddressInfo) vk.DeviceAddress

	// Required: draw-indirect-count (VK_KHR_draw_indirect_count / 1.2 core).
	CmdDrawIndexedIndirectCount func(vk.CommandBuffer, vk.Buffer, vk.DeviceSize, vk.Buffer, vk.DeviceSize, uint32, uint32)

	// Optional subset, each flag true only if the backing extension is in
	// the optional extension list NewPFNTable is given; the device is not
	// queried.
	HasSwapchain           bool
	HasDebugUtils          bool
	HasRayTracing          bool
	HasCalibratedTimestamps bool
	HasPushDescriptor      bool
}

// requiredFieldNames names every PFNTable field that belongs to the
// required subset, for check_pfns's diagnostic.
var requiredFieldNames = []string{
	"CreateDevice", "QueueSubmit", "DeviceWaitIdle",
	"WaitSemaphores", "GetSemaphoreCounterValue", "SignalSemaphore",
	"GetBufferDeviceAddress", "CmdDrawIndexedIndirectCount",
}

// NewPFNTable binds the required subset directly to vulkan-go/vulkan's
// static functions (case b in spec.md §6.1: "vkGetInstanceProcAddr alone,
// remainder loaded dynamically" collapses to "always available" once
// vk.Init has run, since vulkan-go resolves everything through cgo at
// link time rather than at runtime).
func NewPFNTable(optionalExtensions []string) *PFNTable {
	t := &PFNTable{
		CreateDevice:                vk.CreateDevice,
		QueueSubmit:                 vk.QueueSubmit,
		DeviceWaitIdle:              vk.DeviceWaitIdle,
		WaitSemaphores:              vk.WaitSemaphores,
		GetSemaphoreCounterValue:    vk.GetSemaphoreCounterValue,
		SignalSemaphore:             vk.SignalSemaphore,
		GetBufferDeviceAddress:      vk.GetBufferDeviceAddress,
		CmdDrawIndexedIndirectCount: vk.CmdDrawIndexedIndirectCountKHR,
	}
	for _, ext := range optionalExtensions {
		switch ext {
		case "VK_KHR_swapchain":
			t.HasSwapchain = true
		case "VK_EXT_debug_utils":
			t.HasDebugUtils = true
		case "VK_KHR_ray_tracing_pipeline":
			t.HasRayTracing = true
		case "VK_EXT_calibrated_timestamps":
			t.HasCalibratedTimestamps = true
		case "VK_KHR_push_descriptor":
			t.HasPushDescriptor = true
		}
	}
	return t
}

// CheckRequired implements check_pfns: it must pass on all required
// entries, returning a RequiredPFNMissing naming the first absent one.
func (t *PFNTable) CheckRequired() error {
	fields := map[string]bool{
		"CreateDevice":                t.CreateDevice != nil,
		"QueueSubmit":                 t.QueueSubmit != nil,
		"DeviceWaitIdle":              t.DeviceWaitIdle != nil,
		"WaitSemaphores":              t.WaitSemaphores != nil,
		"GetSemaphoreCounterValue":    t.GetSemaphoreCounterValue != nil,
		"SignalSemaphore":             t.SignalSemaphore != nil,
		"GetBufferDeviceAddress":      t.GetBufferDeviceAddress != nil,
		"CmdDrawIndexedIndirectCount": t.CmdDrawIndexedIndirectCount != nil,
	}
	for _, name := range requiredFieldNames {
		if !fields[name] {
			return newRequiredPFNMissing(name)
		}
	}
	return nil
}
