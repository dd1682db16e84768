package swapchain

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DeviceExtensions enumerates the device extensions gpu supports.
func DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil); ret != vk.Success {
		return nil, newVkError("vkEnumerateDeviceExtensionProperties", ret)
	}
	list := make([]vk.ExtensionProperties, count)
	if ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list); ret != vk.Success {
		return nil, newVkError("vkEnumerateDeviceExtensionProperties", ret)
	}
	names := make([]string, 0, len(list))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// SelectedDevice bundles the physical device and queue families a
// Device was created from.
type SelectedDevice struct {
	GPU                vk.PhysicalDevice
	Properties         vk.PhysicalDeviceProperties
	MemoryProperties   vk.PhysicalDeviceMemoryProperties
	GraphicsFamily     uint32
	PresentFamily      uint32
	HasSeparatePresent bool
}

// SelectPhysicalDevice uses the first enumerated GPU (other GPUs are not
// considered) and its first queue family with QueueGraphicsBit; if that
// family cannot present to surface, a later present-capable family is used
// as a separate present family — grounded on pkg/legacy/asche/platform.go's
// NewPlatform queue-family scan.
func SelectPhysicalDevice(instance vk.Instance, surface vk.Surface) (SelectedDevice, error) {
	var gpuCount uint32
	if ret := vk.EnumeratePhysicalDevices(instance, &gpuCount, nil); ret != vk.Success {
		return SelectedDevice{}, newVkError("vkEnumeratePhysicalDevices", ret)
	}
	if gpuCount == 0 {
		return SelectedDevice{}, errors.New("swapchain: no GPU devices found")
	}
	gpus := make([]vk.PhysicalDevice, gpuCount)
	if ret := vk.EnumeratePhysicalDevices(instance, &gpuCount, gpus); ret != vk.Success {
		return SelectedDevice{}, newVkError("vkEnumeratePhysicalDevices", ret)
	}

	gpu := gpus[0]
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(gpu, &memProps)
	memProps.Deref()

	var queueCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, nil)
	if queueCount == 0 {
		return SelectedDevice{}, errors.New("swapchain: no queue families found on GPU 0")
	}
	queueProps := make([]vk.QueueFamilyProperties, queueCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, queueProps)

	var graphicsFamily, presentFamily uint32
	var graphicsFound, presentFound, separate bool
	for i := uint32(0); i < queueCount; i++ {
		queueProps[i].Deref()
		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, i, surface, &supportsPresent)

		if !graphicsFound && queueProps[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphicsFamily = i
			graphicsFound = true
			if supportsPresent.B() {
				presentFamily = i
				presentFound = true
			}
			continue
		}
		if graphicsFound && !presentFound && supportsPresent.B() {
			presentFamily = i
			presentFound = true
			separate = true
		}
	}
	if !graphicsFound {
		return SelectedDevice{}, errors.New("swapchain: no suitable graphics queue family found")
	}
	if !presentFound {
		return SelectedDevice{}, errors.New("swapchain: no queue family supports presenting to the surface")
	}

	return SelectedDevice{
		GPU: gpu, Properties: props, MemoryProperties: memProps,
		GraphicsFamily: graphicsFamily, PresentFamily: presentFamily, HasSeparatePresent: separate,
	}, nil
}

// CreateDevice creates a vk.Device with one queue from each of sel's
// graphics/present families (a single queue if they coincide), enabling
// the intersection of requiredExtensions with what the GPU actually
// supports.
func CreateDevice(sel SelectedDevice, requiredExtensions []string) (vk.Device, vk.Queue, vk.Queue, error) {
	actual, err := DeviceExtensions(sel.GPU)
	if err != nil {
		return vk.NullHandle, vk.NullHandle, vk.NullHandle, err
	}
	exts := intersect(actual, requiredExtensions)

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: sel.GraphicsFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	if sel.HasSeparatePresent {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: sel.PresentFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	var device vk.Device
	ret := vk.CreateDevice(sel.GPU, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
	}, nil, &device)
	if err := newVkError("vkCreateDevice", ret); err != nil {
		return vk.NullHandle, vk.NullHandle, vk.NullHandle, err
	}

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device, sel.GraphicsFamily, 0, &graphicsQueue)
	if sel.HasSeparatePresent {
		vk.GetDeviceQueue(device, sel.PresentFamily, 0, &presentQueue)
	} else {
		presentQueue = graphicsQueue
	}
	return device, graphicsQueue, presentQueue, nil
}
