// Command vukclear is the smallest end-to-end drive of the runtime: bring
// up a window and device, declare an image in the IR, clear it red,
// release it to the host, and block until the GPU is done. It exists to
// show the full path from IR construction through compile, record and
// submit without any application framework around it.
package main

import (
	"context"
	"log"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/alloc"
	"github.com/andewx/vukgo/pkg/exec"
	"github.com/andewx/vukgo/pkg/ir"
	"github.com/andewx/vukgo/pkg/queue"
	"github.com/andewx/vukgo/pkg/swapchain"
	"github.com/andewx/vukgo/pkg/vktypes"
)

func main() {
	window, err := swapchain.OpenWindow(640, 480, "vukclear")
	if err != nil {
		log.Fatal(err)
	}
	defer glfw.Terminate()

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		log.Fatal(err)
	}

	instance, _, err := swapchain.NewInstance(swapchain.InstanceConfig{
		AppName:            "vukclear",
		RequiredExtensions: swapchain.RequiredInstanceExtensions(window),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer vk.DestroyInstance(instance, nil)

	surfacePtr, err := window.CreateWindowSurface(instance, nil)
	if err != nil {
		log.Fatal(err)
	}
	surface := vk.SurfaceFromPointer(surfacePtr)

	sel, err := swapchain.SelectPhysicalDevice(instance, surface)
	if err != nil {
		log.Fatal(err)
	}
	device, graphicsQueue, _, err := swapchain.CreateDevice(sel, []string{"VK_KHR_swapchain"})
	if err != nil {
		log.Fatal(err)
	}
	defer vk.DestroyDevice(device, nil)

	allocator, err := alloc.NewAllocator(alloc.Config{
		Device:           device,
		PhysicalDevice:   sel.GPU,
		MemoryProperties: sel.MemoryProperties,
		FrameCount:       2,
		FrameLinearUsage: vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		FrameLinearMem:   alloc.MemoryCPUToGPU,
		SubUsage:         vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit),
		SubMem:           alloc.MemoryGPUOnly,
		DescriptorLimits: alloc.Limits{
			MaxSets: 64,
			PoolSizes: []vk.DescriptorPoolSize{
				{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 64},
			},
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer allocator.Destroy()

	timelines := make([]vk.Semaphore, 1)
	if err := allocator.Direct.AllocateTimelineSemaphores(timelines, []uint64{0}); err != nil {
		log.Fatal(err)
	}
	defer allocator.Direct.DeallocateTimelineSemaphores(timelines)

	executor := queue.NewQueueExecutor(device, graphicsQueue, sel.GraphicsFamily, timelines[0], queue.Limits{})

	m := ir.NewIRModule()
	img := m.MakeConstruct(m.Image, []ir.Ref{
		m.MakeConstant(m.IntegerType(32), vk.Extent3D{Width: 640, Height: 480, Depth: 1}).Ref0(),
		m.MakeConstant(m.IntegerType(32), vk.FormatR8g8b8a8Unorm).Ref0(),
	})
	cleared := m.MakeClear(img.Ref0(), [4]float32{1, 0, 0, 1})
	rel := &ir.AcquireRelease{}
	release := m.MakeRelease([]ir.Ref{cleared.Ref0()}, vktypes.AccessNone, uint32(vktypes.DomainHost), rel)

	dev := &exec.Device{
		Module: m,
		Config: exec.Config{
			Resource:  allocator.Direct,
			Executors: map[vktypes.Domain]*queue.QueueExecutor{vktypes.DomainGraphicsQueue: executor},
		},
	}

	v := ir.NewValue[ir.ImageRef](ir.NewExtNode(release), 0)
	if _, err := exec.Wait(context.Background(), dev, v); err != nil {
		log.Fatal(err)
	}
	log.Printf("cleared a %dx%d image on queue family %d", 640, 480, sel.GraphicsFamily)
}
