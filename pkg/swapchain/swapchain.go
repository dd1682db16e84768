package swapchain

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/andewx/vukgo/pkg/resource"
)

// Swapchain is the presentation surface the ACQUIRE_NEXT_IMAGE IR node
// consumes (spec.md §6.3): a ring of images plus the semaphores needed to
// acquire and present them safely. Grounded on
// pkg/legacy/dieselvk/swapchain.go's CoreSwapchain (surface-capability
// negotiation, format/present-mode selection) and
// pkg/legacy/asche/context.go's prepareSwapchain (oldSwapchain handoff on
// resize), generalized into a standalone type with no CoreRenderInstance
// coupling.
type Swapchain struct {
	device  vk.Device
	surface vk.Surface
	handle  vk.Swapchain

	Format vk.Format
	Extent vk.Extent2D
	Images []vk.Image
	Views  []vk.ImageView

	// acquireSemaphores is a ring of frames-in-flight acquire semaphores,
	// sized to len(Images); it cannot be indexed by image index because
	// the image index isn't known until after the semaphore is submitted
	// to vkAcquireNextImage.
	acquireSemaphores []vk.Semaphore
	// renderCompleteSemaphores is indexed by image index, signaled when
	// rendering to that image has finished and it's safe to present.
	renderCompleteSemaphores []vk.Semaphore
	nextAcquire              int

	// ImageIndex and AcquireResult track the most recent AcquireNext call
	// so an executing graph can read the current image off the swapchain
	// pointer without threading the acquire return values through it.
	ImageIndex    uint32
	AcquireResult vk.Result
}

// Config describes the desired swapchain shape; New negotiates it down to
// what the surface actually supports.
type Config struct {
	DesiredImages   uint32
	PreferredFormat vk.Format
	Width, Height   uint32
}

// New creates a Swapchain for surface, reusing old's vk.Swapchain handle
// as OldSwapchain if old is non-nil (the recreate-on-resize path);
// old's Vulkan resources are not destroyed here — call old.Destroy after
// New returns successfully once in-flight work referencing it has
// drained.
func New(gpu vk.PhysicalDevice, device vk.Device, surface vk.Surface, cfg Config, old *Swapchain) (*Swapchain, error) {
	var caps vk.SurfaceCapabilities
	if ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps); ret != vk.Success {
		return nil, newVkError("vkGetPhysicalDeviceSurfaceCapabilities", ret)
	}
	caps.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)
	if formatCount == 0 {
		return nil, errors.New("swapchain: surface has no pixel formats")
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, formats)
	formats[0].Deref()

	format := formats[0]
	if formatCount == 1 && format.Format == vk.FormatUndefined {
		format.Format = cfg.PreferredFormat
	}

	extent := cfg.extentOr(caps)

	desired := cfg.DesiredImages
	if desired == 0 {
		desired = caps.MinImageCount + 1
	}
	if caps.MaxImageCount > 0 && desired > caps.MaxImageCount {
		desired = caps.MaxImageCount
	}
	if desired < caps.MinImageCount {
		desired = caps.MinImageCount
	}

	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	compositeAlpha := pickCompositeAlpha(caps.SupportedCompositeAlpha)

	var oldHandle vk.Swapchain
	if old != nil {
		oldHandle = old.handle
	}

	var handle vk.Swapchain
	ret := vk.CreateSwapchain(device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    desired,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		OldSwapchain:     oldHandle,
	}, nil, &handle)
	if err := newVkError("vkCreateSwapchainKHR", ret); err != nil {
		return nil, err
	}

	var imageCount uint32
	vk.GetSwapchainImages(device, handle, &imageCount, nil)
	images := make([]vk.Image, imageCount)
	vk.GetSwapchainImages(device, handle, &imageCount, images)

	views := make([]vk.ImageView, imageCount)
	for i, img := range images {
		ret := vk.CreateImageView(device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity, G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity, A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1, LayerCount: 1,
			},
		}, nil, &views[i])
		if err := newVkError("vkCreateImageView", ret); err != nil {
			return nil, err
		}
	}

	acquireSems := make([]vk.Semaphore, imageCount)
	renderSems := make([]vk.Semaphore, imageCount)
	for i := range acquireSems {
		if ret := vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &acquireSems[i]); ret != vk.Success {
			return nil, newVkError("vkCreateSemaphore", ret)
		}
		if ret := vk.CreateSemaphore(device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &renderSems[i]); ret != vk.Success {
			return nil, newVkError("vkCreateSemaphore", ret)
		}
	}

	return &Swapchain{
		device: device, surface: surface, handle: handle,
		Format: format.Format, Extent: extent, Images: images, Views: views,
		acquireSemaphores: acquireSems, renderCompleteSemaphores: renderSems,
	}, nil
}

func (c Config) extentOr(caps vk.SurfaceCapabilities) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{Width: c.Width, Height: c.Height}
}

func pickCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, c := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&vk.CompositeAlphaFlags(c) != 0 {
			return c
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// AcquireNext acquires the next presentable image, cycling through the
// acquire-semaphore ring (two semaphores per image is the steady-state
// case once frames-in-flight == image count, per spec.md §4.8's
// expansion). The returned semaphore must be waited on by the first
// command buffer submission that touches imageIndex.
func (s *Swapchain) AcquireNext(timeout uint64) (imageIndex uint32, acquireSemaphore vk.Semaphore, result vk.Result) {
	sem := s.acquireSemaphores[s.nextAcquire]
	s.nextAcquire = (s.nextAcquire + 1) % len(s.acquireSemaphores)
	ret := vk.AcquireNextImage(s.device, s.handle, timeout, sem, vk.NullFence, &imageIndex)
	s.ImageIndex = imageIndex
	s.AcquireResult = ret
	return imageIndex, sem, ret
}

// AcquireNextAttachment acquires the next presentable image and hands it
// back as the ImageAttachment an ACQUIRE_NEXT_IMAGE node materializes to
// — pkg/exec's SwapchainSource.
func (s *Swapchain) AcquireNextAttachment(timeout uint64) (resource.ImageAttachment, vk.Semaphore, vk.Result) {
	idx, sem, ret := s.AcquireNext(timeout)
	if ret != vk.Success && ret != vk.Suboptimal {
		return resource.ImageAttachment{}, sem, ret
	}
	return resource.ImageAttachment{
		Image:       s.Images[idx],
		ImageView:   s.Views[idx],
		Layout:      vk.ImageLayoutUndefined,
		Format:      s.Format,
		Extent:      vk.Extent3D{Width: s.Extent.Width, Height: s.Extent.Height, Depth: 1},
		SampleCount: vk.SampleCount1Bit,
		Levels:      1,
		Layers:      1,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
	}, sem, ret
}

// RenderCompleteSemaphore returns the semaphore a command buffer
// rendering to imageIndex must signal before Present is called for it.
func (s *Swapchain) RenderCompleteSemaphore(imageIndex uint32) vk.Semaphore {
	return s.renderCompleteSemaphores[imageIndex]
}

// Present queues imageIndex for presentation on queue, waiting on the
// image's render-complete semaphore.
func (s *Swapchain) Present(queue vk.Queue, imageIndex uint32) vk.Result {
	wait := []vk.Semaphore{s.renderCompleteSemaphores[imageIndex]}
	return vk.QueuePresent(queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(wait)),
		PWaitSemaphores:    wait,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{imageIndex},
	})
}

// Destroy releases every Vulkan object this Swapchain owns. The caller
// must ensure no in-flight submission still references it.
func (s *Swapchain) Destroy() {
	for _, v := range s.Views {
		vk.DestroyImageView(s.device, v, nil)
	}
	for _, sem := range s.acquireSemaphores {
		vk.DestroySemaphore(s.device, sem, nil)
	}
	for _, sem := range s.renderCompleteSemaphores {
		vk.DestroySemaphore(s.device, sem, nil)
	}
	vk.DestroySwapchain(s.device, s.handle, nil)
}
