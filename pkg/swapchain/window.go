// Package swapchain bootstraps the window/instance/device/surface chain
// an application needs before the core can run (C9): GLFW window creation,
// Vulkan instance/device selection, and the Swapchain type the
// ACQUIRE_NEXT_IMAGE IR node consumes (spec.md §6.3).
//
// Grounded on the teacher's pkg/legacy/asche/platform.go (NewPlatform's
// instance/device/queue-family selection) and pkg/legacy/dieselvk's
// display.go/swapchain.go (GLFW surface creation, swapchain recreation).
// Generalized to expose only what an application driving the core needs —
// not the full asche Application/Context framework.
package swapchain

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

// OpenWindow creates a GLFW window configured for a Vulkan surface (no
// OpenGL context is attached, matching CoreDisplay's assumption that the
// caller owns window lifecycle).
func OpenWindow(width, height int, title string) (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "swapchain: glfw.Init")
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	w, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "swapchain: glfw.CreateWindow")
	}
	return w, nil
}

// RequiredInstanceExtensions returns the platform's required Vulkan
// instance extensions for presenting to w (VK_KHR_surface plus the
// platform-specific surface extension GLFW selects), grounded on the
// teacher's core.go which reads this straight off the window handle
// (base.display.window.GetRequiredInstanceExtensions()).
func RequiredInstanceExtensions(w *glfw.Window) []string {
	return w.GetRequiredInstanceExtensions()
}
