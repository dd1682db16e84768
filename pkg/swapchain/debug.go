package swapchain

import vk "github.com/vulkan-go/vulkan"

// BeginLabel, EndLabel and InsertLabel wrap VK_EXT_debug_utils' command
// buffer labeling calls (spec.md §6.1's "optional subset": debug-utils).
// The teacher only wires VK_EXT_debug_report (platform.go's
// dbgCallbackFunc); debug_utils labels are new here, added because
// pkg/runtime's PFN table lists them as an optional capability an
// application can probe for (check_pfns only requires the 1.0 +
// timeline-semaphore + buffer-device-address + draw-indirect-count
// subset).
func BeginLabel(cmd vk.CommandBuffer, name string, color [4]float32) {
	vk.CmdBeginDebugUtilsLabel(cmd, &vk.DebugUtilsLabel{
		SType:      vk.StructureTypeDebugUtilsLabel,
		PLabelName: safeString(name),
		Color:      color,
	})
}

func EndLabel(cmd vk.CommandBuffer) {
	vk.CmdEndDebugUtilsLabel(cmd)
}

func InsertLabel(cmd vk.CommandBuffer, name string, color [4]float32) {
	vk.CmdInsertDebugUtilsLabel(cmd, &vk.DebugUtilsLabel{
		SType:      vk.StructureTypeDebugUtilsLabel,
		PLabelName: safeString(name),
		Color:      color,
	})
}
