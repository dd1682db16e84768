package swapchain

import (
	"log"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// InstanceConfig names the application identity and required
// instance-level extensions/layers, mirroring asche.NewPlatform's
// instance-creation block.
type InstanceConfig struct {
	AppName             string
	AppVersion          uint32
	RequiredExtensions  []string
	RequiredLayers      []string
	EnableDebugCallback bool
}

// InstanceExtensions enumerates the instance extensions this Vulkan
// loader supports.
func InstanceExtensions() ([]string, error) {
	var count uint32
	if ret := vk.EnumerateInstanceExtensionProperties("", &count, nil); ret != vk.Success {
		return nil, newVkError("vkEnumerateInstanceExtensionProperties", ret)
	}
	list := make([]vk.ExtensionProperties, count)
	if ret := vk.EnumerateInstanceExtensionProperties("", &count, list); ret != vk.Success {
		return nil, newVkError("vkEnumerateInstanceExtensionProperties", ret)
	}
	names := make([]string, 0, len(list))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// ValidationLayers enumerates the instance layers this Vulkan loader
// supports.
func ValidationLayers() ([]string, error) {
	var count uint32
	if ret := vk.EnumerateInstanceLayerProperties(&count, nil); ret != vk.Success {
		return nil, newVkError("vkEnumerateInstanceLayerProperties", ret)
	}
	list := make([]vk.LayerProperties, count)
	if ret := vk.EnumerateInstanceLayerProperties(&count, list); ret != vk.Success {
		return nil, newVkError("vkEnumerateInstanceLayerProperties", ret)
	}
	names := make([]string, 0, len(list))
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// intersect keeps only the entries of want present in have, logging the
// ones that are missing rather than failing outright (asche.NewPlatform's
// "missing N required extensions" warning).
func intersect(have, want []string) []string {
	out := make([]string, 0, len(want))
	missing := 0
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if found {
			out = append(out, w)
		} else {
			missing++
		}
	}
	if missing > 0 {
		log.Println("vukgo: missing", missing, "requested extensions/layers")
	}
	return out
}

// NewInstance creates a vk.Instance, enabling the intersection of cfg's
// requested extensions/layers with what the loader actually supports, and
// (if cfg.EnableDebugCallback) a debug report callback logging
// errors/warnings through the standard logger — grounded on
// pkg/legacy/asche/platform.go's NewPlatform instance-creation block and
// its dbgCallbackFunc.
func NewInstance(cfg InstanceConfig) (vk.Instance, vk.DebugReportCallback, error) {
	actualExt, err := InstanceExtensions()
	if err != nil {
		return vk.NullHandle, vk.NullDebugReportCallback, err
	}
	exts := intersect(actualExt, cfg.RequiredExtensions)

	var layers []string
	if len(cfg.RequiredLayers) > 0 {
		actualLayers, err := ValidationLayers()
		if err != nil {
			return vk.NullHandle, vk.NullDebugReportCallback, err
		}
		layers = intersect(actualLayers, cfg.RequiredLayers)
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
			ApplicationVersion: cfg.AppVersion,
			PApplicationName:   safeString(cfg.AppName),
			PEngineName:        safeString("vukgo"),
		},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &instance)
	if err := newVkError("vkCreateInstance", ret); err != nil {
		return vk.NullHandle, vk.NullDebugReportCallback, err
	}
	vk.InitInstance(instance)

	var debugCallback vk.DebugReportCallback
	if cfg.EnableDebugCallback {
		ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: debugReportCallback,
		}, nil, &debugCallback)
		if err := newVkError("vkCreateDebugReportCallbackEXT", ret); err != nil {
			vk.DestroyInstance(instance, nil)
			return vk.NullHandle, vk.NullDebugReportCallback, err
		}
	}
	return instance, debugCallback, nil
}

func debugReportCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	log.Printf("vulkan [%s] (%d): %s", pLayerPrefix, messageCode, pMessage)
	return vk.False
}

func newVkError(op string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return errors.Errorf("swapchain: %s: vulkan result %d", op, ret)
}

func safeString(s string) string {
	return s + "\x00"
}
