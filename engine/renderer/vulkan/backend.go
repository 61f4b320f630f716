// Package vulkan implements metadata.Driver on top of github.com/goki/vulkan.
package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type VulkanRenderer struct {
	context *VulkanContext
	locks   *VulkanLockPool
}

// NewDriver loads the Vulkan entry points. procAddr is the loader's
// vkGetInstanceProcAddr, e.g. from GLFW; nil loads the system Vulkan library.
func NewDriver(procAddr unsafe.Pointer) (*VulkanRenderer, error) {
	if procAddr != nil {
		vk.SetGetInstanceProcAddr(procAddr)
	} else if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, errors.Wrap(err, "load vulkan library")
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize vk")
	}
	return &VulkanRenderer{
		context: newVulkanContext(),
		locks:   NewVulkanLockPool(),
	}, nil
}

func (vr *VulkanRenderer) CreateInstance(info *metadata.InstanceCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeInstanceCreateInfo)

	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         info.APIVersion,
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		PApplicationName:   VulkanSafeString(info.ApplicationName),
		PEngineName:        VulkanSafeString(info.EngineName),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	extensions := append([]string(nil), info.Extensions...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)

	// If validation should be done, make sure the required layers exist.
	if len(info.Layers) > 0 {
		core.LogInfo("Validation layers enabled. Enumerating...")
		if err := checkLayers(info.Layers); err != nil {
			return metadata.NullHandle, err
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(info.Layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(info.Layers)

	var instance vk.Instance
	if err := resultError("vkCreateInstance", vk.CreateInstance(&createInfo, vr.context.Allocator, &instance)); err != nil {
		return metadata.NullHandle, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, vr.context.Allocator)
		return metadata.NullHandle, errors.Wrap(err, "init instance")
	}
	core.LogInfo("Vulkan Instance created.")

	vi := &VulkanInstance{Handle: instance}
	if info.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(instance, &debugCreateInfo, vr.context.Allocator, &dbg)); err != nil {
			// Validation output is lost but rendering works.
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", err)
		} else {
			vi.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}
	return vr.context.put(vi), nil
}

func checkLayers(required []string) error {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}

	for _, name := range required {
		core.LogInfo("Searching for layer: %s...", name)
		found := false
		for j := range available {
			available[j].Deref()
			if cString(available[j].LayerName[:]) == name {
				found = true
				break
			}
		}
		if !found {
			core.LogError("Required validation layer is missing: %s", name)
			return errors.WithStack(metadata.NewResultError("validation layer "+name, metadata.ResultErrorLayerNotPresent))
		}
	}
	return nil
}

func (vr *VulkanRenderer) DestroyInstance(instance metadata.Handle) {
	vi := lookup[*VulkanInstance](vr.context, instance)
	if vi.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vi.Handle, vi.debugMessenger, vr.context.Allocator)
	}
	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vi.Handle, vr.context.Allocator)
	vr.context.remove(instance)
}

// NativeInstance returns the vk.Instance, which is what glfw's CreateWindowSurface takes.
func (vr *VulkanRenderer) NativeInstance(instance metadata.Handle) any {
	return lookup[*VulkanInstance](vr.context, instance).Handle
}

func (vr *VulkanRenderer) ImportSurface(instance metadata.Handle, native uintptr) (metadata.Handle, error) {
	if native == 0 {
		return metadata.NullHandle, errors.New("failed to create platform surface")
	}
	lookup[*VulkanInstance](vr.context, instance)
	return vr.context.put(vk.SurfaceFromPointer(native)), nil
}

func (vr *VulkanRenderer) DestroySurface(instance, surface metadata.Handle) {
	core.LogDebug("Destroying Vulkan surface...")
	vi := lookup[*VulkanInstance](vr.context, instance)
	vk.DestroySurface(vi.Handle, lookup[vk.Surface](vr.context, surface), vr.context.Allocator)
	vr.context.remove(surface)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

var _ metadata.Driver = (*VulkanRenderer)(nil)
