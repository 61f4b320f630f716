package metadata

import "fmt"

// Result mirrors the driver result codes the frame loop cares about. Values match VkResult.
type Result int32

const (
	ResultSuccess                   Result = 0
	ResultNotReady                  Result = 1
	ResultTimeout                   Result = 2
	ResultIncomplete                Result = 5
	ResultSuboptimal                Result = 1000001003
	ResultErrorOutOfHostMemory      Result = -1
	ResultErrorOutOfDeviceMemory    Result = -2
	ResultErrorInitializationFailed Result = -3
	ResultErrorDeviceLost           Result = -4
	ResultErrorMemoryMapFailed      Result = -5
	ResultErrorLayerNotPresent      Result = -6
	ResultErrorExtensionNotPresent  Result = -7
	ResultErrorFeatureNotPresent    Result = -8
	ResultErrorIncompatibleDriver   Result = -9
	ResultErrorUnknown              Result = -13
	ResultErrorSurfaceLost          Result = -1000000000
	ResultErrorOutOfDate            Result = -1000001004
)

var resultNames = map[Result]string{
	ResultSuccess:                   "VK_SUCCESS",
	ResultNotReady:                  "VK_NOT_READY",
	ResultTimeout:                   "VK_TIMEOUT",
	ResultIncomplete:                "VK_INCOMPLETE",
	ResultSuboptimal:                "VK_SUBOPTIMAL_KHR",
	ResultErrorOutOfHostMemory:      "VK_ERROR_OUT_OF_HOST_MEMORY",
	ResultErrorOutOfDeviceMemory:    "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	ResultErrorInitializationFailed: "VK_ERROR_INITIALIZATION_FAILED",
	ResultErrorDeviceLost:           "VK_ERROR_DEVICE_LOST",
	ResultErrorMemoryMapFailed:      "VK_ERROR_MEMORY_MAP_FAILED",
	ResultErrorLayerNotPresent:      "VK_ERROR_LAYER_NOT_PRESENT",
	ResultErrorExtensionNotPresent:  "VK_ERROR_EXTENSION_NOT_PRESENT",
	ResultErrorFeatureNotPresent:    "VK_ERROR_FEATURE_NOT_PRESENT",
	ResultErrorIncompatibleDriver:   "VK_ERROR_INCOMPATIBLE_DRIVER",
	ResultErrorUnknown:              "VK_ERROR_UNKNOWN",
	ResultErrorSurfaceLost:          "VK_ERROR_SURFACE_LOST_KHR",
	ResultErrorOutOfDate:            "VK_ERROR_OUT_OF_DATE_KHR",
}

func (r Result) String() string {
	if s, ok := resultNames[r]; ok {
		return s
	}
	return fmt.Sprintf("VkResult(%d)", int32(r))
}

// IsError reports whether r is an error code. Success, suboptimal, timeout and not-ready are not.
func (r Result) IsError() bool {
	return r < 0
}

// IsStale reports whether the swapchain that produced r must be rebuilt.
func (r Result) IsStale() bool {
	return r == ResultErrorOutOfDate || r == ResultSuboptimal
}

// ResultError carries the failing driver operation and its result code.
type ResultError struct {
	Op     string
	Result Result
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s failed with %s", e.Op, e.Result)
}

func NewResultError(op string, result Result) error {
	return &ResultError{Op: op, Result: result}
}
