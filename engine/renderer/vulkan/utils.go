package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// toResult converts a VkResult. The numeric values are shared.
func toResult(res vk.Result) metadata.Result {
	return metadata.Result(res)
}

// resultError is nil on VK_SUCCESS and a *metadata.ResultError otherwise.
func resultError(op string, res vk.Result) error {
	if res == vk.Success {
		return nil
	}
	return errors.WithStack(metadata.NewResultError(op, toResult(res)))
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

// VulkanSafeStrings returns null terminated copies; list is left untouched.
func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}

// cString converts a fixed size, null terminated name field.
func cString(arr []byte) string {
	return string(arr[:FindFirstZeroInByteArray(arr)])
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// repackUint32 reinterprets SPIR-V bytes as the words vkCreateShaderModule expects.
func repackUint32(data []byte) []uint32 {
	buf := make([]uint32, len(data)/4)
	if len(buf) > 0 {
		vk.Memcopy(unsafe.Pointer(&buf[0]), data)
	}
	return buf
}

func toExtent(e metadata.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

func fromExtent(e vk.Extent2D) metadata.Extent2D {
	e.Deref()
	return metadata.Extent2D{Width: e.Width, Height: e.Height}
}
