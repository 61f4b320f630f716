package renderer

import (
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/headless"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func adapterOfType(name string, t metadata.PhysicalDeviceType) headless.Adapter {
	a := headless.DefaultAdapter(name)
	a.Properties.Type = t
	return a
}

func TestSelectPhysicalDevicePrefersDiscrete(t *testing.T) {
	drv := headless.NewDriver(
		adapterOfType("integrated", metadata.PhysicalDeviceTypeIntegrated),
		adapterOfType("discrete", metadata.PhysicalDeviceTypeDiscrete),
		adapterOfType("cpu", metadata.PhysicalDeviceTypeCPU),
	)
	gpu, _, err := SelectPhysicalDevice(drv, metadata.NullHandle, metadata.NullHandle, DefaultDeviceCriteria())
	if err != nil {
		t.Fatal(err)
	}
	if gpu.Properties.Name != "discrete" {
		t.Fatalf("selected %q, want discrete", gpu.Properties.Name)
	}
}

func TestSelectPhysicalDeviceIntegratedOverOther(t *testing.T) {
	drv := headless.NewDriver(
		adapterOfType("virtual", metadata.PhysicalDeviceTypeVirtual),
		adapterOfType("integrated", metadata.PhysicalDeviceTypeIntegrated),
	)
	gpu, _, err := SelectPhysicalDevice(drv, metadata.NullHandle, metadata.NullHandle, DefaultDeviceCriteria())
	if err != nil {
		t.Fatal(err)
	}
	if gpu.Properties.Name != "integrated" {
		t.Fatalf("selected %q, want integrated", gpu.Properties.Name)
	}
}

func TestSelectPhysicalDeviceFirstWinsTie(t *testing.T) {
	drv := headless.NewDriver(
		adapterOfType("first", metadata.PhysicalDeviceTypeDiscrete),
		adapterOfType("second", metadata.PhysicalDeviceTypeDiscrete),
	)
	gpu, _, err := SelectPhysicalDevice(drv, metadata.NullHandle, metadata.NullHandle, DefaultDeviceCriteria())
	if err != nil {
		t.Fatal(err)
	}
	if gpu.Properties.Name != "first" {
		t.Fatalf("selected %q, want first", gpu.Properties.Name)
	}
}

func TestSelectPhysicalDeviceSkipsUnqualified(t *testing.T) {
	noPresent := adapterOfType("no present", metadata.PhysicalDeviceTypeDiscrete)
	noPresent.PresentFamilies = []uint32{}
	noSwapchain := adapterOfType("no swapchain", metadata.PhysicalDeviceTypeDiscrete)
	noSwapchain.Extensions = nil
	noFormats := adapterOfType("no formats", metadata.PhysicalDeviceTypeDiscrete)
	noFormats.Formats = nil
	fallback := adapterOfType("fallback", metadata.PhysicalDeviceTypeIntegrated)

	drv := headless.NewDriver(noPresent, noSwapchain, noFormats, fallback)
	gpu, _, err := SelectPhysicalDevice(drv, metadata.NullHandle, metadata.NullHandle, DefaultDeviceCriteria())
	if err != nil {
		t.Fatal(err)
	}
	if gpu.Properties.Name != "fallback" {
		t.Fatalf("selected %q, want fallback", gpu.Properties.Name)
	}
}

func TestSelectPhysicalDeviceNoneSuitable(t *testing.T) {
	noGraphics := adapterOfType("compute only", metadata.PhysicalDeviceTypeDiscrete)
	noGraphics.QueueFamilies = []metadata.QueueFamilyProperties{{Flags: metadata.QueueCompute | metadata.QueueTransfer, QueueCount: 4}}

	drv := headless.NewDriver(noGraphics)
	_, _, err := SelectPhysicalDevice(drv, metadata.NullHandle, metadata.NullHandle, DefaultDeviceCriteria())
	if !errors.Is(err, core.ErrNoSuitableDevice) {
		t.Fatalf("expected ErrNoSuitableDevice, got %v", err)
	}

	drv = headless.NewDriver()
	drv.Adapters = nil
	_, _, err = SelectPhysicalDevice(drv, metadata.NullHandle, metadata.NullHandle, DefaultDeviceCriteria())
	if !errors.Is(err, core.ErrNoSuitableDevice) {
		t.Fatalf("expected ErrNoSuitableDevice without adapters, got %v", err)
	}
}

func TestSelectPhysicalDeviceAnisotropyCriterion(t *testing.T) {
	plain := adapterOfType("plain", metadata.PhysicalDeviceTypeDiscrete)
	plain.Features.SamplerAnisotropy = false
	drv := headless.NewDriver(plain)

	criteria := DefaultDeviceCriteria()
	criteria.SamplerAnisotropy = true
	if _, _, err := SelectPhysicalDevice(drv, metadata.NullHandle, metadata.NullHandle, criteria); !errors.Is(err, core.ErrNoSuitableDevice) {
		t.Fatalf("expected ErrNoSuitableDevice, got %v", err)
	}
}

func TestFindQueueFamiliesDedicatedTransfer(t *testing.T) {
	a := headless.DefaultAdapter("split")
	a.QueueFamilies = []metadata.QueueFamilyProperties{
		{Flags: metadata.QueueGraphics | metadata.QueueCompute | metadata.QueueTransfer, QueueCount: 16},
		{Flags: metadata.QueueTransfer, QueueCount: 2},
		{Flags: metadata.QueueCompute, QueueCount: 0},
	}
	a.PresentFamilies = []uint32{1}
	drv := headless.NewDriver(a)
	gpus, err := EnumeratePhysicalDevices(drv, metadata.NullHandle)
	if err != nil {
		t.Fatal(err)
	}

	q, err := FindQueueFamilies(drv, &gpus[0], metadata.NullHandle)
	if err != nil {
		t.Fatal(err)
	}
	if q.Graphics != someQueue(0) || q.Compute != someQueue(0) {
		t.Fatalf("graphics/compute = %+v/%+v, want family 0", q.Graphics, q.Compute)
	}
	if q.Transfer != someQueue(1) {
		t.Fatalf("transfer = %+v, want dedicated family 1", q.Transfer)
	}
	if q.Present != someQueue(1) {
		t.Fatalf("present = %+v, want family 1", q.Present)
	}
	if got := q.Unique(); !slices.Equal(got, []uint32{0, 1}) {
		t.Fatalf("unique families %v, want [0 1]", got)
	}
}

func TestFindQueueFamiliesPresentPrefersGraphics(t *testing.T) {
	a := headless.DefaultAdapter("present")
	a.QueueFamilies = []metadata.QueueFamilyProperties{
		{Flags: metadata.QueueTransfer, QueueCount: 1},
		{Flags: metadata.QueueGraphics | metadata.QueueCompute | metadata.QueueTransfer, QueueCount: 1},
	}
	drv := headless.NewDriver(a)
	gpus, err := EnumeratePhysicalDevices(drv, metadata.NullHandle)
	if err != nil {
		t.Fatal(err)
	}
	q, err := FindQueueFamilies(drv, &gpus[0], metadata.NullHandle)
	if err != nil {
		t.Fatal(err)
	}
	if q.Present != someQueue(1) {
		t.Fatalf("present = %+v, want the graphics family 1", q.Present)
	}
}

func TestCreateDeviceRegistersDeviceAndPool(t *testing.T) {
	drv := headless.NewDriver()
	phase, _, dev := setupDevice(t, drv)

	want := []ResourceKind{KindInstance, KindSurface, KindDevice, KindCommandPool}
	if got := phase.Registry.Kinds(); !slices.Equal(got, want) {
		t.Fatalf("registry kinds %v, want %v", got, want)
	}
	info := drv.LastInfo("Device").(metadata.DeviceCreateInfo)
	if !slices.Equal(info.QueueFamilies, []uint32{0}) {
		t.Fatalf("device queue families %v, want [0]", info.QueueFamilies)
	}
	if !slices.Contains(info.Extensions, SwapchainExtensionName) {
		t.Fatalf("device extensions %v miss the swapchain extension", info.Extensions)
	}
	if dev.GraphicsQueue.IsNull() || dev.GraphicsQueue != dev.PresentQueue {
		t.Fatalf("graphics queue %s, present queue %s", dev.GraphicsQueue, dev.PresentQueue)
	}

	phase.Registry.Unwind()
	if n := drv.Live(""); n != 0 {
		t.Fatalf("%d objects alive after unwind", n)
	}
}

func TestCreateDeviceFailureLeavesNothing(t *testing.T) {
	drv := headless.NewDriver()
	drv.Fail["CommandPool"] = metadata.ResultErrorOutOfHostMemory
	phase := Phase{Driver: drv, Registry: NewRegistry()}
	inst, err := phase.CreateInstance(InstanceConfig{ApplicationName: "test"}, newFakeSurface(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	mark := phase.Registry.Mark()

	_, err = phase.CreateDevice(inst, DefaultDeviceCriteria())
	if err == nil {
		t.Fatal("expected error")
	}
	var re *metadata.ResultError
	if !errors.As(err, &re) || re.Result != metadata.ResultErrorOutOfHostMemory {
		t.Fatalf("expected out of host memory, got %v", err)
	}
	if phase.Registry.Mark() != mark || drv.Live("Device") != 0 {
		t.Fatalf("failed device phase left objects behind: %v", phase.Registry.Kinds())
	}
}

func TestCreateDeviceAddsPortabilitySubset(t *testing.T) {
	a := headless.DefaultAdapter("moltenvk")
	a.Extensions = append(a.Extensions, PortabilitySubsetExtName)
	drv := headless.NewDriver(a)
	setupDevice(t, drv)

	info := drv.LastInfo("Device").(metadata.DeviceCreateInfo)
	if !slices.Contains(info.Extensions, PortabilitySubsetExtName) {
		t.Fatalf("device extensions %v miss %s", info.Extensions, PortabilitySubsetExtName)
	}
}
