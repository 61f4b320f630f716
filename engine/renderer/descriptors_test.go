package renderer

import (
	"testing"

	"github.com/spaghettifunk/ember/engine/renderer/headless"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func TestDescriptorPoolAllocate(t *testing.T) {
	drv := headless.NewDriver()
	phase, _, dev := setupDevice(t, drv)

	layout, err := phase.CreateDescriptorSetLayout(dev.Device, UniformSetLayoutBindings())
	if err != nil {
		t.Fatal(err)
	}
	pool, err := phase.CreateDescriptorPool(dev.Device, 3, []metadata.DescriptorPoolSize{
		{Type: metadata.DescriptorTypeUniformBuffer, Count: 3},
	})
	if err != nil {
		t.Fatal(err)
	}

	sets, err := pool.Allocate(layout, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 2 || sets[0] == sets[1] {
		t.Fatalf("allocated sets %v", sets)
	}
	if _, err := pool.Allocate(layout, 1); err != nil {
		t.Fatal(err)
	}
	mustPanic(t, "exhausted pool", func() { _, _ = pool.Allocate(layout, 1) })

	pool.WriteUniform(sets[0], 0, metadata.Handle(42), metadata.UniformBufferObjectSize)
	write := drv.LastInfo("DescriptorWrite").(metadata.DescriptorBufferWrite)
	if write.Set != sets[0] || write.Buffer != 42 || write.Range != metadata.UniformBufferObjectSize {
		t.Fatalf("descriptor write %+v", write)
	}
}

func TestDescriptorPoolRejectsForeignTypes(t *testing.T) {
	drv := headless.NewDriver()
	phase, _, dev := setupDevice(t, drv)
	layout, err := phase.CreateDescriptorSetLayout(dev.Device, UniformSetLayoutBindings())
	if err != nil {
		t.Fatal(err)
	}

	storage, err := phase.CreateDescriptorPool(dev.Device, 4, []metadata.DescriptorPoolSize{
		{Type: metadata.DescriptorTypeStorageBuffer, Count: 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	mustPanic(t, "type missing from pool", func() { _, _ = storage.Allocate(layout, 1) })

	small, err := phase.CreateDescriptorPool(dev.Device, 4, []metadata.DescriptorPoolSize{
		{Type: metadata.DescriptorTypeUniformBuffer, Count: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	mustPanic(t, "too few descriptors", func() { _, _ = small.Allocate(layout, 2) })
	if drv.Calls("AllocateDescriptorSets") != 0 {
		t.Fatal("rejected allocations reached the driver")
	}
}

func TestStructureTypeMismatchPanics(t *testing.T) {
	drv := headless.NewDriver()
	_, _, dev := setupDevice(t, drv)

	mustPanic(t, "fence with semaphore tag", func() {
		_, _ = drv.CreateFence(dev.Device, &metadata.FenceCreateInfo{SType: metadata.StructureTypeSemaphoreCreateInfo})
	})
	mustPanic(t, "untagged pool", func() {
		_, _ = drv.CreateDescriptorPool(dev.Device, &metadata.DescriptorPoolCreateInfo{MaxSets: 1})
	})
	if drv.Live("Fence") != 0 || drv.Live("DescriptorPool") != 0 {
		t.Fatal("mistagged create produced an object")
	}
}
