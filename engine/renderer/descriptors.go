package renderer

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// DescriptorSetLayout keeps the bindings next to the handle so allocations can be checked
// against a pool.
type DescriptorSetLayout struct {
	Handle   metadata.Handle
	Bindings []metadata.DescriptorSetLayoutBinding
}

// UniformSetLayoutBindings is binding 0: one uniform buffer read by the vertex stage.
func UniformSetLayoutBindings() []metadata.DescriptorSetLayoutBinding {
	return []metadata.DescriptorSetLayoutBinding{{
		Binding:    0,
		Type:       metadata.DescriptorTypeUniformBuffer,
		Count:      1,
		StageFlags: metadata.ShaderStageVertex,
	}}
}

func (p Phase) CreateDescriptorSetLayout(device metadata.Handle, bindings []metadata.DescriptorSetLayoutBinding) (*DescriptorSetLayout, error) {
	h, err := p.Driver.CreateDescriptorSetLayout(device, &metadata.DescriptorSetLayoutCreateInfo{
		SType:    metadata.StructureTypeDescriptorSetLayoutCreateInfo,
		Bindings: bindings,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor set layout")
	}
	p.Registry.Push(KindDescriptorSetLayout, fmt.Sprintf("%d bindings", len(bindings)),
		func() { p.Driver.DestroyDescriptorSetLayout(device, h) })
	return &DescriptorSetLayout{Handle: h, Bindings: bindings}, nil
}

// DescriptorPool tracks the capacity left in a driver descriptor pool.
type DescriptorPool struct {
	Handle metadata.Handle

	driver    metadata.Driver
	device    metadata.Handle
	setsLeft  uint32
	available map[metadata.DescriptorType]uint32
}

func (p Phase) CreateDescriptorPool(device metadata.Handle, maxSets uint32, sizes []metadata.DescriptorPoolSize) (*DescriptorPool, error) {
	h, err := p.Driver.CreateDescriptorPool(device, &metadata.DescriptorPoolCreateInfo{
		SType:     metadata.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:   maxSets,
		PoolSizes: sizes,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor pool")
	}
	p.Registry.Push(KindDescriptorPool, fmt.Sprintf("%d sets", maxSets),
		func() { p.Driver.DestroyDescriptorPool(device, h) })

	pool := &DescriptorPool{
		Handle:    h,
		driver:    p.Driver,
		device:    device,
		setsLeft:  maxSets,
		available: make(map[metadata.DescriptorType]uint32),
	}
	for _, s := range sizes {
		pool.available[s.Type] += s.Count
	}
	return pool, nil
}

// Allocate allocates count sets of layout. Asking for a descriptor type the pool was not
// created with, or for more descriptors or sets than it has left, is a caller bug and
// panics instead of failing at the driver.
func (d *DescriptorPool) Allocate(layout *DescriptorSetLayout, count uint32) ([]metadata.Handle, error) {
	if count > d.setsLeft {
		panic(errors.AssertionFailedf("descriptor pool %s has %d sets left, %d requested", d.Handle, d.setsLeft, count))
	}
	need := make(map[metadata.DescriptorType]uint32)
	for _, b := range layout.Bindings {
		need[b.Type] += b.Count * count
	}
	for t, n := range need {
		have, ok := d.available[t]
		if !ok {
			panic(errors.AssertionFailedf("descriptor pool %s holds no %s descriptors", d.Handle, t))
		}
		if n > have {
			panic(errors.AssertionFailedf("descriptor pool %s has %d %s descriptors left, %d requested", d.Handle, have, t, n))
		}
	}

	layouts := make([]metadata.Handle, count)
	for i := range layouts {
		layouts[i] = layout.Handle
	}
	sets, err := d.driver.AllocateDescriptorSets(d.device, &metadata.DescriptorSetAllocateInfo{
		SType:      metadata.StructureTypeDescriptorSetAllocateInfo,
		Pool:       d.Handle,
		SetLayouts: layouts,
	})
	if err != nil {
		return nil, errors.Wrap(err, "allocate descriptor sets")
	}
	d.setsLeft -= count
	for t, n := range need {
		d.available[t] -= n
	}
	return sets, nil
}

// WriteUniform points binding of set at the whole of buffer.
func (d *DescriptorPool) WriteUniform(set metadata.Handle, binding uint32, buffer metadata.Handle, size uint64) {
	d.driver.UpdateDescriptorBuffer(d.device, &metadata.DescriptorBufferWrite{
		SType:   metadata.StructureTypeWriteDescriptorSet,
		Set:     set,
		Binding: binding,
		Type:    metadata.DescriptorTypeUniformBuffer,
		Buffer:  buffer,
		Offset:  0,
		Range:   size,
	})
}
