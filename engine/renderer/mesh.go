package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// MeshBuffers are the device-local buffers of an uploaded mesh. They stay registered
// until ReleaseMesh or the final unwind.
type MeshBuffers struct {
	Vertex      metadata.Handle
	Index       metadata.Handle
	VertexCount uint32
	IndexCount  uint32

	vertexID ResourceID
	indexID  ResourceID
}

// UploadMesh copies vertices and indices into device-local memory through host-visible
// staging buffers. The staging buffers are gone when UploadMesh returns.
func (p Phase) UploadMesh(dev DeviceState, vertices []metadata.Vertex, indices []uint32) (mesh *MeshBuffers, err error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, errors.Newf("cannot upload an empty mesh (%d vertices, %d indices)", len(vertices), len(indices))
	}
	defer p.Registry.Scope(&err)()

	mesh = &MeshBuffers{VertexCount: uint32(len(vertices)), IndexCount: uint32(len(indices))}
	mesh.Vertex, mesh.vertexID, err = p.uploadBuffer(dev, metadata.BufferUsageVertex, metadata.VertexBytes(vertices), "vertex")
	if err != nil {
		return nil, err
	}
	mesh.Index, mesh.indexID, err = p.uploadBuffer(dev, metadata.BufferUsageIndex, metadata.IndexBytes(indices), "index")
	if err != nil {
		return nil, err
	}
	core.LogDebug("Uploaded mesh: %d vertices, %d indices.", mesh.VertexCount, mesh.IndexCount)
	return mesh, nil
}

// ReleaseMesh destroys the mesh buffers ahead of the final unwind.
func (p Phase) ReleaseMesh(mesh *MeshBuffers) {
	p.Registry.Release(mesh.indexID)
	p.Registry.Release(mesh.vertexID)
}

func (p Phase) uploadBuffer(dev DeviceState, usage metadata.BufferUsageFlags, data []byte, label string) (metadata.Handle, ResourceID, error) {
	size := uint64(len(data))

	staging, err := p.Driver.CreateBuffer(dev.Device, &metadata.BufferCreateInfo{
		SType:      metadata.StructureTypeBufferCreateInfo,
		Size:       size,
		Usage:      metadata.BufferUsageTransferSrc,
		Properties: metadata.MemoryPropertyHostVisible | metadata.MemoryPropertyHostCoherent,
	})
	if err != nil {
		return metadata.NullHandle, 0, errors.Wrapf(err, "create %s staging buffer", label)
	}
	defer p.Driver.DestroyBuffer(dev.Device, staging)

	if err := p.Driver.WriteBuffer(dev.Device, staging, 0, data); err != nil {
		return metadata.NullHandle, 0, errors.Wrapf(err, "fill %s staging buffer", label)
	}

	buffer, err := p.Driver.CreateBuffer(dev.Device, &metadata.BufferCreateInfo{
		SType:      metadata.StructureTypeBufferCreateInfo,
		Size:       size,
		Usage:      usage | metadata.BufferUsageTransferDst,
		Properties: metadata.MemoryPropertyDeviceLocal,
	})
	if err != nil {
		return metadata.NullHandle, 0, errors.Wrapf(err, "create %s buffer", label)
	}
	id := p.Registry.Push(KindBuffer, label, func() { p.Driver.DestroyBuffer(dev.Device, buffer) })

	if err := p.RunSingleUse(dev, func(cb *CommandBuffer) {
		p.Driver.CmdCopyBuffer(cb.Handle, staging, buffer, size)
	}); err != nil {
		return metadata.NullHandle, 0, errors.Wrapf(err, "copy %s buffer", label)
	}
	return buffer, id, nil
}
