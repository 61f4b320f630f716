package metadata

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the fixed vertex format every mesh is uploaded with.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
	Color    mgl32.Vec4
}

// DefaultVertexLayout describes Vertex for binding 0 with locations 0..3.
func DefaultVertexLayout() VertexLayout {
	var v Vertex
	return VertexLayout{
		Binding: 0,
		Stride:  uint32(unsafe.Sizeof(v)),
		Attributes: []VertexAttribute{
			{Location: 0, Format: FormatR32G32B32Sfloat, Offset: uint32(unsafe.Offsetof(v.Position))},
			{Location: 1, Format: FormatR32G32B32Sfloat, Offset: uint32(unsafe.Offsetof(v.Normal))},
			{Location: 2, Format: FormatR32G32Sfloat, Offset: uint32(unsafe.Offsetof(v.TexCoord))},
			{Location: 3, Format: FormatR32G32B32A32Sfloat, Offset: uint32(unsafe.Offsetof(v.Color))},
		},
	}
}

// UniformBufferObject is bound at set 0 binding 0 of the vertex stage.
type UniformBufferObject struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

const UniformBufferObjectSize = uint64(unsafe.Sizeof(UniformBufferObject{}))

func (u *UniformBufferObject) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), UniformBufferObjectSize)
}

// VertexBytes reinterprets vertices as raw bytes without copying.
func VertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	size := len(vertices) * int(unsafe.Sizeof(vertices[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
}

// IndexBytes reinterprets 32-bit indices as raw bytes without copying.
func IndexBytes(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}
