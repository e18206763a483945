package model

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the size of one packed Vertex. Each vec3 occupies a vec4
// slot to match the reflected vertex input layout.
const VertexStride = 32

type Vertex struct {
	Pos   mgl32.Vec3
	Color mgl32.Vec3
}

type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

func NewMesh(v []Vertex, indices []uint32) *Mesh {
	return &Mesh{Vertices: v, Indices: indices}
}

// VertexBytes packs the vertices for upload into a vertex buffer.
func (m *Mesh) VertexBytes() []byte {
	b := make([]byte, 0, len(m.Vertices)*VertexStride)
	for _, v := range m.Vertices {
		b = appendFloats(b, v.Pos[:]...)
		b = appendFloats(b, 0)
		b = appendFloats(b, v.Color[:]...)
		b = appendFloats(b, 1)
	}
	return b
}

func (m *Mesh) IndexBytes() []byte {
	b := make([]byte, 0, len(m.Indices)*4)
	for _, i := range m.Indices {
		b = binary.LittleEndian.AppendUint32(b, i)
	}
	return b
}

// Model is a named mesh placed in the scene with its own transform.
type Model struct {
	Name      string
	Mesh      *Mesh
	Transform mgl32.Mat4
}

func NewModel(m *Mesh, name string) *Model {
	return &Model{Name: name, Mesh: m, Transform: mgl32.Ident4()}
}

// PushConstantsSize is the size of the per model push constant block, the
// model matrix.
const PushConstantsSize = 64

func (m *Model) PushConstants() []byte {
	return appendFloats(make([]byte, 0, PushConstantsSize), m.Transform[:]...)
}

// CameraUniform is the view block shared by every model in a frame.
type CameraUniform struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

const CameraUniformSize = 128

func (u CameraUniform) Bytes() []byte {
	b := make([]byte, 0, CameraUniformSize)
	b = appendFloats(b, u.View[:]...)
	return appendFloats(b, u.Projection[:]...)
}

func appendFloats(b []byte, fs ...float32) []byte {
	for _, f := range fs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}
