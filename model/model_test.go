package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatAt(b []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
}

func TestVertexBytesPadVec3(t *testing.T) {
	m := NewMesh([]Vertex{{Pos: mgl32.Vec3{1, 2, 3}, Color: mgl32.Vec3{4, 5, 6}}}, []uint32{0, 7})

	b := m.VertexBytes()
	require.Len(t, b, VertexStride)
	assert.Equal(t, []float32{1, 2, 3, 0, 4, 5, 6, 1}, []float32{
		floatAt(b, 0), floatAt(b, 1), floatAt(b, 2), floatAt(b, 3),
		floatAt(b, 4), floatAt(b, 5), floatAt(b, 6), floatAt(b, 7),
	})

	idx := m.IndexBytes()
	require.Len(t, idx, 8)
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(idx[4:]))
}

func TestCameraUniformLayout(t *testing.T) {
	u := CameraUniform{View: mgl32.Translate3D(1, 2, 3), Projection: mgl32.Ident4()}
	b := u.Bytes()
	require.Len(t, b, CameraUniformSize)
	// column major, translation in the last column
	assert.Equal(t, float32(1), floatAt(b, 12))
	assert.Equal(t, float32(3), floatAt(b, 14))
	assert.Equal(t, float32(1), floatAt(b, 16))

	model := NewCube("cube")
	model.Transform = mgl32.Scale3D(2, 2, 2)
	pc := model.PushConstants()
	require.Len(t, pc, PushConstantsSize)
	assert.Equal(t, float32(2), floatAt(pc, 0))
}

func TestPerspectiveDepthRange(t *testing.T) {
	c := DefaultCamera(1)
	vp := c.ProjectionMatrix().Mul4(c.ViewMatrix())

	project := func(p mgl32.Vec3) mgl32.Vec3 {
		clip := vp.Mul4x1(p.Vec4(1))
		return clip.Vec3().Mul(1 / clip.W())
	}
	near := project(mgl32.Vec3{0, 0, -2 + 0.1})
	far := project(mgl32.Vec3{0, 0, -2 + 100})
	assert.InDelta(t, 0, near.Z(), 1e-4)
	assert.InDelta(t, 1, far.Z(), 1e-4)

	// y is flipped for Vulkan
	up := project(mgl32.Vec3{0, 0.5, 0})
	assert.Less(t, up.Y(), float32(0))
}

func TestCameraTargetAndTurn(t *testing.T) {
	c := NewCamera(60, 1, 10)
	c.Turn(90, mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, 1, c.LookDir.X(), 1e-5)
	assert.InDelta(t, 0, c.LookDir.Z(), 1e-5)

	c.Pos = mgl32.Vec3{0, 0, 5}
	c.SetTarget(mgl32.Vec3{0, 0, 0})
	view := c.ViewMatrix()
	origin := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -5, origin.Z(), 1e-5)

	c.SetTarget(c.Pos)
	assert.Equal(t, mgl32.LookAtV(c.Pos, c.Pos.Add(mgl32.Vec3{0, 0, 1}), c.Up), c.ViewMatrix())

	c.Projection = Projection(7)
	assert.Equal(t, mgl32.Ident4(), c.ProjectionMatrix())
}

func TestShapes(t *testing.T) {
	cube := NewCube("cube")
	assert.Len(t, cube.Mesh.Vertices, 8)
	assert.Len(t, cube.Mesh.Indices, 36)
	for _, i := range cube.Mesh.Indices {
		assert.Less(t, i, uint32(8))
	}
	assert.Equal(t, mgl32.Ident4(), cube.Transform)
	assert.Len(t, NewGridPlane("grid").Mesh.Indices, 6)
}
