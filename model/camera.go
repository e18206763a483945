package model

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"dynamik/graphics"
)

type Projection int

const (
	ProjectionPerspective Projection = iota
	ProjectionOrthographic
)

// Camera produces the view and projection matrices for Vulkan's clip space:
// y points down and depth spans [0, 1].
type Camera struct {
	Projection Projection

	// Fov is the vertical field of view in degrees.
	Fov    float32
	Aspect float32
	Near   float32
	Far    float32

	Pos     mgl32.Vec3
	LookDir mgl32.Vec3
	// Target overrides LookDir when set.
	Target *mgl32.Vec3
	Up     mgl32.Vec3
}

func NewCamera(fov, near, far float32) *Camera {
	return &Camera{
		Fov:     fov,
		Aspect:  1,
		Near:    near,
		Far:     far,
		LookDir: mgl32.Vec3{0, 0, 1},
		Up:      mgl32.Vec3{0, 1, 0},
	}
}

// DefaultCamera looks down +z from two units behind the origin.
func DefaultCamera(aspect float32) *Camera {
	c := NewCamera(45, 0.1, 100)
	c.Aspect = aspect
	c.Move(mgl32.Vec3{0, 0, -2})
	return c
}

func (c *Camera) Move(v mgl32.Vec3) { c.Pos = c.Pos.Add(v) }

// Turn rotates the look direction around axis.
func (c *Camera) Turn(deg float32, axis mgl32.Vec3) {
	rot := mgl32.HomogRotate3D(mgl32.DegToRad(deg), axis.Normalize())
	c.LookDir = rot.Mul4x1(c.LookDir.Vec4(0)).Vec3()
}

func (c *Camera) SetTarget(v mgl32.Vec3) { c.Target = &v }

func (c *Camera) ClearTarget() { c.Target = nil }

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	var m mgl32.Mat4
	switch c.Projection {
	case ProjectionPerspective:
		m = perspective(mgl32.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
	case ProjectionOrthographic:
		m = orthographic(-c.Aspect, c.Aspect, -1, 1, c.Near, c.Far)
	default:
		graphics.Logger().Error("unknown camera projection, using identity", slog.Int("projection", int(c.Projection)))
		return mgl32.Ident4()
	}
	return m
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	dir := c.LookDir
	if c.Target != nil {
		dir = c.Target.Sub(c.Pos)
	}
	if dir.Len() == 0 {
		graphics.Logger().Warn("camera looks at its own position, using +z")
		dir = mgl32.Vec3{0, 0, 1}
	}
	return mgl32.LookAtV(c.Pos, c.Pos.Add(dir), c.Up)
}

// Uniform is the camera block as uploaded to the view uniform buffer.
func (c *Camera) Uniform() CameraUniform {
	return CameraUniform{View: c.ViewMatrix(), Projection: c.ProjectionMatrix()}
}

// perspective is mgl32.Perspective remapped to a [0, 1] depth range with y
// flipped.
func perspective(fovy, aspect, near, far float32) mgl32.Mat4 {
	m := mgl32.Perspective(fovy, aspect, near, far)
	m[5] = -m[5]
	m[10] = far / (near - far)
	m[14] = near * far / (near - far)
	return m
}

func orthographic(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	m := mgl32.Ortho(left, right, bottom, top, near, far)
	m[5] = -m[5]
	m[10] = -1 / (far - near)
	m[14] = -near / (far - near)
	return m
}
