package model

import "github.com/go-gl/mathgl/mgl32"

func NewCube(name string) *Model {
	v := []Vertex{
		{Pos: mgl32.Vec3{-0.5, -0.5, -0.5}, Color: mgl32.Vec3{1, 0, 0}},
		{Pos: mgl32.Vec3{0.5, -0.5, -0.5}, Color: mgl32.Vec3{0, 1, 0}},
		{Pos: mgl32.Vec3{0.5, 0.5, -0.5}, Color: mgl32.Vec3{0, 0, 1}},
		{Pos: mgl32.Vec3{-0.5, 0.5, -0.5}, Color: mgl32.Vec3{1, 0.5, 1}},
		{Pos: mgl32.Vec3{-0.5, -0.5, 0.5}, Color: mgl32.Vec3{1, 0.5, 0.5}},
		{Pos: mgl32.Vec3{0.5, -0.5, 0.5}, Color: mgl32.Vec3{0.5, 1, 0.5}},
		{Pos: mgl32.Vec3{0.5, 0.5, 0.5}, Color: mgl32.Vec3{0.5, 0.5, 1}},
		{Pos: mgl32.Vec3{-0.5, 0.5, 0.5}, Color: mgl32.Vec3{0, 0.5, 0}},
	}
	indices := []uint32{
		2, 1, 0, 0, 3, 2, // front
		5, 1, 6, 1, 2, 6, // right
		4, 5, 6, 7, 4, 6, // back
		4, 7, 0, 0, 7, 3, // left
		0, 1, 5, 5, 4, 0, // top
		3, 7, 6, 2, 3, 6, // bottom
	}
	return NewModel(NewMesh(v, indices), name)
}

// NewGridPlane is a 2x2 quad in the xy plane.
func NewGridPlane(name string) *Model {
	v := []Vertex{
		{Pos: mgl32.Vec3{-1, -1, 0}, Color: mgl32.Vec3{1, 0, 0}},
		{Pos: mgl32.Vec3{-1, 1, 0}, Color: mgl32.Vec3{0, 1, 0}},
		{Pos: mgl32.Vec3{1, 1, 0}, Color: mgl32.Vec3{0, 0, 1}},
		{Pos: mgl32.Vec3{1, -1, 0}, Color: mgl32.Vec3{1, 0.5, 1}},
	}
	return NewModel(NewMesh(v, []uint32{0, 1, 2, 2, 3, 0}), name)
}
