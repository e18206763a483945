// Package stl reads binary STL meshes.
package stl

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"dynamik/graphics"
	"dynamik/model"
)

const (
	headerSize   = 80
	triangleSize = 50
)

var ErrTruncated = errors.New("stl: truncated triangle data")

// ReadFile loads the binary STL at path. Every triangle gets its own three
// vertices colored by the facet normal.
func ReadFile(path string) (*model.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		graphics.Logger().Error("failed to open stl file", slog.String("path", path), slog.Any("err", err))
		return nil, errors.Wrap(err, "stl")
	}
	defer f.Close()
	mesh, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	graphics.Logger().Info("read stl file",
		slog.String("path", path),
		slog.Int("triangles", len(mesh.Indices)/3))
	return mesh, nil
}

// Read decodes a binary STL from r. The body is read up to the declared
// triangle count, so buffers grow with the data actually present rather
// than the count in the header.
func Read(r io.Reader) (*model.Mesh, error) {
	var head [headerSize + 4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, errors.Wrap(err, "stl header")
	}
	count := binary.LittleEndian.Uint32(head[headerSize:])
	want := int64(count) * triangleSize
	body, err := io.ReadAll(io.LimitReader(r, want))
	if err != nil {
		return nil, errors.Wrap(err, "stl body")
	}
	if int64(len(body)) < want {
		return nil, errors.Wrapf(ErrTruncated, "%d triangles declared, %d bytes present", count, len(body))
	}
	return toMesh(body), nil
}

func toMesh(b []byte) *model.Mesh {
	n := len(b) / triangleSize * 3
	vertices := make([]model.Vertex, 0, n)
	indices := make([]uint32, 0, n)
	for i := 0; i < len(b); i += triangleSize {
		normal := toVec3(b[i:])
		color := mgl32.Vec3{abs(normal[0]), abs(normal[1]), abs(normal[2])}
		for v := 0; v < 3; v++ {
			indices = append(indices, uint32(len(vertices)))
			vertices = append(vertices, model.Vertex{Pos: toVec3(b[i+12+v*12:]), Color: color})
		}
		// the trailing two byte attribute count is ignored
	}
	return model.NewMesh(vertices, indices)
}

func toVec3(b []byte) mgl32.Vec3 {
	return mgl32.Vec3{toFloat32(b[0:]), toFloat32(b[4:]), toFloat32(b[8:])}
}

func toFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func abs(f float32) float32 { return float32(math.Abs(float64(f))) }
