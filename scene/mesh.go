package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/gpu"
)

// Mesh holds CPU-side vertex/index data. Upload creates the device copy.
type Mesh struct {
	Name     string
	Vertices []gpu.Vertex
	Indices  []uint32

	// Cached local-space AABB (computed by CreateMeshFromData).
	LocalAABB AABB
}

// CreateMeshFromData builds a Mesh and pre-computes its local-space AABB.
func CreateMeshFromData(name string, vertices []gpu.Vertex, indices []uint32) *Mesh {
	m := &Mesh{
		Name:      name,
		Vertices:  vertices,
		Indices:   indices,
		LocalAABB: EmptyAABB(),
	}
	for _, v := range vertices {
		m.LocalAABB = m.LocalAABB.Extend(v.Position)
	}
	return m
}

func (m *Mesh) Upload(dev gpu.Device) (gpu.Mesh, error) {
	gm, err := dev.CreateMesh(m.Vertices, m.Indices)
	if err != nil {
		return nil, fmt.Errorf("upload mesh %q: %w", m.Name, err)
	}
	return gm, nil
}

// SetColor overwrites every vertex color.
func (m *Mesh) SetColor(c mgl32.Vec4) {
	for i := range m.Vertices {
		m.Vertices[i].Color = c
	}
}
