package renderer

import (
	"fmt"

	"deferred-renderer/gpu"
	"deferred-renderer/scene"
)

// QuadRenderer draws a clip-space quad covering the whole bound target.
// Vertex positions span [-1,1]; texture coordinates span [0,1] with (0,0) at
// the bottom-left.
type QuadRenderer struct {
	device gpu.Device
	mesh   gpu.Mesh
	draws  int
}

func NewQuadRenderer(device gpu.Device) (*QuadRenderer, error) {
	m, err := scene.CreateQuad().Upload(device)
	if err != nil {
		return nil, fmt.Errorf("create quad: %w", err)
	}
	return &QuadRenderer{device: device, mesh: m}, nil
}

// Draw issues the quad with whatever program and state are active.
func (q *QuadRenderer) Draw() {
	q.device.DrawIndexed(q.mesh)
	q.draws++
}

func (q *QuadRenderer) Draws() int { return q.draws }

func (q *QuadRenderer) Release() {
	if q.mesh != nil {
		q.mesh.Destroy()
		q.mesh = nil
	}
}
