// Package gui is the GUI-manager collaborator of the renderer: layered
// screen-space sprites drawn through the "gui" program.
package gui

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/core"
	"deferred-renderer/effect"
	"deferred-renderer/gpu"
)

// Program is the program sprites render through.
const Program = "gui"

// Node is a drawable GUI element. Its material is applied with the node as
// the transform context and the renderer's screen camera.
type Node interface {
	Layer() int
	Material() *effect.Effect
	// WorldMatrix maps the [-1,1] quad to pixel coordinates.
	WorldMatrix() mgl32.Mat4
}

// Sprite is a solid or textured rectangle in pixel coordinates with the
// origin at the top-left corner of the target.
type Sprite struct {
	Name    string
	Visible bool

	rect     core.Rect
	layer    int
	material *effect.Effect
	color    *effect.Parameter
	texture  *effect.Parameter
	has      *effect.Parameter
}

// NewSprite creates a sprite on a loaded gui program. Sprites alpha-blend,
// ignore depth and draw both windings.
func NewSprite(program gpu.Program, name string, rect core.Rect, color core.Color) (*Sprite, error) {
	e, err := effect.New("gui:"+name, program)
	if err != nil {
		return nil, err
	}
	wvp, _ := effect.NewEngine("WorldViewProjection", effect.SourceWorldViewProjection)
	s := &Sprite{
		Name:     name,
		Visible:  true,
		rect:     rect,
		material: e,
		color:    effect.NewColor("Color", color),
		texture:  effect.NewTexture("Texture", nil, gpu.FilterLinear),
		has:      effect.NewScalar("HasTexture", 0),
	}
	for _, p := range []*effect.Parameter{wvp, s.color, s.texture, s.has} {
		if err := e.AddParameter(p); err != nil {
			return nil, fmt.Errorf("sprite %q: %w", name, err)
		}
	}
	e.SetState(gpu.StateOverride{Blend: gpu.BlendAlpha, Depth: gpu.DepthNone, Cull: gpu.CullNone})
	return s, nil
}

func (s *Sprite) Layer() int { return s.layer }

func (s *Sprite) SetLayer(layer int) { s.layer = layer }

func (s *Sprite) Material() *effect.Effect { return s.material }

func (s *Sprite) Rect() core.Rect { return s.rect }

func (s *Sprite) SetRect(r core.Rect) { s.rect = r }

func (s *Sprite) SetColor(c core.Color) {
	_ = s.color.SetColor(c)
}

// SetTexture binds t multiplied with the sprite color; nil removes it.
func (s *Sprite) SetTexture(t gpu.Texture) {
	_ = s.texture.SetTexture(t, gpu.FilterLinear)
	has := float32(0)
	if t != nil {
		has = 1
	}
	_ = s.has.SetScalar(has)
}

func (s *Sprite) WorldMatrix() mgl32.Mat4 {
	hw, hh := s.rect.Width/2, s.rect.Height/2
	return mgl32.Translate3D(s.rect.X+hw, s.rect.Y+hh, 0).Mul4(mgl32.Scale3D(hw, hh, 1))
}

// Manager keeps GUI nodes in insertion order.
type Manager struct {
	nodes []*Sprite
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Add(s *Sprite) {
	m.nodes = append(m.nodes, s)
}

func (m *Manager) Remove(s *Sprite) {
	for i, x := range m.nodes {
		if x == s {
			m.nodes = append(m.nodes[:i], m.nodes[i+1:]...)
			return
		}
	}
}

func (m *Manager) Len() int { return len(m.nodes) }

// VisibleNodes returns the visible sprites in insertion order.
func (m *Manager) VisibleNodes() []Node {
	out := make([]Node, 0, len(m.nodes))
	for _, s := range m.nodes {
		if s.Visible {
			out = append(out, s)
		}
	}
	return out
}

// ScreenCamera maps pixel coordinates (origin top-left) of a width x height
// target to clip space.
type ScreenCamera struct {
	Width, Height int
}

func (c ScreenCamera) ViewMatrix() mgl32.Mat4 { return mgl32.Ident4() }

func (c ScreenCamera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Ortho(0, float32(c.Width), float32(c.Height), 0, -1, 1)
}

func (c ScreenCamera) Position() mgl32.Vec3 { return mgl32.Vec3{} }
