package gui

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/core"
	"deferred-renderer/gpu"
	"deferred-renderer/internal/software"
)

func newSprite(t *testing.T, dev *software.Device, name string, rect core.Rect) *Sprite {
	t.Helper()
	prog, err := dev.LoadProgram(Program)
	require.NoError(t, err)
	s, err := NewSprite(prog, name, rect, core.ColorWhite)
	require.NoError(t, err)
	return s
}

func TestSpriteMapsQuadToPixels(t *testing.T) {
	dev := software.New(4, 4, nil)
	s := newSprite(t, dev, "panel", core.Rect{X: 10, Y: 20, Width: 100, Height: 40})

	m := s.WorldMatrix()
	tl := mgl32.TransformCoordinate(mgl32.Vec3{-1, -1, 0}, m)
	br := mgl32.TransformCoordinate(mgl32.Vec3{1, 1, 0}, m)
	assert.InDeltaSlice(t, []float32{10, 20, 0}, tl[:], 1e-4)
	assert.InDeltaSlice(t, []float32{110, 60, 0}, br[:], 1e-4)

	cam := ScreenCamera{Width: 200, Height: 100}
	vp := cam.ProjectionMatrix().Mul4(cam.ViewMatrix())
	origin := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, vp)
	corner := mgl32.TransformCoordinate(mgl32.Vec3{200, 100, 0}, vp)
	assert.InDeltaSlice(t, []float32{-1, 1}, origin[:2], 1e-5, "top-left is the origin")
	assert.InDeltaSlice(t, []float32{1, -1}, corner[:2], 1e-5)
}

func TestSpriteMaterial(t *testing.T) {
	dev := software.New(4, 4, nil)
	s := newSprite(t, dev, "icon", core.Rect{Width: 8, Height: 8})

	e := s.Material()
	assert.Equal(t, gpu.StateOverride{Blend: gpu.BlendAlpha, Depth: gpu.DepthNone, Cull: gpu.CullNone}, e.State())

	has, ok := e.Parameter("HasTexture")
	require.True(t, ok)
	assert.Equal(t, float32(0), has.Scalar())

	tex, err := dev.CreateTexture(1, 1, []uint8{255, 255, 255, 255})
	require.NoError(t, err)
	s.SetTexture(tex)
	assert.Equal(t, float32(1), has.Scalar())
	s.SetTexture(nil)
	assert.Equal(t, float32(0), has.Scalar())

	s.SetColor(core.ColorRed)
	color, _ := e.Parameter("Color")
	assert.Equal(t, core.ColorRed, color.Color())
}

func TestManagerVisibleNodes(t *testing.T) {
	dev := software.New(4, 4, nil)
	a := newSprite(t, dev, "a", core.Rect{Width: 1, Height: 1})
	b := newSprite(t, dev, "b", core.Rect{Width: 1, Height: 1})
	c := newSprite(t, dev, "c", core.Rect{Width: 1, Height: 1})
	b.SetLayer(2)

	m := NewManager()
	m.Add(a)
	m.Add(b)
	m.Add(c)
	c.Visible = false
	assert.Equal(t, []Node{a, b}, m.VisibleNodes())
	assert.Equal(t, 2, m.VisibleNodes()[1].Layer())

	m.Remove(a)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []Node{b}, m.VisibleNodes())
}
