package software

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/core"
	"deferred-renderer/gpu"
)

func flatFragment(u *Uniforms, _ *Fragment, out *Outputs) bool {
	out[0] = u.Vec4("Color")
	out[1] = u.Vec4("Second")
	return u.Float("Discard") == 0
}

func testLibrary() *Library {
	l := NewLibrary()
	l.Register("flat", ProgramSource{
		Uniforms:   []string{"Color", "Second", "Discard"},
		Techniques: []TechniqueSource{{Name: "default", Vertex: quadVertex, Fragment: flatFragment}},
	})
	l.Register("empty", ProgramSource{})
	return l
}

type flat struct {
	program gpu.Program
	color   gpu.Uniform
	second  gpu.Uniform
	discard gpu.Uniform
}

func loadFlat(t *testing.T, d *Device) *flat {
	t.Helper()
	p, err := d.LoadProgram("flat")
	require.NoError(t, err)
	f := &flat{program: p}
	f.color, _ = p.Uniform("Color")
	f.second, _ = p.Uniform("Second")
	f.discard, _ = p.Uniform("Discard")
	return f
}

func (f *flat) apply(c mgl32.Vec4) {
	f.color.SetVec4(c)
	f.program.Techniques()[0].Passes()[0].Apply()
}

// quadAt is the full-screen quad at NDC depth z.
func quadAt(t *testing.T, d *Device, z float32, reversed bool) gpu.Mesh {
	t.Helper()
	vertices := []gpu.Vertex{
		{Position: mgl32.Vec3{-1, -1, z}, UV: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{1, -1, z}, UV: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{1, 1, z}, UV: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{-1, 1, z}, UV: mgl32.Vec2{0, 1}},
	}
	indices := []uint32{0, 1, 2, 2, 3, 0}
	if reversed {
		indices = []uint32{0, 2, 1, 2, 0, 3}
	}
	m, err := d.CreateMesh(vertices, indices)
	require.NoError(t, err)
	return m
}

func TestFullScreenQuadCoversEveryPixelOnce(t *testing.T) {
	d := New(4, 4, testLibrary())
	f := loadFlat(t, d)
	d.Clear(gpu.ClearColor|gpu.ClearDepth, core.ColorBlack, 1)
	d.SetBlendMode(gpu.BlendAdditive)
	f.apply(mgl32.Vec4{0.2, 0, 0, 0})
	d.DrawIndexed(quadAt(t, d, 0, false))

	st := d.Stats()
	assert.Equal(t, 1, st.DrawCalls)
	assert.Equal(t, 2, st.Triangles)
	assert.Equal(t, 16, st.Fragments)
	for _, c := range d.Pixels(d.Surface()) {
		assert.InDelta(t, 0.2, c[0], 1e-6, "the shared diagonal must not be blended twice")
	}
}

func TestBlendModes(t *testing.T) {
	d := New(2, 2, testLibrary())
	f := loadFlat(t, d)
	quad := quadAt(t, d, 0, false)
	d.SetDepthMode(gpu.DepthNone)

	d.Clear(gpu.ClearColor, core.ColorTransparent, 1)
	d.SetBlendMode(gpu.BlendAdditive)
	f.apply(mgl32.Vec4{0.4, 0.2, 0, 1})
	d.DrawIndexed(quad)
	d.DrawIndexed(quad)
	assert.InDeltaSlice(t, []float32{0.8, 0.4, 0, 1}, sl(d.Pixel(d.Surface(), 0, 0)), 1/255.0)

	d.SetBlendMode(gpu.BlendAlpha)
	f.apply(mgl32.Vec4{0, 0, 1, 0.5})
	d.DrawIndexed(quad)
	assert.InDeltaSlice(t, []float32{0.4, 0.2, 0.5, 1}, sl(d.Pixel(d.Surface(), 1, 1)), 1/255.0)

	d.SetBlendMode(gpu.BlendOpaque)
	f.apply(mgl32.Vec4{0, 1, 0, 1})
	d.DrawIndexed(quad)
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, d.Pixel(d.Surface(), 1, 0))
}

func sl(v mgl32.Vec4) []float32 { return v[:] }

func TestDepthModes(t *testing.T) {
	d := New(2, 2, testLibrary())
	f := loadFlat(t, d)
	near, far := quadAt(t, d, -0.5, false), quadAt(t, d, 0.5, false)
	red, blue := mgl32.Vec4{1, 0, 0, 1}, mgl32.Vec4{0, 0, 1, 1}

	d.Clear(gpu.ClearColor|gpu.ClearDepth, core.ColorBlack, 1)
	f.apply(red)
	d.DrawIndexed(near)
	f.apply(blue)
	d.DrawIndexed(far)
	assert.Equal(t, red, d.Pixel(d.Surface(), 0, 0), "farther fragments fail the depth test")

	d.SetDepthMode(gpu.DepthNone)
	d.DrawIndexed(far)
	assert.Equal(t, blue, d.Pixel(d.Surface(), 0, 0))

	// DepthRead tests against the stored near depth without updating it.
	d.Clear(gpu.ClearDepth, core.ColorBlack, 1)
	d.SetDepthMode(gpu.DepthRead)
	f.apply(red)
	d.DrawIndexed(near)
	f.apply(blue)
	d.DrawIndexed(far)
	assert.Equal(t, blue, d.Pixel(d.Surface(), 0, 0))
	assert.Equal(t, 2, d.Stats().DepthClears)
}

func TestCulling(t *testing.T) {
	d := New(2, 2, testLibrary())
	f := loadFlat(t, d)
	back := quadAt(t, d, 0, true)
	d.SetDepthMode(gpu.DepthNone)
	f.apply(mgl32.Vec4{1, 1, 1, 1})

	d.DrawIndexed(back)
	assert.Zero(t, d.Stats().Fragments)
	d.SetCullMode(gpu.CullFront)
	d.DrawIndexed(back)
	assert.Equal(t, 4, d.Stats().Fragments)
	d.SetCullMode(gpu.CullNone)
	d.DrawIndexed(quadAt(t, d, 0, false))
	assert.Equal(t, 8, d.Stats().Fragments)
}

func TestMultipleRenderTargetsAndDiscard(t *testing.T) {
	d := New(2, 2, testLibrary())
	f := loadFlat(t, d)
	a, err := d.CreateRenderTarget(gpu.TargetDesc{Label: "a", Width: 2, Height: 2, Format: gpu.FormatRGBA16F, Depth: true, Policy: gpu.PreserveContents})
	require.NoError(t, err)
	b, err := d.CreateRenderTarget(gpu.TargetDesc{Label: "b", Width: 2, Height: 2, Format: gpu.FormatR32F})
	require.NoError(t, err)

	d.SetRenderTargets(a, b)
	assert.Equal(t, discardFill.X(), d.Pixel(b, 0, 0).X(), "discarded targets read garbage until written")
	assert.Equal(t, mgl32.Vec4{}, d.Pixel(a, 0, 0), "preserved targets keep their contents")

	f.second.SetVec4(mgl32.Vec4{7, 8, 9, 10})
	f.apply(mgl32.Vec4{2, 0.5, 0, 1})
	d.DrawIndexed(quadAt(t, d, 0, false))
	assert.Equal(t, mgl32.Vec4{2, 0.5, 0, 1}, d.Pixel(a, 1, 1), "float targets are not clamped")
	assert.Equal(t, mgl32.Vec4{7, 0, 0, 1}, d.Pixel(b, 1, 1), "single-channel targets keep red")

	f.discard.SetFloat(1)
	f.apply(mgl32.Vec4{0, 0, 0, 1})
	d.DrawIndexed(quadAt(t, d, 0, false))
	assert.Equal(t, mgl32.Vec4{2, 0.5, 0, 1}, d.Pixel(a, 0, 0), "discarded fragments write nothing")
}

func TestRGBA8Quantizes(t *testing.T) {
	d := New(1, 1, testLibrary())
	d.Clear(gpu.ClearColor, core.Color{R: 1.5, G: -1, B: 0.2, A: 1}, 1)
	c := d.Pixel(d.Surface(), 0, 0)
	assert.Equal(t, float32(1), c[0])
	assert.Equal(t, float32(0), c[1])
	assert.InDelta(t, 51.0/255, c[2], 1e-6)
}

func TestSampling(t *testing.T) {
	d := New(1, 1, nil)
	tex, err := d.CreateTexture(2, 1, []uint8{0, 0, 0, 255, 255, 255, 255, 255})
	require.NoError(t, err)
	st := tex.(*target)

	assert.Equal(t, float32(0), st.sample(mgl32.Vec2{0.25, 0.5}, gpu.FilterPoint)[0])
	assert.Equal(t, float32(1), st.sample(mgl32.Vec2{0.75, 0.5}, gpu.FilterPoint)[0])
	assert.InDelta(t, 0.5, st.sample(mgl32.Vec2{0.5, 0.5}, gpu.FilterLinear)[0], 1e-6)
	assert.Equal(t, float32(1), st.sample(mgl32.Vec2{2, 0.5}, gpu.FilterLinear)[0], "clamp to edge")
}

func TestImageIsTopDown(t *testing.T) {
	d := New(1, 1, nil)
	tex, err := d.CreateTexture(1, 2, []uint8{
		255, 0, 0, 255, // row 0, bottom
		0, 0, 255, 255,
	})
	require.NoError(t, err)
	img := d.Image(tex)
	assert.Equal(t, uint8(255), img.RGBAAt(0, 1).R)
	assert.Equal(t, uint8(255), img.RGBAAt(0, 0).B)

	scaled := d.ScaledImage(tex, 4, 8)
	assert.Equal(t, 4, scaled.Bounds().Dx())
	assert.Equal(t, 8, scaled.Bounds().Dy())
}

func TestResourceLifetime(t *testing.T) {
	d := New(2, 2, testLibrary())
	rt, err := d.CreateRenderTarget(gpu.TargetDesc{Width: 2, Height: 2})
	require.NoError(t, err)
	tex, err := d.CreateTexture(1, 1, []uint8{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 2, d.LiveTargets())

	rt.Destroy()
	rt.Destroy()
	assert.Equal(t, 1, d.LiveTargets())
	assert.Equal(t, 1, d.Stats().TargetsDestroyed)
	assert.Equal(t, mgl32.Vec4{}, d.Pixel(rt, 0, 0))

	f := loadFlat(t, d)
	d.Reset()
	assert.Zero(t, d.LiveTargets())
	assert.Equal(t, mgl32.Vec4{}, d.Pixel(tex, 0, 0), "resources do not survive a reset")

	d.ResetStats()
	f.apply(mgl32.Vec4{1, 1, 1, 1})
	d.DrawIndexed(quadAt(t, d, 0, false))
	assert.Zero(t, d.Stats().DrawCalls, "programs from before the reset no longer draw")

	f = loadFlat(t, d)
	f.apply(mgl32.Vec4{1, 1, 1, 1})
	f.program.Destroy()
	d.DrawIndexed(quadAt(t, d, 0, false))
	assert.Zero(t, d.Stats().DrawCalls, "destroyed programs do not draw")
}

func TestCreationErrors(t *testing.T) {
	d := New(2, 2, testLibrary())
	_, err := d.LoadProgram("missing")
	assert.ErrorIs(t, err, gpu.ErrProgramNotFound)
	_, err = d.LoadProgram("empty")
	assert.Error(t, err)

	_, err = d.CreateRenderTarget(gpu.TargetDesc{Label: "zero"})
	assert.ErrorIs(t, err, gpu.ErrInvalidTarget)
	_, err = d.CreateTexture(2, 2, []uint8{1})
	assert.Error(t, err)
	_, err = d.CreateMesh(make([]gpu.Vertex, 3), []uint32{0, 1})
	assert.Error(t, err)
	_, err = d.CreateMesh(make([]gpu.Vertex, 3), []uint32{0, 1, 3})
	assert.Error(t, err)
}

func TestResizeReplacesSurface(t *testing.T) {
	d := New(2, 2, nil)
	old := d.Surface()
	d.Resize(0, 5)
	w, h := d.SurfaceSize()
	assert.Equal(t, 1, w)
	assert.Equal(t, 5, h)
	assert.NotSame(t, old.(*target), d.Surface().(*target))
}

func TestDefaultLibraryPrograms(t *testing.T) {
	d := New(1, 1, nil)
	for _, name := range d.Library().Names() {
		p, err := d.LoadProgram(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, p.Techniques(), name)
	}
	p, err := d.LoadProgram("directional_light")
	require.NoError(t, err)
	_, ok := p.Technique("shadowed")
	assert.True(t, ok)
	_, ok = p.Uniform("NotAUniform")
	assert.False(t, ok)
}
