package effect

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/core"
	"deferred-renderer/gpu"
	"deferred-renderer/internal/software"
)

type fakeUniform struct {
	name   string
	sets   int
	value  interface{}
	filter gpu.Filter
}

func (u *fakeUniform) Name() string { return u.name }
func (u *fakeUniform) record(v interface{}) {
	u.sets++
	u.value = v
}
func (u *fakeUniform) SetFloat(v float32)      { u.record(v) }
func (u *fakeUniform) SetVec2(v mgl32.Vec2)    { u.record(v) }
func (u *fakeUniform) SetVec3(v mgl32.Vec3)    { u.record(v) }
func (u *fakeUniform) SetVec4(v mgl32.Vec4)    { u.record(v) }
func (u *fakeUniform) SetMat4(m mgl32.Mat4)    { u.record(m) }
func (u *fakeUniform) SetFloats(v []float32)   { u.record(v) }
func (u *fakeUniform) SetVec4s(v []mgl32.Vec4) { u.record(v) }
func (u *fakeUniform) SetMat4s(v []mgl32.Mat4) { u.record(v) }
func (u *fakeUniform) SetTexture(t gpu.Texture, f gpu.Filter) {
	u.record(t)
	u.filter = f
}

type fakePass struct{ applied int }

func (p *fakePass) Apply() { p.applied++ }

type fakeTechnique struct {
	name   string
	passes []gpu.Pass
}

func (t *fakeTechnique) Name() string       { return t.name }
func (t *fakeTechnique) Passes() []gpu.Pass { return t.passes }

type fakeProgram struct {
	name       string
	techniques []gpu.Technique
	uniforms   map[string]*fakeUniform
}

func newFakeProgram(name string, techniques []string, uniforms ...string) *fakeProgram {
	p := &fakeProgram{name: name, uniforms: make(map[string]*fakeUniform)}
	for _, t := range techniques {
		p.techniques = append(p.techniques, &fakeTechnique{name: t, passes: []gpu.Pass{&fakePass{}}})
	}
	for _, u := range uniforms {
		p.uniforms[u] = &fakeUniform{name: u}
	}
	return p
}

func (p *fakeProgram) Name() string                 { return p.name }
func (p *fakeProgram) Techniques() []gpu.Technique { return p.techniques }
func (p *fakeProgram) Destroy()                     {}

func (p *fakeProgram) Technique(name string) (gpu.Technique, bool) {
	for _, t := range p.techniques {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

func (p *fakeProgram) Uniform(name string) (gpu.Uniform, bool) {
	u, ok := p.uniforms[name]
	if !ok {
		return nil, false
	}
	return u, true
}

func (p *fakeProgram) pass(technique string) *fakePass {
	t, _ := p.Technique(technique)
	return t.Passes()[0].(*fakePass)
}

type fakeCamera struct {
	view, proj mgl32.Mat4
	eye        mgl32.Vec3
}

func (c fakeCamera) ViewMatrix() mgl32.Mat4       { return c.view }
func (c fakeCamera) ProjectionMatrix() mgl32.Mat4 { return c.proj }
func (c fakeCamera) Position() mgl32.Vec3         { return c.eye }

type fakeEnv struct {
	device   gpu.Device
	camera   Camera
	textures map[FrameTexture]gpu.Texture
	w, h     int
}

func (e *fakeEnv) Device() gpu.Device { return e.device }
func (e *fakeEnv) Camera() Camera {
	if e.camera == nil {
		return nil
	}
	return e.camera
}
func (e *fakeEnv) FrameTexture(name FrameTexture) gpu.Texture { return e.textures[name] }
func (e *fakeEnv) ViewportSize() (int, int)                 { return e.w, e.h }

type node mgl32.Mat4

func (n node) WorldMatrix() mgl32.Mat4 { return mgl32.Mat4(n) }

func newEnv() (*fakeEnv, *software.Device) {
	dev := software.New(8, 4, nil)
	return &fakeEnv{device: dev, textures: map[FrameTexture]gpu.Texture{}, w: 8, h: 4}, dev
}

func TestNewEffect(t *testing.T) {
	_, err := New("nil", nil)
	assert.ErrorIs(t, err, ErrNilProgram)

	p := newFakeProgram("lit", []string{"a", "b"})
	e, err := New("lit", p)
	require.NoError(t, err)
	assert.Equal(t, "a", e.Technique())
	assert.Same(t, p, e.Program().(*fakeProgram))

	empty, err := New("empty", newFakeProgram("empty", nil))
	require.NoError(t, err)
	assert.Equal(t, "", empty.Technique())
}

func TestSetTechnique(t *testing.T) {
	p := newFakeProgram("lit", []string{"a", "b"})
	e, _ := New("lit", p)

	require.NoError(t, e.SetTechnique("b"))
	assert.Equal(t, "b", e.Technique())

	err := e.SetTechnique("missing")
	assert.ErrorIs(t, err, ErrUnknownTechnique)
	assert.Equal(t, "b", e.Technique(), "a rejected name keeps the previous technique")
}

func TestParameters(t *testing.T) {
	p := newFakeProgram("lit", []string{"default"}, "Color", "Power")
	e, _ := New("lit", p)

	color := NewColor("Color", core.ColorRed)
	require.NoError(t, e.AddParameter(color))
	require.NoError(t, e.AddParameter(NewScalar("Power", 8)))
	unused := NewScalar("Unused", 1)
	require.NoError(t, e.AddParameter(unused))

	assert.True(t, color.Bound())
	assert.False(t, unused.Bound())
	assert.ErrorIs(t, e.AddParameter(NewScalar("Power", 2)), ErrDuplicateParameter)

	names := []string{}
	for _, p := range e.Parameters() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"Color", "Power", "Unused"}, names)

	got, ok := e.Parameter("Power")
	require.True(t, ok)
	assert.Equal(t, float32(8), got.Scalar())

	require.NoError(t, e.RemoveParameter("Power"))
	assert.ErrorIs(t, e.RemoveParameter("Power"), ErrUnknownParameter)
	assert.False(t, got.Bound())
	assert.Len(t, e.Parameters(), 2)
}

func TestParameterKindMismatch(t *testing.T) {
	p := NewScalar("Power", 1)
	assert.ErrorIs(t, p.SetColor(core.ColorWhite), ErrKindMismatch)
	assert.ErrorIs(t, p.SetMatrix(mgl32.Ident4()), ErrKindMismatch)
	assert.NoError(t, p.SetScalar(3))
	assert.Equal(t, float32(3), p.Scalar())

	c := NewColor("Tint", core.ColorWhite)
	assert.ErrorIs(t, c.SetScalar(1), ErrKindMismatch)
	require.NoError(t, c.SetColor(core.ColorBlue))
	assert.Equal(t, core.ColorBlue, c.Color())

	arr := NewScalarArray("Weights", []float32{1, 2})
	require.NoError(t, arr.SetScalars([]float32{3}))
	assert.ErrorIs(t, arr.SetVector4s(nil), ErrKindMismatch)
}

func TestApplyPushesConstants(t *testing.T) {
	env, _ := newEnv()
	p := newFakeProgram("lit", []string{"default"}, "Color", "Power", "Offsets")
	e, _ := New("lit", p)
	require.NoError(t, e.AddParameter(NewColor("Color", core.ColorGreen)))
	power := NewScalar("Power", 4)
	require.NoError(t, e.AddParameter(power))
	require.NoError(t, e.AddParameter(NewVector4Array("Offsets", []mgl32.Vec4{{1, 2, 3, 4}})))

	assert.True(t, e.Apply(env, nil))
	assert.Equal(t, core.ColorGreen.Vec4(), p.uniforms["Color"].value)
	assert.Equal(t, float32(4), p.uniforms["Power"].value)
	assert.Equal(t, []mgl32.Vec4{{1, 2, 3, 4}}, p.uniforms["Offsets"].value)
	assert.Equal(t, 1, p.pass("default").applied)

	require.NoError(t, power.SetScalar(16))
	e.Apply(env, nil)
	assert.Equal(t, float32(16), p.uniforms["Power"].value)
	assert.Equal(t, 2, p.uniforms["Power"].sets)
}

func TestApplyEngineParameters(t *testing.T) {
	env, dev := newEnv()
	cam := fakeCamera{
		view: mgl32.Translate3D(0, 0, -5),
		proj: mgl32.Perspective(mgl32.DegToRad(60), 2, 0.1, 100),
		eye:  mgl32.Vec3{0, 0, 5},
	}
	env.camera = cam
	depth, err := dev.CreateRenderTarget(gpu.TargetDesc{Width: 8, Height: 4, Format: gpu.FormatR32F})
	require.NoError(t, err)
	env.textures[TextureDepth] = depth

	p := newFakeProgram("light", []string{"default"},
		"World", "WorldViewProjection", "InverseViewProjection", "CameraPosition", "ViewportSize", "TexelSize", "DepthMap")
	e, _ := New("light", p)
	for name, src := range map[string]Source{
		"World":                 SourceWorld,
		"WorldViewProjection":   SourceWorldViewProjection,
		"InverseViewProjection": SourceInverseViewProjection,
		"CameraPosition":        SourceCameraPosition,
		"ViewportSize":          SourceViewportSize,
		"TexelSize":             SourceTexelSize,
	} {
		param, err := NewEngine(name, src)
		require.NoError(t, err)
		require.NoError(t, e.AddParameter(param))
	}
	depthParam, err := NewFrameTexture("DepthMap", TextureDepth, gpu.FilterPoint)
	require.NoError(t, err)
	require.NoError(t, e.AddParameter(depthParam))

	world := mgl32.Translate3D(1, 2, 3)
	require.True(t, e.Apply(env, node(world)))

	assert.Equal(t, world, p.uniforms["World"].value)
	assert.Equal(t, cam.proj.Mul4(cam.view).Mul4(world), p.uniforms["WorldViewProjection"].value)
	assert.Equal(t, cam.proj.Mul4(cam.view).Inv(), p.uniforms["InverseViewProjection"].value)
	assert.Equal(t, cam.eye, p.uniforms["CameraPosition"].value)
	assert.Equal(t, mgl32.Vec2{8, 4}, p.uniforms["ViewportSize"].value)
	assert.Equal(t, mgl32.Vec2{0.125, 0.25}, p.uniforms["TexelSize"].value)
	assert.Equal(t, depth, p.uniforms["DepthMap"].value)
	assert.Equal(t, gpu.FilterPoint, p.uniforms["DepthMap"].filter)
}

func TestEngineParameterWithoutCameraUsesIdentity(t *testing.T) {
	env, _ := newEnv()
	p := newFakeProgram("quad", []string{"default"}, "WorldViewProjection")
	e, _ := New("quad", p)
	param, err := NewEngine("WorldViewProjection", SourceWorldViewProjection)
	require.NoError(t, err)
	require.NoError(t, e.AddParameter(param))

	e.Apply(env, nil)
	assert.Equal(t, mgl32.Ident4(), p.uniforms["WorldViewProjection"].value)
}

func TestInvalidEngineSources(t *testing.T) {
	_, err := NewEngine("x", SourceFrameTexture)
	assert.Error(t, err)
	_, err = NewEngine("x", 0)
	assert.Error(t, err)
	_, err = NewFrameTexture("x", FrameTexture("Bogus"), gpu.FilterLinear)
	assert.ErrorIs(t, err, ErrUnknownFrameTexture)
	assert.True(t, TexturePreviousFrame.Valid())
}

func TestApplyStateOverride(t *testing.T) {
	env, dev := newEnv()
	e, _ := New("add", newFakeProgram("add", []string{"default"}))
	e.SetState(gpu.StateOverride{Blend: gpu.BlendAdditive, Depth: gpu.DepthNone})

	dev.SetCullMode(gpu.CullFront)
	e.Apply(env, nil)
	assert.Equal(t, gpu.BlendAdditive, dev.BlendMode())
	assert.Equal(t, gpu.DepthNone, dev.DepthMode())
	assert.Equal(t, gpu.CullFront, dev.CullMode(), "inherited fields are left alone")
}

func TestApplyWithoutTechniqueSkipsDraw(t *testing.T) {
	env, dev := newEnv()
	e, _ := New("empty", newFakeProgram("empty", nil))
	e.SetState(gpu.StateOverride{Blend: gpu.BlendAlpha})

	drawn := false
	assert.False(t, e.Draw(env, nil, func() { drawn = true }))
	assert.False(t, drawn)
	assert.Equal(t, gpu.BlendAlpha, dev.BlendMode(), "state is applied even when the draw is skipped")
}

func TestSetProgramRebindsParameters(t *testing.T) {
	env, _ := newEnv()
	first := newFakeProgram("v1", []string{"default", "alt"}, "Color")
	e, _ := New("fx", first)
	require.NoError(t, e.SetTechnique("alt"))
	color := NewColor("Color", core.ColorWhite)
	require.NoError(t, e.AddParameter(color))
	extra := NewScalar("Strength", 0.5)
	require.NoError(t, e.AddParameter(extra))
	assert.False(t, extra.Bound())

	lacking := newFakeProgram("v2", []string{"default"}, "Color", "Strength")
	assert.ErrorIs(t, e.SetProgram(lacking), ErrUnknownTechnique)
	assert.Same(t, first, e.Program().(*fakeProgram), "a program without the technique is rejected")

	second := newFakeProgram("v3", []string{"alt"}, "Strength")
	require.NoError(t, e.SetProgram(second))
	assert.Equal(t, "alt", e.Technique())
	assert.False(t, color.Bound())
	assert.True(t, extra.Bound())

	e.Apply(env, nil)
	assert.Equal(t, float32(0.5), second.uniforms["Strength"].value)
	assert.Equal(t, 1, second.pass("alt").applied)
	assert.ErrorIs(t, e.SetProgram(nil), ErrNilProgram)
}
