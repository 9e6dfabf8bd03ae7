package effect

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/core"
	"deferred-renderer/gpu"
)

// Kind is the semantic type of a Parameter.
type Kind int

const (
	KindScalar Kind = iota
	KindVector2
	KindVector3
	KindVector4
	KindMatrix
	KindColor
	KindTexture
	KindScalarArray
	KindVector4Array
	KindMatrixArray
	KindEngine
)

var kindNames = [...]string{
	"scalar", "vector2", "vector3", "vector4", "matrix", "color", "texture",
	"scalar-array", "vector4-array", "matrix-array", "engine",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Source is the engine state an engine-computed parameter is evaluated from.
type Source int

const (
	SourceWorld Source = iota + 1
	SourceView
	SourceProjection
	SourceViewProjection
	SourceWorldViewProjection
	SourceInverseView
	SourceInverseProjection
	SourceInverseViewProjection
	SourceWorldInverseTranspose
	SourceCameraPosition
	SourceViewportSize
	SourceTexelSize
	SourceFrameTexture
)

// Parameter is a named shader input. Constant parameters hold their value
// until changed through a typed setter; engine parameters are re-evaluated on
// every Effect.Apply.
type Parameter struct {
	name   string
	kind   Kind
	f      float32
	v      mgl32.Vec4
	m      mgl32.Mat4
	tex    gpu.Texture
	filter gpu.Filter
	floats []float32
	vecs   []mgl32.Vec4
	mats   []mgl32.Mat4

	source Source
	frame  FrameTexture

	uniform gpu.Uniform
}

func NewScalar(name string, v float32) *Parameter {
	return &Parameter{name: name, kind: KindScalar, f: v}
}

func NewVector2(name string, v mgl32.Vec2) *Parameter {
	return &Parameter{name: name, kind: KindVector2, v: mgl32.Vec4{v[0], v[1], 0, 0}}
}

func NewVector3(name string, v mgl32.Vec3) *Parameter {
	return &Parameter{name: name, kind: KindVector3, v: v.Vec4(0)}
}

func NewVector4(name string, v mgl32.Vec4) *Parameter {
	return &Parameter{name: name, kind: KindVector4, v: v}
}

func NewMatrix(name string, m mgl32.Mat4) *Parameter {
	return &Parameter{name: name, kind: KindMatrix, m: m}
}

func NewColor(name string, c core.Color) *Parameter {
	return &Parameter{name: name, kind: KindColor, v: c.Vec4()}
}

func NewTexture(name string, t gpu.Texture, f gpu.Filter) *Parameter {
	return &Parameter{name: name, kind: KindTexture, tex: t, filter: f}
}

func NewScalarArray(name string, v []float32) *Parameter {
	return &Parameter{name: name, kind: KindScalarArray, floats: append([]float32(nil), v...)}
}

func NewVector4Array(name string, v []mgl32.Vec4) *Parameter {
	return &Parameter{name: name, kind: KindVector4Array, vecs: append([]mgl32.Vec4(nil), v...)}
}

func NewMatrixArray(name string, v []mgl32.Mat4) *Parameter {
	return &Parameter{name: name, kind: KindMatrixArray, mats: append([]mgl32.Mat4(nil), v...)}
}

// NewEngine creates an engine-computed parameter. Frame textures need
// NewFrameTexture.
func NewEngine(name string, src Source) (*Parameter, error) {
	if src < SourceWorld || src >= SourceFrameTexture {
		return nil, fmt.Errorf("parameter %q: invalid engine source %d", name, int(src))
	}
	return &Parameter{name: name, kind: KindEngine, source: src}, nil
}

// NewFrameTexture creates an engine parameter bound to one of the renderer's
// named frame textures.
func NewFrameTexture(name string, tex FrameTexture, f gpu.Filter) (*Parameter, error) {
	if !tex.Valid() {
		return nil, fmt.Errorf("parameter %q: %w: %q", name, ErrUnknownFrameTexture, tex)
	}
	return &Parameter{name: name, kind: KindEngine, source: SourceFrameTexture, frame: tex, filter: f}, nil
}

func (p *Parameter) Name() string { return p.name }
func (p *Parameter) Kind() Kind { return p.kind }
func (p *Parameter) Source() Source { return p.source }

// Bound reports whether the owning effect's program uses this parameter.
func (p *Parameter) Bound() bool { return p.uniform != nil }

func (p *Parameter) expect(k Kind) error {
	if p.kind != k {
		return fmt.Errorf("parameter %q: %w: is %s, not %s", p.name, ErrKindMismatch, p.kind, k)
	}
	return nil
}

func (p *Parameter) SetScalar(v float32) error {
	if err := p.expect(KindScalar); err != nil {
		return err
	}
	p.f = v
	return nil
}

func (p *Parameter) SetVector2(v mgl32.Vec2) error {
	if err := p.expect(KindVector2); err != nil {
		return err
	}
	p.v = mgl32.Vec4{v[0], v[1], 0, 0}
	return nil
}

func (p *Parameter) SetVector3(v mgl32.Vec3) error {
	if err := p.expect(KindVector3); err != nil {
		return err
	}
	p.v = v.Vec4(0)
	return nil
}

func (p *Parameter) SetVector4(v mgl32.Vec4) error {
	if err := p.expect(KindVector4); err != nil {
		return err
	}
	p.v = v
	return nil
}

func (p *Parameter) SetMatrix(m mgl32.Mat4) error {
	if err := p.expect(KindMatrix); err != nil {
		return err
	}
	p.m = m
	return nil
}

func (p *Parameter) SetColor(c core.Color) error {
	if err := p.expect(KindColor); err != nil {
		return err
	}
	p.v = c.Vec4()
	return nil
}

func (p *Parameter) SetTexture(t gpu.Texture, f gpu.Filter) error {
	if err := p.expect(KindTexture); err != nil {
		return err
	}
	p.tex, p.filter = t, f
	return nil
}

func (p *Parameter) SetScalars(v []float32) error {
	if err := p.expect(KindScalarArray); err != nil {
		return err
	}
	p.floats = append(p.floats[:0], v...)
	return nil
}

func (p *Parameter) SetVector4s(v []mgl32.Vec4) error {
	if err := p.expect(KindVector4Array); err != nil {
		return err
	}
	p.vecs = append(p.vecs[:0], v...)
	return nil
}

func (p *Parameter) SetMatrices(v []mgl32.Mat4) error {
	if err := p.expect(KindMatrixArray); err != nil {
		return err
	}
	p.mats = append(p.mats[:0], v...)
	return nil
}

func (p *Parameter) Scalar() float32 { return p.f }
func (p *Parameter) Vector4() mgl32.Vec4 { return p.v }
func (p *Parameter) Matrix() mgl32.Mat4 { return p.m }
func (p *Parameter) Texture() gpu.Texture {
	return p.tex
}

func (p *Parameter) Color() core.Color { return core.ColorFromVec4(p.v) }

// push evaluates the parameter and writes it to its bound uniform.
func (p *Parameter) push(env Environment, node Transformable) {
	u := p.uniform
	if u == nil {
		return
	}
	switch p.kind {
	case KindScalar:
		u.SetFloat(p.f)
	case KindVector2:
		u.SetVec2(p.v.Vec2())
	case KindVector3:
		u.SetVec3(p.v.Vec3())
	case KindVector4, KindColor:
		u.SetVec4(p.v)
	case KindMatrix:
		u.SetMat4(p.m)
	case KindTexture:
		u.SetTexture(p.tex, p.filter)
	case KindScalarArray:
		u.SetFloats(p.floats)
	case KindVector4Array:
		u.SetVec4s(p.vecs)
	case KindMatrixArray:
		u.SetMat4s(p.mats)
	case KindEngine:
		p.pushEngine(u, env, node)
	}
}

func (p *Parameter) pushEngine(u gpu.Uniform, env Environment, node Transformable) {
	world := mgl32.Ident4()
	if node != nil {
		world = node.WorldMatrix()
	}
	view, proj := mgl32.Ident4(), mgl32.Ident4()
	var eye mgl32.Vec3
	if cam := env.Camera(); cam != nil {
		view, proj, eye = cam.ViewMatrix(), cam.ProjectionMatrix(), cam.Position()
	}

	switch p.source {
	case SourceWorld:
		u.SetMat4(world)
	case SourceView:
		u.SetMat4(view)
	case SourceProjection:
		u.SetMat4(proj)
	case SourceViewProjection:
		u.SetMat4(proj.Mul4(view))
	case SourceWorldViewProjection:
		u.SetMat4(proj.Mul4(view).Mul4(world))
	case SourceInverseView:
		u.SetMat4(view.Inv())
	case SourceInverseProjection:
		u.SetMat4(proj.Inv())
	case SourceInverseViewProjection:
		u.SetMat4(proj.Mul4(view).Inv())
	case SourceWorldInverseTranspose:
		u.SetMat4(world.Inv().Transpose())
	case SourceCameraPosition:
		u.SetVec3(eye)
	case SourceViewportSize:
		w, h := env.ViewportSize()
		u.SetVec2(mgl32.Vec2{float32(w), float32(h)})
	case SourceTexelSize:
		w, h := env.ViewportSize()
		if w > 0 && h > 0 {
			u.SetVec2(mgl32.Vec2{1 / float32(w), 1 / float32(h)})
		}
	case SourceFrameTexture:
		u.SetTexture(env.FrameTexture(p.frame), p.filter)
	}
}
