package software

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/gpu"
)

// MaxVaryings is the number of interpolated floats a vertex shader can hand
// to its fragment shader.
const MaxVaryings = 16

// Varyings are interpolated perspective-correct across a triangle.
type Varyings [MaxVaryings]float32

// Fragment is the fragment shader input. Coord holds the window-space pixel
// center in x/y, the window depth in z and 1/w in w.
type Fragment struct {
	Coord    mgl32.Vec4
	Varyings Varyings
}

// Outputs holds one color per bound render target.
type Outputs [4]mgl32.Vec4

// VertexShader transforms v into clip space and fills out.
type VertexShader func(u *Uniforms, v *gpu.Vertex, out *Varyings) mgl32.Vec4

// FragmentShader shades one fragment. Returning false discards it.
type FragmentShader func(u *Uniforms, in *Fragment, out *Outputs) bool

// TechniqueSource is one named vertex/fragment pair.
type TechniqueSource struct {
	Name     string
	Vertex   VertexShader
	Fragment FragmentShader
}

// ProgramSource declares the uniforms and techniques of a program. Only
// declared uniforms resolve through Program.Uniform.
type ProgramSource struct {
	Uniforms   []string
	Techniques []TechniqueSource
}

// Library maps program names to their sources.
type Library struct {
	mu       sync.RWMutex
	programs map[string]ProgramSource
}

func NewLibrary() *Library {
	return &Library{programs: make(map[string]ProgramSource)}
}

// Register adds or replaces a program source.
func (l *Library) Register(name string, src ProgramSource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.programs[name] = src
}

func (l *Library) Lookup(name string) (ProgramSource, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src, ok := l.programs[name]
	return src, ok
}

// Names lists registered programs in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.programs))
	for name := range l.programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type uniformKind int

const (
	uniformUnset uniformKind = iota
	uniformFloat
	uniformVec
	uniformMat
	uniformFloats
	uniformVecs
	uniformMats
	uniformTexture
)

type uniform struct {
	name    string
	kind    uniformKind
	f       float32
	v       mgl32.Vec4
	m       mgl32.Mat4
	floats  []float32
	vecs    []mgl32.Vec4
	mats    []mgl32.Mat4
	texture *target
	filter  gpu.Filter
}

func (u *uniform) Name() string { return u.name }

func (u *uniform) SetFloat(v float32) {
	u.kind, u.f = uniformFloat, v
	u.v = mgl32.Vec4{v, 0, 0, 0}
}

func (u *uniform) SetVec2(v mgl32.Vec2) { u.kind, u.v = uniformVec, mgl32.Vec4{v[0], v[1], 0, 0} }
func (u *uniform) SetVec3(v mgl32.Vec3) { u.kind, u.v = uniformVec, v.Vec4(0) }
func (u *uniform) SetVec4(v mgl32.Vec4) { u.kind, u.v = uniformVec, v }
func (u *uniform) SetMat4(m mgl32.Mat4) { u.kind, u.m = uniformMat, m }

func (u *uniform) SetFloats(v []float32) {
	u.kind = uniformFloats
	u.floats = append(u.floats[:0], v...)
}

func (u *uniform) SetVec4s(v []mgl32.Vec4) {
	u.kind = uniformVecs
	u.vecs = append(u.vecs[:0], v...)
}

func (u *uniform) SetMat4s(v []mgl32.Mat4) {
	u.kind = uniformMats
	u.mats = append(u.mats[:0], v...)
}

func (u *uniform) SetTexture(t gpu.Texture, f gpu.Filter) {
	u.kind, u.filter = uniformTexture, f
	u.texture = nil
	if st, ok := t.(*target); ok {
		u.texture = st
	}
}

// Uniforms is the read side of a program's uniform storage, handed to shaders.
// Reads of unknown or unset names return zero values.
type Uniforms struct {
	values map[string]*uniform
}

func (u *Uniforms) Float(name string) float32 {
	if v, ok := u.values[name]; ok {
		return v.f
	}
	return 0
}

func (u *Uniforms) Vec2(name string) mgl32.Vec2 {
	if v, ok := u.values[name]; ok {
		return v.v.Vec2()
	}
	return mgl32.Vec2{}
}

func (u *Uniforms) Vec3(name string) mgl32.Vec3 {
	if v, ok := u.values[name]; ok {
		return v.v.Vec3()
	}
	return mgl32.Vec3{}
}

func (u *Uniforms) Vec4(name string) mgl32.Vec4 {
	if v, ok := u.values[name]; ok {
		return v.v
	}
	return mgl32.Vec4{}
}

// Mat4 returns identity for unset matrices.
func (u *Uniforms) Mat4(name string) mgl32.Mat4 {
	if v, ok := u.values[name]; ok && v.kind == uniformMat {
		return v.m
	}
	return mgl32.Ident4()
}

func (u *Uniforms) Floats(name string) []float32 {
	if v, ok := u.values[name]; ok {
		return v.floats
	}
	return nil
}

func (u *Uniforms) Vec4s(name string) []mgl32.Vec4 {
	if v, ok := u.values[name]; ok {
		return v.vecs
	}
	return nil
}

func (u *Uniforms) Mat4s(name string) []mgl32.Mat4 {
	if v, ok := u.values[name]; ok {
		return v.mats
	}
	return nil
}

// Sample reads the texture bound to name with its bound filter. Unbound
// samplers read transparent black.
func (u *Uniforms) Sample(name string, uv mgl32.Vec2) mgl32.Vec4 {
	v, ok := u.values[name]
	if !ok || v.texture == nil {
		return mgl32.Vec4{}
	}
	return v.texture.sample(uv, v.filter)
}

// Bound reports whether a live texture is bound to name.
func (u *Uniforms) Bound(name string) bool {
	v, ok := u.values[name]
	return ok && v.texture != nil && v.texture.valid()
}

// TextureSize is the size of the texture bound to name, or zero.
func (u *Uniforms) TextureSize(name string) mgl32.Vec2 {
	v, ok := u.values[name]
	if !ok || v.texture == nil {
		return mgl32.Vec2{}
	}
	return mgl32.Vec2{float32(v.texture.Width()), float32(v.texture.Height())}
}

type program struct {
	name       string
	uniforms   Uniforms
	techniques []*technique
	device     *Device
	epoch      int
	destroyed  bool
}

func newProgram(d *Device, name string, src ProgramSource) (*program, error) {
	if len(src.Techniques) == 0 {
		return nil, fmt.Errorf("program %q declares no techniques", name)
	}
	p := &program{
		name:     name,
		uniforms: Uniforms{values: make(map[string]*uniform, len(src.Uniforms))},
		device:   d,
		epoch:    d.epoch,
	}
	for _, u := range src.Uniforms {
		p.uniforms.values[u] = &uniform{name: u}
	}
	for _, ts := range src.Techniques {
		if ts.Vertex == nil || ts.Fragment == nil {
			return nil, fmt.Errorf("program %q technique %q is missing a shader stage", name, ts.Name)
		}
		t := &technique{name: ts.Name}
		t.pass = &pass{program: p, vertex: ts.Vertex, fragment: ts.Fragment}
		p.techniques = append(p.techniques, t)
	}
	return p, nil
}

func (p *program) Name() string { return p.name }

func (p *program) Techniques() []gpu.Technique {
	out := make([]gpu.Technique, len(p.techniques))
	for i, t := range p.techniques {
		out[i] = t
	}
	return out
}

func (p *program) Technique(name string) (gpu.Technique, bool) {
	for _, t := range p.techniques {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}

func (p *program) Uniform(name string) (gpu.Uniform, bool) {
	u, ok := p.uniforms.values[name]
	if !ok {
		return nil, false
	}
	return u, true
}

func (p *program) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	if p.device != nil && p.device.active != nil && p.device.active.program == p {
		p.device.active = nil
	}
}

type technique struct {
	name string
	pass *pass
}

func (t *technique) Name() string { return t.name }

func (t *technique) Passes() []gpu.Pass { return []gpu.Pass{t.pass} }

type pass struct {
	program  *program
	vertex   VertexShader
	fragment FragmentShader
}

func (p *pass) Apply() {
	if p.program.destroyed || p.program.epoch != p.program.device.epoch {
		return
	}
	p.program.device.active = p
}
