package opengl

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/gpu"
	"deferred-renderer/shaders"
)

type uniformKind int

const (
	uniformUnset uniformKind = iota
	uniformFloat
	uniformVec2
	uniformVec3
	uniformVec4
	uniformMat4
	uniformFloats
	uniformVec4s
	uniformMat4s
	uniformTexture
)

// uniform keeps its value on the CPU. A program has one GL object per
// technique, so values are uploaded to whichever one draws.
type uniform struct {
	name    string
	kind    uniformKind
	f       float32
	v       mgl32.Vec4
	m       mgl32.Mat4
	floats  []float32
	vecs    []mgl32.Vec4
	mats    []mgl32.Mat4
	texture *texture
	filter  gpu.Filter
}

func (u *uniform) Name() string { return u.name }

func (u *uniform) SetFloat(v float32) { u.kind, u.f = uniformFloat, v }
func (u *uniform) SetVec2(v mgl32.Vec2) { u.kind, u.v = uniformVec2, mgl32.Vec4{v[0], v[1], 0, 0} }
func (u *uniform) SetVec3(v mgl32.Vec3) { u.kind, u.v = uniformVec3, v.Vec4(0) }
func (u *uniform) SetVec4(v mgl32.Vec4) { u.kind, u.v = uniformVec4, v }
func (u *uniform) SetMat4(m mgl32.Mat4) { u.kind, u.m = uniformMat4, m }

func (u *uniform) SetFloats(v []float32) {
	u.kind = uniformFloats
	u.floats = append(u.floats[:0], v...)
}

func (u *uniform) SetVec4s(v []mgl32.Vec4) {
	u.kind = uniformVec4s
	u.vecs = append(u.vecs[:0], v...)
}

func (u *uniform) SetMat4s(v []mgl32.Mat4) {
	u.kind = uniformMat4s
	u.mats = append(u.mats[:0], v...)
}

func (u *uniform) SetTexture(t gpu.Texture, f gpu.Filter) {
	u.kind, u.filter, u.texture = uniformTexture, f, nil
	if gt, ok := t.(*texture); ok {
		u.texture = gt
	}
}

// upload writes the value to loc. Texture uniforms take the next free unit.
func (u *uniform) upload(d *Device, loc int32, unit *int32) {
	switch u.kind {
	case uniformFloat:
		gl.Uniform1f(loc, u.f)
	case uniformVec2:
		gl.Uniform2f(loc, u.v[0], u.v[1])
	case uniformVec3:
		gl.Uniform3f(loc, u.v[0], u.v[1], u.v[2])
	case uniformVec4:
		gl.Uniform4f(loc, u.v[0], u.v[1], u.v[2], u.v[3])
	case uniformMat4:
		gl.UniformMatrix4fv(loc, 1, false, &u.m[0])
	case uniformFloats:
		if len(u.floats) > 0 {
			gl.Uniform1fv(loc, int32(len(u.floats)), &u.floats[0])
		}
	case uniformVec4s:
		if len(u.vecs) > 0 {
			gl.Uniform4fv(loc, int32(len(u.vecs)), &u.vecs[0][0])
		}
	case uniformMat4s:
		if len(u.mats) > 0 {
			gl.UniformMatrix4fv(loc, int32(len(u.mats)), false, &u.mats[0][0])
		}
	case uniformTexture:
		id := uint32(0)
		if u.texture != nil && u.texture.id != 0 {
			id = u.texture.id
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(*unit))
		gl.BindTexture(gl.TEXTURE_2D, id)
		gl.BindSampler(uint32(*unit), d.samplers[u.filter])
		gl.Uniform1i(loc, *unit)
		*unit++
	}
}

type program struct {
	name       string
	uniforms   map[string]*uniform
	order      []*uniform
	techniques []*technique
	device     *Device
	destroyed  bool
}

func (d *Device) newProgram(m *shaders.Manifest) (*program, error) {
	p := &program{
		name:     m.Name,
		uniforms: make(map[string]*uniform, len(m.Uniforms)),
		device:   d,
	}
	for _, name := range m.Uniforms {
		u := &uniform{name: name}
		p.uniforms[name] = u
		p.order = append(p.order, u)
	}
	for _, tm := range m.Techniques {
		vs, fs, err := m.Sources(d.source, tm)
		if err != nil {
			p.Destroy()
			return nil, err
		}
		id, err := linkProgram(vs, fs)
		if err != nil {
			p.Destroy()
			return nil, fmt.Errorf("program %s technique %s: %w", m.Name, tm.Name, err)
		}
		t := &technique{name: tm.Name}
		t.pass = &pass{program: p, id: id, locations: make([]int32, len(p.order))}
		for i, u := range p.order {
			t.pass.locations[i] = uniformLocation(id, u.name)
		}
		p.techniques = append(p.techniques, t)
	}
	return p, nil
}

func uniformLocation(prog uint32, name string) int32 {
	loc := gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
	if loc < 0 {
		loc = gl.GetUniformLocation(prog, gl.Str(name+"[0]\x00"))
	}
	return loc
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
	u, ok := p.uniforms[name]
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
	for _, t := range p.techniques {
		if p.device.active == t.pass {
			p.device.active = nil
		}
		if t.pass.id != 0 {
			gl.DeleteProgram(t.pass.id)
			t.pass.id = 0
		}
	}
}

type technique struct {
	name string
	pass *pass
}

func (t *technique) Name() string { return t.name }

func (t *technique) Passes() []gpu.Pass { return []gpu.Pass{t.pass} }

type pass struct {
	program   *program
	id        uint32
	locations []int32
}

func (p *pass) Apply() {
	if p.program.destroyed || p.id == 0 {
		return
	}
	p.program.device.active = p
}

// bind makes the pass current in GL and uploads every uniform.
func (p *pass) bind() {
	gl.UseProgram(p.id)
	unit := int32(0)
	for i, u := range p.program.order {
		if loc := p.locations[i]; loc >= 0 {
			u.upload(p.program.device, loc, &unit)
		}
	}
}

func linkProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	defer gl.DeleteShader(vert)
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment: %w", err)
	}
	defer gl.DeleteShader(frag)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link failed: %v", strings.TrimRight(log, "\x00"))
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %v", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}
