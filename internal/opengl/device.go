// Package opengl implements gpu.Device over an OpenGL 4.1 core context.
// Programs are compiled from the GLSL manifests of package shaders, read
// from an fs.FS so a host can point it at a directory for hot reloading.
//
// Every call must be made on the thread that owns the context.
package opengl

import (
	"fmt"
	"io/fs"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"deferred-renderer/core"
	"deferred-renderer/gpu"
	"deferred-renderer/shaders"
)

// Stats counts device work since the last ResetStats.
type Stats struct {
	DrawCalls      int
	Clears         int
	ProgramsLoaded int
}

type Device struct {
	source        fs.FS
	width, height int

	bound    []*texture // nil means the primary surface
	boundFBO uint32
	fbos     map[fboKey]uint32
	live     map[*texture]struct{}
	samplers [2]uint32 // indexed by gpu.Filter

	depthMode     gpu.DepthMode
	active        *pass
	stats         Stats
	maxTargetSize int32
}

var _ gpu.Device = (*Device)(nil)

// New initializes GL on the current context. width and height are the
// framebuffer size of the window; source holds the program manifests, nil
// selects shaders.FS.
func New(width, height int, source fs.FS) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	core.LogInfo("OpenGL version: %s", gl.GoStr(gl.GetString(gl.VERSION)))
	core.LogInfo("OpenGL renderer: %s", gl.GoStr(gl.GetString(gl.RENDERER)))

	if source == nil {
		source = shaders.FS
	}
	d := &Device{
		source: source,
		fbos:   make(map[fboKey]uint32),
		live:   make(map[*texture]struct{}),
	}
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &d.maxTargetSize)
	gl.GenSamplers(2, &d.samplers[0])
	for f, s := range d.samplers {
		filter := int32(gl.LINEAR)
		if gpu.Filter(f) == gpu.FilterPoint {
			filter = gl.NEAREST
		}
		gl.SamplerParameteri(s, gl.TEXTURE_MIN_FILTER, filter)
		gl.SamplerParameteri(s, gl.TEXTURE_MAG_FILTER, filter)
		gl.SamplerParameteri(s, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.SamplerParameteri(s, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}
	d.Resize(width, height)
	gpu.ApplyState(d, gpu.DefaultState)
	return d, nil
}

// Resize records a new framebuffer size of the window.
func (d *Device) Resize(width, height int) {
	d.width, d.height = max(width, 1), max(height, 1)
	if d.bound == nil {
		gl.Viewport(0, 0, int32(d.width), int32(d.height))
	}
}

// SetSource replaces the file system programs are loaded from.
func (d *Device) SetSource(source fs.FS) { d.source = source }

func (d *Device) Stats() Stats { return d.stats }

func (d *Device) ResetStats() { d.stats = Stats{} }

func (d *Device) SurfaceSize() (int, int) { return d.width, d.height }

func (d *Device) LoadProgram(name string) (gpu.Program, error) {
	m, err := shaders.Load(d.source, name)
	if err != nil {
		return nil, err
	}
	p, err := d.newProgram(m)
	if err != nil {
		return nil, err
	}
	d.stats.ProgramsLoaded++
	return p, nil
}

func (d *Device) bindSurface() {
	d.bound = nil
	d.boundFBO = 0
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(d.width), int32(d.height))
}

func (d *Device) SetRenderTargets(targets ...gpu.RenderTarget) {
	if len(targets) == 0 {
		d.bindSurface()
		return
	}
	bound := make([]*texture, 0, 4)
	for _, rt := range targets {
		t, ok := rt.(*texture)
		if !ok || t.id == 0 || (t.desc.Depth && t.depth == 0) {
			continue
		}
		bound = append(bound, t)
		if len(bound) == 4 {
			break
		}
	}
	if len(bound) == 0 {
		// Nothing valid: draws and clears go nowhere.
		d.bound = bound
		return
	}
	fbo, status := d.framebuffer(bound)
	if status != gl.FRAMEBUFFER_COMPLETE {
		core.LogError("framebuffer for %q incomplete: status=0x%X", bound[0].desc.Label, status)
		d.bound = bound[:0]
		return
	}
	d.bound = bound
	d.boundFBO = fbo
	gl.Viewport(0, 0, int32(bound[0].desc.Width), int32(bound[0].desc.Height))
}

func (d *Device) Clear(flags gpu.ClearFlags, c core.Color, depth float32) {
	if d.bound != nil && len(d.bound) == 0 {
		return
	}
	var mask uint32
	if flags&gpu.ClearColor != 0 {
		gl.ClearColor(c.R, c.G, c.B, c.A)
		mask |= gl.COLOR_BUFFER_BIT
	}
	if flags&gpu.ClearDepth != 0 {
		gl.ClearDepthf(depth)
		gl.DepthMask(true)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if mask == 0 {
		return
	}
	gl.Clear(mask)
	d.stats.Clears++
	if flags&gpu.ClearDepth != 0 {
		d.SetDepthMode(d.depthMode)
	}
}

func (d *Device) SetBlendMode(m gpu.BlendMode) {
	switch m {
	case gpu.BlendOpaque:
		gl.Disable(gl.BLEND)
	case gpu.BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendEquation(gl.FUNC_ADD)
		gl.BlendFunc(gl.ONE, gl.ONE)
	case gpu.BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendEquation(gl.FUNC_ADD)
		gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	}
}

func (d *Device) SetDepthMode(m gpu.DepthMode) {
	switch m {
	case gpu.DepthDefault:
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
		gl.DepthMask(true)
	case gpu.DepthRead:
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
		gl.DepthMask(false)
	case gpu.DepthNone:
		gl.Disable(gl.DEPTH_TEST)
		gl.DepthMask(false)
	default:
		return
	}
	d.depthMode = m
}

func (d *Device) SetCullMode(m gpu.CullMode) {
	switch m {
	case gpu.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.FrontFace(gl.CCW)
		gl.CullFace(gl.BACK)
	case gpu.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.FrontFace(gl.CCW)
		gl.CullFace(gl.FRONT)
	case gpu.CullNone:
		gl.Disable(gl.CULL_FACE)
	}
}

func (d *Device) DrawIndexed(gm gpu.Mesh) {
	m, ok := gm.(*mesh)
	if !ok || m.vao == 0 || d.active == nil {
		return
	}
	if d.bound != nil && len(d.bound) == 0 {
		return
	}
	d.active.bind()
	gl.BindVertexArray(m.vao)
	gl.DrawElements(gl.TRIANGLES, m.indices, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
	d.stats.DrawCalls++
}

// Destroy releases every resource the device still owns. Meshes and
// programs belong to their creators.
func (d *Device) Destroy() {
	d.bindSurface()
	for t := range d.live {
		t.Destroy()
	}
	for key, fbo := range d.fbos {
		gl.DeleteFramebuffers(1, &fbo)
		delete(d.fbos, key)
	}
	if d.samplers[0] != 0 {
		gl.DeleteSamplers(2, &d.samplers[0])
		d.samplers = [2]uint32{}
	}
	d.active = nil
}
