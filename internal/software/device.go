// Package software implements gpu.Device as a CPU rasterizer. Programs are
// Go vertex and fragment functions registered in a Library; DefaultLibrary
// carries the reference programs of the deferred pipeline.
//
// Pixel rows are stored bottom-up, matching OpenGL texture coordinates.
package software

import (
	"fmt"
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"deferred-renderer/core"
	"deferred-renderer/gpu"
)

// Stats counts device work since the last ResetStats.
type Stats struct {
	DrawCalls        int
	Triangles        int
	Fragments        int
	Clears           int
	DepthClears      int
	TargetsCreated   int
	TargetsDestroyed int
	ProgramsLoaded   int
}

type Device struct {
	width, height int
	library       *Library
	surface       *target
	bound         []*target
	blend         gpu.BlendMode
	depth         gpu.DepthMode
	cull          gpu.CullMode
	active        *pass
	epoch         int
	live          map[uuid.UUID]*target
	stats         Stats
	maxTargetSize int
}

var _ gpu.Device = (*Device)(nil)

// New creates a device whose primary surface is width x height. A nil
// library selects DefaultLibrary.
func New(width, height int, lib *Library) *Device {
	if lib == nil {
		lib = DefaultLibrary()
	}
	d := &Device{
		library: lib,
		live:    make(map[uuid.UUID]*target),
	}
	d.Resize(width, height)
	d.restoreState()
	return d
}

func (d *Device) restoreState() {
	d.blend = gpu.BlendOpaque
	d.depth = gpu.DepthDefault
	d.cull = gpu.CullBack
	d.active = nil
	d.bound = []*target{d.surface}
}

// SetMaxTargetSize caps the edge length of new render targets, as a GPU's
// maximum texture size would. Zero removes the cap.
func (d *Device) SetMaxTargetSize(n int) { d.maxTargetSize = n }

// Resize replaces the primary surface, as a host window resize would.
func (d *Device) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	d.width, d.height = width, height
	d.surface = newTarget(d, gpu.TargetDesc{
		Label:  "surface",
		Width:  width,
		Height: height,
		Format: gpu.FormatRGBA8,
		Depth:  true,
		Policy: gpu.PreserveContents,
	})
	d.bound = []*target{d.surface}
}

// Reset simulates a lost device: every resource created so far becomes
// invalid and the pipeline state returns to its defaults.
func (d *Device) Reset() {
	d.epoch++
	d.live = make(map[uuid.UUID]*target)
	d.Resize(d.width, d.height)
	d.restoreState()
}

func (d *Device) Library() *Library { return d.library }

func (d *Device) Stats() Stats { return d.stats }

func (d *Device) ResetStats() { d.stats = Stats{} }

// LiveTargets is the number of render targets and textures not yet destroyed.
func (d *Device) LiveTargets() int { return len(d.live) }

// Surface exposes the primary surface for readback.
func (d *Device) Surface() gpu.Texture { return d.surface }

func (d *Device) SurfaceSize() (int, int) { return d.width, d.height }

func (d *Device) CreateRenderTarget(desc gpu.TargetDesc) (gpu.RenderTarget, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: %q is %dx%d", gpu.ErrInvalidTarget, desc.Label, desc.Width, desc.Height)
	}
	if d.maxTargetSize > 0 && max(desc.Width, desc.Height) > d.maxTargetSize {
		return nil, fmt.Errorf("%w: %q is %dx%d, limit %d", gpu.ErrInvalidTarget, desc.Label, desc.Width, desc.Height, d.maxTargetSize)
	}
	t := newTarget(d, desc)
	d.live[t.id] = t
	d.stats.TargetsCreated++
	return t, nil
}

func (d *Device) CreateTexture(width, height int, rgba []uint8) (gpu.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: texture is %dx%d", gpu.ErrInvalidTarget, width, height)
	}
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("texture data has %d bytes, want %d", len(rgba), width*height*4)
	}
	t := newTarget(d, gpu.TargetDesc{Label: "texture", Width: width, Height: height, Format: gpu.FormatRGBA8})
	for i := range t.color {
		p := rgba[i*4 : i*4+4]
		t.color[i] = mgl32.Vec4{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
	}
	d.live[t.id] = t
	d.stats.TargetsCreated++
	return t, nil
}

func (d *Device) CreateMesh(vertices []gpu.Vertex, indices []uint32) (gpu.Mesh, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("index %d out of range for %d vertices", idx, len(vertices))
		}
	}
	return &mesh{
		id:       uuid.New(),
		vertices: append([]gpu.Vertex(nil), vertices...),
		indices:  append([]uint32(nil), indices...),
	}, nil
}

func (d *Device) LoadProgram(name string) (gpu.Program, error) {
	src, ok := d.library.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", gpu.ErrProgramNotFound, name)
	}
	p, err := newProgram(d, name, src)
	if err != nil {
		return nil, err
	}
	d.stats.ProgramsLoaded++
	return p, nil
}

func (d *Device) forget(t *target) {
	if _, ok := d.live[t.id]; ok {
		delete(d.live, t.id)
		d.stats.TargetsDestroyed++
	}
}

func (d *Device) SetRenderTargets(targets ...gpu.RenderTarget) {
	if len(targets) == 0 {
		d.bound = []*target{d.surface}
		return
	}
	d.bound = d.bound[:0]
	for _, rt := range targets {
		t, ok := rt.(*target)
		if !ok || !t.valid() {
			continue
		}
		if t.desc.Policy == gpu.DiscardContents {
			t.fill(discardFill)
		}
		d.bound = append(d.bound, t)
		if len(d.bound) == 4 {
			break
		}
	}
}

func (d *Device) Clear(flags gpu.ClearFlags, c core.Color, depth float32) {
	if len(d.bound) == 0 {
		return
	}
	d.stats.Clears++
	if flags&gpu.ClearColor != 0 {
		for _, t := range d.bound {
			t.fill(c.Vec4())
		}
	}
	if flags&gpu.ClearDepth != 0 {
		d.stats.DepthClears++
		if d.bound[0].depth != nil {
			d.bound[0].fillDepth(depth)
		}
	}
}

func (d *Device) SetBlendMode(m gpu.BlendMode) { d.blend = m }
func (d *Device) SetDepthMode(m gpu.DepthMode) { d.depth = m }
func (d *Device) SetCullMode(m gpu.CullMode) { d.cull = m }

func (d *Device) BlendMode() gpu.BlendMode { return d.blend }
func (d *Device) DepthMode() gpu.DepthMode { return d.depth }
func (d *Device) CullMode() gpu.CullMode { return d.cull }

func (d *Device) DrawIndexed(m gpu.Mesh) {
	sm, ok := m.(*mesh)
	if !ok || sm.destroyed || d.active == nil || len(d.bound) == 0 {
		return
	}
	if d.active.program.destroyed || d.active.program.epoch != d.epoch {
		return
	}
	d.stats.DrawCalls++
	d.drawMesh(d.active, sm)
}

// Pixel reads texel (x, y) with row 0 at the bottom. Destroyed textures and
// foreign handles read as zero.
func (d *Device) Pixel(tex gpu.Texture, x, y int) mgl32.Vec4 {
	t, ok := tex.(*target)
	if !ok || !t.valid() {
		return mgl32.Vec4{}
	}
	return t.texel(x, y)
}

// Pixels copies every texel of tex, bottom row first.
func (d *Device) Pixels(tex gpu.Texture) []mgl32.Vec4 {
	t, ok := tex.(*target)
	if !ok || !t.valid() {
		return nil
	}
	return append([]mgl32.Vec4(nil), t.color...)
}

// Image converts tex to a top-down 8-bit image.
func (d *Device) Image(tex gpu.Texture) *image.RGBA {
	t, ok := tex.(*target)
	if !ok || !t.valid() {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	w, h := t.desc.Width, t.desc.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := t.color[(h-1-y)*w+x]
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(c[0]),
				G: toByte(c[1]),
				B: toByte(c[2]),
				A: toByte(c[3]),
			})
		}
	}
	return img
}

// ScaledImage is Image resampled to width x height with Catmull-Rom.
func (d *Device) ScaledImage(tex gpu.Texture, width, height int) *image.RGBA {
	src := d.Image(tex)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func toByte(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
