package software

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"deferred-renderer/gpu"
)

// discardFill is written into a discard-policy target whenever it is bound,
// so reads of contents that were never rewritten show up in tests.
var discardFill = mgl32.Vec4{1, 0, 1, 1}

type target struct {
	id        uuid.UUID
	desc      gpu.TargetDesc
	color     []mgl32.Vec4
	depth     []float32
	device    *Device
	epoch     int
	destroyed bool
}

func newTarget(d *Device, desc gpu.TargetDesc) *target {
	t := &target{
		id:     uuid.New(),
		desc:   desc,
		color:  make([]mgl32.Vec4, desc.Width*desc.Height),
		device: d,
		epoch:  d.epoch,
	}
	if desc.Depth {
		t.depth = make([]float32, desc.Width*desc.Height)
		for i := range t.depth {
			t.depth[i] = 1
		}
	}
	return t
}

func (t *target) Width() int { return t.desc.Width }
func (t *target) Height() int { return t.desc.Height }
func (t *target) Format() gpu.Format { return t.desc.Format }
func (t *target) Desc() gpu.TargetDesc { return t.desc }

func (t *target) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.color = nil
	t.depth = nil
	if t.device != nil {
		t.device.forget(t)
	}
}

// valid reports whether the target survived every device reset since it was
// created.
func (t *target) valid() bool {
	return !t.destroyed && t.device != nil && t.epoch == t.device.epoch
}

func (t *target) store(i int, c mgl32.Vec4) {
	t.color[i] = quantize(t.desc.Format, c)
}

func (t *target) fill(c mgl32.Vec4) {
	q := quantize(t.desc.Format, c)
	for i := range t.color {
		t.color[i] = q
	}
}

func (t *target) fillDepth(z float32) {
	for i := range t.depth {
		t.depth[i] = z
	}
}

// texel fetches with clamp-to-edge addressing. Row 0 is the bottom row.
func (t *target) texel(x, y int) mgl32.Vec4 {
	x = clampInt(x, 0, t.desc.Width-1)
	y = clampInt(y, 0, t.desc.Height-1)
	return t.color[y*t.desc.Width+x]
}

func (t *target) sample(uv mgl32.Vec2, f gpu.Filter) mgl32.Vec4 {
	if !t.valid() || len(t.color) == 0 {
		return mgl32.Vec4{}
	}
	w, h := float32(t.desc.Width), float32(t.desc.Height)
	if f == gpu.FilterPoint {
		return t.texel(int(math32.Floor(uv[0]*w)), int(math32.Floor(uv[1]*h)))
	}

	fx := uv[0]*w - 0.5
	fy := uv[1]*h - 0.5
	x0 := math32.Floor(fx)
	y0 := math32.Floor(fy)
	tx := fx - x0
	ty := fy - y0
	ix, iy := int(x0), int(y0)

	c00 := t.texel(ix, iy)
	c10 := t.texel(ix+1, iy)
	c01 := t.texel(ix, iy+1)
	c11 := t.texel(ix+1, iy+1)
	bottom := c00.Mul(1 - tx).Add(c10.Mul(tx))
	top := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return bottom.Mul(1 - ty).Add(top.Mul(ty))
}

func quantize(f gpu.Format, c mgl32.Vec4) mgl32.Vec4 {
	switch f {
	case gpu.FormatRGBA8:
		for i := range c {
			c[i] = math32.Round(clamp01(c[i])*255) / 255
		}
	case gpu.FormatR32F:
		c = mgl32.Vec4{c[0], 0, 0, 1}
	}
	return c
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type mesh struct {
	id        uuid.UUID
	vertices  []gpu.Vertex
	indices   []uint32
	destroyed bool
}

func (m *mesh) VertexCount() int { return len(m.vertices) }
func (m *mesh) IndexCount() int { return len(m.indices) }
func (m *mesh) Destroy() { m.destroyed = true }
