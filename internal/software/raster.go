package software

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/gpu"
)

const minClipW = 1e-6

type clipVertex struct {
	pos  mgl32.Vec4
	vary Varyings
}

type screenVertex struct {
	x, y, z float64
	invW    float64
	vary    *Varyings
}

func (d *Device) drawMesh(p *pass, m *mesh) {
	u := &p.program.uniforms
	verts := make([]clipVertex, len(m.vertices))
	for i := range m.vertices {
		verts[i].pos = p.vertex(u, &m.vertices[i], &verts[i].vary)
	}

	vw, vh := d.bound[0].desc.Width, d.bound[0].desc.Height
	var poly []clipVertex
	for i := 0; i+2 < len(m.indices); i += 3 {
		d.stats.Triangles++
		poly = clipNear(poly[:0], verts[m.indices[i]], verts[m.indices[i+1]], verts[m.indices[i+2]])
		for j := 1; j+1 < len(poly); j++ {
			d.rasterize(p, u, &poly[0], &poly[j], &poly[j+1], vw, vh)
		}
	}
}

// clipNear clips a triangle against the near plane z >= -w and returns the
// resulting convex polygon (zero, three or four vertices).
func clipNear(out []clipVertex, a, b, c clipVertex) []clipVertex {
	in := [3]clipVertex{a, b, c}
	dist := func(v *clipVertex) float32 { return v.pos[2] + v.pos[3] }
	for i := 0; i < 3; i++ {
		cur := &in[i]
		next := &in[(i+1)%3]
		dc, dn := dist(cur), dist(next)
		if dc >= 0 {
			out = append(out, *cur)
		}
		if (dc >= 0) != (dn >= 0) {
			t := dc / (dc - dn)
			out = append(out, lerpVertex(cur, next, t))
		}
	}
	return out
}

func lerpVertex(a, b *clipVertex, t float32) clipVertex {
	var v clipVertex
	v.pos = a.pos.Add(b.pos.Sub(a.pos).Mul(t))
	for i := range v.vary {
		v.vary[i] = a.vary[i] + (b.vary[i]-a.vary[i])*t
	}
	return v
}

func toScreen(v *clipVertex, vw, vh int) (screenVertex, bool) {
	w := float64(v.pos[3])
	if w < minClipW {
		return screenVertex{}, false
	}
	inv := 1 / w
	return screenVertex{
		x:    (float64(v.pos[0])*inv*0.5 + 0.5) * float64(vw),
		y:    (float64(v.pos[1])*inv*0.5 + 0.5) * float64(vh),
		z:    float64(v.pos[2])*inv*0.5 + 0.5,
		invW: inv,
		vary: &v.vary,
	}, true
}

func edge(a, b *screenVertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// topLeft reports whether pixel centers exactly on edge a->b belong to the
// counter-clockwise triangle, so shared edges are rasterized once.
func topLeft(a, b *screenVertex) bool {
	dy := b.y - a.y
	return dy < 0 || (dy == 0 && b.x-a.x < 0)
}

func covers(e float64, a, b *screenVertex) bool {
	return e > 0 || (e == 0 && topLeft(a, b))
}

func (d *Device) rasterize(p *pass, u *Uniforms, c0, c1, c2 *clipVertex, vw, vh int) {
	s0, ok0 := toScreen(c0, vw, vh)
	s1, ok1 := toScreen(c1, vw, vh)
	s2, ok2 := toScreen(c2, vw, vh)
	if !ok0 || !ok1 || !ok2 {
		return
	}

	area := edge(&s0, &s1, s2.x, s2.y)
	if area == 0 {
		return
	}
	front := area > 0
	switch d.cull {
	case gpu.CullBack:
		if !front {
			return
		}
	case gpu.CullFront:
		if front {
			return
		}
	}
	if !front {
		s1, s2 = s2, s1
		area = -area
	}

	minX := int(math.Max(0, math.Floor(math.Min(s0.x, math.Min(s1.x, s2.x)))))
	maxX := int(math.Min(float64(vw-1), math.Ceil(math.Max(s0.x, math.Max(s1.x, s2.x)))))
	minY := int(math.Max(0, math.Floor(math.Min(s0.y, math.Min(s1.y, s2.y)))))
	maxY := int(math.Min(float64(vh-1), math.Ceil(math.Max(s0.y, math.Max(s1.y, s2.y)))))

	depthBuf := d.bound[0].depth
	testDepth := depthBuf != nil && (d.depth == gpu.DepthDefault || d.depth == gpu.DepthRead)
	writeDepth := depthBuf != nil && d.depth == gpu.DepthDefault

	var frag Fragment
	var out Outputs
	for py := minY; py <= maxY; py++ {
		cy := float64(py) + 0.5
		for px := minX; px <= maxX; px++ {
			cx := float64(px) + 0.5
			e0 := edge(&s1, &s2, cx, cy)
			e1 := edge(&s2, &s0, cx, cy)
			e2 := edge(&s0, &s1, cx, cy)
			if !covers(e0, &s1, &s2) || !covers(e1, &s2, &s0) || !covers(e2, &s0, &s1) {
				continue
			}
			b0, b1, b2 := e0/area, e1/area, e2/area

			z := b0*s0.z + b1*s1.z + b2*s2.z
			if z < 0 || z > 1 {
				continue
			}
			idx := py*vw + px
			if testDepth && float32(z) > depthBuf[idx] {
				continue
			}

			iw := b0*s0.invW + b1*s1.invW + b2*s2.invW
			p0 := b0 * s0.invW / iw
			p1 := b1 * s1.invW / iw
			p2 := b2 * s2.invW / iw
			for i := range frag.Varyings {
				frag.Varyings[i] = float32(p0*float64(s0.vary[i]) + p1*float64(s1.vary[i]) + p2*float64(s2.vary[i]))
			}
			frag.Coord = mgl32.Vec4{float32(cx), float32(cy), float32(z), float32(iw)}

			out = Outputs{}
			if !p.fragment(u, &frag, &out) {
				continue
			}
			d.stats.Fragments++
			if writeDepth {
				depthBuf[idx] = float32(z)
			}
			for i, t := range d.bound {
				if px >= t.desc.Width || py >= t.desc.Height {
					continue
				}
				ti := py*t.desc.Width + px
				t.store(ti, blend(d.blend, t.color[ti], out[i]))
			}
		}
	}
}

func blend(mode gpu.BlendMode, dst, src mgl32.Vec4) mgl32.Vec4 {
	switch mode {
	case gpu.BlendAdditive:
		return dst.Add(src)
	case gpu.BlendAlpha:
		a := src[3]
		return mgl32.Vec4{
			src[0]*a + dst[0]*(1-a),
			src[1]*a + dst[1]*(1-a),
			src[2]*a + dst[2]*(1-a),
			a + dst[3]*(1-a),
		}
	}
	return src
}
