package renderer

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/scene"
)

// lightViewProjection fits an orthographic light camera looking along dir
// around the camera frustum described by viewProj. The light volume is pulled
// toward the light until it holds every caster in casters. Its lateral extent
// is clipped to the casters, since receivers outside them cannot be shadowed.
// It reports false for a degenerate direction.
func lightViewProjection(dir mgl32.Vec3, viewProj mgl32.Mat4, casters scene.AABB) (mgl32.Mat4, bool) {
	if dir.Len() < 1e-4 {
		return mgl32.Ident4(), false
	}
	d := dir.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(d.Dot(up)) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}

	rot := mgl32.LookAtV(mgl32.Vec3{}, d, up)
	bounds := scene.EmptyAABB()
	for _, c := range scene.FrustumCorners(viewProj) {
		bounds = bounds.Extend(mgl32.TransformCoordinate(c, rot))
	}
	if !casters.Empty() {
		cb := casters.Transform(rot)
		// Light space looks down -Z, so the side facing the light is Max.Z.
		bounds.Max[2] = math32.Max(bounds.Max[2], cb.Max[2])
		clipped := bounds
		for i := 0; i < 2; i++ {
			clipped.Min[i] = math32.Max(bounds.Min[i], cb.Min[i])
			clipped.Max[i] = math32.Min(bounds.Max[i], cb.Max[i])
		}
		if clipped.Min[0] < clipped.Max[0] && clipped.Min[1] < clipped.Max[1] {
			bounds = clipped
		}
	}

	center := bounds.Center()
	eyeLS := mgl32.Vec3{center[0], center[1], bounds.Max[2]}
	eye := mgl32.TransformCoordinate(eyeLS, rot.Inv())
	view := mgl32.LookAtV(eye, eye.Add(d), up)

	hw := (bounds.Max[0] - bounds.Min[0]) / 2
	hh := (bounds.Max[1] - bounds.Min[1]) / 2
	depth := bounds.Max[2] - bounds.Min[2]
	pad := depth*0.01 + 0.01
	proj := mgl32.Ortho(-hw, hw, -hh, hh, -pad, depth+pad)
	return proj.Mul4(view), true
}
