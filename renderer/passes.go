package renderer

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/core"
	"deferred-renderer/gpu"
	"deferred-renderer/scene"
)

// maxSpotAngle keeps the spot volume finite.
const maxSpotAngle = 85

func (r *DeferredRenderer) clearDepth() {
	r.device.Clear(gpu.ClearDepth, core.ColorTransparent, 1)
}

// geometryPass fills the color, normal, ambient and depth G-buffers.
func (r *DeferredRenderer) geometryPass() error {
	t := r.targets
	r.device.SetRenderTargets(t.Color, t.Normal, t.Ambient, t.Depth)
	r.drawQuad(r.fx.clear, r)
	r.clearDepth()
	r.stats.GeometryDepthClears++

	if r.deps.Scene == nil {
		return nil
	}
	clears, err := drawLayered(r.deps.Scene.Drawables(), r.drawGeometry, r.clearDepth)
	r.stats.GeometryDepthClears += clears
	return err
}

func (r *DeferredRenderer) drawGeometry(d scene.Drawable) error {
	m, mesh := d.Material(), d.Mesh()
	if m == nil || mesh == nil {
		return nil
	}
	m.Draw(r, d, func() { r.drawMesh(mesh) })
	gpu.ApplyState(r.device, gpu.DefaultState)
	return nil
}

// lightingPass accumulates every light into the light map.
func (r *DeferredRenderer) lightingPass() error {
	t := r.targets
	r.device.SetRenderTargets(t.LightMap)
	r.device.Clear(gpu.ClearColor, core.ColorTransparent, 1)
	if r.deps.Scene == nil {
		return nil
	}

	var casters []scene.Drawable
	castersLoaded := false
	for _, l := range r.deps.Scene.Lights() {
		if l == nil {
			continue
		}
		switch l.Kind {
		case scene.LightDirectional:
			if l.CastsShadows && !castersLoaded {
				casters = r.deps.Scene.ShadowCasters()
				castersLoaded = true
			}
			r.drawDirectional(l, casters)
		case scene.LightPoint:
			r.drawPoint(l)
		case scene.LightSpot:
			r.drawSpot(l)
		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedLight, l.Kind)
		}
		r.stats.LightsDrawn++
		gpu.ApplyState(r.device, gpu.DefaultState)
	}
	return nil
}

func (fx *lightEffect) setLight(l *scene.Light) {
	_ = fx.color.SetVector3(l.Diffuse.Vec3())
	_ = fx.specular.SetVector3(l.Specular.Vec3())
	_ = fx.intensity.SetScalar(l.Intensity)
	_ = fx.direction.SetVector3(l.Direction)
	_ = fx.position.SetVector3(l.Position)
	_ = fx.radius.SetScalar(l.Radius)
}

func (r *DeferredRenderer) drawDirectional(l *scene.Light, casters []scene.Drawable) {
	fx := r.fx.directional
	technique := TechniqueUnshadowed
	if l.CastsShadows && len(casters) > 0 {
		if lvp, ok := r.renderShadowMap(l, casters); ok {
			technique = TechniqueShadowed
			_ = fx.lightViewProj.SetMatrix(lvp)
			_ = fx.bias.SetScalar(r.opts.ShadowBias)
		}
		r.device.SetRenderTargets(r.targets.LightMap)
	}
	if err := fx.SetTechnique(technique); err != nil {
		r.warnOnce("technique:"+technique, "Directional light drawn with technique %q: %v", fx.Technique(), err)
	}
	fx.setLight(l)
	r.drawQuad(fx.Effect, r)
}

// renderShadowMap draws every caster's depth as seen from l. It reports
// false if there are no casters or no light camera could be fitted.
func (r *DeferredRenderer) renderShadowMap(l *scene.Light, casters []scene.Drawable) (mgl32.Mat4, bool) {
	cam := r.Camera()
	if cam == nil || r.targets.ShadowMap == nil || len(casters) == 0 {
		return mgl32.Ident4(), false
	}
	bounds := scene.EmptyAABB()
	for _, c := range casters {
		bounds = bounds.Union(c.Bounds())
	}
	viewProj := cam.ProjectionMatrix().Mul4(cam.ViewMatrix())
	lvp, ok := lightViewProjection(l.Direction, viewProj, bounds)
	if !ok {
		return lvp, false
	}

	r.device.SetRenderTargets(r.targets.ShadowMap)
	r.device.Clear(gpu.ClearColor|gpu.ClearDepth, core.ColorWhite, 1)
	if p, ok := r.fx.shadow.Parameter("LightViewProjection"); ok {
		_ = p.SetMatrix(lvp)
	}
	for _, c := range casters {
		if mesh := c.Mesh(); mesh != nil {
			r.fx.shadow.Draw(r, c, func() { r.drawMesh(mesh) })
		}
	}
	gpu.ApplyState(r.device, gpu.DefaultState)
	r.stats.ShadowPasses++
	return lvp, true
}

func (r *DeferredRenderer) drawPoint(l *scene.Light) {
	fx := r.fx.point
	fx.setLight(l)
	s := l.Radius * 1.1
	world := mgl32.Translate3D(l.Position[0], l.Position[1], l.Position[2]).Mul4(mgl32.Scale3D(s, s, s))
	fx.Draw(r, volume(world), func() { r.drawMesh(r.sphere) })
}

func (r *DeferredRenderer) drawSpot(l *scene.Light) {
	fx := r.fx.spot
	fx.setLight(l)
	inner, outer := l.SpotCones()
	_ = fx.innerCos.SetScalar(inner)
	_ = fx.outerCos.SetScalar(outer)

	angle := math32.Min(l.SpotAngle, maxSpotAngle)
	length := l.Radius * 1.1
	base := length * math32.Tan(mgl32.DegToRad(angle)) * 1.1
	dir := l.Direction
	if dir.Len() < 1e-4 {
		dir = mgl32.Vec3{0, 0, -1}
	}
	rot := mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, -1}, dir.Normalize()).Mat4()
	world := mgl32.Translate3D(l.Position[0], l.Position[1], l.Position[2]).
		Mul4(rot).
		Mul4(mgl32.Scale3D(base, base, length))
	fx.Draw(r, volume(world), func() { r.drawMesh(r.cone) })
}

// combinePass composes the G-buffers and light map into the scene texture.
// Pixels no geometry touched keep the background color.
func (r *DeferredRenderer) combinePass() error {
	r.device.SetRenderTargets(r.targets.Scene)
	r.device.Clear(gpu.ClearColor, r.opts.Background, 1)
	_ = r.fx.ambient.SetVector3(r.opts.AmbientLight.Vec3())
	r.drawQuad(r.fx.combine, r)
	return nil
}
