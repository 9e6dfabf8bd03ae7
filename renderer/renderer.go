// Package renderer implements a deferred lighting pipeline over gpu.Device.
//
// Each frame runs Geometry (G-buffers), Lighting (light map, with shadow maps
// for directional lights), Combine (scene), PostProcess (enabled chains),
// Gui and Present. The renderer owns every render target and exposes them
// only as read-only textures.
package renderer

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/core"
	"deferred-renderer/effect"
	"deferred-renderer/gpu"
	"deferred-renderer/gui"
	"deferred-renderer/postprocess"
	"deferred-renderer/scene"
)

// SceneSource is the scene-manager collaborator.
type SceneSource interface {
	// Drawables are drawn in the geometry pass, in order, per layer.
	Drawables() []scene.Drawable
	ShadowCasters() []scene.Drawable
	Lights() []*scene.Light
	// Camera may be nil.
	Camera() effect.Camera
}

// GuiSource is the GUI-manager collaborator.
type GuiSource interface {
	VisibleNodes() []gui.Node
}

// Dependencies are the collaborators a renderer draws. Any of them may be nil.
type Dependencies struct {
	Scene       SceneSource
	Gui         GuiSource
	PostProcess *postprocess.Manager
}

// Stats describes the most recent frame.
type Stats struct {
	Frame               uint64
	DrawCalls           int
	GeometryDepthClears int
	GuiDepthClears      int
	LightsDrawn         int
	ShadowPasses        int
	PostChains          int
	PostEffects         int
}

type DeferredRenderer struct {
	device  gpu.Device
	deps    Dependencies
	opts    Options
	targets *TargetSet

	programs map[string]gpu.Program
	fx       *effects
	quad     *QuadRenderer
	sphere   gpu.Mesh
	cone     gpu.Mesh

	initialized bool
	stage       Stage
	frame       uint64
	stats       Stats

	postInput     gpu.Texture
	finalFromPost bool
	prevFromPost  bool

	warned map[string]bool
}

var _ effect.Environment = (*DeferredRenderer)(nil)

func New(device gpu.Device, deps Dependencies, opts Options) *DeferredRenderer {
	return &DeferredRenderer{
		device:  device,
		deps:    deps,
		opts:    opts,
		targets: NewTargetSet(device),
		warned:  make(map[string]bool),
	}
}

// Initialize loads programs and allocates every target at the surface size.
// Calling it again is a no-op.
func (r *DeferredRenderer) Initialize() error {
	if r.initialized {
		return nil
	}
	if err := r.createResources(); err != nil {
		return err
	}
	r.initialized = true
	core.LogInfo("Deferred renderer initialized: shadow=%s gui=%s", r.opts.ShadowQuality, r.opts.GuiMode)
	return nil
}

func (r *DeferredRenderer) Initialized() bool { return r.initialized }

func (r *DeferredRenderer) createResources() (err error) {
	defer func() {
		if err != nil {
			r.releaseResources()
		}
	}()

	programs, err := loadPrograms(r.device)
	if err != nil {
		return err
	}
	r.programs = programs
	if r.fx == nil {
		if r.fx, err = buildEffects(programs); err != nil {
			return err
		}
	} else {
		for name, p := range programs {
			for _, e := range r.fx.using(name) {
				if err = e.SetProgram(p); err != nil {
					return err
				}
			}
		}
	}

	if r.quad, err = NewQuadRenderer(r.device); err != nil {
		return err
	}
	if r.sphere, err = scene.CreateSphere(1, 16, 12).Upload(r.device); err != nil {
		return err
	}
	if r.cone, err = scene.CreateCone(1, 1, 16).Upload(r.device); err != nil {
		return err
	}

	w, h := r.device.SurfaceSize()
	if err = r.targets.EnsureSize(w, h); err != nil {
		return err
	}
	return r.targets.CreateShadowMap(r.opts.ShadowQuality)
}

func (r *DeferredRenderer) releaseResources() {
	r.targets.Release()
	if r.quad != nil {
		r.quad.Release()
		r.quad = nil
	}
	for _, m := range []*gpu.Mesh{&r.sphere, &r.cone} {
		if *m != nil {
			(*m).Destroy()
			*m = nil
		}
	}
	destroyPrograms(r.programs)
	r.programs = nil
}

// Destroy releases every device resource. The renderer can be initialized
// again afterwards.
func (r *DeferredRenderer) Destroy() {
	r.releaseResources()
	r.fx = nil
	r.initialized = false
	r.stage = StageIdle
}

// HandleDeviceReset recreates every device resource after the device lost
// them. Failures are logged and leave the renderer uninitialized, so Draw
// becomes a no-op until the next successful reset.
func (r *DeferredRenderer) HandleDeviceReset() {
	if r.fx == nil {
		return
	}
	core.LogWarn("Device reset: recreating renderer resources")
	r.releaseResources()
	r.initialized = false
	r.postInput = nil
	r.finalFromPost, r.prevFromPost = false, false
	if err := r.createResources(); err != nil {
		core.LogError("Device reset recovery failed: %v", err)
		return
	}
	r.initialized = true
}

// ReloadShaders reloads every renderer program. A program that fails to load
// or lacks a technique in use is logged and the previous one kept.
func (r *DeferredRenderer) ReloadShaders() error {
	if !r.initialized {
		return nil
	}
	var errs []error
	reloaded := 0
	for _, name := range programNames {
		p, err := r.device.LoadProgram(name)
		if err != nil {
			core.LogError("Reload of %s failed, keeping previous program: %v", name, err)
			errs = append(errs, err)
			continue
		}
		users := r.fx.using(name)
		if err := canAdopt(p, users); err != nil {
			core.LogError("Reload of %s rejected, keeping previous program: %v", name, err)
			p.Destroy()
			errs = append(errs, err)
			continue
		}
		for _, e := range users {
			_ = e.SetProgram(p)
		}
		if old := r.programs[name]; old != nil {
			old.Destroy()
		}
		r.programs[name] = p
		reloaded++
	}
	core.LogInfo("Shaders reloaded: %d of %d programs", reloaded, len(programNames))
	return errors.Join(errs...)
}

func (r *DeferredRenderer) Options() Options { return r.opts }

// SetOptions replaces the options. A changed shadow quality recreates the
// shadow map immediately; if that fails the previous options stay in place.
func (r *DeferredRenderer) SetOptions(o Options) error {
	if r.initialized && o.ShadowQuality != r.opts.ShadowQuality {
		if err := r.targets.CreateShadowMap(o.ShadowQuality); err != nil {
			return err
		}
	}
	r.opts = o
	return nil
}

func (r *DeferredRenderer) SetShadowQuality(q ShadowQuality) error {
	o := r.opts
	o.ShadowQuality = q
	return r.SetOptions(o)
}

// Stage is the pipeline step in progress, StageIdle between frames.
func (r *DeferredRenderer) Stage() Stage { return r.stage }

func (r *DeferredRenderer) Stats() Stats { return r.stats }

// Targets exposes the target set for inspection.
func (r *DeferredRenderer) Targets() *TargetSet { return r.targets }

// Draw renders one frame. It is a no-op before Initialize. Errors escaping a
// pass are wrapped in a *PassError naming the pass.
func (r *DeferredRenderer) Draw() error {
	if !r.initialized {
		return nil
	}
	r.frame++
	r.stats = Stats{Frame: r.frame}
	defer func() {
		r.stage = StageIdle
		gpu.ApplyState(r.device, gpu.DefaultState)
	}()

	w, h := r.device.SurfaceSize()
	if err := r.targets.EnsureSize(w, h); err != nil {
		return &PassError{Pass: "resize", Err: err}
	}
	r.targets.SwapFrameHistory()
	r.prevFromPost, r.finalFromPost = r.finalFromPost, false
	r.postInput = nil

	passes := []struct {
		stage Stage
		run   func() error
	}{
		{StageGeometry, r.geometryPass},
		{StageLighting, r.lightingPass},
		{StageCombine, r.combinePass},
		{StagePostProcess, r.postProcessPass},
		{StageGui, r.guiPass},
		{StagePresent, r.presentPass},
	}
	for _, p := range passes {
		r.stage = p.stage
		gpu.ApplyState(r.device, gpu.DefaultState)
		if err := p.run(); err != nil {
			return &PassError{Pass: p.stage.String(), Err: err}
		}
	}
	return nil
}

// drawQuad applies e and draws the full-screen quad.
func (r *DeferredRenderer) drawQuad(e *effect.Effect, env effect.Environment) {
	e.Draw(env, nil, r.drawQuadMesh)
}

func (r *DeferredRenderer) drawQuadMesh() {
	r.quad.Draw()
	r.stats.DrawCalls++
}

func (r *DeferredRenderer) drawMesh(m gpu.Mesh) {
	r.device.DrawIndexed(m)
	r.stats.DrawCalls++
}

func (r *DeferredRenderer) warnOnce(key, msg string, args ...interface{}) {
	if r.warned[key] {
		return
	}
	r.warned[key] = true
	core.LogWarn(msg, args...)
}

// Environment

func (r *DeferredRenderer) Device() gpu.Device { return r.device }

func (r *DeferredRenderer) Camera() effect.Camera {
	if r.deps.Scene == nil {
		return nil
	}
	return r.deps.Scene.Camera()
}

func (r *DeferredRenderer) ViewportSize() (int, int) { return r.targets.Size() }

func (r *DeferredRenderer) FrameTexture(name effect.FrameTexture) gpu.Texture {
	switch name {
	case effect.TextureColor:
		return r.ColorTexture()
	case effect.TextureNormal:
		return r.NormalTexture()
	case effect.TextureAmbient:
		return r.AmbientTexture()
	case effect.TextureDepth:
		return r.DepthTexture()
	case effect.TextureLightMap:
		return r.LightMapTexture()
	case effect.TextureShadowMap:
		return r.ShadowMapTexture()
	case effect.TextureScene:
		return r.SceneTexture()
	case effect.TextureGui:
		return r.GuiTexture()
	case effect.TextureFinal:
		return r.FinalTexture()
	case effect.TextureInput:
		return r.postInput
	case effect.TexturePreviousDepth:
		return r.PreviousDepthTexture()
	case effect.TexturePreviousFrame:
		return r.PreviousFrameTexture()
	case effect.TexturePreviousScene:
		return r.PreviousSceneTexture()
	}
	return nil
}

// passEnv overrides the camera and viewport of the renderer environment.
type passEnv struct {
	*DeferredRenderer
	camera        effect.Camera
	width, height int
}

func (e passEnv) Camera() effect.Camera { return e.camera }

func (e passEnv) ViewportSize() (int, int) { return e.width, e.height }

// volume is the transform of a light volume.
type volume mgl32.Mat4

func (v volume) WorldMatrix() mgl32.Mat4 { return mgl32.Mat4(v) }

// Read-only target accessors. They return nil before Initialize.

func asTexture(rt gpu.RenderTarget) gpu.Texture {
	if rt == nil {
		return nil
	}
	return rt
}

func (r *DeferredRenderer) ColorTexture() gpu.Texture { return asTexture(r.targets.Color) }

func (r *DeferredRenderer) NormalTexture() gpu.Texture { return asTexture(r.targets.Normal) }

func (r *DeferredRenderer) AmbientTexture() gpu.Texture { return asTexture(r.targets.Ambient) }

func (r *DeferredRenderer) DepthTexture() gpu.Texture { return asTexture(r.targets.Depth) }

func (r *DeferredRenderer) LightMapTexture() gpu.Texture { return asTexture(r.targets.LightMap) }

func (r *DeferredRenderer) ShadowMapTexture() gpu.Texture { return asTexture(r.targets.ShadowMap) }

func (r *DeferredRenderer) SceneTexture() gpu.Texture { return asTexture(r.targets.Scene) }

func (r *DeferredRenderer) PostProcessedTexture() gpu.Texture {
	return asTexture(r.targets.PostProcessed)
}

func (r *DeferredRenderer) GuiTexture() gpu.Texture { return asTexture(r.targets.Gui) }

func (r *DeferredRenderer) PreviousDepthTexture() gpu.Texture { return asTexture(r.targets.PrevDepth) }

func (r *DeferredRenderer) PreviousSceneTexture() gpu.Texture { return asTexture(r.targets.PrevScene) }

// PreviousFrameTexture is the final texture of the previous frame.
func (r *DeferredRenderer) PreviousFrameTexture() gpu.Texture {
	if r.prevFromPost {
		return asTexture(r.targets.PrevFrame)
	}
	return asTexture(r.targets.PrevScene)
}

// FinalTexture is the post-processed texture when any post effect ran this
// frame, the scene texture otherwise.
func (r *DeferredRenderer) FinalTexture() gpu.Texture {
	return asTexture(r.finalTarget())
}

func (r *DeferredRenderer) finalTarget() gpu.RenderTarget {
	if r.finalFromPost {
		return r.targets.PostProcessed
	}
	return r.targets.Scene
}
