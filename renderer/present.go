package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/core"
	"deferred-renderer/effect"
	"deferred-renderer/gpu"
	"deferred-renderer/gui"
)

// postProcessPass runs every enabled chain in order. Each effect reads the
// previous output through the Input frame texture; intermediate results
// ping-pong between the aux targets and each chain's last effect writes the
// post-processed target.
func (r *DeferredRenderer) postProcessPass() error {
	if r.deps.PostProcess == nil {
		return nil
	}
	t := r.targets
	var input gpu.Texture = t.Scene
	for _, chain := range r.deps.PostProcess.EnabledChains() {
		effects := chain.Effects()
		if len(effects) == 0 {
			continue
		}
		if input == gpu.Texture(t.PostProcessed) {
			// The chain's last effect writes the post-processed target, so
			// the input moves to a free aux target.
			t.PostProcessed, t.AuxA = t.AuxA, t.PostProcessed
			input = t.AuxA
		}
		for i, e := range effects {
			out := t.PostProcessed
			if i < len(effects)-1 {
				out = t.AuxA
				if input == gpu.Texture(t.AuxA) {
					out = t.AuxB
				}
			}
			r.device.SetRenderTargets(out)
			gpu.ApplyState(r.device, fullscreenState)
			r.postInput = input
			r.drawQuad(e, r)
			r.stats.PostEffects++
			input = out
		}
		r.stats.PostChains++
		r.finalFromPost = true
	}
	r.postInput = nil
	return nil
}

// guiPass draws the GUI into the GUI texture or the final texture, depending
// on the GUI mode. Primary-surface GUIs are drawn by presentPass.
func (r *DeferredRenderer) guiPass() error {
	switch r.opts.GuiMode {
	case GuiSeparateTexture:
		r.device.SetRenderTargets(r.targets.Gui)
		r.device.Clear(gpu.ClearColor|gpu.ClearDepth, core.ColorTransparent, 1)
	case GuiFinalTexture:
		r.device.SetRenderTargets(r.finalTarget())
		r.clearDepth()
	default:
		return nil
	}
	w, h := r.targets.Size()
	return r.drawGui(w, h)
}

func (r *DeferredRenderer) drawGui(width, height int) error {
	if r.deps.Gui == nil {
		return nil
	}
	env := passEnv{DeferredRenderer: r, camera: gui.ScreenCamera{Width: width, Height: height}, width: width, height: height}
	draw := func(n gui.Node) error {
		if m := n.Material(); m != nil {
			m.Draw(env, n, r.drawQuadMesh)
			gpu.ApplyState(r.device, gpu.DefaultState)
		}
		return nil
	}
	clears, err := drawLayered(r.deps.Gui.VisibleNodes(), draw, r.clearDepth)
	r.stats.GuiDepthClears += clears
	return err
}

// presentPass copies the final texture to the primary surface, composites
// the GUI and draws the debug overlay.
func (r *DeferredRenderer) presentPass() error {
	if r.opts.RenderToPrimary {
		r.device.SetRenderTargets()
		r.device.Clear(gpu.ClearColor|gpu.ClearDepth, r.opts.Background, 1)
		r.blit(r.fx.present, r.FinalTexture(), mgl32.Ident4())
		if r.opts.GuiMode == GuiSeparateTexture && r.deps.Gui != nil {
			r.blit(r.fx.guiOverlay, r.GuiTexture(), mgl32.Ident4())
		}
	}
	if r.opts.GuiMode == GuiPrimarySurface && r.deps.Gui != nil {
		r.device.SetRenderTargets()
		r.clearDepth()
		w, h := r.device.SurfaceSize()
		if err := r.drawGui(w, h); err != nil {
			return err
		}
	}
	if r.opts.DebugOverlay {
		r.device.SetRenderTargets()
		r.drawDebugOverlay()
	}
	r.device.SetRenderTargets()
	return nil
}

func (r *DeferredRenderer) blit(s *spriteEffect, tex gpu.Texture, world mgl32.Mat4) {
	if tex == nil {
		return
	}
	_ = s.world.SetMatrix(world)
	_ = s.texture.SetTexture(tex, gpu.FilterPoint)
	r.drawQuad(s.Effect, r)
}

// drawDebugOverlay lays thumbnails of the intermediate textures along the
// bottom edge of the surface.
func (r *DeferredRenderer) drawDebugOverlay() {
	names := []effect.FrameTexture{
		effect.TextureColor, effect.TextureNormal, effect.TextureDepth,
		effect.TextureLightMap, effect.TextureShadowMap,
	}
	n := float32(len(names))
	for i, name := range names {
		cx := -1 + (float32(i)+0.5)*2/n
		world := mgl32.Translate3D(cx, -0.8, 0).Mul4(mgl32.Scale3D(1/n, 0.2, 1))
		r.blit(r.fx.debug, r.FrameTexture(name), world)
	}
}
