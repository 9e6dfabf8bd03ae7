package renderer

import (
	"fmt"

	"github.com/google/uuid"

	"deferred-renderer/core"
	"deferred-renderer/gpu"
)

// TargetSet owns every render target of the pipeline. Targets leave the set
// only as read-only textures.
type TargetSet struct {
	device gpu.Device

	width, height int
	allocated     bool
	generation    int
	allocations   int

	// G-buffers
	Color   gpu.RenderTarget // albedo rgb, specular intensity a; owns the geometry depth buffer
	Normal  gpu.RenderTarget // encoded normal rgb, specular power a
	Ambient gpu.RenderTarget // emissive rgb
	Depth   gpu.RenderTarget // NDC depth

	LightMap      gpu.RenderTarget
	Scene         gpu.RenderTarget
	PostProcessed gpu.RenderTarget
	Gui           gpu.RenderTarget
	AuxA, AuxB    gpu.RenderTarget

	PrevDepth gpu.RenderTarget
	PrevScene gpu.RenderTarget
	PrevFrame gpu.RenderTarget

	ShadowMap     gpu.RenderTarget
	shadowQuality ShadowQuality
}

func NewTargetSet(device gpu.Device) *TargetSet {
	return &TargetSet{device: device}
}

func (s *TargetSet) Size() (int, int) { return s.width, s.height }

// Generation increments on every full viewport reallocation.
func (s *TargetSet) Generation() int { return s.generation }

// Allocations counts render targets created over the set's lifetime.
func (s *TargetSet) Allocations() int { return s.allocations }

type targetSlot struct {
	dst  *gpu.RenderTarget
	desc gpu.TargetDesc
}

func (s *TargetSet) viewportSlots(w, h int) []targetSlot {
	desc := func(label string, f gpu.Format, depth bool, p gpu.ContentPolicy) gpu.TargetDesc {
		return gpu.TargetDesc{Label: label, Width: w, Height: h, Format: f, Depth: depth, Policy: p}
	}
	keep, discard := gpu.PreserveContents, gpu.DiscardContents
	return []targetSlot{
		{&s.Color, desc("color", gpu.FormatRGBA8, true, discard)},
		{&s.Normal, desc("normal", gpu.FormatRGBA8, false, discard)},
		{&s.Ambient, desc("ambient", gpu.FormatRGBA8, false, discard)},
		{&s.Depth, desc("depth", gpu.FormatR32F, false, discard)},
		{&s.LightMap, desc("lightmap", gpu.FormatRGBA16F, false, keep)},
		{&s.Scene, desc("scene", gpu.FormatRGBA16F, false, keep)},
		{&s.PostProcessed, desc("postprocessed", gpu.FormatRGBA16F, false, keep)},
		{&s.Gui, desc("gui", gpu.FormatRGBA8, true, keep)},
		{&s.AuxA, desc("aux-a", gpu.FormatRGBA16F, false, keep)},
		{&s.AuxB, desc("aux-b", gpu.FormatRGBA16F, false, keep)},
		// History slots swap with their current counterparts, so the
		// descriptions match.
		{&s.PrevDepth, desc("prev-depth", gpu.FormatR32F, false, discard)},
		{&s.PrevScene, desc("prev-scene", gpu.FormatRGBA16F, false, keep)},
		{&s.PrevFrame, desc("prev-frame", gpu.FormatRGBA16F, false, keep)},
	}
}

// EnsureSize (re)allocates every viewport-sized target. It does nothing when
// the set is already allocated at width x height.
func (s *TargetSet) EnsureSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if s.allocated && s.width == width && s.height == height {
		return nil
	}

	s.releaseViewport()
	batch := uuid.New()
	for _, slot := range s.viewportSlots(width, height) {
		rt, err := s.device.CreateRenderTarget(slot.desc)
		if err != nil {
			s.releaseViewport()
			return fmt.Errorf("allocate %s target (%dx%d): %w", slot.desc.Label, width, height, err)
		}
		*slot.dst = rt
		s.allocations++
	}
	s.width, s.height = width, height
	s.allocated = true
	s.generation++
	core.LogInfo("Render targets allocated: %dx%d generation=%d batch=%s", width, height, s.generation, batch)
	return nil
}

// CreateShadowMap replaces the shadow map with one sized for q.
func (s *TargetSet) CreateShadowMap(q ShadowQuality) error {
	size := q.Size()
	rt, err := s.device.CreateRenderTarget(gpu.TargetDesc{
		Label:  "shadowmap",
		Width:  size,
		Height: size,
		Format: gpu.FormatR32F,
		Depth:  true,
		Policy: gpu.DiscardContents,
	})
	if err != nil {
		return fmt.Errorf("allocate shadow map (%s, %d): %w", q, size, err)
	}
	release(&s.ShadowMap)
	s.allocations++
	s.ShadowMap = rt
	s.shadowQuality = q
	core.LogInfo("Shadow map created: quality=%s size=%d", q, size)
	return nil
}

func (s *TargetSet) ShadowQuality() ShadowQuality { return s.shadowQuality }

// SwapFrameHistory exchanges the current and previous depth, scene and
// composited-frame handles. Call exactly once per frame before geometry.
func (s *TargetSet) SwapFrameHistory() {
	s.Depth, s.PrevDepth = s.PrevDepth, s.Depth
	s.Scene, s.PrevScene = s.PrevScene, s.Scene
	s.PostProcessed, s.PrevFrame = s.PrevFrame, s.PostProcessed
}

// Release destroys every target, including the shadow map.
func (s *TargetSet) Release() {
	s.releaseViewport()
	release(&s.ShadowMap)
}

func (s *TargetSet) releaseViewport() {
	for _, slot := range s.viewportSlots(0, 0) {
		release(slot.dst)
	}
	s.allocated = false
	s.width, s.height = 0, 0
}

func release(rt *gpu.RenderTarget) {
	if *rt != nil {
		(*rt).Destroy()
		*rt = nil
	}
}
