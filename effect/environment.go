package effect

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/gpu"
)

// Camera supplies the view state engine parameters are computed from.
type Camera interface {
	ViewMatrix() mgl32.Mat4
	ProjectionMatrix() mgl32.Mat4
	Position() mgl32.Vec3
}

// Transformable is the node an effect is applied for.
type Transformable interface {
	WorldMatrix() mgl32.Mat4
}

// FrameTexture names a read-only texture owned by the renderer.
type FrameTexture string

const (
	TextureColor         FrameTexture = "Color"
	TextureNormal        FrameTexture = "Normal"
	TextureAmbient       FrameTexture = "Ambient"
	TextureDepth         FrameTexture = "Depth"
	TextureLightMap      FrameTexture = "LightMap"
	TextureShadowMap     FrameTexture = "ShadowMap"
	TextureScene         FrameTexture = "Scene"
	TextureGui           FrameTexture = "Gui"
	TextureFinal         FrameTexture = "Final"
	TextureInput         FrameTexture = "Input" // current post-process input
	TexturePreviousDepth FrameTexture = "PreviousDepth"
	TexturePreviousFrame FrameTexture = "PreviousFrame"
	TexturePreviousScene FrameTexture = "PreviousScene"
)

var frameTextures = map[FrameTexture]struct{}{
	TextureColor: {}, TextureNormal: {}, TextureAmbient: {}, TextureDepth: {},
	TextureLightMap: {}, TextureShadowMap: {}, TextureScene: {}, TextureGui: {},
	TextureFinal: {}, TextureInput: {}, TexturePreviousDepth: {},
	TexturePreviousFrame: {}, TexturePreviousScene: {},
}

func (t FrameTexture) Valid() bool {
	_, ok := frameTextures[t]
	return ok
}

// Environment is the per-draw context an effect is applied in. The renderer
// implements it.
type Environment interface {
	Device() gpu.Device
	// Camera may be nil.
	Camera() Camera
	// FrameTexture returns nil when the texture is not available this frame.
	FrameTexture(name FrameTexture) gpu.Texture
	ViewportSize() (width, height int)
}
