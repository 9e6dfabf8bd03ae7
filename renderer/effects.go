package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/core"
	"deferred-renderer/effect"
	"deferred-renderer/gpu"
)

// Programs the renderer loads for its own passes.
const (
	ProgramClearGBuffer = "clear_gbuffer"
	ProgramShadowDepth  = "shadow_depth"
	ProgramDirectional  = "directional_light"
	ProgramPoint        = "point_light"
	ProgramSpot         = "spot_light"
	ProgramCombine      = "combine"
	ProgramSprite       = "sprite"
)

var programNames = []string{
	ProgramClearGBuffer, ProgramShadowDepth, ProgramDirectional,
	ProgramPoint, ProgramSpot, ProgramCombine, ProgramSprite,
}

// Directional light techniques.
const (
	TechniqueShadowed   = "shadowed"
	TechniqueUnshadowed = "unshadowed"
)

var (
	fullscreenState = gpu.StateOverride{Blend: gpu.BlendOpaque, Depth: gpu.DepthNone, Cull: gpu.CullNone}
	lightQuadState  = gpu.StateOverride{Blend: gpu.BlendAdditive, Depth: gpu.DepthNone, Cull: gpu.CullNone}
	// Volumes draw their back faces so they light correctly with the camera
	// inside them.
	lightVolumeState = gpu.StateOverride{Blend: gpu.BlendAdditive, Depth: gpu.DepthNone, Cull: gpu.CullFront}
	shadowState      = gpu.StateOverride{Blend: gpu.BlendOpaque, Depth: gpu.DepthDefault, Cull: gpu.CullNone}
)

func engineParam(name string, src effect.Source) *effect.Parameter {
	p, err := effect.NewEngine(name, src)
	if err != nil {
		panic(err)
	}
	return p
}

func frameParam(name string, tex effect.FrameTexture) *effect.Parameter {
	p, err := effect.NewFrameTexture(name, tex, gpu.FilterPoint)
	if err != nil {
		panic(err)
	}
	return p
}

func newEffect(name string, program gpu.Program, state gpu.StateOverride, params ...*effect.Parameter) (*effect.Effect, error) {
	e, err := effect.New(name, program)
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		if err := e.AddParameter(p); err != nil {
			return nil, err
		}
	}
	e.SetState(state)
	return e, nil
}

// lightEffect is a light program with handles on its per-light parameters.
// Parameters the program does not declare stay unbound.
type lightEffect struct {
	*effect.Effect
	direction, position *effect.Parameter
	color, specular     *effect.Parameter
	intensity, radius   *effect.Parameter
	innerCos, outerCos  *effect.Parameter
	lightViewProj, bias *effect.Parameter
}

func newLightEffect(name string, program gpu.Program, state gpu.StateOverride) (*lightEffect, error) {
	l := &lightEffect{
		direction:     effect.NewVector3("LightDirection", mgl32.Vec3{0, -1, 0}),
		position:      effect.NewVector3("LightPosition", mgl32.Vec3{}),
		color:         effect.NewVector3("LightColor", mgl32.Vec3{1, 1, 1}),
		specular:      effect.NewVector3("SpecularColor", mgl32.Vec3{1, 1, 1}),
		intensity:     effect.NewScalar("LightIntensity", 1),
		radius:        effect.NewScalar("LightRadius", 1),
		innerCos:      effect.NewScalar("SpotInnerCos", 1),
		outerCos:      effect.NewScalar("SpotOuterCos", 0),
		lightViewProj: effect.NewMatrix("LightViewProjection", mgl32.Ident4()),
		bias:          effect.NewScalar("ShadowBias", 0),
	}
	e, err := newEffect(name, program, state,
		engineParam("World", effect.SourceWorld),
		engineParam("ViewProjection", effect.SourceViewProjection),
		engineParam("ViewportSize", effect.SourceViewportSize),
		engineParam("InverseViewProjection", effect.SourceInverseViewProjection),
		engineParam("CameraPosition", effect.SourceCameraPosition),
		frameParam("ColorMap", effect.TextureColor),
		frameParam("NormalMap", effect.TextureNormal),
		frameParam("DepthMap", effect.TextureDepth),
		frameParam("ShadowMap", effect.TextureShadowMap),
		l.direction, l.position, l.color, l.specular, l.intensity, l.radius,
		l.innerCos, l.outerCos, l.lightViewProj, l.bias,
	)
	if err != nil {
		return nil, err
	}
	l.Effect = e
	return l, nil
}

// spriteEffect draws a texture onto a clip-space rectangle.
type spriteEffect struct {
	*effect.Effect
	world, texture, color *effect.Parameter
}

func newSpriteEffect(name string, program gpu.Program, technique string, state gpu.StateOverride) (*spriteEffect, error) {
	s := &spriteEffect{
		world:   effect.NewMatrix("World", mgl32.Ident4()),
		texture: effect.NewTexture("Texture", nil, gpu.FilterPoint),
		color:   effect.NewColor("Color", core.ColorWhite),
	}
	e, err := newEffect(name, program, state, s.world, s.texture, s.color)
	if err != nil {
		return nil, err
	}
	if err := e.SetTechnique(technique); err != nil {
		return nil, err
	}
	s.Effect = e
	return s, nil
}

// effects holds every effect the renderer owns.
type effects struct {
	clear       *effect.Effect
	shadow      *effect.Effect
	directional *lightEffect
	point       *lightEffect
	spot        *lightEffect
	combine     *effect.Effect
	ambient     *effect.Parameter
	present     *spriteEffect
	guiOverlay  *spriteEffect
	debug       *spriteEffect
}

func buildEffects(programs map[string]gpu.Program) (*effects, error) {
	var (
		fx  effects
		err error
	)
	if fx.clear, err = newEffect("clear-gbuffer", programs[ProgramClearGBuffer], fullscreenState); err != nil {
		return nil, err
	}
	fx.shadow, err = newEffect("shadow-depth", programs[ProgramShadowDepth], shadowState,
		engineParam("World", effect.SourceWorld),
		effect.NewMatrix("LightViewProjection", mgl32.Ident4()),
	)
	if err != nil {
		return nil, err
	}
	if fx.directional, err = newLightEffect("directional-light", programs[ProgramDirectional], lightQuadState); err != nil {
		return nil, err
	}
	if fx.point, err = newLightEffect("point-light", programs[ProgramPoint], lightVolumeState); err != nil {
		return nil, err
	}
	if fx.spot, err = newLightEffect("spot-light", programs[ProgramSpot], lightVolumeState); err != nil {
		return nil, err
	}
	fx.ambient = effect.NewVector3("AmbientLight", mgl32.Vec3{})
	fx.combine, err = newEffect("combine", programs[ProgramCombine], fullscreenState,
		frameParam("ColorMap", effect.TextureColor),
		frameParam("LightMap", effect.TextureLightMap),
		frameParam("AmbientMap", effect.TextureAmbient),
		frameParam("DepthMap", effect.TextureDepth),
		fx.ambient,
	)
	if err != nil {
		return nil, err
	}
	if fx.present, err = newSpriteEffect("present", programs[ProgramSprite], "opaque", fullscreenState); err != nil {
		return nil, err
	}
	overlay := gpu.StateOverride{Blend: gpu.BlendAlpha, Depth: gpu.DepthNone, Cull: gpu.CullNone}
	if fx.guiOverlay, err = newSpriteEffect("gui-composite", programs[ProgramSprite], "alpha", overlay); err != nil {
		return nil, err
	}
	if fx.debug, err = newSpriteEffect("debug-overlay", programs[ProgramSprite], "opaque", fullscreenState); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *effects) all() []*effect.Effect {
	return []*effect.Effect{
		fx.clear, fx.shadow,
		fx.directional.Effect, fx.point.Effect, fx.spot.Effect,
		fx.combine,
		fx.present.Effect, fx.guiOverlay.Effect, fx.debug.Effect,
	}
}

// using returns the effects currently running the named program.
func (fx *effects) using(name string) []*effect.Effect {
	var out []*effect.Effect
	for _, e := range fx.all() {
		if e.Program().Name() == name {
			out = append(out, e)
		}
	}
	return out
}

// loadPrograms loads every renderer program, destroying the partial set on
// failure.
func loadPrograms(device gpu.Device) (map[string]gpu.Program, error) {
	programs := make(map[string]gpu.Program, len(programNames))
	for _, name := range programNames {
		p, err := device.LoadProgram(name)
		if err != nil {
			destroyPrograms(programs)
			return nil, fmt.Errorf("load program %q: %w", name, err)
		}
		programs[name] = p
	}
	return programs, nil
}

func destroyPrograms(programs map[string]gpu.Program) {
	for _, p := range programs {
		p.Destroy()
	}
}

// canAdopt reports whether every effect can move to p without losing its
// technique.
func canAdopt(p gpu.Program, users []*effect.Effect) error {
	for _, e := range users {
		if t := e.Technique(); t != "" {
			if _, ok := p.Technique(t); !ok {
				return fmt.Errorf("%w: program %q lacks technique %q used by %q",
					effect.ErrUnknownTechnique, p.Name(), t, e.Name())
			}
		}
	}
	return nil
}
