// Package showcase builds the plaza scene shared by the demo and snapshot
// hosts: lit geometry, a shadow-casting sun, lamp posts with point lights, a
// spot light, switchable post-process chains and a small layered HUD.
package showcase

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/core"
	"deferred-renderer/effect"
	"deferred-renderer/gpu"
	"deferred-renderer/gui"
	"deferred-renderer/postprocess"
	"deferred-renderer/renderer"
	"deferred-renderer/scene"
)

// PostMode selects which post-process chain is enabled.
type PostMode int

const (
	PostNone PostMode = iota
	PostGrayscale
	PostTint
	PostTrails
	postModes
)

func (m PostMode) String() string {
	switch m {
	case PostNone:
		return "none"
	case PostGrayscale:
		return "grayscale"
	case PostTint:
		return "tint"
	case PostTrails:
		return "trails"
	}
	return fmt.Sprintf("PostMode(%d)", int(m))
}

type Showcase struct {
	Scene    *scene.Scene
	Camera   *scene.OrbitCamera
	Gui      *gui.Manager
	Post     *postprocess.Manager
	Sun      *scene.Light
	DayNight *DayNight

	chains   [postModes]*postprocess.Chain
	post     PostMode
	panel    *gui.Sprite
	sunBar   *gui.Sprite
	clockBar *gui.Sprite

	// Fountain_Top spins and bobs; bob is its current height offset.
	orb     *scene.Object
	orbTime float32
	orbBob  float32

	meshes   map[string]uploaded
	textures []gpu.Texture
	programs map[string]gpu.Program
	users    map[string][]*effect.Effect
}

type uploaded struct {
	mesh  gpu.Mesh
	local scene.AABB
}

// Build creates the scene on dev. Programs are loaded from dev; the returned
// showcase owns every mesh and texture it uploaded.
func Build(dev gpu.Device) (*Showcase, error) {
	w, h := dev.SurfaceSize()
	s := &Showcase{
		Scene:    scene.NewScene(),
		Gui:      gui.NewManager(),
		Post:     postprocess.NewManager(),
		DayNight: NewDayNight(),
		meshes:   make(map[string]uploaded),
		programs: make(map[string]gpu.Program),
		users:    make(map[string][]*effect.Effect),
	}

	s.Camera = scene.NewOrbitCamera(mgl32.Vec3{0, 1.5, 0}, 30, mgl32.DegToRad(60), float32(w)/float32(h))
	s.Camera.SetPerspective(mgl32.DegToRad(60), float32(w)/float32(h), 0.5, 120)
	s.Camera.Pitch = 0.45
	s.Camera.UpdatePosition()
	s.Scene.SetCamera(&s.Camera.Camera)
	s.Scene.FrustumCull = true

	for _, build := range []func(gpu.Device) error{s.buildPlaza, s.buildPostProcess, s.buildHud} {
		if err := build(dev); err != nil {
			s.Release()
			return nil, err
		}
	}
	return s, nil
}

// mesh uploads the mesh built by build once per key.
func (s *Showcase) mesh(dev gpu.Device, key string, build func() *scene.Mesh) (gpu.Mesh, scene.AABB, error) {
	if u, ok := s.meshes[key]; ok {
		return u.mesh, u.local, nil
	}
	m := build()
	gm, err := m.Upload(dev)
	if err != nil {
		return nil, scene.AABB{}, err
	}
	s.meshes[key] = uploaded{mesh: gm, local: m.LocalAABB}
	return gm, m.LocalAABB, nil
}

// program loads name once; use records the effects built on it.
func (s *Showcase) program(dev gpu.Device, name string) (gpu.Program, error) {
	if p, ok := s.programs[name]; ok {
		return p, nil
	}
	p, err := dev.LoadProgram(name)
	if err != nil {
		return nil, err
	}
	s.programs[name] = p
	return p, nil
}

func (s *Showcase) use(name string, e *effect.Effect) {
	s.users[name] = append(s.users[name], e)
}

// Reload loads every program again and moves its effects over. A program
// that fails to load, or lacks a technique one of its effects uses, keeps
// the previous version.
func (s *Showcase) Reload(dev gpu.Device) error {
	var errs []error
	for name, old := range s.programs {
		p, err := dev.LoadProgram(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := adoptable(p, s.users[name]); err != nil {
			p.Destroy()
			errs = append(errs, err)
			continue
		}
		for _, e := range s.users[name] {
			_ = e.SetProgram(p)
		}
		old.Destroy()
		s.programs[name] = p
	}
	return errors.Join(errs...)
}

func adoptable(p gpu.Program, users []*effect.Effect) error {
	for _, e := range users {
		if t := e.Technique(); t != "" {
			if _, ok := p.Technique(t); !ok {
				return fmt.Errorf("program %s: %w: %q", p.Name(), effect.ErrUnknownTechnique, t)
			}
		}
	}
	return nil
}

func (s *Showcase) buildPlaza(dev gpu.Device) error {
	prog, err := s.program(dev, scene.GBufferProgram)
	if err != nil {
		return err
	}

	checker := scene.NewCheckerTexture("Paving", 64, 8,
		core.Color{R: 0.66, G: 0.62, B: 0.56, A: 1}, core.Color{R: 0.56, G: 0.52, B: 0.47, A: 1})
	paving, err := checker.Upload(dev)
	if err != nil {
		return err
	}
	s.textures = append(s.textures, paving)

	matGround := scene.NewMaterial("Ground", core.ColorWhite)
	matGround.Specular, matGround.Shininess, matGround.Texture = 0.05, 4, paving
	matStone := scene.NewMaterial("Stone", core.Color{R: 0.58, G: 0.55, B: 0.50, A: 1})
	matStone.Shininess = 8
	matBrick := scene.NewMaterial("Brick", core.Color{R: 0.70, G: 0.43, B: 0.30, A: 1})
	matBrick.Shininess = 4
	matPlaster := scene.NewMaterial("Plaster", core.Color{R: 0.90, G: 0.87, B: 0.78, A: 1})
	matPlaster.Shininess = 16
	matRoof := scene.NewMaterial("Roof", core.Color{R: 0.32, G: 0.30, B: 0.28, A: 1})
	matMarble := scene.NewMaterial("Marble", core.Color{R: 0.92, G: 0.90, B: 0.86, A: 1})
	matMarble.Specular, matMarble.Shininess = 0.8, 64
	matTrunk := scene.NewMaterial("Trunk", core.Color{R: 0.42, G: 0.28, B: 0.13, A: 1})
	matTrunk.Shininess = 4
	matLeaves := scene.NewMaterial("Leaves", core.Color{R: 0.12, G: 0.42, B: 0.15, A: 1})
	matLeaves.Shininess = 4
	matMetal := scene.NewMaterial("Metal", core.Color{R: 0.14, G: 0.14, B: 0.12, A: 1})
	matMetal.Specular, matMetal.Shininess = 0.9, 96
	matLamp := scene.NewMaterial("LampGlow", core.Color{R: 1, G: 0.85, B: 0.45, A: 1})
	matLamp.Emissive = core.Color{R: 1.5, G: 1.0, B: 0.3, A: 1}

	effects := make(map[*scene.Material]*effect.Effect)
	add := func(name, key string, build func() *scene.Mesh, mat *scene.Material, pos, scale mgl32.Vec3) (*scene.Object, error) {
		gm, local, err := s.mesh(dev, key, build)
		if err != nil {
			return nil, err
		}
		e, ok := effects[mat]
		if !ok {
			if e, err = mat.NewEffect(prog); err != nil {
				return nil, err
			}
			effects[mat] = e
			s.use(scene.GBufferProgram, e)
		}
		o := scene.NewObject(name, gm, local, e)
		o.Node.SetPosition(pos)
		o.Node.SetScale(scale)
		s.Scene.AddObject(o)
		return o, nil
	}
	cube := func() *scene.Mesh { return scene.CreateCube(1) }
	one := mgl32.Vec3{1, 1, 1}

	ground, err := add("Ground", "plane", func() *scene.Mesh { return scene.CreatePlane(80, 80, 8) }, matGround, mgl32.Vec3{}, one)
	if err != nil {
		return err
	}
	// The ground only receives shadows; keeping it out of the casters keeps
	// the light frustum tight.
	ground.CastsShadows = false

	buildings := []struct {
		name       string
		pos, scale mgl32.Vec3
		mat        *scene.Material
	}{
		{"Bldg_NW", mgl32.Vec3{-15, 4.5, -15}, mgl32.Vec3{9, 9, 9}, matStone},
		{"Bldg_NW_roof", mgl32.Vec3{-15, 9.5, -15}, mgl32.Vec3{10, 1, 10}, matRoof},
		{"Bldg_NE", mgl32.Vec3{16, 3.5, -15}, mgl32.Vec3{12, 7, 10}, matBrick},
		{"Bldg_NE_roof", mgl32.Vec3{16, 7.5, -15}, mgl32.Vec3{13, 1, 11}, matRoof},
		{"Bldg_SW", mgl32.Vec3{-15, 3, 16}, mgl32.Vec3{8, 6, 8}, matPlaster},
		{"Bldg_SW_roof", mgl32.Vec3{-15, 6.5, 16}, mgl32.Vec3{9, 1, 9}, matRoof},
		{"Bldg_SE", mgl32.Vec3{16, 2.5, 16}, mgl32.Vec3{14, 5, 8}, matStone},
		{"Bldg_SE_roof", mgl32.Vec3{16, 5.5, 16}, mgl32.Vec3{15, 1, 9}, matRoof},
		{"Wall_0", mgl32.Vec3{-10, 0.5, 0}, mgl32.Vec3{0.5, 1, 18}, matStone},
		{"Wall_1", mgl32.Vec3{10, 0.5, 0}, mgl32.Vec3{0.5, 1, 18}, matStone},
		{"Fountain_Base", mgl32.Vec3{0, 0.2, 0}, mgl32.Vec3{6, 0.4, 6}, matMarble},
		{"Fountain_Pillar", mgl32.Vec3{0, 1.6, 0}, mgl32.Vec3{0.7, 2.8, 0.7}, matMarble},
	}
	for _, b := range buildings {
		if _, err := add(b.name, "cube", cube, b.mat, b.pos, b.scale); err != nil {
			return err
		}
	}
	if s.orb, err = add("Fountain_Top", "sphere", func() *scene.Mesh { return scene.CreateSphere(0.5, 16, 8) },
		matMarble, mgl32.Vec3{0, 3.3, 0}, one); err != nil {
		return err
	}

	for i, tp := range []mgl32.Vec3{{-8, 0, -5}, {8, 0, -6}, {-9, 0, 6}, {9, 0, 5}, {-6, 0, -11}, {7, 0, -10}} {
		if _, err := add(fmt.Sprintf("Trunk%d", i), "cube", cube, matTrunk,
			mgl32.Vec3{tp[0], 1.1, tp[2]}, mgl32.Vec3{0.4, 2.2, 0.4}); err != nil {
			return err
		}
		canopy, err := add(fmt.Sprintf("Canopy%d", i), "cone", func() *scene.Mesh { return scene.CreateCone(1.7, 3, 16) },
			matLeaves, mgl32.Vec3{tp[0], 5.1, tp[2]}, one)
		if err != nil {
			return err
		}
		// Cones open along -Z; tip them so the apex points up.
		canopy.Node.Rotate(mgl32.Vec3{1, 0, 0}, -math32.Pi/2)
	}

	for i, lp := range []mgl32.Vec3{{-5.5, 0, -5.5}, {5.5, 0, -5.5}, {-5.5, 0, 5.5}, {5.5, 0, 5.5}} {
		if _, err := add(fmt.Sprintf("LampPole%d", i), "cube", cube, matMetal,
			mgl32.Vec3{lp[0], 2.4, lp[2]}, mgl32.Vec3{0.18, 4.8, 0.18}); err != nil {
			return err
		}
		capObj, err := add(fmt.Sprintf("LampCap%d", i), "lamp", func() *scene.Mesh { return scene.CreateSphere(0.28, 12, 6) },
			matLamp, mgl32.Vec3{lp[0], 4.9, lp[2]}, one)
		if err != nil {
			return err
		}
		capObj.CastsShadows = false
		s.Scene.AddLight(scene.NewPointLight(mgl32.Vec3{lp[0], 4.4, lp[2]},
			core.Color{R: 1, G: 0.78, B: 0.35, A: 1}, 1.5, 9))
	}

	spot := scene.NewSpotLight(mgl32.Vec3{0, 9, 8}, mgl32.Vec3{0, -1, -0.9},
		core.Color{R: 0.6, G: 0.8, B: 1, A: 1}, 2, 20, 25)
	s.Scene.AddLight(spot)

	s.Sun = scene.NewDirectionalLight(mgl32.Vec3{0.55, -0.75, -0.35}, core.ColorWhite, 1.1)
	s.Sun.CastsShadows = true
	s.Scene.AddLight(s.Sun)
	return nil
}

func (s *Showcase) buildPostProcess(dev gpu.Device) error {
	newEffect := func(program string) (*effect.Effect, error) {
		prog, err := s.program(dev, program)
		if err != nil {
			return nil, err
		}
		e, err := effect.New(program, prog)
		if err != nil {
			return nil, err
		}
		s.use(program, e)
		in, err := effect.NewFrameTexture("Input", effect.TextureInput, gpu.FilterPoint)
		if err != nil {
			return nil, err
		}
		return e, e.AddParameter(in)
	}

	gray, err := newEffect("grayscale")
	if err != nil {
		return err
	}
	tint, err := newEffect("tint")
	if err != nil {
		return err
	}
	if err := tint.AddParameter(effect.NewColor("TintColor", core.Color{R: 1, G: 0.85, B: 0.65, A: 1})); err != nil {
		return err
	}
	blend, err := newEffect("temporal_blend")
	if err != nil {
		return err
	}
	prev, err := effect.NewFrameTexture("PreviousFrame", effect.TexturePreviousFrame, gpu.FilterPoint)
	if err != nil {
		return err
	}
	if err := errors.Join(blend.AddParameter(prev), blend.AddParameter(effect.NewScalar("BlendFactor", 0.8))); err != nil {
		return err
	}

	for mode, effects := range map[PostMode][]*effect.Effect{
		PostGrayscale: {gray},
		PostTint:      {tint},
		PostTrails:    {blend},
	} {
		c := postprocess.NewChain(mode.String())
		for _, e := range effects {
			if err := c.AddEffect(e); err != nil {
				return err
			}
		}
		c.Disable()
		s.chains[mode] = c
	}
	for mode := PostGrayscale; mode < postModes; mode++ {
		if err := s.Post.AddChain(s.chains[mode]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Showcase) buildHud(dev gpu.Device) error {
	prog, err := s.program(dev, gui.Program)
	if err != nil {
		return err
	}
	s.panel, err = gui.NewSprite(prog, "Panel", core.Rect{X: 12, Y: 12, Width: 220, Height: 44}, core.Color{R: 0, G: 0, B: 0, A: 0.45})
	if err != nil {
		return err
	}
	s.sunBar, err = gui.NewSprite(prog, "SunBar", core.Rect{X: 20, Y: 20, Width: 0, Height: 10}, core.ColorYellow)
	if err != nil {
		return err
	}
	s.clockBar, err = gui.NewSprite(prog, "ClockBar", core.Rect{X: 20, Y: 38, Width: 0, Height: 10}, core.Color{R: 0.4, G: 0.7, B: 1, A: 1})
	if err != nil {
		return err
	}
	s.sunBar.SetLayer(1)
	s.clockBar.SetLayer(1)
	for _, sp := range []*gui.Sprite{s.panel, s.sunBar, s.clockBar} {
		s.Gui.Add(sp)
		s.use(gui.Program, sp.Material())
	}
	return nil
}

// PostMode reports the enabled post-process chain.
func (s *Showcase) PostMode() PostMode { return s.post }

// SetPostMode enables the chain of m and disables the others.
func (s *Showcase) SetPostMode(m PostMode) {
	s.post = m
	for mode, c := range s.chains {
		if c == nil {
			continue
		}
		c.SetEnabled(PostMode(mode) == m)
	}
}

// CyclePostMode advances to the next post-process chain.
func (s *Showcase) CyclePostMode() PostMode {
	s.SetPostMode((s.post + 1) % postModes)
	return s.post
}

// Update advances the day/night cycle by dt seconds and pushes its state to
// the sun, the renderer options and the HUD bars.
func (s *Showcase) Update(dt float32, r *renderer.DeferredRenderer) error {
	s.DayNight.Update(dt)
	s.animateOrb(dt)
	opts := r.Options()
	s.DayNight.Apply(s.Sun, &opts)
	if err := r.SetOptions(opts); err != nil {
		return err
	}
	const barWidth = 204
	s.sunBar.SetRect(core.Rect{X: 20, Y: 20, Width: barWidth * mgl32.Clamp(s.Sun.Intensity/1.2, 0, 1), Height: 10})
	s.clockBar.SetRect(core.Rect{X: 20, Y: 38, Width: barWidth * s.DayNight.Time, Height: 10})
	return nil
}

func (s *Showcase) animateOrb(dt float32) {
	if s.orb == nil || dt == 0 {
		return
	}
	s.orbTime += dt
	s.orb.Node.SetRotation(mgl32.QuatRotate(0.8*s.orbTime, mgl32.Vec3{0, 1, 0}))
	bob := 0.15 * math32.Sin(2*s.orbTime)
	s.orb.Node.Translate(mgl32.Vec3{0, bob - s.orbBob, 0})
	s.orbBob = bob
}

// Resize keeps the camera aspect in step with the surface.
func (s *Showcase) Resize(width, height int) {
	if width > 0 && height > 0 {
		s.Camera.UpdateAspectRatio(float32(width), float32(height))
	}
}

func (s *Showcase) Release() {
	for key, u := range s.meshes {
		u.mesh.Destroy()
		delete(s.meshes, key)
	}
	for _, t := range s.textures {
		t.Destroy()
	}
	s.textures = nil
	for name, p := range s.programs {
		p.Destroy()
		delete(s.programs, name)
	}
}
