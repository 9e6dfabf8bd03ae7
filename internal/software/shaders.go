package software

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/gpu"
)

// DefaultLibrary returns the reference programs of the deferred pipeline.
// Uniform names match the GLSL programs shipped in the shaders package.
func DefaultLibrary() *Library {
	l := NewLibrary()

	l.Register("clear_gbuffer", ProgramSource{
		Techniques: []TechniqueSource{{Name: "default", Vertex: quadVertex, Fragment: clearGBufferFragment}},
	})
	l.Register("gbuffer", ProgramSource{
		Uniforms: []string{
			"World", "WorldViewProjection", "WorldInverseTranspose",
			"DiffuseColor", "SpecularIntensity", "SpecularPower", "EmissiveColor",
			"DiffuseTexture", "HasTexture",
		},
		Techniques: []TechniqueSource{{Name: "default", Vertex: gbufferVertex, Fragment: gbufferFragment}},
	})
	l.Register("shadow_depth", ProgramSource{
		Uniforms:   []string{"World", "LightViewProjection"},
		Techniques: []TechniqueSource{{Name: "default", Vertex: shadowVertex, Fragment: shadowFragment}},
	})
	l.Register("directional_light", ProgramSource{
		Uniforms: []string{
			"ColorMap", "NormalMap", "DepthMap", "InverseViewProjection", "CameraPosition",
			"LightDirection", "LightColor", "SpecularColor", "LightIntensity",
			"ShadowMap", "LightViewProjection", "ShadowBias",
		},
		Techniques: []TechniqueSource{
			{Name: "shadowed", Vertex: quadVertex, Fragment: directionalFragment(true)},
			{Name: "unshadowed", Vertex: quadVertex, Fragment: directionalFragment(false)},
		},
	})
	volumeUniforms := []string{
		"World", "ViewProjection", "ViewportSize",
		"ColorMap", "NormalMap", "DepthMap", "InverseViewProjection", "CameraPosition",
		"LightPosition", "LightColor", "SpecularColor", "LightIntensity", "LightRadius",
	}
	l.Register("point_light", ProgramSource{
		Uniforms:   volumeUniforms,
		Techniques: []TechniqueSource{{Name: "default", Vertex: volumeVertex, Fragment: pointFragment}},
	})
	l.Register("spot_light", ProgramSource{
		Uniforms:   append(append([]string(nil), volumeUniforms...), "LightDirection", "SpotInnerCos", "SpotOuterCos"),
		Techniques: []TechniqueSource{{Name: "default", Vertex: volumeVertex, Fragment: spotFragment}},
	})
	l.Register("combine", ProgramSource{
		Uniforms:   []string{"ColorMap", "LightMap", "AmbientMap", "DepthMap", "AmbientLight"},
		Techniques: []TechniqueSource{{Name: "default", Vertex: quadVertex, Fragment: combineFragment}},
	})
	l.Register("sprite", ProgramSource{
		Uniforms: []string{"World", "Texture", "Color"},
		Techniques: []TechniqueSource{
			{Name: "opaque", Vertex: spriteVertex, Fragment: spriteFragment},
			{Name: "alpha", Vertex: spriteVertex, Fragment: spriteFragment},
		},
	})
	l.Register("gui", ProgramSource{
		Uniforms:   []string{"WorldViewProjection", "Color", "Texture", "HasTexture"},
		Techniques: []TechniqueSource{{Name: "default", Vertex: guiVertex, Fragment: guiFragment}},
	})
	l.Register("grayscale", ProgramSource{
		Uniforms:   []string{"Input"},
		Techniques: []TechniqueSource{{Name: "default", Vertex: quadVertex, Fragment: grayscaleFragment}},
	})
	l.Register("tint", ProgramSource{
		Uniforms:   []string{"Input", "TintColor"},
		Techniques: []TechniqueSource{{Name: "default", Vertex: quadVertex, Fragment: tintFragment}},
	})
	l.Register("temporal_blend", ProgramSource{
		Uniforms:   []string{"Input", "PreviousFrame", "BlendFactor"},
		Techniques: []TechniqueSource{{Name: "default", Vertex: quadVertex, Fragment: temporalBlendFragment}},
	})
	return l
}

func quadVertex(_ *Uniforms, v *gpu.Vertex, out *Varyings) mgl32.Vec4 {
	out[0], out[1] = v.UV[0], v.UV[1]
	return mgl32.Vec4{v.Position[0], v.Position[1], v.Position[2], 1}
}

func uvOf(in *Fragment) mgl32.Vec2 {
	return mgl32.Vec2{in.Varyings[0], in.Varyings[1]}
}

func clearGBufferFragment(_ *Uniforms, _ *Fragment, out *Outputs) bool {
	out[0] = mgl32.Vec4{0, 0, 0, 0}
	out[1] = mgl32.Vec4{0.5, 0.5, 0.5, 0}
	out[2] = mgl32.Vec4{0, 0, 0, 0}
	out[3] = mgl32.Vec4{1, 0, 0, 1}
	return true
}

func gbufferVertex(u *Uniforms, v *gpu.Vertex, out *Varyings) mgl32.Vec4 {
	n := u.Mat4("WorldInverseTranspose").Mul4x1(v.Normal.Vec4(0)).Vec3()
	out[0], out[1], out[2] = n[0], n[1], n[2]
	out[3], out[4] = v.UV[0], v.UV[1]
	out[5], out[6], out[7], out[8] = v.Color[0], v.Color[1], v.Color[2], v.Color[3]
	return u.Mat4("WorldViewProjection").Mul4x1(v.Position.Vec4(1))
}

func gbufferFragment(u *Uniforms, in *Fragment, out *Outputs) bool {
	vr := &in.Varyings
	albedo := u.Vec4("DiffuseColor")
	vc := mgl32.Vec4{vr[5], vr[6], vr[7], vr[8]}
	albedo = mulVec4(albedo, vc)
	if u.Float("HasTexture") > 0.5 {
		albedo = mulVec4(albedo, u.Sample("DiffuseTexture", mgl32.Vec2{vr[3], vr[4]}))
	}
	n := normalize(mgl32.Vec3{vr[0], vr[1], vr[2]})

	out[0] = mgl32.Vec4{albedo[0], albedo[1], albedo[2], u.Float("SpecularIntensity")}
	out[1] = mgl32.Vec4{n[0]*0.5 + 0.5, n[1]*0.5 + 0.5, n[2]*0.5 + 0.5, u.Float("SpecularPower") / 255}
	out[2] = u.Vec3("EmissiveColor").Vec4(1)
	out[3] = mgl32.Vec4{in.Coord[2]*2 - 1, 0, 0, 1}
	return true
}

func shadowVertex(u *Uniforms, v *gpu.Vertex, _ *Varyings) mgl32.Vec4 {
	return u.Mat4("LightViewProjection").Mul4(u.Mat4("World")).Mul4x1(v.Position.Vec4(1))
}

func shadowFragment(_ *Uniforms, in *Fragment, out *Outputs) bool {
	out[0] = mgl32.Vec4{in.Coord[2], 0, 0, 1}
	return true
}

// surface is the G-buffer content at one pixel.
type surface struct {
	albedo        mgl32.Vec3
	specIntensity float32
	specPower     float32
	normal        mgl32.Vec3
	position      mgl32.Vec3
}

// readSurface returns false for background pixels.
func readSurface(u *Uniforms, uv mgl32.Vec2) (surface, bool) {
	depth := u.Sample("DepthMap", uv)[0]
	if depth >= 1 {
		return surface{}, false
	}
	c := u.Sample("ColorMap", uv)
	nm := u.Sample("NormalMap", uv)
	ndc := mgl32.Vec4{uv[0]*2 - 1, uv[1]*2 - 1, depth, 1}
	wp := u.Mat4("InverseViewProjection").Mul4x1(ndc)
	return surface{
		albedo:        c.Vec3(),
		specIntensity: c[3],
		specPower:     nm[3] * 255,
		normal:        normalize(mgl32.Vec3{nm[0]*2 - 1, nm[1]*2 - 1, nm[2]*2 - 1}),
		position:      wp.Vec3().Mul(1 / wp[3]),
	}, true
}

// phong returns the diffuse and specular terms for light arriving along toLight.
func phong(u *Uniforms, s *surface, toLight mgl32.Vec3) (float32, float32) {
	ndl := math32.Max(s.normal.Dot(toLight), 0)
	if ndl == 0 {
		return 0, 0
	}
	view := normalize(u.Vec3("CameraPosition").Sub(s.position))
	r := reflect(toLight.Mul(-1), s.normal)
	spec := float32(0)
	if s.specIntensity > 0 && s.specPower > 0 {
		spec = s.specIntensity * math32.Pow(math32.Max(r.Dot(view), 0), s.specPower)
	}
	return ndl, spec
}

func lightOutput(u *Uniforms, ndl, spec, factor float32) mgl32.Vec4 {
	intensity := u.Float("LightIntensity") * factor
	c := u.Vec3("LightColor").Mul(ndl * intensity)
	sc := u.Vec3("SpecularColor")
	specLum := (sc[0] + sc[1] + sc[2]) / 3
	return mgl32.Vec4{c[0], c[1], c[2], spec * specLum * intensity}
}

func directionalFragment(shadowed bool) FragmentShader {
	return func(u *Uniforms, in *Fragment, out *Outputs) bool {
		s, ok := readSurface(u, uvOf(in))
		if !ok {
			return false
		}
		toLight := normalize(u.Vec3("LightDirection").Mul(-1))
		ndl, spec := phong(u, &s, toLight)
		factor := float32(1)
		if shadowed {
			factor = shadowFactor(u, s.position)
		}
		out[0] = lightOutput(u, ndl, spec, factor)
		return true
	}
}

// shadowFactor is a 3x3 percentage-closer filter over the shadow map; 1 is
// fully lit.
func shadowFactor(u *Uniforms, world mgl32.Vec3) float32 {
	lp := u.Mat4("LightViewProjection").Mul4x1(world.Vec4(1))
	if lp[3] <= 0 {
		return 1
	}
	ndc := lp.Vec3().Mul(1 / lp[3])
	uv := mgl32.Vec2{ndc[0]*0.5 + 0.5, ndc[1]*0.5 + 0.5}
	depth := ndc[2]*0.5 + 0.5
	if uv[0] < 0 || uv[0] > 1 || uv[1] < 0 || uv[1] > 1 || depth > 1 {
		return 1
	}
	size := u.TextureSize("ShadowMap")
	if size[0] == 0 {
		return 1
	}
	texel := mgl32.Vec2{1 / size[0], 1 / size[1]}
	bias := u.Float("ShadowBias")
	lit := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			off := mgl32.Vec2{float32(dx) * texel[0], float32(dy) * texel[1]}
			if depth-bias <= u.Sample("ShadowMap", uv.Add(off))[0] {
				lit++
			}
		}
	}
	return float32(lit) / 9
}

func volumeVertex(u *Uniforms, v *gpu.Vertex, _ *Varyings) mgl32.Vec4 {
	return u.Mat4("ViewProjection").Mul4(u.Mat4("World")).Mul4x1(v.Position.Vec4(1))
}

func screenUV(u *Uniforms, in *Fragment) mgl32.Vec2 {
	vp := u.Vec2("ViewportSize")
	if vp[0] == 0 || vp[1] == 0 {
		return mgl32.Vec2{}
	}
	return mgl32.Vec2{in.Coord[0] / vp[0], in.Coord[1] / vp[1]}
}

// attenuation falls off smoothly to zero at radius.
func attenuation(dist, radius float32) float32 {
	if radius <= 0 {
		return 0
	}
	a := clamp01(1 - (dist*dist)/(radius*radius))
	return a * a
}

func pointFragment(u *Uniforms, in *Fragment, out *Outputs) bool {
	s, ok := readSurface(u, screenUV(u, in))
	if !ok {
		return false
	}
	toLight := u.Vec3("LightPosition").Sub(s.position)
	dist := toLight.Len()
	att := attenuation(dist, u.Float("LightRadius"))
	if att == 0 {
		return false
	}
	ndl, spec := phong(u, &s, normalize(toLight))
	out[0] = lightOutput(u, ndl, spec, att)
	return true
}

func spotFragment(u *Uniforms, in *Fragment, out *Outputs) bool {
	s, ok := readSurface(u, screenUV(u, in))
	if !ok {
		return false
	}
	toLight := u.Vec3("LightPosition").Sub(s.position)
	dist := toLight.Len()
	att := attenuation(dist, u.Float("LightRadius"))
	if att == 0 {
		return false
	}
	l := normalize(toLight)
	theta := l.Dot(normalize(u.Vec3("LightDirection").Mul(-1)))
	inner, outer := u.Float("SpotInnerCos"), u.Float("SpotOuterCos")
	cone := float32(1)
	if inner > outer {
		cone = clamp01((theta - outer) / (inner - outer))
	} else if theta < outer {
		cone = 0
	}
	if cone == 0 {
		return false
	}
	ndl, spec := phong(u, &s, l)
	out[0] = lightOutput(u, ndl, spec, att*cone)
	return true
}

func combineFragment(u *Uniforms, in *Fragment, out *Outputs) bool {
	uv := uvOf(in)
	if u.Sample("DepthMap", uv)[0] >= 1 {
		return false
	}
	albedo := u.Sample("ColorMap", uv).Vec3()
	light := u.Sample("LightMap", uv)
	ambient := u.Sample("AmbientMap", uv).Vec3()
	lit := light.Vec3().Add(u.Vec3("AmbientLight"))
	c := mgl32.Vec3{albedo[0] * lit[0], albedo[1] * lit[1], albedo[2] * lit[2]}
	c = c.Add(ambient).Add(mgl32.Vec3{light[3], light[3], light[3]})
	out[0] = c.Vec4(1)
	return true
}

func spriteVertex(u *Uniforms, v *gpu.Vertex, out *Varyings) mgl32.Vec4 {
	out[0], out[1] = v.UV[0], v.UV[1]
	return u.Mat4("World").Mul4x1(v.Position.Vec4(1))
}

func spriteFragment(u *Uniforms, in *Fragment, out *Outputs) bool {
	out[0] = mulVec4(u.Sample("Texture", uvOf(in)), u.Vec4("Color"))
	return true
}

func guiVertex(u *Uniforms, v *gpu.Vertex, out *Varyings) mgl32.Vec4 {
	out[0], out[1] = v.UV[0], v.UV[1]
	return u.Mat4("WorldViewProjection").Mul4x1(v.Position.Vec4(1))
}

func guiFragment(u *Uniforms, in *Fragment, out *Outputs) bool {
	c := u.Vec4("Color")
	if u.Float("HasTexture") > 0.5 {
		c = mulVec4(c, u.Sample("Texture", uvOf(in)))
	}
	out[0] = c
	return true
}

func grayscaleFragment(u *Uniforms, in *Fragment, out *Outputs) bool {
	c := u.Sample("Input", uvOf(in))
	l := 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
	out[0] = mgl32.Vec4{l, l, l, c[3]}
	return true
}

func tintFragment(u *Uniforms, in *Fragment, out *Outputs) bool {
	out[0] = mulVec4(u.Sample("Input", uvOf(in)), u.Vec4("TintColor"))
	return true
}

func temporalBlendFragment(u *Uniforms, in *Fragment, out *Outputs) bool {
	uv := uvOf(in)
	cur := u.Sample("Input", uv)
	prev := u.Sample("PreviousFrame", uv)
	f := clamp01(u.Float("BlendFactor"))
	out[0] = cur.Mul(1 - f).Add(prev.Mul(f))
	return true
}

func mulVec4(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}

func reflect(i, n mgl32.Vec3) mgl32.Vec3 {
	return i.Sub(n.Mul(2 * n.Dot(i)))
}
