package scene

import (
	"fmt"

	"deferred-renderer/core"
	"deferred-renderer/effect"
	"deferred-renderer/gpu"
)

// GBufferProgram is the program materials render through.
const GBufferProgram = "gbuffer"

// Material describes surface appearance properties for a mesh.
type Material struct {
	Name      string
	Albedo    core.Color // base diffuse color (multiplied with Texture if set)
	Specular  float32    // specular intensity, 0..1
	Shininess float32    // Phong exponent, 1..255
	Emissive  core.Color // added unlit

	// Optional albedo texture.
	Texture gpu.Texture
}

// DefaultMaterial returns a plain white matte Phong material.
func DefaultMaterial() *Material {
	return &Material{
		Name:      "Default",
		Albedo:    core.ColorWhite,
		Specular:  0.3,
		Shininess: 32,
	}
}

// NewMaterial creates a Phong material with the given albedo color.
func NewMaterial(name string, albedo core.Color) *Material {
	return &Material{
		Name:      name,
		Albedo:    albedo,
		Specular:  0.5,
		Shininess: 32,
	}
}

// NewEffect builds the G-buffer effect for m on a loaded gbuffer program.
func (m *Material) NewEffect(program gpu.Program) (*effect.Effect, error) {
	e, err := effect.New("material:"+m.Name, program)
	if err != nil {
		return nil, err
	}

	world, _ := effect.NewEngine("World", effect.SourceWorld)
	wvp, _ := effect.NewEngine("WorldViewProjection", effect.SourceWorldViewProjection)
	wit, _ := effect.NewEngine("WorldInverseTranspose", effect.SourceWorldInverseTranspose)
	hasTexture := float32(0)
	if m.Texture != nil {
		hasTexture = 1
	}
	params := []*effect.Parameter{
		world, wvp, wit,
		effect.NewColor("DiffuseColor", m.Albedo),
		effect.NewScalar("SpecularIntensity", m.Specular),
		effect.NewScalar("SpecularPower", m.Shininess),
		effect.NewVector3("EmissiveColor", m.Emissive.Vec3()),
		effect.NewTexture("DiffuseTexture", m.Texture, gpu.FilterLinear),
		effect.NewScalar("HasTexture", hasTexture),
	}
	for _, p := range params {
		if err := e.AddParameter(p); err != nil {
			return nil, fmt.Errorf("material %q: %w", m.Name, err)
		}
	}
	return e, nil
}
