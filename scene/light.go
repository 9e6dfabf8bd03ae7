package scene

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/core"
)

type LightKind int

const (
	LightDirectional LightKind = iota
	LightPoint
	LightSpot
)

func (k LightKind) String() string {
	switch k {
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	case LightSpot:
		return "spot"
	}
	return fmt.Sprintf("LightKind(%d)", int(k))
}

// Light represents a light source
type Light struct {
	Kind         LightKind
	Position     mgl32.Vec3
	Direction    mgl32.Vec3 // direction the light travels
	Diffuse      core.Color
	Specular     core.Color
	Intensity    float32
	Radius       float32 // point and spot range
	SpotAngle    float32 // outer cone angle in degrees
	CastsShadows bool
}

func NewDirectionalLight(direction mgl32.Vec3, color core.Color, intensity float32) *Light {
	return &Light{
		Kind:      LightDirectional,
		Direction: direction.Normalize(),
		Diffuse:   color,
		Specular:  core.ColorWhite,
		Intensity: intensity,
	}
}

func NewPointLight(position mgl32.Vec3, color core.Color, intensity, radius float32) *Light {
	return &Light{
		Kind:      LightPoint,
		Position:  position,
		Diffuse:   color,
		Specular:  core.ColorWhite,
		Intensity: intensity,
		Radius:    radius,
	}
}

func NewSpotLight(position, direction mgl32.Vec3, color core.Color, intensity, radius, angle float32) *Light {
	return &Light{
		Kind:      LightSpot,
		Position:  position,
		Direction: direction.Normalize(),
		Diffuse:   color,
		Specular:  core.ColorWhite,
		Intensity: intensity,
		Radius:    radius,
		SpotAngle: angle,
	}
}

// SpotCones returns the cosines of the inner and outer cone angles. The inner
// cone is 80% of the outer one.
func (l *Light) SpotCones() (inner, outer float32) {
	return cosAngleDeg(l.SpotAngle * 0.8), cosAngleDeg(l.SpotAngle)
}

func cosAngleDeg(deg float32) float32 {
	return math32.Cos(mgl32.DegToRad(deg))
}
