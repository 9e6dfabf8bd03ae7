package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/scene"
)

func cameraViewProj() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 4.0/3, 0.5, 20)
	view := mgl32.LookAtV(mgl32.Vec3{0, 5, 8}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	return proj.Mul4(view)
}

func inUnitCube(t *testing.T, m mgl32.Mat4, p mgl32.Vec3) {
	t.Helper()
	ndc := mgl32.TransformCoordinate(p, m)
	for i := 0; i < 3; i++ {
		assert.LessOrEqual(t, ndc[i], float32(1.001), "axis %d of %v", i, p)
		assert.GreaterOrEqual(t, ndc[i], float32(-1.001), "axis %d of %v", i, p)
	}
}

func TestLightViewProjectionCoversFrustum(t *testing.T) {
	vp := cameraViewProj()
	lvp, ok := lightViewProjection(mgl32.Vec3{1, -1, 0}, vp, scene.EmptyAABB())
	require.True(t, ok)
	for _, c := range scene.FrustumCorners(vp) {
		inUnitCube(t, lvp, c)
	}
}

func TestLightViewProjectionIncludesCasters(t *testing.T) {
	vp := cameraViewProj()
	// A caster well above the view still shadows the visible ground.
	casters := scene.AABB{Min: mgl32.Vec3{-1, 30, -1}, Max: mgl32.Vec3{1, 32, 1}}
	lvp, ok := lightViewProjection(mgl32.Vec3{0, -1, 0}, vp, casters)
	require.True(t, ok)
	for _, c := range casters.Corners() {
		inUnitCube(t, lvp, c)
	}
	// Nearer to the light means smaller depth.
	top := mgl32.TransformCoordinate(mgl32.Vec3{0, 31, 0}, lvp)
	ground := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, lvp)
	assert.Less(t, top[2], ground[2])
}

func TestLightViewProjectionDegenerateDirection(t *testing.T) {
	_, ok := lightViewProjection(mgl32.Vec3{}, cameraViewProj(), scene.EmptyAABB())
	assert.False(t, ok)
}
