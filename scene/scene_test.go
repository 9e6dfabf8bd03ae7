package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/core"
	"deferred-renderer/effect"
	"deferred-renderer/internal/software"
)

func TestNodeWorldMatrixFollowsParent(t *testing.T) {
	root := NewNode("root")
	child := NewNode("child")
	root.AddChild(child)
	assert.NotEqual(t, root.ID, child.ID)

	root.SetPosition(mgl32.Vec3{1, 0, 0})
	child.SetPosition(mgl32.Vec3{0, 2, 0})
	p := mgl32.TransformCoordinate(mgl32.Vec3{}, child.WorldMatrix())
	assert.InDeltaSlice(t, []float32{1, 2, 0}, p[:], 1e-5)

	root.SetScale(mgl32.Vec3{2, 2, 2})
	p = mgl32.TransformCoordinate(mgl32.Vec3{}, child.WorldMatrix())
	assert.InDeltaSlice(t, []float32{1, 4, 0}, p[:], 1e-5, "parent changes invalidate cached children")

	other := NewNode("other")
	other.AddChild(child)
	assert.Empty(t, root.Children)
	assert.Same(t, other, child.Parent)
	assert.Same(t, child, other.Find("child"))
	assert.Nil(t, root.Find("child"))
}

func TestNodeTranslateAndRotation(t *testing.T) {
	n := NewNode("n")
	n.SetPosition(mgl32.Vec3{1, 0, 0})
	n.Translate(mgl32.Vec3{0, 2, 0})
	n.Translate(mgl32.Vec3{0, -0.5, 1})
	pos := n.Position()
	assert.InDeltaSlice(t, []float32{1, 1.5, 1}, pos[:], 1e-5)

	q := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	n.SetRotation(q)
	assert.True(t, n.Rotation().ApproxEqual(q))
	p := mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, n.WorldMatrix())
	assert.InDeltaSlice(t, []float32{1, 1.5, 0}, p[:], 1e-5, "+X turns to -Z around Y")
}

func TestNodeVisibility(t *testing.T) {
	root := NewNode("root")
	mid := NewNode("mid")
	leaf := NewNode("leaf")
	root.AddChild(mid)
	mid.AddChild(leaf)

	assert.True(t, leaf.VisibleInHierarchy())
	mid.Visible = false
	assert.False(t, leaf.VisibleInHierarchy())
	assert.True(t, root.VisibleInHierarchy())

	var names []string
	root.Traverse(func(n *Node) { names = append(names, n.Name) })
	assert.Equal(t, []string{"root", "mid", "leaf"}, names)
}

func TestAABB(t *testing.T) {
	box := EmptyAABB()
	assert.True(t, box.Empty())
	box = box.Extend(mgl32.Vec3{1, 2, 3}).Extend(mgl32.Vec3{-1, 0, 1})
	assert.False(t, box.Empty())
	assert.Equal(t, mgl32.Vec3{-1, 0, 1}, box.Min)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, box.Max)
	assert.Equal(t, mgl32.Vec3{0, 1, 2}, box.Center())

	assert.Equal(t, box, box.Union(EmptyAABB()))
	assert.True(t, EmptyAABB().Transform(mgl32.Translate3D(1, 1, 1)).Empty())

	rotated := AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}.
		Transform(mgl32.HomogRotate3DY(mgl32.DegToRad(45)))
	assert.InDelta(t, 1.41421, rotated.Max[0], 1e-4)
	assert.InDelta(t, 1, rotated.Max[1], 1e-5)
}

func TestFrustumCulling(t *testing.T) {
	cam := NewCamera(mgl32.DegToRad(60), 1, 0.5, 20)
	cam.SetPosition(mgl32.Vec3{0, 0, 10})
	cam.LookAt(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	f := FrustumFromVP(cam.ViewProjectionMatrix())

	unit := AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	assert.True(t, unit.IntersectsFrustum(&f))
	assert.False(t, unit.Transform(mgl32.Translate3D(0, 0, 20)).IntersectsFrustum(&f), "behind the camera")
	assert.False(t, unit.Transform(mgl32.Translate3D(40, 0, 0)).IntersectsFrustum(&f), "far to the side")
	assert.False(t, unit.Transform(mgl32.Translate3D(0, 0, -30)).IntersectsFrustum(&f), "beyond the far plane")

	corners := FrustumCorners(cam.ViewProjectionMatrix())
	assert.InDelta(t, 9.5, corners[0][2], 1e-3, "near face first")
	assert.InDelta(t, -10, corners[7][2], 1e-2)
}

func TestSpotCones(t *testing.T) {
	l := NewSpotLight(mgl32.Vec3{}, mgl32.Vec3{0, -2, 0}, core.ColorWhite, 1, 10, 60)
	inner, outer := l.SpotCones()
	assert.InDelta(t, 0.5, outer, 1e-5)
	assert.Greater(t, inner, outer)
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, l.Direction)
	assert.Equal(t, "spot", l.Kind.String())
}

// faceNormalsAgree reports whether every non-degenerate triangle winds
// counter-clockwise around its vertex normals.
func faceNormalsAgree(t *testing.T, m *Mesh) {
	t.Helper()
	require.Zero(t, len(m.Indices)%3)
	for i := 0; i < len(m.Indices); i += 3 {
		a, b, c := m.Vertices[m.Indices[i]], m.Vertices[m.Indices[i+1]], m.Vertices[m.Indices[i+2]]
		face := b.Position.Sub(a.Position).Cross(c.Position.Sub(a.Position))
		if face.Len() < 1e-6 {
			continue
		}
		avg := a.Normal.Add(b.Normal).Add(c.Normal)
		if !assert.Greater(t, face.Dot(avg), float32(0), "%s triangle %d", m.Name, i/3) {
			return
		}
	}
}

func TestPrimitiveWinding(t *testing.T) {
	for _, m := range []*Mesh{
		CreateQuad(),
		CreateCube(2),
		CreatePlane(4, 4, 3),
		CreateSphere(1, 12, 8),
		CreateCone(1, 2, 10),
	} {
		t.Run(m.Name, func(t *testing.T) { faceNormalsAgree(t, m) })
	}
}

func TestPrimitiveBounds(t *testing.T) {
	cube := CreateCube(2)
	assert.Equal(t, mgl32.Vec3{-1, -1, -1}, cube.LocalAABB.Min)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, cube.LocalAABB.Max)

	cone := CreateCone(1, 3, 8)
	assert.InDelta(t, -3, cone.LocalAABB.Min[2], 1e-5)
	assert.InDelta(t, 0, cone.LocalAABB.Max[2], 1e-5)

	quad := CreateQuad()
	quad.SetColor(mgl32.Vec4{1, 0, 0, 1})
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, quad.Vertices[3].Color)
}

func TestTextureUploadFlipsRows(t *testing.T) {
	dev := software.New(4, 4, nil)
	tex := &Texture{Name: "two-rows", Width: 1, Height: 2, Pixels: []byte{
		255, 0, 0, 255, // top
		0, 0, 255, 255, // bottom
	}}
	gt, err := tex.Upload(dev)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, dev.Pixel(gt, 0, 0))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, dev.Pixel(gt, 0, 1))

	bad := &Texture{Name: "short", Width: 2, Height: 2, Pixels: []byte{1}}
	_, err = bad.Upload(dev)
	assert.Error(t, err)

	checker := NewCheckerTexture("checker", 4, 2, core.ColorWhite, core.ColorBlack)
	assert.Equal(t, []byte{255, 255, 255, 255}, checker.Pixels[0:4])
	assert.Equal(t, []byte{0, 0, 0, 255}, checker.Pixels[2*4:3*4])
}

type sceneRig struct {
	dev   *software.Device
	scene *Scene
	cube  *Mesh
}

func newSceneRig(t *testing.T) *sceneRig {
	cam := NewCamera(mgl32.DegToRad(60), 1, 0.5, 30)
	cam.SetPosition(mgl32.Vec3{0, 0, 10})
	cam.LookAt(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	s := NewScene()
	s.SetCamera(cam)
	return &sceneRig{dev: software.New(8, 8, nil), scene: s, cube: CreateCube(1)}
}

func (g *sceneRig) add(t *testing.T, name string, pos mgl32.Vec3) *Object {
	t.Helper()
	m, err := g.cube.Upload(g.dev)
	require.NoError(t, err)
	prog, err := g.dev.LoadProgram(GBufferProgram)
	require.NoError(t, err)
	e, err := DefaultMaterial().NewEffect(prog)
	require.NoError(t, err)
	o := NewObject(name, m, g.cube.LocalAABB, e)
	o.Node.SetPosition(pos)
	g.scene.AddObject(o)
	return o
}

func drawableNames(ds []Drawable) []string {
	var names []string
	for _, d := range ds {
		names = append(names, d.(*Object).Node.Name)
	}
	return names
}

func TestSceneDrawables(t *testing.T) {
	g := newSceneRig(t)
	a := g.add(t, "a", mgl32.Vec3{})
	b := g.add(t, "b", mgl32.Vec3{50, 0, 0})
	c := g.add(t, "c", mgl32.Vec3{1, 0, 0})

	assert.Equal(t, []string{"a", "b", "c"}, drawableNames(g.scene.Drawables()))

	g.scene.FrustumCull = true
	assert.Equal(t, []string{"a", "c"}, drawableNames(g.scene.Drawables()))
	assert.Equal(t, []string{"a", "b", "c"}, drawableNames(g.scene.ShadowCasters()), "casters ignore the view")

	c.Node.Visible = false
	a.CastsShadows = false
	assert.Equal(t, []string{"a"}, drawableNames(g.scene.Drawables()))
	assert.Equal(t, []string{"b"}, drawableNames(g.scene.ShadowCasters()))

	g.scene.RemoveObject(b)
	assert.Len(t, g.scene.Objects(), 2)
	assert.Nil(t, b.Node.Parent)
}

func TestSceneSkipsObjectsWithoutMaterial(t *testing.T) {
	g := newSceneRig(t)
	o := g.add(t, "a", mgl32.Vec3{})
	o.SetMaterial(nil)
	assert.Empty(t, g.scene.Drawables())
	assert.Len(t, g.scene.ShadowCasters(), 1)
}

func TestSceneCameraAndLights(t *testing.T) {
	s := NewScene()
	assert.Nil(t, s.Camera(), "no camera is a nil interface")

	sun := NewDirectionalLight(mgl32.Vec3{0, -1, 0}, core.ColorWhite, 1)
	lamp := NewPointLight(mgl32.Vec3{0, 1, 0}, core.ColorRed, 2, 5)
	s.AddLight(sun)
	s.AddLight(lamp)
	s.RemoveLight(sun)
	assert.Equal(t, []*Light{lamp}, s.Lights())
}

func TestMaterialEffectParameters(t *testing.T) {
	dev := software.New(4, 4, nil)
	prog, err := dev.LoadProgram(GBufferProgram)
	require.NoError(t, err)

	tex, err := NewSolidTexture("white", 255, 255, 255, 255).Upload(dev)
	require.NoError(t, err)
	mat := NewMaterial("brick", core.ColorRed)
	mat.Texture = tex
	e, err := mat.NewEffect(prog)
	require.NoError(t, err)

	has, ok := e.Parameter("HasTexture")
	require.True(t, ok)
	assert.Equal(t, float32(1), has.Scalar())
	diffuse, ok := e.Parameter("DiffuseColor")
	require.True(t, ok)
	assert.Equal(t, core.ColorRed, diffuse.Color())
	wvp, ok := e.Parameter("WorldViewProjection")
	require.True(t, ok)
	assert.Equal(t, effect.SourceWorldViewProjection, wvp.Source())
	assert.True(t, wvp.Bound())
}

func TestOrbitCamera(t *testing.T) {
	c := NewOrbitCamera(mgl32.Vec3{}, 10, mgl32.DegToRad(60), 1)
	c.Pitch = 0
	c.UpdatePosition()
	pos := c.Position()
	assert.InDeltaSlice(t, []float32{0, 0, 10}, pos[:], 1e-4)

	c.Orbit(0, 10)
	assert.Equal(t, float32(1.5), c.Pitch, "pitch is clamped")

	c.Zoom(-20)
	assert.Equal(t, float32(0.1), c.Distance)
}
