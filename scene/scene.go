// Package scene is the scene-manager collaborator of the renderer: a node
// hierarchy, drawable objects, lights and the active camera, plus primitive
// mesh builders and G-buffer materials.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/effect"
	"deferred-renderer/gpu"
)

// Drawable is what the renderer draws during the geometry and shadow passes.
type Drawable interface {
	Layer() int
	Material() *effect.Effect
	Mesh() gpu.Mesh
	WorldMatrix() mgl32.Mat4
	// Bounds is the world-space AABB.
	Bounds() AABB
}

// Object attaches an uploaded mesh and a material effect to a node.
type Object struct {
	Node         *Node
	mesh         gpu.Mesh
	material     *effect.Effect
	local        AABB
	layer        int
	CastsShadows bool
}

// NewObject creates an object on a fresh node named name. local is the
// mesh's local-space bounds.
func NewObject(name string, mesh gpu.Mesh, local AABB, material *effect.Effect) *Object {
	return &Object{
		Node:         NewNode(name),
		mesh:         mesh,
		material:     material,
		local:        local,
		CastsShadows: true,
	}
}

func (o *Object) Layer() int { return o.layer }

func (o *Object) SetLayer(layer int) { o.layer = layer }

func (o *Object) Material() *effect.Effect { return o.material }

func (o *Object) SetMaterial(e *effect.Effect) { o.material = e }

func (o *Object) Mesh() gpu.Mesh { return o.mesh }

func (o *Object) WorldMatrix() mgl32.Mat4 { return o.Node.WorldMatrix() }

func (o *Object) Bounds() AABB {
	return o.local.Transform(o.Node.WorldMatrix())
}

// Scene manages a collection of objects, lights and the active camera.
type Scene struct {
	Root   *Node
	camera *Camera

	objects []*Object
	lights  []*Light

	// FrustumCull drops drawables outside the camera frustum from Drawables.
	FrustumCull bool
}

func NewScene() *Scene {
	return &Scene{
		Root:    NewNode("Root"),
		objects: make([]*Object, 0),
		lights:  make([]*Light, 0),
	}
}

func (s *Scene) SetCamera(camera *Camera) {
	s.camera = camera
}

// Camera returns the active camera, nil if none is set.
func (s *Scene) Camera() effect.Camera {
	if s.camera == nil {
		return nil
	}
	return s.camera
}

// AddObject appends o in draw order and parents its node under Root unless it
// already has a parent.
func (s *Scene) AddObject(o *Object) {
	if o.Node.Parent == nil {
		s.Root.AddChild(o.Node)
	}
	s.objects = append(s.objects, o)
}

func (s *Scene) RemoveObject(o *Object) {
	for i, x := range s.objects {
		if x == o {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			if o.Node.Parent == s.Root {
				s.Root.RemoveChild(o.Node)
			}
			return
		}
	}
}

func (s *Scene) Objects() []*Object {
	return append([]*Object(nil), s.objects...)
}

func (s *Scene) AddLight(light *Light) {
	s.lights = append(s.lights, light)
}

func (s *Scene) RemoveLight(light *Light) {
	for i, l := range s.lights {
		if l == light {
			s.lights = append(s.lights[:i], s.lights[i+1:]...)
			return
		}
	}
}

func (s *Scene) Lights() []*Light {
	return append([]*Light(nil), s.lights...)
}

// Drawables returns the visible objects in insertion order.
func (s *Scene) Drawables() []Drawable {
	var frustum *Frustum
	if s.FrustumCull && s.camera != nil {
		f := FrustumFromVP(s.camera.ViewProjectionMatrix())
		frustum = &f
	}
	out := make([]Drawable, 0, len(s.objects))
	for _, o := range s.objects {
		if !o.Node.VisibleInHierarchy() || o.material == nil || o.mesh == nil {
			continue
		}
		if frustum != nil && !o.Bounds().IntersectsFrustum(frustum) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ShadowCasters returns every visible shadow-casting object. Casters outside
// the view can still shadow visible receivers, so no frustum test applies.
func (s *Scene) ShadowCasters() []Drawable {
	out := make([]Drawable, 0, len(s.objects))
	for _, o := range s.objects {
		if o.CastsShadows && o.mesh != nil && o.Node.VisibleInHierarchy() {
			out = append(out, o)
		}
	}
	return out
}
