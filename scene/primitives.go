package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/gpu"
)

// All primitives wind front faces counter-clockwise seen from outside and
// carry white vertex colors.

var white = mgl32.Vec4{1, 1, 1, 1}

// CreateQuad spans [-1,1] in x and y at z=0 facing +Z, UV (0,0) bottom-left.
// It doubles as the full-screen quad in normalized device coordinates.
func CreateQuad() *Mesh {
	n := mgl32.Vec3{0, 0, 1}
	vertices := []gpu.Vertex{
		{Position: mgl32.Vec3{-1, -1, 0}, Normal: n, UV: mgl32.Vec2{0, 0}, Color: white},
		{Position: mgl32.Vec3{1, -1, 0}, Normal: n, UV: mgl32.Vec2{1, 0}, Color: white},
		{Position: mgl32.Vec3{1, 1, 0}, Normal: n, UV: mgl32.Vec2{1, 1}, Color: white},
		{Position: mgl32.Vec3{-1, 1, 0}, Normal: n, UV: mgl32.Vec2{0, 1}, Color: white},
	}
	indices := []uint32{0, 1, 2, 2, 3, 0}
	return CreateMeshFromData("Quad", vertices, indices)
}

// CreateCube builds an axis-aligned cube with edge length size.
func CreateCube(size float32) *Mesh {
	s := size / 2
	faces := []struct{ n, u, v mgl32.Vec3 }{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}

	var vertices []gpu.Vertex
	var indices []uint32
	for _, f := range faces {
		c := f.n.Mul(s)
		u, v := f.u.Mul(s), f.v.Mul(s)
		base := uint32(len(vertices))
		corners := [4]struct {
			p  mgl32.Vec3
			uv mgl32.Vec2
		}{
			{c.Sub(u).Sub(v), mgl32.Vec2{0, 0}},
			{c.Add(u).Sub(v), mgl32.Vec2{1, 0}},
			{c.Add(u).Add(v), mgl32.Vec2{1, 1}},
			{c.Sub(u).Add(v), mgl32.Vec2{0, 1}},
		}
		for _, k := range corners {
			vertices = append(vertices, gpu.Vertex{Position: k.p, Normal: f.n, UV: k.uv, Color: white})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return CreateMeshFromData("Cube", vertices, indices)
}

// CreatePlane generates a flat plane mesh facing +Y.
func CreatePlane(width, depth float32, subdivisions int) *Mesh {
	if subdivisions < 1 {
		subdivisions = 1
	}

	var vertices []gpu.Vertex
	var indices []uint32

	halfW := width / 2.0
	halfD := depth / 2.0

	for z := 0; z <= subdivisions; z++ {
		for x := 0; x <= subdivisions; x++ {
			u := float32(x) / float32(subdivisions)
			v := float32(z) / float32(subdivisions)

			vertices = append(vertices, gpu.Vertex{
				Position: mgl32.Vec3{-halfW + u*width, 0, -halfD + v*depth},
				Normal:   mgl32.Vec3{0, 1, 0},
				UV:       mgl32.Vec2{u, v},
				Color:    white,
			})
		}
	}

	for z := 0; z < subdivisions; z++ {
		for x := 0; x < subdivisions; x++ {
			topLeft := uint32(z*(subdivisions+1) + x)
			topRight := topLeft + 1
			bottomLeft := topLeft + uint32(subdivisions+1)
			bottomRight := bottomLeft + 1

			indices = append(indices, topLeft, bottomLeft, topRight)
			indices = append(indices, topRight, bottomLeft, bottomRight)
		}
	}

	return CreateMeshFromData("Plane", vertices, indices)
}

// CreateSphere generates a UV-sphere mesh
func CreateSphere(radius float32, segments, rings int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	var vertices []gpu.Vertex
	var indices []uint32

	for ring := 0; ring <= rings; ring++ {
		phi := float32(ring) * math32.Pi / float32(rings)
		sinPhi, cosPhi := math32.Sincos(phi)

		for seg := 0; seg <= segments; seg++ {
			theta := float32(seg) * 2 * math32.Pi / float32(segments)
			sinTheta, cosTheta := math32.Sincos(theta)

			normal := mgl32.Vec3{sinPhi * cosTheta, cosPhi, sinPhi * sinTheta}
			vertices = append(vertices, gpu.Vertex{
				Position: normal.Mul(radius),
				Normal:   normal,
				UV:       mgl32.Vec2{float32(seg) / float32(segments), float32(ring) / float32(rings)},
				Color:    white,
			})
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments+1)

			indices = append(indices, current, current+1, next)
			indices = append(indices, current+1, next+1, next)
		}
	}

	return CreateMeshFromData("Sphere", vertices, indices)
}

// CreateCone builds a closed cone with its apex at the origin, opening along
// -Z to a base of the given radius at z = -height.
func CreateCone(radius, height float32, segments int) *Mesh {
	if segments < 3 {
		segments = 3
	}

	var vertices []gpu.Vertex
	var indices []uint32

	slope := math32.Atan2(radius, height)
	nz, nr := math32.Sin(slope), math32.Cos(slope)

	rim := func(i int) (mgl32.Vec3, mgl32.Vec3) {
		theta := float32(i) * 2 * math32.Pi / float32(segments)
		s, c := math32.Sincos(theta)
		return mgl32.Vec3{c * radius, s * radius, -height}, mgl32.Vec3{c * nr, s * nr, nz}
	}

	for i := 0; i < segments; i++ {
		p0, n0 := rim(i)
		p1, n1 := rim(i + 1)
		base := uint32(len(vertices))
		apexNormal := n0.Add(n1).Normalize()
		vertices = append(vertices,
			gpu.Vertex{Position: mgl32.Vec3{}, Normal: apexNormal, UV: mgl32.Vec2{0.5, 1}, Color: white},
			gpu.Vertex{Position: p0, Normal: n0, UV: mgl32.Vec2{float32(i) / float32(segments), 0}, Color: white},
			gpu.Vertex{Position: p1, Normal: n1, UV: mgl32.Vec2{float32(i+1) / float32(segments), 0}, Color: white},
		)
		indices = append(indices, base, base+1, base+2)
	}

	center := uint32(len(vertices))
	down := mgl32.Vec3{0, 0, -1}
	vertices = append(vertices, gpu.Vertex{Position: mgl32.Vec3{0, 0, -height}, Normal: down, UV: mgl32.Vec2{0.5, 0.5}, Color: white})
	for i := 0; i <= segments; i++ {
		p, _ := rim(i)
		vertices = append(vertices, gpu.Vertex{
			Position: p,
			Normal:   down,
			UV:       mgl32.Vec2{p[0]/(2*radius) + 0.5, p[1]/(2*radius) + 0.5},
			Color:    white,
		})
	}
	for i := 0; i < segments; i++ {
		v := center + 1 + uint32(i)
		indices = append(indices, center, v+1, v)
	}

	return CreateMeshFromData("Cone", vertices, indices)
}
