// Package gpu is the narrow device abstraction the deferred pipeline renders
// through. It exposes render targets, textures, meshes and shader programs
// (techniques, passes and uniforms) plus the small set of fixed pipeline
// states the pipeline switches between.
//
// Two implementations live in this module: internal/opengl drives a real
// OpenGL 4.1 core context, internal/software is a CPU rasterizer used for
// tests and headless snapshots.
package gpu

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-renderer/core"
)

var (
	ErrProgramNotFound  = errors.New("shader program not found")
	ErrTargetIncomplete = errors.New("render target incomplete")
	ErrInvalidTarget    = errors.New("invalid render target description")
)

// Format is the pixel format of a texture or render target.
type Format int

const (
	FormatRGBA8 Format = iota
	FormatRGBA16F
	FormatR32F
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGBA16F:
		return "RGBA16F"
	case FormatR32F:
		return "R32F"
	}
	return "unknown"
}

// ContentPolicy decides what happens to a target's pixels when it is bound.
// Discarded targets hold undefined contents until they are written again.
type ContentPolicy int

const (
	DiscardContents ContentPolicy = iota
	PreserveContents
)

// TargetDesc describes a render target to allocate.
type TargetDesc struct {
	Label  string
	Width  int
	Height int
	Format Format
	Depth  bool // attach a depth buffer
	Policy ContentPolicy
}

// Texture is a read-only view of GPU pixel data.
type Texture interface {
	Width() int
	Height() int
	Format() Format
	Destroy()
}

// RenderTarget is a texture that can also be drawn into.
type RenderTarget interface {
	Texture
	Desc() TargetDesc
}

// Mesh is uploaded indexed triangle geometry.
type Mesh interface {
	VertexCount() int
	IndexCount() int
	Destroy()
}

// Vertex is the single vertex layout every mesh uses.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Color    mgl32.Vec4
}

// Filter selects texture sampling.
type Filter int

const (
	FilterLinear Filter = iota
	FilterPoint
)

// Uniform is a resolved program input. Setting a value affects every
// technique of the owning program.
type Uniform interface {
	Name() string
	SetFloat(v float32)
	SetVec2(v mgl32.Vec2)
	SetVec3(v mgl32.Vec3)
	SetVec4(v mgl32.Vec4)
	SetMat4(m mgl32.Mat4)
	SetFloats(v []float32)
	SetVec4s(v []mgl32.Vec4)
	SetMat4s(v []mgl32.Mat4)
	SetTexture(t Texture, f Filter)
}

// Pass is one concrete draw-time configuration of a technique. Apply makes
// it current for subsequent draw calls.
type Pass interface {
	Apply()
}

// Technique is a named rendering configuration within a program.
type Technique interface {
	Name() string
	Passes() []Pass
}

// Program is a loaded shader program.
type Program interface {
	Name() string
	Techniques() []Technique
	Technique(name string) (Technique, bool)
	// Uniform returns false for names the program does not use.
	Uniform(name string) (Uniform, bool)
	Destroy()
}

// ClearFlags selects the buffers Clear touches.
type ClearFlags int

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
)

// Device is the rendering device consumed by the pipeline. All calls must be
// made from the rendering thread.
type Device interface {
	// SurfaceSize is the current size of the primary display surface.
	SurfaceSize() (width, height int)

	CreateRenderTarget(desc TargetDesc) (RenderTarget, error)
	CreateTexture(width, height int, rgba []uint8) (Texture, error)
	CreateMesh(vertices []Vertex, indices []uint32) (Mesh, error)
	LoadProgram(name string) (Program, error)

	// SetRenderTargets binds up to four color targets; the depth buffer of
	// the first one (if any) is used for depth testing. No arguments binds
	// the primary surface. The viewport follows the bound size.
	SetRenderTargets(targets ...RenderTarget)
	Clear(flags ClearFlags, color core.Color, depth float32)

	SetBlendMode(m BlendMode)
	SetDepthMode(m DepthMode)
	SetCullMode(m CullMode)

	// DrawIndexed draws mesh with the most recently applied pass.
	DrawIndexed(mesh Mesh)
}
