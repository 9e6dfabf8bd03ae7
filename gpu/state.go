package gpu

// BlendMode is the output merger configuration. BlendInherit leaves the
// device state untouched when used in a StateOverride.
type BlendMode int

const (
	BlendInherit BlendMode = iota
	BlendOpaque
	BlendAdditive
	BlendAlpha
)

// DepthMode is the depth test/write configuration.
type DepthMode int

const (
	DepthInherit DepthMode = iota
	DepthDefault           // test less-or-equal and write
	DepthRead              // test without writing
	DepthNone              // neither test nor write
)

// CullMode selects which faces are discarded. Front faces are wound
// counter-clockwise.
type CullMode int

const (
	CullInherit CullMode = iota
	CullBack
	CullFront
	CullNone
)

// StateOverride is the optional fixed state an effect applies together with
// its pass.
type StateOverride struct {
	Blend BlendMode
	Depth DepthMode
	Cull  CullMode
}

// DefaultState is the state every drawable is reset to after it is drawn.
var DefaultState = StateOverride{Blend: BlendOpaque, Depth: DepthDefault, Cull: CullBack}

// ApplyState pushes every non-inherited field of s to d.
func ApplyState(d Device, s StateOverride) {
	if s.Blend != BlendInherit {
		d.SetBlendMode(s.Blend)
	}
	if s.Depth != DepthInherit {
		d.SetDepthMode(s.Depth)
	}
	if s.Cull != CullInherit {
		d.SetCullMode(s.Cull)
	}
}
