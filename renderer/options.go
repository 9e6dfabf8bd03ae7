package renderer

import (
	"fmt"
	"strings"

	"deferred-renderer/core"
)

// ShadowQuality selects the square shadow map resolution.
type ShadowQuality int

const (
	ShadowLow ShadowQuality = iota
	ShadowNormal
	ShadowHigh
)

// Size is the edge length of the shadow map in pixels.
func (q ShadowQuality) Size() int {
	switch q {
	case ShadowLow:
		return 1024
	case ShadowHigh:
		return 4096
	}
	return 2048
}

func (q ShadowQuality) String() string {
	switch q {
	case ShadowLow:
		return "low"
	case ShadowNormal:
		return "normal"
	case ShadowHigh:
		return "high"
	}
	return fmt.Sprintf("ShadowQuality(%d)", int(q))
}

func (q ShadowQuality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *ShadowQuality) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "low":
		*q = ShadowLow
	case "normal":
		*q = ShadowNormal
	case "high":
		*q = ShadowHigh
	default:
		return fmt.Errorf("unknown shadow quality %q", text)
	}
	return nil
}

// GuiMode selects where the GUI is composited.
type GuiMode int

const (
	GuiPrimarySurface GuiMode = iota
	GuiSeparateTexture
	GuiFinalTexture
)

func (m GuiMode) String() string {
	switch m {
	case GuiPrimarySurface:
		return "primary_surface"
	case GuiSeparateTexture:
		return "separate_texture"
	case GuiFinalTexture:
		return "final_texture"
	}
	return fmt.Sprintf("GuiMode(%d)", int(m))
}

func (m GuiMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *GuiMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "primary_surface":
		*m = GuiPrimarySurface
	case "separate_texture":
		*m = GuiSeparateTexture
	case "final_texture":
		*m = GuiFinalTexture
	default:
		return fmt.Errorf("unknown gui mode %q", text)
	}
	return nil
}

type Options struct {
	ShadowQuality   ShadowQuality
	GuiMode         GuiMode
	RenderToPrimary bool
	DebugOverlay    bool
	Background      core.Color
	AmbientLight    core.Color
	ShadowBias      float32
}

func DefaultOptions() Options {
	return Options{
		ShadowQuality:   ShadowNormal,
		GuiMode:         GuiSeparateTexture,
		RenderToPrimary: true,
		Background:      core.Color{R: 0.1, G: 0.1, B: 0.15, A: 1},
		AmbientLight:    core.Color{R: 0.1, G: 0.1, B: 0.1, A: 1},
		ShadowBias:      0.002,
	}
}
