// Package config loads the TOML configuration of the renderer hosts.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"deferred-renderer/core"
	"deferred-renderer/renderer"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Window   core.WindowConfig `toml:"window"`
	Renderer Renderer          `toml:"renderer"`
	Shaders  Shaders           `toml:"shaders"`
	Log      Log               `toml:"log"`
}

// Renderer mirrors renderer.Options. Colors are [r, g, b, a] arrays.
type Renderer struct {
	ShadowQuality   renderer.ShadowQuality `toml:"shadow_quality"`
	GuiMode         renderer.GuiMode       `toml:"gui_mode"`
	RenderToPrimary bool                   `toml:"render_to_primary"`
	DebugOverlay    bool                   `toml:"debug_overlay"`
	Background      [4]float32             `toml:"background"`
	AmbientLight    [4]float32             `toml:"ambient_light"`
	ShadowBias      float32                `toml:"shadow_bias"`
}

type Shaders struct {
	// Dir holds GLSL sources and manifests; empty selects the embedded set.
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"`
}

type Log struct {
	Level string `toml:"level"`
}

func Default() Config {
	o := renderer.DefaultOptions()
	return Config{
		Window: core.DefaultWindowConfig(),
		Renderer: Renderer{
			ShadowQuality:   o.ShadowQuality,
			GuiMode:         o.GuiMode,
			RenderToPrimary: o.RenderToPrimary,
			DebugOverlay:    o.DebugOverlay,
			Background:      o.Background.Vec4(),
			AmbientLight:    o.AmbientLight.Vec4(),
			ShadowBias:      o.ShadowBias,
		},
		Log: Log{Level: "info"},
	}
}

// Options converts the renderer section.
func (r Renderer) Options() renderer.Options {
	return renderer.Options{
		ShadowQuality:   r.ShadowQuality,
		GuiMode:         r.GuiMode,
		RenderToPrimary: r.RenderToPrimary,
		DebugOverlay:    r.DebugOverlay,
		Background:      core.ColorFromVec4(r.Background),
		AmbientLight:    core.ColorFromVec4(r.AmbientLight),
		ShadowBias:      r.ShadowBias,
	}
}

// Load reads the file at path over the defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML over the defaults. Unknown keys are an error.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	d := toml.NewDecoder(r)
	d.DisallowUnknownFields()
	if err := d.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if c.Renderer.ShadowBias < 0 {
		return fmt.Errorf("%w: negative shadow_bias %v", ErrInvalid, c.Renderer.ShadowBias)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
