// Command snapshot renders the plaza showcase on the software device and
// writes one of the frame textures to a PNG file. It needs no window or GPU.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"sort"
	"strings"

	"deferred-renderer/config"
	"deferred-renderer/core"
	"deferred-renderer/gpu"
	"deferred-renderer/internal/showcase"
	"deferred-renderer/internal/software"
	"deferred-renderer/renderer"
)

type options struct {
	config  string
	width   int
	height  int
	scale   int
	frames  int
	time    float64
	post    string
	texture string
	out     string
}

var textures = map[string]func(*renderer.DeferredRenderer, *software.Device) gpu.Texture{
	"final":   func(r *renderer.DeferredRenderer, d *software.Device) gpu.Texture { return finalOrSurface(r, d) },
	"color":   func(r *renderer.DeferredRenderer, _ *software.Device) gpu.Texture { return r.ColorTexture() },
	"normal":  func(r *renderer.DeferredRenderer, _ *software.Device) gpu.Texture { return r.NormalTexture() },
	"ambient": func(r *renderer.DeferredRenderer, _ *software.Device) gpu.Texture { return r.AmbientTexture() },
	"depth":   func(r *renderer.DeferredRenderer, _ *software.Device) gpu.Texture { return r.DepthTexture() },
	"light":   func(r *renderer.DeferredRenderer, _ *software.Device) gpu.Texture { return r.LightMapTexture() },
	"shadow":  func(r *renderer.DeferredRenderer, _ *software.Device) gpu.Texture { return r.ShadowMapTexture() },
	"scene":   func(r *renderer.DeferredRenderer, _ *software.Device) gpu.Texture { return r.SceneTexture() },
	"gui":     func(r *renderer.DeferredRenderer, _ *software.Device) gpu.Texture { return r.GuiTexture() },
}

func finalOrSurface(r *renderer.DeferredRenderer, d *software.Device) gpu.Texture {
	if r.Options().RenderToPrimary {
		return d.Surface()
	}
	return r.FinalTexture()
}

func textureNames() string {
	names := make([]string, 0, len(textures))
	for name := range textures {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func main() {
	var o options
	flag.StringVar(&o.config, "config", "", "TOML configuration file")
	flag.IntVar(&o.width, "width", 320, "render width")
	flag.IntVar(&o.height, "height", 180, "render height")
	flag.IntVar(&o.scale, "scale", 1, "output scale factor")
	flag.IntVar(&o.frames, "frames", 2, "frames to render; history effects need more than one")
	flag.Float64Var(&o.time, "time", 0, "time of day, 0 is noon and 0.5 midnight")
	flag.StringVar(&o.post, "post", "none", "post-process chain: none, grayscale, tint or trails")
	flag.StringVar(&o.texture, "texture", "final", "texture to write: "+textureNames())
	flag.StringVar(&o.out, "o", "snapshot.png", "output file")
	flag.Parse()

	if err := run(o); err != nil {
		core.LogFatal("%v", err)
	}
}

func parsePostMode(name string) (showcase.PostMode, error) {
	for m := showcase.PostNone; m <= showcase.PostTrails; m++ {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown post-process chain %q", name)
}

func run(o options) error {
	cfg := config.Default()
	if o.config != "" {
		var err error
		if cfg, err = config.Load(o.config); err != nil {
			return err
		}
	}
	core.SetLogLevel(cfg.Log.Level)

	pick, ok := textures[o.texture]
	if !ok {
		return fmt.Errorf("unknown texture %q, want one of %s", o.texture, textureNames())
	}
	mode, err := parsePostMode(o.post)
	if err != nil {
		return err
	}
	if o.width <= 0 || o.height <= 0 || o.scale <= 0 || o.frames <= 0 {
		return fmt.Errorf("size, scale and frame count must be positive")
	}

	dev := software.New(o.width, o.height, nil)
	sc, err := showcase.Build(dev)
	if err != nil {
		return err
	}
	defer sc.Release()
	sc.SetPostMode(mode)
	sc.DayNight.Active = false
	sc.DayNight.Time = float32(o.time)

	r := renderer.New(dev, renderer.Dependencies{Scene: sc.Scene, Gui: sc.Gui, PostProcess: sc.Post}, cfg.Renderer.Options())
	if err := r.Initialize(); err != nil {
		return err
	}
	defer r.Destroy()

	for i := 0; i < o.frames; i++ {
		if err := sc.Update(0, r); err != nil {
			return err
		}
		if err := r.Draw(); err != nil {
			return err
		}
	}

	tex := pick(r, dev)
	if tex == nil {
		return fmt.Errorf("texture %q is not available with the current options", o.texture)
	}
	img := dev.ScaledImage(tex, tex.Width()*o.scale, tex.Height()*o.scale)

	f, err := os.Create(o.out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", o.out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	st := r.Stats()
	core.LogInfo("wrote %s (%dx%d, %d draws, %d lights, %s)", o.out, img.Bounds().Dx(), img.Bounds().Dy(), st.DrawCalls, st.LightsDrawn, sc.DayNight.Clock())
	return nil
}
