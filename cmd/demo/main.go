// Command demo renders the plaza showcase in a window through the OpenGL
// backend.
package main

import (
	"flag"
	"io/fs"
	"os"

	"deferred-renderer/config"
	"deferred-renderer/core"
	"deferred-renderer/internal/opengl"
	"deferred-renderer/internal/showcase"
	"deferred-renderer/platform"
	"deferred-renderer/renderer"
	"deferred-renderer/watch"
)

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		core.LogFatal("%v", err)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	core.SetLogLevel(cfg.Log.Level)

	window, err := platform.NewWindow(cfg.Window)
	if err != nil {
		return err
	}
	defer window.Destroy()

	var source fs.FS
	if cfg.Shaders.Dir != "" {
		source = os.DirFS(cfg.Shaders.Dir)
	}
	dev, err := opengl.New(window.Width, window.Height, source)
	if err != nil {
		return err
	}
	defer dev.Destroy()

	sc, err := showcase.Build(dev)
	if err != nil {
		return err
	}
	defer sc.Release()

	r := renderer.New(dev, renderer.Dependencies{Scene: sc.Scene, Gui: sc.Gui, PostProcess: sc.Post}, cfg.Renderer.Options())
	if err := r.Initialize(); err != nil {
		return err
	}
	defer r.Destroy()

	var watcher *watch.Watcher
	if cfg.Shaders.Watch && cfg.Shaders.Dir != "" {
		if watcher, err = watch.New(cfg.Shaders.Dir, ".glsl", ".toml"); err != nil {
			core.LogWarn("shader hot reload disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	reload := func() {
		if err := r.ReloadShaders(); err != nil {
			core.LogError("reload renderer programs: %v", err)
		}
		if err := sc.Reload(dev); err != nil {
			core.LogError("reload scene programs: %v", err)
		}
	}

	window.SetDragCallback(func(dx, dy float64) {
		sc.Camera.Orbit(float32(-dx)*0.005, float32(dy)*0.005)
	})
	window.SetScrollCallback(func(dy float64) {
		sc.Camera.Zoom(float32(-dy))
	})
	window.SetKeyCallback(func(key int) {
		opts := r.Options()
		switch key {
		case platform.KeyEscape:
			window.SetShouldClose(true)
			return
		case platform.KeyR:
			reload()
			return
		case platform.KeyP:
			core.LogInfo("post-process: %s", sc.CyclePostMode())
			return
		case platform.KeyF1:
			sc.DayNight.Active = !sc.DayNight.Active
			return
		case platform.KeyG:
			opts.GuiMode = (opts.GuiMode + 1) % 3
		case platform.KeyO:
			opts.DebugOverlay = !opts.DebugOverlay
		case platform.KeyL:
			opts.ShadowQuality = (opts.ShadowQuality + 1) % 3
		case platform.Key1, platform.Key2, platform.Key3:
			opts.GuiMode = renderer.GuiMode(key - platform.Key1)
		default:
			return
		}
		if err := r.SetOptions(opts); err != nil {
			core.LogError("apply options: %v", err)
		}
		core.LogInfo("gui %s, shadows %s, overlay %v", opts.GuiMode, opts.ShadowQuality, opts.DebugOverlay)
	})

	core.LogInfo("drag to orbit, scroll to zoom; G/1-3 gui mode, P post-process, O overlay, L shadows, R reload, F1 pause time")

	status := &statusBar{}
	last := platform.Time()
	fpsStart, frames, fps := last, 0, 0
	for !window.ShouldClose() {
		window.PollEvents()
		if watcher != nil && watcher.Pending() {
			reload()
		}

		now := platform.Time()
		dt := float32(now - last)
		last = now

		dev.Resize(window.Width, window.Height)
		sc.Resize(window.Width, window.Height)
		if err := sc.Update(dt, r); err != nil {
			core.LogError("update: %v", err)
		}
		if err := r.Draw(); err != nil {
			core.LogError("frame %d: %v", r.Stats().Frame, err)
		}
		window.SwapBuffers()

		frames++
		if now-fpsStart >= 1 {
			fps, frames, fpsStart = frames, 0, now
			status.refresh(cfg.Window.Title, fps, r, sc)
			window.SetTitle(status.String())
		}
	}
	return nil
}
