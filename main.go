package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"

	"dynamik/backend/vulkan"
	"dynamik/config"
	"dynamik/graphics"
	"dynamik/model"
	"dynamik/platform"
	"dynamik/renderer"
	"dynamik/stl"
)

const programName = "Dynamik"

// SDL wants its event loop on the thread that initialized it.
func init() {
	runtime.LockOSThread()
}

func main() {
	path := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	setLogger(slog.LevelInfo)
	if err := run(*path); err != nil {
		graphics.Logger().Error("fatal", slog.Any("err", err))
		os.Exit(1)
	}
}

func setLogger(level slog.Level) {
	graphics.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	})))
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

func run(path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	setLogger(cfg.Renderer.LogLevel)
	graphics.Logger().Info("starting", slog.String("go", runtime.Version()))

	window, err := platform.NewWindow(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return err
	}
	defer window.Destroy()

	driver, err := vulkan.NewNativeDriver(window.ProcAddr())
	if err != nil {
		return err
	}
	backend := renderer.NewVulkanBackend(driver, renderer.VulkanConfig{
		Instance: vulkan.InstanceConfig{
			ApplicationName: programName,
			Extensions:      window.InstanceExtensions(),
			Validation:      cfg.Renderer.Validation,
			Layers:          cfg.Renderer.ValidationLayers,
		},
		Device: vulkan.DeviceConfig{
			Extensions:     cfg.Renderer.DeviceExtensions,
			PreferDiscrete: cfg.Renderer.PreferDiscrete,
			StagingLimit:   uint64(cfg.Memory.StagingLimit),
		},
		Window:         window,
		Samples:        cfg.Renderer.Samples,
		ClearColor:     cfg.Renderer.ClearColor,
		UniformSize:    uint64(cfg.Memory.UniformSize),
		VertexShader:   cfg.ShaderPath(cfg.Shaders.Vertex),
		FragmentShader: cfg.ShaderPath(cfg.Shaders.Fragment),
	})

	r := renderer.New(backend, renderer.Options{
		QueueCapacity: cfg.Renderer.QueueCapacity,
		FrameRate:     cfg.Renderer.FrameRate,
	})
	r.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := r.Stop(stopCtx); err != nil {
			graphics.Logger().Warn("renderer did not stop cleanly", slog.Any("err", err))
		}
	}()

	entity, err := loadEntity(cfg.Scene.Mesh)
	if err != nil {
		return err
	}
	width, height := window.FramebufferSize()
	aspect := float32(width) / float32(height)
	for _, cmd := range []renderer.Command{
		renderer.CreateContext{Type: renderer.ContextTypeDefault},
		renderer.InitializeCamera{Camera: model.DefaultCamera(aspect)},
		renderer.SubmitEntity{Entity: entity},
	} {
		if err := r.Do(ctx, cmd); err != nil {
			return errors.Wrapf(err, "%s", cmd.Instruction())
		}
	}

	if cfg.Shaders.Watch {
		w, err := renderer.NewShaderWatcher(cfg.Shaders.Directory, r)
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				graphics.Logger().Warn("shader watcher stopped", slog.Any("err", err))
			}
		}()
	}

	return loop(ctx, window, r, aspect)
}

func loadEntity(path string) (*model.Model, error) {
	if path == "" {
		return model.NewCube("cube"), nil
	}
	mesh, err := stl.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return model.NewModel(mesh, path), nil
}

// loop handles window events until the window closes or the renderer stops.
// Camera changes are sent as new cameras so the render thread never shares
// one with this goroutine.
func loop(ctx context.Context, window *platform.Window, r *renderer.Renderer, aspect float32) error {
	projection := model.ProjectionPerspective
	pos := mgl32.Vec3{0, 0, -2}

	camera := func() renderer.Command {
		c := model.DefaultCamera(aspect)
		c.Projection = projection
		c.Pos = pos
		return renderer.InitializeCamera{Camera: c}
	}
	submit := func(cmd renderer.Command) {
		if _, err := r.Submit(ctx, cmd); err != nil {
			graphics.Logger().Warn("dropped command",
				slog.String("instruction", cmd.Instruction().String()),
				slog.Any("err", err))
		}
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-r.Done():
			return r.Err()
		case <-ticker.C:
		}

		for _, ev := range window.Poll() {
			switch ev.Kind {
			case platform.EventQuit:
				return nil
			case platform.EventResized:
				if ev.Height > 0 {
					aspect = float32(ev.Width) / float32(ev.Height)
				}
				submit(renderer.ResizeFrameBuffer{Width: ev.Width, Height: ev.Height})
				submit(camera())
			case platform.EventKey:
				switch ev.Key {
				case sdl.K_ESCAPE:
					return nil
				case sdl.K_1:
					if projection == model.ProjectionPerspective {
						projection = model.ProjectionOrthographic
					} else {
						projection = model.ProjectionPerspective
					}
					graphics.Logger().Info("switching projection", slog.Int("projection", int(projection)))
				case sdl.K_w:
					pos = pos.Add(mgl32.Vec3{0, 0, 0.1})
				case sdl.K_s:
					pos = pos.Add(mgl32.Vec3{0, 0, -0.1})
				case sdl.K_a:
					pos = pos.Add(mgl32.Vec3{-0.1, 0, 0})
				case sdl.K_d:
					pos = pos.Add(mgl32.Vec3{0.1, 0, 0})
				default:
					continue
				}
				submit(camera())
			}
		}
	}
}
