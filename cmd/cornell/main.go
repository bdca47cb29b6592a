// Command cornell opens a window and runs the progressive radiosity
// Cornell box. Keys: R switches between the rasterizer and the
// raytracer, space pauses the camera, escape quits.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/softglow/cornell"
	"github.com/softglow/cornell/gpu"
)

func init() {
	// glfw needs the main thread.
	runtime.LockOSThread()
}

func main() {
	width := flag.Int("width", 1024, "window width")
	height := flag.Int("height", 768, "window height")
	renderer := flag.String("renderer", "rasterizer", "initial renderer (rasterizer or raytracer)")
	rotate := flag.Bool("rotate", true, "rotate the camera")
	fallback := flag.Bool("fallback-adapter", false, "force a software adapter")
	verify := flag.Int("verify", 0, "every n frames, read the accumulation buffer back and log its mean against the bookkept one (0 disables)")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	mode, err := cornell.ParseMode(*renderer)
	if err != nil {
		log.Error("bad -renderer flag", "err", err)
		os.Exit(2)
	}

	if err := run(log, cornell.Config{
		Width:  uint32(*width),
		Height: uint32(*height),
		Mode:   mode,
		Rotate: *rotate,
	}, *fallback, *verify); err != nil {
		log.Error("demo failed", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, cfg cornell.Config, fallback bool, verify int) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initializing glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(int(cfg.Width), int(cfg.Height), "cornell", nil, nil)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	defer window.Destroy()

	dev, err := gpu.Open(&gpu.Options{
		Surface:              wgpuglfw.GetSurfaceDescriptor(window),
		Require:              cornell.DeviceRequirements(),
		ForceFallbackAdapter: fallback,
		Logger:               log,
	})
	if err != nil {
		return err
	}
	defer dev.Release()

	demo, err := cornell.NewDemo(dev, cfg)
	if err != nil {
		return err
	}
	defer demo.Release()

	window.SetSizeCallback(func(w *glfw.Window, width, height int) {
		if err := demo.Resize(uint32(width), uint32(height)); err != nil {
			log.Error("resizing", "err", err)
		}
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyR:
			log.Info("switched renderer", "renderer", demo.ToggleMode())
		case glfw.KeySpace:
			log.Info("toggled rotation", "rotate", demo.ToggleRotation())
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		}
	})

	frames := 0
	totalFrames := 0
	lastTitle := time.Now()
	for !window.ShouldClose() {
		glfw.PollEvents()
		if err := demo.Frame(); err != nil {
			return err
		}
		frames++
		totalFrames++

		if elapsed := time.Since(lastTitle); elapsed >= time.Second {
			fps := float64(frames) / elapsed.Seconds()
			window.SetTitle(fmt.Sprintf("cornell - %s - %.0f fps", demo.Mode(), fps))
			log.Debug("frame rate", "fps", fps, "renderer", demo.Mode())
			frames = 0
			lastTitle = time.Now()
		}
		if verify > 0 && totalFrames%verify == 0 {
			measured, err := demo.Radiosity().MeasuredMean()
			if err != nil {
				log.Error("reading accumulation buffer", "err", err)
			} else {
				log.Info("accumulation mean",
					"measured", measured,
					"bookkept", demo.Radiosity().PredictedMean())
			}
		}
	}
	return nil
}
