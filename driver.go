package cornell

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/softglow/cornell/gpu"
	"github.com/softglow/cornell/shaders"
)

// DeviceRequirements returns the limits a Demo needs from gpu.Open.
func DeviceRequirements() gpu.Requirements {
	quads := len(CornellQuads())
	return gpu.Requirements{
		StorageBufferBindingSize: AccumulationBufferSize(quads),
		ComputeInvocations:       shaders.PhotonsPerWorkgroup,
		TextureArrayLayers:       uint32(quads),
	}
}

// Demo owns the whole scene and drives one radiosity round, one
// render and one tonemap per frame.
type Demo struct {
	dev *gpu.Device
	log *slog.Logger

	width  uint32
	height uint32

	surfaceFormat wgpu.TextureFormat
	// directTonemap is set when the surface format can back a storage
	// texture, letting the tonemapper write it without a blit.
	directTonemap bool

	scene      *Scene
	common     *Common
	radiosity  *Radiosity
	rasterizer *Rasterizer
	raytracer  *Raytracer
	tonemap    *Tonemapper

	framebuffer *gpu.Texture
	// ldr and blit implement the fallback path for surfaces the
	// tonemapper cannot write directly.
	ldr  *gpu.Texture
	blit *gpu.Blitter

	mode   Mode
	rotate bool
	last   time.Time
}

func NewDemo(dev *gpu.Device, cfg Config) (*Demo, error) {
	if dev.Surface == nil {
		return nil, fmt.Errorf("demo needs a device with a surface")
	}
	d := &Demo{
		dev:    dev,
		log:    dev.Log(),
		width:  cfg.Width,
		height: cfg.Height,
		mode:   cfg.Mode,
		rotate: cfg.Rotate,
	}
	d.configureSurface()

	quads := CornellQuads()
	var err error
	d.scene, err = NewScene(dev, quads, len(quads)-1)
	if err != nil {
		return nil, err
	}
	d.common, err = NewCommon(dev, d.scene, d.width, d.height)
	if err != nil {
		d.release()
		return nil, err
	}
	d.framebuffer, err = d.newFramebuffer()
	if err != nil {
		d.release()
		return nil, err
	}
	d.radiosity, err = NewRadiosity(dev, d.common)
	if err != nil {
		d.release()
		return nil, err
	}
	d.rasterizer, err = NewRasterizer(dev, d.common, d.radiosity.Lightmap(), d.framebuffer)
	if err != nil {
		d.release()
		return nil, err
	}
	d.raytracer, err = NewRaytracer(dev, d.common, d.radiosity.Lightmap(), d.framebuffer)
	if err != nil {
		d.release()
		return nil, err
	}

	if d.directTonemap {
		d.tonemap, err = NewTonemapper(dev, d.surfaceFormat)
	} else {
		d.tonemap, err = NewTonemapper(dev, wgpu.TextureFormatRGBA8Unorm)
		if err == nil {
			d.ldr, err = d.newLDRTexture()
		}
		if err == nil {
			d.blit, err = dev.NewBlitter(d.surfaceFormat)
		}
	}
	if err != nil {
		d.release()
		return nil, err
	}

	d.log.Info("demo ready",
		"renderer", d.mode,
		"surfaceFormat", d.surfaceFormat,
		"directTonemap", d.directTonemap,
		"quads", len(quads))
	d.last = time.Now()
	return d, nil
}

func (d *Demo) newFramebuffer() (*gpu.Texture, error) {
	return d.dev.NewTexture(gpu.TextureConfig{
		Label:  "hdr framebuffer",
		Width:  d.width,
		Height: d.height,
		Format: wgpu.TextureFormatRGBA16Float,
		Usage: wgpu.TextureUsageStorageBinding |
			wgpu.TextureUsageTextureBinding |
			wgpu.TextureUsageRenderAttachment,
	})
}

func (d *Demo) newLDRTexture() (*gpu.Texture, error) {
	return d.dev.NewTexture(gpu.TextureConfig{
		Label:  "ldr tonemap target",
		Width:  d.width,
		Height: d.height,
		Format: wgpu.TextureFormatRGBA8Unorm,
		Usage:  wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
}

func (d *Demo) configureSurface() {
	caps := d.dev.Surface.GetCapabilities(d.dev.Adapter)
	d.surfaceFormat = caps.Formats[0]
	_, d.directTonemap = gpu.TexelFormatName(d.surfaceFormat)
	usage := wgpu.TextureUsageRenderAttachment
	if d.directTonemap {
		usage = wgpu.TextureUsageStorageBinding
	}
	d.dev.Surface.Configure(d.dev.Adapter, d.dev.Device, &wgpu.SurfaceConfiguration{
		Usage:       usage,
		Format:      d.surfaceFormat,
		Width:       d.width,
		Height:      d.height,
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	})
}

// Resize reconfigures the surface and rebuilds every size-dependent
// texture. Zero dimensions (a minimized window) are ignored.
func (d *Demo) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	d.width, d.height = width, height
	d.common.SetAspect(width, height)
	d.configureSurface()

	fb, err := d.newFramebuffer()
	if err != nil {
		return err
	}
	d.framebuffer.Release()
	d.framebuffer = fb
	if err := d.rasterizer.SetTarget(fb); err != nil {
		return err
	}
	if err := d.raytracer.SetTarget(fb); err != nil {
		return err
	}
	if d.ldr != nil {
		ldr, err := d.newLDRTexture()
		if err != nil {
			return err
		}
		d.ldr.Release()
		d.ldr = ldr
	}
	return nil
}

func (d *Demo) Mode() Mode {
	return d.mode
}

// ToggleMode flips between the two renderers and returns the new one.
func (d *Demo) ToggleMode() Mode {
	if d.mode == ModeRasterizer {
		d.mode = ModeRaytracer
	} else {
		d.mode = ModeRasterizer
	}
	return d.mode
}

func (d *Demo) Rotating() bool {
	return d.rotate
}

func (d *Demo) ToggleRotation() bool {
	d.rotate = !d.rotate
	return d.rotate
}

// Radiosity exposes the solver for verification readbacks.
func (d *Demo) Radiosity() *Radiosity {
	return d.radiosity
}

// Frame runs one simulation step and presents it.
func (d *Demo) Frame() error {
	now := time.Now()
	dt := now.Sub(d.last)
	d.last = now
	d.common.Update(dt, d.rotate)

	surf, err := d.dev.Surface.GetCurrentTexture()
	if err != nil {
		// Usually a lost or outdated surface mid-resize. Reconfigure
		// and skip the frame.
		d.log.Debug("reacquiring surface", "err", err)
		d.configureSurface()
		return nil
	}
	defer surf.Release()
	view, err := surf.CreateView(nil)
	if err != nil {
		return fmt.Errorf("creating surface view: %w", err)
	}
	defer view.Release()

	enc, err := d.dev.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("creating frame encoder: %w", err)
	}
	defer enc.Release()

	d.radiosity.Run(enc)
	switch d.mode {
	case ModeRasterizer:
		d.rasterizer.Run(enc)
	case ModeRaytracer:
		d.raytracer.Run(enc)
	}

	if d.directTonemap {
		if err := d.tonemap.SetTextures(d.framebuffer.Sampled(), view, d.width, d.height); err != nil {
			return err
		}
		d.tonemap.Run(enc)
	} else {
		if err := d.tonemap.SetTextures(d.framebuffer.Sampled(), d.ldr.View(), d.width, d.height); err != nil {
			return err
		}
		d.tonemap.Run(enc)
		if err := d.blit.Blit(enc, d.ldr.Sampled(), view); err != nil {
			return err
		}
	}

	cmd, err := enc.Finish(nil)
	if err != nil {
		return fmt.Errorf("finishing frame encoder: %w", err)
	}
	d.dev.Queue.Submit(cmd)
	cmd.Release()
	d.dev.Surface.Present()
	return nil
}

func (d *Demo) release() {
	if d.blit != nil {
		d.blit.Release()
	}
	if d.ldr != nil {
		d.ldr.Release()
	}
	if d.tonemap != nil {
		d.tonemap.Release()
	}
	if d.raytracer != nil {
		d.raytracer.Release()
	}
	if d.rasterizer != nil {
		d.rasterizer.Release()
	}
	if d.radiosity != nil {
		d.radiosity.Release()
	}
	if d.framebuffer != nil {
		d.framebuffer.Release()
	}
	if d.common != nil {
		d.common.Release()
	}
	if d.scene != nil {
		d.scene.Release()
	}
}

func (d *Demo) Release() {
	d.release()
}
