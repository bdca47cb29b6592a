package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureConfig describes a 2D or 2D array texture.
type TextureConfig struct {
	Label  string
	Width  uint32
	Height uint32
	// Layers > 1 makes this an array texture. 0 means 1.
	Layers uint32
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
}

// Texture owns a texture and its default view. Components that create
// a texture keep the Texture; components that only read it are handed
// a SampledTexture instead.
type Texture struct {
	Texture *wgpu.Texture
	view    *wgpu.TextureView
	cfg     TextureConfig
}

func (d *Device) NewTexture(cfg TextureConfig) (*Texture, error) {
	if cfg.Layers == 0 {
		cfg.Layers = 1
	}
	tex, err := d.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label: cfg.Label,
		Size: wgpu.Extent3D{
			Width:              cfg.Width,
			Height:             cfg.Height,
			DepthOrArrayLayers: cfg.Layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        cfg.Format,
		Usage:         cfg.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("creating texture %s: %w", cfg.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("creating view of %s: %w", cfg.Label, err)
	}
	return &Texture{
		Texture: tex,
		view:    view,
		cfg:     cfg,
	}, nil
}

func (t *Texture) View() *wgpu.TextureView {
	return t.view
}

func (t *Texture) Format() wgpu.TextureFormat {
	return t.cfg.Format
}

func (t *Texture) Size() (width, height, layers uint32) {
	return t.cfg.Width, t.cfg.Height, t.cfg.Layers
}

// Sampled returns a read-only handle to the texture.
func (t *Texture) Sampled() SampledTexture {
	return SampledTexture{view: t.view}
}

func (t *Texture) Release() {
	t.view.Release()
	t.Texture.Release()
}

// SampledTexture is a borrowed, read-only view of a texture owned by
// another component.
type SampledTexture struct {
	view *wgpu.TextureView
}

func (t SampledTexture) View() *wgpu.TextureView {
	return t.view
}

// NewLinearSampler creates a clamping bilinear sampler.
func (d *Device) NewLinearSampler(label string) (*wgpu.Sampler, error) {
	sampler, err := d.Device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		Compare:       wgpu.CompareFunctionUndefined,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("creating sampler %s: %w", label, err)
	}
	return sampler, nil
}
