package cornell

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/softglow/cornell/gmath"
	"github.com/softglow/cornell/gpu"
	"github.com/softglow/cornell/shaders"
)

// Raytracer renders the scene in a compute pass, one invocation per
// pixel, and writes into the same HDR framebuffer the rasterizer
// targets. Shading comes from the shared lightmap, so the two
// renderers converge to matching images.
type Raytracer struct {
	dev      *gpu.Device
	common   *Common
	lightmap gpu.SampledTexture

	pipeline *gpu.ComputePipeline
	sampler  *wgpu.Sampler
	groups   [2]*wgpu.BindGroup

	width  uint32
	height uint32
}

func NewRaytracer(dev *gpu.Device, common *Common, lightmap gpu.SampledTexture, framebuffer *gpu.Texture) (*Raytracer, error) {
	r := &Raytracer{
		dev:      dev,
		common:   common,
		lightmap: lightmap,
	}

	var err error
	r.pipeline, err = dev.NewComputePipeline(shaders.Collection.Raytracer)
	if err != nil {
		return nil, err
	}
	r.sampler, err = dev.NewLinearSampler("raytracer lightmap")
	if err != nil {
		r.release()
		return nil, err
	}
	r.groups[0], err = dev.NewBindGroup("raytracer common", r.pipeline.Layout(0),
		wgpu.BindGroupEntry{Buffer: common.Uniforms(), Size: wgpu.WholeSize},
		wgpu.BindGroupEntry{Buffer: common.Scene().QuadBuffer, Size: wgpu.WholeSize},
	)
	if err != nil {
		r.release()
		return nil, err
	}

	if err := r.SetTarget(framebuffer); err != nil {
		r.release()
		return nil, err
	}
	return r, nil
}

// SetTarget points the raytracer at a framebuffer, rebuilding the bind
// group that holds its storage view.
func (r *Raytracer) SetTarget(framebuffer *gpu.Texture) error {
	group, err := r.dev.NewBindGroup("raytracer target", r.pipeline.Layout(1),
		wgpu.BindGroupEntry{TextureView: r.lightmap.View()},
		wgpu.BindGroupEntry{Sampler: r.sampler},
		wgpu.BindGroupEntry{TextureView: framebuffer.View()},
	)
	if err != nil {
		return err
	}
	if r.groups[1] != nil {
		r.groups[1].Release()
	}
	r.groups[1] = group
	r.width, r.height, _ = framebuffer.Size()
	return nil
}

// Run records one full-frame trace.
func (r *Raytracer) Run(enc *wgpu.CommandEncoder) {
	pass := enc.BeginComputePass(nil)
	defer pass.Release()

	pass.SetPipeline(r.pipeline.Pipeline)
	pass.SetBindGroup(0, r.groups[0], nil)
	pass.SetBindGroup(1, r.groups[1], nil)
	wg := shaders.Collection.Raytracer.WorkgroupSize
	pass.DispatchWorkgroups(gmath.CeilDiv(r.width, wg[0]), gmath.CeilDiv(r.height, wg[1]), 1)

	if err := pass.End(); err != nil {
		panic(err)
	}
}

func (r *Raytracer) release() {
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	if r.sampler != nil {
		r.sampler.Release()
	}
	for _, g := range r.groups {
		if g != nil {
			g.Release()
		}
	}
}

func (r *Raytracer) Release() {
	r.release()
}
