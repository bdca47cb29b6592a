package cornell

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/softglow/cornell/gpu"
	"github.com/softglow/cornell/shaders"
)

// Rasterizer draws the scene's quads as indexed triangles into the HDR
// framebuffer, shading them from the lightmap.
type Rasterizer struct {
	dev   *gpu.Device
	scene *Scene

	pipeline *gpu.RenderPipeline
	sampler  *wgpu.Sampler
	groups   [2]*wgpu.BindGroup

	target *gpu.Texture
	depth  *gpu.Texture
}

func NewRasterizer(dev *gpu.Device, common *Common, lightmap gpu.SampledTexture, framebuffer *gpu.Texture) (*Rasterizer, error) {
	scene := common.Scene()
	r := &Rasterizer{
		dev:   dev,
		scene: scene,
	}

	var err error
	r.pipeline, err = dev.NewRenderPipeline(shaders.Collection.Rasterizer, gpu.RenderPipelineConfig{
		VertexBuffers: []wgpu.VertexBufferLayout{scene.VertexLayout()},
		ColorFormat:   framebuffer.Format(),
		DepthFormat:   wgpu.TextureFormatDepth24Plus,
	})
	if err != nil {
		return nil, err
	}
	r.sampler, err = dev.NewLinearSampler("rasterizer lightmap")
	if err != nil {
		r.release()
		return nil, err
	}

	r.groups[0], err = dev.NewBindGroup("rasterizer common", r.pipeline.Layout(0),
		wgpu.BindGroupEntry{Buffer: common.Uniforms(), Size: wgpu.WholeSize},
		wgpu.BindGroupEntry{Buffer: scene.QuadBuffer, Size: wgpu.WholeSize},
	)
	if err != nil {
		r.release()
		return nil, err
	}
	r.groups[1], err = dev.NewBindGroup("rasterizer lightmap", r.pipeline.Layout(1),
		wgpu.BindGroupEntry{TextureView: lightmap.View()},
		wgpu.BindGroupEntry{Sampler: r.sampler},
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

// SetTarget points the rasterizer at a framebuffer, recreating the
// matching depth buffer.
func (r *Rasterizer) SetTarget(framebuffer *gpu.Texture) error {
	width, height, _ := framebuffer.Size()
	depth, err := r.dev.NewTexture(gpu.TextureConfig{
		Label:  "rasterizer depth",
		Width:  width,
		Height: height,
		Format: wgpu.TextureFormatDepth24Plus,
		Usage:  wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	if r.depth != nil {
		r.depth.Release()
	}
	r.depth = depth
	r.target = framebuffer
	return nil
}

// Run records one draw of the scene.
func (r *Rasterizer) Run(enc *wgpu.CommandEncoder) {
	pass := enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "rasterizer",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    r.target.View(),
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depth.View(),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	defer pass.Release()

	pass.SetPipeline(r.pipeline.Pipeline)
	pass.SetBindGroup(0, r.groups[0], nil)
	pass.SetBindGroup(1, r.groups[1], nil)
	pass.SetVertexBuffer(0, r.scene.VertexBuffer, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(r.scene.IndexBuffer, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	pass.DrawIndexed(r.scene.IndexCount(), 1, 0, 0, 0)

	if err := pass.End(); err != nil {
		panic(err)
	}
}

func (r *Rasterizer) release() {
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
	if r.depth != nil {
		r.depth.Release()
	}
}

func (r *Rasterizer) Release() {
	r.release()
}
