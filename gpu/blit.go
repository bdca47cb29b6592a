package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

const blitWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) ix: u32) -> @builtin(position) vec4f {
	// Full screen quad in normalized device coordinates.
	var vertex = vec2f(-1.0, 1.0);
	switch ix {
		case 1u: {
			vertex = vec2f(-1.0, -1.0);
		}
		case 2u, 4u: {
			vertex = vec2f(1.0, -1.0);
		}
		case 5u: {
			vertex = vec2f(1.0, 1.0);
		}
		default: {}
	}
	return vec4f(vertex, 0.0, 1.0);
}

@group(0) @binding(0) var blit_source: texture_2d<f32>;

@fragment
fn fs_main(@builtin(position) pos: vec4f) -> @location(0) vec4f {
	return textureLoad(blit_source, vec2i(pos.xy), 0);
}`

// Blitter copies a tonemapped texture to the surface on devices whose
// surface format cannot be written from a compute shader.
type Blitter struct {
	dev      *Device
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.BindGroupLayout

	// Bind group cached per source view.
	source *wgpu.TextureView
	group  *wgpu.BindGroup
}

func (d *Device) NewBlitter(format wgpu.TextureFormat) (*Blitter, error) {
	module, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "blit",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: blitWGSL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compiling blit: %w", err)
	}
	defer module.Release()

	layout, err := d.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "blit",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating blit layout: %w", err)
	}
	pipelineLayout, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "blit",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("creating blit pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	pipeline, err := d.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "blit",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("creating blit pipeline: %w", err)
	}
	return &Blitter{
		dev:      d,
		pipeline: pipeline,
		layout:   layout,
	}, nil
}

// Blit records a fullscreen copy of source into target.
func (b *Blitter) Blit(enc *wgpu.CommandEncoder, source SampledTexture, target *wgpu.TextureView) error {
	if b.group == nil || b.source != source.View() {
		if b.group != nil {
			b.group.Release()
		}
		group, err := b.dev.NewBindGroup("blit", b.layout, wgpu.BindGroupEntry{
			TextureView: source.View(),
		})
		if err != nil {
			return err
		}
		b.group = group
		b.source = source.View()
	}

	pass := enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "blit",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    target,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	defer pass.Release()
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, b.group, nil)
	pass.Draw(6, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("recording blit pass: %w", err)
	}
	return nil
}

func (b *Blitter) Release() {
	if b.group != nil {
		b.group.Release()
	}
	b.pipeline.Release()
	b.layout.Release()
}
