package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/softglow/cornell/shaders"
)

// ComputePipeline pairs a compute pipeline with the bind group layouts
// it was built from.
type ComputePipeline struct {
	Label    string
	Pipeline *wgpu.ComputePipeline
	layouts  []*wgpu.BindGroupLayout
}

func (d *Device) NewComputePipeline(shader shaders.ComputeShader) (*ComputePipeline, error) {
	module, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: shader.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shader.WGSL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", shader.Name, err)
	}
	defer module.Release()

	layouts, err := d.bindGroupLayouts(shader.Name, shader.Bindings, wgpu.ShaderStageCompute)
	if err != nil {
		return nil, err
	}
	pipelineLayout, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            shader.Name,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s pipeline layout: %w", shader.Name, err)
	}
	defer pipelineLayout.Release()

	pipeline, err := d.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  shader.Name,
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: shader.Entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s pipeline: %w", shader.Name, err)
	}
	return &ComputePipeline{
		Label:    shader.Name,
		Pipeline: pipeline,
		layouts:  layouts,
	}, nil
}

// Layout returns the bind group layout for the given group index.
func (p *ComputePipeline) Layout(group int) *wgpu.BindGroupLayout {
	return p.layouts[group]
}

func (p *ComputePipeline) Release() {
	p.Pipeline.Release()
	for _, l := range p.layouts {
		l.Release()
	}
}

// RenderPipelineConfig carries the state a render shader descriptor
// doesn't know about itself.
type RenderPipelineConfig struct {
	VertexBuffers []wgpu.VertexBufferLayout
	ColorFormat   wgpu.TextureFormat
	// DepthFormat enables depth testing when it isn't
	// TextureFormatUndefined.
	DepthFormat wgpu.TextureFormat
}

type RenderPipeline struct {
	Label    string
	Pipeline *wgpu.RenderPipeline
	layouts  []*wgpu.BindGroupLayout
}

func (d *Device) NewRenderPipeline(shader shaders.RenderShader, cfg RenderPipelineConfig) (*RenderPipeline, error) {
	module, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: shader.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shader.WGSL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", shader.Name, err)
	}
	defer module.Release()

	layouts, err := d.bindGroupLayouts(shader.Name, shader.Bindings, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
	if err != nil {
		return nil, err
	}
	pipelineLayout, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            shader.Name,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s pipeline layout: %w", shader.Name, err)
	}
	defer pipelineLayout.Release()

	var depth *wgpu.DepthStencilState
	if cfg.DepthFormat != wgpu.TextureFormatUndefined {
		depth = &wgpu.DepthStencilState{
			Format:            cfg.DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	pipeline, err := d.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  shader.Name,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: shader.VertexEntry,
			Buffers:    cfg.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: shader.FragmentEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    cfg.ColorFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depth,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s pipeline: %w", shader.Name, err)
	}
	return &RenderPipeline{
		Label:    shader.Name,
		Pipeline: pipeline,
		layouts:  layouts,
	}, nil
}

func (p *RenderPipeline) Layout(group int) *wgpu.BindGroupLayout {
	return p.layouts[group]
}

func (p *RenderPipeline) Release() {
	p.Pipeline.Release()
	for _, l := range p.layouts {
		l.Release()
	}
}

func (d *Device) bindGroupLayouts(label string, groups [][]shaders.Binding, visibility wgpu.ShaderStage) ([]*wgpu.BindGroupLayout, error) {
	layouts := make([]*wgpu.BindGroupLayout, len(groups))
	for g, bindings := range groups {
		layout, err := d.bindGroupLayout(fmt.Sprintf("%s group %d", label, g), bindings, visibility)
		if err != nil {
			for _, l := range layouts[:g] {
				l.Release()
			}
			return nil, err
		}
		layouts[g] = layout
	}
	return layouts, nil
}

func (d *Device) bindGroupLayout(label string, bindings []shaders.Binding, visibility wgpu.ShaderStage) (*wgpu.BindGroupLayout, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, len(bindings))
	for i, binding := range bindings {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: visibility,
		}
		switch binding.Type {
		case shaders.Buffer, shaders.BufReadOnly:
			typ := wgpu.BufferBindingTypeStorage
			if binding.Type == shaders.BufReadOnly {
				typ = wgpu.BufferBindingTypeReadOnlyStorage
			}
			entry.Buffer = wgpu.BufferBindingLayout{
				Type: typ,
			}
		case shaders.Uniform:
			entry.Buffer = wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeUniform,
			}
		case shaders.Texture:
			entry.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			}
		case shaders.TextureArray:
			entry.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2DArray,
			}
		case shaders.Image:
			entry.StorageTexture = wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        TexelFormat(binding.Format),
				ViewDimension: wgpu.TextureViewDimension2D,
			}
		case shaders.ImageArray:
			entry.StorageTexture = wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        TexelFormat(binding.Format),
				ViewDimension: wgpu.TextureViewDimension2DArray,
			}
		case shaders.Sampler:
			entry.Sampler = wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			}
		default:
			panic(fmt.Sprintf("invalid bind type %d", binding.Type))
		}
		entries[i] = entry
	}
	layout, err := d.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s layout: %w", label, err)
	}
	return layout, nil
}

// NewBindGroup creates a bind group, assigning binding numbers from the
// entries' positions.
func (d *Device) NewBindGroup(label string, layout *wgpu.BindGroupLayout, entries ...wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	for i := range entries {
		entries[i].Binding = uint32(i)
	}
	group, err := d.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s bind group: %w", label, err)
	}
	return group, nil
}

// TexelFormat maps a WGSL texel format name to its texture format.
func TexelFormat(name string) wgpu.TextureFormat {
	switch name {
	case "rgba8unorm":
		return wgpu.TextureFormatRGBA8Unorm
	case "rgba16float":
		return wgpu.TextureFormatRGBA16Float
	default:
		panic(fmt.Sprintf("unhandled texel format %q", name))
	}
}

// TexelFormatName is the inverse of TexelFormat. ok is false for
// formats we cannot use as a storage texture, such as bgra8unorm,
// which requires an optional feature.
func TexelFormatName(format wgpu.TextureFormat) (name string, ok bool) {
	switch format {
	case wgpu.TextureFormatRGBA8Unorm:
		return "rgba8unorm", true
	case wgpu.TextureFormatRGBA16Float:
		return "rgba16float", true
	default:
		return "", false
	}
}
