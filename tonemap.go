package cornell

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/softglow/cornell/gmath"
	"github.com/softglow/cornell/gpu"
	"github.com/softglow/cornell/shaders"
)

// Tonemapper compresses the HDR framebuffer into a display format in a
// compute pass. The output's texel format is baked into the pipeline,
// so one Tonemapper only ever writes one format; the driver keeps it
// pointed at either the surface or an intermediate texture.
type Tonemapper struct {
	dev           *gpu.Device
	pipeline      *gpu.ComputePipeline
	workgroupSize [3]uint32

	input  gpu.SampledTexture
	output *wgpu.TextureView
	group  *wgpu.BindGroup

	width  uint32
	height uint32
}

// NewTonemapper builds a tonemapper writing the given format. Formats
// that cannot back a storage texture are rejected; the caller then
// tonemaps into an intermediate texture and blits.
func NewTonemapper(dev *gpu.Device, format wgpu.TextureFormat) (*Tonemapper, error) {
	name, ok := gpu.TexelFormatName(format)
	if !ok {
		return nil, fmt.Errorf("cannot use %v as a tonemap target", format)
	}
	shader := shaders.Tonemap(name)
	pipeline, err := dev.NewComputePipeline(shader)
	if err != nil {
		return nil, err
	}
	return &Tonemapper{
		dev:           dev,
		pipeline:      pipeline,
		workgroupSize: shader.WorkgroupSize,
	}, nil
}

// SetTextures points the tonemapper at an input and output for this
// frame, rebuilding the bind group only when either view changed.
func (t *Tonemapper) SetTextures(input gpu.SampledTexture, output *wgpu.TextureView, width, height uint32) error {
	if t.group != nil && t.input.View() == input.View() && t.output == output {
		t.width, t.height = width, height
		return nil
	}
	group, err := t.dev.NewBindGroup("tonemap", t.pipeline.Layout(0),
		wgpu.BindGroupEntry{TextureView: input.View()},
		wgpu.BindGroupEntry{TextureView: output},
	)
	if err != nil {
		return err
	}
	if t.group != nil {
		t.group.Release()
	}
	t.group = group
	t.input = input
	t.output = output
	t.width, t.height = width, height
	return nil
}

// Run records the tonemap dispatch.
func (t *Tonemapper) Run(enc *wgpu.CommandEncoder) {
	pass := enc.BeginComputePass(nil)
	defer pass.Release()

	pass.SetPipeline(t.pipeline.Pipeline)
	pass.SetBindGroup(0, t.group, nil)
	wg := t.workgroupSize
	pass.DispatchWorkgroups(gmath.CeilDiv(t.width, wg[0]), gmath.CeilDiv(t.height, wg[1]), 1)

	if err := pass.End(); err != nil {
		panic(err)
	}
}

func (t *Tonemapper) Release() {
	if t.group != nil {
		t.group.Release()
	}
	t.pipeline.Release()
}
