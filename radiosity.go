package cornell

import (
	"structs"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"honnef.co/go/safeish"

	"github.com/softglow/cornell/gmath"
	"github.com/softglow/cornell/gpu"
	"github.com/softglow/cornell/shaders"
)

// accumulationMeanMax bounds the running mean of accumulated energy
// per texel. Past it the accumulation buffer is halved to keep texel
// totals well inside f32 precision.
const accumulationMeanMax = 2 * (1 << 28)

// accumulationTexelSize is the stride of one texel in the accumulation
// buffer: a vec3f padded to 16 bytes.
const accumulationTexelSize = 16

// AccumulationBufferSize returns the byte size of the photon
// accumulation buffer for a scene with numQuads quads.
func AccumulationBufferSize(numQuads int) uint64 {
	return uint64(shaders.LightmapWidth) * shaders.LightmapHeight * uint64(numQuads) * accumulationTexelSize
}

// radiosityUniforms mirrors RadiosityUniforms in radiosity.wgsl.
type radiosityUniforms struct {
	_ structs.HostLayout

	ResolveScale float32
	BufferScale  float32
	LightWidth   float32
	LightHeight  float32
	LightCenter  [3]float32
	LightQuad    uint32
}

// Radiosity progressively solves the scene's diffuse lighting. Each
// frame it traces a batch of photons from the light into the
// accumulation buffer, then resolves the buffer into the lightmap,
// dividing by the mean energy deposited per texel so the lightmap
// stays an average rather than a growing sum.
type Radiosity struct {
	dev   *gpu.Device
	scene *Scene

	lightmap     *gpu.Texture
	accumulation *wgpu.Buffer
	uniforms     *wgpu.Buffer

	accumulate *gpu.ComputePipeline
	resolve    *gpu.ComputePipeline

	accumulateGroups [2]*wgpu.BindGroup
	resolveGroups    [2]*wgpu.BindGroup

	// Mean total photon energy deposited per texel, including frames
	// before any renormalization. Tracked in float64; the shader only
	// ever sees the two scales derived from it.
	meanEnergy float64
}

func NewRadiosity(dev *gpu.Device, common *Common) (*Radiosity, error) {
	scene := common.Scene()
	r := &Radiosity{
		dev:   dev,
		scene: scene,
	}

	var err error
	r.lightmap, err = dev.NewTexture(gpu.TextureConfig{
		Label:  "lightmap",
		Width:  shaders.LightmapWidth,
		Height: shaders.LightmapHeight,
		Layers: uint32(len(scene.Quads)),
		Format: wgpu.TextureFormatRGBA16Float,
		Usage:  wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, err
	}
	r.accumulation, err = dev.NewBuffer("photon accumulation",
		AccumulationBufferSize(len(scene.Quads)),
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	if err != nil {
		r.release()
		return nil, err
	}
	r.uniforms, err = dev.NewBuffer("radiosity uniforms",
		uint64(unsafe.Sizeof(radiosityUniforms{})),
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		r.release()
		return nil, err
	}

	r.accumulate, err = dev.NewComputePipeline(shaders.Collection.RadiosityAccumulate)
	if err != nil {
		r.release()
		return nil, err
	}
	r.resolve, err = dev.NewComputePipeline(shaders.Collection.RadiosityResolve)
	if err != nil {
		r.release()
		return nil, err
	}

	for i, pipeline := range []*gpu.ComputePipeline{r.accumulate, r.resolve} {
		common0, err := dev.NewBindGroup(pipeline.Label, pipeline.Layout(0),
			wgpu.BindGroupEntry{Buffer: common.Uniforms(), Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Buffer: scene.QuadBuffer, Size: wgpu.WholeSize},
		)
		if err != nil {
			r.release()
			return nil, err
		}
		solver1, err := dev.NewBindGroup(pipeline.Label, pipeline.Layout(1),
			wgpu.BindGroupEntry{Buffer: r.accumulation, Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{TextureView: r.lightmap.View()},
			wgpu.BindGroupEntry{Buffer: r.uniforms, Size: wgpu.WholeSize},
		)
		if err != nil {
			common0.Release()
			r.release()
			return nil, err
		}
		if i == 0 {
			r.accumulateGroups = [2]*wgpu.BindGroup{common0, solver1}
		} else {
			r.resolveGroups = [2]*wgpu.BindGroup{common0, solver1}
		}
	}
	return r, nil
}

// Lightmap returns the read-only handle renderers sample from.
func (r *Radiosity) Lightmap() gpu.SampledTexture {
	return r.lightmap.Sampled()
}

// tick advances the mean-energy bookkeeping by one frame and returns
// the uniforms to run it with. The resolve scale is derived from the
// post-halving mean so that resolved lightmap values don't jump on
// renormalization frames.
func (r *Radiosity) tick() radiosityUniforms {
	texels := shaders.LightmapWidth * shaders.LightmapHeight * len(r.scene.Quads)
	photons := shaders.PhotonsPerWorkgroup * shaders.WorkgroupsPerFrame
	r.meanEnergy += float64(photons) * shaders.PhotonEnergy / float64(texels)

	bufferScale := float32(1)
	if r.meanEnergy > accumulationMeanMax {
		bufferScale = 0.5
		r.meanEnergy *= 0.5
	}

	light := r.scene.Quads[r.scene.Light]
	return radiosityUniforms{
		ResolveScale: float32(1 / r.meanEnergy),
		BufferScale:  bufferScale,
		LightWidth:   2 * light.Right.Len(),
		LightHeight:  2 * light.Up.Len(),
		LightCenter:  [3]float32{light.Center.X(), light.Center.Y(), light.Center.Z()},
		LightQuad:    uint32(r.scene.Light),
	}
}

// Run records one photon batch and the lightmap resolve.
func (r *Radiosity) Run(enc *wgpu.CommandEncoder) {
	u := r.tick()
	if err := gpu.WriteUniform(r.dev, r.uniforms, &u); err != nil {
		r.dev.Log().Error("writing radiosity uniforms", "err", err)
	}

	pass := enc.BeginComputePass(nil)
	defer pass.Release()

	pass.SetPipeline(r.accumulate.Pipeline)
	pass.SetBindGroup(0, r.accumulateGroups[0], nil)
	pass.SetBindGroup(1, r.accumulateGroups[1], nil)
	pass.DispatchWorkgroups(shaders.WorkgroupsPerFrame, 1, 1)

	pass.SetPipeline(r.resolve.Pipeline)
	pass.SetBindGroup(0, r.resolveGroups[0], nil)
	pass.SetBindGroup(1, r.resolveGroups[1], nil)
	pass.DispatchWorkgroups(
		gmath.CeilDiv[uint32](shaders.LightmapWidth, 16),
		gmath.CeilDiv[uint32](shaders.LightmapHeight, 16),
		uint32(len(r.scene.Quads)),
	)

	if err := pass.End(); err != nil {
		panic(err)
	}
}

// PredictedMean returns the bookkept mean energy per texel.
func (r *Radiosity) PredictedMean() float64 {
	return r.meanEnergy
}

// MeasuredMean reads the accumulation buffer back and returns the mean
// deposited energy per texel, averaged over the color channels. It
// stalls the queue and exists for verification runs, not the frame
// loop.
func (r *Radiosity) MeasuredMean() (float64, error) {
	size := AccumulationBufferSize(len(r.scene.Quads))
	raw, err := r.dev.ReadBuffer(r.accumulation, size)
	if err != nil {
		return 0, err
	}
	texels := safeish.SliceCast[[]float32](raw)
	var sum float64
	for i := 0; i+3 <= len(texels); i += accumulationTexelSize / 4 {
		sum += float64(texels[i]) + float64(texels[i+1]) + float64(texels[i+2])
	}
	numTexels := int(size / accumulationTexelSize)
	return sum / (3 * float64(numTexels)), nil
}

func (r *Radiosity) release() {
	if r.lightmap != nil {
		r.lightmap.Release()
	}
	if r.accumulation != nil {
		r.accumulation.Release()
	}
	if r.uniforms != nil {
		r.uniforms.Release()
	}
	if r.accumulate != nil {
		r.accumulate.Release()
	}
	if r.resolve != nil {
		r.resolve.Release()
	}
	for _, g := range r.accumulateGroups {
		if g != nil {
			g.Release()
		}
	}
	for _, g := range r.resolveGroups {
		if g != nil {
			g.Release()
		}
	}
}

func (r *Radiosity) Release() {
	r.release()
}
