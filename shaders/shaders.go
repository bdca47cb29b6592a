// Package shaders holds the WGSL sources and their bind group
// descriptors. The descriptors are the single source of truth for
// pipeline and bind group layout construction in package gpu.
package shaders

import (
	_ "embed"
	"fmt"
	"strings"
)

// Constants shared between the Go side and the WGSL sources. The WGSL
// copies are substituted into the sources at package init.
const (
	// LightmapWidth and LightmapHeight are the per-quad lightmap
	// dimensions. The resolve pass covers them with 16x16 tiles, so
	// they must be multiples of 16.
	LightmapWidth  = 256
	LightmapHeight = 256

	// PhotonsPerWorkgroup times WorkgroupsPerFrame photons are traced
	// each frame.
	PhotonsPerWorkgroup = 256
	WorkgroupsPerFrame  = 1024

	// PhotonEnergy is the initial energy of a single photon.
	PhotonEnergy = 100_000

	// PhotonBounces bounds the path length of a photon.
	PhotonBounces = 4
)

type BindType int

const (
	// Buffer is a read-write storage buffer.
	Buffer BindType = iota + 1
	// BufReadOnly is a read-only storage buffer.
	BufReadOnly
	// Uniform is a uniform buffer.
	Uniform
	// Texture is a sampled 2D texture.
	Texture
	// TextureArray is a sampled 2D array texture.
	TextureArray
	// Image is a write-only 2D storage texture.
	Image
	// ImageArray is a write-only 2D array storage texture.
	ImageArray
	// Sampler is a filtering sampler.
	Sampler
)

func (typ BindType) IsMutable() bool {
	return typ == Buffer || typ == Image || typ == ImageArray
}

// Binding describes a single bind group entry. Format names the texel
// format for Image and ImageArray bindings and is empty otherwise.
type Binding struct {
	Type   BindType
	Format string
}

type ComputeShader struct {
	Name          string
	Entry         string
	WorkgroupSize [3]uint32
	// Bindings holds one slice of entries per bind group, in group
	// order.
	Bindings [][]Binding
	WGSL     string
}

type RenderShader struct {
	Name          string
	VertexEntry   string
	FragmentEntry string
	Bindings      [][]Binding
	WGSL          string
}

var (
	//go:embed common.wgsl
	commonWGSL string
	//go:embed radiosity.wgsl
	radiosityWGSL string
	//go:embed rasterizer.wgsl
	rasterizerWGSL string
	//go:embed raytracer.wgsl
	raytracerWGSL string
	//go:embed tonemap.wgsl
	tonemapWGSL string
)

// commonBindings is bind group 0 of every scene shader: the camera
// uniforms and the quad buffer declared by common.wgsl.
func commonBindings() []Binding {
	return []Binding{
		{Type: Uniform},
		{Type: BufReadOnly},
	}
}

var constants = strings.NewReplacer(
	"{{LightmapWidth}}", fmt.Sprint(LightmapWidth),
	"{{LightmapHeight}}", fmt.Sprint(LightmapHeight),
	"{{PhotonsPerWorkgroup}}", fmt.Sprint(PhotonsPerWorkgroup),
	"{{PhotonEnergy}}", fmt.Sprintf("%d.0", PhotonEnergy),
	"{{PhotonBounces}}", fmt.Sprint(PhotonBounces),
)

func sceneSource(wgsl string) string {
	return constants.Replace(commonWGSL + "\n" + wgsl)
}

// Collection holds the preprocessed shader descriptors for the scene
// pipelines. The tonemapper is built separately by Tonemap because its
// output format isn't known until the surface is configured.
var Collection = struct {
	RadiosityAccumulate ComputeShader
	RadiosityResolve    ComputeShader
	Raytracer           ComputeShader
	Rasterizer          RenderShader
}{
	RadiosityAccumulate: ComputeShader{
		Name:          "radiosity_accumulate",
		Entry:         "accumulate",
		WorkgroupSize: [3]uint32{PhotonsPerWorkgroup, 1, 1},
		Bindings: [][]Binding{
			commonBindings(),
			{
				{Type: Buffer},
				{Type: ImageArray, Format: "rgba16float"},
				{Type: Uniform},
			},
		},
		WGSL: sceneSource(radiosityWGSL),
	},
	RadiosityResolve: ComputeShader{
		Name:          "radiosity_resolve",
		Entry:         "resolve",
		WorkgroupSize: [3]uint32{16, 16, 1},
		Bindings: [][]Binding{
			commonBindings(),
			{
				{Type: Buffer},
				{Type: ImageArray, Format: "rgba16float"},
				{Type: Uniform},
			},
		},
		WGSL: sceneSource(radiosityWGSL),
	},
	Raytracer: ComputeShader{
		Name:          "raytracer",
		Entry:         "rt_main",
		WorkgroupSize: [3]uint32{8, 8, 1},
		Bindings: [][]Binding{
			commonBindings(),
			{
				{Type: TextureArray},
				{Type: Sampler},
				{Type: Image, Format: "rgba16float"},
			},
		},
		WGSL: sceneSource(raytracerWGSL),
	},
	Rasterizer: RenderShader{
		Name:          "rasterizer",
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		Bindings: [][]Binding{
			commonBindings(),
			{
				{Type: TextureArray},
				{Type: Sampler},
			},
		},
		WGSL: sceneSource(rasterizerWGSL),
	},
}

// Tonemap returns the tonemapper descriptor for the given storage
// texture output format, e.g. "rgba8unorm".
func Tonemap(outputFormat string) ComputeShader {
	return ComputeShader{
		Name:          "tonemap",
		Entry:         "tonemap",
		WorkgroupSize: [3]uint32{8, 8, 1},
		Bindings: [][]Binding{
			{
				{Type: Texture},
				{Type: Image, Format: outputFormat},
			},
		},
		WGSL: strings.ReplaceAll(tonemapWGSL, "{OUTPUT_FORMAT}", outputFormat),
	}
}
