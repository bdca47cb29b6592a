package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstantSubstitution(t *testing.T) {
	sources := map[string]string{
		"accumulate": Collection.RadiosityAccumulate.WGSL,
		"resolve":    Collection.RadiosityResolve.WGSL,
		"raytracer":  Collection.Raytracer.WGSL,
		"rasterizer": Collection.Rasterizer.WGSL,
	}
	for name, wgsl := range sources {
		assert.NotContains(t, wgsl, "{{", "unsubstituted placeholder in %s", name)
		assert.Contains(t, wgsl, "struct Quad", "%s misses the common declarations", name)
	}
	assert.Contains(t, Collection.RadiosityAccumulate.WGSL, "const photons_per_workgroup = 256u")
	assert.Contains(t, Collection.RadiosityAccumulate.WGSL, "const photon_energy = 100000.0")
	assert.Contains(t, Collection.RadiosityAccumulate.WGSL, "const lightmap_width = 256u")
}

func TestEntryPoints(t *testing.T) {
	assert.Contains(t, Collection.RadiosityAccumulate.WGSL, "fn "+Collection.RadiosityAccumulate.Entry)
	assert.Contains(t, Collection.RadiosityResolve.WGSL, "fn "+Collection.RadiosityResolve.Entry)
	assert.Contains(t, Collection.Raytracer.WGSL, "fn "+Collection.Raytracer.Entry)
	assert.Contains(t, Collection.Rasterizer.WGSL, "fn "+Collection.Rasterizer.VertexEntry)
	assert.Contains(t, Collection.Rasterizer.WGSL, "fn "+Collection.Rasterizer.FragmentEntry)
}

func TestTonemapFormat(t *testing.T) {
	for _, format := range []string{"rgba8unorm", "rgba16float"} {
		shader := Tonemap(format)
		assert.Contains(t, shader.WGSL, "texture_storage_2d<"+format+", write>")
		assert.NotContains(t, shader.WGSL, "{OUTPUT_FORMAT}")
		assert.Equal(t, format, shader.Bindings[0][1].Format)
	}
}

func TestCommonBindGroup(t *testing.T) {
	// Group 0 is identical across all scene shaders: uniforms then the
	// quad buffer.
	want := []Binding{{Type: Uniform}, {Type: BufReadOnly}}
	assert.Equal(t, want, Collection.RadiosityAccumulate.Bindings[0])
	assert.Equal(t, want, Collection.RadiosityResolve.Bindings[0])
	assert.Equal(t, want, Collection.Raytracer.Bindings[0])
	assert.Equal(t, want, Collection.Rasterizer.Bindings[0])
}

func TestMutability(t *testing.T) {
	assert.True(t, Buffer.IsMutable())
	assert.True(t, Image.IsMutable())
	assert.True(t, ImageArray.IsMutable())
	assert.False(t, BufReadOnly.IsMutable())
	assert.False(t, Uniform.IsMutable())
	assert.False(t, Texture.IsMutable())
	assert.False(t, Sampler.IsMutable())
}

func TestResolveCoversLightmap(t *testing.T) {
	// The resolve pass tiles the lightmap with its workgroup size, so
	// the dimensions must divide evenly.
	wg := Collection.RadiosityResolve.WorkgroupSize
	if LightmapWidth%wg[0] != 0 || LightmapHeight%wg[1] != 0 {
		t.Fatalf("lightmap %dx%d not divisible by resolve workgroup %dx%d",
			LightmapWidth, LightmapHeight, wg[0], wg[1])
	}
	if !strings.Contains(Collection.RadiosityResolve.WGSL, "@workgroup_size(16, 16)") {
		t.Fatal("resolve workgroup size out of sync with its descriptor")
	}
}
