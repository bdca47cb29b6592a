package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestCheckLimits(t *testing.T) {
	limits := wgpu.DefaultLimits()

	assert.NoError(t, CheckLimits(limits, Requirements{}))
	assert.NoError(t, CheckLimits(limits, Requirements{
		ComputeInvocations: limits.MaxComputeInvocationsPerWorkgroup,
		TextureArrayLayers: limits.MaxTextureArrayLayers,
	}))

	assert.Error(t, CheckLimits(limits, Requirements{
		StorageBufferBindingSize: limits.MaxStorageBufferBindingSize + 1,
	}))
	assert.Error(t, CheckLimits(limits, Requirements{
		ComputeInvocations: limits.MaxComputeInvocationsPerWorkgroup + 1,
	}))
	assert.Error(t, CheckLimits(limits, Requirements{
		TextureArrayLayers: limits.MaxTextureArrayLayers + 1,
	}))
}

func TestRaiseLimits(t *testing.T) {
	limits := wgpu.DefaultLimits()
	req := Requirements{
		StorageBufferBindingSize: limits.MaxStorageBufferBindingSize * 2,
		ComputeInvocations:       limits.MaxComputeInvocationsPerWorkgroup,
		TextureArrayLayers:       limits.MaxTextureArrayLayers + 8,
	}
	raiseLimits(&limits, req)
	assert.GreaterOrEqual(t, limits.MaxStorageBufferBindingSize, req.StorageBufferBindingSize)
	assert.GreaterOrEqual(t, limits.MaxBufferSize, req.StorageBufferBindingSize)
	assert.GreaterOrEqual(t, limits.MaxTextureArrayLayers, req.TextureArrayLayers)
}

func TestTexelFormat(t *testing.T) {
	for _, name := range []string{"rgba8unorm", "rgba16float"} {
		format := TexelFormat(name)
		got, ok := TexelFormatName(format)
		assert.True(t, ok)
		assert.Equal(t, name, got)
	}

	_, ok := TexelFormatName(wgpu.TextureFormatBGRA8Unorm)
	assert.False(t, ok, "bgra8unorm storage needs an optional feature we don't request")

	assert.Panics(t, func() { TexelFormat("r32sint") })
}
