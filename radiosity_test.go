package cornell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softglow/cornell/shaders"
)

func testSolver() *Radiosity {
	quads := CornellQuads()
	return &Radiosity{
		scene: &Scene{
			Quads: quads,
			Light: len(quads) - 1,
		},
	}
}

// energyPerTexel is the bookkept mean energy added by one frame.
func energyPerTexel(numQuads int) float64 {
	photons := shaders.PhotonsPerWorkgroup * shaders.WorkgroupsPerFrame
	texels := shaders.LightmapWidth * shaders.LightmapHeight * numQuads
	return float64(photons) * shaders.PhotonEnergy / float64(texels)
}

func TestTickFirstFrame(t *testing.T) {
	r := testSolver()
	u := r.tick()

	perFrame := energyPerTexel(len(r.scene.Quads))
	assert.Equal(t, perFrame, r.PredictedMean())
	assert.Equal(t, float32(1/perFrame), u.ResolveScale)
	assert.Equal(t, float32(1), u.BufferScale)

	light := r.scene.Quads[r.scene.Light]
	assert.Equal(t, uint32(r.scene.Light), u.LightQuad)
	assert.InDelta(t, 3.2, u.LightWidth, 1e-5)
	assert.InDelta(t, 2.4, u.LightHeight, 1e-5)
	assert.Equal(t, [3]float32{light.Center.X(), light.Center.Y(), light.Center.Z()}, u.LightCenter)
}

func TestTickRenormalization(t *testing.T) {
	r := testSolver()

	halvings := 0
	for range 60000 {
		u := r.tick()
		if u.BufferScale == 0.5 {
			halvings++
		} else {
			assert.Equal(t, float32(1), u.BufferScale)
		}
		assert.LessOrEqual(t, r.PredictedMean(), float64(accumulationMeanMax))
	}
	require.Greater(t, halvings, 0, "mean never crossed the renormalization bound")
}

// The resolved lightmap must not jump on renormalization frames: the
// buffer decay and the resolve scale have to cancel exactly. Model a
// texel that receives exactly the mean deposit every frame; its
// resolved value must stay pinned at 1.
func TestRenormalizationInvariance(t *testing.T) {
	r := testSolver()
	perFrame := energyPerTexel(len(r.scene.Quads))

	buffered := 0.0
	sawHalving := false
	for range 60000 {
		u := r.tick()
		buffered = (buffered + perFrame) * float64(u.BufferScale)
		if u.BufferScale == 0.5 {
			sawHalving = true
		}
		assert.InDelta(t, 1, buffered*float64(u.ResolveScale), 1e-6)
	}
	require.True(t, sawHalving)
}

func TestDeviceRequirements(t *testing.T) {
	req := DeviceRequirements()
	assert.Equal(t, AccumulationBufferSize(len(CornellQuads())), req.StorageBufferBindingSize)
	assert.Equal(t, uint32(shaders.PhotonsPerWorkgroup), req.ComputeInvocations)
	assert.Equal(t, uint32(19), req.TextureArrayLayers)
}
