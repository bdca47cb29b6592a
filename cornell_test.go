package cornell

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestModeRoundTrip(t *testing.T) {
	for _, mode := range []Mode{ModeRasterizer, ModeRaytracer} {
		parsed, err := ParseMode(mode.String())
		assert.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}

	_, err := ParseMode("pathtracer")
	assert.Error(t, err)
}

func TestUniformLayouts(t *testing.T) {
	// The shaders read these structs byte for byte; sizes follow WGSL
	// struct layout rules.
	assert.Equal(t, uintptr(144), unsafe.Sizeof(commonUniforms{}))
	assert.Equal(t, uintptr(32), unsafe.Sizeof(radiosityUniforms{}))
	assert.Equal(t, uintptr(64), unsafe.Sizeof(quadUniform{}))
	assert.Equal(t, uintptr(40), unsafe.Sizeof(sceneVertex{}))
}
