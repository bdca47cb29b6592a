// Package cornell is a progressive-lightmap Cornell box demo. A
// compute pass fires photons from the ceiling light every frame and
// accumulates their bounced energy into a per-quad lightmap; two
// interchangeable renderers, a rasterizer and a compute raytracer,
// shade the scene from that lightmap and can be flipped between at
// runtime to compare their output.
package cornell

import "fmt"

// Mode selects which renderer shades the scene.
type Mode int

const (
	ModeRasterizer Mode = iota
	ModeRaytracer
)

func (m Mode) String() string {
	switch m {
	case ModeRasterizer:
		return "rasterizer"
	case ModeRaytracer:
		return "raytracer"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a renderer name as spelled by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "rasterizer":
		return ModeRasterizer, nil
	case "raytracer":
		return ModeRaytracer, nil
	default:
		return 0, fmt.Errorf("unknown renderer %q", s)
	}
}

// Config configures a Demo.
type Config struct {
	Width  uint32
	Height uint32
	// Mode is the renderer to start with.
	Mode Mode
	// Rotate spins the camera around the scene.
	Rotate bool
}
