package cornell

import (
	"math"
	"math/rand/v2"
	"structs"
	"time"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/softglow/cornell/gpu"
)

// commonUniforms is bind group 0, binding 0 of every scene shader.
type commonUniforms struct {
	_ structs.HostLayout

	MVP    mgl32.Mat4
	InvMVP mgl32.Mat4
	Seed   [3]uint32
	Frame  uint32
}

const (
	cameraFOV    = 55
	cameraNear   = 0.1
	cameraFar    = 100
	cameraRadius = 4.4
	// Radians per second when rotation is on.
	cameraSpeed = 0.3
)

// Common owns the state every pipeline shares: the camera matrices and
// the per-frame photon seed, plus the scene's quad buffer by way of
// the Scene it wraps.
type Common struct {
	dev   *gpu.Device
	scene *Scene

	uniforms *wgpu.Buffer
	rng      *rand.Rand
	frame    uint32
	angle    float32
	aspect   float32
	center   mgl32.Vec3
}

func NewCommon(dev *gpu.Device, scene *Scene, width, height uint32) (*Common, error) {
	buf, err := dev.NewBuffer("common uniforms", uint64(unsafe.Sizeof(commonUniforms{})),
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	c := &Common{
		dev:      dev,
		scene:    scene,
		uniforms: buf,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		center:   mgl32.Vec3{0, 5, 0},
	}
	c.SetAspect(width, height)
	return c, nil
}

func (c *Common) Uniforms() *wgpu.Buffer {
	return c.uniforms
}

func (c *Common) Scene() *Scene {
	return c.scene
}

// SetAspect updates the projection for a new drawable size.
func (c *Common) SetAspect(width, height uint32) {
	if height == 0 {
		height = 1
	}
	c.aspect = float32(width) / float32(height)
}

func (c *Common) view() mgl32.Mat4 {
	eye := c.center.Add(mgl32.Vec3{
		float32(math.Sin(float64(c.angle))) * cameraRadius,
		0.6,
		float32(math.Cos(float64(c.angle))) * cameraRadius,
	})
	return mgl32.LookAtV(eye, c.center, mgl32.Vec3{0, 1, 0})
}

// Update advances the camera, reseeds the photon RNG and uploads the
// uniforms for this frame.
func (c *Common) Update(dt time.Duration, rotate bool) {
	if rotate {
		c.angle += float32(dt.Seconds()) * cameraSpeed
	}
	proj := mgl32.Perspective(mgl32.DegToRad(cameraFOV), c.aspect, cameraNear, cameraFar)
	mvp := proj.Mul4(c.view())

	u := commonUniforms{
		MVP:    mvp,
		InvMVP: mvp.Inv(),
		Seed:   [3]uint32{c.rng.Uint32(), c.rng.Uint32(), c.rng.Uint32()},
		Frame:  c.frame,
	}
	c.frame++
	if err := gpu.WriteUniform(c.dev, c.uniforms, &u); err != nil {
		c.dev.Log().Error("writing common uniforms", "err", err)
	}
}

func (c *Common) Release() {
	c.uniforms.Release()
}
