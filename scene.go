package cornell

import (
	"fmt"
	"structs"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/softglow/cornell/gpu"
)

// Quad is a rectangle, the only primitive of the scene. Center is its
// midpoint; Right and Up are half-extent vectors spanning its surface.
// Its normal is the normalized cross product of Right and Up.
type Quad struct {
	Center   mgl32.Vec3
	Right    mgl32.Vec3
	Up       mgl32.Vec3
	Color    mgl32.Vec3
	Emissive float32
}

// Normal returns the quad's unit normal, or the zero vector for a
// degenerate basis.
func (q *Quad) Normal() mgl32.Vec3 {
	n := q.Right.Cross(q.Up)
	if l := n.Len(); l > 0 {
		return n.Mul(1 / l)
	}
	return mgl32.Vec3{}
}

// reciprocal returns v scaled such that dotting it with v yields 1, or
// the zero vector when v is zero.
func reciprocal(v mgl32.Vec3) mgl32.Vec3 {
	d := v.Dot(v)
	if d == 0 {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / d)
}

// Box describes an axis-aligned box, optionally rotated about Y, that
// expands into six quads. A concave box has its faces turned inward.
type Box struct {
	Center mgl32.Vec3
	Width  float32
	Height float32
	Depth  float32
	// Rotation about the Y axis, in radians.
	Rotation float32
	// Colors holds one color per face, in +X, -X, +Y, -Y, +Z, -Z
	// order.
	Colors  [6]mgl32.Vec3
	Concave bool
}

// UniformColors fills a face color array with a single color.
func UniformColors(c mgl32.Vec3) [6]mgl32.Vec3 {
	return [6]mgl32.Vec3{c, c, c, c, c, c}
}

// Quads expands the box into its six faces. Concavity flips the sign
// of each face's right basis, which flips the normals inward.
func (b Box) Quads() []Quad {
	rot := mgl32.Rotate3DY(b.Rotation)
	x := rot.Mul3x1(mgl32.Vec3{b.Width / 2, 0, 0})
	y := mgl32.Vec3{0, b.Height / 2, 0}
	z := rot.Mul3x1(mgl32.Vec3{0, 0, b.Depth / 2})
	sign := float32(1)
	if b.Concave {
		sign = -1
	}

	faces := [6]struct {
		offset, right, up mgl32.Vec3
	}{
		{x, z.Mul(-1), y},
		{x.Mul(-1), z, y},
		{y, x, z.Mul(-1)},
		{y.Mul(-1), x, z},
		{z, x, y},
		{z.Mul(-1), x.Mul(-1), y},
	}
	quads := make([]Quad, 6)
	for i, f := range faces {
		quads[i] = Quad{
			Center: b.Center.Add(f.offset),
			Right:  f.right.Mul(sign),
			Up:     f.up,
			Color:  b.Colors[i],
		}
	}
	return quads
}

var (
	cornellWhite = mgl32.Vec3{0.725, 0.71, 0.68}
	cornellRed   = mgl32.Vec3{0.63, 0.065, 0.05}
	cornellGreen = mgl32.Vec3{0.14, 0.45, 0.091}
)

// CornellQuads returns the classic Cornell box: a concave room with a
// red and a green wall, two white blocks, and a ceiling light. The
// light is always the last quad.
func CornellQuads() []Quad {
	room := Box{
		Center:  mgl32.Vec3{0, 5, 0},
		Width:   10,
		Height:  10,
		Depth:   10,
		Concave: true,
		Colors:  UniformColors(cornellWhite),
	}
	room.Colors[0] = cornellGreen
	room.Colors[1] = cornellRed

	tall := Box{
		Center:   mgl32.Vec3{-2.4, 3, -2.4},
		Width:    3,
		Height:   6,
		Depth:    3,
		Rotation: 0.3,
		Colors:   UniformColors(cornellWhite),
	}
	short := Box{
		Center:   mgl32.Vec3{2.4, 1.5, 2.4},
		Width:    3,
		Height:   3,
		Depth:    3,
		Rotation: -0.25,
		Colors:   UniformColors(cornellWhite),
	}
	light := Quad{
		Center:   mgl32.Vec3{0, 9.95, 0},
		Right:    mgl32.Vec3{1.6, 0, 0},
		Up:       mgl32.Vec3{0, 0, 1.2},
		Color:    mgl32.Vec3{1, 1, 1},
		Emissive: 5,
	}

	var quads []Quad
	quads = append(quads, room.Quads()...)
	quads = append(quads, tall.Quads()...)
	quads = append(quads, short.Quads()...)
	quads = append(quads, light)
	return quads
}

// quadUniform is a Quad in the layout the shaders read. plane holds
// the quad's plane equation; right and up are the reciprocal basis
// vectors with a projection offset in w.
type quadUniform struct {
	_ structs.HostLayout

	Plane    [4]float32
	Right    [4]float32
	Up       [4]float32
	Color    [3]float32
	Emissive float32
}

func (q *Quad) uniform() quadUniform {
	n := q.Normal()
	invRight := reciprocal(q.Right)
	invUp := reciprocal(q.Up)
	return quadUniform{
		Plane:    [4]float32{n.X(), n.Y(), n.Z(), -n.Dot(q.Center)},
		Right:    [4]float32{invRight.X(), invRight.Y(), invRight.Z(), -invRight.Dot(q.Center)},
		Up:       [4]float32{invUp.X(), invUp.Y(), invUp.Z(), -invUp.Dot(q.Center)},
		Color:    [3]float32{q.Color.X(), q.Color.Y(), q.Color.Z()},
		Emissive: q.Emissive,
	}
}

func quadUniforms(quads []Quad) []quadUniform {
	out := make([]quadUniform, len(quads))
	for i := range quads {
		out[i] = quads[i].uniform()
	}
	return out
}

// sceneVertex is the rasterizer's vertex layout. UV's z component is
// the quad's lightmap layer.
type sceneVertex struct {
	_ structs.HostLayout

	Position [4]float32
	UV       [3]float32
	Emissive [3]float32
}

var vertexCorners = [4][2]float32{
	{-1, -1},
	{1, -1},
	{1, 1},
	{-1, 1},
}

// sceneGeometry expands the quads into four vertices and six indices
// each, for indexed triangle-list drawing.
func sceneGeometry(quads []Quad) ([]sceneVertex, []uint16) {
	vertices := make([]sceneVertex, 0, len(quads)*4)
	indices := make([]uint16, 0, len(quads)*6)
	for qi, q := range quads {
		emissive := q.Color.Mul(q.Emissive)
		for _, c := range vertexCorners {
			pos := q.Center.Add(q.Right.Mul(c[0])).Add(q.Up.Mul(c[1]))
			vertices = append(vertices, sceneVertex{
				Position: [4]float32{pos.X(), pos.Y(), pos.Z(), 1},
				UV:       [3]float32{c[0]*0.5 + 0.5, c[1]*0.5 + 0.5, float32(qi)},
				Emissive: [3]float32{emissive.X(), emissive.Y(), emissive.Z()},
			})
		}
		base := uint16(qi * 4)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// Scene is the quad list in its CPU and GPU forms. The GPU buffers are
// uploaded once; the scene is static.
type Scene struct {
	Quads []Quad
	// Light indexes the emissive quad photons are traced from.
	Light int

	QuadBuffer   *wgpu.Buffer
	VertexBuffer *wgpu.Buffer
	IndexBuffer  *wgpu.Buffer
	indexCount   uint32
}

func NewScene(dev *gpu.Device, quads []Quad, light int) (*Scene, error) {
	if light < 0 || light >= len(quads) {
		return nil, fmt.Errorf("light quad %d out of range", light)
	}

	quadBuf, err := gpu.NewBufferInit(dev, "scene quads", quadUniforms(quads), wgpu.BufferUsageStorage)
	if err != nil {
		return nil, err
	}
	vertices, indices := sceneGeometry(quads)
	vertexBuf, err := gpu.NewBufferInit(dev, "scene vertices", vertices, wgpu.BufferUsageVertex)
	if err != nil {
		quadBuf.Release()
		return nil, err
	}
	indexBuf, err := gpu.NewBufferInit(dev, "scene indices", indices, wgpu.BufferUsageIndex)
	if err != nil {
		quadBuf.Release()
		vertexBuf.Release()
		return nil, err
	}

	return &Scene{
		Quads:        quads,
		Light:        light,
		QuadBuffer:   quadBuf,
		VertexBuffer: vertexBuf,
		IndexBuffer:  indexBuf,
		indexCount:   uint32(len(indices)),
	}, nil
}

func (s *Scene) IndexCount() uint32 {
	return s.indexCount
}

// VertexLayout describes the vertex buffer to the rasterizer pipeline.
func (s *Scene) VertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(unsafe.Sizeof(sceneVertex{})),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x4, Offset: uint64(unsafe.Offsetof(sceneVertex{}.Position)), ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: uint64(unsafe.Offsetof(sceneVertex{}.UV)), ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x3, Offset: uint64(unsafe.Offsetof(sceneVertex{}.Emissive)), ShaderLocation: 2},
		},
	}
}

func (s *Scene) Release() {
	s.QuadBuffer.Release()
	s.VertexBuffer.Release()
	s.IndexBuffer.Release()
}
