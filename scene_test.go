package cornell

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/softglow/cornell/shaders"
)

const geomEpsilon = 1e-5

func TestCornellQuads(t *testing.T) {
	quads := CornellQuads()

	// Three boxes of six faces plus the light.
	assert.Len(t, quads, 19)

	light := quads[len(quads)-1]
	assert.Equal(t, float32(5), light.Emissive)
	assert.InDelta(t, -1, light.Normal().Y(), geomEpsilon, "light must face down")
	for _, q := range quads[:len(quads)-1] {
		assert.Zero(t, q.Emissive)
	}
}

func TestQuadBasisOrthogonality(t *testing.T) {
	for i, q := range CornellQuads() {
		n := q.Normal()
		assert.InDelta(t, 0, q.Right.Dot(q.Up), geomEpsilon, "quad %d", i)
		assert.InDelta(t, 0, n.Dot(q.Right), geomEpsilon, "quad %d", i)
		assert.InDelta(t, 0, n.Dot(q.Up), geomEpsilon, "quad %d", i)
		assert.InDelta(t, 1, n.Len(), geomEpsilon, "quad %d", i)
	}
}

func TestRoomFacesInward(t *testing.T) {
	quads := CornellQuads()
	center := mgl32.Vec3{0, 5, 0}
	for i, q := range quads[:6] {
		toCenter := center.Sub(q.Center)
		assert.Greater(t, q.Normal().Dot(toCenter), float32(0), "room face %d must face the interior", i)
	}
	// The blocks are convex; their faces point away from their box
	// centers.
	tall := mgl32.Vec3{-2.4, 3, -2.4}
	for i, q := range quads[6:12] {
		away := q.Center.Sub(tall)
		assert.Greater(t, q.Normal().Dot(away), float32(0), "tall block face %d must face outward", i)
	}
}

// uv mirrors the projection the shaders perform: dot the homogeneous
// point against the reciprocal basis rows, then remap to [0, 1].
func uv(u quadUniform, p mgl32.Vec3) (float32, float32) {
	h := mgl32.Vec4{p.X(), p.Y(), p.Z(), 1}
	a := h.Dot(mgl32.Vec4(u.Right))
	b := h.Dot(mgl32.Vec4(u.Up))
	return a*0.5 + 0.5, b*0.5 + 0.5
}

func TestQuadUniformProjection(t *testing.T) {
	for i, q := range CornellQuads() {
		u := q.uniform()

		cu, cv := uv(u, q.Center)
		assert.InDelta(t, 0.5, cu, geomEpsilon, "quad %d center", i)
		assert.InDelta(t, 0.5, cv, geomEpsilon, "quad %d center", i)

		corner := q.Center.Add(q.Right).Add(q.Up)
		au, av := uv(u, corner)
		assert.InDelta(t, 1, au, geomEpsilon, "quad %d corner", i)
		assert.InDelta(t, 1, av, geomEpsilon, "quad %d corner", i)

		// Points on the quad satisfy its plane equation.
		h := mgl32.Vec4{corner.X(), corner.Y(), corner.Z(), 1}
		assert.InDelta(t, 0, h.Dot(mgl32.Vec4(u.Plane)), geomEpsilon, "quad %d plane", i)
	}
}

func TestQuadDegenerateBasis(t *testing.T) {
	q := Quad{
		Center: mgl32.Vec3{1, 2, 3},
		Up:     mgl32.Vec3{0, 0, 1},
	}
	assert.Equal(t, mgl32.Vec3{}, q.Normal())

	u := q.uniform()
	assert.Equal(t, [4]float32{}, u.Right)
	assert.Equal(t, [4]float32{0, 0, 0, 0}, u.Plane)
}

func TestSceneGeometry(t *testing.T) {
	quads := CornellQuads()
	vertices, indices := sceneGeometry(quads)

	assert.Len(t, vertices, len(quads)*4)
	assert.Len(t, indices, len(quads)*6)
	for _, ix := range indices {
		assert.Less(t, int(ix), len(vertices))
	}

	for qi, q := range quads {
		for vi := range 4 {
			v := vertices[qi*4+vi]
			assert.Equal(t, float32(qi), v.UV[2], "lightmap layer")
			assert.GreaterOrEqual(t, v.UV[0], float32(0))
			assert.LessOrEqual(t, v.UV[0], float32(1))

			want := q.Color.Mul(q.Emissive)
			assert.Equal(t, [3]float32{want.X(), want.Y(), want.Z()}, v.Emissive)
		}
	}
}

func TestAccumulationBufferSize(t *testing.T) {
	quads := len(CornellQuads())
	want := uint64(shaders.LightmapWidth * shaders.LightmapHeight * quads * 16)
	assert.Equal(t, want, AccumulationBufferSize(quads))
}
