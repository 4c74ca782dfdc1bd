package topo

import (
	"math"

	"github.com/chazu/chisel/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// BoundingBox returns the axis-aligned bounding box over all vertex
// positions. An empty mesh yields two zero corners.
func BoundingBox(m *kernel.Mesh) (min, max [3]float64) {
	nv := m.VertexCount()
	if nv == 0 {
		return min, max
	}
	min = m.Position(0)
	max = min
	for v := 1; v < nv; v++ {
		p := m.Position(v)
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	return min, max
}

// Volume returns the enclosed volume of a closed mesh via the
// divergence theorem: the sum of signed tetrahedron volumes spanned by
// each triangle and the origin. The result is reported as an absolute
// value, so it is winding-insensitive; it is only meaningful for
// closed surfaces.
func Volume(m *kernel.Mesh) float64 {
	var sum float64
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.TriangleVertices(t)
		va := vertexVec(m, a)
		vb := vertexVec(m, b)
		vc := vertexVec(m, c)
		sum += r3.Dot(va, r3.Cross(vb, vc))
	}
	return math.Abs(sum) / 6
}

// SurfaceArea returns the total triangle area of the mesh.
func SurfaceArea(m *kernel.Mesh) float64 {
	var sum float64
	for t := 0; t < m.TriangleCount(); t++ {
		sum += TriangleArea(m, t)
	}
	return sum
}
