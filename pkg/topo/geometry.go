package topo

import (
	"math"

	"github.com/chazu/chisel/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

func vertexVec(m *kernel.Mesh, v int) r3.Vec {
	p := m.Position(v)
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

// triangleCross returns the unnormalized cross product of the triangle's
// edge vectors. Its length is twice the triangle area.
func triangleCross(m *kernel.Mesh, t int) r3.Vec {
	a, b, c := m.TriangleVertices(t)
	va := vertexVec(m, a)
	return r3.Cross(r3.Sub(vertexVec(m, b), va), r3.Sub(vertexVec(m, c), va))
}

// TriangleNormal returns the unit geometric normal of triangle t,
// following the winding order. Degenerate triangles yield the zero
// vector.
func TriangleNormal(m *kernel.Mesh, t int) r3.Vec {
	cr := triangleCross(m, t)
	n := r3.Norm(cr)
	if n < 1e-12 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, cr)
}

// TriangleArea returns the area of triangle t.
func TriangleArea(m *kernel.Mesh, t int) float64 {
	return r3.Norm(triangleCross(m, t)) / 2
}

// TriangleCentroid returns the centroid of triangle t.
func TriangleCentroid(m *kernel.Mesh, t int) r3.Vec {
	a, b, c := m.TriangleVertices(t)
	sum := r3.Add(vertexVec(m, a), r3.Add(vertexVec(m, b), vertexVec(m, c)))
	return r3.Scale(1.0/3.0, sum)
}

// angleBetween returns the angle in radians between two unit vectors,
// clamping the dot product against rounding drift.
func angleBetween(a, b r3.Vec) float64 {
	d := r3.Dot(a, b)
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d)
}
