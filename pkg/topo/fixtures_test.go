package topo

import (
	"math"

	"github.com/chazu/chisel/pkg/kernel"
)

// unitCube returns a unit cube [0,1]^3 with 8 shared vertices and 12
// triangles, two per face, outward winding. Triangle layout:
//
//	0,1   bottom (z=0)   2,3   top   (z=1)
//	4,5   front  (y=0)   6,7   back  (y=1)
//	8,9   left   (x=0)   10,11 right (x=1)
func unitCube() *kernel.Mesh {
	return &kernel.Mesh{
		NumProp: 3,
		VertProperties: []float32{
			0, 0, 0, // 0
			1, 0, 0, // 1
			1, 1, 0, // 2
			0, 1, 0, // 3
			0, 0, 1, // 4
			1, 0, 1, // 5
			1, 1, 1, // 6
			0, 1, 1, // 7
		},
		TriVerts: []uint32{
			0, 2, 1, 0, 3, 2, // bottom
			4, 5, 6, 4, 6, 7, // top
			0, 1, 5, 0, 5, 4, // front
			2, 3, 7, 2, 7, 6, // back
			0, 4, 7, 0, 7, 3, // left
			1, 2, 6, 1, 6, 5, // right
		},
	}
}

// bentStrip returns an extruded polyline of n quad segments where each
// segment tilts a further stepDeg degrees around the Y axis. Adjacent
// quads differ by stepDeg in normal direction; the two triangles of a
// single quad are exactly coplanar. 2n triangles total.
func bentStrip(n int, stepDeg float64) *kernel.Mesh {
	step := stepDeg * math.Pi / 180

	verts := make([]float32, 0, (n+1)*2*3)
	px, pz := 0.0, 0.0
	for i := 0; i <= n; i++ {
		verts = append(verts,
			float32(px), 0, float32(pz),
			float32(px), 1, float32(pz),
		)
		theta := float64(i) * step
		px += math.Cos(theta)
		pz += math.Sin(theta)
	}

	tris := make([]uint32, 0, n*6)
	for i := 0; i < n; i++ {
		b0 := uint32(i * 2) // bottom of segment start
		t0 := b0 + 1
		b1 := b0 + 2
		t1 := b0 + 3
		tris = append(tris,
			b0, b1, t1,
			b0, t1, t0,
		)
	}

	return &kernel.Mesh{
		NumProp:        3,
		VertProperties: verts,
		TriVerts:       tris,
	}
}
