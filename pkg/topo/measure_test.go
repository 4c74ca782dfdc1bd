package topo

import (
	"math"
	"testing"

	"github.com/chazu/chisel/pkg/kernel"
)

func TestCubeMeasures(t *testing.T) {
	m := unitCube()

	if got := Volume(m); math.Abs(got-1) > 1e-9 {
		t.Errorf("Volume() = %g, want 1", got)
	}
	if got := SurfaceArea(m); math.Abs(got-6) > 1e-9 {
		t.Errorf("SurfaceArea() = %g, want 6", got)
	}

	min, max := BoundingBox(m)
	if min != [3]float64{0, 0, 0} || max != [3]float64{1, 1, 1} {
		t.Errorf("BoundingBox() = %v, %v, want [0 0 0], [1 1 1]", min, max)
	}
}

func TestVolumeIsWindingInsensitive(t *testing.T) {
	m := unitCube()
	// Flip every triangle.
	for i := 0; i < len(m.TriVerts); i += 3 {
		m.TriVerts[i+1], m.TriVerts[i+2] = m.TriVerts[i+2], m.TriVerts[i+1]
	}
	if got := Volume(m); math.Abs(got-1) > 1e-9 {
		t.Errorf("Volume() on flipped cube = %g, want 1", got)
	}
}

func TestBoundingBoxEmptyMesh(t *testing.T) {
	m := &kernel.Mesh{NumProp: 3}
	min, max := BoundingBox(m)
	if min != [3]float64{} || max != [3]float64{} {
		t.Errorf("BoundingBox(empty) = %v, %v, want zeros", min, max)
	}
}

func TestTriangleGeometry(t *testing.T) {
	m := unitCube()

	tests := []struct {
		tri        int
		wantNormal [3]float64
	}{
		{0, [3]float64{0, 0, -1}},
		{2, [3]float64{0, 0, 1}},
		{4, [3]float64{0, -1, 0}},
		{6, [3]float64{0, 1, 0}},
		{8, [3]float64{-1, 0, 0}},
		{10, [3]float64{1, 0, 0}},
	}
	for _, tt := range tests {
		n := TriangleNormal(m, tt.tri)
		if math.Abs(n.X-tt.wantNormal[0]) > 1e-9 ||
			math.Abs(n.Y-tt.wantNormal[1]) > 1e-9 ||
			math.Abs(n.Z-tt.wantNormal[2]) > 1e-9 {
			t.Errorf("TriangleNormal(%d) = %+v, want %v", tt.tri, n, tt.wantNormal)
		}
		if a := TriangleArea(m, tt.tri); math.Abs(a-0.5) > 1e-9 {
			t.Errorf("TriangleArea(%d) = %g, want 0.5", tt.tri, a)
		}
	}
}

func TestTriangleNormalDegenerate(t *testing.T) {
	m := &kernel.Mesh{
		NumProp:        3,
		VertProperties: []float32{0, 0, 0, 1, 0, 0, 2, 0, 0},
		TriVerts:       []uint32{0, 1, 2},
	}
	if n := TriangleNormal(m, 0); n.X != 0 || n.Y != 0 || n.Z != 0 {
		t.Errorf("TriangleNormal(degenerate) = %+v, want zero vector", n)
	}
	if a := TriangleArea(m, 0); a != 0 {
		t.Errorf("TriangleArea(degenerate) = %g, want 0", a)
	}
}
