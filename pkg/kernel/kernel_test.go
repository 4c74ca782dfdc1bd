package kernel

import "testing"

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name    string
		numProp int
		props   []float32
		want    int
	}{
		{"empty", 3, nil, 0},
		{"one vertex", 3, []float32{1, 2, 3}, 1},
		{"four vertices", 3, []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
		{"interleaved normals", 6, []float32{0, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0, 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{NumProp: tt.numProp, VertProperties: tt.props}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{TriVerts: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshPosition(t *testing.T) {
	m := &Mesh{
		NumProp:        6,
		VertProperties: []float32{1, 2, 3, 0, 0, 1, 4, 5, 6, 0, 1, 0},
	}
	if got := m.Position(1); got != [3]float64{4, 5, 6} {
		t.Errorf("Position(1) = %v, want [4 5 6]", got)
	}
}

func TestMeshRunOf(t *testing.T) {
	m := &Mesh{
		NumProp:        3,
		VertProperties: make([]float32, 9),
		TriVerts:       make([]uint32, 12),
		Runs: []Run{
			{StartTri: 0, Count: 3, MaterialID: 7},
			{StartTri: 3, Count: 1, MaterialID: 9},
		},
	}
	tests := []struct {
		tri  int
		want int
	}{
		{0, 0}, {2, 0}, {3, 1}, {4, -1},
	}
	for _, tt := range tests {
		if got := m.RunOf(tt.tri); got != tt.want {
			t.Errorf("RunOf(%d) = %d, want %d", tt.tri, got, tt.want)
		}
	}

	noRuns := &Mesh{NumProp: 3}
	if got := noRuns.RunOf(0); got != -1 {
		t.Errorf("RunOf on mesh without runs = %d, want -1", got)
	}
}

func TestMeshValidate(t *testing.T) {
	tests := []struct {
		name    string
		mesh    Mesh
		wantErr bool
	}{
		{"empty", Mesh{NumProp: 3}, false},
		{
			"valid triangle",
			Mesh{NumProp: 3, VertProperties: make([]float32, 9), TriVerts: []uint32{0, 1, 2}},
			false,
		},
		{
			"index out of range",
			Mesh{NumProp: 3, VertProperties: make([]float32, 9), TriVerts: []uint32{0, 1, 3}},
			true,
		},
		{
			"ragged index buffer",
			Mesh{NumProp: 3, VertProperties: make([]float32, 9), TriVerts: []uint32{0, 1}},
			true,
		},
		{
			"ragged property buffer",
			Mesh{NumProp: 3, VertProperties: make([]float32, 8), TriVerts: []uint32{0, 1, 2}},
			true,
		},
		{
			"runs with a gap",
			Mesh{
				NumProp:        3,
				VertProperties: make([]float32, 18),
				TriVerts:       []uint32{0, 1, 2, 3, 4, 5},
				Runs:           []Run{{StartTri: 0, Count: 1}, {StartTri: 2, Count: 1}},
			},
			true,
		},
		{
			"runs covering exactly",
			Mesh{
				NumProp:        3,
				VertProperties: make([]float32, 18),
				TriVerts:       []uint32{0, 1, 2, 3, 4, 5},
				Runs:           []Run{{StartTri: 0, Count: 1}, {StartTri: 1, Count: 1}},
			},
			false,
		},
		{
			"face id count mismatch",
			Mesh{
				NumProp:        3,
				VertProperties: make([]float32, 9),
				TriVerts:       []uint32{0, 1, 2},
				FaceID:         []uint32{0, 1},
			},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. All methods return trivial results.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) Solid {
	return &stubSolid{maxBB: [3]float64{x, y, z}}
}

func (k *stubKernel) Cylinder(height, radius float64, _ int) Solid {
	return &stubSolid{
		minBB: [3]float64{-radius, -radius, 0},
		maxBB: [3]float64{radius, radius, height},
	}
}

func (k *stubKernel) Sphere(radius float64) Solid {
	return &stubSolid{
		minBB: [3]float64{-radius, -radius, -radius},
		maxBB: [3]float64{radius, radius, radius},
	}
}

func (k *stubKernel) Union(a, _ Solid) Solid        { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid   { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }

func (k *stubKernel) Translate(s Solid, _, _, _ float64) Solid { return s }
func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid    { return s }
func (k *stubKernel) Scale(s Solid, _ float64) Solid           { return s }

func (k *stubKernel) TrimByPlane(s Solid, _ [3]float64, _ float64) Solid { return s }

func (k *stubKernel) FromMesh(_ *Mesh) (Solid, error) { return nil, ErrMeshImport }
func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error)   { return &Mesh{NumProp: 3}, nil }

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Box(10, 20, 30)
	min, max := s.BoundingBox()
	if min != [3]float64{0, 0, 0} {
		t.Errorf("Box min = %v, want [0 0 0]", min)
	}
	if max != [3]float64{10, 20, 30} {
		t.Errorf("Box max = %v, want [10 20 30]", max)
	}
}
