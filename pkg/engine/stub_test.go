package engine

import (
	"errors"

	"github.com/chazu/chisel/pkg/kernel"
)

// stubSolid / stubKernel give the engine tests deterministic geometry
// without the cost of a real kernel.
type stubSolid struct {
	min, max [3]float64
	trimmed  bool
	imported bool
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) { return s.min, s.max }

type stubKernel struct {
	failImports bool
}

func (k *stubKernel) Box(x, y, z float64) kernel.Solid {
	return &stubSolid{max: [3]float64{x, y, z}}
}

func (k *stubKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	return &stubSolid{min: [3]float64{-radius, -radius, 0}, max: [3]float64{radius, radius, height}}
}

func (k *stubKernel) Sphere(radius float64) kernel.Solid {
	return &stubSolid{min: [3]float64{-radius, -radius, -radius}, max: [3]float64{radius, radius, radius}}
}

func (k *stubKernel) Union(a, b kernel.Solid) kernel.Solid        { return a }
func (k *stubKernel) Difference(a, b kernel.Solid) kernel.Solid   { return a }
func (k *stubKernel) Intersection(a, b kernel.Solid) kernel.Solid { return a }

func (k *stubKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid { return s }
func (k *stubKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid    { return s }
func (k *stubKernel) Scale(s kernel.Solid, f float64) kernel.Solid           { return s }

func (k *stubKernel) TrimByPlane(s kernel.Solid, normal [3]float64, offset float64) kernel.Solid {
	orig := s.(*stubSolid)
	return &stubSolid{min: orig.min, max: orig.max, trimmed: true}
}

func (k *stubKernel) FromMesh(m *kernel.Mesh) (kernel.Solid, error) {
	if k.failImports {
		return nil, kernel.ErrMeshImport
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &stubSolid{imported: true}, nil
}

func (k *stubKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	if s.(*stubSolid).trimmed {
		return squareMesh(), nil
	}
	return cubeMesh(), nil
}

var errKernelBroken = errors.New("kernel failed to load")

func stubFactory() (kernel.Kernel, error)   { return &stubKernel{}, nil }
func brokenFactory() (kernel.Kernel, error) { return nil, errKernelBroken }

// cubeMesh is a welded unit cube: 8 vertices, 12 triangles, one run.
func cubeMesh() *kernel.Mesh {
	return &kernel.Mesh{
		NumProp: 3,
		VertProperties: []float32{
			0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0,
			0, 0, 1, 1, 0, 1, 1, 1, 1, 0, 1, 1,
		},
		TriVerts: []uint32{
			0, 2, 1, 0, 3, 2,
			4, 5, 6, 4, 6, 7,
			0, 1, 5, 0, 5, 4,
			2, 3, 7, 2, 7, 6,
			0, 4, 7, 0, 7, 3,
			1, 2, 6, 1, 6, 5,
		},
		Runs: []kernel.Run{{StartTri: 0, Count: 12}},
	}
}

// squareMesh stands in for a trimmed result: visibly smaller than the
// cube so tests can tell the two apart.
func squareMesh() *kernel.Mesh {
	return &kernel.Mesh{
		NumProp:        3,
		VertProperties: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		TriVerts:       []uint32{0, 1, 2, 0, 2, 3},
	}
}
