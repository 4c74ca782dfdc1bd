// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"math"

	"github.com/chazu/chisel/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells int
}

// New returns a new SdfxKernel with the default tessellation resolution.
func New() *SdfxKernel {
	return &SdfxKernel{meshCells: defaultMeshCells}
}

// NewWithCells returns a kernel with a custom marching-cubes resolution.
// Lower values tessellate faster at the cost of surface fidelity.
func NewWithCells(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = defaultMeshCells
	}
	return &SdfxKernel{meshCells: cells}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given dimensions, centered at the origin.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic("sdfx.Box3D: " + err.Error())
	}
	return wrap(s)
}

// Cylinder creates a cylinder along the Z axis, centered at the origin.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic("sdfx.Cylinder3D: " + err.Error())
	}
	return wrap(s)
}

// Sphere creates a sphere centered at the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic("sdfx.Sphere3D: " + err.Error())
	}
	return wrap(s)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Scale scales a solid uniformly about the origin.
func (k *SdfxKernel) Scale(s kernel.Solid, factor float64) kernel.Solid {
	m := sdf.Scale3d(v3.Vec{X: factor, Y: factor, Z: factor})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// TrimByPlane keeps the half-space with dot(p, normal) <= offset.
// sdf.Cut3D keeps the side its normal argument points toward, so the
// normal is flipped to match the kernel contract. The plane passes
// through the point normal*offset.
func (k *SdfxKernel) TrimByPlane(s kernel.Solid, normal [3]float64, offset float64) kernel.Solid {
	n := v3.Vec{X: normal[0], Y: normal[1], Z: normal[2]}
	a := v3.Vec{X: normal[0] * offset, Y: normal[1] * offset, Z: normal[2] * offset}
	flipped := v3.Vec{X: -n.X, Y: -n.Y, Z: -n.Z}
	return wrap(sdf.Cut3D(unwrap(s), a, flipped))
}

// FromMesh is not supported: a signed distance field cannot cheaply
// ingest an arbitrary triangle mesh. Use the manifold backend for
// imported models.
func (k *SdfxKernel) FromMesh(_ *kernel.Mesh) (kernel.Solid, error) {
	return nil, kernel.ErrMeshImport
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
// Marching cubes emits a triangle soup; vertices are welded by exact
// position so that neighboring triangles share indices, which the
// adjacency index downstream depends on. The output carries a single
// run covering every triangle, since sdfx does not track per-face
// provenance.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	if numTri == 0 {
		return &kernel.Mesh{NumProp: 3}, nil
	}

	props := make([]float32, 0, numTri*3)
	indices := make([]uint32, 0, numTri*3)
	seen := make(map[[3]float32]uint32, numTri)

	for _, tri := range triangles {
		for j := 0; j < 3; j++ {
			v := tri[j]
			key := [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
			idx, ok := seen[key]
			if !ok {
				idx = uint32(len(props) / 3)
				seen[key] = idx
				props = append(props, key[0], key[1], key[2])
			}
			indices = append(indices, idx)
		}
	}

	m := &kernel.Mesh{
		NumProp:        3,
		VertProperties: props,
		TriVerts:       indices,
		Runs:           []kernel.Run{{StartTri: 0, Count: numTri, MaterialID: 0}},
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
