// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx, manifold) provide solid modeling and
// boolean operations behind this interface. The kernel abstraction
// allows swapping backends without changing the rest of the system.
//
// The kernel is trusted code: user scripts never touch it directly,
// they go through the opaque handles the sandbox runtime hands them.
package kernel

import "errors"

// ErrMeshImport is returned by FromMesh when the backend cannot
// reconstruct a solid from a triangle mesh.
var ErrMeshImport = errors.New("kernel: mesh import not supported by this backend")

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
// Implementations (sdfx, manifold) provide solid modeling behind this interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees
	Scale(s Solid, k float64) Solid        // uniform scale about the origin

	// TrimByPlane keeps the half-space behind the plane: all points p
	// with dot(p, normal) <= offset. The input solid is not mutated.
	TrimByPlane(s Solid, normal [3]float64, offset float64) Solid

	// Mesh exchange. FromMesh reconstructs a solid from a serialized
	// mesh (imported models); backends without that capability return
	// ErrMeshImport. ToMesh tessellates a solid into the transport
	// Mesh shape.
	FromMesh(m *Mesh) (Solid, error)
	ToMesh(s Solid) (*Mesh, error)
}
