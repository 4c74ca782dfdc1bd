//go:build manifold

// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold provides
// guaranteed-manifold mesh boolean operations with face identity tracking,
// which is what populates the mesh run table and FaceID buffer used for
// per-material region selection.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/chisel/pkg/kernel"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// defaultSphereSegments is the circular resolution used for spheres.
const defaultSphereSegments = 64

// manifoldSolid wraps a C ManifoldManifold pointer and implements kernel.Solid.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

// newSolid wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel. Returns an error if the Manifold
// C library cannot be initialized.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// Box creates an axis-aligned box with the given dimensions,
// centered at the origin.
func (k *ManifoldKernel) Box(x, y, z float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cube(alloc,
		C.double(x), C.double(y), C.double(z),
		C.int(1), // center=true
	)
	return newSolid(ptr)
}

// Cylinder creates a cylinder along the Z axis with the given height,
// radius, and number of circular segments, centered at the origin.
func (k *ManifoldKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cylinder(alloc,
		C.double(height),
		C.double(radius), // radius_low
		C.double(radius), // radius_high (same = not tapered)
		C.int(segments),
		C.int(1), // center=true
	)
	return newSolid(ptr)
}

// Sphere creates a sphere centered at the origin.
func (k *ManifoldKernel) Sphere(radius float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_sphere(alloc, C.double(radius), C.int(defaultSphereSegments))
	return newSolid(ptr)
}

// Union returns the boolean union of two solids.
func (k *ManifoldKernel) Union(a, b kernel.Solid) kernel.Solid {
	sa := a.(*manifoldSolid)
	sb := b.(*manifoldSolid)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_union(alloc, sa.ptr, sb.ptr)
	return newSolid(ptr)
}

// Difference returns the boolean difference (a minus b).
func (k *ManifoldKernel) Difference(a, b kernel.Solid) kernel.Solid {
	sa := a.(*manifoldSolid)
	sb := b.(*manifoldSolid)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_difference(alloc, sa.ptr, sb.ptr)
	return newSolid(ptr)
}

// Intersection returns the boolean intersection of two solids.
func (k *ManifoldKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	sa := a.(*manifoldSolid)
	sb := b.(*manifoldSolid)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_intersection(alloc, sa.ptr, sb.ptr)
	return newSolid(ptr)
}

// Translate moves the solid by (x, y, z).
func (k *ManifoldKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ms := s.(*manifoldSolid)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_translate(alloc, ms.ptr,
		C.double(x), C.double(y), C.double(z),
	)
	return newSolid(ptr)
}

// Rotate rotates the solid by Euler angles (in degrees) around the X, Y, Z axes.
func (k *ManifoldKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ms := s.(*manifoldSolid)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_rotate(alloc, ms.ptr,
		C.double(x), C.double(y), C.double(z),
	)
	return newSolid(ptr)
}

// Scale scales the solid uniformly about the origin.
func (k *ManifoldKernel) Scale(s kernel.Solid, factor float64) kernel.Solid {
	ms := s.(*manifoldSolid)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_scale(alloc, ms.ptr,
		C.double(factor), C.double(factor), C.double(factor),
	)
	return newSolid(ptr)
}

// TrimByPlane keeps the half-space with dot(p, normal) <= offset.
// manifold_trim_by_plane keeps the side the normal points toward, so
// the arguments are negated to match the kernel contract.
func (k *ManifoldKernel) TrimByPlane(s kernel.Solid, normal [3]float64, offset float64) kernel.Solid {
	ms := s.(*manifoldSolid)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_trim_by_plane(alloc, ms.ptr,
		C.double(-normal[0]), C.double(-normal[1]), C.double(-normal[2]),
		C.double(-offset),
	)
	return newSolid(ptr)
}

// FromMesh reconstructs a solid from a serialized mesh. The mesh must
// describe a closed, manifold surface; Manifold rejects anything else.
func (k *ManifoldKernel) FromMesh(m *kernel.Mesh) (kernel.Solid, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.IsEmpty() {
		return nil, fmt.Errorf("manifold: cannot import an empty mesh")
	}

	numVert := m.VertexCount()
	numTri := m.TriangleCount()

	meshAlloc := C.manifold_alloc_meshgl()
	meshGL := C.manifold_meshgl(meshAlloc,
		(*C.float)(unsafe.Pointer(&m.VertProperties[0])),
		C.size_t(numVert),
		C.size_t(m.NumProp),
		(*C.uint32_t)(unsafe.Pointer(&m.TriVerts[0])),
		C.size_t(numTri),
	)
	defer C.manifold_delete_meshgl(meshGL)

	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_of_meshgl(alloc, meshGL)

	status := C.manifold_status(ptr)
	if status != C.MANIFOLD_NO_ERROR {
		C.manifold_delete_manifold(ptr)
		return nil, fmt.Errorf("manifold: mesh import failed with status %d", int(status))
	}
	return newSolid(ptr), nil
}

// ToMesh extracts a triangle mesh from the solid using Manifold's MeshGL
// format, carrying the vertex property buffer through unchanged and
// translating MeshGL's runIndex/runOriginalID arrays into the transport
// run table.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ms := s.(*manifoldSolid)

	meshAlloc := C.manifold_alloc_meshgl()
	meshGL := C.manifold_get_meshgl(meshAlloc, ms.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))

	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{NumProp: 3}, nil
	}

	numProp := int(C.manifold_meshgl_num_prop(meshGL))

	props := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&props[0])),
		meshGL,
	)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	mesh := &kernel.Mesh{
		NumProp:        numProp,
		VertProperties: props,
		TriVerts:       indices,
	}

	// Per-triangle face ids, when Manifold tracked them.
	if n := int(C.manifold_meshgl_face_id_length(meshGL)); n == numTri {
		faceID := make([]uint32, n)
		C.manifold_meshgl_face_id(
			(*C.uint32_t)(unsafe.Pointer(&faceID[0])),
			meshGL,
		)
		mesh.FaceID = faceID
	}

	// runIndex holds numRun+1 triangle-vertex offsets; runOriginalID
	// holds the originating input id for each run.
	if n := int(C.manifold_meshgl_run_index_length(meshGL)); n >= 2 {
		runIndex := make([]uint32, n)
		C.manifold_meshgl_run_index(
			(*C.uint32_t)(unsafe.Pointer(&runIndex[0])),
			meshGL,
		)
		origID := make([]uint32, n-1)
		if int(C.manifold_meshgl_run_original_id_length(meshGL)) == n-1 {
			C.manifold_meshgl_run_original_id(
				(*C.uint32_t)(unsafe.Pointer(&origID[0])),
				meshGL,
			)
		}
		runs := make([]kernel.Run, 0, n-1)
		for i := 0; i+1 < n; i++ {
			start := int(runIndex[i]) / 3
			end := int(runIndex[i+1]) / 3
			if end <= start {
				continue
			}
			runs = append(runs, kernel.Run{
				StartTri:   start,
				Count:      end - start,
				MaterialID: origID[i],
			})
		}
		mesh.Runs = runs
	} else {
		mesh.Runs = []kernel.Run{{StartTri: 0, Count: numTri, MaterialID: 0}}
	}

	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("manifold: extracted mesh invalid: %w", err)
	}
	return mesh, nil
}
