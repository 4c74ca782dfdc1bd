package kernel

import "fmt"

// Run marks a contiguous range of triangles that share one material /
// origin id. Backends that track face provenance (manifold) emit one
// run per original input; backends that don't (sdfx) emit a single run
// covering the whole mesh.
type Run struct {
	StartTri   int    `json:"startTri"`
	Count      int    `json:"count"`
	MaterialID uint32 `json:"materialId"`
}

// Mesh is the transport triangle-mesh shape crossing the host/runtime
// boundary and handed to the renderer. Vertex data is a flat property
// buffer with NumProp floats per vertex; the first three properties are
// always position (x, y, z). Extra properties (normals, UVs) follow
// when the backend provides them.
type Mesh struct {
	NumProp        int       `json:"numProp"`
	VertProperties []float32 `json:"vertProperties"` // NumProp floats per vertex
	TriVerts       []uint32  `json:"triVerts"`       // 3 vertex indices per triangle
	FaceID         []uint32  `json:"faceId,omitempty"`
	Runs           []Run     `json:"runs,omitempty"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	if m.NumProp <= 0 {
		return 0
	}
	return len(m.VertProperties) / m.NumProp
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.TriVerts) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.VertProperties) == 0
}

// Position returns the position of vertex v.
func (m *Mesh) Position(v int) [3]float64 {
	base := v * m.NumProp
	return [3]float64{
		float64(m.VertProperties[base]),
		float64(m.VertProperties[base+1]),
		float64(m.VertProperties[base+2]),
	}
}

// TriangleVertices returns the three vertex indices of triangle t.
func (m *Mesh) TriangleVertices(t int) (a, b, c int) {
	return int(m.TriVerts[t*3]), int(m.TriVerts[t*3+1]), int(m.TriVerts[t*3+2])
}

// RunOf returns the index of the run containing triangle t, or -1 if
// the mesh carries no run table.
func (m *Mesh) RunOf(t int) int {
	for i, r := range m.Runs {
		if t >= r.StartTri && t < r.StartTri+r.Count {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants of the mesh: the index
// buffer length is a multiple of 3, every index is in range, and the
// run table (if present) is contiguous and covers every triangle.
func (m *Mesh) Validate() error {
	if m.IsEmpty() {
		if len(m.TriVerts) != 0 {
			return fmt.Errorf("mesh: %d indices but no vertices", len(m.TriVerts))
		}
		return nil
	}
	if m.NumProp < 3 {
		return fmt.Errorf("mesh: NumProp = %d, want >= 3", m.NumProp)
	}
	if len(m.VertProperties)%m.NumProp != 0 {
		return fmt.Errorf("mesh: property buffer length %d is not a multiple of NumProp %d",
			len(m.VertProperties), m.NumProp)
	}
	if len(m.TriVerts)%3 != 0 {
		return fmt.Errorf("mesh: index buffer length %d is not a multiple of 3", len(m.TriVerts))
	}
	nv := uint32(m.VertexCount())
	for i, idx := range m.TriVerts {
		if idx >= nv {
			return fmt.Errorf("mesh: index %d at position %d out of range (%d vertices)", idx, i, nv)
		}
	}
	if len(m.FaceID) != 0 && len(m.FaceID) != m.TriangleCount() {
		return fmt.Errorf("mesh: %d face ids for %d triangles", len(m.FaceID), m.TriangleCount())
	}
	if len(m.Runs) > 0 {
		next := 0
		for i, r := range m.Runs {
			if r.StartTri != next || r.Count < 0 {
				return fmt.Errorf("mesh: run %d starts at %d, want %d", i, r.StartTri, next)
			}
			next += r.Count
		}
		if next != m.TriangleCount() {
			return fmt.Errorf("mesh: runs cover %d triangles, want %d", next, m.TriangleCount())
		}
	}
	return nil
}
