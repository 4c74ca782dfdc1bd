// Package topo provides topology queries over transport meshes:
// an edge-to-triangle adjacency index, region selection by breadth-first
// traversal, and mesh measures (area, volume, bounding box).
//
// Everything here runs synchronously on the caller's goroutine against
// an already-resolved mesh; there is no I/O and no shared state.
package topo

import (
	"fmt"

	"github.com/chazu/chisel/pkg/kernel"
)

// edgeKey is a canonical undirected edge: lo < hi.
type edgeKey struct {
	lo, hi uint32
}

func canonicalEdge(a, b uint32) edgeKey {
	if a < b {
		return edgeKey{lo: a, hi: b}
	}
	return edgeKey{lo: b, hi: a}
}

// AdjacencyIndex maps each undirected edge of a mesh (or of one run of
// a mesh) to the triangles incident on it. Building is O(T); neighbor
// queries are O(1) amortized. The index is a snapshot: it must be
// rebuilt whenever the mesh changes.
type AdjacencyIndex struct {
	mesh     *kernel.Mesh
	startTri int // inclusive
	endTri   int // exclusive
	edges    map[edgeKey][]int
}

// BuildAdjacency builds an index over every triangle of the mesh.
func BuildAdjacency(m *kernel.Mesh) *AdjacencyIndex {
	return buildRange(m, 0, m.TriangleCount())
}

// BuildRunAdjacency builds an index scoped to one run of the mesh.
// Triangles outside the run are invisible to every query.
func BuildRunAdjacency(m *kernel.Mesh, run int) (*AdjacencyIndex, error) {
	if run < 0 || run >= len(m.Runs) {
		return nil, fmt.Errorf("topo: run %d out of range (%d runs)", run, len(m.Runs))
	}
	r := m.Runs[run]
	return buildRange(m, r.StartTri, r.StartTri+r.Count), nil
}

func buildRange(m *kernel.Mesh, start, end int) *AdjacencyIndex {
	ix := &AdjacencyIndex{
		mesh:     m,
		startTri: start,
		endTri:   end,
		edges:    make(map[edgeKey][]int, (end-start)*3/2),
	}
	for t := start; t < end; t++ {
		a, b, c := m.TriVerts[t*3], m.TriVerts[t*3+1], m.TriVerts[t*3+2]
		ix.edges[canonicalEdge(a, b)] = append(ix.edges[canonicalEdge(a, b)], t)
		ix.edges[canonicalEdge(b, c)] = append(ix.edges[canonicalEdge(b, c)], t)
		ix.edges[canonicalEdge(c, a)] = append(ix.edges[canonicalEdge(c, a)], t)
	}
	return ix
}

// Contains reports whether triangle t is inside the index's scope.
func (ix *AdjacencyIndex) Contains(t int) bool {
	return t >= ix.startTri && t < ix.endTri
}

// EdgeTriangles returns the triangles incident on the undirected edge
// (a, b), in build order. The returned slice is owned by the index.
func (ix *AdjacencyIndex) EdgeTriangles(a, b uint32) []int {
	return ix.edges[canonicalEdge(a, b)]
}

// Neighbors returns the triangles sharing an edge with triangle t,
// excluding t itself. Non-manifold edges contribute every incident
// triangle. A triangle may appear once per shared edge.
func (ix *AdjacencyIndex) Neighbors(t int) []int {
	if !ix.Contains(t) {
		return nil
	}
	m := ix.mesh
	a, b, c := m.TriVerts[t*3], m.TriVerts[t*3+1], m.TriVerts[t*3+2]

	var out []int
	for _, e := range [3]edgeKey{canonicalEdge(a, b), canonicalEdge(b, c), canonicalEdge(c, a)} {
		for _, other := range ix.edges[e] {
			if other != t {
				out = append(out, other)
			}
		}
	}
	return out
}
