package topo

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/chisel/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Policy selects the acceptance predicate for region growing.
type Policy int

const (
	// PolicyCoplanar accepts triangles whose geometric normal matches
	// the seed's normal within a fixed per-axis tolerance. When the
	// mesh carries a run table, the selection is scoped to the seed's
	// run; otherwise it spans the whole mesh.
	PolicyCoplanar Policy = iota

	// PolicyAngular accepts a triangle if its normal is within the
	// angular tolerance of the triangle it was reached from, letting
	// the selection flow along gently curved surfaces.
	PolicyAngular

	// PolicyConnected accepts every reachable triangle: the whole
	// connected component of the seed.
	PolicyConnected
)

func (p Policy) String() string {
	switch p {
	case PolicyCoplanar:
		return "coplanar"
	case PolicyAngular:
		return "angular"
	case PolicyConnected:
		return "connected"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Default tolerances. The per-axis normal tolerance is deliberately
// tight: coplanar means coplanar, not nearly so. The angular default
// of 3 degrees tracks fillets and shallow curvature without bleeding
// around hard edges.
const (
	DefaultNormalTolerance = 1e-3
	DefaultAngleTolerance  = 3 * math.Pi / 180
)

// Options tunes the selection predicates. Zero values select defaults.
type Options struct {
	NormalTolerance float64 // per-axis, PolicyCoplanar
	AngleTolerance  float64 // radians, PolicyAngular
}

// Selection is the aggregate result of one region-growing query.
// Triangles is sorted ascending. Centroid is area-weighted over the
// member triangles; zero-area triangles contribute to neither the
// numerator nor the denominator.
type Selection struct {
	Triangles     []int
	Centroid      r3.Vec
	Normal        r3.Vec // the seed triangle's normal
	TotalArea     float64
	TriangleCount int
}

// Contains reports whether triangle t is part of the selection.
func (s *Selection) Contains(t int) bool {
	i := sort.SearchInts(s.Triangles, t)
	return i < len(s.Triangles) && s.Triangles[i] == t
}

// Select grows a region from the seed triangle over the adjacency
// index, accepting candidates according to the policy. One generic
// breadth-first traversal serves all three policies; only the
// acceptance predicate differs.
func Select(m *kernel.Mesh, ix *AdjacencyIndex, seed int, policy Policy, opt Options) (*Selection, error) {
	if seed < 0 || seed >= m.TriangleCount() {
		return nil, fmt.Errorf("topo: seed triangle %d out of range (%d triangles)", seed, m.TriangleCount())
	}
	if !ix.Contains(seed) {
		return nil, fmt.Errorf("topo: seed triangle %d outside the index scope", seed)
	}

	normTol := opt.NormalTolerance
	if normTol <= 0 {
		normTol = DefaultNormalTolerance
	}
	angleTol := opt.AngleTolerance
	if angleTol <= 0 {
		angleTol = DefaultAngleTolerance
	}

	seedNormal := TriangleNormal(m, seed)
	seedRun := m.RunOf(seed)

	// accept reports whether cand may join the region when reached
	// from triangle from.
	var accept func(cand, from int) bool
	switch policy {
	case PolicyCoplanar:
		accept = func(cand, _ int) bool {
			if seedRun >= 0 && m.RunOf(cand) != seedRun {
				return false
			}
			n := TriangleNormal(m, cand)
			return math.Abs(n.X-seedNormal.X) <= normTol &&
				math.Abs(n.Y-seedNormal.Y) <= normTol &&
				math.Abs(n.Z-seedNormal.Z) <= normTol
		}
	case PolicyAngular:
		accept = func(cand, from int) bool {
			return angleBetween(TriangleNormal(m, cand), TriangleNormal(m, from)) <= angleTol
		}
	case PolicyConnected:
		accept = func(_, _ int) bool { return true }
	default:
		return nil, fmt.Errorf("topo: unknown policy %v", policy)
	}

	// accepted doubles as the visited set. A rejected candidate is not
	// marked: under PolicyAngular it may still qualify when reached
	// from a different neighbor. Each triangle has at most three
	// incident edges, so re-testing stays bounded.
	accepted := map[int]bool{seed: true}
	queue := []int{seed}
	members := []int{seed}

	for len(queue) > 0 {
		from := queue[0]
		queue = queue[1:]

		for _, cand := range ix.Neighbors(from) {
			if accepted[cand] {
				continue
			}
			if !accept(cand, from) {
				continue
			}
			accepted[cand] = true
			members = append(members, cand)
			queue = append(queue, cand)
		}
	}

	sort.Ints(members)
	return aggregate(m, members, seedNormal), nil
}

func aggregate(m *kernel.Mesh, members []int, seedNormal r3.Vec) *Selection {
	var (
		weighted  r3.Vec
		totalArea float64
	)
	for _, t := range members {
		area := TriangleArea(m, t)
		if area <= 0 {
			continue
		}
		weighted = r3.Add(weighted, r3.Scale(area, TriangleCentroid(m, t)))
		totalArea += area
	}

	sel := &Selection{
		Triangles:     members,
		Normal:        seedNormal,
		TotalArea:     totalArea,
		TriangleCount: len(members),
	}
	if totalArea > 0 {
		sel.Centroid = r3.Scale(1/totalArea, weighted)
	}
	return sel
}
