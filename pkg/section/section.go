// Package section drives the cross-section view: a clipping plane
// applied to the cached solid of the last successful execution. The
// plane is re-applied to the original solid on every change, so moving
// the plane back and forth never accumulates error.
package section

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/chazu/chisel/pkg/kernel"
	"github.com/chazu/chisel/pkg/topo"
)

// ErrNoMesh is returned when no execution has produced geometry yet.
var ErrNoMesh = errors.New("section: no mesh to section")

// Trimmer is the slice of the execution host the section engine needs.
type Trimmer interface {
	// TrimByPlane keeps dot(p, normal) <= offset of the cached solid.
	TrimByPlane(normal [3]float64, offset float64) (*kernel.Mesh, error)
	// LastMesh is the untrimmed tessellation of the cached solid.
	LastMesh() *kernel.Mesh
}

// Plane is the current section plane in implicit form:
// dot(p, Normal) = Offset, with Normal unit length.
type Plane struct {
	Normal [3]float64 `json:"normal"`
	Offset float64    `json:"offset"`
}

// Engine holds the section state for one document.
type Engine struct {
	trimmer Trimmer
	log     *zap.Logger

	mu      sync.Mutex
	enabled bool
	plane   Plane
}

// New returns a disabled section engine.
func New(trimmer Trimmer, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{trimmer: trimmer, log: log}
}

func normalize(n [3]float64) ([3]float64, error) {
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l < 1e-12 {
		return [3]float64{}, fmt.Errorf("section: zero-length plane normal")
	}
	return [3]float64{n[0] / l, n[1] / l, n[2] / l}, nil
}

// offsetRange projects the eight bounding-box corners of the mesh onto
// the (unit) normal. Offsets outside [min, max] trim to nothing or to
// the whole solid.
func offsetRange(m *kernel.Mesh, normal [3]float64) (min, max float64) {
	lo, hi := topo.BoundingBox(m)
	min, max = math.Inf(1), math.Inf(-1)
	for i := 0; i < 8; i++ {
		corner := [3]float64{lo[0], lo[1], lo[2]}
		if i&1 != 0 {
			corner[0] = hi[0]
		}
		if i&2 != 0 {
			corner[1] = hi[1]
		}
		if i&4 != 0 {
			corner[2] = hi[2]
		}
		d := corner[0]*normal[0] + corner[1]*normal[1] + corner[2]*normal[2]
		min = math.Min(min, d)
		max = math.Max(max, d)
	}
	return min, max
}

// OffsetRange reports the useful offset interval for the given normal
// against the current mesh.
func (e *Engine) OffsetRange(normal [3]float64) (min, max float64, err error) {
	n, err := normalize(normal)
	if err != nil {
		return 0, 0, err
	}
	m := e.trimmer.LastMesh()
	if m == nil || m.IsEmpty() {
		return 0, 0, ErrNoMesh
	}
	min, max = offsetRange(m, n)
	return min, max, nil
}

// Enable turns the section view on with the given plane normal. The
// offset starts at the middle of the offset range so the first view is
// never empty. Returns the trimmed mesh.
func (e *Engine) Enable(normal [3]float64) (*kernel.Mesh, error) {
	n, err := normalize(normal)
	if err != nil {
		return nil, err
	}
	m := e.trimmer.LastMesh()
	if m == nil || m.IsEmpty() {
		return nil, ErrNoMesh
	}
	min, max := offsetRange(m, n)

	e.mu.Lock()
	e.enabled = true
	e.plane = Plane{Normal: n, Offset: (min + max) / 2}
	plane := e.plane
	e.mu.Unlock()

	e.log.Debug("section enabled",
		zap.Float64s("normal", plane.Normal[:]),
		zap.Float64("offset", plane.Offset))
	return e.trimmer.TrimByPlane(plane.Normal, plane.Offset)
}

// SetNormal reorients the plane. The offset is re-centered for the new
// normal, since an offset tuned for one axis is meaningless for
// another. Returns the trimmed mesh.
func (e *Engine) SetNormal(normal [3]float64) (*kernel.Mesh, error) {
	return e.Enable(normal)
}

// SetOffset slides the plane along its normal, clamped to the offset
// range of the current mesh. Returns the trimmed mesh.
func (e *Engine) SetOffset(offset float64) (*kernel.Mesh, error) {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return nil, errors.New("section: not enabled")
	}
	n := e.plane.Normal
	e.mu.Unlock()

	m := e.trimmer.LastMesh()
	if m == nil || m.IsEmpty() {
		return nil, ErrNoMesh
	}
	min, max := offsetRange(m, n)
	clamped := math.Min(math.Max(offset, min), max)

	e.mu.Lock()
	e.plane.Offset = clamped
	e.mu.Unlock()

	return e.trimmer.TrimByPlane(n, clamped)
}

// Disable turns the section view off and returns the full mesh.
func (e *Engine) Disable() (*kernel.Mesh, error) {
	e.mu.Lock()
	e.enabled = false
	e.mu.Unlock()

	m := e.trimmer.LastMesh()
	if m == nil {
		return nil, ErrNoMesh
	}
	return m, nil
}

// Plane reports the current plane and whether sectioning is enabled.
func (e *Engine) Plane() (Plane, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plane, e.enabled
}
