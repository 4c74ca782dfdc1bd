package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chazu/chisel/pkg/engine"
	"github.com/chazu/chisel/pkg/kernel"
	"github.com/chazu/chisel/pkg/kernel/sdfx"
	"github.com/chazu/chisel/pkg/section"
	"github.com/chazu/chisel/pkg/topo"
	"github.com/chazu/chisel/pkg/validate"
)

// App is the Wails backend. It exposes methods to the frontend via
// bindings: script execution, region selection and the section view.
type App struct {
	ctx     context.Context
	log     *zap.Logger
	host    *engine.Host
	section *section.Engine

	mu      sync.Mutex
	imports map[string]*kernel.Mesh
	// Adjacency is rebuilt lazily per mesh; selection queries between
	// executions reuse it.
	adjMesh *kernel.Mesh
	adj     *topo.AdjacencyIndex
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
// It mirrors the kernel transport mesh: interleaved vertex properties
// with positions first, plus flat triangle indices.
type MeshData struct {
	NumProp        int          `json:"numProp"`
	VertProperties []float32    `json:"vertProperties"`
	TriVerts       []uint32     `json:"triVerts"`
	FaceID         []uint32     `json:"faceId,omitempty"`
	Runs           []kernel.Run `json:"runs,omitempty"`
	TriangleCount  int          `json:"triangleCount"`
}

// ErrorData is a JSON-serializable execution or validation error.
type ErrorData struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
}

// ExecuteResult is the full result of one Execute call.
type ExecuteResult struct {
	Mesh   *MeshData   `json:"mesh"`
	Errors []ErrorData `json:"errors"`
}

// SelectionData is the JSON-serializable region-selection result.
type SelectionData struct {
	Triangles     []int      `json:"triangles"`
	Centroid      [3]float64 `json:"centroid"`
	Normal        [3]float64 `json:"normal"`
	TotalArea     float64    `json:"totalArea"`
	TriangleCount int        `json:"triangleCount"`
}

// NewApp creates an App backed by the sdfx kernel.
func NewApp(cfg engine.Config, log *zap.Logger) *App {
	factory := func() (kernel.Kernel, error) { return sdfx.NewWithCells(cfg.MeshCells), nil }
	return newAppWithKernel(factory, cfg, log)
}

func newAppWithKernel(factory engine.KernelFactory, cfg engine.Config, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	host := engine.NewHost(factory, cfg, log)
	return &App{
		log:     log,
		host:    host,
		section: section.New(host, log),
		imports: make(map[string]*kernel.Mesh),
	}
}

// startup is called by Wails on app startup. The runtime is brought up
// here so the first Execute does not pay the kernel load.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if err := a.host.Initialize(); err != nil {
		a.log.Error("engine initialization failed", zap.Error(err))
	}
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	a.host.Terminate()
}

// Validate runs the static script check without executing anything.
func (a *App) Validate(source string) validate.Verdict {
	return validate.Script(source)
}

// Execute validates and runs a script, returning the tessellated
// result or structured errors. Validation failures never reach the
// runtime.
func (a *App) Execute(source string) ExecuteResult {
	result := ExecuteResult{Errors: []ErrorData{}}

	if v := validate.Script(source); !v.Valid {
		for _, r := range v.Reasons {
			result.Errors = append(result.Errors, ErrorData{
				Category: string(r.Category),
				Message:  r.Message,
				Line:     r.Line,
			})
		}
		return result
	}

	// The registry can be mutated by concurrent bindings while the
	// script runs, so the runtime goroutine gets its own snapshot.
	// Mesh values are never mutated after registration.
	a.mu.Lock()
	imports := make(map[string]*kernel.Mesh, len(a.imports))
	for name, m := range a.imports {
		imports[name] = m
	}
	a.mu.Unlock()

	res, err := a.host.Execute(source, imports, engine.Limits{})
	if err != nil {
		result.Errors = append(result.Errors, executionError(err))
		return result
	}

	a.mu.Lock()
	a.adjMesh = nil
	a.adj = nil
	a.mu.Unlock()

	result.Mesh = meshData(res.Mesh)
	return result
}

// executionError maps the engine error taxonomy to frontend categories.
func executionError(err error) ErrorData {
	var (
		scriptErr  *engine.ScriptError
		invalidErr *engine.InvalidResultError
		timeoutErr *engine.TimeoutError
		memErr     *engine.MemoryExceededError
	)
	switch {
	case errors.As(err, &scriptErr):
		return ErrorData{Category: "script", Message: scriptErr.Message}
	case errors.As(err, &invalidErr):
		return ErrorData{Category: "result", Message: invalidErr.Error()}
	case errors.As(err, &timeoutErr):
		return ErrorData{Category: "timeout", Message: timeoutErr.Error()}
	case errors.As(err, &memErr):
		return ErrorData{Category: "memory", Message: memErr.Error()}
	case errors.Is(err, engine.ErrCancelled):
		return ErrorData{Category: "cancelled", Message: "superseded by a newer execution"}
	default:
		return ErrorData{Category: "engine", Message: err.Error()}
	}
}

// SetImportedModel registers a mesh under a name scripts can reference
// as a variable. Passing an empty mesh removes the name.
func (a *App) SetImportedModel(name string, data MeshData) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(data.TriVerts) == 0 {
		delete(a.imports, name)
		return nil
	}
	m := &kernel.Mesh{
		NumProp:        data.NumProp,
		VertProperties: data.VertProperties,
		TriVerts:       data.TriVerts,
		FaceID:         data.FaceID,
		Runs:           data.Runs,
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("imported model %q: %w", name, err)
	}
	a.imports[name] = m
	return nil
}

// SelectRegion grows a region from the seed triangle of the current
// mesh under the named policy: "coplanar", "angular" or "connected".
func (a *App) SelectRegion(seed int, policy string) (*SelectionData, error) {
	pol, err := parsePolicy(policy)
	if err != nil {
		return nil, err
	}

	mesh := a.host.LastMesh()
	if mesh == nil {
		return nil, fmt.Errorf("no mesh to select from")
	}

	sel, err := topo.Select(mesh, a.adjacencyFor(mesh), seed, pol, topo.Options{})
	if err != nil {
		return nil, err
	}
	return &SelectionData{
		Triangles:     sel.Triangles,
		Centroid:      [3]float64{sel.Centroid.X, sel.Centroid.Y, sel.Centroid.Z},
		Normal:        [3]float64{sel.Normal.X, sel.Normal.Y, sel.Normal.Z},
		TotalArea:     sel.TotalArea,
		TriangleCount: sel.TriangleCount,
	}, nil
}

func (a *App) adjacencyFor(mesh *kernel.Mesh) *topo.AdjacencyIndex {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.adjMesh != mesh {
		a.adj = topo.BuildAdjacency(mesh)
		a.adjMesh = mesh
	}
	return a.adj
}

func parsePolicy(name string) (topo.Policy, error) {
	switch name {
	case "coplanar":
		return topo.PolicyCoplanar, nil
	case "angular":
		return topo.PolicyAngular, nil
	case "connected":
		return topo.PolicyConnected, nil
	default:
		return 0, fmt.Errorf("unknown selection policy %q", name)
	}
}

// SectionRange reports the offset interval of the section plane for
// the given normal against the current mesh.
func (a *App) SectionRange(nx, ny, nz float64) ([2]float64, error) {
	min, max, err := a.section.OffsetRange([3]float64{nx, ny, nz})
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{min, max}, nil
}

// EnableSection turns the section view on with the given plane normal
// and returns the trimmed mesh.
func (a *App) EnableSection(nx, ny, nz float64) (*MeshData, error) {
	m, err := a.section.Enable([3]float64{nx, ny, nz})
	if err != nil {
		return nil, err
	}
	return meshData(m), nil
}

// SetSectionOffset slides the section plane and returns the trimmed
// mesh.
func (a *App) SetSectionOffset(offset float64) (*MeshData, error) {
	m, err := a.section.SetOffset(offset)
	if err != nil {
		return nil, err
	}
	return meshData(m), nil
}

// DisableSection restores the full mesh.
func (a *App) DisableSection() (*MeshData, error) {
	m, err := a.section.Disable()
	if err != nil {
		return nil, err
	}
	return meshData(m), nil
}

func meshData(m *kernel.Mesh) *MeshData {
	return &MeshData{
		NumProp:        m.NumProp,
		VertProperties: m.VertProperties,
		TriVerts:       m.TriVerts,
		FaceID:         m.FaceID,
		Runs:           m.Runs,
		TriangleCount:  m.TriangleCount(),
	}
}
