package engine

import (
	"errors"
	"fmt"
	"regexp"
	goruntime "runtime"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/chazu/chisel/pkg/kernel"
)

// scriptSolid is the opaque handle scripts pass between builder calls.
// It carries no methods the VM can reach; all geometry goes through the
// builder functions.
type scriptSolid struct {
	solid kernel.Solid
}

// Runtime is one sandboxed script interpreter bound to one geometry
// kernel. It is single-threaded: exactly one instance goroutine drives
// it, so no locking is needed here.
type Runtime struct {
	vm   *goja.Runtime
	kern kernel.Kernel
	log  *zap.Logger

	builders map[string]interface{}
	names    []string // builder names in stable order
}

func newRuntime(kern kernel.Kernel, log *zap.Logger) (*Runtime, error) {
	r := &Runtime{
		vm:   goja.New(),
		kern: kern,
		log:  log,
	}
	r.installBuilders()
	if err := r.lockdown(); err != nil {
		return nil, err
	}
	return r, nil
}

// installBuilders registers the kernel namespace. The functions are
// passed as script parameters rather than globals so that lockdown can
// blank the global object without taking the builders with it.
func (r *Runtime) installBuilders() {
	k := r.kern
	r.builders = map[string]interface{}{
		"box": func(x, y, z float64) *scriptSolid {
			return &scriptSolid{k.Box(x, y, z)}
		},
		"cylinder": func(height, radius float64, segments int) *scriptSolid {
			return &scriptSolid{k.Cylinder(height, radius, segments)}
		},
		"sphere": func(radius float64) *scriptSolid {
			return &scriptSolid{k.Sphere(radius)}
		},
		"union": func(a, b *scriptSolid) *scriptSolid {
			return &scriptSolid{k.Union(a.solid, b.solid)}
		},
		"difference": func(a, b *scriptSolid) *scriptSolid {
			return &scriptSolid{k.Difference(a.solid, b.solid)}
		},
		"intersect": func(a, b *scriptSolid) *scriptSolid {
			return &scriptSolid{k.Intersection(a.solid, b.solid)}
		},
		"translate": func(s *scriptSolid, x, y, z float64) *scriptSolid {
			return &scriptSolid{k.Translate(s.solid, x, y, z)}
		},
		"rotate": func(s *scriptSolid, x, y, z float64) *scriptSolid {
			return &scriptSolid{k.Rotate(s.solid, x, y, z)}
		},
		"scale": func(s *scriptSolid, factor float64) *scriptSolid {
			return &scriptSolid{k.Scale(s.solid, factor)}
		},
	}

	r.names = make([]string, 0, len(r.builders))
	for name := range r.builders {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
}

// lockdown removes the escape hatches goja exposes by default. The
// validator rejects most of these lexically; this is the backstop for
// anything that slips through.
func (r *Runtime) lockdown() error {
	global := r.vm.GlobalObject()
	for _, name := range []string{"eval", "Function", "globalThis"} {
		if err := global.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("engine: disabling %s: %w", name, err)
		}
	}

	// Timers do not exist in this embedding; a neutered definition
	// gives a clearer failure mode than a ReferenceError would.
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	if err := r.vm.Set("setTimeout", noop); err != nil {
		return fmt.Errorf("engine: neutering setTimeout: %w", err)
	}
	if err := r.vm.Set("setInterval", noop); err != nil {
		return fmt.Errorf("engine: neutering setInterval: %w", err)
	}
	return nil
}

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// handle runs one request to completion on the instance goroutine.
func (r *Runtime) handle(req *request) *response {
	switch req.kind {
	case reqTrim:
		return r.trim(req)
	default:
		return r.execute(req)
	}
}

func (r *Runtime) trim(req *request) (resp *response) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = &response{id: req.id, err: fmt.Errorf("engine: trim failed: %v", rec)}
		}
	}()

	trimmed := r.kern.TrimByPlane(req.solid, req.normal, req.offset)
	mesh, err := r.kern.ToMesh(trimmed)
	if err != nil {
		return &response{id: req.id, err: fmt.Errorf("engine: tessellating trimmed solid: %w", err)}
	}
	return &response{id: req.id, mesh: mesh}
}

// execute compiles the script as the body of an anonymous function
// whose parameters are the builder functions plus any imported model
// names, invokes it, and tessellates the returned solid.
func (r *Runtime) execute(req *request) (resp *response) {
	// Kernel backends report impossible geometry by panicking; a panic
	// from a builder surfaces as a script error, not a crash.
	defer func() {
		if rec := recover(); rec != nil {
			resp = &response{id: req.id, err: &ScriptError{Message: fmt.Sprintf("panic during execution: %v", rec)}}
		}
	}()

	heapBefore := heapMB()

	params := make([]string, 0, len(r.names)+len(req.imports))
	args := make([]goja.Value, 0, cap(params))
	for _, name := range r.names {
		params = append(params, name)
		args = append(args, r.vm.ToValue(r.builders[name]))
	}

	importNames := make([]string, 0, len(req.imports))
	for name := range req.imports {
		importNames = append(importNames, name)
	}
	sort.Strings(importNames)
	for _, name := range importNames {
		if !identRe.MatchString(name) {
			return &response{id: req.id, err: fmt.Errorf("engine: import name %q is not a valid identifier", name)}
		}
		if _, taken := r.builders[name]; taken {
			return &response{id: req.id, err: fmt.Errorf("engine: import name %q shadows a builder", name)}
		}
		solid, err := r.kern.FromMesh(req.imports[name])
		if err != nil {
			return &response{id: req.id, err: fmt.Errorf("engine: importing model %q: %w", name, err)}
		}
		params = append(params, name)
		args = append(args, r.vm.ToValue(&scriptSolid{solid}))
	}

	src := "(function(" + strings.Join(params, ", ") + ") {\n" + req.script + "\n})"
	prog, err := goja.Compile("script.js", src, false)
	if err != nil {
		return &response{id: req.id, err: &ScriptError{Message: err.Error()}}
	}

	fnVal, err := r.vm.RunProgram(prog)
	if err != nil {
		return &response{id: req.id, err: r.scriptError(err)}
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return &response{id: req.id, err: &ScriptError{Message: "script did not compile to a function"}}
	}

	ret, err := fn(goja.Undefined(), args...)
	if err != nil {
		return &response{id: req.id, err: r.scriptError(err)}
	}

	heapAfter := heapMB()
	used := heapBefore
	if heapAfter > used {
		used = heapAfter
	}
	if req.memoryLimitMB > 0 && used > float64(req.memoryLimitMB) {
		return &response{id: req.id, err: &MemoryExceededError{UsedMB: used, LimitMB: req.memoryLimitMB}}
	}

	handle, ok := ret.Export().(*scriptSolid)
	if !ok || handle == nil || handle.solid == nil {
		return &response{id: req.id, err: &InvalidResultError{Got: describeValue(ret)}}
	}

	mesh, err := r.kern.ToMesh(handle.solid)
	if err != nil {
		return &response{id: req.id, err: fmt.Errorf("engine: tessellation failed: %w", err)}
	}

	return &response{
		id:           req.id,
		mesh:         mesh,
		solid:        handle.solid,
		memoryUsedMB: heapAfter,
	}
}

// scriptError maps a goja failure onto the engine error taxonomy.
func (r *Runtime) scriptError(err error) error {
	var intr *goja.InterruptedError
	if errors.As(err, &intr) {
		// The host abandoned this instance; the response is discarded
		// anyway, but keep the mapping honest.
		return ErrCancelled
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return &ScriptError{Message: ex.Error(), Stack: ex.String()}
	}
	return &ScriptError{Message: err.Error()}
}

func describeValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if t := v.ExportType(); t != nil {
		return fmt.Sprintf("%s (%v)", t, v)
	}
	return fmt.Sprintf("%v", v)
}

func heapMB() float64 {
	var ms goruntime.MemStats
	goruntime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / (1024 * 1024)
}
