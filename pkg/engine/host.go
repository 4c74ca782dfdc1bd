package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chazu/chisel/pkg/kernel"
)

// State is the host lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateBusy
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// KernelFactory builds a fresh geometry kernel for each runtime
// instance. Instances are abandoned on timeout, so the factory must be
// callable repeatedly.
type KernelFactory func() (kernel.Kernel, error)

// instance is one runtime goroutine plus its request queue. An
// abandoned instance keeps draining until its interrupted script
// returns, then exits; its late responses no longer match any pending
// id and are discarded.
type instance struct {
	rt    *Runtime
	reqCh chan *request
	stop  chan struct{}
}

type outcome struct {
	resp *response
	err  error
}

type pendingCall struct {
	id string
	ch chan outcome // buffered(1): delivery never blocks
}

// Host owns the runtime lifecycle. Execution is asynchronous under the
// hood: requests are dispatched to the instance goroutine and matched
// back by id, so a hung script can be timed out and its instance
// replaced without wedging the host.
//
// Newer executions supersede older pending ones. The superseded caller
// gets ErrCancelled immediately; the script itself is not stopped (it
// already holds the interpreter) and its eventual response is dropped.
type Host struct {
	cfg       Config
	log       *zap.Logger
	newKernel KernelFactory

	mu        sync.Mutex
	state     State
	inst      *instance
	pending   map[string]*pendingCall
	lastSolid kernel.Solid
	lastMesh  *kernel.Mesh
}

// NewHost returns an uninitialized host. Call Initialize before use.
func NewHost(factory KernelFactory, cfg Config, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		cfg:       cfg,
		log:       log,
		newKernel: factory,
		pending:   make(map[string]*pendingCall),
	}
}

// State reports the current lifecycle state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// LastMesh returns the tessellation of the most recent successful
// execution, or nil.
func (h *Host) LastMesh() *kernel.Mesh {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastMesh
}

// Initialize spawns the runtime and blocks until it is ready. Valid
// from the uninitialized and terminated states only.
func (h *Host) Initialize() error {
	h.mu.Lock()
	if h.state != StateUninitialized && h.state != StateTerminated {
		h.mu.Unlock()
		return fmt.Errorf("engine: initialize from state %q", h.state)
	}
	h.state = StateInitializing
	h.mu.Unlock()

	inst, err := h.spawn()

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.state = StateUninitialized
		h.log.Error("runtime initialization failed", zap.Error(err))
		return &InitializationError{Err: err}
	}
	h.inst = inst
	h.state = StateReady
	h.log.Info("runtime ready")
	return nil
}

// Terminate hard-stops the host: pending callers are rejected, the
// current instance is interrupted and abandoned, cached geometry is
// dropped. Initialize brings the host back.
func (h *Host) Terminate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejectPendingLocked()
	if h.inst != nil {
		h.abandonLocked("terminated")
	}
	h.lastSolid = nil
	h.lastMesh = nil
	h.state = StateTerminated
	h.log.Info("host terminated")
}

// Restart is Terminate followed by Initialize.
func (h *Host) Restart() error {
	h.Terminate()
	return h.Initialize()
}

// Execute runs a script and returns its tessellated result. A new call
// supersedes any pending one. On timeout the runtime instance is
// replaced and TimeoutError is returned; the next Execute sees a fresh
// runtime without any caller-side recovery.
func (h *Host) Execute(script string, imports map[string]*kernel.Mesh, limits Limits) (*Result, error) {
	timeout := limits.Timeout
	if timeout <= 0 {
		timeout = h.cfg.ExecTimeout
	}
	memLimit := limits.MemoryLimitMB
	if memLimit <= 0 {
		memLimit = h.cfg.MemoryLimitMB
	}

	h.mu.Lock()
	if h.state != StateReady && h.state != StateBusy {
		h.mu.Unlock()
		return nil, ErrNotInitialized
	}
	h.rejectPendingLocked()
	p := &pendingCall{id: uuid.NewString(), ch: make(chan outcome, 1)}
	h.pending[p.id] = p
	h.state = StateBusy
	inst := h.inst
	h.mu.Unlock()

	req := &request{
		kind:          reqExecute,
		id:            p.id,
		script:        script,
		imports:       imports,
		memoryLimitMB: memLimit,
	}
	if err := h.dispatch(inst, p, req); err != nil {
		return nil, err
	}

	out, timedOut := h.await(p, inst, timeout)
	if timedOut {
		return nil, &TimeoutError{Limit: timeout}
	}
	if out.err != nil {
		return nil, out.err
	}
	if out.resp.err != nil {
		// A memory-limit breach is instance-fatal like a timeout: the
		// breaching instance keeps its bloated heap alive.
		var memErr *MemoryExceededError
		if errors.As(out.resp.err, &memErr) {
			h.replaceInstance(inst, "memory limit exceeded")
		}
		return nil, out.resp.err
	}
	return &Result{Mesh: out.resp.mesh, MemoryUsedMB: out.resp.memoryUsedMB}, nil
}

// TrimByPlane re-trims the cached solid of the last successful
// execution against the plane dot(p, normal) = offset, keeping the
// near half-space, and returns the trimmed tessellation. The cached
// solid itself is untouched, so successive offsets do not compound.
func (h *Host) TrimByPlane(normal [3]float64, offset float64) (*kernel.Mesh, error) {
	h.mu.Lock()
	if h.state != StateReady && h.state != StateBusy {
		h.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if h.lastSolid == nil {
		h.mu.Unlock()
		return nil, ErrNoGeometry
	}
	p := &pendingCall{id: uuid.NewString(), ch: make(chan outcome, 1)}
	h.pending[p.id] = p
	inst := h.inst
	solid := h.lastSolid
	h.mu.Unlock()

	req := &request{
		kind:   reqTrim,
		id:     p.id,
		solid:  solid,
		normal: normal,
		offset: offset,
	}
	if err := h.dispatch(inst, p, req); err != nil {
		return nil, err
	}

	out, timedOut := h.await(p, inst, h.cfg.ExecTimeout)
	if timedOut {
		return nil, &TimeoutError{Limit: h.cfg.ExecTimeout}
	}
	if out.err != nil {
		return nil, out.err
	}
	if out.resp.err != nil {
		return nil, out.resp.err
	}
	return out.resp.mesh, nil
}

// dispatch queues a request on the instance. A full queue means the
// runtime is wedged deep enough that superseded scripts have stacked
// up; the caller bails out rather than blocking.
func (h *Host) dispatch(inst *instance, p *pendingCall, req *request) error {
	select {
	case inst.reqCh <- req:
		return nil
	default:
		h.mu.Lock()
		delete(h.pending, p.id)
		h.settleStateLocked(inst)
		h.mu.Unlock()
		return fmt.Errorf("engine: runtime request backlog is full")
	}
}

// await blocks until the request resolves or the deadline passes. On
// timeout the instance is interrupted and replaced. If the response
// races the timer and wins, the response is honored.
func (h *Host) await(p *pendingCall, inst *instance, timeout time.Duration) (outcome, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-p.ch:
		return out, false
	case <-timer.C:
	}

	h.mu.Lock()
	if _, stillPending := h.pending[p.id]; !stillPending {
		h.mu.Unlock()
		// Resolved between the timer firing and the lock: the outcome
		// is already buffered.
		return <-p.ch, false
	}
	delete(h.pending, p.id)
	h.log.Warn("execution timed out", zap.String("id", p.id), zap.Duration("limit", timeout))
	h.mu.Unlock()

	h.replaceInstance(inst, "execution timed out")
	return outcome{}, true
}

// replaceInstance abandons inst and spawns a replacement. Used after
// instance-fatal failures: a timed-out script still holds the
// interpreter, a memory breach leaves the heap bloated. No-op when
// inst has already been replaced or the host terminated.
func (h *Host) replaceInstance(inst *instance, reason string) {
	h.mu.Lock()
	if h.inst != inst {
		h.mu.Unlock()
		return
	}
	h.log.Warn("replacing runtime instance", zap.String("reason", reason))
	h.abandonLocked(reason)
	h.state = StateInitializing
	h.mu.Unlock()

	h.respawn()
}

// respawn replaces the instance after a timeout. Failure leaves the
// host uninitialized; the caller already holds a TimeoutError and the
// next operation reports ErrNotInitialized.
func (h *Host) respawn() {
	inst, err := h.spawn()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateInitializing {
		// Terminated while respawning; discard the new instance.
		if inst != nil {
			close(inst.stop)
		}
		return
	}
	if err != nil {
		h.state = StateUninitialized
		h.log.Error("runtime respawn failed", zap.Error(err))
		return
	}
	h.inst = inst
	h.state = StateReady
	h.log.Info("runtime replaced after timeout")
}

// spawn builds a kernel and runtime off the calling goroutine so that
// a hung kernel load can be bounded by InitTimeout.
func (h *Host) spawn() (*instance, error) {
	type buildResult struct {
		rt  *Runtime
		err error
	}
	ch := make(chan buildResult, 1)
	go func() {
		k, err := h.newKernel()
		if err != nil {
			ch <- buildResult{err: fmt.Errorf("kernel load: %w", err)}
			return
		}
		rt, err := newRuntime(k, h.log)
		ch <- buildResult{rt: rt, err: err}
	}()

	select {
	case b := <-ch:
		if b.err != nil {
			return nil, b.err
		}
		inst := &instance{
			rt:    b.rt,
			reqCh: make(chan *request, 16),
			stop:  make(chan struct{}),
		}
		go h.run(inst)
		return inst, nil
	case <-time.After(h.cfg.InitTimeout):
		return nil, fmt.Errorf("runtime did not become ready within %s", h.cfg.InitTimeout)
	}
}

// run is the instance goroutine. One request at a time; abandoned
// instances fall out of the loop once the in-flight script returns.
func (h *Host) run(inst *instance) {
	for {
		select {
		case <-inst.stop:
			return
		default:
		}
		select {
		case <-inst.stop:
			return
		case req := <-inst.reqCh:
			h.deliver(inst, req.id, inst.rt.handle(req))
		}
	}
}

// deliver routes a response back to its caller. Responses whose id is
// no longer pending (superseded, timed out, terminated) are dropped.
// Only responses from the current instance may update the geometry
// cache.
func (h *Host) deliver(inst *instance, id string, resp *response) {
	h.mu.Lock()
	p, ok := h.pending[id]
	if !ok {
		h.mu.Unlock()
		h.log.Debug("discarding stale response", zap.String("id", id))
		return
	}
	delete(h.pending, id)
	if h.inst == inst && resp.err == nil && resp.solid != nil {
		h.lastSolid = resp.solid
		h.lastMesh = resp.mesh
	}
	h.settleStateLocked(inst)
	h.mu.Unlock()

	p.ch <- outcome{resp: resp}
}

// settleStateLocked flips Busy back to Ready once nothing is pending.
func (h *Host) settleStateLocked(inst *instance) {
	if h.inst == inst && h.state == StateBusy && len(h.pending) == 0 {
		h.state = StateReady
	}
}

// rejectPendingLocked resolves every pending caller with ErrCancelled.
// Their in-flight responses, if any, become stale and are discarded on
// arrival.
func (h *Host) rejectPendingLocked() {
	for id, p := range h.pending {
		delete(h.pending, id)
		p.ch <- outcome{err: ErrCancelled}
	}
}

// abandonLocked interrupts and detaches the current instance.
func (h *Host) abandonLocked(reason string) {
	close(h.inst.stop)
	h.inst.rt.vm.Interrupt(reason)
	h.inst = nil
}
