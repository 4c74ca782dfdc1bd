package engine

import (
	"time"

	"github.com/chazu/chisel/pkg/kernel"
)

type reqKind int

const (
	reqExecute reqKind = iota
	reqTrim
)

// request is a message dispatched to a runtime instance. Every request
// carries a unique id; responses are matched back to callers by that
// id, and responses whose id is no longer pending are discarded.
type request struct {
	kind reqKind
	id   string

	// reqExecute
	script        string
	imports       map[string]*kernel.Mesh
	memoryLimitMB int

	// reqTrim
	solid  kernel.Solid
	normal [3]float64
	offset float64
}

type response struct {
	id           string
	mesh         *kernel.Mesh
	solid        kernel.Solid // nil for trim responses: the cache keeps the untrimmed solid
	memoryUsedMB float64
	err          error
}

// Limits are per-execution overrides. Zero fields fall back to the
// host configuration.
type Limits struct {
	Timeout       time.Duration
	MemoryLimitMB int
}

// Result is a successful execution outcome.
type Result struct {
	Mesh         *kernel.Mesh
	MemoryUsedMB float64
}
