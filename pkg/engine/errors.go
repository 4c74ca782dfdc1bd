package engine

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	// ErrNotInitialized is returned when an operation requires a ready
	// runtime and the host has none. Caller bug: Initialize first.
	ErrNotInitialized = errors.New("engine: host is not initialized")

	// ErrCancelled is given to pending requests that were superseded
	// by a newer execution or rejected by Terminate. It is internal
	// plumbing, not a user-facing failure.
	ErrCancelled = errors.New("engine: execution cancelled")

	// ErrNoGeometry is returned by TrimByPlane before any successful
	// execution has populated the cache.
	ErrNoGeometry = errors.New("engine: no cached geometry to trim")
)

// InitializationError reports that the runtime failed to start or did
// not become ready in time.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("engine: runtime initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// ScriptError is an uncaught exception (or syntax error) raised by the
// user script. Recoverable: the user edits the script and retries.
type ScriptError struct {
	Message string
	Stack   string
}

func (e *ScriptError) Error() string {
	return "engine: script error: " + e.Message
}

// InvalidResultError reports that the script returned something that
// is not a solid handle.
type InvalidResultError struct {
	Got string
}

func (e *InvalidResultError) Error() string {
	return fmt.Sprintf("engine: script must return a solid, got %s", e.Got)
}

// TimeoutError is fatal to the current runtime instance: the host
// force-restarts the runtime after raising it. Recoverable for the
// caller, but expensive.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("engine: execution exceeded the %s time limit", e.Limit)
}

// MemoryExceededError reports that a heap sample taken around the
// script invocation exceeded the configured limit. Detection is
// advisory (a synchronous script cannot be stopped mid-flight), but
// the error is instance-fatal like a timeout: the host replaces the
// runtime, whose heap is already bloated.
type MemoryExceededError struct {
	UsedMB  float64
	LimitMB int
}

func (e *MemoryExceededError) Error() string {
	return fmt.Sprintf("engine: execution used %.1f MB of memory, limit is %d MB", e.UsedMB, e.LimitMB)
}
