package engine

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the host's tunables. Values come from the environment
// with the CHISEL_ prefix, e.g. CHISEL_EXEC_TIMEOUT=10s.
type Config struct {
	// ExecTimeout bounds a single script execution. When exceeded the
	// runtime instance is abandoned and respawned.
	ExecTimeout time.Duration `envconfig:"EXEC_TIMEOUT" default:"30s"`

	// InitTimeout bounds runtime startup (kernel load included).
	InitTimeout time.Duration `envconfig:"INIT_TIMEOUT" default:"10s"`

	// MemoryLimitMB is the advisory heap ceiling sampled around each
	// execution.
	MemoryLimitMB int `envconfig:"MEMORY_LIMIT_MB" default:"512"`

	// MeshCells is the marching-cubes resolution of the sdfx backend.
	MeshCells int `envconfig:"MESH_CELLS" default:"200"`

	// LogDev switches the logger to a human-readable development
	// encoding.
	LogDev bool `envconfig:"LOG_DEV" default:"false"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var c Config
	if err := envconfig.Process("chisel", &c); err != nil {
		return Config{}, fmt.Errorf("engine: loading config: %w", err)
	}
	return c, nil
}

// DefaultConfig returns the built-in defaults without consulting the
// environment. Used by tests and embedders.
func DefaultConfig() Config {
	return Config{
		ExecTimeout:   30 * time.Second,
		InitTimeout:   10 * time.Second,
		MemoryLimitMB: 512,
		MeshCells:     200,
	}
}
