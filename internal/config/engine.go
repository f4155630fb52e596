package config

import "time"

// Assignment store backends.
const (
	AssignmentBackendMemory = "memory"
	AssignmentBackendRedis  = "redis"
)

// EngineConfig configures the evaluation engine and its sticky assignment
// store.
type EngineConfig struct {
	// AssignmentBackend selects where sticky variant assignments live.
	// "memory" keeps them process-local; "redis" extends stickiness across
	// restarts and replicas.
	AssignmentBackend string `envconfig:"ASSIGNMENT_BACKEND" default:"memory" validate:"oneof=memory redis"`

	// AssignmentCapacity caps the in-memory assignment store so it cannot
	// grow without bound on long-running processes. Evicted entries
	// recompute to the same variant as long as the flag definition is
	// unchanged.
	AssignmentCapacity int `envconfig:"ASSIGNMENT_CAPACITY" default:"100000" validate:"min=1"`

	// AssignmentTTL expires sticky assignments. Zero means no expiry.
	AssignmentTTL time.Duration `envconfig:"ASSIGNMENT_TTL" default:"0s"`

	// SeedDefaults loads the bootstrap flag definitions at startup.
	SeedDefaults bool `envconfig:"SEED_DEFAULTS" default:"true"`
}

// SyncerConfig configures the Postgres-to-registry hydration worker.
type SyncerConfig struct {
	Enabled  bool          `envconfig:"ENABLED" default:"false"`
	Interval time.Duration `envconfig:"INTERVAL" default:"30s"`
}
