package observability

import "context"

// Checker is the contract for components that report their health in the
// readiness probe. Implementations must be thread-safe and respect the
// context deadline.
type Checker interface {
	// Name identifies the component (e.g., "postgres", "redis").
	Name() string
	// Check returns nil when the component is healthy.
	Check(ctx context.Context) error
}
