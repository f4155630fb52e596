// Package assignments provides the sticky variant-assignment store: once a
// user is assigned a variant for a flag, the pair is remembered so later
// weight changes on the flag do not move them.
//
// Two backends exist: a bounded in-process cache (otter) and Redis, which
// extends stickiness across restarts and replicas.
package assignments

import "context"

// Store persists variant assignments keyed by (userID, flagKey).
//
// Implementations never surface errors: the assignment function is a pure
// hash of its inputs, so a failed read degrades to a recomputation of the
// same value and a failed write is harmless.
type Store interface {
	// Get returns the remembered variant for the pair, if any.
	Get(ctx context.Context, userID, flagKey string) (string, bool)

	// Put remembers the variant for the pair.
	Put(ctx context.Context, userID, flagKey, variant string)

	// Delete clears a single assignment, forcing recomputation on the next
	// evaluation.
	Delete(ctx context.Context, userID, flagKey string)

	// Close releases backend resources.
	Close()
}
