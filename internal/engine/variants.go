package engine

import "context"

// DefaultVariant is returned for enabled flags that define no variants
// (plain boolean flags). It is a facade constant; the assigner never sees
// such flags.
const DefaultVariant = "default"

// StickyStore persists variant assignments per (userID, flagKey) so a user
// keeps their first-seen variant even if the flag's weights change later.
//
// Implementations must never propagate errors into the evaluation path: a
// failed read degrades to a miss (recomputation is pure and yields the same
// value for an unchanged flag), a failed write is dropped.
type StickyStore interface {
	Get(ctx context.Context, userID, flagKey string) (string, bool)
	Put(ctx context.Context, userID, flagKey, variant string)
}

// chooseVariant deterministically picks a variant for the user by walking
// the cumulative weight thresholds with an independent hash bucket.
//
// When the weights sum to less than 100, buckets beyond the accumulated
// thresholds fall back to the first variant. Covered by tests so any future
// change to this fallback is deliberate.
func chooseVariant(flagKey, userID string, variants []Variant) string {
	bucket := Bucket(assignmentKey(flagKey, userID))

	cumulative := 0
	for _, v := range variants {
		cumulative += v.Percentage
		if bucket < cumulative {
			return v.Key
		}
	}

	return variants[0].Key
}

// resolveConfig returns the config payload of the named variant, or an empty
// map when the variant is absent or carries no config.
func resolveConfig(flag *Flag, variantKey string) map[string]any {
	for _, v := range flag.Variants {
		if v.Key == variantKey {
			if v.Config == nil {
				return map[string]any{}
			}
			return v.Config
		}
	}
	return map[string]any{}
}
