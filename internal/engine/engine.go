package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/rafaeljc/verdandi/internal/observability"
)

// Reason explains the terminal state of an evaluation. The states form a
// sequential short-circuit chain; only ENABLED yields a variant and config.
type Reason string

const (
	ReasonNotFound        Reason = "NOT_FOUND"
	ReasonDisabled        Reason = "DISABLED"
	ReasonRolloutExcluded Reason = "ROLLOUT_EXCLUDED"
	ReasonTargetingFailed Reason = "TARGETING_FAILED"
	ReasonEnabled         Reason = "ENABLED"
)

// FlagSource is the read surface the engine needs from the flag registry.
type FlagSource interface {
	// Lookup returns the flag definition for key. The returned value must be
	// treated as immutable; registries publish fresh snapshots on mutation.
	Lookup(key string) (*Flag, bool)
}

// Decision is the full outcome of one evaluation.
type Decision struct {
	FlagKey string         `json:"flag_key"`
	Enabled bool           `json:"enabled"`
	Reason  Reason         `json:"reason"`
	Variant string         `json:"variant,omitempty"`
	Config  map[string]any `json:"config,omitempty"`
}

// ABTestResult is the shape consumed by experiment-aware callers.
type ABTestResult struct {
	Variant string         `json:"variant"`
	InTest  bool           `json:"in_test"`
	Config  map[string]any `json:"config"`
}

// Engine is the evaluation facade. It composes the registry lookup, the
// enabled check, the rollout bucketer, the targeting evaluator, the variant
// assigner and the config resolver, in that order.
//
// Evaluation never returns an error to callers: absent flags and malformed
// conditions resolve to a disabled result (fail-closed).
type Engine struct {
	flags  FlagSource
	sticky StickyStore
	logger *slog.Logger
}

// New creates an Engine. All dependencies are mandatory except the logger,
// which falls back to slog.Default().
func New(flags FlagSource, sticky StickyStore, logger *slog.Logger) *Engine {
	if flags == nil {
		panic("engine: flag source cannot be nil")
	}
	if sticky == nil {
		panic("engine: sticky store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		flags:  flags,
		sticky: sticky,
		logger: logger,
	}
}

// Evaluate runs the full evaluation chain and returns the decision.
func (e *Engine) Evaluate(ctx context.Context, flagKey string, user UserContext) Decision {
	start := time.Now()
	d := e.evaluate(ctx, flagKey, user)

	observability.EvaluationsTotal.WithLabelValues(string(d.Reason)).Inc()
	observability.EvaluationDuration.Observe(time.Since(start).Seconds())

	e.logger.Debug("flag evaluated",
		slog.String("flag_key", flagKey),
		slog.String("reason", string(d.Reason)),
		slog.Bool("enabled", d.Enabled),
	)

	return d
}

func (e *Engine) evaluate(ctx context.Context, flagKey string, user UserContext) Decision {
	flag, ok := e.flags.Lookup(flagKey)
	if !ok {
		// Evaluating an unknown key is defined behavior, not an error.
		return Decision{FlagKey: flagKey, Reason: ReasonNotFound}
	}

	if !flag.Enabled {
		return Decision{FlagKey: flagKey, Reason: ReasonDisabled}
	}

	if !InRollout(flag.Key, user.UserID, flag.RolloutPercentage) {
		return Decision{FlagKey: flagKey, Reason: ReasonRolloutExcluded}
	}

	if !MatchConditions(flag.Conditions, user) {
		return Decision{FlagKey: flagKey, Reason: ReasonTargetingFailed}
	}

	d := Decision{FlagKey: flagKey, Enabled: true, Reason: ReasonEnabled}

	if len(flag.Variants) == 0 {
		// Boolean flag: no assignment, no sticky cache entry.
		d.Variant = DefaultVariant
		d.Config = map[string]any{}
		return d
	}

	d.Variant = e.assignVariant(ctx, flag, user)
	d.Config = resolveConfig(flag, d.Variant)
	return d
}

// assignVariant returns the sticky assignment when one exists, otherwise
// computes one and writes it through. Two concurrent first-time evaluations
// racing on the write are benign: the assignment function is pure, so both
// compute the same value.
func (e *Engine) assignVariant(ctx context.Context, flag *Flag, user UserContext) string {
	id := identity(user.UserID)

	if v, ok := e.sticky.Get(ctx, id, flag.Key); ok {
		observability.AssignmentCacheHits.Inc()
		return v
	}
	observability.AssignmentCacheMisses.Inc()

	v := chooseVariant(flag.Key, user.UserID, flag.Variants)
	e.sticky.Put(ctx, id, flag.Key, v)
	return v
}

// IsEnabled reports whether the flag is active for the user.
func (e *Engine) IsEnabled(ctx context.Context, flagKey string, user UserContext) bool {
	return e.Evaluate(ctx, flagKey, user).Enabled
}

// GetVariant returns the user's variant. The boolean is false whenever the
// flag does not evaluate to enabled; callers must not interpret the empty
// string as a variant. The full chain re-runs on every call, so disabling a
// flag mid-session immediately blocks variant retrieval.
func (e *Engine) GetVariant(ctx context.Context, flagKey string, user UserContext) (string, bool) {
	d := e.Evaluate(ctx, flagKey, user)
	if !d.Enabled {
		return "", false
	}
	return d.Variant, true
}

// GetConfig returns the config payload of the user's variant, or nil when
// the flag does not evaluate to enabled.
func (e *Engine) GetConfig(ctx context.Context, flagKey string, user UserContext) map[string]any {
	d := e.Evaluate(ctx, flagKey, user)
	if !d.Enabled {
		return nil
	}
	return d.Config
}

// EvaluateABTest evaluates an experiment flag. Users outside the test get
// InTest=false, an empty variant and an empty config.
func (e *Engine) EvaluateABTest(ctx context.Context, testKey string, user UserContext) ABTestResult {
	d := e.Evaluate(ctx, testKey, user)
	if !d.Enabled {
		return ABTestResult{Config: map[string]any{}}
	}
	return ABTestResult{
		Variant: d.Variant,
		InTest:  true,
		Config:  d.Config,
	}
}
