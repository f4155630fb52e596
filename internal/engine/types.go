// Package engine implements the feature-flag evaluation engine: deterministic
// rollout bucketing, targeting conditions, sticky variant assignment, and
// variant config resolution. It is pure in-process logic; all state it reads
// (the flag registry, the assignment store) is injected.
package engine

import "time"

// Environment tags a flag for filtering and listing. It has no effect on
// evaluation.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// ConditionType selects which user-context field a condition reads.
type ConditionType string

const (
	ConditionUserID       ConditionType = "user_id"
	ConditionUserType     ConditionType = "user_type"
	ConditionLocation     ConditionType = "location"
	ConditionSubscription ConditionType = "subscription"
	// ConditionCustom reads from UserContext.CustomAttributes. The condition's
	// Value doubles as the attribute lookup key and the comparison operand.
	ConditionCustom ConditionType = "custom"
)

// Operator is the comparison applied between the context field and the
// condition value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// Condition is a single targeting predicate. A flag's conditions are combined
// with logical AND; an empty list imposes no restriction.
type Condition struct {
	Type     ConditionType `json:"type"`
	Operator Operator      `json:"operator"`

	// Value is a scalar for equals/contains/greater_than/less_than and a
	// list for in/not_in. Decoded from JSON it arrives as string, float64,
	// bool or []any.
	Value any `json:"value"`
}

// Variant is one branch of an A/B/n experiment.
type Variant struct {
	Key  string `json:"key"`
	Name string `json:"name"`

	// Percentage is the variant's weight. The flag's variant weights define
	// cumulative thresholds over the 0-99 bucket space in list order.
	Percentage int `json:"percentage"`

	// Config is returned verbatim to callers assigned to this variant.
	Config map[string]any `json:"config,omitempty"`
}

// Flag is the full definition of a feature flag.
type Flag struct {
	// ID is the internal surrogate key (UUID). Read-only.
	ID string `json:"id"`

	// Key is the natural key (slug). Unique across the registry.
	Key string `json:"key"`

	Name        string `json:"name"`
	Description string `json:"description"`

	// Enabled is the master switch. When false the flag is inactive
	// regardless of rollout or conditions.
	Enabled bool `json:"enabled"`

	// RolloutPercentage (0-100) is the fraction of the population admitted.
	RolloutPercentage int `json:"rollout_percentage"`

	Conditions []Condition `json:"conditions"`
	Variants   []Variant   `json:"variants"`

	Environment Environment `json:"environment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserContext carries the identity and attributes of the entity being
// evaluated. It is supplied per call and never stored.
type UserContext struct {
	// UserID is optional; when empty, rollout and variant assignment hash
	// the literal identity "anonymous".
	UserID string `json:"user_id,omitempty"`

	UserType         string `json:"user_type,omitempty"`
	Location         string `json:"location,omitempty"`
	SubscriptionTier string `json:"subscription_tier,omitempty"`

	// CustomAttributes backs conditions of type "custom".
	CustomAttributes map[string]any `json:"custom_attributes,omitempty"`
}
