package engine

import (
	"strconv"
	"strings"
)

// MatchConditions evaluates a flag's targeting conditions against the user
// context. All conditions must hold (logical AND); an empty list is
// trivially satisfied.
//
// Targeting sits on hot request paths, so it never returns an error: a
// malformed condition, a missing context field, or a type-mismatched
// comparison all resolve to false (fail-closed).
func MatchConditions(conditions []Condition, user UserContext) bool {
	for _, c := range conditions {
		if !matchCondition(c, user) {
			return false
		}
	}
	return true
}

func matchCondition(c Condition, user UserContext) bool {
	got, ok := contextValue(c, user)
	if !ok {
		return false
	}
	return applyOperator(c.Operator, got, c.Value)
}

// contextValue resolves the context field a condition reads. The boolean is
// false when the field is absent, which fails the condition regardless of
// operator.
func contextValue(c Condition, user UserContext) (any, bool) {
	switch c.Type {
	case ConditionUserID:
		return nonEmpty(user.UserID)
	case ConditionUserType:
		return nonEmpty(user.UserType)
	case ConditionLocation:
		return nonEmpty(user.Location)
	case ConditionSubscription:
		return nonEmpty(user.SubscriptionTier)
	case ConditionCustom:
		// The condition value is reused as the attribute lookup key here
		// and as the comparison operand in applyOperator. Intentional
		// asymmetry, kept for compatibility with existing flag definitions.
		key, ok := c.Value.(string)
		if !ok {
			return nil, false
		}
		v, ok := user.CustomAttributes[key]
		return v, ok
	default:
		return nil, false
	}
}

func nonEmpty(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}

// applyOperator dispatches on the operator. Unknown operators and
// type-mismatched comparisons evaluate to false.
func applyOperator(op Operator, got, want any) bool {
	switch op {
	case OpEquals:
		return valuesEqual(got, want)

	case OpContains:
		gs, ok := got.(string)
		if !ok {
			return false
		}
		ws, ok := want.(string)
		if !ok {
			return false
		}
		return strings.Contains(gs, ws)

	case OpIn:
		list, ok := asList(want)
		if !ok {
			return false
		}
		return listContains(list, got)

	case OpNotIn:
		list, ok := asList(want)
		if !ok {
			return false
		}
		return !listContains(list, got)

	case OpGreaterThan:
		g, ok := toFloat(got)
		if !ok {
			return false
		}
		w, ok := toFloat(want)
		if !ok {
			return false
		}
		return g > w

	case OpLessThan:
		g, ok := toFloat(got)
		if !ok {
			return false
		}
		w, ok := toFloat(want)
		if !ok {
			return false
		}
		return g < w

	default:
		return false
	}
}

// valuesEqual compares scalars strictly: strings to strings, numbers to
// numbers (across numeric widths), bools to bools. Everything else is
// unequal.
func valuesEqual(a, b any) bool {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	if af, ok := numericValue(a); ok {
		bf, ok := numericValue(b)
		return ok && af == bf
	}
	return false
}

// asList accepts the two list shapes conditions arrive in: []any from JSON
// decoding and []string from Go callers.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func listContains(list []any, v any) bool {
	for _, item := range list {
		if valuesEqual(v, item) {
			return true
		}
	}
	return false
}

// numericValue converts a numeric Go value to float64. Strings are NOT
// coerced here; equals stays strict.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toFloat is the numeric coercion for ordered comparisons. Unlike
// numericValue it also parses numeric strings, because context attributes
// extracted from HTTP headers arrive as strings.
func toFloat(v any) (float64, bool) {
	if f, ok := numericValue(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
