package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abTestVariants() []Variant {
	return []Variant{
		{Key: "control", Name: "Control", Percentage: 50},
		{Key: "treatment", Name: "Treatment", Percentage: 50, Config: map[string]any{"algo": "v2"}},
	}
}

func TestChooseVariant_Membership(t *testing.T) {
	t.Parallel()

	variants := abTestVariants()
	for i := 0; i < 1000; i++ {
		v := chooseVariant("exp", fmt.Sprintf("user%d", i), variants)
		assert.Contains(t, []string{"control", "treatment"}, v)
	}
}

func TestChooseVariant_Deterministic(t *testing.T) {
	t.Parallel()

	variants := abTestVariants()
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("user%d", i)
		first := chooseVariant("exp", id, variants)
		for j := 0; j < 20; j++ {
			assert.Equal(t, first, chooseVariant("exp", id, variants))
		}
	}
}

func TestChooseVariant_ApproximatesWeights(t *testing.T) {
	t.Parallel()

	variants := []Variant{
		{Key: "a", Percentage: 10},
		{Key: "b", Percentage: 30},
		{Key: "c", Percentage: 60},
	}

	const n = 10000
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		counts[chooseVariant("weighted-exp", fmt.Sprintf("user%d", i), variants)]++
	}

	assert.InDelta(t, n*0.10, counts["a"], n*0.03)
	assert.InDelta(t, n*0.30, counts["b"], n*0.03)
	assert.InDelta(t, n*0.60, counts["c"], n*0.03)
}

func TestChooseVariant_CumulativeOrderMatters(t *testing.T) {
	t.Parallel()

	// Thresholds accumulate in list order: [a:30, b:70] assigns buckets 0-29
	// to a; [b:70, a:30] assigns buckets 0-69 to b. The same user can land in
	// different variants under the two orderings.
	forward := []Variant{{Key: "a", Percentage: 30}, {Key: "b", Percentage: 70}}
	reversed := []Variant{{Key: "b", Percentage: 70}, {Key: "a", Percentage: 30}}

	moved := 0
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("user%d", i)
		if chooseVariant("order-exp", id, forward) != chooseVariant("order-exp", id, reversed) {
			moved++
		}
	}
	assert.Greater(t, moved, 0, "reordering weights should reassign some users")
}

func TestChooseVariant_WeightShortfallFallsBackToFirst(t *testing.T) {
	t.Parallel()

	// Weights summing below 100 leave uncovered buckets; those callers get
	// the first variant.
	variants := []Variant{
		{Key: "a", Percentage: 10},
		{Key: "b", Percentage: 10},
	}

	sawFallback := false
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("user%d", i)
		v := chooseVariant("shortfall-exp", id, variants)
		require.Contains(t, []string{"a", "b"}, v)

		if Bucket(assignmentKey("shortfall-exp", id)) >= 20 {
			assert.Equal(t, "a", v, "uncovered bucket must fall back to the first variant")
			sawFallback = true
		}
	}
	assert.True(t, sawFallback, "expected some users in uncovered buckets")
}

func TestResolveConfig(t *testing.T) {
	t.Parallel()

	flag := &Flag{
		Key:      "exp",
		Variants: abTestVariants(),
	}

	assert.Equal(t, map[string]any{"algo": "v2"}, resolveConfig(flag, "treatment"))
	assert.Equal(t, map[string]any{}, resolveConfig(flag, "control"), "nil config resolves to empty map")
	assert.Equal(t, map[string]any{}, resolveConfig(flag, "missing"))
}
