package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInRollout_Boundaries(t *testing.T) {
	t.Parallel()

	// 100 and 0 short-circuit: every identity, including anonymous, gets the
	// same answer.
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("user%d", i)
		assert.True(t, InRollout("boundary-flag", id, 100))
		assert.False(t, InRollout("boundary-flag", id, 0))
	}
	assert.True(t, InRollout("boundary-flag", "", 100))
	assert.False(t, InRollout("boundary-flag", "", 0))

	// Out-of-range values clamp to the same short-circuits.
	assert.True(t, InRollout("boundary-flag", "user1", 150))
	assert.False(t, InRollout("boundary-flag", "user1", -10))
}

func TestInRollout_Deterministic(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("user%d", i)
		first := InRollout("det-flag", id, 37)
		for j := 0; j < 50; j++ {
			assert.Equal(t, first, InRollout("det-flag", id, 37))
		}
	}
}

func TestInRollout_Monotone(t *testing.T) {
	t.Parallel()

	// Raising the percentage must never evict a user who was already in.
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("user%d", i)
		in := false
		for pct := 0; pct <= 100; pct++ {
			now := InRollout("monotone-flag", id, pct)
			if in {
				assert.True(t, now, "user %s fell out when raising to %d%%", id, pct)
			}
			in = now
		}
	}
}

func TestInRollout_ApproximatesPercentage(t *testing.T) {
	t.Parallel()

	const n = 10000
	included := 0
	for i := 0; i < n; i++ {
		if InRollout("ratio-flag", fmt.Sprintf("user%d", i), 50) {
			included++
		}
	}

	// 50% of 10k, +-3 percentage points.
	assert.InDelta(t, n/2, included, n*0.03)
}

func TestInRollout_IndependentPerFlag(t *testing.T) {
	t.Parallel()

	// The flag key salts the hash: inclusion under one flag must not imply
	// inclusion under another.
	differ := 0
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("user%d", i)
		if InRollout("flag-a", id, 50) != InRollout("flag-b", id, 50) {
			differ++
		}
	}
	assert.Greater(t, differ, 300, "flags should bucket users independently")
}

func TestInRollout_AnonymousIsStable(t *testing.T) {
	t.Parallel()

	// All anonymous users share one bucket per flag.
	first := InRollout("anon-flag", "", 50)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, InRollout("anon-flag", "", 50))
	}
}
