package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/verdandi/internal/engine"
	"github.com/rafaeljc/verdandi/internal/testsupport"
)

// setupStore spins up a disposable Postgres with the real migrations.
// Requires Docker; skipped in -short runs.
func setupStore(t *testing.T) *PostgresStore {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(ctx)
	})

	return NewPostgresStore(container.DB)
}

func persistedFlag(key string) *engine.Flag {
	return &engine.Flag{
		ID:                uuid.NewString(),
		Key:               key,
		Name:              "Flag " + key,
		Description:       "integration test flag",
		Enabled:           true,
		RolloutPercentage: 25,
		Conditions: []engine.Condition{
			{Type: engine.ConditionSubscription, Operator: engine.OpIn, Value: []any{"pro", "enterprise"}},
		},
		Variants: []engine.Variant{
			{Key: "control", Name: "Control", Percentage: 50},
			{Key: "treatment", Name: "Treatment", Percentage: 50, Config: map[string]any{"ranker": "ltr"}},
		},
		Environment: engine.EnvProduction,
	}
}

func TestPostgresStore_CRUD(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// Create populates server-side timestamps.
	f := persistedFlag("checkout-exp")
	require.NoError(t, s.CreateFlag(ctx, f))
	assert.False(t, f.CreatedAt.IsZero())
	assert.False(t, f.UpdatedAt.IsZero())

	// Duplicate key maps to the typed error.
	dup := persistedFlag("checkout-exp")
	err := s.CreateFlag(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// Get round-trips the JSONB rules.
	got, err := s.GetFlag(ctx, "checkout-exp")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, 25, got.RolloutPercentage)
	require.Len(t, got.Conditions, 1)
	assert.Equal(t, engine.ConditionSubscription, got.Conditions[0].Type)
	require.Len(t, got.Variants, 2)
	assert.Equal(t, map[string]any{"ranker": "ltr"}, got.Variants[1].Config)
	assert.Equal(t, engine.EnvProduction, got.Environment)

	// Update replaces the definition and bumps updated_at.
	f.RolloutPercentage = 75
	f.Enabled = false
	before := got.UpdatedAt
	require.NoError(t, s.UpdateFlag(ctx, f))
	assert.True(t, f.UpdatedAt.After(before) || f.UpdatedAt.Equal(before))

	got, err = s.GetFlag(ctx, "checkout-exp")
	require.NoError(t, err)
	assert.Equal(t, 75, got.RolloutPercentage)
	assert.False(t, got.Enabled)

	// Updating an unknown key is an error.
	ghost := persistedFlag("ghost")
	assert.ErrorIs(t, s.UpdateFlag(ctx, ghost), ErrNotFound)

	// Delete is idempotent.
	require.NoError(t, s.DeleteFlag(ctx, "checkout-exp"))
	require.NoError(t, s.DeleteFlag(ctx, "checkout-exp"))
	_, err = s.GetFlag(ctx, "checkout-exp")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_ListAllFlags(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateFlag(ctx, persistedFlag("bravo")))
	require.NoError(t, s.CreateFlag(ctx, persistedFlag("alpha")))

	// A flag with no rules round-trips as empty (non-nil conditions are not
	// required by the engine).
	bare := &engine.Flag{ID: uuid.NewString(), Key: "bare", Name: "Bare"}
	require.NoError(t, s.CreateFlag(ctx, bare))

	flags, err := s.ListAllFlags(ctx)
	require.NoError(t, err)
	require.Len(t, flags, 3)

	assert.Equal(t, "alpha", flags[0].Key)
	assert.Equal(t, "bare", flags[1].Key)
	assert.Equal(t, "bravo", flags[2].Key)
	assert.Empty(t, flags[1].Conditions)
	assert.Empty(t, flags[1].Variants)
}
