package assignments

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client, ttl, nil), mr
}

func TestNewRedis_PanicsOnNilClient(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewRedis(nil, 0, nil) })
}

func TestRedis_PutGetDelete(t *testing.T) {
	t.Parallel()

	s, _ := newTestRedis(t, 0)
	ctx := context.Background()

	_, ok := s.Get(ctx, "user1", "exp")
	assert.False(t, ok)

	s.Put(ctx, "user1", "exp", "treatment")

	v, ok := s.Get(ctx, "user1", "exp")
	require.True(t, ok)
	assert.Equal(t, "treatment", v)

	s.Delete(ctx, "user1", "exp")
	_, ok = s.Get(ctx, "user1", "exp")
	assert.False(t, ok)
}

func TestRedis_KeyNamespace(t *testing.T) {
	t.Parallel()

	s, mr := newTestRedis(t, 0)
	s.Put(context.Background(), "user-42", "search-ranking-experiment", "control")

	got, err := mr.Get("assignment:user-42:search-ranking-experiment")
	require.NoError(t, err)
	assert.Equal(t, "control", got)
}

func TestRedis_TTLApplied(t *testing.T) {
	t.Parallel()

	s, mr := newTestRedis(t, time.Minute)
	ctx := context.Background()

	s.Put(ctx, "user1", "exp", "treatment")
	assert.Equal(t, time.Minute, mr.TTL("assignment:user1:exp"))

	// miniredis advances time manually.
	mr.FastForward(2 * time.Minute)
	_, ok := s.Get(ctx, "user1", "exp")
	assert.False(t, ok, "assignment should expire")
}

func TestRedis_FailuresDegradeToMiss(t *testing.T) {
	t.Parallel()

	s, mr := newTestRedis(t, 0)
	ctx := context.Background()

	s.Put(ctx, "user1", "exp", "treatment")
	mr.Close()

	// A dead Redis must read as a miss and write without error surfacing.
	_, ok := s.Get(ctx, "user1", "exp")
	assert.False(t, ok)
	assert.NotPanics(t, func() {
		s.Put(ctx, "user1", "exp", "treatment")
		s.Delete(ctx, "user1", "exp")
	})
}

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hc := NewHealthChecker(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Check(context.Background()))

	mr.Close()
	assert.Error(t, hc.Check(context.Background()))
}
