package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/verdandi/internal/engine"
	"github.com/rafaeljc/verdandi/internal/registry"
	"github.com/rafaeljc/verdandi/internal/store"
)

// fakeRepo implements store.FlagRepository for tests. Only ListAllFlags is
// exercised by the syncer.
type fakeRepo struct {
	mu    sync.Mutex
	flags []engine.Flag
	err   error
	calls int
}

var _ store.FlagRepository = (*fakeRepo)(nil)

func (f *fakeRepo) ListAllFlags(_ context.Context) ([]engine.Flag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.flags, nil
}

func (f *fakeRepo) set(flags []engine.Flag, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags = flags
	f.err = err
}

func (f *fakeRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRepo) CreateFlag(context.Context, *engine.Flag) error { return nil }
func (f *fakeRepo) UpdateFlag(context.Context, *engine.Flag) error { return nil }
func (f *fakeRepo) DeleteFlag(context.Context, string) error       { return nil }
func (f *fakeRepo) GetFlag(context.Context, string) (*engine.Flag, error) {
	return nil, store.ErrNotFound
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := New(nil, Config{Interval: 0}, &fakeRepo{}, registry.New(nil))
	assert.Equal(t, 30*time.Second, s.config.Interval, "sub-second intervals floor to the default")

	assert.Panics(t, func() { New(nil, Config{}, nil, registry.New(nil)) })
	assert.Panics(t, func() { New(nil, Config{}, &fakeRepo{}, nil) })
}

func TestRun_HydratesImmediately(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	repo.set([]engine.Flag{
		{Key: "from-db-a", Enabled: true},
		{Key: "from-db-b", Enabled: false},
	}, nil)

	reg := registry.New(nil)
	s := New(nil, Config{Interval: time.Hour}, repo, reg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	// The first sync happens before the first tick.
	require.Eventually(t, func() bool { return reg.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	_, ok := reg.Lookup("from-db-a")
	assert.True(t, ok)

	cancel()
	<-done
}

func TestRun_FailedCycleKeepsServingOldFlags(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	repo.set([]engine.Flag{{Key: "survivor", Enabled: true}}, nil)

	reg := registry.New(nil)

	// Direct sync calls keep the test free of timing assumptions.
	s := New(nil, Config{Interval: time.Hour}, repo, reg)
	require.NoError(t, s.sync(context.Background()))
	require.Equal(t, 1, reg.Len())

	repo.set(nil, errors.New("connection refused"))
	assert.Error(t, s.sync(context.Background()))

	// The registry still holds the last good set.
	_, ok := reg.Lookup("survivor")
	assert.True(t, ok)
}

func TestSync_ReplacesDeletedFlags(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	repo.set([]engine.Flag{{Key: "a"}, {Key: "b"}}, nil)

	reg := registry.New(nil)
	s := New(nil, Config{Interval: time.Hour}, repo, reg)

	require.NoError(t, s.sync(context.Background()))
	require.Equal(t, 2, reg.Len())

	// Flag "b" disappears from the store; hydration must drop it.
	repo.set([]engine.Flag{{Key: "a"}}, nil)
	require.NoError(t, s.sync(context.Background()))

	assert.Equal(t, 1, reg.Len())
	_, ok := reg.Lookup("b")
	assert.False(t, ok)
	assert.Equal(t, 2, repo.callCount())
}
