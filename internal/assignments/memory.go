package assignments

import (
	"context"
	"time"

	"github.com/maypok86/otter"
)

// Compile-time check.
var _ Store = (*Memory)(nil)

// Memory is the in-process assignment store, backed by otter's S3-FIFO
// cache. The capacity is a hard cap against unbounded growth (one entry per
// distinct user/flag pair adds up fast); an evicted assignment recomputes
// identically as long as the flag definition is unchanged.
type Memory struct {
	store otter.Cache[string, string]
}

// NewMemory creates the store. capacity caps the number of entries; ttl of
// zero disables expiry.
func NewMemory(capacity int, ttl time.Duration) (*Memory, error) {
	builder := otter.MustBuilder[string, string](capacity)

	var (
		cache otter.Cache[string, string]
		err   error
	)
	if ttl > 0 {
		cache, err = builder.WithTTL(ttl).Build()
	} else {
		cache, err = builder.Build()
	}
	if err != nil {
		return nil, err
	}

	return &Memory{store: cache}, nil
}

// memoryKey joins the pair with a separator that cannot appear in flag keys
// (slug format) and is vanishingly unlikely in user IDs.
func memoryKey(userID, flagKey string) string {
	return userID + "\x1f" + flagKey
}

// Get retrieves an assignment. Lock-free and extremely fast.
func (m *Memory) Get(_ context.Context, userID, flagKey string) (string, bool) {
	return m.store.Get(memoryKey(userID, flagKey))
}

// Put stores an assignment. The configured TTL applies automatically.
func (m *Memory) Put(_ context.Context, userID, flagKey, variant string) {
	m.store.Set(memoryKey(userID, flagKey), variant)
}

// Delete clears an assignment.
func (m *Memory) Delete(_ context.Context, userID, flagKey string) {
	m.store.Delete(memoryKey(userID, flagKey))
}

// Close shuts down the cache and its background cleanup goroutines.
func (m *Memory) Close() {
	m.store.Close()
}
