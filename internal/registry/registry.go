// Package registry holds the authoritative in-memory set of flag
// definitions. It is an explicit service object constructed once at startup
// and injected everywhere a flag lookup or mutation happens; there is no
// package-level state.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rafaeljc/verdandi/internal/engine"
	"github.com/rafaeljc/verdandi/internal/observability"
)

// Typed errors for the administrative surface. Evaluation never sees these:
// an absent flag on the read path is defined behavior, not an error.
var (
	ErrNotFound     = errors.New("flag not found")
	ErrDuplicateKey = errors.New("flag key already exists")
)

// Compile-time check: the registry is the engine's flag source.
var _ engine.FlagSource = (*Registry)(nil)

// Registry is a concurrency-safe map of flag key to definition.
//
// Flags are published copy-on-write: mutations build a fresh *engine.Flag
// and swap the pointer under the write lock, so a snapshot returned to an
// evaluator is never modified afterwards. Readers therefore need no lock
// beyond the map access.
type Registry struct {
	mu     sync.RWMutex
	flags  map[string]*engine.Flag
	logger *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		flags:  make(map[string]*engine.Flag),
		logger: logger,
	}
}

// Patch carries a partial update. Pointers distinguish "field omitted"
// (keep current value) from an explicit zero value.
type Patch struct {
	Name              *string
	Description       *string
	Enabled           *bool
	RolloutPercentage *int
	Conditions        *[]engine.Condition
	Variants          *[]engine.Variant
	Environment       *engine.Environment
}

// Create inserts a new flag. The ID is generated when absent and both
// timestamps are stamped. Returns ErrDuplicateKey when the key is taken.
func (r *Registry) Create(f engine.Flag) (*engine.Flag, error) {
	if f.Key == "" {
		return nil, fmt.Errorf("flag key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.flags[f.Key]; exists {
		return nil, fmt.Errorf("flag with key %q: %w", f.Key, ErrDuplicateKey)
	}

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	stored := f
	r.flags[f.Key] = &stored
	observability.RegistryFlags.Set(float64(len(r.flags)))

	r.logger.Info("flag created",
		slog.String("flag_key", f.Key),
		slog.String("flag_id", f.ID),
	)

	return &stored, nil
}

// Get returns the flag for key or ErrNotFound.
func (r *Registry) Get(key string) (*engine.Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flags[key]
	if !ok {
		return nil, fmt.Errorf("flag %q: %w", key, ErrNotFound)
	}
	return f, nil
}

// Lookup implements engine.FlagSource. The returned snapshot is immutable.
func (r *Registry) Lookup(key string) (*engine.Flag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flags[key]
	return f, ok
}

// Update applies a partial update and refreshes UpdatedAt. An unknown key is
// an error here, unlike on the evaluation path: a mutation against a missing
// flag indicates operator mistake.
func (r *Registry) Update(key string, p Patch) (*engine.Flag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.flags[key]
	if !ok {
		return nil, fmt.Errorf("flag %q: %w", key, ErrNotFound)
	}

	// Copy-on-write: evaluators holding the old snapshot are unaffected.
	updated := *current

	if p.Name != nil {
		updated.Name = *p.Name
	}
	if p.Description != nil {
		updated.Description = *p.Description
	}
	if p.Enabled != nil {
		updated.Enabled = *p.Enabled
	}
	if p.RolloutPercentage != nil {
		updated.RolloutPercentage = *p.RolloutPercentage
	}
	if p.Conditions != nil {
		updated.Conditions = *p.Conditions
	}
	if p.Variants != nil {
		updated.Variants = *p.Variants
	}
	if p.Environment != nil {
		updated.Environment = *p.Environment
	}
	updated.UpdatedAt = time.Now().UTC()

	r.flags[key] = &updated

	r.logger.Info("flag updated", slog.String("flag_key", key))

	return &updated, nil
}

// Delete removes the flag. Deleting an absent key is a no-op (idempotent).
func (r *Registry) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flags[key]; !ok {
		return
	}
	delete(r.flags, key)
	observability.RegistryFlags.Set(float64(len(r.flags)))

	r.logger.Info("flag deleted", slog.String("flag_key", key))
}

// List returns all flags sorted by key.
func (r *Registry) List() []*engine.Flag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*engine.Flag, 0, len(r.flags))
	for _, f := range r.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ListByEnvironment returns the flags tagged with env, sorted by key.
func (r *Registry) ListByEnvironment(env engine.Environment) []*engine.Flag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*engine.Flag, 0)
	for _, f := range r.flags {
		if f.Environment == env {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Replace swaps the entire flag set in one step. Used by the syncer to
// hydrate the registry from the backing store.
func (r *Registry) Replace(flags []engine.Flag) {
	next := make(map[string]*engine.Flag, len(flags))
	for i := range flags {
		f := flags[i]
		next[f.Key] = &f
	}

	r.mu.Lock()
	r.flags = next
	r.mu.Unlock()

	observability.RegistryFlags.Set(float64(len(next)))
}

// Len returns the number of flags currently held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flags)
}
