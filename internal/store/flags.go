// Package store provides the optional PostgreSQL persistence layer for flag
// definitions. The engine never reads from here directly: the syncer
// hydrates the in-memory registry, which remains the evaluation source of
// truth. Without a database the service runs purely in memory.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/verdandi/internal/engine"
)

// ErrNotFound is returned for reads and updates against an unknown key.
var ErrNotFound = errors.New("flag not found")

// ErrDuplicateKey is returned when an insert collides on the natural key.
var ErrDuplicateKey = errors.New("flag key already exists")

// Compile-time check.
var _ FlagRepository = (*PostgresStore)(nil)

// FlagRepository defines flag persistence operations. The interface allows
// the control API and syncer to be tested against a fake.
type FlagRepository interface {
	// CreateFlag inserts a flag and populates the server-side timestamps.
	CreateFlag(ctx context.Context, f *engine.Flag) error

	// UpdateFlag replaces the stored definition for f.Key and refreshes
	// updated_at. Returns ErrNotFound for unknown keys.
	UpdateFlag(ctx context.Context, f *engine.Flag) error

	// DeleteFlag removes a flag by key. Idempotent.
	DeleteFlag(ctx context.Context, key string) error

	// GetFlag retrieves a flag by key, or ErrNotFound.
	GetFlag(ctx context.Context, key string) (*engine.Flag, error)

	// ListAllFlags returns every flag, ordered by key. Used by the syncer.
	ListAllFlags(ctx context.Context) ([]engine.Flag, error)
}

// PostgresStore implements FlagRepository over pgx.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a repository on the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresStore{db: db}
}

// CreateFlag inserts a flag. Conditions and variants are stored as JSONB.
func (s *PostgresStore) CreateFlag(ctx context.Context, f *engine.Flag) error {
	conditions, variants, err := marshalRules(f)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO flags (id, key, name, description, enabled, rollout_percentage, conditions, variants, environment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err = s.db.QueryRow(ctx, query,
		f.ID,
		f.Key,
		f.Name,
		f.Description,
		f.Enabled,
		f.RolloutPercentage,
		conditions,
		variants,
		string(f.Environment),
	).Scan(&f.CreatedAt, &f.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: unique_violation on the key column.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("flag with key %q: %w", f.Key, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert flag: %w", err)
	}

	return nil
}

// UpdateFlag replaces the full definition for f.Key.
func (s *PostgresStore) UpdateFlag(ctx context.Context, f *engine.Flag) error {
	conditions, variants, err := marshalRules(f)
	if err != nil {
		return err
	}

	query := `
		UPDATE flags
		SET name = $2, description = $3, enabled = $4, rollout_percentage = $5,
		    conditions = $6, variants = $7, environment = $8, updated_at = now()
		WHERE key = $1
		RETURNING updated_at
	`

	err = s.db.QueryRow(ctx, query,
		f.Key,
		f.Name,
		f.Description,
		f.Enabled,
		f.RolloutPercentage,
		conditions,
		variants,
		string(f.Environment),
	).Scan(&f.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("flag %q: %w", f.Key, ErrNotFound)
		}
		return fmt.Errorf("failed to update flag: %w", err)
	}

	return nil
}

// DeleteFlag removes a flag by key. Absent keys are not an error.
func (s *PostgresStore) DeleteFlag(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM flags WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete flag: %w", err)
	}
	return nil
}

// GetFlag retrieves a single flag by key.
func (s *PostgresStore) GetFlag(ctx context.Context, key string) (*engine.Flag, error) {
	query := `
		SELECT id, key, name, description, enabled, rollout_percentage, conditions, variants, environment, created_at, updated_at
		FROM flags
		WHERE key = $1
	`

	f, err := scanFlag(s.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("flag %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get flag: %w", err)
	}

	return f, nil
}

// ListAllFlags returns every flag ordered by key (deterministic).
func (s *PostgresStore) ListAllFlags(ctx context.Context) ([]engine.Flag, error) {
	query := `
		SELECT id, key, name, description, enabled, rollout_percentage, conditions, variants, environment, created_at, updated_at
		FROM flags
		ORDER BY key
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	defer rows.Close()

	var flags []engine.Flag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flag row: %w", err)
		}
		flags = append(flags, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return flags, nil
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlag(row rowScanner) (*engine.Flag, error) {
	var (
		f           engine.Flag
		conditions  []byte
		variants    []byte
		environment string
		createdAt   time.Time
		updatedAt   time.Time
	)

	if err := row.Scan(
		&f.ID,
		&f.Key,
		&f.Name,
		&f.Description,
		&f.Enabled,
		&f.RolloutPercentage,
		&conditions,
		&variants,
		&environment,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &f.Conditions); err != nil {
			return nil, fmt.Errorf("corrupt conditions for flag %q: %w", f.Key, err)
		}
	}
	if len(variants) > 0 {
		if err := json.Unmarshal(variants, &f.Variants); err != nil {
			return nil, fmt.Errorf("corrupt variants for flag %q: %w", f.Key, err)
		}
	}

	f.Environment = engine.Environment(environment)
	f.CreatedAt = createdAt
	f.UpdatedAt = updatedAt

	return &f, nil
}

func marshalRules(f *engine.Flag) (conditions, variants []byte, err error) {
	// Empty lists are stored as "[]" rather than NULL so scans round-trip.
	if f.Conditions == nil {
		conditions = []byte("[]")
	} else if conditions, err = json.Marshal(f.Conditions); err != nil {
		return nil, nil, fmt.Errorf("failed to marshal conditions: %w", err)
	}

	if f.Variants == nil {
		variants = []byte("[]")
	} else if variants, err = json.Marshal(f.Variants); err != nil {
		return nil, nil, fmt.Errorf("failed to marshal variants: %w", err)
	}

	return conditions, variants, nil
}
