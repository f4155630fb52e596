package assignments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces assignment keys in Redis.
// Example: "assignment:user-42:search-ranking-experiment".
const keyPrefix = "assignment"

// Compile-time check.
var _ Store = (*Redis)(nil)

// Redis is the distributed assignment store. Stickiness survives process
// restarts and is shared across replicas.
//
// Redis errors are logged and swallowed: a miss triggers a deterministic
// recomputation, so availability of this store is a durability concern, not
// a correctness one.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis wraps an initialized client. ttl of zero stores assignments
// without expiry.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if client == nil {
		panic("assignments: redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func redisKey(userID, flagKey string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, userID, flagKey)
}

// Get retrieves an assignment; any Redis failure reads as a miss.
func (s *Redis) Get(ctx context.Context, userID, flagKey string) (string, bool) {
	v, err := s.client.Get(ctx, redisKey(userID, flagKey)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("assignment lookup failed, treating as miss",
				slog.String("flag_key", flagKey),
				slog.String("error", err.Error()),
			)
		}
		return "", false
	}
	return v, true
}

// Put stores an assignment; failures are logged and dropped.
func (s *Redis) Put(ctx context.Context, userID, flagKey, variant string) {
	if err := s.client.Set(ctx, redisKey(userID, flagKey), variant, s.ttl).Err(); err != nil {
		s.logger.Warn("assignment write failed",
			slog.String("flag_key", flagKey),
			slog.String("error", err.Error()),
		)
	}
}

// Delete clears an assignment.
func (s *Redis) Delete(ctx context.Context, userID, flagKey string) {
	if err := s.client.Del(ctx, redisKey(userID, flagKey)).Err(); err != nil {
		s.logger.Warn("assignment delete failed",
			slog.String("flag_key", flagKey),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the underlying client.
func (s *Redis) Close() {
	_ = s.client.Close()
}

// HealthChecker adapts the Redis client to the observability.Checker
// contract.
type HealthChecker struct {
	client *redis.Client
}

// NewHealthChecker creates a readiness checker for the given client.
func NewHealthChecker(client *redis.Client) *HealthChecker {
	return &HealthChecker{client: client}
}

// Name returns the component name.
func (h *HealthChecker) Name() string {
	return "redis"
}

// Check verifies connectivity with a ping.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return h.client.Ping(ctx).Err()
}
