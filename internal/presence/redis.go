package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration for the registry.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	// Prefix namespaces the registry keys (e.g. "chat:presence").
	Prefix string
	// SessionTTL bounds how long a session entry survives without the
	// owning process refreshing it; guards against leaked entries after
	// a crash.
	SessionTTL time.Duration
}

// RedisRegistry is a Registry backed by Redis sets, usable across
// multiple service instances.
//
// Key layout:
//
//	{prefix}:user:{user_id}:sessions   SET<session_id>
type RedisRegistry struct {
	client     *redis.Client
	prefix     string
	sessionTTL time.Duration
}

// NewRedisRegistry connects to Redis and returns a registry.
func NewRedisRegistry(cfg RedisConfig) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "chat:presence"
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisRegistry{
		client:     client,
		prefix:     prefix,
		sessionTTL: ttl,
	}, nil
}

func (r *RedisRegistry) userSessionsKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:sessions", r.prefix, userID)
}

func (r *RedisRegistry) Register(ctx context.Context, userID, sessionID string) error {
	key := r.userSessionsKey(userID)
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, key, sessionID)
	pipe.Expire(ctx, key, r.sessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRegistry) Unregister(ctx context.Context, userID, sessionID string) error {
	return r.client.SRem(ctx, r.userSessionsKey(userID), sessionID).Err()
}

func (r *RedisRegistry) SessionsFor(ctx context.Context, userID string) ([]string, error) {
	return r.client.SMembers(ctx, r.userSessionsKey(userID)).Result()
}

func (r *RedisRegistry) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.SCard(ctx, r.userSessionsKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the Redis connection.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
