// Package presence provides the cross-instance presence mirror. The
// mirror is observational: delivery decisions always run against the
// in-process registry.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

// redisClient defines the interface we need from go-redis.
type redisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisPresence implements notify.PresenceStore on Redis. Entries carry a
// TTL so a crashed instance's presence records age out on their own.
type RedisPresence struct {
	client redisClient
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisPresence is the constructor for the RedisPresence mirror.
func NewRedisPresence(client redisClient, ttl time.Duration, logger zerolog.Logger) (*RedisPresence, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisPresence{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "RedisPresence").Logger(),
	}, nil
}

// Set records the identity as present on this instance.
func (p *RedisPresence) Set(ctx context.Context, id notify.Identity, info notify.ConnectionInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal presence info: %w", err)
	}
	if err := p.client.Set(ctx, presenceKey(id), payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

// Delete clears the identity's presence record.
func (p *RedisPresence) Delete(ctx context.Context, id notify.Identity) error {
	if err := p.client.Del(ctx, presenceKey(id)).Err(); err != nil {
		return fmt.Errorf("delete presence: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (p *RedisPresence) Close() error {
	return p.client.Close()
}

func presenceKey(id notify.Identity) string {
	return fmt.Sprintf("presence:%s", id.String())
}
