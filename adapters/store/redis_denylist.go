package store

import (
	"context"
	"fmt"
	"time"

	"github.com/listforge/trustgate/ports"
	"github.com/redis/go-redis/v9"
)

// RedisDenylist is a Redis implementation of the Denylist interface, shared
// across instances so a logout on one is observed by all.
type RedisDenylist struct {
	client *redis.Client
	prefix string
}

// NewRedisDenylist creates a new Redis denylist
func NewRedisDenylist(client *redis.Client) ports.Denylist {
	return &RedisDenylist{
		client: client,
		prefix: "trustgate:revoked:",
	}
}

// Revoke marks a credential as revoked in Redis for ttl
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	key := d.prefix + tokenID
	if err := d.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks whether a credential is revoked in Redis
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	key := d.prefix + tokenID
	val, err := d.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return val > 0, nil
}
