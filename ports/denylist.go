package ports

import (
	"context"
	"time"
)

// Denylist holds revoked credential IDs until their natural expiry. It is
// the server-side logout mechanism layered on otherwise stateless
// credentials.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
