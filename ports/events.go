package ports

import (
	"context"

	"github.com/listforge/trustgate/core"
)

// EventPublisher notifies other instances about security-relevant changes.
type EventPublisher interface {
	// PublishLogout announces a revoked credential
	PublishLogout(ctx context.Context, address string, tokenID string) error

	// PublishSettlement announces a recorded payment
	PublishSettlement(ctx context.Context, p core.Payment) error
}
