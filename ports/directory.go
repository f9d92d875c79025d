package ports

import (
	"context"

	"github.com/listforge/trustgate/core"
)

// UserDirectory looks up wallet-backed accounts, creating them lazily on
// first sign-in.
type UserDirectory interface {
	GetOrCreateByAddress(ctx context.Context, address string) (*core.User, error)
}
