package store

import (
	"context"
	"sync"
	"time"

	"github.com/listforge/trustgate/ports"
)

// MemoryDenylist is an in-memory implementation of the Denylist interface
type MemoryDenylist struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryDenylist creates a new in-memory denylist
func NewMemoryDenylist() ports.Denylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time)}
}

// Revoke marks a credential as revoked until its natural expiry
func (d *MemoryDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[tokenID] = time.Now().Add(ttl)
	return nil
}

// IsRevoked checks whether a credential is currently revoked
func (d *MemoryDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	d.mu.RLock()
	expiry, exists := d.revoked[tokenID]
	d.mu.RUnlock()

	if !exists {
		return false, nil
	}
	if time.Now().After(expiry) {
		// Entry outlived the credential; drop it lazily.
		d.mu.Lock()
		if stored, ok := d.revoked[tokenID]; ok && !stored.After(expiry) {
			delete(d.revoked, tokenID)
		}
		d.mu.Unlock()
		return false, nil
	}
	return true, nil
}
