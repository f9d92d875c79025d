package store

import (
	"context"
	"sort"
	"sync"

	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/ports"
)

// MemoryLedger is an in-memory PaymentLedger for tests and local
// development. It honors the same contract as the Postgres ledger: exactly
// one RecordOnce per transaction hash succeeds, and apply runs inside the
// same critical section so a failed apply leaves no record.
type MemoryLedger struct {
	mu       sync.Mutex
	payments map[string]core.Payment
}

var _ ports.PaymentLedger = (*MemoryLedger)(nil)

// NewMemoryLedger creates a new in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{payments: make(map[string]core.Payment)}
}

func (l *MemoryLedger) Exists(ctx context.Context, txHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.payments[txHash]
	return ok, nil
}

func (l *MemoryLedger) RecordOnce(ctx context.Context, p core.Payment, apply ports.ApplyFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.payments[p.TxHash]; ok {
		return core.ErrPaymentAlreadyRecorded
	}
	if apply != nil {
		if err := apply(ctx, nil); err != nil {
			return err
		}
	}
	l.payments[p.TxHash] = p
	return nil
}

func (l *MemoryLedger) List(ctx context.Context, limit int) ([]core.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]core.Payment, 0, len(l.payments))
	for _, p := range l.payments {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
