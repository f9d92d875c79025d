package ports

import (
	"context"
	"database/sql"

	"github.com/listforge/trustgate/core"
)

// ApplyFunc runs the unlocked action inside the same transaction as the
// ledger insert. Implementations without transactional stores may invoke it
// with a nil tx.
type ApplyFunc func(ctx context.Context, tx *sql.Tx) error

// PaymentLedger is the uniqueness-constrained store of consumed payments.
// The transaction hash is the sole idempotency barrier: under concurrent or
// retried settlement of the same hash exactly one RecordOnce succeeds and
// every other caller observes core.ErrPaymentAlreadyRecorded.
type PaymentLedger interface {
	// Exists is a cheap pre-check so settlement can skip the chain lookup
	// for hashes that are already consumed. The RecordOnce insert, not this
	// check, is the source of truth.
	Exists(ctx context.Context, txHash string) (bool, error)

	// RecordOnce inserts the payment and, when apply is non-nil, runs the
	// unlocked action in the same atomic unit.
	RecordOnce(ctx context.Context, p core.Payment, apply ApplyFunc) error

	// List returns the most recently recorded payments.
	List(ctx context.Context, limit int) ([]core.Payment, error)
}
