package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/ports"
)

// Postgres implements the user directory and the payment ledger on a
// relational store. The ledger's uniqueness constraint on tx_hash is the
// idempotency barrier for settlement.
type Postgres struct {
	db *sqlx.DB
}

var _ ports.UserDirectory = (*Postgres)(nil)
var _ ports.PaymentLedger = (*Postgres)(nil)

// NewPostgres creates a store using the provided database handle.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// --- UserDirectory ----------------------------------------------------------

// GetOrCreateByAddress returns the user for address, creating it with the
// default role on first sign-in. A lost insert race falls back to re-reading
// the row the winner wrote.
func (s *Postgres) GetOrCreateByAddress(ctx context.Context, address string) (*core.User, error) {
	user, err := s.userByAddress(ctx, address)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, address, role, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), address, core.RoleUser, now)
	if err != nil && !isUniqueViolation(err) {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.userByAddress(ctx, address)
}

func (s *Postgres) userByAddress(ctx context.Context, address string) (*core.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, address, role, created_at
		FROM users
		WHERE lower(address) = lower($1)
	`, address)

	var user core.User
	if err := row.Scan(&user.ID, &user.Address, &user.Role, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- PaymentLedger ----------------------------------------------------------

func (s *Postgres) Exists(ctx context.Context, txHash string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM payments WHERE tx_hash = $1)
	`, txHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check payment: %w", err)
	}
	return exists, nil
}

// RecordOnce inserts the payment and runs apply inside the same database
// transaction, so a crash cannot leave a recorded payment without its
// unlocked action or vice versa. A duplicate tx_hash rolls everything back
// and reports core.ErrPaymentAlreadyRecorded.
func (s *Postgres) RecordOnce(ctx context.Context, p core.Payment, apply ports.ApplyFunc) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settlement tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments
			(tx_hash, from_address, to_address, amount, currency, chain_id,
			 action_type, related_entity_id, confirmed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.TxHash, p.FromAddress, p.ToAddress, p.Amount, p.Currency, p.ChainID,
		p.Action, nullable(p.RelatedEntityID), p.ConfirmedAt, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrPaymentAlreadyRecorded
		}
		return fmt.Errorf("record payment: %w", err)
	}

	if apply != nil {
		if err := apply(ctx, tx.Tx); err != nil {
			return fmt.Errorf("apply action: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settlement tx: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, limit int) ([]core.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_hash, from_address, to_address, amount, currency, chain_id,
		       action_type, COALESCE(related_entity_id, ''), confirmed_at, created_at
		FROM payments
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var result []core.Payment
	for rows.Next() {
		var p core.Payment
		if err := rows.Scan(&p.TxHash, &p.FromAddress, &p.ToAddress, &p.Amount,
			&p.Currency, &p.ChainID, &p.Action, &p.RelatedEntityID,
			&p.ConfirmedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- action application -----------------------------------------------------

// ApplyAction returns the in-transaction update for an unlocked action, or
// nil when the action has no listing-side effect (deploy creates its record
// after settlement).
func (s *Postgres) ApplyAction(action core.ActionType, entityID string) ports.ApplyFunc {
	var query string
	switch action {
	case core.ActionFeature:
		query = `UPDATE listings SET featured = TRUE WHERE id = $1`
	case core.ActionPin:
		query = `UPDATE listings SET pinned = TRUE WHERE id = $1`
	case core.ActionList:
		query = `UPDATE listings SET visible = TRUE WHERE id = $1`
	default:
		return nil
	}

	return func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, entityID)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fmt.Errorf("listing %s: %w", entityID, sql.ErrNoRows)
		}
		return nil
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
