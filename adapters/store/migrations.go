package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Migration is one named, ordered unit of schema change. Statements must be
// idempotent at the statement level: a crash after partial application and
// before the record insert means they run again on the next pass.
type Migration struct {
	ID         string
	Statements []string
}

// DefaultMigrations is the full ordered schema history.
func DefaultMigrations() []Migration {
	return []Migration{
		{
			ID: "001_create_users",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS users (
					id         TEXT PRIMARY KEY,
					address    TEXT NOT NULL UNIQUE,
					role       TEXT NOT NULL DEFAULT 'user',
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
			},
		},
		{
			ID: "002_create_payments",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS payments (
					tx_hash      TEXT PRIMARY KEY,
					from_address TEXT NOT NULL,
					to_address   TEXT NOT NULL,
					amount       NUMERIC(38, 18) NOT NULL,
					currency     TEXT NOT NULL,
					chain_id     BIGINT NOT NULL,
					action_type  TEXT NOT NULL,
					confirmed_at TIMESTAMPTZ NOT NULL,
					created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
			},
		},
		{
			ID: "003_create_listings",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS listings (
					id         TEXT PRIMARY KEY,
					owner_id   TEXT NOT NULL REFERENCES users (id),
					name       TEXT NOT NULL,
					visible    BOOLEAN NOT NULL DEFAULT FALSE,
					featured   BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
			},
		},
		{
			ID: "004_payments_related_entity",
			Statements: []string{
				`ALTER TABLE payments ADD COLUMN related_entity_id TEXT`,
			},
		},
		{
			ID: "005_listings_pinned",
			Statements: []string{
				`ALTER TABLE listings ADD COLUMN pinned BOOLEAN NOT NULL DEFAULT FALSE`,
			},
		},
	}
}

const (
	stateNotStarted int32 = iota
	stateInFlight
	stateDone
)

// Migrator applies the schema history exactly once per unit of change. The
// store itself is the coordination primitive: a schema_migrations row marks
// a migration applied, and a conditional lock-row insert keeps concurrently
// starting instances from running the same statements at the same time. The
// in-process state only keeps a single instance from running two passes.
type Migrator struct {
	db      *sqlx.DB
	defs    []Migration
	log     zerolog.Logger
	lockTTL time.Duration

	state atomic.Int32
}

// NewMigrator creates a migrator over the given definitions, applied in
// declaration order.
func NewMigrator(db *sqlx.DB, defs []Migration, log zerolog.Logger) *Migrator {
	return &Migrator{
		db:      db,
		defs:    defs,
		log:     log.With().Str("component", "migrator").Logger(),
		lockTTL: 5 * time.Minute,
	}
}

// RunAll applies every pending migration. It is safe to call any number of
// times from any number of request handlers: a second in-process call while
// a pass is in flight returns immediately, accepting the first's outcome,
// and a concurrent instance holding the store lock makes this call a no-op
// to be retried on the next invocation.
func (m *Migrator) RunAll(ctx context.Context) error {
	if !m.state.CompareAndSwap(stateNotStarted, stateInFlight) {
		return nil
	}

	done := false
	defer func() {
		if done {
			m.state.Store(stateDone)
		} else {
			// Failed or skipped pass: leave the runner retryable.
			m.state.Store(stateNotStarted)
		}
	}()

	if err := m.ensureBookkeeping(ctx); err != nil {
		m.log.Error().Err(err).Msg("migration bookkeeping failed")
		return err
	}

	acquired, err := m.acquireLock(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("migration lock failed")
		return err
	}
	if !acquired {
		m.log.Info().Msg("another instance is migrating, skipping pass")
		return nil
	}
	defer m.releaseLock(ctx)

	for _, def := range m.defs {
		if err := m.apply(ctx, def); err != nil {
			m.log.Error().Err(err).Str("migration", def.ID).Msg("migration failed")
			return fmt.Errorf("migration %s: %w", def.ID, err)
		}
	}

	done = true
	return nil
}

func (m *Migrator) apply(ctx context.Context, def Migration) error {
	var executed bool
	err := m.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE id = $1)
	`, def.ID).Scan(&executed)
	if err != nil {
		return fmt.Errorf("check record: %w", err)
	}
	if executed {
		return nil
	}

	for _, stmt := range def.Statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			if isAlreadyExists(err) {
				// A prior partial pass got here before crashing.
				m.log.Debug().Str("migration", def.ID).Msg("statement already applied")
				continue
			}
			return err
		}
	}

	if _, err := m.db.ExecContext(ctx, `
		INSERT INTO schema_migrations (id, executed_at) VALUES ($1, now())
	`, def.ID); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	m.log.Info().Str("migration", def.ID).Msg("migration applied")
	return nil
}

func (m *Migrator) ensureBookkeeping(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			id          TEXT PRIMARY KEY,
			executed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_migrations_lock (
			id        INT PRIMARY KEY,
			locked_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// acquireLock takes the cross-instance advisory lock with a conditional
// insert. A lock older than lockTTL is treated as abandoned by a crashed
// instance and taken over.
func (m *Migrator) acquireLock(ctx context.Context) (bool, error) {
	if _, err := m.db.ExecContext(ctx, `
		DELETE FROM schema_migrations_lock WHERE id = 1 AND locked_at < now() - $1::interval
	`, fmt.Sprintf("%d seconds", int(m.lockTTL.Seconds()))); err != nil {
		return false, err
	}

	result, err := m.db.ExecContext(ctx, `
		INSERT INTO schema_migrations_lock (id, locked_at) VALUES (1, now())
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (m *Migrator) releaseLock(ctx context.Context) {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM schema_migrations_lock WHERE id = 1`); err != nil {
		m.log.Warn().Err(err).Msg("failed to release migration lock")
	}
}

// isAlreadyExists matches the "already exists" error class for additive
// schema changes: duplicate column, table, object or schema.
func isAlreadyExists(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "42701", "42P07", "42710", "42P06":
		return true
	}
	return false
}
