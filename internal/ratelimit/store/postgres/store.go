// Package postgres implements the durable fallback counter store: one row per
// key, used only while the primary store is unavailable or too slow.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gatekeeper/pkg/requestcontext"
)

// Store persists fixed-window counters in PostgreSQL. Increment is a single
// atomic upsert keyed on identifier_key: concurrent increments for the same
// key serialize on the row, so no increment is ever lost, and an expired
// window rolls over to a fresh one inside the same statement.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the counter table when it does not exist yet. Called
// once at startup; deployments with managed migrations can skip it.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS rate_limit_counters (
			identifier_key TEXT PRIMARY KEY,
			request_count  INTEGER NOT NULL,
			reset_at       BIGINT  NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS rate_limit_counters_reset_at_idx
			ON rate_limit_counters (reset_at);
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure rate_limit_counters schema: %w", err)
	}
	return nil
}

// Increment bumps the counter for key within its current window, starting a
// new window when none exists or the previous one expired.
func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := requestcontext.Now(ctx)
	newResetAt := now.Add(window).Unix()

	const query = `
		INSERT INTO rate_limit_counters (identifier_key, request_count, reset_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (identifier_key) DO UPDATE SET
			request_count = CASE WHEN rate_limit_counters.reset_at > $3
			                     THEN rate_limit_counters.request_count + 1 ELSE 1 END,
			reset_at      = CASE WHEN rate_limit_counters.reset_at > $3
			                     THEN rate_limit_counters.reset_at ELSE $2 END,
			updated_at    = NOW()
		RETURNING request_count, reset_at
	`

	var count int
	var resetAtUnix int64
	err := s.db.QueryRowContext(ctx, query, key, newResetAt, now.Unix()).Scan(&count, &resetAtUnix)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("increment fallback counter: %w", err)
	}
	return count, time.Unix(resetAtUnix, 0), nil
}

// Get returns the current count and reset time for a key, or (0, zero, nil)
// when no unexpired row exists. Inspection only; not part of the decision path.
func (s *Store) Get(ctx context.Context, key string) (int, time.Time, error) {
	now := requestcontext.Now(ctx)

	var count int
	var resetAtUnix int64
	err := s.db.QueryRowContext(ctx,
		`SELECT request_count, reset_at FROM rate_limit_counters WHERE identifier_key = $1 AND reset_at > $2`,
		key, now.Unix(),
	).Scan(&count, &resetAtUnix)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("get fallback counter: %w", err)
	}
	return count, time.Unix(resetAtUnix, 0), nil
}

// Sweep removes rows whose window has passed. Routine maintenance driven by
// the worker, never by request traffic.
func (s *Store) Sweep(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_limit_counters WHERE reset_at <= $1`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("sweep fallback counters: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep rows affected: %w", err)
	}
	return int(rows), nil
}
