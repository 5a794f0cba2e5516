package repository

import (
	"context"
	"database/sql"
)

// ClockRepository maintains the per-tenant Lamport counter.
type ClockRepository interface {
	// Advance atomically sets the counter to max(current, incoming)+1 and
	// returns the new value. The upsert takes a row lock, so concurrent
	// writers are serialized and can never observe the same maximum.
	Advance(ctx context.Context, tx *sql.Tx, tenantID string, incoming int64) (int64, error)
	Current(ctx context.Context, tx *sql.Tx, tenantID string) (int64, error)
}

type clockRepo struct{}

func NewClockRepository() ClockRepository {
	return &clockRepo{}
}

func (r *clockRepo) Advance(ctx context.Context, tx *sql.Tx, tenantID string, incoming int64) (int64, error) {
	var value int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO sync_clocks (tenant_id, current_value)
		VALUES ($1, $2 + 1)
		ON CONFLICT (tenant_id) DO UPDATE
		SET current_value = GREATEST(sync_clocks.current_value, $2) + 1
		RETURNING current_value
	`, tenantID, incoming).Scan(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (r *clockRepo) Current(ctx context.Context, tx *sql.Tx, tenantID string) (int64, error) {
	var value int64
	err := tx.QueryRowContext(ctx, `
		SELECT current_value FROM sync_clocks WHERE tenant_id = $1
	`, tenantID).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}
