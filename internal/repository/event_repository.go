package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"agrosync-server/internal/domain"
)

// EventRepository persists the append-only stock event ledger. Find methods
// return (nil, nil) when no row matches.
type EventRepository interface {
	FindByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (*domain.StockEvent, error)
	Insert(ctx context.Context, tx *sql.Tx, ev *domain.StockEvent) error
	// ListRecentByProduct returns the most recent non-deleted events on a
	// product, newest first, excluding the given event id.
	ListRecentByProduct(ctx context.Context, tx *sql.Tx, productID, excludeID string, limit int) ([]*domain.StockEvent, error)
	// ListAfter returns non-deleted events with lamport_ts strictly greater
	// than the cursor, ascending.
	ListAfter(ctx context.Context, tx *sql.Tx, lamport int64, limit int) ([]*domain.StockEvent, error)
}

type eventRepo struct{}

func NewEventRepository() EventRepository {
	return &eventRepo{}
}

const eventColumns = `id, tenant_id, product_id, operation, delta, reason,
	payment_status, amount, location_lat, location_lng, idempotency_key,
	version, lamport_ts, device_id, device_type,
	created_at, updated_at, synced_at, is_deleted, deleted_at,
	content_hash, created_by, updated_by`

func (r *eventRepo) FindByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (*domain.StockEvent, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM stock_events
		WHERE idempotency_key = $1
	`, key)

	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *eventRepo) Insert(ctx context.Context, tx *sql.Tx, ev *domain.StockEvent) error {
	var amount decimal.NullDecimal
	if ev.Amount != nil {
		amount = decimal.NullDecimal{Decimal: *ev.Amount, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`,
		ev.ID, ev.TenantID, ev.ProductID, ev.Operation, ev.Delta, ev.Reason,
		nullPaymentStatus(ev.PaymentStatus), amount, ev.LocationLat, ev.LocationLng, ev.IdempotencyKey,
		ev.Version, ev.LamportTS, ev.DeviceID, ev.DeviceType,
		ev.CreatedAt, ev.UpdatedAt, ev.SyncedAt, ev.IsDeleted, ev.DeletedAt,
		ev.ContentHash, ev.CreatedBy, ev.UpdatedBy,
	)
	return err
}

func (r *eventRepo) ListRecentByProduct(ctx context.Context, tx *sql.Tx, productID, excludeID string, limit int) ([]*domain.StockEvent, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM stock_events
		WHERE product_id = $1 AND is_deleted = FALSE AND id <> $2
		ORDER BY lamport_ts DESC
		LIMIT $3
	`, productID, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *eventRepo) ListAfter(ctx context.Context, tx *sql.Tx, lamport int64, limit int) ([]*domain.StockEvent, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM stock_events
		WHERE lamport_ts > $1 AND is_deleted = FALSE
		ORDER BY lamport_ts ASC
		LIMIT $2
	`, lamport, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*domain.StockEvent, error) {
	var ev domain.StockEvent
	var paymentStatus sql.NullString
	var amount decimal.NullDecimal

	err := row.Scan(
		&ev.ID, &ev.TenantID, &ev.ProductID, &ev.Operation, &ev.Delta, &ev.Reason,
		&paymentStatus, &amount, &ev.LocationLat, &ev.LocationLng, &ev.IdempotencyKey,
		&ev.Version, &ev.LamportTS, &ev.DeviceID, &ev.DeviceType,
		&ev.CreatedAt, &ev.UpdatedAt, &ev.SyncedAt, &ev.IsDeleted, &ev.DeletedAt,
		&ev.ContentHash, &ev.CreatedBy, &ev.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	if paymentStatus.Valid {
		status := domain.PaymentStatus(paymentStatus.String)
		ev.PaymentStatus = &status
	}
	if amount.Valid {
		ev.Amount = &amount.Decimal
	}

	return &ev, nil
}

func scanEvents(rows *sql.Rows) ([]*domain.StockEvent, error) {
	var events []*domain.StockEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func nullPaymentStatus(s *domain.PaymentStatus) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}
