package repository

import (
	"context"
	"database/sql"
	"time"

	"agrosync-server/internal/domain"
)

// ConflictRepository persists the conflict audit trail.
type ConflictRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, c *domain.SyncConflict) error
	FindByID(ctx context.Context, tx *sql.Tx, id string) (*domain.SyncConflict, error)
	// ListByStatus returns conflicts with the given status, most recent first.
	ListByStatus(ctx context.Context, tx *sql.Tx, status domain.ConflictStatus, limit int) ([]*domain.SyncConflict, error)
	MarkResolvedManual(ctx context.Context, tx *sql.Tx, id, winnerID, resolvedBy string, feedback *string, at time.Time) error
}

type conflictRepo struct{}

func NewConflictRepository() ConflictRepository {
	return &conflictRepo{}
}

const conflictColumns = `id, tenant_id, detected_at, entity_type, entity_id,
	operation_a_id, operation_b_id, payload_a, payload_b,
	status, resolution_method, winner_id, resolution_reason, confidence,
	resolved_by, resolved_at, user_feedback`

func (r *conflictRepo) Insert(ctx context.Context, tx *sql.Tx, c *domain.SyncConflict) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_conflicts (`+conflictColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		c.ID, c.TenantID, c.DetectedAt, c.EntityType, c.EntityID,
		c.OperationAID, c.OperationBID, []byte(c.PayloadA), []byte(c.PayloadB),
		c.Status, c.ResolutionMethod, c.WinnerID, c.ResolutionReason, c.Confidence,
		c.ResolvedBy, c.ResolvedAt, c.UserFeedback,
	)
	return err
}

func (r *conflictRepo) FindByID(ctx context.Context, tx *sql.Tx, id string) (*domain.SyncConflict, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+conflictColumns+`
		FROM sync_conflicts
		WHERE id = $1
	`, id)

	c, err := scanConflict(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *conflictRepo) ListByStatus(ctx context.Context, tx *sql.Tx, status domain.ConflictStatus, limit int) ([]*domain.SyncConflict, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+conflictColumns+`
		FROM sync_conflicts
		WHERE status = $1
		ORDER BY detected_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []*domain.SyncConflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

func (r *conflictRepo) MarkResolvedManual(ctx context.Context, tx *sql.Tx, id, winnerID, resolvedBy string, feedback *string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE sync_conflicts SET
			status = $2, winner_id = $3, resolved_by = $4, resolved_at = $5, user_feedback = $6
		WHERE id = $1
	`, id, domain.ConflictResolvedManual, winnerID, resolvedBy, at, feedback)
	return err
}

func scanConflict(row rowScanner) (*domain.SyncConflict, error) {
	var c domain.SyncConflict
	var payloadA, payloadB []byte

	err := row.Scan(
		&c.ID, &c.TenantID, &c.DetectedAt, &c.EntityType, &c.EntityID,
		&c.OperationAID, &c.OperationBID, &payloadA, &payloadB,
		&c.Status, &c.ResolutionMethod, &c.WinnerID, &c.ResolutionReason, &c.Confidence,
		&c.ResolvedBy, &c.ResolvedAt, &c.UserFeedback,
	)
	if err != nil {
		return nil, err
	}

	c.PayloadA = payloadA
	c.PayloadB = payloadB
	return &c, nil
}
