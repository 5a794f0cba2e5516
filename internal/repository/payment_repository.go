package repository

import (
	"context"
	"database/sql"

	"agrosync-server/internal/domain"
)

// PaymentRepository persists replicated pending-payment state with the same
// contract as ProductRepository.
type PaymentRepository interface {
	FindByID(ctx context.Context, tx *sql.Tx, id string) (*domain.PendingPayment, error)
	Insert(ctx context.Context, tx *sql.Tx, p *domain.PendingPayment) error
	Replace(ctx context.Context, tx *sql.Tx, p *domain.PendingPayment) error
}

type paymentRepo struct{}

func NewPaymentRepository() PaymentRepository {
	return &paymentRepo{}
}

const paymentColumns = `id, tenant_id, sale_id, amount, payment_method,
	pos_transaction_id, pos_device_id, reconciled, reconciled_at, reconciliation_status,
	receipt_photo, notes,
	version, lamport_ts, device_id, device_type,
	created_at, updated_at, synced_at, is_deleted, deleted_at,
	content_hash, created_by, updated_by`

func (r *paymentRepo) FindByID(ctx context.Context, tx *sql.Tx, id string) (*domain.PendingPayment, error) {
	var p domain.PendingPayment
	err := tx.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM pending_payments
		WHERE id = $1
	`, id).Scan(
		&p.ID, &p.TenantID, &p.SaleID, &p.Amount, &p.PaymentMethod,
		&p.POSTransactionID, &p.POSDeviceID, &p.Reconciled, &p.ReconciledAt, &p.ReconciliationStatus,
		&p.ReceiptPhoto, &p.Notes,
		&p.Version, &p.LamportTS, &p.DeviceID, &p.DeviceType,
		&p.CreatedAt, &p.UpdatedAt, &p.SyncedAt, &p.IsDeleted, &p.DeletedAt,
		&p.ContentHash, &p.CreatedBy, &p.UpdatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) Insert(ctx context.Context, tx *sql.Tx, p *domain.PendingPayment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO pending_payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`,
		p.ID, p.TenantID, p.SaleID, p.Amount, p.PaymentMethod,
		p.POSTransactionID, p.POSDeviceID, p.Reconciled, p.ReconciledAt, p.ReconciliationStatus,
		p.ReceiptPhoto, p.Notes,
		p.Version, p.LamportTS, p.DeviceID, p.DeviceType,
		p.CreatedAt, p.UpdatedAt, p.SyncedAt, p.IsDeleted, p.DeletedAt,
		p.ContentHash, p.CreatedBy, p.UpdatedBy,
	)
	return err
}

func (r *paymentRepo) Replace(ctx context.Context, tx *sql.Tx, p *domain.PendingPayment) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE pending_payments SET
			sale_id = $2, amount = $3, payment_method = $4,
			pos_transaction_id = $5, pos_device_id = $6,
			reconciled = $7, reconciled_at = $8, reconciliation_status = $9,
			receipt_photo = $10, notes = $11,
			version = $12, lamport_ts = $13, device_id = $14, device_type = $15,
			updated_at = $16, synced_at = $17, is_deleted = $18, deleted_at = $19,
			content_hash = $20, updated_by = $21
		WHERE id = $1
	`,
		p.ID, p.SaleID, p.Amount, p.PaymentMethod,
		p.POSTransactionID, p.POSDeviceID,
		p.Reconciled, p.ReconciledAt, p.ReconciliationStatus,
		p.ReceiptPhoto, p.Notes,
		p.Version, p.LamportTS, p.DeviceID, p.DeviceType,
		p.UpdatedAt, p.SyncedAt, p.IsDeleted, p.DeletedAt,
		p.ContentHash, p.UpdatedBy,
	)
	return err
}
