package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"agrosync-server/pkg/canonical"
)

type ReconciliationStatus string

const (
	ReconciliationPending   ReconciliationStatus = "PENDING"
	ReconciliationConfirmed ReconciliationStatus = "CONFIRMED"
	ReconciliationFailed    ReconciliationStatus = "FAILED"
)

// PendingPayment is an offline payment awaiting reconciliation, replicated
// with last-write-wins semantics like Product.
type PendingPayment struct {
	SyncMeta

	SaleID        string          `json:"sale_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`

	POSTransactionID *string `json:"pos_transaction_id,omitempty"`
	POSDeviceID      *string `json:"pos_device_id,omitempty"`

	Reconciled           bool                 `json:"reconciled"`
	ReconciledAt         *time.Time           `json:"reconciled_at,omitempty"`
	ReconciliationStatus ReconciliationStatus `json:"reconciliation_status"`

	ReceiptPhoto *string `json:"receipt_photo,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

func (p *PendingPayment) ContentFields() map[string]interface{} {
	return map[string]interface{}{
		"id":                    p.ID,
		"tenant_id":             p.TenantID,
		"sale_id":               p.SaleID,
		"amount":                p.Amount,
		"payment_method":        p.PaymentMethod,
		"pos_transaction_id":    p.POSTransactionID,
		"pos_device_id":         p.POSDeviceID,
		"reconciled":            p.Reconciled,
		"reconciliation_status": p.ReconciliationStatus,
		"receipt_photo":         p.ReceiptPhoto,
		"notes":                 p.Notes,
		"device_id":             p.DeviceID,
		"device_type":           p.DeviceType,
		"is_deleted":            p.IsDeleted,
		"created_by":            p.CreatedBy,
		"updated_by":            p.UpdatedBy,
	}
}

func (p *PendingPayment) ComputeContentHash() (string, error) {
	return canonical.Hash(p.ContentFields())
}

// PendingPaymentSync is the push payload for a pending payment snapshot.
type PendingPaymentSync struct {
	ID string `json:"id" validate:"required,uuid"`

	SaleID        string          `json:"sale_id" validate:"required,uuid"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=CASH POS_OFFLINE TRANSFER"`

	POSTransactionID *string `json:"pos_transaction_id"`
	POSDeviceID      *string `json:"pos_device_id"`

	Reconciled           bool                 `json:"reconciled"`
	ReconciledAt         *time.Time           `json:"reconciled_at"`
	ReconciliationStatus ReconciliationStatus `json:"reconciliation_status" validate:"omitempty,oneof=PENDING CONFIRMED FAILED"`

	ReceiptPhoto *string `json:"receipt_photo"`
	Notes        *string `json:"notes"`

	DeviceID   string     `json:"device_id" validate:"required,uuid"`
	DeviceType DeviceType `json:"device_type" validate:"required,oneof=WEB MOBILE DESKTOP"`

	LamportTS int64 `json:"lamport_ts" validate:"min=0"`
	Version   int   `json:"version"`
	IsDeleted bool  `json:"is_deleted"`

	CreatedBy string `json:"created_by" validate:"required,uuid"`
	UpdatedBy string `json:"updated_by" validate:"required,uuid"`
}

func (r *PendingPaymentSync) ToPayment(tenantID string) (*PendingPayment, error) {
	now := time.Now().UTC()
	version := r.Version
	if version == 0 {
		version = 1
	}
	status := r.ReconciliationStatus
	if status == "" {
		status = ReconciliationPending
	}

	p := &PendingPayment{
		SyncMeta: SyncMeta{
			ID:         r.ID,
			TenantID:   tenantID,
			Version:    version,
			LamportTS:  r.LamportTS,
			DeviceID:   r.DeviceID,
			DeviceType: r.DeviceType,
			CreatedAt:  now,
			UpdatedAt:  now,
			IsDeleted:  r.IsDeleted,
			CreatedBy:  r.CreatedBy,
			UpdatedBy:  r.UpdatedBy,
		},
		SaleID:               r.SaleID,
		Amount:               r.Amount,
		PaymentMethod:        r.PaymentMethod,
		POSTransactionID:     r.POSTransactionID,
		POSDeviceID:          r.POSDeviceID,
		Reconciled:           r.Reconciled,
		ReconciledAt:         r.ReconciledAt,
		ReconciliationStatus: status,
		ReceiptPhoto:         r.ReceiptPhoto,
		Notes:                r.Notes,
	}

	hash, err := p.ComputeContentHash()
	if err != nil {
		return nil, err
	}
	p.ContentHash = hash

	return p, nil
}
