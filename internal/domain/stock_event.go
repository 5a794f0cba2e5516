package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agrosync-server/pkg/canonical"
)

type OperationKind string

const (
	OperationIncrement OperationKind = "INCREMENT"
	OperationDecrement OperationKind = "DECREMENT"
	OperationSet       OperationKind = "SET"
)

type PaymentStatus string

const (
	PaymentPaid      PaymentStatus = "PAID"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// StockEvent is an append-only delta in the inventory ledger. Business fields
// are immutable once the row is persisted.
type StockEvent struct {
	SyncMeta

	ProductID string        `json:"product_id"`
	Operation OperationKind `json:"operation"`
	Delta     int64         `json:"delta"`
	Reason    string        `json:"reason"`

	PaymentStatus *PaymentStatus   `json:"payment_status,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`

	LocationLat *float64 `json:"location_lat,omitempty"`
	LocationLng *float64 `json:"location_lng,omitempty"`

	// Deterministic hash of business fields + device + creation time.
	IdempotencyKey string `json:"idempotency_key"`
}

// IsPaid reports whether the event carries a settled payment.
func (e *StockEvent) IsPaid() bool {
	return e.PaymentStatus != nil && *e.PaymentStatus == PaymentPaid
}

// ContentFields returns the business fields that define the event's identity
// for change detection. Sync metadata (content_hash, synced_at, lamport_ts,
// created_at, updated_at, version) is excluded so that identical business
// content always yields the identical hash.
func (e *StockEvent) ContentFields() map[string]interface{} {
	return map[string]interface{}{
		"id":             e.ID,
		"tenant_id":      e.TenantID,
		"product_id":     e.ProductID,
		"operation":      e.Operation,
		"delta":          e.Delta,
		"reason":         e.Reason,
		"payment_status": e.PaymentStatus,
		"amount":         e.Amount,
		"location_lat":   e.LocationLat,
		"location_lng":   e.LocationLng,
		"device_id":      e.DeviceID,
		"device_type":    e.DeviceType,
		"is_deleted":     e.IsDeleted,
		"created_by":     e.CreatedBy,
		"updated_by":     e.UpdatedBy,
	}
}

func (e *StockEvent) ComputeContentHash() (string, error) {
	return canonical.Hash(e.ContentFields())
}

// ComputeIdempotencyKey derives the resubmission-detection key from the
// operation's business identity and the device-side creation time.
func (e *StockEvent) ComputeIdempotencyKey() (string, error) {
	return canonical.Hash(map[string]interface{}{
		"product_id": e.ProductID,
		"operation":  e.Operation,
		"delta":      e.Delta,
		"device_id":  e.DeviceID,
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// StockEventCreate is the push payload for a single stock event.
type StockEventCreate struct {
	ProductID  string     `json:"product_id" validate:"required,uuid"`
	DeviceID   string     `json:"device_id" validate:"required,uuid"`
	DeviceType DeviceType `json:"device_type" validate:"required,oneof=WEB MOBILE DESKTOP"`

	Operation OperationKind `json:"operation" validate:"required,oneof=INCREMENT DECREMENT SET"`
	Delta     int64         `json:"delta"`
	Reason    string        `json:"reason" validate:"required"`

	PaymentStatus *PaymentStatus   `json:"payment_status" validate:"omitempty,oneof=PAID PENDING CANCELLED"`
	Amount        *decimal.Decimal `json:"amount"`

	LocationLat *float64 `json:"location_lat"`
	LocationLng *float64 `json:"location_lng"`

	LamportTS int64 `json:"lamport_ts" validate:"min=0"`
	Version   int   `json:"version"`

	CreatedAt *time.Time `json:"created_at"`
	CreatedBy string     `json:"created_by" validate:"required,uuid"`
	UpdatedBy string     `json:"updated_by" validate:"required,uuid"`

	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,len=64"`
}

// ToEvent builds the server-side event for the given tenant. The idempotency
// key is computed when the device did not supply one.
func (r *StockEventCreate) ToEvent(tenantID string) (*StockEvent, error) {
	now := time.Now().UTC()
	createdAt := now
	if r.CreatedAt != nil {
		createdAt = r.CreatedAt.UTC()
	}
	version := r.Version
	if version == 0 {
		version = 1
	}

	ev := &StockEvent{
		SyncMeta: SyncMeta{
			ID:         uuid.New().String(),
			TenantID:   tenantID,
			Version:    version,
			LamportTS:  r.LamportTS,
			DeviceID:   r.DeviceID,
			DeviceType: r.DeviceType,
			CreatedAt:  createdAt,
			UpdatedAt:  now,
			CreatedBy:  r.CreatedBy,
			UpdatedBy:  r.UpdatedBy,
		},
		ProductID:      r.ProductID,
		Operation:      r.Operation,
		Delta:          r.Delta,
		Reason:         r.Reason,
		PaymentStatus:  r.PaymentStatus,
		Amount:         r.Amount,
		LocationLat:    r.LocationLat,
		LocationLng:    r.LocationLng,
		IdempotencyKey: r.IdempotencyKey,
	}

	if ev.IdempotencyKey == "" {
		key, err := ev.ComputeIdempotencyKey()
		if err != nil {
			return nil, err
		}
		ev.IdempotencyKey = key
	}

	return ev, nil
}
