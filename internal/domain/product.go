package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"agrosync-server/pkg/canonical"
)

// Product is replicated mutable state: the stored record is replaced
// wholesale by whichever submission carries the higher lamport order.
type Product struct {
	SyncMeta

	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	SKU         string          `json:"sku"`
	Category    *string         `json:"category,omitempty"`

	// Denormalized for quick reads; the event ledger is the source of truth.
	CurrentStock int64 `json:"current_stock"`
}

func (p *Product) ContentFields() map[string]interface{} {
	return map[string]interface{}{
		"id":            p.ID,
		"tenant_id":     p.TenantID,
		"name":          p.Name,
		"description":   p.Description,
		"price":         p.Price,
		"sku":           p.SKU,
		"category":      p.Category,
		"current_stock": p.CurrentStock,
		"device_id":     p.DeviceID,
		"device_type":   p.DeviceType,
		"is_deleted":    p.IsDeleted,
		"created_by":    p.CreatedBy,
		"updated_by":    p.UpdatedBy,
	}
}

func (p *Product) ComputeContentHash() (string, error) {
	return canonical.Hash(p.ContentFields())
}

// ProductSync is the push payload for a product state snapshot.
type ProductSync struct {
	ID string `json:"id" validate:"required,uuid"`

	Name         string          `json:"name" validate:"required"`
	Description  *string         `json:"description"`
	Price        decimal.Decimal `json:"price"`
	SKU          string          `json:"sku" validate:"required"`
	Category     *string         `json:"category"`
	CurrentStock int64           `json:"current_stock"`

	DeviceID   string     `json:"device_id" validate:"required,uuid"`
	DeviceType DeviceType `json:"device_type" validate:"required,oneof=WEB MOBILE DESKTOP"`

	LamportTS int64 `json:"lamport_ts" validate:"min=0"`
	Version   int   `json:"version"`
	IsDeleted bool  `json:"is_deleted"`

	CreatedBy string `json:"created_by" validate:"required,uuid"`
	UpdatedBy string `json:"updated_by" validate:"required,uuid"`
}

func (r *ProductSync) ToProduct(tenantID string) (*Product, error) {
	now := time.Now().UTC()
	version := r.Version
	if version == 0 {
		version = 1
	}

	p := &Product{
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
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		SKU:          r.SKU,
		Category:     r.Category,
		CurrentStock: r.CurrentStock,
	}

	hash, err := p.ComputeContentHash()
	if err != nil {
		return nil, err
	}
	p.ContentHash = hash

	return p, nil
}
