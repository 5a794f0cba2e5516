package repository

import (
	"context"
	"database/sql"

	"agrosync-server/internal/domain"
)

// ProductRepository persists replicated product state. FindByID returns
// (nil, nil) when the product does not exist for the active tenant.
type ProductRepository interface {
	FindByID(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error)
	Insert(ctx context.Context, tx *sql.Tx, p *domain.Product) error
	// Replace overwrites the stored record wholesale; created_at and
	// created_by are preserved from the original row.
	Replace(ctx context.Context, tx *sql.Tx, p *domain.Product) error
}

type productRepo struct{}

func NewProductRepository() ProductRepository {
	return &productRepo{}
}

const productColumns = `id, tenant_id, name, description, price, sku, category, current_stock,
	version, lamport_ts, device_id, device_type,
	created_at, updated_at, synced_at, is_deleted, deleted_at,
	content_hash, created_by, updated_by`

func (r *productRepo) FindByID(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error) {
	var p domain.Product
	err := tx.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id).Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Price, &p.SKU, &p.Category, &p.CurrentStock,
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

func (r *productRepo) Insert(ctx context.Context, tx *sql.Tx, p *domain.Product) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		p.ID, p.TenantID, p.Name, p.Description, p.Price, p.SKU, p.Category, p.CurrentStock,
		p.Version, p.LamportTS, p.DeviceID, p.DeviceType,
		p.CreatedAt, p.UpdatedAt, p.SyncedAt, p.IsDeleted, p.DeletedAt,
		p.ContentHash, p.CreatedBy, p.UpdatedBy,
	)
	return err
}

func (r *productRepo) Replace(ctx context.Context, tx *sql.Tx, p *domain.Product) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products SET
			name = $2, description = $3, price = $4, sku = $5, category = $6, current_stock = $7,
			version = $8, lamport_ts = $9, device_id = $10, device_type = $11,
			updated_at = $12, synced_at = $13, is_deleted = $14, deleted_at = $15,
			content_hash = $16, updated_by = $17
		WHERE id = $1
	`,
		p.ID, p.Name, p.Description, p.Price, p.SKU, p.Category, p.CurrentStock,
		p.Version, p.LamportTS, p.DeviceID, p.DeviceType,
		p.UpdatedAt, p.SyncedAt, p.IsDeleted, p.DeletedAt,
		p.ContentHash, p.UpdatedBy,
	)
	return err
}
