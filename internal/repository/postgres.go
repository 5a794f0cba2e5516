package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// TxRunner executes a function inside a tenant-bound transaction. Every
// storage access in the sync core goes through it.
type TxRunner interface {
	WithTenant(ctx context.Context, tenantID string, fn func(tx *sql.Tx) error) error
}

// tenantTables lists every tenant-partitioned table; row-level security is
// enabled and forced on each.
var tenantTables = []string{
	"products",
	"stock_events",
	"pending_payments",
	"sync_conflicts",
	"sync_clocks",
}

type DB struct {
	*sql.DB
	appRole string
}

// Open connects to Postgres as the migration role. appRole is the
// least-privileged role every tenant transaction switches to before issuing
// queries.
func Open(dsn, appRole string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Conflict audits commit on their own connection while the item
	// transaction is still open, so the pool must hold more than one.
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{DB: db, appRole: appRole}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	name TEXT NOT NULL,
	description TEXT,
	price NUMERIC(12,2) NOT NULL DEFAULT 0,
	sku TEXT NOT NULL,
	category TEXT,
	current_stock BIGINT NOT NULL DEFAULT 0,
	version INTEGER NOT NULL DEFAULT 1,
	lamport_ts BIGINT NOT NULL DEFAULT 0,
	device_id UUID NOT NULL,
	device_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	synced_at TIMESTAMPTZ,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at TIMESTAMPTZ,
	content_hash TEXT NOT NULL DEFAULT '',
	created_by UUID NOT NULL,
	updated_by UUID NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_tenant ON products(tenant_id);
CREATE INDEX IF NOT EXISTS idx_products_lamport ON products(tenant_id, lamport_ts);

CREATE TABLE IF NOT EXISTS stock_events (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	product_id UUID NOT NULL,
	operation TEXT NOT NULL,
	delta BIGINT NOT NULL,
	reason TEXT NOT NULL,
	payment_status TEXT,
	amount NUMERIC(12,2),
	location_lat DOUBLE PRECISION,
	location_lng DOUBLE PRECISION,
	idempotency_key TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	lamport_ts BIGINT NOT NULL DEFAULT 0,
	device_id UUID NOT NULL,
	device_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	synced_at TIMESTAMPTZ,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at TIMESTAMPTZ,
	content_hash TEXT NOT NULL DEFAULT '',
	created_by UUID NOT NULL,
	updated_by UUID NOT NULL,
	UNIQUE (tenant_id, idempotency_key)
);
CREATE INDEX IF NOT EXISTS idx_stock_events_product ON stock_events(tenant_id, product_id, lamport_ts DESC);
CREATE INDEX IF NOT EXISTS idx_stock_events_lamport ON stock_events(tenant_id, lamport_ts);

CREATE TABLE IF NOT EXISTS pending_payments (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	sale_id UUID NOT NULL,
	amount NUMERIC(12,2) NOT NULL DEFAULT 0,
	payment_method TEXT NOT NULL,
	pos_transaction_id TEXT,
	pos_device_id TEXT,
	reconciled BOOLEAN NOT NULL DEFAULT FALSE,
	reconciled_at TIMESTAMPTZ,
	reconciliation_status TEXT NOT NULL DEFAULT 'PENDING',
	receipt_photo TEXT,
	notes TEXT,
	version INTEGER NOT NULL DEFAULT 1,
	lamport_ts BIGINT NOT NULL DEFAULT 0,
	device_id UUID NOT NULL,
	device_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	synced_at TIMESTAMPTZ,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at TIMESTAMPTZ,
	content_hash TEXT NOT NULL DEFAULT '',
	created_by UUID NOT NULL,
	updated_by UUID NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pending_payments_tenant ON pending_payments(tenant_id);

CREATE TABLE IF NOT EXISTS sync_conflicts (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id UUID NOT NULL,
	operation_a_id UUID NOT NULL,
	operation_b_id UUID NOT NULL,
	payload_a JSONB NOT NULL,
	payload_b JSONB NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	resolution_method TEXT NOT NULL,
	winner_id UUID NOT NULL,
	resolution_reason TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	resolved_by UUID,
	resolved_at TIMESTAMPTZ,
	user_feedback TEXT
);
CREATE INDEX IF NOT EXISTS idx_sync_conflicts_status ON sync_conflicts(tenant_id, status, detected_at DESC);

CREATE TABLE IF NOT EXISTS sync_clocks (
	tenant_id UUID PRIMARY KEY,
	current_value BIGINT NOT NULL DEFAULT 0
);
`

// Migrate creates the schema, the least-privileged application role, and the
// row-level security policies. Policies are forced even for the table owner,
// so isolation holds regardless of what SQL any future code path issues.
func (d *DB) Migrate(ctx context.Context, appRolePassword string) error {
	if _, err := d.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	createRole := fmt.Sprintf(`DO $$ BEGIN
	CREATE ROLE %s WITH LOGIN PASSWORD %s;
EXCEPTION WHEN duplicate_object THEN NULL;
END $$;`, pq.QuoteIdentifier(d.appRole), pq.QuoteLiteral(appRolePassword))
	if _, err := d.ExecContext(ctx, createRole); err != nil {
		return fmt.Errorf("create app role: %w", err)
	}

	for _, table := range tenantTables {
		if err := d.applyTenantPolicy(ctx, table); err != nil {
			return err
		}
	}

	grants := fmt.Sprintf(`GRANT USAGE ON SCHEMA public TO %[1]s;
GRANT SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA public TO %[1]s;`,
		pq.QuoteIdentifier(d.appRole))
	if _, err := d.ExecContext(ctx, grants); err != nil {
		return fmt.Errorf("grant app role: %w", err)
	}

	return nil
}

func (d *DB) applyTenantPolicy(ctx context.Context, table string) error {
	ident := pq.QuoteIdentifier(table)
	policy := pq.QuoteIdentifier(table + "_isolation_policy")

	stmts := []string{
		fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", ident),
		fmt.Sprintf("DROP POLICY IF EXISTS %s ON %s", policy, ident),
		fmt.Sprintf(`CREATE POLICY %s ON %s
	USING (tenant_id::text = current_setting('app.current_tenant_id', true))
	WITH CHECK (tenant_id::text = current_setting('app.current_tenant_id', true))`, policy, ident),
		fmt.Sprintf("ALTER TABLE %s FORCE ROW LEVEL SECURITY", ident),
	}

	for _, stmt := range stmts {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("secure table %s: %w", table, err)
		}
	}

	return nil
}

// WithTenant runs fn inside a transaction bound to one tenant. The role
// switch and the tenant setting are both transaction-local, so the pooled
// connection carries no tenant context after commit or rollback, whichever
// way fn exits.
func (d *DB) WithTenant(ctx context.Context, tenantID string, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tenant transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL ROLE %s", pq.QuoteIdentifier(d.appRole))); err != nil {
		tx.Rollback()
		return fmt.Errorf("set app role: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "SELECT set_config('app.current_tenant_id', $1, true)", tenantID); err != nil {
		tx.Rollback()
		return fmt.Errorf("set tenant context: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// IsPolicyViolation reports whether err is a storage-level access policy
// rejection. These are never reclassified; the request fails.
func IsPolicyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42501"
	}
	return false
}
