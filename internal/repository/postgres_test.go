package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTenant = "11111111-1111-1111-1111-111111111111"

func newTestDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &DB{DB: db, appRole: "agrosync_app"}, mock
}

func expectTenantScope(mock sqlmock.Sqlmock, tenantID string) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL ROLE "agrosync_app"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT set_config('app.current_tenant_id', $1, true)`)).
		WithArgs(tenantID).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestWithTenantCommits(t *testing.T) {
	d, mock := newTestDB(t)

	expectTenantScope(mock, testTenant)
	mock.ExpectExec("UPDATE products").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := d.WithTenant(context.Background(), testTenant, func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE products SET current_stock = 0")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenantRollsBackOnError(t *testing.T) {
	d, mock := newTestDB(t)

	expectTenantScope(mock, testTenant)
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := d.WithTenant(context.Background(), testTenant, func(tx *sql.Tx) error {
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenantRollsBackWhenRoleSwitchFails(t *testing.T) {
	d, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET LOCAL ROLE "agrosync_app"`)).
		WillReturnError(errors.New("role does not exist"))
	mock.ExpectRollback()

	called := false
	err := d.WithTenant(context.Background(), testTenant, func(tx *sql.Tx) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called, "fn must not run without tenant scope")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsPolicyViolation(t *testing.T) {
	violation := &pq.Error{Code: "42501"}

	assert.True(t, IsPolicyViolation(violation))
	assert.True(t, IsPolicyViolation(fmt.Errorf("insert event: %w", violation)))
	assert.False(t, IsPolicyViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsPolicyViolation(errors.New("plain error")))
	assert.False(t, IsPolicyViolation(nil))
}
