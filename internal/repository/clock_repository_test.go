package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockAdvance(t *testing.T) {
	d, mock := newTestDB(t)
	repo := NewClockRepository()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sync_clocks")).
		WithArgs(testTenant, int64(41)).
		WillReturnRows(sqlmock.NewRows([]string{"current_value"}).AddRow(int64(42)))

	tx, err := d.Begin()
	require.NoError(t, err)

	value, err := repo.Advance(context.Background(), tx, testTenant, 41)
	require.NoError(t, err)
	assert.Equal(t, int64(42), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClockCurrent(t *testing.T) {
	d, mock := newTestDB(t)
	repo := NewClockRepository()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT current_value FROM sync_clocks")).
		WithArgs(testTenant).
		WillReturnRows(sqlmock.NewRows([]string{"current_value"}).AddRow(int64(7)))

	tx, err := d.Begin()
	require.NoError(t, err)

	value, err := repo.Current(context.Background(), tx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)
}

func TestClockCurrentMissingTenantIsZero(t *testing.T) {
	d, mock := newTestDB(t)
	repo := NewClockRepository()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT current_value FROM sync_clocks")).
		WithArgs(testTenant).
		WillReturnRows(sqlmock.NewRows([]string{"current_value"}))

	tx, err := d.Begin()
	require.NoError(t, err)

	value, err := repo.Current(context.Background(), tx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, int64(0), value)
}
