package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inmemdb "github.com/trezcool/kodi/storage/database/inmem"
)

func newMockStore(t *testing.T) (*RecordStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return NewRecordStore(sqlx.NewDb(mockDB, "postgres")), mock
}

func TestRecordStore_Apply(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = time.Now })
	ctx := context.Background()

	ops := []inmemdb.Op{
		{Kind: inmemdb.KindTenant, ID: "ten-1", Data: []byte(`{"id":"ten-1"}`)},
		{Kind: inmemdb.KindLease, ID: "lease-1"},
	}

	t.Run("no ops", func(t *testing.T) {
		store, mock := newMockStore(t)
		require.NoError(t, store.Apply(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("upserts and soft deletes in one transaction", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(upsertRecord).
			WithArgs(inmemdb.KindTenant, "ten-1", []byte(`{"id":"ten-1"}`), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(deleteRecord).
			WithArgs(inmemdb.KindLease, "lease-1", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, store.Apply(ctx, ops...))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(upsertRecord).
			WithArgs(inmemdb.KindTenant, "ten-1", []byte(`{"id":"ten-1"}`), now).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := store.Apply(ctx, ops...)
		assert.EqualError(t, err, "writing tenant ten-1: disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordStore_Load(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(selectRecords).WillReturnRows(
		sqlmock.NewRows([]string{"kind", "id", "data", "created_at", "updated_at", "deleted_at"}).
			AddRow(inmemdb.KindOwner, "own-1", []byte(`{"id":"own-1"}`), created, created, nil).
			AddRow(inmemdb.KindOwner, "own-2", []byte(`{"id":"own-2"}`), created, created, created),
	)

	ops, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []inmemdb.Op{{Kind: inmemdb.KindOwner, ID: "own-1", Data: []byte(`{"id":"own-1"}`)}}, ops)
	assert.NoError(t, mock.ExpectationsWereMet())
}
