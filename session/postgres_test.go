package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &PostgresStore{db: db, logger: zap.NewNop()}, mock
}

func TestPostgresStorePut(t *testing.T) {
	store, mock := newMockStore(t)
	rec := Record{User: User{Username: "alice", Tenant: "acme"}, Tenant: "acme"}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs("sid-1", payload).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Put(context.Background(), "sid-1", rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGet(t *testing.T) {
	t.Run("returns stored record", func(t *testing.T) {
		store, mock := newMockStore(t)
		rec := Record{User: User{Username: "alice", Tenant: "acme"}, Tenant: "acme"}
		payload, err := json.Marshal(rec)
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT record FROM sessions")).
			WithArgs("sid-1").
			WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(payload))

		got, ok, err := store.Get(context.Background(), "sid-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, rec, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports absence without error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT record FROM sessions")).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, ok, err := store.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPostgresStoreClear(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).
		WithArgs("sid-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Clear(context.Background(), "sid-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
