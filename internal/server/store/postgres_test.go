package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/digestry/digestry/internal/common"
)

func newMockPostgres(t *testing.T) (*PostgresBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresBackend{db: db}, mock
}

func TestPostgresBackendGet(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record FROM digests WHERE digest = $1")).
		WithArgs(digestOne).
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow("1,3,,,0,,"))

	got, err := b.Get(ctx, digestOne)
	require.NoError(t, err)
	require.Equal(t, []byte("1,3,,,0,,"), got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendGetNotFound(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record FROM digests WHERE digest = $1")).
		WithArgs(digestOne).
		WillReturnRows(sqlmock.NewRows([]string{"record"}))

	_, err := b.Get(ctx, digestOne)
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendGetQueryError(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record FROM digests WHERE digest = $1")).
		WithArgs(digestOne).
		WillReturnError(errors.New("connection refused"))

	_, err := b.Get(ctx, digestOne)
	require.Error(t, err)
	require.NotErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendSet(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO digests (digest, record) VALUES ($1, $2) "+
			"ON CONFLICT (digest) DO UPDATE SET record = EXCLUDED.record")).
		WithArgs(digestOne, "1,1,,,0,,").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, b.Set(ctx, digestOne, []byte("1,1,,,0,,")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendDelete(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM digests WHERE digest = $1")).
		WithArgs(digestOne).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, b.Delete(ctx, digestOne), "deleting an absent key succeeds")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendForEachKey(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT digest FROM digests")).
		WillReturnRows(sqlmock.NewRows([]string{"digest"}).
			AddRow(digestOne).
			AddRow(digestTwo))

	var keys []string
	require.NoError(t, b.ForEachKey(ctx, func(key string) error {
		keys = append(keys, key)
		return nil
	}))
	require.Equal(t, []string{digestOne, digestTwo}, keys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendCompact(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta("VACUUM digests")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, b.Compact(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}
