package store

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/digestry/digestry/internal/common"
)

func newTestSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()
	b, err := NewSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "digests.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	require.NoError(t, b.Set(ctx, digestOne, []byte("1,1,,,0,,")))
	got, err := b.Get(ctx, digestOne)
	require.NoError(t, err)
	require.Equal(t, []byte("1,1,,,0,,"), got)

	require.NoError(t, b.Set(ctx, digestOne, []byte("1,2,,,0,,")), "upsert overwrites")
	got, err = b.Get(ctx, digestOne)
	require.NoError(t, err)
	require.Equal(t, []byte("1,2,,,0,,"), got)
}

func TestSQLiteBackendNotFound(t *testing.T) {
	b := newTestSQLite(t)
	_, err := b.Get(context.Background(), digestOne)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteBackendDelete(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	require.NoError(t, b.Set(ctx, digestOne, []byte("v")))
	require.NoError(t, b.Delete(ctx, digestOne))
	_, err := b.Get(ctx, digestOne)
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, b.Delete(ctx, digestOne), "absent key is a no-op")
}

func TestSQLiteBackendForEachKey(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	want := []string{digestOne, digestTwo}
	for _, k := range want {
		require.NoError(t, b.Set(ctx, k, []byte("v")))
	}

	var keys []string
	require.NoError(t, b.ForEachKey(ctx, func(key string) error {
		keys = append(keys, key)
		return nil
	}))
	sort.Strings(keys)
	sort.Strings(want)
	require.Equal(t, want, keys)
}

func TestSQLiteBackendForEachKeyAllowsDelete(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	for _, k := range []string{digestOne, digestTwo} {
		require.NoError(t, b.Set(ctx, k, []byte("v")))
	}

	require.NoError(t, b.ForEachKey(ctx, func(key string) error {
		return b.Delete(ctx, key)
	}))

	for _, k := range []string{digestOne, digestTwo} {
		_, err := b.Get(ctx, k)
		require.ErrorIs(t, err, common.ErrorNotFound)
	}
}

func TestSQLiteBackendForEachKeyError(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)
	require.NoError(t, b.Set(ctx, digestOne, []byte("v")))

	boom := errors.New("boom")
	require.ErrorIs(t, b.ForEachKey(ctx, func(string) error { return boom }), boom)
}

func TestSQLiteBackendCompact(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	require.NoError(t, b.Set(ctx, digestOne, []byte("v")))
	require.NoError(t, b.Delete(ctx, digestOne))
	require.NoError(t, b.Compact(ctx))
	require.NoError(t, b.Flush(ctx))
}

func TestSQLiteBackendPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "digests.db")

	b, err := NewSQLiteBackend(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, digestOne, []byte("survivor")))
	require.NoError(t, b.Close())

	reopened, err := NewSQLiteBackend(ctx, dsn)
	require.NoError(t, err, "migrations rerun cleanly on an existing database")
	defer reopened.Close()

	got, err := reopened.Get(ctx, digestOne)
	require.NoError(t, err)
	require.Equal(t, []byte("survivor"), got)
}

func TestSQLiteBackendWithStore(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)
	st := New(b, testLogger(), Options{MaxRecordAge: time.Hour})

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	_, err := st.Report(ctx, digestOne)
	require.NoError(t, err)
	rec, err := st.Report(ctx, digestOne)
	require.NoError(t, err)
	require.Equal(t, int64(2), rec.ReportCount)

	st.now = func() time.Time { return now.Add(24 * time.Hour) }
	st.sweepOnce(ctx)

	rec, err = st.Get(ctx, digestOne)
	require.NoError(t, err)
	require.Nil(t, rec, "stale record evicted from sqlite")
}
