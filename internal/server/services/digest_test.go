package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digestry/digestry/internal/common"
	"github.com/digestry/digestry/internal/server/store"
)

func newTestDigestService() *DigestService {
	st := store.New(store.NewMemoryBackend(), testLogger(), store.Options{})
	return NewDigestService(st)
}

func TestDigestServiceCheckMissing(t *testing.T) {
	s := newTestDigestService()

	rec, err := s.Check(context.Background(), testDigest)
	require.NoError(t, err)
	require.NotNil(t, rec, "a missing digest reads as a zero record")
	require.Zero(t, rec.ReportCount)
	require.Zero(t, rec.WhitelistCount)
	require.True(t, rec.ReportEntered.IsZero())
}

func TestDigestServiceReportAndCheck(t *testing.T) {
	ctx := context.Background()
	s := newTestDigestService()

	_, err := s.Report(ctx, testDigest)
	require.NoError(t, err)
	rec, err := s.Report(ctx, testDigest)
	require.NoError(t, err)
	require.Equal(t, int64(2), rec.ReportCount)

	got, err := s.Check(ctx, testDigest)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestDigestServiceWhitelist(t *testing.T) {
	ctx := context.Background()
	s := newTestDigestService()

	rec, err := s.Whitelist(ctx, testDigest)
	require.NoError(t, err)
	require.Equal(t, int64(1), rec.WhitelistCount)
	require.Zero(t, rec.ReportCount)
}

func TestDigestServiceInfo(t *testing.T) {
	ctx := context.Background()
	s := newTestDigestService()

	_, err := s.Report(ctx, testDigest)
	require.NoError(t, err)

	rec, err := s.Info(ctx, testDigest)
	require.NoError(t, err)
	require.Equal(t, int64(1), rec.ReportCount)
	require.False(t, rec.ReportEntered.IsZero())
}

func TestDigestServiceRejectsBadDigests(t *testing.T) {
	ctx := context.Background()
	s := newTestDigestService()

	bad := []string{
		"",
		"short",
		"2AEDAAC999D71421C9EE49B9D81F627A7BC570AA",
		"2aedaac999d71421c9ee49b9d81f627a7bc570ag",
		testDigest + "00",
	}
	for _, digest := range bad {
		_, err := s.Check(ctx, digest)
		require.ErrorIs(t, err, common.ErrBadRequest, "check %q", digest)
		_, err = s.Report(ctx, digest)
		require.ErrorIs(t, err, common.ErrBadRequest, "report %q", digest)
		_, err = s.Whitelist(ctx, digest)
		require.ErrorIs(t, err, common.ErrBadRequest, "whitelist %q", digest)
	}
}
