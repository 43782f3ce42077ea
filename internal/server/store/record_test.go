package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordMarshal(t *testing.T) {
	rec := &Record{
		ReportCount:   2,
		ReportEntered: time.Date(2024, 5, 17, 10, 32, 5, 123456000, time.UTC),
		ReportUpdated: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	require.Equal(t,
		"1,2,2024-05-17 10:32:05.123456,2024-06-01 08:00:00.000000,0,,",
		string(rec.Marshal()))
}

func TestRecordRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  *Record
	}{
		{"zero", &Record{}},
		{"report only", &Record{
			ReportCount:   5,
			ReportEntered: time.Date(2023, 1, 2, 3, 4, 5, 678901000, time.UTC),
			ReportUpdated: time.Date(2023, 2, 3, 4, 5, 6, 789012000, time.UTC),
		}},
		{"both sides", &Record{
			ReportCount:      12,
			ReportEntered:    time.Date(2022, 11, 30, 23, 59, 59, 999999000, time.UTC),
			ReportUpdated:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			WhitelistCount:   3,
			WhitelistEntered: time.Date(2022, 12, 25, 12, 0, 0, 1000, time.UTC),
			WhitelistUpdated: time.Date(2023, 1, 15, 6, 30, 0, 0, time.UTC),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalRecord(tt.rec.Marshal())
			require.NoError(t, err)
			require.Equal(t, tt.rec, got)
		})
	}
}

func TestUnmarshalRecordErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"wrong field count", "1,0"},
		{"too many fields", "1,0,,,0,,,extra"},
		{"unknown version", "2,0,,,0,,"},
		{"bad report count", "1,x,,,0,,"},
		{"negative report count", "1,-1,,,0,,"},
		{"bad whitelist count", "1,0,,,ten,,"},
		{"bad timestamp", "1,0,yesterday,,0,,"},
		{"truncated timestamp", "1,0,2024-05-17,,0,,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := UnmarshalRecord([]byte(tt.data))
			require.Nil(t, rec)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestRecordIncReport(t *testing.T) {
	first := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	second := first.Add(48 * time.Hour)

	rec := &Record{}
	rec.IncReport(first)

	wantFirst := first.Truncate(time.Microsecond)
	require.Equal(t, int64(1), rec.ReportCount)
	require.Equal(t, wantFirst, rec.ReportEntered)
	require.Equal(t, wantFirst, rec.ReportUpdated)

	rec.IncReport(second)
	require.Equal(t, int64(2), rec.ReportCount)
	require.Equal(t, wantFirst, rec.ReportEntered, "entered is set once")
	require.Equal(t, second.Truncate(time.Microsecond), rec.ReportUpdated)

	require.True(t, rec.WhitelistEntered.IsZero())
	require.True(t, rec.WhitelistUpdated.IsZero())
	require.Zero(t, rec.WhitelistCount)
}

func TestRecordIncWhitelist(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := &Record{}
	rec.IncWhitelist(now)
	rec.IncWhitelist(now.Add(time.Minute))

	require.Equal(t, int64(2), rec.WhitelistCount)
	require.Equal(t, now, rec.WhitelistEntered)
	require.Equal(t, now.Add(time.Minute), rec.WhitelistUpdated)
	require.Zero(t, rec.ReportCount)
}

func TestRecordIncConvertsToUTC(t *testing.T) {
	zone := time.FixedZone("CEST", 2*60*60)
	local := time.Date(2024, 7, 1, 14, 30, 0, 0, zone)

	rec := &Record{}
	rec.IncReport(local)

	require.Equal(t, time.UTC, rec.ReportUpdated.Location())
	require.True(t, rec.ReportUpdated.Equal(local))
}

func TestRecordLastUpdated(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	require.True(t, (&Record{}).LastUpdated().IsZero())
	require.Equal(t, late, (&Record{ReportUpdated: late, WhitelistUpdated: early}).LastUpdated())
	require.Equal(t, late, (&Record{ReportUpdated: early, WhitelistUpdated: late}).LastUpdated())
	require.Equal(t, early, (&Record{ReportUpdated: early}).LastUpdated())
}
