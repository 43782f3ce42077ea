// Package store implements the digest record store: the record codec, a
// minimal key-value backend interface with several engines, and the store
// itself with its background maintenance (eviction sweep and periodic
// flush).
package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// formatVersion is the leading marker of the stored record encoding.
// Unknown markers fail decoding, so the format can evolve without
// misreading old data.
const formatVersion = "1"

// timeLayout is the canonical timestamp encoding: UTC, microsecond
// precision, fixed width so encoded values sort lexically in time order.
const timeLayout = "2006-01-02 15:04:05.000000"

// Record holds one digest's counters and timestamps. Counts never go
// negative; each *Updated is at or after its *Entered. A timestamp pair
// stays zero until its counter is first incremented.
type Record struct {
	ReportCount      int64
	ReportEntered    time.Time
	ReportUpdated    time.Time
	WhitelistCount   int64
	WhitelistEntered time.Time
	WhitelistUpdated time.Time
}

// DecodeError reports a stored value that could not be decoded. The store
// treats such values as missing; the error never reaches request handlers.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "record decode: " + e.Reason
}

// IncReport counts one report at the given time. The entered timestamp is
// set on first use and never rewritten.
func (r *Record) IncReport(now time.Time) {
	now = canonical(now)
	r.ReportCount++
	if r.ReportEntered.IsZero() {
		r.ReportEntered = now
	}
	r.ReportUpdated = now
}

// IncWhitelist counts one whitelisting at the given time.
func (r *Record) IncWhitelist(now time.Time) {
	now = canonical(now)
	r.WhitelistCount++
	if r.WhitelistEntered.IsZero() {
		r.WhitelistEntered = now
	}
	r.WhitelistUpdated = now
}

// LastUpdated returns the later of the two updated timestamps. Zero times
// compare low, so a record touched on only one side reports that side.
func (r *Record) LastUpdated() time.Time {
	if r.ReportUpdated.After(r.WhitelistUpdated) {
		return r.ReportUpdated
	}
	return r.WhitelistUpdated
}

// Marshal encodes the record as
//
//	1,<reportCount>,<reportEntered>,<reportUpdated>,<whitelistCount>,<whitelistEntered>,<whitelistUpdated>
//
// with counts in decimal and timestamps in timeLayout. Zero timestamps
// encode as empty fields.
func (r *Record) Marshal() []byte {
	fields := []string{
		formatVersion,
		strconv.FormatInt(r.ReportCount, 10),
		encodeTime(r.ReportEntered),
		encodeTime(r.ReportUpdated),
		strconv.FormatInt(r.WhitelistCount, 10),
		encodeTime(r.WhitelistEntered),
		encodeTime(r.WhitelistUpdated),
	}
	return []byte(strings.Join(fields, ","))
}

// UnmarshalRecord decodes a stored value. Failures return a *DecodeError:
// unknown version marker, wrong field count, malformed or negative counts,
// or malformed timestamps.
func UnmarshalRecord(data []byte) (*Record, error) {
	parts := strings.Split(string(data), ",")
	if len(parts) != 7 {
		return nil, &DecodeError{Reason: fmt.Sprintf("expected 7 fields, got %d", len(parts))}
	}
	if parts[0] != formatVersion {
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown format version %q", parts[0])}
	}

	r := &Record{}
	var err error
	if r.ReportCount, err = decodeCount(parts[1]); err != nil {
		return nil, err
	}
	if r.ReportEntered, err = decodeTime(parts[2]); err != nil {
		return nil, err
	}
	if r.ReportUpdated, err = decodeTime(parts[3]); err != nil {
		return nil, err
	}
	if r.WhitelistCount, err = decodeCount(parts[4]); err != nil {
		return nil, err
	}
	if r.WhitelistEntered, err = decodeTime(parts[5]); err != nil {
		return nil, err
	}
	if r.WhitelistUpdated, err = decodeTime(parts[6]); err != nil {
		return nil, err
	}
	return r, nil
}

// canonical truncates to the precision the encoding can carry, so a record
// always round-trips exactly through Marshal/UnmarshalRecord.
func canonical(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, &DecodeError{Reason: fmt.Sprintf("bad timestamp %q", s)}
	}
	return t, nil
}

func decodeCount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &DecodeError{Reason: fmt.Sprintf("bad count %q", s)}
	}
	if n < 0 {
		return 0, &DecodeError{Reason: fmt.Sprintf("negative count %d", n)}
	}
	return n, nil
}
