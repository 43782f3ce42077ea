package services

import (
	"context"
	"fmt"

	"github.com/digestry/digestry/internal/common"
	"github.com/digestry/digestry/internal/protocol"
	"github.com/digestry/digestry/internal/server/store"
)

// DigestService answers the digest operations on top of the record store.
// Digests are validated here, at the trust boundary, so no malformed key
// ever reaches a backend.
type DigestService struct {
	store *store.Store
}

func NewDigestService(st *store.Store) *DigestService {
	return &DigestService{store: st}
}

// Check returns the record for digest, or a zero record when none exists.
func (s *DigestService) Check(ctx context.Context, digest string) (*store.Record, error) {
	if err := validateDigest(digest); err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, digest)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &store.Record{}
	}
	return rec, nil
}

// Info is Check under the name the wire protocol uses for the verbose
// variant; the handler decides which fields to put on the wire.
func (s *DigestService) Info(ctx context.Context, digest string) (*store.Record, error) {
	return s.Check(ctx, digest)
}

// Report counts one spam report for digest.
func (s *DigestService) Report(ctx context.Context, digest string) (*store.Record, error) {
	if err := validateDigest(digest); err != nil {
		return nil, err
	}
	return s.store.Report(ctx, digest)
}

// Whitelist counts one false-positive vote for digest.
func (s *DigestService) Whitelist(ctx context.Context, digest string) (*store.Record, error) {
	if err := validateDigest(digest); err != nil {
		return nil, err
	}
	return s.store.Whitelist(ctx, digest)
}

func validateDigest(digest string) error {
	if err := protocol.ValidateDigest(digest); err != nil {
		return fmt.Errorf("%v: %w", err, common.ErrBadRequest)
	}
	return nil
}
