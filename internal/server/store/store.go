package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/digestry/digestry/internal/common"
	"github.com/digestry/digestry/internal/logging"
)

// DefaultSweepInterval is used when eviction is enabled but no interval
// was configured.
const DefaultSweepInterval = 24 * time.Hour

// lockStripes is the number of mutexes guarding read-modify-write updates.
// Updates to the same digest serialize on the same stripe.
const lockStripes = 64

// Options configure the store's background maintenance.
type Options struct {
	// MaxRecordAge is the age beyond which records are evicted, measured
	// from the record's last update. Zero or negative disables eviction.
	MaxRecordAge time.Duration
	// SweepInterval is the pause between eviction passes.
	SweepInterval time.Duration
	// FlushInterval is the pause between backend flushes. Zero or
	// negative disables periodic flushing.
	FlushInterval time.Duration
}

// Store keeps digest records in a Backend and owns their lifecycle:
// counter updates, eviction of stale records and periodic flushing.
type Store struct {
	backend Backend
	log     logging.Logger
	opts    Options

	locks [lockStripes]sync.Mutex
	now   func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a store on top of backend. Call Start to launch maintenance
// and Close to stop it and release the backend.
func New(backend Backend, log logging.Logger, opts Options) *Store {
	return &Store{
		backend: backend,
		log:     log.With("module", "store"),
		opts:    opts,
		now:     time.Now,
	}
}

// Get returns the record stored under digest, or nil when there is none.
// A stored value that fails to decode is logged and reported as missing.
func (s *Store) Get(ctx context.Context, digest string) (*Record, error) {
	raw, err := s.backend.Get(ctx, digest)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", digest, err)
	}
	rec, err := UnmarshalRecord(raw)
	if err != nil {
		s.log.Error(ctx, "corrupt record treated as missing", "digest", digest, "error", err)
		return nil, nil
	}
	return rec, nil
}

// Set stores rec under digest.
func (s *Store) Set(ctx context.Context, digest string, rec *Record) error {
	if err := s.backend.Set(ctx, digest, rec.Marshal()); err != nil {
		return fmt.Errorf("set %s: %w", digest, err)
	}
	return nil
}

// Delete removes the record stored under digest, if any.
func (s *Store) Delete(ctx context.Context, digest string) error {
	if err := s.backend.Delete(ctx, digest); err != nil {
		return fmt.Errorf("delete %s: %w", digest, err)
	}
	return nil
}

// Report counts one report against digest and returns the updated record.
// The record is created on first report.
func (s *Store) Report(ctx context.Context, digest string) (*Record, error) {
	return s.apply(ctx, digest, func(r *Record, now time.Time) { r.IncReport(now) })
}

// Whitelist counts one whitelisting against digest and returns the updated
// record. The record is created on first whitelisting.
func (s *Store) Whitelist(ctx context.Context, digest string) (*Record, error) {
	return s.apply(ctx, digest, func(r *Record, now time.Time) { r.IncWhitelist(now) })
}

// apply runs a read-modify-write update under the digest's stripe lock, so
// concurrent updates to the same digest never lose increments.
func (s *Store) apply(ctx context.Context, digest string, mutate func(*Record, time.Time)) (*Record, error) {
	lock := s.lockFor(digest)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.Get(ctx, digest)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &Record{}
	}
	mutate(rec, s.now())
	if err := s.Set(ctx, digest, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) lockFor(digest string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(digest))
	return &s.locks[h.Sum32()%lockStripes]
}

// Start launches the maintenance loops. The sweep loop runs only when
// MaxRecordAge is positive, the flush loop only when FlushInterval is.
func (s *Store) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.opts.MaxRecordAge > 0 {
		s.wg.Add(1)
		go s.sweepLoop(ctx)
	}
	if s.opts.FlushInterval > 0 {
		s.wg.Add(1)
		go s.flushLoop(ctx)
	}
}

// Close stops the maintenance loops, waits for a running pass to finish
// and closes the backend.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return s.backend.Close()
}

// sweepLoop evicts stale records at a fixed interval. A single goroutine
// consumes the ticker, so passes never overlap.
func (s *Store) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := s.opts.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	s.sweepOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Store) flushLoop(ctx context.Context) {
	defer s.wg.Done()

	s.flushOnce(ctx)

	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flushOnce(ctx)
		}
	}
}

// sweepOnce deletes every record whose last update is older than
// MaxRecordAge, then compacts the backend. A record that fails to load,
// decode or delete is logged and skipped; the pass keeps going.
func (s *Store) sweepOnce(ctx context.Context) {
	start := s.now()
	cutoff := start.Add(-s.opts.MaxRecordAge)
	var checked, evicted, failed int

	err := s.backend.ForEachKey(ctx, func(key string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		checked++

		raw, err := s.backend.Get(ctx, key)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			failed++
			s.log.Error(ctx, "sweep: read failed, skipping", "digest", key, "error", err)
			return nil
		}
		rec, err := UnmarshalRecord(raw)
		if err != nil {
			failed++
			s.log.Error(ctx, "sweep: corrupt record skipped", "digest", key, "error", err)
			return nil
		}
		if !rec.LastUpdated().Before(cutoff) {
			return nil
		}
		if err := s.backend.Delete(ctx, key); err != nil {
			failed++
			s.log.Error(ctx, "sweep: delete failed, skipping", "digest", key, "error", err)
			return nil
		}
		evicted++
		return nil
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Error(ctx, "sweep: iteration aborted", "error", err)
		}
		return
	}

	if err := s.backend.Compact(ctx); err != nil {
		s.log.Error(ctx, "sweep: compaction failed", "error", err)
	}

	s.log.Info(ctx, "sweep finished",
		"checked", checked, "evicted", evicted, "failed", failed,
		"elapsed", s.now().Sub(start))
}

func (s *Store) flushOnce(ctx context.Context) {
	if err := s.backend.Flush(ctx); err != nil {
		s.log.Error(ctx, "flush failed", "error", err)
	}
}
