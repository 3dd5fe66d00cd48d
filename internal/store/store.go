// Package store provides a capacity-bounded, content-addressed in-memory
// store for extracted code blocks, JSON payloads, and file attachments.
//
// Entries are keyed by a deterministic fingerprint of their raw bytes, so
// storing byte-identical content twice is idempotent. The store enforces a
// per-item size limit and an aggregate cap; when an insert would exceed the
// cap, the oldest-uploaded entries are evicted until usage drops to the
// eviction target. A background sweeper removes entries past a maximum age.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "store"

// fingerprintLen is the hex prefix length of the content fingerprint.
const fingerprintLen = 16

// evictionTarget is the fraction of the aggregate cap that eviction frees
// down to, leaving headroom for subsequent inserts.
const evictionTarget = 0.8

// Entry is one piece of stored content.
type Entry struct {
	ID           string
	Content      string
	OriginalSize int
	Filename     string
	MimeType     string
	UploadedAt   time.Time
}

// PutResult is returned by Put: the content id and a short human-readable
// reference suitable for inlining in place of the original content.
type PutResult struct {
	ID        string
	Reference string
}

// Stats describes the store's current occupancy.
type Stats struct {
	Entries        int
	FilesStored    int
	TotalBytes     int64
	MaxTotalBytes  int64
	OldestUploaded time.Time
}

// Config holds store limits.
type Config struct {
	// MaxTotalBytes is the aggregate cap across all entries.
	MaxTotalBytes int64
	// MaxItemBytes is the per-item cap; larger uploads are rejected.
	MaxItemBytes int64
}

// Store is safe for concurrent use. Insert, eviction, and expiry all run
// under one mutex so evict-then-insert is atomic.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	totalBytes int64

	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	meter        metric.Meter
	putCounter   metric.Int64Counter
	evictCounter metric.Int64Counter
	expireCount  metric.Int64Counter
	bytesGauge   metric.Int64UpDownCounter
}

// New creates a store with the given limits.
func New(cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		entries: make(map[string]*Entry),
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		meter:   otel.Meter(meterName),
	}
	s.initMetrics()
	return s
}

func (s *Store) initMetrics() {
	var err error

	s.putCounter, err = s.meter.Int64Counter(
		"optimd.store.puts_total",
		metric.WithDescription("Total store inserts, labeled by result (stored, duplicate, rejected)."),
		metric.WithUnit("{put}"),
	)
	if err != nil {
		s.logger.Warn("failed to create put counter", zap.Error(err))
	}

	s.evictCounter, err = s.meter.Int64Counter(
		"optimd.store.evictions_total",
		metric.WithDescription("Entries evicted to make room under the aggregate cap."),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		s.logger.Warn("failed to create eviction counter", zap.Error(err))
	}

	s.expireCount, err = s.meter.Int64Counter(
		"optimd.store.expired_total",
		metric.WithDescription("Entries removed by age-based expiry sweeps."),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		s.logger.Warn("failed to create expiry counter", zap.Error(err))
	}

	s.bytesGauge, err = s.meter.Int64UpDownCounter(
		"optimd.store.bytes",
		metric.WithDescription("Aggregate bytes currently cached."),
		metric.WithUnit("By"),
	)
	if err != nil {
		s.logger.Warn("failed to create bytes gauge", zap.Error(err))
	}
}

// Fingerprint computes the deterministic content id: a truncated hex SHA-256
// of the raw bytes.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// Put stores content under its fingerprint.
//
// Re-uploading byte-identical content returns the existing id without
// duplicating storage. Returns ErrContentTooLarge (wrapped, with sizes) if
// the single item exceeds the per-item limit; the store is not mutated in
// that case. If the insert would push aggregate usage over the cap, the
// oldest-uploaded entries are evicted first.
func (s *Store) Put(content, filename, mimeType string) (PutResult, error) {
	size := int64(len(content))
	if s.cfg.MaxItemBytes > 0 && size > s.cfg.MaxItemBytes {
		s.addPut("rejected")
		return PutResult{}, fmt.Errorf("%w: %d bytes exceeds limit of %d",
			ErrContentTooLarge, size, s.cfg.MaxItemBytes)
	}

	id := Fingerprint(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[id]; ok {
		// Content addressing makes re-uploads idempotent.
		s.addPut("duplicate")
		return PutResult{ID: id, Reference: reference(existing)}, nil
	}

	if s.cfg.MaxTotalBytes > 0 && s.totalBytes+size > s.cfg.MaxTotalBytes {
		s.evictLocked(size)
	}

	entry := &Entry{
		ID:           id,
		Content:      content,
		OriginalSize: int(size),
		Filename:     filename,
		MimeType:     mimeType,
		UploadedAt:   s.now(),
	}
	s.entries[id] = entry
	s.totalBytes += size
	if s.bytesGauge != nil {
		s.bytesGauge.Add(context.Background(), size)
	}
	s.addPut("stored")

	s.logger.Debug("content stored",
		zap.String("id", id),
		zap.String("filename", filename),
		zap.Int64("bytes", size),
		zap.Int64("total_bytes", s.totalBytes))

	return PutResult{ID: id, Reference: reference(entry)}, nil
}

// evictLocked removes oldest-uploaded entries until inserting incoming bytes
// would leave usage at or below the eviction target. Caller holds s.mu.
func (s *Store) evictLocked(incoming int64) {
	target := int64(evictionTarget * float64(s.cfg.MaxTotalBytes))
	evicted := 0

	for s.totalBytes+incoming > target && len(s.entries) > 0 {
		oldest := s.oldestLocked()
		if oldest == nil {
			break
		}
		s.removeLocked(oldest)
		evicted++
	}

	if evicted > 0 {
		if s.evictCounter != nil {
			s.evictCounter.Add(context.Background(), int64(evicted))
		}
		s.logger.Info("evicted entries for capacity",
			zap.Int("evicted", evicted),
			zap.Int64("total_bytes", s.totalBytes),
			zap.Int64("incoming_bytes", incoming))
	}
}

func (s *Store) oldestLocked() *Entry {
	var oldest *Entry
	for _, e := range s.entries {
		if oldest == nil || e.UploadedAt.Before(oldest.UploadedAt) {
			oldest = e
		}
	}
	return oldest
}

func (s *Store) removeLocked(e *Entry) {
	delete(s.entries, e.ID)
	s.totalBytes -= int64(e.OriginalSize)
	if s.bytesGauge != nil {
		s.bytesGauge.Add(context.Background(), -int64(e.OriginalSize))
	}
}

// Get returns the raw content for id. The second return is false if the id
// was never stored, or the entry was evicted or expired; that is a miss, not
// an error.
func (s *Store) Get(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return "", false
	}
	return e.Content, true
}

// Entry returns the full entry for id, or nil.
func (s *Store) Entry(id string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}

// ClearExpired removes all entries older than maxAge and returns how many
// were removed.
func (s *Store) ClearExpired(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, e := range s.entries {
		if e.UploadedAt.Before(cutoff) {
			s.removeLocked(e)
			removed++
		}
	}

	if removed > 0 {
		if s.expireCount != nil {
			s.expireCount.Add(context.Background(), int64(removed))
		}
		s.logger.Info("expired entries cleared",
			zap.Int("removed", removed),
			zap.Duration("max_age", maxAge))
	}
	return removed
}

// Stats returns current occupancy.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Entries:       len(s.entries),
		TotalBytes:    s.totalBytes,
		MaxTotalBytes: s.cfg.MaxTotalBytes,
	}
	for _, e := range s.entries {
		if e.Filename != "" {
			st.FilesStored++
		}
		if st.OldestUploaded.IsZero() || e.UploadedAt.Before(st.OldestUploaded) {
			st.OldestUploaded = e.UploadedAt
		}
	}
	return st
}

func (s *Store) addPut(result string) {
	if s.putCounter != nil {
		s.putCounter.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("result", result)))
	}
}

// reference renders the short inline replacement for a stored entry.
func reference(e *Entry) string {
	name := e.Filename
	if name == "" {
		name = "inline"
	}
	return fmt.Sprintf("[File: %s (%s) - ID: %s]", name, humanSize(e.OriginalSize), e.ID)
}

// humanSize formats a byte count as B/KB/MB with one decimal.
func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
