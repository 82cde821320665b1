// Package cache layers a read-through, TTL-bound cache over the SQLite
// store. Concurrent refreshes of the same key are collapsed with
// singleflight so a cold or expired key costs at most one portal round
// trip regardless of how many chats ask for it at once.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/uitmtimetable/icress-linebot-go/internal/logger"
	"github.com/uitmtimetable/icress-linebot-go/internal/storage"
)

// Recorder receives cache outcome events. Implemented by the metrics
// package; a nil recorder disables recording.
type Recorder interface {
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
}

// Store is the shared cache handle. Safe for concurrent use.
type Store struct {
	db       *storage.DB
	group    singleflight.Group
	log      *logger.Logger
	recorder Recorder
}

// New creates a cache store backed by db.
func New(db *storage.DB, log *logger.Logger) *Store {
	return &Store{
		db:  db,
		log: log.WithModule("cache"),
	}
}

// SetRecorder installs a metrics recorder for hit/miss events.
func (s *Store) SetRecorder(r Recorder) {
	s.recorder = r
}

// Forget drops a key from the in-flight group so the next lookup
// recomputes even while an earlier computation is still running.
func (s *Store) Forget(key string) {
	s.group.Forget(key)
}

// GetOrCompute returns the cached value under key, computing and caching it
// on a miss. Failures never propagate: a failed computation or a storage
// error yields the zero value for this request and leaves the cache
// untouched, so the next request retries. Empty results (nil slices, empty
// maps, blank strings) are likewise never cached; an empty portal answer
// must not shadow a later good one for the whole TTL.
func GetOrCompute[T any](ctx context.Context, s *Store, key string, ttl time.Duration, compute func(context.Context) (T, error)) T {
	var zero T

	if raw, ok, err := s.db.GetCacheEntry(ctx, key); err == nil && ok {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			s.recordHit(key)
			return value
		}
		// Undecodable payload, likely from an older schema. Drop it.
		s.log.Warnf("dropping undecodable cache entry for %s", key)
		_ = s.db.DeleteCacheEntry(ctx, key)
	}
	s.recordMiss(key)

	result, err, _ := s.group.Do(key, func() (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			s.log.WithError(err).Errorf("failed to encode cache value for %s", key)
			return value, nil
		}
		if isEmptyJSON(encoded) {
			return value, nil
		}
		if err := s.db.PutCacheEntry(ctx, key, encoded, ttl); err != nil {
			s.log.WithError(err).Warnf("failed to persist cache entry for %s", key)
		}
		return value, nil
	})
	if err != nil {
		s.log.WithError(err).Warnf("cache computation failed for %s", key)
		return zero
	}

	value, ok := result.(T)
	if !ok {
		return zero
	}
	return value
}

func (s *Store) recordHit(key string) {
	if s.recorder != nil {
		s.recorder.RecordCacheHit(key)
	}
}

func (s *Store) recordMiss(key string) {
	if s.recorder != nil {
		s.recorder.RecordCacheMiss(key)
	}
}

// isEmptyJSON reports whether an encoded payload carries no data.
func isEmptyJSON(encoded []byte) bool {
	switch {
	case len(encoded) == 0:
		return true
	case bytes.Equal(encoded, []byte("null")),
		bytes.Equal(encoded, []byte("[]")),
		bytes.Equal(encoded, []byte("{}")),
		bytes.Equal(encoded, []byte(`""`)):
		return true
	}
	return false
}
