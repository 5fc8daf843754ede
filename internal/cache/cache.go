// File: internal/cache/cache.go
//
// Package cache implements the file backed keyed store underneath the action
// recorder. The entire mapping lives in one JSON file that is read fully,
// mutated in memory, and written back fully on every operation; an advisory
// lock brackets each read-modify-write cycle so at most one is in flight at
// any time, in this process or another one sharing the file.
package cache

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/sankalpgunturi/stagehand/api/schemas"
	"github.com/sankalpgunturi/stagehand/internal/config"
)

// json is the codec for the on-disk mapping.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrLockNotAcquired is returned by write paths when the advisory lock could
// not be taken within the retry budget. Read paths degrade to empty results
// instead of surfacing it.
var ErrLockNotAcquired = fmt.Errorf("cache: advisory lock not acquired within retry budget")

// Entry is one persisted record. Timestamp and RequestID are fixed at the
// first write to a key; later writes to the same key replace Data only.
type Entry struct {
	Data      schemas.ActionEntry `json:"data"`
	Timestamp int64               `json:"timestamp"`
	RequestID string              `json:"requestId"`
}

// Store is a file backed mapping from hashed composite keys to entries.
type Store struct {
	path string
	lock *fileLock
	log  *zap.Logger

	// now is swappable for tests that need deterministic timestamps.
	now func() time.Time
}

// New creates a store over cfg.Path(). The cache directory is created
// eagerly; the cache file itself is created lazily on first use.
func New(cfg config.CacheConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %q: %w", cfg.Dir, err)
	}
	log := logger.Named("cache")
	path := cfg.Path()
	return &Store{
		path: path,
		lock: newFileLock(path+".lock", cfg.LockAttempts, cfg.LockRetryDelay, log),
		log:  log,
		now:  time.Now,
	}, nil
}

// Path returns the location of the backing file.
func (s *Store) Path() string { return s.path }

// AcquireLock attempts to take the advisory lock within the retry budget.
// Callers that read the whole mapping directly use this with ReleaseLock.
func (s *Store) AcquireLock() bool { return s.lock.Acquire() }

// ReleaseLock drops the advisory lock. Safe to call when not held.
func (s *Store) ReleaseLock() { s.lock.Release() }

// Set inserts or overwrites the entry for the given key. On the first write
// the entry is stamped with the current time and the caller's request id;
// an overwrite replaces the payload and keeps both stamps.
func (s *Store) Set(key schemas.CacheKey, data schemas.ActionEntry, requestID string) error {
	if !s.AcquireLock() {
		return ErrLockNotAcquired
	}
	defer s.ReleaseLock()

	mapping, err := s.readMapping()
	if err != nil {
		return err
	}

	hashed := HashKey(key)
	entry := Entry{
		Data:      data,
		Timestamp: s.now().UnixMilli(),
		RequestID: requestID,
	}
	if prev, ok := mapping[hashed]; ok {
		entry.Timestamp = prev.Timestamp
		entry.RequestID = prev.RequestID
	}
	mapping[hashed] = entry

	return s.writeMapping(mapping)
}

// Get looks up the entry for the given key. A missing key is reported via the
// boolean, never as an error.
func (s *Store) Get(key schemas.CacheKey) (Entry, bool, error) {
	if !s.AcquireLock() {
		return Entry{}, false, ErrLockNotAcquired
	}
	defer s.ReleaseLock()

	mapping, err := s.readMapping()
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok := mapping[HashKey(key)]
	return entry, ok, nil
}

// Delete removes the entry for the given key. Deleting an absent key is a no-op.
func (s *Store) Delete(key schemas.CacheKey) error {
	if !s.AcquireLock() {
		return ErrLockNotAcquired
	}
	defer s.ReleaseLock()

	mapping, err := s.readMapping()
	if err != nil {
		return err
	}
	hashed := HashKey(key)
	if _, ok := mapping[hashed]; !ok {
		return nil
	}
	delete(mapping, hashed)
	return s.writeMapping(mapping)
}

// DeleteForRequestID removes every entry written under the given request id.
func (s *Store) DeleteForRequestID(requestID string) error {
	if !s.AcquireLock() {
		return ErrLockNotAcquired
	}
	defer s.ReleaseLock()

	mapping, err := s.readMapping()
	if err != nil {
		return err
	}
	changed := false
	for hashed, entry := range mapping {
		if entry.RequestID == requestID {
			delete(mapping, hashed)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.writeMapping(mapping)
}

// All returns every entry in the mapping, in unspecified order. Callers that
// need chronological order sort by Timestamp.
func (s *Store) All() ([]Entry, error) {
	if !s.AcquireLock() {
		return nil, ErrLockNotAcquired
	}
	defer s.ReleaseLock()

	mapping, err := s.readMapping()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(mapping))
	for _, entry := range mapping {
		entries = append(entries, entry)
	}
	return entries, nil
}

// Reset truncates the store to an empty mapping. The truncation happens even
// when the lock cannot be taken: a wedged lock must not make the cache
// impossible to clear.
func (s *Store) Reset() error {
	if s.AcquireLock() {
		defer s.ReleaseLock()
	} else {
		// Truncate anyway, but never touch the lock: it belongs to
		// whoever is holding it.
		s.log.Warn("Resetting cache without lock; contention persisted past the retry budget",
			zap.String("cache_file", s.path))
	}

	return s.writeMapping(map[string]Entry{})
}

// readMapping loads the whole mapping from disk. A missing file is the empty
// mapping, matching the lazy creation contract.
func (s *Store) readMapping() (map[string]Entry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read cache file %q: %w", s.path, err)
	}
	if len(raw) == 0 {
		return map[string]Entry{}, nil
	}
	var mapping map[string]Entry
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("failed to decode cache file %q: %w", s.path, err)
	}
	if mapping == nil {
		mapping = map[string]Entry{}
	}
	return mapping, nil
}

// writeMapping persists the whole mapping, indented so the file stays
// readable when inspected by hand.
func (s *Store) writeMapping(mapping map[string]Entry) error {
	raw, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache mapping: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file %q: %w", s.path, err)
	}
	return nil
}
