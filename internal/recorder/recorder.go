// File: internal/recorder/recorder.go
//
// Package recorder is the domain facade over the action cache. It normalizes
// a recorded step's identifying triple into a cache key, stores the step
// payload, and returns recorded steps in chronological order for the code
// synthesis pipeline.
package recorder

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sankalpgunturi/stagehand/api/schemas"
	"github.com/sankalpgunturi/stagehand/internal/cache"
	"github.com/sankalpgunturi/stagehand/internal/config"
)

// Recorder records browser automation steps into a session scoped cache.
//
// Construction always wipes the underlying store: a recorder instance owns
// one recording session, not a durable multi-session log.
type Recorder struct {
	store *cache.Store
	log   *zap.Logger
}

// New creates a recorder over the configured cache location and resets any
// steps a previous session left behind.
func New(cfg config.CacheConfig, logger *zap.Logger) (*Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := cache.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open action cache: %w", err)
	}
	r := &Recorder{
		store: store,
		log:   logger.Named("recorder"),
	}
	if err := r.store.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset action cache: %w", err)
	}
	return r, nil
}

// AddActionStep records one step under the key derived from its identifying
// triple. The structured log event is best effort and never affects the
// outcome of the write.
func (r *Recorder) AddActionStep(record schemas.ActionRecord) error {
	r.log.Debug("Adding action step to cache",
		zap.String("category", "action_cache"),
		zap.Strings("previousSelectors", record.PreviousSelectors),
		zap.String("action", record.Action),
		zap.Any("playwrightCommand", record.PlaywrightCommand))

	if err := r.store.Set(record.Key(), record.ActionEntry, record.RequestID); err != nil {
		return fmt.Errorf("failed to record action step: %w", err)
	}
	return nil
}

// GetActionStep returns the recorded payload for an identifying triple, or
// nil when nothing was recorded under it. A missing step is not an error,
// and lock contention degrades to a missing step with a logged warning.
func (r *Recorder) GetActionStep(key schemas.CacheKey) (*schemas.ActionEntry, error) {
	entry, found, err := r.store.Get(key)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotAcquired) {
			r.log.Warn("Failed to look up action step; treating as absent", zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up action step: %w", err)
	}
	if !found {
		return nil, nil
	}
	data := entry.Data
	return &data, nil
}

// RemoveActionStep deletes the step recorded under an identifying triple.
func (r *Recorder) RemoveActionStep(key schemas.CacheKey) error {
	if err := r.store.Delete(key); err != nil {
		return fmt.Errorf("failed to remove action step: %w", err)
	}
	return nil
}

// ClearAction removes every step recorded under the given request id.
func (r *Recorder) ClearAction(requestID string) error {
	if err := r.store.DeleteForRequestID(requestID); err != nil {
		return fmt.Errorf("failed to clear actions for request: %w", err)
	}
	r.log.Debug("Cleared action steps for request", zap.String("requestId", requestID))
	return nil
}

// GetAllActions returns every recorded step sorted ascending by write
// timestamp. Lock contention or a read failure degrades to an empty slice
// with a logged warning; retrieval is a recoverable read path and never
// fails the caller.
func (r *Recorder) GetAllActions() []cache.Entry {
	entries, err := r.store.All()
	if err != nil {
		// Covers lock contention and read failures alike.
		r.log.Warn("Failed to read recorded actions; returning none", zap.Error(err))
		return []cache.Entry{}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return entries
}

// ResetCache wipes the whole store, not just one request's steps.
func (r *Recorder) ResetCache() error {
	if err := r.store.Reset(); err != nil {
		return fmt.Errorf("failed to reset action cache: %w", err)
	}
	r.log.Debug("Action cache reset")
	return nil
}
