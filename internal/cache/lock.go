// File: internal/cache/lock.go
package cache

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// lockStaleAfter is the age past which an on-disk lock file is assumed to be
// an orphan from a crashed process and is reclaimed.
const lockStaleAfter = 10 * time.Second

// fileLock is an advisory lock combining an in-process mutex with an
// exclusively created lock file, so it serializes callers both within one
// process and across processes sharing the same cache file.
type fileLock struct {
	path       string
	attempts   int
	retryDelay time.Duration
	log        *zap.Logger

	mu sync.Mutex // the in-process half of the lock

	// stateMu guards held so that Release stays idempotent.
	stateMu sync.Mutex
	held    bool
}

func newFileLock(path string, attempts int, retryDelay time.Duration, logger *zap.Logger) *fileLock {
	if attempts < 1 {
		attempts = 1
	}
	return &fileLock{
		path:       path,
		attempts:   attempts,
		retryDelay: retryDelay,
		log:        logger,
	}
}

// Acquire attempts to take the lock within the configured retry budget.
// It returns false on timeout instead of blocking forever.
func (l *fileLock) Acquire() bool {
	for i := 0; i < l.attempts; i++ {
		if l.mu.TryLock() {
			if l.tryLockFile() {
				l.stateMu.Lock()
				l.held = true
				l.stateMu.Unlock()
				return true
			}
			l.mu.Unlock()
		}
		if i < l.attempts-1 {
			time.Sleep(l.retryDelay)
		}
	}
	l.log.Warn("Failed to acquire cache lock within retry budget",
		zap.String("lock_file", l.path),
		zap.Int("attempts", l.attempts))
	return false
}

// Release drops the lock. It is safe to call when the lock is not held.
func (l *fileLock) Release() {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	if !l.held {
		return
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.log.Warn("Failed to remove lock file", zap.String("lock_file", l.path), zap.Error(err))
	}
	l.held = false
	l.mu.Unlock()
}

// tryLockFile attempts one exclusive creation of the lock file, reclaiming it
// first when a previous holder left it behind long enough ago.
func (l *fileLock) tryLockFile() bool {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
		f.Close()
		return true
	}
	if !os.IsExist(err) {
		l.log.Warn("Unexpected error creating lock file", zap.String("lock_file", l.path), zap.Error(err))
		return false
	}

	info, statErr := os.Stat(l.path)
	if statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
		l.log.Warn("Reclaiming stale cache lock", zap.String("lock_file", l.path),
			zap.Duration("age", time.Since(info.ModTime())))
		if rmErr := os.Remove(l.path); rmErr == nil || os.IsNotExist(rmErr) {
			// One immediate retry after reclaiming; a racing process may win.
			if f, retryErr := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644); retryErr == nil {
				fmt.Fprintf(f, "%d\n", os.Getpid())
				f.Close()
				return true
			}
		}
	}
	return false
}
