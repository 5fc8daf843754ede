// File: internal/cache/cache_test.go
package cache

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/sankalpgunturi/stagehand/api/schemas"
	"github.com/sankalpgunturi/stagehand/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestStore builds a store over a per-test temp directory with a tight
// lock budget so contention tests finish quickly.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.CacheConfig{
		Dir:            t.TempDir(),
		File:           "action_cache.json",
		LockAttempts:   5,
		LockRetryDelay: 2 * time.Millisecond,
	}
	store, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return store
}

func testKey(url string) schemas.CacheKey {
	return schemas.CacheKey{
		URL:               url,
		Action:            "click the button",
		PreviousSelectors: []string{"xpath=body/div"},
	}
}

func testEntry(url string) schemas.ActionEntry {
	return schemas.ActionEntry{
		URL:               url,
		PlaywrightCommand: schemas.PlaywrightCommand{Method: "click"},
		Xpaths:            []string{"/html/body/div/button"},
		PreviousSelectors: []string{"xpath=body/div"},
		Completed:         true,
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	key := testKey("https://example.com")

	require.NoError(t, store.Set(key, testEntry("https://example.com"), "req-1"))

	entry, found, err := store.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://example.com", entry.Data.URL)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.NotZero(t, entry.Timestamp)
}

func TestGetMissingKeyIsNotAnError(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.Get(testKey("https://nowhere.example"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOverwriteReplacesDataOnly(t *testing.T) {
	store := newTestStore(t)
	key := testKey("https://example.com")

	base := time.Now()
	store.now = func() time.Time { return base }
	require.NoError(t, store.Set(key, testEntry("https://example.com"), "req-1"))

	first, found, err := store.Get(key)
	require.NoError(t, err)
	require.True(t, found)

	// A later write to the same key replaces the payload but keeps the
	// original timestamp and request id.
	store.now = func() time.Time { return base.Add(time.Minute) }
	updated := testEntry("https://example.com")
	updated.Completed = false
	require.NoError(t, store.Set(key, updated, "req-2"))

	second, found, err := store.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, second.Data.Completed)
	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, "req-1", second.RequestID)

	all, err := store.All()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteIsNoOpWhenAbsent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Delete(testKey("https://nowhere.example")))
}

func TestDeleteForRequestIDScopesToOneRequest(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set(testKey("https://a.example"), testEntry("https://a.example"), "req-a"))
	require.NoError(t, store.Set(testKey("https://b.example"), testEntry("https://b.example"), "req-a"))
	require.NoError(t, store.Set(testKey("https://c.example"), testEntry("https://c.example"), "req-b"))

	require.NoError(t, store.DeleteForRequestID("req-a"))

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "req-b", all[0].RequestID)
}

func TestResetEmptiesTheStore(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(testKey("https://a.example"), testEntry("https://a.example"), "req-a"))

	require.NoError(t, store.Reset())

	all, err := store.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestResetProceedsDespiteHeldLock(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(testKey("https://a.example"), testEntry("https://a.example"), "req-a"))

	// Simulate another process holding the lock for longer than the budget.
	lockPath := store.Path() + ".lock"
	require.NoError(t, os.WriteFile(lockPath, []byte("12345\n"), 0o644))
	defer os.Remove(lockPath)

	require.NoError(t, store.Reset())

	// Inspect the file directly; Get would block on the same lock.
	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))
}

func TestResetLeavesConcurrentHoldersLockAlone(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(testKey("https://a.example"), testEntry("https://a.example"), "req-a"))

	require.True(t, store.AcquireLock())

	// The unlocked truncate must not steal the holder's lock.
	require.NoError(t, store.Reset())
	assert.False(t, store.AcquireLock(), "lock must still be held after Reset")
	_, err := os.Stat(store.Path() + ".lock")
	assert.NoError(t, err, "lock file must survive an unlocked Reset")

	store.ReleaseLock()
	require.True(t, store.AcquireLock())
	store.ReleaseLock()

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))
}

func TestWritePathFailsWhenLockHeld(t *testing.T) {
	store := newTestStore(t)

	lockPath := store.Path() + ".lock"
	require.NoError(t, os.WriteFile(lockPath, []byte("12345\n"), 0o644))
	defer os.Remove(lockPath)

	err := store.Set(testKey("https://a.example"), testEntry("https://a.example"), "req-a")
	require.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestReadPathSurfacesLockContention(t *testing.T) {
	store := newTestStore(t)

	lockPath := store.Path() + ".lock"
	require.NoError(t, os.WriteFile(lockPath, []byte("12345\n"), 0o644))
	defer os.Remove(lockPath)

	_, err := store.All()
	require.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestAcquireLockTimesOutAndReleaseIsIdempotent(t *testing.T) {
	cfg := config.CacheConfig{
		Dir:            t.TempDir(),
		File:           "action_cache.json",
		LockAttempts:   3,
		LockRetryDelay: 2 * time.Millisecond,
	}
	store, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	contender, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	require.True(t, store.AcquireLock())
	// The second holder must time out within the budget instead of hanging.
	assert.False(t, contender.AcquireLock())

	store.ReleaseLock()
	// Releasing again must be safe.
	store.ReleaseLock()
	contender.ReleaseLock()

	assert.True(t, contender.AcquireLock())
	contender.ReleaseLock()
}

func TestAcquireLockSkipsDelayAfterFinalAttempt(t *testing.T) {
	cfg := config.CacheConfig{
		Dir:            t.TempDir(),
		File:           "action_cache.json",
		LockAttempts:   1,
		LockRetryDelay: 250 * time.Millisecond,
	}
	store, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	lockPath := store.Path() + ".lock"
	require.NoError(t, os.WriteFile(lockPath, []byte("12345\n"), 0o644))
	defer os.Remove(lockPath)

	// A single attempt has nothing to wait for; failure must be immediate.
	start := time.Now()
	assert.False(t, store.AcquireLock())
	assert.Less(t, time.Since(start), cfg.LockRetryDelay)
}

func TestStaleLockIsReclaimed(t *testing.T) {
	store := newTestStore(t)

	lockPath := store.Path() + ".lock"
	require.NoError(t, os.WriteFile(lockPath, []byte("12345\n"), 0o644))
	staleTime := time.Now().Add(-2 * lockStaleAfter)
	require.NoError(t, os.Chtimes(lockPath, staleTime, staleTime))

	require.True(t, store.AcquireLock())
	store.ReleaseLock()
}

func TestMappingSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.CacheConfig{Dir: dir, File: "action_cache.json", LockAttempts: 5, LockRetryDelay: 2 * time.Millisecond}

	store, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Set(testKey("https://a.example"), testEntry("https://a.example"), "req-a"))

	reopened, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	all, err := reopened.All()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
