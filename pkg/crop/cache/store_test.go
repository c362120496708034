package cache

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEntry(key, imageURL, settingsHash string) *Entry {
	return &Entry{
		CacheKey:       key,
		ImageURL:       imageURL,
		TargetWidth:    1080,
		TargetHeight:   2400,
		SettingsHash:   settingsHash,
		CropX:          0.25,
		CropY:          0,
		CropWidth:      0.5,
		CropHeight:     1,
		CropConfidence: 0.8,
		CropStrategy:   "rule_of_thirds",
	}
}

func TestStoreGetPut(t *testing.T) {
	store := openTestStore(t, time.Hour)

	t.Run("missing key is a miss", func(t *testing.T) {
		entry, err := store.Get("absent")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, store.Put(testEntry("key-1", "img-1", "hash-a")))

		entry, err := store.Get("key-1")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "img-1", entry.ImageURL)
		assert.Equal(t, 0.25, entry.CropX)
		assert.Equal(t, 0.5, entry.CropWidth)
		assert.Equal(t, 0.8, entry.CropConfidence)
		assert.Equal(t, "rule_of_thirds", entry.CropStrategy)
	})

	t.Run("get bumps access stats", func(t *testing.T) {
		require.NoError(t, store.Put(testEntry("key-2", "img-2", "hash-a")))

		first, err := store.Get("key-2")
		require.NoError(t, err)
		second, err := store.Get("key-2")
		require.NoError(t, err)
		assert.Equal(t, first.AccessCount+1, second.AccessCount)
	})

	t.Run("put upserts by key", func(t *testing.T) {
		entry := testEntry("key-3", "img-3", "hash-a")
		require.NoError(t, store.Put(entry))

		entry.CropX = 0.4
		entry.CropStrategy = "entropy"
		require.NoError(t, store.Put(entry))

		got, err := store.Get("key-3")
		require.NoError(t, err)
		assert.Equal(t, 0.4, got.CropX)
		assert.Equal(t, "entropy", got.CropStrategy)

		count, err := store.Count()
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)
	})
}

func TestStoreTTLExpiry(t *testing.T) {
	store := openTestStore(t, time.Hour)

	base := time.Now()
	store.now = func() time.Time { return base }
	require.NoError(t, store.Put(testEntry("key-1", "img-1", "hash-a")))

	t.Run("fresh entry hits", func(t *testing.T) {
		store.now = func() time.Time { return base.Add(59 * time.Minute) }
		entry, err := store.Get("key-1")
		require.NoError(t, err)
		assert.NotNil(t, entry)
	})

	t.Run("expired entry misses and is dropped", func(t *testing.T) {
		store.now = func() time.Time { return base.Add(61 * time.Minute) }
		entry, err := store.Get("key-1")
		require.NoError(t, err)
		assert.Nil(t, entry)

		count, err := store.Count()
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func TestStoreDeleteExpired(t *testing.T) {
	store := openTestStore(t, time.Hour)
	base := time.Now()

	store.now = func() time.Time { return base.Add(-2 * time.Hour) }
	require.NoError(t, store.Put(testEntry("old-1", "img-1", "hash-a")))
	require.NoError(t, store.Put(testEntry("old-2", "img-2", "hash-a")))

	store.now = func() time.Time { return base }
	require.NoError(t, store.Put(testEntry("fresh", "img-3", "hash-a")))

	removed, err := store.DeleteExpired(time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	count, err := store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestStoreEvictLRU(t *testing.T) {
	store := openTestStore(t, 24*time.Hour)
	base := time.Now()

	// Five entries with strictly increasing access times.
	for i := 0; i < 5; i++ {
		store.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, store.Put(testEntry(
			fmt.Sprintf("key-%d", i), fmt.Sprintf("img-%d", i), "hash-a")))
	}

	evicted, err := store.EvictLRU(2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, evicted)

	// Exactly the two most recently accessed survive.
	for i := 0; i < 3; i++ {
		entry, err := store.Get(fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
		assert.Nil(t, entry, "key-%d should be evicted", i)
	}
	for i := 3; i < 5; i++ {
		entry, err := store.Get(fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
		assert.NotNil(t, entry, "key-%d should survive", i)
	}

	t.Run("zero cap is a no-op", func(t *testing.T) {
		evicted, err := store.EvictLRU(0)
		require.NoError(t, err)
		assert.EqualValues(t, 0, evicted)
	})
}

func TestStoreMaintenance(t *testing.T) {
	store := openTestStore(t, time.Hour)
	base := time.Now()

	store.now = func() time.Time { return base.Add(-2 * time.Hour) }
	require.NoError(t, store.Put(testEntry("old", "img-1", "hash-a")))

	store.now = func() time.Time { return base }
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(testEntry(
			fmt.Sprintf("fresh-%d", i), "img-2", "hash-a")))
	}

	expired, evicted, err := store.Maintenance(time.Hour, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)
	assert.EqualValues(t, 1, evicted)

	count, err := store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestStoreDeleteByImage(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put(testEntry("key-1", "img-a", "hash-a")))
	require.NoError(t, store.Put(testEntry("key-2", "img-a", "hash-b")))
	require.NoError(t, store.Put(testEntry("key-3", "img-b", "hash-a")))

	removed, err := store.DeleteByImage("img-a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	entry, err := store.Get("key-3")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestStoreInvalidateForSettings(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put(testEntry("key-1", "img-1", "hash-current")))
	require.NoError(t, store.Put(testEntry("key-2", "img-2", "hash-stale")))
	require.NoError(t, store.Put(testEntry("key-3", "img-3", "hash-stale")))

	removed, err := store.InvalidateForSettings("hash-current")
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	entry, err := store.Get("key-1")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestStoreStats(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put(testEntry("key-1", "img-1", "hash-a")))

	_, err := store.Get("key-1") // hit
	require.NoError(t, err)
	_, err = store.Get("absent") // miss
	require.NoError(t, err)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
	assert.Greater(t, stats.SizeBytes, int64(0))
	assert.False(t, stats.OldestEntry.IsZero())
}

func TestStoreClear(t *testing.T) {
	store := openTestStore(t, time.Hour)

	require.NoError(t, store.Put(testEntry("key-1", "img-1", "hash-a")))
	_, err := store.Get("key-1")
	require.NoError(t, err)

	require.NoError(t, store.Clear())

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Entries)
	assert.EqualValues(t, 0, stats.Hits)
	assert.EqualValues(t, 0, stats.Misses)
}
