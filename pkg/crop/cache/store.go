// Package cache persists crop decisions in a content-addressed SQLite table
// with LRU eviction, TTL expiry and settings-driven invalidation.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dlevesque1980/dailywallpaper-sub000/util"
	_ "modernc.org/sqlite"
)

// Schema for the crop_cache table, applied on Open.
const schema = `
CREATE TABLE IF NOT EXISTS crop_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cache_key TEXT NOT NULL UNIQUE,
	image_url TEXT NOT NULL,
	target_width INTEGER NOT NULL,
	target_height INTEGER NOT NULL,
	settings_hash TEXT NOT NULL,
	crop_x REAL NOT NULL,
	crop_y REAL NOT NULL,
	crop_width REAL NOT NULL,
	crop_height REAL NOT NULL,
	crop_confidence REAL NOT NULL,
	crop_strategy TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	last_accessed_at INTEGER NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_crop_cache_key ON crop_cache(cache_key);
CREATE INDEX IF NOT EXISTS idx_crop_cache_image ON crop_cache(image_url);
CREATE INDEX IF NOT EXISTS idx_crop_cache_created ON crop_cache(created_at);
CREATE INDEX IF NOT EXISTS idx_crop_cache_accessed ON crop_cache(last_accessed_at);
`

// Entry is one persisted crop decision.
type Entry struct {
	ID             int64
	CacheKey       string
	ImageURL       string
	TargetWidth    int
	TargetHeight   int
	SettingsHash   string
	CropX          float64
	CropY          float64
	CropWidth      float64
	CropHeight     float64
	CropConfidence float64
	CropStrategy   string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int64
}

// Stats is a point-in-time summary of the cache.
type Stats struct {
	Entries     int64
	Hits        int64
	Misses      int64
	HitRate     float64
	SizeBytes   int64
	OldestEntry time.Time
	NewestEntry time.Time
}

// Store is the SQLite-backed decision cache. Reads run concurrently;
// SQLite serializes writes through its own transaction discipline.
type Store struct {
	db  *sql.DB
	ttl time.Duration

	hits   *util.SafeCounter
	misses *util.SafeCounter

	now func() time.Time
}

// DefaultTTL is how long a decision stays valid without being re-derived.
const DefaultTTL = 7 * 24 * time.Hour

// Open opens (creating if needed) the cache database at path.
func Open(path string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent writers.
	db.SetMaxOpenConns(1)

	store, err := NewStore(db, ttl)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing database connection and applies the schema.
func NewStore(db *sql.DB, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		db:     db,
		ttl:    ttl,
		hits:   util.NewSafeInt(),
		misses: util.NewSafeInt(),
		now:    time.Now,
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("applying cache schema: %w", err)
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry for key, bumping its access stats. A missing or
// TTL-expired row returns (nil, nil); expired rows are dropped lazily.
func (s *Store) Get(key string) (*Entry, error) {
	row := s.db.QueryRow(`SELECT id, cache_key, image_url, target_width, target_height,
		settings_hash, crop_x, crop_y, crop_width, crop_height, crop_confidence,
		crop_strategy, created_at, last_accessed_at, access_count
		FROM crop_cache WHERE cache_key = ?`, key)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.misses.Increment()
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	if s.now().Sub(entry.CreatedAt) > s.ttl {
		s.misses.Increment()
		_, _ = s.db.Exec(`DELETE FROM crop_cache WHERE cache_key = ?`, key)
		return nil, nil
	}

	now := s.now()
	if _, err := s.db.Exec(`UPDATE crop_cache
		SET last_accessed_at = ?, access_count = access_count + 1
		WHERE cache_key = ?`, now.Unix(), key); err != nil {
		return nil, fmt.Errorf("cache access bump: %w", err)
	}
	entry.LastAccessedAt = now
	entry.AccessCount++

	s.hits.Increment()
	return entry, nil
}

// Put upserts an entry by cache key. Concurrent writers for the same key
// race benignly: last write wins.
func (s *Store) Put(entry *Entry) error {
	now := s.now()
	created := entry.CreatedAt
	if created.IsZero() {
		created = now
	}
	accessed := entry.LastAccessedAt
	if accessed.IsZero() {
		accessed = now
	}

	_, err := s.db.Exec(`INSERT INTO crop_cache
		(cache_key, image_url, target_width, target_height, settings_hash,
		 crop_x, crop_y, crop_width, crop_height, crop_confidence, crop_strategy,
		 created_at, last_accessed_at, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
		 image_url = excluded.image_url,
		 target_width = excluded.target_width,
		 target_height = excluded.target_height,
		 settings_hash = excluded.settings_hash,
		 crop_x = excluded.crop_x,
		 crop_y = excluded.crop_y,
		 crop_width = excluded.crop_width,
		 crop_height = excluded.crop_height,
		 crop_confidence = excluded.crop_confidence,
		 crop_strategy = excluded.crop_strategy,
		 created_at = excluded.created_at,
		 last_accessed_at = excluded.last_accessed_at`,
		entry.CacheKey, entry.ImageURL, entry.TargetWidth, entry.TargetHeight,
		entry.SettingsHash, entry.CropX, entry.CropY, entry.CropWidth,
		entry.CropHeight, entry.CropConfidence, entry.CropStrategy,
		created.Unix(), accessed.Unix(), entry.AccessCount)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// DeleteByKey removes one entry.
func (s *Store) DeleteByKey(key string) error {
	_, err := s.db.Exec(`DELETE FROM crop_cache WHERE cache_key = ?`, key)
	if err != nil {
		return fmt.Errorf("cache delete by key: %w", err)
	}
	return nil
}

// DeleteByImage removes every entry for one image URL and returns the count.
func (s *Store) DeleteByImage(imageURL string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM crop_cache WHERE image_url = ?`, imageURL)
	if err != nil {
		return 0, fmt.Errorf("cache delete by image: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpired removes entries older than ttl and returns the count.
func (s *Store) DeleteExpired(ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	cutoff := s.now().Add(-ttl).Unix()
	res, err := s.db.Exec(`DELETE FROM crop_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache delete expired: %w", err)
	}
	return res.RowsAffected()
}

// EvictLRU trims the cache to maxEntries rows, dropping the least recently
// accessed first, and returns the evicted count.
func (s *Store) EvictLRU(maxEntries int) (int64, error) {
	if maxEntries <= 0 {
		return 0, nil
	}
	res, err := s.db.Exec(`DELETE FROM crop_cache WHERE id NOT IN (
		SELECT id FROM crop_cache ORDER BY last_accessed_at DESC, id DESC LIMIT ?)`,
		maxEntries)
	if err != nil {
		return 0, fmt.Errorf("cache evict lru: %w", err)
	}
	return res.RowsAffected()
}

// Maintenance runs TTL expiry then LRU eviction, returning both counts.
func (s *Store) Maintenance(ttl time.Duration, maxEntries int) (expired, evicted int64, err error) {
	expired, err = s.DeleteExpired(ttl)
	if err != nil {
		return 0, 0, err
	}
	evicted, err = s.EvictLRU(maxEntries)
	if err != nil {
		return expired, 0, err
	}
	return expired, evicted, nil
}

// InvalidateForSettings deletes every entry whose stored settings hash
// differs from the given one, and returns the count.
func (s *Store) InvalidateForSettings(settingsHash string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM crop_cache WHERE settings_hash != ?`, settingsHash)
	if err != nil {
		return 0, fmt.Errorf("cache invalidate for settings: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every entry and resets the hit counters.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM crop_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	s.hits.Set(0)
	s.misses.Set(0)
	return nil
}

// Stats returns the current cache summary.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{
		Hits:   int64(s.hits.Value()),
		Misses: int64(s.misses.Value()),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	var oldest, newest sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM crop_cache`).
		Scan(&stats.Entries, &oldest, &newest)
	if err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestEntry = time.Unix(oldest.Int64, 0)
	}
	if newest.Valid {
		stats.NewestEntry = time.Unix(newest.Int64, 0)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount); err == nil {
		if err := s.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize); err == nil {
			stats.SizeBytes = pageCount * pageSize
		}
	}
	return stats, nil
}

// Count returns the number of cached entries.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM crop_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var created, accessed int64
	err := row.Scan(&entry.ID, &entry.CacheKey, &entry.ImageURL,
		&entry.TargetWidth, &entry.TargetHeight, &entry.SettingsHash,
		&entry.CropX, &entry.CropY, &entry.CropWidth, &entry.CropHeight,
		&entry.CropConfidence, &entry.CropStrategy, &created, &accessed,
		&entry.AccessCount)
	if err != nil {
		return nil, err
	}
	entry.CreatedAt = time.Unix(created, 0)
	entry.LastAccessedAt = time.Unix(accessed, 0)
	return &entry, nil
}
