package seriescache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"DailyBias/internal/model"

	_ "modernc.org/sqlite"
)

// backendVersion is part of every cache key. Bump it when a backend's
// normalization changes so stale blobs are never reused.
const backendVersion = 1

// ErrMiss is returned when no fresh entry exists for the key.
var ErrMiss = errors.New("series cache miss")

// Cache persists normalized series so restarts don't refetch upstream.
type Cache interface {
	Get(assetID string, lookbackDays int) (*model.Series, error)
	Put(assetID string, lookbackDays int, s *model.Series) error
	Close() error
}

// SQLiteCache stores one JSON blob per (asset, lookback, version) key.
// Keying by lookback matters: a cached 30-day window must never
// satisfy a 365-day request.
type SQLiteCache struct {
	db     *sql.DB
	maxAge time.Duration
	mu     sync.Mutex
}

// NewSQLiteCache opens (or creates) the database and runs migrations.
// Entries older than maxAge are treated as misses; maxAge <= 0 means
// entries never expire.
func NewSQLiteCache(dbPath string, maxAge time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	c := &SQLiteCache{db: db, maxAge: maxAge}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] series cache opened: %s", dbPath)
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS series_cache (
			cache_key  TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_series_fetched ON series_cache(fetched_at)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func cacheKey(assetID string, lookbackDays int) string {
	return fmt.Sprintf("%s|%d|v%d", assetID, lookbackDays, backendVersion)
}

func (c *SQLiteCache) Get(assetID string, lookbackDays int) (*model.Series, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var payload []byte
	var fetchedAt int64
	err := c.db.QueryRow(
		`SELECT payload, fetched_at FROM series_cache WHERE cache_key = ?`,
		cacheKey(assetID, lookbackDays),
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if c.maxAge > 0 && time.Since(time.Unix(fetchedAt, 0)) > c.maxAge {
		return nil, ErrMiss
	}

	var series model.Series
	if err := json.Unmarshal(payload, &series); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &series, nil
}

func (c *SQLiteCache) Put(assetID string, lookbackDays int, s *model.Series) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT INTO series_cache (cache_key, payload, fetched_at) VALUES (?,?,?)
		 ON CONFLICT(cache_key) DO UPDATE SET payload=excluded.payload, fetched_at=excluded.fetched_at`,
		cacheKey(assetID, lookbackDays), payload, s.FetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	log.Println("[INFO] closing series cache")
	return c.db.Close()
}

// NoopCache is used when no database path is configured; every lookup
// misses and every write is dropped.
type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (n *NoopCache) Get(string, int) (*model.Series, error)   { return nil, ErrMiss }
func (n *NoopCache) Put(string, int, *model.Series) error     { return nil }
func (n *NoopCache) Close() error                             { return nil }
