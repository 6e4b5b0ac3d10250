package seriescache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"DailyBias/internal/model"
)

func testSeries(fetchedAt time.Time) *model.Series {
	return &model.Series{
		AssetID: "bitcoin",
		Bars: []model.Bar{
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 100, High: 112.2, Low: 107.8, Close: 110},
			{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 110, High: 107.1, Low: 102.9, Close: 105},
		},
		FetchedAt: fetchedAt,
	}
}

func openCache(t *testing.T, maxAge time.Duration) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), maxAge)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_RoundTrip(t *testing.T) {
	c := openCache(t, 0)
	want := testSeries(time.Now().UTC().Truncate(time.Second))

	if err := c.Put("bitcoin", 365, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := c.Get("bitcoin", 365)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AssetID != want.AssetID || len(got.Bars) != len(want.Bars) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want.Bars {
		if got.Bars[i] != want.Bars[i] {
			t.Errorf("bar %d: got %+v, want %+v", i, got.Bars[i], want.Bars[i])
		}
	}
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := openCache(t, 0)
	if _, err := c.Get("bitcoin", 365); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

// A cached short window must never satisfy a longer request: lookback
// is part of the key.
func TestCache_KeyedByLookback(t *testing.T) {
	c := openCache(t, 0)
	if err := c.Put("bitcoin", 30, testSeries(time.Now())); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := c.Get("bitcoin", 365); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss for different lookback, got %v", err)
	}
	if _, err := c.Get("bitcoin", 30); err != nil {
		t.Fatalf("expected hit for matching lookback, got %v", err)
	}
}

func TestCache_ExpiredEntryMisses(t *testing.T) {
	c := openCache(t, time.Hour)
	stale := testSeries(time.Now().Add(-2 * time.Hour))
	if err := c.Put("bitcoin", 365, stale); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := c.Get("bitcoin", 365); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss for stale entry, got %v", err)
	}
}

func TestCache_PutOverwrites(t *testing.T) {
	c := openCache(t, 0)
	first := testSeries(time.Now())
	if err := c.Put("bitcoin", 365, first); err != nil {
		t.Fatalf("put: %v", err)
	}
	second := testSeries(time.Now())
	second.Bars = second.Bars[:1]
	if err := c.Put("bitcoin", 365, second); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, err := c.Get("bitcoin", 365)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Bars) != 1 {
		t.Fatalf("got %d bars, want the overwritten 1", len(got.Bars))
	}
}
