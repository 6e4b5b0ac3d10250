package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"DailyBias/internal/config"
	"DailyBias/internal/fetcher"
	"DailyBias/internal/model"
	"DailyBias/internal/seriescache"
)

// nullRenderer satisfies chart.Renderer without touching the disk.
type nullRenderer struct{}

func (nullRenderer) RenderCandles([]model.Bar, string) error { return nil }

func testConfig(t *testing.T, assets ...model.Asset) *config.Config {
	t.Helper()
	cfg := &config.Config{Assets: assets}
	cfg.Server.StaticDir = t.TempDir()
	cfg.Quiz.LookbackDays = 365
	cfg.Quiz.NumTests = 5
	cfg.Quiz.Seed = 1
	return cfg
}

func TestBuildAll_FailedAssetDegradesOnlyItself(t *testing.T) {
	cfg := testConfig(t,
		model.Asset{Symbol: "btc", ID: "bitcoin", Type: model.AssetCrypto},
		model.Asset{Symbol: "aapl", ID: "AAPL", Type: model.AssetStock},
	)
	crypto := &fetcher.MockFetcher{Bars: fetcher.GenerateBars(100, 60)}
	equities := &fetcher.MockFetcher{Err: fetcher.ErrDataUnavailable}

	a := New(cfg, seriescache.NewNoopCache(), nullRenderer{}, crypto, equities)
	a.BuildAll(context.Background())

	set, ok, err := a.Set("btc")
	if !ok || err != nil {
		t.Fatalf("btc should be ready, ok=%v err=%v", ok, err)
	}
	if len(set.Items) != 5 {
		t.Fatalf("btc set has %d items, want 5", len(set.Items))
	}

	if _, ok, err := a.Set("aapl"); ok || !errors.Is(err, fetcher.ErrDataUnavailable) {
		t.Fatalf("aapl should be failed with the fetch error, ok=%v err=%v", ok, err)
	}
}

func TestSet_UnknownSymbol(t *testing.T) {
	cfg := testConfig(t, model.Asset{Symbol: "btc", ID: "bitcoin", Type: model.AssetCrypto})
	a := New(cfg, seriescache.NewNoopCache(), nullRenderer{}, &fetcher.MockFetcher{}, &fetcher.MockFetcher{})

	if _, ok, err := a.Set("doge"); ok || !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, ok=%v err=%v", ok, err)
	}
}

func TestSet_NotReadyBeforeBuild(t *testing.T) {
	cfg := testConfig(t, model.Asset{Symbol: "btc", ID: "bitcoin", Type: model.AssetCrypto})
	a := New(cfg, seriescache.NewNoopCache(), nullRenderer{}, &fetcher.MockFetcher{}, &fetcher.MockFetcher{})

	if _, ok, err := a.Set("btc"); ok || err != nil {
		t.Fatalf("expected building state with no error, ok=%v err=%v", ok, err)
	}
	statuses := a.Statuses()
	if len(statuses) != 1 || statuses[0].Status != StatusBuilding {
		t.Fatalf("statuses %+v", statuses)
	}
}

func TestBuildAll_PopulatesAndUsesCache(t *testing.T) {
	cache, err := seriescache.NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	asset := model.Asset{Symbol: "btc", ID: "bitcoin", Type: model.AssetCrypto}
	bars := fetcher.GenerateBars(100, 60)

	cfg := testConfig(t, asset)
	a := New(cfg, cache, nullRenderer{}, &fetcher.MockFetcher{Bars: bars}, &fetcher.MockFetcher{})
	a.BuildAll(context.Background())
	if _, ok, _ := a.Set("btc"); !ok {
		t.Fatal("first build should succeed")
	}

	// Second app run: upstream is down, but the cached series from the
	// first run must keep the asset alive.
	cfg2 := testConfig(t, asset)
	broken := &fetcher.MockFetcher{Err: fetcher.ErrDataUnavailable}
	b := New(cfg2, cache, nullRenderer{}, broken, broken)
	b.BuildAll(context.Background())

	if _, ok, err := b.Set("btc"); !ok {
		t.Fatalf("cache-backed build should succeed, err=%v", err)
	}
}

func TestFetchWithRetry_ExhaustsAndWrapsLastError(t *testing.T) {
	cfg := testConfig(t, model.Asset{Symbol: "btc", ID: "bitcoin", Type: model.AssetCrypto})
	a := New(cfg, seriescache.NewNoopCache(), nullRenderer{}, &fetcher.MockFetcher{}, &fetcher.MockFetcher{})

	f := &fetcher.MockFetcher{Err: fetcher.ErrDataUnavailable}
	_, err := a.fetchWithRetry(context.Background(), f, "bitcoin", 30)
	if !errors.Is(err, fetcher.ErrDataUnavailable) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func TestFetchWithRetry_ContextCancelStopsBackoff(t *testing.T) {
	cfg := testConfig(t, model.Asset{Symbol: "btc", ID: "bitcoin", Type: model.AssetCrypto})
	cfg.Quiz.MaxRetries = 10
	a := New(cfg, seriescache.NewNoopCache(), nullRenderer{}, &fetcher.MockFetcher{}, &fetcher.MockFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fetcher.MockFetcher{Err: fetcher.ErrDataUnavailable}
	_, err := a.fetchWithRetry(ctx, f, "bitcoin", 30)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
