package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"DailyBias/internal/chart"
	"DailyBias/internal/config"
	"DailyBias/internal/fetcher"
	"DailyBias/internal/model"
	"DailyBias/internal/quiz"
	"DailyBias/internal/seriescache"
)

// ErrUnknownAsset is returned for symbols not present in the config.
var ErrUnknownAsset = errors.New("unknown asset")

// Status is the readiness state of one asset's quiz set.
type Status string

const (
	StatusBuilding Status = "building"
	StatusReady    Status = "ready"
	StatusFailed   Status = "failed"
)

// AssetStatus is the per-asset view exposed to the index page.
type AssetStatus struct {
	Asset  model.Asset
	Status Status
	Err    error
}

type assetState struct {
	set    *quiz.Set
	status Status
	err    error
}

// App owns one quiz set per configured asset plus its readiness state.
// Sets are built by the startup batch (and by scheduled refreshes) and
// swapped in atomically; request handlers only read.
type App struct {
	cfg      *config.Config
	cache    seriescache.Cache
	renderer chart.Renderer
	crypto   fetcher.Fetcher
	equities fetcher.Fetcher

	mu     sync.RWMutex
	states map[string]*assetState
}

// New creates an App with all assets in the building state.
func New(cfg *config.Config, cache seriescache.Cache, renderer chart.Renderer, crypto, equities fetcher.Fetcher) *App {
	states := make(map[string]*assetState, len(cfg.Assets))
	for _, a := range cfg.Assets {
		states[a.Symbol] = &assetState{status: StatusBuilding}
	}
	return &App{
		cfg:      cfg,
		cache:    cache,
		renderer: renderer,
		crypto:   crypto,
		equities: equities,
		states:   states,
	}
}

// Set returns the ready quiz set for symbol. ok is false while the
// asset is still building or its last build failed; err then carries
// the failure reason, if any.
func (a *App) Set(symbol string) (set *quiz.Set, ok bool, err error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st, known := a.states[symbol]
	if !known {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownAsset, symbol)
	}
	if st.status != StatusReady {
		return nil, false, st.err
	}
	return st.set, true, nil
}

// Statuses lists every configured asset with its readiness, in config order.
func (a *App) Statuses() []AssetStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AssetStatus, 0, len(a.cfg.Assets))
	for _, asset := range a.cfg.Assets {
		st := a.states[asset.Symbol]
		out = append(out, AssetStatus{Asset: asset, Status: st.status, Err: st.err})
	}
	return out
}

// BuildAll runs the batch build for every configured asset, one at a
// time with a fixed delay between assets to stay under upstream rate
// limits. A failed asset degrades only its own route.
func (a *App) BuildAll(ctx context.Context) {
	delay := time.Duration(a.cfg.Quiz.FetchDelaySec) * time.Second
	for i, asset := range a.cfg.Assets {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		if err := a.buildAsset(ctx, asset); err != nil {
			log.Printf("[ERROR] build quiz set for %s: %v", asset.Symbol, err)
			a.setFailed(asset.Symbol, err)
			continue
		}
		log.Printf("[INFO] quiz set ready for %s", asset.Symbol)
	}
}

func (a *App) buildAsset(ctx context.Context, asset model.Asset) error {
	series, err := a.loadSeries(ctx, asset)
	if err != nil {
		return err
	}

	set, err := quiz.Build(series, quiz.BuildConfig{
		Asset:     asset,
		Count:     a.cfg.Quiz.NumTests,
		StaticDir: a.cfg.Server.StaticDir,
		Seed:      a.cfg.Quiz.Seed,
	}, a.renderer)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.states[asset.Symbol] = &assetState{set: set, status: StatusReady}
	a.mu.Unlock()
	return nil
}

// loadSeries consults the cache first, then fetches upstream with
// bounded exponential-backoff retries and writes back on success.
func (a *App) loadSeries(ctx context.Context, asset model.Asset) (*model.Series, error) {
	days := a.cfg.Quiz.LookbackDays

	if series, err := a.cache.Get(asset.ID, days); err == nil {
		log.Printf("[INFO] series cache hit for %s (%d days, %d bars)", asset.ID, days, len(series.Bars))
		return series, nil
	} else if !errors.Is(err, seriescache.ErrMiss) {
		log.Printf("[WARN] series cache read for %s: %v", asset.ID, err)
	}

	f := a.fetcherFor(asset)
	bars, err := a.fetchWithRetry(ctx, f, asset.ID, days)
	if err != nil {
		return nil, err
	}

	series := &model.Series{AssetID: asset.ID, Bars: bars, FetchedAt: time.Now().UTC()}
	if err := a.cache.Put(asset.ID, days, series); err != nil {
		log.Printf("[WARN] series cache write for %s: %v", asset.ID, err)
	}
	return series, nil
}

func (a *App) fetcherFor(asset model.Asset) fetcher.Fetcher {
	if asset.Type == model.AssetCrypto {
		return a.crypto
	}
	return a.equities
}

// fetchWithRetry fetches daily bars with exponential backoff.
func (a *App) fetchWithRetry(ctx context.Context, f fetcher.Fetcher, assetID string, days int) ([]model.Bar, error) {
	maxRetries := a.cfg.Quiz.MaxRetries
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		bars, err := f.FetchDailyBars(assetID, days)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		backoff := time.Duration(1<<uint(i)) * time.Second
		log.Printf("[WARN] fetch %s via %s failed (attempt %d/%d): %v, retrying in %v",
			assetID, f.Name(), i+1, maxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

func (a *App) setFailed(symbol string, err error) {
	a.mu.Lock()
	a.states[symbol] = &assetState{status: StatusFailed, err: err}
	a.mu.Unlock()
}
