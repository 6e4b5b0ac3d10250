package quiz

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"DailyBias/internal/chart"
	"DailyBias/internal/model"
)

// windowSize is how many bars each rendered chart covers at most.
const windowSize = 30

// ErrInsufficientData means the series has too few bars to build the
// requested number of items. A short series never yields a partial set.
var ErrInsufficientData = errors.New("insufficient data for quiz set")

// Item is one quiz question: two rendered charts anchored at a sampled
// date plus the precomputed ground truth. Items are immutable once built.
type Item struct {
	Index         int
	AnchorDate    time.Time
	SuccessorDate time.Time
	Anchor        model.Bar // OHLC at the anchor date
	Label         model.Sentiment
	SetupPath     string
	OutcomePath   string
}

// Set is the ordered quiz for one asset, built once and read-only.
type Set struct {
	Asset model.Asset
	Items []Item
}

// BuildConfig controls quiz-set construction.
type BuildConfig struct {
	Asset     model.Asset
	Count     int
	StaticDir string
	Seed      int64 // 0 seeds from the clock
}

// Build samples Count distinct anchor dates from the series, labels
// each against its successor's close, and renders the setup and
// outcome charts. Any render error aborts the whole build.
func Build(series *model.Series, cfg BuildConfig, renderer chart.Renderer) (*Set, error) {
	bars := series.Bars
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("quiz build %s: count must be positive", cfg.Asset.Symbol)
	}
	// One bar past the last anchor guarantees every anchor has a
	// successor; windowSize+1 guarantees a full first window exists.
	if len(bars) < windowSize+1 || len(bars) < cfg.Count+1 {
		return nil, fmt.Errorf("%w: %s has %d bars, need at least %d",
			ErrInsufficientData, cfg.Asset.Symbol, len(bars), max(windowSize+1, cfg.Count+1))
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Candidates are every index except the last bar. Sampling is
	// uniform without replacement; chronological order is only a
	// display convenience, shuffling happens at serve time.
	candidates := rng.Perm(len(bars) - 1)[:cfg.Count]
	sort.Ints(candidates)

	items := make([]Item, 0, cfg.Count)
	for n, i := range candidates {
		anchor := bars[i]
		successor := bars[i+1]

		setup := window(bars, i)
		outcome := window(bars, i+1)

		label := model.Bearish
		if successor.Close > anchor.Close {
			label = model.Bullish
		}

		setupPath := artifactPath(cfg.StaticDir, cfg.Asset, anchor.Date, "setup")
		outcomePath := artifactPath(cfg.StaticDir, cfg.Asset, successor.Date, "outcome")

		if err := renderer.RenderCandles(setup, setupPath); err != nil {
			return nil, fmt.Errorf("quiz build %s: setup chart at %s: %w",
				cfg.Asset.Symbol, anchor.Date.Format("2006-01-02"), err)
		}
		if err := renderer.RenderCandles(outcome, outcomePath); err != nil {
			return nil, fmt.Errorf("quiz build %s: outcome chart at %s: %w",
				cfg.Asset.Symbol, successor.Date.Format("2006-01-02"), err)
		}

		items = append(items, Item{
			Index:         n,
			AnchorDate:    anchor.Date,
			SuccessorDate: successor.Date,
			Anchor:        anchor,
			Label:         label,
			SetupPath:     setupPath,
			OutcomePath:   outcomePath,
		})
	}

	return &Set{Asset: cfg.Asset, Items: items}, nil
}

// window returns the slice of at most windowSize bars ending at index
// end inclusive.
func window(bars []model.Bar, end int) []model.Bar {
	start := end + 1 - windowSize
	if start < 0 {
		start = 0
	}
	return bars[start : end+1]
}

func artifactPath(staticDir string, asset model.Asset, date time.Time, role string) string {
	name := fmt.Sprintf("%s_%s_%s.png", asset.Symbol, date.Format("2006-01-02"), role)
	return filepath.Join(staticDir, string(asset.Type), name)
}
