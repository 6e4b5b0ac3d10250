package quiz

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"DailyBias/internal/model"
)

// recordingRenderer stands in for the chart renderer and remembers
// the windows it was asked to draw, keyed by artifact path.
type recordingRenderer struct {
	windows map[string][]model.Bar
	err     error
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{windows: make(map[string][]model.Bar)}
}

func (r *recordingRenderer) RenderCandles(bars []model.Bar, path string) error {
	if r.err != nil {
		return r.err
	}
	w := make([]model.Bar, len(bars))
	copy(w, bars)
	r.windows[path] = w
	return nil
}

// risingSeries builds count daily bars with closes 100, 101, 102, ...
// and the synthetic crypto-style OHLC shape.
func risingSeries(count int) *model.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		c := 100.0 + float64(i)
		bars[i] = model.Bar{
			Date:  start.AddDate(0, 0, i),
			Open:  c - 1,
			High:  c * 1.02,
			Low:   c * 0.98,
			Close: c,
		}
	}
	return &model.Series{AssetID: "bitcoin", Bars: bars}
}

func testAsset() model.Asset {
	return model.Asset{Symbol: "btc", ID: "bitcoin", Type: model.AssetCrypto}
}

func TestBuild_ItemInvariants(t *testing.T) {
	series := risingSeries(60)
	r := newRecordingRenderer()
	set, err := Build(series, BuildConfig{Asset: testAsset(), Count: 5, StaticDir: "static", Seed: 42}, r)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(set.Items) != 5 {
		t.Fatalf("expected exactly 5 items, got %d", len(set.Items))
	}

	byDate := make(map[time.Time]int, len(series.Bars))
	for i, b := range series.Bars {
		byDate[b.Date] = i
	}

	var prev time.Time
	for n, item := range set.Items {
		if item.Index != n {
			t.Errorf("item %d: index %d", n, item.Index)
		}
		if n > 0 && !item.AnchorDate.After(prev) {
			t.Errorf("item %d: anchors not ascending: %v after %v", n, item.AnchorDate, prev)
		}
		prev = item.AnchorDate

		i, ok := byDate[item.AnchorDate]
		if !ok {
			t.Fatalf("item %d: anchor %v not in series", n, item.AnchorDate)
		}
		if i == len(series.Bars)-1 {
			t.Errorf("item %d: anchor is the last series date", n)
		}
		// Successor must be the minimal date strictly after the anchor.
		if want := series.Bars[i+1].Date; !item.SuccessorDate.Equal(want) {
			t.Errorf("item %d: successor %v, want %v", n, item.SuccessorDate, want)
		}
		if !item.SuccessorDate.After(item.AnchorDate) {
			t.Errorf("item %d: successor %v not after anchor %v", n, item.SuccessorDate, item.AnchorDate)
		}
		if item.Anchor != series.Bars[i] {
			t.Errorf("item %d: anchor OHLC not taken from the anchor bar", n)
		}

		// Window lengths: min(30, bars up to the window's end date).
		setup := r.windows[item.SetupPath]
		outcome := r.windows[item.OutcomePath]
		if want := minInt(30, i+1); len(setup) != want {
			t.Errorf("item %d: setup window %d bars, want %d", n, len(setup), want)
		}
		if want := minInt(30, i+2); len(outcome) != want {
			t.Errorf("item %d: outcome window %d bars, want %d", n, len(outcome), want)
		}
		if len(setup) > 0 && !setup[len(setup)-1].Date.Equal(item.AnchorDate) {
			t.Errorf("item %d: setup window does not end at the anchor", n)
		}
		if len(outcome) > 0 && !outcome[len(outcome)-1].Date.Equal(item.SuccessorDate) {
			t.Errorf("item %d: outcome window does not end at the successor", n)
		}

		// Rising series: every successor close exceeds its anchor close.
		if item.Label != model.Bullish {
			t.Errorf("item %d: label %s, want Bullish", n, item.Label)
		}
	}
}

func TestBuild_LabelRule(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 101, 99, 99, 102} // up, down, flat, up
	bars := make([]model.Bar, 31+len(closes))
	for i := range bars {
		c := 100.0
		if i >= 31 {
			c = closes[i-31]
		}
		bars[i] = model.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	series := &model.Series{AssetID: "bitcoin", Bars: bars}

	// Build with count = all candidates so every transition is covered.
	set, err := Build(series, BuildConfig{Asset: testAsset(), Count: len(bars) - 1, StaticDir: "s", Seed: 7}, newRecordingRenderer())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	labels := make(map[time.Time]model.Sentiment)
	for _, item := range set.Items {
		labels[item.AnchorDate] = item.Label
	}
	tests := []struct {
		offset int // anchor index into closes
		want   model.Sentiment
	}{
		{0, model.Bullish}, // 100 -> 101
		{1, model.Bearish}, // 101 -> 99
		{2, model.Bearish}, // 99 -> 99, equal closes are Bearish
		{3, model.Bullish}, // 99 -> 102
	}
	for _, tt := range tests {
		date := start.AddDate(0, 0, 31+tt.offset)
		if got := labels[date]; got != tt.want {
			t.Errorf("anchor %s: label %s, want %s", date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestBuild_InsufficientData(t *testing.T) {
	tests := []struct {
		name  string
		bars  int
		count int
	}{
		{"five bars five tests", 5, 5},
		{"below window minimum", 20, 3},
		{"count equals bars", 40, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(risingSeries(tt.bars), BuildConfig{Asset: testAsset(), Count: tt.count, StaticDir: "s", Seed: 1}, newRecordingRenderer())
			if !errors.Is(err, ErrInsufficientData) {
				t.Fatalf("expected ErrInsufficientData, got %v", err)
			}
		})
	}
}

func TestBuild_DeterministicWithSeed(t *testing.T) {
	series := risingSeries(90)
	cfg := BuildConfig{Asset: testAsset(), Count: 5, StaticDir: "s", Seed: 99}
	a, err := Build(series, cfg, newRecordingRenderer())
	if err != nil {
		t.Fatalf("build a: %v", err)
	}
	b, err := Build(series, cfg, newRecordingRenderer())
	if err != nil {
		t.Fatalf("build b: %v", err)
	}
	for i := range a.Items {
		if !a.Items[i].AnchorDate.Equal(b.Items[i].AnchorDate) {
			t.Fatalf("item %d: anchors differ across builds with the same seed", i)
		}
	}
}

func TestBuild_DistinctAnchors(t *testing.T) {
	series := risingSeries(40)
	set, err := Build(series, BuildConfig{Asset: testAsset(), Count: 20, StaticDir: "s", Seed: 3}, newRecordingRenderer())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	seen := make(map[time.Time]bool)
	for _, item := range set.Items {
		if seen[item.AnchorDate] {
			t.Fatalf("anchor %v sampled twice", item.AnchorDate)
		}
		seen[item.AnchorDate] = true
	}
}

func TestBuild_RenderFailureAbortsSet(t *testing.T) {
	r := newRecordingRenderer()
	r.err = fmt.Errorf("disk full")
	_, err := Build(risingSeries(60), BuildConfig{Asset: testAsset(), Count: 5, StaticDir: "s", Seed: 1}, r)
	if err == nil {
		t.Fatal("expected build to fail when rendering fails")
	}
}

func TestBuild_ArtifactPaths(t *testing.T) {
	series := risingSeries(60)
	set, err := Build(series, BuildConfig{Asset: testAsset(), Count: 1, StaticDir: "static", Seed: 5}, newRecordingRenderer())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	item := set.Items[0]
	wantSetup := fmt.Sprintf("static/crypto/btc_%s_setup.png", item.AnchorDate.Format("2006-01-02"))
	if item.SetupPath != wantSetup {
		t.Errorf("setup path %q, want %q", item.SetupPath, wantSetup)
	}
	wantOutcome := fmt.Sprintf("static/crypto/btc_%s_outcome.png", item.SuccessorDate.Format("2006-01-02"))
	if item.OutcomePath != wantOutcome {
		t.Errorf("outcome path %q, want %q", item.OutcomePath, wantOutcome)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
