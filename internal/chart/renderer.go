package chart

import (
	"fmt"
	"os"
	"path/filepath"

	"DailyBias/internal/model"

	"github.com/fogleman/gg"
)

// Renderer rasterizes a window of bars to a PNG file at path.
type Renderer interface {
	RenderCandles(bars []model.Bar, path string) error
}

// CandleRenderer draws classic candlestick charts: green bodies for
// up days, red for down, thin high-low wicks, light background.
type CandleRenderer struct {
	Width  int
	Height int
}

// NewCandleRenderer returns a renderer with the default canvas size.
func NewCandleRenderer() *CandleRenderer {
	return &CandleRenderer{Width: 960, Height: 600}
}

const (
	marginX = 40.0
	marginY = 30.0
)

func (r *CandleRenderer) RenderCandles(bars []model.Bar, path string) error {
	if len(bars) == 0 {
		return fmt.Errorf("render %s: no bars", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}

	lo, hi := priceRange(bars)
	if hi <= lo {
		// Flat series: pad the range so candles stay visible.
		hi = lo + 1
	}

	dc := gg.NewContext(r.Width, r.Height)
	dc.SetRGB(0.98, 0.98, 0.96)
	dc.Clear()

	plotW := float64(r.Width) - 2*marginX
	plotH := float64(r.Height) - 2*marginY
	slot := plotW / float64(len(bars))
	bodyW := slot * 0.6

	// y maps a price into canvas coordinates (top-left origin).
	y := func(price float64) float64 {
		return marginY + plotH*(1-(price-lo)/(hi-lo))
	}

	for i, b := range bars {
		cx := marginX + slot*(float64(i)+0.5)

		if b.Close >= b.Open {
			dc.SetRGB(0.18, 0.62, 0.35)
		} else {
			dc.SetRGB(0.80, 0.22, 0.20)
		}

		// Wick
		dc.SetLineWidth(1.5)
		dc.DrawLine(cx, y(b.High), cx, y(b.Low))
		dc.Stroke()

		// Body
		top, bottom := b.Open, b.Close
		if b.Close >= b.Open {
			top, bottom = b.Close, b.Open
		}
		h := y(bottom) - y(top)
		if h < 1 {
			h = 1 // doji: keep a visible sliver
		}
		dc.DrawRectangle(cx-bodyW/2, y(top), bodyW, h)
		dc.Fill()
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return nil
}

func priceRange(bars []model.Bar) (lo, hi float64) {
	lo, hi = bars[0].Low, bars[0].High
	for _, b := range bars[1:] {
		if b.Low < lo {
			lo = b.Low
		}
		if b.High > hi {
			hi = b.High
		}
	}
	return lo, hi
}
