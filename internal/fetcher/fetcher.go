package fetcher

import (
	"errors"
	"fmt"
	"sort"

	"DailyBias/internal/model"
)

// ErrDataUnavailable wraps every upstream failure: non-success status,
// empty payload, or a missing expected field.
var ErrDataUnavailable = errors.New("market data unavailable")

// Fetcher defines the interface for fetching daily market data.
// Implementations must return day-aligned, date-ascending bars with
// no duplicate dates.
type Fetcher interface {
	FetchDailyBars(assetID string, days int) ([]model.Bar, error)
	Name() string
}

// normalize sorts bars ascending, drops duplicate dates keeping the
// most recently reported value, and fails when nothing is left.
func normalize(bars []model.Bar) ([]model.Bar, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrDataUnavailable)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
