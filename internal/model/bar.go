package model

import "time"

// Bar represents a single daily candlestick.
type Bar struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// Series holds the normalized daily bars for one asset.
// Bars are date-ascending with no duplicate dates; the series is
// built once per refresh and never mutated afterwards.
type Series struct {
	AssetID   string    `json:"asset_id"`
	Bars      []Bar     `json:"bars"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Day truncates t to midnight UTC. All series dates are day-aligned
// so bars from different backends compare equal on the same day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
