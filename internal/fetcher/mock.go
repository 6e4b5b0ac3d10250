package fetcher

import (
	"time"

	"DailyBias/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars []model.Bar
	Err  error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ string, days int) ([]model.Bar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	return GenerateBars(100, days), nil
}

// GenerateBars builds a synthetic drifting series of count daily bars
// ending yesterday, starting from basePrice.
func GenerateBars(basePrice float64, count int) []model.Bar {
	end := model.Day(time.Now().UTC())
	bars := make([]model.Bar, count)
	prev := basePrice
	for i := 0; i < count; i++ {
		c := basePrice * (1 + float64(i-count/2)*0.002)
		bars[i] = model.Bar{
			Date:  end.AddDate(0, 0, -(count - i)),
			Open:  prev,
			High:  c * 1.02,
			Low:   c * 0.98,
			Close: c,
		}
		prev = c
	}
	return bars
}
