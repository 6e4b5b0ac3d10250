package fetcher

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"DailyBias/internal/model"
)

// CoinGeckoFetcher implements Fetcher using the CoinGecko market_chart
// API. CoinGecko only reports closing prices, so the remaining OHLC
// fields are synthesized: Open is the previous day's close, High/Low
// are a fixed ±2% band around the close. The band is a documented
// approximation that shapes the rendered candles but never the
// bullish/bearish label, which compares closes only.
type CoinGeckoFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewCoinGeckoFetcher creates a fetcher with optional proxy support.
func NewCoinGeckoFetcher(proxyURL string) *CoinGeckoFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &CoinGeckoFetcher{
		BaseURL: "https://api.coingecko.com/api/v3",
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// marketChart is the response shape of /coins/{id}/market_chart.
// Each price point is a [unix_ms, price] pair.
type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

func (f *CoinGeckoFetcher) FetchDailyBars(assetID string, days int) ([]model.Bar, error) {
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d&interval=daily",
		f.BaseURL, url.PathEscape(assetID), days)

	resp, err := f.Client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: coingecko fetch: %v", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: coingecko read body: %v", ErrDataUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: coingecko status %d, body: %s", ErrDataUnavailable, resp.StatusCode, string(body))
	}

	var chart marketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: coingecko decode: %v", ErrDataUnavailable, err)
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("%w: coingecko: no price data", ErrDataUnavailable)
	}

	closes := make([]model.Bar, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		ts := time.UnixMilli(int64(p[0])).UTC()
		closes = append(closes, model.Bar{Date: model.Day(ts), Close: p[1]})
	}
	closes, err = normalize(closes)
	if err != nil {
		return nil, err
	}

	// Synthesize OHLC from closes. The first point has no previous
	// close to open from, so it is dropped.
	bars := make([]model.Bar, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		c := closes[i].Close
		bars = append(bars, model.Bar{
			Date:  closes[i].Date,
			Open:  closes[i-1].Close,
			High:  c * 1.02,
			Low:   c * 0.98,
			Close: c,
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: coingecko: single price point, no bars", ErrDataUnavailable)
	}
	return bars, nil
}
