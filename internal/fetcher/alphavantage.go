package fetcher

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"DailyBias/internal/model"

	"github.com/shopspring/decimal"
)

// AlphaVantageFetcher implements Fetcher using the Alpha Vantage
// TIME_SERIES_DAILY API, which returns true daily OHLC. Prices arrive
// string-encoded; they are parsed through decimal so the only rounding
// is the final conversion to float64.
type AlphaVantageFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewAlphaVantageFetcher creates a fetcher with optional proxy support.
func NewAlphaVantageFetcher(apiKey, proxyURL string) *AlphaVantageFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &AlphaVantageFetcher{
		BaseURL: "https://www.alphavantage.co",
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

type avDay struct {
	Open  string `json:"1. open"`
	High  string `json:"2. high"`
	Low   string `json:"3. low"`
	Close string `json:"4. close"`
}

type avResponse struct {
	Series       map[string]avDay `json:"Time Series (Daily)"`
	ErrorMessage string           `json:"Error Message"`
	Note         string           `json:"Note"`
}

func (f *AlphaVantageFetcher) FetchDailyBars(assetID string, days int) ([]model.Bar, error) {
	endpoint := fmt.Sprintf("%s/query?function=TIME_SERIES_DAILY&symbol=%s&outputsize=%s&apikey=%s",
		f.BaseURL, url.QueryEscape(assetID), outputSize(days), url.QueryEscape(f.APIKey))

	resp, err := f.Client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: alphavantage fetch: %v", ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: alphavantage read body: %v", ErrDataUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: alphavantage status %d, body: %s", ErrDataUnavailable, resp.StatusCode, string(body))
	}

	var av avResponse
	if err := json.Unmarshal(body, &av); err != nil {
		return nil, fmt.Errorf("%w: alphavantage decode: %v", ErrDataUnavailable, err)
	}
	if av.ErrorMessage != "" {
		return nil, fmt.Errorf("%w: alphavantage api error: %s", ErrDataUnavailable, av.ErrorMessage)
	}
	if len(av.Series) == 0 {
		// A Note without data means the rate limit was hit.
		if av.Note != "" {
			return nil, fmt.Errorf("%w: alphavantage throttled: %s", ErrDataUnavailable, av.Note)
		}
		return nil, fmt.Errorf("%w: alphavantage: no time series", ErrDataUnavailable)
	}

	bars := make([]model.Bar, 0, len(av.Series))
	for date, day := range av.Series {
		d, err := time.ParseInLocation("2006-01-02", date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: alphavantage date %q: %v", ErrDataUnavailable, date, err)
		}
		o, err := parsePrice(day.Open)
		if err != nil {
			return nil, fmt.Errorf("%w: alphavantage open at %s: %v", ErrDataUnavailable, date, err)
		}
		h, err := parsePrice(day.High)
		if err != nil {
			return nil, fmt.Errorf("%w: alphavantage high at %s: %v", ErrDataUnavailable, date, err)
		}
		l, err := parsePrice(day.Low)
		if err != nil {
			return nil, fmt.Errorf("%w: alphavantage low at %s: %v", ErrDataUnavailable, date, err)
		}
		c, err := parsePrice(day.Close)
		if err != nil {
			return nil, fmt.Errorf("%w: alphavantage close at %s: %v", ErrDataUnavailable, date, err)
		}
		bars = append(bars, model.Bar{Date: d, Open: o, High: h, Low: l, Close: c})
	}

	bars, err = normalize(bars)
	if err != nil {
		return nil, err
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func outputSize(days int) string {
	// compact covers the latest 100 trading days
	if days <= 100 {
		return "compact"
	}
	return "full"
}
