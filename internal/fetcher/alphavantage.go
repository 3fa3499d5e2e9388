package fetcher

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"PortfolioLab/internal/model"
)

// AlphaVantageFetcher implements Fetcher using the Alpha Vantage daily API.
// It asks for adjusted series first and falls back to the unadjusted
// endpoint when the key's plan does not cover it.
type AlphaVantageFetcher struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	log     zerolog.Logger
}

// NewAlphaVantageFetcher creates a new Alpha Vantage fetcher.
func NewAlphaVantageFetcher(apiKey string, log zerolog.Logger) *AlphaVantageFetcher {
	return &AlphaVantageFetcher{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: "https://www.alphavantage.co",
		APIKey:  apiKey,
		log:     log.With().Str("component", "fetcher").Str("provider", "alphavantage").Logger(),
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

type alphaVantageBar struct {
	Open          string `json:"1. open"`
	High          string `json:"2. high"`
	Low           string `json:"3. low"`
	Close         string `json:"4. close"`
	AdjustedClose string `json:"5. adjusted close"`
	Volume        string `json:"5. volume"`
	AdjVolume     string `json:"6. volume"`
}

type alphaVantageResponse struct {
	ErrorMessage string                     `json:"Error Message"`
	Information  string                     `json:"Information"`
	Note         string                     `json:"Note"`
	Daily        map[string]alphaVantageBar `json:"Time Series (Daily)"`
}

// FetchHistory returns daily bars between start and end.
func (f *AlphaVantageFetcher) FetchHistory(symbol string, start, end time.Time) (*model.PriceSeries, error) {
	if f.APIKey == "" {
		return nil, fmt.Errorf("alphavantage: api key not configured")
	}

	bars, adjusted, err := f.fetchDaily(symbol, "TIME_SERIES_DAILY_ADJUSTED")
	if err != nil {
		f.log.Warn().Str("symbol", symbol).Err(err).Msg("adjusted series unavailable, falling back to raw daily")
		bars, adjusted, err = f.fetchDaily(symbol, "TIME_SERIES_DAILY")
		if err != nil {
			return nil, err
		}
	}

	source := f.Name()
	if !adjusted {
		source += " [unadjusted]"
	}

	points := make([]model.PricePoint, 0, len(bars))
	for dateKey, bar := range bars {
		date, err := time.Parse("2006-01-02", dateKey)
		if err != nil {
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		p, err := f.parseBar(symbol, date, bar, adjusted)
		if err != nil {
			f.log.Debug().Str("symbol", symbol).Str("date", dateKey).Err(err).Msg("skipping malformed bar")
			continue
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("alphavantage: no data for %s in requested period", symbol)
	}

	series := model.NewPriceSeries(symbol, symbol, source, "USD", points)
	series.SortByDate()
	return series, nil
}

func (f *AlphaVantageFetcher) fetchDaily(symbol, function string) (map[string]alphaVantageBar, bool, error) {
	u := fmt.Sprintf("%s/query?function=%s&symbol=%s&outputsize=full&apikey=%s",
		f.BaseURL, function, url.QueryEscape(symbol), url.QueryEscape(f.APIKey))

	resp, err := f.Client.Get(u)
	if err != nil {
		return nil, false, fmt.Errorf("alphavantage fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("alphavantage read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("alphavantage: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed alphaVantageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("alphavantage decode: %w", err)
	}
	if parsed.ErrorMessage != "" {
		return nil, false, fmt.Errorf("alphavantage api error: %s", parsed.ErrorMessage)
	}
	if parsed.Information != "" {
		return nil, false, fmt.Errorf("alphavantage: %s", parsed.Information)
	}
	if parsed.Note != "" {
		return nil, false, fmt.Errorf("alphavantage rate limited: %s", parsed.Note)
	}
	if len(parsed.Daily) == 0 {
		return nil, false, fmt.Errorf("alphavantage: no daily data for %s", symbol)
	}
	return parsed.Daily, function == "TIME_SERIES_DAILY_ADJUSTED", nil
}

func (f *AlphaVantageFetcher) parseBar(symbol string, date time.Time, bar alphaVantageBar, adjusted bool) (model.PricePoint, error) {
	o, err := strconv.ParseFloat(bar.Open, 64)
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("parse open: %w", err)
	}
	h, err := strconv.ParseFloat(bar.High, 64)
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("parse high: %w", err)
	}
	l, err := strconv.ParseFloat(bar.Low, 64)
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("parse low: %w", err)
	}
	c, err := strconv.ParseFloat(bar.Close, 64)
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("parse close: %w", err)
	}

	volStr := bar.Volume
	if adjusted && bar.AdjVolume != "" {
		volStr = bar.AdjVolume
	}
	var vol int64
	if volStr != "" {
		if v, err := strconv.ParseFloat(volStr, 64); err == nil {
			vol = int64(v)
		}
	}

	if adjusted && bar.AdjustedClose != "" {
		if adj, err := strconv.ParseFloat(bar.AdjustedClose, 64); err == nil && adj > 0 && c > 0 {
			factor := adj / c
			o *= factor
			h *= factor
			l *= factor
			c = adj
		}
	}

	return model.NewPricePoint(date, o, h, l, c, vol)
}
