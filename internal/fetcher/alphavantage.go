package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"swing-alerts/internal/market"
)

const (
	dailyDateLayout  = "2006-01-02"
	hourlyDateLayout = "2006-01-02 15:04:05"
)

// AlphaVantageOptions parameterise the Alpha Vantage client.
type AlphaVantageOptions struct {
	APIKey     string
	BaseURL    string
	OutputSize string
	Timeout    time.Duration
	UserAgent  string
}

// AlphaVantage fetches OHLCV series from the Alpha Vantage REST API.
type AlphaVantage struct {
	opts    AlphaVantageOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewAlphaVantage constructs an Alpha Vantage client.
func NewAlphaVantage(opts AlphaVantageOptions, logger zerolog.Logger) *AlphaVantage {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	if opts.OutputSize == "" {
		opts.OutputSize = "compact"
	}

	return &AlphaVantage{
		opts:    opts,
		logger:  logger.With().Str("component", "alphavantage_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type seriesFields struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type seriesResponse struct {
	ErrorMessage string                  `json:"Error Message"`
	Note         string                  `json:"Note"`
	Information  string                  `json:"Information"`
	Daily        map[string]seriesFields `json:"Time Series (Daily)"`
	Hourly       map[string]seriesFields `json:"Time Series (60min)"`
}

// FetchDaily retrieves the daily series for a symbol, ascending by date.
func (a *AlphaVantage) FetchDaily(ctx context.Context, symbol string) (market.Bars, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", a.opts.OutputSize)

	res, err := a.query(ctx, params)
	if err != nil {
		return nil, err
	}
	return parseSeries(res.Daily, dailyDateLayout)
}

// FetchHourly retrieves the 60-minute intraday series for a symbol,
// ascending by date.
func (a *AlphaVantage) FetchHourly(ctx context.Context, symbol string) (market.Bars, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_INTRADAY")
	params.Set("symbol", symbol)
	params.Set("interval", "60min")
	params.Set("outputsize", a.opts.OutputSize)

	res, err := a.query(ctx, params)
	if err != nil {
		return nil, err
	}
	return parseSeries(res.Hourly, hourlyDateLayout)
}

func (a *AlphaVantage) query(ctx context.Context, params url.Values) (*seriesResponse, error) {
	body, err := a.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var res seriesResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode alphavantage response: %w", err)
	}

	// The API reports problems inside a 200 response.
	if res.ErrorMessage != "" {
		return nil, fmt.Errorf("alphavantage error: %s", res.ErrorMessage)
	}
	if res.Note != "" {
		return nil, fmt.Errorf("alphavantage rate limited: %s", res.Note)
	}
	if res.Information != "" {
		return nil, fmt.Errorf("alphavantage notice: %s", res.Information)
	}

	return &res, nil
}

func (a *AlphaVantage) get(ctx context.Context, params url.Values) ([]byte, error) {
	if a.opts.APIKey == "" {
		return nil, fmt.Errorf("alphavantage api key is required")
	}
	params.Set("apikey", a.opts.APIKey)

	endpoint := a.baseURL + "/query?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(a.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func parseSeries(series map[string]seriesFields, layout string) (market.Bars, error) {
	bars := make(market.Bars, 0, len(series))
	for stamp, fields := range series {
		date, err := time.ParseInLocation(layout, stamp, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse bar date %q: %w", stamp, err)
		}

		bar := market.Bar{Date: date}
		if bar.Open, err = decimal.NewFromString(fields.Open); err != nil {
			return nil, fmt.Errorf("parse open for %s: %w", stamp, err)
		}
		if bar.High, err = decimal.NewFromString(fields.High); err != nil {
			return nil, fmt.Errorf("parse high for %s: %w", stamp, err)
		}
		if bar.Low, err = decimal.NewFromString(fields.Low); err != nil {
			return nil, fmt.Errorf("parse low for %s: %w", stamp, err)
		}
		if bar.Close, err = decimal.NewFromString(fields.Close); err != nil {
			return nil, fmt.Errorf("parse close for %s: %w", stamp, err)
		}
		if bar.Volume, err = strconv.ParseInt(fields.Volume, 10, 64); err != nil {
			return nil, fmt.Errorf("parse volume for %s: %w", stamp, err)
		}
		bars = append(bars, bar)
	}

	bars.SortByDate()
	return bars, nil
}

var _ BarFetcher = (*AlphaVantage)(nil)
