package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EarningsCalendar fetches upcoming earnings report dates from the Alpha
// Vantage EARNINGS_CALENDAR endpoint, which responds with CSV rather than
// JSON.
type EarningsCalendar struct {
	opts    AlphaVantageOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewEarningsCalendar constructs an earnings calendar client. It shares the
// Alpha Vantage connectivity options with the bar fetcher.
func NewEarningsCalendar(opts AlphaVantageOptions, logger zerolog.Logger) *EarningsCalendar {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}

	return &EarningsCalendar{
		opts:    opts,
		logger:  logger.With().Str("component", "earnings_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// NextEarnings returns the next scheduled report date for a symbol, or
// false when the calendar lists none in the coming quarter.
func (e *EarningsCalendar) NextEarnings(ctx context.Context, symbol string) (time.Time, bool, error) {
	if e.opts.APIKey == "" {
		return time.Time{}, false, errors.New("alphavantage api key is required")
	}

	params := url.Values{}
	params.Set("function", "EARNINGS_CALENDAR")
	params.Set("symbol", symbol)
	params.Set("horizon", "3month")
	params.Set("apikey", e.opts.APIKey)

	endpoint := e.baseURL + "/query?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return time.Time{}, false, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return time.Time{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return time.Time{}, false, fmt.Errorf("earnings calendar status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	date, ok, err := parseEarningsCSV(resp.Body, symbol)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse earnings calendar: %w", err)
	}
	return date, ok, nil
}

// parseEarningsCSV extracts the earliest reportDate for the symbol from the
// calendar CSV (columns: symbol,name,reportDate,fiscalDateEnding,estimate,
// currency).
func parseEarningsCSV(r io.Reader, symbol string) (time.Time, bool, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	symbolIdx, dateIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "symbol":
			symbolIdx = i
		case "reportDate":
			dateIdx = i
		}
	}
	if symbolIdx < 0 || dateIdx < 0 {
		return time.Time{}, false, fmt.Errorf("unexpected header %v", header)
	}

	var next time.Time
	found := false
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return time.Time{}, false, err
		}
		if len(record) <= dateIdx || !strings.EqualFold(record[symbolIdx], symbol) {
			continue
		}

		date, err := time.ParseInLocation(dailyDateLayout, strings.TrimSpace(record[dateIdx]), time.UTC)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parse report date %q: %w", record[dateIdx], err)
		}
		if !found || date.Before(next) {
			next = date
			found = true
		}
	}

	return next, found, nil
}

var _ EarningsFetcher = (*EarningsCalendar)(nil)
