package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFetchDailyMissingAPIKey(t *testing.T) {
	av := NewAlphaVantage(AlphaVantageOptions{}, noopLogger())
	if _, err := av.FetchDaily(context.Background(), "AAPL"); err == nil {
		t.Fatal("missing api key must return an error")
	}
}

func TestFetchDailySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "TIME_SERIES_DAILY" {
			t.Fatalf("unexpected function %q", got)
		}
		if got := r.URL.Query().Get("apikey"); got != "k" {
			t.Fatalf("apikey not forwarded, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Meta Data": {"2. Symbol": "AAPL"},
			"Time Series (Daily)": {
				"2026-08-25": {"1. open": "226.5", "2. high": "229.1", "3. low": "225.8", "4. close": "228.3", "5. volume": "41250000"},
				"2026-08-24": {"1. open": "224.0", "2. high": "227.0", "3. low": "223.5", "4. close": "226.4", "5. volume": "38800000"}
			}
		}`))
	}))
	defer srv.Close()

	av := NewAlphaVantage(AlphaVantageOptions{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	bars, err := av.FetchDaily(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Fatal("bars must be ascending by date")
	}
	if !bars[1].Close.Equal(decimal.RequireFromString("228.3")) {
		t.Fatalf("unexpected close %s", bars[1].Close)
	}
	if bars[1].Volume != 41250000 {
		t.Fatalf("unexpected volume %d", bars[1].Volume)
	}
}

func TestFetchHourlyParsesIntradayStamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("interval"); got != "60min" {
			t.Fatalf("unexpected interval %q", got)
		}
		_, _ = w.Write([]byte(`{
			"Time Series (60min)": {
				"2026-08-25 15:00:00": {"1. open": "1", "2. high": "2", "3. low": "0.5", "4. close": "1.5", "5. volume": "100"}
			}
		}`))
	}))
	defer srv.Close()

	av := NewAlphaVantage(AlphaVantageOptions{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	bars, err := av.FetchHourly(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchHourly: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	want := time.Date(2026, 8, 25, 15, 0, 0, 0, time.UTC)
	if !bars[0].Date.Equal(want) {
		t.Fatalf("expected %s, got %s", want, bars[0].Date)
	}
}

func TestFetchDailyRateLimitNote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	}))
	defer srv.Close()

	av := NewAlphaVantage(AlphaVantageOptions{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := av.FetchDaily(context.Background(), "AAPL"); err == nil {
		t.Fatal("rate limit note must surface as an error")
	}
}

func TestFetchDailyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	av := NewAlphaVantage(AlphaVantageOptions{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := av.FetchDaily(context.Background(), "AAPL"); err == nil {
		t.Fatal("HTTP 502 must return an error")
	}
}
