package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"swing-alerts/internal/market"
)

// ZoneFeedOptions parameterise the zone feed client.
type ZoneFeedOptions struct {
	BaseURL   string
	Timeout   time.Duration
	AuthToken string
}

// ZoneFeed pulls zone snapshots from the external zone-builder service.
// The records are treated as opaque; only zone_id and the level fields are
// interpreted downstream.
type ZoneFeed struct {
	opts    ZoneFeedOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewZoneFeed constructs a zone feed client.
func NewZoneFeed(opts ZoneFeedOptions, logger zerolog.Logger) *ZoneFeed {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ZoneFeed{
		opts:    opts,
		logger:  logger.With().Str("component", "zone_feed").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchZones retrieves the current zone snapshot for a symbol.
func (z *ZoneFeed) FetchZones(ctx context.Context, symbol string) ([]market.Zone, error) {
	if z.baseURL == "" {
		return nil, fmt.Errorf("zone feed base url is required")
	}

	endpoint := fmt.Sprintf("%s/zones?symbol=%s", z.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if z.opts.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+z.opts.AuthToken)
	}

	resp, err := z.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zone feed status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	zones, err := market.DecodeZones(body)
	if err != nil {
		return nil, fmt.Errorf("decode zone feed response: %w", err)
	}

	z.logger.Debug().Str("symbol", symbol).Int("zones", len(zones)).Msg("fetched zone snapshot")
	return zones, nil
}

var _ ZoneFetcher = (*ZoneFeed)(nil)
