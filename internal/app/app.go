package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"swing-alerts/internal/alerting"
	"swing-alerts/internal/cache"
	"swing-alerts/internal/config"
	"swing-alerts/internal/dedup"
	"swing-alerts/internal/earnings"
	"swing-alerts/internal/fetcher"
	"swing-alerts/internal/market"
	"swing-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newCache() (*cache.Cache, error) {
	return cache.New(cache.Options{
		Dir:             a.Config.Cache.Dir,
		DailyMaxAge:     a.Config.Cache.DailyMaxAge,
		HourlyMaxAge:    a.Config.Cache.HourlyMaxAge,
		ZoneMaxAge:      a.Config.Cache.ZoneMaxAge,
		DailyRetention:  a.Config.Cache.DailyRetention,
		HourlyRetention: a.Config.Cache.HourlyRetention,
	}, a.Logger)
}

func (a *App) newCooldowns() (*dedup.Store, error) {
	return dedup.NewStore(dedup.Options{
		Window:    a.Config.Cooldown.Window,
		StateFile: a.Config.Cooldown.StateFile,
	}, a.Logger)
}

func (a *App) newBarFetcher() *fetcher.AlphaVantage {
	return fetcher.NewAlphaVantage(fetcher.AlphaVantageOptions{
		APIKey:     a.Config.AlphaVantage.APIKey,
		BaseURL:    a.Config.AlphaVantage.BaseURL,
		OutputSize: a.Config.AlphaVantage.OutputSize,
		Timeout:    a.Config.AlphaVantage.RequestTimeout,
		UserAgent:  a.Config.AlphaVantage.UserAgent,
	}, a.Logger)
}

func (a *App) newZoneFeed() *fetcher.ZoneFeed {
	return fetcher.NewZoneFeed(fetcher.ZoneFeedOptions{
		BaseURL:   a.Config.ZoneFeed.BaseURL,
		Timeout:   a.Config.ZoneFeed.RequestTimeout,
		AuthToken: a.Config.ZoneFeed.AuthToken,
	}, a.Logger)
}

func (a *App) newBlackout() (*earnings.Filter, error) {
	if !a.Config.Earnings.Enabled {
		return nil, nil
	}
	calendar := fetcher.NewEarningsCalendar(fetcher.AlphaVantageOptions{
		APIKey:    a.Config.AlphaVantage.APIKey,
		BaseURL:   a.Config.AlphaVantage.BaseURL,
		Timeout:   a.Config.AlphaVantage.RequestTimeout,
		UserAgent: a.Config.AlphaVantage.UserAgent,
	}, a.Logger)

	return earnings.New(earnings.Options{
		CacheFile:  a.Config.Earnings.CacheFile,
		MaxAge:     a.Config.Earnings.MaxAge,
		DaysBefore: a.Config.Earnings.DaysBefore,
		DaysAfter:  a.Config.Earnings.DaysAfter,
	}, calendar, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// ScanOptions configure a scan pass.
type ScanOptions struct {
	Symbols      []string
	ForceRefresh bool
}

// StatusOptions configure the status command.
type StatusOptions struct {
	Symbol string
}

// CacheClearOptions select which cache files to delete.
type CacheClearOptions struct {
	Symbol    string
	Timeframe market.Timeframe
}

// ResetOptions configure the cooldown reset command.
type ResetOptions struct {
	Symbol string
	All    bool
}

// AlertsOptions configure the audit listing.
type AlertsOptions struct {
	Symbol string
	Limit  int
}

// ExportOptions hold parameters for exporting a cached series.
type ExportOptions struct {
	Symbol    string
	Timeframe market.Timeframe
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
