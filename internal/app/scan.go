package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"swing-alerts/internal/scanner"
	"swing-alerts/internal/storage"
)

// Scan executes one scan pass over the configured (or overridden) universe.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	symbols := opts.Symbols
	if len(symbols) == 0 {
		symbols = a.Config.Scan.Symbols
	}
	if len(symbols) == 0 {
		return errors.New("no symbols configured; set scan.symbols or pass --symbols")
	}

	dataCache, err := a.newCache()
	if err != nil {
		return err
	}
	cooldowns, err := a.newCooldowns()
	if err != nil {
		return err
	}
	blackout, err := a.newBlackout()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; alert auditing disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	var audit storage.AlertStore
	if store != nil {
		audit = store
	}

	engine := scanner.New(a.Config, dataCache, a.newBarFetcher(), a.newZoneFeed(), cooldowns, blackout, a.newNotifier(), audit, a.Logger)

	a.Logger.Info().Int("symbols", len(symbols)).Bool("force_refresh", opts.ForceRefresh).Msg("starting scan pass")
	results := engine.ScanAll(ctx, symbols, opts.ForceRefresh)

	dispatched, suppressed, blocked := 0, 0, 0
	for _, result := range results {
		dispatched += result.Dispatched
		suppressed += result.Suppressed
		if result.Blocked {
			blocked++
		}
	}
	a.Logger.Info().
		Int("scanned", len(results)).
		Int("dispatched", dispatched).
		Int("suppressed", suppressed).
		Int("blocked", blocked).
		Msg("scan pass complete")

	if ctx.Err() != nil && !errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return nil
}
