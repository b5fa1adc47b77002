package app

import (
	"fmt"
	"os"
)

// CacheInfo prints file counts and total size of the backing cache store.
func (a *App) CacheInfo() error {
	dataCache, err := a.newCache()
	if err != nil {
		return err
	}

	info, err := dataCache.Info()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Cache dir: %s\n", info.Dir)
	fmt.Fprintf(os.Stdout, "Bar files: %d\n", info.BarFiles)
	fmt.Fprintf(os.Stdout, "Zone files: %d\n", info.ZoneFiles)
	fmt.Fprintf(os.Stdout, "Total size: %.2f MB\n", float64(info.TotalSizeBytes)/(1024*1024))
	return nil
}

// CacheClear deletes matching cache files.
func (a *App) CacheClear(opts CacheClearOptions) error {
	dataCache, err := a.newCache()
	if err != nil {
		return err
	}

	removed, err := dataCache.Clear(opts.Symbol, opts.Timeframe)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "removed %d cache file(s)\n", removed)
	return nil
}
