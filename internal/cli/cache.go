package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"swing-alerts/internal/app"
	"swing-alerts/internal/market"
)

var (
	cacheClearSymbol    string
	cacheClearTimeframe string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the local data cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Summarise cached files and disk usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CacheInfo()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached series, optionally scoped by symbol and timeframe",
	RunE: func(cmd *cobra.Command, args []string) error {
		tf := market.Timeframe(cacheClearTimeframe)
		if cacheClearTimeframe != "" && !tf.Valid() {
			return fmt.Errorf("unknown timeframe %q", cacheClearTimeframe)
		}

		opts := app.CacheClearOptions{
			Symbol:    cacheClearSymbol,
			Timeframe: tf,
		}
		return getApp().CacheClear(opts)
	},
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheClearSymbol, "symbol", "", "Only delete files for this symbol")
	cacheClearCmd.Flags().StringVar(&cacheClearTimeframe, "timeframe", "", "Only delete this timeframe (daily or hourly)")

	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
