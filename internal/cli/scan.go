package cli

import (
	"github.com/spf13/cobra"

	"swing-alerts/internal/app"
)

var (
	scanSymbols      []string
	scanForceRefresh bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan pass over the symbol universe",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ScanOptions{
			Symbols:      scanSymbols,
			ForceRefresh: scanForceRefresh,
		}
		return getApp().Scan(cmd.Context(), opts)
	},
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanSymbols, "symbols", nil, "Symbols to scan (defaults to scan.symbols from config)")
	scanCmd.Flags().BoolVar(&scanForceRefresh, "force-refresh", false, "Bypass cache freshness and refetch all series")
}
