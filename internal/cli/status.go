package cli

import (
	"github.com/spf13/cobra"

	"swing-alerts/internal/app"
)

var statusSymbol string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cooldown state, optionally for a single symbol",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.StatusOptions{
			Symbol: statusSymbol,
		}
		return getApp().Status(opts)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusSymbol, "symbol", "", "Restrict output to one symbol")
}
