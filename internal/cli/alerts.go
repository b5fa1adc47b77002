package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"swing-alerts/internal/app"
)

var (
	alertsSymbol string
	alertsLimit  int
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Display the alert audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.AlertsOptions{
			Symbol: alertsSymbol,
			Limit:  alertsLimit,
		}
		return getApp().Alerts(cmd.Context(), opts)
	},
}

func init() {
	alertsCmd.Flags().StringVar(&alertsSymbol, "symbol", "", "Only show alerts for this symbol")
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 20, "Number of alerts to display")
}
