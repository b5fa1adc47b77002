package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"swing-alerts/internal/app"
)

var (
	resetSymbol string
	resetAll    bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear cooldown history for a symbol or everything",
	RunE: func(cmd *cobra.Command, args []string) error {
		if resetSymbol == "" && !resetAll {
			return fmt.Errorf("pass --symbol or --all")
		}
		if resetSymbol != "" && resetAll {
			return fmt.Errorf("--symbol and --all are mutually exclusive")
		}

		opts := app.ResetOptions{
			Symbol: resetSymbol,
			All:    resetAll,
		}
		return getApp().Reset(opts)
	},
}

func init() {
	resetCmd.Flags().StringVar(&resetSymbol, "symbol", "", "Symbol whose cooldowns should be cleared")
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "Clear cooldowns for every symbol")
}
