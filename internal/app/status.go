package app

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
)

// Status prints cooldown store statistics and, when a symbol is given, the
// per-zone cooldown status for that symbol.
func (a *App) Status(opts StatusOptions) error {
	cooldowns, err := a.newCooldowns()
	if err != nil {
		return err
	}

	stats := cooldowns.Stats()
	fmt.Fprintf(os.Stdout, "Cooldown window: %s\n", stats.Window)
	fmt.Fprintf(os.Stdout, "Tracked: %d symbols, %d zones (%d cooldowns active)\n",
		stats.Symbols, stats.Zones, stats.ActiveCooldowns)

	if opts.Symbol == "" {
		return nil
	}

	status := cooldowns.CooldownStatus(opts.Symbol)
	if len(status) == 0 {
		fmt.Fprintf(os.Stdout, "no cooldown entries for %s\n", opts.Symbol)
		return nil
	}

	zoneIDs := make([]string, 0, len(status))
	for zoneID := range status {
		zoneIDs = append(zoneIDs, zoneID)
	}
	sort.Strings(zoneIDs)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Zone\tRemaining")
	for _, zoneID := range zoneIDs {
		fmt.Fprintf(writer, "%s\t%s\n", zoneID, status[zoneID])
	}
	return writer.Flush()
}

// Reset clears cooldown history for one symbol or the whole store.
func (a *App) Reset(opts ResetOptions) error {
	cooldowns, err := a.newCooldowns()
	if err != nil {
		return err
	}

	if opts.All {
		if err := cooldowns.ClearAll(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "cleared all cooldown history")
		return nil
	}

	reset, err := cooldowns.ResetSymbol(opts.Symbol)
	if err != nil {
		return err
	}
	if !reset {
		fmt.Fprintf(os.Stdout, "no cooldown history for %s\n", opts.Symbol)
		return nil
	}
	fmt.Fprintf(os.Stdout, "reset cooldown history for %s\n", opts.Symbol)
	return nil
}
