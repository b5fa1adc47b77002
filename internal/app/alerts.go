package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"swing-alerts/internal/storage"
)

// Alerts prints the alert audit trail stored in Postgres.
func (a *App) Alerts(ctx context.Context, opts AlertsOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("audit trail disabled; set database.dsn to enable it")
	}
	defer closeStore()

	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	var records []storage.AlertRecord
	if opts.Symbol != "" {
		records, err = store.ListAlertsForSymbol(ctx, opts.Symbol, opts.Limit)
	} else {
		records, err = store.ListRecentAlerts(ctx, opts.Limit)
	}
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("no alerts recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ALERTED AT\tSYMBOL\tZONE\tTYPE\tPRICE\tCHANNELS")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.AlertedAt.Local().Format(time.DateTime),
			rec.Symbol,
			rec.ZoneID,
			rec.ZoneType,
			rec.Price.String(),
			strings.Join(rec.Channels, ","),
		)
	}
	return w.Flush()
}
