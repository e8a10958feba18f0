package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"trendwatch/internal/storage"
)

// AlertsOptions configure the audited-alert listing.
type AlertsOptions struct {
	Limit int
}

// Alerts prints the most recently audited alerts from the database.
func (a *App) Alerts(ctx context.Context, opts AlertsOptions) error {
	store, closer, err := a.openAuditStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("alert auditing requires database.dsn to be configured")
	}
	defer closer()

	return listAlerts(ctx, store, opts.Limit, os.Stdout)
}

func listAlerts(ctx context.Context, store storage.AlertStore, limit int, w io.Writer) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(w, "no audited alerts")
		return nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tIndicator\tDate\tScore\tThreshold\tDir\tCreated")
	for _, rec := range alerts {
		fmt.Fprintf(
			writer,
			"%d\t%s (%s)\t%s\t%s%%\t%s%%\t%s\t%s\n",
			rec.ID,
			rec.IndicatorName,
			rec.IndicatorID,
			rec.PointDate,
			rec.ScorePct.StringFixed(1),
			rec.ThresholdPct.StringFixed(1),
			rec.Direction,
			rec.CreatedAt.UTC().Format("2006-01-02 15:04"),
		)
	}
	return writer.Flush()
}

// PruneAlerts deletes audited alerts older than the retention window.
func (a *App) PruneAlerts(ctx context.Context, olderThan time.Duration) error {
	store, closer, err := a.openAuditStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("alert auditing requires database.dsn to be configured")
	}
	defer closer()

	cutoff := time.Now().UTC().Add(-olderThan)
	if err := store.DeleteAlertsBefore(ctx, cutoff); err != nil {
		return err
	}
	a.Logger.Info().Time("cutoff", cutoff).Msg("pruned audited alerts")
	return nil
}
