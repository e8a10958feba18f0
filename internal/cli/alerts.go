package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trendwatch/internal/app"
)

var (
	alertsLimit     int
	alertsRetainFor time.Duration
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List recently audited alerts from the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		return getApp().Alerts(cmd.Context(), app.AlertsOptions{
			Limit: alertsLimit,
		})
	},
}

var alertsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audited alerts older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsRetainFor <= 0 {
			return fmt.Errorf("--older-than must be greater than zero")
		}

		return getApp().PruneAlerts(cmd.Context(), alertsRetainFor)
	},
}

func init() {
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 20, "Number of alerts to display")
	alertsPruneCmd.Flags().DurationVar(&alertsRetainFor, "older-than", 90*24*time.Hour, "Delete alerts older than this duration")
	alertsCmd.AddCommand(alertsPruneCmd)
}
