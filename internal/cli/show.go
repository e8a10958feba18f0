package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trendwatch/internal/app"
)

var showLimit int

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display tracked indicators and their checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		return getApp().Show(app.ShowOptions{
			Limit: showLimit,
		})
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of indicators to display")
}
