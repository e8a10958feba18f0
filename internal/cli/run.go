package cli

import (
	"github.com/spf13/cobra"

	"trendwatch/internal/app"
)

var (
	runWatch  bool
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll configured indicators once (or continuously with --watch)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context(), app.RunOptions{
			Watch:  runWatch,
			DryRun: runDryRun,
		})
	},
}

func init() {
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Keep polling on the configured interval instead of running once")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Render and log alerts without dispatching them")
}
