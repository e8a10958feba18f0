package cli

import (
	"github.com/spf13/cobra"

	"trendwatch/internal/app"
)

var (
	exportID      string
	exportCSVPath string
	exportPNGPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an indicator's rolling history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(app.ExportOptions{
			IndicatorID: exportID,
			CSVPath:     exportCSVPath,
			PNGPath:     exportPNGPath,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportID, "id", "", "Indicator identifier to export")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
}
