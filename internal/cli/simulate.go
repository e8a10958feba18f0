package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"trendwatch/internal/app"
)

var (
	simulateName      string
	simulateValue     float64
	simulateHistory   []float64
	simulateNPeriods  int
	simulateThreshold float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Evaluate a synthetic datapoint and trigger the alert path",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateValue <= 0 {
			return errors.New("--value must be greater than 0")
		}
		if len(simulateHistory) == 0 {
			return errors.New("--history requires at least one value")
		}

		return getApp().Simulate(cmd.Context(), app.SimulateOptions{
			Name:      simulateName,
			Value:     simulateValue,
			History:   simulateHistory,
			NPeriods:  simulateNPeriods,
			Threshold: simulateThreshold,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateName, "name", "Simulated Indicator", "Indicator name for the rendered alert")
	simulateCmd.Flags().Float64Var(&simulateValue, "value", 0, "New datapoint value")
	simulateCmd.Flags().Float64SliceVar(&simulateHistory, "history", nil, "Baseline values, oldest first")
	simulateCmd.Flags().IntVar(&simulateNPeriods, "n-periods", 0, "Lookback window (defaults to config)")
	simulateCmd.Flags().Float64Var(&simulateThreshold, "threshold", 0, "Alert threshold percentage (defaults to config)")
}
