package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"trendwatch/internal/state"
)

// Export renders an indicator's stored rolling history as CSV and/or PNG.
func (a *App) Export(opts ExportOptions) error {
	if opts.IndicatorID == "" {
		return errors.New("--id is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	store := state.NewStore(a.Config.State.Path)
	st, err := store.Load()
	if err != nil {
		return err
	}

	ind := st.Indicator(opts.IndicatorID)
	if ind == nil {
		return fmt.Errorf("indicator %s is not tracked in state", opts.IndicatorID)
	}

	points := ind.Window()
	if len(points) == 0 {
		a.Logger.Info().Str("indicator_id", opts.IndicatorID).Msg("no history to export")
		return nil
	}

	a.Logger.Info().Str("indicator_id", opts.IndicatorID).Int("points", len(points)).Msg("exporting history")

	if opts.CSVPath != "" {
		if err := writeHistoryCSV(opts.CSVPath, ind, points); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeHistoryPNG(opts.PNGPath, ind, points); err != nil {
			return err
		}
	}

	return nil
}

func writeHistoryCSV(path string, ind *state.IndicatorState, points []state.DataPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "value", "indicator_id", "indicator_name", "unit", "freq"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range points {
		record := []string{
			p.Date,
			fmt.Sprintf("%g", p.Value),
			ind.IndicatorID,
			ind.IndicatorName,
			ind.Unit,
			ind.Freq,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeHistoryPNG(path string, ind *state.IndicatorState, points []state.DataPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(points))
	y := make([]float64, 0, len(points))
	for _, p := range points {
		ts, err := parsePointDate(p.Date)
		if err != nil {
			continue
		}
		x = append(x, ts)
		y = append(y, p.Value)
	}
	if len(x) < 2 {
		return errors.New("need at least two dated points to render a chart")
	}

	yAxisName := ind.IndicatorName
	if ind.Unit != "" {
		yAxisName = fmt.Sprintf("%s (%s)", ind.IndicatorName, ind.Unit)
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: yAxisName,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    ind.IndicatorName,
				XValues: x,
				YValues: y,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func parsePointDate(date string) (time.Time, error) {
	if len(date) > 10 {
		date = date[:10]
	}
	return time.Parse("2006-01-02", date)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
