package app

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"trendwatch/internal/config"
	"trendwatch/internal/state"
)

func seededApp(t *testing.T) *App {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "state.json")

	st := state.NewRunState()
	st.Indicators["6105"] = &state.IndicatorState{
		IndicatorID:    "6105",
		IndicatorName:  "DRAM Spot Price",
		Unit:           "USD",
		Freq:           "D",
		LastCheckDate:  "2025-01-04",
		LastCheckValue: 100,
		History: []state.DataPoint{
			{Date: "2025-01-02", Value: 93},
			{Date: "2025-01-03", Value: 96},
		},
	}
	if err := state.NewStore(statePath).Save(st); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	cfg := &config.Config{State: config.StateConfig{Path: statePath}}
	return NewApp(cfg, zerolog.Nop())
}

func TestExportCSV(t *testing.T) {
	a := seededApp(t)
	csvPath := filepath.Join(t.TempDir(), "out", "history.csv")

	err := a.Export(ExportOptions{IndicatorID: "6105", CSVPath: csvPath})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	// Header plus the two history rows plus the last-check row.
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0][0] != "date" || rows[0][1] != "value" {
		t.Fatalf("header wrong: %v", rows[0])
	}
	last := rows[len(rows)-1]
	if last[0] != "2025-01-04" || last[1] != "100" {
		t.Fatalf("last row should be the last-check point: %v", last)
	}
}

func TestExportValidation(t *testing.T) {
	a := seededApp(t)

	if err := a.Export(ExportOptions{CSVPath: "x.csv"}); err == nil {
		t.Fatal("missing --id should error")
	}
	if err := a.Export(ExportOptions{IndicatorID: "6105"}); err == nil {
		t.Fatal("missing output paths should error")
	}
	if err := a.Export(ExportOptions{IndicatorID: "nope", CSVPath: "x.csv"}); err == nil {
		t.Fatal("untracked indicator should error")
	}
}
