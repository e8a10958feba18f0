package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trendwatch/internal/config"
	"trendwatch/internal/storage"
)

type fakeAlertStore struct {
	alerts    []storage.AlertRecord
	gotLimit  int
	pruneFrom *time.Time
	err       error
}

func (f *fakeAlertStore) InsertAlert(_ context.Context, alert storage.AlertRecord) (storage.AlertRecord, error) {
	return alert, f.err
}

func (f *fakeAlertStore) ListRecentAlerts(_ context.Context, limit int) ([]storage.AlertRecord, error) {
	f.gotLimit = limit
	return f.alerts, f.err
}

func (f *fakeAlertStore) DeleteAlertsBefore(_ context.Context, olderThan time.Time) error {
	f.pruneFrom = &olderThan
	return f.err
}

func TestListAlertsRendersTable(t *testing.T) {
	store := &fakeAlertStore{alerts: []storage.AlertRecord{
		{
			ID:            7,
			IndicatorID:   "6105",
			IndicatorName: "DRAM Spot Price",
			PointDate:     "2025-01-05",
			ScorePct:      decimal.NewFromFloat(42.7),
			ThresholdPct:  decimal.NewFromFloat(10),
			Direction:     "up",
			CreatedAt:     time.Date(2025, 1, 5, 12, 30, 0, 0, time.UTC),
		},
	}}

	var out strings.Builder
	if err := listAlerts(context.Background(), store, 20, &out); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if store.gotLimit != 20 {
		t.Fatalf("limit = %d, want 20", store.gotLimit)
	}

	for _, want := range []string{"DRAM Spot Price (6105)", "2025-01-05", "42.7%", "10.0%", "up"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestListAlertsEmpty(t *testing.T) {
	var out strings.Builder
	if err := listAlerts(context.Background(), &fakeAlertStore{}, 20, &out); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "no audited alerts") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestListAlertsPropagatesError(t *testing.T) {
	store := &fakeAlertStore{err: errors.New("connection refused")}
	if err := listAlerts(context.Background(), store, 20, &strings.Builder{}); err == nil {
		t.Fatal("store error should propagate")
	}
}

func TestAlertsRequireDatabase(t *testing.T) {
	a := NewApp(&config.Config{}, zerolog.Nop())

	if err := a.Alerts(context.Background(), AlertsOptions{Limit: 20}); err == nil {
		t.Fatal("alerts without database.dsn should error")
	}
	if err := a.PruneAlerts(context.Background(), time.Hour); err == nil {
		t.Fatal("prune without database.dsn should error")
	}
}
