package alerting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func sampleAlert() Alert {
	return Alert{
		IndicatorID:   "6105",
		IndicatorName: "DRAM Spot Price",
		ScorePct:      42.7,
		ThresholdPct:  10,
		NewValue:      3.456,
		Unit:          "USD",
		Date:          "2025-01-06T00:00:00",
	}
}

func TestAlertMessageRendering(t *testing.T) {
	msg := sampleAlert().Message()

	for _, want := range []string{
		"DRAM Spot Price increased by 42.7%",
		"(threshold: 10.0%)",
		"New value: 3.456 USD",
		"Date: 2025-01-06",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	if strings.Contains(msg, "T00:00:00") {
		t.Error("date should be trimmed to day precision")
	}

	a := sampleAlert()
	a.ScorePct = -42.7
	if !strings.Contains(a.Message(), "decreased by 42.7%") {
		t.Errorf("negative score should render as a decrease:\n%s", a.Message())
	}
}

func TestAlertTitle(t *testing.T) {
	if got := sampleAlert().Title(); got != "TrendWatch Alert: DRAM Spot Price" {
		t.Fatalf("title = %q", got)
	}
}

func TestPushoverNotifySuccess(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/messages.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"token":   r.PostFormValue("token"),
			"user":    r.PostFormValue("user"),
			"title":   r.PostFormValue("title"),
			"message": r.PostFormValue("message"),
		}
		w.Write([]byte(`{"status":1,"request":"abc123"}`))
	}))
	defer srv.Close()

	n := NewPushoverNotifier("user-key", "api-token", srv.URL, time.Second, zerolog.Nop())
	if err := n.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if gotForm["token"] != "api-token" || gotForm["user"] != "user-key" {
		t.Fatalf("credentials not posted: %+v", gotForm)
	}
	if gotForm["title"] == "" || gotForm["message"] == "" {
		t.Fatalf("rendered alert not posted: %+v", gotForm)
	}
}

func TestPushoverRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 but an application-level failure.
		w.Write([]byte(`{"status":0,"errors":["user key is invalid"]}`))
	}))
	defer srv.Close()

	n := NewPushoverNotifier("bad", "bad", srv.URL, time.Second, zerolog.Nop())
	err := n.Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Fatalf("status 0 should be an error, got %v", err)
	}
}

func TestPushoverHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewPushoverNotifier("u", "t", srv.URL, time.Second, zerolog.Nop())
	if err := n.Send(context.Background(), "t", "m"); err == nil {
		t.Fatal("non-2xx response should be an error")
	}
}

func TestDryRunNotifierNeverDispatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("dry run must not reach the network")
	}))
	defer srv.Close()

	n := NewDryRunNotifier(zerolog.Nop())
	if err := n.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("dry run notify failed: %v", err)
	}
}
