package signal

import (
	"math"
	"testing"

	"trendwatch/internal/state"
)

func points(values ...float64) []state.DataPoint {
	out := make([]state.DataPoint, len(values))
	for i, v := range values {
		out[i] = state.DataPoint{Date: "2025-01-0" + string(rune('1'+i)), Value: v}
	}
	return out
}

func TestScoreClosedForm(t *testing.T) {
	// P_t=105, P_{t-1}=100, P_{t-3}=90, n=3
	history := points(90, 95, 100)
	res := Score(105, history, 3)
	if !res.Defined {
		t.Fatal("score should be defined")
	}

	rt := math.Log(105) - math.Log(100)
	rBar := (math.Log(100) - math.Log(90)) / 3
	want := ((rt - rBar) / rBar) * 100

	if math.Abs(res.Score-want) > 1e-9 {
		t.Fatalf("score = %f, want %f", res.Score, want)
	}
	// Sanity against the hand-computed value.
	if math.Abs(res.Score-38.76) > 0.05 {
		t.Fatalf("score = %f, expected about 38.76", res.Score)
	}
}

func TestScoreInsufficientHistory(t *testing.T) {
	if res := Score(105, points(90, 100), 3); res.Defined {
		t.Fatal("two history values cannot satisfy n_periods=3")
	}
	if res := Score(105, nil, 1); res.Defined {
		t.Fatal("empty history should be undefined")
	}
}

func TestScoreNonPositiveValues(t *testing.T) {
	cases := []struct {
		name    string
		pt      float64
		history []state.DataPoint
	}{
		{"zero new value", 0, points(90, 95, 100)},
		{"negative new value", -5, points(90, 95, 100)},
		{"zero previous", 105, points(90, 95, 0)},
		{"negative n-back", 105, points(-90, 95, 100)},
	}
	for _, tc := range cases {
		if res := Score(tc.pt, tc.history, 3); res.Defined {
			t.Fatalf("%s: score should be undefined", tc.name)
		}
	}
}

func TestScoreFlatBaselineUsesAbsoluteBranch(t *testing.T) {
	// Constant baseline: r̄_n is exactly zero, so the relative branch would
	// divide by zero. The absolute branch must report (r_t - r̄_n) * 100.
	history := points(100, 100, 100, 100)
	res := Score(110, history, 3)
	if !res.Defined {
		t.Fatal("flat baseline should still be defined")
	}

	want := (math.Log(110) - math.Log(100)) * 100
	if math.Abs(res.Score-want) > 1e-9 {
		t.Fatalf("score = %f, want absolute-branch %f", res.Score, want)
	}
}

func TestScoreSinglePeriodWindow(t *testing.T) {
	// n=1: baseline is the growth from P_{t-1} to itself, i.e. zero, so the
	// flat branch applies.
	res := Score(105, points(100), 1)
	if !res.Defined {
		t.Fatal("n_periods=1 with one history value should be defined")
	}
	want := (math.Log(105) - math.Log(100)) * 100
	if math.Abs(res.Score-want) > 1e-9 {
		t.Fatalf("score = %f, want %f", res.Score, want)
	}
}

func TestTriggered(t *testing.T) {
	if Triggered(Result{}, 10) {
		t.Fatal("undefined result must never trigger")
	}
	if Triggered(Result{Score: 9.9, Defined: true}, 10) {
		t.Fatal("score below threshold must not trigger")
	}
	if !Triggered(Result{Score: -10.1, Defined: true}, 10) {
		t.Fatal("negative breach should trigger on magnitude")
	}
	if Triggered(Result{Score: 10, Defined: true}, 10) {
		t.Fatal("threshold is exclusive")
	}
}
