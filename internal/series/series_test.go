package series

import (
	"encoding/json"
	"testing"
)

func TestParseSortsAndSkipsNulls(t *testing.T) {
	payload := json.RawMessage(`{
		"DRAM Spot Price": {
			"data": {
				"2025-01-03T00:00:00": 3.1,
				"2025-01-01T00:00:00": 1.2,
				"2025-01-02T00:00:00": null,
				"2025-01-04T00:00:00": 4.5
			},
			"indicator_id": 6105,
			"freq": "D",
			"data_source": "TrendForce",
			"inferenced": false,
			"unit": "USD"
		}
	}`)

	s, err := Parse(payload)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if s.Empty() {
		t.Fatal("series should have points")
	}
	if len(s.Points) != 3 {
		t.Fatalf("got %d points, want 3 (null dropped)", len(s.Points))
	}
	for i := 1; i < len(s.Points); i++ {
		if s.Points[i-1].Date >= s.Points[i].Date {
			t.Fatalf("points not sorted ascending: %+v", s.Points)
		}
	}
	if s.Points[0].Value != 1.2 || s.Points[2].Value != 4.5 {
		t.Fatalf("unexpected values: %+v", s.Points)
	}
	if s.Meta.IndicatorName != "DRAM Spot Price" || s.Meta.Unit != "USD" || s.Meta.Freq != "D" {
		t.Fatalf("metadata wrong: %+v", s.Meta)
	}
}

func TestParseSkipsMalformedSeries(t *testing.T) {
	payload := json.RawMessage(`{
		"Broken Series": [1, 2, 3],
		"Good Series": {
			"data": {"2025-01-01T00:00:00": 9.9},
			"unit": "%"
		}
	}`)

	s, err := Parse(payload)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(s.Points) != 1 || s.Points[0].Value != 9.9 {
		t.Fatalf("expected only the valid series: %+v", s.Points)
	}
}

func TestParseEmptyData(t *testing.T) {
	payload := json.RawMessage(`{
		"Quiet Series": {
			"data": {},
			"unit": "USD",
			"freq": "W"
		}
	}`)

	s, err := Parse(payload)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !s.Empty() {
		t.Fatal("series should be empty")
	}
	// Metadata is still available for an empty series.
	if s.Meta.IndicatorName != "Quiet Series" || s.Meta.Freq != "W" {
		t.Fatalf("metadata wrong: %+v", s.Meta)
	}
}

func TestParseMultiSeriesMetadataIsDeterministic(t *testing.T) {
	payload := json.RawMessage(`{
		"Beta Series": {
			"data": {"2025-01-02T00:00:00": 2.0},
			"unit": "USD"
		},
		"Alpha Series": {
			"data": {"2025-01-01T00:00:00": 1.0},
			"unit": "%"
		}
	}`)

	first, err := Parse(payload)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(first.Points) != 2 {
		t.Fatalf("points from both series expected, got %+v", first.Points)
	}
	// Names are walked sorted, so the last one wins regardless of map order.
	if first.Meta.IndicatorName != "Beta Series" || first.Meta.Unit != "USD" {
		t.Fatalf("metadata wrong: %+v", first.Meta)
	}

	for i := 0; i < 10; i++ {
		again, err := Parse(payload)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if again.Meta != first.Meta {
			t.Fatalf("metadata changed between parses: %+v vs %+v", again.Meta, first.Meta)
		}
	}
}

func TestParseRejectsNonObjectPayload(t *testing.T) {
	if _, err := Parse(json.RawMessage(`["not", "an", "object"]`)); err == nil {
		t.Fatal("non-object payload should error")
	}
	if _, err := Parse(json.RawMessage(`{broken`)); err == nil {
		t.Fatal("invalid JSON should error")
	}
}
