package state

import "time"

// CurrentVersion tags the persisted state schema.
const CurrentVersion = 1

// DataPoint is one observation of an indicator: an ISO-8601 date (sorts
// lexicographically in chronological order) and a value.
type DataPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// IndicatorState is the persisted checkpoint for one indicator. History is
// sorted ascending by date and never contains the last-check point itself;
// the two combine into a contiguous recent window without duplication.
type IndicatorState struct {
	IndicatorID    string      `json:"indicator_id"`
	IndicatorName  string      `json:"indicator_name"`
	Unit           string      `json:"unit"`
	Freq           string      `json:"freq"`
	LastCheckDate  string      `json:"last_check_date"`
	LastCheckValue float64     `json:"last_check_value"`
	History        []DataPoint `json:"history"`
}

// RunState is the persisted top-level document.
type RunState struct {
	Version    int                        `json:"version"`
	Indicators map[string]*IndicatorState `json:"indicators"`
	LastRun    *time.Time                 `json:"last_run"`
}

// NewRunState returns an empty state for a first run.
func NewRunState() *RunState {
	return &RunState{
		Version:    CurrentVersion,
		Indicators: make(map[string]*IndicatorState),
	}
}

// FirstRun reports whether no indicator has ever been checkpointed.
func (s *RunState) FirstRun() bool {
	return len(s.Indicators) == 0
}

// Indicator returns the checkpoint for an indicator, or nil when it has
// never been tracked.
func (s *RunState) Indicator(id string) *IndicatorState {
	return s.Indicators[id]
}

// NewPoints returns the fetched points dated strictly after the stored
// last-check date, preserving ascending order. Reprocessing already-seen
// dates yields nothing, which makes crash-retry runs idempotent.
func (ind *IndicatorState) NewPoints(points []DataPoint) []DataPoint {
	if ind == nil || ind.LastCheckDate == "" {
		return nil
	}
	var out []DataPoint
	for _, p := range points {
		if p.Date > ind.LastCheckDate {
			out = append(out, p)
		}
	}
	return out
}

// Window returns stored history extended with the last-check point: the
// contiguous recent window a batch evaluation seeds its rolling temp
// history from.
func (ind *IndicatorState) Window() []DataPoint {
	window := make([]DataPoint, 0, len(ind.History)+1)
	window = append(window, ind.History...)
	if ind.LastCheckDate != "" {
		window = append(window, DataPoint{Date: ind.LastCheckDate, Value: ind.LastCheckValue})
	}
	return window
}

// Apply folds evaluated new points into the checkpoint: all new points are
// appended to history, last-check advances to the final one, and history is
// truncated to capacity keeping the most recent entries.
func (ind *IndicatorState) Apply(newPoints []DataPoint, capacity int) {
	if len(newPoints) == 0 {
		return
	}

	if ind.LastCheckDate != "" {
		ind.History = append(ind.History, DataPoint{Date: ind.LastCheckDate, Value: ind.LastCheckValue})
	}
	// All but the final new point join history; the final one becomes the
	// new last-check.
	ind.History = append(ind.History, newPoints[:len(newPoints)-1]...)

	last := newPoints[len(newPoints)-1]
	ind.LastCheckDate = last.Date
	ind.LastCheckValue = last.Value

	ind.History = Truncate(ind.History, capacity)
}

// Truncate keeps the most recent entries of an ascending history, dropping
// the oldest first.
func Truncate(points []DataPoint, capacity int) []DataPoint {
	if capacity <= 0 || len(points) <= capacity {
		return points
	}
	return points[len(points)-capacity:]
}
