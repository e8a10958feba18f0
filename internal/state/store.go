// Package state persists the incremental run checkpoint: per-indicator
// last-check markers plus a bounded rolling history, written atomically
// once per run.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store reads and writes the RunState document at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store for the given state file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted state, returning an empty default when the file
// does not exist yet.
func (s *Store) Load() (*RunState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewRunState(), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", s.path, err)
	}
	if st.Indicators == nil {
		st.Indicators = make(map[string]*IndicatorState)
	}
	return &st, nil
}

// Save stamps LastRun and replaces the state file atomically: the document
// is written to a temp file in the target directory and renamed over the
// destination. A crash before the rename leaves the previous file intact.
func (s *Store) Save(st *RunState) error {
	now := time.Now().UTC()
	st.LastRun = &now
	st.Version = CurrentVersion

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Initialize seeds a fresh checkpoint from a fetched series: the last
// nPeriods+1 points (or fewer when the series is shorter), the final point
// becoming last-check and the rest history. No alerts are evaluated on this
// path; it only establishes the baseline.
func Initialize(id, name, unit, freq string, points []DataPoint, nPeriods int) *IndicatorState {
	if len(points) == 0 {
		return nil
	}

	relevant := points
	if len(points) > nPeriods+1 {
		relevant = points[len(points)-(nPeriods+1):]
	}

	last := relevant[len(relevant)-1]
	history := make([]DataPoint, len(relevant)-1)
	copy(history, relevant[:len(relevant)-1])

	return &IndicatorState{
		IndicatorID:    id,
		IndicatorName:  name,
		Unit:           unit,
		Freq:           freq,
		LastCheckDate:  last.Date,
		LastCheckValue: last.Value,
		History:        history,
	}
}
