// Package series converts raw time-series API payloads into ordered
// datapoint sequences.
package series

import (
	"encoding/json"
	"fmt"
	"sort"

	"trendwatch/internal/state"
)

// Metadata carries the sidecar fields of a series payload. It is populated
// even when the series holds no datapoints.
type Metadata struct {
	IndicatorName string
	Unit          string
	Freq          string
	DataSource    string
	Inferenced    bool
}

// Series is the parsed form of one indicator payload: points sorted
// ascending by date plus metadata.
type Series struct {
	Points []state.DataPoint
	Meta   Metadata
}

// Empty reports whether the payload carried no usable datapoints. An empty
// series means "no data this run", not an error.
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

// payload mirrors the API response: an object keyed by series name. Values
// are kept raw so one malformed series cannot fail the whole payload.
type rawSeries struct {
	Data        map[string]*float64 `json:"data"`
	IndicatorID json.Number         `json:"indicator_id"`
	Freq        string              `json:"freq"`
	DataSource  string              `json:"data_source"`
	Inferenced  bool                `json:"inferenced"`
	Unit        string              `json:"unit"`
}

// Parse converts a raw payload into an ordered Series. Non-conforming
// sub-structures are skipped rather than failing the payload; null values
// are dropped. Dates are ISO-8601 strings and sort lexicographically.
func Parse(raw json.RawMessage) (Series, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Series{}, fmt.Errorf("decode payload: %w", err)
	}

	// Map iteration order is random; walk names sorted so repeated parses of
	// one payload always settle on the same metadata.
	names := make([]string, 0, len(top))
	for name := range top {
		names = append(names, name)
	}
	sort.Strings(names)

	var out Series
	for _, name := range names {
		var rs rawSeries
		if err := json.Unmarshal(top[name], &rs); err != nil {
			continue
		}

		out.Meta = Metadata{
			IndicatorName: name,
			Unit:          rs.Unit,
			Freq:          rs.Freq,
			DataSource:    rs.DataSource,
			Inferenced:    rs.Inferenced,
		}

		for date, value := range rs.Data {
			if value == nil {
				continue
			}
			out.Points = append(out.Points, state.DataPoint{Date: date, Value: *value})
		}
	}

	sort.Slice(out.Points, func(i, j int) bool {
		return out.Points[i].Date < out.Points[j].Date
	})

	return out, nil
}
