package ion

import (
	"strconv"
	"strings"
	"time"
)

// RawRecord is one sample as returned by a source endpoint, normalized just
// enough to survive merging. Exactly one of the two time encodings is set:
// Date+Hour (calendar date string plus hour of day, possibly fractional for
// tropospheric collections) or Timestamp (combined "YYYY-MM-DD HH:MM:SS").
// Records are ephemeral; they are discarded after merge.
type RawRecord struct {
	Satellite string             `json:"satelite,omitempty"`
	Date      string             `json:"data,omitempty"`
	Hour      float64            `json:"hora"`
	Timestamp string             `json:"timestamp,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

// SeriesPoint is a single (time, value) sample of a merged series.
type SeriesPoint struct {
	X time.Time `json:"x"`
	Y float64   `json:"y"`
}

// Series is the unit handed to the chart boundary: a human label plus points
// ordered by time ascending. Consumers assume the ordering invariant.
type Series struct {
	Name   string        `json:"name"`
	Points []SeriesPoint `json:"points"`
}

// RangeQuery describes one windowed fetch. Elevation bounds apply to measured
// records only and are inclusive; both must be set for the filter to run.
type RangeQuery struct {
	Station      string
	Start        DateKey
	End          DateKey
	ElevationMin *float64
	ElevationMax *float64
	Metrics      []string
	Collections  []string
}

// LatestQuery asks for the most recent day with both predicted and measured
// data for a station.
type LatestQuery struct {
	Station string
	Metrics []string
}

// Signature returns the deterministic cache key for this query. The layout
// mirrors the key the dashboard frontend historically used, so identical
// inputs always map to the same entry.
func (q RangeQuery) Signature() string {
	var b strings.Builder
	b.WriteString("ion_data:")
	b.WriteString(q.Station)
	b.WriteByte(':')
	b.WriteString(q.Start.String())
	b.WriteByte(':')
	b.WriteString(q.End.String())
	b.WriteByte(':')
	b.WriteString(formatBound(q.ElevationMin))
	b.WriteByte(':')
	b.WriteString(formatBound(q.ElevationMax))
	b.WriteByte(':')
	b.WriteString(strings.Join(q.Metrics, ","))
	b.WriteByte(':')
	b.WriteString(strings.Join(q.Collections, ","))
	return b.String()
}

// Signature returns the cache key for a latest-overlap lookup.
func (q LatestQuery) Signature() string {
	return "ion_latest:" + q.Station + ":" + strings.Join(q.Metrics, ",")
}

func formatBound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
