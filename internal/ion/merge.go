package ion

import (
	"math"
	"sort"
	"strings"
	"time"
)

// elevationMetric is the measured-record field holding the satellite
// elevation angle, used for geometric visibility filtering.
const elevationMetric = "elevacao"

// defaultSatellite buckets measured records that arrive without a satellite
// identifier.
const defaultSatellite = "SAT"

// PredictedLabel names the single predicted series on the chart.
const PredictedLabel = "Previsão"

// MergeInput carries everything the merge needs. Predicted records are
// expected to be pre-filtered to the relevant horizon; measured records may
// span several days and collections.
type MergeInput struct {
	Predicted       []RawRecord
	Measured        []RawRecord
	ElevationMin    *float64
	ElevationMax    *float64
	Metrics         []string
	PredictedMetric string
}

type resolvedRecord struct {
	ts  time.Time
	rec RawRecord
}

// Merge combines predicted and measured records into chart-ready series:
// predicted first, then one series per satellite and requested metric,
// satellites ascending with the G constellation ahead of R. Each series is
// ordered by time ascending; records with unparseable times are dropped as
// noise rather than reported.
func Merge(in MergeInput) []Series {
	var out []Series

	if len(in.Predicted) > 0 && in.PredictedMetric != "" {
		pts := make([]SeriesPoint, 0, len(in.Predicted))
		for _, r := range sortResolved(resolveAll(in.Predicted)) {
			pts = append(pts, SeriesPoint{X: r.ts, Y: r.rec.Metrics[in.PredictedMetric]})
		}
		if len(pts) > 0 {
			out = append(out, Series{
				Name:   PredictedLabel + " — " + in.PredictedMetric,
				Points: pts,
			})
		}
	}

	measured := FilterByElevation(in.Measured, in.ElevationMin, in.ElevationMax)

	bySat := make(map[string][]resolvedRecord)
	for _, r := range resolveAll(measured) {
		sat := r.rec.Satellite
		if sat == "" {
			sat = defaultSatellite
		}
		bySat[sat] = append(bySat[sat], r)
	}

	for _, sat := range orderSatellites(bySat) {
		group := sortResolved(bySat[sat])
		for _, metric := range in.Metrics {
			pts := make([]SeriesPoint, 0, len(group))
			for _, r := range group {
				// Missing metric values become 0 so every series of a
				// satellite shares the same time axis.
				pts = append(pts, SeriesPoint{X: r.ts, Y: r.rec.Metrics[metric]})
			}
			if len(pts) > 0 {
				out = append(out, Series{Name: sat + " — " + metric, Points: pts})
			}
		}
	}

	return out
}

// FilterByElevation keeps measured records whose elevation lies within the
// inclusive [min, max] bounds. Records without a numeric elevation are
// excluded. With either bound absent the input passes through untouched.
func FilterByElevation(recs []RawRecord, min, max *float64) []RawRecord {
	if min == nil || max == nil {
		return recs
	}
	out := make([]RawRecord, 0, len(recs))
	for _, r := range recs {
		elev, ok := r.Metrics[elevationMetric]
		if !ok {
			continue
		}
		if elev >= *min && elev <= *max {
			out = append(out, r)
		}
	}
	return out
}

// FilterRecordsBetween keeps records whose resolved instant lies in
// [from, to). Unresolvable records are dropped.
func FilterRecordsBetween(recs []RawRecord, from, to time.Time) []RawRecord {
	out := make([]RawRecord, 0, len(recs))
	for _, r := range recs {
		ts, ok := ResolveTimestamp(r)
		if !ok {
			continue
		}
		if !ts.Before(from) && ts.Before(to) {
			out = append(out, r)
		}
	}
	return out
}

// FilterPredictedHorizon restricts predicted records to the 48-hour horizon
// starting at UTC midnight of ref, i.e. the forecast for days D and D+1.
func FilterPredictedHorizon(ref DateKey, recs []RawRecord) []RawRecord {
	start := ref.Time()
	return FilterRecordsBetween(recs, start, start.Add(48*time.Hour))
}

// ResolveTimestamp turns a record's time encoding into an absolute UTC
// instant. Date+Hour records resolve at the top of the hour, with fractional
// hours (tropospheric collections) mapped to minutes. Combined timestamps are
// parsed as a same-timezone date/time concatenation.
func ResolveTimestamp(r RawRecord) (time.Time, bool) {
	if r.Timestamp != "" {
		s := strings.Replace(r.Timestamp, " ", "T", 1)
		for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	day, err := time.ParseInLocation("2006-01-02", r.Date, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	hours := int(r.Hour)
	minutes := int(math.Round((r.Hour - float64(hours)) * 60))
	return day.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), true
}

func resolveAll(recs []RawRecord) []resolvedRecord {
	out := make([]resolvedRecord, 0, len(recs))
	for _, r := range recs {
		if ts, ok := ResolveTimestamp(r); ok {
			out = append(out, resolvedRecord{ts: ts, rec: r})
		}
	}
	return out
}

// sortResolved orders records by time ascending, keeping the original input
// order on ties.
func sortResolved(recs []resolvedRecord) []resolvedRecord {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ts.Before(recs[j].ts)
	})
	return recs
}

// orderSatellites returns the satellite names of the grouped records in
// display order: the G constellation first, then R, then anything else, each
// block ascending. The chart relies on this for default trace visibility.
func orderSatellites(bySat map[string][]resolvedRecord) []string {
	var g, r, rest []string
	for sat := range bySat {
		switch {
		case strings.HasPrefix(sat, "G"):
			g = append(g, sat)
		case strings.HasPrefix(sat, "R"):
			r = append(r, sat)
		default:
			rest = append(rest, sat)
		}
	}
	sort.Strings(g)
	sort.Strings(r)
	sort.Strings(rest)
	return append(append(g, r...), rest...)
}
