package ion

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeSource serves canned per-day responses and records which days were
// requested, in order.
type fakeSource struct {
	name    string
	byDay   map[string][]RawRecord
	errs    map[string]error
	fetched []string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchDay(_ context.Context, station string, day DateKey) ([]RawRecord, error) {
	key := day.String()
	f.fetched = append(f.fetched, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	recs, ok := f.byDay[key]
	if !ok || len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrSourceEmpty, station, day)
	}
	return recs, nil
}

func predictedFor(day string) []RawRecord {
	return []RawRecord{{Date: day, Hour: 0, Metrics: map[string]float64{"ROTI_previsto": 1}}}
}

func measuredFor(day string) []RawRecord {
	return []RawRecord{{Date: day, Hour: 0, Satellite: "G01", Metrics: map[string]float64{"ROTI": 1}}}
}

func TestOverlapFirstHitWinsWithEarlyTermination(t *testing.T) {
	today, _ := ParseDateKey("2024-05-10")
	hit := today.AddDays(-2)

	predicted := &fakeSource{
		name: "predicted",
		byDay: map[string][]RawRecord{
			hit.String():               predictedFor(hit.String()),
			today.AddDays(-3).String(): predictedFor(today.AddDays(-3).String()),
		},
	}
	measured := &fakeSource{
		name: "measured",
		byDay: map[string][]RawRecord{
			hit.String():               measuredFor(hit.String()),
			today.AddDays(-3).String(): measuredFor(today.AddDays(-3).String()),
		},
	}

	ov, err := FindLatestOverlap(context.Background(), predicted, measured, "ITAI", today, 180)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov.Date != hit {
		t.Errorf("overlap date = %s, want %s (first hit wins)", ov.Date, hit)
	}

	// Scan must have walked today, today-1, today-2 against predicted...
	wantPredicted := []string{today.String(), today.AddDays(-1).String(), hit.String()}
	if fmt.Sprint(predicted.fetched) != fmt.Sprint(wantPredicted) {
		t.Errorf("predicted fetches = %v, want %v", predicted.fetched, wantPredicted)
	}
	// ...and touched measured only for the hit day. No request for today-3
	// or earlier: the search short-circuits on the first qualifying day.
	if fmt.Sprint(measured.fetched) != fmt.Sprint([]string{hit.String()}) {
		t.Errorf("measured fetches = %v, want only %s", measured.fetched, hit)
	}
}

func TestOverlapSkipsMeasuredWhenPredictedEmpty(t *testing.T) {
	today, _ := ParseDateKey("2024-05-10")

	predicted := &fakeSource{name: "predicted"}
	measured := &fakeSource{name: "measured", byDay: map[string][]RawRecord{
		today.String(): measuredFor(today.String()),
	}}

	_, err := FindLatestOverlap(context.Background(), predicted, measured, "ITAI", today, 3)
	if !errors.Is(err, ErrNoOverlapFound) {
		t.Fatalf("expected ErrNoOverlapFound, got %v", err)
	}
	if len(measured.fetched) != 0 {
		t.Errorf("measured was queried %v despite predicted coming up empty every day", measured.fetched)
	}
}

func TestOverlapSkipsUnavailableDays(t *testing.T) {
	today, _ := ParseDateKey("2024-05-10")
	hit := today.AddDays(-1)

	predicted := &fakeSource{
		name: "predicted",
		byDay: map[string][]RawRecord{
			today.String(): predictedFor(today.String()),
			hit.String():   predictedFor(hit.String()),
		},
	}
	measured := &fakeSource{
		name: "measured",
		byDay: map[string][]RawRecord{
			hit.String(): measuredFor(hit.String()),
		},
		errs: map[string]error{
			today.String(): fmt.Errorf("%w: 503", ErrSourceUnavailable),
		},
	}

	ov, err := FindLatestOverlap(context.Background(), predicted, measured, "ITAI", today, 180)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ov.Date != hit {
		t.Errorf("overlap date = %s, want %s", ov.Date, hit)
	}
}

func TestOverlapWindowsPredictedToHorizon(t *testing.T) {
	today, _ := ParseDateKey("2024-05-10")

	// Predicted responds for today, but every record lies outside the
	// two-day horizon, so the day must not qualify.
	predicted := &fakeSource{
		name: "predicted",
		byDay: map[string][]RawRecord{
			today.String(): {{Date: "2024-05-01", Hour: 0, Metrics: map[string]float64{"ROTI_previsto": 1}}},
		},
	}
	measured := &fakeSource{name: "measured", byDay: map[string][]RawRecord{
		today.String(): measuredFor(today.String()),
	}}

	_, err := FindLatestOverlap(context.Background(), predicted, measured, "ITAI", today, 1)
	if !errors.Is(err, ErrNoOverlapFound) {
		t.Fatalf("expected ErrNoOverlapFound, got %v", err)
	}
	if len(measured.fetched) != 0 {
		t.Errorf("measured queried despite empty windowed predicted data: %v", measured.fetched)
	}
}

func TestOverlapExhaustsBound(t *testing.T) {
	today, _ := ParseDateKey("2024-05-10")
	predicted := &fakeSource{name: "predicted"}
	measured := &fakeSource{name: "measured"}

	_, err := FindLatestOverlap(context.Background(), predicted, measured, "ITAI", today, 5)
	if !errors.Is(err, ErrNoOverlapFound) {
		t.Fatalf("expected ErrNoOverlapFound, got %v", err)
	}
	if len(predicted.fetched) != 5 {
		t.Errorf("scanned %d days, want exactly 5", len(predicted.fetched))
	}
}

func TestOverlapStopsOnCancelledContext(t *testing.T) {
	today, _ := ParseDateKey("2024-05-10")
	predicted := &fakeSource{name: "predicted"}
	measured := &fakeSource{name: "measured"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindLatestOverlap(ctx, predicted, measured, "ITAI", today, 180)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
