package ion

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Norte-Itaipu/ion-data-service/internal/cache"
)

// DefaultPredictedMetric is the forecast value the predicted source
// publishes.
const DefaultPredictedMetric = "ROTI_previsto"

// overlapCollection is the measured collection the latest-overlap scan
// verifies against.
const overlapCollection = "ion"

// Service is the query pipeline: window (or overlap scan), per-day fetches,
// merge, cache. It holds no per-query state; two in-flight queries share
// nothing but the cache.
type Service struct {
	predicted Source
	lister    Lister // optional listing acceleration, may be nil
	measured  map[string]Source
	cache     cache.Cache
	cacheTTL  time.Duration

	maxDaysBack     int
	predictedMetric string

	now func() time.Time
}

// NewService wires the pipeline. measured maps collection tags to their
// adapters; the "ion" collection must be present for latest-overlap queries.
// lister may be nil.
func NewService(predicted Source, lister Lister, measured map[string]Source, c cache.Cache, cacheTTL time.Duration, maxDaysBack int) *Service {
	if cacheTTL <= 0 {
		cacheTTL = cache.DefaultTTL
	}
	if maxDaysBack <= 0 {
		maxDaysBack = DefaultMaxDaysBack
	}
	return &Service{
		predicted:       predicted,
		lister:          lister,
		measured:        measured,
		cache:           c,
		cacheTTL:        cacheTTL,
		maxDaysBack:     maxDaysBack,
		predictedMetric: DefaultPredictedMetric,
		now:             time.Now,
	}
}

// FetchRange runs the windowed pipeline: expand the window, fetch predicted
// and every requested measured collection day by day, merge, cache. Day-level
// source failures only skip that day; the query fails only on an invalid
// window or when the merge yields nothing.
func (s *Service) FetchRange(ctx context.Context, q RangeQuery) ([]Series, error) {
	measuredDays, err := BuildWindow(q.Start, q.End, 0)
	if err != nil {
		return nil, err
	}
	// Predicted forecasts are published one day ahead of the nominal window.
	predictedDays, err := BuildWindow(q.Start, q.End, 1)
	if err != nil {
		return nil, err
	}

	sig := q.Signature()
	if series, ok := s.cachedSeries(ctx, sig); ok {
		return series, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		predicted []RawRecord
		measured  []RawRecord
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		recs := s.fetchWindow(ctx, s.predicted, q.Station, predictedDays)
		mu.Lock()
		predicted = recs
		mu.Unlock()
	}()

	for _, tag := range q.Collections {
		src, ok := s.measured[tag]
		if !ok {
			log.Printf("pipeline: unknown collection %q requested for %s", tag, q.Station)
			continue
		}
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			recs := s.fetchWindow(ctx, src, q.Station, measuredDays)
			mu.Lock()
			measured = append(measured, recs...)
			mu.Unlock()
		}(src)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Restrict predicted records to the nominal window; the one-day request
	// offset otherwise leaks a trailing day into the chart.
	predicted = FilterRecordsBetween(predicted, q.Start.Time(), q.End.AddDays(1).Time())

	series := Merge(MergeInput{
		Predicted:       predicted,
		Measured:        measured,
		ElevationMin:    q.ElevationMin,
		ElevationMax:    q.ElevationMax,
		Metrics:         q.Metrics,
		PredictedMetric: s.predictedMetric,
	})
	if len(series) == 0 {
		return nil, ErrNoData
	}

	s.storeSeries(ctx, sig, series)
	return series, nil
}

// FetchRawRange fetches and elevation-filters the window's measured records
// without merging, keyed by collection tag. This feeds the raw-data export.
func (s *Service) FetchRawRange(ctx context.Context, q RangeQuery) (map[string][]RawRecord, error) {
	days, err := BuildWindow(q.Start, q.End, 0)
	if err != nil {
		return nil, err
	}

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		byCollection = make(map[string][]RawRecord)
	)

	for _, tag := range q.Collections {
		src, ok := s.measured[tag]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(tag string, src Source) {
			defer wg.Done()
			recs := FilterByElevation(s.fetchWindow(ctx, src, q.Station, days), q.ElevationMin, q.ElevationMax)
			if len(recs) == 0 {
				return
			}
			mu.Lock()
			byCollection[tag] = recs
			mu.Unlock()
		}(tag, src)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(byCollection) == 0 {
		return nil, ErrNoData
	}
	return byCollection, nil
}

// LatestResult is the outcome of a latest-overlap query.
type LatestResult struct {
	Date   DateKey  `json:"date"`
	Series []Series `json:"series"`
}

// FetchLatest finds the most recent day with both predicted and measured data
// for the station and returns its merged series. The listing adapter, when
// available, only moves the scan start forward; the scan itself still
// verifies both sources, so a stale listing cannot select a wrong day.
func (s *Service) FetchLatest(ctx context.Context, q LatestQuery) (LatestResult, error) {
	if len(q.Metrics) == 0 {
		q.Metrics = []string{"ROTI"}
	}

	sig := q.Signature()
	if b, ok := s.cache.Get(ctx, sig); ok {
		var res LatestResult
		if err := json.Unmarshal(b, &res); err == nil {
			return res, nil
		}
		// A corrupt entry is just a miss; it will be overwritten below.
	}

	measured, ok := s.measured[overlapCollection]
	if !ok {
		return LatestResult{}, errors.New("no measured source for overlap scan")
	}

	from := NewDateKey(s.now())
	if s.lister != nil {
		if d, err := s.lister.LatestAvailable(ctx, q.Station); err == nil && d.Before(from) {
			from = d
		}
	}

	ov, err := FindLatestOverlap(ctx, s.predicted, measured, q.Station, from, s.maxDaysBack)
	if err != nil {
		return LatestResult{}, err
	}

	series := Merge(MergeInput{
		Predicted:       ov.Predicted,
		Measured:        ov.Measured,
		Metrics:         q.Metrics,
		PredictedMetric: s.predictedMetric,
	})
	if len(series) == 0 {
		return LatestResult{}, ErrNoData
	}

	res := LatestResult{Date: ov.Date, Series: series}
	if b, err := json.Marshal(res); err == nil {
		s.cache.SetWithExpiry(ctx, sig, s.cacheTTL, b)
	}
	return res, nil
}

// fetchWindow issues one fetch per day against src, concurrently; failed or
// empty days are skipped and the rest collected. Ordering is irrelevant here,
// the merge re-sorts by resolved time.
func (s *Service) fetchWindow(ctx context.Context, src Source, station string, days []DateKey) []RawRecord {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		recs []RawRecord
	)

	for _, day := range days {
		wg.Add(1)
		go func(day DateKey) {
			defer wg.Done()

			dayRecs, err := src.FetchDay(ctx, station, day)
			if err != nil {
				if errors.Is(err, ErrSourceUnavailable) {
					log.Printf("pipeline: %s fetch failed for %s %s: %v", src.Name(), station, day, err)
				}
				return
			}

			mu.Lock()
			recs = append(recs, dayRecs...)
			mu.Unlock()
		}(day)
	}

	wg.Wait()
	return recs
}

func (s *Service) cachedSeries(ctx context.Context, sig string) ([]Series, bool) {
	b, ok := s.cache.Get(ctx, sig)
	if !ok {
		return nil, false
	}
	var series []Series
	if err := json.Unmarshal(b, &series); err != nil {
		return nil, false
	}
	return series, true
}

func (s *Service) storeSeries(ctx context.Context, sig string, series []Series) {
	b, err := json.Marshal(series)
	if err != nil {
		return
	}
	s.cache.SetWithExpiry(ctx, sig, s.cacheTTL, b)
}
