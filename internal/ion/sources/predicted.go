package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/Norte-Itaipu/ion-data-service/internal/ion"
)

// predictedMetric is the forecast value field published by the predicted
// endpoint.
const predictedMetric = "ROTI_previsto"

// Predicted wraps the forecast endpoint. Two response schemas are in the
// wild: schema A items carry separate `data`/`hora` fields, schema B items a
// combined `timestamp`. The shape is detected once per response and both
// normalize into the same record form. Predicted also implements ion.Lister
// via the endpoint's directory-listing mode.
type Predicted struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewPredicted creates the predicted-series adapter on top of a shared HTTP
// client.
func NewPredicted(client *http.Client, baseURL string) *Predicted {
	return &Predicted{
		name:    "predicted",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{Client: client, Backoff: defaultBackoff()},
		circuit: newBreaker("predicted"),
	}
}

func (p *Predicted) Name() string {
	return p.name
}

// predictedItem covers both response schemas; pointer and any-typed fields
// distinguish absent from zero for the one-shot shape detection, and the
// numeric fields are normalized through toFloat because the endpoint emits
// them both as numbers and as quoted strings.
type predictedItem struct {
	Data         *string `json:"data"`
	Hora         any     `json:"hora"`
	Timestamp    *string `json:"timestamp"`
	ROTIPrevisto any     `json:"ROTI_previsto"`
}

// FetchDay requests the forecast published for the given day and station.
func (p *Predicted) FetchDay(ctx context.Context, station string, day ion.DateKey) ([]ion.RawRecord, error) {
	buildRequest := func() (*http.Request, error) {
		vals := url.Values{}
		vals.Set("ano", fmt.Sprintf("%d", day.Year))
		vals.Set("mes", day.MonthPadded())
		vals.Set("dia", day.DayPadded())
		vals.Set("estacao", station)
		return http.NewRequest(http.MethodGet, appendQuery(p.baseURL, vals), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		if errors.Is(err, errNoContent) {
			return nil, fmt.Errorf("%w: predicted %s %s", ion.ErrSourceEmpty, station, day)
		}
		return nil, fmt.Errorf("%w: predicted %s %s: %v", ion.ErrSourceUnavailable, station, day, err)
	}

	var payload struct {
		Content []predictedItem `json:"content"`
	}
	if err := decodeContent(resp, &payload); err != nil {
		return nil, fmt.Errorf("%w: predicted %s %s: decode: %v", ion.ErrSourceUnavailable, station, day, err)
	}
	if len(payload.Content) == 0 {
		return nil, fmt.Errorf("%w: predicted %s %s", ion.ErrSourceEmpty, station, day)
	}

	// Schema detection happens once per response, not per item: both `data`
	// and `hora` present on the first item signals schema A.
	schemaA := payload.Content[0].Data != nil && payload.Content[0].Hora != nil

	recs := make([]ion.RawRecord, 0, len(payload.Content))
	for _, item := range payload.Content {
		value, _ := toFloat(item.ROTIPrevisto) // absent forecast defaults to 0
		metrics := map[string]float64{predictedMetric: value}

		if schemaA {
			if item.Data == nil {
				continue
			}
			hour, _ := toFloat(item.Hora)
			recs = append(recs, ion.RawRecord{Date: *item.Data, Hour: hour, Metrics: metrics})
			continue
		}

		if item.Timestamp == nil {
			continue
		}
		recs = append(recs, ion.RawRecord{Timestamp: *item.Timestamp, Metrics: metrics})
	}

	return recs, nil
}

var listingDatePattern = regexp.MustCompile(`(\d{4})[-/](\d{2})[-/](\d{2})`)

// LatestAvailable asks the endpoint's listing mode for the most recent day
// with a published forecast for station. The structured per-station form is
// tried first; a flat file-path listing is parsed by date-pattern extraction
// as a fallback.
func (p *Predicted) LatestAvailable(ctx context.Context, station string) (ion.DateKey, error) {
	buildRequest := func() (*http.Request, error) {
		vals := url.Values{}
		vals.Set("list", "true")
		return http.NewRequest(http.MethodGet, appendQuery(p.baseURL, vals), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		if errors.Is(err, errNoContent) {
			return ion.DateKey{}, fmt.Errorf("%w: predicted listing", ion.ErrSourceEmpty)
		}
		return ion.DateKey{}, fmt.Errorf("%w: predicted listing: %v", ion.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ion.DateKey{}, fmt.Errorf("%w: predicted listing: %v", ion.ErrSourceUnavailable, err)
	}

	var structured struct {
		Stations []struct {
			Estacao    string `json:"estacao"`
			LatestDate string `json:"latest_date"`
		} `json:"stations"`
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		if len(structured.Stations) > 0 {
			for _, s := range structured.Stations {
				if strings.EqualFold(s.Estacao, station) {
					return ion.ParseDateKey(s.LatestDate)
				}
			}
			return ion.DateKey{}, fmt.Errorf("%w: station %s not in listing", ion.ErrSourceEmpty, station)
		}
		if len(structured.Files) > 0 {
			return latestFromPaths(structured.Files, station)
		}
	}

	var flat []string
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return latestFromPaths(flat, station)
	}

	return ion.DateKey{}, fmt.Errorf("%w: predicted listing empty", ion.ErrSourceEmpty)
}

// latestFromPaths extracts YYYY/MM/DD or YYYY-MM-DD fragments from listing
// paths mentioning station and returns the most recent one.
func latestFromPaths(paths []string, station string) (ion.DateKey, error) {
	var latest ion.DateKey
	found := false

	needle := strings.ToLower(station)
	for _, path := range paths {
		if !strings.Contains(strings.ToLower(path), needle) {
			continue
		}
		m := listingDatePattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		key, err := ion.ParseDateKey(m[1] + "-" + m[2] + "-" + m[3])
		if err != nil {
			continue
		}
		if !found || latest.Before(key) {
			latest = key
			found = true
		}
	}

	if !found {
		return ion.DateKey{}, fmt.Errorf("%w: station %s not in listing", ion.ErrSourceEmpty, station)
	}
	return latest, nil
}
