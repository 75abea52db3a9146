package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/Norte-Itaipu/ion-data-service/internal/ion"
)

// Measured wraps one collection of the observation endpoint. The endpoint
// keys days by ordinal day-of-year and multiplexes several collection types
// (ion, gts, trp) behind a tag, so one adapter instance serves exactly one
// collection.
type Measured struct {
	name       string
	baseURL    string
	collection string
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

// NewMeasured creates the measured-series adapter for one collection tag.
func NewMeasured(client *http.Client, baseURL, collection string) *Measured {
	return &Measured{
		name:       "measured/" + collection,
		baseURL:    baseURL,
		collection: collection,
		httpCfg:    HTTPClientConfig{Client: client, Backoff: defaultBackoff()},
		circuit:    newBreaker("measured-" + collection),
	}
}

func (m *Measured) Name() string {
	return m.name
}

// FetchDay requests the collection's observations for the given day and
// station. Payload items carry a satellite identifier, a calendar date, an
// hour of day and a free set of numeric metric fields; every numeric field
// besides the three fixed ones lands in the record's metric map.
func (m *Measured) FetchDay(ctx context.Context, station string, day ion.DateKey) ([]ion.RawRecord, error) {
	buildRequest := func() (*http.Request, error) {
		vals := url.Values{}
		vals.Set("ano", fmt.Sprintf("%d", day.Year))
		vals.Set("estacao", station)
		vals.Set("tipo_coleta", m.collection)
		vals.Set("doy", day.DayOfYearPadded())
		return http.NewRequest(http.MethodGet, appendQuery(m.baseURL, vals), nil)
	}

	resp, err := doRequestWithResilience(ctx, m.httpCfg, m.circuit, buildRequest)
	if err != nil {
		if errors.Is(err, errNoContent) {
			return nil, fmt.Errorf("%w: %s %s %s", ion.ErrSourceEmpty, m.name, station, day)
		}
		return nil, fmt.Errorf("%w: %s %s %s: %v", ion.ErrSourceUnavailable, m.name, station, day, err)
	}

	var payload struct {
		Content []map[string]any `json:"content"`
	}
	if err := decodeContent(resp, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s %s %s: decode: %v", ion.ErrSourceUnavailable, m.name, station, day, err)
	}
	if len(payload.Content) == 0 {
		return nil, fmt.Errorf("%w: %s %s %s", ion.ErrSourceEmpty, m.name, station, day)
	}

	recs := make([]ion.RawRecord, 0, len(payload.Content))
	for _, item := range payload.Content {
		rec := ion.RawRecord{Metrics: make(map[string]float64)}

		for field, v := range item {
			switch field {
			case "satelite":
				if s, ok := v.(string); ok {
					rec.Satellite = s
				}
			case "data":
				if s, ok := v.(string); ok {
					rec.Date = s
				}
			case "hora":
				if f, ok := toFloat(v); ok {
					rec.Hour = f
				}
			default:
				if f, ok := toFloat(v); ok {
					rec.Metrics[field] = f
				}
			}
		}

		recs = append(recs, rec)
	}

	return recs, nil
}
