package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Norte-Itaipu/ion-data-service/internal/cache"
	"github.com/Norte-Itaipu/ion-data-service/internal/ion"
	"github.com/Norte-Itaipu/ion-data-service/internal/rbmc"
)

type stubSource struct {
	name  string
	byDay map[string][]ion.RawRecord
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchDay(_ context.Context, station string, day ion.DateKey) ([]ion.RawRecord, error) {
	recs, ok := s.byDay[day.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ion.ErrSourceEmpty, station, day)
	}
	return recs, nil
}

func newTestApp(service *ion.Service) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": true, "message": err.Error()})
		},
	})
	RegisterRoutes(app, service, rbmc.NewLocator(http.DefaultClient, ""))
	return app
}

func emptyService() *ion.Service {
	return ion.NewService(&stubSource{name: "predicted"}, nil,
		map[string]ion.Source{"ion": &stubSource{name: "measured"}},
		cache.NewMemory(), time.Hour, 10)
}

func TestRangeValidation(t *testing.T) {
	app := newTestApp(emptyService())

	cases := []struct {
		name string
		url  string
	}{
		{"missing station", "/api/v1/series/range?start=2020-01-01&end=2020-01-02"},
		{"bad station", "/api/v1/series/range?station=IT&start=2020-01-01&end=2020-01-02"},
		{"missing dates", "/api/v1/series/range?station=ITAI"},
		{"unparseable date", "/api/v1/series/range?station=ITAI&start=nope&end=2020-01-02"},
		{"end before start", "/api/v1/series/range?station=ITAI&start=2020-01-05&end=2020-01-02"},
		{"inverted elevation", "/api/v1/series/range?station=ITAI&start=2020-01-01&end=2020-01-02&elevation_min=50&elevation_max=10"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.url, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
	}
}

func TestRangeNoDataIs404(t *testing.T) {
	app := newTestApp(emptyService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series/range?station=ITAI&start=2020-01-01&end=2020-01-02", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for a window with no data", resp.StatusCode)
	}
}

func TestRangeHappyPath(t *testing.T) {
	predicted := &stubSource{name: "predicted", byDay: map[string][]ion.RawRecord{
		"2020-01-02": {{Date: "2020-01-01", Hour: 0, Metrics: map[string]float64{"ROTI_previsto": 0.4}}},
	}}
	measured := &stubSource{name: "measured", byDay: map[string][]ion.RawRecord{
		"2020-01-01": {{Date: "2020-01-01", Hour: 5, Satellite: "G01", Metrics: map[string]float64{"ROTI": 1.2, "elevacao": 40}}},
	}}

	service := ion.NewService(predicted, nil, map[string]ion.Source{"ion": measured},
		cache.NewMemory(), time.Hour, 10)
	app := newTestApp(service)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/series/range?station=ITAI&start=2020-01-01&end=2020-01-01&metrics=ROTI", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Station string       `json:"station"`
		Series  []ion.Series `json:"series"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Station != "ITAI" || len(body.Series) != 2 {
		t.Errorf("body = %+v, want ITAI with 2 series", body)
	}
}

func TestLatestValidation(t *testing.T) {
	app := newTestApp(emptyService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series/latest", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without station", resp.StatusCode)
	}
}

func TestLatestNoOverlapIs404(t *testing.T) {
	app := newTestApp(emptyService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/series/latest?station=ITAI", nil)
	resp, err := app.Test(req, int(10*time.Second/time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when no overlap day exists", resp.StatusCode)
	}
}

func TestRBMCValidation(t *testing.T) {
	app := newTestApp(emptyService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rbmc/locate?station=PRGU", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without date", resp.StatusCode)
	}
}
