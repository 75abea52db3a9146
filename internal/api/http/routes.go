package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Norte-Itaipu/ion-data-service/internal/export"
	"github.com/Norte-Itaipu/ion-data-service/internal/ion"
	"github.com/Norte-Itaipu/ion-data-service/internal/rbmc"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *ion.Service, locator *rbmc.Locator) {
	v1 := app.Group("/api/v1")

	v1.Get("/series/range", func(c *fiber.Ctx) error {
		var req rangeRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := service.FetchRange(c.Context(), req.toQuery())
		if err != nil {
			return mapPipelineError(err)
		}

		return c.JSON(fiber.Map{
			"station": req.Station,
			"start":   req.Start,
			"end":     req.End,
			"series":  series,
		})
	})

	v1.Get("/series/latest", func(c *fiber.Ctx) error {
		var req latestRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := service.FetchLatest(c.Context(), ion.LatestQuery{
			Station: req.Station,
			Metrics: req.Metrics,
		})
		if err != nil {
			return mapPipelineError(err)
		}

		return c.JSON(fiber.Map{
			"station": req.Station,
			"date":    res.Date.String(),
			"series":  res.Series,
		})
	})

	v1.Get("/series/export", func(c *fiber.Ctx) error {
		var req rangeRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		raw, err := service.FetchRawRange(c.Context(), req.toQuery())
		if err != nil {
			return mapPipelineError(err)
		}

		archive, err := export.Archive(req.Station, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to build archive")
		}

		c.Set(fiber.HeaderContentType, "application/zip")
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="%s_%s_%s.zip"`, req.Station, req.Start, req.End))
		return c.Send(archive)
	})

	v1.Get("/rbmc/locate", func(c *fiber.Ctx) error {
		var req rbmcRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		day, err := ion.ParseDateKey(req.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		u, err := locator.Locate(c.Context(), req.Station, day)
		if err != nil {
			if errors.Is(err, rbmc.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no archive for requested station and date")
			}
			return fiber.NewError(fiber.StatusBadGateway, "failed to reach archive server")
		}

		return c.JSON(fiber.Map{"station": req.Station, "date": req.Date, "url": u})
	})
}

// mapPipelineError translates the pipeline's error taxonomy into HTTP status
// codes. Day-level source failures never reach this point; they were already
// absorbed as skipped days.
func mapPipelineError(err error) error {
	switch {
	case errors.Is(err, ion.ErrInvalidWindow):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ion.ErrNoData), errors.Is(err, ion.ErrNoOverlapFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch series data")
	}
}

// rangeRequest holds query parameters for windowed series endpoints.
type rangeRequest struct {
	Station      string `validate:"required,len=4,alphanum"`
	Start        string `validate:"required"`
	End          string `validate:"required"`
	ElevationMin float64
	ElevationMax float64
	Metrics      []string `validate:"required,min=1"`
	Collections  []string `validate:"required,min=1"`

	start ion.DateKey
	end   ion.DateKey
}

func (r *rangeRequest) bind(c *fiber.Ctx) error {
	r.Station = c.Query("station")
	r.Start = c.Query("start")
	r.End = c.Query("end")
	r.Metrics = splitParam(c.Query("metrics", "ROTI"))
	r.Collections = splitParam(c.Query("collections", "ion"))

	var err error
	if r.ElevationMin, err = parseFloatParam(c.Query("elevation_min"), 0); err != nil {
		return errors.New("invalid elevation_min")
	}
	if r.ElevationMax, err = parseFloatParam(c.Query("elevation_max"), 90); err != nil {
		return errors.New("invalid elevation_max")
	}
	if r.ElevationMax < r.ElevationMin {
		return errors.New("elevation_max must not be below elevation_min")
	}

	if err := validate.Struct(r); err != nil {
		return err
	}

	if r.start, err = ion.ParseDateKey(r.Start); err != nil {
		return err
	}
	if r.end, err = ion.ParseDateKey(r.End); err != nil {
		return err
	}
	return nil
}

func (r *rangeRequest) toQuery() ion.RangeQuery {
	min, max := r.ElevationMin, r.ElevationMax
	return ion.RangeQuery{
		Station:      r.Station,
		Start:        r.start,
		End:          r.end,
		ElevationMin: &min,
		ElevationMax: &max,
		Metrics:      r.Metrics,
		Collections:  r.Collections,
	}
}

// latestRequest holds query parameters for the latest-overlap endpoint.
type latestRequest struct {
	Station string   `validate:"required,len=4,alphanum"`
	Metrics []string `validate:"required,min=1"`
}

func (r *latestRequest) bind(c *fiber.Ctx) error {
	r.Station = c.Query("station")
	r.Metrics = splitParam(c.Query("metrics", "ROTI"))
	return validate.Struct(r)
}

// rbmcRequest holds query parameters for the archive locator endpoint.
type rbmcRequest struct {
	Station string `validate:"required,len=4,alphanum"`
	Date    string `validate:"required"`
}

func (r *rbmcRequest) bind(c *fiber.Ctx) error {
	r.Station = c.Query("station")
	r.Date = c.Query("date")
	return validate.Struct(r)
}

func parseFloatParam(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

func splitParam(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
