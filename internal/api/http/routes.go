package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/umahmood/haversine"

	"github.com/tempmap/tempmap/internal/grid"
	"github.com/tempmap/tempmap/internal/heatmap"
	"github.com/tempmap/tempmap/internal/store"
)

var validate = validator.New()

// Rendered frame dimensions are capped to keep a single request from
// allocating an arbitrarily large canvas.
const (
	defaultWidth  = 1100
	defaultHeight = 700
	maxDimension  = 4096
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, dataset *store.Dataset, renderer *heatmap.Renderer, palette *heatmap.Palette) {
	v1 := app.Group("/api/v1")

	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(dataset.Status())
	})

	v1.Get("/palette", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"anchors": palette.Anchors()})
	})

	v1.Get("/heatmap.png", func(c *fiber.Ctx) error {
		var req heatmapQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if !dataset.Ready() {
			if dataset.Status().Phase == store.PhaseFailed {
				return fiber.NewError(fiber.StatusServiceUnavailable, "error loading weather data")
			}
			return fiber.NewError(fiber.StatusConflict, "weather data still loading")
		}

		img, err := renderer.Render(dataset.Snapshot(), req.Hour, req.viewport())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to encode heatmap")
		}

		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(buf.Bytes())
	})

	v1.Get("/points/near", func(c *fiber.Ctx) error {
		var req nearQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := dataset.Nearest(req.Lat, req.Lon)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no data point near requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "point lookup failed")
		}

		temp, ok := rec.TempAt(req.Hour)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no temperature for requested hour")
		}

		_, km := haversine.Distance(
			haversine.Coord{Lat: req.Lat, Lon: req.Lon},
			haversine.Coord{Lat: rec.Point.Lat, Lon: rec.Point.Lon},
		)

		return c.JSON(fiber.Map{
			"point":       rec.Point,
			"hour":        req.Hour,
			"temperature": temp,
			"distance_km": km,
		})
	})
}

// heatmapQuery holds query parameters for the heatmap frame endpoint.
type heatmapQuery struct {
	Hour   int     `validate:"min=0,max=23"`
	MinLat float64 `validate:"gte=-85,lte=85"`
	MinLon float64 `validate:"gte=-180,lte=180"`
	MaxLat float64 `validate:"gte=-85,lte=85,gtfield=MinLat"`
	MaxLon float64 `validate:"gte=-180,lte=180,gtfield=MinLon"`
	Width  int     `validate:"min=1"`
	Height int     `validate:"min=1"`
}

func (q *heatmapQuery) bind(c *fiber.Ctx) error {
	hour, err := parseIntDefault(c.Query("hour"), 0)
	if err != nil {
		return fmt.Errorf("invalid hour: %w", err)
	}
	q.Hour = hour

	// bbox follows the Leaflet toBBoxString order: west,south,east,north.
	// Default is the full continental US grid box.
	q.MinLon, q.MinLat, q.MaxLon, q.MaxLat = grid.MinLon, grid.MinLat, grid.MaxLon, grid.MaxLat
	if bbox := c.Query("bbox"); bbox != "" {
		parts := strings.Split(bbox, ",")
		if len(parts) != 4 {
			return errors.New("bbox must be west,south,east,north")
		}
		vals := make([]float64, 4)
		for i, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return fmt.Errorf("invalid bbox component %q", part)
			}
			vals[i] = v
		}
		q.MinLon, q.MinLat, q.MaxLon, q.MaxLat = vals[0], vals[1], vals[2], vals[3]
	}

	if q.Width, err = parseIntDefault(c.Query("width"), defaultWidth); err != nil {
		return fmt.Errorf("invalid width: %w", err)
	}
	if q.Height, err = parseIntDefault(c.Query("height"), defaultHeight); err != nil {
		return fmt.Errorf("invalid height: %w", err)
	}
	if q.Width > maxDimension || q.Height > maxDimension {
		return fmt.Errorf("width and height must not exceed %d", maxDimension)
	}

	return validate.Struct(q)
}

func (q *heatmapQuery) viewport() heatmap.Viewport {
	return heatmap.Viewport{
		MinLat: q.MinLat,
		MinLon: q.MinLon,
		MaxLat: q.MaxLat,
		MaxLon: q.MaxLon,
		Width:  q.Width,
		Height: q.Height,
	}
}

// nearQuery holds query parameters for the tooltip point lookup.
type nearQuery struct {
	Lat  float64 `validate:"gte=-90,lte=90"`
	Lon  float64 `validate:"gte=-180,lte=180"`
	Hour int     `validate:"min=0,max=23"`
}

func (q *nearQuery) bind(c *fiber.Ctx) error {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return errors.New("lat and lon query parameters are required")
	}

	var err error
	if q.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return fmt.Errorf("invalid lat: %w", err)
	}
	if q.Lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return fmt.Errorf("invalid lon: %w", err)
	}
	if q.Hour, err = parseIntDefault(c.Query("hour"), 0); err != nil {
		return fmt.Errorf("invalid hour: %w", err)
	}

	return validate.Struct(q)
}

func parseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
