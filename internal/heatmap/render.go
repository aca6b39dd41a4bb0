package heatmap

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/tempmap/tempmap/internal/weather"
)

// cellSpanDeg is the geographic span each data point is drawn as. The grid
// step is 0.25 degrees, so neighboring cells overlap slightly and the overlay
// reads as a continuous surface.
const cellSpanDeg = 0.5

// Viewport describes the geographic window and pixel dimensions of one
// rendered frame. A fresh canvas is allocated per render, so pan, zoom and
// resize are all handled by passing the current viewport.
type Viewport struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
	Width  int
	Height int
}

// Validate reports whether the viewport describes a drawable frame.
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("viewport size %dx%d is not positive", v.Width, v.Height)
	}
	if v.MinLat >= v.MaxLat || v.MinLon >= v.MaxLon {
		return fmt.Errorf("viewport box (%g,%g)-(%g,%g) is empty", v.MinLat, v.MinLon, v.MaxLat, v.MaxLon)
	}
	if v.MaxLat > 85.0511 || v.MinLat < -85.0511 {
		return fmt.Errorf("latitude out of web mercator range")
	}
	return nil
}

// mercX maps longitude to [0,1] in web mercator.
func mercX(lon float64) float64 {
	return (lon + 180) / 360
}

// mercY maps latitude to [0,1] in web mercator, 0 at the north edge.
func mercY(lat float64) float64 {
	rad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
}

// Project converts a coordinate to pixel position within the viewport.
// Positions outside the viewport come back negative or beyond Width/Height;
// drawing clips them naturally.
func (v Viewport) Project(lat, lon float64) (float64, float64) {
	x := (mercX(lon) - mercX(v.MinLon)) / (mercX(v.MaxLon) - mercX(v.MinLon)) * float64(v.Width)
	y := (mercY(lat) - mercY(v.MaxLat)) / (mercY(v.MinLat) - mercY(v.MaxLat)) * float64(v.Height)
	return x, y
}

// Renderer draws temperature records as colored rectangles on a transparent
// canvas sized to the requested viewport.
type Renderer struct {
	palette *Palette
}

// NewRenderer creates a Renderer using the given palette.
func NewRenderer(p *Palette) *Renderer {
	return &Renderer{palette: p}
}

// Render paints one frame: a full repaint of every record whose series covers
// the requested hour. Each record becomes one filled rectangle centered on
// its projected pixel position. The rectangle size is derived once per frame
// from two reference points half a degree apart at the viewport's scale, so
// cell size tracks the zoom level.
func (r *Renderer) Render(records []weather.Record, hour int, vp Viewport) (*image.NRGBA, error) {
	if err := vp.Validate(); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, vp.Width, vp.Height))

	cellW, cellH := r.cellSize(vp)
	for _, rec := range records {
		temp, ok := rec.TempAt(hour)
		if !ok {
			continue
		}

		px, py := vp.Project(rec.Point.Lat, rec.Point.Lon)
		x0 := int(math.Round(px - float64(cellW)/2))
		y0 := int(math.Round(py - float64(cellH)/2))
		rect := image.Rect(x0, y0, x0+cellW, y0+cellH)

		src := image.NewUniform(r.palette.ColorFor(temp).NRGBA())
		draw.Draw(img, rect, src, image.Point{}, draw.Over)
	}

	return img, nil
}

// cellSize projects the viewport center and a point cellSpanDeg away, and
// returns the pixel span between them, at least 1x1.
func (r *Renderer) cellSize(vp Viewport) (int, int) {
	midLat := (vp.MinLat + vp.MaxLat) / 2
	midLon := (vp.MinLon + vp.MaxLon) / 2

	x0, y0 := vp.Project(midLat, midLon)
	x1, y1 := vp.Project(midLat+cellSpanDeg, midLon+cellSpanDeg)

	w := int(math.Round(math.Abs(x1 - x0)))
	h := int(math.Round(math.Abs(y1 - y0)))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
