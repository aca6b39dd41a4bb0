package weather

import (
	"math"
	"strconv"
)

// HoursPerDay is the length of the hourly temperature series carried by a
// Record (one day of forecast data).
const HoursPerDay = 24

// Point is a grid coordinate, rounded to 4 decimal places.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewPoint builds a Point with both coordinates rounded to 4 decimals.
func NewPoint(lat, lon float64) Point {
	return Point{Lat: RoundCoord(lat), Lon: RoundCoord(lon)}
}

// Key returns the canonical "lat,lon" string used to deduplicate points.
func (p Point) Key() string {
	return FormatCoord(p.Lat) + "," + FormatCoord(p.Lon)
}

// RoundCoord rounds a coordinate to 4 decimal places.
func RoundCoord(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// FormatCoord formats a coordinate with exactly 4 decimals, matching the
// precision the upstream API is queried with.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Record pairs a grid point with its hourly temperature series (Fahrenheit,
// one value per hour of the forecast day).
type Record struct {
	Point Point     `json:"point"`
	Temps []float64 `json:"temperatures"`
}

// TempAt returns the temperature at the given hour, or false when the hour
// falls outside the series.
func (r Record) TempAt(hour int) (float64, bool) {
	if hour < 0 || hour >= len(r.Temps) {
		return 0, false
	}
	return r.Temps[hour], true
}
