package grid

import (
	"sort"

	"github.com/tempmap/tempmap/internal/weather"
)

// Bounding box and lattice step for the continental US grid.
const (
	MinLat = 24.0
	MaxLat = 50.0
	MinLon = -126.0
	MaxLon = -66.0
	Step   = 0.25
)

// extraPoints are city coordinates sampled in addition to the regular
// lattice, so the densest population centers always have an exact reading.
var extraPoints = []weather.Point{
	{Lat: 47.6062, Lon: -122.3321}, // Seattle
	{Lat: 45.5152, Lon: -122.6784}, // Portland
	{Lat: 37.7749, Lon: -122.4194}, // San Francisco
	{Lat: 34.0522, Lon: -118.2437}, // Los Angeles
	{Lat: 36.1699, Lon: -115.1398}, // Las Vegas
	{Lat: 33.4484, Lon: -112.0740}, // Phoenix
	{Lat: 39.7392, Lon: -104.9903}, // Denver
	{Lat: 32.7767, Lon: -96.7970},  // Dallas
	{Lat: 29.7604, Lon: -95.3698},  // Houston
	{Lat: 41.8781, Lon: -87.6298},  // Chicago
	{Lat: 33.7490, Lon: -84.3880},  // Atlanta
	{Lat: 25.7617, Lon: -80.1918},  // Miami
	{Lat: 40.7128, Lon: -74.0060},  // New York
	{Lat: 42.3601, Lon: -71.0589},  // Boston
}

// ExtraPoints returns a copy of the curated extra sampling points.
func ExtraPoints() []weather.Point {
	out := make([]weather.Point, len(extraPoints))
	copy(out, extraPoints)
	return out
}

// Generate produces the deduplicated lattice of grid points over the
// continental US bounding box, row by row from south to north. Each row is
// sorted by longitude ascending before it is appended, keeping nearby points
// adjacent in the output so batched requests cover contiguous areas. The
// extra points are appended afterwards unless the lattice already produced
// them.
func Generate() []weather.Point {
	seen := make(map[string]struct{})
	points := make([]weather.Point, 0, 26*1024)

	for lat := MinLat; lat <= MaxLat; lat += Step {
		row := make([]weather.Point, 0, 256)
		for lon := MinLon; lon <= MaxLon; lon += Step {
			p := weather.NewPoint(lat, lon)
			key := p.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			row = append(row, p)
		}

		sort.Slice(row, func(i, j int) bool { return row[i].Lon < row[j].Lon })
		points = append(points, row...)
	}

	for _, extra := range extraPoints {
		p := weather.NewPoint(extra.Lat, extra.Lon)
		key := p.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		points = append(points, p)
	}

	return points
}
