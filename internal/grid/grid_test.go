package grid

import (
	"reflect"
	"testing"

	"github.com/tempmap/tempmap/internal/weather"
)

func TestGenerateNoDuplicateKeys(t *testing.T) {
	points := Generate()

	seen := make(map[string]int, len(points))
	for _, p := range points {
		seen[p.Key()]++
	}
	for key, n := range seen {
		if n != 1 {
			t.Errorf("key %s appears %d times, want 1", key, n)
		}
	}
}

func TestGenerateCount(t *testing.T) {
	// 0.25 and the box edges are exactly representable in binary, so the
	// accumulating loop produces an exact lattice: 105 latitudes by 241
	// longitudes, plus the 14 extra city points (none on the lattice).
	points := Generate()
	want := 105*241 + 14
	if len(points) != want {
		t.Fatalf("Generate() returned %d points, want %d", len(points), want)
	}
}

func TestGenerateBounds(t *testing.T) {
	extras := make(map[string]struct{})
	for _, p := range ExtraPoints() {
		extras[weather.NewPoint(p.Lat, p.Lon).Key()] = struct{}{}
	}

	for _, p := range Generate() {
		if _, ok := extras[p.Key()]; ok {
			continue
		}
		if p.Lat < MinLat || p.Lat > MaxLat || p.Lon < MinLon || p.Lon > MaxLon {
			t.Errorf("lattice point %s outside bounding box", p.Key())
		}
	}
}

func TestGenerateExtraPointsAppearOnce(t *testing.T) {
	points := Generate()

	counts := make(map[string]int)
	for _, p := range points {
		counts[p.Key()]++
	}

	for _, extra := range ExtraPoints() {
		key := weather.NewPoint(extra.Lat, extra.Lon).Key()
		if counts[key] != 1 {
			t.Errorf("extra point %s appears %d times, want exactly 1", key, counts[key])
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate()
	b := Generate()
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two runs of Generate() differ")
	}
}

func TestGenerateRowsSortedByLongitude(t *testing.T) {
	points := Generate()
	lattice := points[:len(points)-len(ExtraPoints())]

	for i := 1; i < len(lattice); i++ {
		if lattice[i].Lat == lattice[i-1].Lat && lattice[i].Lon < lattice[i-1].Lon {
			t.Fatalf("row %v not sorted by longitude at index %d", lattice[i].Lat, i)
		}
	}
}
