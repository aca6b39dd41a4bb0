package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tempmap/tempmap/internal/heatmap"
	"github.com/tempmap/tempmap/internal/store"
	"github.com/tempmap/tempmap/internal/weather"
)

func testApp(dataset *store.Dataset) *fiber.App {
	app := fiber.New()
	palette := heatmap.Default()
	RegisterRoutes(app, dataset, heatmap.NewRenderer(palette), palette)
	return app
}

func readyDataset() *store.Dataset {
	d := store.New()
	temps := make([]float64, weather.HoursPerDay)
	for i := range temps {
		temps[i] = 70
	}
	d.Replace("run-1", []weather.Record{
		{Point: weather.NewPoint(35, -95), Temps: temps},
	})
	return d
}

func TestStatusEndpoint(t *testing.T) {
	app := testApp(store.New())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got store.Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Phase != store.PhaseLoading {
		t.Errorf("phase = %s, want %s", got.Phase, store.PhaseLoading)
	}
}

func TestHeatmapConflictsWhileLoading(t *testing.T) {
	app := testApp(store.New())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/heatmap.png", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409 while loading", resp.StatusCode)
	}
}

func TestHeatmapReportsFailedLoad(t *testing.T) {
	d := store.New()
	d.Begin("run-1")
	d.Fail("run-1", errors.New("upstream down"))
	app := testApp(d)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/heatmap.png", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 after a failed load", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "error loading weather data") {
		t.Errorf("body = %q, want the load-failure message", body)
	}
}

func TestHeatmapValidation(t *testing.T) {
	app := testApp(readyDataset())

	cases := []string{
		"/api/v1/heatmap.png?hour=24",
		"/api/v1/heatmap.png?hour=-1",
		"/api/v1/heatmap.png?bbox=1,2,3",
		"/api/v1/heatmap.png?bbox=-100,40,-90,30", // north below south
		"/api/v1/heatmap.png?width=0",
		"/api/v1/heatmap.png?width=100000",
		"/api/v1/heatmap.png?hour=abc",
	}
	for _, url := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, resp.StatusCode)
		}
	}
}

func TestHeatmapReturnsPNG(t *testing.T) {
	app := testApp(readyDataset())

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/heatmap.png?hour=12&bbox=-100,30,-90,40&width=64&height=64", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("body is not a PNG")
	}
}

func TestNearRequiresCoordinates(t *testing.T) {
	app := testApp(readyDataset())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/points/near?lat=35", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestNearNotFound(t *testing.T) {
	app := testApp(readyDataset())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/points/near?lat=45&lon=-70", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestNearReturnsTemperature(t *testing.T) {
	app := testApp(readyDataset())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/api/v1/points/near?lat=35.1&lon=-95.1&hour=3", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		Temperature float64 `json:"temperature"`
		Hour        int     `json:"hour"`
		DistanceKm  float64 `json:"distance_km"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Temperature != 70 || got.Hour != 3 {
		t.Errorf("got %+v, want temperature 70 at hour 3", got)
	}
	if got.DistanceKm <= 0 || got.DistanceKm > 20 {
		t.Errorf("distance_km = %g, want a small positive distance", got.DistanceKm)
	}
}

func TestPaletteEndpoint(t *testing.T) {
	app := testApp(store.New())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/palette", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		Anchors []heatmap.Anchor `json:"anchors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Anchors) != 15 {
		t.Errorf("got %d anchors, want 15", len(got.Anchors))
	}
}
