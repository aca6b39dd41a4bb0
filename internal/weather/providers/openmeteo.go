package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/tempmap/tempmap/internal/weather"
)

// DefaultBatchSize is the maximum number of coordinates per upstream request.
const DefaultBatchSize = 100

// DefaultChunkDelay is the pause between consecutive chunk requests, keeping
// the request rate under the provider's limits.
const DefaultChunkDelay = 100 * time.Millisecond

// OpenMeteoOptions configures an OpenMeteoProvider.
type OpenMeteoOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	BatchSize  int
	ChunkDelay time.Duration
	Backoff    BackoffConfig
}

// OpenMeteoProvider fetches hourly temperature series from the Open-Meteo
// forecast API in coordinate batches. It implements weather.Source.
type OpenMeteoProvider struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	chunkDelay time.Duration
	httpCfg    HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates a provider over the shared HTTP client. Zero
// option fields fall back to defaults; ChunkDelay may be set negative to
// disable the inter-chunk pause (used by tests).
func NewOpenMeteoProvider(client *http.Client, opts OpenMeteoOptions) *OpenMeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.open-meteo.com/v1/forecast"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ChunkDelay == 0 {
		opts.ChunkDelay = DefaultChunkDelay
	}
	if opts.Backoff.MaxRetries == 0 && opts.Backoff.InitialInterval == 0 {
		opts.Backoff = BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}
	}

	return &OpenMeteoProvider{
		name:       "openmeteo",
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		model:      opts.Model,
		batchSize:  opts.BatchSize,
		chunkDelay: opts.ChunkDelay,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: opts.Backoff,
		},
		circuit: cb,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchAll retrieves the hourly temperature series for every point, one
// chunk at a time. Chunks run strictly sequentially; progress is reported per
// chunk. A chunk that fails after all retries aborts the run with an error;
// records fetched so far are returned alongside it.
func (p *OpenMeteoProvider) FetchAll(ctx context.Context, points []weather.Point, onProgress weather.ProgressFunc) ([]weather.Record, error) {
	chunks := chunkPoints(points, p.batchSize)
	records := make([]weather.Record, 0, len(points))

	for i, chunk := range chunks {
		recs, err := p.fetchChunk(ctx, chunk)
		if err != nil {
			return records, fmt.Errorf("chunk %d/%d (%d points): %w", i+1, len(chunks), len(chunk), err)
		}
		records = append(records, recs...)

		if onProgress != nil {
			onProgress((i + 1) * 100 / len(chunks))
		}

		if i < len(chunks)-1 && p.chunkDelay > 0 {
			timer := time.NewTimer(p.chunkDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return records, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return records, nil
}

// hourlySeries is the per-coordinate slice of the forecast response we care
// about.
type hourlySeries struct {
	Hourly struct {
		Temperature2m []float64 `json:"temperature_2m"`
	} `json:"hourly"`
}

func (p *OpenMeteoProvider) fetchChunk(ctx context.Context, chunk []weather.Point) ([]weather.Record, error) {
	result, err := doWithResilience(ctx, p.httpCfg, p.circuit, func(ctx context.Context) (interface{}, error) {
		req, err := p.buildRequest(ctx, chunk)
		if err != nil {
			return nil, err
		}

		resp, err := p.httpCfg.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return nil, err
		}

		series, err := decodeSeries(resp.Body)
		if err != nil {
			return nil, err
		}
		return series, nil
	})
	if err != nil {
		return nil, err
	}

	series, ok := result.([]hourlySeries)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}

	if len(series) != len(chunk) {
		log.WithFields(log.Fields{
			"requested": len(chunk),
			"returned":  len(series),
		}).Warn("openmeteo returned a different number of locations than requested")
	}

	// Response element i corresponds to input coordinate i. Elements without
	// a temperature series produce no record.
	records := make([]weather.Record, 0, len(chunk))
	for i, s := range series {
		if i >= len(chunk) {
			break
		}
		if len(s.Hourly.Temperature2m) == 0 {
			continue
		}
		records = append(records, weather.Record{
			Point: chunk[i],
			Temps: s.Hourly.Temperature2m,
		})
	}

	return records, nil
}

func (p *OpenMeteoProvider) buildRequest(ctx context.Context, chunk []weather.Point) (*http.Request, error) {
	lats := make([]string, len(chunk))
	lons := make([]string, len(chunk))
	for i, pt := range chunk {
		lats[i] = weather.FormatCoord(pt.Lat)
		lons[i] = weather.FormatCoord(pt.Lon)
	}

	values := url.Values{}
	values.Set("latitude", strings.Join(lats, ","))
	values.Set("longitude", strings.Join(lons, ","))
	values.Set("hourly", "temperature_2m")
	values.Set("temperature_unit", "fahrenheit")
	values.Set("forecast_days", "1")
	if p.model != "" {
		values.Set("models", p.model)
	}
	if p.apiKey != "" {
		values.Set("apikey", p.apiKey)
	}

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
}

// decodeSeries parses the forecast payload. Multi-location requests return a
// JSON array with one element per coordinate; a single-location request
// returns a bare object, which is normalized to a one-element slice.
func decodeSeries(r io.Reader) ([]hourlySeries, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var series []hourlySeries
		if err := json.Unmarshal(raw, &series); err != nil {
			return nil, fmt.Errorf("decoding forecast array: %w", err)
		}
		return series, nil
	}

	var single hourlySeries
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("decoding forecast object: %w", err)
	}
	return []hourlySeries{single}, nil
}

// chunkPoints splits points into batches of at most size.
func chunkPoints(points []weather.Point, size int) [][]weather.Point {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var chunks [][]weather.Point
	for start := 0; start < len(points); start += size {
		end := start + size
		if end > len(points) {
			end = len(points)
		}
		chunks = append(chunks, points[start:end])
	}
	return chunks
}
