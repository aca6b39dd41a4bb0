package store

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tempmap/tempmap/internal/weather"
)

var (
	// ErrNotFound is returned when no record matches a point query.
	ErrNotFound = errors.New("no weather data near location")
)

// Phase is the lifecycle state of the dataset.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// nearbyTolerance is the half-width of the box used by Nearest, matching the
// 0.25 degree grid step.
const nearbyTolerance = 0.25

// Status is a snapshot of the dataset's load state, served by the status
// endpoint and polled by the page's progress bar.
type Status struct {
	Phase     Phase     `json:"phase"`
	Percent   int       `json:"percent"`
	Records   int       `json:"records"`
	RunID     string    `json:"run_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Dataset is the single owned home of the temperature records: written by the
// loader, read by the renderer and the near-point handler. The progress gauge
// is kept separately in an atomic so status polls never contend with a
// replace in flight.
type Dataset struct {
	mu        sync.RWMutex
	records   []weather.Record
	phase     Phase
	runID     string
	updatedAt time.Time
	lastErr   error

	percent atomic.Int64
}

// New creates an empty Dataset in the loading phase.
func New() *Dataset {
	return &Dataset{phase: PhaseLoading}
}

// Begin marks the start of a load run. An already-ready dataset stays ready
// while a refresh runs in the background.
func (d *Dataset) Begin(runID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.runID = runID
	if d.phase != PhaseReady {
		d.phase = PhaseLoading
		d.percent.Store(0)
	}
}

// SetProgress records fetch progress as a percentage of chunks processed.
func (d *Dataset) SetProgress(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	d.percent.Store(int64(percent))
}

// Replace swaps in a freshly fetched set of records and marks the dataset
// ready. The previous records are discarded wholesale; there is no partial
// merge.
func (d *Dataset) Replace(runID string, records []weather.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.records = records
	d.phase = PhaseReady
	d.runID = runID
	d.updatedAt = time.Now().UTC()
	d.lastErr = nil
	d.percent.Store(100)
}

// Fail records a failed load run. If a previous run succeeded, the dataset
// keeps serving that data and stays ready; only a dataset that never loaded
// moves to the failed phase.
func (d *Dataset) Fail(runID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.runID = runID
	d.lastErr = err
	if len(d.records) == 0 {
		d.phase = PhaseFailed
	}
}

// Ready reports whether the dataset has records to serve.
func (d *Dataset) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.phase == PhaseReady && len(d.records) > 0
}

// Snapshot returns the current records. The slice is shared, not copied;
// Replace installs a new slice rather than mutating, so readers holding a
// snapshot are never affected by a refresh.
func (d *Dataset) Snapshot() []weather.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.records
}

// Status returns the current load state.
func (d *Dataset) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Status{
		Phase:     d.phase,
		Percent:   int(d.percent.Load()),
		Records:   len(d.records),
		RunID:     d.runID,
		UpdatedAt: d.updatedAt,
	}
	if d.lastErr != nil {
		s.Error = d.lastErr.Error()
	}
	return s
}

// Nearest scans the records in order and returns the first one within 0.25
// degrees of the query in both axes. First match wins; this is deliberately
// not a nearest-neighbor search, preserving array-order lookup semantics.
func (d *Dataset) Nearest(lat, lon float64) (weather.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, rec := range d.records {
		if abs(rec.Point.Lat-lat) <= nearbyTolerance && abs(rec.Point.Lon-lon) <= nearbyTolerance {
			return rec, nil
		}
	}
	return weather.Record{}, ErrNotFound
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
