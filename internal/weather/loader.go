package weather

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Loader orchestrates one load of the temperature dataset: fetch the hourly
// series for every grid point from the source, then hand the result to the
// sink. The sink keeps its last good dataset when a run fails, so a refresh
// cannot wipe data that is already being served.
type Loader struct {
	source Source
	sink   Sink
	points []Point
}

// NewLoader creates a Loader over a fixed set of grid points.
func NewLoader(source Source, sink Sink, points []Point) *Loader {
	return &Loader{
		source: source,
		sink:   sink,
		points: points,
	}
}

// Run executes a single fetch run. Each run gets a fresh id for log
// correlation. The returned error is the fetch error, if any; partial results
// are never published.
func (l *Loader) Run(ctx context.Context) error {
	if len(l.points) == 0 {
		return fmt.Errorf("loader: no grid points configured")
	}

	runID := uuid.NewString()
	logger := log.WithFields(log.Fields{
		"run_id": runID,
		"source": l.source.Name(),
		"points": len(l.points),
	})
	logger.Info("starting dataset load")

	l.sink.Begin(runID)

	records, err := l.source.FetchAll(ctx, l.points, func(percent int) {
		l.sink.SetProgress(percent)
	})
	if err != nil {
		l.sink.Fail(runID, err)
		logger.WithError(err).Error("dataset load failed")
		return fmt.Errorf("loading weather data: %w", err)
	}

	l.sink.Replace(runID, records)
	logger.WithField("records", len(records)).Info("dataset load complete")
	return nil
}
