package weather

import "context"

// ProgressFunc receives loading progress as a percentage (0-100) after each
// fetched chunk.
type ProgressFunc func(percent int)

// Source abstracts the upstream forecast provider (Open-Meteo in production,
// a stub in tests). Implementations return one Record per coordinate that
// carried a usable temperature series, in input order.
type Source interface {
	Name() string
	FetchAll(ctx context.Context, points []Point, onProgress ProgressFunc) ([]Record, error)
}

// Sink is the contract the dataset store must satisfy for the loader: it
// receives progress while a run is in flight and the final outcome.
type Sink interface {
	Begin(runID string)
	SetProgress(percent int)
	Replace(runID string, records []Record)
	Fail(runID string, err error)
}
