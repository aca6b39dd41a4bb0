package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tempmap/tempmap/internal/store"
	"github.com/tempmap/tempmap/internal/weather"
)

// fakeSource counts fetch runs and remembers the context state it was called
// with.
type fakeSource struct {
	mu         sync.Mutex
	calls      int
	lastCtxErr error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchAll(ctx context.Context, points []weather.Point, _ weather.ProgressFunc) ([]weather.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastCtxErr = ctx.Err()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []weather.Record{{Point: points[0], Temps: []float64{70}}}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLoader(src *fakeSource) *weather.Loader {
	return weather.NewLoader(src, store.New(), []weather.Point{weather.NewPoint(30, -90)})
}

func TestStartDoesNotRunRefreshImmediately(t *testing.T) {
	src := &fakeSource{}
	s := New(testLoader(src), time.Hour)

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	// The first refresh must wait a full interval; the initial load at
	// startup is the caller's, and an immediate run would fetch the whole
	// grid twice concurrently.
	time.Sleep(100 * time.Millisecond)
	if n := src.callCount(); n != 0 {
		t.Fatalf("refresh ran %d times right after Start, want 0", n)
	}
}

func TestStartWithNonPositiveIntervalSchedulesNothing(t *testing.T) {
	src := &fakeSource{}
	s := New(testLoader(src), 0)

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if n := src.callCount(); n != 0 {
		t.Fatalf("refresh ran %d times with refresh disabled, want 0", n)
	}
}

func TestRefreshDerivesContextFromStart(t *testing.T) {
	src := &fakeSource{}
	s := New(testLoader(src), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	cancel()
	s.refresh()

	src.mu.Lock()
	defer src.mu.Unlock()
	if src.calls != 1 {
		t.Fatalf("refresh made %d fetch runs, want 1", src.calls)
	}
	if src.lastCtxErr == nil {
		t.Fatal("refresh after shutdown ran with a live context; want it cancelled")
	}
}
