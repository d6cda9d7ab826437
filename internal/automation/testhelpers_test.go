package automation

import (
	"context"
	"sync"

	"github.com/Fantasim/p2pads/internal/models"
)

// fakeFetcher returns queued results in order and repeats the last one.
type fakeFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
	modes   []models.ViewMode
}

type fetchResult struct {
	snap *models.AutomationSnapshot
	err  error
}

func (f *fakeFetcher) push(snap *models.AutomationSnapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, fetchResult{snap, err})
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, mode models.ViewMode) (*models.AutomationSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.modes = append(f.modes, mode)
	if len(f.results) == 0 {
		return &models.AutomationSnapshot{}, nil
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.snap, r.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func running(ads ...models.AutomationTelemetry) *models.AutomationSnapshot {
	return &models.AutomationSnapshot{Running: true, IntervalSeconds: 10, Ads: ads}
}

func stopped(ads ...models.AutomationTelemetry) *models.AutomationSnapshot {
	return &models.AutomationSnapshot{Running: false, IntervalSeconds: 10, Ads: ads}
}

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }
