// Package automation tracks the backend's automation processes: it polls
// their status snapshots and resolves the per-ad automation view shown on
// the ads page.
package automation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Fantasim/p2pads/internal/metrics"
	"github.com/Fantasim/p2pads/internal/models"
)

// StatusFetcher fetches one automation snapshot.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, mode models.ViewMode) (*models.AutomationSnapshot, error)
}

// Snapshot is a server snapshot indexed by ad id.
type Snapshot struct {
	models.AutomationSnapshot
	FetchedAt time.Time

	byAd map[string]models.AutomationTelemetry
}

// NewSnapshot indexes a server snapshot. A later entry for the same ad id wins.
func NewSnapshot(s *models.AutomationSnapshot, fetchedAt time.Time) *Snapshot {
	snap := &Snapshot{
		AutomationSnapshot: *s,
		FetchedAt:          fetchedAt,
		byAd:               make(map[string]models.AutomationTelemetry, len(s.Ads)),
	}
	for _, t := range s.Ads {
		snap.byAd[t.AdID] = t
	}
	return snap
}

// Telemetry returns the snapshot entry for an ad. Safe on a nil snapshot.
func (s *Snapshot) Telemetry(adID string) (models.AutomationTelemetry, bool) {
	if s == nil {
		return models.AutomationTelemetry{}, false
	}
	t, ok := s.byAd[adID]
	return t, ok
}

// IsRunning reports the snapshot's running flag. A nil snapshot is not running.
func (s *Snapshot) IsRunning() bool {
	return s != nil && s.Running
}

// Poller owns the latest snapshot and the last poll error for one mode.
// A failed poll never clears the snapshot.
type Poller struct {
	mode    models.ViewMode
	fetcher StatusFetcher
	metrics *metrics.Client

	mu       sync.RWMutex
	snapshot *Snapshot
	lastErr  error
	issued   uint64 // sequence of the most recently issued fetch
	applied  uint64 // sequence of the fetch whose result is in snapshot
	onUpdate func(*Snapshot)
}

// NewPoller creates a Poller for a mode. m may be nil.
func NewPoller(mode models.ViewMode, fetcher StatusFetcher, m *metrics.Client) *Poller {
	return &Poller{
		mode:    mode,
		fetcher: fetcher,
		metrics: m,
	}
}

// OnUpdate registers fn to run after every applied snapshot. fn runs on the
// polling goroutine and must not call back into Poll.
func (p *Poller) OnUpdate(fn func(*Snapshot)) {
	p.mu.Lock()
	p.onUpdate = fn
	p.mu.Unlock()
}

// Mode returns the automation mode this poller tracks.
func (p *Poller) Mode() models.ViewMode {
	return p.mode
}

// Poll fetches one snapshot. On success the stored snapshot is replaced
// wholesale and the error slot cleared; on failure the error slot is set and
// the previous snapshot kept. A response older than one already applied is
// discarded. Cancellation is not recorded as a failure.
func (p *Poller) Poll(ctx context.Context) (*Snapshot, error) {
	p.mu.Lock()
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	start := time.Now()
	raw, err := p.fetcher.FetchStatus(ctx, p.mode)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			slog.Debug("automation status poll cancelled", "mode", p.mode)
			return nil, err
		}
		p.mu.Lock()
		if seq > p.applied {
			p.lastErr = err
		}
		p.mu.Unlock()

		p.metrics.Inc("automation", "poll", "failed", string(p.mode))
		slog.Warn("automation status poll failed",
			"mode", p.mode,
			"error", err,
			"elapsed", elapsed.Round(time.Millisecond),
		)
		return nil, err
	}

	snap := NewSnapshot(raw, time.Now())

	p.mu.Lock()
	if seq < p.applied {
		p.mu.Unlock()
		slog.Debug("discarding stale automation snapshot", "mode", p.mode, "seq", seq)
		return p.Snapshot(), nil
	}
	p.snapshot = snap
	p.applied = seq
	p.lastErr = nil
	onUpdate := p.onUpdate
	p.mu.Unlock()

	if onUpdate != nil {
		onUpdate(snap)
	}

	p.metrics.Inc("automation", "poll", "ok", string(p.mode))
	p.metrics.Timing(elapsed, "automation", "poll", string(p.mode))
	slog.Debug("automation status polled",
		"mode", p.mode,
		"running", snap.Running,
		"ads", len(snap.Ads),
		"elapsed", elapsed.Round(time.Millisecond),
	)
	return snap, nil
}

// Snapshot returns the last good snapshot, or nil if none was fetched yet.
func (p *Poller) Snapshot() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// LastError returns the error of the most recent failed poll, cleared by the
// next successful one.
func (p *Poller) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// SetError stores an error in the poller's error slot. Used by controllers
// that report start/stop failures next to the status they affect.
func (p *Poller) SetError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

// ClearError empties the error slot without touching the snapshot.
func (p *Poller) ClearError() {
	p.SetError(nil)
}

// Running reports whether the last good snapshot says the process is running.
func (p *Poller) Running() bool {
	return p.Snapshot().IsRunning()
}
