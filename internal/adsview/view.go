// Package adsview is the ads page controller. It owns the in-memory account
// list, the two automation pollers and the operator's selection, and runs
// every page action with refresh-after-mutate semantics: after a change the
// page re-fetches instead of patching its state.
package adsview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Fantasim/p2pads/internal/adfilter"
	"github.com/Fantasim/p2pads/internal/automation"
	"github.com/Fantasim/p2pads/internal/bulk"
	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/metrics"
	"github.com/Fantasim/p2pads/internal/models"
)

// Backend is the trading backend as seen by the ads page.
type Backend interface {
	FetchAds(ctx context.Context) ([]models.Account, error)
	FetchStatus(ctx context.Context, mode models.ViewMode) (*models.AutomationSnapshot, error)
	StartAutomation(ctx context.Context, mode models.ViewMode, sides models.FiatAutomationStartRequest) error
	StopAutomation(ctx context.Context, mode models.ViewMode) error
	ToggleAuto(ctx context.Context, credentialID, adID string, enable bool) error
	SetOffline(ctx context.Context, credentialID, adID string) error
	Activate(ctx context.Context, credentialID, adID string) error
}

// Recorder appends entries to the action journal.
type Recorder interface {
	RecordAction(ctx context.Context, rec models.ActionRecord) (models.ActionRecord, error)
}

// Options configures a View. Zero values fall back to defaults.
type Options struct {
	PollInterval time.Duration
	ToggleRPS    float64
	Journal      Recorder
	Metrics      *metrics.Client
}

// View is the ads page state.
type View struct {
	backend      Backend
	pollers      map[models.ViewMode]*automation.Poller
	scheduler    *automation.Scheduler
	orchestrator *bulk.Orchestrator
	locks        *bulk.AccountLocks
	bulkSwitch   *bulk.Switch
	journal      Recorder
	metrics      *metrics.Client

	mu         sync.RWMutex
	accounts   []models.Account
	loaded     bool
	selected   string
	mode       models.ViewMode
	criteria   adfilter.Criteria
	adsErr     error
	adsIssued  uint64
	adsApplied uint64
	adBusy     string
	bulkBusy   bool
	autoBusy   map[models.ViewMode]bool
	fiatSides  models.FiatAutomationStartRequest
	closed     bool
}

// New creates a View in the standard mode with no account loaded.
func New(backend Backend, opts Options) *View {
	rps := opts.ToggleRPS
	if rps <= 0 {
		rps = config.DefaultToggleRPS
	}

	v := &View{
		backend:    backend,
		scheduler:  automation.NewScheduler(opts.PollInterval),
		locks:      bulk.NewAccountLocks(),
		bulkSwitch: bulk.NewSwitch(),
		journal:    opts.Journal,
		metrics:    opts.Metrics,
		mode:       models.ViewStandard,
		criteria:   adfilter.DefaultCriteria(),
		autoBusy:   make(map[models.ViewMode]bool, len(models.AllViewModes)),
		fiatSides:  models.FiatAutomationStartRequest{Sell: true, Buy: true},
	}

	v.pollers = make(map[models.ViewMode]*automation.Poller, len(models.AllViewModes))
	for _, mode := range models.AllViewModes {
		v.pollers[mode] = automation.NewPoller(mode, backend, opts.Metrics)
	}
	v.pollers[models.ViewFiatBalance].OnUpdate(v.syncFiatSides)

	v.orchestrator = bulk.NewOrchestrator(backend, bulk.NewPacer("toggle-auto", rps), opts.Metrics)
	return v
}

// Load fetches the ad list and both automation snapshots.
func (v *View) Load(ctx context.Context) error {
	slog.Info("loading ads page")
	return v.fetchConcurrently(ctx, models.AllViewModes...)
}

// Refresh re-fetches the ad list and the snapshot of the current mode
// concurrently. Each failure lands in its own error slot; the first one is
// returned.
func (v *View) Refresh(ctx context.Context) error {
	v.mu.RLock()
	mode := v.mode
	v.mu.RUnlock()

	slog.Debug("refreshing ads page", "mode", mode)
	return v.fetchConcurrently(ctx, mode)
}

func (v *View) fetchConcurrently(ctx context.Context, modes ...models.ViewMode) error {
	// No shared context: one failing fetch must not cancel the others.
	var g errgroup.Group
	g.Go(func() error {
		return v.fetchAds(ctx)
	})
	for _, mode := range modes {
		g.Go(func() error {
			return v.fetchStatus(ctx, mode)
		})
	}
	return g.Wait()
}

// refreshAfterMutate fetches the ad list, then the snapshot of the current
// mode. Errors are left in their slots; the ad list error is returned.
func (v *View) refreshAfterMutate(ctx context.Context) error {
	adsErr := v.fetchAds(ctx)

	v.mu.RLock()
	mode := v.mode
	v.mu.RUnlock()

	v.fetchStatus(ctx, mode)
	return adsErr
}

func (v *View) fetchAds(ctx context.Context) error {
	v.mu.Lock()
	v.adsIssued++
	seq := v.adsIssued
	v.adsErr = nil
	v.mu.Unlock()

	start := time.Now()
	accounts, err := v.backend.FetchAds(ctx)
	elapsed := time.Since(start)

	v.mu.Lock()
	if seq < v.adsApplied {
		v.mu.Unlock()
		slog.Debug("discarding stale ad list", "seq", seq)
		return nil
	}
	if err != nil {
		v.adsErr = err
		v.mu.Unlock()
		slog.Error("ad list fetch failed", "error", err, "elapsed", elapsed.Round(time.Millisecond))
		return err
	}

	v.accounts = accounts
	v.loaded = true
	v.adsApplied = seq
	prev := v.selected
	sel := pickSelection(accounts, prev)
	v.selected = sel
	v.mu.Unlock()

	slog.Info("ad list fetched",
		"accounts", len(accounts),
		"selected", sel,
		"elapsed", elapsed.Round(time.Millisecond),
	)

	if sel != prev {
		slog.Info("selected account changed after refresh", "from", prev, "to", sel)
		v.bulkSwitch.Clear()
		v.syncScheduler()
	}
	return nil
}

// pickSelection keeps prev when it is still listed, otherwise falls back to
// the first account. An empty list means no selection.
func pickSelection(accounts []models.Account, prev string) string {
	if len(accounts) == 0 {
		return ""
	}
	for _, a := range accounts {
		if a.CredentialID == prev {
			return prev
		}
	}
	return accounts[0].CredentialID
}

func (v *View) fetchStatus(ctx context.Context, mode models.ViewMode) error {
	p, ok := v.pollers[mode]
	if !ok {
		return fmt.Errorf("%w: %q", config.ErrInvalidViewMode, mode)
	}
	_, err := p.Poll(ctx)
	v.syncScheduler()
	return err
}

// syncScheduler points the recurring poll at the current mode and account.
func (v *View) syncScheduler() {
	v.mu.RLock()
	key := automation.Key{Mode: v.mode, CredentialID: v.selected}
	closed := v.closed
	v.mu.RUnlock()

	if closed {
		return
	}
	v.scheduler.Sync(key, v.pollers[key.Mode])
}

func (v *View) syncFiatSides(snap *automation.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if snap.SellEnabled != nil {
		v.fiatSides.Sell = *snap.SellEnabled
	}
	if snap.BuyEnabled != nil {
		v.fiatSides.Buy = *snap.BuyEnabled
	}
}

// SelectAccount switches the page to another loaded account.
func (v *View) SelectAccount(credentialID string) error {
	v.mu.Lock()
	found := false
	for _, a := range v.accounts {
		if a.CredentialID == credentialID {
			found = true
			break
		}
	}
	if !found {
		v.mu.Unlock()
		return fmt.Errorf("%w: %q", config.ErrAccountNotFound, credentialID)
	}
	changed := v.selected != credentialID
	v.selected = credentialID
	v.mu.Unlock()

	if changed {
		slog.Info("account selected", "credentialID", credentialID)
		v.bulkSwitch.Clear()
		v.syncScheduler()
	}
	return nil
}

// SetViewMode switches between the standard and fiat-balance views and
// fetches the new mode's snapshot.
func (v *View) SetViewMode(ctx context.Context, mode models.ViewMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", config.ErrInvalidViewMode, mode)
	}

	v.mu.Lock()
	changed := v.mode != mode
	v.mode = mode
	v.mu.Unlock()

	if !changed {
		return nil
	}

	slog.Info("view mode changed", "mode", mode)
	v.bulkSwitch.Clear()
	v.syncScheduler()
	return v.fetchStatus(ctx, mode)
}

// SetFilters replaces the filter criteria.
func (v *View) SetFilters(c adfilter.Criteria) error {
	c, err := c.Normalize()
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.criteria = c
	v.mu.Unlock()

	slog.Debug("filters updated", "token", c.Token, "currency", c.Currency, "status", c.Status)
	return nil
}

// ClearError empties the page error slot.
func (v *View) ClearError() {
	v.mu.Lock()
	v.adsErr = nil
	v.mu.Unlock()
}

// Close stops background polling. The View must not be used afterwards.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()

	v.scheduler.Stop()
}
