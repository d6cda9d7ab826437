package adsview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/p2pads/internal/adfilter"
	"github.com/Fantasim/p2pads/internal/bulk"
	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/models"
	"github.com/Fantasim/p2pads/internal/remark"
)

// ToggleAd flips automation on one ad: an Auto ad is disabled, a Manual or
// Paused ad is enabled.
func (v *View) ToggleAd(ctx context.Context, adID string) error {
	return v.runAdAction(ctx, models.ActionToggleAuto, adID, func(ctx context.Context, credentialID string, ad models.Ad) (string, error) {
		enable := remark.ModeOf(ad.Remark) != remark.Auto
		return fmt.Sprintf("enable=%t", enable), v.backend.ToggleAuto(ctx, credentialID, ad.AdID, enable)
	})
}

// SetAdOffline takes an ad offline.
func (v *View) SetAdOffline(ctx context.Context, adID string) error {
	return v.runAdAction(ctx, models.ActionOffline, adID, func(ctx context.Context, credentialID string, ad models.Ad) (string, error) {
		return "", v.backend.SetOffline(ctx, credentialID, ad.AdID)
	})
}

// ActivateAd brings an ad back online.
func (v *View) ActivateAd(ctx context.Context, adID string) error {
	return v.runAdAction(ctx, models.ActionActivate, adID, func(ctx context.Context, credentialID string, ad models.Ad) (string, error) {
		return "", v.backend.Activate(ctx, credentialID, ad.AdID)
	})
}

type adCall func(ctx context.Context, credentialID string, ad models.Ad) (detail string, err error)

// runAdAction runs a single-ad action on the selected account. Only one ad
// action runs at a time, and it holds the account's toggle lock so it cannot
// interleave with a bulk batch.
func (v *View) runAdAction(ctx context.Context, kind, adID string, call adCall) error {
	credentialID, ad, err := v.findAd(adID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.adBusy != "" {
		busy := v.adBusy
		v.mu.Unlock()
		return fmt.Errorf("%w: ad %s", config.ErrBusy, busy)
	}
	release, err := v.locks.TryAcquire(credentialID, kind+":"+adID)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	v.adBusy = adID
	v.adsErr = nil
	v.mu.Unlock()

	defer func() {
		release()
		v.mu.Lock()
		v.adBusy = ""
		v.mu.Unlock()
	}()

	slog.Info("ad action started", "kind", kind, "credentialID", credentialID, "adID", adID)

	start := time.Now()
	detail, err := call(ctx, credentialID, ad)
	elapsed := time.Since(start)

	v.record(ctx, models.ActionRecord{
		Kind:         kind,
		CredentialID: credentialID,
		AdID:         adID,
		Detail:       detail,
		DurationMs:   elapsed.Milliseconds(),
	}, err)

	if err != nil {
		v.mu.Lock()
		v.adsErr = err
		v.mu.Unlock()
		slog.Error("ad action failed", "kind", kind, "adID", adID, "error", err)
		return err
	}

	slog.Info("ad action completed",
		"kind", kind,
		"adID", adID,
		"elapsed", elapsed.Round(time.Millisecond),
	)
	v.refreshAfterMutate(ctx)
	return nil
}

// findAd looks adID up in the selected account, in both ad sets.
func (v *View) findAd(adID string) (string, models.Ad, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	account, ok := v.selectedAccountLocked()
	if !ok {
		return "", models.Ad{}, config.ErrNoAccount
	}
	for _, set := range [][]models.Ad{account.Ads, account.FiatBalanceAds} {
		for _, ad := range set {
			if ad.AdID == adID {
				return account.CredentialID, ad, nil
			}
		}
	}
	return "", models.Ad{}, fmt.Errorf("%w: %q", config.ErrAdNotFound, adID)
}

func (v *View) selectedAccountLocked() (models.Account, bool) {
	if v.selected == "" {
		return models.Account{}, false
	}
	for _, a := range v.accounts {
		if a.CredentialID == v.selected {
			return a, true
		}
	}
	return models.Account{}, false
}

// filteredLocked returns the ads currently shown on the page.
func (v *View) filteredLocked() []models.Ad {
	account, ok := v.selectedAccountLocked()
	if !ok {
		return nil
	}
	return adfilter.Apply(adfilter.BaseAds(account, v.mode), v.criteria)
}

// BulkToggle applies enable to the filtered ads of the selected account.
// Only the standard view supports it. With no eligible ads nothing is sent
// and no busy state is entered.
func (v *View) BulkToggle(ctx context.Context, enable bool) (bulk.Outcome, error) {
	v.mu.Lock()
	if v.mode != models.ViewStandard {
		v.mu.Unlock()
		return bulk.Outcome{}, config.ErrBulkUnavailable
	}
	account, ok := v.selectedAccountLocked()
	if !ok {
		v.mu.Unlock()
		return bulk.Outcome{}, config.ErrNoAccount
	}
	if v.bulkBusy {
		v.mu.Unlock()
		return bulk.Outcome{}, fmt.Errorf("%w: bulk toggle", config.ErrBusy)
	}

	targets := bulk.SelectTargets(v.filteredLocked(), enable)
	if len(targets) == 0 {
		v.mu.Unlock()
		return v.orchestrator.Run(ctx, account.CredentialID, enable, nil, nil), nil
	}

	release, err := v.locks.TryAcquire(account.CredentialID, "bulk")
	if err != nil {
		v.mu.Unlock()
		return bulk.Outcome{}, err
	}
	v.bulkBusy = true
	v.adsErr = nil
	v.mu.Unlock()

	defer func() {
		release()
		v.mu.Lock()
		v.bulkBusy = false
		v.mu.Unlock()
	}()

	if err := v.bulkSwitch.Begin(enable); err != nil {
		slog.Warn("bulk switch did not enter optimistic state", "error", err)
	}

	out := v.orchestrator.Run(ctx, account.CredentialID, enable, targets, v.refreshAfterMutate)

	// The refresh has completed inside Run; the switch can show real data.
	v.bulkSwitch.Settle()

	outcome := models.OutcomeOK
	if out.Aborted() {
		outcome = models.OutcomeAborted
		v.mu.Lock()
		v.adsErr = out.Err
		v.mu.Unlock()
	}
	v.record(ctx, models.ActionRecord{
		BatchID:      out.BatchID,
		Kind:         models.ActionBulkToggle,
		CredentialID: account.CredentialID,
		AdID:         out.FailedAdID,
		Detail:       fmt.Sprintf("enable=%t applied=%d/%d", enable, len(out.Applied), len(out.Targets)),
		Outcome:      outcome,
		DurationMs:   out.ElapsedMs,
	}, out.Err)

	return out, out.Err
}

// ToggleAutomation starts the current mode's automation process when it is
// stopped and stops it when it is running, then re-fetches its status.
// Failures go to that mode's status error slot.
func (v *View) ToggleAutomation(ctx context.Context) error {
	v.mu.Lock()
	mode := v.mode
	if v.autoBusy[mode] {
		v.mu.Unlock()
		return fmt.Errorf("%w: %s automation", config.ErrBusy, mode)
	}
	v.autoBusy[mode] = true
	sides := v.fiatSides
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.autoBusy[mode] = false
		v.mu.Unlock()
	}()

	p := v.pollers[mode]
	p.ClearError()

	running := p.Running()
	kind := models.ActionAutomationStart
	detail := "mode=" + string(mode)
	if running {
		kind = models.ActionAutomationStop
	} else if mode == models.ViewFiatBalance {
		detail += fmt.Sprintf(" sell=%t buy=%t", sides.Sell, sides.Buy)
	}

	slog.Info("automation toggle", "mode", mode, "action", kind, "running", running)

	start := time.Now()
	var err error
	if running {
		err = v.backend.StopAutomation(ctx, mode)
	} else {
		err = v.backend.StartAutomation(ctx, mode, sides)
	}
	v.record(ctx, models.ActionRecord{
		Kind:       kind,
		Detail:     detail,
		DurationMs: time.Since(start).Milliseconds(),
	}, err)

	if err != nil {
		p.SetError(err)
		slog.Error("automation toggle failed", "mode", mode, "action", kind, "error", err)
		return err
	}

	return v.fetchStatus(ctx, mode)
}

// SetFiatSides chooses which sides the fiat-balance process prices on its
// next start. The sides cannot change while the process runs.
func (v *View) SetFiatSides(sell, buy bool) error {
	if v.pollers[models.ViewFiatBalance].Running() {
		return config.ErrAutomationOn
	}

	v.mu.Lock()
	v.fiatSides = models.FiatAutomationStartRequest{Sell: sell, Buy: buy}
	v.mu.Unlock()

	slog.Info("fiat-balance sides updated", "sell", sell, "buy", buy)
	return nil
}

// record journals an action and counts it. Journal failures are logged and
// never fail the action itself.
func (v *View) record(ctx context.Context, rec models.ActionRecord, err error) {
	if rec.Outcome == "" {
		rec.Outcome = models.OutcomeOK
		if err != nil {
			rec.Outcome = models.OutcomeFailed
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}

	v.metrics.Inc("action", rec.Kind, rec.Outcome)
	v.metrics.Timing(time.Duration(rec.DurationMs)*time.Millisecond, "action", rec.Kind)

	if v.journal == nil {
		return
	}
	if _, jerr := v.journal.RecordAction(context.WithoutCancel(ctx), rec); jerr != nil {
		slog.Warn("action journal write failed", "kind", rec.Kind, "error", jerr)
	}
}
