// Package bulk applies one automation toggle to many ads of an account.
package bulk

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Fantasim/p2pads/internal/metrics"
	"github.com/Fantasim/p2pads/internal/models"
	"github.com/Fantasim/p2pads/internal/remark"
)

// Toggler flips automation on a single ad.
type Toggler interface {
	ToggleAuto(ctx context.Context, credentialID, adID string, enable bool) error
}

// RefreshFunc reloads ads and the automation snapshot after a batch.
type RefreshFunc func(ctx context.Context) error

// Outcome describes a finished batch. Applied lists the ads toggled before
// the batch stopped; FailedAdID and Err are set when it stopped early.
type Outcome struct {
	BatchID      string        `json:"batchId,omitempty"`
	CredentialID string        `json:"credentialId"`
	Enable       bool          `json:"enable"`
	Targets      []string      `json:"targets"`
	Applied      []string      `json:"applied"`
	FailedAdID   string        `json:"failedAdId,omitempty"`
	Skipped      bool          `json:"skipped"`
	ElapsedMs    int64         `json:"elapsedMs"`
	Elapsed      time.Duration `json:"-"`
	Err          error         `json:"-"`
	RefreshErr   error         `json:"-"`
}

// Aborted reports whether the batch stopped at a failing ad.
func (o Outcome) Aborted() bool {
	return o.Err != nil
}

// SelectTargets picks the ads a bulk toggle acts on. Enabling resumes paused
// ads; disabling pauses running ones. Ads without the auto marker are never
// selected, so a batch never turns a manual ad into an automated one.
func SelectTargets(ads []models.Ad, enable bool) []models.Ad {
	want := remark.Auto
	if enable {
		want = remark.Paused
	}
	var out []models.Ad
	for _, ad := range ads {
		if remark.ModeOf(ad.Remark) == want {
			out = append(out, ad)
		}
	}
	return out
}

// AllAuto reports whether every ad is automated and not paused. An empty
// list is never "all auto".
func AllAuto(ads []models.Ad) bool {
	if len(ads) == 0 {
		return false
	}
	for _, ad := range ads {
		if remark.ModeOf(ad.Remark) != remark.Auto {
			return false
		}
	}
	return true
}

// Orchestrator runs toggle batches one request at a time.
type Orchestrator struct {
	toggler Toggler
	pacer   *Pacer
	metrics *metrics.Client
}

// NewOrchestrator creates an Orchestrator. pacer and m may be nil.
func NewOrchestrator(toggler Toggler, pacer *Pacer, m *metrics.Client) *Orchestrator {
	return &Orchestrator{
		toggler: toggler,
		pacer:   pacer,
		metrics: m,
	}
}

// Run toggles every target in order, waiting for each request before
// sending the next. The first failure stops the batch; ads already toggled
// stay toggled. refresh runs after the loop whether or not the batch failed,
// and is skipped along with everything else when targets is empty.
func (o *Orchestrator) Run(ctx context.Context, credentialID string, enable bool, targets []models.Ad, refresh RefreshFunc) Outcome {
	out := Outcome{
		CredentialID: credentialID,
		Enable:       enable,
		Targets:      make([]string, 0, len(targets)),
		Applied:      []string{},
	}
	for _, ad := range targets {
		out.Targets = append(out.Targets, ad.AdID)
	}

	if len(targets) == 0 {
		out.Skipped = true
		slog.Info("bulk toggle skipped, no eligible ads",
			"credentialID", credentialID,
			"enable", enable,
		)
		return out
	}

	out.BatchID = uuid.New().String()
	start := time.Now()

	slog.Info("bulk toggle started",
		"batchID", out.BatchID,
		"credentialID", credentialID,
		"enable", enable,
		"targets", len(targets),
	)

	for i, ad := range targets {
		if err := o.pacer.Wait(ctx); err != nil {
			out.FailedAdID = ad.AdID
			out.Err = err
			break
		}

		if err := o.toggler.ToggleAuto(ctx, credentialID, ad.AdID, enable); err != nil {
			out.FailedAdID = ad.AdID
			out.Err = err
			slog.Error("bulk toggle aborted",
				"batchID", out.BatchID,
				"adID", ad.AdID,
				"applied", len(out.Applied),
				"remaining", len(targets)-i-1,
				"error", err,
			)
			break
		}

		out.Applied = append(out.Applied, ad.AdID)
		slog.Debug("bulk toggle applied",
			"batchID", out.BatchID,
			"adID", ad.AdID,
			"progress", len(out.Applied),
			"total", len(targets),
		)
	}

	if refresh != nil {
		// The batch may have been cut short by cancellation; the refresh
		// still has to run so the page reflects what was applied.
		if err := refresh(context.WithoutCancel(ctx)); err != nil {
			out.RefreshErr = err
			slog.Warn("refresh after bulk toggle failed",
				"batchID", out.BatchID,
				"error", err,
			)
		}
	}

	out.Elapsed = time.Since(start)
	out.ElapsedMs = out.Elapsed.Milliseconds()

	result := "ok"
	if out.Aborted() {
		result = "aborted"
	}
	o.metrics.Inc("bulk", "toggle", result)
	o.metrics.Timing(out.Elapsed, "bulk", "toggle")

	slog.Info("bulk toggle finished",
		"batchID", out.BatchID,
		"result", result,
		"applied", len(out.Applied),
		"targets", len(targets),
		"elapsed", out.Elapsed.Round(time.Millisecond),
	)

	return out
}
