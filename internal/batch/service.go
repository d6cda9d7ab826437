package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/metrics"
	"github.com/Fantasim/p2pads/internal/models"
)

// Backend is the part of the trading backend the create page talks to.
type Backend interface {
	FetchFiatBalanceConfig(ctx context.Context) (*models.FiatBalanceConfig, error)
	CreateBatch(ctx context.Context, req models.BatchCreateRequest) ([]models.BatchResult, error)
	DeleteByRemark(ctx context.Context, req models.DeleteByRemarkRequest) ([]models.BatchResult, error)
}

// Recorder appends entries to the action journal.
type Recorder interface {
	RecordAction(ctx context.Context, rec models.ActionRecord) (models.ActionRecord, error)
}

// FormView is everything the create page needs to render a form.
type FormView struct {
	Config        *models.FiatBalanceConfig  `json:"config"`
	PaymentPeriod string                     `json:"payment_period"`
	BuyRanges     map[string]Range           `json:"buy_ranges"`
	SellRanges    map[string]Range           `json:"sell_ranges"`
	BuyQuantities map[string]decimal.Decimal `json:"buy_quantities"`
	FiatDefaults  map[string]AmountDefault   `json:"fiat_defaults"`
	Clamped       map[string]decimal.Decimal `json:"clamped,omitempty"`
	CanSubmit     bool                       `json:"can_submit"`
	Submitting    bool                       `json:"submitting"`
	Deleting      bool                       `json:"deleting"`
	ConfigError   string                     `json:"config_error,omitempty"`
}

// Service runs the create page: it caches the advertised form config and
// submits batches and marker deletions, one of each at a time.
type Service struct {
	backend Backend
	policy  *QuantityPolicy
	journal Recorder
	metrics *metrics.Client

	mu         sync.Mutex
	cfg        *models.FiatBalanceConfig
	cfgErr     error
	submitting bool
	deleting   bool
}

// NewService creates a Service. journal and m may be nil.
func NewService(backend Backend, policy *QuantityPolicy, journal Recorder, m *metrics.Client) *Service {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Service{
		backend: backend,
		policy:  policy,
		journal: journal,
		metrics: m,
	}
}

// Policy returns the quantity policy in use.
func (s *Service) Policy() *QuantityPolicy {
	return s.policy
}

// LoadConfig fetches the create-page options and caches them. A failure keeps
// the previously cached config.
func (s *Service) LoadConfig(ctx context.Context) (*models.FiatBalanceConfig, error) {
	cfg, err := s.backend.FetchFiatBalanceConfig(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.cfgErr = err
		slog.Error("fiat-balance config load failed", "error", err)
		return s.cfg, err
	}

	s.cfg = cfg
	s.cfgErr = nil
	slog.Info("fiat-balance config loaded",
		"accounts", len(cfg.Accounts),
		"tokens", len(cfg.Tokens),
		"fiats", len(cfg.Fiats),
	)
	return cfg, nil
}

// Describe renders the form state for f against the cached config.
func (s *Service) Describe(f Form) FormView {
	s.mu.Lock()
	cfg := s.cfg
	view := FormView{
		Config:        cfg,
		PaymentPeriod: s.policy.PaymentPeriod,
		Submitting:    s.submitting,
		Deleting:      s.deleting,
	}
	if s.cfgErr != nil {
		view.ConfigError = s.cfgErr.Error()
	}
	s.mu.Unlock()

	tokens := s.policy.TokenSymbols()
	var limits map[string][]models.FiatLimitTier
	var balances map[string]float64
	if cfg != nil {
		tokens = cfg.Tokens
		limits = cfg.Limits
		for _, acct := range cfg.Accounts {
			if acct.CredentialID == f.CredentialID {
				balances = acct.Balances
				break
			}
		}
	}

	view.BuyRanges = make(map[string]Range, len(tokens))
	view.SellRanges = make(map[string]Range, len(tokens))
	for _, token := range tokens {
		view.BuyRanges[token] = s.policy.BuyRange(token)
		view.SellRanges[token] = s.policy.SellRange(token, balances)
	}

	view.BuyQuantities = s.policy.InitBuyQuantities(f.Tokens, f.BuyQuantities)
	for token, qty := range view.BuyQuantities {
		if c, changed := s.policy.Clamp(token, qty); changed {
			if view.Clamped == nil {
				view.Clamped = make(map[string]decimal.Decimal)
			}
			view.Clamped[token] = c
		}
	}

	view.FiatDefaults = FiatDefaults(limits, f.Fiats)
	view.CanSubmit = f.Validate() == nil && !view.Submitting
	return view
}

// Submit builds and sends a create-batch request. A form without a remark
// uses the marker advertised by the backend.
func (s *Service) Submit(ctx context.Context, f Form) ([]models.BatchResult, error) {
	if f.Remark == "" {
		s.mu.Lock()
		if s.cfg != nil {
			f.Remark = s.cfg.RemarkMarker
		}
		s.mu.Unlock()
	}

	req, err := s.policy.Build(f)
	if err != nil {
		return nil, err
	}

	done, err := s.begin(&s.submitting)
	if err != nil {
		return nil, err
	}
	defer done()

	slog.Info("creating fiat-balance batch",
		"credentialID", req.CredentialID,
		"tokens", req.Tokens,
		"fiats", req.Fiats,
	)

	start := time.Now()
	results, err := s.backend.CreateBatch(ctx, req)
	elapsed := time.Since(start)

	rec := models.ActionRecord{
		Kind:         models.ActionBatchCreate,
		CredentialID: req.CredentialID,
		Detail:       fmt.Sprintf("tokens=%s fiats=%s results=%d", strings.Join(req.Tokens, ","), strings.Join(req.Fiats, ","), len(results)),
		DurationMs:   elapsed.Milliseconds(),
	}
	s.finish(ctx, rec, err, "create")
	if err != nil {
		return nil, err
	}

	slog.Info("fiat-balance batch created",
		"credentialID", req.CredentialID,
		"results", len(results),
		"failed", countFailed(results),
		"elapsed", elapsed.Round(time.Millisecond),
	)
	return results, nil
}

// DeleteByRemark deletes every ad of an account whose remark contains
// marker. An empty marker would match every ad, so it is refused before any
// request is made.
func (s *Service) DeleteByRemark(ctx context.Context, credentialID, marker string) ([]models.BatchResult, error) {
	if strings.TrimSpace(marker) == "" {
		return nil, config.ErrEmptyRemarkMarker
	}
	if strings.TrimSpace(credentialID) == "" {
		return nil, config.ErrNoAccountSelected
	}

	done, err := s.begin(&s.deleting)
	if err != nil {
		return nil, err
	}
	defer done()

	slog.Warn("deleting ads by remark marker", "credentialID", credentialID, "marker", marker)

	start := time.Now()
	results, err := s.backend.DeleteByRemark(ctx, models.DeleteByRemarkRequest{
		CredentialID: credentialID,
		Remark:       marker,
	})
	elapsed := time.Since(start)

	rec := models.ActionRecord{
		Kind:         models.ActionDeleteByRemark,
		CredentialID: credentialID,
		Detail:       fmt.Sprintf("marker=%q results=%d", marker, len(results)),
		DurationMs:   elapsed.Milliseconds(),
	}
	s.finish(ctx, rec, err, "delete")
	if err != nil {
		return nil, err
	}

	slog.Info("ads deleted by remark marker",
		"credentialID", credentialID,
		"results", len(results),
		"failed", countFailed(results),
	)
	return results, nil
}

// Busy reports whether a submit or delete is in flight.
func (s *Service) Busy() (submitting, deleting bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting, s.deleting
}

func (s *Service) begin(flag *bool) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *flag {
		return nil, config.ErrBusy
	}
	*flag = true
	return func() {
		s.mu.Lock()
		*flag = false
		s.mu.Unlock()
	}, nil
}

func (s *Service) finish(ctx context.Context, rec models.ActionRecord, err error, op string) {
	rec.Outcome = models.OutcomeOK
	if err != nil {
		rec.Outcome = models.OutcomeFailed
		rec.Error = err.Error()
		slog.Error("fiat-balance "+op+" failed", "credentialID", rec.CredentialID, "error", err)
	}
	s.metrics.Inc("batch", op, rec.Outcome)

	if s.journal == nil {
		return
	}
	if _, jerr := s.journal.RecordAction(context.WithoutCancel(ctx), rec); jerr != nil {
		slog.Warn("action journal write failed", "kind", rec.Kind, "error", jerr)
	}
}

func countFailed(results []models.BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Error != "" {
			n++
		}
	}
	return n
}
