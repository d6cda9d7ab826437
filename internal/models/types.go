package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ViewMode selects which automation mode the ads page shows.
type ViewMode string

const (
	ViewStandard    ViewMode = "all"
	ViewFiatBalance ViewMode = "fiat-balance"
)

// AllViewModes is the ordered list of supported view modes.
var AllViewModes = []ViewMode{ViewStandard, ViewFiatBalance}

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ViewStandard || m == ViewFiatBalance
}

// PaymentTypeID is a payment type identifier as reported by the backend.
// The backend emits integers, but identifiers occasionally arrive as strings.
type PaymentTypeID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (p *PaymentTypeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PaymentTypeID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("payment type id: %w", err)
	}
	*p = PaymentTypeID(n.String())
	return nil
}

// MarshalJSON emits numeric identifiers as numbers and anything else as a string.
func (p PaymentTypeID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(p), 10, 64); err == nil {
		return []byte(p), nil
	}
	return json.Marshal(string(p))
}

// Is reports whether the identifier equals the numeric id.
func (p PaymentTypeID) Is(id int) bool {
	return string(p) == strconv.Itoa(id)
}

// Ad is a single advertisement as returned by GET /api/ads.
type Ad struct {
	AdID           string          `json:"ad_id"`
	Side           string          `json:"side"`
	Token          string          `json:"token,omitempty"`
	FiatCurrency   string          `json:"fiat_currency,omitempty"`
	Price          *float64        `json:"price,omitempty"`
	CryptoAmount   *float64        `json:"crypto_amount,omitempty"`
	FiatAmount     *float64        `json:"fiat_amount,omitempty"`
	Fee            *float64        `json:"fee,omitempty"`
	MinAmount      *float64        `json:"min_amount,omitempty"`
	MaxAmount      *float64        `json:"max_amount,omitempty"`
	StatusCode     *int            `json:"status_code,omitempty"`
	StatusLabel    string          `json:"status_label,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
	PaymentMethods []string        `json:"payment_methods"`
	Remark         string          `json:"remark,omitempty"`
	PaymentTypeIDs []PaymentTypeID `json:"payment_type_ids"`
}

// Account is one trading credential with its ads, as returned by GET /api/ads.
type Account struct {
	CredentialID   string             `json:"credential_id"`
	AccountLabel   string             `json:"account_label,omitempty"`
	Exchange       string             `json:"exchange"`
	Ads            []Ad               `json:"ads"`
	FiatBalanceAds []Ad               `json:"fiat_balance_ads"`
	Error          string             `json:"error,omitempty"`
	Balances       map[string]float64 `json:"balances,omitempty"`
}

// Label returns the account label, falling back to the credential id.
func (a Account) Label() string {
	if a.AccountLabel != "" {
		return a.AccountLabel
	}
	return a.CredentialID
}

// AdsResponse is the body of GET /api/ads.
type AdsResponse struct {
	Accounts []Account `json:"accounts"`
}

// PriceGroup is one competitor price band.
type PriceGroup struct {
	MinPrice        *float64 `json:"min_price"`
	MaxPrice        *float64 `json:"max_price"`
	CompetitorCount int      `json:"competitor_count"`
}

// AutomationTelemetry is the per-ad entry of an automation snapshot.
type AutomationTelemetry struct {
	AdID                 string       `json:"ad_id"`
	Token                string       `json:"token,omitempty"`
	FiatCurrency         string       `json:"fiat_currency,omitempty"`
	Side                 string       `json:"side,omitempty"`
	Price                *float64     `json:"price,omitempty"`
	IsAutoEnabled        bool         `json:"is_auto_enabled"`
	IsAutoPaused         bool         `json:"is_auto_paused"`
	CompetitorGroups     []PriceGroup `json:"competitor_groups"`
	CompetitorGroupsFull []PriceGroup `json:"competitor_groups_full"`
	SpotSymbol           *string      `json:"spot_symbol,omitempty"`
	SpotBid              *float64     `json:"spot_bid,omitempty"`
	SpotAsk              *float64     `json:"spot_ask,omitempty"`
	TargetPrice          *float64     `json:"target_price,omitempty"`
	GuardrailPrice       *float64     `json:"guardrail_price,omitempty"`
	AvailableBalance     *float64     `json:"available_balance,omitempty"`
	SuggestedBuyQty      *float64     `json:"suggested_buy_qty,omitempty"`
}

// AutomationSnapshot is the body of GET /api/auto-pricing/status and
// GET /api/fiat-balance-auto-pricing/status.
type AutomationSnapshot struct {
	Running         bool                  `json:"running"`
	IntervalSeconds int                   `json:"interval_seconds"`
	LastRunAt       string                `json:"last_run_at,omitempty"`
	LastSuccessAt   string                `json:"last_success_at,omitempty"`
	LastError       string                `json:"last_error,omitempty"`
	Ads             []AutomationTelemetry `json:"ads"`
	SellEnabled     *bool                 `json:"sell_enabled,omitempty"`
	BuyEnabled      *bool                 `json:"buy_enabled,omitempty"`
}

// AutomationView is the derived per-ad automation state shown on an ad card.
type AutomationView struct {
	IsAutoEnabled    bool         `json:"is_auto_enabled"`
	IsAutoPaused     bool         `json:"is_auto_paused"`
	Groups           []PriceGroup `json:"groups"`
	SpotSymbol       *string      `json:"spot_symbol,omitempty"`
	SpotBid          *float64     `json:"spot_bid,omitempty"`
	SpotAsk          *float64     `json:"spot_ask,omitempty"`
	TargetPrice      *float64     `json:"target_price,omitempty"`
	GuardrailPrice   *float64     `json:"guardrail_price,omitempty"`
	AvailableBalance *float64     `json:"available_balance,omitempty"`
	SuggestedBuyQty  *float64     `json:"suggested_buy_qty,omitempty"`
}

// ToggleAutoRequest is the body of POST /api/ads/toggle-auto.
type ToggleAutoRequest struct {
	CredentialID string `json:"credential_id"`
	AdID         string `json:"ad_id"`
	Enable       bool   `json:"enable"`
}

// AdActionRequest is the body of POST /api/ads/offline and /api/ads/activate.
type AdActionRequest struct {
	CredentialID string `json:"credential_id"`
	AdID         string `json:"ad_id"`
}

// FiatAutomationStartRequest is the body of POST /api/fiat-balance-auto-pricing/start.
type FiatAutomationStartRequest struct {
	Sell bool `json:"sell"`
	Buy  bool `json:"buy"`
}

// FiatLimitTier is one amount tier of a fiat currency. Values are decimal strings.
type FiatLimitTier struct {
	MinAmount *string `json:"minAmount"`
	MaxAmount *string `json:"maxAmount"`
}

// FiatBalanceAccount is an account eligible for fiat-balance ads.
type FiatBalanceAccount struct {
	CredentialID string             `json:"credential_id"`
	AccountLabel string             `json:"account_label,omitempty"`
	Exchange     string             `json:"exchange"`
	Balances     map[string]float64 `json:"balances"`
}

// FiatBalanceConfig is the body of GET /api/fiat-balance/config.
type FiatBalanceConfig struct {
	Tokens          []string                   `json:"tokens"`
	Fiats           []string                   `json:"fiats"`
	Limits          map[string][]FiatLimitTier `json:"limits"`
	Accounts        []FiatBalanceAccount       `json:"accounts"`
	PaymentMethodID string                     `json:"payment_method_id"`
	RemarkMarker    string                     `json:"remark_marker"`
}

// BatchCreateRequest is the body of POST /api/fiat-balance/create-batch.
type BatchCreateRequest struct {
	CredentialID    string             `json:"credential_id"`
	Tokens          []string           `json:"tokens"`
	Fiats           []string           `json:"fiats"`
	BuyQuantityMap  map[string]float64 `json:"buyQuantityMap"`
	SellQuantityMap map[string]float64 `json:"sellQuantityMap"`
	PaymentPeriod   string             `json:"paymentPeriod"`
	Remark          string             `json:"remark"`
	MinAmountMap    map[string]float64 `json:"minAmountMap"`
	MaxAmountMap    map[string]float64 `json:"maxAmountMap"`
}

// DeleteByRemarkRequest is the body of POST /api/fiat-balance/delete-by-remark.
type DeleteByRemarkRequest struct {
	CredentialID string `json:"credential_id"`
	Remark       string `json:"remark"`
}

// BatchResult is one per-ad outcome reported by create-batch or delete-by-remark.
type BatchResult struct {
	Token  string   `json:"token,omitempty"`
	Fiat   string   `json:"fiat,omitempty"`
	Side   string   `json:"side,omitempty"`
	AdID   string   `json:"ad_id,omitempty"`
	Price  *float64 `json:"price,omitempty"`
	Qty    *float64 `json:"qty,omitempty"`
	Status string   `json:"status,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// PendingOrder is one open order as returned by GET /api/orders/pending.
type PendingOrder struct {
	OrderID              string   `json:"order_id"`
	Side                 string   `json:"side"`
	Token                string   `json:"token,omitempty"`
	StatusCode           *int     `json:"status_code,omitempty"`
	StatusLabel          string   `json:"status_label,omitempty"`
	FiatCurrency         string   `json:"fiat_currency,omitempty"`
	FiatAmount           *float64 `json:"fiat_amount,omitempty"`
	Price                *float64 `json:"price,omitempty"`
	CryptoAmount         *float64 `json:"crypto_amount,omitempty"`
	CounterpartyName     string   `json:"counterparty_name,omitempty"`
	CounterpartyNickname string   `json:"counterparty_nickname,omitempty"`
	CreatedAt            string   `json:"created_at,omitempty"`
}

// AccountPendingOrders groups pending orders by account.
type AccountPendingOrders struct {
	CredentialID string         `json:"credential_id"`
	AccountLabel string         `json:"account_label,omitempty"`
	Exchange     string         `json:"exchange"`
	Orders       []PendingOrder `json:"orders"`
	Error        string         `json:"error,omitempty"`
}

// PendingOrdersResponse is the body of GET /api/orders/pending.
type PendingOrdersResponse struct {
	Accounts []AccountPendingOrders `json:"accounts"`
}

// ActionRecord is one entry of the local action journal.
type ActionRecord struct {
	ID           string `json:"id"`
	BatchID      string `json:"batchId,omitempty"`
	Kind         string `json:"kind"`
	CredentialID string `json:"credentialId,omitempty"`
	AdID         string `json:"adId,omitempty"`
	Detail       string `json:"detail,omitempty"`
	Outcome      string `json:"outcome"`
	Error        string `json:"error,omitempty"`
	DurationMs   int64  `json:"durationMs"`
	CreatedAt    string `json:"createdAt"`
}

// Action kinds recorded in the journal.
const (
	ActionToggleAuto      = "toggle_auto"
	ActionOffline         = "offline"
	ActionActivate        = "activate"
	ActionBulkToggle      = "bulk_toggle"
	ActionAutomationStart = "automation_start"
	ActionAutomationStop  = "automation_stop"
	ActionBatchCreate     = "batch_create"
	ActionDeleteByRemark  = "delete_by_remark"
)

// Action outcomes recorded in the journal.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Data interface{} `json:"data,omitempty"`
	Meta *APIMeta    `json:"meta,omitempty"`
}

// APIMeta contains pagination and execution metadata.
type APIMeta struct {
	Total         int64 `json:"total,omitempty"`
	ExecutionTime int64 `json:"executionTime,omitempty"`
}

// APIError is the standard error response.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains error code and message.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
