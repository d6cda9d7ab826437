package config

import "errors"

// Sentinel errors for internal use.
var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingBaseURL     = errors.New("missing api base url")
	ErrMissingAccessToken = errors.New("missing access token")

	// Backend
	ErrBackendRequest = errors.New("backend request failed")
	ErrBackendNetwork = errors.New("backend unreachable")
	ErrBackendDecode  = errors.New("backend response decode failed")

	// Ads page
	ErrBusy            = errors.New("action already in progress")
	ErrAccountBusy     = errors.New("another toggle action is in flight for this account")
	ErrNoAccount       = errors.New("no account selected")
	ErrAccountNotFound = errors.New("account not found")
	ErrAdNotFound      = errors.New("ad not found in selected account")
	ErrInvalidViewMode = errors.New("invalid view mode")
	ErrInvalidStatus   = errors.New("invalid status filter")
	ErrBulkUnavailable = errors.New("bulk toggle is only available in the standard view")
	ErrAutomationOn    = errors.New("stop automation before changing its sides")

	// Fiat-balance batch
	ErrNoAccountSelected = errors.New("credential_id is required")
	ErrNoTokenSelected   = errors.New("select at least one token")
	ErrNoFiatSelected    = errors.New("select at least one fiat currency")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyRemarkMarker = errors.New("remark marker must not be empty")
	ErrInvalidPolicy     = errors.New("invalid quantity policy")

	// Journal
	ErrJournalWrite = errors.New("action journal write failed")
)

// Error codes shared with console clients via API responses.
const (
	ErrorInvalidConfig    = "ERROR_INVALID_CONFIG"
	ErrorInvalidRequest   = "ERROR_INVALID_REQUEST"
	ErrorBackendHTTP      = "ERROR_BACKEND_HTTP"
	ErrorBackendNetwork   = "ERROR_BACKEND_NETWORK"
	ErrorBusy             = "ERROR_BUSY"
	ErrorAccountBusy      = "ERROR_ACCOUNT_BUSY"
	ErrorNoAccount        = "ERROR_NO_ACCOUNT"
	ErrorNotFound         = "ERROR_NOT_FOUND"
	ErrorBulkUnavailable  = "ERROR_BULK_UNAVAILABLE"
	ErrorAutomationOn     = "ERROR_AUTOMATION_RUNNING"
	ErrorValidation       = "ERROR_VALIDATION"
	ErrorEmptyRemark      = "ERROR_EMPTY_REMARK_MARKER"
	ErrorDatabase         = "ERROR_DATABASE"
	ErrorInternal         = "ERROR_INTERNAL"
	ErrorForbidden        = "ERROR_FORBIDDEN"
)
