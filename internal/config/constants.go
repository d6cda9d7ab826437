package config

import "time"

// AppName is used as the log attribute and metrics prefix.
const AppName = "p2pads"

// Remark markers written into ad remarks by the backend.
const (
	AutoMarker       = "@@@"
	AutoPausedMarker = "@*@"
)

// Ads
const (
	AdStatusActive         = 10
	FiatBalancePaymentType = 416
	UnknownFiatCurrency    = "UNKNOWN"
	SideSell               = "SELL"
	SideBuy                = "BUY"
)

// Automation status polling
const (
	StatusPollInterval   = 10 * time.Second
	SlowRequestWarnAfter = 5 * time.Second
)

// Bulk toggle
const (
	DefaultToggleRPS = 5
)

// Fiat-balance batch creation
const (
	DefaultPaymentPeriod = "15"
	PolicyFilePath       = "./quantity_policy.yaml"
)

// Server
const (
	ServerPort         = 8090
	ServerReadTimeout  = 30 * time.Second
	ServerWriteTimeout = 0 // bulk toggles can outlive any fixed deadline
	ServerIdleTimeout  = 120 * time.Second
	ShutdownTimeout    = 10 * time.Second

	SlowHandlerWarnAfter = 10 * time.Second
	CSRFCookieName       = "csrf_token"
	CSRFHeaderName       = "X-CSRF-Token"
)

// Logging
const (
	LogDir         = "./logs"
	LogFilePattern = "p2pads-%s.log" // %s = YYYY-MM-DD
	LogMaxAgeDays  = 30
)

// Database
const (
	DBPath          = "./data/p2pads.sqlite"
	DBBusyTimeout   = 5000 // milliseconds
	JournalDefault  = 50
	JournalMaxLimit = 500
	JournalMaxAge   = 90 * 24 * time.Hour
)

// Metrics
const (
	StatsdPrefix        = AppName
	StatsdFlushInterval = 300 * time.Millisecond
)
