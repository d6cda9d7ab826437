// Package metrics emits StatsD counters and timings. A nil *Client is valid
// and drops everything, so callers never check whether metrics are enabled.
package metrics

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"

	"github.com/Fantasim/p2pads/internal/config"
)

// Client wraps a statsd.Statter.
type Client struct {
	statter statsd.Statter
	errOnce sync.Once
}

// New connects to a StatsD daemon at addr. An empty addr returns a nil
// Client, which is a no-op.
func New(addr string) (*Client, error) {
	if addr == "" {
		slog.Info("metrics disabled, no statsd address configured")
		return nil, nil
	}

	statter, err := statsd.NewClientWithConfig(&statsd.ClientConfig{
		Address:       addr,
		Prefix:        config.StatsdPrefix,
		UseBuffered:   true,
		FlushInterval: config.StatsdFlushInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}

	slog.Info("metrics enabled", "statsdAddr", addr, "prefix", config.StatsdPrefix)
	return &Client{statter: statter}, nil
}

// NewWithStatter wraps an existing statter (for testing).
func NewWithStatter(s statsd.Statter) *Client {
	return &Client{statter: s}
}

// Inc increments a counter by one.
func (c *Client) Inc(parts ...string) {
	if c == nil {
		return
	}
	c.report(c.statter.Inc(Name(parts...), 1, 1.0))
}

// Timing records a duration.
func (c *Client) Timing(d time.Duration, parts ...string) {
	if c == nil {
		return
	}
	c.report(c.statter.TimingDuration(Name(parts...), d, 1.0))
}

// Gauge sets a gauge.
func (c *Client) Gauge(value int64, parts ...string) {
	if c == nil {
		return
	}
	c.report(c.statter.Gauge(Name(parts...), value, 1.0))
}

// Close flushes and closes the underlying connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.statter.Close()
}

func (c *Client) report(err error) {
	if err == nil {
		return
	}
	c.errOnce.Do(func() {
		slog.Error("statsd send failed, further errors suppressed", "error", err)
	})
}

// Name joins metric name parts with dots. Dashes and spaces become
// underscores so view modes like "fiat-balance" stay single segments.
func Name(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		p = strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(p))
		clean = append(clean, p)
	}
	return strings.Join(clean, ".")
}
