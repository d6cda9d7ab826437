package bulk

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
)

// Pacer spaces out sequential toggle requests. It only delays; it never
// reorders or drops a request.
type Pacer struct {
	limiter *rate.Limiter
	name    string
}

// NewPacer allows rps requests per second with a burst of one, so requests
// are spread evenly instead of bunching at the start of a batch.
func NewPacer(name string, rps float64) *Pacer {
	slog.Debug("toggle pacer created",
		"name", name,
		"rps", rps,
	)
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		name:    name,
	}
}

// Wait blocks until the next request may go out or ctx is cancelled.
// A nil Pacer never waits.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	if err := p.limiter.Wait(ctx); err != nil {
		slog.Warn("toggle pacer wait cancelled",
			"name", p.name,
			"error", err,
		)
		return err
	}
	return nil
}

// Name returns the pacer name.
func (p *Pacer) Name() string {
	return p.name
}
