package automation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/models"
)

// Key identifies the recurring poll task: one mode on one account.
type Key struct {
	Mode         models.ViewMode
	CredentialID string
}

type task struct {
	key    Key
	poller *Poller
	cancel context.CancelFunc
}

// Scheduler runs at most one recurring poll task. The task exists only while
// its poller reports running; it is torn down when the process stops, when
// Sync is called for a different key, on Deactivate and on Stop.
type Scheduler struct {
	interval time.Duration

	mu      sync.Mutex
	active  *task
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler ticking at interval.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = config.StatusPollInterval
	}
	return &Scheduler{interval: interval}
}

// Sync reconciles the recurring task with the poller's current snapshot.
// Call it after every fetch of p and whenever the mode or account changes.
func (s *Scheduler) Sync(key Key, p *Poller) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if s.active != nil && (s.active.key != key || s.active.poller != p) {
		s.cancelLocked("key changed")
	}

	if !p.Running() {
		if s.active != nil {
			s.cancelLocked("automation not running")
		}
		return
	}

	if s.active != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{key: key, poller: p, cancel: cancel}
	s.active = t

	s.wg.Add(1)
	go s.run(ctx, t)

	slog.Info("automation polling started",
		"mode", key.Mode,
		"credentialID", key.CredentialID,
		"interval", s.interval,
	)
}

// Deactivate stops the recurring task, if any.
func (s *Scheduler) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.cancelLocked("deactivated")
	}
}

// Active returns the key of the running task.
func (s *Scheduler) Active() (Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Key{}, false
	}
	return s.active.key, true
}

// Stop cancels the task and waits for its goroutine to exit. The scheduler
// cannot be restarted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.active != nil {
		s.cancelLocked("shutdown")
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("automation polling stopped")
	case <-time.After(config.ShutdownTimeout):
		slog.Warn("automation polling shutdown timed out", "timeout", config.ShutdownTimeout)
	}
}

func (s *Scheduler) cancelLocked(reason string) {
	slog.Info("automation polling halted",
		"mode", s.active.key.Mode,
		"credentialID", s.active.key.CredentialID,
		"reason", reason,
	)
	s.active.cancel()
	s.active = nil
}

// release drops t from the active slot if it is still there.
func (s *Scheduler) release(t *task, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == t {
		s.cancelLocked(reason)
	}
}

func (s *Scheduler) run(ctx context.Context, t *task) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.poller.Poll(ctx)
			if ctx.Err() != nil {
				return
			}
			if !t.poller.Running() {
				s.release(t, "automation stopped")
				return
			}
		}
	}
}
