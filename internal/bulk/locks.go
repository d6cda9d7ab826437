package bulk

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Fantasim/p2pads/internal/config"
)

// AccountLocks serializes toggle actions per account. Single-ad actions and
// bulk batches share the same lock, so a single toggle can never interleave
// with a batch on the same account. Acquisition never blocks: a second
// action on a busy account fails with config.ErrAccountBusy.
type AccountLocks struct {
	mu   sync.Mutex
	held map[string]string // credentialID -> holder
}

// NewAccountLocks creates an empty lock set.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{held: make(map[string]string)}
}

// TryAcquire takes the lock for credentialID on behalf of holder. The
// returned release func must be called exactly once.
func (l *AccountLocks) TryAcquire(credentialID, holder string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, busy := l.held[credentialID]; busy {
		slog.Warn("account toggle lock busy",
			"credentialID", credentialID,
			"holder", current,
			"requestedBy", holder,
		)
		return nil, fmt.Errorf("%w: %s", config.ErrAccountBusy, current)
	}
	l.held[credentialID] = holder

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, credentialID)
			l.mu.Unlock()
		})
	}, nil
}

// Holder returns who holds the lock for credentialID, if anyone.
func (l *AccountLocks) Holder(credentialID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.held[credentialID]
	return h, ok
}
