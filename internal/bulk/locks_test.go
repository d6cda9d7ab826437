package bulk

import (
	"errors"
	"testing"

	"github.com/Fantasim/p2pads/internal/config"
)

func TestAccountLocks_Exclusive(t *testing.T) {
	l := NewAccountLocks()

	release, err := l.TryAcquire("c1", "bulk")
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}

	if _, err := l.TryAcquire("c1", "toggle a1"); !errors.Is(err, config.ErrAccountBusy) {
		t.Fatalf("second TryAcquire() error = %v, want ErrAccountBusy", err)
	}

	other, err := l.TryAcquire("c2", "toggle b1")
	if err != nil {
		t.Fatalf("other account TryAcquire() error = %v", err)
	}
	other()

	if h, ok := l.Holder("c1"); !ok || h != "bulk" {
		t.Errorf("Holder() = %q, %v; want bulk, true", h, ok)
	}

	release()
	release()

	if _, ok := l.Holder("c1"); ok {
		t.Error("expected lock released")
	}
	again, err := l.TryAcquire("c1", "toggle a1")
	if err != nil {
		t.Fatalf("TryAcquire() after release error = %v", err)
	}
	again()
}
