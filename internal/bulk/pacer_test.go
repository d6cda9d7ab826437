package bulk

import (
	"context"
	"testing"
	"time"
)

func TestPacer_Name(t *testing.T) {
	if got := NewPacer("toggle", 5).Name(); got != "toggle" {
		t.Errorf("Name() = %q, want toggle", got)
	}
}

func TestPacer_SpacesRequests(t *testing.T) {
	p := NewPacer("test", 50)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait() error on iteration %d: %v", i, err)
		}
	}
	// First token is immediate, the next two wait ~20ms each.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("3 waits at 50 rps took %v, expected pacing", elapsed)
	}
}

func TestPacer_NilNeverWaits(t *testing.T) {
	var p *Pacer
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("nil Wait() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); err == nil {
		t.Fatal("nil Wait() with cancelled context should return error")
	}
}
