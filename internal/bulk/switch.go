package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/qmuntal/stateless"
)

// SwitchState is the display state of the "All Auto" switch.
type SwitchState string

const (
	// SwitchIdle shows the computed value.
	SwitchIdle SwitchState = "idle"
	// SwitchOptimistic shows the batch target while the batch is in flight.
	SwitchOptimistic SwitchState = "optimistic"
	// SwitchSettled shows the computed value after the post-batch refresh.
	SwitchSettled SwitchState = "settled"
)

const (
	triggerBegin  = "begin"
	triggerSettle = "settle"
	triggerClear  = "clear"
)

// Switch tracks whether the bulk switch should show an optimistic target or
// the value computed from the current ads. Without it the switch would
// flicker as individual ads change mid-batch.
type Switch struct {
	mu     sync.Mutex
	sm     *stateless.StateMachine
	target bool
}

// NewSwitch creates a Switch in SwitchIdle.
func NewSwitch() *Switch {
	s := &Switch{}

	sm := stateless.NewStateMachineWithMode(SwitchIdle, stateless.FiringImmediate)
	sm.SetTriggerParameters(triggerBegin, reflect.TypeOf(false))

	sm.Configure(SwitchIdle).
		Permit(triggerBegin, SwitchOptimistic).
		Ignore(triggerSettle).
		Ignore(triggerClear)

	sm.Configure(SwitchOptimistic).
		OnEntryFrom(triggerBegin, func(_ context.Context, args ...any) error {
			s.target = args[0].(bool)
			return nil
		}).
		Permit(triggerSettle, SwitchSettled).
		Permit(triggerClear, SwitchIdle)

	sm.Configure(SwitchSettled).
		Permit(triggerBegin, SwitchOptimistic).
		Permit(triggerClear, SwitchIdle).
		Ignore(triggerSettle)

	sm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		slog.Debug("bulk switch transition",
			"from", t.Source,
			"to", t.Destination,
			"trigger", t.Trigger,
		)
	})

	s.sm = sm
	return s
}

// Begin shows target until the batch settles. It fails while another batch
// is already in flight.
func (s *Switch) Begin(target bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sm.Fire(triggerBegin, target); err != nil {
		return fmt.Errorf("bulk switch begin: %w", err)
	}
	return nil
}

// Settle returns to the computed value once the post-batch refresh is done.
func (s *Switch) Settle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm.Fire(triggerSettle)
}

// Clear resets the switch, e.g. when the account or view changes.
func (s *Switch) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm.Fire(triggerClear)
}

// State returns the current state.
func (s *Switch) State() SwitchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm.MustState().(SwitchState)
}

// Checked returns the value to display given the value computed from the
// current ads.
func (s *Switch) Checked(computed bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sm.MustState().(SwitchState) == SwitchOptimistic {
		return s.target
	}
	return computed
}
