package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/huddle/internal/bus"
)

// State is the health of one change-feed subscription.
type State string

const (
	Connecting State = "CONNECTING"
	Live       State = "LIVE"
	Stale      State = "STALE"
	Closed     State = "CLOSED"
)

// validTransitions defines allowed state transitions. CLOSED is terminal.
var validTransitions = map[State][]State{
	Connecting: {Live, Stale, Closed},
	Live:       {Stale, Closed},
	Stale:      {Connecting, Closed},
}

// Machine tracks and enforces feed health transitions.
type Machine struct {
	mu      sync.RWMutex
	name    string
	current State
	bus     *bus.Bus
	onEnter func(State)
}

// NewMachine creates a machine in the Connecting state. name identifies the
// subscription in published events; b may be nil.
func NewMachine(name string, b *bus.Bus) *Machine {
	return &Machine{
		name:    name,
		current: Connecting,
		bus:     b,
	}
}

// OnEnter registers a callback invoked after every successful transition.
func (m *Machine) OnEnter(fn func(State)) {
	m.mu.Lock()
	m.onEnter = fn
	m.mu.Unlock()
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	from := m.current
	m.current = to
	onEnter := m.onEnter
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindFeedStatus,
			Timestamp: time.Now(),
			Payload:   StatusChange{Name: m.name, From: from, To: to},
		})
	}
	if onEnter != nil {
		onEnter(to)
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	Name string
	From State
	To   State
}
