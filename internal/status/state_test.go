package status

import (
	"testing"
	"time"

	"github.com/matheus3301/huddle/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine("room", nil)
	if m.Current() != Connecting {
		t.Errorf("initial state = %s, want CONNECTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		path []State
	}{
		{[]State{Live}},
		{[]State{Stale}},
		{[]State{Closed}},
		{[]State{Live, Stale, Connecting, Live}},
		{[]State{Live, Closed}},
		{[]State{Stale, Closed}},
	}
	for _, tt := range tests {
		m := NewMachine("t", nil)
		for _, to := range tt.path {
			if err := m.Transition(to); err != nil {
				t.Fatalf("path %v: Transition(%s) error = %v", tt.path, to, err)
			}
		}
		if got, want := m.Current(), tt.path[len(tt.path)-1]; got != want {
			t.Errorf("path %v: state = %s, want %s", tt.path, got, want)
		}
	}
}

func TestInvalidTransitions(t *testing.T) {
	m := NewMachine("t", nil)
	if err := m.Transition(Connecting); err == nil {
		t.Error("Transition(CONNECTING -> CONNECTING) should fail")
	}
	_ = m.Transition(Live)
	if err := m.Transition(Connecting); err == nil {
		t.Error("Transition(LIVE -> CONNECTING) should fail; a live feed goes stale first")
	}
	_ = m.Transition(Closed)
	for _, to := range []State{Connecting, Live, Stale, Closed} {
		if err := m.Transition(to); err == nil {
			t.Errorf("Transition(CLOSED -> %s) should fail", to)
		}
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	sub := b.Subscribe("feed.", 10)
	defer sub.Close()

	m := NewMachine("room:c1", b)
	if err := m.Transition(Live); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-sub.C():
		change, ok := evt.Payload.(StatusChange)
		if !ok {
			t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
		}
		if change.Name != "room:c1" || change.From != Connecting || change.To != Live {
			t.Errorf("change = %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status event")
	}
}

func TestOnEnterCallback(t *testing.T) {
	m := NewMachine("t", nil)
	var seen []State
	m.OnEnter(func(s State) { seen = append(seen, s) })

	_ = m.Transition(Live)
	_ = m.Transition(Live) // invalid, no callback
	_ = m.Transition(Stale)

	if len(seen) != 2 || seen[0] != Live || seen[1] != Stale {
		t.Errorf("seen = %v, want [LIVE STALE]", seen)
	}
}
