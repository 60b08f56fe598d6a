package tui

import (
	"sync"

	"github.com/matheus3301/huddle/internal/status"
)

// feedHealth folds per-subscription status changes into one summary.
type feedHealth struct {
	mu     sync.Mutex
	states map[string]status.State
}

func newFeedHealth() *feedHealth {
	return &feedHealth{states: make(map[string]status.State)}
}

// apply records change and reports whether the summary changed.
func (f *feedHealth) apply(change status.StatusChange) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	before := f.summaryLocked()
	if change.To == status.Closed {
		delete(f.states, change.Name)
	} else {
		f.states[change.Name] = change.To
	}
	return f.summaryLocked() != before
}

func (f *feedHealth) summary() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaryLocked()
}

// summaryLocked is the worst state across subscriptions.
func (f *feedHealth) summaryLocked() string {
	if len(f.states) == 0 {
		return ""
	}
	worst := status.Live
	for _, s := range f.states {
		switch {
		case s == status.Stale:
			return "stale"
		case s == status.Connecting:
			worst = status.Connecting
		}
	}
	if worst == status.Connecting {
		return "connecting"
	}
	return "live"
}
