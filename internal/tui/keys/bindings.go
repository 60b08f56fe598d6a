// Package keys maps key events to page-scoped actions.
package keys

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/huddle/internal/tui/ui"
)

// Action represents a keybinding action.
type Action struct {
	Name        string
	Key         tcell.Key
	Rune        rune
	Label       string // key as shown in the menu
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds keybindings by page, in registration order.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page. An action with the
// same name replaces the earlier one.
func (r *Registry) AddGlobal(a *Action) {
	r.global = upsert(r.global, a)
}

// AddPage registers a binding active only on page.
func (r *Registry) AddPage(page string, a *Action) {
	r.pages[page] = upsert(r.pages[page], a)
}

func upsert(list []*Action, a *Action) []*Action {
	for i, cur := range list {
		if cur.Name == a.Name {
			list[i] = a
			return list
		}
	}
	return append(list, a)
}

// Hints returns the visible bindings of page followed by the global ones.
func (r *Registry) Hints(page string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, list := range [][]*Action{r.pages[page], r.global} {
		for _, a := range list {
			if a.Visible {
				hints = append(hints, ui.MenuHint{Key: a.Label, Description: a.Description})
			}
		}
	}
	return hints
}

// HandleEvent dispatches a key event to the first matching action, page
// bindings first. Returns true if a handler matched.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, list := range [][]*Action{r.pages[page], r.global} {
		for _, a := range list {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
