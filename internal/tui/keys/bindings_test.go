package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func runeEvent(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestPageBindingsWinOverGlobal(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal(&Action{Name: "quit", Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "global" }})
	r.AddPage("room", &Action{Name: "back", Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = "room" }})

	if !r.HandleEvent("room", runeEvent('q')) || got != "room" {
		t.Errorf("room page: handled by %q, want room", got)
	}
	if !r.HandleEvent("chats", runeEvent('q')) || got != "global" {
		t.Errorf("chats page: handled by %q, want global", got)
	}
	if r.HandleEvent("chats", runeEvent('x')) {
		t.Error("unbound key reported as handled")
	}
}

func TestSpecialKeys(t *testing.T) {
	r := NewRegistry()
	hit := false
	r.AddPage("chats", &Action{Name: "open", Key: tcell.KeyEnter, Handler: func() { hit = true }})

	if r.HandleEvent("chats", runeEvent('\r')) {
		t.Error("rune event matched a special-key binding")
	}
	if !r.HandleEvent("chats", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)) || !hit {
		t.Error("Enter not dispatched")
	}
}

func TestHintsOrderAndReplace(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Name: "quit", Label: "q", Description: "Quit", Visible: true})
	r.AddGlobal(&Action{Name: "hidden", Label: "x", Description: "Hidden"})
	r.AddPage("chats", &Action{Name: "open", Label: "Enter", Description: "Open", Visible: true})
	r.AddPage("chats", &Action{Name: "filter", Label: "/", Description: "Filter", Visible: true})
	r.AddPage("chats", &Action{Name: "open", Label: "Enter", Description: "Open chat", Visible: true})

	hints := r.Hints("chats")
	want := []string{"Open chat", "Filter", "Quit"}
	if len(hints) != len(want) {
		t.Fatalf("hints = %+v, want %v", hints, want)
	}
	for i, h := range hints {
		if h.Description != want[i] {
			t.Errorf("hint %d = %q, want %q", i, h.Description, want[i])
		}
	}
}
