package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session  string
	User     string
	Feed     string
	Chats    int64
	Messages int64
	Uptime   time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data SessionData) {
	si.Clear()

	fgColor := ColorTag(si.theme.FgColor)
	counterColor := ColorTag(si.theme.CounterColor)
	feed := data.Feed
	if feed == "" {
		feed = "-"
	}

	rows := []struct {
		label string
		value string
	}{
		{"Session:", data.Session},
		{"User:", data.User},
		{"Feed:", feed},
		{"Chats:", fmt.Sprint(data.Chats)},
		{"Msgs:", fmt.Sprint(data.Messages)},
		{"Uptime:", formatDuration(data.Uptime)},
	}
	for i, r := range rows {
		if i > 0 {
			_, _ = fmt.Fprint(si, "\n")
		}
		_, _ = fmt.Fprintf(si, "[%s::b]%-9s[-:-:-][%s]%s[-]", fgColor, r.label, counterColor, tview.Escape(r.value))
	}
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
