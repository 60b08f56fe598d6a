package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	intsync "github.com/matheus3301/huddle/internal/sync"
	"github.com/matheus3301/huddle/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatList is the table of the user's chats, most recent activity first.
type ChatList struct {
	*tview.Table
	theme   *ui.Theme
	state   intsync.ChatListState
	visible []intsync.ChatListEntry
	filter  string
}

// NewChatList creates a new chat list table.
func NewChatList(theme *ui.Theme) *ChatList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Chats ")
	table.SetTitleColor(theme.TitleColor)

	return &ChatList{
		Table: table,
		theme: theme,
	}
}

// Update replaces the rendered state, keeping the selected chat selected.
func (cl *ChatList) Update(st intsync.ChatListState) {
	selected := cl.SelectedChat()
	cl.state = st
	cl.render()
	cl.selectChat(selected)
}

// SetFilter sets the active filter text and re-renders.
func (cl *ChatList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ChatList) ClearFilter() {
	cl.filter = ""
	cl.render()
}

// Filter returns the active filter text.
func (cl *ChatList) Filter() string { return cl.filter }

func (cl *ChatList) matches(e intsync.ChatListEntry) bool {
	if cl.filter == "" {
		return true
	}
	f := strings.ToLower(cl.filter)
	return strings.Contains(strings.ToLower(e.EventName), f) ||
		strings.Contains(strings.ToLower(e.Preview), f)
}

func (cl *ChatList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" CHAT", 1},
		{" LAST MESSAGE", 2},
		{" FROM", 0},
		{" TIME", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	cl.visible = cl.visible[:0]
	for _, e := range cl.state.Items {
		if !cl.matches(e) {
			continue
		}
		cl.visible = append(cl.visible, e)
		row := len(cl.visible)

		from, at, fromColor := "", "", cl.theme.SenderColor
		if e.HasPreview {
			from = e.SenderName
			at = formatTimestamp(e.PreviewAt)
		}
		if e.Unavailable {
			fromColor = cl.theme.DimColor
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(cleanLine(e.EventName))).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(cleanLine(e.Preview))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(cleanLine(from))).SetExpansion(0).SetTextColor(fromColor))
		cl.SetCell(row, 3, tview.NewTableCell(at).SetExpansion(0).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
	}

	cl.SetTitle(cl.title())
}

func (cl *ChatList) title() string {
	var b strings.Builder
	if cl.filter != "" {
		fmt.Fprintf(&b, " Chats (%d/%d) filter: %s ", len(cl.visible), len(cl.state.Items), tview.Escape(cl.filter))
	} else {
		fmt.Fprintf(&b, " Chats (%d) ", len(cl.state.Items))
	}
	switch {
	case cl.state.Loading && !cl.state.Loaded:
		b.WriteString("loading... ")
	case cl.state.Err != nil && !cl.state.Loaded:
		b.WriteString("failed to load ")
	}
	if cl.state.Stale {
		b.WriteString("[reconnecting] ")
	}
	return b.String()
}

// SelectedChat returns the id of the currently selected chat.
func (cl *ChatList) SelectedChat() string {
	row, _ := cl.GetSelection()
	return cl.ChatByIndex(row)
}

// ChatByIndex returns the id of the Nth visible chat (1-based).
func (cl *ChatList) ChatByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].ChatID
}

func (cl *ChatList) selectChat(chatID string) {
	if chatID == "" {
		return
	}
	for i, e := range cl.visible {
		if e.ChatID == chatID {
			cl.Select(i+1, 0)
			return
		}
	}
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
