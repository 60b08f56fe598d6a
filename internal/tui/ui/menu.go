package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rivo/tview"
)

// menuRows matches the header height minus its padding.
const menuRows = 6

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
}

// Menu lists key hints column by column, menuRows per column.
type Menu struct {
	*tview.TextView
	theme *Theme
}

func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update replaces the hints.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, layoutHints(hints, ColorTag(m.theme.MenuKeyColor)))
}

func layoutHints(hints []MenuHint, keyColor string) string {
	cols := (len(hints) + menuRows - 1) / menuRows
	widths := make([]int, cols)
	for i, h := range hints {
		w := utf8.RuneCountInString(h.Key) + utf8.RuneCountInString(h.Description) + 3
		widths[i/menuRows] = max(widths[i/menuRows], w)
	}

	var b strings.Builder
	for row := 0; row < min(menuRows, len(hints)); row++ {
		for col := 0; col < cols; col++ {
			i := col*menuRows + row
			if i >= len(hints) {
				break
			}
			h := hints[i]
			fmt.Fprintf(&b, "[%s::b]<%s>[-:-:-] %s", keyColor, tview.Escape(h.Key), tview.Escape(h.Description))
			if col < cols-1 && i+menuRows < len(hints) {
				pad := widths[col] - utf8.RuneCountInString(h.Key) - utf8.RuneCountInString(h.Description) - 3
				b.WriteString(strings.Repeat(" ", pad+3))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
