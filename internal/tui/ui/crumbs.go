package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// maxCrumbLabel bounds a crumb so a long event name cannot push the
// active page off screen.
const maxCrumbLabel = 24

// Crumbs shows the page stack, root first, with the active page highlighted.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update redraws the trail from page labels.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	var b strings.Builder
	for i, label := range stack {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(stack)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "[%s:%s:%s] %s [-:-:-]", ColorTag(fg), ColorTag(bg), attr, tview.Escape(truncateLabel(label)))
	}
	_, _ = fmt.Fprint(c, b.String())
}

func truncateLabel(s string) string {
	r := []rune(s)
	if len(r) <= maxCrumbLabel {
		return s
	}
	return string(r[:maxCrumbLabel-1]) + "…"
}
