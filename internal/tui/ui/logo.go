package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

var logoArt = []string{
	"╦ ╦╦ ╦╔╦╗╔╦╗╦  ╔═╗",
	"╠═╣║ ║ ║║ ║║║  ║╣ ",
	"╩ ╩╚═╝═╩╝═╩╝╩═╝╚═╝",
}

const tagline = "activity chats"

// Logo is the header's wordmark.
type Logo struct {
	*tview.TextView
}

func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	var b strings.Builder
	for _, line := range logoArt {
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-]\n", ColorTag(theme.TitleColor), line)
	}
	fmt.Fprintf(&b, "[%s]%s[-:-:-]", ColorTag(theme.FgColor), tagline)
	tv.SetText(b.String())
	return &Logo{TextView: tv}
}
