package views

import (
	"fmt"

	"github.com/matheus3301/huddle/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

func (hv *HelpView) render() {
	kc := ui.ColorTag(hv.theme.MenuKeyColor)

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  [%[1]s]:[-:-:-]      Command mode        [%[1]s]Esc[-:-:-]    Cancel / Go back
  [%[1]s]?[-:-:-]      Help                [%[1]s]q[-:-:-]      Quit
  [%[1]s]r[-:-:-]      Reload current view [%[1]s]Ctrl-C[-:-:-] Quit immediately

  [::b]Chat List[-:-:-]

  [%[1]s]Enter[-:-:-]  Open chat           [%[1]s]/[-:-:-]      Filter chats
  [%[1]s]1-9[-:-:-]    Open Nth chat       [%[1]s]0[-:-:-]      Clear filter

  [::b]Chat Room[-:-:-]

  [%[1]s]i[-:-:-]      Focus composer      [%[1]s]Enter[-:-:-]  Send (in composer)
  [%[1]s]Esc[-:-:-]    Leave composer / back to chats

  [::b]Commands (: mode)[-:-:-]

  [%[1]s]:join <chat-id>[-:-:-]      Join a chat and open it
  [%[1]s]:leave[-:-:-]               Leave the open chat
  [%[1]s]:name <display name>[-:-:-] Set your display name
  [%[1]s]:new <activity name>[-:-:-] Create an activity and its chat
  [%[1]s]:help[-:-:-] / [%[1]s]:h[-:-:-]          Show this help
  [%[1]s]:quit[-:-:-] / [%[1]s]:q[-:-:-]          Quit
`, kc)

	_, _ = fmt.Fprint(hv, help)
}
