package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	intsync "github.com/matheus3301/huddle/internal/sync"
	"github.com/matheus3301/huddle/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatRoom displays one chat's timeline and a composer.
type ChatRoom struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	self     string
	chatID   string
	name     string
	onSend   func(text string)
}

// NewChatRoom creates a chat room view. Messages sent by self render as "You".
func NewChatRoom(theme *ui.Theme, self string) *ChatRoom {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	cr := &ChatRoom{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
		self:     self,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || cr.onSend == nil {
			return
		}
		text := composer.GetText()
		if strings.TrimSpace(text) == "" {
			return
		}
		composer.SetText("")
		cr.onSend(text)
	})

	return cr
}

// Reset clears the room for chatID before its first state arrives.
func (cr *ChatRoom) Reset(chatID string) {
	cr.chatID = chatID
	cr.name = intsync.PendingName
	cr.messages.Clear()
	cr.composer.SetText("")
	cr.messages.SetTitle(" " + intsync.PendingName + " ")
}

// ChatID returns the chat currently shown.
func (cr *ChatRoom) ChatID() string { return cr.chatID }

// Name returns the room's display name.
func (cr *ChatRoom) Name() string { return cr.name }

// SetOnSend sets the callback run with the composer text on Enter.
func (cr *ChatRoom) SetOnSend(fn func(text string)) {
	cr.onSend = fn
}

// RestoreDraft puts text back into an empty composer after a failed send.
func (cr *ChatRoom) RestoreDraft(text string) {
	if cr.composer.GetText() == "" {
		cr.composer.SetText(text)
	}
}

// Update renders the room state. States of another chat are ignored.
func (cr *ChatRoom) Update(st intsync.ChatRoomState) {
	if st.ChatID != cr.chatID {
		return
	}
	if st.NameLoaded {
		cr.name = st.Name
	}
	cr.messages.SetTitle(cr.title(st))

	cr.messages.Clear()
	if st.Err != nil && len(st.Messages) == 0 {
		_, _ = fmt.Fprintf(cr.messages, "[%s]could not load messages: %s[-]\n",
			ui.ColorTag(cr.theme.FlashErrColor), tview.Escape(st.Err.Error()))
	}
	for _, m := range st.Messages {
		sender, color := m.SenderName, cr.theme.SenderColor
		switch {
		case m.UserID == cr.self:
			sender, color = "You", cr.theme.SelfColor
		case m.Unavailable:
			color = cr.theme.DimColor
		}
		_, _ = fmt.Fprintf(cr.messages, "[%s::b]%s[-:-:-] [%s]%s[-]\n%s\n\n",
			ui.ColorTag(color), tview.Escape(cleanLine(sender)),
			ui.ColorTag(cr.theme.DimColor), formatTimestamp(m.CreatedAt),
			tview.Escape(cleanText(m.Content)))
	}
	cr.messages.ScrollToEnd()
}

func (cr *ChatRoom) title(st intsync.ChatRoomState) string {
	var b strings.Builder
	fmt.Fprintf(&b, " %s ", tview.Escape(cleanLine(cr.name)))
	if st.ParticipantsLoaded {
		noun := "participants"
		if st.Participants == 1 {
			noun = "participant"
		}
		fmt.Fprintf(&b, "· %d %s ", st.Participants, noun)
	}
	if st.Stale {
		b.WriteString("[reconnecting] ")
	}
	return b.String()
}

// Messages returns the messages text view (for focus management).
func (cr *ChatRoom) Messages() *tview.TextView {
	return cr.messages
}

// Composer returns the composer input field (for focus management).
func (cr *ChatRoom) Composer() *tview.InputField {
	return cr.composer
}
