package sync

import (
	"cmp"
	"slices"
	"strings"

	"github.com/matheus3301/huddle/internal/store"
)

// ChatListItem is one row of the chat list.
type ChatListItem struct {
	ChatID          string
	EventName       string
	Preview         string
	PreviewSenderID string
	PreviewAt       int64 // unix ms, 0 when the chat has no messages
	HasPreview      bool
}

// ChatList is the materialized chat list, always sorted most recently
// active first with the chat id as tie-break. A chat's preview only moves
// forward in time.
type ChatList struct {
	items []ChatListItem
	index map[string]int
	// latest holds the newest message observed per chat, including chats
	// not yet in the list, so a snapshot read before the message existed
	// cannot hide it.
	latest map[string]store.Message
}

// NewChatList creates an empty chat list.
func NewChatList() *ChatList {
	return &ChatList{
		index:  make(map[string]int),
		latest: make(map[string]store.Message),
	}
}

// Replace installs a snapshot. Membership follows the snapshot; previews
// keep whichever of the snapshot and the observed messages is newer.
func (l *ChatList) Replace(items []ChatListItem) {
	l.items = slices.Clone(items)
	for i := range l.items {
		if m, ok := l.latest[l.items[i].ChatID]; ok {
			applyPreview(&l.items[i], m)
		}
	}
	l.resort()
}

// ApplyMessage folds a new message into its chat's preview. It reports
// whether the visible list changed.
func (l *ChatList) ApplyMessage(m store.Message) bool {
	if prev, ok := l.latest[m.ChatID]; !ok || m.CreatedAt >= prev.CreatedAt {
		l.latest[m.ChatID] = m
	}
	i, ok := l.index[m.ChatID]
	if !ok || !applyPreview(&l.items[i], m) {
		return false
	}
	l.resort()
	return true
}

// Items returns a copy of the ordered rows.
func (l *ChatList) Items() []ChatListItem {
	return slices.Clone(l.items)
}

// SenderIDs returns the distinct preview sender ids.
func (l *ChatList) SenderIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, it := range l.items {
		if it.PreviewSenderID != "" && !seen[it.PreviewSenderID] {
			seen[it.PreviewSenderID] = true
			ids = append(ids, it.PreviewSenderID)
		}
	}
	return ids
}

func (l *ChatList) resort() {
	sortChatList(l.items)
	clear(l.index)
	for i, it := range l.items {
		l.index[it.ChatID] = i
	}
}

// applyPreview replaces the preview when m is not older than it.
func applyPreview(it *ChatListItem, m store.Message) bool {
	if it.HasPreview && m.CreatedAt < it.PreviewAt {
		return false
	}
	if it.HasPreview && it.PreviewAt == m.CreatedAt && it.Preview == m.Content && it.PreviewSenderID == m.UserID {
		return false
	}
	it.Preview = m.Content
	it.PreviewAt = m.CreatedAt
	it.PreviewSenderID = m.UserID
	it.HasPreview = true
	return true
}

func sortChatList(items []ChatListItem) {
	slices.SortFunc(items, func(a, b ChatListItem) int {
		if c := cmp.Compare(b.PreviewAt, a.PreviewAt); c != 0 {
			return c
		}
		return strings.Compare(a.ChatID, b.ChatID)
	})
}
