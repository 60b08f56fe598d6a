package sync

import (
	"cmp"
	"slices"

	"github.com/matheus3301/huddle/internal/store"
)

// Timeline is the materialized message list of one chat: unique by message
// id and ordered by (CreatedAt, ID). Inserting is idempotent and
// order-independent, so snapshot rows and feed events can be merged in any
// arrival order.
type Timeline struct {
	chatID string
	msgs   []store.Message
	ids    map[int64]struct{}
}

// NewTimeline creates an empty timeline for chatID.
func NewTimeline(chatID string) *Timeline {
	return &Timeline{chatID: chatID, ids: make(map[int64]struct{})}
}

// Insert places m at its ordered position. It reports false when m belongs
// to another chat or is already present.
func (t *Timeline) Insert(m store.Message) bool {
	if m.ChatID != t.chatID {
		return false
	}
	if _, dup := t.ids[m.ID]; dup {
		return false
	}
	i, _ := slices.BinarySearchFunc(t.msgs, m, compareMessages)
	t.msgs = slices.Insert(t.msgs, i, m)
	t.ids[m.ID] = struct{}{}
	return true
}

// InsertAll inserts every message and reports whether any was new.
func (t *Timeline) InsertAll(msgs []store.Message) bool {
	changed := false
	for _, m := range msgs {
		if t.Insert(m) {
			changed = true
		}
	}
	return changed
}

// Messages returns a copy of the ordered messages.
func (t *Timeline) Messages() []store.Message {
	return slices.Clone(t.msgs)
}

// Len returns the number of messages.
func (t *Timeline) Len() int { return len(t.msgs) }

// SenderIDs returns the distinct sender ids in the timeline.
func (t *Timeline) SenderIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range t.msgs {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

func compareMessages(a, b store.Message) int {
	if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
