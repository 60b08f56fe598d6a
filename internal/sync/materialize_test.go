package sync

import (
	"slices"
	"strings"
	"testing"

	"github.com/matheus3301/huddle/internal/store"
)

func TestTimelineSnapshotFeedRace(t *testing.T) {
	tl := NewTimeline("c1")

	// Feed events land before the snapshot.
	tl.Insert(msg(3, "c1", "u1", 15))
	tl.Insert(msg(2, "c1", "u2", 20))
	tl.InsertAll([]store.Message{msg(1, "c1", "u1", 10), msg(2, "c1", "u2", 20)})

	if got := messageIDs(tl.Messages()); !slices.Equal(got, []int64{1, 3, 2}) {
		t.Errorf("timeline = %v, want [1 3 2]", got)
	}
}

func TestTimelineOrderIndependent(t *testing.T) {
	msgs := []store.Message{
		msg(1, "c1", "u1", 10),
		msg(2, "c1", "u1", 20),
		msg(3, "c1", "u2", 15),
		msg(4, "c1", "u2", 15),
		msg(2, "c1", "u1", 20),
	}
	want := []int64{1, 3, 4, 2}

	var permute func(prefix, rest []store.Message)
	permute = func(prefix, rest []store.Message) {
		if len(rest) == 0 {
			tl := NewTimeline("c1")
			for _, m := range prefix {
				tl.Insert(m)
			}
			if got := messageIDs(tl.Messages()); !slices.Equal(got, want) {
				t.Fatalf("order %v gave %v, want %v", messageIDs(prefix), got, want)
			}
			return
		}
		for i := range rest {
			next := append(slices.Clone(prefix), rest[i])
			remaining := append(slices.Clone(rest[:i]), rest[i+1:]...)
			permute(next, remaining)
		}
	}
	permute(nil, msgs)
}

func TestTimelineDuplicateAndForeignIgnored(t *testing.T) {
	tl := NewTimeline("c1")
	if !tl.Insert(msg(1, "c1", "u1", 10)) {
		t.Fatal("first insert reported no change")
	}
	if tl.Insert(msg(1, "c1", "u1", 10)) {
		t.Error("duplicate insert reported a change")
	}
	if tl.Insert(msg(2, "c2", "u1", 5)) {
		t.Error("message from another chat was inserted")
	}
	if tl.Len() != 1 {
		t.Errorf("len = %d, want 1", tl.Len())
	}
}

func TestChatListMonotonicPreview(t *testing.T) {
	l := NewChatList()
	l.Replace([]ChatListItem{{ChatID: "c1", Preview: "new", PreviewAt: 20, HasPreview: true}})

	if l.ApplyMessage(store.Message{ID: 9, ChatID: "c1", Content: "skewed", CreatedAt: 5}) {
		t.Error("older message reported a change")
	}
	if it := l.Items()[0]; it.PreviewAt != 20 || it.Preview != "new" {
		t.Errorf("preview regressed to %+v", it)
	}

	if !l.ApplyMessage(store.Message{ID: 10, ChatID: "c1", Content: "same time", CreatedAt: 20}) {
		t.Error("message with equal timestamp should replace the preview")
	}
}

func TestChatListStrictOrder(t *testing.T) {
	l := NewChatList()
	l.Replace([]ChatListItem{
		{ChatID: "b", PreviewAt: 10, HasPreview: true},
		{ChatID: "a", PreviewAt: 10, HasPreview: true},
		{ChatID: "c", PreviewAt: 30, HasPreview: true},
		{ChatID: "d", Preview: EmptyPreview},
	})
	steps := []store.Message{
		{ID: 1, ChatID: "a", CreatedAt: 40},
		{ID: 2, ChatID: "d", CreatedAt: 35},
		{ID: 3, ChatID: "b", CreatedAt: 5},
		{ID: 4, ChatID: "b", CreatedAt: 40},
	}
	check := func() {
		items := l.Items()
		for i := 1; i < len(items); i++ {
			prev, cur := items[i-1], items[i]
			if prev.PreviewAt < cur.PreviewAt || (prev.PreviewAt == cur.PreviewAt && strings.Compare(prev.ChatID, cur.ChatID) >= 0) {
				t.Fatalf("order broken at %d: %+v then %+v", i, prev, cur)
			}
		}
	}
	check()
	for _, m := range steps {
		l.ApplyMessage(m)
		check()
	}
	got := make([]string, 0, 4)
	for _, it := range l.Items() {
		got = append(got, it.ChatID)
	}
	if !slices.Equal(got, []string{"a", "b", "d", "c"}) {
		t.Errorf("order = %v, want [a b d c]", got)
	}
}

func TestChatListReplaceKeepsNewerObservedPreview(t *testing.T) {
	l := NewChatList()
	// A message for a chat the list has not loaded yet.
	l.ApplyMessage(store.Message{ID: 7, ChatID: "c2", UserID: "u3", Content: "hello", CreatedAt: 50})

	l.Replace([]ChatListItem{
		{ChatID: "c1", Preview: "x", PreviewAt: 40, HasPreview: true},
		{ChatID: "c2", Preview: EmptyPreview},
	})
	items := l.Items()
	if items[0].ChatID != "c2" || items[0].Preview != "hello" || items[0].PreviewSenderID != "u3" {
		t.Errorf("first item = %+v, want c2 with observed preview", items[0])
	}
	if ids := l.SenderIDs(); !slices.Equal(ids, []string{"u3"}) {
		t.Errorf("SenderIDs() = %v", ids)
	}
}
