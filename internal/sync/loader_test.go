package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/huddle/internal/store"
)

func TestNormalizeEventName(t *testing.T) {
	tests := []struct {
		name  string
		names store.EventNames
		want  string
	}{
		{"none", store.EventNames{Kind: store.JoinNone}, UnknownGroup},
		{"one", store.EventNames{Kind: store.JoinOne, Names: []string{"Picnic"}}, "Picnic"},
		{"many takes first", store.EventNames{Kind: store.JoinMany, Names: []string{"Run", "Swim"}}, "Run"},
		{"empty many", store.EventNames{Kind: store.JoinMany}, UnknownGroup},
		{"blank name", store.EventNames{Kind: store.JoinOne, Names: []string{""}}, UnknownGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEventName(tt.names, UnknownGroup); got != tt.want {
				t.Errorf("NormalizeEventName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadChatList(t *testing.T) {
	b := newFakeBackend()
	b.chats["me"] = []store.ChatSummary{
		{ChatID: "quiet", Event: store.EventNames{Kind: store.JoinOne, Names: []string{"Chess"}}},
		{ChatID: "busy", Event: store.EventNames{Kind: store.JoinNone}, Messages: []store.MessagePreview{
			{UserID: "u1", Content: "first", CreatedAt: 10},
			{UserID: "u2", Content: "latest", CreatedAt: 30},
		}},
		{ChatID: "a-tie", Messages: []store.MessagePreview{{UserID: "u1", Content: "tie", CreatedAt: 30}}},
	}
	l := NewLoader(b, nil)

	items, err := l.LoadChatList(context.Background(), "me")
	if err != nil {
		t.Fatal(err)
	}
	order := []string{"a-tie", "busy", "quiet"}
	if len(items) != len(order) {
		t.Fatalf("got %d items, want %d", len(items), len(order))
	}
	for i, id := range order {
		if items[i].ChatID != id {
			t.Errorf("items[%d] = %s, want %s", i, items[i].ChatID, id)
		}
	}
	if busy := items[1]; busy.Preview != "latest" || busy.PreviewSenderID != "u2" || busy.EventName != UnknownEvent {
		t.Errorf("busy = %+v", busy)
	}
	if quiet := items[2]; quiet.HasPreview || quiet.Preview != EmptyPreview || quiet.EventName != "Chess" {
		t.Errorf("quiet = %+v", quiet)
	}
}

func TestLoadChatListErrorIsNotEmpty(t *testing.T) {
	b := newFakeBackend()
	b.chatsErr = errors.New("timeout")
	l := NewLoader(b, nil)

	items, err := l.LoadChatList(context.Background(), "me")
	if err == nil {
		t.Fatal("expected error")
	}
	if items != nil {
		t.Errorf("items = %v, want nil on failure", items)
	}
}

func TestLoadChatRoom(t *testing.T) {
	b := newFakeBackend()
	b.messages["c1"] = []store.Message{msg(1, "c1", "u1", 10), msg(2, "c1", "u2", 20)}
	b.meta["c1"] = store.EventNames{Kind: store.JoinMany, Names: []string{"Hike", "Backup hike"}}
	b.counts["c1"] = 4
	l := NewLoader(b, nil)

	snap, err := l.LoadChatRoom(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if !snap.MessagesLoaded || len(snap.Messages) != 2 {
		t.Errorf("messages = %+v", snap.Messages)
	}
	if snap.Name != "Hike" || snap.Participants != 4 {
		t.Errorf("snap = %+v", snap)
	}
}

func TestLoadChatRoomPartialFailure(t *testing.T) {
	b := newFakeBackend()
	b.messagesErr = errors.New("messages down")
	b.countErr = errors.New("count down")
	l := NewLoader(b, nil)

	snap, err := l.LoadChatRoom(context.Background(), "gone")
	if err == nil {
		t.Fatal("expected combined error")
	}
	if snap.MessagesLoaded || snap.ParticipantsLoaded {
		t.Errorf("failed parts reported loaded: %+v", snap)
	}
	if !snap.NameLoaded || snap.Name != ChatNotFound {
		t.Errorf("name = %q loaded=%v, want %q", snap.Name, snap.NameLoaded, ChatNotFound)
	}
	if !errors.Is(err, b.messagesErr) || !errors.Is(err, b.countErr) {
		t.Errorf("err = %v, want both failures", err)
	}
}
