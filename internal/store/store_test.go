package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fixedClock returns a clock that advances by one millisecond per call.
func fixedClock(start int64) func() int64 {
	n := start
	return func() int64 {
		n++
		return n
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
	if result.Dirty {
		t.Error("schema reported dirty")
	}
}

func TestCreateActivityEnrollsOrganizer(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	lat, lng := 37.42, -122.17
	a, p, err := db.CreateActivity(ctx, Activity{
		Name: "Sunset hike", OrganizerID: "u1", Location: "Dish trail",
		Latitude: &lat, Longitude: &lng,
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == "" || a.ChatID == "" {
		t.Fatalf("ids not assigned: %+v", a)
	}
	if p.ChatID != a.ChatID || p.UserID != "u1" {
		t.Errorf("participant = %+v, want organizer in chat %s", p, a.ChatID)
	}

	n, err := db.CountParticipants(ctx, a.ChatID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("participants = %d, want 1", n)
	}

	names, err := db.ChatMeta(ctx, a.ChatID)
	if err != nil {
		t.Fatal(err)
	}
	if names.Kind != JoinOne || names.Names[0] != "Sunset hike" {
		t.Errorf("meta = %+v, want one name Sunset hike", names)
	}

	list, err := db.ListActivities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ChatID != a.ChatID {
		t.Fatalf("activities = %+v", list)
	}
	if list[0].Latitude == nil || *list[0].Latitude != lat {
		t.Errorf("latitude = %v, want %v", list[0].Latitude, lat)
	}
}

func TestChatMeta(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	bare, err := db.CreateChat(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	names, err := db.ChatMeta(ctx, bare)
	if err != nil {
		t.Fatal(err)
	}
	if names.Kind != JoinNone {
		t.Errorf("kind = %v, want JoinNone for chat without event", names.Kind)
	}

	_, err = db.ChatMeta(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMessagesOrderedByCreation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	chat, err := db.CreateChat(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range []struct {
		content string
		at      int64
	}{{"late", 300}, {"early", 100}, {"middle", 200}} {
		if _, err := db.InsertMessage(ctx, chat, "u1", m.content, m.at); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.ListMessages(ctx, chat)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"early", "middle", "late"}
	if len(msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(want))
	}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Content, w)
		}
	}
}

func TestInsertMessageUsesClock(t *testing.T) {
	db := testDB(t)
	db.SetClock(fixedClock(999))
	ctx := context.Background()

	chat, err := db.CreateChat(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	m, err := db.InsertMessage(ctx, chat, "u1", "hi", 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.CreatedAt <= 999 {
		t.Errorf("created_at = %d, want store clock value", m.CreatedAt)
	}
	if m.ID == 0 {
		t.Error("message id not assigned")
	}
}

func TestInsertMessageUnknownChat(t *testing.T) {
	db := testDB(t)
	if _, err := db.InsertMessage(context.Background(), "nope", "u1", "hi", 0); err == nil {
		t.Error("expected foreign key error for unknown chat")
	}
}

func TestChatsForUser(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	a, _, err := db.CreateActivity(ctx, Activity{Name: "Board games", OrganizerID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	other, err := db.CreateChat(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := db.AddParticipant(ctx, other, "u1"); err != nil {
		t.Fatal(err)
	}
	notMine, err := db.CreateChat(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.InsertMessage(ctx, a.ChatID, "u2", "first", 10); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertMessage(ctx, a.ChatID, "u1", "second", 20); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertMessage(ctx, notMine, "u3", "hidden", 30); err != nil {
		t.Fatal(err)
	}

	chats, err := db.ChatsForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}
	byID := map[string]ChatSummary{}
	for _, c := range chats {
		byID[c.ChatID] = c
	}
	if got := byID[a.ChatID]; len(got.Messages) != 2 || got.Event.Names[0] != "Board games" {
		t.Errorf("activity chat = %+v", got)
	}
	if got := byID[other]; len(got.Messages) != 0 || got.Event.Kind != JoinNone {
		t.Errorf("bare chat = %+v", got)
	}
	if _, ok := byID[notMine]; ok {
		t.Error("chat the user does not participate in was returned")
	}
}

func TestParticipants(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	chat, err := db.CreateChat(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	if _, added, err := db.AddParticipant(ctx, chat, "u1"); err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	if _, added, err := db.AddParticipant(ctx, chat, "u1"); err != nil || added {
		t.Fatalf("second add: added=%v err=%v, want no-op", added, err)
	}
	if _, _, err := db.AddParticipant(ctx, chat, "u2"); err != nil {
		t.Fatal(err)
	}

	n, err := db.CountParticipants(ctx, chat)
	if err != nil || n != 2 {
		t.Fatalf("count = %d err=%v, want 2", n, err)
	}
	ok, err := db.IsParticipant(ctx, chat, "u2")
	if err != nil || !ok {
		t.Errorf("IsParticipant(u2) = %v err=%v", ok, err)
	}

	removed, err := db.RemoveParticipant(ctx, chat, "u2")
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	ok, err = db.IsParticipant(ctx, chat, "u2")
	if err != nil || ok {
		t.Errorf("IsParticipant(u2) after remove = %v err=%v", ok, err)
	}
}

func TestProfiles(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.UpsertProfile(ctx, Profile{UserID: "u1", Name: "Ada"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertProfile(ctx, Profile{UserID: "u1", Name: "Ada L."}); err != nil {
		t.Fatal(err)
	}

	got, err := db.Profiles(ctx, []string{"u1", "u2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Ada L." {
		t.Errorf("profiles = %+v, want only u1 renamed", got)
	}

	none, err := db.Profiles(ctx, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("empty lookup = %+v err=%v", none, err)
	}
}

func TestChangeFilterMatches(t *testing.T) {
	msg := Change{Table: TableMessages, Op: OpInsert, Message: &Message{ChatID: "c1", UserID: "u1"}}
	join := Change{Table: TableParticipants, Op: OpInsert, Participant: &Participant{ChatID: "c2", UserID: "u9"}}
	leave := Change{Table: TableParticipants, Op: OpDelete, Participant: &Participant{ChatID: "c2", UserID: "u9"}}

	tests := []struct {
		name   string
		filter ChangeFilter
		change Change
		want   bool
	}{
		{"table match", ChangeFilter{Table: TableMessages}, msg, true},
		{"table mismatch", ChangeFilter{Table: TableMessages}, join, false},
		{"chat match", ChangeFilter{Table: TableMessages, ChatID: "c1"}, msg, true},
		{"chat mismatch", ChangeFilter{Table: TableMessages, ChatID: "c2"}, msg, false},
		{"user match", ChangeFilter{Table: TableParticipants, UserID: "u9"}, join, true},
		{"op restricted", ChangeFilter{Table: TableParticipants, Ops: []ChangeOp{OpInsert}}, leave, false},
		{"any op", ChangeFilter{Table: TableParticipants, ChatID: "c2"}, leave, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.change); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
