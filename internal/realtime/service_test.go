package realtime

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/store"
)

func testService(t *testing.T) (*Service, *store.DB, *bus.Bus) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	b := bus.New()
	return NewService(db, b, nil), db, b
}

type recvResult struct {
	change store.Change
	err    error
}

// recvAsync runs one Recv in the background.
func recvAsync(st store.ChangeStream) <-chan recvResult {
	ch := make(chan recvResult, 1)
	go func() {
		c, err := st.Recv()
		ch <- recvResult{c, err}
	}()
	return ch
}

func TestInsertMessagePublishesChange(t *testing.T) {
	svc, db, _ := testService(t)
	ctx := context.Background()
	chat, err := db.CreateChat(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	st, err := svc.Subscribe(ctx, store.ChangeFilter{Table: store.TableMessages, ChatID: chat})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	got := recvAsync(st)

	m, err := svc.InsertMessage(ctx, chat, "u1", "hello")
	if err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-got:
		if r.err != nil {
			t.Fatal(r.err)
		}
		if r.change.Op != store.OpInsert || r.change.Message == nil || r.change.Message.ID != m.ID {
			t.Errorf("change = %+v, want insert of message %d", r.change, m.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestSubscribeFiltersByChat(t *testing.T) {
	svc, db, _ := testService(t)
	ctx := context.Background()
	mine, _ := db.CreateChat(ctx, "")
	other, _ := db.CreateChat(ctx, "")

	st, err := svc.Subscribe(ctx, store.ChangeFilter{Table: store.TableMessages, ChatID: mine})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	got := recvAsync(st)

	if _, err := svc.InsertMessage(ctx, other, "u1", "not for you"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.InsertMessage(ctx, mine, "u1", "for you"); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-got:
		if r.err != nil || r.change.Message.Content != "for you" {
			t.Errorf("got %+v err=%v, want only the matching chat", r.change.Message, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestSubscribeMemberOf(t *testing.T) {
	svc, db, _ := testService(t)
	ctx := context.Background()
	mine, _ := db.CreateChat(ctx, "")
	other, _ := db.CreateChat(ctx, "")
	if _, err := svc.JoinChat(ctx, mine, "me"); err != nil {
		t.Fatal(err)
	}

	st, err := svc.Subscribe(ctx, store.ChangeFilter{Table: store.TableMessages, MemberOf: "me"})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	got := recvAsync(st)

	if _, err := svc.InsertMessage(ctx, other, "u2", "elsewhere"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.InsertMessage(ctx, mine, "u2", "here"); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-got:
		if r.err != nil || r.change.ChatID() != mine {
			t.Errorf("got chat %s err=%v, want %s", r.change.ChatID(), r.err, mine)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestJoinLeaveAnnounced(t *testing.T) {
	svc, db, _ := testService(t)
	ctx := context.Background()
	chat, _ := db.CreateChat(ctx, "")

	st, err := svc.Subscribe(ctx, store.ChangeFilter{Table: store.TableParticipants, UserID: "me"})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if added, err := svc.JoinChat(ctx, chat, "me"); err != nil || !added {
		t.Fatalf("join: added=%v err=%v", added, err)
	}
	if added, err := svc.JoinChat(ctx, chat, "me"); err != nil || added {
		t.Fatalf("second join: added=%v err=%v", added, err)
	}
	if removed, err := svc.LeaveChat(ctx, chat, "me"); err != nil || !removed {
		t.Fatalf("leave: removed=%v err=%v", removed, err)
	}

	var ops []store.ChangeOp
	for n := 0; n < 2; n++ {
		select {
		case r := <-recvAsync(st):
			if r.err != nil {
				t.Fatal(r.err)
			}
			ops = append(ops, r.change.Op)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for change")
		}
	}
	if ops[0] != store.OpInsert || ops[1] != store.OpDelete {
		t.Errorf("ops = %v, want [INSERT DELETE] with the repeated join silent", ops)
	}
}

func TestStreamReportsDrops(t *testing.T) {
	svc, db, _ := testService(t)
	svc.bufSize = 1
	ctx := context.Background()
	chat, _ := db.CreateChat(ctx, "")

	st, err := svc.Subscribe(ctx, store.ChangeFilter{Table: store.TableMessages})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	for i := 0; i < 3; i++ {
		if _, err := svc.InsertMessage(ctx, chat, "u1", "burst"); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if _, err := st.Recv(); !errors.Is(err, ErrEventsDropped) {
		t.Errorf("Recv() err = %v, want ErrEventsDropped", err)
	}
}

func TestStreamClose(t *testing.T) {
	svc, _, b := testService(t)
	st, err := svc.Subscribe(context.Background(), store.ChangeFilter{Table: store.TableMessages})
	if err != nil {
		t.Fatal(err)
	}
	got := recvAsync(st)
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	select {
	case r := <-got:
		if !errors.Is(r.err, ErrStreamClosed) {
			t.Errorf("err = %v, want ErrStreamClosed", r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not unblock on Close")
	}
	if b.Len() != 0 {
		t.Errorf("bus still has %d subscriptions", b.Len())
	}
}

func TestWritesValidateInput(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.InsertMessage(ctx, "c1", "u1", "  "); !errors.Is(err, ErrInvalid) {
		t.Errorf("InsertMessage err = %v, want ErrInvalid", err)
	}
	if _, err := svc.CreateActivity(ctx, store.Activity{OrganizerID: "u1"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("CreateActivity err = %v, want ErrInvalid", err)
	}
	if err := svc.SetProfile(ctx, store.Profile{Name: "x"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("SetProfile err = %v, want ErrInvalid", err)
	}
}

func TestCreateActivityAnnouncesOrganizer(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	st, err := svc.Subscribe(ctx, store.ChangeFilter{Table: store.TableParticipants, UserID: "org"})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	got := recvAsync(st)

	a, err := svc.CreateActivity(ctx, store.Activity{Name: "Jam session", OrganizerID: "org"})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-got:
		if r.err != nil || r.change.ChatID() != a.ChatID {
			t.Errorf("change = %+v err=%v, want organizer join of %s", r.change, r.err, a.ChatID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestCreateActivityPublishesEvent(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	st, err := svc.Subscribe(ctx, store.ChangeFilter{Table: store.TableEvents})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	got := recvAsync(st)

	a, err := svc.CreateActivity(ctx, store.Activity{Name: "Board games", OrganizerID: "org", Location: "Cafe"})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-got:
		if r.err != nil {
			t.Fatal(r.err)
		}
		if r.change.Table != store.TableEvents || r.change.Op != store.OpInsert {
			t.Errorf("change = %s %s, want events INSERT", r.change.Table, r.change.Op)
		}
		if r.change.Activity == nil || r.change.Activity.ID != a.ID || r.change.Activity.Location != "Cafe" {
			t.Errorf("activity = %+v, want %+v", r.change.Activity, a)
		}
		if r.change.ChatID() != a.ChatID || r.change.UserID() != "org" {
			t.Errorf("chat/user = %s/%s, want %s/org", r.change.ChatID(), r.change.UserID(), a.ChatID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestSubscribeRejectsUnknownTable(t *testing.T) {
	svc, _, _ := testService(t)
	if _, err := svc.Subscribe(context.Background(), store.ChangeFilter{Table: "profiles"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}
