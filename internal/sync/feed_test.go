package sync

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/status"
	"github.com/matheus3301/huddle/internal/store"
)

func TestScopeRouting(t *testing.T) {
	m := msg(1, "c1", "u1", 10)
	join := store.Change{Table: store.TableParticipants, Op: store.OpInsert, Participant: &store.Participant{ChatID: "c2", UserID: "me"}}
	leave := store.Change{Table: store.TableParticipants, Op: store.OpDelete, Participant: &store.Participant{ChatID: "c2", UserID: "me"}}

	tests := []struct {
		name   string
		scope  Scope
		change store.Change
		want   EventKind
		ok     bool
	}{
		{"chat message", ChatMessagesScope("c1"), insertChange(m), MessageInserted, true},
		{"member message", MemberMessagesScope("me"), insertChange(m), MessageInserted, true},
		{"participant in room", ChatParticipantsScope("c2"), join, ParticipantsChanged, true},
		{"participant left room", ChatParticipantsScope("c2"), leave, ParticipantsChanged, true},
		{"own join", MembershipsScope("me"), join, Joined, true},
		{"own leave", MembershipsScope("me"), leave, Left, true},
		{"message update ignored", ChatMessagesScope("c1"), store.Change{Table: store.TableMessages, Op: store.OpUpdate, Message: &m}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, ok := tt.scope.route(tt.change)
			if ok != tt.ok || evt.Kind != tt.want {
				t.Errorf("route() = %v, %v; want %v, %v", evt.Kind, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestScopeFilter(t *testing.T) {
	f := MembershipsScope("me").Filter()
	if f.Table != store.TableParticipants || f.UserID != "me" || len(f.Ops) != 2 {
		t.Errorf("memberships filter = %+v", f)
	}
	f = MemberMessagesScope("me").Filter()
	if f.Table != store.TableMessages || f.MemberOf != "me" || f.UserID != "" {
		t.Errorf("member messages filter = %+v", f)
	}
}

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []FeedEvent
}

func (r *recorder) handle(evt FeedEvent) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func TestSubscriptionDeliversEvents(t *testing.T) {
	feed := &fakeFeed{}
	s := NewSubscriber(feed, nil, nil, 10*time.Millisecond, 20*time.Millisecond)
	rec := &recorder{}

	sub := s.Subscribe(context.Background(), ChatMessagesScope("c1"), rec.handle, nil)
	defer sub.Close()
	waitFor(t, "stream opened", func() bool { return feed.open() == 1 })
	waitFor(t, "live", func() bool { return sub.Health() == status.Live })

	feed.Publish(insertChange(msg(1, "c1", "u1", 10)))
	feed.Publish(insertChange(msg(2, "other", "u1", 10)))
	feed.Publish(insertChange(msg(3, "c1", "u1", 10)))

	waitFor(t, "three events", func() bool { return len(rec.kinds()) == 3 })
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.events[0].Kind != Resync {
		t.Errorf("first event = %s, want the connect Resync", rec.events[0].Kind)
	}
	if rec.events[1].Message.ID != 1 || rec.events[2].Message.ID != 3 {
		t.Errorf("events = %+v", rec.events)
	}
}

func TestSubscriptionReconnectsWithResync(t *testing.T) {
	feed := &fakeFeed{}
	b := bus.New()
	statusSub := b.Subscribe(bus.KindFeedStatus, 64)
	defer statusSub.Close()

	s := NewSubscriber(feed, b, nil, 5*time.Millisecond, 10*time.Millisecond)
	rec := &recorder{}
	sub := s.Subscribe(context.Background(), ChatMessagesScope("c1"), rec.handle, nil)
	defer sub.Close()
	waitFor(t, "stream opened", func() bool { return feed.open() == 1 })

	feed.setFailures(2)
	feed.Break()

	waitFor(t, "resubscribed", func() bool { return feed.subscribeCalls() == 4 && feed.open() == 1 })
	waitFor(t, "resync", func() bool {
		return slices.Equal(rec.kinds(), []EventKind{Resync, Resync})
	})
	waitFor(t, "live again", func() bool { return sub.Health() == status.Live })

	sawStale := false
	for len(statusSub.C()) > 0 {
		evt := <-statusSub.C()
		if evt.Payload.(status.StatusChange).To == status.Stale {
			sawStale = true
		}
	}
	if !sawStale {
		t.Error("no STALE transition published")
	}
}

func TestSubscriptionInitialFailureResyncs(t *testing.T) {
	feed := &fakeFeed{failSubscribe: 1}
	s := NewSubscriber(feed, nil, nil, 5*time.Millisecond, 10*time.Millisecond)
	rec := &recorder{}

	sub := s.Subscribe(context.Background(), MembershipsScope("me"), rec.handle, nil)
	defer sub.Close()

	waitFor(t, "resync", func() bool {
		k := rec.kinds()
		return len(k) == 1 && k[0] == Resync
	})
}

func TestSubscriptionCloseIsSynchronous(t *testing.T) {
	feed := &fakeFeed{}
	s := NewSubscriber(feed, nil, nil, 0, 0)
	var delivered atomic.Int32
	var states []status.State
	var mu sync.Mutex

	sub := s.Subscribe(context.Background(), ChatMessagesScope("c1"), func(FeedEvent) {
		delivered.Add(1)
	}, func(st status.State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})
	waitFor(t, "stream opened", func() bool { return feed.open() == 1 })

	sub.Close()
	if feed.open() != 0 {
		t.Error("stream still open after Close")
	}
	base := delivered.Load()
	feed.Publish(insertChange(msg(1, "c1", "u1", 10)))
	time.Sleep(20 * time.Millisecond)
	if n := delivered.Load() - base; n != 0 {
		t.Errorf("delivered %d events after Close", n)
	}
	if sub.Health() != status.Closed {
		t.Errorf("health = %s, want CLOSED", sub.Health())
	}
	sub.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(states) == 0 || states[len(states)-1] != status.Closed {
		t.Errorf("health callbacks = %v, want to end in CLOSED", states)
	}
}
