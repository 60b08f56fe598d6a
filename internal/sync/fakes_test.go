package sync

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/huddle/internal/store"
)

// fakeBackend is an in-memory Backend. Inserted messages are published on
// feed when it is set.
type fakeBackend struct {
	mu           sync.Mutex
	chats        map[string][]store.ChatSummary // by user id
	messages     map[string][]store.Message
	meta         map[string]store.EventNames
	counts       map[string]int
	profiles     map[string]string
	profileCalls [][]string
	chatsCalls   int
	countCalls   int

	chatsErr    error
	messagesErr error
	countErr    error
	profileErr  error
	// messagesGate, when set, holds Messages until it is closed.
	messagesGate chan struct{}

	feed   *fakeFeed
	nextID int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chats:    make(map[string][]store.ChatSummary),
		messages: make(map[string][]store.Message),
		meta:     make(map[string]store.EventNames),
		counts:   make(map[string]int),
		profiles: make(map[string]string),
		nextID:   100,
	}
}

func (b *fakeBackend) Profiles(_ context.Context, ids []string) ([]store.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profileCalls = append(b.profileCalls, slices.Clone(ids))
	if b.profileErr != nil {
		return nil, b.profileErr
	}
	var out []store.Profile
	for _, id := range ids {
		if name, ok := b.profiles[id]; ok {
			out = append(out, store.Profile{UserID: id, Name: name})
		}
	}
	return out, nil
}

func (b *fakeBackend) ChatsForUser(_ context.Context, userID string) ([]store.ChatSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chatsCalls++
	if b.chatsErr != nil {
		return nil, b.chatsErr
	}
	return slices.Clone(b.chats[userID]), nil
}

func (b *fakeBackend) Messages(ctx context.Context, chatID string) ([]store.Message, error) {
	b.mu.Lock()
	gate := b.messagesGate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.messagesErr != nil {
		return nil, b.messagesErr
	}
	return slices.Clone(b.messages[chatID]), nil
}

func (b *fakeBackend) ChatMeta(_ context.Context, chatID string) (store.EventNames, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	names, ok := b.meta[chatID]
	if !ok {
		return store.EventNames{}, store.ErrNotFound
	}
	return names, nil
}

func (b *fakeBackend) ParticipantCount(_ context.Context, chatID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.countCalls++
	if b.countErr != nil {
		return 0, b.countErr
	}
	return b.counts[chatID], nil
}

func (b *fakeBackend) InsertMessage(_ context.Context, chatID, userID, content string) (store.Message, error) {
	b.mu.Lock()
	b.nextID++
	m := store.Message{ID: b.nextID, ChatID: chatID, UserID: userID, Content: content, CreatedAt: b.nextID * 10}
	b.messages[chatID] = append(b.messages[chatID], m)
	feed := b.feed
	b.mu.Unlock()
	if feed != nil {
		feed.Publish(store.Change{Table: store.TableMessages, Op: store.OpInsert, Message: &m})
	}
	return m, nil
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

// fakeFeed hands out in-memory streams. MemberOf filters are not evaluated.
type fakeFeed struct {
	mu            sync.Mutex
	streams       []*fakeStream
	failSubscribe int
	subscribes    int
	// gate, when set, holds Subscribe until it is closed.
	gate chan struct{}
}

func (f *fakeFeed) Subscribe(ctx context.Context, filter store.ChangeFilter) (store.ChangeStream, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	if f.failSubscribe > 0 {
		f.failSubscribe--
		return nil, errors.New("feed unavailable")
	}
	s := &fakeStream{
		ctx:    ctx,
		filter: filter,
		ch:     make(chan store.Change, 64),
		errc:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	f.streams = append(f.streams, s)
	return s, nil
}

// Publish delivers c to every open stream whose filter matches.
func (f *fakeFeed) Publish(c store.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.streams {
		if s.isOpen() && s.filter.Matches(c) {
			s.ch <- c
		}
	}
}

// Break fails every open stream.
func (f *fakeFeed) Break() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.streams {
		if s.isOpen() {
			select {
			case s.errc <- errors.New("connection reset"):
			default:
			}
		}
	}
}

func (f *fakeFeed) setFailures(n int) {
	f.mu.Lock()
	f.failSubscribe = n
	f.mu.Unlock()
}

func (f *fakeFeed) open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.streams {
		if s.isOpen() {
			n++
		}
	}
	return n
}

func (f *fakeFeed) subscribeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

type fakeStream struct {
	ctx       context.Context
	filter    store.ChangeFilter
	ch        chan store.Change
	errc      chan error
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	failed    bool
}

func (s *fakeStream) Recv() (store.Change, error) {
	select {
	case c := <-s.ch:
		return c, nil
	case err := <-s.errc:
		s.mu.Lock()
		s.failed = true
		s.mu.Unlock()
		return store.Change{}, err
	case <-s.done:
		return store.Change{}, errors.New("stream closed")
	case <-s.ctx.Done():
		return store.Change{}, s.ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *fakeStream) isOpen() bool {
	s.mu.Lock()
	failed := s.failed
	s.mu.Unlock()
	if failed {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func msg(id int64, chatID, userID string, at int64) store.Message {
	return store.Message{ID: id, ChatID: chatID, UserID: userID, Content: "m" + string(rune('a'+id%26)), CreatedAt: at}
}

func insertChange(m store.Message) store.Change {
	return store.Change{Table: store.TableMessages, Op: store.OpInsert, Message: &m}
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func messageIDs(msgs []store.Message) []int64 {
	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}
