package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/status"
	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/zap"
)

// EventKind says what a feed event means to a view.
type EventKind int

const (
	// MessageInserted carries a complete new message.
	MessageInserted EventKind = iota + 1
	// ParticipantsChanged means the chat's participant set changed in some way.
	ParticipantsChanged
	// Joined means the user was added to a chat.
	Joined
	// Left means the user was removed from a chat.
	Left
	// Resync means the feed (re)connected and changes made before it
	// registered may have been missed.
	Resync
)

func (k EventKind) String() string {
	switch k {
	case MessageInserted:
		return "message_inserted"
	case ParticipantsChanged:
		return "participants_changed"
	case Joined:
		return "joined"
	case Left:
		return "left"
	case Resync:
		return "resync"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// FeedEvent is one change routed to a view.
type FeedEvent struct {
	Kind    EventKind
	ChatID  string
	Message store.Message // set for MessageInserted
}

// ScopeKind selects which changes a subscription follows.
type ScopeKind int

const (
	// ChatMessages follows message inserts in one chat.
	ChatMessages ScopeKind = iota + 1
	// MemberMessages follows message inserts in every chat the user is in.
	MemberMessages
	// ChatParticipants follows participant changes in one chat.
	ChatParticipants
	// Memberships follows the user's own participant rows.
	Memberships
)

// Scope is the target of one subscription.
type Scope struct {
	Kind   ScopeKind
	ChatID string
	UserID string
}

// ChatMessagesScope follows new messages in chatID.
func ChatMessagesScope(chatID string) Scope { return Scope{Kind: ChatMessages, ChatID: chatID} }

// MemberMessagesScope follows new messages in the chats userID participates in.
func MemberMessagesScope(userID string) Scope { return Scope{Kind: MemberMessages, UserID: userID} }

// ChatParticipantsScope follows participant changes in chatID.
func ChatParticipantsScope(chatID string) Scope { return Scope{Kind: ChatParticipants, ChatID: chatID} }

// MembershipsScope follows userID joining and leaving chats.
func MembershipsScope(userID string) Scope { return Scope{Kind: Memberships, UserID: userID} }

// Filter returns the change filter the remote feed applies for the scope.
func (s Scope) Filter() store.ChangeFilter {
	switch s.Kind {
	case ChatMessages:
		return store.ChangeFilter{Table: store.TableMessages, Ops: []store.ChangeOp{store.OpInsert}, ChatID: s.ChatID}
	case MemberMessages:
		return store.ChangeFilter{Table: store.TableMessages, Ops: []store.ChangeOp{store.OpInsert}, MemberOf: s.UserID}
	case ChatParticipants:
		return store.ChangeFilter{Table: store.TableParticipants, ChatID: s.ChatID}
	case Memberships:
		return store.ChangeFilter{
			Table:  store.TableParticipants,
			Ops:    []store.ChangeOp{store.OpInsert, store.OpDelete},
			UserID: s.UserID,
		}
	}
	return store.ChangeFilter{}
}

func (s Scope) String() string {
	switch s.Kind {
	case ChatMessages:
		return "messages:chat:" + s.ChatID
	case MemberMessages:
		return "messages:member:" + s.UserID
	case ChatParticipants:
		return "participants:chat:" + s.ChatID
	case Memberships:
		return "participants:user:" + s.UserID
	}
	return "unknown"
}

// route turns a row change into the event the scope's view consumes.
func (s Scope) route(c store.Change) (FeedEvent, bool) {
	switch c.Table {
	case store.TableMessages:
		if c.Op != store.OpInsert || c.Message == nil {
			return FeedEvent{}, false
		}
		return FeedEvent{Kind: MessageInserted, ChatID: c.Message.ChatID, Message: *c.Message}, true
	case store.TableParticipants:
		if c.Participant == nil {
			return FeedEvent{}, false
		}
		if s.Kind == Memberships {
			switch c.Op {
			case store.OpInsert:
				return FeedEvent{Kind: Joined, ChatID: c.Participant.ChatID}, true
			case store.OpDelete:
				return FeedEvent{Kind: Left, ChatID: c.Participant.ChatID}, true
			}
			return FeedEvent{}, false
		}
		return FeedEvent{Kind: ParticipantsChanged, ChatID: c.Participant.ChatID}, true
	}
	return FeedEvent{}, false
}

// Subscriber opens feed subscriptions and keeps them alive.
type Subscriber struct {
	feed       Feed
	bus        *bus.Bus
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewSubscriber creates a subscriber over feed. Health changes are published
// on b when it is not nil.
func NewSubscriber(feed Feed, b *bus.Bus, logger *zap.Logger, minBackoff, maxBackoff time.Duration) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minBackoff <= 0 {
		minBackoff = 500 * time.Millisecond
	}
	if maxBackoff < minBackoff {
		maxBackoff = 30 * time.Second
	}
	return &Subscriber{feed: feed, bus: b, logger: logger, minBackoff: minBackoff, maxBackoff: maxBackoff}
}

// Subscription is one live feed subscription. Each change is handed to the
// handler at most once per connection. Every connection, the first included,
// starts with a Resync event; a broken one is re-established with backoff.
type Subscription struct {
	scope  Scope
	health *status.Machine
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
	handle func(FeedEvent)
}

// Subscribe starts a subscription for scope. handle is called from the
// subscription's goroutine; onHealth, if not nil, observes every health
// transition.
func (s *Subscriber) Subscribe(ctx context.Context, scope Scope, handle func(FeedEvent), onHealth func(status.State)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		scope:  scope,
		health: status.NewMachine(scope.String(), s.bus),
		logger: s.logger.With(zap.String("scope", scope.String())),
		cancel: cancel,
		done:   make(chan struct{}),
		handle: handle,
	}
	if onHealth != nil {
		sub.health.OnEnter(onHealth)
	}
	go sub.run(ctx, s)
	return sub
}

// Health returns the subscription's current health.
func (sub *Subscription) Health() status.State {
	return sub.health.Current()
}

// Close stops the subscription. No event is delivered after Close returns.
func (sub *Subscription) Close() {
	sub.cancel()
	sub.mu.Lock()
	already := sub.closed
	sub.closed = true
	sub.mu.Unlock()
	<-sub.done
	if !already {
		_ = sub.health.Transition(status.Closed)
	}
}

func (sub *Subscription) run(ctx context.Context, s *Subscriber) {
	defer close(sub.done)
	backoff := s.minBackoff
	for {
		stream, err := s.feed.Subscribe(ctx, sub.scope.Filter())
		if err == nil {
			sub.transition(status.Live)
			backoff = s.minBackoff
			// Changes made before the stream registered were never
			// delivered, including those a racing snapshot missed.
			sub.deliver(FeedEvent{Kind: Resync, ChatID: sub.scope.ChatID})
			err = sub.pump(stream)
			_ = stream.Close()
		}
		if ctx.Err() != nil {
			return
		}
		sub.logger.Warn("change feed interrupted", zap.Error(err), zap.Duration("retry_in", backoff))
		sub.transition(status.Stale)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, s.maxBackoff)
		sub.transition(status.Connecting)
	}
}

func (sub *Subscription) pump(stream store.ChangeStream) error {
	for {
		c, err := stream.Recv()
		if err != nil {
			return err
		}
		if evt, ok := sub.scope.route(c); ok {
			sub.deliver(evt)
		}
	}
}

func (sub *Subscription) deliver(evt FeedEvent) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	sub.handle(evt)
}

func (sub *Subscription) transition(to status.State) {
	if err := sub.health.Transition(to); err != nil {
		sub.logger.Debug("health transition skipped", zap.Error(err))
	}
}
