package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/outbox"
	"github.com/matheus3301/huddle/internal/status"
	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrEngineClosed is returned when activating a view on a closed engine.
var ErrEngineClosed = errors.New("sync engine closed")

// Options configures an Engine.
type Options struct {
	Bus        *bus.Bus
	Logger     *zap.Logger
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Engine keeps the chat list and one chat room materialized. At most one
// view of each kind is active; activating a view replaces the previous one.
type Engine struct {
	loader     *Loader
	resolver   *Resolver
	subscriber *Subscriber
	sender     *outbox.Sender
	logger     *zap.Logger

	mu     sync.Mutex
	list   *ChatListView
	room   *ChatRoomView
	closed bool
}

// NewEngine creates an engine over the remote backend and change feed.
func NewEngine(backend Backend, feed Feed, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		loader:     NewLoader(backend, logger.Named("loader")),
		resolver:   NewResolver(backend, logger.Named("identity")),
		subscriber: NewSubscriber(feed, opts.Bus, logger.Named("feed"), opts.MinBackoff, opts.MaxBackoff),
		sender:     outbox.NewSender(backend, opts.Bus, logger.Named("outbox")),
		logger:     logger,
	}
}

// Resolver returns the identity cache shared by the engine's views.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// ActivateChatListView starts materializing userID's chat list. The view
// lives until it is deactivated, replaced, or ctx is cancelled.
func (e *Engine) ActivateChatListView(ctx context.Context, userID string) (*ChatListView, error) {
	if userID == "" {
		return nil, errors.New("activate chat list: user id is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	e.deactivateList()
	v := newChatListView(ctx, e, userID)
	v.start()
	e.list = v
	e.logger.Debug("chat list view activated", zap.String("user_id", userID))
	return v, nil
}

// DeactivateChatListView stops the active chat list view. Its
// subscriptions are released before this returns.
func (e *Engine) DeactivateChatListView() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deactivateList()
}

func (e *Engine) deactivateList() {
	if e.list == nil {
		return
	}
	e.list.core.close()
	e.logger.Debug("chat list view deactivated", zap.String("user_id", e.list.userID))
	e.list = nil
}

// ActivateChatRoomView starts materializing chatID's room.
func (e *Engine) ActivateChatRoomView(ctx context.Context, chatID string) (*ChatRoomView, error) {
	if chatID == "" {
		return nil, errors.New("activate chat room: chat id is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	e.deactivateRoom()
	v := newChatRoomView(ctx, e, chatID)
	v.start()
	e.room = v
	e.logger.Debug("chat room view activated", zap.String("chat_id", chatID))
	return v, nil
}

// DeactivateChatRoomView stops the active chat room view.
func (e *Engine) DeactivateChatRoomView() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deactivateRoom()
}

func (e *Engine) deactivateRoom() {
	if e.room == nil {
		return
	}
	e.room.core.close()
	e.logger.Debug("chat room view deactivated", zap.String("chat_id", e.room.chatID))
	e.room = nil
}

// SendMessage writes a message. Views pick it up from the change feed.
func (e *Engine) SendMessage(ctx context.Context, chatID, userID, text string) error {
	return e.sender.Send(ctx, chatID, userID, text)
}

// Close deactivates every view. Activations after Close fail.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.deactivateList()
	e.deactivateRoom()
}

// viewCore is the event loop shared by both views. Every mutation of a
// view's state runs on the loop goroutine; async work posts its result back.
type viewCore struct {
	ctx     context.Context
	cancel  context.CancelFunc
	inbox   chan func()
	done    chan struct{}
	updates chan struct{}
	logger  *zap.Logger

	wg   sync.WaitGroup
	subs []*Subscription

	healthMu sync.Mutex
	stale    map[string]bool

	minBackoff time.Duration
	maxBackoff time.Duration

	namesMu     sync.Mutex
	unavailable map[string]bool // ids whose last lookup failed
	namesErr    error
}

func newViewCore(parent context.Context, logger *zap.Logger, s *Subscriber) *viewCore {
	ctx, cancel := context.WithCancel(parent)
	return &viewCore{
		ctx:         ctx,
		cancel:      cancel,
		inbox:       make(chan func(), 64),
		done:        make(chan struct{}),
		updates:     make(chan struct{}, 1),
		logger:      logger,
		stale:       make(map[string]bool),
		minBackoff:  s.minBackoff,
		maxBackoff:  s.maxBackoff,
		unavailable: make(map[string]bool),
	}
}

func (c *viewCore) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case fn := <-c.inbox:
			if c.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

// post queues fn on the loop. It reports false once the view is closed.
func (c *viewCore) post(fn func()) bool {
	if c.ctx.Err() != nil {
		return false
	}
	select {
	case c.inbox <- fn:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// async runs fn off the loop with the view's context.
func (c *viewCore) async(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

func (c *viewCore) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

func (c *viewCore) subscribe(s *Subscriber, scope Scope, handle func(FeedEvent)) {
	name := scope.String()
	sub := s.Subscribe(c.ctx, scope, func(evt FeedEvent) {
		c.post(func() { handle(evt) })
	}, func(st status.State) {
		c.healthMu.Lock()
		c.stale[name] = st == status.Stale
		c.healthMu.Unlock()
		c.notify()
	})
	c.subs = append(c.subs, sub)
}

func (c *viewCore) isStale() bool {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	for _, s := range c.stale {
		if s {
			return true
		}
	}
	return false
}

// close cancels the view, waits for the loop and async work, then releases
// the subscriptions. Nothing is applied to the view afterwards.
func (c *viewCore) close() {
	c.cancel()
	<-c.done
	c.wg.Wait()
	for _, sub := range c.subs {
		sub.Close()
	}
}

// resolveSenders looks up names for ids not cached yet. Ids whose lookup
// fails are marked unavailable and retried with backoff until they resolve
// or the view closes.
func (c *viewCore) resolveSenders(r *Resolver, ids []string) {
	want := r.Unresolved(ids)
	if len(want) == 0 {
		return
	}
	c.async(func(ctx context.Context) {
		backoff := c.minBackoff
		for {
			_, err := r.Resolve(ctx, want)
			if ctx.Err() != nil {
				return
			}
			missing := r.Unresolved(want)
			c.trackNames(want, missing, err)
			c.notify()
			if len(missing) == 0 {
				return
			}
			c.logger.Warn("sender names unavailable",
				zap.Int("ids", len(missing)), zap.Duration("retry_in", backoff), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.maxBackoff)
			want = missing
		}
	})
}

// trackNames records the outcome of a lookup of ids, of which missing are
// still unresolved.
func (c *viewCore) trackNames(ids, missing []string, err error) {
	c.namesMu.Lock()
	defer c.namesMu.Unlock()
	for _, id := range ids {
		delete(c.unavailable, id)
	}
	for _, id := range missing {
		c.unavailable[id] = true
	}
	switch {
	case len(c.unavailable) == 0:
		c.namesErr = nil
	case err != nil:
		c.namesErr = err
	}
}

// senderName returns the display name for id, or PendingName or
// UnavailableName while it is unresolved.
func (c *viewCore) senderName(r *Resolver, id string) (name string, resolved, unavailable bool) {
	if name, ok := r.Name(id); ok {
		return name, true, false
	}
	c.namesMu.Lock()
	defer c.namesMu.Unlock()
	if c.unavailable[id] {
		return UnavailableName, false, true
	}
	return PendingName, false, false
}

func (c *viewCore) namesError() error {
	c.namesMu.Lock()
	defer c.namesMu.Unlock()
	return c.namesErr
}

// ChatListEntry is a chat list row with its preview sender's name.
type ChatListEntry struct {
	ChatListItem
	SenderName  string
	Resolved    bool
	Unavailable bool // the name lookup failed and is being retried
}

// ChatListState is a copy of a chat list view's materialized state.
type ChatListState struct {
	UserID  string
	Items   []ChatListEntry
	Loaded  bool // a snapshot has been applied at least once
	Loading bool
	Err     error // last snapshot failure, cleared by the next success
	Stale   bool  // a feed subscription is down
	// NamesErr is the last failed name lookup while any sender name is
	// unavailable.
	NamesErr error
}

// ChatListView is the live chat list of one user.
type ChatListView struct {
	core     *viewCore
	engine   *Engine
	userID   string
	resolver *Resolver

	mu      sync.Mutex
	list    *ChatList
	loaded  bool
	loading bool
	err     error
	issued  uint64
	applied uint64
}

func newChatListView(ctx context.Context, e *Engine, userID string) *ChatListView {
	logger := e.logger.With(zap.String("view", "chat_list"), zap.String("user_id", userID))
	return &ChatListView{
		core:     newViewCore(ctx, logger, e.subscriber),
		engine:   e,
		userID:   userID,
		resolver: e.resolver,
		list:     NewChatList(),
	}
}

func (v *ChatListView) start() {
	v.core.subscribe(v.engine.subscriber, MemberMessagesScope(v.userID), v.apply)
	v.core.subscribe(v.engine.subscriber, MembershipsScope(v.userID), v.apply)
	go v.core.loop()
	v.core.post(v.refresh)
}

// Updates signals that State may have changed. Signals coalesce.
func (v *ChatListView) Updates() <-chan struct{} { return v.core.updates }

// State returns a copy of the current materialized chat list.
func (v *ChatListView) State() ChatListState {
	v.mu.Lock()
	items := v.list.Items()
	st := ChatListState{
		UserID:  v.userID,
		Loaded:  v.loaded,
		Loading: v.loading,
		Err:     v.err,
	}
	v.mu.Unlock()

	st.Stale = v.core.isStale()
	st.NamesErr = v.core.namesError()
	st.Items = make([]ChatListEntry, len(items))
	for i, it := range items {
		st.Items[i] = ChatListEntry{ChatListItem: it}
		if it.PreviewSenderID == "" {
			continue
		}
		e := &st.Items[i]
		e.SenderName, e.Resolved, e.Unavailable = v.core.senderName(v.resolver, it.PreviewSenderID)
	}
	return st
}

// Refresh re-reads the chat list snapshot.
func (v *ChatListView) Refresh() { v.core.post(v.refresh) }

func (v *ChatListView) refresh() {
	v.mu.Lock()
	v.issued++
	seq := v.issued
	v.loading = true
	v.mu.Unlock()
	v.core.notify()

	v.core.async(func(ctx context.Context) {
		items, err := v.engine.loader.LoadChatList(ctx, v.userID)
		v.core.post(func() { v.applySnapshot(seq, items, err) })
	})
}

func (v *ChatListView) applySnapshot(seq uint64, items []ChatListItem, err error) {
	v.mu.Lock()
	if seq <= v.applied {
		v.mu.Unlock()
		return
	}
	v.applied = seq
	if seq == v.issued {
		v.loading = false
	}
	if err != nil {
		v.err = err
		v.mu.Unlock()
		v.core.logger.Warn("chat list snapshot failed", zap.Error(err))
		v.core.notify()
		return
	}
	v.list.Replace(items)
	v.loaded = true
	v.err = nil
	senders := v.list.SenderIDs()
	v.mu.Unlock()

	v.core.notify()
	v.core.resolveSenders(v.resolver, senders)
}

func (v *ChatListView) apply(evt FeedEvent) {
	switch evt.Kind {
	case MessageInserted:
		v.mu.Lock()
		changed := v.list.ApplyMessage(evt.Message)
		v.mu.Unlock()
		if changed {
			v.core.notify()
			v.core.resolveSenders(v.resolver, []string{evt.Message.UserID})
		}
	case Joined, Left, Resync:
		v.core.logger.Debug("chat list refetch", zap.Stringer("cause", evt.Kind), zap.String("chat_id", evt.ChatID))
		v.refresh()
	}
}

// TimelineEntry is a message with its sender's display name.
type TimelineEntry struct {
	store.Message
	SenderName  string
	Resolved    bool
	Unavailable bool // the name lookup failed and is being retried
}

// ChatRoomState is a copy of a chat room view's materialized state.
type ChatRoomState struct {
	ChatID             string
	Name               string
	NameLoaded         bool
	Messages           []TimelineEntry
	Participants       int
	ParticipantsLoaded bool
	Loaded             bool
	Loading            bool
	Err                error
	Stale              bool
	NamesErr           error
}

// ChatRoomView is the live state of one chat room.
type ChatRoomView struct {
	core     *viewCore
	engine   *Engine
	chatID   string
	resolver *Resolver

	mu                 sync.Mutex
	timeline           *Timeline
	name               string
	nameLoaded         bool
	participants       int
	participantsLoaded bool
	loaded             bool
	loading            bool
	err                error
	countErr           error // last failed count re-query
	issued             uint64
	applied            uint64
	countIssued        uint64
	countApplied       uint64
}

func newChatRoomView(ctx context.Context, e *Engine, chatID string) *ChatRoomView {
	logger := e.logger.With(zap.String("view", "chat_room"), zap.String("chat_id", chatID))
	return &ChatRoomView{
		core:     newViewCore(ctx, logger, e.subscriber),
		engine:   e,
		chatID:   chatID,
		resolver: e.resolver,
		timeline: NewTimeline(chatID),
	}
}

func (v *ChatRoomView) start() {
	v.core.subscribe(v.engine.subscriber, ChatMessagesScope(v.chatID), v.apply)
	v.core.subscribe(v.engine.subscriber, ChatParticipantsScope(v.chatID), v.apply)
	go v.core.loop()
	v.core.post(v.refresh)
}

// ChatID returns the chat this view follows.
func (v *ChatRoomView) ChatID() string { return v.chatID }

// Updates signals that State may have changed. Signals coalesce.
func (v *ChatRoomView) Updates() <-chan struct{} { return v.core.updates }

// State returns a copy of the current materialized room.
func (v *ChatRoomView) State() ChatRoomState {
	v.mu.Lock()
	msgs := v.timeline.Messages()
	st := ChatRoomState{
		ChatID:             v.chatID,
		Name:               v.name,
		NameLoaded:         v.nameLoaded,
		Participants:       v.participants,
		ParticipantsLoaded: v.participantsLoaded,
		Loaded:             v.loaded,
		Loading:            v.loading,
		Err:                multierr.Combine(v.err, v.countErr),
	}
	v.mu.Unlock()

	st.Stale = v.core.isStale()
	st.NamesErr = v.core.namesError()
	st.Messages = make([]TimelineEntry, len(msgs))
	for i, m := range msgs {
		e := TimelineEntry{Message: m}
		e.SenderName, e.Resolved, e.Unavailable = v.core.senderName(v.resolver, m.UserID)
		st.Messages[i] = e
	}
	return st
}

// Refresh re-reads the room snapshot.
func (v *ChatRoomView) Refresh() { v.core.post(v.refresh) }

func (v *ChatRoomView) refresh() {
	v.mu.Lock()
	v.issued++
	v.countIssued++
	seq, countSeq := v.issued, v.countIssued
	v.loading = true
	v.mu.Unlock()
	v.core.notify()

	v.core.async(func(ctx context.Context) {
		snap, err := v.engine.loader.LoadChatRoom(ctx, v.chatID)
		v.core.post(func() { v.applySnapshot(seq, countSeq, snap, err) })
	})
}

func (v *ChatRoomView) applySnapshot(seq, countSeq uint64, snap RoomSnapshot, err error) {
	v.mu.Lock()
	if seq <= v.applied {
		v.mu.Unlock()
		return
	}
	v.applied = seq
	if seq == v.issued {
		v.loading = false
	}
	if snap.MessagesLoaded {
		v.timeline.InsertAll(snap.Messages)
		v.loaded = true
	}
	if snap.NameLoaded {
		v.name = snap.Name
		v.nameLoaded = true
	}
	if snap.ParticipantsLoaded && countSeq > v.countApplied {
		v.countApplied = countSeq
		v.participants = snap.Participants
		v.participantsLoaded = true
		v.countErr = nil
	}
	v.err = err
	senders := v.timeline.SenderIDs()
	v.mu.Unlock()

	v.core.notify()
	v.core.resolveSenders(v.resolver, senders)
}

func (v *ChatRoomView) requeryCount() {
	v.mu.Lock()
	v.countIssued++
	seq := v.countIssued
	v.mu.Unlock()

	v.core.async(func(ctx context.Context) {
		n, err := v.engine.loader.backend.ParticipantCount(ctx, v.chatID)
		v.core.post(func() { v.applyCount(seq, n, err) })
	})
}

func (v *ChatRoomView) applyCount(seq uint64, n int, err error) {
	v.mu.Lock()
	if seq <= v.countApplied {
		v.mu.Unlock()
		return
	}
	v.countApplied = seq
	if err != nil {
		v.countErr = fmt.Errorf("load participant count: %w", err)
	} else {
		v.participants = n
		v.participantsLoaded = true
		v.countErr = nil
	}
	v.mu.Unlock()
	if err != nil {
		v.core.logger.Warn("participant count re-query failed", zap.Error(err))
	}
	v.core.notify()
}

func (v *ChatRoomView) apply(evt FeedEvent) {
	if evt.ChatID != "" && evt.ChatID != v.chatID {
		return
	}
	switch evt.Kind {
	case MessageInserted:
		v.mu.Lock()
		changed := v.timeline.Insert(evt.Message)
		v.mu.Unlock()
		if changed {
			v.core.notify()
			v.core.resolveSenders(v.resolver, []string{evt.Message.UserID})
		}
	case ParticipantsChanged:
		v.requeryCount()
	case Resync:
		v.refresh()
	}
}
