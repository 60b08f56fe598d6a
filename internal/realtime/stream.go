package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/zap"
)

// ErrEventsDropped is returned by Recv once the stream fell behind and lost
// changes. The consumer should resubscribe and re-read its state.
var ErrEventsDropped = errors.New("change stream overflowed, changes were dropped")

// ErrStreamClosed is returned by Recv after Close.
var ErrStreamClosed = errors.New("change stream closed")

// Stream is a filtered view of the change bus.
type Stream struct {
	ctx    context.Context
	svc    *Service
	sub    *bus.Subscription
	filter store.ChangeFilter

	done      chan struct{}
	closeOnce sync.Once
}

// Subscribe opens a change stream for filter. The stream ends when ctx is
// cancelled or Close is called.
func (s *Service) Subscribe(ctx context.Context, filter store.ChangeFilter) (store.ChangeStream, error) {
	if s.bus == nil {
		return nil, errors.New("realtime: no bus configured")
	}
	if !store.KnownTable(filter.Table) {
		return nil, fmt.Errorf("subscribe: unknown table %q: %w", filter.Table, ErrInvalid)
	}
	namespace := "change."
	if filter.Table != "" {
		namespace += filter.Table + "."
	}
	s.logger.Debug("change stream opened",
		zap.String("table", filter.Table),
		zap.String("chat_id", filter.ChatID),
		zap.String("user_id", filter.UserID),
		zap.String("member_of", filter.MemberOf))
	return &Stream{
		ctx:    ctx,
		svc:    s,
		sub:    s.bus.Subscribe(namespace, s.bufSize),
		filter: filter,
		done:   make(chan struct{}),
	}, nil
}

// Recv returns the next change matching the filter.
func (st *Stream) Recv() (store.Change, error) {
	for {
		if st.sub.Dropped() > 0 {
			return store.Change{}, ErrEventsDropped
		}
		select {
		case <-st.done:
			return store.Change{}, ErrStreamClosed
		case <-st.ctx.Done():
			return store.Change{}, st.ctx.Err()
		case evt := <-st.sub.C():
			c, ok := evt.Payload.(store.Change)
			if !ok || !st.filter.Matches(c) {
				continue
			}
			if st.filter.MemberOf != "" {
				member, err := st.svc.db.IsParticipant(st.ctx, c.ChatID(), st.filter.MemberOf)
				if err != nil {
					return store.Change{}, err
				}
				if !member {
					continue
				}
			}
			return c, nil
		}
	}
}

// Close releases the bus subscription and unblocks Recv.
func (st *Stream) Close() error {
	st.closeOnce.Do(func() {
		st.sub.Close()
		close(st.done)
	})
	return nil
}
