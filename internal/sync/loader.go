package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Fallback labels.
const (
	UnknownEvent = "Unknown Event"
	UnknownGroup = "Unknown Group"
	ChatNotFound = "Chat Not Found"
	EmptyPreview = "Tap to start chatting..."
)

// NormalizeEventName collapses a chat -> event join into one display name:
// the first name when there are several, fallback when there is none.
func NormalizeEventName(n store.EventNames, fallback string) string {
	switch n.Kind {
	case store.JoinOne, store.JoinMany:
		if len(n.Names) > 0 && n.Names[0] != "" {
			return n.Names[0]
		}
	}
	return fallback
}

// RoomSnapshot is a point-in-time read of one chat room. Each part is
// flagged separately because the parts can fail independently.
type RoomSnapshot struct {
	ChatID             string
	Messages           []store.Message
	MessagesLoaded     bool
	Name               string
	NameLoaded         bool
	Participants       int
	ParticipantsLoaded bool
}

// Loader performs one-shot snapshot reads. It never subscribes.
type Loader struct {
	backend Backend
	logger  *zap.Logger
}

// NewLoader creates a snapshot loader.
func NewLoader(backend Backend, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{backend: backend, logger: logger}
}

// LoadChatList reads the chats the user participates in and returns them
// as list items in display order.
func (l *Loader) LoadChatList(ctx context.Context, userID string) ([]ChatListItem, error) {
	chats, err := l.backend.ChatsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load chat list: %w", err)
	}
	items := make([]ChatListItem, 0, len(chats))
	for _, c := range chats {
		item := ChatListItem{
			ChatID:    c.ChatID,
			EventName: NormalizeEventName(c.Event, UnknownEvent),
			Preview:   EmptyPreview,
		}
		for _, m := range c.Messages {
			if !item.HasPreview || m.CreatedAt >= item.PreviewAt {
				item.Preview = m.Content
				item.PreviewAt = m.CreatedAt
				item.PreviewSenderID = m.UserID
				item.HasPreview = true
			}
		}
		items = append(items, item)
	}
	sortChatList(items)
	l.logger.Debug("chat list loaded", zap.String("user_id", userID), zap.Int("chats", len(items)))
	return items, nil
}

// LoadChatRoom reads a chat's messages, name and participant count. Parts
// that loaded are returned even when others failed; the failures are
// combined into the returned error.
func (l *Loader) LoadChatRoom(ctx context.Context, chatID string) (RoomSnapshot, error) {
	snap := RoomSnapshot{ChatID: chatID}
	var errs error

	msgs, err := l.backend.Messages(ctx, chatID)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("load messages: %w", err))
	} else {
		for i := range msgs {
			if msgs[i].ChatID == "" {
				msgs[i].ChatID = chatID
			}
		}
		snap.Messages = msgs
		snap.MessagesLoaded = true
	}

	names, err := l.backend.ChatMeta(ctx, chatID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		snap.Name = ChatNotFound
		snap.NameLoaded = true
	case err != nil:
		errs = multierr.Append(errs, fmt.Errorf("load chat name: %w", err))
	default:
		snap.Name = NormalizeEventName(names, UnknownGroup)
		snap.NameLoaded = true
	}

	n, err := l.backend.ParticipantCount(ctx, chatID)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("load participant count: %w", err))
	} else {
		snap.Participants = n
		snap.ParticipantsLoaded = true
	}

	if errs != nil {
		l.logger.Warn("chat room snapshot incomplete", zap.String("chat_id", chatID), zap.Error(errs))
	}
	return snap, errs
}
