package sync

import (
	"context"

	"github.com/matheus3301/huddle/internal/store"
)

// ProfileFetcher looks up display names for user ids.
type ProfileFetcher interface {
	Profiles(ctx context.Context, userIDs []string) ([]store.Profile, error)
}

// Backend is the remote chat service the engine reads from and writes to.
type Backend interface {
	ProfileFetcher
	ChatsForUser(ctx context.Context, userID string) ([]store.ChatSummary, error)
	Messages(ctx context.Context, chatID string) ([]store.Message, error)
	ChatMeta(ctx context.Context, chatID string) (store.EventNames, error)
	ParticipantCount(ctx context.Context, chatID string) (int, error)
	InsertMessage(ctx context.Context, chatID, userID, content string) (store.Message, error)
}

// Feed opens change streams on the remote service.
type Feed interface {
	Subscribe(ctx context.Context, filter store.ChangeFilter) (store.ChangeStream, error)
}
