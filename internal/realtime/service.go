// Package realtime is the persistent chat service: reads over the store,
// writes that announce their row changes, and filtered change streams.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/zap"
)

// ErrInvalid marks a write rejected before it reached the store.
var ErrInvalid = errors.New("invalid argument")

// Service serves chat data from the store and publishes every write as a
// store.Change on the bus.
type Service struct {
	db      *store.DB
	bus     *bus.Bus
	logger  *zap.Logger
	bufSize int
}

// NewService creates a realtime service over db, publishing on b.
func NewService(db *store.DB, b *bus.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, bus: b, logger: logger, bufSize: 256}
}

// ChatsForUser returns the chats the user participates in.
func (s *Service) ChatsForUser(ctx context.Context, userID string) ([]store.ChatSummary, error) {
	return s.db.ChatsForUser(ctx, userID)
}

// Messages returns a chat's messages ordered by creation time.
func (s *Service) Messages(ctx context.Context, chatID string) ([]store.Message, error) {
	return s.db.ListMessages(ctx, chatID)
}

// ChatMeta returns the event name(s) joined to a chat.
func (s *Service) ChatMeta(ctx context.Context, chatID string) (store.EventNames, error) {
	return s.db.ChatMeta(ctx, chatID)
}

// ParticipantCount returns the number of participants of a chat.
func (s *Service) ParticipantCount(ctx context.Context, chatID string) (int, error) {
	return s.db.CountParticipants(ctx, chatID)
}

// Profiles returns the existing profiles among userIDs.
func (s *Service) Profiles(ctx context.Context, userIDs []string) ([]store.Profile, error) {
	return s.db.Profiles(ctx, userIDs)
}

// ListActivities returns every activity with its chat id.
func (s *Service) ListActivities(ctx context.Context) ([]store.Activity, error) {
	return s.db.ListActivities(ctx)
}

// InsertMessage stores a message and announces the insert.
func (s *Service) InsertMessage(ctx context.Context, chatID, userID, content string) (store.Message, error) {
	if chatID == "" || userID == "" || strings.TrimSpace(content) == "" {
		return store.Message{}, fmt.Errorf("message: chat, user and content are required: %w", ErrInvalid)
	}
	m, err := s.db.InsertMessage(ctx, chatID, userID, content, 0)
	if err != nil {
		return store.Message{}, err
	}
	s.publish(store.Change{Table: store.TableMessages, Op: store.OpInsert, Message: &m})
	return m, nil
}

// JoinChat adds a participant. Joining twice is a no-op and announces nothing.
func (s *Service) JoinChat(ctx context.Context, chatID, userID string) (bool, error) {
	if chatID == "" || userID == "" {
		return false, fmt.Errorf("join: chat and user are required: %w", ErrInvalid)
	}
	p, added, err := s.db.AddParticipant(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	if added {
		s.publish(store.Change{Table: store.TableParticipants, Op: store.OpInsert, Participant: &p})
	}
	return added, nil
}

// LeaveChat removes a participant and announces the delete.
func (s *Service) LeaveChat(ctx context.Context, chatID, userID string) (bool, error) {
	removed, err := s.db.RemoveParticipant(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	if removed {
		s.publish(store.Change{Table: store.TableParticipants, Op: store.OpDelete,
			Participant: &store.Participant{ChatID: chatID, UserID: userID}})
	}
	return removed, nil
}

// SetProfile stores a user's display name.
func (s *Service) SetProfile(ctx context.Context, p store.Profile) error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("profile: empty user id: %w", ErrInvalid)
	}
	return s.db.UpsertProfile(ctx, p)
}

// CreateActivity stores an activity with its chat, then announces the new
// event and the organizer's membership.
func (s *Service) CreateActivity(ctx context.Context, a store.Activity) (store.Activity, error) {
	if strings.TrimSpace(a.Name) == "" || a.OrganizerID == "" {
		return store.Activity{}, fmt.Errorf("activity: name and organizer are required: %w", ErrInvalid)
	}
	created, p, err := s.db.CreateActivity(ctx, a)
	if err != nil {
		return store.Activity{}, err
	}
	s.publish(store.Change{Table: store.TableEvents, Op: store.OpInsert, Activity: &created})
	s.publish(store.Change{Table: store.TableParticipants, Op: store.OpInsert, Participant: &p})
	s.logger.Info("activity created",
		zap.String("activity_id", created.ID),
		zap.String("chat_id", created.ChatID),
		zap.String("organizer", created.OrganizerID))
	return created, nil
}

func (s *Service) publish(c store.Change) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{
		Kind:      changeKind(c.Table, c.Op),
		Timestamp: time.Now(),
		Payload:   c,
	})
}

func changeKind(table string, op store.ChangeOp) string {
	return "change." + table + "." + strings.ToLower(string(op))
}
