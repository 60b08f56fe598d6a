// Package outbox is the outbound send path: one remote write per message,
// with the outcome announced on the bus.
package outbox

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

// ErrEmptyMessage is returned for text that is empty after trimming.
var ErrEmptyMessage = errors.New("message is empty")

// MessageWriter is the remote write used to create a message.
type MessageWriter interface {
	InsertMessage(ctx context.Context, chatID, userID, content string) (store.Message, error)
}

// SendError reports a failed remote write. Text is the original input so
// the caller can offer it again.
type SendError struct {
	ChatID string
	Text   string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send message to chat %s: %v", e.ChatID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// SendAck is the payload of a message.send_ack event.
type SendAck struct {
	ChatID    string
	MessageID int64
}

// SendFailure is the payload of a message.send_failed event.
type SendFailure struct {
	ChatID string
	Text   string
	Error  string
}

// Sender writes messages to the remote store. It never touches local views:
// the written message comes back through the change feed.
type Sender struct {
	writer MessageWriter
	bus    *bus.Bus
	logger *zap.Logger
}

// NewSender creates a sender. b may be nil.
func NewSender(w MessageWriter, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{writer: w, bus: b, logger: logger}
}

// Send trims text and writes it as a new message from userID in chatID.
func (s *Sender) Send(ctx context.Context, chatID, userID, text string) error {
	body := strings.TrimSpace(text)
	if body == "" {
		return ErrEmptyMessage
	}

	m, err := s.writer.InsertMessage(ctx, chatID, userID, body)
	if err != nil {
		s.logger.Error("failed to send message", zap.String("chat_id", chatID), zap.Error(err))
		s.publish(bus.KindSendFailed, SendFailure{ChatID: chatID, Text: text, Error: err.Error()})
		return &SendError{ChatID: chatID, Text: text, Err: err}
	}

	s.logger.Info("message sent", zap.String("chat_id", chatID), zap.Int64("message_id", m.ID))
	s.publish(bus.KindSendAck, SendAck{ChatID: chatID, MessageID: m.ID})
	return nil
}

func (s *Sender) publish(kind string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
