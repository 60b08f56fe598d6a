package api

import (
	"context"

	"github.com/matheus3301/huddle/internal/realtime"
)

// MessageService implements the MessageService gRPC service.
type MessageService struct {
	svc *realtime.Service
}

// NewMessageService creates a new message service.
func NewMessageService(svc *realtime.Service) *MessageService {
	return &MessageService{svc: svc}
}

func (s *MessageService) ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	if err := required("chat_id", req.ChatID); err != nil {
		return nil, err
	}
	msgs, err := s.svc.Messages(ctx, req.ChatID)
	if err != nil {
		return nil, toStatus("list messages", err)
	}
	return &ListMessagesResponse{Messages: msgs}, nil
}

func (s *MessageService) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	m, err := s.svc.InsertMessage(ctx, req.ChatID, req.UserID, req.Content)
	if err != nil {
		return nil, toStatus("send message", err)
	}
	return &SendMessageResponse{Message: m}, nil
}
