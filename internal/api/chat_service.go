package api

import (
	"context"

	"github.com/matheus3301/huddle/internal/realtime"
)

// ChatService implements the ChatService gRPC service.
type ChatService struct {
	svc *realtime.Service
}

// NewChatService creates a new chat service backed by the realtime service.
func NewChatService(svc *realtime.Service) *ChatService {
	return &ChatService{svc: svc}
}

func (s *ChatService) ListChats(ctx context.Context, req *ListChatsRequest) (*ListChatsResponse, error) {
	if err := required("user_id", req.UserID); err != nil {
		return nil, err
	}
	chats, err := s.svc.ChatsForUser(ctx, req.UserID)
	if err != nil {
		return nil, toStatus("list chats", err)
	}
	return &ListChatsResponse{Chats: chats}, nil
}

func (s *ChatService) GetChatMeta(ctx context.Context, req *GetChatMetaRequest) (*GetChatMetaResponse, error) {
	if err := required("chat_id", req.ChatID); err != nil {
		return nil, err
	}
	names, err := s.svc.ChatMeta(ctx, req.ChatID)
	if err != nil {
		return nil, toStatus("get chat meta", err)
	}
	return &GetChatMetaResponse{Event: names}, nil
}

func (s *ChatService) CountParticipants(ctx context.Context, req *CountParticipantsRequest) (*CountParticipantsResponse, error) {
	if err := required("chat_id", req.ChatID); err != nil {
		return nil, err
	}
	n, err := s.svc.ParticipantCount(ctx, req.ChatID)
	if err != nil {
		return nil, toStatus("count participants", err)
	}
	return &CountParticipantsResponse{Count: n}, nil
}

func (s *ChatService) JoinChat(ctx context.Context, req *MembershipRequest) (*MembershipResponse, error) {
	added, err := s.svc.JoinChat(ctx, req.ChatID, req.UserID)
	if err != nil {
		return nil, toStatus("join chat", err)
	}
	return &MembershipResponse{Changed: added}, nil
}

func (s *ChatService) LeaveChat(ctx context.Context, req *MembershipRequest) (*MembershipResponse, error) {
	removed, err := s.svc.LeaveChat(ctx, req.ChatID, req.UserID)
	if err != nil {
		return nil, toStatus("leave chat", err)
	}
	return &MembershipResponse{Changed: removed}, nil
}
