package api

import "github.com/matheus3301/huddle/internal/store"

// Session service.

type GetSessionStatusRequest struct{}

type GetSessionStatusResponse struct {
	Session  string      `json:"session"`
	PID      int         `json:"pid"`
	UptimeMs int64       `json:"uptime_ms"`
	Stats    store.Stats `json:"stats"`
	Watchers int         `json:"watchers"`
}

// Chat service.

type ListChatsRequest struct {
	UserID string `json:"user_id"`
}

type ListChatsResponse struct {
	Chats []store.ChatSummary `json:"chats"`
}

type GetChatMetaRequest struct {
	ChatID string `json:"chat_id"`
}

type GetChatMetaResponse struct {
	Event store.EventNames `json:"event"`
}

type CountParticipantsRequest struct {
	ChatID string `json:"chat_id"`
}

type CountParticipantsResponse struct {
	Count int `json:"count"`
}

type MembershipRequest struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

type MembershipResponse struct {
	Changed bool `json:"changed"`
}

// Message service.

type ListMessagesRequest struct {
	ChatID string `json:"chat_id"`
}

type ListMessagesResponse struct {
	Messages []store.Message `json:"messages"`
}

type SendMessageRequest struct {
	ChatID  string `json:"chat_id"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

type SendMessageResponse struct {
	Message store.Message `json:"message"`
}

// Profile service.

type GetProfilesRequest struct {
	UserIDs []string `json:"user_ids"`
}

type GetProfilesResponse struct {
	Profiles []store.Profile `json:"profiles"`
}

type SetProfileRequest struct {
	Profile store.Profile `json:"profile"`
}

type SetProfileResponse struct{}

// Activity service.

type CreateActivityRequest struct {
	Activity store.Activity `json:"activity"`
}

type CreateActivityResponse struct {
	Activity store.Activity `json:"activity"`
}

type ListActivitiesRequest struct{}

type ListActivitiesResponse struct {
	Activities []store.Activity `json:"activities"`
}

// Feed service.

type WatchRequest struct {
	Filter store.ChangeFilter `json:"filter"`
}

// ChangeEnvelope wraps one row change sent on a Watch stream.
type ChangeEnvelope struct {
	EventID          string       `json:"event_id"`
	Session          string       `json:"session"`
	OccurredAtUnixMs int64        `json:"occurred_at_unix_ms"`
	Change           store.Change `json:"change"`
}
