// Package client talks to a huddle daemon over its Unix socket. A Client
// is the remote Backend and Feed of the sync engine.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/matheus3301/huddle/internal/api"
	"github.com/matheus3301/huddle/internal/realtime"
	"github.com/matheus3301/huddle/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, service, method string, req, resp any) error {
	if err := c.conn.Invoke(ctx, api.Method(service, method), req, resp); err != nil {
		return fromStatus(err)
	}
	return nil
}

// fromStatus maps gRPC status codes back to the package sentinels callers
// match with errors.Is.
func fromStatus(err error) error {
	st, ok := grpcstatus.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", st.Message(), store.ErrNotFound)
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w", st.Message(), realtime.ErrInvalid)
	case codes.DataLoss:
		return fmt.Errorf("%s: %w", st.Message(), realtime.ErrEventsDropped)
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}
	return err
}

// SessionStatus returns the daemon's status.
func (c *Client) SessionStatus(ctx context.Context) (*api.GetSessionStatusResponse, error) {
	resp := new(api.GetSessionStatusResponse)
	if err := c.invoke(ctx, api.SessionServiceName, "GetSessionStatus", &api.GetSessionStatusRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ChatsForUser returns the chats userID participates in.
func (c *Client) ChatsForUser(ctx context.Context, userID string) ([]store.ChatSummary, error) {
	resp := new(api.ListChatsResponse)
	if err := c.invoke(ctx, api.ChatServiceName, "ListChats", &api.ListChatsRequest{UserID: userID}, resp); err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

// ChatMeta returns the event name(s) joined to a chat.
func (c *Client) ChatMeta(ctx context.Context, chatID string) (store.EventNames, error) {
	resp := new(api.GetChatMetaResponse)
	if err := c.invoke(ctx, api.ChatServiceName, "GetChatMeta", &api.GetChatMetaRequest{ChatID: chatID}, resp); err != nil {
		return store.EventNames{}, err
	}
	return resp.Event, nil
}

// ParticipantCount returns the number of participants of a chat.
func (c *Client) ParticipantCount(ctx context.Context, chatID string) (int, error) {
	resp := new(api.CountParticipantsResponse)
	if err := c.invoke(ctx, api.ChatServiceName, "CountParticipants", &api.CountParticipantsRequest{ChatID: chatID}, resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// JoinChat adds userID to a chat and reports whether it was added.
func (c *Client) JoinChat(ctx context.Context, chatID, userID string) (bool, error) {
	resp := new(api.MembershipResponse)
	if err := c.invoke(ctx, api.ChatServiceName, "JoinChat", &api.MembershipRequest{ChatID: chatID, UserID: userID}, resp); err != nil {
		return false, err
	}
	return resp.Changed, nil
}

// LeaveChat removes userID from a chat and reports whether it was removed.
func (c *Client) LeaveChat(ctx context.Context, chatID, userID string) (bool, error) {
	resp := new(api.MembershipResponse)
	if err := c.invoke(ctx, api.ChatServiceName, "LeaveChat", &api.MembershipRequest{ChatID: chatID, UserID: userID}, resp); err != nil {
		return false, err
	}
	return resp.Changed, nil
}

// Messages returns a chat's messages in creation order.
func (c *Client) Messages(ctx context.Context, chatID string) ([]store.Message, error) {
	resp := new(api.ListMessagesResponse)
	if err := c.invoke(ctx, api.MessageServiceName, "ListMessages", &api.ListMessagesRequest{ChatID: chatID}, resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// InsertMessage writes a message.
func (c *Client) InsertMessage(ctx context.Context, chatID, userID, content string) (store.Message, error) {
	resp := new(api.SendMessageResponse)
	req := &api.SendMessageRequest{ChatID: chatID, UserID: userID, Content: content}
	if err := c.invoke(ctx, api.MessageServiceName, "SendMessage", req, resp); err != nil {
		return store.Message{}, err
	}
	return resp.Message, nil
}

// Profiles returns the existing profiles among userIDs.
func (c *Client) Profiles(ctx context.Context, userIDs []string) ([]store.Profile, error) {
	resp := new(api.GetProfilesResponse)
	if err := c.invoke(ctx, api.ProfileServiceName, "GetProfiles", &api.GetProfilesRequest{UserIDs: userIDs}, resp); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

// SetProfile stores a display name.
func (c *Client) SetProfile(ctx context.Context, p store.Profile) error {
	return c.invoke(ctx, api.ProfileServiceName, "SetProfile", &api.SetProfileRequest{Profile: p}, new(api.SetProfileResponse))
}

// CreateActivity creates an activity and its chat.
func (c *Client) CreateActivity(ctx context.Context, a store.Activity) (store.Activity, error) {
	resp := new(api.CreateActivityResponse)
	if err := c.invoke(ctx, api.ActivityServiceName, "CreateActivity", &api.CreateActivityRequest{Activity: a}, resp); err != nil {
		return store.Activity{}, err
	}
	return resp.Activity, nil
}

// ListActivities returns every activity.
func (c *Client) ListActivities(ctx context.Context) ([]store.Activity, error) {
	resp := new(api.ListActivitiesResponse)
	if err := c.invoke(ctx, api.ActivityServiceName, "ListActivities", &api.ListActivitiesRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Activities, nil
}

// Subscribe opens a Watch stream for filter.
func (c *Client) Subscribe(ctx context.Context, filter store.ChangeFilter) (store.ChangeStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	cs, err := c.conn.NewStream(ctx, &api.FeedServiceDesc.Streams[0], api.Method(api.FeedServiceName, "Watch"))
	if err != nil {
		cancel()
		return nil, fromStatus(err)
	}
	if err := cs.SendMsg(&api.WatchRequest{Filter: filter}); err != nil {
		cancel()
		return nil, fromStatus(err)
	}
	if err := cs.CloseSend(); err != nil {
		cancel()
		return nil, fromStatus(err)
	}
	return &watchStream{cs: cs, cancel: cancel}, nil
}

// Watch is Subscribe returning the full envelopes, for callers that print
// the feed.
func (c *Client) Watch(ctx context.Context, filter store.ChangeFilter, fn func(*api.ChangeEnvelope) error) error {
	st, err := c.Subscribe(ctx, filter)
	if err != nil {
		return err
	}
	ws := st.(*watchStream)
	defer func() { _ = ws.Close() }()
	for {
		env, err := ws.recvEnvelope()
		if err != nil {
			return err
		}
		if err := fn(env); err != nil {
			return err
		}
	}
}

type watchStream struct {
	cs        grpc.ClientStream
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (w *watchStream) recvEnvelope() (*api.ChangeEnvelope, error) {
	env := new(api.ChangeEnvelope)
	if err := w.cs.RecvMsg(env); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, realtime.ErrStreamClosed
		}
		return nil, fromStatus(err)
	}
	return env, nil
}

func (w *watchStream) Recv() (store.Change, error) {
	env, err := w.recvEnvelope()
	if err != nil {
		return store.Change{}, err
	}
	return env.Change, nil
}

func (w *watchStream) Close() error {
	w.closeOnce.Do(w.cancel)
	return nil
}
