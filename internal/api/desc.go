package api

import (
	"context"

	"google.golang.org/grpc"
)

// Fully qualified service names.
const (
	SessionServiceName  = "huddle.v1.SessionService"
	ChatServiceName     = "huddle.v1.ChatService"
	MessageServiceName  = "huddle.v1.MessageService"
	ProfileServiceName  = "huddle.v1.ProfileService"
	ActivityServiceName = "huddle.v1.ActivityService"
	FeedServiceName     = "huddle.v1.FeedService"
)

// Method returns the full gRPC method path for service and method.
func Method(service, method string) string {
	return "/" + service + "/" + method
}

type SessionServer interface {
	GetSessionStatus(context.Context, *GetSessionStatusRequest) (*GetSessionStatusResponse, error)
}

type ChatServer interface {
	ListChats(context.Context, *ListChatsRequest) (*ListChatsResponse, error)
	GetChatMeta(context.Context, *GetChatMetaRequest) (*GetChatMetaResponse, error)
	CountParticipants(context.Context, *CountParticipantsRequest) (*CountParticipantsResponse, error)
	JoinChat(context.Context, *MembershipRequest) (*MembershipResponse, error)
	LeaveChat(context.Context, *MembershipRequest) (*MembershipResponse, error)
}

type MessageServer interface {
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
}

type ProfileServer interface {
	GetProfiles(context.Context, *GetProfilesRequest) (*GetProfilesResponse, error)
	SetProfile(context.Context, *SetProfileRequest) (*SetProfileResponse, error)
}

type ActivityServer interface {
	CreateActivity(context.Context, *CreateActivityRequest) (*CreateActivityResponse, error)
	ListActivities(context.Context, *ListActivitiesRequest) (*ListActivitiesResponse, error)
}

// WatchServer is the server side of a Watch stream.
type WatchServer interface {
	Send(*ChangeEnvelope) error
	Context() context.Context
}

type FeedServer interface {
	Watch(*WatchRequest, WatchServer) error
}

// unary builds a method descriptor that decodes Req, runs call and honours
// the server's interceptor chain.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := Method(service, method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionServiceName, "GetSessionStatus", SessionServer.GetSessionStatus),
	},
}

var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ChatServiceName, "ListChats", ChatServer.ListChats),
		unary(ChatServiceName, "GetChatMeta", ChatServer.GetChatMeta),
		unary(ChatServiceName, "CountParticipants", ChatServer.CountParticipants),
		unary(ChatServiceName, "JoinChat", ChatServer.JoinChat),
		unary(ChatServiceName, "LeaveChat", ChatServer.LeaveChat),
	},
}

var MessageServiceDesc = grpc.ServiceDesc{
	ServiceName: MessageServiceName,
	HandlerType: (*MessageServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MessageServiceName, "ListMessages", MessageServer.ListMessages),
		unary(MessageServiceName, "SendMessage", MessageServer.SendMessage),
	},
}

var ProfileServiceDesc = grpc.ServiceDesc{
	ServiceName: ProfileServiceName,
	HandlerType: (*ProfileServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ProfileServiceName, "GetProfiles", ProfileServer.GetProfiles),
		unary(ProfileServiceName, "SetProfile", ProfileServer.SetProfile),
	},
}

var ActivityServiceDesc = grpc.ServiceDesc{
	ServiceName: ActivityServiceName,
	HandlerType: (*ActivityServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ActivityServiceName, "CreateActivity", ActivityServer.CreateActivity),
		unary(ActivityServiceName, "ListActivities", ActivityServer.ListActivities),
	},
}

var FeedServiceDesc = grpc.ServiceDesc{
	ServiceName: FeedServiceName,
	HandlerType: (*FeedServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(FeedServer).Watch(in, &watchServer{stream})
			},
		},
	},
}

type watchServer struct {
	grpc.ServerStream
}

func (w *watchServer) Send(env *ChangeEnvelope) error {
	return w.ServerStream.SendMsg(env)
}

// Services bundles the implementations registered on a server.
type Services struct {
	Session  SessionServer
	Chat     ChatServer
	Message  MessageServer
	Profile  ProfileServer
	Activity ActivityServer
	Feed     FeedServer
}

// Register adds every non-nil service to srv.
func Register(srv *grpc.Server, s Services) {
	if s.Session != nil {
		srv.RegisterService(&SessionServiceDesc, s.Session)
	}
	if s.Chat != nil {
		srv.RegisterService(&ChatServiceDesc, s.Chat)
	}
	if s.Message != nil {
		srv.RegisterService(&MessageServiceDesc, s.Message)
	}
	if s.Profile != nil {
		srv.RegisterService(&ProfileServiceDesc, s.Profile)
	}
	if s.Activity != nil {
		srv.RegisterService(&ActivityServiceDesc, s.Activity)
	}
	if s.Feed != nil {
		srv.RegisterService(&FeedServiceDesc, s.Feed)
	}
}
