package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/victornm/showdown/internal/domain"
	"github.com/victornm/showdown/internal/errors"
)

const ShowdownServiceName = "showdown.v1.ShowdownService"

const (
	ShowdownService_GetState_FullMethodName       = "/" + ShowdownServiceName + "/GetState"
	ShowdownService_GetLeaderboard_FullMethodName = "/" + ShowdownServiceName + "/GetLeaderboard"
	ShowdownService_Watch_FullMethodName          = "/" + ShowdownServiceName + "/Watch"
)

// ShowdownServiceServer is the server API for the showdown.v1.ShowdownService service.
// Messages are well-known types so that no generated code is needed.
type ShowdownServiceServer interface {
	// GetState returns the state snapshot of the session.
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// GetLeaderboard returns the live leaderboard of the session.
	GetLeaderboard(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Watch streams the current state, then every public broadcast of the session.
	Watch(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

func RegisterShowdownServiceServer(s grpc.ServiceRegistrar, srv ShowdownServiceServer) {
	s.RegisterService(&ShowdownService_ServiceDesc, srv)
}

var ShowdownService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ShowdownServiceName,
	HandlerType: (*ShowdownServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetState",
			Handler:    _ShowdownService_GetState_Handler,
		},
		{
			MethodName: "GetLeaderboard",
			Handler:    _ShowdownService_GetLeaderboard_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       _ShowdownService_Watch_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "showdown/v1/showdown.proto",
}

func _ShowdownService_GetState_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShowdownServiceServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ShowdownService_GetState_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ShowdownServiceServer).GetState(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _ShowdownService_GetLeaderboard_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShowdownServiceServer).GetLeaderboard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ShowdownService_GetLeaderboard_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ShowdownServiceServer).GetLeaderboard(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _ShowdownService_Watch_Handler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ShowdownServiceServer).Watch(m, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// ShowdownServiceClient is the client API for the showdown.v1.ShowdownService service.
type ShowdownServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewShowdownServiceClient(cc grpc.ClientConnInterface) *ShowdownServiceClient {
	return &ShowdownServiceClient{cc: cc}
}

func (c *ShowdownServiceClient) GetState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ShowdownService_GetState_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ShowdownServiceClient) GetLeaderboard(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ShowdownService_GetLeaderboard_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ShowdownServiceClient) Watch(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ShowdownService_ServiceDesc.Streams[0], ShowdownService_Watch_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (a *API) GetState(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(a.ss.State())
}

func (a *API) GetLeaderboard(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	l, err := a.getLeaderboard(ctx)
	if err != nil {
		return nil, err
	}

	return toStruct(l)
}

func (a *API) Watch(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	if a.feed == nil {
		return errors.New(errors.CodeUnavailable, errors.WithMessage("Watching is disabled."))
	}

	ch, unsubscribe := a.feed.Subscribe()
	defer unsubscribe()

	send := func(b domain.Broadcast) error {
		m, err := toStruct(NewFeedMessage(b))
		if err != nil {
			return err
		}

		return stream.Send(m)
	}

	if err := send(domain.StateBroadcast(a.ss.State())); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-ch:
			if !ok {
				return nil
			}

			if err := send(b); err != nil {
				return err
			}
		}
	}
}

// toStruct converts v to a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("marshal %T: %w", v, err))
	}

	m := make(map[string]any)
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Internal(fmt.Errorf("unmarshal %T: %w", v, err))
	}

	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("new struct: %w", err))
	}

	return s, nil
}
