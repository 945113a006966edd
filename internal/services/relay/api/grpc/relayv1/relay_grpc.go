// Package relayv1 holds the gRPC service descriptors and clients for the
// relay API. Messages are protobuf well-known Struct values, so the package
// needs no protoc toolchain; field names are documented on each method.
package relayv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const RelayServiceName = "relay.v1.RelayService"

const (
	RelayService_SendConnectionRequest_FullMethodName     = "/relay.v1.RelayService/SendConnectionRequest"
	RelayService_SendConnectionResponse_FullMethodName    = "/relay.v1.RelayService/SendConnectionResponse"
	RelayService_TransferOwnership_FullMethodName         = "/relay.v1.RelayService/TransferOwnership"
	RelayService_AddAdmin_FullMethodName                  = "/relay.v1.RelayService/AddAdmin"
	RelayService_RemoveAdmin_FullMethodName               = "/relay.v1.RelayService/RemoveAdmin"
	RelayService_ResignAdmin_FullMethodName               = "/relay.v1.RelayService/ResignAdmin"
	RelayService_SetRequestsPaused_FullMethodName         = "/relay.v1.RelayService/SetRequestsPaused"
	RelayService_SetResponsesPaused_FullMethodName        = "/relay.v1.RelayService/SetResponsesPaused"
	RelayService_SetAdminWithdrawalsPaused_FullMethodName = "/relay.v1.RelayService/SetAdminWithdrawalsPaused"
	RelayService_SetRequestFee_FullMethodName             = "/relay.v1.RelayService/SetRequestFee"
	RelayService_SetFeeToken_FullMethodName               = "/relay.v1.RelayService/SetFeeToken"
	RelayService_WithdrawTokens_FullMethodName            = "/relay.v1.RelayService/WithdrawTokens"
	RelayService_GetState_FullMethodName                  = "/relay.v1.RelayService/GetState"
	RelayService_ListRecords_FullMethodName               = "/relay.v1.RelayService/ListRecords"
	RelayService_WatchRecords_FullMethodName              = "/relay.v1.RelayService/WatchRecords"
)

// RelayServiceServer is the server API for relay.v1.RelayService.
//
// Every mutating method answers {"record": Record}. Record fields: seq, id,
// kind, time, actor and, depending on kind, to, subject, previous, token,
// amount, paused, public_key, payload, response. Addresses are 0x hex,
// amounts are decimal strings and payload/response are base64.
type RelayServiceServer interface {
	// {to, public_key, payload}
	SendConnectionRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {to, response}
	SendConnectionResponse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {new_owner}
	TransferOwnership(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {admin}
	AddAdmin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {admin}
	RemoveAdmin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResignAdmin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {paused}
	SetRequestsPaused(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {paused}
	SetResponsesPaused(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {paused}
	SetAdminWithdrawalsPaused(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {amount}
	SetRequestFee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {token}
	SetFeeToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {token, amount, recipient}
	WithdrawTokens(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {} -> {owner, admins, requests_paused, responses_paused,
	// admin_withdrawals_paused, fee_amount, fee_token, custody}
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {kinds, participant, recipient, after_seq, page_size, page_token}
	// -> {records, next_page_token}
	ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {kinds, participant, recipient, after_seq} -> stream of Record
	WatchRecords(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// UnimplementedRelayServiceServer can be embedded to have forward compatible implementations.
type UnimplementedRelayServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedRelayServiceServer) SendConnectionRequest(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SendConnectionRequest")
}
func (UnimplementedRelayServiceServer) SendConnectionResponse(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SendConnectionResponse")
}
func (UnimplementedRelayServiceServer) TransferOwnership(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("TransferOwnership")
}
func (UnimplementedRelayServiceServer) AddAdmin(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("AddAdmin")
}
func (UnimplementedRelayServiceServer) RemoveAdmin(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("RemoveAdmin")
}
func (UnimplementedRelayServiceServer) ResignAdmin(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("ResignAdmin")
}
func (UnimplementedRelayServiceServer) SetRequestsPaused(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetRequestsPaused")
}
func (UnimplementedRelayServiceServer) SetResponsesPaused(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetResponsesPaused")
}
func (UnimplementedRelayServiceServer) SetAdminWithdrawalsPaused(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetAdminWithdrawalsPaused")
}
func (UnimplementedRelayServiceServer) SetRequestFee(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetRequestFee")
}
func (UnimplementedRelayServiceServer) SetFeeToken(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("SetFeeToken")
}
func (UnimplementedRelayServiceServer) WithdrawTokens(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("WithdrawTokens")
}
func (UnimplementedRelayServiceServer) GetState(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("GetState")
}
func (UnimplementedRelayServiceServer) ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("ListRecords")
}
func (UnimplementedRelayServiceServer) WatchRecords(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error {
	return unimplemented("WatchRecords")
}

// RegisterRelayServiceServer registers the relay service on a gRPC server.
func RegisterRelayServiceServer(s grpc.ServiceRegistrar, srv RelayServiceServer) {
	s.RegisterService(&RelayService_ServiceDesc, srv)
}

// RelayServiceClient is the client API for relay.v1.RelayService.
type RelayServiceClient interface {
	SendConnectionRequest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SendConnectionResponse(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	TransferOwnership(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	AddAdmin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RemoveAdmin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ResignAdmin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetRequestsPaused(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetResponsesPaused(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetAdminWithdrawalsPaused(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetRequestFee(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetFeeToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	WithdrawTokens(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	WatchRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type relayServiceClient struct{ cc grpc.ClientConnInterface }

func NewRelayServiceClient(cc grpc.ClientConnInterface) RelayServiceClient {
	return &relayServiceClient{cc: cc}
}

func invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayServiceClient) SendConnectionRequest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_SendConnectionRequest_FullMethodName, in, opts)
}
func (c *relayServiceClient) SendConnectionResponse(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_SendConnectionResponse_FullMethodName, in, opts)
}
func (c *relayServiceClient) TransferOwnership(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_TransferOwnership_FullMethodName, in, opts)
}
func (c *relayServiceClient) AddAdmin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_AddAdmin_FullMethodName, in, opts)
}
func (c *relayServiceClient) RemoveAdmin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_RemoveAdmin_FullMethodName, in, opts)
}
func (c *relayServiceClient) ResignAdmin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_ResignAdmin_FullMethodName, in, opts)
}
func (c *relayServiceClient) SetRequestsPaused(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_SetRequestsPaused_FullMethodName, in, opts)
}
func (c *relayServiceClient) SetResponsesPaused(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_SetResponsesPaused_FullMethodName, in, opts)
}
func (c *relayServiceClient) SetAdminWithdrawalsPaused(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_SetAdminWithdrawalsPaused_FullMethodName, in, opts)
}
func (c *relayServiceClient) SetRequestFee(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_SetRequestFee_FullMethodName, in, opts)
}
func (c *relayServiceClient) SetFeeToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_SetFeeToken_FullMethodName, in, opts)
}
func (c *relayServiceClient) WithdrawTokens(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_WithdrawTokens_FullMethodName, in, opts)
}
func (c *relayServiceClient) GetState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_GetState_FullMethodName, in, opts)
}
func (c *relayServiceClient) ListRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, RelayService_ListRecords_FullMethodName, in, opts)
}

func (c *relayServiceClient) WatchRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &RelayService_ServiceDesc.Streams[0], RelayService_WatchRecords_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// unaryHandler adapts one RelayServiceServer method to a grpc.MethodHandler.
func unaryHandler[S any](fullMethod string, call func(S, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _RelayService_WatchRecords_Handler(srv any, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(RelayServiceServer).WatchRecords(m, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// RelayService_ServiceDesc is the grpc.ServiceDesc for relay.v1.RelayService.
var RelayService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: RelayServiceName,
	HandlerType: (*RelayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendConnectionRequest", Handler: unaryHandler(RelayService_SendConnectionRequest_FullMethodName, RelayServiceServer.SendConnectionRequest)},
		{MethodName: "SendConnectionResponse", Handler: unaryHandler(RelayService_SendConnectionResponse_FullMethodName, RelayServiceServer.SendConnectionResponse)},
		{MethodName: "TransferOwnership", Handler: unaryHandler(RelayService_TransferOwnership_FullMethodName, RelayServiceServer.TransferOwnership)},
		{MethodName: "AddAdmin", Handler: unaryHandler(RelayService_AddAdmin_FullMethodName, RelayServiceServer.AddAdmin)},
		{MethodName: "RemoveAdmin", Handler: unaryHandler(RelayService_RemoveAdmin_FullMethodName, RelayServiceServer.RemoveAdmin)},
		{MethodName: "ResignAdmin", Handler: unaryHandler(RelayService_ResignAdmin_FullMethodName, RelayServiceServer.ResignAdmin)},
		{MethodName: "SetRequestsPaused", Handler: unaryHandler(RelayService_SetRequestsPaused_FullMethodName, RelayServiceServer.SetRequestsPaused)},
		{MethodName: "SetResponsesPaused", Handler: unaryHandler(RelayService_SetResponsesPaused_FullMethodName, RelayServiceServer.SetResponsesPaused)},
		{MethodName: "SetAdminWithdrawalsPaused", Handler: unaryHandler(RelayService_SetAdminWithdrawalsPaused_FullMethodName, RelayServiceServer.SetAdminWithdrawalsPaused)},
		{MethodName: "SetRequestFee", Handler: unaryHandler(RelayService_SetRequestFee_FullMethodName, RelayServiceServer.SetRequestFee)},
		{MethodName: "SetFeeToken", Handler: unaryHandler(RelayService_SetFeeToken_FullMethodName, RelayServiceServer.SetFeeToken)},
		{MethodName: "WithdrawTokens", Handler: unaryHandler(RelayService_WithdrawTokens_FullMethodName, RelayServiceServer.WithdrawTokens)},
		{MethodName: "GetState", Handler: unaryHandler(RelayService_GetState_FullMethodName, RelayServiceServer.GetState)},
		{MethodName: "ListRecords", Handler: unaryHandler(RelayService_ListRecords_FullMethodName, RelayServiceServer.ListRecords)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchRecords",
			Handler:       _RelayService_WatchRecords_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "relay/v1/relay.proto",
}
