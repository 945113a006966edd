package relayv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const LedgerServiceName = "relay.v1.LedgerService"

const (
	LedgerService_TotalSupply_FullMethodName  = "/relay.v1.LedgerService/TotalSupply"
	LedgerService_BalanceOf_FullMethodName    = "/relay.v1.LedgerService/BalanceOf"
	LedgerService_Allowance_FullMethodName    = "/relay.v1.LedgerService/Allowance"
	LedgerService_Transfer_FullMethodName     = "/relay.v1.LedgerService/Transfer"
	LedgerService_Approve_FullMethodName      = "/relay.v1.LedgerService/Approve"
	LedgerService_TransferFrom_FullMethodName = "/relay.v1.LedgerService/TransferFrom"
)

// LedgerServiceServer is the server API for relay.v1.LedgerService. Queries
// answer {amount}; transfers and approvals run as the caller and answer {ok}.
type LedgerServiceServer interface {
	// {token}
	TotalSupply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {token, holder}
	BalanceOf(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {token, holder, spender}
	Allowance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {token, to, amount}
	Transfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {token, spender, amount}
	Approve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// {token, from, to, amount}
	TransferFrom(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedLedgerServiceServer can be embedded to have forward compatible implementations.
type UnimplementedLedgerServiceServer struct{}

func (UnimplementedLedgerServiceServer) TotalSupply(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("TotalSupply")
}
func (UnimplementedLedgerServiceServer) BalanceOf(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("BalanceOf")
}
func (UnimplementedLedgerServiceServer) Allowance(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Allowance")
}
func (UnimplementedLedgerServiceServer) Transfer(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Transfer")
}
func (UnimplementedLedgerServiceServer) Approve(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("Approve")
}
func (UnimplementedLedgerServiceServer) TransferFrom(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented("TransferFrom")
}

// RegisterLedgerServiceServer registers the ledger service on a gRPC server.
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}

// LedgerServiceClient is the client API for relay.v1.LedgerService.
type LedgerServiceClient interface {
	TotalSupply(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	BalanceOf(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Allowance(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Transfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Approve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	TransferFrom(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type ledgerServiceClient struct{ cc grpc.ClientConnInterface }

func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc: cc}
}

func (c *ledgerServiceClient) TotalSupply(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, LedgerService_TotalSupply_FullMethodName, in, opts)
}
func (c *ledgerServiceClient) BalanceOf(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, LedgerService_BalanceOf_FullMethodName, in, opts)
}
func (c *ledgerServiceClient) Allowance(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, LedgerService_Allowance_FullMethodName, in, opts)
}
func (c *ledgerServiceClient) Transfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, LedgerService_Transfer_FullMethodName, in, opts)
}
func (c *ledgerServiceClient) Approve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, LedgerService_Approve_FullMethodName, in, opts)
}
func (c *ledgerServiceClient) TransferFrom(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, LedgerService_TransferFrom_FullMethodName, in, opts)
}

// LedgerService_ServiceDesc is the grpc.ServiceDesc for relay.v1.LedgerService.
var LedgerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: LedgerServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TotalSupply", Handler: unaryHandler(LedgerService_TotalSupply_FullMethodName, LedgerServiceServer.TotalSupply)},
		{MethodName: "BalanceOf", Handler: unaryHandler(LedgerService_BalanceOf_FullMethodName, LedgerServiceServer.BalanceOf)},
		{MethodName: "Allowance", Handler: unaryHandler(LedgerService_Allowance_FullMethodName, LedgerServiceServer.Allowance)},
		{MethodName: "Transfer", Handler: unaryHandler(LedgerService_Transfer_FullMethodName, LedgerServiceServer.Transfer)},
		{MethodName: "Approve", Handler: unaryHandler(LedgerService_Approve_FullMethodName, LedgerServiceServer.Approve)},
		{MethodName: "TransferFrom", Handler: unaryHandler(LedgerService_TransferFrom_FullMethodName, LedgerServiceServer.TransferFrom)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "relay/v1/ledger.proto",
}
