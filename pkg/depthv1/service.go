package depthv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "banddepth.v1.DepthService"

const (
	queryMethod         = "/" + ServiceName + "/Query"
	listEnsemblesMethod = "/" + ServiceName + "/ListEnsembles"
	putEnsembleMethod   = "/" + ServiceName + "/PutEnsemble"
)

// DepthServiceServer is the server API for DepthService.
type DepthServiceServer interface {
	Query(context.Context, *QueryRequest) (*QueryResponse, error)
	ListEnsembles(context.Context, *ListEnsemblesRequest) (*ListEnsemblesResponse, error)
	PutEnsemble(context.Context, *PutEnsembleRequest) (*PutEnsembleResponse, error)
}

// UnimplementedDepthServiceServer returns codes.Unimplemented for every
// method. Embed it to stay forward compatible.
type UnimplementedDepthServiceServer struct{}

func (UnimplementedDepthServiceServer) Query(context.Context, *QueryRequest) (*QueryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Query not implemented")
}

func (UnimplementedDepthServiceServer) ListEnsembles(context.Context, *ListEnsemblesRequest) (*ListEnsemblesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListEnsembles not implemented")
}

func (UnimplementedDepthServiceServer) PutEnsemble(context.Context, *PutEnsembleRequest) (*PutEnsembleResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PutEnsemble not implemented")
}

// RegisterDepthServiceServer registers srv on s.
func RegisterDepthServiceServer(s grpc.ServiceRegistrar, srv DepthServiceServer) {
	s.RegisterService(&DepthService_ServiceDesc, srv)
}

func queryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(QueryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DepthServiceServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: queryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DepthServiceServer).Query(ctx, req.(*QueryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listEnsemblesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListEnsemblesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DepthServiceServer).ListEnsembles(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listEnsemblesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DepthServiceServer).ListEnsembles(ctx, req.(*ListEnsemblesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func putEnsembleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PutEnsembleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DepthServiceServer).PutEnsemble(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: putEnsembleMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DepthServiceServer).PutEnsemble(ctx, req.(*PutEnsembleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// DepthService_ServiceDesc is the grpc.ServiceDesc for DepthService.
//
//nolint:revive,stylecheck
var DepthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DepthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Query", Handler: queryHandler},
		{MethodName: "ListEnsembles", Handler: listEnsemblesHandler},
		{MethodName: "PutEnsemble", Handler: putEnsembleHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "banddepth/v1/depth.proto",
}

// DepthServiceClient is the client API for DepthService.
type DepthServiceClient interface {
	Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*QueryResponse, error)
	ListEnsembles(ctx context.Context, in *ListEnsemblesRequest, opts ...grpc.CallOption) (*ListEnsemblesResponse, error)
	PutEnsemble(ctx context.Context, in *PutEnsembleRequest, opts ...grpc.CallOption) (*PutEnsembleResponse, error)
}

type depthServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDepthServiceClient returns a client that sends every call with the
// JSON codec.
func NewDepthServiceClient(cc grpc.ClientConnInterface) DepthServiceClient {
	return &depthServiceClient{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *depthServiceClient) Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*QueryResponse, error) {
	out := new(QueryResponse)
	if err := c.cc.Invoke(ctx, queryMethod, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *depthServiceClient) ListEnsembles(ctx context.Context, in *ListEnsemblesRequest, opts ...grpc.CallOption) (*ListEnsemblesResponse, error) {
	out := new(ListEnsemblesResponse)
	if err := c.cc.Invoke(ctx, listEnsemblesMethod, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *depthServiceClient) PutEnsemble(ctx context.Context, in *PutEnsembleRequest, opts ...grpc.CallOption) (*PutEnsembleResponse, error) {
	out := new(PutEnsembleResponse)
	if err := c.cc.Invoke(ctx, putEnsembleMethod, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
