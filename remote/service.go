package remote

import (
	"context"

	"google.golang.org/grpc"
)

// Hand-written gRPC plumbing for agentgraph.v1.GraphService. The shapes
// follow what protoc-gen-go-grpc would emit so the service stays
// interceptor- and tooling-compatible.

const serviceName = "agentgraph.v1.GraphService"

// GraphServiceClient is the client interface for the graph service.
type GraphServiceClient interface {
	Invoke(ctx context.Context, in *InvokeRequest, opts ...grpc.CallOption) (*InvokeResponse, error)
	Stream(ctx context.Context, in *InvokeRequest, opts ...grpc.CallOption) (GraphService_StreamClient, error)
	ListGraphs(ctx context.Context, in *ListGraphsRequest, opts ...grpc.CallOption) (*ListGraphsResponse, error)
}

// GraphService_StreamClient is the client side of the Stream RPC.
type GraphService_StreamClient interface {
	Recv() (*StreamResponse, error)
	grpc.ClientStream
}

type graphServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGraphServiceClient creates a GraphServiceClient on an existing
// connection. The connection must use the package's codec; Dial sets this
// up.
func NewGraphServiceClient(cc grpc.ClientConnInterface) GraphServiceClient {
	return &graphServiceClient{cc}
}

func (c *graphServiceClient) Invoke(ctx context.Context, in *InvokeRequest, opts ...grpc.CallOption) (*InvokeResponse, error) {
	out := new(InvokeResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Invoke", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *graphServiceClient) Stream(ctx context.Context, in *InvokeRequest, opts ...grpc.CallOption) (GraphService_StreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    "Stream",
		ServerStreams: true,
	}, "/"+serviceName+"/Stream", opts...)
	if err != nil {
		return nil, err
	}
	x := &graphServiceStreamClient{stream}
	if err := x.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *graphServiceClient) ListGraphs(ctx context.Context, in *ListGraphsRequest, opts ...grpc.CallOption) (*ListGraphsResponse, error) {
	out := new(ListGraphsResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ListGraphs", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type graphServiceStreamClient struct {
	grpc.ClientStream
}

func (x *graphServiceStreamClient) Recv() (*StreamResponse, error) {
	m := new(StreamResponse)
	if err := x.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// GraphServiceServer is the server interface for the graph service.
type GraphServiceServer interface {
	Invoke(context.Context, *InvokeRequest) (*InvokeResponse, error)
	Stream(*InvokeRequest, GraphService_StreamServer) error
	ListGraphs(context.Context, *ListGraphsRequest) (*ListGraphsResponse, error)
}

// GraphService_StreamServer is the server side of the Stream RPC.
type GraphService_StreamServer interface {
	Send(*StreamResponse) error
	grpc.ServerStream
}

type graphServiceStreamServer struct {
	grpc.ServerStream
}

func (x *graphServiceStreamServer) Send(m *StreamResponse) error {
	return x.SendMsg(m)
}

func _GraphService_Invoke_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(InvokeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GraphServiceServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/Invoke",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(GraphServiceServer).Invoke(ctx, req.(*InvokeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _GraphService_ListGraphs_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListGraphsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GraphServiceServer).ListGraphs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/ListGraphs",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(GraphServiceServer).ListGraphs(ctx, req.(*ListGraphsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _GraphService_Stream_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(InvokeRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(GraphServiceServer).Stream(m, &graphServiceStreamServer{stream})
}

// RegisterGraphServiceServer registers the graph service implementation.
func RegisterGraphServiceServer(s grpc.ServiceRegistrar, srv GraphServiceServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*GraphServiceServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Invoke",
				Handler:    _GraphService_Invoke_Handler,
			},
			{
				MethodName: "ListGraphs",
				Handler:    _GraphService_ListGraphs_Handler,
			},
		},
		Streams: []grpc.StreamDesc{
			{
				StreamName:    "Stream",
				Handler:       _GraphService_Stream_Handler,
				ServerStreams: true,
			},
		},
		Metadata: "graph_service.proto",
	}, srv)
}
