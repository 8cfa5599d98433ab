package schedulerpb

// Hand-written equivalent of what protoc-gen-go-grpc would emit for the
// two services of spec.md §6.1: SchedulerService (admin, unary) and
// SchedulerWorkerService (worker, bidirectional stream). See the package
// doc in messages.go for why this is hand-written rather than generated.

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	schedulerServiceName       = "protot.scheduler.v1.SchedulerService"
	schedulerWorkerServiceName = "protot.scheduler.v1.SchedulerWorkerService"
)

// ---------------------------------------------------------------------
// SchedulerService (admin, unary)
// ---------------------------------------------------------------------

// SchedulerServiceServer is the server API for SchedulerService.
type SchedulerServiceServer interface {
	Execute(context.Context, *ExecuteRequest) (*ExecuteResponse, error)
	Schedule(context.Context, *ScheduleRequest) (*ScheduleResponse, error)
}

// UnimplementedSchedulerServiceServer can be embedded for forward compatibility.
type UnimplementedSchedulerServiceServer struct{}

func (UnimplementedSchedulerServiceServer) Execute(context.Context, *ExecuteRequest) (*ExecuteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Execute not implemented")
}

func (UnimplementedSchedulerServiceServer) Schedule(context.Context, *ScheduleRequest) (*ScheduleResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Schedule not implemented")
}

// RegisterSchedulerServiceServer registers srv on s.
func RegisterSchedulerServiceServer(s grpc.ServiceRegistrar, srv SchedulerServiceServer) {
	s.RegisterService(&schedulerServiceDesc, srv)
}

func schedulerServiceExecuteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExecuteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulerServiceServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + schedulerServiceName + "/Execute"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SchedulerServiceServer).Execute(ctx, req.(*ExecuteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func schedulerServiceScheduleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ScheduleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SchedulerServiceServer).Schedule(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + schedulerServiceName + "/Schedule"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SchedulerServiceServer).Schedule(ctx, req.(*ScheduleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var schedulerServiceDesc = grpc.ServiceDesc{
	ServiceName: schedulerServiceName,
	HandlerType: (*SchedulerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: schedulerServiceExecuteHandler},
		{MethodName: "Schedule", Handler: schedulerServiceScheduleHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scheduler.proto",
}

// SchedulerServiceClient is the client API for SchedulerService.
type SchedulerServiceClient interface {
	Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteResponse, error)
	Schedule(ctx context.Context, in *ScheduleRequest, opts ...grpc.CallOption) (*ScheduleResponse, error)
}

type schedulerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSchedulerServiceClient builds a client bound to cc.
func NewSchedulerServiceClient(cc grpc.ClientConnInterface) SchedulerServiceClient {
	return &schedulerServiceClient{cc: cc}
}

func withJSONSubtype(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}

func (c *schedulerServiceClient) Execute(ctx context.Context, in *ExecuteRequest, opts ...grpc.CallOption) (*ExecuteResponse, error) {
	out := new(ExecuteResponse)
	if err := c.cc.Invoke(ctx, "/"+schedulerServiceName+"/Execute", in, out, withJSONSubtype(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *schedulerServiceClient) Schedule(ctx context.Context, in *ScheduleRequest, opts ...grpc.CallOption) (*ScheduleResponse, error) {
	out := new(ScheduleResponse)
	if err := c.cc.Invoke(ctx, "/"+schedulerServiceName+"/Schedule", in, out, withJSONSubtype(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------
// SchedulerWorkerService (worker, bidirectional stream)
// ---------------------------------------------------------------------

// SchedulerWorkerServiceServer is the server API for SchedulerWorkerService.
type SchedulerWorkerServiceServer interface {
	Communicate(SchedulerWorkerService_CommunicateServer) error
}

// SchedulerWorkerService_CommunicateServer is the server-side stream handle.
type SchedulerWorkerService_CommunicateServer interface {
	Send(*SchedulerMessage) error
	Recv() (*WorkerMessage, error)
	grpc.ServerStream
}

type communicateServerStream struct {
	grpc.ServerStream
}

func (x *communicateServerStream) Send(m *SchedulerMessage) error {
	return x.ServerStream.SendMsg(m)
}

func (x *communicateServerStream) Recv() (*WorkerMessage, error) {
	m := new(WorkerMessage)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func schedulerWorkerServiceCommunicateHandler(srv any, stream grpc.ServerStream) error {
	return srv.(SchedulerWorkerServiceServer).Communicate(&communicateServerStream{stream})
}

// RegisterSchedulerWorkerServiceServer registers srv on s.
func RegisterSchedulerWorkerServiceServer(s grpc.ServiceRegistrar, srv SchedulerWorkerServiceServer) {
	s.RegisterService(&schedulerWorkerServiceDesc, srv)
}

var schedulerWorkerServiceDesc = grpc.ServiceDesc{
	ServiceName: schedulerWorkerServiceName,
	HandlerType: (*SchedulerWorkerServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Communicate",
			Handler:       schedulerWorkerServiceCommunicateHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "scheduler.proto",
}

// SchedulerWorkerServiceClient is the client API for SchedulerWorkerService.
type SchedulerWorkerServiceClient interface {
	Communicate(ctx context.Context, opts ...grpc.CallOption) (SchedulerWorkerService_CommunicateClient, error)
}

type schedulerWorkerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSchedulerWorkerServiceClient builds a client bound to cc.
func NewSchedulerWorkerServiceClient(cc grpc.ClientConnInterface) SchedulerWorkerServiceClient {
	return &schedulerWorkerServiceClient{cc: cc}
}

func (c *schedulerWorkerServiceClient) Communicate(ctx context.Context, opts ...grpc.CallOption) (SchedulerWorkerService_CommunicateClient, error) {
	stream, err := c.cc.NewStream(ctx, &schedulerWorkerServiceDesc.Streams[0], "/"+schedulerWorkerServiceName+"/Communicate", withJSONSubtype(opts)...)
	if err != nil {
		return nil, err
	}
	return &communicateClientStream{stream}, nil
}

// SchedulerWorkerService_CommunicateClient is the client-side stream handle.
type SchedulerWorkerService_CommunicateClient interface {
	Send(*WorkerMessage) error
	Recv() (*SchedulerMessage, error)
	grpc.ClientStream
}

type communicateClientStream struct {
	grpc.ClientStream
}

func (x *communicateClientStream) Send(m *WorkerMessage) error {
	return x.ClientStream.SendMsg(m)
}

func (x *communicateClientStream) Recv() (*SchedulerMessage, error) {
	m := new(SchedulerMessage)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
