package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ClusterServiceServer is implemented by Coordinators, to accept Workers
type ClusterServiceServer interface {
	// RegisterWorker receives a worker descriptor (id, port, slots)
	RegisterWorker(ctx context.Context, req *structpb.Struct) (*timestamppb.Timestamp, error)
}

// ExecutionServiceServer is implemented by Workers, to process Chunks
type ExecutionServiceServer interface {
	// ProcessChunk receives an encoded ChunkRequest and returns an encoded ChunkResponse
	ProcessChunk(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// LifecycleServiceServer is implemented by Workers, so that Coordinators can stop them
type LifecycleServiceServer interface {
	Stop(ctx context.Context, req *emptypb.Empty) (*timestamppb.Timestamp, error)
	GracefulStop(ctx context.Context, req *emptypb.Empty) (*timestamppb.Timestamp, error)
}

// LogServiceServer is implemented by Coordinators, to receive Worker logs
type LogServiceServer interface {
	// Log receives a message with level, source and message fields
	Log(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
}

func unaryHandler(newReq func() interface{}, fullMethod string, call func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv, ctx, req)
		})
	}
}

var clusterServiceDesc = grpc.ServiceDesc{
	ServiceName: "accrue.ClusterService",
	HandlerType: (*ClusterServiceServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "RegisterWorker",
		Handler: unaryHandler(func() interface{} { return new(structpb.Struct) }, "/accrue.ClusterService/RegisterWorker",
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(ClusterServiceServer).RegisterWorker(ctx, req.(*structpb.Struct))
			}),
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "accrue/cluster",
}

var executionServiceDesc = grpc.ServiceDesc{
	ServiceName: "accrue.ExecutionService",
	HandlerType: (*ExecutionServiceServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "ProcessChunk",
		Handler: unaryHandler(func() interface{} { return new(wrapperspb.BytesValue) }, "/accrue.ExecutionService/ProcessChunk",
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(ExecutionServiceServer).ProcessChunk(ctx, req.(*wrapperspb.BytesValue))
			}),
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "accrue/execution",
}

var lifecycleServiceDesc = grpc.ServiceDesc{
	ServiceName: "accrue.LifecycleService",
	HandlerType: (*LifecycleServiceServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Stop",
		Handler: unaryHandler(func() interface{} { return new(emptypb.Empty) }, "/accrue.LifecycleService/Stop",
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(LifecycleServiceServer).Stop(ctx, req.(*emptypb.Empty))
			}),
	}, {
		MethodName: "GracefulStop",
		Handler: unaryHandler(func() interface{} { return new(emptypb.Empty) }, "/accrue.LifecycleService/GracefulStop",
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(LifecycleServiceServer).GracefulStop(ctx, req.(*emptypb.Empty))
			}),
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "accrue/lifecycle",
}

var logServiceDesc = grpc.ServiceDesc{
	ServiceName: "accrue.LogService",
	HandlerType: (*LogServiceServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Log",
		Handler: unaryHandler(func() interface{} { return new(structpb.Struct) }, "/accrue.LogService/Log",
			func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.(LogServiceServer).Log(ctx, req.(*structpb.Struct))
			}),
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "accrue/log",
}

// RegisterClusterServiceServer registers a ClusterServiceServer with a gRPC server
func RegisterClusterServiceServer(s *grpc.Server, srv ClusterServiceServer) {
	s.RegisterService(&clusterServiceDesc, srv)
}

// RegisterExecutionServiceServer registers an ExecutionServiceServer with a gRPC server
func RegisterExecutionServiceServer(s *grpc.Server, srv ExecutionServiceServer) {
	s.RegisterService(&executionServiceDesc, srv)
}

// RegisterLifecycleServiceServer registers a LifecycleServiceServer with a gRPC server
func RegisterLifecycleServiceServer(s *grpc.Server, srv LifecycleServiceServer) {
	s.RegisterService(&lifecycleServiceDesc, srv)
}

// RegisterLogServiceServer registers a LogServiceServer with a gRPC server
func RegisterLogServiceServer(s *grpc.Server, srv LogServiceServer) {
	s.RegisterService(&logServiceDesc, srv)
}
