package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ClusterServiceClient calls a Coordinator's ClusterService
type ClusterServiceClient struct {
	cc *grpc.ClientConn
}

// NewClusterServiceClient creates a ClusterServiceClient
func NewClusterServiceClient(cc *grpc.ClientConn) *ClusterServiceClient {
	return &ClusterServiceClient{cc}
}

// RegisterWorker registers a Worker with the Coordinator
func (c *ClusterServiceClient) RegisterWorker(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*timestamppb.Timestamp, error) {
	out := new(timestamppb.Timestamp)
	if err := c.cc.Invoke(ctx, "/accrue.ClusterService/RegisterWorker", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ExecutionServiceClient calls a Worker's ExecutionService
type ExecutionServiceClient struct {
	cc *grpc.ClientConn
}

// NewExecutionServiceClient creates an ExecutionServiceClient
func NewExecutionServiceClient(cc *grpc.ClientConn) *ExecutionServiceClient {
	return &ExecutionServiceClient{cc}
}

// ProcessChunk asks the Worker to process an encoded ChunkRequest
func (c *ExecutionServiceClient) ProcessChunk(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/accrue.ExecutionService/ProcessChunk", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// LifecycleServiceClient calls a Worker's LifecycleService
type LifecycleServiceClient struct {
	cc *grpc.ClientConn
}

// NewLifecycleServiceClient creates a LifecycleServiceClient
func NewLifecycleServiceClient(cc *grpc.ClientConn) *LifecycleServiceClient {
	return &LifecycleServiceClient{cc}
}

// Stop asks the Worker to stop immediately
func (c *LifecycleServiceClient) Stop(ctx context.Context, opts ...grpc.CallOption) (*timestamppb.Timestamp, error) {
	out := new(timestamppb.Timestamp)
	if err := c.cc.Invoke(ctx, "/accrue.LifecycleService/Stop", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GracefulStop asks the Worker to stop once in-flight RPCs are complete
func (c *LifecycleServiceClient) GracefulStop(ctx context.Context, opts ...grpc.CallOption) (*timestamppb.Timestamp, error) {
	out := new(timestamppb.Timestamp)
	if err := c.cc.Invoke(ctx, "/accrue.LifecycleService/GracefulStop", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// LogServiceClient calls a Coordinator's LogService
type LogServiceClient struct {
	cc *grpc.ClientConn
}

// NewLogServiceClient creates a LogServiceClient
func NewLogServiceClient(cc *grpc.ClientConn) *LogServiceClient {
	return &LogServiceClient{cc}
}

// Log sends one log message to the Coordinator
func (c *LogServiceClient) Log(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/accrue.LogService/Log", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
