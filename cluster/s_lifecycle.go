package cluster

import (
	"context"

	"github.com/go-sif/accrue/logging"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type lifecycleServer struct {
	node Node
	log  *logging.Logger
}

// createLifecycleServer creates a new lifecycleServer
func createLifecycleServer(node Node, log *logging.Logger) *lifecycleServer {
	return &lifecycleServer{node: node, log: log}
}

func (s *lifecycleServer) GracefulStop(ctx context.Context, req *emptypb.Empty) (*timestamppb.Timestamp, error) {
	s.log.Infof("Received request to stop gracefully...")
	// we can't wait for the error to respond, because this counts as an open RPC, which blocks GracefulStop
	go s.node.GracefulStop()
	return timestamppb.Now(), nil
}

func (s *lifecycleServer) Stop(ctx context.Context, req *emptypb.Empty) (*timestamppb.Timestamp, error) {
	s.log.Infof("Received request to stop...")
	go s.node.Stop()
	return timestamppb.Now(), nil
}
