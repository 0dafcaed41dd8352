package cluster

import (
	"context"
	"log"
	"time"

	"github.com/go-sif/accrue/internal/rpc"
	"github.com/go-sif/accrue/logging"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type logServer struct {
	log *logging.Logger
}

// createLogServer creates a log server
func createLogServer(log *logging.Logger) *logServer {
	return &logServer{log: log}
}

// Log messages to the console coming from workers
func (s *logServer) Log(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	fields := req.GetFields()
	level := int(fields["level"].GetNumberValue())
	source := fields["source"].GetStringValue()
	s.log.Logf(level, "%s: %s", source, fields["message"].GetStringValue())
	return &emptypb.Empty{}, nil
}

// remoteSink forwards log messages to the Coordinator's LogService
func remoteSink(client *rpc.LogServiceClient, timeout time.Duration) logging.Sink {
	return func(level int, source string, message string) {
		req, err := structpb.NewStruct(map[string]interface{}{
			"level":   level,
			"source":  source,
			"message": message,
		})
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := client.Log(ctx, req); err != nil {
			// the local log already has the message
			log.Printf("Unable to forward log message to coordinator: %v", err)
		}
	}
}
