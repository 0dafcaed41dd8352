package cluster

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/go-sif/accrue/accumulators"
	"github.com/go-sif/accrue/errors"
	"github.com/go-sif/accrue/executor"
	"github.com/go-sif/accrue/internal/rpc"
	"github.com/go-sif/accrue/logging"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type executionServer struct {
	id     string
	runner *executor.Runner
	opts   *NodeOptions
	log    *logging.Logger
}

// createExecutionServer creates a new execution server
func createExecutionServer(id string, runner *executor.Runner, opts *NodeOptions, log *logging.Logger) *executionServer {
	return &executionServer{id: id, runner: runner, opts: opts, log: log}
}

// ProcessChunk runs one attempt at a Chunk on this Worker. Failures of the
// attempt are reported inside the response, so that an RPC error always
// means the Worker itself is in trouble.
func (s *executionServer) ProcessChunk(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var creq rpc.ChunkRequest
	if err := rpc.Decode(req.GetValue(), &creq); err != nil {
		return nil, fmt.Errorf("unable to decode chunk request: %w", err)
	}
	if s.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TaskTimeout)
		defer cancel()
	}
	task := executor.NewTask(creq.Chunk, creq.Attempt)
	task.Set(executor.TaskSubmitted, s.id)
	s.log.Debugf("Processing chunk %s (attempt %d)", creq.Chunk, creq.Attempt)
	s.runner.Run(ctx, task, s.id)
	res := s.toResponse(task)
	if res.ErrKind != rpc.NoError {
		s.log.Warnf("Chunk %s failed on attempt %d: %s", creq.Chunk, creq.Attempt, res.ErrMessage)
	}
	payload, err := rpc.Encode(res, creq.Compression)
	if err != nil {
		return nil, fmt.Errorf("unable to encode result for chunk %s: %w", creq.Chunk, err)
	}
	return wrapperspb.Bytes(payload), nil
}

func (s *executionServer) toResponse(task *executor.Task) *rpc.ChunkResponse {
	res := &rpc.ChunkResponse{Worker: s.id}
	if task.State() == executor.TaskCompleted {
		if acc := task.Result(); acc != nil {
			buff, err := accumulators.Marshal(acc)
			if err != nil {
				res.ErrKind = rpc.InternalError
				res.ErrMessage = fmt.Sprintf("unable to serialize accumulator: %v", err)
				return res
			}
			res.Accumulator = buff
		}
		res.Events, res.Bytes = task.Size()
		return res
	}
	err := task.Err()
	res.ErrMessage = err.Error()
	var fetchErr *errors.ChunkFetchError
	var procErr *errors.ProcessorError
	switch {
	case goerrors.As(err, &fetchErr):
		res.ErrKind = rpc.FetchError
		res.ErrMessage = fetchErr.Err.Error()
	case goerrors.As(err, &procErr):
		res.ErrKind = rpc.ProcessorError
		res.ErrMessage = procErr.Err.Error()
		res.Panic = procErr.Panic
	case goerrors.Is(err, context.Canceled) || goerrors.Is(err, context.DeadlineExceeded):
		res.ErrKind = rpc.CanceledError
	default:
		res.ErrKind = rpc.InternalError
	}
	return res
}
