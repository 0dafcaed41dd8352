package cluster

import (
	"context"
	goerrors "errors"
	"net"
	"testing"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/errors"
	"github.com/go-sif/accrue/executor"
	"github.com/go-sif/accrue/internal/rpc"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func unusedAddress(t *testing.T) *workerDescriptor {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.Nil(t, lis.Close())
	return &workerDescriptor{ID: "w1", Host: "127.0.0.1", Port: port, Slots: 2}
}

func TestLostWorker(t *testing.T) {
	w := unusedAddress(t)
	conn, err := dialWorker(w)
	require.Nil(t, err)
	defer conn.Close()
	b := createClusterBackend([]*workerDescriptor{w}, []*grpc.ClientConn{conn}, rpc.LZ4Compression)
	require.Nil(t, b.Start(context.Background(), &accrue.Job{}, 4))
	defer b.Shutdown()

	task := executor.NewTask(accrue.Chunk{Dataset: "events", Start: 0, Stop: 1}, 1)
	require.Nil(t, b.Submit(context.Background(), task))
	done := <-b.Completed()
	require.Equal(t, executor.TaskFailed, done.State())
	var lost *errors.WorkerLostError
	require.True(t, goerrors.As(done.Err(), &lost))
	require.Equal(t, "w1", lost.Worker)
	require.True(t, errors.IsRetryable(done.Err()))

	// the only worker is gone
	err = b.Submit(context.Background(), executor.NewTask(task.Chunk, 2))
	var unavailable *errors.BackendUnavailableError
	require.True(t, goerrors.As(err, &unavailable))
}

func TestNoWorkers(t *testing.T) {
	b := createClusterBackend(nil, nil, rpc.LZ4Compression)
	require.NotNil(t, b.Start(context.Background(), &accrue.Job{}, 1))
	require.NotNil(t, b.Submit(context.Background(), executor.NewTask(accrue.Chunk{}, 1)))
}

func TestRemoteErrors(t *testing.T) {
	c := accrue.Chunk{Dataset: "events", Start: 5, Stop: 6}
	err := remoteError(c, "w1", &rpc.ChunkResponse{ErrKind: rpc.FetchError, ErrMessage: "timeout"})
	var fetchErr *errors.ChunkFetchError
	require.True(t, goerrors.As(err, &fetchErr))
	require.Equal(t, c, fetchErr.Chunk)

	err = remoteError(c, "w1", &rpc.ChunkResponse{ErrKind: rpc.ProcessorError, ErrMessage: "boom", Panic: true})
	var procErr *errors.ProcessorError
	require.True(t, goerrors.As(err, &procErr))
	require.True(t, procErr.Panic)

	err = remoteError(c, "w1", &rpc.ChunkResponse{ErrKind: rpc.CanceledError, ErrMessage: "context deadline exceeded"})
	require.True(t, errors.IsRetryable(err))

	err = remoteError(c, "w1", &rpc.ChunkResponse{ErrKind: rpc.InternalError, ErrMessage: "disk full"})
	require.False(t, errors.IsRetryable(err))
	require.False(t, errors.IsFatal(err))
}

func TestWorkerDescriptor(t *testing.T) {
	w := &workerDescriptor{ID: "w1", Port: 1644, Slots: 3}
	s, err := w.toStruct()
	require.Nil(t, err)
	parsed, err := workerDescriptorFromStruct(s)
	require.Nil(t, err)
	require.Equal(t, w, parsed)

	s, err = (&workerDescriptor{ID: "w2"}).toStruct()
	require.Nil(t, err)
	_, err = workerDescriptorFromStruct(s)
	require.NotNil(t, err)
}
