package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/accumulators"
	"github.com/go-sif/accrue/errors"
	"github.com/stretchr/testify/require"
)

func TestRunnerTaskStates(t *testing.T) {
	ds := createTestDataSource(t, 2)
	runner := NewRunner(&accrue.Job{Loader: ds, Processor: accrue.ProcessorFunc(countEvents)})
	c, err := ds.Analyze().Next()
	require.Nil(t, err)

	task := NewTask(c, 1)
	require.Equal(t, TaskPending, task.State())
	runner.Run(context.Background(), task, "w1")
	require.Equal(t, TaskCompleted, task.State())
	require.Equal(t, "w1", task.Worker())
	require.Equal(t, 1, task.Result().(*accumulators.Value).Get())
	require.Nil(t, task.Err())
	require.Equal(t, "COMPLETED", task.State().String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	task = NewTask(c, 2)
	runner.Run(ctx, task, "w1")
	require.Equal(t, TaskFailed, task.State())
	require.Equal(t, context.Canceled, task.Err())
}

func TestRunnerRecoversPanics(t *testing.T) {
	ds := createTestDataSource(t, 1)
	runner := NewRunner(&accrue.Job{Loader: ds, Processor: accrue.ProcessorFunc(func(view accrue.View) (accrue.Accumulator, error) {
		panic(fmt.Errorf("boom"))
	})})
	c, err := ds.Analyze().Next()
	require.Nil(t, err)
	task := NewTask(c, 1)
	runner.Run(context.Background(), task, "")
	require.Equal(t, TaskFailed, task.State())
	perr, ok := task.Err().(*errors.ProcessorError)
	require.True(t, ok)
	require.True(t, perr.Panic)
	require.True(t, errors.IsRetryable(perr))
}

func TestRunnerRejectsMissingViews(t *testing.T) {
	runner := NewRunner(&accrue.Job{
		Loader: loaderFunc(func(ctx context.Context, c accrue.Chunk) (accrue.View, error) {
			return nil, nil
		}),
		Processor: accrue.ProcessorFunc(countEvents),
	})
	task := NewTask(accrue.Chunk{Dataset: "events", Start: 0, Stop: 1}, 1)
	runner.Run(context.Background(), task, "")
	_, ok := task.Err().(*errors.ChunkFetchError)
	require.True(t, ok)
}
