package cluster_test

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/accumulators"
	"github.com/go-sif/accrue/cluster"
	"github.com/go-sif/accrue/datasource/memory"
	"github.com/go-sif/accrue/errors"
	"github.com/go-sif/accrue/executor"
	"github.com/go-sif/accrue/internal/rpc"
	"github.com/go-sif/accrue/logging"
	accruetest "github.com/go-sif/accrue/testing"
	"github.com/stretchr/testify/require"
)

func createTestDataSource(t *testing.T, numChunks int) *memory.DataSource {
	x := make([]int64, numChunks)
	for i := range x {
		x[i] = int64(i)
	}
	ds, err := memory.CreateDataSource("events", map[string]interface{}{"x": x}, 1)
	require.Nil(t, err)
	return ds
}

func firstX(view accrue.View) int64 {
	col, err := view.Column("x")
	if err != nil {
		panic(err)
	}
	return col.([]int64)[0]
}

func nodeOptions(slots int, compression rpc.Compression) *cluster.NodeOptions {
	return &cluster.NodeOptions{WorkerSlots: slots, Compression: compression, Logger: logging.Discard()}
}

func execOptions(opts *executor.Options) *executor.Options {
	opts.Logger = logging.Discard()
	return opts
}

func TestClusterSum(t *testing.T) {
	ds := createTestDataSource(t, 10)
	job := &accrue.Job{Loader: ds, Processor: accrue.ProcessorFunc(func(view accrue.View) (accrue.Accumulator, error) {
		return accumulators.NewValue(view.NumEvents()), nil
	})}
	res, err := accruetest.LocalRunCluster(context.Background(), ds.Analyze(), job, nodeOptions(2, ""), execOptions(&executor.Options{MaxInFlight: 3}), 2)
	require.Nil(t, err)
	require.Equal(t, executor.RunCompleted, res.State)
	require.Equal(t, 10, res.Accumulator.(*accumulators.Value).Get())
	require.EqualValues(t, 10, res.Stats.EventsProcessed)
}

func TestClusterMatchesPool(t *testing.T) {
	ds := createTestDataSource(t, 20)
	job := &accrue.Job{Loader: ds, Processor: accrue.ProcessorFunc(func(view accrue.View) (accrue.Accumulator, error) {
		x := firstX(view)
		parity := "even"
		if x%2 == 1 {
			parity = "odd"
		}
		d := accumulators.NewDict()
		d.Set(parity, accumulators.NewValue(x))
		d.Set("seen", accumulators.NewSet(x%3))
		d.Set("xs", accumulators.NewColumn([]int64{x}))
		return d, nil
	})}
	opts := execOptions(&executor.Options{MergeOrder: executor.MergeInChunkOrder})
	local, err := executor.FuturesExecutor(context.Background(), ds.Analyze(), job, 4, opts)
	require.Nil(t, err)
	for _, compression := range []rpc.Compression{rpc.LZ4Compression, rpc.ZstdCompression, rpc.NoCompression} {
		remote, err := accruetest.LocalRunCluster(context.Background(), ds.Analyze(), job, nodeOptions(2, compression), opts, 3)
		require.Nil(t, err, compression)
		require.True(t, accumulators.Equal(local.Accumulator, remote.Accumulator), compression)
	}
	xs := local.Accumulator.(*accumulators.Dict).Get("xs").(*accumulators.Column).Values().([]int64)
	require.Len(t, xs, 20)
	require.Equal(t, int64(19), xs[19])
}

func TestClusterRetries(t *testing.T) {
	ds := createTestDataSource(t, 10)
	var failed int32
	job := &accrue.Job{Loader: ds, Processor: accrue.ProcessorFunc(func(view accrue.View) (accrue.Accumulator, error) {
		if firstX(view) == 4 && atomic.CompareAndSwapInt32(&failed, 0, 1) {
			panic("flaky processor")
		}
		return accumulators.NewValue(1), nil
	})}
	res, err := accruetest.LocalRunCluster(context.Background(), ds.Analyze(), job, nodeOptions(1, ""), execOptions(&executor.Options{Retries: 2}), 2)
	require.Nil(t, err)
	require.Equal(t, 10, res.Accumulator.(*accumulators.Value).Get())
	require.EqualValues(t, 1, res.Stats.Retries)
}

func TestClusterSkips(t *testing.T) {
	ds := createTestDataSource(t, 10)
	job := &accrue.Job{Loader: ds, Processor: accrue.ProcessorFunc(func(view accrue.View) (accrue.Accumulator, error) {
		if firstX(view) == 3 {
			return nil, fmt.Errorf("unreadable chunk")
		}
		return accumulators.NewValue(1), nil
	})}
	res, err := accruetest.LocalRunCluster(context.Background(), ds.Analyze(), job, nodeOptions(2, ""), execOptions(&executor.Options{
		Retries:      1,
		OnChunkError: executor.SkipOnChunkError,
	}), 2)
	require.Nil(t, err)
	require.Equal(t, 9, res.Accumulator.(*accumulators.Value).Get())
	require.Len(t, res.Skipped, 1)
	var perr *errors.ProcessorError
	require.True(t, goerrors.As(res.Skipped[0].Err, &perr))
	require.Equal(t, "unreadable chunk", perr.Err.Error())
	require.Equal(t, int64(3), perr.Chunk.Start)
}

func TestClusterShapeMismatch(t *testing.T) {
	ds := createTestDataSource(t, 4)
	job := &accrue.Job{Loader: ds, Processor: accrue.ProcessorFunc(func(view accrue.View) (accrue.Accumulator, error) {
		if firstX(view) == 0 {
			return accumulators.NewValue(int64(1)), nil
		}
		return accumulators.NewValue(1.5), nil
	})}
	res, err := accruetest.LocalRunCluster(context.Background(), ds.Analyze(), job, nodeOptions(1, ""), execOptions(&executor.Options{Retries: 3}), 1)
	require.NotNil(t, err)
	require.True(t, errors.IsFatal(err))
	require.Equal(t, executor.RunAborted, res.State)
}

func TestCreateNode(t *testing.T) {
	_, err := cluster.CreateNodeInRole("observer", &cluster.NodeOptions{NumWorkers: 1, CoordinatorHost: "localhost"})
	require.NotNil(t, err)
	_, err = cluster.CreateNodeInRole(cluster.Coordinator, &cluster.NodeOptions{CoordinatorHost: "localhost"})
	require.NotNil(t, err)
	_, err = cluster.CreateNodeInRole(cluster.Worker, &cluster.NodeOptions{NumWorkers: 1})
	require.NotNil(t, err)
	_, err = cluster.CreateNodeInRole(cluster.Worker, &cluster.NodeOptions{NumWorkers: 1, CoordinatorHost: "localhost", Compression: "gzip"})
	require.NotNil(t, err)

	defer os.Unsetenv("ACCRUE_NODE_TYPE")
	os.Unsetenv("ACCRUE_NODE_TYPE")
	_, err = cluster.CreateNode(&cluster.NodeOptions{NumWorkers: 1, CoordinatorHost: "localhost"})
	require.NotNil(t, err)
	os.Setenv("ACCRUE_NODE_TYPE", "observer")
	_, err = cluster.CreateNode(&cluster.NodeOptions{NumWorkers: 1, CoordinatorHost: "localhost"})
	require.NotNil(t, err)
	os.Setenv("ACCRUE_NODE_TYPE", cluster.Worker)
	node, err := cluster.CreateNode(&cluster.NodeOptions{NumWorkers: 1, CoordinatorHost: "localhost"})
	require.Nil(t, err)
	require.False(t, node.IsCoordinator())
	_, err = cluster.Executor(context.Background(), node, nil, nil)
	require.NotNil(t, err)
}

type countingLoader struct {
	source accrue.ChunkLoader
	loads  int32
}

func (l *countingLoader) Load(ctx context.Context, c accrue.Chunk) (accrue.View, error) {
	atomic.AddInt32(&l.loads, 1)
	return l.source.Load(ctx, c)
}

func TestClusterViewCache(t *testing.T) {
	ds := createTestDataSource(t, 10)
	loader := &countingLoader{source: ds}
	var failures int32
	job := &accrue.Job{Loader: loader, Processor: accrue.ProcessorFunc(func(view accrue.View) (accrue.Accumulator, error) {
		if firstX(view) == 4 && atomic.AddInt32(&failures, 1) <= 2 {
			return nil, fmt.Errorf("flaky processor")
		}
		return accumulators.NewValue(1), nil
	})}
	opts := nodeOptions(1, "")
	opts.ViewCacheSize = 16
	res, err := accruetest.LocalRunCluster(context.Background(), ds.Analyze(), job, opts, execOptions(&executor.Options{Retries: 2}), 1)
	require.Nil(t, err)
	require.Equal(t, 10, res.Accumulator.(*accumulators.Value).Get())
	// retries of chunk 4 were served from the worker's cache
	require.EqualValues(t, 10, atomic.LoadInt32(&loader.loads))
}
