// Package testing provides helpers for running accrue jobs on a local,
// in-process cluster.
package testing

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/cluster"
	"github.com/go-sif/accrue/executor"
)

// LocalRunCluster runs a Job on a localhost test cluster with a certain
// number of workers, all sharing the same Job
func LocalRunCluster(ctx context.Context, source accrue.ChunkSource, job *accrue.Job, opts *cluster.NodeOptions, execOpts *executor.Options, numWorkers int) (result *executor.Result, err error) {
	// handle panics
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = anErr
			} else {
				panic(r)
			}
		}
	}()

	port, err := freePort()
	if err != nil {
		return nil, err
	}
	// configure and start coordinator
	opts = cluster.CloneNodeOptions(opts)
	opts.Host = "127.0.0.1"
	opts.Port = port
	opts.CoordinatorPort = opts.Port
	opts.CoordinatorHost = "127.0.0.1"
	opts.NumWorkers = numWorkers
	if opts.WorkerJoinTimeout == 0 {
		opts.WorkerJoinTimeout = 5 * time.Second
	}
	if opts.RPCTimeout == 0 {
		opts.RPCTimeout = 5 * time.Second
	}

	coordinator, err := cluster.CreateNodeInRole(cluster.Coordinator, opts)
	if err != nil {
		return nil, err
	}
	errs := make(chan error, numWorkers+1)
	go func() {
		if err := coordinator.Start(job); err != nil {
			errs <- err
		}
	}()
	defer coordinator.GracefulStop()

	// start workers, on ports chosen by the OS
	for i := 0; i < numWorkers; i++ {
		wopts := cluster.CloneNodeOptions(opts)
		wopts.Port = 0
		worker, err := cluster.CreateNodeInRole(cluster.Worker, wopts)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := worker.Start(job); err != nil {
				errs <- err
			}
		}()
		defer worker.Stop()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case err := <-errs:
			if err != nil {
				cancel()
			}
		case <-runCtx.Done():
		}
	}()
	result, err = cluster.Executor(runCtx, coordinator, source, execOpts)
	if err != nil && result == nil {
		return nil, fmt.Errorf("unable to run job on local cluster: %w", err)
	}
	return result, err
}

func freePort() (int, error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port, nil
}
