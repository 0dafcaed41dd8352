package main

import (
	"fmt"
	"time"

	"github.com/go-sif/accrue/cluster"
	"github.com/spf13/cobra"
)

type nodeFlags struct {
	run         runFlags
	role        string
	opts        cluster.NodeOptions
	joinTimeout time.Duration
	rpcTimeout  time.Duration
	taskTimeout time.Duration
}

func newNodeCommand() *cobra.Command {
	f := &nodeFlags{}
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Start a cluster node; the coordinator runs the job once all workers have joined",
		Long: "Start a cluster node. The role is taken from --role, or else from $ACCRUE_NODE_TYPE. " +
			"Every node must be given the same data flags.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cluster.CloneNodeOptions(&f.opts)
			opts.WorkerJoinTimeout = f.joinTimeout
			opts.RPCTimeout = f.rpcTimeout
			opts.TaskTimeout = f.taskTimeout
			var node cluster.Node
			var err error
			if len(f.role) > 0 {
				node, err = cluster.CreateNodeInRole(f.role, opts)
			} else {
				node, err = cluster.CreateNode(opts)
			}
			if err != nil {
				return err
			}
			job, newSource, err := f.run.data.build()
			if err != nil {
				return err
			}
			served := make(chan error, 1)
			go func() {
				served <- node.Start(job)
			}()
			if !node.IsCoordinator() {
				select {
				case err = <-served:
					return err
				case <-cmd.Context().Done():
					node.Stop()
					<-served
					return cmd.Context().Err()
				}
			}
			defer node.GracefulStop()
			execOpts, err := f.run.options()
			if err != nil {
				return err
			}
			source, closeSource, err := newSource()
			if err != nil {
				return err
			}
			defer closeSource()
			res, err := cluster.Executor(cmd.Context(), node, source, execOpts)
			if res != nil {
				printResult(cmd, res)
			}
			if err != nil {
				return err
			}
			select {
			case err = <-served:
				return fmt.Errorf("coordinator stopped unexpectedly: %v", err)
			default:
				return nil
			}
		},
	}
	f.run.data.register(cmd)
	cmd.Flags().StringVar(&f.run.optionsFile, "options", "", "YAML file of executor options (coordinator only)")
	cmd.Flags().BoolVar(&f.run.progress, "progress", false, "print progress every second (coordinator only)")
	cmd.Flags().StringVar(&f.role, "role", "", "coordinator or worker")
	cmd.Flags().StringVar(&f.opts.Host, "host", "0.0.0.0", "hostname to bind to")
	cmd.Flags().IntVar(&f.opts.Port, "port", 1643, "port to bind to (0 picks a free port)")
	cmd.Flags().StringVar(&f.opts.CoordinatorHost, "coordinator-host", "localhost", "hostname of the coordinator")
	cmd.Flags().IntVar(&f.opts.CoordinatorPort, "coordinator-port", 1643, "port of the coordinator")
	cmd.Flags().IntVar(&f.opts.NumWorkers, "num-workers", 1, "number of workers the coordinator waits for")
	cmd.Flags().IntVar(&f.opts.WorkerSlots, "slots", 1, "chunks each worker processes concurrently")
	cmd.Flags().IntVar(&f.opts.WorkerJoinRetries, "join-retries", 5, "how many times a worker tries to register")
	cmd.Flags().StringVar(&f.opts.Compression, "compression", "lz4", "result compression: lz4, zstd or none")
	cmd.Flags().IntVar(&f.opts.ViewCacheSize, "view-cache", 0, "loaded chunks each worker keeps for retries")
	cmd.Flags().DurationVar(&f.joinTimeout, "join-timeout", 30*time.Second, "how long the coordinator waits for workers")
	cmd.Flags().DurationVar(&f.rpcTimeout, "rpc-timeout", 5*time.Second, "timeout for control RPCs")
	cmd.Flags().DurationVar(&f.taskTimeout, "task-timeout", 0, "timeout for a single chunk on a worker (0 for none)")
	return cmd
}
