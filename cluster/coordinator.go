package cluster

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/executor"
	"github.com/go-sif/accrue/internal/rpc"
	"github.com/go-sif/accrue/logging"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// coordinator is a Coordinator node which has lifecycle methods
type coordinator struct {
	opts              *NodeOptions
	log               *logging.Logger
	server            *grpc.Server
	clusterServer     *clusterServer
	job               *accrue.Job
	lifecycleLock     sync.Mutex
	bootstrappingLock sync.Mutex
	bootstrapped      chan struct{}
}

func createCoordinator(opts *NodeOptions) (*coordinator, error) {
	// default certain options if not supplied
	if err := ensureDefaultNodeOptionsValues(opts); err != nil {
		return nil, err
	}
	log := opts.Logger.WithSource("coordinator")
	return &coordinator{
		opts:          opts,
		log:           log,
		clusterServer: createClusterServer(log),
		bootstrapped:  make(chan struct{}),
	}, nil
}

// IsCoordinator returns true for coordinators
func (c *coordinator) IsCoordinator() bool {
	return true
}

// Start the Coordinator - blocking unless run in a goroutine
func (c *coordinator) Start(job *accrue.Job) error {
	if job == nil || job.Processor == nil {
		return fmt.Errorf("a Job with a Processor is required")
	}
	c.job = job
	// start server
	lis, err := net.Listen("tcp", c.opts.connectionString())
	if err != nil {
		return fmt.Errorf("failed to listen: %v", err)
	}
	c.lifecycleLock.Lock()
	c.server = grpc.NewServer()
	server := c.server
	c.lifecycleLock.Unlock()
	// register rpc handlers
	rpc.RegisterClusterServiceServer(server, c.clusterServer)
	rpc.RegisterLogServiceServer(server, createLogServer(c.log))
	// we're done bootstrapping
	close(c.bootstrapped)
	c.log.Infof("Starting accrue Coordinator at %s", lis.Addr())
	if err = server.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %v", err)
	}
	return nil
}

// GracefulStop the Coordinator, waiting for RPCs to finish
func (c *coordinator) GracefulStop() error {
	c.lifecycleLock.Lock()
	defer c.lifecycleLock.Unlock()
	if c.server != nil {
		c.server.GracefulStop()
		c.server = nil
	}
	return nil
}

// Stop the Coordinator immediately
func (c *coordinator) Stop() error {
	c.lifecycleLock.Lock()
	defer c.lifecycleLock.Unlock()
	if c.server != nil {
		c.server.Stop()
		c.server = nil
	}
	return nil
}

// Run processes every Chunk from source on the cluster's Workers, and stops
// the Workers once the run is finished
func (c *coordinator) Run(ctx context.Context, source accrue.ChunkSource, opts *executor.Options) (*executor.Result, error) {
	select {
	case <-c.bootstrapped:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	// one run at a time
	c.bootstrappingLock.Lock()
	defer c.bootstrappingLock.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, c.opts.WorkerJoinTimeout)
	defer cancel()
	c.log.Infof("Waiting for %d workers to connect...", c.opts.NumWorkers)
	if err := c.clusterServer.waitForWorkers(waitCtx, c.opts.NumWorkers); err != nil {
		return nil, err
	}
	workers := c.clusterServer.Workers()
	workerConns, err := dialWorkers(ctx, workers)
	if err != nil {
		return nil, err
	}
	// now that worker connections are open, defer shutting them down
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), c.opts.RPCTimeout)
		defer cancel()
		if err := stopWorkers(stopCtx, c.log, workers, workerConns); err != nil {
			c.log.Warnf("Unable to stop all workers: %v", err)
		}
		closeGRPCConnections(workerConns)
		c.clusterServer.forget(workers)
	}()
	if opts == nil {
		opts = &executor.Options{}
	}
	opts = executor.CloneOptions(opts)
	if opts.Logger == nil {
		opts.Logger = c.opts.Logger
	}
	backend := createClusterBackend(workers, workerConns, c.opts.Compression)
	c.log.Infof("Running job on %d workers...", len(workers))
	return executor.Run(ctx, source, c.job, backend, opts)
}

func dialWorker(w *workerDescriptor) (*grpc.ClientConn, error) {
	conn, err := grpc.Dial(w.connectionString(), grpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("fail to dial worker %s: %v", w.ID, err)
	}
	return conn, nil
}

// dialWorkers opens a connection to every worker concurrently
func dialWorkers(ctx context.Context, workers []*workerDescriptor) ([]*grpc.ClientConn, error) {
	conns := make([]*grpc.ClientConn, len(workers))
	g, _ := errgroup.WithContext(ctx)
	for i := range workers {
		i := i
		g.Go(func() error {
			conn, err := dialWorker(workers[i])
			conns[i] = conn
			return err
		})
	}
	if err := g.Wait(); err != nil {
		closeGRPCConnections(conns)
		return nil, err
	}
	return conns, nil
}

func closeGRPCConnections(conns []*grpc.ClientConn) {
	for _, conn := range conns {
		if conn != nil {
			conn.Close()
		}
	}
}

// stopWorkers asks every worker to stop concurrently
func stopWorkers(ctx context.Context, log *logging.Logger, workers []*workerDescriptor, workerConns []*grpc.ClientConn) error {
	var g errgroup.Group
	for i := range workers {
		w, conn := workers[i], workerConns[i]
		log.Infof("Stopping worker %s...", w.ID)
		g.Go(func() error {
			if _, err := rpc.NewLifecycleServiceClient(conn).Stop(ctx); err != nil {
				return fmt.Errorf("Unable to stop worker %s: %w", w.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
