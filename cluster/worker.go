package cluster

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/executor"
	"github.com/go-sif/accrue/internal/rpc"
	"github.com/go-sif/accrue/internal/vcache"
	"github.com/go-sif/accrue/logging"
	uuid "github.com/gofrs/uuid"
	"google.golang.org/grpc"
)

type worker struct {
	id            string
	opts          *NodeOptions
	log           *logging.Logger
	server        *grpc.Server
	lifecycleLock sync.Mutex
	clusterClient *rpc.ClusterServiceClient
	logClient     *rpc.LogServiceClient
	jobFinished   chan struct{}
}

// createWorker is a factory for Workers
func createWorker(opts *NodeOptions) (*worker, error) {
	// default certain options if not supplied
	if err := ensureDefaultNodeOptionsValues(opts); err != nil {
		return nil, err
	}
	// generate worker ID
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID: %v", err)
	}
	return &worker{
		id:          id.String(),
		opts:        opts,
		log:         opts.Logger.WithSource("worker " + id.String()[:8]),
		jobFinished: make(chan struct{}),
	}, nil
}

func (w *worker) mconnect() (*grpc.ClientConn, error) {
	// start client
	conn, err := grpc.Dial(w.opts.coordinatorConnectionString(), grpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("fail to dial: %v", err)
	}
	w.logClient = rpc.NewLogServiceClient(conn)
	w.clusterClient = rpc.NewClusterServiceClient(conn)
	return conn, nil
}

func (w *worker) register(port int) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.RPCTimeout)
	defer cancel()
	if w.clusterClient == nil {
		return fmt.Errorf("cannot register before dialing coordinator with mconnect()")
	}
	desc := &workerDescriptor{ID: w.id, Port: port, Slots: w.opts.WorkerSlots}
	req, err := desc.toStruct()
	if err != nil {
		return err
	}
	_, err = w.clusterClient.RegisterWorker(ctx, req)
	return err
}

// ID returns the ID of this worker
func (w *worker) ID() string {
	return w.id
}

// IsCoordinator returns true for coordinators
func (w *worker) IsCoordinator() bool {
	return false
}

// Start the worker - will block the current thread
func (w *worker) Start(job *accrue.Job) error {
	defer close(w.jobFinished)
	if job == nil || job.Loader == nil || job.Processor == nil {
		return fmt.Errorf("a Job with a ChunkLoader and a Processor is required")
	}
	// connect to coordinator
	conn, err := w.mconnect()
	if err != nil {
		return err
	}
	defer conn.Close()
	// start worker server
	lis, err := net.Listen("tcp", w.opts.connectionString())
	if err != nil {
		return fmt.Errorf("failed to listen: %v", err)
	}
	w.lifecycleLock.Lock()
	w.server = grpc.NewServer()
	server := w.server
	w.lifecycleLock.Unlock()
	// forward warnings and errors to the coordinator
	w.log.SetSink(remoteSink(w.logClient, w.opts.RPCTimeout))
	// register rpc handlers for job execution
	rpc.RegisterLifecycleServiceServer(server, createLifecycleServer(w, w.log))
	rpc.RegisterExecutionServiceServer(server, createExecutionServer(w.id, executor.NewRunner(w.cachingJob(job)), w.opts, w.log))
	// serve before registering, so that the coordinator can reach us immediately
	served := make(chan error, 1)
	go func() {
		served <- server.Serve(lis)
	}()
	if err = w.registerWithCoordinator(lis.Addr().(*net.TCPAddr).Port); err != nil {
		server.Stop()
		<-served
		return err
	}
	w.log.Infof("Worker serving at %s", lis.Addr())
	if err = <-served; err != nil {
		return fmt.Errorf("failed to serve: %v", err)
	}
	return nil
}

// cachingJob wraps the Job's ChunkLoader with a View cache, if configured
func (w *worker) cachingJob(job *accrue.Job) *accrue.Job {
	if w.opts.ViewCacheSize == 0 {
		return job
	}
	return &accrue.Job{Loader: vcache.NewLRU(job.Loader, w.opts.ViewCacheSize), Processor: job.Processor}
}

// GracefulStop the worker, waiting for RPCs to finish
func (w *worker) GracefulStop() error {
	w.lifecycleLock.Lock()
	defer w.lifecycleLock.Unlock()
	if w.server != nil {
		w.server.GracefulStop()
		w.server = nil
	}
	return nil
}

// Stop the worker immediately
func (w *worker) Stop() error {
	w.lifecycleLock.Lock()
	defer w.lifecycleLock.Unlock()
	if w.server != nil {
		w.server.Stop()
		w.server = nil
	}
	return nil
}

// Run is a no-op for workers, blocking until the worker is shut down
func (w *worker) Run(ctx context.Context, source accrue.ChunkSource, opts *executor.Options) (*executor.Result, error) {
	select {
	case <-w.jobFinished:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// registerWithCoordinator retries registration at one second intervals
func (w *worker) registerWithCoordinator(port int) error {
	var err error
	for retries := 0; retries < w.opts.WorkerJoinRetries; retries++ {
		if err = w.register(port); err == nil {
			return nil
		}
		w.log.Debugf("Unable to register with coordinator (attempt %d): %v", retries+1, err)
		time.Sleep(time.Second)
	}
	return fmt.Errorf("unable to register with coordinator at %s: %w", w.opts.coordinatorConnectionString(), err)
}
