package cluster

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/executor"
	"github.com/go-sif/accrue/internal/rpc"
	"github.com/go-sif/accrue/logging"
)

// NodeRole describes the intended role of a Node
type NodeRole = string

const (
	// Coordinator indicates that a node should coordinate work
	//   e.g. CreateNodeInRole(Coordinator, &NodeOptions{...})
	Coordinator NodeRole = "coordinator"
	// Worker indicates that a node should process Chunks
	//   e.g. CreateNodeInRole(Worker, &NodeOptions{...})
	Worker NodeRole = "worker"
)

// Node is a member of an accrue cluster, either coordinating or performing work.
// Nodes present several methods to control their lifecycle.
type Node interface {
	IsCoordinator() bool
	// Start serves RPCs for a Job, blocking until the Node is stopped.
	// Every Node in a cluster must be started with an equivalent Job.
	Start(job *accrue.Job) error
	GracefulStop() error
	Stop() error
	// Run processes every Chunk from source across the cluster. Workers
	// ignore their arguments, and block until they are stopped.
	Run(ctx context.Context, source accrue.ChunkSource, opts *executor.Options) (*executor.Result, error)
}

// NodeOptions are options for a Node, configuring elements of an accrue cluster
type NodeOptions struct {
	Port              int             // port for this Node to bind to (0 picks a free port)
	Host              string          // hostname for this Node to bind to
	CoordinatorPort   int             // port for the Coordinator Node (potentially identical to Port if this is the Coordinator)
	CoordinatorHost   string          // [REQUIRED] hostname of the Coordinator Node (potentially identical to Host if this is the Coordinator)
	NumWorkers        int             // [REQUIRED] the number of Workers to wait for before running the job
	WorkerJoinTimeout time.Duration   // how long the Coordinator should wait for Workers to join
	WorkerJoinRetries int             // how many times a Worker should retry connecting to the Coordinator (at one second intervals)
	WorkerSlots       int             // how many Chunks each Worker processes concurrently
	RPCTimeout        time.Duration   // timeout for control RPC calls (registration, logging, shutdown)
	TaskTimeout       time.Duration   // timeout for a single Chunk on a Worker, or 0 for none
	Compression       rpc.Compression // compression for Chunk results: "lz4", "zstd" or "none"
	ViewCacheSize     int             // how many loaded Views a Worker keeps for retries, or 0 for none
	Logger            *logging.Logger // defaults to logging.Default()
}

// CloneNodeOptions makes a copy of a NodeOptions
func CloneNodeOptions(opts *NodeOptions) *NodeOptions {
	clone := *opts
	return &clone
}

func ensureDefaultNodeOptionsValues(opts *NodeOptions) error {
	// fail if certain required options are not supplied
	if opts.NumWorkers <= 0 {
		return fmt.Errorf("NodeOptions.NumWorkers must be greater than 0")
	}
	if len(opts.CoordinatorHost) == 0 {
		return fmt.Errorf("NodeOptions.CoordinatorHost must be the IP address of the accrue Coordinator")
	}
	// default certain options if not supplied
	if len(opts.Host) == 0 {
		opts.Host = "0.0.0.0"
	}
	if opts.CoordinatorPort == 0 {
		opts.CoordinatorPort = 1643
	}
	if opts.RPCTimeout == 0 {
		opts.RPCTimeout = 5 * time.Second
	}
	if opts.WorkerJoinTimeout == 0 {
		opts.WorkerJoinTimeout = 30 * time.Second
	}
	if opts.WorkerJoinRetries == 0 {
		opts.WorkerJoinRetries = 5
	}
	if opts.ViewCacheSize < 0 {
		return fmt.Errorf("NodeOptions.ViewCacheSize must not be negative")
	}
	if opts.WorkerSlots == 0 {
		opts.WorkerSlots = 1
	}
	if len(opts.Compression) == 0 {
		opts.Compression = rpc.LZ4Compression
	}
	if err := rpc.ValidCompression(opts.Compression); err != nil {
		return err
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return nil
}

// connectionString returns the connection string for this node
func (o *NodeOptions) connectionString() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// coordinatorConnectionString returns the connection string for the coordinator
func (o *NodeOptions) coordinatorConnectionString() string {
	return fmt.Sprintf("%s:%d", o.CoordinatorHost, o.CoordinatorPort)
}

// CreateNodeInRole creates an accrue node in a specific role (Coordinator or Worker)
func CreateNodeInRole(role NodeRole, opts *NodeOptions) (Node, error) {
	switch role {
	case Coordinator:
		return createCoordinator(opts)
	case Worker:
		return createWorker(opts)
	default:
		return nil, fmt.Errorf("%s is an unknown NodeRole", role)
	}
}

// CreateNode creates an accrue node, deriving role from environment variables
func CreateNode(opts *NodeOptions) (Node, error) {
	role := os.Getenv("ACCRUE_NODE_TYPE")
	if len(role) == 0 {
		return nil, fmt.Errorf("$ACCRUE_NODE_TYPE is not set - must be \"%s\" or \"%s\"", Coordinator, Worker)
	}
	switch role {
	case Coordinator, Worker:
		return CreateNodeInRole(role, opts)
	default:
		return nil, fmt.Errorf("$ACCRUE_NODE_TYPE=\"%s\" is an unknown NodeRole", role)
	}
}

// Executor runs a Job across the cluster managed by a Coordinator Node,
// which must already have been started
func Executor(ctx context.Context, coordinator Node, source accrue.ChunkSource, opts *executor.Options) (*executor.Result, error) {
	if !coordinator.IsCoordinator() {
		return nil, fmt.Errorf("runs must be driven by a Coordinator node")
	}
	return coordinator.Run(ctx, source, opts)
}
