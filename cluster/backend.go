package cluster

import (
	"context"
	goerrors "errors"
	"fmt"
	"sync"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/accumulators"
	"github.com/go-sif/accrue/errors"
	"github.com/go-sif/accrue/executor"
	"github.com/go-sif/accrue/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// remoteWorker is the Coordinator's handle on a Worker
type remoteWorker struct {
	desc   *workerDescriptor
	client *rpc.ExecutionServiceClient
}

// clusterBackend submits Tasks to Workers over gRPC. Each Worker offers a
// fixed number of slots; a Task waits for any free slot. A Worker whose
// transport fails loses its slots for the rest of the run.
type clusterBackend struct {
	workers     []*remoteWorker
	compression rpc.Compression
	slots       chan *remoteWorker
	completed   chan *executor.Task
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lock        sync.Mutex
	lost        map[string]bool
	noWorkers   chan struct{}
	stopped     bool
}

func createClusterBackend(workers []*workerDescriptor, conns []*grpc.ClientConn, compression rpc.Compression) *clusterBackend {
	b := &clusterBackend{compression: compression}
	for i, w := range workers {
		b.workers = append(b.workers, &remoteWorker{desc: w, client: rpc.NewExecutionServiceClient(conns[i])})
	}
	return b
}

func (b *clusterBackend) Name() string {
	return fmt.Sprintf("cluster(%d)", len(b.workers))
}

func (b *clusterBackend) Start(ctx context.Context, job *accrue.Job, window int) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if len(b.workers) == 0 {
		return fmt.Errorf("no workers are registered")
	}
	total := 0
	for _, w := range b.workers {
		total += w.desc.Slots
	}
	b.slots = make(chan *remoteWorker, total)
	for _, w := range b.workers {
		for i := 0; i < w.desc.Slots; i++ {
			b.slots <- w
		}
	}
	b.completed = make(chan *executor.Task, window)
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.lost = make(map[string]bool)
	b.noWorkers = make(chan struct{})
	b.stopped = false
	return nil
}

func (b *clusterBackend) Submit(ctx context.Context, task *executor.Task) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.stopped || b.completed == nil {
		return &errors.BackendUnavailableError{Backend: b.Name(), Err: fmt.Errorf("backend is not running")}
	}
	if len(b.lost) == len(b.workers) {
		return &errors.BackendUnavailableError{Backend: b.Name(), Err: fmt.Errorf("all workers were lost")}
	}
	task.Set(executor.TaskSubmitted, "")
	b.wg.Add(1)
	go b.run(task)
	return nil
}

func (b *clusterBackend) run(task *executor.Task) {
	defer b.wg.Done()
	var w *remoteWorker
	select {
	case w = <-b.slots:
	case <-b.noWorkers:
		task.Fail(&errors.BackendUnavailableError{Backend: b.Name(), Err: fmt.Errorf("all workers were lost")})
		b.completed <- task
		return
	case <-b.ctx.Done():
		task.Fail(b.ctx.Err())
		b.completed <- task
		return
	}
	task.Set(executor.TaskRunning, w.desc.ID)
	if lost := b.process(w, task); lost {
		b.markLost(w)
	} else {
		b.slots <- w
	}
	b.completed <- task
}

// process runs a Task on a Worker, and returns true iff the Worker is unreachable
func (b *clusterBackend) process(w *remoteWorker, task *executor.Task) bool {
	payload, err := rpc.Encode(&rpc.ChunkRequest{
		Chunk:       task.Chunk,
		Attempt:     task.Attempt,
		Compression: b.compression,
	}, b.compression)
	if err != nil {
		task.Fail(fmt.Errorf("unable to encode chunk request: %w", err))
		return false
	}
	out, err := w.client.ProcessChunk(b.ctx, wrapperspb.Bytes(payload))
	if err != nil {
		if b.ctx.Err() != nil {
			task.Fail(b.ctx.Err())
			return false
		}
		task.Fail(&errors.WorkerLostError{Worker: w.desc.ID, Err: err})
		return status.Code(err) == codes.Unavailable
	}
	var res rpc.ChunkResponse
	if err := rpc.Decode(out.GetValue(), &res); err != nil {
		task.Fail(&errors.WorkerLostError{Worker: w.desc.ID, Err: fmt.Errorf("unreadable response: %w", err)})
		return false
	}
	if res.ErrKind != rpc.NoError {
		task.Fail(remoteError(task.Chunk, w.desc.ID, &res))
		return false
	}
	var acc accrue.Accumulator
	if res.Accumulator != nil {
		if acc, err = accumulators.Unmarshal(res.Accumulator); err != nil {
			task.Fail(&errors.WorkerLostError{Worker: w.desc.ID, Err: fmt.Errorf("unreadable accumulator: %w", err)})
			return false
		}
	}
	task.Complete(acc, res.Events, res.Bytes)
	return false
}

// remoteError rebuilds a typed error from a failed ChunkResponse
func remoteError(c accrue.Chunk, worker string, res *rpc.ChunkResponse) error {
	cause := goerrors.New(res.ErrMessage)
	switch res.ErrKind {
	case rpc.FetchError:
		return &errors.ChunkFetchError{Chunk: c, Err: cause}
	case rpc.ProcessorError:
		return &errors.ProcessorError{Chunk: c, Err: cause, Panic: res.Panic}
	case rpc.CanceledError:
		return &errors.WorkerLostError{Worker: worker, Err: fmt.Errorf("worker abandoned chunk: %w", cause)}
	default:
		return fmt.Errorf("worker %s: %w", worker, cause)
	}
}

func (b *clusterBackend) markLost(w *remoteWorker) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.lost[w.desc.ID] {
		return
	}
	b.lost[w.desc.ID] = true
	if len(b.lost) == len(b.workers) {
		close(b.noWorkers)
	}
}

func (b *clusterBackend) Completed() <-chan *executor.Task {
	return b.completed
}

// Shutdown cancels in-flight RPCs and waits for their goroutines to exit
func (b *clusterBackend) Shutdown() error {
	b.lock.Lock()
	if b.stopped || b.cancel == nil {
		b.lock.Unlock()
		return nil
	}
	b.stopped = true
	b.cancel()
	b.lock.Unlock()
	b.wg.Wait()
	return nil
}
