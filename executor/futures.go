package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/errors"
	"golang.org/x/sync/semaphore"
)

// poolBackend runs Tasks on goroutines, at most workers at a time. Results
// are delivered in completion order.
type poolBackend struct {
	workers   int
	runner    *Runner
	slots     *semaphore.Weighted
	completed chan *Task
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lock      sync.Mutex
	stopped   bool
}

// NewPoolBackend creates a Backend which runs up to workers Tasks concurrently
func NewPoolBackend(workers int) Backend {
	if workers < 1 {
		workers = 1
	}
	return &poolBackend{workers: workers}
}

func (b *poolBackend) Name() string {
	return fmt.Sprintf("pool(%d)", b.workers)
}

func (b *poolBackend) Start(ctx context.Context, job *accrue.Job, window int) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.runner = NewRunner(job)
	b.slots = semaphore.NewWeighted(int64(b.workers))
	b.completed = make(chan *Task, window)
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.stopped = false
	return nil
}

func (b *poolBackend) Submit(ctx context.Context, task *Task) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.runner == nil || b.stopped {
		return &errors.BackendUnavailableError{Backend: b.Name(), Err: fmt.Errorf("backend is not running")}
	}
	task.Set(TaskSubmitted, "")
	b.wg.Add(1)
	go b.run(task)
	return nil
}

func (b *poolBackend) run(task *Task) {
	defer b.wg.Done()
	if err := b.slots.Acquire(b.ctx, 1); err != nil {
		task.Fail(err)
		b.completed <- task
		return
	}
	b.runner.Run(b.ctx, task, b.Name())
	b.slots.Release(1)
	b.completed <- task
}

func (b *poolBackend) Completed() <-chan *Task {
	return b.completed
}

// Shutdown cancels in-flight Tasks and waits for their goroutines to exit
func (b *poolBackend) Shutdown() error {
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
