package executor

import (
	"context"
	"fmt"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/errors"
)

// iterativeBackend runs each Task to completion inside Submit, on the
// calling goroutine. Results are therefore delivered in submission order.
type iterativeBackend struct {
	runner    *Runner
	completed chan *Task
	stopped   bool
}

// NewIterativeBackend creates an in-process Backend without concurrency
func NewIterativeBackend() Backend {
	return &iterativeBackend{}
}

func (b *iterativeBackend) Name() string {
	return "iterative"
}

func (b *iterativeBackend) Start(ctx context.Context, job *accrue.Job, window int) error {
	b.runner = NewRunner(job)
	b.completed = make(chan *Task, window)
	b.stopped = false
	return nil
}

func (b *iterativeBackend) Submit(ctx context.Context, task *Task) error {
	if b.runner == nil || b.stopped {
		return &errors.BackendUnavailableError{Backend: b.Name(), Err: fmt.Errorf("backend is not running")}
	}
	task.Set(TaskSubmitted, "")
	b.runner.Run(ctx, task, b.Name())
	b.completed <- task
	return nil
}

func (b *iterativeBackend) Completed() <-chan *Task {
	return b.completed
}

func (b *iterativeBackend) Shutdown() error {
	b.stopped = true
	return nil
}
