package executor

import (
	"context"

	"github.com/go-sif/accrue"
)

// A Backend is an execution strategy for Tasks. The executor guarantees that
// no more than window Tasks are submitted and not yet received from Completed,
// so Backends may size their completion channel accordingly.
//
// Backends never see the running total: they only produce each Task's private
// Accumulator.
type Backend interface {
	// Name identifies the Backend in logs and errors
	Name() string
	// Start prepares the Backend to run Tasks for a Job
	Start(ctx context.Context, job *accrue.Job, window int) error
	// Submit hands a Task to the Backend. An error means the Backend cannot
	// accept more work.
	Submit(ctx context.Context, task *Task) error
	// Completed delivers submitted Tasks, in completion order, once they are
	// TaskCompleted or TaskFailed
	Completed() <-chan *Task
	// Shutdown cancels in-flight Tasks and releases the Backend's resources
	Shutdown() error
}
