package executor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/docker/docker/pkg/locker"
	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/errors"
	iutil "github.com/go-sif/accrue/internal/util"
)

// TaskState represents the runtime state of a Task. TaskState values are
// defined so that their magnitudes correspond with task progression.
type TaskState int

const (
	// TaskPending is the initial state of a task, which has not yet been
	// handed to a Backend
	TaskPending TaskState = iota
	// TaskSubmitted indicates that a Backend has accepted the task, but has
	// not yet allocated resources to it
	TaskSubmitted
	// TaskRunning is the state of a task that's currently being run
	TaskRunning
	// TaskCompleted indicates that a task has successfully produced its Accumulator
	TaskCompleted
	// TaskFailed indicates that the task experienced a failure while running
	TaskFailed
)

var states = [...]string{
	TaskPending:   "PENDING",
	TaskSubmitted: "SUBMITTED",
	TaskRunning:   "RUNNING",
	TaskCompleted: "COMPLETED",
	TaskFailed:    "FAILED",
}

// String returns the task's state as an upper-case string
func (s TaskState) String() string {
	return states[s]
}

// A Task is a single attempt at processing one Chunk. A retry is a new Task
// with the next Attempt number, created only after its predecessor Failed.
// Tasks are owned by the executor; a Backend reports a Task's outcome through
// Complete or Fail and then delivers it on its Completed channel, which also
// makes the Task itself the handle for the submission.
type Task struct {
	Chunk   accrue.Chunk
	Attempt int // starts at 1

	mu       sync.Mutex
	state    TaskState
	result   accrue.Accumulator
	err      error
	events   int
	bytes    int64
	worker   string
	started  time.Time
	finished time.Time
}

// NewTask creates a pending Task for an attempt at a Chunk
func NewTask(c accrue.Chunk, attempt int) *Task {
	return &Task{Chunk: c, Attempt: attempt}
}

// State returns the current state of the Task
func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Set advances the Task to a non-terminal state, recording which worker runs it
func (t *Task) Set(state TaskState, worker string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	if len(worker) > 0 {
		t.worker = worker
	}
	if state == TaskRunning {
		t.started = time.Now()
	}
}

// Complete records a successful result
func (t *Task) Complete(result accrue.Accumulator, events int, bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TaskCompleted
	t.result = result
	t.events = events
	t.bytes = bytes
	t.finished = time.Now()
}

// Fail records an error
func (t *Task) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TaskFailed
	t.err = err
	t.finished = time.Now()
}

// Result returns the Accumulator produced by a completed Task
func (t *Task) Result() accrue.Accumulator {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Err returns the error of a failed Task
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Worker returns the name of the worker which ran the Task, if any
func (t *Task) Worker() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.worker
}

// Runtime returns how long the Task ran for
func (t *Task) Runtime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started.IsZero() || t.finished.IsZero() {
		return 0
	}
	return t.finished.Sub(t.started)
}

// Size returns the number of events and bytes a completed Task processed
func (t *Task) Size() (events int, bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events, t.bytes
}

// A Runner executes Tasks for a Job in the calling goroutine. Attempts on
// the same Chunk are serialized by a lock keyed on the Chunk's fingerprint.
type Runner struct {
	job   *accrue.Job
	locks *locker.Locker
}

// NewRunner creates a Runner for a Job
func NewRunner(job *accrue.Job) *Runner {
	return &Runner{job: job, locks: locker.New()}
}

// Run loads the Task's Chunk, runs the Job's Processor on it, and records
// the outcome on the Task. Load failures become ChunkFetchErrors, while
// Processor errors and panics become ProcessorErrors.
func (r *Runner) Run(ctx context.Context, t *Task, worker string) {
	key := strconv.FormatUint(t.Chunk.Key(), 16)
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	t.Set(TaskRunning, worker)
	if err := ctx.Err(); err != nil {
		t.Fail(err)
		return
	}
	var view accrue.View
	_, err := iutil.SafeCall(func() error {
		var lerr error
		view, lerr = r.job.Loader.Load(ctx, t.Chunk)
		return lerr
	})
	if err == nil && view == nil {
		err = fmt.Errorf("loader returned no data")
	}
	if err != nil {
		t.Fail(&errors.ChunkFetchError{Chunk: t.Chunk, Err: err})
		return
	}
	var result accrue.Accumulator
	panicked, err := iutil.SafeCall(func() error {
		var perr error
		result, perr = r.job.Processor.Process(view)
		return perr
	})
	if err != nil {
		t.Fail(&errors.ProcessorError{Chunk: t.Chunk, Err: err, Panic: panicked})
		return
	}
	t.Complete(result, view.NumEvents(), view.NumBytes())
}
