package executor

import (
	"context"
	goerrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/errors"
	istats "github.com/go-sif/accrue/internal/stats"
	iutil "github.com/go-sif/accrue/internal/util"
	"github.com/go-sif/accrue/logging"
	"github.com/go-sif/accrue/stats"
	uuid "github.com/gofrs/uuid"
)

// RunState is the state of a run
type RunState int

const (
	// RunIdle is the state of a run which has not started
	RunIdle RunState = iota
	// RunRunning indicates that Tasks are in flight
	RunRunning
	// RunCompleted indicates that every Chunk was merged or skipped, and
	// post-processing has finished
	RunCompleted
	// RunAborted indicates an unrecoverable failure or a cancellation
	RunAborted
)

var runStates = [...]string{
	RunIdle:      "IDLE",
	RunRunning:   "RUNNING",
	RunCompleted: "COMPLETED",
	RunAborted:   "ABORTED",
}

// String returns the run's state as an upper-case string
func (s RunState) String() string {
	return runStates[s]
}

// Result is the outcome of a run. Aborted runs only carry an Accumulator when
// Options.BestEffort is set, and never when the abort was caused by a failed
// merge into the total (such as a shape mismatch).
type Result struct {
	RunID       string
	State       RunState
	Accumulator accrue.Accumulator
	Skipped     []errors.ChunkFailure
	Stats       stats.Summary
}

// IterativeExecutor processes every Chunk sequentially on the calling goroutine
func IterativeExecutor(ctx context.Context, source accrue.ChunkSource, job *accrue.Job, opts *Options) (*Result, error) {
	return Run(ctx, source, job, NewIterativeBackend(), opts)
}

// FuturesExecutor processes Chunks on a pool of workers goroutines
func FuturesExecutor(ctx context.Context, source accrue.ChunkSource, job *accrue.Job, workers int, opts *Options) (*Result, error) {
	return Run(ctx, source, job, NewPoolBackend(workers), opts)
}

// Run processes every Chunk from source with job on backend, and merges the
// results. The returned error is a *errors.RunError whenever the run aborts,
// in which case the Result is still returned, in state RunAborted.
func Run(ctx context.Context, source accrue.ChunkSource, job *accrue.Job, backend Backend, opts *Options) (*Result, error) {
	if source == nil || job == nil || job.Loader == nil || job.Processor == nil {
		return nil, fmt.Errorf("a ChunkSource, a ChunkLoader and a Processor are required")
	}
	opts = CloneOptions(opts)
	if err := ensureDefaultOptionsValues(opts); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run ID: %w", err)
	}
	r := &run{
		id:      id.String(),
		opts:    opts,
		job:     job,
		backend: backend,
		log:     opts.Logger.WithSource("run " + id.String()[:8]),
		stats:   &istats.RunStatistics{},
		reorder: make(map[int]*Task),
	}
	return r.execute(ctx, source)
}

type retry struct {
	chunk   accrue.Chunk
	attempt int
	readyAt time.Time
}

type prefetched struct {
	chunk accrue.Chunk
	err   error
}

// run holds the state of a single execution. All fields are owned by the
// control loop; Backends only ever see Tasks.
type run struct {
	id      string
	opts    *Options
	job     *accrue.Job
	backend Backend
	log     *logging.Logger
	stats   *istats.RunStatistics
	state   RunState

	total       accrue.Accumulator
	outstanding int           // chunks read but not yet merged or skipped
	inFlight    int           // tasks submitted but not yet received
	retries     []retry       // ordered by readyAt
	reorder     map[int]*Task // completed tasks awaiting their turn, nil for skipped chunks
	nextMerge   int           // next chunk index to merge, in chunk order
	skipped     []errors.ChunkFailure
	failed      []errors.ChunkFailure
}

func (r *run) execute(ctx context.Context, source accrue.ChunkSource) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.stats.Start(r.id)
	r.log.Infof("Starting run on %s backend (max in flight %d, retries %d, on chunk error %q)",
		r.backend.Name(), r.opts.MaxInFlight, r.opts.Retries, r.opts.OnChunkError)
	if err := r.backend.Start(ctx, r.job, r.opts.MaxInFlight); err != nil {
		return r.abort(&errors.BackendUnavailableError{Backend: r.backend.Name(), Err: err})
	}
	r.state = RunRunning
	chunks, prefetchDone := prefetch(ctx, source, r.opts.PrefetchDepth)
	err := r.loop(ctx, chunks)
	cancel()
	<-prefetchDone
	if serr := r.backend.Shutdown(); serr != nil {
		r.log.Warnf("Error shutting down %s backend: %v", r.backend.Name(), serr)
	}
	if err != nil {
		return r.abort(err)
	}
	if pp, ok := r.job.Processor.(accrue.PostProcessor); ok && r.total != nil {
		total, err := pp.PostProcess(r.total)
		if err != nil {
			return r.abort(fmt.Errorf("post-processing failed: %w", err))
		}
		r.total = total
	}
	r.state = RunCompleted
	r.stats.Finish()
	summary := r.stats.Summary()
	r.log.Infof("Finished run: %d chunks merged, %d skipped, %d retries in %s",
		summary.ChunksCompleted, summary.ChunksSkipped, summary.Retries, summary.Elapsed)
	return r.result(), nil
}

func (r *run) result() *Result {
	return &Result{
		RunID:       r.id,
		State:       r.state,
		Accumulator: r.total,
		Skipped:     r.skipped,
		Stats:       r.stats.Summary(),
	}
}

func (r *run) abort(err error) (*Result, error) {
	r.state = RunAborted
	r.stats.Finish()
	r.log.Errorf("Aborting run: %v", err)
	res := r.result()
	if !r.opts.BestEffort {
		res.Accumulator = nil
	}
	var runErr *errors.RunError
	if !goerrors.As(err, &runErr) {
		runErr = &errors.RunError{RunID: r.id, Cause: err, Failed: r.failed}
	}
	return res, runErr
}

// loop is the control loop. Its only suspension point is the select below,
// which waits for the next completed Task, the next retry to become ready,
// a newly prefetched Chunk (when the window has room) or cancellation.
func (r *run) loop(ctx context.Context, chunks <-chan prefetched) error {
	sourceDone := false
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		if err := r.submitReadyRetries(ctx); err != nil {
			return err
		}
		if sourceDone && r.outstanding == 0 {
			return nil
		}
		var admit <-chan prefetched
		if !sourceDone && r.outstanding < r.opts.MaxInFlight {
			admit = chunks
		}
		var retryReady <-chan time.Time
		if len(r.retries) > 0 {
			timer.Reset(time.Until(r.retries[0].readyAt))
			retryReady = timer.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-admit:
			if !ok {
				sourceDone = true
				r.stats.SourceExhausted()
				break
			}
			if p.err != nil {
				return fmt.Errorf("unable to read chunk %d from source: %w", p.chunk.Index, p.err)
			}
			r.outstanding++
			r.stats.ReadChunk()
			if err := r.submit(ctx, NewTask(p.chunk, 1)); err != nil {
				return err
			}
		case task := <-r.backend.Completed():
			r.inFlight--
			if err := r.handle(ctx, task); err != nil {
				return err
			}
		case <-retryReady:
		}
		if retryReady != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

func (r *run) submit(ctx context.Context, task *Task) error {
	r.stats.SubmitAttempt(task.Attempt)
	if err := r.backend.Submit(ctx, task); err != nil {
		var unavailable *errors.BackendUnavailableError
		if !goerrors.As(err, &unavailable) {
			err = &errors.BackendUnavailableError{Backend: r.backend.Name(), Err: err}
		}
		return err
	}
	r.inFlight++
	return nil
}

func (r *run) submitReadyRetries(ctx context.Context) error {
	now := time.Now()
	for len(r.retries) > 0 && !r.retries[0].readyAt.After(now) {
		next := r.retries[0]
		r.retries = r.retries[1:]
		r.log.Debugf("Resubmitting chunk %s (attempt %d)", next.chunk, next.attempt)
		if err := r.submit(ctx, NewTask(next.chunk, next.attempt)); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) handle(ctx context.Context, task *Task) error {
	switch task.State() {
	case TaskCompleted:
		if r.opts.MergeOrder == MergeInChunkOrder {
			r.reorder[task.Chunk.Index] = task
			return r.drainReorder()
		}
		return r.merge(task)
	case TaskFailed:
		return r.fail(ctx, task)
	default:
		return fmt.Errorf("backend %s delivered task for chunk %s in state %s", r.backend.Name(), task.Chunk, task.State())
	}
}

func (r *run) drainReorder() error {
	for {
		task, ok := r.reorder[r.nextMerge]
		if !ok {
			return nil
		}
		delete(r.reorder, r.nextMerge)
		r.nextMerge++
		if task == nil {
			continue
		}
		if err := r.merge(task); err != nil {
			return err
		}
	}
}

// merge combines a Task's result into the running total. The first result
// is cloned, so Processors may return shared Accumulators. A failed Combine
// may leave the total partially merged, so the total is dropped.
func (r *run) merge(task *Task) error {
	if result := task.Result(); result != nil {
		if r.total == nil {
			r.total = result.Clone()
		} else if err := r.total.Combine(result); err != nil {
			r.total = nil
			return err
		}
	}
	r.outstanding--
	events, bytes := task.Size()
	r.stats.CompleteChunk(task.Runtime(), events, bytes)
	r.log.Tracef("Merged chunk %s from %s", task.Chunk, task.Worker())
	r.reportProgress()
	return nil
}

// fail retries, skips or aborts on a failed Task. Context errors only abort
// the run when the run itself was canceled; a Chunk which timed out on its
// own deadline is an ordinary failure.
func (r *run) fail(ctx context.Context, task *Task) error {
	err := task.Err()
	if errors.IsFatal(err) {
		return err
	}
	if ctx.Err() != nil && (goerrors.Is(err, context.Canceled) || goerrors.Is(err, context.DeadlineExceeded)) {
		return ctx.Err()
	}
	if errors.IsRetryable(err) && task.Attempt <= r.opts.Retries {
		delay := iutil.Backoff(r.opts.RetryBackoff, r.opts.MaxRetryBackoff, task.Attempt)
		r.log.Warnf("Chunk %s failed on attempt %d, retrying in %s: %v", task.Chunk, task.Attempt, delay, err)
		r.scheduleRetry(retry{chunk: task.Chunk, attempt: task.Attempt + 1, readyAt: time.Now().Add(delay)})
		return nil
	}
	failure := errors.ChunkFailure{Chunk: task.Chunk, Attempts: task.Attempt, Err: err}
	if r.opts.OnChunkError != SkipOnChunkError {
		r.failed = append(r.failed, failure)
		return &errors.RunError{RunID: r.id, Cause: err, Failed: r.failed}
	}
	r.log.Warnf("Skipping chunk %s after %d attempt(s): %v", task.Chunk, task.Attempt, err)
	r.skipped = append(r.skipped, failure)
	r.stats.SkipChunk()
	r.outstanding--
	r.reportProgress()
	if r.opts.MergeOrder == MergeInChunkOrder {
		r.reorder[task.Chunk.Index] = nil
		return r.drainReorder()
	}
	return nil
}

func (r *run) scheduleRetry(next retry) {
	r.retries = append(r.retries, next)
	sort.SliceStable(r.retries, func(i, j int) bool {
		return r.retries[i].readyAt.Before(r.retries[j].readyAt)
	})
}

func (r *run) reportProgress() {
	if r.opts.Progress != nil {
		r.opts.Progress(r.stats.Progress())
	}
}

// prefetch reads Chunks from source on a separate goroutine, at most depth
// Chunks ahead of the consumer, assigning each its enumeration index. The
// returned done channel is closed once the goroutine has exited.
func prefetch(ctx context.Context, source accrue.ChunkSource, depth int) (<-chan prefetched, <-chan struct{}) {
	out := make(chan prefetched, depth-1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		for idx := 0; ctx.Err() == nil && source.HasNext(); idx++ {
			c, err := source.Next()
			c.Index = idx
			select {
			case out <- prefetched{chunk: c, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out, done
}
