package errors

import (
	"errors"
	"fmt"

	"github.com/go-sif/accrue"
	iutil "github.com/go-sif/accrue/internal/util"
	"github.com/hashicorp/go-multierror"
)

// ChunkFetchError occurs when a back-end cannot retrieve the data for a Chunk.
// It is transient, and the Chunk will be retried.
type ChunkFetchError struct {
	Chunk accrue.Chunk
	Err   error
}

// Error returns a textual representation of this ChunkFetchError
func (e *ChunkFetchError) Error() string {
	return fmt.Sprintf("Unable to fetch chunk %s: %v", e.Chunk, e.Err)
}

// Unwrap returns the underlying error
func (e *ChunkFetchError) Unwrap() error { return e.Err }

// ProcessorError occurs when a Processor fails (or panics) while handling a Chunk
type ProcessorError struct {
	Chunk accrue.Chunk
	Err   error
	Panic bool // true iff the Processor panicked
}

// Error returns a textual representation of this ProcessorError
func (e *ProcessorError) Error() string {
	if e.Panic {
		return fmt.Sprintf("Processor panicked on chunk %s: %v", e.Chunk, e.Err)
	}
	return fmt.Sprintf("Processor failed on chunk %s: %v", e.Chunk, e.Err)
}

// Unwrap returns the underlying error
func (e *ProcessorError) Unwrap() error { return e.Err }

// WorkerLostError occurs when a remote worker could not be reached while
// running a task. The task is retried, possibly on another worker.
type WorkerLostError struct {
	Worker string
	Err    error
}

// Error returns a textual representation of this WorkerLostError
func (e *WorkerLostError) Error() string {
	return fmt.Sprintf("Lost contact with worker %s: %v", e.Worker, e.Err)
}

// Unwrap returns the underlying error
func (e *WorkerLostError) Unwrap() error { return e.Err }

// ShapeMismatchError occurs when two Accumulators with incompatible
// structure are combined. It always indicates a bug in a Processor and
// is never retried.
type ShapeMismatchError struct {
	Path  string // key path within nested dicts, empty at the top level
	Left  string // shape of the receiving Accumulator
	Right string // shape of the incoming Accumulator
}

// Error returns a textual representation of this ShapeMismatchError
func (e *ShapeMismatchError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("Cannot combine accumulator of shape %s with %s", e.Left, e.Right)
	}
	return fmt.Sprintf("Cannot combine accumulator of shape %s with %s at %s", e.Left, e.Right, e.Path)
}

// BackendUnavailableError occurs when an execution back-end cannot accept
// more work. It is fatal to the run.
type BackendUnavailableError struct {
	Backend string
	Err     error
}

// Error returns a textual representation of this BackendUnavailableError
func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("Backend %s is unavailable: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error
func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// ChunkFailure records the final error of a Chunk which exhausted its retries
type ChunkFailure struct {
	Chunk    accrue.Chunk
	Attempts int
	Err      error
}

// RunError is returned when a run is aborted. It identifies every Chunk
// which failed, and the error which caused the abort.
type RunError struct {
	RunID  string
	Cause  error
	Failed []ChunkFailure
}

// Error returns a textual representation of this RunError
func (e *RunError) Error() string {
	var merr *multierror.Error
	for _, f := range e.Failed {
		merr = multierror.Append(merr, fmt.Errorf("chunk %s after %d attempt(s): %w", f.Chunk, f.Attempts, f.Err))
	}
	if merr == nil {
		return fmt.Sprintf("Run %s aborted: %v", e.RunID, e.Cause)
	}
	merr.ErrorFormat = iutil.FormatMultiError
	return fmt.Sprintf("Run %s aborted: %v\n%s", e.RunID, e.Cause, merr.Error())
}

// Unwrap returns the error which caused the abort
func (e *RunError) Unwrap() error { return e.Cause }

// IsRetryable returns true iff err is a transient, per-Chunk error
func IsRetryable(err error) bool {
	var fetchErr *ChunkFetchError
	var procErr *ProcessorError
	var lostErr *WorkerLostError
	return errors.As(err, &fetchErr) || errors.As(err, &procErr) || errors.As(err, &lostErr)
}

// IsFatal returns true iff err must abort a run immediately, regardless of
// retry and skip policies
func IsFatal(err error) bool {
	var shapeErr *ShapeMismatchError
	var backendErr *BackendUnavailableError
	return errors.As(err, &shapeErr) || errors.As(err, &backendErr)
}
