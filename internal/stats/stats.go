package stats

import (
	"time"

	"github.com/go-sif/accrue/stats"
)

const statisticRollingWindows = 5

// RunStatistics contains statistics about a running job. It is owned by the
// executor's control loop and is not safe for concurrent use.
type RunStatistics struct {
	runID                   string
	started                 bool
	finished                bool
	startTime               time.Time
	totalRuntime            time.Duration
	chunksRead              int64
	chunksCompleted         int64
	chunksSkipped           int64
	sourceExhausted         bool
	eventsProcessed         int64
	bytesProcessed          int64
	attempts                int64
	retries                 int64
	recentChunkRuntimes     []time.Duration // for rolling average of recent chunk processing times
	recentChunkRuntimesHead int
}

// Start triggers statistics tracking, if it hasn't been started already
func (rs *RunStatistics) Start(runID string) {
	if !rs.started {
		rs.started = true
		rs.runID = runID
		rs.startTime = time.Now()
		rs.recentChunkRuntimes = make([]time.Duration, statisticRollingWindows)
	}
}

// Finish completes statistics tracking
func (rs *RunStatistics) Finish() {
	if !rs.finished {
		rs.finished = true
		rs.totalRuntime = time.Since(rs.startTime)
	}
}

// ReadChunk tracks a Chunk read from the source
func (rs *RunStatistics) ReadChunk() {
	rs.chunksRead++
}

// SourceExhausted tracks the end of the source
func (rs *RunStatistics) SourceExhausted() {
	rs.sourceExhausted = true
}

// SubmitAttempt tracks the submission of a task attempt
func (rs *RunStatistics) SubmitAttempt(attempt int) {
	rs.attempts++
	if attempt > 1 {
		rs.retries++
	}
}

// CompleteChunk tracks the merge of a Chunk's result
func (rs *RunStatistics) CompleteChunk(runtime time.Duration, events int, bytes int64) {
	rs.chunksCompleted++
	rs.eventsProcessed += int64(events)
	rs.bytesProcessed += bytes
	rs.recentChunkRuntimes[rs.recentChunkRuntimesHead] = runtime
	rs.recentChunkRuntimesHead = (rs.recentChunkRuntimesHead + 1) % len(rs.recentChunkRuntimes)
}

// SkipChunk tracks a Chunk excluded from the result
func (rs *RunStatistics) SkipChunk() {
	rs.chunksSkipped++
}

// GetRuntime returns the running time of the job
func (rs *RunStatistics) GetRuntime() time.Duration {
	if rs.finished {
		return rs.totalRuntime
	}
	return time.Since(rs.startTime)
}

// GetCurrentChunkProcessingTime returns a rolling average of chunk processing time
func (rs *RunStatistics) GetCurrentChunkProcessingTime() time.Duration {
	var total time.Duration
	var n int64
	for _, d := range rs.recentChunkRuntimes {
		if d > 0 {
			total += d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// Progress returns a snapshot of the job's progress
func (rs *RunStatistics) Progress() stats.Progress {
	return stats.Progress{
		RunID:           rs.runID,
		ChunksCompleted: rs.chunksCompleted,
		ChunksSkipped:   rs.chunksSkipped,
		ChunksRead:      rs.chunksRead,
		SourceExhausted: rs.sourceExhausted,
		EventsProcessed: rs.eventsProcessed,
		BytesProcessed:  rs.bytesProcessed,
		Elapsed:         rs.GetRuntime(),
	}
}

// Summary returns the final statistics of the job
func (rs *RunStatistics) Summary() stats.Summary {
	return stats.Summary{
		Progress:         rs.Progress(),
		Attempts:         rs.attempts,
		Retries:          rs.retries,
		MeanChunkRuntime: rs.GetCurrentChunkProcessingTime(),
	}
}
