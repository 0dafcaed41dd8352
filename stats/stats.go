package stats

import "time"

// Progress is a snapshot of a running job, delivered after each completed Chunk
type Progress struct {
	RunID           string
	ChunksCompleted int64 // chunks merged into the running total
	ChunksSkipped   int64
	ChunksRead      int64 // chunks read from the source so far
	SourceExhausted bool  // true once ChunksRead is the final total
	EventsProcessed int64
	BytesProcessed  int64
	Elapsed         time.Duration
}

// Summary describes a finished run
type Summary struct {
	Progress
	Attempts         int64         // task attempts submitted, including retries
	Retries          int64         // task attempts which were retries
	MeanChunkRuntime time.Duration // rolling average of recent chunk runtimes
}
