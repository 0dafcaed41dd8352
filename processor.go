package accrue

// A Processor is a unit of analysis logic, invoked once per Chunk. Process
// must not depend on invocation order, nor on the result of any other Chunk,
// and must be safe for concurrent use.
type Processor interface {
	Process(view View) (Accumulator, error)
}

// A PostProcessor is a Processor with a final-only transformation, run
// exactly once on the fully merged result.
type PostProcessor interface {
	Processor
	PostProcess(total Accumulator) (Accumulator, error)
}

// ProcessorFunc adapts an ordinary function to the Processor interface
type ProcessorFunc func(view View) (Accumulator, error)

// Process calls f(view)
func (f ProcessorFunc) Process(view View) (Accumulator, error) {
	return f(view)
}

// A Job pairs a ChunkLoader with a Processor. Every back-end worker holds the
// same Job; only Chunk descriptors travel between executor and workers.
type Job struct {
	Loader    ChunkLoader
	Processor Processor
}
