package rpc

import (
	"github.com/go-sif/accrue"
)

// ErrorKind classifies a failed ChunkResponse, so that the Coordinator can
// rebuild an error with the right retry semantics
type ErrorKind = string

const (
	// NoError indicates success
	NoError ErrorKind = ""
	// FetchError indicates that the worker could not load the Chunk
	FetchError ErrorKind = "fetch"
	// ProcessorError indicates that the Processor returned an error or panicked
	ProcessorError ErrorKind = "processor"
	// CanceledError indicates that the worker abandoned the Chunk
	CanceledError ErrorKind = "canceled"
	// InternalError is any other failure on the worker
	InternalError ErrorKind = "internal"
)

// ChunkRequest asks a worker to process one attempt at a Chunk
type ChunkRequest struct {
	Chunk       accrue.Chunk
	Attempt     int
	Compression Compression // how the worker should compress its response
}

// ChunkResponse carries the serialized Accumulator produced for a Chunk,
// or the reason no Accumulator was produced
type ChunkResponse struct {
	Worker      string
	Accumulator []byte // accumulators.Marshal output, or nil if the Processor produced nil
	Events      int
	Bytes       int64
	ErrKind     ErrorKind
	ErrMessage  string
	Panic       bool
}
