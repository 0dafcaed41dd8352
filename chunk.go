package accrue

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// A Chunk describes one schedulable slice of a dataset. Chunks are immutable
// descriptors: they carry enough information for any worker to fetch the
// underlying data independently.
type Chunk struct {
	Index    int               // position of this Chunk in the source enumeration, assigned by the executor
	Dataset  string            // identity of the dataset this Chunk belongs to
	Start    int64             // first entry (inclusive)
	Stop     int64             // last entry (exclusive)
	Metadata map[string]string // arbitrary metadata, passed through to Views
}

// Key returns a fingerprint of the Chunk's dataset and bounds. Two
// descriptors for the same slice share a Key regardless of Index.
func (c Chunk) Key() uint64 {
	h := xxhash.New()
	h.WriteString(c.Dataset)
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(c.Start))
	binary.LittleEndian.PutUint64(buf[8:], uint64(c.Stop))
	h.Write(buf[:])
	return h.Sum64()
}

// Len returns the number of entries covered by this Chunk
func (c Chunk) Len() int64 {
	return c.Stop - c.Start
}

// String returns a printable representation of the Chunk, for logging
func (c Chunk) String() string {
	return fmt.Sprintf("%s[%d:%d]#%d", c.Dataset, c.Start, c.Stop, c.Index)
}

// ChunkSource is a lazy, finite iterator of Chunks. The executor consumes a
// ChunkSource exactly once.
type ChunkSource interface {
	HasNext() bool
	Next() (Chunk, error)
}

// ChunkLoader fetches the data for a Chunk. Loaders run on back-end workers,
// possibly in another process, and must be safe for concurrent use.
type ChunkLoader interface {
	Load(ctx context.Context, c Chunk) (View, error)
}

// A View provides typed columnar access to the events of a single Chunk
type View interface {
	Chunk() Chunk                            // Chunk returns the descriptor this View was loaded from
	NumEvents() int                          // NumEvents returns the number of events in this View
	NumBytes() int64                         // NumBytes returns the approximate size of the loaded data
	Column(name string) (interface{}, error) // Column returns the named column as a typed slice
}
