package file

import (
	"fmt"

	"github.com/go-sif/accrue"
)

type fileExtent struct {
	path  string
	lines int64
}

// ChunkMap is an iterator producing a sequence of Chunks, file by file
type ChunkMap struct {
	files     []fileExtent
	offset    int64
	chunkSize int64
}

// HasNext returns true iff there is another Chunk remaining
func (cm *ChunkMap) HasNext() bool {
	return len(cm.files) > 0
}

// Next returns the next Chunk of the current file
func (cm *ChunkMap) Next() (accrue.Chunk, error) {
	if !cm.HasNext() {
		return accrue.Chunk{}, fmt.Errorf("no more chunks")
	}
	f := cm.files[0]
	stop := cm.offset + cm.chunkSize
	if stop >= f.lines {
		stop = f.lines
	}
	c := accrue.Chunk{Dataset: f.path, Start: cm.offset, Stop: stop}
	if stop == f.lines {
		cm.files = cm.files[1:]
		cm.offset = 0
	} else {
		cm.offset = stop
	}
	return c, nil
}
