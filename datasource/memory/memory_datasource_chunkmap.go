package memory

import (
	"fmt"

	"github.com/go-sif/accrue"
)

// ChunkMap is an iterator producing a sequence of Chunks for a DataSource
type ChunkMap struct {
	offset int
	source *DataSource
}

// HasNext returns true iff there is another Chunk remaining
func (cm *ChunkMap) HasNext() bool {
	return cm.offset < cm.source.numEvents
}

// Next returns the next Chunk
func (cm *ChunkMap) Next() (accrue.Chunk, error) {
	if !cm.HasNext() {
		return accrue.Chunk{}, fmt.Errorf("no more chunks in dataset %s", cm.source.name)
	}
	stop := cm.offset + cm.source.chunkSize
	if stop > cm.source.numEvents {
		stop = cm.source.numEvents
	}
	c := accrue.Chunk{Dataset: cm.source.name, Start: int64(cm.offset), Stop: int64(stop)}
	cm.offset = stop
	return c, nil
}

type multiChunkMap struct {
	maps []accrue.ChunkSource
}

func (m *multiChunkMap) HasNext() bool {
	for len(m.maps) > 0 {
		if m.maps[0].HasNext() {
			return true
		}
		m.maps = m.maps[1:]
	}
	return false
}

func (m *multiChunkMap) Next() (accrue.Chunk, error) {
	if !m.HasNext() {
		return accrue.Chunk{}, fmt.Errorf("no more chunks")
	}
	return m.maps[0].Next()
}
