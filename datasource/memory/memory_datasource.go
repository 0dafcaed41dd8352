// Package memory provides an in-memory columnar dataset, divided into
// fixed-size Chunks. It is primarily useful for testing Processors.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/go-sif/accrue"
)

// DataSource is a named set of equal-length columns held in memory
type DataSource struct {
	name      string
	columns   map[string]reflect.Value
	numEvents int
	chunkSize int
}

// CreateDataSource is a factory for DataSources. Every column must be a
// slice, and all columns must have the same length.
func CreateDataSource(name string, columns map[string]interface{}, chunkSize int) (*DataSource, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	ds := &DataSource{name: name, columns: make(map[string]reflect.Value, len(columns)), numEvents: -1, chunkSize: chunkSize}
	for colName, col := range columns {
		v := reflect.ValueOf(col)
		if v.Kind() != reflect.Slice {
			return nil, fmt.Errorf("column %s is not a slice", colName)
		}
		if ds.numEvents >= 0 && v.Len() != ds.numEvents {
			return nil, fmt.Errorf("column %s has %d events, expected %d", colName, v.Len(), ds.numEvents)
		}
		ds.numEvents = v.Len()
		ds.columns[colName] = v
	}
	if ds.numEvents < 0 {
		ds.numEvents = 0
	}
	return ds, nil
}

// Name returns the dataset name of this DataSource
func (ds *DataSource) Name() string {
	return ds.name
}

// NumEvents returns the total number of events in this DataSource
func (ds *DataSource) NumEvents() int {
	return ds.numEvents
}

// Analyze returns a ChunkSource, describing how the data will be divided into Chunks
func (ds *DataSource) Analyze() accrue.ChunkSource {
	return &ChunkMap{source: ds}
}

// Load produces a View over the events described by a Chunk
func (ds *DataSource) Load(ctx context.Context, c accrue.Chunk) (accrue.View, error) {
	if c.Dataset != ds.name {
		return nil, fmt.Errorf("chunk belongs to dataset %s, not %s", c.Dataset, ds.name)
	}
	if c.Start < 0 || c.Stop < c.Start || c.Stop > int64(ds.numEvents) {
		return nil, fmt.Errorf("chunk bounds [%d:%d] are outside of dataset %s with %d events", c.Start, c.Stop, ds.name, ds.numEvents)
	}
	return &View{chunk: c, source: ds}, nil
}

// Catalog is a ChunkLoader for several in-memory DataSources, dispatching on
// the Chunk's dataset name
type Catalog map[string]*DataSource

// CreateCatalog indexes DataSources by name
func CreateCatalog(sources ...*DataSource) Catalog {
	c := make(Catalog, len(sources))
	for _, ds := range sources {
		c[ds.name] = ds
	}
	return c
}

// Load produces a View from the DataSource which the Chunk belongs to
func (c Catalog) Load(ctx context.Context, chunk accrue.Chunk) (accrue.View, error) {
	ds, ok := c[chunk.Dataset]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %s", chunk.Dataset)
	}
	return ds.Load(ctx, chunk)
}

// Analyze returns a ChunkSource covering every DataSource, in name order
func (c Catalog) Analyze() accrue.ChunkSource {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	maps := make([]accrue.ChunkSource, len(names))
	for i, name := range names {
		maps[i] = c[name].Analyze()
	}
	return &multiChunkMap{maps: maps}
}
