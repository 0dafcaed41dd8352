package memory

import (
	"fmt"
	"reflect"

	"github.com/go-sif/accrue"
)

// View exposes the events of one Chunk of a DataSource, without copying
type View struct {
	chunk  accrue.Chunk
	source *DataSource
}

// Chunk returns the descriptor this View was loaded from
func (v *View) Chunk() accrue.Chunk {
	return v.chunk
}

// NumEvents returns the number of events in this View
func (v *View) NumEvents() int {
	return int(v.chunk.Len())
}

// NumBytes returns the in-memory size of the columns covered by this View
func (v *View) NumBytes() int64 {
	var total int64
	for _, col := range v.source.columns {
		sub := col.Slice(int(v.chunk.Start), int(v.chunk.Stop))
		if sub.Type().Elem().Kind() == reflect.String {
			for i := 0; i < sub.Len(); i++ {
				total += int64(sub.Index(i).Len())
			}
			continue
		}
		total += int64(sub.Len()) * int64(sub.Type().Elem().Size())
	}
	return total
}

// Column returns the named column, restricted to this View's Chunk. The
// result shares memory with the DataSource and must not be modified.
func (v *View) Column(name string) (interface{}, error) {
	col, ok := v.source.columns[name]
	if !ok {
		return nil, fmt.Errorf("dataset %s has no column %s", v.source.name, name)
	}
	return col.Slice(int(v.chunk.Start), int(v.chunk.Stop)).Interface(), nil
}
