package file

import (
	"fmt"
	"reflect"

	"github.com/go-sif/accrue"
	"github.com/tidwall/gjson"
)

// ColumnType names the Go element type a column is parsed into
type ColumnType string

const (
	// Bool columns are []bool
	Bool ColumnType = "bool"
	// Int64 columns are []int64
	Int64 ColumnType = "int64"
	// Float64 columns are []float64
	Float64 ColumnType = "float64"
	// String columns are []string
	String ColumnType = "string"
)

// Schema maps gjson paths to the type of column they are parsed into.
// Values missing from a line are parsed as the zero value.
type Schema map[string]ColumnType

type view struct {
	chunk   accrue.Chunk
	schema  Schema
	columns map[string]interface{}
	events  int
	bytes   int64
}

func createView(c accrue.Chunk, schema Schema) *view {
	v := &view{chunk: c, schema: schema, columns: make(map[string]interface{}, len(schema))}
	for name, colType := range schema {
		switch colType {
		case Bool:
			v.columns[name] = make([]bool, 0, c.Len())
		case Int64:
			v.columns[name] = make([]int64, 0, c.Len())
		case Float64:
			v.columns[name] = make([]float64, 0, c.Len())
		default:
			v.columns[name] = make([]string, 0, c.Len())
		}
	}
	return v
}

func (v *view) appendLine(line []byte) error {
	if !gjson.ValidBytes(line) {
		return fmt.Errorf("invalid JSON")
	}
	for name, colType := range v.schema {
		val := gjson.GetBytes(line, name)
		switch colType {
		case Bool:
			if val.Exists() && val.Type != gjson.True && val.Type != gjson.False {
				return fmt.Errorf("column %s was not a boolean. Was: %s", name, val.Raw)
			}
			v.columns[name] = append(v.columns[name].([]bool), val.Bool())
		case Int64:
			if val.Exists() && val.Type != gjson.Number {
				return fmt.Errorf("column %s was not a number. Was: %s", name, val.Raw)
			}
			v.columns[name] = append(v.columns[name].([]int64), val.Int())
		case Float64:
			if val.Exists() && val.Type != gjson.Number {
				return fmt.Errorf("column %s was not a number. Was: %s", name, val.Raw)
			}
			v.columns[name] = append(v.columns[name].([]float64), val.Float())
		case String:
			v.columns[name] = append(v.columns[name].([]string), val.String())
		default:
			return fmt.Errorf("unsupported column type %s for column %s", colType, name)
		}
	}
	v.events++
	v.bytes += int64(len(line))
	return nil
}

func (v *view) Chunk() accrue.Chunk {
	return v.chunk
}

func (v *view) NumEvents() int {
	return v.events
}

// NumBytes is the size of the raw lines this view was parsed from
func (v *view) NumBytes() int64 {
	return v.bytes
}

func (v *view) Column(name string) (interface{}, error) {
	col, ok := v.columns[name]
	if !ok {
		return nil, fmt.Errorf("schema has no column %s", name)
	}
	if reflect.ValueOf(col).Len() != v.events {
		return nil, fmt.Errorf("column %s is incomplete", name)
	}
	return col, nil
}
