package accumulators

import (
	"fmt"
	"reflect"

	"github.com/go-sif/accrue"
)

// Column holds a 1-D sequence of primitive values, stored as a typed slice
// (e.g. []int64). Combining appends the incoming values, so the final content
// is ordered by the sequence in which Columns were merged.
type Column struct {
	values reflect.Value
}

// NewColumn returns a Column holding a copy of values, which must be a slice
// of primitives. It panics otherwise.
func NewColumn(values interface{}) *Column {
	v := reflect.ValueOf(values)
	if v.Kind() != reflect.Slice || !isPrimitive(v.Type().Elem().Kind()) {
		panic(fmt.Errorf("Column values must be a slice of primitives, got %T", values))
	}
	cp := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
	reflect.Copy(cp, v)
	return &Column{values: cp}
}

func isPrimitive(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Values returns the contents of this Column as a typed slice. The result
// must not be modified.
func (a *Column) Values() interface{} {
	return a.values.Interface()
}

// Len returns the number of values in this Column
func (a *Column) Len() int {
	return a.values.Len()
}

// ElemType returns the type of the values held by this Column
func (a *Column) ElemType() reflect.Type {
	return a.values.Type().Elem()
}

// Kind returns accrue.ColumnKind
func (a *Column) Kind() accrue.Kind {
	return accrue.ColumnKind
}

// Identity returns an empty Column with the same element type
func (a *Column) Identity() accrue.Accumulator {
	return &Column{values: reflect.MakeSlice(a.values.Type(), 0, 0)}
}

// Combine appends the values of another Column to this one, in place
func (a *Column) Combine(o accrue.Accumulator) error {
	oc, ok := o.(*Column)
	if !ok || oc.values.Type() != a.values.Type() {
		return mismatch(a, o)
	}
	a.values = reflect.AppendSlice(a.values, oc.values)
	return nil
}

// Clone returns a copy of this Column
func (a *Column) Clone() accrue.Accumulator {
	return NewColumn(a.values.Interface())
}
