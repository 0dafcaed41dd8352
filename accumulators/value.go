package accumulators

import (
	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/errors"
)

// Value wraps a single scalar payload, combined with a named Operator.
// A nil payload acts as the identity for every Operator.
type Value struct {
	op    string
	value interface{}
}

// NewValue returns a Value which combines by addition
func NewValue(v interface{}) *Value {
	return &Value{op: Add, value: v}
}

// NewValueOp returns a Value which combines using the named Operator
func NewValueOp(op string, v interface{}) *Value {
	return &Value{op: op, value: v}
}

// Get returns the payload of this Value
func (a *Value) Get() interface{} {
	return a.value
}

// Operator returns the name of the Operator this Value combines with
func (a *Value) Operator() string {
	return a.op
}

// Kind returns accrue.ValueKind
func (a *Value) Kind() accrue.Kind {
	return accrue.ValueKind
}

// Identity returns a Value holding the identity element for this Value's payload type
func (a *Value) Identity() accrue.Accumulator {
	res := &Value{op: a.op}
	if op, ok := lookupOperator(a.op); ok && op.Identity != nil {
		res.value = op.Identity(a.value)
	}
	return res
}

// Combine merges another Value into this one, in place
func (a *Value) Combine(o accrue.Accumulator) error {
	ov, ok := o.(*Value)
	if !ok || ov.op != a.op {
		return mismatch(a, o)
	}
	if ov.value == nil {
		return nil
	} else if a.value == nil {
		a.value = ov.value
		return nil
	}
	op, ok := lookupOperator(a.op)
	if !ok {
		return mismatch(a, o)
	}
	res, err := op.Combine(a.value, ov.value)
	if err != nil {
		return mismatch(a, o)
	}
	a.value = res
	return nil
}

// Clone returns a copy of this Value
func (a *Value) Clone() accrue.Accumulator {
	return &Value{op: a.op, value: a.value}
}

func mismatch(left accrue.Accumulator, right accrue.Accumulator) error {
	return &errors.ShapeMismatchError{Left: Shape(left), Right: Shape(right)}
}
