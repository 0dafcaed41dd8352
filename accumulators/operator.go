package accumulators

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// An Operator defines how two Value payloads combine. Combine must be
// associative and commutative. Identity returns the identity element for
// payloads of the same type as v, or nil when the type has none.
type Operator struct {
	Identity func(v interface{}) interface{}
	Combine  func(a, b interface{}) (interface{}, error)
}

const (
	// Add sums numeric payloads. It is the default Operator for Values.
	Add = "add"
	// Max keeps the largest of two ordered payloads
	Max = "max"
	// Min keeps the smallest of two ordered payloads
	Min = "min"
)

var (
	operatorsLock sync.RWMutex
	operators     = map[string]Operator{
		Add: {Identity: zeroOf, Combine: add},
		Max: {Identity: noIdentity, Combine: pick(func(c int) bool { return c > 0 })},
		Min: {Identity: noIdentity, Combine: pick(func(c int) bool { return c < 0 })},
	}
)

// RegisterOperator makes a named Operator available to Values. Since Values
// carry only the name of their Operator, every process which combines them
// (including remote workers) must register the same Operators.
func RegisterOperator(name string, op Operator) {
	operatorsLock.Lock()
	defer operatorsLock.Unlock()
	operators[name] = op
}

func lookupOperator(name string) (Operator, bool) {
	operatorsLock.RLock()
	defer operatorsLock.RUnlock()
	op, ok := operators[name]
	return op, ok
}

func zeroOf(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	return reflect.Zero(reflect.TypeOf(v)).Interface()
}

func noIdentity(v interface{}) interface{} {
	return nil
}

func incompatible(a, b interface{}) error {
	return fmt.Errorf("incompatible payload types %T and %T", a, b)
}

func add(a, b interface{}) (interface{}, error) {
	switch av := a.(type) {
	case int:
		if bv, ok := b.(int); ok {
			return av + bv, nil
		}
	case int8:
		if bv, ok := b.(int8); ok {
			return av + bv, nil
		}
	case int16:
		if bv, ok := b.(int16); ok {
			return av + bv, nil
		}
	case int32:
		if bv, ok := b.(int32); ok {
			return av + bv, nil
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av + bv, nil
		}
	case uint:
		if bv, ok := b.(uint); ok {
			return av + bv, nil
		}
	case uint8:
		if bv, ok := b.(uint8); ok {
			return av + bv, nil
		}
	case uint16:
		if bv, ok := b.(uint16); ok {
			return av + bv, nil
		}
	case uint32:
		if bv, ok := b.(uint32); ok {
			return av + bv, nil
		}
	case uint64:
		if bv, ok := b.(uint64); ok {
			return av + bv, nil
		}
	case float32:
		if bv, ok := b.(float32); ok {
			return av + bv, nil
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av + bv, nil
		}
	case time.Duration:
		if bv, ok := b.(time.Duration); ok {
			return av + bv, nil
		}
	}
	return nil, incompatible(a, b)
}

// compare returns the sign of a-b for ordered payloads of identical type
func compare(a, b interface{}) (int, error) {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return 0, incompatible(a, b)
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	switch av.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sign(av.Int() > bv.Int(), av.Int() < bv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return sign(av.Uint() > bv.Uint(), av.Uint() < bv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return sign(av.Float() > bv.Float(), av.Float() < bv.Float()), nil
	case reflect.String:
		return sign(av.String() > bv.String(), av.String() < bv.String()), nil
	}
	return 0, fmt.Errorf("payload type %T is not ordered", a)
}

func sign(gt bool, lt bool) int {
	switch {
	case gt:
		return 1
	case lt:
		return -1
	}
	return 0
}

func pick(keepLeft func(c int) bool) func(a, b interface{}) (interface{}, error) {
	return func(a, b interface{}) (interface{}, error) {
		c, err := compare(a, b)
		if err != nil {
			return nil, err
		}
		if c == 0 || keepLeft(c) {
			return a, nil
		}
		return b, nil
	}
}
