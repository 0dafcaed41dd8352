package accumulators

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/go-sif/accrue"
)

// Combine merges two Accumulators without modifying either of them. Either
// side may be nil, which is treated as the identity.
func Combine(a accrue.Accumulator, b accrue.Accumulator) (accrue.Accumulator, error) {
	if a == nil {
		if b == nil {
			return nil, nil
		}
		return b.Clone(), nil
	}
	res := a.Clone()
	if b == nil {
		return res, nil
	}
	if err := res.Combine(b); err != nil {
		return nil, err
	}
	return res, nil
}

// Shape describes the structure of an Accumulator, for error reporting
func Shape(acc accrue.Accumulator) string {
	switch a := acc.(type) {
	case nil:
		return "nil"
	case *Value:
		if a.value == nil {
			return fmt.Sprintf("value<%s>", a.op)
		}
		return fmt.Sprintf("value<%s:%T>", a.op, a.value)
	case *Column:
		return fmt.Sprintf("column<%s>", a.ElemType())
	default:
		return acc.Kind().String()
	}
}

// Equal returns true iff two Accumulators have the same shape and payload.
// Column payloads are compared in order, Set and Dict payloads without regard
// to ordering. Dicts and DefaultDicts with equal entries are Equal.
func Equal(a accrue.Accumulator, b accrue.Accumulator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case *Value:
		bv, ok := b.(*Value)
		return ok && av.op == bv.op && reflect.DeepEqual(av.value, bv.value)
	case *Set:
		bv, ok := b.(*Set)
		if !ok || len(av.items) != len(bv.items) {
			return false
		}
		for item := range av.items {
			if !bv.Contains(item) {
				return false
			}
		}
		return true
	case *Dict:
		bv, ok := b.(*Dict)
		if !ok || len(av.entries) != len(bv.entries) {
			return false
		}
		for k, v := range av.entries {
			ov, ok := bv.entries[k]
			if !ok || !Equal(v, ov) {
				return false
			}
		}
		return true
	case *Column:
		bv, ok := b.(*Column)
		if !ok || av.values.Type() != bv.values.Type() || av.Len() != bv.Len() {
			return false
		}
		return av.Len() == 0 || reflect.DeepEqual(av.values.Interface(), bv.values.Interface())
	}
	return reflect.DeepEqual(a, b)
}

// sortKeys orders keys in place when they share a single ordered type, and
// by their printed representation otherwise
func sortKeys(keys []interface{}) {
	sort.SliceStable(keys, func(i, j int) bool {
		c, err := compare(keys[i], keys[j])
		if err == nil {
			return c < 0
		}
		return fmt.Sprintf("%T:%v", keys[i], keys[i]) < fmt.Sprintf("%T:%v", keys[j], keys[j])
	})
}
