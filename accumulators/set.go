package accumulators

import (
	"github.com/go-sif/accrue"
)

// Set holds a set of hashable items, combined by union
type Set struct {
	items map[interface{}]struct{}
}

// NewSet returns a Set containing the given items
func NewSet(items ...interface{}) *Set {
	s := &Set{items: make(map[interface{}]struct{}, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts an item into this Set. Items must be comparable.
func (a *Set) Add(item interface{}) {
	a.items[item] = struct{}{}
}

// Contains returns true iff item is in this Set
func (a *Set) Contains(item interface{}) bool {
	_, ok := a.items[item]
	return ok
}

// Len returns the number of items in this Set
func (a *Set) Len() int {
	return len(a.items)
}

// Items returns the contents of this Set, sorted when the items are ordered
func (a *Set) Items() []interface{} {
	res := make([]interface{}, 0, len(a.items))
	for item := range a.items {
		res = append(res, item)
	}
	sortKeys(res)
	return res
}

// Kind returns accrue.SetKind
func (a *Set) Kind() accrue.Kind {
	return accrue.SetKind
}

// Identity returns an empty Set
func (a *Set) Identity() accrue.Accumulator {
	return NewSet()
}

// Combine adds all items of another Set to this one, in place
func (a *Set) Combine(o accrue.Accumulator) error {
	os, ok := o.(*Set)
	if !ok {
		return mismatch(a, o)
	}
	for item := range os.items {
		a.items[item] = struct{}{}
	}
	return nil
}

// Clone returns a copy of this Set
func (a *Set) Clone() accrue.Accumulator {
	res := &Set{items: make(map[interface{}]struct{}, len(a.items))}
	for item := range a.items {
		res.items[item] = struct{}{}
	}
	return res
}
