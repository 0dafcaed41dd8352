package accumulators

import (
	"fmt"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/errors"
)

// Dict maps hashable keys to nested Accumulators. Combining two Dicts merges
// them key-wise: values present on both sides are combined recursively, and
// values present on one side only are copied as-is.
//
// A Dict created with NewDefaultDict additionally materializes a fresh
// Accumulator from its factory whenever Get is called with a missing key.
type Dict struct {
	kind    accrue.Kind
	entries map[interface{}]accrue.Accumulator
	factory func() accrue.Accumulator
}

// NewDict returns an empty Dict
func NewDict() *Dict {
	return &Dict{kind: accrue.DictKind, entries: make(map[interface{}]accrue.Accumulator)}
}

// NewDefaultDict returns an empty Dict which fills missing keys using factory
func NewDefaultDict(factory func() accrue.Accumulator) *Dict {
	return &Dict{kind: accrue.DefaultDictKind, entries: make(map[interface{}]accrue.Accumulator), factory: factory}
}

// Set stores an Accumulator under key, replacing any existing entry
func (a *Dict) Set(key interface{}, acc accrue.Accumulator) {
	a.entries[key] = acc
}

// Get returns the Accumulator stored under key. If there is none, a
// defaulting Dict stores and returns a fresh one from its factory, while
// a plain Dict returns nil.
func (a *Dict) Get(key interface{}) accrue.Accumulator {
	if acc, ok := a.entries[key]; ok {
		return acc
	}
	if a.factory == nil {
		return nil
	}
	acc := a.factory()
	a.entries[key] = acc
	return acc
}

// Lookup returns the Accumulator stored under key, without materializing it
func (a *Dict) Lookup(key interface{}) (accrue.Accumulator, bool) {
	acc, ok := a.entries[key]
	return acc, ok
}

// Accumulate combines acc into the entry stored under key, adding the entry
// if it does not exist yet
func (a *Dict) Accumulate(key interface{}, acc accrue.Accumulator) error {
	existing, ok := a.entries[key]
	if !ok {
		a.entries[key] = acc.Clone()
		return nil
	}
	return withPath(existing.Combine(acc), key)
}

// Delete removes the entry stored under key
func (a *Dict) Delete(key interface{}) {
	delete(a.entries, key)
}

// Keys returns the keys of this Dict, sorted when the keys are ordered
func (a *Dict) Keys() []interface{} {
	res := make([]interface{}, 0, len(a.entries))
	for k := range a.entries {
		res = append(res, k)
	}
	sortKeys(res)
	return res
}

// Len returns the number of entries in this Dict
func (a *Dict) Len() int {
	return len(a.entries)
}

// Kind returns accrue.DictKind or accrue.DefaultDictKind
func (a *Dict) Kind() accrue.Kind {
	return a.kind
}

// Identity returns an empty Dict of the same Kind, sharing this Dict's factory
func (a *Dict) Identity() accrue.Accumulator {
	return &Dict{kind: a.kind, entries: make(map[interface{}]accrue.Accumulator), factory: a.factory}
}

// Combine merges another Dict into this one, in place. Entries which exist
// only in o are cloned, so o may be reused afterwards. If a nested
// combination fails, this Dict is left partially merged.
func (a *Dict) Combine(o accrue.Accumulator) error {
	od, ok := o.(*Dict)
	if !ok {
		return mismatch(a, o)
	}
	for k, v := range od.entries {
		if err := a.Accumulate(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of this Dict
func (a *Dict) Clone() accrue.Accumulator {
	res := &Dict{kind: a.kind, entries: make(map[interface{}]accrue.Accumulator, len(a.entries)), factory: a.factory}
	for k, v := range a.entries {
		res.entries[k] = v.Clone()
	}
	return res
}

// withPath prefixes the path of a ShapeMismatchError with a Dict key
func withPath(err error, key interface{}) error {
	if err == nil {
		return nil
	}
	serr, ok := err.(*errors.ShapeMismatchError)
	if !ok {
		return err
	}
	if len(serr.Path) == 0 {
		serr.Path = fmt.Sprintf("[%v]", key)
	} else {
		serr.Path = fmt.Sprintf("[%v]%s", key, serr.Path)
	}
	return serr
}
