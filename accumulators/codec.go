package accumulators

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
	"time"

	"github.com/go-sif/accrue"
)

func init() {
	gob.Register(time.Duration(0))
}

// node is the serialized form of an Accumulator
type node struct {
	Kind     accrue.Kind
	Op       string
	Value    interface{}
	Items    []interface{}
	Keys     []interface{}
	Children []node
	Column   interface{}
}

// RegisterType makes a custom payload, item or key type known to the
// Accumulator codec. Built-in primitives need no registration.
func RegisterType(value interface{}) {
	gob.Register(value)
}

// Marshal serializes an Accumulator. DefaultDict factories are not
// serialized.
func Marshal(acc accrue.Accumulator) ([]byte, error) {
	n, err := toNode(acc)
	if err != nil {
		return nil, err
	}
	buff := new(bytes.Buffer)
	if err := gob.NewEncoder(buff).Encode(n); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// Unmarshal produces an Accumulator from data serialized by Marshal
func Unmarshal(buff []byte) (accrue.Accumulator, error) {
	var n node
	if err := gob.NewDecoder(bytes.NewReader(buff)).Decode(&n); err != nil {
		return nil, err
	}
	return fromNode(&n)
}

func toNode(acc accrue.Accumulator) (node, error) {
	switch a := acc.(type) {
	case *Value:
		return node{Kind: accrue.ValueKind, Op: a.op, Value: a.value}, nil
	case *Set:
		return node{Kind: accrue.SetKind, Items: a.Items()}, nil
	case *Column:
		return node{Kind: accrue.ColumnKind, Column: a.values.Interface()}, nil
	case *Dict:
		n := node{Kind: a.kind, Keys: a.Keys()}
		n.Children = make([]node, len(n.Keys))
		for i, k := range n.Keys {
			child, err := toNode(a.entries[k])
			if err != nil {
				return node{}, err
			}
			n.Children[i] = child
		}
		return n, nil
	}
	return node{}, fmt.Errorf("Cannot serialize accumulator of type %T", acc)
}

func fromNode(n *node) (accrue.Accumulator, error) {
	switch n.Kind {
	case accrue.ValueKind:
		return &Value{op: n.Op, value: n.Value}, nil
	case accrue.SetKind:
		return NewSet(n.Items...), nil
	case accrue.ColumnKind:
		if n.Column == nil {
			return nil, fmt.Errorf("Serialized column has no values")
		}
		return &Column{values: reflect.ValueOf(n.Column)}, nil
	case accrue.DictKind, accrue.DefaultDictKind:
		if len(n.Keys) != len(n.Children) {
			return nil, fmt.Errorf("Serialized dict has %d keys but %d values", len(n.Keys), len(n.Children))
		}
		d := &Dict{kind: n.Kind, entries: make(map[interface{}]accrue.Accumulator, len(n.Keys))}
		for i, k := range n.Keys {
			child, err := fromNode(&n.Children[i])
			if err != nil {
				return nil, err
			}
			d.entries[k] = child
		}
		return d, nil
	}
	return nil, fmt.Errorf("Unknown accumulator kind %d", n.Kind)
}
