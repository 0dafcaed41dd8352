package accumulators

import (
	goerrors "errors"
	"math/rand"
	"testing"

	"github.com/go-sif/accrue"
	"github.com/go-sif/accrue/errors"
	"github.com/stretchr/testify/require"
)

func mustCombine(t *testing.T, a accrue.Accumulator, b accrue.Accumulator) accrue.Accumulator {
	res, err := Combine(a, b)
	require.Nil(t, err)
	return res
}

func dictOf(kv map[string]int) *Dict {
	d := NewDict()
	for k, v := range kv {
		d.Set(k, NewValue(v))
	}
	return d
}

// samples returns triples of same-shaped accumulators for each variant
func samples() map[string][3]accrue.Accumulator {
	nested := func(a int, s ...interface{}) accrue.Accumulator {
		d := NewDefaultDict(func() accrue.Accumulator { return NewDict() })
		d.Get("inner").(*Dict).Set("count", NewValue(a))
		d.Set("seen", NewSet(s...))
		return d
	}
	return map[string][3]accrue.Accumulator{
		"value":   {NewValue(1), NewValue(2), NewValue(39)},
		"float":   {NewValue(0.5), NewValue(1.25), NewValue(-3.0)},
		"max":     {NewValueOp(Max, int64(4)), NewValueOp(Max, int64(9)), NewValueOp(Max, int64(-1))},
		"set":     {NewSet(1, 2), NewSet(2, 3), NewSet(7)},
		"dict":    {dictOf(map[string]int{"a": 1}), dictOf(map[string]int{"a": 2, "b": 3}), dictOf(map[string]int{"c": 4})},
		"nested":  {nested(1, "x"), nested(2, "y"), nested(3, "x", "z")},
		"column":  {NewColumn([]int64{1, 2}), NewColumn([]int64{3}), NewColumn([]int64{4, 5, 6})},
		"strings": {NewColumn([]string{"a"}), NewColumn([]string{}), NewColumn([]string{"b", "c"})},
	}
}

func TestAssociativity(t *testing.T) {
	for name, s := range samples() {
		a, b, c := s[0], s[1], s[2]
		left := mustCombine(t, a, mustCombine(t, b, c))
		right := mustCombine(t, mustCombine(t, a, b), c)
		require.True(t, Equal(left, right), name)
	}
}

func TestCommutativity(t *testing.T) {
	for name, s := range samples() {
		if s[0].Kind() == accrue.ColumnKind {
			continue
		}
		a, b, c := s[0], s[1], s[2]
		require.True(t, Equal(mustCombine(t, a, b), mustCombine(t, b, a)), name)
		require.True(t, Equal(mustCombine(t, a, mustCombine(t, b, c)), mustCombine(t, b, mustCombine(t, a, c))), name)
	}
}

func TestIdentity(t *testing.T) {
	for name, s := range samples() {
		for _, a := range s {
			require.True(t, Equal(a, mustCombine(t, a, a.Identity())), name)
			require.True(t, Equal(a, mustCombine(t, a.Identity(), a)), name)
		}
	}
}

func TestCombineDoesNotModifyArgument(t *testing.T) {
	a := dictOf(map[string]int{"a": 1})
	b := dictOf(map[string]int{"a": 2, "b": 3})
	require.Nil(t, a.Combine(b))
	require.True(t, Equal(b, dictOf(map[string]int{"a": 2, "b": 3})))
	// entries copied from b must not alias it
	require.Nil(t, a.Get("b").Combine(NewValue(10)))
	require.Equal(t, 3, b.Get("b").(*Value).Get())
	require.Equal(t, 13, a.Get("b").(*Value).Get())
}

func TestMergeOrderIndependence(t *testing.T) {
	parts := make([]accrue.Accumulator, 20)
	for i := range parts {
		d := NewDefaultDict(func() accrue.Accumulator { return NewValue(0) })
		require.Nil(t, d.Get(i%3).Combine(NewValue(i)))
		d.Set("ids", NewSet(i, i+1))
		parts[i] = d
	}
	var inOrder accrue.Accumulator
	for _, p := range parts {
		inOrder = mustCombine(t, inOrder, p)
	}
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 5; trial++ {
		var shuffled accrue.Accumulator
		for _, i := range r.Perm(len(parts)) {
			shuffled = mustCombine(t, shuffled, parts[i])
		}
		require.True(t, Equal(inOrder, shuffled))
	}
}

func TestDictCombine(t *testing.T) {
	res := mustCombine(t, dictOf(map[string]int{"a": 3, "b": 5}), dictOf(map[string]int{"b": 2, "c": 1}))
	require.True(t, Equal(dictOf(map[string]int{"a": 3, "b": 7, "c": 1}), res))
	require.Equal(t, []interface{}{"a", "b", "c"}, res.(*Dict).Keys())
}

func TestDefaultDict(t *testing.T) {
	d := NewDefaultDict(func() accrue.Accumulator { return NewValue(0) })
	for _, k := range []string{"x", "y", "x", "x"} {
		require.Nil(t, d.Get(k).Combine(NewValue(1)))
	}
	require.Equal(t, 3, d.Get("x").(*Value).Get())
	require.Equal(t, 1, d.Get("y").(*Value).Get())
	_, ok := d.Lookup("z")
	require.False(t, ok)

	plain := NewDict()
	require.Nil(t, plain.Get("x"))
	require.Nil(t, plain.Combine(d))
	require.Equal(t, 3, plain.Get("x").(*Value).Get())
}

func TestSetCombine(t *testing.T) {
	res := mustCombine(t, NewSet(1, 2, 3), NewSet(2, 3, 4))
	require.Equal(t, []interface{}{1, 2, 3, 4}, res.(*Set).Items())
	require.True(t, res.(*Set).Contains(4))
	require.False(t, res.(*Set).Contains(5))
}

func TestColumnOrderTracksMergeOrder(t *testing.T) {
	first, second := NewColumn([]int{1, 2}), NewColumn([]int{3, 4})
	forward := mustCombine(t, mustCombine(t, first.Identity(), first), second)
	require.Equal(t, []int{1, 2, 3, 4}, forward.(*Column).Values())
	reverse := mustCombine(t, mustCombine(t, first.Identity(), second), first)
	require.Equal(t, []int{3, 4, 1, 2}, reverse.(*Column).Values())
}

func TestColumnCopiesInput(t *testing.T) {
	raw := make([]int, 2, 10)
	raw[0], raw[1] = 1, 2
	col := NewColumn(raw)
	require.Nil(t, col.Combine(NewColumn([]int{3})))
	require.Equal(t, []int{1, 2, 0, 0}, raw[:4])
	require.Panics(t, func() { NewColumn(42) })
	require.Panics(t, func() { NewColumn([]map[string]int{}) })
}

func TestShapeMismatch(t *testing.T) {
	left := NewDict()
	left.Set("k", NewSet(1))
	right := NewDict()
	right.Set("k", NewValue(1))
	_, err := Combine(left, right)
	require.NotNil(t, err)
	var serr *errors.ShapeMismatchError
	require.True(t, goerrors.As(err, &serr))
	require.Equal(t, "[k]", serr.Path)
	require.Equal(t, "set", serr.Left)
	require.Equal(t, "value<add:int>", serr.Right)
	require.True(t, errors.IsFatal(err))
	require.False(t, errors.IsRetryable(err))

	cases := [][2]accrue.Accumulator{
		{NewValue(1), NewValue(1.5)},
		{NewValue(1), NewValueOp(Max, 1)},
		{NewValueOp(Max, 1), NewValueOp(Max, "a")},
		{NewColumn([]int{1}), NewColumn([]float64{1})},
		{NewSet(1), NewColumn([]int{1})},
		{NewDict(), NewValue(1)},
	}
	for _, c := range cases {
		_, err := Combine(c[0], c[1])
		require.True(t, goerrors.As(err, &serr), "%s + %s", Shape(c[0]), Shape(c[1]))
	}
}

func TestNestedShapeMismatchPath(t *testing.T) {
	mk := func(leaf accrue.Accumulator) *Dict {
		inner := NewDict()
		inner.Set(2, leaf)
		outer := NewDict()
		outer.Set("outer", inner)
		return outer
	}
	err := mk(NewValue(1)).Combine(mk(NewColumn([]int{1})))
	var serr *errors.ShapeMismatchError
	require.True(t, goerrors.As(err, &serr))
	require.Equal(t, "[outer][2]", serr.Path)
}

func TestMaxMin(t *testing.T) {
	res := mustCombine(t, NewValueOp(Max, 3.5), NewValueOp(Max, 7.25))
	require.Equal(t, 7.25, res.(*Value).Get())
	res = mustCombine(t, NewValueOp(Min, "pear"), NewValueOp(Min, "apple"))
	require.Equal(t, "apple", res.(*Value).Get())
	require.Nil(t, NewValueOp(Max, 3).Identity().(*Value).Get())
	require.Equal(t, 0, NewValue(3).Identity().(*Value).Get())
}

func TestRegisterOperator(t *testing.T) {
	RegisterOperator("bitor", Operator{
		Identity: func(v interface{}) interface{} { return uint8(0) },
		Combine: func(a, b interface{}) (interface{}, error) {
			return a.(uint8) | b.(uint8), nil
		},
	})
	res := mustCombine(t, NewValueOp("bitor", uint8(1)), NewValueOp("bitor", uint8(4)))
	require.Equal(t, uint8(5), res.(*Value).Get())
	_, err := Combine(NewValueOp("unregistered", 1), NewValueOp("unregistered", 2))
	require.NotNil(t, err)
}

func TestCodec(t *testing.T) {
	for name, s := range samples() {
		for _, acc := range s {
			buf, err := Marshal(acc)
			require.Nil(t, err, name)
			decoded, err := Unmarshal(buf)
			require.Nil(t, err, name)
			require.True(t, Equal(acc, decoded), name)
			require.Equal(t, acc.Kind(), decoded.Kind(), name)
		}
	}
	_, err := Unmarshal([]byte("garbage"))
	require.NotNil(t, err)
}
