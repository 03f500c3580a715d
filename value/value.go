package value

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// StringDict is an insertion-ordered mapping with string keys.
type StringDict = orderedmap.OrderedMap[string, Value]

// LongDict is an insertion-ordered mapping with 64-bit integer keys.
type LongDict = orderedmap.OrderedMap[int64, Value]

// NewStringDict returns an empty StringDict.
func NewStringDict() *StringDict { return orderedmap.New[string, Value]() }

// NewLongDict returns an empty LongDict.
func NewLongDict() *LongDict { return orderedmap.New[int64, Value]() }

// Value is a tagged value: exactly one Tag plus the payload that tag
// prescribes. Values form trees; a Value never references itself.
//
// The zero Value carries no valid tag and is rejected by decoders.
// Constructors keep references to the slices and dictionaries they are
// given; values are treated as immutable once built.
type Value struct {
	tensor   *Tensor
	strDict  *StringDict
	longDict *LongDict
	s        string
	items    []Value
	bools    []bool
	longs    []int64
	doubles  []float64
	tensors  []*Tensor
	i        int64
	f        float64
	tag      Tag
	b        bool
}

func Null() Value { return Value{tag: TagNull} }
func Bool(b bool) Value { return Value{tag: TagBool, b: b} }
func Long(i int64) Value { return Value{tag: TagLong, i: i} }
func Double(f float64) Value { return Value{tag: TagDouble, f: f} }
func String(s string) Value { return Value{tag: TagString, s: s} }
func Tuple(items ...Value) Value { return Value{tag: TagTuple, items: nonNil(items)} }
func List(items ...Value) Value { return Value{tag: TagList, items: nonNil(items)} }

// FromTensor wraps t. A nil tensor becomes Null.
func FromTensor(t *Tensor) Value {
	if t == nil {
		return Null()
	}
	return Value{tag: TagTensor, tensor: t}
}

func BoolList(v []bool) Value { return Value{tag: TagBoolList, bools: nonNil(v)} }
func LongList(v []int64) Value { return Value{tag: TagLongList, longs: nonNil(v)} }
func DoubleList(v []float64) Value { return Value{tag: TagDoubleList, doubles: nonNil(v)} }
func TensorList(v []*Tensor) Value { return Value{tag: TagTensorList, tensors: nonNil(v)} }

// DictStringKey wraps an ordered string-keyed mapping. A nil dict is empty.
func DictStringKey(d *StringDict) Value {
	if d == nil {
		d = NewStringDict()
	}
	return Value{tag: TagDictStringKey, strDict: d}
}

// DictLongKey wraps an ordered integer-keyed mapping. A nil dict is empty.
func DictLongKey(d *LongDict) Value {
	if d == nil {
		d = NewLongDict()
	}
	return Value{tag: TagDictLongKey, longDict: d}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Tag returns the value's type tag.
func (v Value) Tag() Tag { return v.tag }

func (v Value) IsNull() bool { return v.tag == TagNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.tag == TagBool }
func (v Value) AsLong() (int64, bool) { return v.i, v.tag == TagLong }
func (v Value) AsDouble() (float64, bool) { return v.f, v.tag == TagDouble }
func (v Value) AsString() (string, bool) { return v.s, v.tag == TagString }
func (v Value) AsTensor() (*Tensor, bool) { return v.tensor, v.tag == TagTensor }

// Bools returns the payload of a BoolList, or nil.
func (v Value) Bools() []bool { return v.bools }

// Longs returns the payload of a LongList, or nil.
func (v Value) Longs() []int64 { return v.longs }

// Doubles returns the payload of a DoubleList, or nil.
func (v Value) Doubles() []float64 { return v.doubles }

// Tensors returns the payload of a TensorList, or nil.
func (v Value) Tensors() []*Tensor { return v.tensors }

// StringDict returns the payload of a DictStringKey, or nil.
func (v Value) StringDict() *StringDict { return v.strDict }

// LongDict returns the payload of a DictLongKey, or nil.
func (v Value) LongDict() *LongDict { return v.longDict }

// Items returns the elements of any sequence value as tagged values.
// Homogeneous lists are lifted element by element. Non-sequences yield nil.
func (v Value) Items() []Value {
	switch v.tag {
	case TagTuple, TagList:
		return v.items
	case TagBoolList:
		out := make([]Value, len(v.bools))
		for i, b := range v.bools {
			out[i] = Bool(b)
		}
		return out
	case TagLongList:
		out := make([]Value, len(v.longs))
		for i, n := range v.longs {
			out[i] = Long(n)
		}
		return out
	case TagDoubleList:
		out := make([]Value, len(v.doubles))
		for i, f := range v.doubles {
			out[i] = Double(f)
		}
		return out
	case TagTensorList:
		out := make([]Value, len(v.tensors))
		for i, t := range v.tensors {
			out[i] = FromTensor(t)
		}
		return out
	}
	return nil
}

// Len returns the element count of a sequence or dictionary, the byte
// length of a string, and 0 otherwise.
func (v Value) Len() int {
	switch v.tag {
	case TagString:
		return len(v.s)
	case TagTuple, TagList:
		return len(v.items)
	case TagBoolList:
		return len(v.bools)
	case TagLongList:
		return len(v.longs)
	case TagDoubleList:
		return len(v.doubles)
	case TagTensorList:
		return len(v.tensors)
	case TagDictStringKey:
		return v.strDict.Len()
	case TagDictLongKey:
		return v.longDict.Len()
	}
	return 0
}

// Equal reports structural equality: same tags at every node, same scalars,
// same dictionary entries in the same order and equal tensors. NaN equals NaN.
func (v Value) Equal(o Value) bool {
	if v.tag != o.tag {
		return false
	}
	switch v.tag {
	case TagNull:
		return true
	case TagBool:
		return v.b == o.b
	case TagLong:
		return v.i == o.i
	case TagDouble:
		return floatEqual(v.f, o.f)
	case TagString:
		return v.s == o.s
	case TagTensor:
		return v.tensor.Equal(o.tensor)
	case TagTuple, TagList:
		return slices.EqualFunc(v.items, o.items, Value.Equal)
	case TagBoolList:
		return slices.Equal(v.bools, o.bools)
	case TagLongList:
		return slices.Equal(v.longs, o.longs)
	case TagDoubleList:
		return slices.EqualFunc(v.doubles, o.doubles, floatEqual)
	case TagTensorList:
		return slices.EqualFunc(v.tensors, o.tensors, (*Tensor).Equal)
	case TagDictStringKey:
		return dictEqual(v.strDict, o.strDict)
	case TagDictLongKey:
		return dictEqual(v.longDict, o.longDict)
	}
	// Unknown tags carry no payload to compare.
	return true
}

func floatEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func dictEqual[K comparable](a, b *orderedmap.OrderedMap[K, Value]) bool {
	if a.Len() != b.Len() {
		return false
	}
	pb := b.Oldest()
	for pa := a.Oldest(); pa != nil; pa = pa.Next() {
		if pa.Key != pb.Key || !pa.Value.Equal(pb.Value) {
			return false
		}
		pb = pb.Next()
	}
	return true
}

// String renders the value for diagnostics, e.g. LongList[1 2 3].
func (v Value) String() string {
	var b strings.Builder
	v.format(&b)
	return b.String()
}

func (v Value) format(b *strings.Builder) {
	switch v.tag {
	case TagNull:
		b.WriteString("Null")
	case TagBool:
		b.WriteString(strconv.FormatBool(v.b))
	case TagLong:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case TagDouble:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case TagString:
		b.WriteString(strconv.Quote(v.s))
	case TagTensor:
		b.WriteString(v.tensor.String())
	case TagTuple, TagList, TagBoolList, TagLongList, TagDoubleList, TagTensorList:
		b.WriteString(v.tag.String())
		b.WriteByte('[')
		for i, item := range v.Items() {
			if i > 0 {
				b.WriteByte(' ')
			}
			item.format(b)
		}
		b.WriteByte(']')
	case TagDictStringKey:
		b.WriteString("Dict{")
		first := true
		for p := v.strDict.Oldest(); p != nil; p = p.Next() {
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(strconv.Quote(p.Key))
			b.WriteString(": ")
			p.Value.format(b)
		}
		b.WriteByte('}')
	case TagDictLongKey:
		b.WriteString("Dict{")
		first := true
		for p := v.longDict.Oldest(); p != nil; p = p.Next() {
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(strconv.FormatInt(p.Key, 10))
			b.WriteString(": ")
			p.Value.format(b)
		}
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "<tag %d>", uint8(v.tag))
	}
}
