package transcoder

import (
	"cmp"
	"errors"
	"reflect"
	"slices"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	tberrors "github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/internal/coerce"
	"github.com/wippyai/tensor-bridge/value"
)

var tensorType = reflect.TypeOf((*value.Tensor)(nil))

type Encoder struct {
	strictEmpty bool
}

func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode converts a single host value into a tagged value.
func (e *Encoder) Encode(v any) (value.Value, error) {
	return e.encode(v, nil)
}

// EncodeInputs encodes a positional input set for one forward call.
func (e *Encoder) EncodeInputs(inputs []any) ([]value.Value, error) {
	out := make([]value.Value, len(inputs))
	for i, in := range inputs {
		v, err := e.encode(in, []string{"input[" + strconv.Itoa(i) + "]"})
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EncodeNamed encodes a named input set. Inputs are returned positionally in
// mapping order; the names only appear in error paths.
func (e *Encoder) EncodeNamed(named *orderedmap.OrderedMap[string, any]) ([]value.Value, error) {
	if named == nil {
		return []value.Value{}, nil
	}
	out := make([]value.Value, 0, named.Len())
	for p := named.Oldest(); p != nil; p = p.Next() {
		v, err := e.encode(p.Value, []string{p.Key})
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// NamedFromMap orders a builtin map by key for EncodeNamed.
func NamedFromMap(m map[string]any) *orderedmap.OrderedMap[string, any] {
	om := orderedmap.New[string, any](len(m))
	for _, k := range sortedKeys(m) {
		om.Set(k, m[k])
	}
	return om
}

func (e *Encoder) encode(v any, path []string) (value.Value, error) {
	switch x := v.(type) {
	case nil:
		return value.Null(), nil
	case value.Value:
		if !x.Tag().Valid() {
			return value.Value{}, tberrors.UnknownTag(tberrors.PhaseEncode, path, uint8(x.Tag()))
		}
		return x, nil
	case *value.Tensor:
		if x == nil {
			return value.Null(), nil
		}
		t, err := denseTensor(x, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromTensor(t), nil
	case Hinted:
		return e.encodeHinted(x, path)
	case Tuple:
		items, err := e.encodeItems(x, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.Tuple(items...), nil
	case bool:
		return value.Bool(x), nil
	case string:
		return value.String(x), nil
	case float64:
		return value.Double(x), nil
	case float32:
		return value.Double(float64(x)), nil
	case []bool:
		return value.BoolList(x), nil
	case []int64:
		return value.LongList(x), nil
	case []float64:
		return value.DoubleList(x), nil
	case []*value.Tensor:
		ts, err := denseTensors(x, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.TensorList(ts), nil
	case []value.Value:
		for i, item := range x {
			if !item.Tag().Valid() {
				return value.Value{}, tberrors.UnknownTag(tberrors.PhaseEncode, index(path, i), uint8(item.Tag()))
			}
		}
		return value.List(x...), nil
	case []any:
		return e.encodeSeq(x, path)
	case map[string]any:
		return e.encodeStringMap(x, path)
	case map[int64]any:
		return e.encodeLongMap(x, path)
	case map[any]any:
		return e.encodeAnyMap(x, path)
	case *orderedmap.OrderedMap[string, any]:
		if x == nil {
			return value.Null(), nil
		}
		d := value.NewStringDict()
		for p := x.Oldest(); p != nil; p = p.Next() {
			item, err := e.encode(p.Value, tberrors.Append(path, p.Key))
			if err != nil {
				return value.Value{}, err
			}
			d.Set(p.Key, item)
		}
		return value.DictStringKey(d), nil
	case *orderedmap.OrderedMap[int64, any]:
		if x == nil {
			return value.Null(), nil
		}
		d := value.NewLongDict()
		for p := x.Oldest(); p != nil; p = p.Next() {
			item, err := e.encode(p.Value, longKeyPath(path, p.Key))
			if err != nil {
				return value.Value{}, err
			}
			d.Set(p.Key, item)
		}
		return value.DictLongKey(d), nil
	}

	switch coerce.Classify(v) {
	case coerce.Bool:
		b, _ := coerce.ToBool(v)
		return value.Bool(b), nil
	case coerce.Int:
		n, err := e.long(v, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.Long(n), nil
	case coerce.Float:
		f, _ := coerce.Float64(v)
		return value.Double(f), nil
	}

	return e.encodeReflect(reflect.ValueOf(v), v, path)
}

func (e *Encoder) long(v any, path []string) (int64, error) {
	n, err := coerce.Int64(v)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, coerce.ErrOverflow) {
		return 0, tberrors.Overflow(tberrors.PhaseEncode, path, v, "int64")
	}
	return 0, tberrors.New(tberrors.PhaseEncode, tberrors.KindUnsupportedType).
		Path(path...).
		GoType(coerce.TypeName(v)).
		Tag(value.TagLong.String()).
		Detail("not an integer").
		Build()
}

// encodeReflect handles named types, typed slices and maps not covered by
// the fast type switch.
func (e *Encoder) encodeReflect(rv reflect.Value, v any, path []string) (value.Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return value.Null(), nil
		}
		return e.encode(rv.Elem().Interface(), path)
	case reflect.String:
		return value.String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		return e.encodeTypedSeq(rv, path)
	case reflect.Map:
		return e.encodeReflectMap(rv, path)
	}
	return value.Value{}, tberrors.UnsupportedType(path, coerce.TypeName(v))
}

// encodeTypedSeq encodes a slice or array whose element type is static.
// Primitive element types pick the homogeneous tag even when empty.
func (e *Encoder) encodeTypedSeq(rv reflect.Value, path []string) (value.Value, error) {
	elemType := rv.Type().Elem()
	n := rv.Len()

	switch coerce.ClassOfKind(elemType.Kind()) {
	case coerce.Bool:
		out := make([]bool, n)
		for i := range n {
			out[i] = rv.Index(i).Bool()
		}
		return value.BoolList(out), nil
	case coerce.Int:
		out := make([]int64, n)
		for i := range n {
			l, err := e.long(rv.Index(i).Interface(), index(path, i))
			if err != nil {
				return value.Value{}, err
			}
			out[i] = l
		}
		return value.LongList(out), nil
	case coerce.Float:
		out := make([]float64, n)
		for i := range n {
			out[i] = rv.Index(i).Float()
		}
		return value.DoubleList(out), nil
	}

	if elemType == tensorType {
		ts := make([]*value.Tensor, n)
		for i := range n {
			ts[i] = rv.Index(i).Interface().(*value.Tensor)
		}
		return e.encode(ts, path)
	}

	items := make([]any, n)
	for i := range n {
		items[i] = rv.Index(i).Interface()
	}
	return e.encodeSeq(items, path)
}

// encodeSeq infers the tag of an untyped sequence from its elements.
func (e *Encoder) encodeSeq(items []any, path []string) (value.Value, error) {
	if len(items) == 0 {
		if e.strictEmpty {
			return value.Value{}, tberrors.EmptyCollection(path, "[]any")
		}
		return value.List(), nil
	}

	if tag := homogeneous(items); tag != value.TagList {
		return e.encodeAs(tag, items, path)
	}

	encoded, err := e.encodeItems(items, path)
	if err != nil {
		return value.Value{}, err
	}
	return value.List(encoded...), nil
}

// homogeneous returns the homogeneous list tag shared by every element, or
// TagList when the elements differ or are not primitives.
func homogeneous(items []any) value.Tag {
	tag := elemListTag(items[0])
	if tag == value.TagList {
		return tag
	}
	for _, item := range items[1:] {
		if elemListTag(item) != tag {
			return value.TagList
		}
	}
	return tag
}

func elemListTag(v any) value.Tag {
	if t, ok := v.(*value.Tensor); ok {
		if t == nil {
			return value.TagList
		}
		return value.TagTensorList
	}
	switch coerce.Classify(v) {
	case coerce.Bool:
		return value.TagBoolList
	case coerce.Int:
		return value.TagLongList
	case coerce.Float:
		return value.TagDoubleList
	}
	return value.TagList
}

func (e *Encoder) encodeItems(items []any, path []string) ([]value.Value, error) {
	out := make([]value.Value, len(items))
	for i, item := range items {
		v, err := e.encode(item, index(path, i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// encodeAs builds a list of the given tag, converting every element.
func (e *Encoder) encodeAs(tag value.Tag, items []any, path []string) (value.Value, error) {
	mismatch := func(i int, item any) error {
		return tberrors.New(tberrors.PhaseEncode, tberrors.KindUnsupportedType).
			Path(index(path, i)...).
			GoType(coerce.TypeName(item)).
			Tag(tag.String()).
			Detail("element does not fit %s", tag).
			Build()
	}

	switch tag {
	case value.TagBoolList:
		out := make([]bool, len(items))
		for i, item := range items {
			b, ok := coerce.ToBool(item)
			if !ok {
				return value.Value{}, mismatch(i, item)
			}
			out[i] = b
		}
		return value.BoolList(out), nil
	case value.TagLongList:
		out := make([]int64, len(items))
		for i, item := range items {
			n, err := coerce.Int64(item)
			if errors.Is(err, coerce.ErrOverflow) {
				return value.Value{}, tberrors.Overflow(tberrors.PhaseEncode, index(path, i), item, "int64")
			}
			if err != nil {
				return value.Value{}, mismatch(i, item)
			}
			out[i] = n
		}
		return value.LongList(out), nil
	case value.TagDoubleList:
		out := make([]float64, len(items))
		for i, item := range items {
			f, ok := coerce.Float64(item)
			if !ok {
				return value.Value{}, mismatch(i, item)
			}
			out[i] = f
		}
		return value.DoubleList(out), nil
	case value.TagTensorList:
		out := make([]*value.Tensor, len(items))
		for i, item := range items {
			t, ok := item.(*value.Tensor)
			if !ok || t == nil {
				return value.Value{}, mismatch(i, item)
			}
			out[i] = t
		}
		ts, err := denseTensors(out, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.TensorList(ts), nil
	case value.TagList:
		encoded, err := e.encodeItems(items, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.List(encoded...), nil
	}
	return value.Value{}, tberrors.InvalidInput(tberrors.PhaseEncode, "cannot hint tag "+tag.String())
}

func (e *Encoder) encodeHinted(h Hinted, path []string) (value.Value, error) {
	if h.Value == nil {
		return e.encodeAs(h.Tag, nil, path)
	}
	rv := reflect.ValueOf(h.Value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return value.Value{}, tberrors.New(tberrors.PhaseEncode, tberrors.KindUnsupportedType).
			Path(path...).
			GoType(coerce.TypeName(h.Value)).
			Tag(h.Tag.String()).
			Detail("hinted value is not a sequence").
			Build()
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return e.encodeAs(h.Tag, items, path)
}

func (e *Encoder) encodeStringMap(m map[string]any, path []string) (value.Value, error) {
	d := value.NewStringDict()
	for _, k := range sortedKeys(m) {
		item, err := e.encode(m[k], tberrors.Append(path, k))
		if err != nil {
			return value.Value{}, err
		}
		d.Set(k, item)
	}
	return value.DictStringKey(d), nil
}

func (e *Encoder) encodeLongMap(m map[int64]any, path []string) (value.Value, error) {
	d := value.NewLongDict()
	for _, k := range sortedKeys(m) {
		item, err := e.encode(m[k], longKeyPath(path, k))
		if err != nil {
			return value.Value{}, err
		}
		d.Set(k, item)
	}
	return value.DictLongKey(d), nil
}

// encodeAnyMap inspects every key: all strings or all integers.
func (e *Encoder) encodeAnyMap(m map[any]any, path []string) (value.Value, error) {
	if len(m) == 0 {
		if e.strictEmpty {
			return value.Value{}, tberrors.EmptyCollection(path, "map[any]any")
		}
		return value.DictStringKey(nil), nil
	}

	var strs map[string]any
	var longs map[int64]any
	for k, v := range m {
		switch {
		case isString(k):
			if longs != nil {
				return value.Value{}, mixedKeys(path)
			}
			if strs == nil {
				strs = make(map[string]any, len(m))
			}
			strs[reflect.ValueOf(k).String()] = v
		case coerce.Classify(k) == coerce.Int:
			if strs != nil {
				return value.Value{}, mixedKeys(path)
			}
			n, err := coerce.Int64(k)
			if err != nil {
				return value.Value{}, tberrors.UnsupportedKeyType(path, "key "+strconv.Quote(coerce.TypeName(k))+" overflows int64")
			}
			if longs == nil {
				longs = make(map[int64]any, len(m))
			}
			if _, dup := longs[n]; dup {
				return value.Value{}, tberrors.UnsupportedKeyType(path, "duplicate key "+strconv.FormatInt(n, 10)+" after conversion to int64")
			}
			longs[n] = v
		default:
			return value.Value{}, tberrors.UnsupportedKeyType(path, "key type "+coerce.TypeName(k)+" is neither string nor integer")
		}
	}
	if strs != nil {
		return e.encodeStringMap(strs, path)
	}
	return e.encodeLongMap(longs, path)
}

func (e *Encoder) encodeReflectMap(rv reflect.Value, path []string) (value.Value, error) {
	keyType := rv.Type().Key()
	generic := make(map[any]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		generic[iter.Key().Interface()] = iter.Value().Interface()
	}

	switch {
	case keyType.Kind() == reflect.String, coerce.ClassOfKind(keyType.Kind()) == coerce.Int:
		if len(generic) == 0 {
			if keyType.Kind() == reflect.String {
				return value.DictStringKey(nil), nil
			}
			return value.DictLongKey(nil), nil
		}
		return e.encodeAnyMap(generic, path)
	case keyType.Kind() == reflect.Interface:
		return e.encodeAnyMap(generic, path)
	}
	return value.Value{}, tberrors.UnsupportedKeyType(path, "key type "+keyType.String()+" is neither string nor integer")
}

func denseTensor(t *value.Tensor, path []string) (*value.Tensor, error) {
	dense, _, err := t.Dense()
	if err != nil {
		var te *tberrors.Error
		if errors.As(err, &te) {
			cp := *te
			cp.Path = path
			return nil, &cp
		}
		return nil, tberrors.IncompatibleLayout(path, "%v", err)
	}
	return dense, nil
}

func denseTensors(ts []*value.Tensor, path []string) ([]*value.Tensor, error) {
	out := ts
	cloned := false
	for i, t := range ts {
		if t == nil {
			return nil, tberrors.New(tberrors.PhaseEncode, tberrors.KindUnsupportedType).
				Path(index(path, i)...).
				GoType("*value.Tensor").
				Tag(value.TagTensorList.String()).
				Detail("nil tensor in tensor list").
				Build()
		}
		dense, err := denseTensor(t, index(path, i))
		if err != nil {
			return nil, err
		}
		if dense != t {
			// the caller's slice is never written
			if !cloned {
				out = slices.Clone(ts)
				cloned = true
			}
			out[i] = dense
		}
	}
	return out, nil
}

func isString(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.String
}

func mixedKeys(path []string) error {
	return tberrors.UnsupportedKeyType(path, "dictionary mixes string and integer keys")
}

func index(path []string, i int) []string {
	return tberrors.Append(path, "["+strconv.Itoa(i)+"]")
}

func longKeyPath(path []string, k int64) []string {
	return tberrors.Append(path, strconv.FormatInt(k, 10))
}

func sortedKeys[K cmp.Ordered](m map[K]any) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
