package wire

import (
	"cmp"
	stderrors "errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/x448/float16"

	"github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/internal/coerce"
	"github.com/wippyai/tensor-bridge/value"
)

// Keys of the method-channel map shape.
const (
	KeyTypeCode     = "typeCode"
	KeyData         = "data"
	KeyShape        = "shape"
	KeyDType        = "dtype"
	KeyMemoryFormat = "memoryFormat"
)

// ToMap converts v into the method-channel map shape
// {"typeCode": int, "data": ...}. Tensors become
// {"shape": []int64, "dtype": int, "memoryFormat": int, "data": typed slice}.
// Sequences of tagged values become []any of maps.
func ToMap(v value.Value) (map[string]any, error) {
	return toMap(v, nil)
}

func toMap(v value.Value, path []string) (map[string]any, error) {
	tag := v.Tag()
	if !tag.Valid() {
		return nil, errors.UnknownTag(errors.PhaseWire, path, uint8(tag))
	}
	m := map[string]any{KeyTypeCode: int(tag)}

	switch tag {
	case value.TagNull:
		return m, nil
	case value.TagBool:
		m[KeyData], _ = v.AsBool()
	case value.TagLong:
		m[KeyData], _ = v.AsLong()
	case value.TagDouble:
		m[KeyData], _ = v.AsDouble()
	case value.TagString:
		m[KeyData], _ = v.AsString()
	case value.TagTensor:
		t, _ := v.AsTensor()
		tm, err := tensorToMap(t, path)
		if err != nil {
			return nil, err
		}
		m[KeyData] = tm
	case value.TagTuple, value.TagList:
		items := v.Items()
		out := make([]any, len(items))
		for i, item := range items {
			im, err := toMap(item, index(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = im
		}
		m[KeyData] = out
	case value.TagBoolList:
		m[KeyData] = slices.Clone(v.Bools())
	case value.TagLongList:
		m[KeyData] = slices.Clone(v.Longs())
	case value.TagDoubleList:
		m[KeyData] = slices.Clone(v.Doubles())
	case value.TagTensorList:
		ts := v.Tensors()
		out := make([]any, len(ts))
		for i, t := range ts {
			tm, err := tensorToMap(t, index(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = tm
		}
		m[KeyData] = out
	case value.TagDictStringKey:
		d := v.StringDict()
		out := make(map[string]any, d.Len())
		for p := d.Oldest(); p != nil; p = p.Next() {
			im, err := toMap(p.Value, errors.Append(path, p.Key))
			if err != nil {
				return nil, err
			}
			out[p.Key] = im
		}
		m[KeyData] = out
	case value.TagDictLongKey:
		d := v.LongDict()
		out := make(map[int64]any, d.Len())
		for p := d.Oldest(); p != nil; p = p.Next() {
			im, err := toMap(p.Value, errors.Append(path, strconv.FormatInt(p.Key, 10)))
			if err != nil {
				return nil, err
			}
			out[p.Key] = im
		}
		m[KeyData] = out
	}
	return m, nil
}

func tensorToMap(t *value.Tensor, path []string) (map[string]any, error) {
	if t == nil {
		return nil, errors.InvalidData(errors.PhaseWire, path, "nil tensor")
	}
	dense, err := t.Clone()
	if err != nil {
		return nil, err
	}

	var data any
	switch dense.DType() {
	case value.UInt8:
		data, err = value.AsSlice[uint8](dense)
	case value.Int8:
		data, err = value.AsSlice[int8](dense)
	case value.Int32:
		data, err = value.AsSlice[int32](dense)
	case value.Float32:
		data, err = value.AsSlice[float32](dense)
	case value.Int64:
		data, err = value.AsSlice[int64](dense)
	case value.Float64:
		data, err = value.AsSlice[float64](dense)
	case value.Float16:
		data, err = value.AsSlice[float16.Float16](dense)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		KeyShape:        dense.Shape(),
		KeyDType:        int(dense.DType()),
		KeyMemoryFormat: int(dense.MemoryFormat()),
		KeyData:         data,
	}, nil
}

// FromMap converts the method-channel map shape back into a tagged value.
// It accepts both the typed slices produced by ToMap and the generic shapes
// produced by JSON decoding ([]any, map[string]any with decimal keys for
// DictLongKey, float64 or json.Number for integers).
func FromMap(m map[string]any) (value.Value, error) {
	return fromMap(m, nil, 0)
}

func fromMap(m map[string]any, path []string, depth int) (value.Value, error) {
	if depth > MaxDepth {
		return value.Value{}, errors.InvalidData(errors.PhaseWire, path, "nesting exceeds depth "+strconv.Itoa(MaxDepth))
	}
	if m == nil {
		return value.Value{}, errors.InvalidData(errors.PhaseWire, path, "value map is nil")
	}
	code, err := coerce.Int64(m[KeyTypeCode])
	if err != nil {
		return value.Value{}, errors.InvalidData(errors.PhaseWire, path, "missing or invalid typeCode")
	}
	if code < 0 || code > 255 || !value.Tag(code).Valid() {
		return value.Value{}, errors.New(errors.PhaseWire, errors.KindUnknownTag).
			Path(path...).
			Value(code).
			Detail("type code %d is not defined", code).
			Build()
	}
	tag := value.Tag(code)
	if tag == value.TagNull {
		return value.Null(), nil
	}

	data, ok := m[KeyData]
	if !ok || data == nil {
		return value.Value{}, errors.InvalidData(errors.PhaseWire, path, tag.String()+" value has no data")
	}
	bad := func(detail string) error {
		return errors.New(errors.PhaseWire, errors.KindInvalidData).
			Path(path...).
			Tag(tag.String()).
			GoType(coerce.TypeName(data)).
			Detail("%s", detail).
			Build()
	}

	switch tag {
	case value.TagBool:
		b, ok := coerce.ToBool(data)
		if !ok {
			return value.Value{}, bad("expected bool")
		}
		return value.Bool(b), nil
	case value.TagLong:
		n, err := coerce.Int64(data)
		if err != nil {
			return value.Value{}, bad(err.Error())
		}
		return value.Long(n), nil
	case value.TagDouble:
		f, ok := coerce.Float64(data)
		if !ok {
			return value.Value{}, bad("expected number")
		}
		return value.Double(f), nil
	case value.TagString:
		s, ok := data.(string)
		if !ok {
			return value.Value{}, bad("expected string")
		}
		return value.String(s), nil
	case value.TagTensor:
		tm, ok := asMap(data)
		if !ok {
			return value.Value{}, bad("expected tensor map")
		}
		t, err := tensorFromMap(tm, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromTensor(t), nil
	case value.TagTuple, value.TagList:
		items, ok := asSlice(data)
		if !ok {
			return value.Value{}, bad("expected list")
		}
		out := make([]value.Value, len(items))
		for i, item := range items {
			im, ok := asMap(item)
			if !ok {
				return value.Value{}, errors.InvalidData(errors.PhaseWire, index(path, i), "expected value map")
			}
			v, err := fromMap(im, index(path, i), depth+1)
			if err != nil {
				return value.Value{}, err
			}
			out[i] = v
		}
		if tag == value.TagTuple {
			return value.Tuple(out...), nil
		}
		return value.List(out...), nil
	case value.TagBoolList:
		items, ok := asSlice(data)
		if !ok {
			return value.Value{}, bad("expected list")
		}
		out := make([]bool, len(items))
		for i, item := range items {
			if out[i], ok = coerce.ToBool(item); !ok {
				return value.Value{}, errors.InvalidData(errors.PhaseWire, index(path, i), "expected bool")
			}
		}
		return value.BoolList(out), nil
	case value.TagLongList:
		items, ok := asSlice(data)
		if !ok {
			return value.Value{}, bad("expected list")
		}
		out := make([]int64, len(items))
		for i, item := range items {
			n, err := coerce.Int64(item)
			if err != nil {
				return value.Value{}, errors.InvalidData(errors.PhaseWire, index(path, i), err.Error())
			}
			out[i] = n
		}
		return value.LongList(out), nil
	case value.TagDoubleList:
		items, ok := asSlice(data)
		if !ok {
			return value.Value{}, bad("expected list")
		}
		out := make([]float64, len(items))
		for i, item := range items {
			if out[i], ok = coerce.Float64(item); !ok {
				return value.Value{}, errors.InvalidData(errors.PhaseWire, index(path, i), "expected number")
			}
		}
		return value.DoubleList(out), nil
	case value.TagTensorList:
		items, ok := asSlice(data)
		if !ok {
			return value.Value{}, bad("expected list")
		}
		out := make([]*value.Tensor, len(items))
		for i, item := range items {
			tm, ok := asMap(item)
			if !ok {
				return value.Value{}, errors.InvalidData(errors.PhaseWire, index(path, i), "expected tensor map")
			}
			t, err := tensorFromMap(tm, index(path, i))
			if err != nil {
				return value.Value{}, err
			}
			out[i] = t
		}
		return value.TensorList(out), nil
	case value.TagDictStringKey:
		entries, ok := asMap(data)
		if !ok {
			return value.Value{}, bad("expected string-keyed map")
		}
		d := value.NewStringDict()
		for _, k := range sortedKeys(entries) {
			im, ok := asMap(entries[k])
			if !ok {
				return value.Value{}, errors.InvalidData(errors.PhaseWire, errors.Append(path, k), "expected value map")
			}
			v, err := fromMap(im, errors.Append(path, k), depth+1)
			if err != nil {
				return value.Value{}, err
			}
			d.Set(k, v)
		}
		return value.DictStringKey(d), nil
	case value.TagDictLongKey:
		entries, err := longKeyed(data)
		if err != nil {
			return value.Value{}, bad(err.Error())
		}
		d := value.NewLongDict()
		for _, k := range sortedKeys(entries) {
			keyPath := errors.Append(path, strconv.FormatInt(k, 10))
			im, ok := asMap(entries[k])
			if !ok {
				return value.Value{}, errors.InvalidData(errors.PhaseWire, keyPath, "expected value map")
			}
			v, err := fromMap(im, keyPath, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			d.Set(k, v)
		}
		return value.DictLongKey(d), nil
	}
	return value.Value{}, errors.UnknownTag(errors.PhaseWire, path, uint8(tag))
}

func tensorFromMap(m map[string]any, path []string) (*value.Tensor, error) {
	bad := func(detail string) error {
		return errors.New(errors.PhaseWire, errors.KindInvalidData).
			Path(path...).
			Tag(value.TagTensor.String()).
			Detail("%s", detail).
			Build()
	}

	rawShape, ok := asSlice(m[KeyShape])
	if !ok {
		return nil, bad("missing shape")
	}
	shape := make([]int64, len(rawShape))
	for i, d := range rawShape {
		n, err := coerce.Int64(d)
		if err != nil {
			return nil, bad("shape: " + err.Error())
		}
		shape[i] = n
	}
	dcode, err := coerce.Int64(m[KeyDType])
	if err != nil || dcode < 0 || dcode > 255 || !value.DType(dcode).Valid() {
		return nil, bad("invalid dtype")
	}
	dtype := value.DType(dcode)
	format := value.Contiguous
	if raw, present := m[KeyMemoryFormat]; present && raw != nil {
		fcode, err := coerce.Int64(raw)
		if err != nil || fcode < 0 || fcode > 255 || !value.MemoryFormat(fcode).Valid() {
			return nil, bad("invalid memory format")
		}
		format = value.MemoryFormat(fcode)
	}

	t, err := typedTensor(m[KeyData], dtype, format, shape)
	if err != nil {
		var te *errors.Error
		if stderrors.As(err, &te) {
			cp := *te
			cp.Path = path
			return nil, &cp
		}
		return nil, bad(err.Error())
	}
	return t, nil
}

// typedTensor builds a tensor from typed slices zero-copy, or converts a
// generic []any of numbers.
func typedTensor(data any, dtype value.DType, format value.MemoryFormat, shape []int64) (*value.Tensor, error) {
	switch d := data.(type) {
	case []uint8:
		if dtype == value.UInt8 {
			return value.FromSliceFormat(d, format, shape...)
		}
	case []int8:
		if dtype == value.Int8 {
			return value.FromSliceFormat(d, format, shape...)
		}
	case []int32:
		if dtype == value.Int32 {
			return value.FromSliceFormat(d, format, shape...)
		}
	case []float32:
		if dtype == value.Float32 {
			return value.FromSliceFormat(d, format, shape...)
		}
	case []int64:
		if dtype == value.Int64 {
			return value.FromSliceFormat(d, format, shape...)
		}
	case []float64:
		if dtype == value.Float64 {
			return value.FromSliceFormat(d, format, shape...)
		}
	case []float16.Float16:
		if dtype == value.Float16 {
			return value.FromSliceFormat(d, format, shape...)
		}
	}

	items, ok := asSlice(data)
	if !ok {
		return nil, fmt.Errorf("tensor data of type %s does not match dtype %s", coerce.TypeName(data), dtype)
	}
	switch dtype {
	case value.UInt8:
		return convertInts[uint8](items, format, shape)
	case value.Int8:
		return convertInts[int8](items, format, shape)
	case value.Int32:
		return convertInts[int32](items, format, shape)
	case value.Int64:
		return convertInts[int64](items, format, shape)
	case value.Float32:
		return convertFloats(items, format, shape, func(f float64) float32 { return float32(f) })
	case value.Float64:
		return convertFloats(items, format, shape, func(f float64) float64 { return f })
	case value.Float16:
		return convertFloats(items, format, shape, func(f float64) float16.Float16 { return float16.Fromfloat32(float32(f)) })
	}
	return nil, fmt.Errorf("unsupported dtype %s", dtype)
}

func convertInts[T uint8 | int8 | int32 | int64](items []any, format value.MemoryFormat, shape []int64) (*value.Tensor, error) {
	out := make([]T, len(items))
	for i, item := range items {
		n, err := coerce.Int64(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %v", i, err)
		}
		if int64(T(n)) != n {
			return nil, fmt.Errorf("element %d: %d out of range", i, n)
		}
		out[i] = T(n)
	}
	return value.FromSliceFormat(out, format, shape...)
}

func convertFloats[T float32 | float64 | float16.Float16](items []any, format value.MemoryFormat, shape []int64, conv func(float64) T) (*value.Tensor, error) {
	out := make([]T, len(items))
	for i, item := range items {
		f, ok := coerce.Float64(item)
		if !ok {
			return nil, fmt.Errorf("element %d is not a number", i)
		}
		out[i] = conv(f)
	}
	return value.FromSliceFormat(out, format, shape...)
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

// asSlice accepts []any and any other slice type via reflection.
func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// longKeyed accepts map[int64]any, map[any]any with integer keys and
// map[string]any with decimal keys.
func longKeyed(data any) (map[int64]any, error) {
	switch d := data.(type) {
	case map[int64]any:
		return d, nil
	case map[string]any:
		out := make(map[int64]any, len(d))
		for k, v := range d {
			n, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("key %q is not an integer", k)
			}
			out[n] = v
		}
		return out, nil
	case map[any]any:
		out := make(map[int64]any, len(d))
		for k, v := range d {
			n, err := coerce.Int64(k)
			if err != nil {
				return nil, fmt.Errorf("key %v: %v", k, err)
			}
			out[n] = v
		}
		return out, nil
	}
	return nil, stderrors.New("expected integer-keyed map")
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
