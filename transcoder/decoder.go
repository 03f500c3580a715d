package transcoder

import (
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/value"
)

type Decoder struct {
	ordered bool
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode converts a tagged value into a host value. A tag outside the
// closed enumeration fails with an unknown type tag error and never yields
// nil.
func (d *Decoder) Decode(v value.Value) (any, error) {
	return d.decode(v, nil)
}

// DecodeAll decodes a positional sequence of outputs.
func (d *Decoder) DecodeAll(vs []value.Value) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		host, err := d.decode(v, []string{"output[" + strconv.Itoa(i) + "]"})
		if err != nil {
			return nil, err
		}
		out[i] = host
	}
	return out, nil
}

func (d *Decoder) decode(v value.Value, path []string) (any, error) {
	switch v.Tag() {
	case value.TagNull:
		return nil, nil
	case value.TagBool:
		b, _ := v.AsBool()
		return b, nil
	case value.TagLong:
		n, _ := v.AsLong()
		return n, nil
	case value.TagDouble:
		f, _ := v.AsDouble()
		return f, nil
	case value.TagString:
		s, _ := v.AsString()
		return s, nil
	case value.TagTensor:
		t, _ := v.AsTensor()
		return ownTensor(t, path)
	case value.TagTuple:
		items, err := d.decodeItems(v.Items(), path)
		if err != nil {
			return nil, err
		}
		return Tuple(items), nil
	case value.TagList:
		return d.decodeItems(v.Items(), path)
	case value.TagBoolList:
		return append([]bool{}, v.Bools()...), nil
	case value.TagLongList:
		return append([]int64{}, v.Longs()...), nil
	case value.TagDoubleList:
		return append([]float64{}, v.Doubles()...), nil
	case value.TagTensorList:
		src := v.Tensors()
		out := make([]*value.Tensor, len(src))
		for i, t := range src {
			owned, err := ownTensor(t, index(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = owned
		}
		return out, nil
	case value.TagDictStringKey:
		return d.decodeStringDict(v.StringDict(), path)
	case value.TagDictLongKey:
		return d.decodeLongDict(v.LongDict(), path)
	}
	return nil, errors.UnknownTag(errors.PhaseDecode, path, uint8(v.Tag()))
}

func (d *Decoder) decodeItems(items []value.Value, path []string) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		host, err := d.decode(item, index(path, i))
		if err != nil {
			return nil, err
		}
		out[i] = host
	}
	return out, nil
}

func (d *Decoder) decodeStringDict(dict *value.StringDict, path []string) (any, error) {
	if d.ordered {
		out := orderedmap.New[string, any](dict.Len())
		for p := dict.Oldest(); p != nil; p = p.Next() {
			host, err := d.decode(p.Value, errors.Append(path, p.Key))
			if err != nil {
				return nil, err
			}
			out.Set(p.Key, host)
		}
		return out, nil
	}
	out := make(map[string]any, dict.Len())
	for p := dict.Oldest(); p != nil; p = p.Next() {
		host, err := d.decode(p.Value, errors.Append(path, p.Key))
		if err != nil {
			return nil, err
		}
		out[p.Key] = host
	}
	return out, nil
}

func (d *Decoder) decodeLongDict(dict *value.LongDict, path []string) (any, error) {
	if d.ordered {
		out := orderedmap.New[int64, any](dict.Len())
		for p := dict.Oldest(); p != nil; p = p.Next() {
			host, err := d.decode(p.Value, longKeyPath(path, p.Key))
			if err != nil {
				return nil, err
			}
			out.Set(p.Key, host)
		}
		return out, nil
	}
	out := make(map[int64]any, dict.Len())
	for p := dict.Oldest(); p != nil; p = p.Next() {
		host, err := d.decode(p.Value, longKeyPath(path, p.Key))
		if err != nil {
			return nil, err
		}
		out[p.Key] = host
	}
	return out, nil
}

// ownTensor hands the caller an owned tensor. Borrowed views are cloned so
// the result never aliases memory the caller does not own.
func ownTensor(t *value.Tensor, path []string) (*value.Tensor, error) {
	if t == nil {
		return nil, errors.InvalidData(errors.PhaseDecode, path, "nil tensor")
	}
	if t.Ownership() == value.Owned {
		return t, nil
	}
	owned, err := t.Clone()
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindIncompatibleLayout).
			Path(path...).
			Cause(err).
			Build()
	}
	return owned, nil
}
