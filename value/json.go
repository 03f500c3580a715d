package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/wippyai/tensor-bridge/errors"
)

// JSON shape: {"tag": "<Tag>", "payload": <tag-dependent>}, recursively.

type jsonValue struct {
	Tag     string          `json:"tag"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type jsonTensor struct {
	Shape        []int64 `json:"shape"`
	DType        string  `json:"dtype"`
	MemoryFormat string  `json:"memoryFormat"`
	Data         []byte  `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.tag.Valid() {
		return nil, errors.UnknownTag(errors.PhaseWire, nil, uint8(v.tag))
	}
	payload, err := v.marshalPayload()
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{Tag: v.tag.String(), Payload: payload})
}

func (v Value) marshalPayload() (json.RawMessage, error) {
	switch v.tag {
	case TagNull:
		return nil, nil
	case TagBool:
		return json.Marshal(v.b)
	case TagLong:
		return json.Marshal(v.i)
	case TagDouble:
		return marshalDouble(v.f)
	case TagString:
		return json.Marshal(v.s)
	case TagTensor:
		return marshalTensor(v.tensor)
	case TagTuple, TagList:
		return json.Marshal(v.items)
	case TagBoolList:
		return json.Marshal(v.bools)
	case TagLongList:
		return json.Marshal(v.longs)
	case TagDoubleList:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, f := range v.doubles {
			if i > 0 {
				b.WriteByte(',')
			}
			raw, err := marshalDouble(f)
			if err != nil {
				return nil, err
			}
			b.Write(raw)
		}
		b.WriteByte(']')
		return b.Bytes(), nil
	case TagTensorList:
		parts := make([]json.RawMessage, len(v.tensors))
		for i, t := range v.tensors {
			raw, err := marshalTensor(t)
			if err != nil {
				return nil, err
			}
			parts[i] = raw
		}
		return json.Marshal(parts)
	case TagDictStringKey:
		return json.Marshal(v.strDict)
	case TagDictLongKey:
		var b bytes.Buffer
		b.WriteByte('{')
		first := true
		for p := v.longDict.Oldest(); p != nil; p = p.Next() {
			if !first {
				b.WriteByte(',')
			}
			first = false
			b.WriteString(strconv.Quote(strconv.FormatInt(p.Key, 10)))
			b.WriteByte(':')
			raw, err := p.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			b.Write(raw)
		}
		b.WriteByte('}')
		return b.Bytes(), nil
	}
	return nil, errors.UnknownTag(errors.PhaseWire, nil, uint8(v.tag))
}

// Non-finite doubles have no JSON number form and travel as strings.
func marshalDouble(f float64) (json.RawMessage, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return json.Marshal(f)
}

func unmarshalDouble(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

func marshalTensor(t *Tensor) (json.RawMessage, error) {
	d, _, err := t.Dense()
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonTensor{
		Shape:        d.shape,
		DType:        d.dtype.String(),
		MemoryFormat: d.format.String(),
		Data:         d.data,
	})
}

func unmarshalTensor(raw json.RawMessage) (*Tensor, error) {
	var jt jsonTensor
	if err := json.Unmarshal(raw, &jt); err != nil {
		return nil, err
	}
	dtype, ok := ParseDType(jt.DType)
	if !ok {
		return nil, fmt.Errorf("unknown dtype %q", jt.DType)
	}
	format := Contiguous
	if jt.MemoryFormat != "" {
		if format, ok = ParseMemoryFormat(jt.MemoryFormat); !ok {
			return nil, fmt.Errorf("unknown memory format %q", jt.MemoryFormat)
		}
	}
	if jt.Data == nil {
		jt.Data = []byte{}
	}
	return newOwnedTensor(jt.Data, jt.Shape, dtype, format)
}

// UnmarshalJSON implements json.Unmarshaler. An unknown tag name fails with
// an unknown type tag error.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	tag, ok := ParseTag(jv.Tag)
	if !ok {
		return errors.New(errors.PhaseWire, errors.KindUnknownTag).
			Detail("type tag %q is not defined", jv.Tag).
			Build()
	}
	out, err := unmarshalPayload(tag, jv.Payload)
	if err != nil {
		if _, isTagged := err.(*errors.Error); isTagged {
			return err
		}
		return errors.New(errors.PhaseWire, errors.KindInvalidData).
			Tag(tag.String()).
			Cause(err).
			Build()
	}
	*v = out
	return nil
}

func unmarshalPayload(tag Tag, raw json.RawMessage) (Value, error) {
	if tag != TagNull && len(raw) == 0 {
		return Value{}, fmt.Errorf("missing payload")
	}
	switch tag {
	case TagNull:
		return Null(), nil
	case TagBool:
		var b bool
		err := json.Unmarshal(raw, &b)
		return Bool(b), err
	case TagLong:
		var i int64
		err := json.Unmarshal(raw, &i)
		return Long(i), err
	case TagDouble:
		f, err := unmarshalDouble(raw)
		return Double(f), err
	case TagString:
		var s string
		err := json.Unmarshal(raw, &s)
		return String(s), err
	case TagTensor:
		t, err := unmarshalTensor(raw)
		if err != nil {
			return Value{}, err
		}
		return FromTensor(t), nil
	case TagTuple, TagList:
		var items []Value
		if err := json.Unmarshal(raw, &items); err != nil {
			return Value{}, err
		}
		if tag == TagTuple {
			return Tuple(items...), nil
		}
		return List(items...), nil
	case TagBoolList:
		var bs []bool
		err := json.Unmarshal(raw, &bs)
		return BoolList(bs), err
	case TagLongList:
		var ls []int64
		err := json.Unmarshal(raw, &ls)
		return LongList(ls), err
	case TagDoubleList:
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return Value{}, err
		}
		ds := make([]float64, len(parts))
		for i, p := range parts {
			f, err := unmarshalDouble(p)
			if err != nil {
				return Value{}, err
			}
			ds[i] = f
		}
		return DoubleList(ds), nil
	case TagTensorList:
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return Value{}, err
		}
		ts := make([]*Tensor, len(parts))
		for i, p := range parts {
			t, err := unmarshalTensor(p)
			if err != nil {
				return Value{}, err
			}
			ts[i] = t
		}
		return TensorList(ts), nil
	case TagDictStringKey:
		d := NewStringDict()
		if err := json.Unmarshal(raw, d); err != nil {
			return Value{}, err
		}
		return DictStringKey(d), nil
	case TagDictLongKey:
		d := NewLongDict()
		err := objectEntries(raw, func(key string, item json.RawMessage) error {
			k, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return fmt.Errorf("dictionary key %q is not an integer", key)
			}
			var v Value
			if err := v.UnmarshalJSON(item); err != nil {
				return err
			}
			d.Set(k, v)
			return nil
		})
		if err != nil {
			return Value{}, err
		}
		return DictLongKey(d), nil
	}
	return Value{}, errors.UnknownTag(errors.PhaseWire, nil, uint8(tag))
}

// objectEntries walks a JSON object in document order.
func objectEntries(raw json.RawMessage, fn func(key string, item json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var item json.RawMessage
		if err := dec.Decode(&item); err != nil {
			return err
		}
		if err := fn(key, item); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
