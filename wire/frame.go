package wire

import (
	stderrors "errors"
	"strconv"

	"github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/value"
	"github.com/wippyai/tensor-bridge/wire/internal/binary"
)

// Version is the frame schema version written by this package.
const Version = 1

// Frame kinds.
const (
	KindValue byte = 0
	KindError byte = 1
)

// Safety limits. Unmarshal rejects frames beyond them and Marshal refuses
// to produce such frames.
const (
	MaxStringSize  = 16 << 20             // 16 MiB per string
	MaxListLength  = 1 << 20              // 1M elements per sequence or dictionary
	MaxDepth       = 512                  // nesting depth
	MaxTensorBytes = value.MaxTensorBytes // 1 GiB per tensor
	MaxRank        = 64
)

// RemoteError is the message of an error frame produced by the engine.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "engine error: " + e.Message
}

// Marshal encodes v as a value frame.
func Marshal(v value.Value) ([]byte, error) {
	w := binary.NewWriter()
	w.Byte(Version)
	w.Byte(KindValue)
	if err := writeValue(w, v, nil, 0); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// MarshalError encodes msg as an error frame.
func MarshalError(msg string) []byte {
	w := binary.NewWriter()
	w.Byte(Version)
	w.Byte(KindError)
	w.WriteString(msg)
	return w.Bytes()
}

// Unmarshal decodes a frame. An error frame yields a *RemoteError. The
// returned value owns all of its memory; data may be reused afterwards.
func Unmarshal(data []byte) (value.Value, error) {
	r := binary.NewReader(data)
	version, err := r.ReadByte()
	if err != nil {
		return value.Value{}, truncated(nil, err)
	}
	if version != Version {
		return value.Value{}, errors.VersionMismatch(version, Version)
	}
	kind, err := r.ReadByte()
	if err != nil {
		return value.Value{}, truncated(nil, err)
	}

	switch kind {
	case KindValue:
		v, err := readValue(r, nil, 0)
		if err != nil {
			return value.Value{}, err
		}
		if r.Len() != 0 {
			return value.Value{}, errors.InvalidData(errors.PhaseWire, nil,
				strconv.Itoa(r.Len())+" trailing bytes after value")
		}
		return v, nil
	case KindError:
		msg, err := r.ReadString(MaxStringSize)
		if err != nil {
			return value.Value{}, truncated(nil, err)
		}
		return value.Value{}, &RemoteError{Message: msg}
	}
	return value.Value{}, errors.InvalidData(errors.PhaseWire, nil, "unknown frame kind "+strconv.Itoa(int(kind)))
}

func writeValue(w *binary.Writer, v value.Value, path []string, depth int) error {
	if depth > MaxDepth {
		return errors.InvalidData(errors.PhaseWire, path, "nesting exceeds depth "+strconv.Itoa(MaxDepth))
	}
	tag := v.Tag()
	if !tag.Valid() {
		return errors.UnknownTag(errors.PhaseWire, path, uint8(tag))
	}
	w.Byte(byte(tag))

	switch tag {
	case value.TagNull:
	case value.TagBool:
		b, _ := v.AsBool()
		w.Byte(boolByte(b))
	case value.TagLong:
		n, _ := v.AsLong()
		w.WriteS64(n)
	case value.TagDouble:
		f, _ := v.AsDouble()
		w.WriteF64LE(f)
	case value.TagString:
		s, _ := v.AsString()
		return writeString(w, s, path)
	case value.TagTensor:
		t, _ := v.AsTensor()
		return writeTensor(w, t, path)
	case value.TagTuple, value.TagList:
		items := v.Items()
		if err := writeCount(w, len(items), path); err != nil {
			return err
		}
		for i, item := range items {
			if err := writeValue(w, item, index(path, i), depth+1); err != nil {
				return err
			}
		}
	case value.TagBoolList:
		bs := v.Bools()
		if err := writeCount(w, len(bs), path); err != nil {
			return err
		}
		for _, b := range bs {
			w.Byte(boolByte(b))
		}
	case value.TagLongList:
		ns := v.Longs()
		if err := writeCount(w, len(ns), path); err != nil {
			return err
		}
		for _, n := range ns {
			w.WriteS64(n)
		}
	case value.TagDoubleList:
		fs := v.Doubles()
		if err := writeCount(w, len(fs), path); err != nil {
			return err
		}
		w.Grow(8 * len(fs))
		for _, f := range fs {
			w.WriteF64LE(f)
		}
	case value.TagTensorList:
		ts := v.Tensors()
		if err := writeCount(w, len(ts), path); err != nil {
			return err
		}
		for i, t := range ts {
			if err := writeTensor(w, t, index(path, i)); err != nil {
				return err
			}
		}
	case value.TagDictStringKey:
		d := v.StringDict()
		if err := writeCount(w, d.Len(), path); err != nil {
			return err
		}
		for p := d.Oldest(); p != nil; p = p.Next() {
			keyPath := errors.Append(path, p.Key)
			if err := writeString(w, p.Key, keyPath); err != nil {
				return err
			}
			if err := writeValue(w, p.Value, keyPath, depth+1); err != nil {
				return err
			}
		}
	case value.TagDictLongKey:
		d := v.LongDict()
		if err := writeCount(w, d.Len(), path); err != nil {
			return err
		}
		for p := d.Oldest(); p != nil; p = p.Next() {
			w.WriteS64(p.Key)
			if err := writeValue(w, p.Value, errors.Append(path, strconv.FormatInt(p.Key, 10)), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCount(w *binary.Writer, n int, path []string) error {
	if n > MaxListLength {
		return errors.InvalidData(errors.PhaseWire, path,
			strconv.Itoa(n)+" elements exceed the limit of "+strconv.Itoa(MaxListLength))
	}
	w.WriteLen(n)
	return nil
}

func writeString(w *binary.Writer, s string, path []string) error {
	if len(s) > MaxStringSize {
		return errors.InvalidData(errors.PhaseWire, path,
			"string of "+strconv.Itoa(len(s))+" bytes exceeds the limit of "+strconv.Itoa(MaxStringSize))
	}
	w.WriteString(s)
	return nil
}

func writeTensor(w *binary.Writer, t *value.Tensor, path []string) error {
	if t == nil {
		return errors.InvalidData(errors.PhaseWire, path, "nil tensor")
	}
	if t.Rank() > MaxRank {
		return errors.InvalidData(errors.PhaseWire, path,
			"rank "+strconv.Itoa(t.Rank())+" exceeds the limit of "+strconv.Itoa(MaxRank))
	}
	if n := t.NBytes(); n > MaxTensorBytes {
		return errors.InvalidData(errors.PhaseWire, path,
			"tensor of "+strconv.FormatInt(n, 10)+" bytes exceeds the limit of "+strconv.Itoa(MaxTensorBytes))
	}
	dense, _, err := t.Dense()
	if err != nil {
		return err
	}
	w.Byte(byte(dense.DType()))
	w.Byte(byte(dense.MemoryFormat()))
	shape := dense.Shape()
	w.WriteLen(len(shape))
	for _, d := range shape {
		w.WriteS64(d)
	}
	data := dense.Data()
	w.WriteLen(len(data))
	w.WriteBytes(data)
	return nil
}

func readValue(r *binary.Reader, path []string, depth int) (value.Value, error) {
	if depth > MaxDepth {
		return value.Value{}, errors.InvalidData(errors.PhaseWire, path, "nesting exceeds depth "+strconv.Itoa(MaxDepth))
	}
	b, err := r.ReadByte()
	if err != nil {
		return value.Value{}, truncated(path, err)
	}
	tag := value.Tag(b)

	switch tag {
	case value.TagNull:
		return value.Null(), nil
	case value.TagBool:
		b, err := readBool(r, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(b), nil
	case value.TagLong:
		n, err := r.ReadS64()
		if err != nil {
			return value.Value{}, truncated(path, err)
		}
		return value.Long(n), nil
	case value.TagDouble:
		f, err := r.ReadF64LE()
		if err != nil {
			return value.Value{}, truncated(path, err)
		}
		return value.Double(f), nil
	case value.TagString:
		s, err := readString(r, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.String(s), nil
	case value.TagTensor:
		t, err := readTensor(r, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromTensor(t), nil
	case value.TagTuple, value.TagList:
		n, err := readCount(r, path, 1)
		if err != nil {
			return value.Value{}, err
		}
		items := make([]value.Value, n)
		for i := range items {
			if items[i], err = readValue(r, index(path, i), depth+1); err != nil {
				return value.Value{}, err
			}
		}
		if tag == value.TagTuple {
			return value.Tuple(items...), nil
		}
		return value.List(items...), nil
	case value.TagBoolList:
		n, err := readCount(r, path, 1)
		if err != nil {
			return value.Value{}, err
		}
		bs := make([]bool, n)
		for i := range bs {
			if bs[i], err = readBool(r, index(path, i)); err != nil {
				return value.Value{}, err
			}
		}
		return value.BoolList(bs), nil
	case value.TagLongList:
		n, err := readCount(r, path, 1)
		if err != nil {
			return value.Value{}, err
		}
		ns := make([]int64, n)
		for i := range ns {
			if ns[i], err = r.ReadS64(); err != nil {
				return value.Value{}, truncated(index(path, i), err)
			}
		}
		return value.LongList(ns), nil
	case value.TagDoubleList:
		n, err := readCount(r, path, 8)
		if err != nil {
			return value.Value{}, err
		}
		fs := make([]float64, n)
		for i := range fs {
			if fs[i], err = r.ReadF64LE(); err != nil {
				return value.Value{}, truncated(index(path, i), err)
			}
		}
		return value.DoubleList(fs), nil
	case value.TagTensorList:
		n, err := readCount(r, path, 4)
		if err != nil {
			return value.Value{}, err
		}
		ts := make([]*value.Tensor, n)
		for i := range ts {
			if ts[i], err = readTensor(r, index(path, i)); err != nil {
				return value.Value{}, err
			}
		}
		return value.TensorList(ts), nil
	case value.TagDictStringKey:
		n, err := readCount(r, path, 2)
		if err != nil {
			return value.Value{}, err
		}
		d := value.NewStringDict()
		for range n {
			key, err := readString(r, path)
			if err != nil {
				return value.Value{}, err
			}
			item, err := readValue(r, errors.Append(path, key), depth+1)
			if err != nil {
				return value.Value{}, err
			}
			if _, dup := d.Set(key, item); dup {
				return value.Value{}, errors.InvalidData(errors.PhaseWire, path, "duplicate key "+strconv.Quote(key))
			}
		}
		return value.DictStringKey(d), nil
	case value.TagDictLongKey:
		n, err := readCount(r, path, 2)
		if err != nil {
			return value.Value{}, err
		}
		d := value.NewLongDict()
		for range n {
			key, err := r.ReadS64()
			if err != nil {
				return value.Value{}, truncated(path, err)
			}
			keyPath := errors.Append(path, strconv.FormatInt(key, 10))
			item, err := readValue(r, keyPath, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			if _, dup := d.Set(key, item); dup {
				return value.Value{}, errors.InvalidData(errors.PhaseWire, path, "duplicate key "+strconv.FormatInt(key, 10))
			}
		}
		return value.DictLongKey(d), nil
	}
	return value.Value{}, errors.UnknownTag(errors.PhaseWire, path, b)
}

func readBool(r *binary.Reader, path []string) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, truncated(path, err)
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.InvalidData(errors.PhaseWire, path, "bool byte "+strconv.Itoa(int(b)))
}

func readString(r *binary.Reader, path []string) (string, error) {
	s, err := r.ReadString(MaxStringSize)
	if err != nil {
		if stderrors.Is(err, binary.ErrInvalidUTF8) {
			return "", errors.New(errors.PhaseWire, errors.KindInvalidUTF8).
				Path(path...).
				Cause(err).
				Build()
		}
		return "", truncated(path, err)
	}
	return s, nil
}

// readCount reads an element count. Every element needs at least minSize
// bytes, so counts the remaining input cannot hold are rejected before
// anything is allocated.
func readCount(r *binary.Reader, path []string, minSize int) (int, error) {
	n, err := r.ReadLen(MaxListLength)
	if err != nil {
		return 0, truncated(path, err)
	}
	if n > r.Len()/minSize {
		return 0, errors.InvalidData(errors.PhaseWire, path,
			strconv.Itoa(n)+" elements cannot fit in "+strconv.Itoa(r.Len())+" bytes")
	}
	return n, nil
}

func readTensor(r *binary.Reader, path []string) (*value.Tensor, error) {
	dtype, err := r.ReadByte()
	if err != nil {
		return nil, truncated(path, err)
	}
	format, err := r.ReadByte()
	if err != nil {
		return nil, truncated(path, err)
	}
	rank, err := r.ReadLen(MaxRank)
	if err != nil {
		return nil, truncated(path, err)
	}
	shape := make([]int64, rank)
	for i := range shape {
		if shape[i], err = r.ReadS64(); err != nil {
			return nil, truncated(path, err)
		}
	}
	nbytes, err := r.ReadLen(MaxTensorBytes)
	if err != nil {
		return nil, truncated(path, err)
	}
	data, err := r.ReadBytes(nbytes)
	if err != nil {
		return nil, truncated(path, err)
	}

	t, err := value.OwnedTensor(data, shape, value.DType(dtype), value.MemoryFormat(format))
	if err != nil {
		return nil, errors.New(errors.PhaseWire, errors.KindInvalidData).
			Path(path...).
			Tag(value.TagTensor.String()).
			Cause(err).
			Build()
	}
	return t, nil
}

func truncated(path []string, err error) error {
	return errors.New(errors.PhaseWire, errors.KindInvalidData).
		Path(path...).
		Detail("malformed frame").
		Cause(err).
		Build()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func index(path []string, i int) []string {
	return errors.Append(path, "["+strconv.Itoa(i)+"]")
}
