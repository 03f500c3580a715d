package value

import (
	"bytes"
	"fmt"
	"slices"
	"unsafe"

	"github.com/x448/float16"

	"github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/internal/layout"
)

// MaxTensorBytes bounds the buffer Dense allocates when it gathers a
// strided view.
const MaxTensorBytes = 1 << 30

// Ownership records whether a tensor owns its buffer or borrows caller memory.
type Ownership uint8

const (
	// Owned buffers belong to the tensor; decoded outputs are always owned.
	Owned Ownership = iota
	// Borrowed buffers are views into caller memory. The caller keeps the
	// memory alive and unchanged for the duration of the forward call.
	Borrowed
)

func (o Ownership) String() string {
	if o == Borrowed {
		return "borrowed"
	}
	return "owned"
}

// Tensor is a reference to an n-dimensional buffer with shape and dtype
// metadata. The tensor never copies on construction.
type Tensor struct {
	data      []byte
	shape     []int64
	strides   []int64
	dtype     DType
	format    MemoryFormat
	ownership Ownership
}

// NewTensor wraps data as a densely packed tensor without copying it.
// The result borrows data.
func NewTensor(data []byte, shape []int64, dtype DType, format MemoryFormat) (*Tensor, error) {
	if err := checkMeta(shape, dtype, format); err != nil {
		return nil, err
	}
	want, _ := layout.NBytes(shape, dtype.Size())
	if int64(len(data)) != want {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Detail("%s tensor of shape %v needs %d bytes, got %d", dtype, shape, want, len(data)).
			Build()
	}
	return &Tensor{
		data:      data,
		shape:     slices.Clone(shape),
		dtype:     dtype,
		format:    format,
		ownership: Borrowed,
	}, nil
}

// NewStridedTensor wraps data as a strided view. Strides are in elements and
// are validated when the tensor is made dense.
func NewStridedTensor(data []byte, shape, strides []int64, dtype DType, format MemoryFormat) (*Tensor, error) {
	if err := checkMeta(shape, dtype, format); err != nil {
		return nil, err
	}
	if len(strides) != len(shape) {
		return nil, errors.IncompatibleLayout(nil, "rank %d with %d strides", len(shape), len(strides))
	}
	return &Tensor{
		data:      data,
		shape:     slices.Clone(shape),
		strides:   slices.Clone(strides),
		dtype:     dtype,
		format:    format,
		ownership: Borrowed,
	}, nil
}

// newOwnedTensor is used by decoders that already hold a private buffer.
func newOwnedTensor(data []byte, shape []int64, dtype DType, format MemoryFormat) (*Tensor, error) {
	t, err := NewTensor(data, shape, dtype, format)
	if err != nil {
		return nil, err
	}
	t.ownership = Owned
	return t, nil
}

// OwnedTensor wraps a buffer the caller hands over. The tensor takes
// ownership; the caller must not touch data afterwards.
func OwnedTensor(data []byte, shape []int64, dtype DType, format MemoryFormat) (*Tensor, error) {
	return newOwnedTensor(data, shape, dtype, format)
}

// FromSlice wraps a typed slice as a contiguous tensor, zero-copy.
// With no shape the tensor is one-dimensional.
func FromSlice[T Element](data []T, shape ...int64) (*Tensor, error) {
	return FromSliceFormat(data, Contiguous, shape...)
}

// FromSliceFormat is FromSlice with an explicit memory format.
func FromSliceFormat[T Element](data []T, format MemoryFormat, shape ...int64) (*Tensor, error) {
	if shape == nil {
		shape = []int64{int64(len(data))}
	}
	return NewTensor(bytesOf(data), shape, DTypeOf[T](), format)
}

func checkMeta(shape []int64, dtype DType, format MemoryFormat) error {
	if !dtype.Valid() {
		return errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Detail("invalid dtype %d", uint8(dtype)).
			Build()
	}
	if !format.Valid() {
		return errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Detail("invalid memory format %d", uint8(format)).
			Build()
	}
	if _, err := layout.NBytes(shape, dtype.Size()); err != nil {
		return errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Detail("shape %v", shape).
			Cause(err).
			Build()
	}
	if r := format.Rank(); r >= 0 && r != len(shape) {
		return errors.IncompatibleLayout(nil, "%s needs rank %d, shape %v", format, r, shape)
	}
	return nil
}

func (t *Tensor) Shape() []int64 { return slices.Clone(t.shape) }
func (t *Tensor) DType() DType { return t.dtype }
func (t *Tensor) MemoryFormat() MemoryFormat { return t.format }
func (t *Tensor) Ownership() Ownership { return t.ownership }

// Strides returns the explicit element strides, or nil for a dense tensor.
func (t *Tensor) Strides() []int64 { return slices.Clone(t.strides) }

// Data returns the underlying buffer without copying. For a strided tensor
// this is the whole backing buffer.
func (t *Tensor) Data() []byte { return t.data }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Numel returns the element count.
func (t *Tensor) Numel() int64 {
	n, _ := layout.Numel(t.shape)
	return n
}

// NBytes returns the dense byte size of the tensor.
func (t *Tensor) NBytes() int64 {
	n, _ := layout.NBytes(t.shape, t.dtype.Size())
	return n
}

// IsDense reports whether the buffer is packed in the tensor's memory format.
func (t *Tensor) IsDense() bool {
	if t.strides == nil {
		return true
	}
	dense, err := layout.DenseStrides(t.shape, layout.Format(t.format))
	if err != nil {
		return false
	}
	return layout.Equal(t.shape, t.strides, dense)
}

// Dense returns a densely packed tensor. A tensor that already is dense is
// returned as is (zero-copy); otherwise the elements are gathered into a new
// owned buffer and copied reports true. Strides that reach outside the
// buffer fail with an incompatible layout error.
func (t *Tensor) Dense() (dense *Tensor, copied bool, err error) {
	if t.strides == nil {
		return t, false, nil
	}
	want, err := layout.DenseStrides(t.shape, layout.Format(t.format))
	if err != nil {
		return nil, false, errors.IncompatibleLayout(nil, "%v", err)
	}
	size := t.dtype.Size()
	if err := layout.Validate(t.shape, t.strides, int64(len(t.data)/size)); err != nil {
		return nil, false, errors.IncompatibleLayout(nil, "%v", err)
	}
	if layout.Equal(t.shape, t.strides, want) {
		n := t.NBytes()
		if int64(len(t.data)) == n {
			return &Tensor{
				data:      t.data,
				shape:     t.shape,
				dtype:     t.dtype,
				format:    t.format,
				ownership: t.ownership,
			}, false, nil
		}
	}
	n := t.NBytes()
	if n > MaxTensorBytes {
		return nil, false, errors.IncompatibleLayout(nil, "gathering %d bytes exceeds the %d byte limit", n, MaxTensorBytes)
	}
	buf := make([]byte, n)
	layout.Gather(buf, t.data, t.shape, t.strides, want, size)
	return &Tensor{
		data:      buf,
		shape:     slices.Clone(t.shape),
		dtype:     t.dtype,
		format:    t.format,
		ownership: Owned,
	}, true, nil
}

// Clone returns a dense owned copy.
func (t *Tensor) Clone() (*Tensor, error) {
	d, copied, err := t.Dense()
	if err != nil {
		return nil, err
	}
	if copied {
		return d, nil
	}
	return &Tensor{
		data:      bytes.Clone(d.data),
		shape:     slices.Clone(d.shape),
		dtype:     d.dtype,
		format:    d.format,
		ownership: Owned,
	}, nil
}

// AsSlice returns the dense elements of t as a []T. The result aliases the
// tensor buffer when it is suitably aligned.
func AsSlice[T Element](t *Tensor) ([]T, error) {
	if want := DTypeOf[T](); t.dtype != want {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("tensor dtype is %s, not %s", t.dtype, want).
			Build()
	}
	d, _, err := t.Dense()
	if err != nil {
		return nil, err
	}
	return sliceOf[T](d.data), nil
}

// Float32s converts the dense elements of any dtype to float32.
func (t *Tensor) Float32s() ([]float32, error) {
	d, _, err := t.Dense()
	if err != nil {
		return nil, err
	}
	switch t.dtype {
	case UInt8:
		return convert(sliceOf[uint8](d.data)), nil
	case Int8:
		return convert(sliceOf[int8](d.data)), nil
	case Int32:
		return convert(sliceOf[int32](d.data)), nil
	case Float32:
		return slices.Clone(sliceOf[float32](d.data)), nil
	case Int64:
		return convert(sliceOf[int64](d.data)), nil
	case Float64:
		return convert(sliceOf[float64](d.data)), nil
	case Float16:
		src := sliceOf[float16.Float16](d.data)
		out := make([]float32, len(src))
		for i, h := range src {
			out[i] = h.Float32()
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported dtype %s", t.dtype)
}

func convert[T uint8 | int8 | int32 | int64 | float64](src []T) []float32 {
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}
	return out
}

// Equal reports whether two tensors have the same dtype, shape, memory
// format and logical contents. Ownership and strides are not compared.
func (t *Tensor) Equal(o *Tensor) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.dtype != o.dtype || t.format != o.format || !slices.Equal(t.shape, o.shape) {
		return false
	}
	a, _, err := t.Dense()
	if err != nil {
		return false
	}
	b, _, err := o.Dense()
	if err != nil {
		return false
	}
	return bytes.Equal(a.data, b.data)
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%s%v, %s)", t.dtype, t.shape, t.format)
}

func bytesOf[T Element](s []T) []byte {
	if len(s) == 0 {
		return []byte{}
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

func sliceOf[T Element](b []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	n := len(b) / size
	if n == 0 {
		return []T{}
	}
	p := unsafe.Pointer(unsafe.SliceData(b))
	if uintptr(p)%unsafe.Alignof(zero) == 0 {
		return unsafe.Slice((*T)(p), n)
	}
	out := make([]T, n)
	copy(bytesOf(out), b)
	return out
}
