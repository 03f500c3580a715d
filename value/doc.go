// Package value defines the tagged values exchanged with an inference engine.
//
// Every value crossing the boundary carries exactly one Tag from a closed
// enumeration, and the tag alone determines how its payload is read:
//
//	Tag            Code  Payload
//	──────────────────────────────────────────────
//	Null           1     none
//	Tensor         2     *Tensor (shape, dtype, memory format, buffer)
//	Bool           3     bool
//	Long           4     int64
//	Double         5     float64
//	String         6     string
//	Tuple          7     []Value, heterogeneous
//	BoolList       8     []bool
//	LongList       9     []int64
//	DoubleList     10    []float64
//	TensorList     11    []*Tensor
//	List           12    []Value, heterogeneous
//	DictStringKey  13    ordered string -> Value
//	DictLongKey    14    ordered int64 -> Value
//
// Values are trees. A Value never refers back to an ancestor, so no code in
// this module performs cycle detection.
//
// # Tensors
//
// A Tensor references its buffer rather than copying it. FromSlice wraps a
// typed Go slice zero-copy and marks the tensor Borrowed: the caller keeps
// the slice alive and unchanged until the forward call returns. Tensors
// produced by decoding engine output are Owned and belong to the caller.
//
// Strided views (NewStridedTensor) are made dense before they cross the
// boundary. A view that is already packed in its memory format passes
// through untouched; any other valid view is gathered into an owned copy.
//
// Buffers are interpreted in little-endian byte order.
package value
