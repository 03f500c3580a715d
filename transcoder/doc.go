// Package transcoder converts between dynamically typed host values and the
// tagged values of package value.
//
//	┌──────────────────────────────────────────────────────────┐
//	│ host any ──[Encoder]──> value.Value ──> engine           │
//	│ host any <──[Decoder]── value.Value <── engine           │
//	└──────────────────────────────────────────────────────────┘
//
// # Encoding Rules
//
//	Go value                           Tag
//	──────────────────────────────────────────────────────────
//	nil, nil pointer                   Null
//	bool                               Bool
//	int*, uint*, integral json.Number  Long
//	float32, float64, json.Number      Double
//	string                             String
//	*value.Tensor                      Tensor
//	Tuple                              Tuple
//	[]bool                             BoolList
//	[]int, []int64, ...                LongList
//	[]float32, []float64               DoubleList
//	[]*value.Tensor                    TensorList
//	[]any                              inferred, see below
//	map[string]T                       DictStringKey (keys sorted)
//	map[int64]T, map[int]T, ...        DictLongKey (keys sorted)
//	*orderedmap.OrderedMap[K, any]     DictStringKey / DictLongKey (in order)
//	value.Value                        unchanged
//
// A []any whose elements are all bool, all integers, all floats or all
// tensors is encoded with the matching homogeneous list tag; anything else is
// a List whose elements are encoded independently. Both forms decode to
// equivalent trees. An empty []any encodes as an empty List unless the
// encoder was built with StrictEmpty. Hint overrides inference.
//
// Tensors cross without copying. A strided view that is not packed in its
// memory format is gathered into an owned copy; strides that cannot be
// resolved fail with an incompatible layout error.
//
// Structs, functions, channels and complex numbers have no tag and fail with
// an unsupported type error. Maps whose keys are neither all strings nor all
// integers fail with an unsupported key type error. Errors carry the path of
// the offending element, e.g. "input[0].[2].scores".
//
// # Decoding Rules
//
// The decoder is an exhaustive switch over the fourteen tags; any other tag,
// including that of the zero value.Value, fails with an unknown type tag
// error. Decoded tensors are owned by the caller.
//
// Encoders and decoders hold no mutable state and are safe for concurrent
// use. Neither mutates its input.
package transcoder
