package transcoder

import (
	"github.com/wippyai/tensor-bridge/value"
)

// Tuple is a fixed, heterogeneous sequence. It encodes with the Tuple tag and
// is what the decoder returns for Tuple values. A plain []any is a list.
type Tuple []any

// Hinted pairs a collection with the list tag it must be encoded as.
// See Hint.
type Hinted struct {
	Value any
	Tag   value.Tag
}

// Hint forces the homogeneous list tag (BoolList, LongList, DoubleList,
// TensorList) or List for v, bypassing element inference. An empty v encodes
// as an empty list of that tag even under StrictEmpty. Elements that do not
// fit the tag fail with an unsupported type error.
func Hint(tag value.Tag, v any) Hinted {
	return Hinted{Tag: tag, Value: v}
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// StrictEmpty makes empty untyped collections fail with an empty collection
// error instead of encoding as an empty List. Typed Go slices such as
// []int64{} carry their element type and are never ambiguous.
func StrictEmpty() EncoderOption {
	return func(e *Encoder) {
		e.strictEmpty = true
	}
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// OrderedDicts makes the decoder return dictionaries as insertion ordered
// maps (*orderedmap.OrderedMap[string, any] and [int64, any]) instead of
// builtin Go maps.
func OrderedDicts() DecoderOption {
	return func(d *Decoder) {
		d.ordered = true
	}
}
