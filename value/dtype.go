package value

import "github.com/x448/float16"

// DType is the element type of a tensor. Codes are part of the wire format.
type DType uint8

const (
	UInt8 DType = iota + 1
	Int8
	Int32
	Float32
	Int64
	Float64
	Float16
)

var dtypeInfo = [...]struct {
	name string
	size int
}{
	UInt8:   {"uint8", 1},
	Int8:    {"int8", 1},
	Int32:   {"int32", 4},
	Float32: {"float32", 4},
	Int64:   {"int64", 8},
	Float64: {"float64", 8},
	Float16: {"float16", 2},
}

func (d DType) String() string {
	if d.Valid() {
		return dtypeInfo[d].name
	}
	return "unknown"
}

// Size returns the element size in bytes, or 0 for an invalid dtype.
func (d DType) Size() int {
	if d.Valid() {
		return dtypeInfo[d].size
	}
	return 0
}

func (d DType) Valid() bool {
	return d >= UInt8 && d <= Float16
}

// ParseDType resolves a dtype by name.
func ParseDType(name string) (DType, bool) {
	for i, info := range dtypeInfo {
		if info.name != "" && info.name == name {
			return DType(i), true
		}
	}
	return 0, false
}

// MemoryFormat is the physical dimension order of tensor data.
type MemoryFormat uint8

const (
	Contiguous MemoryFormat = iota + 1
	ChannelsLast
	ChannelsLast3d
)

var formatNames = [...]string{
	Contiguous:     "contiguous",
	ChannelsLast:   "channels_last",
	ChannelsLast3d: "channels_last_3d",
}

func (f MemoryFormat) String() string {
	if f.Valid() {
		return formatNames[f]
	}
	return "unknown"
}

func (f MemoryFormat) Valid() bool {
	return f >= Contiguous && f <= ChannelsLast3d
}

// Rank returns the tensor rank the format requires, or -1 for any rank.
func (f MemoryFormat) Rank() int {
	switch f {
	case ChannelsLast:
		return 4
	case ChannelsLast3d:
		return 5
	}
	return -1
}

// ParseMemoryFormat resolves a memory format by name.
func ParseMemoryFormat(name string) (MemoryFormat, bool) {
	for i, n := range formatNames {
		if n != "" && n == name {
			return MemoryFormat(i), true
		}
	}
	return 0, false
}

// Element is the set of Go types a tensor buffer can be viewed as.
type Element interface {
	uint8 | int8 | int32 | float32 | int64 | float64 | float16.Float16
}

// DTypeOf returns the dtype matching the Go element type T.
func DTypeOf[T Element]() DType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return UInt8
	case int8:
		return Int8
	case int32:
		return Int32
	case float32:
		return Float32
	case int64:
		return Int64
	case float64:
		return Float64
	case float16.Float16:
		return Float16
	}
	return 0
}
