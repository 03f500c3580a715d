package coerce

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var (
	ErrOverflow   = errors.New("integer overflows int64")
	ErrNotInteger = errors.New("not an integer")
)

// Class is the primitive kind of a scalar for homogeneous list inference.
type Class uint8

const (
	Other Class = iota
	Bool
	Int
	Float
)

func (c Class) String() string {
	switch c {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	}
	return "other"
}

// Classify returns the primitive class of v. Tensors, strings, nil and
// containers are Other.
func Classify(v any) Class {
	switch x := v.(type) {
	case nil:
		return Other
	case bool:
		return Bool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Int
	case float32, float64:
		return Float
	case json.Number:
		if isIntegerText(string(x)) {
			return Int
		}
		if _, err := x.Float64(); err == nil {
			return Float
		}
		return Other
	}
	return ClassOfKind(reflect.TypeOf(v).Kind())
}

// ClassOfKind classifies a reflect kind, used for typed slice elements.
func ClassOfKind(k reflect.Kind) Class {
	switch k {
	case reflect.Bool:
		return Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Int
	case reflect.Float32, reflect.Float64:
		return Float
	}
	return Other
}

// Int64 converts an integer-valued scalar. Unsigned values above MaxInt64 and
// integral json.Number text outside the int64 range fail with ErrOverflow.
func Int64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint64:
		return fromUint(x)
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case json.Number:
		if !isIntegerText(string(x)) {
			f, err := x.Float64()
			if err != nil {
				return 0, ErrNotInteger
			}
			return fromFloat(f)
		}
		n, err := strconv.ParseInt(string(x), 10, 64)
		if err != nil {
			return 0, ErrOverflow
		}
		return n, nil
	case nil:
		return 0, ErrNotInteger
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return fromFloat(rv.Float())
	}
	return 0, ErrNotInteger
}

// Float64 converts any numeric scalar.
func Float64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case nil:
		return 0, false
	}
	if n, err := Int64(v); err == nil {
		return float64(n), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	}
	return 0, false
}

// ToBool converts a boolean scalar, including named bool types.
func ToBool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if v == nil {
		return false, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Bool {
		return rv.Bool(), true
	}
	return false, false
}

// TypeName returns "nil" for nil values, avoiding reflect.TypeOf(nil) panic.
func TypeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

func fromUint(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, ErrOverflow
	}
	return int64(u), nil
}

func fromFloat(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsNaN(f) {
		return 0, ErrNotInteger
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, ErrOverflow
	}
	return int64(f), nil
}

func isIntegerText(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
