package transcoder

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	tberrors "github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/value"
)

type label string
type score float32
type point struct{ X, Y int }

func mustTensor(t *testing.T, data []float32, shape ...int64) *value.Tensor {
	t.Helper()
	tensor, err := value.FromSlice(data, shape...)
	if err != nil {
		t.Fatal(err)
	}
	return tensor
}

func stringDict(pairs ...any) value.Value {
	d := value.NewStringDict()
	for i := 0; i < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	return value.DictStringKey(d)
}

func longDict(pairs ...any) value.Value {
	d := value.NewLongDict()
	for i := 0; i < len(pairs); i += 2 {
		d.Set(pairs[i].(int64), pairs[i+1].(value.Value))
	}
	return value.DictLongKey(d)
}

func TestEncoder_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  value.Value
	}{
		{"nil", nil, value.Null()},
		{"nil pointer", (*int)(nil), value.Null()},
		{"bool", true, value.Bool(true)},
		{"int", 42, value.Long(42)},
		{"int8", int8(-3), value.Long(-3)},
		{"uint32", uint32(7), value.Long(7)},
		{"uint64 max int64", uint64(math.MaxInt64), value.Long(math.MaxInt64)},
		{"float32", float32(0.5), value.Double(0.5)},
		{"float64", 2.25, value.Double(2.25)},
		{"json integer", json.Number("12"), value.Long(12)},
		{"json float", json.Number("1.5"), value.Double(1.5)},
		{"string", "hello", value.String("hello")},
		{"named string", label("cat"), value.String("cat")},
		{"named float", score(0.25), value.Double(0.25)},
		{"pointer", func() any { n := 5; return &n }(), value.Long(5)},
		{"value passthrough", value.LongList([]int64{1}), value.LongList([]int64{1})},
	}

	enc := NewEncoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.Encode(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncoder_Sequences(t *testing.T) {
	tensor := mustTensor(t, []float32{1, 2})

	tests := []struct {
		name  string
		input any
		want  value.Value
	}{
		{"all ints", []any{1, 2, 3}, value.LongList([]int64{1, 2, 3})},
		{"all bools", []any{true, false}, value.BoolList([]bool{true, false})},
		{"all floats", []any{1.5, float32(2)}, value.DoubleList([]float64{1.5, 2})},
		{"all tensors", []any{tensor, tensor}, value.TensorList([]*value.Tensor{tensor, tensor})},
		{"json numbers", []any{json.Number("1"), json.Number("2")}, value.LongList([]int64{1, 2})},
		{"mixed int and string", []any{1, "a"}, value.List(value.Long(1), value.String("a"))},
		{"mixed int and float", []any{1, 2.5}, value.List(value.Long(1), value.Double(2.5))},
		{"with nil", []any{1, nil}, value.List(value.Long(1), value.Null())},
		{"nested", []any{[]any{1, 2}, []any{"x"}}, value.List(
			value.LongList([]int64{1, 2}),
			value.List(value.String("x")),
		)},
		{"empty", []any{}, value.List()},
		{"typed bools", []bool{true}, value.BoolList([]bool{true})},
		{"typed int64", []int64{4, 5}, value.LongList([]int64{4, 5})},
		{"typed int", []int{4, 5}, value.LongList([]int64{4, 5})},
		{"typed uint8", []uint8{255}, value.LongList([]int64{255})},
		{"typed float32", []float32{0.5}, value.DoubleList([]float64{0.5})},
		{"typed empty ints", []int{}, value.LongList([]int64{})},
		{"typed strings", []string{"a", "b"}, value.List(value.String("a"), value.String("b"))},
		{"array", [2]int{1, 2}, value.LongList([]int64{1, 2})},
		{"typed tensors", []*value.Tensor{tensor}, value.TensorList([]*value.Tensor{tensor})},
		{"tuple", Tuple{1, "a", 2.5}, value.Tuple(value.Long(1), value.String("a"), value.Double(2.5))},
		{"tuple of ints stays tuple", Tuple{1, 2}, value.Tuple(value.Long(1), value.Long(2))},
		{"empty tuple", Tuple{}, value.Tuple()},
		{"tagged values", []value.Value{value.Long(1), value.Long(2)}, value.List(value.Long(1), value.Long(2))},
	}

	enc := NewEncoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.Encode(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncoder_Dictionaries(t *testing.T) {
	ordered := orderedmap.New[string, any]()
	ordered.Set("z", 1)
	ordered.Set("a", 2)

	orderedLong := orderedmap.New[int64, any]()
	orderedLong.Set(9, "nine")
	orderedLong.Set(-1, "minus one")

	tests := []struct {
		name  string
		input any
		want  value.Value
	}{
		{"string keys sorted", map[string]any{"b": 2, "a": 1},
			stringDict("a", value.Long(1), "b", value.Long(2))},
		{"long keys sorted", map[int64]any{3: "c", -2: "a"},
			longDict(int64(-2), value.String("a"), int64(3), value.String("c"))},
		{"int keys", map[int]any{1: true}, longDict(int64(1), value.Bool(true))},
		{"typed values", map[string]float64{"p": 0.5}, stringDict("p", value.Double(0.5))},
		{"named string keys", map[label]any{"x": nil}, stringDict("x", value.Null())},
		{"any keys all strings", map[any]any{"k": 1}, stringDict("k", value.Long(1))},
		{"any keys all ints", map[any]any{1: 1, int64(2): 2}, longDict(int64(1), value.Long(1), int64(2), value.Long(2))},
		{"ordered keeps order", ordered, stringDict("z", value.Long(1), "a", value.Long(2))},
		{"ordered long keeps order", orderedLong,
			longDict(int64(9), value.String("nine"), int64(-1), value.String("minus one"))},
		{"nested", map[string]any{"scores": []any{1.0, 2.0}, "meta": map[string]any{"n": 1}},
			stringDict(
				"meta", stringDict("n", value.Long(1)),
				"scores", value.DoubleList([]float64{1, 2}),
			)},
		{"empty typed map", map[int]string{}, value.DictLongKey(nil)},
	}

	enc := NewEncoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.Encode(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncoder_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		sentinel error
		path     string
	}{
		{"mixed keys", map[any]any{"a": 1, 2: 3}, tberrors.ErrUnsupportedKeyType, ""},
		{"float keys", map[float64]any{1.5: 1}, tberrors.ErrUnsupportedKeyType, ""},
		{"bool keys", map[any]any{true: 1}, tberrors.ErrUnsupportedKeyType, ""},
		{"struct", point{1, 2}, tberrors.ErrUnsupportedType, ""},
		{"nested struct", []any{1, point{}}, tberrors.ErrUnsupportedType, "[1]"},
		{"func in dict", map[string]any{"cb": func() {}}, tberrors.ErrUnsupportedType, "cb"},
		{"chan", make(chan int), tberrors.ErrUnsupportedType, ""},
		{"complex", complex(1, 2), tberrors.ErrUnsupportedType, ""},
		{"deep path", map[string]any{"a": []any{"x", []any{point{}}}}, tberrors.ErrUnsupportedType, "a.[1].[0]"},
		{"zero value", value.Value{}, tberrors.ErrUnknownTag, ""},
		{"nil tensor in list", []*value.Tensor{nil}, tberrors.ErrUnsupportedType, "[0]"},
	}

	enc := NewEncoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Encode(tt.input)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			var te *tberrors.Error
			if !errors.As(err, &te) {
				t.Fatalf("expected *errors.Error, got %T", err)
			}
			if got := strings.Join(te.Path, "."); got != tt.path {
				t.Errorf("path = %q, want %q", got, tt.path)
			}
		})
	}
}

func TestEncoder_Overflow(t *testing.T) {
	enc := NewEncoder()
	inputs := []any{
		uint64(math.MaxInt64) + 1,
		[]any{uint64(math.MaxUint64)},
		[]uint64{math.MaxUint64},
		json.Number("99999999999999999999"),
	}
	for _, in := range inputs {
		_, err := enc.Encode(in)
		var te *tberrors.Error
		if !errors.As(err, &te) || te.Kind != tberrors.KindOverflow {
			t.Errorf("Encode(%v): expected overflow, got %v", in, err)
		}
	}
}

func TestEncoder_StrictEmpty(t *testing.T) {
	enc := NewEncoder(StrictEmpty())

	_, err := enc.Encode([]any{})
	if !errors.Is(err, tberrors.ErrEmptyCollection) {
		t.Errorf("expected empty collection error, got %v", err)
	}

	_, err = enc.Encode(map[string]any{"xs": []any{}})
	var te *tberrors.Error
	if !errors.As(err, &te) || te.Kind != tberrors.KindEmptyCollection || strings.Join(te.Path, ".") != "xs" {
		t.Errorf("expected empty collection error at xs, got %v", err)
	}

	// Typed slices and hints are not ambiguous.
	got, err := enc.Encode([]float64{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Tag() != value.TagDoubleList {
		t.Errorf("tag = %v, want DoubleList", got.Tag())
	}
	got, err = enc.Encode(Hint(value.TagLongList, []any{}))
	if err != nil {
		t.Fatal(err)
	}
	if got.Tag() != value.TagLongList || got.Len() != 0 {
		t.Errorf("got %v, want empty LongList", got)
	}
}

func TestEncoder_Hint(t *testing.T) {
	tests := []struct {
		name    string
		input   Hinted
		want    value.Value
		wantErr error
	}{
		{"integral floats as longs", Hint(value.TagLongList, []any{1.0, 2.0}), value.LongList([]int64{1, 2}), nil},
		{"ints as doubles", Hint(value.TagDoubleList, []int{1, 2}), value.DoubleList([]float64{1, 2}), nil},
		{"empty bools", Hint(value.TagBoolList, nil), value.BoolList([]bool{}), nil},
		{"force list", Hint(value.TagList, []any{1, 2}), value.List(value.Long(1), value.Long(2)), nil},
		{"non conforming", Hint(value.TagLongList, []any{1, "a"}), value.Value{}, tberrors.ErrUnsupportedType},
		{"fraction as long", Hint(value.TagLongList, []any{1.5}), value.Value{}, tberrors.ErrUnsupportedType},
		{"not a sequence", Hint(value.TagBoolList, true), value.Value{}, tberrors.ErrUnsupportedType},
	}

	enc := NewEncoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.Encode(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := enc.Encode(Hint(value.TagString, []any{"a"})); err == nil {
		t.Error("hinting a scalar tag should fail")
	}
}

func TestEncoder_TensorZeroCopy(t *testing.T) {
	data := []float32{1, 2, 3, 4}
	tensor := mustTensor(t, data, 2, 2)

	got, err := NewEncoder().Encode(tensor)
	if err != nil {
		t.Fatal(err)
	}
	encoded, ok := got.AsTensor()
	if !ok {
		t.Fatalf("tag = %v, want Tensor", got.Tag())
	}
	if encoded != tensor {
		t.Error("dense tensor should pass through without copying")
	}
	if encoded.Ownership() != value.Borrowed {
		t.Error("encoded tensor should borrow the caller's buffer")
	}
}

func TestEncoder_TensorLayoutFallback(t *testing.T) {
	base := []float32{1, 2, 3, 4, 5, 6}
	view, err := value.NewStridedTensor(mustTensor(t, base).Data(), []int64{3, 2}, []int64{1, 3}, value.Float32, value.Contiguous)
	if err != nil {
		t.Fatal(err)
	}

	got, err := NewEncoder().Encode(map[string]any{"x": view})
	if err != nil {
		t.Fatal(err)
	}
	p := got.StringDict().GetPair("x")
	encoded, _ := p.Value.AsTensor()
	if encoded.Ownership() != value.Owned {
		t.Error("gathered tensor should be owned")
	}
	values, err := value.AsSlice[float32](encoded)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{1, 4, 2, 5, 3, 6}, values); diff != "" {
		t.Errorf("gathered data mismatch (-want +got):\n%s", diff)
	}
	if base[1] != 2 {
		t.Error("caller's buffer was modified")
	}

	bad, err := value.NewStridedTensor(make([]byte, 8), []int64{2, 2}, []int64{2, 1}, value.Float32, value.Contiguous)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewEncoder().Encode([]any{1, bad})
	var te *tberrors.Error
	if !errors.As(err, &te) || te.Kind != tberrors.KindIncompatibleLayout {
		t.Fatalf("expected incompatible layout, got %v", err)
	}
	if got := strings.Join(te.Path, "."); got != "[1]" {
		t.Errorf("path = %q, want [1]", got)
	}
}

func TestEncoder_DoesNotMutateInput(t *testing.T) {
	base := []float32{1, 2, 3, 4}
	view, err := value.NewStridedTensor(mustTensor(t, base).Data(), []int64{2, 2}, []int64{1, 2}, value.Float32, value.Contiguous)
	if err != nil {
		t.Fatal(err)
	}
	list := []*value.Tensor{view}
	if _, err := NewEncoder().Encode(list); err != nil {
		t.Fatal(err)
	}
	if list[0] != view {
		t.Error("caller's tensor slice was modified")
	}

	m := map[string]any{"a": []any{1, 2}}
	if _, err := NewEncoder().Encode(m); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"a": []any{1, 2}}, m); diff != "" {
		t.Errorf("input map changed (-want +got):\n%s", diff)
	}
}

func TestEncoder_Inputs(t *testing.T) {
	enc := NewEncoder()

	positional, err := enc.EncodeInputs([]any{1, "a"})
	if err != nil {
		t.Fatal(err)
	}
	named, err := enc.EncodeNamed(NamedFromMap(map[string]any{"b": "a", "a": 1}))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(positional, named); diff != "" {
		t.Errorf("named and positional inputs differ (-positional +named):\n%s", diff)
	}

	_, err = enc.EncodeInputs([]any{1, point{}})
	var te *tberrors.Error
	if !errors.As(err, &te) || strings.Join(te.Path, ".") != "input[1]" {
		t.Errorf("expected error at input[1], got %v", err)
	}

	_, err = enc.EncodeNamed(NamedFromMap(map[string]any{"image": point{}}))
	if !errors.As(err, &te) || strings.Join(te.Path, ".") != "image" {
		t.Errorf("expected error at image, got %v", err)
	}

	empty, err := enc.EncodeNamed(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("EncodeNamed(nil) = %v, %v", empty, err)
	}
}
