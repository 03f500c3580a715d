package transcoder

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	tberrors "github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/value"
)

func TestDecoder_AllTags(t *testing.T) {
	owned, err := value.OwnedTensor([]byte{1, 2, 3}, []int64{3}, value.UInt8, value.Contiguous)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input value.Value
		want  any
	}{
		{"null", value.Null(), nil},
		{"bool", value.Bool(true), true},
		{"long", value.Long(math.MinInt64), int64(math.MinInt64)},
		{"double", value.Double(0.125), 0.125},
		{"string", value.String("ok"), "ok"},
		{"tensor", value.FromTensor(owned), owned},
		{"tuple", value.Tuple(value.Long(1), value.String("a")), Tuple{int64(1), "a"}},
		{"bool list", value.BoolList([]bool{false, true}), []bool{false, true}},
		{"long list", value.LongList([]int64{1, 2, 3}), []int64{1, 2, 3}},
		{"double list", value.DoubleList([]float64{0.5}), []float64{0.5}},
		{"tensor list", value.TensorList([]*value.Tensor{owned}), []*value.Tensor{owned}},
		{"list", value.List(value.Long(1), value.Null()), []any{int64(1), nil}},
		{"empty list", value.List(), []any{}},
		{"string dict", stringDict("a", value.LongList([]int64{1})), map[string]any{"a": []int64{1}}},
		{"long dict", longDict(int64(7), value.String("seven")), map[int64]any{7: "seven"}},
		{"nested", value.Tuple(value.List(stringDict("k", value.Tuple()))), Tuple{[]any{map[string]any{"k": Tuple{}}}}},
	}

	dec := NewDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dec.Decode(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecoder_UnknownTag(t *testing.T) {
	dec := NewDecoder()

	got, err := dec.Decode(value.Value{})
	if !errors.Is(err, tberrors.ErrUnknownTag) {
		t.Fatalf("expected unknown tag error, got %v", err)
	}
	if got != nil {
		t.Errorf("got %v alongside the error", got)
	}

	// Nested: the error carries the path of the bad element.
	_, err = dec.Decode(value.List(value.Long(1), value.Tuple(value.Value{})))
	var te *tberrors.Error
	if !errors.As(err, &te) || te.Kind != tberrors.KindUnknownTag {
		t.Fatalf("expected unknown tag error, got %v", err)
	}
	if te.Phase != tberrors.PhaseDecode {
		t.Errorf("phase = %v, want decode", te.Phase)
	}
	if got := strings.Join(te.Path, "."); got != "[1].[0]" {
		t.Errorf("path = %q, want [1].[0]", got)
	}
}

func TestDecoder_TensorOwnership(t *testing.T) {
	data := []float32{1, 2}
	borrowed, err := value.FromSlice(data)
	if err != nil {
		t.Fatal(err)
	}

	got, err := NewDecoder().Decode(value.FromTensor(borrowed))
	if err != nil {
		t.Fatal(err)
	}
	tensor := got.(*value.Tensor)
	if tensor.Ownership() != value.Owned {
		t.Error("decoded tensor should be owned by the caller")
	}
	data[0] = 99
	view, err := value.AsSlice[float32](tensor)
	if err != nil {
		t.Fatal(err)
	}
	if view[0] != 1 {
		t.Error("decoded tensor aliases a borrowed buffer")
	}
}

func TestDecoder_DoesNotAliasLists(t *testing.T) {
	longs := []int64{1, 2}
	got, err := NewDecoder().Decode(value.LongList(longs))
	if err != nil {
		t.Fatal(err)
	}
	got.([]int64)[0] = 42
	if longs[0] != 1 {
		t.Error("decoded list aliases the tagged value")
	}
}

func TestDecoder_OrderedDicts(t *testing.T) {
	input := stringDict(
		"z", value.Long(1),
		"a", longDict(int64(5), value.Null(), int64(-5), value.Bool(true)),
	)

	got, err := NewDecoder(OrderedDicts()).Decode(input)
	if err != nil {
		t.Fatal(err)
	}
	om, ok := got.(*orderedmap.OrderedMap[string, any])
	if !ok {
		t.Fatalf("got %T, want ordered map", got)
	}

	var keys []string
	for p := om.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	if diff := cmp.Diff([]string{"z", "a"}, keys); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}

	inner, ok := om.Get("a")
	if !ok {
		t.Fatal("missing key a")
	}
	longs, ok := inner.(*orderedmap.OrderedMap[int64, any])
	if !ok {
		t.Fatalf("inner dict is %T", inner)
	}
	if first := longs.Oldest(); first == nil || first.Key != 5 {
		t.Error("long dict order not preserved")
	}
}

func TestDecoder_DecodeAll(t *testing.T) {
	got, err := NewDecoder().DecodeAll([]value.Value{value.Long(1), value.String("b")})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{int64(1), "b"}, got); diff != "" {
		t.Errorf("DecodeAll mismatch (-want +got):\n%s", diff)
	}

	_, err = NewDecoder().DecodeAll([]value.Value{value.Null(), {}})
	var te *tberrors.Error
	if !errors.As(err, &te) || strings.Join(te.Path, ".") != "output[1]" {
		t.Errorf("expected unknown tag at output[1], got %v", err)
	}
}
