package transcoder

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	tberrors "github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/value"
	"github.com/wippyai/tensor-bridge/wire"
)

// passThrough ships v through the binary frame codec, the way a value
// crosses the engine boundary and comes back untouched.
func passThrough(t *testing.T, v value.Value) value.Value {
	t.Helper()
	frame, err := wire.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	out, err := wire.Unmarshal(frame)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestProperty_RoundTripIdentity(t *testing.T) {
	tensor := mustTensor(t, []float32{1, 2, 3, 4}, 2, 2)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", false, false},
		{"int", 42, int64(42)},
		{"min int64", int64(math.MinInt64), int64(math.MinInt64)},
		{"float", 2.5, 2.5},
		{"string", "héllo", "héllo"},
		{"tensor", tensor, tensor},
		{"tuple", Tuple{1, "a", nil}, Tuple{int64(1), "a", nil}},
		{"longs", []any{1, 2, 3}, []int64{1, 2, 3}},
		{"mixed", []any{1, "a"}, []any{int64(1), "a"}},
		{"bools", []bool{true}, []bool{true}},
		{"doubles", []float64{0.5, -1}, []float64{0.5, -1}},
		{"tensors", []*value.Tensor{tensor, tensor}, []*value.Tensor{tensor, tensor}},
		{"empty", []any{}, []any{}},
		{"string dict", map[string]any{"x": []any{true, false}, "y": nil}, map[string]any{"x": []bool{true, false}, "y": nil}},
		{"long dict", map[int64]any{-1: "neg", 1: 1.5}, map[int64]any{-1: "neg", 1: 1.5}},
		{"nested", []any{map[string]any{"k": Tuple{[]any{}}}, 3}, []any{map[string]any{"k": Tuple{[]any{}}}, int64(3)}},
	}

	enc, dec := NewEncoder(), NewDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := enc.Encode(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			got, err := dec.Decode(passThrough(t, encoded))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}

			// Re-encoding the decoded tree reproduces the same tagged tree.
			again, err := enc.Encode(got)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(encoded, again); diff != "" {
				t.Errorf("re-encode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProperty_HomogeneousListTransparency(t *testing.T) {
	enc, dec := NewEncoder(), NewDecoder()

	longs, err := enc.Encode([]any{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if longs.Tag() != value.TagLongList {
		t.Errorf("[1 2 3] encoded as %s, want LongList", longs.Tag())
	}

	mixed, err := enc.Encode([]any{1, "a"})
	if err != nil {
		t.Fatal(err)
	}
	if mixed.Tag() != value.TagList {
		t.Errorf("[1 a] encoded as %s, want List", mixed.Tag())
	}
	items := mixed.Items()
	if len(items) != 2 || items[0].Tag() != value.TagLong || items[1].Tag() != value.TagString {
		t.Errorf("mixed list elements not independently tagged: %v", mixed)
	}

	gotLongs, err := dec.Decode(passThrough(t, longs))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, gotLongs); diff != "" {
		t.Errorf("LongList decode mismatch (-want +got):\n%s", diff)
	}
	gotMixed, err := dec.Decode(passThrough(t, mixed))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{int64(1), "a"}, gotMixed); diff != "" {
		t.Errorf("List decode mismatch (-want +got):\n%s", diff)
	}
}

func TestProperty_EmptyCollectionPolicy(t *testing.T) {
	v, err := NewEncoder().Encode([]any{})
	if err != nil {
		t.Fatalf("empty sequence should encode, got %v", err)
	}
	if v.Tag() != value.TagList || v.Len() != 0 {
		t.Fatalf("got %v, want empty List", v)
	}
	got, err := NewDecoder().Decode(passThrough(t, v))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{}, got); diff != "" {
		t.Errorf("empty decode mismatch (-want +got):\n%s", diff)
	}
}

func TestProperty_MixedKeyRejection(t *testing.T) {
	_, err := NewEncoder().Encode(map[any]any{"a": 1, 2: 3})
	if !errors.Is(err, tberrors.ErrUnsupportedKeyType) {
		t.Errorf("expected unsupported key type error, got %v", err)
	}
}

func TestProperty_UnknownTagDefense(t *testing.T) {
	// A frame whose payload carries tag 15, one past the last defined tag.
	frame := []byte{wire.Version, wire.KindValue, byte(value.NumTags + 1)}
	v, err := wire.Unmarshal(frame)
	if !errors.Is(err, tberrors.ErrUnknownTag) {
		t.Fatalf("expected unknown tag error from the frame codec, got %v", err)
	}

	// A value that slipped past the codec is still rejected by the decoder.
	got, err := NewDecoder().Decode(v)
	if !errors.Is(err, tberrors.ErrUnknownTag) {
		t.Fatalf("expected unknown tag error from the decoder, got %v", err)
	}
	if got != nil {
		t.Errorf("decoder produced %v alongside the error", got)
	}
}
