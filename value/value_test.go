package value

import (
	"math"
	"testing"
)

func TestTag(t *testing.T) {
	for tag := TagNull; tag <= TagDictLongKey; tag++ {
		if !tag.Valid() {
			t.Errorf("%d should be valid", tag)
		}
		parsed, ok := ParseTag(tag.String())
		if !ok || parsed != tag {
			t.Errorf("ParseTag(%q) = %v, %v", tag.String(), parsed, ok)
		}
	}

	for _, tag := range []Tag{0, 15, 99, 255} {
		if tag.Valid() {
			t.Errorf("%d should be invalid", tag)
		}
		if tag.String() != "unknown" {
			t.Errorf("String() = %q, want unknown", tag.String())
		}
	}

	if NumTags != 14 {
		t.Errorf("NumTags = %d, want 14", NumTags)
	}
	if _, ok := ParseTag("Float"); ok {
		t.Error("ParseTag should reject undefined names")
	}
}

func TestTag_Classes(t *testing.T) {
	tests := []struct {
		tag         Tag
		sequence    bool
		homogeneous bool
		dict        bool
		elem        Tag
	}{
		{TagNull, false, false, false, 0},
		{TagTuple, true, false, false, 0},
		{TagList, true, false, false, 0},
		{TagBoolList, true, true, false, TagBool},
		{TagLongList, true, true, false, TagLong},
		{TagDoubleList, true, true, false, TagDouble},
		{TagTensorList, true, true, false, TagTensor},
		{TagDictStringKey, false, false, true, 0},
		{TagDictLongKey, false, false, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.tag.String(), func(t *testing.T) {
			if got := tt.tag.IsSequence(); got != tt.sequence {
				t.Errorf("IsSequence = %v", got)
			}
			if got := tt.tag.IsHomogeneous(); got != tt.homogeneous {
				t.Errorf("IsHomogeneous = %v", got)
			}
			if got := tt.tag.IsDict(); got != tt.dict {
				t.Errorf("IsDict = %v", got)
			}
			if got := tt.tag.ElemTag(); got != tt.elem {
				t.Errorf("ElemTag = %v", got)
			}
		})
	}
}

func TestValue_Items(t *testing.T) {
	tensor, err := FromSlice([]float32{1, 2})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		v    Value
		want []Value
	}{
		{"bool list", BoolList([]bool{true, false}), []Value{Bool(true), Bool(false)}},
		{"long list", LongList([]int64{1, 2, 3}), []Value{Long(1), Long(2), Long(3)}},
		{"double list", DoubleList([]float64{0.5}), []Value{Double(0.5)}},
		{"tensor list", TensorList([]*Tensor{tensor}), []Value{FromTensor(tensor)}},
		{"list", List(Long(1), String("a")), []Value{Long(1), String("a")}},
		{"tuple", Tuple(Null()), []Value{Null()}},
		{"empty list", List(), []Value{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.Items()
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("item %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
			if tt.v.Len() != len(tt.want) {
				t.Errorf("Len = %d", tt.v.Len())
			}
		})
	}

	if Long(1).Items() != nil {
		t.Error("scalars have no items")
	}
}

func TestValue_Equal(t *testing.T) {
	d1 := NewStringDict()
	d1.Set("a", Long(1))
	d1.Set("b", List(Bool(true)))
	d2 := NewStringDict()
	d2.Set("a", Long(1))
	d2.Set("b", List(Bool(true)))
	d3 := NewStringDict()
	d3.Set("b", List(Bool(true)))
	d3.Set("a", Long(1))

	tests := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"null", Null(), Null(), true},
		{"long", Long(3), Long(3), true},
		{"long differs", Long(3), Long(4), false},
		{"nan", Double(math.NaN()), Double(math.NaN()), true},
		{"tag differs", LongList([]int64{1}), List(Long(1)), false},
		{"nested", Tuple(List(String("x")), Null()), Tuple(List(String("x")), Null()), true},
		{"nested differs", Tuple(List(String("x"))), Tuple(List(String("y"))), false},
		{"dict", DictStringKey(d1), DictStringKey(d2), true},
		{"dict order", DictStringKey(d1), DictStringKey(d3), false},
		{"zero values", Value{}, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal = %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestValue_String(t *testing.T) {
	d := NewLongDict()
	d.Set(7, String("seven"))

	tests := []struct {
		v    Value
		want string
	}{
		{LongList([]int64{1, 2, 3}), "LongList[1 2 3]"},
		{List(Long(1), String("a")), `List[1 "a"]`},
		{DictLongKey(d), `Dict{7: "seven"}`},
		{Tuple(Null(), Bool(true), Double(1.5)), "Tuple[Null true 1.5]"},
		{Value{}, "<tag 0>"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValue_Accessors(t *testing.T) {
	if b, ok := Bool(true).AsBool(); !ok || !b {
		t.Error("AsBool")
	}
	if _, ok := Long(1).AsBool(); ok {
		t.Error("AsBool on Long should fail")
	}
	if s, ok := String("x").AsString(); !ok || s != "x" {
		t.Error("AsString")
	}
	if FromTensor(nil).Tag() != TagNull {
		t.Error("nil tensor should become Null")
	}
	if DictStringKey(nil).StringDict() == nil {
		t.Error("nil dict should become empty")
	}
	if LongList(nil).Longs() == nil {
		t.Error("nil slice should become empty")
	}
}
