package layout

import (
	"slices"
	"testing"
)

func TestNumel(t *testing.T) {
	tests := []struct {
		shape   []int64
		want    int64
		wantErr bool
	}{
		{nil, 1, false},
		{[]int64{0}, 0, false},
		{[]int64{2, 3, 4}, 24, false},
		{[]int64{2, -1}, 0, true},
		{[]int64{1 << 40, 1 << 40}, 0, true},
	}

	for _, tt := range tests {
		got, err := Numel(tt.shape)
		if (err != nil) != tt.wantErr {
			t.Errorf("Numel(%v) err = %v, wantErr %v", tt.shape, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Numel(%v) = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestNBytes(t *testing.T) {
	tests := []struct {
		shape    []int64
		elemSize int
		want     int64
		wantErr  bool
	}{
		{[]int64{2, 3}, 4, 24, false},
		{nil, 8, 8, false},
		{[]int64{0, 1 << 62}, 8, 0, false},
		{[]int64{1 << 62}, 8, 0, true},
		{[]int64{1 << 61}, 4, 0, true},
		{[]int64{-1}, 1, 0, true},
	}

	for _, tt := range tests {
		got, err := NBytes(tt.shape, tt.elemSize)
		if (err != nil) != tt.wantErr {
			t.Errorf("NBytes(%v, %d) err = %v, wantErr %v", tt.shape, tt.elemSize, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NBytes(%v, %d) = %d, want %d", tt.shape, tt.elemSize, got, tt.want)
		}
	}
}

func TestDenseStrides(t *testing.T) {
	tests := []struct {
		name   string
		shape  []int64
		format Format
		want   []int64
	}{
		{"row major", []int64{2, 3, 4}, Contiguous, []int64{12, 4, 1}},
		{"scalar", []int64{}, Contiguous, []int64{}},
		{"channels last", []int64{2, 3, 4, 5}, ChannelsLast, []int64{60, 1, 15, 3}},
		{"channels last 3d", []int64{1, 2, 3, 4, 5}, ChannelsLast3d, []int64{120, 1, 40, 10, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DenseStrides(tt.shape, tt.format)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("DenseStrides = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := DenseStrides([]int64{2, 2}, ChannelsLast); err == nil {
		t.Error("channels_last on rank 2 should fail")
	}
	if _, err := DenseStrides([]int64{2}, Format(9)); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestEqual(t *testing.T) {
	shape := []int64{1, 3}
	if !Equal(shape, []int64{3, 1}, []int64{99, 1}) {
		t.Error("stride of a size-1 dimension should be ignored")
	}
	if Equal(shape, []int64{3, 1}, []int64{3, 2}) {
		t.Error("differing strides should not be equal")
	}
	if Equal(shape, []int64{1}, []int64{3, 1}) {
		t.Error("rank mismatch should not be equal")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		shape    []int64
		strides  []int64
		bufElems int64
		wantErr  bool
	}{
		{"dense", []int64{2, 3}, []int64{3, 1}, 6, false},
		{"transposed", []int64{3, 2}, []int64{1, 3}, 6, false},
		{"broadcast", []int64{4, 3}, []int64{0, 1}, 3, false},
		{"empty", []int64{0, 3}, []int64{3, 1}, 0, false},
		{"past end", []int64{2, 3}, []int64{4, 1}, 6, true},
		{"negative", []int64{2}, []int64{-1}, 2, true},
		{"rank mismatch", []int64{2}, []int64{1, 1}, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.shape, tt.strides, tt.bufElems)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGather(t *testing.T) {
	// 2x3 row-major source read as its 3x2 transpose.
	src := []byte{1, 2, 3, 4, 5, 6}
	dst := make([]byte, 6)
	Gather(dst, src, []int64{3, 2}, []int64{1, 3}, []int64{2, 1}, 1)
	if want := []byte{1, 4, 2, 5, 3, 6}; !slices.Equal(dst, want) {
		t.Errorf("Gather = %v, want %v", dst, want)
	}

	// Two-byte elements move as units.
	src = []byte{1, 0, 2, 0, 3, 0, 4, 0}
	dst = make([]byte, 8)
	Gather(dst, src, []int64{2, 2}, []int64{1, 2}, []int64{2, 1}, 2)
	if want := []byte{1, 0, 3, 0, 2, 0, 4, 0}; !slices.Equal(dst, want) {
		t.Errorf("Gather = %v, want %v", dst, want)
	}
}
